// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package reform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/anthology/ai"
	"github.com/poiesic/anthology/core"
)

// DefaultCount is the number of sub-queries generated per input.
const DefaultCount = 3

// Reformulator expands query text into diverse sub-queries so retrieval
// covers more than one phrasing of the information need.
type Reformulator interface {
	// Reformulate expands free text into up to the configured number of
	// distinct sub-queries. It never returns an empty list: when the
	// model yields nothing usable, the input text itself is the single
	// sub-query. The only returned errors are context cancellations.
	Reformulate(ctx context.Context, text string) ([]string, error)

	// ReformulateFromPaper expands a paper's title and abstract into
	// sub-queries, used for document-as-query searches.
	ReformulateFromPaper(ctx context.Context, paper *core.PaperMetadata) ([]string, error)
}

type reformulator struct {
	completer ai.Completer
	count     int
	logger    *slog.Logger
}

// Option configures a Reformulator.
type Option func(*reformulator) error

// WithCount sets how many sub-queries to request per input.
func WithCount(n int) Option {
	return func(r *reformulator) error {
		if n < 1 {
			return fmt.Errorf("reformulation count must be positive, got %d", n)
		}
		r.count = n
		return nil
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *reformulator) error {
		r.logger = logger
		return nil
	}
}

// NewReformulator creates a Reformulator backed by the given completer.
func NewReformulator(completer ai.Completer, opts ...Option) (Reformulator, error) {
	r := &reformulator{
		completer: completer,
		count:     DefaultCount,
		logger:    slog.Default().With("component", "reformulator"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

type queriesResponse struct {
	Queries []string `json:"queries"`
}

func (r *reformulator) Reformulate(ctx context.Context, text string) ([]string, error) {
	return r.expand(ctx, reformulatePrompt(r.count), text)
}

func (r *reformulator) ReformulateFromPaper(ctx context.Context, paper *core.PaperMetadata) ([]string, error) {
	text := paper.Title
	if paper.Abstract != "" {
		text += "\n\n" + paper.Abstract
	}
	return r.expand(ctx, fromPaperPrompt(r.count), text)
}

func (r *reformulator) expand(ctx context.Context, system, text string) ([]string, error) {
	raw, err := r.complete(ctx, system, text)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		r.logger.Warn("reformulation failed, using input text as the only sub-query", "error", err)
		return []string{text}, nil
	}

	var resp queriesResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		r.logger.Warn("reformulation returned malformed JSON, using input text", "error", err)
		return []string{text}, nil
	}

	queries := dedupe(resp.Queries, r.count)
	if len(queries) == 0 {
		r.logger.Warn("reformulation produced no usable sub-queries, using input text")
		return []string{text}, nil
	}
	return queries, nil
}

// complete issues the model call with a single retry.
func (r *reformulator) complete(ctx context.Context, system, text string) (string, error) {
	raw, err := r.completer.Complete(ctx, system, text)
	if err == nil || ctx.Err() != nil {
		return raw, err
	}
	r.logger.Debug("reformulation call failed, retrying once", "error", err)
	return r.completer.Complete(ctx, system, text)
}

// dedupe trims, drops empties, removes case-insensitive duplicates
// preserving first occurrence, and caps the list at n.
func dedupe(queries []string, n int) []string {
	seen := make(map[string]struct{}, len(queries))
	out := make([]string, 0, n)
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		key := strings.ToLower(q)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, q)
		if len(out) == n {
			break
		}
	}
	return out
}
