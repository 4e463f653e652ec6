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


package parse

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/anthology/core"
	"github.com/poiesic/anthology/index"
)

// Interpreter classifies query text and resolves document-identifier
// queries to a proxy paper from the index.
type Interpreter interface {
	// Interpret detects a paper identifier in the query and, on a
	// match, looks the paper up in the index so its title and abstract
	// can serve as the effective query text. A missing or unknown
	// identifier degrades to natural-language mode; it never produces
	// a hard error, except for context cancellation.
	Interpret(ctx context.Context, query string) (*core.QueryInterpretation, error)
}

type interpreter struct {
	idx    index.Index
	logger *slog.Logger
}

// InterpreterOption configures an Interpreter.
type InterpreterOption func(*interpreter) error

// WithInterpreterLogger overrides the default logger.
func WithInterpreterLogger(logger *slog.Logger) InterpreterOption {
	return func(i *interpreter) error {
		i.logger = logger
		return nil
	}
}

// NewInterpreter creates an Interpreter backed by the given index.
func NewInterpreter(idx index.Index, opts ...InterpreterOption) (Interpreter, error) {
	i := &interpreter{
		idx:    idx,
		logger: slog.Default().With("component", "interpreter"),
	}
	for _, opt := range opts {
		if err := opt(i); err != nil {
			return nil, err
		}
	}
	return i, nil
}

func (i *interpreter) Interpret(ctx context.Context, query string) (*core.QueryInterpretation, error) {
	natural := &core.QueryInterpretation{
		Mode:          core.QueryModeNaturalLanguage,
		SemanticQuery: query,
	}

	kind, paperID := MatchQuery(query)
	if kind != KindDocumentID {
		return natural, nil
	}

	paper, err := i.lookup(ctx, paperID)
	switch {
	case err == nil:
		i.logger.Debug("resolved identifier query to proxy paper", "paper_id", paperID)
		return &core.QueryInterpretation{
			Mode:          core.QueryModeDocumentID,
			SemanticQuery: proxyQueryText(paper),
			PaperID:       paperID,
			ProxyPaper:    paper,
		}, nil
	case errors.Is(err, index.ErrNotFound):
		i.logger.Debug("identifier not in index, searching as free text", "paper_id", paperID)
		return natural, nil
	case ctx.Err() != nil:
		return nil, ctx.Err()
	default:
		i.logger.Warn("identifier lookup failed, searching as free text", "paper_id", paperID, "error", err)
		return natural, nil
	}
}

// lookup fetches the paper with a single retry on transient failures.
func (i *interpreter) lookup(ctx context.Context, paperID string) (*core.PaperMetadata, error) {
	paper, err := i.idx.Get(ctx, paperID)
	if err == nil || errors.Is(err, index.ErrNotFound) || ctx.Err() != nil {
		return paper, err
	}
	return i.idx.Get(ctx, paperID)
}

// proxyQueryText builds the document-as-query text from a paper's
// title and abstract.
func proxyQueryText(paper *core.PaperMetadata) string {
	if paper.Abstract == "" {
		return paper.Title
	}
	return paper.Title + "\n\n" + paper.Abstract
}
