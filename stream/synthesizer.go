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


package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/anthology/ai"
	"github.com/poiesic/anthology/core"
)

// Synthesizer streams a grounded narrative over an aggregated result
// list. Citation markers in the narrative are 1-indexed positions in
// the list exactly as numbered in the prompt context.
type Synthesizer struct {
	completer ai.Completer
	logger    *slog.Logger
}

// NewSynthesizer creates a Synthesizer backed by the given completer.
func NewSynthesizer(completer ai.Completer) *Synthesizer {
	return &Synthesizer{
		completer: completer,
		logger:    slog.Default().With("component", "synthesizer"),
	}
}

// buildContext renders the numbered paper list handed to the model.
// The returned count is the number of entries, which must equal
// len(results); the orchestrator checks this before emitting metadata
// so citations can never point outside the returned list.
func buildContext(results []core.SearchResult) (string, int) {
	var b strings.Builder
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s", i+1, r.Paper.Title)
		if r.Paper.Year != "" {
			fmt.Fprintf(&b, " (%s)", r.Paper.Year)
		}
		if len(r.Paper.Authors) > 0 {
			fmt.Fprintf(&b, " by %s", strings.Join(r.Paper.Authors, ", "))
		}
		b.WriteString("\n")
		if r.Paper.Abstract != "" {
			fmt.Fprintf(&b, "    %s\n", r.Paper.Abstract)
		}
	}
	return b.String(), len(results)
}

// Stream generates the narrative token by token, forwarding each chunk
// to emit. With no results it emits one fixed message and makes no
// model call. A stream that fails before producing any output is
// retried once; once chunks have been flushed the stream cannot be
// restarted, so a later failure is returned as-is.
func (s *Synthesizer) Stream(ctx context.Context, query string, results []core.SearchResult, emit func(chunk string) error) error {
	if len(results) == 0 {
		return emit(noResultsMessage)
	}

	paperContext, _ := buildContext(results)
	user := fmt.Sprintf("Query: %s\n\nPapers:\n%s", query, paperContext)

	emitted := false
	wrapped := func(chunk string) error {
		emitted = true
		return emit(chunk)
	}

	err := s.completer.CompleteStream(ctx, synthesisSystemPrompt, user, wrapped)
	if err == nil || emitted || ctx.Err() != nil {
		return err
	}
	s.logger.Debug("narrative stream failed before first token, retrying once", "error", err)
	return s.completer.CompleteStream(ctx, synthesisSystemPrompt, user, wrapped)
}
