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
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/poiesic/anthology/ai"
	"github.com/poiesic/anthology/core"
)

const defaultIrrelevantResponse = "I'm an academic paper search assistant for computational linguistics and NLP research. " +
	"I can help you find papers, explore research topics, and discover authors' work. " +
	"Please ask me about NLP, machine learning, or computational linguistics papers."

// FilterParser turns raw query text into structured filters, a semantic
// remainder query, and a relevance verdict.
type FilterParser interface {
	// Parse analyzes the query with one language-model call. Parsing is
	// fail-open: when the model is unavailable or returns malformed
	// output, the query is treated as relevant with no filters. The
	// only returned errors are context cancellations.
	Parse(ctx context.Context, query string) (*core.ParsedQuery, error)
}

type filterParser struct {
	completer ai.Completer
	logger    *slog.Logger
}

// ParserOption configures a FilterParser.
type ParserOption func(*filterParser) error

// WithParserLogger overrides the default logger.
func WithParserLogger(logger *slog.Logger) ParserOption {
	return func(p *filterParser) error {
		p.logger = logger
		return nil
	}
}

// NewFilterParser creates a FilterParser backed by the given completer.
func NewFilterParser(completer ai.Completer, opts ...ParserOption) (FilterParser, error) {
	p := &filterParser{
		completer: completer,
		logger:    slog.Default().With("component", "filter_parser"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// rawParseResult mirrors the JSON shape the model is instructed to emit.
// Field types are deliberately loose; models drift between numbers and
// strings, and between scalars and lists.
type rawParseResult struct {
	IsRelevant         *bool       `json:"is_relevant"`
	IrrelevantResponse string      `json:"irrelevant_response"`
	SemanticQuery      string      `json:"semantic_query"`
	Filters            *rawFilters `json:"filters"`
}

type rawFilters struct {
	Year          json.RawMessage `json:"year"`
	Bibkey        string          `json:"bibkey"`
	TitleKeywords json.RawMessage `json:"title_keywords"`
	Language      string          `json:"language"`
	Authors       json.RawMessage `json:"authors"`
	HasAwards     *bool           `json:"has_awards"`
	Awards        json.RawMessage `json:"awards"`
}

type rawYear struct {
	Exact   json.RawMessage `json:"exact"`
	MinYear json.RawMessage `json:"min_year"`
	MaxYear json.RawMessage `json:"max_year"`
}

func (p *filterParser) Parse(ctx context.Context, query string) (*core.ParsedQuery, error) {
	fallback := &core.ParsedQuery{
		SemanticQuery: query,
		OriginalQuery: query,
		IsRelevant:    true,
	}

	raw, err := p.complete(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		p.logger.Warn("filter extraction failed, degrading to plain search", "error", err)
		return fallback, nil
	}

	var result rawParseResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		p.logger.Warn("filter extraction returned malformed JSON, degrading to plain search", "error", err)
		return fallback, nil
	}

	// The relevance gate is permissive: only an explicit false verdict
	// short-circuits the pipeline.
	if result.IsRelevant != nil && !*result.IsRelevant {
		response := strings.TrimSpace(result.IrrelevantResponse)
		if response == "" {
			response = defaultIrrelevantResponse
		}
		return &core.ParsedQuery{
			OriginalQuery:      query,
			IsRelevant:         false,
			IrrelevantResponse: response,
		}, nil
	}

	parsed := &core.ParsedQuery{
		SemanticQuery: strings.TrimSpace(result.SemanticQuery),
		OriginalQuery: query,
		IsRelevant:    true,
	}
	if filters := coerceFilters(result.Filters); filters != nil && !filters.IsEmpty() {
		parsed.Filters = filters
	}
	// An empty semantic query with filters means a pure filter lookup.
	// Without filters it is just a degenerate parse; search the raw text.
	if parsed.SemanticQuery == "" && parsed.Filters == nil {
		parsed.SemanticQuery = query
	}
	return parsed, nil
}

// complete issues the model call with a single retry.
func (p *filterParser) complete(ctx context.Context, query string) (string, error) {
	raw, err := p.completer.Complete(ctx, filterPrompt(), query)
	if err == nil || ctx.Err() != nil {
		return raw, err
	}
	p.logger.Debug("filter extraction call failed, retrying once", "error", err)
	return p.completer.Complete(ctx, filterPrompt(), query)
}

func coerceFilters(raw *rawFilters) *core.SearchFilters {
	if raw == nil {
		return nil
	}
	filters := &core.SearchFilters{
		Bibkey:        strings.TrimSpace(raw.Bibkey),
		Language:      strings.TrimSpace(raw.Language),
		TitleKeywords: coerceStringList(raw.TitleKeywords),
		Authors:       coerceStringList(raw.Authors),
		Awards:        coerceStringList(raw.Awards),
	}
	if raw.HasAwards != nil && *raw.HasAwards {
		filters.HasAwards = true
	}
	filters.Year = coerceYear(raw.Year)
	return filters
}

func coerceYear(raw json.RawMessage) *core.YearFilter {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var y rawYear
	if err := json.Unmarshal(raw, &y); err != nil {
		return nil
	}
	year := &core.YearFilter{
		Exact:   coerceInt(y.Exact),
		MinYear: coerceInt(y.MinYear),
		MaxYear: coerceInt(y.MaxYear),
	}
	if year.Exact == nil && year.MinYear == nil && year.MaxYear == nil {
		return nil
	}
	return year
}

// coerceInt accepts a JSON number or a numeric string.
func coerceInt(raw json.RawMessage) *int {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		v := int(n)
		return &v
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return &v
		}
	}
	return nil
}

// coerceStringList accepts a JSON list of strings or a bare string.
func coerceStringList(raw json.RawMessage) []string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := make([]string, 0, len(list))
		for _, item := range list {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
		if len(out) == 0 {
			return nil
		}
		return out
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s = strings.TrimSpace(s); s != "" {
			return []string{s}
		}
	}
	return nil
}
