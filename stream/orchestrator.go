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
	"errors"
	"log/slog"
	"strings"

	"github.com/poiesic/anthology/core"
	"github.com/poiesic/anthology/index"
	"github.com/poiesic/anthology/parse"
	"github.com/poiesic/anthology/reform"
	"github.com/poiesic/anthology/retrieval"
)

// Orchestrator sequences the pipeline stages for one search request and
// streams the outcome as events: exactly one metadata event, then zero
// or more narrative chunks, then a terminal done event. A hard failure
// terminates the stream early with a single error event instead.
type Orchestrator struct {
	parser      parse.FilterParser
	interpreter parse.Interpreter
	reformer    reform.Reformulator
	pipeline    *retrieval.Pipeline
	aggregator  *retrieval.Aggregator
	synthesizer *Synthesizer
	idx         index.Index
	logger      *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator) error

// WithOrchestratorLogger overrides the default logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) error {
		o.logger = logger
		return nil
	}
}

// NewOrchestrator assembles the pipeline stages into an Orchestrator.
func NewOrchestrator(
	parser parse.FilterParser,
	interpreter parse.Interpreter,
	reformer reform.Reformulator,
	pipeline *retrieval.Pipeline,
	aggregator *retrieval.Aggregator,
	synthesizer *Synthesizer,
	idx index.Index,
	opts ...OrchestratorOption,
) (*Orchestrator, error) {
	o := &Orchestrator{
		parser:      parser,
		interpreter: interpreter,
		reformer:    reformer,
		pipeline:    pipeline,
		aggregator:  aggregator,
		synthesizer: synthesizer,
		idx:         idx,
		logger:      slog.Default().With("component", "orchestrator"),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Search validates the request and returns the event stream. Validation
// failures are returned synchronously; no pipeline stage runs and no
// channel is created. The returned channel is closed after the terminal
// event, or without one when ctx is cancelled mid-stream.
func (o *Orchestrator) Search(ctx context.Context, req *core.SearchRequest, monitor PipelineMonitor) (<-chan core.StreamEvent, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	events := make(chan core.StreamEvent)
	go func() {
		defer close(events)
		o.run(ctx, req, monitor, events)
	}()
	return events, nil
}

// emit delivers one event unless the request was cancelled. It reports
// whether the stream may continue.
func emit(ctx context.Context, events chan<- core.StreamEvent, event core.StreamEvent) bool {
	select {
	case events <- event:
		return true
	case <-ctx.Done():
		return false
	}
}

func (o *Orchestrator) run(ctx context.Context, req *core.SearchRequest, monitor PipelineMonitor, events chan<- core.StreamEvent) {
	defer monitor.Finish()
	monitor.Start(req.Query)

	var ts core.Timestamps
	ts.MarkStart()

	parsed, err := o.parser.Parse(ctx, req.Query)
	if err != nil {
		o.fail(ctx, events, err)
		return
	}
	ts.MarkFilterParsed()
	monitor.FilterParsed(parsed)

	if !parsed.IsRelevant {
		o.shortCircuit(ctx, events, parsed, ts)
		return
	}

	// A parse with filters but no residual text is a pure metadata
	// lookup; no embedding or reformulation is involved.
	if strings.TrimSpace(parsed.SemanticQuery) == "" && parsed.Filters != nil {
		o.filterOnly(ctx, req, parsed, ts, monitor, events)
		return
	}

	interp, err := o.interpreter.Interpret(ctx, parsed.SemanticQuery)
	if err != nil {
		o.fail(ctx, events, err)
		return
	}
	monitor.Interpreted(interp)

	subQueries, err := o.reformulate(ctx, interp)
	if err != nil {
		o.fail(ctx, events, err)
		return
	}
	ts.MarkQueriesReformed()
	monitor.Reformulated(subQueries)

	results, err := o.retrieve(ctx, subQueries, parsed.Filters, req.TopK, interp)
	if err != nil {
		o.fail(ctx, events, err)
		return
	}
	ts.MarkSearchCompleted()
	monitor.SearchCompleted(results)

	metadata := &core.StreamMetadata{
		Mode:                interp.Mode,
		OriginalQuery:       req.Query,
		SemanticQuery:       interp.SemanticQuery,
		PaperID:             interp.PaperID,
		SourcePaper:         interp.ProxyPaper,
		ParsedFilters:       parsed.Filters,
		ReformulatedQueries: subQueries,
		Results:             results,
		Timestamps:          ts,
	}
	o.respond(ctx, events, metadata, &ts, parsed.OriginalQuery, results)
}

// reformulate picks the expansion source: the proxy paper for
// document-id queries, the semantic text otherwise.
func (o *Orchestrator) reformulate(ctx context.Context, interp *core.QueryInterpretation) ([]string, error) {
	if interp.Mode == core.QueryModeDocumentID {
		return o.reformer.ReformulateFromPaper(ctx, interp.ProxyPaper)
	}
	return o.reformer.Reformulate(ctx, interp.SemanticQuery)
}

// retrieve runs the fan-out and fuses the candidate lists. For
// document-id queries the source paper is excluded from the results, so
// an extra candidate slot is requested to compensate. A fan-out where
// every sub-query failed degrades to an empty result list; the
// narrative stage reports it as no results.
func (o *Orchestrator) retrieve(ctx context.Context, subQueries []string, filters *core.SearchFilters, topK int, interp *core.QueryInterpretation) ([]core.SearchResult, error) {
	fuseK := topK
	if interp.Mode == core.QueryModeDocumentID {
		fuseK++
	}

	perQuery, err := o.pipeline.Retrieve(ctx, subQueries, filters, fuseK)
	switch {
	case errors.Is(err, retrieval.ErrAllSearchesFailed):
		o.logger.Warn("every sub-query search failed, reporting no results")
		return nil, nil
	case err != nil:
		return nil, err
	}

	var results []core.SearchResult
	if len(perQuery) == 1 && perQuery[0].Err == nil {
		results = retrieval.DeduplicateSimple(perQuery[0].Points, fuseK)
	} else {
		results = o.aggregator.Aggregate(perQuery, fuseK)
	}

	if interp.Mode == core.QueryModeDocumentID {
		results = excludePaper(results, interp.PaperID)
	}
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// filterOnly serves pure filter queries with a payload scroll, skipping
// embedding, reformulation and fusion entirely.
func (o *Orchestrator) filterOnly(ctx context.Context, req *core.SearchRequest, parsed *core.ParsedQuery, ts core.Timestamps, monitor PipelineMonitor, events chan<- core.StreamEvent) {
	papers, err := o.scroll(ctx, parsed.Filters, req.TopK)
	if err != nil {
		o.fail(ctx, events, err)
		return
	}
	ts.MarkSearchCompleted()

	// Filter hits are exact payload matches, not ranked; every hit
	// carries full score.
	results := make([]core.SearchResult, 0, len(papers))
	for _, paper := range papers {
		results = append(results, core.SearchResult{Paper: paper, Score: 1.0})
	}
	monitor.SearchCompleted(results)

	metadata := &core.StreamMetadata{
		Mode:                core.QueryModeNaturalLanguage,
		OriginalQuery:       req.Query,
		ParsedFilters:       parsed.Filters,
		ReformulatedQueries: []string{},
		Results:             results,
		Timestamps:          ts,
	}
	o.respond(ctx, events, metadata, &ts, parsed.OriginalQuery, results)
}

// scroll queries the index payload store with a single retry.
func (o *Orchestrator) scroll(ctx context.Context, filters *core.SearchFilters, limit int) ([]*core.PaperMetadata, error) {
	papers, err := o.idx.Scroll(ctx, filters, limit)
	if err == nil || ctx.Err() != nil {
		return papers, err
	}
	return o.idx.Scroll(ctx, filters, limit)
}

// respond emits the metadata event and streams the narrative. The
// citation numbering handed to the model is checked against the result
// list first; a mismatch is a bug, surfaced as an error event rather
// than a silently wrong response. The metadata snapshot is taken before
// responseGenerated is marked, so ts is updated separately.
func (o *Orchestrator) respond(ctx context.Context, events chan<- core.StreamEvent, metadata *core.StreamMetadata, ts *core.Timestamps, query string, results []core.SearchResult) {
	if _, count := buildContext(results); count != len(metadata.Results) {
		o.fail(ctx, events, ErrCitationMismatch)
		return
	}

	if !emit(ctx, events, core.StreamEvent{Type: core.StreamEventMetadata, Metadata: metadata}) {
		return
	}

	err := o.synthesizer.Stream(ctx, query, results, func(chunk string) error {
		if !emit(ctx, events, core.StreamEvent{Type: core.StreamEventChunk, Chunk: chunk}) {
			return context.Cause(ctx)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() == nil {
			o.fail(ctx, events, err)
		}
		return
	}

	ts.MarkResponseGenerated()
	emit(ctx, events, core.StreamEvent{Type: core.StreamEventDone})
}

// shortCircuit serves out-of-scope queries: metadata with empty lists
// and one non-streamed explanatory chunk. No later-stage timestamps
// are set.
func (o *Orchestrator) shortCircuit(ctx context.Context, events chan<- core.StreamEvent, parsed *core.ParsedQuery, ts core.Timestamps) {
	metadata := &core.StreamMetadata{
		Mode:                core.QueryModeNaturalLanguage,
		OriginalQuery:       parsed.OriginalQuery,
		ReformulatedQueries: []string{},
		Results:             []core.SearchResult{},
		Timestamps:          ts,
	}
	if !emit(ctx, events, core.StreamEvent{Type: core.StreamEventMetadata, Metadata: metadata}) {
		return
	}
	if !emit(ctx, events, core.StreamEvent{Type: core.StreamEventChunk, Chunk: parsed.IrrelevantResponse}) {
		return
	}
	emit(ctx, events, core.StreamEvent{Type: core.StreamEventDone})
}

// fail emits the terminal error event unless the request was cancelled,
// in which case nothing more is sent.
func (o *Orchestrator) fail(ctx context.Context, events chan<- core.StreamEvent, err error) {
	if ctx.Err() != nil {
		return
	}
	o.logger.Error("search pipeline failed", "error", err)
	emit(ctx, events, core.StreamEvent{Type: core.StreamEventError, Error: err.Error()})
}

func excludePaper(results []core.SearchResult, paperID string) []core.SearchResult {
	out := results[:0]
	for _, r := range results {
		if r.Paper.PaperID != paperID {
			out = append(out, r)
		}
	}
	return out
}
