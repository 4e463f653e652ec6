package stream

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	aimock "github.com/poiesic/anthology/ai/mock"
	"github.com/poiesic/anthology/core"
	indexmock "github.com/poiesic/anthology/index/mock"
	"github.com/poiesic/anthology/parse"
	"github.com/poiesic/anthology/reform"
	"github.com/poiesic/anthology/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHarness wires an orchestrator over mock clients. The completer
// responses queue serves the filter parse first, then reformulation.
type testHarness struct {
	completer *aimock.MockCompleter
	embedder  *aimock.MockEmbedder
	idx       *indexmock.MockIndex
	orch      *Orchestrator
}

func newHarness(t *testing.T, responses ...string) *testHarness {
	t.Helper()

	h := &testHarness{
		completer: aimock.NewMockCompleter(responses...),
		embedder:  aimock.NewMockEmbedder(),
		idx:       indexmock.NewMockIndex(),
	}

	parser, err := parse.NewFilterParser(h.completer)
	require.NoError(t, err)
	interpreter, err := parse.NewInterpreter(h.idx)
	require.NoError(t, err)
	reformer, err := reform.NewReformulator(h.completer)
	require.NoError(t, err)
	pipeline, err := retrieval.NewPipeline(h.embedder, h.idx)
	require.NoError(t, err)
	t.Cleanup(pipeline.Release)
	aggregator, err := retrieval.NewAggregator()
	require.NoError(t, err)

	h.orch, err = NewOrchestrator(parser, interpreter, reformer, pipeline,
		aggregator, NewSynthesizer(h.completer), h.idx)
	require.NoError(t, err)
	return h
}

func paper(id, title string) *core.PaperMetadata {
	return &core.PaperMetadata{PaperID: id, Title: title, Year: "2023"}
}

func servePapers(idx *indexmock.MockIndex, papers ...*core.PaperMetadata) {
	idx.SearchFunc = func(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error) {
		points := make([]core.ScoredPoint, len(papers))
		for i, p := range papers {
			points[i] = core.ScoredPoint{Paper: p, Similarity: float32(len(papers)-i) / float32(len(papers))}
		}
		return points, nil
	}
}

func collect(t *testing.T, events <-chan core.StreamEvent) []core.StreamEvent {
	t.Helper()
	var out []core.StreamEvent
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return out
			}
			out = append(out, event)
		case <-timeout:
			t.Fatal("timed out draining event stream")
		}
	}
}

const (
	plainParse  = `{"is_relevant": true, "semantic_query": "low-resource translation"}`
	threeQueries = `{"queries": ["low-resource MT", "translation with scarce data", "under-resourced languages"]}`
)

func TestSearchEventOrdering(t *testing.T) {
	h := newHarness(t, plainParse, threeQueries)
	servePapers(h.idx, paper("a", "Paper A"), paper("b", "Paper B"))

	events, err := h.orch.Search(context.Background(), &core.SearchRequest{Query: "low-resource translation"}, nil)
	require.NoError(t, err)
	all := collect(t, events)

	require.GreaterOrEqual(t, len(all), 3)
	assert.Equal(t, core.StreamEventMetadata, all[0].Type)
	assert.Equal(t, core.StreamEventDone, all[len(all)-1].Type)
	for _, event := range all[1 : len(all)-1] {
		assert.Equal(t, core.StreamEventChunk, event.Type)
	}

	metadata := all[0].Metadata
	require.NotNil(t, metadata)
	assert.Equal(t, core.QueryModeNaturalLanguage, metadata.Mode)
	assert.Len(t, metadata.ReformulatedQueries, 3)
	assert.Len(t, metadata.Results, 2)
	assert.NotNil(t, metadata.Timestamps.Start)
	assert.NotNil(t, metadata.Timestamps.FilterParsed)
	assert.NotNil(t, metadata.Timestamps.QueriesReformed)
	assert.NotNil(t, metadata.Timestamps.SearchCompleted)
}

func TestSearchValidation(t *testing.T) {
	h := newHarness(t)

	_, err := h.orch.Search(context.Background(), &core.SearchRequest{Query: "   "}, nil)
	assert.ErrorIs(t, err, core.ErrEmptyQuery)

	_, err = h.orch.Search(context.Background(), &core.SearchRequest{Query: "x", TopK: -1}, nil)
	assert.ErrorIs(t, err, core.ErrInvalidTopK)

	// No pipeline stage may have run.
	assert.Equal(t, 0, h.completer.CompleteCallCount())
}

func TestSearchShortCircuit(t *testing.T) {
	h := newHarness(t, `{"is_relevant": false, "irrelevant_response": "I only search papers."}`)

	events, err := h.orch.Search(context.Background(), &core.SearchRequest{Query: "weather in Oslo"}, nil)
	require.NoError(t, err)
	all := collect(t, events)

	require.Len(t, all, 3)
	assert.Equal(t, core.StreamEventMetadata, all[0].Type)
	assert.Equal(t, core.StreamEventChunk, all[1].Type)
	assert.Equal(t, "I only search papers.", all[1].Chunk)
	assert.Equal(t, core.StreamEventDone, all[2].Type)

	metadata := all[0].Metadata
	assert.Empty(t, metadata.ReformulatedQueries)
	assert.Empty(t, metadata.Results)
	assert.Nil(t, metadata.Timestamps.QueriesReformed)
	assert.Nil(t, metadata.Timestamps.SearchCompleted)

	// Reformulation and search never ran.
	assert.Equal(t, 1, h.completer.CompleteCallCount())
	assert.Equal(t, 0, h.idx.SearchCallCount())
}

func TestSearchDocumentID(t *testing.T) {
	source := &core.PaperMetadata{
		PaperID:  "2023.acl-long.412",
		Title:    "Low-Resource Machine Translation with Monolingual Pivots",
		Abstract: "We study translation for languages with little parallel data.",
		Year:     "2023",
	}

	t.Run("resolves proxy and excludes source paper", func(t *testing.T) {
		h := newHarness(t,
			`{"is_relevant": true, "semantic_query": "2023.acl-long.412"}`,
			threeQueries)
		h.idx.GetFunc = func(ctx context.Context, paperID string) (*core.PaperMetadata, error) {
			return source, nil
		}
		servePapers(h.idx, source, paper("b", "Paper B"), paper("c", "Paper C"))

		events, err := h.orch.Search(context.Background(), &core.SearchRequest{Query: "2023.acl-long.412"}, nil)
		require.NoError(t, err)
		all := collect(t, events)

		metadata := all[0].Metadata
		require.NotNil(t, metadata)
		assert.Equal(t, core.QueryModeDocumentID, metadata.Mode)
		assert.Equal(t, "2023.acl-long.412", metadata.PaperID)
		require.NotNil(t, metadata.SourcePaper)
		for _, r := range metadata.Results {
			assert.NotEqual(t, source.PaperID, r.Paper.PaperID)
		}
		assert.Len(t, metadata.Results, 2)
	})

	t.Run("unknown identifier degrades to free text without error", func(t *testing.T) {
		h := newHarness(t,
			`{"is_relevant": true, "semantic_query": "2099.acl-long.1"}`,
			threeQueries)
		servePapers(h.idx, paper("b", "Paper B"))

		events, err := h.orch.Search(context.Background(), &core.SearchRequest{Query: "2099.acl-long.1"}, nil)
		require.NoError(t, err)
		all := collect(t, events)

		require.NotEmpty(t, all)
		assert.Equal(t, core.StreamEventMetadata, all[0].Type)
		assert.Equal(t, core.QueryModeNaturalLanguage, all[0].Metadata.Mode)
		assert.Equal(t, core.StreamEventDone, all[len(all)-1].Type)
	})
}

func TestSearchFilterOnly(t *testing.T) {
	h := newHarness(t, `{"is_relevant": true, "semantic_query": "", "filters": {"authors": ["Chen"]}}`)
	h.idx.ScrollFunc = func(ctx context.Context, filters *core.SearchFilters, limit int) ([]*core.PaperMetadata, error) {
		require.NotNil(t, filters)
		assert.Equal(t, []string{"Chen"}, filters.Authors)
		return []*core.PaperMetadata{paper("a", "Paper A")}, nil
	}

	events, err := h.orch.Search(context.Background(), &core.SearchRequest{Query: "papers by Chen"}, nil)
	require.NoError(t, err)
	all := collect(t, events)

	metadata := all[0].Metadata
	require.NotNil(t, metadata)
	require.Len(t, metadata.Results, 1)
	assert.Equal(t, float32(1.0), metadata.Results[0].Score)
	assert.Empty(t, metadata.ReformulatedQueries)
	assert.Nil(t, metadata.Timestamps.QueriesReformed)
	assert.NotNil(t, metadata.Timestamps.SearchCompleted)
	assert.Equal(t, core.StreamEventDone, all[len(all)-1].Type)

	// Only the filter parse hit the model; nothing was embedded.
	assert.Equal(t, 0, h.embedder.CallCount())
}

func TestSearchNoResults(t *testing.T) {
	h := newHarness(t, plainParse, threeQueries)
	// Index serves nothing.

	events, err := h.orch.Search(context.Background(), &core.SearchRequest{Query: "low-resource translation"}, nil)
	require.NoError(t, err)
	all := collect(t, events)

	require.Len(t, all, 3)
	assert.Empty(t, all[0].Metadata.Results)
	assert.Equal(t, core.StreamEventChunk, all[1].Type)
	assert.Contains(t, all[1].Chunk, "couldn't find any papers")
	assert.Equal(t, core.StreamEventDone, all[2].Type)

	// The no-results narrative is canned, not generated.
	assert.Equal(t, 0, h.completer.StreamCallCount())
}

func TestSearchPartialFailure(t *testing.T) {
	h := newHarness(t, plainParse, threeQueries)
	h.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "scarce") {
			return nil, errors.New("embedding backend down")
		}
		return aimock.DeterministicVector(text, 8), nil
	}
	servePapers(h.idx, paper("a", "Paper A"))

	events, err := h.orch.Search(context.Background(), &core.SearchRequest{Query: "low-resource translation"}, nil)
	require.NoError(t, err)
	all := collect(t, events)

	for _, event := range all {
		assert.NotEqual(t, core.StreamEventError, event.Type)
	}
	assert.NotEmpty(t, all[0].Metadata.Results)
	assert.Equal(t, core.StreamEventDone, all[len(all)-1].Type)
}

func TestSearchAllSearchesFailed(t *testing.T) {
	h := newHarness(t, plainParse, threeQueries)
	h.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedding backend down")
	}

	events, err := h.orch.Search(context.Background(), &core.SearchRequest{Query: "low-resource translation"}, nil)
	require.NoError(t, err)
	all := collect(t, events)

	// Degrades to an empty result set, not an error event.
	require.Len(t, all, 3)
	assert.Equal(t, core.StreamEventMetadata, all[0].Type)
	assert.Empty(t, all[0].Metadata.Results)
	assert.Equal(t, core.StreamEventDone, all[2].Type)
}

func TestSearchCancellation(t *testing.T) {
	h := newHarness(t, plainParse, threeQueries)
	servePapers(h.idx, paper("a", "Paper A"))

	ctx, cancel := context.WithCancel(context.Background())
	h.completer.CompleteStreamFunc = func(ctx context.Context, system, user string, fn func(chunk string) error) error {
		if err := fn("first "); err != nil {
			return err
		}
		cancel()
		<-ctx.Done()
		return ctx.Err()
	}

	events, err := h.orch.Search(ctx, &core.SearchRequest{Query: "low-resource translation"}, nil)
	require.NoError(t, err)
	all := collect(t, events)

	// The stream ends without done or error after cancellation.
	require.NotEmpty(t, all)
	last := all[len(all)-1]
	assert.NotEqual(t, core.StreamEventDone, last.Type)
	assert.NotEqual(t, core.StreamEventError, last.Type)
}

func TestSearchIdempotentOrdering(t *testing.T) {
	run := func() []string {
		h := newHarness(t, plainParse, threeQueries)
		servePapers(h.idx,
			paper("c", "Paper C"), paper("a", "Paper A"), paper("b", "Paper B"))

		events, err := h.orch.Search(context.Background(), &core.SearchRequest{Query: "low-resource translation"}, nil)
		require.NoError(t, err)
		all := collect(t, events)
		require.NotEmpty(t, all)

		var ids []string
		for _, r := range all[0].Metadata.Results {
			ids = append(ids, r.Paper.PaperID)
		}
		return ids
	}

	first := run()
	for n := 0; n < 5; n++ {
		assert.Equal(t, first, run())
	}
}

func TestSearchYearFilterScenario(t *testing.T) {
	h := newHarness(t,
		`{"is_relevant": true, "semantic_query": "papers on low-resource translation", "filters": {"year": {"min_year": 2022}}}`,
		threeQueries)

	recent := paper("a", "Recent Paper")
	h.idx.SearchFunc = func(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error) {
		require.NotNil(t, filters)
		require.NotNil(t, filters.Year)
		require.NotNil(t, filters.Year.MinYear)
		assert.Equal(t, 2022, *filters.Year.MinYear)
		return []core.ScoredPoint{{Paper: recent, Similarity: 0.9}}, nil
	}

	events, err := h.orch.Search(context.Background(), &core.SearchRequest{Query: "papers on low-resource translation after 2022", TopK: 3}, nil)
	require.NoError(t, err)
	all := collect(t, events)

	metadata := all[0].Metadata
	require.NotNil(t, metadata)
	assert.Equal(t, "papers on low-resource translation", metadata.SemanticQuery)
	assert.LessOrEqual(t, len(metadata.Results), 3)
	assert.Len(t, metadata.ReformulatedQueries, 3)
}

func TestMonitorHooks(t *testing.T) {
	h := newHarness(t, plainParse, threeQueries)
	servePapers(h.idx, paper("a", "Paper A"))

	monitor := &recordingMonitor{}
	events, err := h.orch.Search(context.Background(), &core.SearchRequest{Query: "low-resource translation"}, monitor)
	require.NoError(t, err)
	collect(t, events)

	assert.Equal(t, []string{"start", "filter_parsed", "interpreted", "reformulated", "search_completed", "finish"}, monitor.calls)
}

type recordingMonitor struct {
	calls []string
}

func (r *recordingMonitor) Start(_ string)                          { r.calls = append(r.calls, "start") }
func (r *recordingMonitor) FilterParsed(_ *core.ParsedQuery)        { r.calls = append(r.calls, "filter_parsed") }
func (r *recordingMonitor) Interpreted(_ *core.QueryInterpretation) { r.calls = append(r.calls, "interpreted") }
func (r *recordingMonitor) Reformulated(_ []string)                 { r.calls = append(r.calls, "reformulated") }
func (r *recordingMonitor) SearchCompleted(_ []core.SearchResult)   { r.calls = append(r.calls, "search_completed") }
func (r *recordingMonitor) Finish()                                 { r.calls = append(r.calls, "finish") }
