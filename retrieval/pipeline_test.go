package retrieval

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/poiesic/anthology/ai/mock"
	"github.com/poiesic/anthology/core"
	indexmock "github.com/poiesic/anthology/index/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, embedder *mock.MockEmbedder, idx *indexmock.MockIndex, opts ...PipelineOption) *Pipeline {
	t.Helper()
	p, err := NewPipeline(embedder, idx, opts...)
	require.NoError(t, err)
	t.Cleanup(p.Release)
	return p
}

func TestRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("one search per sub-query with multiplied k", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		idx := indexmock.NewMockIndex()
		var mu sync.Mutex
		var ks []int
		idx.SearchFunc = func(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error) {
			mu.Lock()
			ks = append(ks, k)
			mu.Unlock()
			return points(sp("a", 0.9)), nil
		}
		p := newTestPipeline(t, embedder, idx)

		results, err := p.Retrieve(ctx, []string{"q1", "q2", "q3"}, nil, 5)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.Equal(t, 3, idx.SearchCallCount())
		for _, k := range ks {
			assert.Equal(t, 10, k)
		}
		for _, r := range results {
			require.NoError(t, r.Err)
			assert.Len(t, r.Points, 1)
		}
	})

	t.Run("filters forwarded to every search", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		idx := indexmock.NewMockIndex()
		minYear := 2022
		want := &core.SearchFilters{Year: &core.YearFilter{MinYear: &minYear}}
		idx.SearchFunc = func(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error) {
			assert.Same(t, want, filters)
			return nil, nil
		}
		p := newTestPipeline(t, embedder, idx)

		_, err := p.Retrieve(ctx, []string{"q1", "q2"}, want, 5)
		require.NoError(t, err)
	})

	t.Run("partial embedding failure does not abort others", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			if text == "bad" {
				return nil, errors.New("embedding backend down")
			}
			return mock.DeterministicVector(text, 8), nil
		}
		idx := indexmock.NewMockIndex()
		idx.SearchFunc = func(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error) {
			return points(sp("a", 0.9)), nil
		}
		p := newTestPipeline(t, embedder, idx)

		results, err := p.Retrieve(ctx, []string{"good one", "bad", "good two"}, nil, 5)
		require.NoError(t, err)
		require.Len(t, results, 3)
		assert.NoError(t, results[0].Err)
		assert.Error(t, results[1].Err)
		assert.NoError(t, results[2].Err)
	})

	t.Run("all failures yield explicit error", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
			return nil, errors.New("embedding backend down")
		}
		p := newTestPipeline(t, embedder, indexmock.NewMockIndex())

		_, err := p.Retrieve(ctx, []string{"q1", "q2"}, nil, 5)
		assert.ErrorIs(t, err, ErrAllSearchesFailed)
	})

	t.Run("no sub-queries yields explicit error", func(t *testing.T) {
		p := newTestPipeline(t, mock.NewMockEmbedder(), indexmock.NewMockIndex())
		_, err := p.Retrieve(ctx, nil, nil, 5)
		assert.ErrorIs(t, err, ErrAllSearchesFailed)
	})

	t.Run("search failure retries once", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		idx := indexmock.NewMockIndex()
		var mu sync.Mutex
		calls := 0
		idx.SearchFunc = func(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return nil, errors.New("transient")
			}
			return points(sp("a", 0.9)), nil
		}
		p := newTestPipeline(t, embedder, idx)

		results, err := p.Retrieve(ctx, []string{"q1"}, nil, 5)
		require.NoError(t, err)
		require.NoError(t, results[0].Err)
		assert.Equal(t, 2, calls)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		p := newTestPipeline(t, mock.NewMockEmbedder(), indexmock.NewMockIndex())
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err := p.Retrieve(cancelled, []string{"q1"}, nil, 5)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("similarity floor drops weak hits", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		idx := indexmock.NewMockIndex()
		idx.SearchFunc = func(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error) {
			return points(sp("a", 0.9), sp("b", 0.4), sp("c", 0.1)), nil
		}
		p := newTestPipeline(t, embedder, idx, WithMinSimilarity(0.35))

		results, err := p.Retrieve(ctx, []string{"q1"}, nil, 5)
		require.NoError(t, err)
		require.Len(t, results[0].Points, 2)
		assert.Equal(t, "a", results[0].Points[0].Paper.PaperID)
		assert.Equal(t, "b", results[0].Points[1].Paper.PaperID)
	})

	t.Run("invalid multiplier rejected", func(t *testing.T) {
		_, err := NewPipeline(mock.NewMockEmbedder(), indexmock.NewMockIndex(), WithKMultiplier(0))
		assert.Error(t, err)
	})

	t.Run("invalid similarity floor rejected", func(t *testing.T) {
		_, err := NewPipeline(mock.NewMockEmbedder(), indexmock.NewMockIndex(), WithMinSimilarity(1.5))
		assert.Error(t, err)
	})
}
