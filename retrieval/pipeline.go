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


package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/anthology/ai"
	"github.com/poiesic/anthology/core"
	"github.com/poiesic/anthology/index"
)

// DefaultKMultiplier scales the requested top_k for each sub-query
// search so the aggregator has enough candidates to fuse.
const DefaultKMultiplier = 2

// QueryResult is the outcome of one sub-query search.
type QueryResult struct {
	Query  string
	Points []core.ScoredPoint
	Err    error
}

// Pipeline runs the multi-query retrieval fan-out: embed each
// sub-query, search the index, and collect per-sub-query ranked lists.
//
// Embedding calls are serialized because embedding backends are not
// assumed concurrency-safe; index searches run concurrently on a worker
// pool once their vectors are ready.
type Pipeline struct {
	embedder      ai.Embedder
	idx           index.Index
	kMultiplier   int
	minSimilarity float32
	searchPool    *ants.Pool
	logger        *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline) error

// WithKMultiplier sets the per-sub-query result multiplier.
func WithKMultiplier(m int) PipelineOption {
	return func(p *Pipeline) error {
		if m < 1 {
			return fmt.Errorf("k multiplier must be positive, got %d", m)
		}
		p.kMultiplier = m
		return nil
	}
}

// WithMinSimilarity sets a similarity floor: sub-query hits scoring
// below it are dropped before fusion. Default 0 keeps every hit.
func WithMinSimilarity(floor float32) PipelineOption {
	return func(p *Pipeline) error {
		if floor < 0 || floor > 1 {
			return fmt.Errorf("similarity floor must be in [0,1], got %v", floor)
		}
		p.minSimilarity = floor
		return nil
	}
}

// WithSearchPoolSize sets the worker pool size for concurrent index
// searches. Default is 4.
func WithSearchPoolSize(size int) PipelineOption {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.searchPool != nil {
			p.searchPool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.searchPool = pool
		return nil
	}
}

// WithPipelineLogger overrides the default logger.
func WithPipelineLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) error {
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a retrieval Pipeline.
func NewPipeline(embedder ai.Embedder, idx index.Index, opts ...PipelineOption) (*Pipeline, error) {
	pool, err := ants.NewPool(4)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		embedder:    embedder,
		idx:         idx,
		kMultiplier: DefaultKMultiplier,
		searchPool:  pool,
		logger:      slog.Default().With("component", "retrieval"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			pool.Release()
			return nil, err
		}
	}
	return p, nil
}

// Retrieve runs one search per sub-query, each constrained by the given
// filters, fetching topK * kMultiplier candidates per sub-query. A
// failed sub-query is recorded in its QueryResult but does not abort
// the others; ErrAllSearchesFailed is returned only when no sub-query
// produced candidates.
func (p *Pipeline) Retrieve(ctx context.Context, subQueries []string, filters *core.SearchFilters, topK int) ([]QueryResult, error) {
	if len(subQueries) == 0 {
		return nil, ErrAllSearchesFailed
	}
	k := topK * p.kMultiplier

	results := make([]QueryResult, len(subQueries))
	var wg sync.WaitGroup

	for i, query := range subQueries {
		i := i // per-iteration copy for the search closure (pre-go1.22 loopvar)
		results[i].Query = query

		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		// Embeddings are computed on this goroutine, one at a time.
		vector, err := p.embedText(ctx, query)
		if err != nil {
			p.logger.Warn("embedding failed for sub-query", "query", query, "error", err)
			results[i].Err = err
			continue
		}

		wg.Add(1)
		submitErr := p.searchPool.Submit(func() {
			defer wg.Done()
			points, err := p.search(ctx, vector, k, filters)
			if err != nil {
				p.logger.Warn("search failed for sub-query", "query", results[i].Query, "error", err)
				results[i].Err = err
				return
			}
			results[i].Points = points
		})
		if submitErr != nil {
			wg.Done()
			results[i].Err = submitErr
		}
	}

	// Aggregation is a barrier: wait for every search outcome.
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	succeeded := 0
	for _, r := range results {
		if r.Err == nil {
			succeeded++
		}
	}
	if succeeded == 0 {
		return nil, ErrAllSearchesFailed
	}

	p.logger.Debug("retrieval fan-out complete",
		"sub_queries", len(subQueries), "succeeded", succeeded, "k_per_query", k)
	return results, nil
}

// embedText embeds one sub-query with a single retry.
func (p *Pipeline) embedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := p.embedder.EmbedText(ctx, text)
	if err == nil || ctx.Err() != nil {
		return vector, err
	}
	return p.embedder.EmbedText(ctx, text)
}

// search queries the index with a single retry and applies the
// similarity floor.
func (p *Pipeline) search(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error) {
	points, err := p.idx.Search(ctx, vector, k, filters)
	if err != nil && ctx.Err() == nil {
		points, err = p.idx.Search(ctx, vector, k, filters)
	}
	if err != nil {
		return nil, err
	}
	if p.minSimilarity > 0 {
		kept := points[:0]
		for _, pt := range points {
			if pt.Similarity >= p.minSimilarity {
				kept = append(kept, pt)
			}
		}
		points = kept
	}
	return points, nil
}

// Release frees the search worker pool.
func (p *Pipeline) Release() {
	p.searchPool.Release()
}
