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
	"fmt"
	"sort"

	"github.com/poiesic/anthology/core"
)

const (
	// DefaultRRFK is the rank-dampening constant in the reciprocal
	// rank fusion term 1/(K+rank).
	DefaultRRFK = 60

	// DefaultScoreWeight is the weight of average similarity in the
	// fused score; the remainder goes to the normalized RRF term.
	DefaultScoreWeight = 0.3
)

// Aggregator fuses per-sub-query candidate lists into one deduplicated
// ranked list. The fused score rewards papers that are both
// individually similar and consistently retrieved across sub-queries:
//
//	fused = w * avg_similarity + (1-w) * rrf/max_rrf
type Aggregator struct {
	rrfK        int
	scoreWeight float64
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator) error

// WithRRFK sets the RRF rank-dampening constant.
func WithRRFK(k int) AggregatorOption {
	return func(a *Aggregator) error {
		if k < 1 {
			return fmt.Errorf("RRF constant must be positive, got %d", k)
		}
		a.rrfK = k
		return nil
	}
}

// WithScoreWeight sets the similarity weight in [0,1].
func WithScoreWeight(w float64) AggregatorOption {
	return func(a *Aggregator) error {
		if w < 0 || w > 1 {
			return fmt.Errorf("score weight must be in [0,1], got %g", w)
		}
		a.scoreWeight = w
		return nil
	}
}

// NewAggregator creates an Aggregator with default fusion constants.
func NewAggregator(opts ...AggregatorOption) (*Aggregator, error) {
	a := &Aggregator{
		rrfK:        DefaultRRFK,
		scoreWeight: DefaultScoreWeight,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// candidate accumulates a paper's evidence across sub-query lists.
type candidate struct {
	paper      *core.PaperMetadata
	rrf        float64
	simSum     float64
	simCount   int
	firstQuery int // index of the first sub-query list the paper appeared in
}

// Aggregate fuses the candidate lists into at most topK results,
// ordered by descending fused score. Failed sub-queries contribute
// nothing. Ordering is deterministic: score ties break by earliest
// sub-query appearance, then paper_id.
func (a *Aggregator) Aggregate(results []QueryResult, topK int) []core.SearchResult {
	byID := make(map[string]*candidate)
	order := make([]string, 0)

	for qi, result := range results {
		if result.Err != nil {
			continue
		}
		for rank, point := range result.Points {
			id := point.Paper.PaperID
			c, seen := byID[id]
			if !seen {
				c = &candidate{paper: point.Paper, firstQuery: qi}
				byID[id] = c
				order = append(order, id)
			}
			c.rrf += 1.0 / float64(a.rrfK+rank+1)
			c.simSum += float64(point.Similarity)
			c.simCount++
		}
	}

	if len(byID) == 0 {
		return nil
	}

	maxRRF := 0.0
	for _, c := range byID {
		if c.rrf > maxRRF {
			maxRRF = c.rrf
		}
	}

	fused := make([]core.SearchResult, 0, len(byID))
	for _, id := range order {
		c := byID[id]
		avgSim := c.simSum / float64(c.simCount)
		normRRF := c.rrf / maxRRF
		fused = append(fused, core.SearchResult{
			Paper: c.paper,
			Score: float32(a.scoreWeight*avgSim + (1-a.scoreWeight)*normRRF),
		})
	}

	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].Score != fused[j].Score {
			return fused[i].Score > fused[j].Score
		}
		ci, cj := byID[fused[i].Paper.PaperID], byID[fused[j].Paper.PaperID]
		if ci.firstQuery != cj.firstQuery {
			return ci.firstQuery < cj.firstQuery
		}
		return fused[i].Paper.PaperID < fused[j].Paper.PaperID
	})

	if len(fused) > topK {
		fused = fused[:topK]
	}
	return fused
}

// DeduplicateSimple converts a single ranked list into SearchResults,
// dropping duplicate paper IDs and truncating to topK. Used when only
// one candidate list exists and fusion would be a no-op.
func DeduplicateSimple(points []core.ScoredPoint, topK int) []core.SearchResult {
	seen := make(map[string]struct{}, len(points))
	out := make([]core.SearchResult, 0, topK)
	for _, point := range points {
		if _, dup := seen[point.Paper.PaperID]; dup {
			continue
		}
		seen[point.Paper.PaperID] = struct{}{}
		out = append(out, core.SearchResult{Paper: point.Paper, Score: point.Similarity})
		if len(out) == topK {
			break
		}
	}
	return out
}
