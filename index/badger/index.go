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


package badger

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/anthology/core"
	"github.com/poiesic/anthology/index"
)

// paperKeyPrefix namespaces index points in the key space.
const paperKeyPrefix = "papvec:"

// Index is an embedded vector index over BadgerDB. Search is a brute-force
// cosine scan over all stored points, which is adequate for local corpora
// up to a few hundred thousand abstracts.
type Index struct {
	db     *badger.DB
	logger *slog.Logger
}

// point is the stored representation of one paper with its embedding.
// Payloads are JSON so the shape matches the Qdrant wire format.
type point struct {
	Paper  *core.PaperMetadata `json:"paper"`
	Vector []float32           `json:"vector"`
}

// Option configures an Index.
type Option func(*Index) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(i *Index) error {
		if logger == nil {
			logger = slog.Default()
		}
		i.logger = logger
		return nil
	}
}

var _ index.Index = (*Index)(nil)

// Open opens (or creates) an embedded index at the given directory.
func Open(filePath string, opts ...Option) (*Index, error) {
	db, err := openDB(filePath, false)
	if err != nil {
		return nil, err
	}
	return newIndex(db, opts...)
}

func newIndex(db *badger.DB, opts ...Option) (*Index, error) {
	idx := &Index{
		db:     db,
		logger: slog.Default().With("component", "badger-index"),
	}
	for _, opt := range opts {
		if err := opt(idx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return idx, nil
}

func makePaperKey(paperID string) []byte {
	return []byte(paperKeyPrefix + paperID)
}

// Upsert stores papers with their vectors, keyed by paper_id.
func (i *Index) Upsert(ctx context.Context, papers []*core.PaperMetadata, vectors [][]float32) error {
	if len(papers) != len(vectors) {
		return index.ErrLengthMismatch
	}

	return i.db.Update(func(tx *badger.Txn) error {
		for j, paper := range papers {
			if err := paper.Validate(); err != nil {
				return err
			}
			value, err := json.Marshal(point{Paper: paper, Vector: vectors[j]})
			if err != nil {
				return err
			}
			if err := tx.Set(makePaperKey(paper.PaperID), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get looks up a single paper payload by identifier.
func (i *Index) Get(ctx context.Context, paperID string) (*core.PaperMetadata, error) {
	var paper *core.PaperMetadata
	err := i.db.View(func(tx *badger.Txn) error {
		item, err := tx.Get(makePaperKey(paperID))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return index.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var p point
			if err := json.Unmarshal(val, &p); err != nil {
				return err
			}
			paper = p.Paper
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return paper, nil
}

// Search scans all stored points, filters, scores by cosine similarity
// and returns the k best hits ordered by similarity.
func (i *Index) Search(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error) {
	if k <= 0 {
		k = core.DefaultTopK
	}

	var hits []core.ScoredPoint
	err := i.scan(ctx, func(p point) error {
		if !matchesFilters(p.Paper, filters) {
			return nil
		}
		if len(p.Vector) == 0 {
			return nil
		}
		if len(p.Vector) != len(vector) {
			return index.ErrDimensionMismatch
		}
		hits = append(hits, core.ScoredPoint{
			Paper:      p.Paper,
			Similarity: cosineSimilarity(vector, p.Vector),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].Similarity != hits[b].Similarity {
			return hits[a].Similarity > hits[b].Similarity
		}
		return hits[a].Paper.PaperID < hits[b].Paper.PaperID
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Scroll returns up to limit payloads matching filters, without ranking.
func (i *Index) Scroll(ctx context.Context, filters *core.SearchFilters, limit int) ([]*core.PaperMetadata, error) {
	if limit <= 0 {
		limit = core.DefaultTopK
	}

	var papers []*core.PaperMetadata
	err := i.scan(ctx, func(p point) error {
		if len(papers) >= limit {
			return errScanDone
		}
		if matchesFilters(p.Paper, filters) {
			papers = append(papers, p.Paper)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return papers, nil
}

// errScanDone stops a scan early without reporting an error.
var errScanDone = errors.New("scan done")

func (i *Index) scan(ctx context.Context, visit func(point) error) error {
	err := i.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(paperKeyPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var p point
			err := iter.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			})
			if err != nil {
				i.logger.Warn("skipping undecodable point", "err", err)
				continue
			}
			if p.Paper == nil {
				continue
			}
			if err := visit(p); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errScanDone) {
		return nil
	}
	return err
}

// Close closes the underlying database.
func (i *Index) Close() error {
	return i.db.Close()
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Falls back to 0 when either vector has zero norm.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for j := range a {
		dot += float64(a[j]) * float64(b[j])
		normA += float64(a[j]) * float64(a[j])
		normB += float64(b[j]) * float64(b[j])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
