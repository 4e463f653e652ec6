package index

import (
	"context"

	"github.com/poiesic/anthology/core"
)

// Index is the vector index contract the retrieval pipeline consumes.
// The index is populated offline, before any query is served; the online
// pipeline treats its contents as read-only.
//
// Implementations must be safe for concurrent use: multiple Search calls
// for one request may be in flight at once.
type Index interface {
	// Search returns up to k nearest neighbors of vector, ordered by
	// similarity (highest first). A non-empty filters value constrains
	// the candidate set using the backend's native predicates.
	Search(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error)

	// Get looks up the payload stored under paperID.
	// Returns ErrNotFound when the identifier is absent.
	Get(ctx context.Context, paperID string) (*core.PaperMetadata, error)

	// Scroll returns up to limit payloads matching filters, without
	// vector ranking. Used for filter-only searches.
	Scroll(ctx context.Context, filters *core.SearchFilters, limit int) ([]*core.PaperMetadata, error)

	// Upsert stores papers with their embedding vectors, keyed by
	// paper_id. Re-upserting an existing paper replaces it.
	Upsert(ctx context.Context, papers []*core.PaperMetadata, vectors [][]float32) error

	// Close releases resources held by the backend.
	Close() error
}
