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


// Package mock provides a mock vector index for testing.
package mock

import (
	"context"
	"sync"

	"github.com/poiesic/anthology/core"
	"github.com/poiesic/anthology/index"
)

// MockIndex implements index.Index with injectable behavior. The zero
// behavior serves an empty index: Search and Scroll return nothing and
// Get returns index.ErrNotFound. It is safe for concurrent use.
type MockIndex struct {
	SearchFunc func(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error)
	GetFunc    func(ctx context.Context, paperID string) (*core.PaperMetadata, error)
	ScrollFunc func(ctx context.Context, filters *core.SearchFilters, limit int) ([]*core.PaperMetadata, error)
	UpsertFunc func(ctx context.Context, papers []*core.PaperMetadata, vectors [][]float32) error

	mu              sync.Mutex
	searchCallCount int
	getCallCount    int
	scrollCallCount int
	upsertCallCount int
}

var _ index.Index = (*MockIndex)(nil)

// NewMockIndex creates a MockIndex with empty-index default behavior.
func NewMockIndex() *MockIndex {
	return &MockIndex{}
}

func (m *MockIndex) Search(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error) {
	m.mu.Lock()
	m.searchCallCount++
	m.mu.Unlock()
	if m.SearchFunc != nil {
		return m.SearchFunc(ctx, vector, k, filters)
	}
	return nil, nil
}

func (m *MockIndex) Get(ctx context.Context, paperID string) (*core.PaperMetadata, error) {
	m.mu.Lock()
	m.getCallCount++
	m.mu.Unlock()
	if m.GetFunc != nil {
		return m.GetFunc(ctx, paperID)
	}
	return nil, index.ErrNotFound
}

func (m *MockIndex) Scroll(ctx context.Context, filters *core.SearchFilters, limit int) ([]*core.PaperMetadata, error) {
	m.mu.Lock()
	m.scrollCallCount++
	m.mu.Unlock()
	if m.ScrollFunc != nil {
		return m.ScrollFunc(ctx, filters, limit)
	}
	return nil, nil
}

func (m *MockIndex) Upsert(ctx context.Context, papers []*core.PaperMetadata, vectors [][]float32) error {
	m.mu.Lock()
	m.upsertCallCount++
	m.mu.Unlock()
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, papers, vectors)
	}
	return nil
}

func (m *MockIndex) Close() error { return nil }

// SearchCallCount returns the number of Search calls.
func (m *MockIndex) SearchCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.searchCallCount
}

// GetCallCount returns the number of Get calls.
func (m *MockIndex) GetCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getCallCount
}

// ScrollCallCount returns the number of Scroll calls.
func (m *MockIndex) ScrollCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scrollCallCount
}

// Reset clears all call counts.
func (m *MockIndex) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.searchCallCount = 0
	m.getCallCount = 0
	m.scrollCallCount = 0
	m.upsertCallCount = 0
}
