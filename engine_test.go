package anthology

import (
	"context"
	"testing"
	"time"

	aimock "github.com/poiesic/anthology/ai/mock"
	"github.com/poiesic/anthology/config"
	"github.com/poiesic/anthology/core"
	indexmock "github.com/poiesic/anthology/index/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*Engine, *aimock.MockCompleter, *indexmock.MockIndex) {
	t.Helper()

	completer := aimock.NewMockCompleter()
	provider := aimock.NewMockProviderWithServices(aimock.NewMockEmbedder(), completer)
	idx := indexmock.NewMockIndex()
	engine, err := NewEngine(config.Default(), WithProvider(provider), WithIndex(idx))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine, completer, idx
}

func TestEngineSearch(t *testing.T) {
	engine, completer, idx := newTestEngine(t)

	completer.Responses = []string{
		`{"is_relevant": true, "semantic_query": "dependency parsing"}`,
		`{"queries": ["dependency parsing", "syntactic analysis", "treebank parsing"]}`,
	}
	idx.SearchFunc = func(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error) {
		return []core.ScoredPoint{
			{Paper: &core.PaperMetadata{PaperID: "a", Title: "Paper A", Year: "2023"}, Similarity: 0.9},
		}, nil
	}

	events, err := engine.Search(context.Background(), &core.SearchRequest{Query: "dependency parsing"}, nil)
	require.NoError(t, err)

	var types []core.StreamEventType
	timeout := time.After(5 * time.Second)
	for {
		select {
		case event, ok := <-events:
			if !ok {
				require.NotEmpty(t, types)
				assert.Equal(t, core.StreamEventMetadata, types[0])
				assert.Equal(t, core.StreamEventDone, types[len(types)-1])
				return
			}
			types = append(types, event.Type)
		case <-timeout:
			t.Fatal("timed out draining event stream")
		}
	}
}

func TestEngineSearchValidation(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	_, err := engine.Search(context.Background(), &core.SearchRequest{Query: ""}, nil)
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
}

func TestEngineLookup(t *testing.T) {
	engine, _, idx := newTestEngine(t)

	idx.GetFunc = func(ctx context.Context, paperID string) (*core.PaperMetadata, error) {
		assert.Equal(t, "2023.acl-long.412", paperID)
		return &core.PaperMetadata{PaperID: paperID, Title: "Paper"}, nil
	}

	paper, err := engine.Lookup(context.Background(), "2023.ACL-LONG.412")
	require.NoError(t, err)
	assert.Equal(t, "2023.acl-long.412", paper.PaperID)
}

func TestOpenIndexUnknownType(t *testing.T) {
	cfg := config.Default()
	cfg.Index.Type = "pinecone"
	_, err := openIndex(cfg)
	assert.Error(t, err)
}
