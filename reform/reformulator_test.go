package reform

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/anthology/ai/mock"
	"github.com/poiesic/anthology/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReformulate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns distinct sub-queries", func(t *testing.T) {
		completer := mock.NewMockCompleter(`{"queries": [
			"low-resource machine translation",
			"translation for under-resourced languages",
			"MT with scarce parallel data"
		]}`)
		r, err := NewReformulator(completer)
		require.NoError(t, err)

		queries, err := r.Reformulate(ctx, "low-resource translation")
		require.NoError(t, err)
		assert.Len(t, queries, 3)
		assert.Equal(t, "low-resource machine translation", queries[0])
	})

	t.Run("case-insensitive dedupe and cap", func(t *testing.T) {
		completer := mock.NewMockCompleter(`{"queries": [
			"Neural Parsing", "neural parsing", " ", "dependency parsing",
			"constituency parsing", "graph parsing"
		]}`)
		r, err := NewReformulator(completer)
		require.NoError(t, err)

		queries, err := r.Reformulate(ctx, "parsing")
		require.NoError(t, err)
		assert.Equal(t, []string{"Neural Parsing", "dependency parsing", "constituency parsing"}, queries)
	})

	t.Run("empty model output falls back to input", func(t *testing.T) {
		completer := mock.NewMockCompleter(`{"queries": []}`)
		r, err := NewReformulator(completer)
		require.NoError(t, err)

		queries, err := r.Reformulate(ctx, "semantic role labeling")
		require.NoError(t, err)
		assert.Equal(t, []string{"semantic role labeling"}, queries)
	})

	t.Run("model failure retries once then falls back", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		completer.CompleteFunc = func(ctx context.Context, system, user string) (string, error) {
			return "", errors.New("upstream unavailable")
		}
		r, err := NewReformulator(completer)
		require.NoError(t, err)

		queries, err := r.Reformulate(ctx, "semantic role labeling")
		require.NoError(t, err)
		assert.Equal(t, []string{"semantic role labeling"}, queries)
		assert.Equal(t, 2, completer.CompleteCallCount())
	})

	t.Run("cancelled context is a hard error", func(t *testing.T) {
		completer := mock.NewMockCompleter()
		completer.CompleteFunc = func(ctx context.Context, system, user string) (string, error) {
			return "", ctx.Err()
		}
		r, err := NewReformulator(completer)
		require.NoError(t, err)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		_, err = r.Reformulate(cancelled, "semantic role labeling")
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("custom count", func(t *testing.T) {
		completer := mock.NewMockCompleter(`{"queries": ["a", "b", "c", "d", "e"]}`)
		r, err := NewReformulator(completer, WithCount(5))
		require.NoError(t, err)

		queries, err := r.Reformulate(ctx, "x")
		require.NoError(t, err)
		assert.Len(t, queries, 5)
	})

	t.Run("invalid count rejected", func(t *testing.T) {
		_, err := NewReformulator(mock.NewMockCompleter(), WithCount(0))
		assert.Error(t, err)
	})
}

func TestReformulateFromPaper(t *testing.T) {
	completer := mock.NewMockCompleter()
	var captured string
	completer.CompleteFunc = func(ctx context.Context, system, user string) (string, error) {
		captured = user
		return `{"queries": ["pivot-based translation", "monolingual data for MT"]}`, nil
	}

	r, err := NewReformulator(completer)
	require.NoError(t, err)

	paper := &core.PaperMetadata{
		PaperID:  "2023.acl-long.412",
		Title:    "Low-Resource Machine Translation with Monolingual Pivots",
		Abstract: "We study translation for languages with little parallel data.",
	}
	queries, err := r.ReformulateFromPaper(context.Background(), paper)
	require.NoError(t, err)
	assert.Len(t, queries, 2)
	assert.Contains(t, captured, paper.Title)
	assert.Contains(t, captured, paper.Abstract)
}
