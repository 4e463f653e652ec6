package qdrant

import (
	"testing"

	"github.com/poiesic/anthology/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intp(v int) *int { return &v }

func TestBuildFilter(t *testing.T) {
	t.Run("nil filters", func(t *testing.T) {
		assert.Nil(t, buildFilter(nil))
	})

	t.Run("empty filters", func(t *testing.T) {
		assert.Nil(t, buildFilter(&core.SearchFilters{}))
	})

	t.Run("year range becomes range predicate", func(t *testing.T) {
		f := buildFilter(&core.SearchFilters{
			Year: &core.YearFilter{MinYear: intp(2022)},
		})
		require.NotNil(t, f)
		must := f["must"].([]map[string]any)
		require.Len(t, must, 1)
		assert.Equal(t, yearNumField, must[0]["key"])
		rng := must[0]["range"].(map[string]any)
		assert.Equal(t, 2022, rng["gte"])
	})

	t.Run("exact year collapses range", func(t *testing.T) {
		f := buildFilter(&core.SearchFilters{
			Year: &core.YearFilter{Exact: intp(2019), MinYear: intp(2000)},
		})
		must := f["must"].([]map[string]any)
		rng := must[0]["range"].(map[string]any)
		assert.Equal(t, 2019, rng["gte"])
		assert.Equal(t, 2019, rng["lte"])
	})

	t.Run("authors use text match", func(t *testing.T) {
		f := buildFilter(&core.SearchFilters{Authors: []string{"Church", "Manning"}})
		must := f["must"].([]map[string]any)
		require.Len(t, must, 2)
		assert.Equal(t, "authors", must[0]["key"])
		match := must[0]["match"].(map[string]any)
		assert.Equal(t, "Church", match["text"])
	})

	t.Run("has_awards becomes existence predicate", func(t *testing.T) {
		f := buildFilter(&core.SearchFilters{HasAwards: true})
		require.NotNil(t, f)
		assert.NotContains(t, f, "must")
		mustNot := f["must_not"].([]map[string]any)
		require.Len(t, mustNot, 1)
		isEmpty := mustNot[0]["is_empty"].(map[string]any)
		assert.Equal(t, "awards", isEmpty["key"])
	})

	t.Run("specific awards use set membership", func(t *testing.T) {
		f := buildFilter(&core.SearchFilters{Awards: []string{"Best Paper"}})
		must := f["must"].([]map[string]any)
		match := must[0]["match"].(map[string]any)
		assert.Equal(t, []string{"Best Paper"}, match["any"])
	})

	t.Run("combined filters accumulate conditions", func(t *testing.T) {
		f := buildFilter(&core.SearchFilters{
			Year:          &core.YearFilter{MinYear: intp(2020), MaxYear: intp(2023)},
			Language:      "eng",
			TitleKeywords: []string{"translation"},
		})
		must := f["must"].([]map[string]any)
		assert.Len(t, must, 3)
	})
}

func TestPaperIDFilter(t *testing.T) {
	f := paperIDFilter("2023.acl-long.412")
	must := f["must"].([]map[string]any)
	require.Len(t, must, 1)
	assert.Equal(t, "paper_id", must[0]["key"])
	match := must[0]["match"].(map[string]any)
	assert.Equal(t, "2023.acl-long.412", match["value"])
}

func TestEncodePayload(t *testing.T) {
	t.Run("numeric year field added", func(t *testing.T) {
		payload := encodePayload(&core.PaperMetadata{
			PaperID: "2022.acl-long.1",
			Title:   "A Paper",
			Year:    "2022",
		})
		assert.Equal(t, "2022", payload["year"])
		assert.Equal(t, 2022, payload[yearNumField])
	})

	t.Run("non-numeric year omits numeric field", func(t *testing.T) {
		payload := encodePayload(&core.PaperMetadata{
			PaperID: "W99-0512",
			Title:   "A Paper",
			Year:    "unknown",
		})
		assert.Equal(t, "unknown", payload["year"])
		assert.NotContains(t, payload, yearNumField)
	})

	t.Run("empty optionals omitted", func(t *testing.T) {
		payload := encodePayload(&core.PaperMetadata{PaperID: "x", Title: "t"})
		assert.NotContains(t, payload, "abstract")
		assert.NotContains(t, payload, "awards")
		assert.NotContains(t, payload, "language")
	})
}
