package qdrant

import "github.com/poiesic/anthology/core"

// buildFilter translates SearchFilters into Qdrant's native filter model
// (as a JSON-shaped map for the REST API). Returns nil when no constraint
// is set.
//
// Year constraints become range predicates over the numeric year_num
// payload field written at upsert time. Author and title keyword
// constraints use full-text match so partial names hit; language and
// bibkey are exact matches; has_awards is an existence predicate expressed
// as must_not is_empty.
func buildFilter(f *core.SearchFilters) map[string]any {
	if f.IsEmpty() {
		return nil
	}

	var must []map[string]any
	var mustNot []map[string]any

	if f.Year != nil {
		min, max := f.Year.Bounds()
		must = append(must, map[string]any{
			"key":   yearNumField,
			"range": map[string]any{"gte": min, "lte": max},
		})
	}

	if f.Bibkey != "" {
		must = append(must, map[string]any{
			"key":   "bibkey",
			"match": map[string]any{"value": f.Bibkey},
		})
	}

	for _, keyword := range f.TitleKeywords {
		must = append(must, map[string]any{
			"key":   "title",
			"match": map[string]any{"text": keyword},
		})
	}

	if f.Language != "" {
		must = append(must, map[string]any{
			"key":   "language",
			"match": map[string]any{"value": f.Language},
		})
	}

	for _, author := range f.Authors {
		must = append(must, map[string]any{
			"key":   "authors",
			"match": map[string]any{"text": author},
		})
	}

	if f.HasAwards {
		mustNot = append(mustNot, map[string]any{
			"is_empty": map[string]any{"key": "awards"},
		})
	} else if len(f.Awards) > 0 {
		must = append(must, map[string]any{
			"key":   "awards",
			"match": map[string]any{"any": f.Awards},
		})
	}

	if len(must) == 0 && len(mustNot) == 0 {
		return nil
	}

	filter := map[string]any{}
	if len(must) > 0 {
		filter["must"] = must
	}
	if len(mustNot) > 0 {
		filter["must_not"] = mustNot
	}
	return filter
}

// paperIDFilter matches exactly one point by its paper_id payload field.
func paperIDFilter(paperID string) map[string]any {
	return map[string]any{
		"must": []map[string]any{
			{
				"key":   "paper_id",
				"match": map[string]any{"value": paperID},
			},
		},
	}
}
