package badger

import (
	"strings"

	"github.com/poiesic/anthology/core"
)

// matchesFilters evaluates the filter predicates against one payload.
// Semantics mirror the Qdrant translation: year range over the numeric
// year, substring match for title keywords and authors, exact match for
// language and bibkey, existence for has_awards, set membership for awards.
func matchesFilters(paper *core.PaperMetadata, f *core.SearchFilters) bool {
	if f.IsEmpty() {
		return true
	}

	if f.Year != nil {
		y, ok := paper.YearInt()
		if !ok {
			return false
		}
		min, max := f.Year.Bounds()
		if y < min || y > max {
			return false
		}
	}

	if f.Bibkey != "" && paper.Bibkey != f.Bibkey {
		return false
	}

	for _, keyword := range f.TitleKeywords {
		if !containsFold(paper.Title, keyword) {
			return false
		}
	}

	if f.Language != "" && !strings.EqualFold(paper.Language, f.Language) {
		return false
	}

	for _, author := range f.Authors {
		if !anyContainsFold(paper.Authors, author) {
			return false
		}
	}

	if f.HasAwards {
		if len(paper.Awards) == 0 {
			return false
		}
	} else if len(f.Awards) > 0 {
		matched := false
		for _, want := range f.Awards {
			if anyEqualFold(paper.Awards, want) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func anyContainsFold(values []string, needle string) bool {
	for _, v := range values {
		if containsFold(v, needle) {
			return true
		}
	}
	return false
}

func anyEqualFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
