package core

import (
	"encoding/binary"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// ID is a stable numeric identifier for index points.
// It is derived from content so the same paper always maps to the same point.
type ID uint64

// IDFromContent generates a deterministic ID from text using BLAKE2b hashing.
// Identical content always produces the same ID.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// PaperMetadata describes one research paper stored in the vector index.
// PaperID is the identity key; two papers are the same iff their PaperID
// values are equal.
type PaperMetadata struct {
	PaperID  string   `json:"paper_id"`
	Title    string   `json:"title"`
	Abstract string   `json:"abstract,omitempty"`
	Year     string   `json:"year,omitempty"`
	Authors  []string `json:"authors,omitempty"`
	PDFURL   string   `json:"pdf_url,omitempty"`

	// Payload-only fields populated at ingestion time. They exist so the
	// index can evaluate filter predicates; they are not part of the
	// identity of a paper.
	Bibkey   string   `json:"bibkey,omitempty"`
	Language string   `json:"language,omitempty"`
	Awards   []string `json:"awards,omitempty"`
}

// YearInt parses the Year field. Returns false when the field is empty
// or not a number.
func (p *PaperMetadata) YearInt() (int, bool) {
	y, err := strconv.Atoi(strings.TrimSpace(p.Year))
	if err != nil {
		return 0, false
	}
	return y, true
}

// ScoredPoint is a single nearest-neighbor hit returned by an index backend.
// Similarity is the raw cosine similarity reported by the backend.
type ScoredPoint struct {
	Paper      *PaperMetadata
	Similarity float32
}

// SearchResult is a fused, ranked result handed back to the caller.
// After fusion the score is not necessarily in [0, 1].
type SearchResult struct {
	Paper *PaperMetadata `json:"paper"`
	Score float32        `json:"score"`
}

// YearFilter constrains the publication year. Exact takes precedence over
// the (MinYear, MaxYear) range when both forms are present.
type YearFilter struct {
	Exact   *int `json:"exact,omitempty"`
	MinYear *int `json:"min_year,omitempty"`
	MaxYear *int `json:"max_year,omitempty"`
}

// Bounds resolves the filter into an inclusive [min, max] range.
func (y *YearFilter) Bounds() (int, int) {
	if y.Exact != nil {
		return *y.Exact, *y.Exact
	}
	min, max := 0, maxFilterYear
	if y.MinYear != nil {
		min = *y.MinYear
	}
	if y.MaxYear != nil {
		max = *y.MaxYear
	}
	return min, max
}

// maxFilterYear is an open upper bound for half-open year ranges.
const maxFilterYear = 9999

// SearchFilters holds the structured constraints extracted from a query.
// Every field is independently optional; a zero value means "no constraint".
// HasAwards only constrains when true.
type SearchFilters struct {
	Year          *YearFilter `json:"year,omitempty"`
	Bibkey        string      `json:"bibkey,omitempty"`
	TitleKeywords []string    `json:"title_keywords,omitempty"`
	Language      string      `json:"language,omitempty"`
	Authors       []string    `json:"authors,omitempty"`
	HasAwards     bool        `json:"has_awards,omitempty"`
	Awards        []string    `json:"awards,omitempty"`
}

// IsEmpty reports whether no constraint is set.
func (f *SearchFilters) IsEmpty() bool {
	if f == nil {
		return true
	}
	return f.Year == nil &&
		f.Bibkey == "" &&
		len(f.TitleKeywords) == 0 &&
		f.Language == "" &&
		len(f.Authors) == 0 &&
		!f.HasAwards &&
		len(f.Awards) == 0
}

// ParsedQuery is the outcome of the filter-parsing stage.
type ParsedQuery struct {
	// Filters extracted from the query, nil when none were found.
	Filters *SearchFilters
	// SemanticQuery is the residual free-text intent after filter words
	// are stripped. Empty when the query was purely filter-like.
	SemanticQuery string
	// OriginalQuery is the raw user text.
	OriginalQuery string
	// IsRelevant is false when the query is out of scope for paper search.
	IsRelevant bool
	// IrrelevantResponse is the explanatory message for out-of-scope queries.
	IrrelevantResponse string
}

// QueryMode tags how a query was interpreted.
type QueryMode string

const (
	// QueryModeNaturalLanguage is a free-text query.
	QueryModeNaturalLanguage QueryMode = "natural_language"
	// QueryModeDocumentID is a query that names a specific paper.
	QueryModeDocumentID QueryMode = "document_id"
)

// QueryInterpretation is the outcome of the query-interpretation stage.
// For document-id queries, ProxyPaper carries the resolved paper whose
// title and abstract become the effective query text.
type QueryInterpretation struct {
	Mode          QueryMode
	SemanticQuery string
	PaperID       string
	ProxyPaper    *PaperMetadata
}

// DefaultTopK is the result count used when a request does not specify one.
const DefaultTopK = 5

// SearchRequest is the single operation exposed upward.
type SearchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}
