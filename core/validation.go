package core

import "strings"

// Validate checks the request and normalizes defaults in place.
// An empty query is a client error; a missing TopK becomes DefaultTopK.
func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	if r.TopK < 0 {
		return ErrInvalidTopK
	}
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}
	return nil
}

// Validate checks internal consistency of a year filter.
func (y *YearFilter) Validate() error {
	if y == nil {
		return nil
	}
	if y.Exact != nil {
		return nil
	}
	if y.MinYear != nil && y.MaxYear != nil && *y.MinYear > *y.MaxYear {
		return ErrInvalidYearRange
	}
	return nil
}

// Validate checks that a paper carries its identity key.
func (p *PaperMetadata) Validate() error {
	if strings.TrimSpace(p.PaperID) == "" {
		return ErrEmptyPaperID
	}
	return nil
}
