package retrieval

import "errors"

// ErrAllSearchesFailed indicates that every sub-query search failed and
// no candidates reached aggregation.
var ErrAllSearchesFailed = errors.New("all sub-query searches failed")
