// Package reform expands a single query into diverse sub-queries with a
// language-model call, improving retrieval recall by searching several
// phrasings of the same information need.
package reform
