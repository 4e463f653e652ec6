// Package retrieval runs the multi-query search fan-out and fuses the
// per-sub-query candidate lists into one ranked result list using
// reciprocal rank fusion blended with raw cosine similarity.
package retrieval
