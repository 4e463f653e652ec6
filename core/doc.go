// Package core defines the domain model shared across the retrieval
// pipeline: paper metadata, search filters, parsed queries, ranked results,
// and the stream event types exposed to callers.
//
// Every entity here is created per-request and discarded when the response
// completes; nothing in this package holds cross-request state.
package core
