// Package parse handles the front end of the query pipeline: extracting
// structured filters and a relevance verdict from raw query text, and
// resolving document-identifier queries to proxy papers.
package parse
