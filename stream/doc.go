// Package stream sequences the search pipeline stages and delivers the
// outcome as an ordered event stream: one metadata event describing
// everything the pipeline decided, narrative text chunks with inline
// citations into the result list, and a terminal done or error event.
package stream
