// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "time"

// Timestamps records when each pipeline stage was reached. Later stages
// stay nil until reached, so an early short-circuit leaves only Start and
// FilterParsed set.
type Timestamps struct {
	Start             *time.Time `json:"start,omitempty"`
	FilterParsed      *time.Time `json:"filterParsed,omitempty"`
	QueriesReformed   *time.Time `json:"queriesReformed,omitempty"`
	SearchCompleted   *time.Time `json:"searchCompleted,omitempty"`
	ResponseGenerated *time.Time `json:"responseGenerated,omitempty"`
}

func now() *time.Time {
	t := time.Now().UTC()
	return &t
}

// MarkStart records entry into the pipeline.
func (t *Timestamps) MarkStart() { t.Start = now() }

// MarkFilterParsed records completion of filter parsing.
func (t *Timestamps) MarkFilterParsed() { t.FilterParsed = now() }

// MarkQueriesReformed records completion of query reformulation.
func (t *Timestamps) MarkQueriesReformed() { t.QueriesReformed = now() }

// MarkSearchCompleted records completion of retrieval and aggregation.
func (t *Timestamps) MarkSearchCompleted() { t.SearchCompleted = now() }

// MarkResponseGenerated records completion of the streamed narrative.
func (t *Timestamps) MarkResponseGenerated() { t.ResponseGenerated = now() }

// StreamEventType discriminates the events on a search stream.
type StreamEventType string

const (
	// StreamEventMetadata carries the StreamMetadata record. Emitted
	// exactly once, before any chunk.
	StreamEventMetadata StreamEventType = "metadata"
	// StreamEventChunk carries one narrative text fragment.
	StreamEventChunk StreamEventType = "chunk"
	// StreamEventDone terminates a successful stream.
	StreamEventDone StreamEventType = "done"
	// StreamEventError terminates the stream early with a message.
	StreamEventError StreamEventType = "error"
)

// StreamEvent is one element of the event stream returned by a search.
type StreamEvent struct {
	Type     StreamEventType `json:"type"`
	Chunk    string          `json:"chunk,omitempty"`
	Metadata *StreamMetadata `json:"metadata,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// StreamMetadata is the payload of the single metadata event. It describes
// everything the pipeline decided before the narrative starts streaming.
type StreamMetadata struct {
	Mode                QueryMode      `json:"mode"`
	OriginalQuery       string         `json:"original_query"`
	SemanticQuery       string         `json:"semantic_query,omitempty"`
	PaperID             string         `json:"paper_id,omitempty"`
	SourcePaper         *PaperMetadata `json:"source_paper,omitempty"`
	ParsedFilters       *SearchFilters `json:"parsed_filters,omitempty"`
	ReformulatedQueries []string       `json:"reformulated_queries"`
	Results             []SearchResult `json:"results"`
	Timestamps          Timestamps     `json:"timestamps"`
}
