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


package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/poiesic/anthology/core"
	"github.com/poiesic/anthology/index"
)

// yearNumField is the numeric payload field used for year range filters.
// The year payload field itself stays a string to match the paper metadata.
const yearNumField = "year_num"

// Client is a minimal REST client for one Qdrant collection.
// It assumes cosine distance and creates the collection if missing.
type Client struct {
	url        string
	apiKey     string
	collection string
	http       *http.Client
	logger     *slog.Logger
}

// Config holds connection details for a Qdrant collection.
type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

var _ index.Index = (*Client)(nil)

// New creates a Qdrant index client. The collection is not touched until
// the first call; use EnsureCollection to create it for seeding.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		http:       &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "qdrant-index"),
	}
}

// EnsureCollection creates the collection with the given vector dimension
// if it does not already exist.
func (c *Client) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return index.ErrDimensionMismatch
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	// Qdrant answers 200 for an existing collection with the same schema.
	return c.putJSON(ctx, fmt.Sprintf("%s/collections/%s", c.url, c.collection), body, nil)
}

// Search runs one nearest-neighbor query, optionally constrained by filters.
func (c *Client) Search(ctx context.Context, vector []float32, k int, filters *core.SearchFilters) ([]core.ScoredPoint, error) {
	if k <= 0 {
		k = core.DefaultTopK
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	if f := buildFilter(filters); f != nil {
		req["filter"] = f
	}

	var resp struct {
		Result []struct {
			Score   float32         `json:"score"`
			Payload json.RawMessage `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.url, c.collection)
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}

	points := make([]core.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		paper, err := decodePayload(r.Payload)
		if err != nil {
			c.logger.Warn("skipping point with undecodable payload", "err", err)
			continue
		}
		points = append(points, core.ScoredPoint{Paper: paper, Similarity: clampScore(r.Score)})
	}
	return points, nil
}

// Get looks up a single paper by its identifier via a filtered scroll.
// Requires a keyword payload index on paper_id for large collections.
func (c *Client) Get(ctx context.Context, paperID string) (*core.PaperMetadata, error) {
	papers, err := c.scroll(ctx, paperIDFilter(paperID), 1)
	if err != nil {
		return nil, err
	}
	if len(papers) == 0 {
		return nil, index.ErrNotFound
	}
	return papers[0], nil
}

// Scroll returns up to limit payloads matching filters, without ranking.
func (c *Client) Scroll(ctx context.Context, filters *core.SearchFilters, limit int) ([]*core.PaperMetadata, error) {
	return c.scroll(ctx, buildFilter(filters), limit)
}

func (c *Client) scroll(ctx context.Context, filter map[string]any, limit int) ([]*core.PaperMetadata, error) {
	if limit <= 0 {
		limit = core.DefaultTopK
	}
	req := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	if filter != nil {
		req["filter"] = filter
	}

	var resp struct {
		Result struct {
			Points []struct {
				Payload json.RawMessage `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/scroll", c.url, c.collection)
	if err := c.postJSON(ctx, url, req, &resp); err != nil {
		return nil, err
	}

	papers := make([]*core.PaperMetadata, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		paper, err := decodePayload(p.Payload)
		if err != nil {
			c.logger.Warn("skipping point with undecodable payload", "err", err)
			continue
		}
		papers = append(papers, paper)
	}
	return papers, nil
}

// Upsert writes papers and their vectors as points keyed by a
// content-derived numeric ID so re-seeding the same paper replaces it.
func (c *Client) Upsert(ctx context.Context, papers []*core.PaperMetadata, vectors [][]float32) error {
	if len(papers) != len(vectors) {
		return index.ErrLengthMismatch
	}

	points := make([]map[string]any, len(papers))
	for i, paper := range papers {
		if err := paper.Validate(); err != nil {
			return err
		}
		points[i] = map[string]any{
			"id":      uint64(core.IDFromContent(paper.PaperID)),
			"vector":  vectors[i],
			"payload": encodePayload(paper),
		}
	}
	body := map[string]any{"points": points}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.url, c.collection)
	return c.putJSON(ctx, url, body, nil)
}

// Close releases the HTTP client's idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// encodePayload flattens a paper into the collection's payload shape,
// adding the numeric year field used by range filters.
func encodePayload(paper *core.PaperMetadata) map[string]any {
	payload := map[string]any{
		"paper_id": paper.PaperID,
		"title":    paper.Title,
	}
	if paper.Abstract != "" {
		payload["abstract"] = paper.Abstract
	}
	if paper.Year != "" {
		payload["year"] = paper.Year
		if y, ok := paper.YearInt(); ok {
			payload[yearNumField] = y
		}
	}
	if len(paper.Authors) > 0 {
		payload["authors"] = paper.Authors
	}
	if paper.PDFURL != "" {
		payload["pdf_url"] = paper.PDFURL
	}
	if paper.Bibkey != "" {
		payload["bibkey"] = paper.Bibkey
	}
	if paper.Language != "" {
		payload["language"] = paper.Language
	}
	if len(paper.Awards) > 0 {
		payload["awards"] = paper.Awards
	}
	return payload
}

func decodePayload(raw json.RawMessage) (*core.PaperMetadata, error) {
	var paper core.PaperMetadata
	if err := json.Unmarshal(raw, &paper); err != nil {
		return nil, err
	}
	if err := paper.Validate(); err != nil {
		return nil, err
	}
	return &paper, nil
}

// clampScore bounds a cosine similarity into [0, 1].
func clampScore(score float32) float32 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (c *Client) putJSON(ctx context.Context, url string, body, out any) error {
	return c.doJSON(ctx, http.MethodPut, url, body, out)
}

func (c *Client) postJSON(ctx context.Context, url string, body, out any) error {
	return c.doJSON(ctx, http.MethodPost, url, body, out)
}

func (c *Client) doJSON(ctx context.Context, method, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
