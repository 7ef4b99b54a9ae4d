package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// VectorHit is one result from server-side vector-store semantic search.
type VectorHit struct {
	ID       string         `json:"id"`
	Filename string         `json:"filename"`
	Score    float64        `json:"score"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// vectorSearchResponse mirrors the upstream /vector_stores/{id}/search shape.
type vectorSearchResponse struct {
	Data []struct {
		FileID     string         `json:"file_id"`
		Filename   string         `json:"filename"`
		Score      float64        `json:"score"`
		Attributes map[string]any `json:"attributes"`
		Content    []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"data"`
}

type vectorSearchRequest struct {
	Query         string `json:"query"`
	MaxNumResults int    `json:"max_num_results,omitempty"`
}

// VectorStoreSearch runs the store's server-side semantic search.
// The SDK has no binding for this endpoint, so the call goes through the raw
// client with the assistants beta header.
func (c *Client) VectorStoreSearch(ctx context.Context, storeID, query string, maxResults int) ([]VectorHit, error) {
	body, err := json.Marshal(vectorSearchRequest{Query: query, MaxNumResults: maxResults})
	if err != nil {
		return nil, err
	}

	var hits []VectorHit
	err = c.withRetry(ctx, "vector_stores.search", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			fmt.Sprintf("%s/vector_stores/%s/search", c.baseURL, storeID),
			bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("OpenAI-Beta", "assistants=v2")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
		if err != nil {
			return err
		}
		if resp.StatusCode >= 400 {
			return &vectorStoreError{Status: resp.StatusCode, Body: truncate(string(raw), 300)}
		}

		var parsed vectorSearchResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("decode vector search response: %w", err)
		}

		hits = hits[:0]
		for _, item := range parsed.Data {
			var content string
			for _, part := range item.Content {
				if part.Type == "text" {
					content += part.Text
				}
			}
			hits = append(hits, VectorHit{
				ID:       item.FileID,
				Filename: item.Filename,
				Score:    item.Score,
				Content:  content,
				Metadata: item.Attributes,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hits, nil
}

// ProbeVectorStore fetches the store's metadata as a liveness check. No retry:
// probes report the upstream's current state.
func (c *Client) ProbeVectorStore(ctx context.Context, storeID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/vector_stores/%s", c.baseURL, storeID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("OpenAI-Beta", "assistants=v2")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &vectorStoreError{Status: resp.StatusCode, Body: http.StatusText(resp.StatusCode)}
	}
	return nil
}

// vectorStoreError carries the upstream HTTP status for retry classification
// and error reporting.
type vectorStoreError struct {
	Status int
	Body   string
}

func (e *vectorStoreError) Error() string {
	return fmt.Sprintf("vector store search: HTTP %d: %s", e.Status, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
