// Package db is the typed client for the Postgres-backed REST upstream.
//
// The database is an external managed service; it exposes stored procedures
// as POST /rest/v1/rpc/<name> and table reads as filtered GET /rest/v1/<table>
// in PostgREST query syntax. This client owns authentication headers, retry
// policy, and row decoding; it never interprets row contents.
package db

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/aoma-tools/aoma-mesh/pkg/config"
)

const (
	restPrefix   = "/rest/v1"
	probeTimeout = 5 * time.Second

	retryBaseDelay = 500 * time.Millisecond
)

// Row is one decoded result row.
type Row = map[string]any

// UpstreamError carries the REST status and upstream message for a failed call.
type UpstreamError struct {
	Status  int
	Message string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("database upstream: HTTP %d: %s", e.Status, e.Message)
}

// Client talks to the database REST API. Safe for concurrent use.
type Client struct {
	http       *http.Client
	baseURL    string
	serviceKey string
	maxRetries int
}

// NewClient builds a client from the validated environment.
func NewClient(env *config.Environment) *Client {
	return &Client{
		http: &http.Client{
			Timeout: env.Timeout(),
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
			},
		},
		baseURL:    strings.TrimRight(env.SupabaseURL, "/"),
		serviceKey: env.SupabaseServiceKey,
		maxRetries: env.MaxRetries,
	}
}

// RPC invokes a named stored procedure and decodes the returned rows.
func (c *Client) RPC(ctx context.Context, name string, params map[string]any) ([]Row, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}

	var rows []Row
	err = c.withRetry(ctx, "rpc:"+name, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+restPrefix+"/rpc/"+name, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		c.authorize(req)

		decoded, err := c.do(req)
		if err != nil {
			return err
		}
		rows = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// SelectQuery describes a filtered table read.
type SelectQuery struct {
	Table string
	// Eq are equality predicates: column=eq.value.
	Eq map[string]string
	// In are membership predicates: column=in.(a,b,c).
	In map[string][]string
	// OrIlike adds a single or=(col.ilike.*needle*,...) clause, used by the
	// text-search fallback.
	OrIlike struct {
		Columns []string
		Needle  string
	}
	Limit int
}

// Select performs a filtered table read in PostgREST query syntax.
func (c *Client) Select(ctx context.Context, q SelectQuery) ([]Row, error) {
	values := url.Values{}
	values.Set("select", "*")

	for _, col := range sortedKeys(q.Eq) {
		values.Set(col, "eq."+q.Eq[col])
	}
	for _, col := range sortedKeysSlice(q.In) {
		values.Set(col, "in.("+strings.Join(q.In[col], ",")+")")
	}
	if len(q.OrIlike.Columns) > 0 && q.OrIlike.Needle != "" {
		parts := make([]string, 0, len(q.OrIlike.Columns))
		for _, col := range q.OrIlike.Columns {
			parts = append(parts, fmt.Sprintf("%s.ilike.*%s*", col, q.OrIlike.Needle))
		}
		values.Set("or", "("+strings.Join(parts, ",")+")")
	}
	if q.Limit > 0 {
		values.Set("limit", fmt.Sprint(q.Limit))
	}

	var rows []Row
	err := c.withRetry(ctx, "select:"+q.Table, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.baseURL+restPrefix+"/"+q.Table+"?"+values.Encode(), nil)
		if err != nil {
			return err
		}
		c.authorize(req)

		decoded, err := c.do(req)
		if err != nil {
			return err
		}
		rows = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// Probe checks upstream reachability with a HEAD request on the REST root.
// Bounded to 5 seconds regardless of the configured call timeout.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+restPrefix+"/", nil)
	if err != nil {
		return err
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("database probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("database probe: HTTP %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
}

// do executes the request and decodes the JSON row array. Single-object
// responses (scalar-returning RPCs) are wrapped into a one-row slice.
func (c *Client) do(req *http.Request) ([]Row, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, &UpstreamError{Status: resp.StatusCode, Message: upstreamMessage(raw)}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	if trimmed[0] == '[' {
		var rows []Row
		if err := json.Unmarshal(trimmed, &rows); err != nil {
			return nil, fmt.Errorf("decode rows: %w", err)
		}
		return rows, nil
	}

	// Scalar-returning RPCs respond with a bare value or single object.
	var obj Row
	if err := json.Unmarshal(trimmed, &obj); err == nil {
		return []Row{obj}, nil
	}
	var scalar any
	if err := json.Unmarshal(trimmed, &scalar); err != nil {
		return nil, fmt.Errorf("decode scalar: %w", err)
	}
	return []Row{{"value": scalar}}, nil
}

func upstreamMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	msg := strings.TrimSpace(string(raw))
	if len(msg) > 300 {
		msg = msg[:300] + "..."
	}
	if msg == "" {
		msg = "no response body"
	}
	return msg
}

func retryable(err error) bool {
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream.Status >= 500 ||
			upstream.Status == http.StatusTooManyRequests ||
			upstream.Status == http.StatusRequestTimeout
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var decodeTarget *json.SyntaxError
	if errors.As(err, &decodeTarget) {
		return false
	}
	return true
}

func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) || attempt == c.maxRetries {
			return lastErr
		}

		delay := retryBaseDelay * time.Duration(1<<(attempt-1))
		delay += time.Duration(rand.Int63n(int64(delay)/2 + 1))
		slog.Warn("Database call failed, retrying",
			"op", op, "attempt", attempt, "delay", delay, "error", lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysSlice(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
