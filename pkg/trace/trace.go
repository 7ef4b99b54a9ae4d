// Package trace exports tool-call runs to a LangSmith-compatible endpoint.
// Export is fire-and-forget: a failed post is logged and dropped, never
// surfaced to the tool call.
package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aoma-tools/aoma-mesh/pkg/config"
)

const postTimeout = 10 * time.Second

// Tracer posts completed runs asynchronously. The zero-value (or a Tracer
// built from an unconfigured environment) is a no-op.
type Tracer struct {
	http     *http.Client
	endpoint string
	apiKey   string
	project  string

	wg sync.WaitGroup
}

// New builds a tracer from the environment. Returns a no-op tracer when
// tracing is not configured.
func New(env *config.Environment) *Tracer {
	if !env.TracingEnabled() {
		return &Tracer{}
	}
	return &Tracer{
		http:     &http.Client{Timeout: postTimeout},
		endpoint: env.TracingEndpoint,
		apiKey:   env.TracingKey,
		project:  env.TracingProject,
	}
}

// Enabled reports whether spans are exported anywhere.
func (t *Tracer) Enabled() bool { return t.http != nil }

// Span is one traced tool call.
type Span struct {
	tracer  *Tracer
	id      string
	name    string
	inputs  map[string]any
	started time.Time
}

// StartSpan opens a span for one tool call. Inputs should already be redacted
// by the caller.
func (t *Tracer) StartSpan(name string, inputs map[string]any) *Span {
	return &Span{
		tracer:  t,
		id:      uuid.NewString(),
		name:    name,
		inputs:  inputs,
		started: time.Now().UTC(),
	}
}

// End closes the span and schedules its export. err may be nil.
func (s *Span) End(outputs map[string]any, err error) {
	t := s.tracer
	if t == nil || !t.Enabled() {
		return
	}

	run := map[string]any{
		"id":           s.id,
		"name":         s.name,
		"run_type":     "tool",
		"start_time":   s.started.Format(time.RFC3339Nano),
		"end_time":     time.Now().UTC().Format(time.RFC3339Nano),
		"inputs":       s.inputs,
		"outputs":      outputs,
		"session_name": t.project,
	}
	if err != nil {
		run["error"] = err.Error()
	}

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if postErr := t.post(run); postErr != nil {
			slog.Warn("Trace export failed", "span", s.name, "error", postErr)
		}
	}()
}

// Flush waits for in-flight exports; used during shutdown.
func (t *Tracer) Flush() { t.wg.Wait() }

func (t *Tracer) post(run map[string]any) error {
	body, err := json.Marshal(run)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), postTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint+"/runs", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", t.apiKey)

	resp, err := t.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("trace endpoint returned %d", resp.StatusCode)
	}
	return nil
}
