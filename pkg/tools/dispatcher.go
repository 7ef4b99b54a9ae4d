package tools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/aoma-tools/aoma-mesh/pkg/cache"
	"github.com/aoma-tools/aoma-mesh/pkg/db"
	"github.com/aoma-tools/aoma-mesh/pkg/metrics"
	"github.com/aoma-tools/aoma-mesh/pkg/trace"
)

// Content is one block of a tool result envelope.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is the transport-neutral tool call envelope.
type Result struct {
	Content []Content `json:"content"`
}

// Dispatcher validates, times, caches, and executes tool calls. It owns the
// single metrics transition per accepted call.
type Dispatcher struct {
	registry *Registry
	metrics  *metrics.Collector
	cache    *cache.Cache
	tracer   *trace.Tracer
	timeout  time.Duration
}

// NewDispatcher wires the dispatch pipeline.
func NewDispatcher(registry *Registry, collector *metrics.Collector, store *cache.Cache, tracer *trace.Tracer, timeout time.Duration) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		metrics:  collector,
		cache:    store,
		tracer:   tracer,
		timeout:  timeout,
	}
}

// Registry exposes the tool set for transports and capability listings.
func (d *Dispatcher) Registry() *Registry { return d.registry }

// Call executes one tool call end to end. The returned error, when non-nil,
// is always a typed *Error.
func (d *Dispatcher) Call(ctx context.Context, name string, args map[string]any) (*Result, *Error) {
	descriptor, ok := d.registry.Get(name)
	if !ok {
		return nil, NewMethodNotFound(name)
	}

	started := time.Now()
	if details := descriptor.Validate(args); details != nil {
		d.metrics.RecordFailure(time.Since(started))
		return nil, NewInvalidParams(details)
	}

	redacted := Redact(args, descriptor.SensitiveArgKeys)
	slog.Info("Tool call", "tool", name, "args", redacted)
	span := d.tracer.StartSpan(name, redacted)

	var cacheKey string
	if descriptor.Cacheable {
		cacheKey = cache.Key(name, args)
		if cached, hit := d.cache.Get(cacheKey); hit {
			if result, ok := cached.(*Result); ok {
				d.metrics.RecordCacheHit()
				d.metrics.RecordSuccess(time.Since(started))
				span.End(map[string]any{"cache": "hit"}, nil)
				return result, nil
			}
		}
		d.metrics.RecordCacheMiss()
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	payload, err := descriptor.Handler(callCtx, args)
	elapsed := time.Since(started)

	if err != nil {
		d.metrics.RecordFailure(elapsed)
		toolErr := classify(name, err)
		slog.Warn("Tool call failed",
			"tool", name, "duration_ms", elapsed.Milliseconds(), "code", toolErr.Code, "error", toolErr.Message)
		span.End(nil, toolErr)
		return nil, toolErr
	}

	result, marshalErr := envelope(payload)
	if marshalErr != nil {
		d.metrics.RecordFailure(elapsed)
		span.End(nil, marshalErr)
		return nil, NewInternal("failed to encode tool result")
	}

	d.metrics.RecordSuccess(elapsed)
	if descriptor.Cacheable && cacheKey != "" {
		d.cache.Put(cacheKey, result, descriptor.CacheTTL)
	}

	slog.Debug("Tool call complete", "tool", name, "duration_ms", elapsed.Milliseconds())
	span.End(map[string]any{"duration_ms": elapsed.Milliseconds()}, nil)
	return result, nil
}

func envelope(payload any) (*Result, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Result{Content: []Content{{Type: "text", Text: string(raw)}}}, nil
}

// classify maps handler errors onto the tool error taxonomy.
func classify(name string, err error) *Error {
	if toolErr, ok := AsToolError(err); ok {
		return toolErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeout(name)
	}

	var dbErr *db.UpstreamError
	if errors.As(err, &dbErr) {
		return NewUpstream(err.Error())
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return NewUpstream(err.Error())
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return NewUpstream(err.Error())
	}

	return NewInternal(err.Error())
}
