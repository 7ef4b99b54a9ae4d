// Package config loads and validates the server environment.
//
// The Environment is constructed once at startup and read-only thereafter.
// Validation is fail-fast: any missing or invalid key aborts startup with a
// report listing every offending key, not just the first.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Defaults applied when the corresponding variable is unset.
const (
	DefaultHTTPPort            = 3333
	DefaultMaxRetries          = 3
	DefaultTimeoutMS           = 120000
	DefaultLogLevel            = "info"
	DefaultHealthIntervalSecs  = 300
	DefaultBaseVersion         = "2.0.0"
	DefaultEnvironment         = "development"
	DefaultOpenAIBaseURL       = "https://api.openai.com/v1"
	DefaultEmbeddingDimensions = 1536
)

// Bounds enforced by validation.
const (
	MinKeyLength     = 20
	MinTimeoutMS     = 5000
	MaxTimeoutMS     = 300000
	MinRetries       = 1
	MaxRetries       = 10
	MinHealthSeconds = 10
)

// Environment holds the validated server configuration.
// Immutable after Load; handlers receive it by shared read-only reference.
type Environment struct {
	// LLM upstream
	OpenAIKey     string
	OpenAIBaseURL string
	AssistantID   string
	VectorStoreID string // optional, prefix "vs_"

	// Database upstream (PostgREST-style REST API)
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseAnonKey    string

	// Optional integrations
	JiraBaseURL     string
	TracingEndpoint string
	TracingKey      string
	TracingProject  string

	// Server behavior
	HTTPPort            int
	MaxRetries          int
	TimeoutMS           int
	LogLevel            string
	HealthIntervalSecs  int
	Env                 string // "development" or "production"
	CORSAllowedOrigins  []string
	EnableStdioOverride *bool // MCP_STDIO=true/false; nil = default by Env

	// Version is the unique per-process build tag (base + timestamp).
	Version string
}

// Timeout returns the overall per-call deadline.
func (e *Environment) Timeout() time.Duration {
	return time.Duration(e.TimeoutMS) * time.Millisecond
}

// HealthInterval returns the background probe cadence.
func (e *Environment) HealthInterval() time.Duration {
	return time.Duration(e.HealthIntervalSecs) * time.Second
}

// IsProduction reports whether the server runs with production policies
// (CORS allowlist, stdio transport disabled by default).
func (e *Environment) IsProduction() bool {
	return e.Env == "production"
}

// StdioEnabled reports whether the stdio MCP transport should be connected.
func (e *Environment) StdioEnabled() bool {
	if e.EnableStdioOverride != nil {
		return *e.EnableStdioOverride
	}
	return !e.IsProduction()
}

// TracingEnabled reports whether trace export is configured.
func (e *Environment) TracingEnabled() bool {
	return e.TracingEndpoint != "" && e.TracingKey != ""
}

// SlogLevel maps the configured log level onto slog's scale.
func (e *Environment) SlogLevel() slog.Level {
	switch e.LogLevel {
	case "error":
		return slog.LevelError
	case "warn":
		return slog.LevelWarn
	case "debug":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

// Public returns the non-secret configuration subset served as a resource.
// Keys and URLs that could identify credentials are omitted or truncated.
func (e *Environment) Public() map[string]any {
	return map[string]any{
		"version":               e.Version,
		"environment":           e.Env,
		"http_port":             e.HTTPPort,
		"timeout_ms":            e.TimeoutMS,
		"max_retries":           e.MaxRetries,
		"log_level":             e.LogLevel,
		"health_interval_secs":  e.HealthIntervalSecs,
		"assistant_configured":  e.AssistantID != "",
		"vector_store_attached": e.VectorStoreID != "",
		"jira_base_url":         e.JiraBaseURL,
		"tracing_enabled":       e.TracingEnabled(),
	}
}

// Issue describes a single missing or invalid environment variable.
type Issue struct {
	Key    string
	Reason string
}

// Report aggregates all validation issues into one error so operators see the
// full diff instead of fixing keys one at a time.
type Report struct {
	Issues []Issue
}

func (r *Report) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "environment validation failed (%d issue(s)):", len(r.Issues))
	for _, issue := range r.Issues {
		fmt.Fprintf(&b, "\n  - %s: %s", issue.Key, issue.Reason)
	}
	return b.String()
}

func (r *Report) add(key, reason string) {
	r.Issues = append(r.Issues, Issue{Key: key, Reason: reason})
}
