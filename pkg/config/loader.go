package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/aoma-tools/aoma-mesh/pkg/version"
)

// Load reads dotenv files, validates the environment schema, and returns the
// immutable Environment.
//
// Precedence, first wins: process env > <configDir>/.env > .env.local found by
// walking upward from the working directory to the workspace root (marked by
// go.mod). godotenv.Load never overrides variables that are already set, which
// gives exactly this ordering.
func Load(configDir string) (*Environment, error) {
	loadDotenv(filepath.Join(configDir, ".env"))
	if local := findUpward(".env.local"); local != "" {
		loadDotenv(local)
	}

	env, report := fromProcessEnv()
	if len(report.Issues) > 0 {
		return nil, report
	}

	env.Version = version.BuildTag(getEnv("MCP_SERVER_VERSION", DefaultBaseVersion))

	slog.Info("Environment loaded",
		"version", env.Version,
		"environment", env.Env,
		"http_port", env.HTTPPort,
		"timeout_ms", env.TimeoutMS,
		"vector_store_attached", env.VectorStoreID != "")
	return env, nil
}

func loadDotenv(path string) {
	if err := godotenv.Load(path); err != nil {
		slog.Debug("No dotenv file", "path", path)
		return
	}
	slog.Info("Loaded dotenv file", "path", path)
}

// findUpward walks from the working directory toward the filesystem root and
// returns the first directory containing both a workspace marker (go.mod) and
// the requested file.
func findUpward(name string) string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// fromProcessEnv builds the Environment from process variables, collecting
// every schema violation into the report.
func fromProcessEnv() (*Environment, *Report) {
	report := &Report{}
	env := &Environment{
		OpenAIKey:          strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", DefaultOpenAIBaseURL),
		AssistantID:        strings.TrimSpace(os.Getenv("AOMA_ASSISTANT_ID")),
		VectorStoreID:      strings.TrimSpace(os.Getenv("OPENAI_VECTOR_STORE_ID")),
		SupabaseURL:        strings.TrimSpace(os.Getenv("SUPABASE_URL")),
		SupabaseServiceKey: strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_ROLE_KEY")),
		SupabaseAnonKey:    strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
		JiraBaseURL:        strings.TrimRight(strings.TrimSpace(os.Getenv("JIRA_BASE_URL")), "/"),
		TracingEndpoint:    strings.TrimSpace(os.Getenv("LANGSMITH_ENDPOINT")),
		TracingKey:         strings.TrimSpace(os.Getenv("LANGSMITH_API_KEY")),
		TracingProject:     getEnv("LANGSMITH_PROJECT", version.AppName),
		LogLevel:           getEnv("LOG_LEVEL", DefaultLogLevel),
		Env:                getEnv("ENVIRONMENT", DefaultEnvironment),
	}

	// Required credentials
	if env.OpenAIKey == "" {
		report.add("OPENAI_API_KEY", "required")
	} else if len(env.OpenAIKey) < MinKeyLength {
		report.add("OPENAI_API_KEY", fmt.Sprintf("must be at least %d characters", MinKeyLength))
	}

	if env.AssistantID == "" {
		report.add("AOMA_ASSISTANT_ID", "required")
	} else if !strings.HasPrefix(env.AssistantID, "asst_") {
		report.add("AOMA_ASSISTANT_ID", `must start with "asst_"`)
	}

	if env.VectorStoreID != "" && !strings.HasPrefix(env.VectorStoreID, "vs_") {
		report.add("OPENAI_VECTOR_STORE_ID", `must start with "vs_"`)
	}

	if env.SupabaseURL == "" {
		report.add("SUPABASE_URL", "required")
	} else if u, err := url.Parse(env.SupabaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		report.add("SUPABASE_URL", "must be a valid http(s) URL")
	} else {
		env.SupabaseURL = strings.TrimRight(env.SupabaseURL, "/")
	}

	if env.SupabaseServiceKey == "" {
		report.add("SUPABASE_SERVICE_ROLE_KEY", "required")
	} else if len(env.SupabaseServiceKey) < MinKeyLength {
		report.add("SUPABASE_SERVICE_ROLE_KEY", fmt.Sprintf("must be at least %d characters", MinKeyLength))
	}

	if env.SupabaseAnonKey == "" {
		report.add("SUPABASE_ANON_KEY", "required")
	} else if len(env.SupabaseAnonKey) < MinKeyLength {
		report.add("SUPABASE_ANON_KEY", fmt.Sprintf("must be at least %d characters", MinKeyLength))
	}

	// Bounded numerics
	env.HTTPPort = parseBoundedInt(report, "HTTP_PORT", DefaultHTTPPort, 1, 65535)
	env.MaxRetries = parseBoundedInt(report, "MAX_RETRIES", DefaultMaxRetries, MinRetries, MaxRetries)
	env.TimeoutMS = parseBoundedInt(report, "TIMEOUT_MS", DefaultTimeoutMS, MinTimeoutMS, MaxTimeoutMS)
	env.HealthIntervalSecs = parseBoundedInt(report, "HEALTH_CHECK_INTERVAL", DefaultHealthIntervalSecs, MinHealthSeconds, 86400)

	// Enumerations
	switch env.LogLevel {
	case "error", "warn", "info", "debug":
	default:
		report.add("LOG_LEVEL", "must be one of error, warn, info, debug")
	}
	switch env.Env {
	case "development", "production":
	default:
		report.add("ENVIRONMENT", "must be development or production")
	}

	if origins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS")); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				env.CORSAllowedOrigins = append(env.CORSAllowedOrigins, o)
			}
		}
	}
	if env.IsProduction() && len(env.CORSAllowedOrigins) == 0 {
		report.add("CORS_ALLOWED_ORIGINS", "required in production (comma-separated origin allowlist)")
	}

	if raw := strings.TrimSpace(os.Getenv("MCP_STDIO")); raw != "" {
		enabled, err := strconv.ParseBool(raw)
		if err != nil {
			report.add("MCP_STDIO", "must be a boolean")
		} else {
			env.EnableStdioOverride = &enabled
		}
	}

	return env, report
}

func parseBoundedInt(report *Report, key string, fallback, min, max int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		report.add(key, "must be an integer")
		return fallback
	}
	if v < min || v > max {
		report.add(key, fmt.Sprintf("must be in [%d, %d]", min, max))
		return fallback
	}
	return v
}
