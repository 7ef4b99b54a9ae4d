package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoma-tools/aoma-mesh/pkg/cache"
	"github.com/aoma-tools/aoma-mesh/pkg/config"
	"github.com/aoma-tools/aoma-mesh/pkg/health"
	"github.com/aoma-tools/aoma-mesh/pkg/metrics"
	"github.com/aoma-tools/aoma-mesh/pkg/trace"
)

// systemDeps wires only the dependencies the system tools touch; retrieval
// tools are exercised through their own packages and the API tests.
func systemDeps() Deps {
	okProbe := health.ProbeFunc(func(ctx context.Context) error { return nil })
	return Deps{
		Env: &config.Environment{
			Env:     "test",
			Version: "2.0.0-test",
		},
		Health:  health.NewMonitor(okProbe, okProbe, nil, time.Minute),
		Metrics: metrics.New("2.0.0-test"),
	}
}

func TestRegistryContainsCanonicalTools(t *testing.T) {
	registry := NewRegistryWithTools(systemDeps())

	names := registry.Names()
	for _, want := range []string{
		ToolQueryKnowledge,
		ToolSearchJira,
		ToolJiraCount,
		ToolSearchCommits,
		ToolSearchCode,
		ToolAnalyzeContext,
		ToolSystemHealth,
		ToolServerCapabilities,
		ToolSwarmAnalyze,
	} {
		assert.Contains(t, names, want)
	}

	for _, info := range registry.List() {
		assert.NotEmpty(t, info.Description, info.Name)
		assert.True(t, json.Valid(info.InputSchema), info.Name)
	}
}

func TestServerCapabilitiesDeterministic(t *testing.T) {
	deps := systemDeps()
	registry := NewRegistryWithTools(deps)
	dispatcher := NewDispatcher(registry, deps.Metrics, cache.New(), trace.New(deps.Env), time.Second)

	first, toolErr := dispatcher.Call(context.Background(), ToolServerCapabilities, nil)
	require.Nil(t, toolErr)
	second, toolErr := dispatcher.Call(context.Background(), ToolServerCapabilities, nil)
	require.Nil(t, toolErr)

	assert.Equal(t, first.Content[0].Text, second.Content[0].Text)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(first.Content[0].Text), &payload))
	assert.Equal(t, "aoma-mesh", payload["name"])
	assert.Equal(t, "2.0.0-test", payload["version"])
	assert.Len(t, payload["tools"], 9)
}

func TestServerCapabilitiesExamples(t *testing.T) {
	deps := systemDeps()
	registry := NewRegistryWithTools(deps)
	dispatcher := NewDispatcher(registry, deps.Metrics, cache.New(), trace.New(deps.Env), time.Second)

	result, toolErr := dispatcher.Call(context.Background(), ToolServerCapabilities,
		map[string]any{"includeExamples": true})
	require.Nil(t, toolErr)

	var payload struct {
		Tools []map[string]any `json:"tools"`
	}
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &payload))

	examples := 0
	for _, tool := range payload.Tools {
		if _, ok := tool["example"]; ok {
			examples++
		}
	}
	assert.Greater(t, examples, 0)
}

func TestSystemHealthTool(t *testing.T) {
	deps := systemDeps()
	registry := NewRegistryWithTools(deps)
	dispatcher := NewDispatcher(registry, deps.Metrics, cache.New(), trace.New(deps.Env), time.Second)

	result, toolErr := dispatcher.Call(context.Background(), ToolSystemHealth,
		map[string]any{"includeDiagnostics": true})
	require.Nil(t, toolErr)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &payload))
	assert.Equal(t, "healthy", payload["status"])
	assert.Contains(t, payload, "services")
	assert.Contains(t, payload, "metrics")
	assert.Contains(t, payload, "diagnostics")
}

func TestSystemHealthMetricsOptOut(t *testing.T) {
	deps := systemDeps()
	registry := NewRegistryWithTools(deps)
	dispatcher := NewDispatcher(registry, deps.Metrics, cache.New(), trace.New(deps.Env), time.Second)

	result, toolErr := dispatcher.Call(context.Background(), ToolSystemHealth,
		map[string]any{"includeMetrics": false})
	require.Nil(t, toolErr)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &payload))
	assert.NotContains(t, payload, "metrics")
	assert.NotContains(t, payload, "diagnostics")
}

func TestWhitespaceOnlyQueryRejected(t *testing.T) {
	deps := systemDeps()
	registry := NewRegistryWithTools(deps)
	dispatcher := NewDispatcher(registry, deps.Metrics, cache.New(), trace.New(deps.Env), time.Second)

	for _, tool := range []string{ToolQueryKnowledge, ToolSearchJira, ToolSearchCommits, ToolSearchCode} {
		t.Run(tool, func(t *testing.T) {
			_, toolErr := dispatcher.Call(context.Background(), tool, map[string]any{"query": "   "})
			require.NotNil(t, toolErr)
			assert.Equal(t, CodeInvalidParams, toolErr.Code)
			require.NotEmpty(t, toolErr.Details)
			assert.Equal(t, "/query", toolErr.Details[0].Path)
		})
	}
}

func TestSwarmSchemaRejectsUnknownAgent(t *testing.T) {
	deps := systemDeps()
	registry := NewRegistryWithTools(deps)
	dispatcher := NewDispatcher(registry, deps.Metrics, cache.New(), trace.New(deps.Env), time.Second)

	_, toolErr := dispatcher.Call(context.Background(), ToolSwarmAnalyze, map[string]any{
		"query":        "q",
		"primaryAgent": "mystery_agent",
	})
	require.NotNil(t, toolErr)
	assert.Equal(t, CodeInvalidParams, toolErr.Code)
}
