package mcpserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoma-tools/aoma-mesh/pkg/config"
	"github.com/aoma-tools/aoma-mesh/pkg/health"
	"github.com/aoma-tools/aoma-mesh/pkg/metrics"
	"github.com/aoma-tools/aoma-mesh/pkg/tools"
)

func canonicalRegistry() *tools.Registry {
	okProbe := health.ProbeFunc(func(ctx context.Context) error { return nil })
	return tools.NewRegistryWithTools(tools.Deps{
		Env:     &config.Environment{Env: "test", Version: "2.0.0-test"},
		Health:  health.NewMonitor(okProbe, okProbe, nil, time.Minute),
		Metrics: metrics.New("2.0.0-test"),
	})
}

func TestRenderManualCoversEveryTool(t *testing.T) {
	registry := canonicalRegistry()
	manual := renderManual(registry, "2.0.0-test")

	assert.True(t, strings.HasPrefix(manual, "# AOMA Mesh Tool Manual"))
	for _, name := range registry.Names() {
		assert.Contains(t, manual, "## "+name)
	}
}

func TestRenderManualParameterTables(t *testing.T) {
	manual := renderManual(canonicalRegistry(), "2.0.0-test")

	// Required parameters are marked and enums are spelled out.
	assert.Contains(t, manual, "| query | string | yes |")
	assert.Contains(t, manual, "enum(comprehensive, focused, rapid)")
	assert.Contains(t, manual, "| includeExamples | boolean | no |")
}

func TestSchemaParamsOrdering(t *testing.T) {
	params := schemaParams([]byte(`{
		"required": ["zeta"],
		"properties": {
			"alpha": {"type": "string"},
			"zeta": {"type": "string"},
			"beta": {"type": "integer"}
		}
	}`))
	require.Len(t, params, 3)
	assert.Equal(t, "zeta", params[0].name)
	assert.True(t, params[0].required)
	assert.Equal(t, "alpha", params[1].name)
	assert.Equal(t, "beta", params[2].name)
}
