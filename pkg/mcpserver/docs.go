package mcpserver

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/aoma-tools/aoma-mesh/pkg/tools"
)

// renderManual generates the aoma://docs Markdown: one section per tool with
// its description and parameters pulled from the argument schema.
func renderManual(registry *tools.Registry, version string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# AOMA Mesh Tool Manual\n\nServer version: %s\n\n", version)

	for _, info := range registry.List() {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", info.Name, info.Description)

		params := schemaParams(info.InputSchema)
		if len(params) == 0 {
			b.WriteString("No parameters.\n\n")
			continue
		}

		b.WriteString("| Parameter | Type | Required | Description |\n")
		b.WriteString("|-----------|------|----------|-------------|\n")
		for _, p := range params {
			required := "no"
			if p.required {
				required = "yes"
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n", p.name, p.kind, required, p.description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

type paramDoc struct {
	name        string
	kind        string
	required    bool
	description string
}

func schemaParams(raw json.RawMessage) []paramDoc {
	var schema struct {
		Required   []string `json:"required"`
		Properties map[string]struct {
			Type        string   `json:"type"`
			Enum        []string `json:"enum"`
			Description string   `json:"description"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(raw, &schema); err != nil {
		return nil
	}

	required := map[string]bool{}
	for _, name := range schema.Required {
		required[name] = true
	}

	// Stable ordering: required first, then alphabetical.
	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if required[names[i]] != required[names[j]] {
			return required[names[i]]
		}
		return names[i] < names[j]
	})

	params := make([]paramDoc, 0, len(names))
	for _, name := range names {
		prop := schema.Properties[name]
		kind := prop.Type
		if len(prop.Enum) > 0 {
			kind = "enum(" + strings.Join(prop.Enum, ", ") + ")"
		}
		params = append(params, paramDoc{
			name:        name,
			kind:        kind,
			required:    required[name],
			description: prop.Description,
		})
	}
	return params
}
