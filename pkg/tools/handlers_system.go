package tools

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/aoma-tools/aoma-mesh/pkg/llm"
	"github.com/aoma-tools/aoma-mesh/pkg/swarm"
)

func (s *suite) analyzeContext(ctx context.Context, args map[string]any) (any, error) {
	task := argString(args, "currentTask")
	systemArea := argString(args, "systemArea")
	urgency := argString(args, "urgency")

	var b strings.Builder
	fmt.Fprintf(&b, "Development task analysis request.\n\nTask: %s\n", task)
	if systemArea != "" {
		fmt.Fprintf(&b, "System area: %s\n", systemArea)
	}
	if urgency != "" {
		fmt.Fprintf(&b, "Urgency: %s\n", urgency)
	}
	if code := argString(args, "codeContext"); code != "" {
		fmt.Fprintf(&b, "\nCode context:\n%s\n", code)
	}
	b.WriteString("\nProvide: likely root causes, affected AOMA components, relevant operational knowledge, and concrete next steps.")

	input := llm.AssistantRunInput{
		AssistantID: s.deps.Env.AssistantID,
		Message:     b.String(),
	}
	if urgency == "critical" {
		input.AdditionalInstructions = "This is a critical incident; prioritize immediate mitigation steps."
	}
	if s.deps.Env.VectorStoreID != "" {
		input.VectorStoreIDs = []string{s.deps.Env.VectorStoreID}
	}

	analysis, err := s.deps.LLM.AssistantRun(ctx, input)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{"analysis": analysis}
	if systemArea != "" {
		payload["systemArea"] = systemArea
	}
	if urgency != "" {
		payload["urgency"] = urgency
	}
	return payload, nil
}

func (s *suite) systemHealth(ctx context.Context, args map[string]any) (any, error) {
	status := s.deps.Health.Snapshot(ctx)

	payload := map[string]any{
		"status":    status.Status,
		"services":  status.Services,
		"timestamp": status.CheckedAt,
	}
	if argBoolDefault(args, "includeMetrics", true) {
		payload["metrics"] = s.deps.Metrics.Snapshot()
	}
	if argBool(args, "includeDiagnostics") {
		payload["diagnostics"] = map[string]any{
			"goVersion":  runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
			"config":     s.deps.Env.Public(),
		}
	}
	return payload, nil
}

// toolExamples feeds get_server_capabilities(includeExamples=true).
var toolExamples = map[string]map[string]any{
	ToolQueryKnowledge: {"query": "How do I troubleshoot a stuck asset export?", "strategy": "focused"},
	ToolSearchJira:     {"query": "authentication failures", "projectKey": "ITSM", "maxResults": 10},
	ToolJiraCount:      {"projectKey": "AOMA"},
	ToolSearchCommits:  {"query": "export retry logic", "maxResults": 5},
	ToolSearchCode:     {"query": "upload service error handling", "language": []string{"typescript"}},
	ToolAnalyzeContext: {"currentTask": "Debugging export timeouts", "systemArea": "backend", "urgency": "high"},
	ToolSwarmAnalyze:   {"query": "authentication service performance problem"},
}

func (s *suite) serverCapabilities(ctx context.Context, args map[string]any) (any, error) {
	toolList := make([]map[string]any, 0, len(s.registry.Names()))
	for _, info := range s.registry.List() {
		entry := map[string]any{
			"name":        info.Name,
			"description": info.Description,
		}
		if argBool(args, "includeExamples") {
			if example, ok := toolExamples[info.Name]; ok {
				entry["example"] = example
			}
		}
		toolList = append(toolList, entry)
	}

	return map[string]any{
		"name":        "aoma-mesh",
		"version":     s.deps.Env.Version,
		"description": "Enterprise knowledge retrieval server for the AOMA asset management ecosystem.",
		"tools":       toolList,
		"resources":   []string{"aoma://health", "aoma://metrics", "aoma://config", "aoma://docs"},
		"transports":  []string{"stdio", "http"},
	}, nil
}

func (s *suite) swarmAnalyze(ctx context.Context, args map[string]any) (any, error) {
	result, err := s.deps.Swarm.Analyze(ctx, swarm.Analysis{
		Query:           argString(args, "query"),
		InitialAgent:    swarm.Agent(argString(args, "primaryAgent")),
		MaxHops:         argInt(args, "maxAgentHops"),
		ContextStrategy: argString(args, "contextStrategy"),
	})
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"query":              result.Query,
		"contextStrategy":    result.ContextStrategy,
		"hops":               result.Hops,
		"handoffHistory":     result.HandoffHistory,
		"crossVectorResults": result.CrossVectorResults,
		"correlations":       result.Correlations,
		"synthesis":          result.Synthesis,
		"hopLimitReached":    result.HopLimitReached,
	}
	if argBool(args, "enableMemoryPersistence") {
		payload["memoryPersistence"] = true
	}
	return payload, nil
}
