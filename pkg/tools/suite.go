// Package tools defines the canonical tool set, its argument schemas, and the
// dispatcher that validates, meters, and executes every call regardless of
// transport.
package tools

import (
	"time"

	"github.com/aoma-tools/aoma-mesh/pkg/config"
	"github.com/aoma-tools/aoma-mesh/pkg/health"
	"github.com/aoma-tools/aoma-mesh/pkg/llm"
	"github.com/aoma-tools/aoma-mesh/pkg/metrics"
	"github.com/aoma-tools/aoma-mesh/pkg/orchestrator"
	"github.com/aoma-tools/aoma-mesh/pkg/retrieval"
	"github.com/aoma-tools/aoma-mesh/pkg/swarm"
)

// Tool names.
const (
	ToolQueryKnowledge     = "query_aoma_knowledge"
	ToolSearchJira         = "search_jira_tickets"
	ToolJiraCount          = "get_jira_ticket_count"
	ToolSearchCommits      = "search_git_commits"
	ToolSearchCode         = "search_code_files"
	ToolAnalyzeContext     = "analyze_development_context"
	ToolSystemHealth       = "get_system_health"
	ToolServerCapabilities = "get_server_capabilities"
	ToolSwarmAnalyze       = "swarm_analyze_cross_vector"
)

// Deps is everything the tool handlers execute against.
type Deps struct {
	Env       *config.Environment
	Knowledge *retrieval.KnowledgeService
	Jira      *retrieval.JiraService
	Git       *retrieval.GitService
	Ensemble  *orchestrator.Orchestrator
	Swarm     *swarm.Controller
	LLM       *llm.Client
	Health    *health.Monitor
	Metrics   *metrics.Collector
}

// suite binds the handlers to their dependencies.
type suite struct {
	deps     Deps
	registry *Registry // set by NewRegistryWithTools; read by serverCapabilities
}

// NewRegistryWithTools builds the full canonical registry.
func NewRegistryWithTools(deps Deps) *Registry {
	r := NewRegistry()
	s := &suite{deps: deps, registry: r}

	r.MustRegister(Descriptor{
		Name:        ToolQueryKnowledge,
		Description: "Query the AOMA knowledge base (1000+ documents) about asset management operations, export workflows, and integrations.",
		InputSchema: queryKnowledgeSchema,
		Handler:     s.queryKnowledge,
		Cacheable:   true,
		CacheTTL:    5 * time.Minute,
	})
	r.MustRegister(Descriptor{
		Name:        ToolSearchJira,
		Description: "Semantic search over the Jira ticket corpus with project, status, and priority filters.",
		InputSchema: searchJiraSchema,
		Handler:     s.searchJira,
	})
	r.MustRegister(Descriptor{
		Name:        ToolJiraCount,
		Description: "Exact Jira ticket counts, with a per-project breakdown when no project filter is given.",
		InputSchema: jiraCountSchema,
		Handler:     s.jiraCount,
		Cacheable:   true,
		CacheTTL:    time.Minute,
	})
	r.MustRegister(Descriptor{
		Name:        ToolSearchCommits,
		Description: "Semantic search over Git commit history with repository, author, and date filters.",
		InputSchema: searchCommitsSchema,
		Handler:     s.searchCommits,
	})
	r.MustRegister(Descriptor{
		Name:        ToolSearchCode,
		Description: "Semantic search over indexed source files with repository, language, and extension filters.",
		InputSchema: searchCodeSchema,
		Handler:     s.searchCode,
	})
	r.MustRegister(Descriptor{
		Name:        ToolAnalyzeContext,
		Description: "Analyze a development task in its system context via the hosted assistant.",
		InputSchema: analyzeContextSchema,
		Handler:     s.analyzeContext,
	})
	r.MustRegister(Descriptor{
		Name:        ToolSystemHealth,
		Description: "Current upstream health, optionally with request metrics and runtime diagnostics.",
		InputSchema: systemHealthSchema,
		Handler:     s.systemHealth,
	})
	r.MustRegister(Descriptor{
		Name:        ToolServerCapabilities,
		Description: "Enumerate the server's tools, resources, and endpoints.",
		InputSchema: capabilitiesSchema,
		Handler:     s.serverCapabilities,
		Cacheable:   true,
		CacheTTL:    10 * time.Minute,
	})
	r.MustRegister(Descriptor{
		Name:        ToolSwarmAnalyze,
		Description: "Run the cross-vector agent swarm: code, Jira, and knowledge specialists with correlation analysis.",
		InputSchema: swarmAnalyzeSchema,
		Handler:     s.swarmAnalyze,
	})

	return r
}
