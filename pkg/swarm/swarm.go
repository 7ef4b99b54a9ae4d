// Package swarm drives specialist sub-agents through a capped handoff state
// machine and correlates their result sets term-by-term before synthesis.
package swarm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aoma-tools/aoma-mesh/pkg/retrieval"
)

// Agent identifies one specialist in the swarm.
type Agent string

const (
	AgentCodeSpecialist       Agent = "code_specialist"
	AgentJiraAnalyst          Agent = "jira_analyst"
	AgentAOMAResearcher       Agent = "aoma_researcher"
	AgentSynthesisCoordinator Agent = "synthesis_coordinator"
)

// KnownAgent reports whether a is a member of the swarm.
func KnownAgent(a Agent) bool {
	switch a {
	case AgentCodeSpecialist, AgentJiraAnalyst, AgentAOMAResearcher, AgentSynthesisCoordinator:
		return true
	}
	return false
}

// Depth controls how much correlation work the analysis performs.
type Depth string

const (
	DepthSurface       Depth = "surface"
	DepthDeep          Depth = "deep"
	DepthComprehensive Depth = "comprehensive"
)

const (
	DefaultMaxHops = 5
	MinHops        = 1
	MaxHops        = 10
)

// Services is what the agents execute against. The production implementation
// wraps the retrieval services and the assistant client.
type Services interface {
	SearchCodeFiles(ctx context.Context, query string) ([]retrieval.CodeFile, error)
	SearchJiraTickets(ctx context.Context, query string) ([]retrieval.JiraTicket, error)
	QueryKnowledge(ctx context.Context, query string) (*retrieval.KnowledgeAnswer, error)
	AnalyzeContext(ctx context.Context, prompt string) (string, error)
}

// Controller owns one swarm run at a time; a Controller is cheap and safe to
// construct per call.
type Controller struct {
	services Services
}

// NewController wires the swarm against its service surface.
func NewController(services Services) *Controller {
	return &Controller{services: services}
}

// Analysis is one cross-vector analysis request.
type Analysis struct {
	Query           string
	InitialAgent    Agent  // defaults to synthesis_coordinator
	MaxHops         int    // defaults to DefaultMaxHops, clamped to [MinHops,MaxHops]
	Depth           Depth  // defaults to deep
	ContextStrategy string // isolated, shared, or selective_handoff; recorded in the result
}

// CrossVectorResults accumulates per-source agent output across hops.
type CrossVectorResults struct {
	Code []retrieval.CodeFile      `json:"code,omitempty"`
	Jira []retrieval.JiraTicket    `json:"jira,omitempty"`
	AOMA *retrieval.KnowledgeAnswer `json:"aoma,omitempty"`
}

func (r *CrossVectorResults) empty() bool {
	return len(r.Code) == 0 && len(r.Jira) == 0 && r.AOMA == nil
}

// Result is the outcome of one swarm run.
type Result struct {
	Query              string             `json:"query"`
	ContextStrategy    string             `json:"contextStrategy,omitempty"`
	Hops               int                `json:"hops"`
	HandoffHistory     []Agent            `json:"handoffHistory"`
	CrossVectorResults CrossVectorResults `json:"crossVectorResults"`
	Correlations       []Correlation      `json:"correlations,omitempty"`
	Synthesis          string             `json:"synthesis,omitempty"`
	HopLimitReached    bool               `json:"hopLimitReached,omitempty"`
}

// command is one agent's verdict: either a handoff target or a terminal stop.
type command struct {
	next     Agent
	terminal bool
}

func handoff(to Agent) command { return command{next: to} }
func terminal() command        { return command{terminal: true} }

// Analyze runs the state machine until an agent terminates or the hop guard
// trips. Transitions are strictly sequential and deterministic for identical
// inputs.
func (c *Controller) Analyze(ctx context.Context, a Analysis) (*Result, error) {
	if a.InitialAgent == "" {
		a.InitialAgent = AgentSynthesisCoordinator
	}
	if !KnownAgent(a.InitialAgent) {
		return nil, fmt.Errorf("unknown agent %q", a.InitialAgent)
	}
	if a.MaxHops == 0 {
		a.MaxHops = DefaultMaxHops
	}
	if a.MaxHops < MinHops {
		a.MaxHops = MinHops
	}
	if a.MaxHops > MaxHops {
		a.MaxHops = MaxHops
	}
	if a.Depth == "" {
		a.Depth = DepthDeep
	}

	if a.ContextStrategy == "" {
		a.ContextStrategy = "shared"
	}

	result := &Result{
		Query:           a.Query,
		ContextStrategy: a.ContextStrategy,
		HandoffHistory:  []Agent{a.InitialAgent},
	}

	current := a.InitialAgent
	for {
		cmd, err := c.step(ctx, current, a, result)
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", current, err)
		}
		if cmd.terminal {
			return result, nil
		}

		if result.Hops >= a.MaxHops {
			slog.Warn("Swarm hop limit reached",
				"query", a.Query, "max_hops", a.MaxHops, "current", current)
			result.HopLimitReached = true
			return result, nil
		}
		result.Hops++
		result.HandoffHistory = append(result.HandoffHistory, cmd.next)
		current = cmd.next
	}
}

// step executes one agent and returns its handoff command.
func (c *Controller) step(ctx context.Context, agent Agent, a Analysis, result *Result) (command, error) {
	switch agent {
	case AgentCodeSpecialist:
		files, err := c.services.SearchCodeFiles(ctx, a.Query)
		if err != nil {
			return command{}, err
		}
		result.CrossVectorResults.Code = files

		lowered := strings.ToLower(a.Query)
		if strings.Contains(lowered, "issue") || strings.Contains(lowered, "problem") {
			return handoff(AgentJiraAnalyst), nil
		}
		return terminal(), nil

	case AgentJiraAnalyst:
		tickets, err := c.services.SearchJiraTickets(ctx, a.Query)
		if err != nil {
			return command{}, err
		}
		result.CrossVectorResults.Jira = tickets

		if len(tickets) >= 1 && result.CrossVectorResults.AOMA == nil {
			return handoff(AgentAOMAResearcher), nil
		}
		return terminal(), nil

	case AgentAOMAResearcher:
		answer, err := c.services.QueryKnowledge(ctx, a.Query)
		if err != nil {
			return command{}, err
		}
		result.CrossVectorResults.AOMA = answer
		return handoff(AgentSynthesisCoordinator), nil

	case AgentSynthesisCoordinator:
		// A coordinator with nothing to synthesize starts the pipeline.
		if result.CrossVectorResults.empty() {
			return handoff(AgentCodeSpecialist), nil
		}

		if a.Depth != DepthSurface {
			result.Correlations = Correlate(result.CrossVectorResults)
		}

		synthesis, err := c.services.AnalyzeContext(ctx, renderCoordinatorPrompt(a, result))
		if err != nil {
			return command{}, err
		}
		result.Synthesis = synthesis
		return terminal(), nil

	default:
		return command{}, fmt.Errorf("unknown agent %q", agent)
	}
}

// renderCoordinatorPrompt folds the handoff history, per-source results, and
// correlations into one system-integration prompt for the assistant.
func renderCoordinatorPrompt(a Analysis, result *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Cross-vector analysis for: %s\n\n", a.Query)

	b.WriteString("Handoff history: ")
	for i, agent := range result.HandoffHistory {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(string(agent))
	}
	b.WriteString("\n\n")

	if n := len(result.CrossVectorResults.Code); n > 0 {
		fmt.Fprintf(&b, "Code results (%d):\n", n)
		for _, f := range result.CrossVectorResults.Code {
			fmt.Fprintf(&b, "- %s (%s, similarity %.2f): %s\n", f.Path, f.Repository, f.Similarity, f.Summary)
		}
		b.WriteString("\n")
	}
	if n := len(result.CrossVectorResults.Jira); n > 0 {
		fmt.Fprintf(&b, "Jira results (%d):\n", n)
		for _, tk := range result.CrossVectorResults.Jira {
			fmt.Fprintf(&b, "- %s [%s/%s]: %s\n", tk.Key, tk.Status, tk.Priority, tk.Summary)
		}
		b.WriteString("\n")
	}
	if result.CrossVectorResults.AOMA != nil {
		fmt.Fprintf(&b, "Knowledge base answer:\n%s\n\n", result.CrossVectorResults.AOMA.Answer)
	}

	if len(result.Correlations) > 0 {
		b.WriteString("Computed correlations:\n")
		for _, corr := range result.Correlations {
			fmt.Fprintf(&b, "- %s <-> %s (%s, %.2f): %s\n",
				corr.SourceA, corr.SourceB, corr.Relationship, corr.Similarity,
				strings.Join(corr.KeyTerms, ", "))
		}
		b.WriteString("\n")
	}

	b.WriteString("Integrate these findings into a single engineering assessment: root cause candidates, affected components, and recommended next steps.")
	return b.String()
}
