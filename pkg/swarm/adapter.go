package swarm

import (
	"context"

	"github.com/aoma-tools/aoma-mesh/pkg/llm"
	"github.com/aoma-tools/aoma-mesh/pkg/retrieval"
)

// ServiceAdapter implements Services over the production retrieval pipeline
// and the assistant client.
type ServiceAdapter struct {
	git           *retrieval.GitService
	jira          *retrieval.JiraService
	knowledge     *retrieval.KnowledgeService
	llm           *llm.Client
	assistantID   string
	vectorStoreID string
}

// NewServiceAdapter wires the swarm's service surface.
func NewServiceAdapter(git *retrieval.GitService, jira *retrieval.JiraService, knowledge *retrieval.KnowledgeService, client *llm.Client, assistantID, vectorStoreID string) *ServiceAdapter {
	return &ServiceAdapter{
		git:           git,
		jira:          jira,
		knowledge:     knowledge,
		llm:           client,
		assistantID:   assistantID,
		vectorStoreID: vectorStoreID,
	}
}

func (s *ServiceAdapter) SearchCodeFiles(ctx context.Context, query string) ([]retrieval.CodeFile, error) {
	return s.git.SearchCodeFiles(ctx, retrieval.CodeSearch{Query: query})
}

func (s *ServiceAdapter) SearchJiraTickets(ctx context.Context, query string) ([]retrieval.JiraTicket, error) {
	return s.jira.Search(ctx, retrieval.JiraSearch{Query: query})
}

func (s *ServiceAdapter) QueryKnowledge(ctx context.Context, query string) (*retrieval.KnowledgeAnswer, error) {
	return s.knowledge.Query(ctx, retrieval.KnowledgeQuery{
		Query:    query,
		Strategy: retrieval.StrategyComprehensive,
	})
}

func (s *ServiceAdapter) AnalyzeContext(ctx context.Context, prompt string) (string, error) {
	input := llm.AssistantRunInput{
		AssistantID: s.assistantID,
		Message:     prompt,
	}
	if s.vectorStoreID != "" {
		input.VectorStoreIDs = []string{s.vectorStoreID}
	}
	return s.llm.AssistantRun(ctx, input)
}
