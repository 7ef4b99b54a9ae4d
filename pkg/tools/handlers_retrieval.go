package tools

import (
	"context"

	"github.com/aoma-tools/aoma-mesh/pkg/orchestrator"
	"github.com/aoma-tools/aoma-mesh/pkg/retrieval"
)

// queryKnowledge routes focused/rapid queries down the fast vector-store path
// and comprehensive queries through the multi-source ensemble.
func (s *suite) queryKnowledge(ctx context.Context, args map[string]any) (any, error) {
	strategy := retrieval.Strategy(argString(args, "strategy"))
	if !strategy.Valid() {
		strategy = retrieval.StrategyFocused
	}

	if strategy == retrieval.StrategyComprehensive {
		result, err := s.deps.Ensemble.Run(ctx, orchestrator.Request{
			Query:    argString(args, "query"),
			Strategy: strategy,
			Context:  argString(args, "context"),
		})
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"answer":          result.Answer,
			"sourceDocuments": result.SourceDocuments,
			"stats":           result.Stats,
			"strategy":        strategy,
		}, nil
	}

	answer, err := s.deps.Knowledge.Query(ctx, retrieval.KnowledgeQuery{
		Query:      argString(args, "query"),
		Strategy:   strategy,
		Context:    argString(args, "context"),
		MaxResults: argInt(args, "maxResults"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"answer":   answer.Answer,
		"sources":  answer.Sources,
		"strategy": strategy,
	}, nil
}

func (s *suite) searchJira(ctx context.Context, args map[string]any) (any, error) {
	tickets, err := s.deps.Jira.Search(ctx, retrieval.JiraSearch{
		Query:      argString(args, "query"),
		ProjectKey: argString(args, "projectKey"),
		Status:     argStrings(args, "status"),
		Priority:   argStrings(args, "priority"),
		MaxResults: argInt(args, "maxResults"),
		Threshold:  argFloat(args, "threshold"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"tickets":      tickets,
		"totalResults": len(tickets),
	}, nil
}

func (s *suite) jiraCount(ctx context.Context, args map[string]any) (any, error) {
	return s.deps.Jira.Count(ctx, retrieval.JiraCountFilter{
		ProjectKey: argString(args, "projectKey"),
		Status:     argStrings(args, "status"),
		Priority:   argStrings(args, "priority"),
	})
}

func (s *suite) searchCommits(ctx context.Context, args map[string]any) (any, error) {
	commits, err := s.deps.Git.SearchCommits(ctx, retrieval.CommitSearch{
		Query:       argString(args, "query"),
		Repository:  argStrings(args, "repository"),
		Author:      argStrings(args, "author"),
		DateFrom:    argString(args, "dateFrom"),
		DateTo:      argString(args, "dateTo"),
		FilePattern: argString(args, "filePattern"),
		MaxResults:  argInt(args, "maxResults"),
		Threshold:   argFloat(args, "threshold"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"commits":      commits,
		"totalResults": len(commits),
	}, nil
}

func (s *suite) searchCode(ctx context.Context, args map[string]any) (any, error) {
	files, err := s.deps.Git.SearchCodeFiles(ctx, retrieval.CodeSearch{
		Query:         argString(args, "query"),
		Repository:    argStrings(args, "repository"),
		Language:      argStrings(args, "language"),
		FileExtension: argStrings(args, "fileExtension"),
		MaxResults:    argInt(args, "maxResults"),
		Threshold:     argFloat(args, "threshold"),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"files":        files,
		"totalResults": len(files),
	}, nil
}
