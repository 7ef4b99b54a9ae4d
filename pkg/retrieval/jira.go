package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aoma-tools/aoma-mesh/pkg/db"
	"github.com/aoma-tools/aoma-mesh/pkg/llm"
)

const (
	jiraTable             = "jira_tickets"
	fallbackSimilarity    = 0.5
	defaultJiraMaxResults = 15
	maxJiraResults        = 50
)

// JiraService searches tickets semantically with a text-search fallback.
type JiraService struct {
	db          *db.Client
	llm         *llm.Client
	jiraBaseURL string
}

// NewJiraService wires the Jira pipeline. jiraBaseURL may be empty; ticket
// URLs are then omitted.
func NewJiraService(database *db.Client, client *llm.Client, jiraBaseURL string) *JiraService {
	return &JiraService{db: database, llm: client, jiraBaseURL: jiraBaseURL}
}

// JiraSearch describes one ticket search.
type JiraSearch struct {
	Query      string
	ProjectKey string
	Status     []string
	Priority   []string
	MaxResults int
	Threshold  float64
}

func (q *JiraSearch) normalize() {
	if q.MaxResults <= 0 {
		q.MaxResults = defaultJiraMaxResults
	}
	if q.MaxResults > maxJiraResults {
		q.MaxResults = maxJiraResults
	}
	q.Threshold = clamp01(q.Threshold)
}

// Search runs the semantic RPC first and falls back to an ilike text search
// when the RPC fails for any reason. The fallback never inherits the RPC's
// error; only a failure of both paths surfaces.
func (s *JiraService) Search(ctx context.Context, q JiraSearch) ([]JiraTicket, error) {
	q.normalize()

	tickets, rpcErr := s.semanticSearch(ctx, q)
	if rpcErr == nil {
		return tickets, nil
	}

	slog.Warn("Jira semantic search failed, using text fallback",
		"query", q.Query, "error", rpcErr)

	tickets, fallbackErr := s.textSearch(ctx, q)
	if fallbackErr != nil {
		return nil, fmt.Errorf("jira search failed (semantic: %v): %w", rpcErr, fallbackErr)
	}
	return tickets, nil
}

func (s *JiraService) semanticSearch(ctx context.Context, q JiraSearch) ([]JiraTicket, error) {
	embedding, err := s.llm.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	filters := map[string]any{}
	if q.ProjectKey != "" {
		filters["projectKey"] = q.ProjectKey
	}
	if len(q.Status) > 0 {
		filters["status"] = q.Status
	}
	if len(q.Priority) > 0 {
		filters["priority"] = q.Priority
	}

	rows, err := s.db.RPC(ctx, "match_jira_tickets", map[string]any{
		"p_query_embedding":      embedding,
		"p_similarity_threshold": q.Threshold,
		"p_max_results":          q.MaxResults,
		"p_filters":              filters,
	})
	if err != nil {
		return nil, err
	}

	tickets := make([]JiraTicket, 0, len(rows))
	for _, row := range rows {
		tickets = append(tickets, s.ticketFromRow(row, clamp01(rowFloat(row, "similarity"))))
	}
	return tickets, nil
}

func (s *JiraService) textSearch(ctx context.Context, q JiraSearch) ([]JiraTicket, error) {
	query := db.SelectQuery{
		Table: jiraTable,
		Eq:    map[string]string{},
		In:    map[string][]string{},
		Limit: q.MaxResults,
	}
	if q.ProjectKey != "" {
		query.Eq["project_key"] = q.ProjectKey
	}
	if len(q.Status) > 0 {
		query.In["status"] = q.Status
	}
	if len(q.Priority) > 0 {
		query.In["priority"] = q.Priority
	}
	query.OrIlike.Columns = []string{"title", "external_id"}
	query.OrIlike.Needle = q.Query

	rows, err := s.db.Select(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("text fallback: %w", err)
	}

	tickets := make([]JiraTicket, 0, len(rows))
	for _, row := range rows {
		tickets = append(tickets, s.ticketFromRow(row, fallbackSimilarity))
	}
	return tickets, nil
}

// ticketFromRow tolerates both the RPC row shape and the raw table shape.
func (s *JiraService) ticketFromRow(row db.Row, similarity float64) JiraTicket {
	key := rowString(row, "external_id")
	if key == "" {
		key = rowString(row, "key")
	}
	summary := rowString(row, "title")
	if summary == "" {
		summary = rowString(row, "summary")
	}
	project := rowString(row, "project_key")
	if project == "" {
		project = rowString(row, "project")
	}

	ticket := JiraTicket{
		Key:        key,
		Summary:    summary,
		Status:     rowString(row, "status"),
		Priority:   rowString(row, "priority"),
		Project:    project,
		Similarity: similarity,
	}
	if s.jiraBaseURL != "" && key != "" {
		ticket.URL = s.jiraBaseURL + "/browse/" + key
	}
	return ticket
}

// JiraCountFilter scopes a ticket count.
type JiraCountFilter struct {
	ProjectKey string
	Status     []string
	Priority   []string
}

// ProjectCount is one entry of the per-project breakdown.
type ProjectCount struct {
	Project string `json:"project"`
	Count   int    `json:"count"`
}

// JiraCount is the result of a count query.
type JiraCount struct {
	TotalCount       int            `json:"totalCount"`
	ProjectBreakdown []ProjectCount `json:"projectBreakdown,omitempty"`
}

// Count returns exact ticket counts via RPC. When no project filter is
// supplied, a per-project breakdown is included.
func (s *JiraService) Count(ctx context.Context, filter JiraCountFilter) (*JiraCount, error) {
	filters := map[string]any{}
	if filter.ProjectKey != "" {
		filters["projectKey"] = filter.ProjectKey
	}
	if len(filter.Status) > 0 {
		filters["status"] = filter.Status
	}
	if len(filter.Priority) > 0 {
		filters["priority"] = filter.Priority
	}

	rows, err := s.db.RPC(ctx, "count_jira_tickets", map[string]any{"p_filters": filters})
	if err != nil {
		return nil, fmt.Errorf("count_jira_tickets: %w", err)
	}

	result := &JiraCount{}
	if len(rows) > 0 {
		if v, ok := rows[0]["value"].(float64); ok {
			result.TotalCount = int(v)
		} else {
			result.TotalCount = rowInt(rows[0], "count")
		}
	}

	if filter.ProjectKey != "" {
		return result, nil
	}

	breakdown, err := s.db.RPC(ctx, "count_jira_tickets_by_project", map[string]any{
		"p_status_filter":   filter.Status,
		"p_priority_filter": filter.Priority,
	})
	if err != nil {
		// The total stands on its own; breakdown failure is non-fatal.
		slog.Warn("Per-project ticket breakdown failed", "error", err)
		return result, nil
	}

	result.ProjectBreakdown = make([]ProjectCount, 0, len(breakdown))
	for _, row := range breakdown {
		project := rowString(row, "project_key")
		if project == "" {
			project = rowString(row, "project")
		}
		result.ProjectBreakdown = append(result.ProjectBreakdown, ProjectCount{
			Project: project,
			Count:   rowInt(row, "count"),
		})
	}
	return result, nil
}
