package retrieval

import (
	"context"
	"fmt"

	"github.com/aoma-tools/aoma-mesh/pkg/db"
	"github.com/aoma-tools/aoma-mesh/pkg/llm"
)

const defaultGitMaxResults = 15

// GitService searches commits and code files semantically. Unlike Jira there
// is no text fallback: the commit and code tables carry no columns worth an
// ilike scan.
type GitService struct {
	db  *db.Client
	llm *llm.Client
}

// NewGitService wires the Git/code pipeline.
func NewGitService(database *db.Client, client *llm.Client) *GitService {
	return &GitService{db: database, llm: client}
}

// CommitSearch describes one commit search.
type CommitSearch struct {
	Query       string
	Repository  []string
	Author      []string
	DateFrom    string
	DateTo      string
	FilePattern string
	MaxResults  int
	Threshold   float64
}

// SearchCommits runs the semantic commit search RPC.
func (s *GitService) SearchCommits(ctx context.Context, q CommitSearch) ([]Commit, error) {
	if q.MaxResults <= 0 {
		q.MaxResults = defaultGitMaxResults
	}

	embedding, err := s.llm.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	filters := map[string]any{}
	if len(q.Repository) > 0 {
		filters["repository"] = q.Repository
	}
	if len(q.Author) > 0 {
		filters["author"] = q.Author
	}
	if q.DateFrom != "" {
		filters["dateFrom"] = q.DateFrom
	}
	if q.DateTo != "" {
		filters["dateTo"] = q.DateTo
	}
	if q.FilePattern != "" {
		filters["filePattern"] = q.FilePattern
	}

	rows, err := s.db.RPC(ctx, "search_git_commits_semantic", map[string]any{
		"p_query_embedding":      embedding,
		"p_similarity_threshold": clamp01(q.Threshold),
		"p_max_results":          q.MaxResults,
		"p_filters":              filters,
	})
	if err != nil {
		return nil, fmt.Errorf("search_git_commits_semantic: %w", err)
	}

	commits := make([]Commit, 0, len(rows))
	for _, row := range rows {
		commits = append(commits, Commit{
			Hash:         rowString(row, "commit_hash"),
			Message:      rowString(row, "commit_message"),
			Author:       rowString(row, "author_name"),
			Email:        rowString(row, "author_email"),
			Date:         rowTime(row, "commit_date"),
			Repository:   rowString(row, "repository_name"),
			FilesChanged: rowInt(row, "files_changed"),
			Additions:    rowInt(row, "additions"),
			Deletions:    rowInt(row, "deletions"),
			DiffSummary:  rowString(row, "diff_summary"),
			Similarity:   clamp01(rowFloat(row, "similarity")),
		})
	}
	return commits, nil
}

// CodeSearch describes one code-file search.
type CodeSearch struct {
	Query         string
	Repository    []string
	Language      []string
	FileExtension []string
	MaxResults    int
	Threshold     float64
}

// SearchCodeFiles runs the semantic code search RPC.
func (s *GitService) SearchCodeFiles(ctx context.Context, q CodeSearch) ([]CodeFile, error) {
	if q.MaxResults <= 0 {
		q.MaxResults = defaultGitMaxResults
	}

	embedding, err := s.llm.Embed(ctx, q.Query)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	filters := map[string]any{}
	if len(q.Repository) > 0 {
		filters["repository"] = q.Repository
	}
	if len(q.Language) > 0 {
		filters["language"] = q.Language
	}
	if len(q.FileExtension) > 0 {
		filters["fileExtension"] = q.FileExtension
	}

	rows, err := s.db.RPC(ctx, "search_code_files_semantic", map[string]any{
		"p_query_embedding":      embedding,
		"p_similarity_threshold": clamp01(q.Threshold),
		"p_max_results":          q.MaxResults,
		"p_filters":              filters,
	})
	if err != nil {
		return nil, fmt.Errorf("search_code_files_semantic: %w", err)
	}

	files := make([]CodeFile, 0, len(rows))
	for _, row := range rows {
		files = append(files, CodeFile{
			Path:         rowString(row, "file_path"),
			Name:         rowString(row, "file_name"),
			Extension:    rowString(row, "file_extension"),
			Language:     rowString(row, "language"),
			Preview:      rowString(row, "content_preview"),
			Summary:      rowString(row, "content_summary"),
			Repository:   rowString(row, "repository_name"),
			LineCount:    rowInt(row, "line_count"),
			LastModified: rowTime(row, "last_modified"),
			Similarity:   clamp01(rowFloat(row, "similarity")),
		})
	}
	return files, nil
}
