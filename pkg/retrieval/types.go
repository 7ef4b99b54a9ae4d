// Package retrieval implements the corpus search pipelines: vector-store
// knowledge search, Jira and Git/code semantic search with their fallbacks,
// and the unified cross-source retriever. All pipelines normalize results to
// the Document shape consumed by the orchestrator.
package retrieval

import (
	"time"
)

// Source identifies which corpus a document came from.
type Source string

const (
	SourceKnowledge  Source = "knowledge"
	SourceJira       Source = "jira"
	SourceGit        Source = "git"
	SourceCode       Source = "code"
	SourceAOMAVector Source = "aoma_vector"
)

// Document is the normalized retrieval result.
type Document struct {
	Content  string         `json:"content"`
	Source   Source         `json:"source"`
	SourceID string         `json:"sourceId"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Strategy controls threshold, context size, and token budget per query.
type Strategy string

const (
	StrategyComprehensive Strategy = "comprehensive"
	StrategyFocused       Strategy = "focused"
	StrategyRapid         Strategy = "rapid"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyComprehensive, StrategyFocused, StrategyRapid:
		return true
	}
	return false
}

// Threshold is the minimum vector-store score a hit must clear.
func (s Strategy) Threshold() float64 {
	switch s {
	case StrategyRapid:
		return 0.80
	case StrategyFocused:
		return 0.70
	default:
		return 0.60
	}
}

// ContextDocs is how many documents the fast knowledge path folds into the
// synthesis context.
func (s Strategy) ContextDocs() int {
	switch s {
	case StrategyRapid:
		return 2
	case StrategyFocused:
		return 3
	default:
		return 5
	}
}

// TokenBudget is the completion budget for synthesis.
func (s Strategy) TokenBudget() int {
	switch s {
	case StrategyRapid:
		return 500
	case StrategyFocused:
		return 1000
	default:
		return 2000
	}
}

// TopN is the ensemble rerank cut.
func (s Strategy) TopN() int {
	switch s {
	case StrategyRapid:
		return 5
	case StrategyFocused:
		return 10
	default:
		return 20
	}
}

// Temperature is the synthesis sampling temperature; rapid runs coldest.
func (s Strategy) Temperature() float32 {
	switch s {
	case StrategyRapid:
		return 0.1
	case StrategyFocused:
		return 0.2
	default:
		return 0.3
	}
}

// JiraTicket is a normalized Jira search result.
type JiraTicket struct {
	Key        string  `json:"key"`
	Summary    string  `json:"summary"`
	Status     string  `json:"status"`
	Priority   string  `json:"priority"`
	Project    string  `json:"project"`
	URL        string  `json:"url,omitempty"`
	Similarity float64 `json:"similarity"`
}

// Commit is a normalized Git commit search result.
type Commit struct {
	Hash         string  `json:"hash"`
	Message      string  `json:"message"`
	Author       string  `json:"author"`
	Email        string  `json:"email"`
	Date         string  `json:"date"`
	Repository   string  `json:"repository"`
	FilesChanged int     `json:"filesChanged"`
	Additions    int     `json:"additions"`
	Deletions    int     `json:"deletions"`
	DiffSummary  string  `json:"diffSummary,omitempty"`
	Similarity   float64 `json:"similarity"`
}

// CodeFile is a normalized code-file search result.
type CodeFile struct {
	Path         string  `json:"path"`
	Name         string  `json:"name"`
	Extension    string  `json:"extension"`
	Language     string  `json:"language"`
	Preview      string  `json:"preview,omitempty"`
	Summary      string  `json:"summary,omitempty"`
	Repository   string  `json:"repository"`
	LineCount    int     `json:"lineCount"`
	LastModified string  `json:"lastModified,omitempty"`
	Similarity   float64 `json:"similarity"`
}

// clamp01 bounds a similarity score to [0,1]; upstream procedures
// occasionally emit values a hair outside due to float math.
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// row accessors: stored procedures return loosely typed JSON rows.

func rowString(row map[string]any, key string) string {
	if v, ok := row[key].(string); ok {
		return v
	}
	return ""
}

func rowFloat(row map[string]any, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

func rowInt(row map[string]any, key string) int {
	return int(rowFloat(row, key))
}

func rowTime(row map[string]any, key string) string {
	raw := rowString(row, key)
	if raw == "" {
		return ""
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC().Format(time.RFC3339)
	}
	return raw
}
