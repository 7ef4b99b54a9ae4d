package retrieval

import (
	"context"
	"fmt"

	"github.com/aoma-tools/aoma-mesh/pkg/db"
	"github.com/aoma-tools/aoma-mesh/pkg/llm"
)

// ScopeFilter restricts the unified retriever to one corpus.
type ScopeFilter string

const (
	ScopeAll       ScopeFilter = "all"
	ScopeKnowledge ScopeFilter = "knowledge"
	ScopeJira      ScopeFilter = "jira"
	ScopeGit       ScopeFilter = "git"
)

// UnifiedRetriever queries the cross-source unified_memory table, which holds
// knowledge/jira/git chunks with a per-row source_type.
type UnifiedRetriever struct {
	db  *db.Client
	llm *llm.Client
}

// NewUnifiedRetriever wires the unified pipeline.
func NewUnifiedRetriever(database *db.Client, client *llm.Client) *UnifiedRetriever {
	return &UnifiedRetriever{db: database, llm: client}
}

// Retrieve embeds the query and calls match_unified_vectors, normalizing rows
// to Documents. The row score is mirrored into metadata as "similarity" for
// downstream consumers that only see metadata.
func (r *UnifiedRetriever) Retrieve(ctx context.Context, query string, threshold float64, count int, scope ScopeFilter) ([]Document, error) {
	if scope == "" {
		scope = ScopeAll
	}
	if count <= 0 {
		count = 10
	}

	embedding, err := r.llm.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	rows, err := r.db.RPC(ctx, "match_unified_vectors", map[string]any{
		"query_embedding": embedding,
		"match_threshold": clamp01(threshold),
		"match_count":     count,
		"source_filter":   string(scope),
	})
	if err != nil {
		return nil, fmt.Errorf("match_unified_vectors: %w", err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		score := clamp01(rowFloat(row, "score"))

		metadata := map[string]any{"similarity": score}
		if extra, ok := row["metadata"].(map[string]any); ok {
			for k, v := range extra {
				metadata[k] = v
			}
		}

		source := Source(rowString(row, "source_type"))
		switch source {
		case SourceKnowledge, SourceJira, SourceGit, SourceCode:
		default:
			source = SourceKnowledge
		}

		docs = append(docs, Document{
			Content:  rowString(row, "content"),
			Source:   source,
			SourceID: rowString(row, "source_id"),
			Score:    score,
			Metadata: metadata,
		})
	}
	return docs, nil
}
