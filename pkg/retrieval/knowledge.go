package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aoma-tools/aoma-mesh/pkg/llm"
)

const (
	// maxDocChars bounds each candidate's contribution to the context.
	maxDocChars       = 2000
	truncationMarker  = "\n...[truncated]"
	minFallbackDocs   = 3
	vectorSearchLimit = 20
)

// knowledgeSystemPrompt pins the synthesis behavior: grounded answers with
// explicit source citations.
const knowledgeSystemPrompt = `You are the AOMA knowledge assistant for Sony Music's asset management ecosystem. Answer strictly from the provided context documents. Cite every claim with the source filename in the form [Source: <filename>]. If the context does not contain the answer, say so explicitly rather than speculating.`

// KnowledgeService is the fast-path retriever over the hosted vector store.
type KnowledgeService struct {
	llm     *llm.Client
	storeID string
}

// NewKnowledgeService wires the fast knowledge path. storeID may be empty;
// queries then fail with a configuration error.
func NewKnowledgeService(client *llm.Client, storeID string) *KnowledgeService {
	return &KnowledgeService{llm: client, storeID: storeID}
}

// KnowledgeQuery is one fast-path knowledge question.
type KnowledgeQuery struct {
	Query      string
	Strategy   Strategy
	Context    string // optional additional caller context
	MaxResults int
}

// KnowledgeAnswer carries the synthesis and the documents behind it.
type KnowledgeAnswer struct {
	Answer  string     `json:"answer"`
	Sources []Document `json:"sources"`
}

// Query runs the fast knowledge path: server-side vector search, strategy
// threshold filtering, context assembly, and one synthesis completion.
func (s *KnowledgeService) Query(ctx context.Context, q KnowledgeQuery) (*KnowledgeAnswer, error) {
	if s.storeID == "" {
		return nil, fmt.Errorf("no vector store configured")
	}

	limit := q.MaxResults
	if limit <= 0 || limit > vectorSearchLimit {
		limit = vectorSearchLimit
	}

	hits, err := s.llm.VectorStoreSearch(ctx, s.storeID, q.Query, limit)
	if err != nil {
		return nil, fmt.Errorf("vector store search: %w", err)
	}

	selected := selectHits(hits, q.Strategy)
	docs := make([]Document, 0, len(selected))
	for _, hit := range selected {
		docs = append(docs, Document{
			Content:  TruncateContent(hit.Content),
			Source:   SourceAOMAVector,
			SourceID: hit.Filename,
			Score:    clamp01(hit.Score),
			Metadata: hit.Metadata,
		})
	}

	answer, err := s.llm.Chat(ctx, llm.ChatRequest{
		System:      knowledgeSystemPrompt,
		User:        renderKnowledgePrompt(q, docs),
		MaxTokens:   q.Strategy.TokenBudget(),
		Temperature: q.Strategy.Temperature(),
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	slog.Debug("Knowledge query complete",
		"strategy", q.Strategy, "hits", len(hits), "selected", len(docs))
	return &KnowledgeAnswer{Answer: answer, Sources: docs}, nil
}

// selectHits applies the strategy threshold, falling back to the top 3 when
// nothing clears it, then cuts to the strategy's context size.
func selectHits(hits []llm.VectorHit, strategy Strategy) []llm.VectorHit {
	threshold := strategy.Threshold()

	cleared := make([]llm.VectorHit, 0, len(hits))
	for _, hit := range hits {
		if hit.Score >= threshold {
			cleared = append(cleared, hit)
		}
	}
	if len(cleared) == 0 {
		if len(hits) > minFallbackDocs {
			cleared = hits[:minFallbackDocs]
		} else {
			cleared = hits
		}
	}

	if max := strategy.ContextDocs(); len(cleared) > max {
		cleared = cleared[:max]
	}
	return cleared
}

// TruncateContent bounds one document's contribution to a synthesis context,
// appending a marker when anything was cut.
func TruncateContent(content string) string {
	if len(content) <= maxDocChars {
		return content
	}
	return content[:maxDocChars] + truncationMarker
}

func renderKnowledgePrompt(q KnowledgeQuery, docs []Document) string {
	var b strings.Builder

	if len(docs) == 0 {
		b.WriteString("No context documents matched the query. State clearly that no sources were found.\n\n")
	} else {
		b.WriteString("Context documents:\n\n")
		for _, doc := range docs {
			fmt.Fprintf(&b, "[Source: %s (relevance: %.2f)]\n%s\n\n", doc.SourceID, doc.Score, doc.Content)
		}
	}

	fmt.Fprintf(&b, "Question: %s\n", q.Query)
	if q.Context != "" {
		fmt.Fprintf(&b, "\nAdditional context: %s\n", q.Context)
	}
	return b.String()
}
