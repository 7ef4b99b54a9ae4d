// Package orchestrator runs the ensemble retrieval pipeline: parallel fan-out
// to the unified database retriever and the hosted vector store, a global
// score-ordered rerank, and one synthesis completion over the merged context.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/aoma-tools/aoma-mesh/pkg/llm"
	"github.com/aoma-tools/aoma-mesh/pkg/retrieval"
)

const vectorBranchLimit = 20

const synthesisSystemPrompt = `You are the AOMA engineering assistant for Sony Music's asset management ecosystem. Synthesize an answer strictly from the numbered context sources. Cite sources inline as [Source N]. If the sources do not answer the question, say so explicitly.`

// Orchestrator fans a query out to every retriever and synthesizes one answer.
type Orchestrator struct {
	unified *retrieval.UnifiedRetriever
	llm     *llm.Client
	storeID string
}

// New wires the ensemble pipeline. storeID may be empty; the vector-store
// branch then contributes nothing.
func New(unified *retrieval.UnifiedRetriever, client *llm.Client, storeID string) *Orchestrator {
	return &Orchestrator{unified: unified, llm: client, storeID: storeID}
}

// Request is one ensemble query.
type Request struct {
	Query    string
	Strategy retrieval.Strategy
	Scope    retrieval.ScopeFilter
	Context  string // optional additional caller context
}

// Stats reports how many documents each branch contributed.
type Stats struct {
	Supabase     int            `json:"supabase"`
	OpenAI       int            `json:"openai"`
	Total        int            `json:"total"`
	BySourceType map[string]int `json:"bySourceType"`
}

// Result is the synthesized answer plus its evidence.
type Result struct {
	Answer          string               `json:"answer"`
	SourceDocuments []retrieval.Document `json:"sourceDocuments"`
	Stats           Stats                `json:"stats"`
}

// Run executes the full pipeline. Branch failures degrade to empty lists and
// are logged; the call aborts only when synthesis itself fails.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	if !req.Strategy.Valid() {
		req.Strategy = retrieval.StrategyFocused
	}

	var dbDocs, vectorDocs []retrieval.Document

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		docs, err := o.unified.Retrieve(gctx, req.Query, req.Strategy.Threshold(), req.Strategy.TopN(), req.Scope)
		if err != nil {
			slog.Warn("Unified retrieval branch failed", "query", req.Query, "error", err)
			return nil
		}
		dbDocs = docs
		return nil
	})
	g.Go(func() error {
		if o.storeID == "" {
			return nil
		}
		hits, err := o.llm.VectorStoreSearch(gctx, o.storeID, req.Query, vectorBranchLimit)
		if err != nil {
			slog.Warn("Vector store branch failed", "query", req.Query, "error", err)
			return nil
		}
		vectorDocs = make([]retrieval.Document, 0, len(hits))
		for _, hit := range hits {
			vectorDocs = append(vectorDocs, retrieval.Document{
				Content:  retrieval.TruncateContent(hit.Content),
				Source:   retrieval.SourceAOMAVector,
				SourceID: hit.Filename,
				Score:    hit.Score,
				Metadata: hit.Metadata,
			})
		}
		return nil
	})
	_ = g.Wait() // branches never return errors

	merged := append(append([]retrieval.Document{}, dbDocs...), vectorDocs...)
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Score > merged[j].Score })

	selected := merged
	if topN := req.Strategy.TopN(); len(selected) > topN {
		selected = selected[:topN]
	}

	answer, err := o.llm.Chat(ctx, llm.ChatRequest{
		System:      synthesisSystemPrompt,
		User:        renderContext(req, selected),
		MaxTokens:   req.Strategy.TokenBudget(),
		Temperature: req.Strategy.Temperature(),
	})
	if err != nil {
		return nil, fmt.Errorf("synthesis: %w", err)
	}

	stats := Stats{
		Supabase:     len(dbDocs),
		OpenAI:       len(vectorDocs),
		Total:        len(merged),
		BySourceType: map[string]int{},
	}
	for _, doc := range merged {
		stats.BySourceType[string(doc.Source)]++
	}

	slog.Debug("Ensemble query complete",
		"strategy", req.Strategy, "db_docs", len(dbDocs), "vector_docs", len(vectorDocs), "selected", len(selected))

	return &Result{Answer: answer, SourceDocuments: selected, Stats: stats}, nil
}

func renderContext(req Request, docs []retrieval.Document) string {
	var b strings.Builder

	if len(docs) == 0 {
		b.WriteString("No context sources matched the query. State clearly that no sources were found.\n\n")
	} else {
		b.WriteString("Context sources:\n\n")
		for i, doc := range docs {
			fmt.Fprintf(&b, "[Source %d: %s/%s (similarity: %.3f)]\n%s\n\n",
				i+1, doc.Source, doc.SourceID, doc.Score, doc.Content)
		}
	}

	fmt.Fprintf(&b, "Question: %s\n", req.Query)
	if req.Context != "" {
		fmt.Fprintf(&b, "\nAdditional context: %s\n", req.Context)
	}
	return b.String()
}
