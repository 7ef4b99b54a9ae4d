package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aoma-tools/aoma-mesh/pkg/config"
	"github.com/aoma-tools/aoma-mesh/pkg/db"
	"github.com/aoma-tools/aoma-mesh/pkg/llm"
	"github.com/aoma-tools/aoma-mesh/pkg/retrieval"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

type fixture struct {
	orch    *Orchestrator
	chatReq *map[string]any
}

// newFixture stands up mock LLM and DB upstreams and wires a full pipeline.
// The handlers may be nil to use healthy defaults.
func newFixture(t *testing.T, unifiedHandler, vectorHandler http.HandlerFunc) *fixture {
	t.Helper()

	chatReq := map[string]any{}

	llmMux := http.NewServeMux()
	llmMux.HandleFunc("/embeddings", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"data": []map[string]any{{"embedding": []float32{0.1, 0.2}}}})
	})
	if vectorHandler == nil {
		vectorHandler = func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"data": []map[string]any{
				{"file_id": "f1", "filename": "export-guide.md", "score": 0.95,
					"content": []map[string]any{{"type": "text", "text": "vector doc"}}},
			}})
		}
	}
	llmMux.HandleFunc("/vector_stores/vs_docs/search", vectorHandler)
	llmMux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&chatReq))
		writeJSON(w, map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "synthesized answer [Source 1]"}},
			},
		})
	})
	llmSrv := httptest.NewServer(llmMux)
	t.Cleanup(llmSrv.Close)

	dbMux := http.NewServeMux()
	if unifiedHandler == nil {
		unifiedHandler = func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, []map[string]any{
				{"source_id": "ITSM-9", "source_type": "jira", "content": "db doc", "score": 0.85},
			})
		}
	}
	dbMux.HandleFunc("POST /rest/v1/rpc/match_unified_vectors", unifiedHandler)
	dbSrv := httptest.NewServer(dbMux)
	t.Cleanup(dbSrv.Close)

	client := llm.NewClient(&config.Environment{
		OpenAIKey:     "sk-test-0123456789abcdefghij",
		OpenAIBaseURL: llmSrv.URL,
		MaxRetries:    1,
		TimeoutMS:     5000,
	})
	database := db.NewClient(&config.Environment{
		SupabaseURL:        dbSrv.URL,
		SupabaseServiceKey: "service-role-key-0123456789",
		MaxRetries:         1,
		TimeoutMS:          5000,
	})

	unified := retrieval.NewUnifiedRetriever(database, client)
	return &fixture{orch: New(unified, client, "vs_docs"), chatReq: &chatReq}
}

func TestRunMergesBothBranches(t *testing.T) {
	f := newFixture(t, nil, nil)

	result, err := f.orch.Run(context.Background(), Request{
		Query: "export failures", Strategy: retrieval.StrategyFocused,
	})
	require.NoError(t, err)

	require.Len(t, result.SourceDocuments, 2)
	// Global sort by score: the 0.95 vector hit outranks the 0.85 db row.
	assert.Equal(t, retrieval.SourceAOMAVector, result.SourceDocuments[0].Source)
	assert.Equal(t, retrieval.SourceJira, result.SourceDocuments[1].Source)

	assert.Equal(t, 1, result.Stats.Supabase)
	assert.Equal(t, 1, result.Stats.OpenAI)
	assert.Equal(t, 2, result.Stats.Total)
	assert.Equal(t, 1, result.Stats.BySourceType["jira"])
	assert.Equal(t, 1, result.Stats.BySourceType["aoma_vector"])

	prompt := (*f.chatReq)["messages"].([]any)[1].(map[string]any)["content"].(string)
	assert.Contains(t, prompt, "[Source 1: aoma_vector/export-guide.md (similarity: 0.950)]")
	assert.Contains(t, prompt, "[Source 2: jira/ITSM-9 (similarity: 0.850)]")
	assert.Equal(t, "synthesized answer [Source 1]", result.Answer)
}

func TestRunDegradesOnBranchFailure(t *testing.T) {
	failing := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"db down"}`))
	}
	f := newFixture(t, failing, nil)

	result, err := f.orch.Run(context.Background(), Request{
		Query: "export failures", Strategy: retrieval.StrategyRapid,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Stats.Supabase)
	assert.Equal(t, 1, result.Stats.OpenAI)
	require.Len(t, result.SourceDocuments, 1)
	assert.Equal(t, retrieval.SourceAOMAVector, result.SourceDocuments[0].Source)
}

func TestRunBothBranchesEmpty(t *testing.T) {
	emptyDB := func(w http.ResponseWriter, r *http.Request) { writeJSON(w, []map[string]any{}) }
	emptyVec := func(w http.ResponseWriter, r *http.Request) { writeJSON(w, map[string]any{"data": []map[string]any{}}) }
	f := newFixture(t, emptyDB, emptyVec)

	result, err := f.orch.Run(context.Background(), Request{
		Query: "nothing matches", Strategy: retrieval.StrategyComprehensive,
	})
	require.NoError(t, err)

	assert.Empty(t, result.SourceDocuments)
	assert.Equal(t, 0, result.Stats.Total)
	prompt := (*f.chatReq)["messages"].([]any)[1].(map[string]any)["content"].(string)
	assert.Contains(t, prompt, "no sources were found")
}

func TestRunTopNCut(t *testing.T) {
	manyVec := func(w http.ResponseWriter, r *http.Request) {
		hits := make([]map[string]any, 0, 8)
		for i := 0; i < 8; i++ {
			hits = append(hits, map[string]any{
				"file_id": "f", "filename": "doc.md", "score": 0.9 - float64(i)*0.01,
				"content": []map[string]any{{"type": "text", "text": "x"}},
			})
		}
		writeJSON(w, map[string]any{"data": hits})
	}
	emptyDB := func(w http.ResponseWriter, r *http.Request) { writeJSON(w, []map[string]any{}) }
	f := newFixture(t, emptyDB, manyVec)

	// Rapid keeps the global top 5; there is no per-source quota.
	result, err := f.orch.Run(context.Background(), Request{
		Query: "q", Strategy: retrieval.StrategyRapid,
	})
	require.NoError(t, err)
	assert.Len(t, result.SourceDocuments, 5)
	assert.Equal(t, 8, result.Stats.Total)
}

func TestRunStableSortTieBreak(t *testing.T) {
	tiedDB := func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"source_id": "first", "source_type": "jira", "content": "a", "score": 0.8},
			{"source_id": "second", "source_type": "git", "content": "b", "score": 0.8},
		})
	}
	emptyVec := func(w http.ResponseWriter, r *http.Request) { writeJSON(w, map[string]any{"data": []map[string]any{}}) }
	f := newFixture(t, tiedDB, emptyVec)

	result, err := f.orch.Run(context.Background(), Request{
		Query: "q", Strategy: retrieval.StrategyFocused,
	})
	require.NoError(t, err)
	require.Len(t, result.SourceDocuments, 2)
	assert.Equal(t, "first", result.SourceDocuments[0].SourceID)
	assert.Equal(t, "second", result.SourceDocuments[1].SourceID)
}

func TestRenderContextTruncatesLongDocs(t *testing.T) {
	doc := retrieval.Document{
		Content:  retrieval.TruncateContent(strings.Repeat("y", 3000)),
		Source:   retrieval.SourceKnowledge,
		SourceID: "big-doc",
		Score:    0.9,
	}
	out := renderContext(Request{Query: "q"}, []retrieval.Document{doc})
	assert.Contains(t, out, "...[truncated]")
}
