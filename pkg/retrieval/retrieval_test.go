package retrieval

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
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// embeddingHandler serves a fixed 3-dim embedding for any input.
func embeddingHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"data": []map[string]any{{"embedding": []float32{0.1, 0.2, 0.3}}},
	})
}

func newLLM(t *testing.T, mux *http.ServeMux) *llm.Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return llm.NewClient(&config.Environment{
		OpenAIKey:     "sk-test-0123456789abcdefghij",
		OpenAIBaseURL: srv.URL,
		AssistantID:   "asst_test",
		MaxRetries:    1,
		TimeoutMS:     5000,
	})
}

func newDB(t *testing.T, mux *http.ServeMux) *db.Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return db.NewClient(&config.Environment{
		SupabaseURL:        srv.URL,
		SupabaseServiceKey: "service-role-key-0123456789",
		MaxRetries:         1,
		TimeoutMS:          5000,
	})
}

func TestKnowledgeFastPathFocused(t *testing.T) {
	var chatReq map[string]any

	mux := http.NewServeMux()
	mux.HandleFunc("/vector_stores/vs_docs/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"data": []map[string]any{
				{"file_id": "f1", "filename": "export-guide.md", "score": 0.92,
					"content": []map[string]any{{"type": "text", "text": "Export flow details."}}},
				{"file_id": "f2", "filename": "asset-faq.md", "score": 0.81,
					"content": []map[string]any{{"type": "text", "text": "FAQ content."}}},
				{"file_id": "f3", "filename": "legacy-notes.md", "score": 0.65,
					"content": []map[string]any{{"type": "text", "text": "Old notes."}}},
				{"file_id": "f4", "filename": "misc.md", "score": 0.40,
					"content": []map[string]any{{"type": "text", "text": "Noise."}}},
			},
		})
	})
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&chatReq))
		writeJSON(w, map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": "Answer [Source: export-guide.md]"}},
			},
		})
	})

	svc := NewKnowledgeService(newLLM(t, mux), "vs_docs")
	answer, err := svc.Query(context.Background(), KnowledgeQuery{
		Query: "how does export work", Strategy: StrategyFocused,
	})
	require.NoError(t, err)

	// Focused threshold is 0.70: only the first two hits clear it.
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, "export-guide.md", answer.Sources[0].SourceID)
	assert.NotContains(t, answer.Sources[0].Content, truncationMarker)

	assert.Equal(t, float64(1000), chatReq["max_completion_tokens"])
	prompt := chatReq["messages"].([]any)[1].(map[string]any)["content"].(string)
	assert.Contains(t, prompt, "export-guide.md")
	assert.Contains(t, prompt, "relevance: 0.92")
	assert.NotContains(t, prompt, "legacy-notes.md")

	assert.Contains(t, answer.Answer, "export-guide.md")
}

func TestKnowledgeTopThreeFallback(t *testing.T) {
	hits := []llm.VectorHit{
		{Filename: "a.md", Score: 0.5},
		{Filename: "b.md", Score: 0.4},
		{Filename: "c.md", Score: 0.3},
		{Filename: "d.md", Score: 0.2},
	}
	selected := selectHits(hits, StrategyRapid)
	// Nothing clears 0.80; fall back to top 3, then rapid cuts to 2 docs.
	require.Len(t, selected, 2)
	assert.Equal(t, "a.md", selected[0].Filename)
	assert.Equal(t, "b.md", selected[1].Filename)
}

func TestTruncateContent(t *testing.T) {
	long := strings.Repeat("x", maxDocChars+100)
	out := TruncateContent(long)
	assert.True(t, strings.HasSuffix(out, truncationMarker))
	assert.Len(t, out, maxDocChars+len(truncationMarker))

	short := strings.Repeat("x", 100)
	assert.Equal(t, short, TruncateContent(short))
}

func TestJiraSemanticSearch(t *testing.T) {
	llmMux := http.NewServeMux()
	llmMux.HandleFunc("/embeddings", embeddingHandler)

	dbMux := http.NewServeMux()
	dbMux.HandleFunc("POST /rest/v1/rpc/match_jira_tickets", func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, 0.7, params["p_similarity_threshold"])
		filters := params["p_filters"].(map[string]any)
		assert.Equal(t, "ITSM", filters["projectKey"])

		writeJSON(w, []map[string]any{
			{"external_id": "ITSM-100", "title": "Auth service 500s", "status": "Open",
				"priority": "High", "project_key": "ITSM", "similarity": 0.88},
		})
	})

	svc := NewJiraService(newDB(t, dbMux), newLLM(t, llmMux), "https://jira.example.com")
	tickets, err := svc.Search(context.Background(), JiraSearch{
		Query: "auth failures", ProjectKey: "ITSM", Threshold: 0.7, MaxResults: 10,
	})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, "ITSM-100", tickets[0].Key)
	assert.Equal(t, "Auth service 500s", tickets[0].Summary)
	assert.Equal(t, 0.88, tickets[0].Similarity)
	assert.Equal(t, "https://jira.example.com/browse/ITSM-100", tickets[0].URL)
}

func TestJiraTextFallback(t *testing.T) {
	llmMux := http.NewServeMux()
	llmMux.HandleFunc("/embeddings", embeddingHandler)

	dbMux := http.NewServeMux()
	dbMux.HandleFunc("POST /rest/v1/rpc/match_jira_tickets", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"pgvector timeout"}`))
	})
	dbMux.HandleFunc("GET /rest/v1/jira_tickets", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "(title.ilike.*login*,external_id.ilike.*login*)", r.URL.Query().Get("or"))
		writeJSON(w, []map[string]any{
			{"external_id": "ITSM-1", "title": "Login broken", "status": "Open", "priority": "High", "project_key": "ITSM"},
			{"external_id": "ITSM-2", "title": "Login slow", "status": "Open", "priority": "Low", "project_key": "ITSM"},
			{"external_id": "AOMA-3", "title": "SSO login", "status": "Done", "priority": "Low", "project_key": "AOMA"},
		})
	})

	svc := NewJiraService(newDB(t, dbMux), newLLM(t, llmMux), "https://jira.example.com")
	tickets, err := svc.Search(context.Background(), JiraSearch{Query: "login"})
	require.NoError(t, err)
	require.Len(t, tickets, 3)
	for _, ticket := range tickets {
		assert.Equal(t, fallbackSimilarity, ticket.Similarity)
		assert.True(t, strings.HasPrefix(ticket.URL, "https://jira.example.com/browse/"))
	}
}

func TestJiraCountWithBreakdown(t *testing.T) {
	dbMux := http.NewServeMux()
	dbMux.HandleFunc("POST /rest/v1/rpc/count_jira_tickets", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`6847`))
	})
	dbMux.HandleFunc("POST /rest/v1/rpc/count_jira_tickets_by_project", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{"project_key": "ITSM", "count": 5692},
			{"project_key": "AOMA", "count": 890},
			{"project_key": "GRPS", "count": 265},
		})
	})

	svc := NewJiraService(newDB(t, dbMux), nil, "")
	count, err := svc.Count(context.Background(), JiraCountFilter{})
	require.NoError(t, err)
	assert.Equal(t, 6847, count.TotalCount)
	require.Len(t, count.ProjectBreakdown, 3)

	sum := 0
	for _, pc := range count.ProjectBreakdown {
		sum += pc.Count
	}
	assert.Equal(t, count.TotalCount, sum)
}

func TestJiraCountProjectScopedSkipsBreakdown(t *testing.T) {
	var breakdownCalled bool
	dbMux := http.NewServeMux()
	dbMux.HandleFunc("POST /rest/v1/rpc/count_jira_tickets", func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		filters := params["p_filters"].(map[string]any)
		assert.Equal(t, "ITSM", filters["projectKey"])
		_, _ = w.Write([]byte(`5692`))
	})
	dbMux.HandleFunc("POST /rest/v1/rpc/count_jira_tickets_by_project", func(w http.ResponseWriter, r *http.Request) {
		breakdownCalled = true
		writeJSON(w, []map[string]any{})
	})

	svc := NewJiraService(newDB(t, dbMux), nil, "")
	count, err := svc.Count(context.Background(), JiraCountFilter{ProjectKey: "ITSM"})
	require.NoError(t, err)
	assert.Equal(t, 5692, count.TotalCount)
	assert.Nil(t, count.ProjectBreakdown)
	assert.False(t, breakdownCalled)
}

func TestSearchCommitsMapping(t *testing.T) {
	llmMux := http.NewServeMux()
	llmMux.HandleFunc("/embeddings", embeddingHandler)

	dbMux := http.NewServeMux()
	dbMux.HandleFunc("POST /rest/v1/rpc/search_git_commits_semantic", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{
				"commit_hash": "abc123", "commit_message": "Fix auth retry loop",
				"author_name": "Dev One", "author_email": "dev@example.com",
				"commit_date": "2026-05-12T10:00:00Z", "repository_name": "aoma-backend",
				"files_changed": 3, "additions": 40, "deletions": 12,
				"diff_summary": "retry backoff", "similarity": 0.83,
			},
		})
	})

	svc := NewGitService(newDB(t, dbMux), newLLM(t, llmMux))
	commits, err := svc.SearchCommits(context.Background(), CommitSearch{Query: "auth retry"})
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "abc123", commits[0].Hash)
	assert.Equal(t, "aoma-backend", commits[0].Repository)
	assert.Equal(t, 3, commits[0].FilesChanged)
	assert.Equal(t, 0.83, commits[0].Similarity)
}

func TestSearchCodeFilesMapping(t *testing.T) {
	llmMux := http.NewServeMux()
	llmMux.HandleFunc("/embeddings", embeddingHandler)

	dbMux := http.NewServeMux()
	dbMux.HandleFunc("POST /rest/v1/rpc/search_code_files_semantic", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, []map[string]any{
			{
				"file_path": "src/auth/service.ts", "file_name": "service.ts",
				"file_extension": "ts", "language": "typescript",
				"content_preview": "export class AuthService", "content_summary": "auth entry point",
				"repository_name": "aoma-backend", "line_count": 240,
				"last_modified": "2026-06-01T08:30:00Z", "similarity": 1.2,
			},
		})
	})

	svc := NewGitService(newDB(t, dbMux), newLLM(t, llmMux))
	files, err := svc.SearchCodeFiles(context.Background(), CodeSearch{Query: "auth service"})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/auth/service.ts", files[0].Path)
	// Upstream emitted an out-of-range similarity; it must be clamped.
	assert.Equal(t, 1.0, files[0].Similarity)
}

func TestUnifiedRetrieve(t *testing.T) {
	llmMux := http.NewServeMux()
	llmMux.HandleFunc("/embeddings", embeddingHandler)

	dbMux := http.NewServeMux()
	dbMux.HandleFunc("POST /rest/v1/rpc/match_unified_vectors", func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "jira", params["source_filter"])

		writeJSON(w, []map[string]any{
			{"source_id": "ITSM-9", "source_type": "jira", "content": "ticket text", "score": 0.91,
				"metadata": map[string]any{"project": "ITSM"}},
			{"source_id": "doc-1", "source_type": "unknown_type", "content": "doc text", "score": 0.71},
		})
	})

	r := NewUnifiedRetriever(newDB(t, dbMux), newLLM(t, llmMux))
	docs, err := r.Retrieve(context.Background(), "auth", 0.6, 10, ScopeJira)
	require.NoError(t, err)
	require.Len(t, docs, 2)

	assert.Equal(t, SourceJira, docs[0].Source)
	assert.Equal(t, 0.91, docs[0].Metadata["similarity"])
	assert.Equal(t, "ITSM", docs[0].Metadata["project"])
	// Unknown source types normalize to knowledge.
	assert.Equal(t, SourceKnowledge, docs[1].Source)

	for _, doc := range docs {
		assert.GreaterOrEqual(t, doc.Score, 0.0)
		assert.LessOrEqual(t, doc.Score, 1.0)
	}
}
