// Package llm wraps the OpenAI-style upstream: embeddings, chat completions,
// assistant thread runs, vector-store search, and the health probe.
//
// The SDK covers embeddings, chat, and the assistants API. Vector-store search
// and the HEAD probe have no SDK binding and go through a raw http.Client that
// shares the same credentials.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/aoma-tools/aoma-mesh/pkg/config"
)

// Sentinel errors surfaced to retrieval pipelines.
var (
	ErrNoEmbedding  = errors.New("no embedding returned")
	ErrNoCompletion = errors.New("no completion choices returned")
)

const (
	embeddingModel   = openai.SmallEmbedding3
	defaultChatModel = openai.GPT4o
	probeTimeout     = 5 * time.Second
	pollInterval     = time.Second
)

// Client is the upstream LLM client. Safe for concurrent use.
type Client struct {
	api     *openai.Client
	http    *http.Client
	baseURL string
	apiKey  string

	assistantID string
	maxRetries  int
	timeout     time.Duration

	// poll overridden in tests to avoid 1s waits.
	poll time.Duration
}

// NewClient builds a client from the validated environment.
func NewClient(env *config.Environment) *Client {
	cfg := openai.DefaultConfig(env.OpenAIKey)
	cfg.BaseURL = env.OpenAIBaseURL
	cfg.HTTPClient = &http.Client{Timeout: env.Timeout()}

	return &Client{
		api:         openai.NewClientWithConfig(cfg),
		http:        &http.Client{Timeout: env.Timeout()},
		baseURL:     strings.TrimRight(env.OpenAIBaseURL, "/"),
		apiKey:      env.OpenAIKey,
		assistantID: env.AssistantID,
		maxRetries:  env.MaxRetries,
		timeout:     env.Timeout(),
		poll:        pollInterval,
	}
}

// AssistantID returns the preconfigured assistant.
func (c *Client) AssistantID() string { return c.assistantID }

// Embed returns a single embedding vector for a short query text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	var embedding []float32
	err := c.withRetry(ctx, "embeddings", func() error {
		resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: embeddingModel,
		})
		if err != nil {
			return err
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return ErrNoEmbedding
		}
		embedding = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, err
	}
	return embedding, nil
}

// ChatRequest describes one synchronous completion call.
type ChatRequest struct {
	Model       string
	System      string
	User        string
	MaxTokens   int
	Temperature float32
}

// fixedTemperatureModel reports whether the model rejects a custom temperature
// and only runs at its built-in default.
func fixedTemperatureModel(model string) bool {
	for _, prefix := range []string{"o1", "o3", "o4", "gpt-5"} {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

// Chat runs a synchronous chat completion and returns the assistant text.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (string, error) {
	model := req.Model
	if model == "" {
		model = defaultChatModel
	}

	apiReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		MaxCompletionTokens: req.MaxTokens,
	}
	if !fixedTemperatureModel(model) {
		apiReq.Temperature = req.Temperature
	}

	var text string
	err := c.withRetry(ctx, "chat.completions", func() error {
		resp, err := c.api.CreateChatCompletion(ctx, apiReq)
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return ErrNoCompletion
		}
		text = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// Probe checks upstream reachability with a HEAD request against /models.
// Used by the health monitor; bounded to 5 seconds regardless of the
// configured call timeout.
func (c *Client) Probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/models", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("llm probe: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("llm probe: HTTP %d", resp.StatusCode)
	}
	return nil
}
