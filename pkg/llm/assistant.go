package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// AssistantRunInput describes one assistant-thread invocation.
type AssistantRunInput struct {
	AssistantID            string // empty = the preconfigured assistant
	Message                string
	AdditionalInstructions string
	VectorStoreIDs         []string // optional file_search stores attached to the thread
}

// AssistantRun creates a thread, posts the user message, starts a run, and
// polls its state machine at 1s intervals until it reaches a terminal state
// or the client timeout elapses.
//
// States: queued / in_progress are transient; completed returns the last
// assistant message; failed / cancelled / expired return an error carrying
// the state and upstream last_error message. The thread is deleted
// best-effort after any terminal state.
func (c *Client) AssistantRun(ctx context.Context, input AssistantRunInput) (string, error) {
	assistantID := input.AssistantID
	if assistantID == "" {
		assistantID = c.assistantID
	}

	threadReq := openai.ThreadRequest{}
	if len(input.VectorStoreIDs) > 0 {
		threadReq.ToolResources = &openai.ToolResourcesRequest{
			FileSearch: &openai.FileSearchToolResourcesRequest{
				VectorStoreIDs: input.VectorStoreIDs,
			},
		}
	}

	thread, err := c.api.CreateThread(ctx, threadReq)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	defer c.deleteThread(thread.ID)

	_, err = c.api.CreateMessage(ctx, thread.ID, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: input.Message,
	})
	if err != nil {
		return "", fmt.Errorf("post message: %w", err)
	}

	run, err := c.api.CreateRun(ctx, thread.ID, openai.RunRequest{
		AssistantID:            assistantID,
		AdditionalInstructions: input.AdditionalInstructions,
	})
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}

	run, err = c.pollRun(ctx, thread.ID, run.ID)
	if err != nil {
		return "", err
	}

	return c.lastAssistantMessage(ctx, thread.ID, run.ID)
}

// pollRun drives the run state machine to a terminal state.
func (c *Client) pollRun(ctx context.Context, threadID, runID string) (openai.Run, error) {
	deadline := time.Now().Add(c.timeout)

	for {
		run, err := c.api.RetrieveRun(ctx, threadID, runID)
		if err != nil {
			return openai.Run{}, fmt.Errorf("retrieve run: %w", err)
		}

		switch run.Status {
		case openai.RunStatusCompleted:
			return run, nil
		case openai.RunStatusFailed, openai.RunStatusCancelled, openai.RunStatusExpired:
			msg := "no details from upstream"
			if run.LastError != nil && run.LastError.Message != "" {
				msg = run.LastError.Message
			}
			return openai.Run{}, fmt.Errorf("assistant run %s: %s", run.Status, msg)
		case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling:
			// transient, keep polling
		default:
			return openai.Run{}, fmt.Errorf("assistant run in unsupported state %q", run.Status)
		}

		if time.Now().After(deadline) {
			return openai.Run{}, fmt.Errorf("assistant run timed out after %s: %w", c.timeout, context.DeadlineExceeded)
		}

		select {
		case <-ctx.Done():
			return openai.Run{}, ctx.Err()
		case <-time.After(c.poll):
		}
	}
}

func (c *Client) lastAssistantMessage(ctx context.Context, threadID, runID string) (string, error) {
	limit := 10
	order := "desc"
	msgs, err := c.api.ListMessage(ctx, threadID, &limit, &order, nil, nil, &runID)
	if err != nil {
		return "", fmt.Errorf("list messages: %w", err)
	}

	for _, msg := range msgs.Messages {
		if msg.Role != string(openai.ThreadMessageRoleAssistant) {
			continue
		}
		for _, part := range msg.Content {
			if part.Text != nil && part.Text.Value != "" {
				return part.Text.Value, nil
			}
		}
	}
	return "", fmt.Errorf("assistant run produced no text response")
}

// deleteThread is a best-effort post-run cleanup. Failure is logged, never
// surfaced: the tool result is already determined by this point.
func (c *Client) deleteThread(threadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()

	if _, err := c.api.DeleteThread(ctx, threadID); err != nil {
		slog.Warn("Failed to delete assistant thread", "thread_id", threadID, "error", err)
	}
}
