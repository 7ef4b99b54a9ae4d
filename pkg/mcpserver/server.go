// Package mcpserver exposes the tool registry and server resources over the
// Model Context Protocol stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/aoma-tools/aoma-mesh/pkg/config"
	"github.com/aoma-tools/aoma-mesh/pkg/health"
	"github.com/aoma-tools/aoma-mesh/pkg/metrics"
	"github.com/aoma-tools/aoma-mesh/pkg/tools"
)

// Server drives the stdio MCP transport. The HTTP server and this transport
// share one dispatcher, so both see the same tools, cache, and metrics.
type Server struct {
	env        *config.Environment
	dispatcher *tools.Dispatcher
	monitor    *health.Monitor
	metrics    *metrics.Collector

	mcp    *server.MCPServer
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds the MCP server and registers every tool and resource.
func New(env *config.Environment, dispatcher *tools.Dispatcher, monitor *health.Monitor, collector *metrics.Collector) *Server {
	s := &Server{
		env:        env,
		dispatcher: dispatcher,
		monitor:    monitor,
		metrics:    collector,
	}

	m := server.NewMCPServer("aoma-mesh", env.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithRecovery(),
	)

	for _, info := range dispatcher.Registry().List() {
		tool := mcp.NewToolWithRawSchema(info.Name, info.Description, info.InputSchema)
		m.AddTool(tool, s.toolHandler(info.Name))
	}
	s.registerResources(m)

	s.mcp = m
	return s
}

// toolHandler adapts one registered tool to the MCP handler signature. Tool
// failures become error results, not protocol errors, so clients keep the
// session.
func (s *Server) toolHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, toolErr := s.dispatcher.Call(ctx, name, request.GetArguments())
		if toolErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%d: %s", toolErr.Code, toolErr.Message)), nil
		}
		return mcp.NewToolResultText(result.Content[0].Text), nil
	}
}

func (s *Server) registerResources(m *server.MCPServer) {
	m.AddResource(
		mcp.NewResource("aoma://health", "System health",
			mcp.WithResourceDescription("Live upstream health snapshot"),
			mcp.WithMIMEType("application/json")),
		s.jsonResource("aoma://health", func(ctx context.Context) (any, error) {
			return s.monitor.Snapshot(ctx), nil
		}),
	)
	m.AddResource(
		mcp.NewResource("aoma://metrics", "Request metrics",
			mcp.WithResourceDescription("Request counters and latency"),
			mcp.WithMIMEType("application/json")),
		s.jsonResource("aoma://metrics", func(ctx context.Context) (any, error) {
			return s.metrics.Snapshot(), nil
		}),
	)
	m.AddResource(
		mcp.NewResource("aoma://config", "Server configuration",
			mcp.WithResourceDescription("Non-secret configuration subset"),
			mcp.WithMIMEType("application/json")),
		s.jsonResource("aoma://config", func(ctx context.Context) (any, error) {
			return s.env.Public(), nil
		}),
	)
	m.AddResource(
		mcp.NewResource("aoma://docs", "Tool manual",
			mcp.WithResourceDescription("Generated manual for every tool"),
			mcp.WithMIMEType("text/markdown")),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return []mcp.ResourceContents{mcp.TextResourceContents{
				URI:      "aoma://docs",
				MIMEType: "text/markdown",
				Text:     renderManual(s.dispatcher.Registry(), s.env.Version),
			}}, nil
		},
	)
}

// jsonResource wraps a producer into a JSON resource handler.
func (s *Server) jsonResource(uri string, produce func(ctx context.Context) (any, error)) server.ResourceHandlerFunc {
	return func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		value, err := produce(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.MarshalIndent(value, "", "  ")
		if err != nil {
			return nil, err
		}
		return []mcp.ResourceContents{mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(raw),
		}}, nil
	}
}

// Start connects the stdio transport in the background.
func (s *Server) Start(ctx context.Context) {
	listenCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)

		stdio := server.NewStdioServer(s.mcp)
		if err := stdio.Listen(listenCtx, os.Stdin, os.Stdout); err != nil && listenCtx.Err() == nil {
			slog.Error("Stdio transport failed", "error", err)
		}
	}()
	slog.Info("Stdio MCP transport connected")
}

// Stop disconnects the stdio transport.
func (s *Server) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("Stdio MCP transport closed")
}
