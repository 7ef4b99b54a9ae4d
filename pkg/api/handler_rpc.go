package api

import (
	"encoding/json"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/aoma-tools/aoma-mesh/pkg/tools"
)

// rpcRequest is the JSON-RPC 2.0 envelope accepted on POST /rpc.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"params"`
}

type rpcError struct {
	Code    int                `json:"code"`
	Message string             `json:"message"`
	Data    []tools.FieldError `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// newRPCError maps a tool error onto the JSON-RPC error object.
func newRPCError(err *tools.Error) *rpcError {
	return &rpcError{Code: err.Code, Message: err.Message, Data: err.Details}
}

// rpcHandler handles POST /rpc. Only tools/call is routable over HTTP; the
// other MCP methods have dedicated endpoints or live on stdio.
func (s *Server) rpcHandler(c *echo.Context) error {
	var req rpcRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, rpcResponse{
			JSONRPC: "2.0",
			Error:   newRPCError(tools.NewInvalidRequest("malformed JSON-RPC envelope")),
		})
	}
	if req.Method != "tools/call" {
		return c.JSON(http.StatusBadRequest, rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   newRPCError(tools.NewInvalidRequest("only tools/call is supported on this endpoint")),
		})
	}

	result, toolErr := s.dispatcher.Call(c.Request().Context(), req.Params.Name, req.Params.Arguments)
	if toolErr != nil {
		return c.JSON(toolErrorStatus(toolErr), rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   newRPCError(toolErr),
		})
	}
	return c.JSON(http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

// toolHandler handles POST /tools/:name. The request body is the bare
// argument object; the response is the tool's result payload.
func (s *Server) toolHandler(c *echo.Context) error {
	var args map[string]any
	if c.Request().ContentLength != 0 {
		if err := json.NewDecoder(c.Request().Body).Decode(&args); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]any{
				"error":     "request body must be a JSON object",
				"timestamp": time.Now().UTC(),
			})
		}
	}

	result, toolErr := s.dispatcher.Call(c.Request().Context(), c.Param("name"), args)
	if toolErr != nil {
		body := map[string]any{
			"error":     toolErr.Message,
			"timestamp": time.Now().UTC(),
		}
		if len(toolErr.Details) > 0 {
			body["details"] = toolErr.Details
		}
		return c.JSON(toolErrorStatus(toolErr), body)
	}

	// Unwrap the envelope: direct callers get the payload JSON itself.
	return c.JSON(http.StatusOK, json.RawMessage(result.Content[0].Text))
}
