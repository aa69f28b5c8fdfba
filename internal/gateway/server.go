package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/oh-my-linear/gateway/internal/apperr"
)

// rpcRequest/rpcResponse mirror the same JSON-RPC-2.0-ish envelope the
// upstream session speaks (internal/upstream/wire.go) — no MCP/JSON-RPC
// library exists anywhere in the example pack, so the gateway's own
// caller-facing surface is hand-rolled on the identical shape rather than
// inventing a second wire format.
type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  rpcToolCall     `json:"params"`
}

type rpcToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcErrorBody   `json:"error,omitempty"`
}

type rpcErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ServeStdio reads newline-delimited JSON-RPC tool-call requests from r and
// writes one response per line to w until r is exhausted or ctx is done.
// It dispatches each call through the Router and back out; its own wire shape
// is left unspecified, so it reuses the session manager's JSON-RPC
// envelope.
func (a *App) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			log.Printf("[gateway] dropping malformed request: %v", err)
			continue
		}

		resp := a.handleOne(ctx, req)
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
	return scanner.Err()
}

func (a *App) handleOne(ctx context.Context, req rpcRequest) rpcResponse {
	value, err := a.Dispatch(ctx, req.Params.Name, req.Params.Arguments)
	if err != nil {
		code := "error"
		var toolErr *apperr.OfficialToolError
		if errors.As(err, &toolErr) {
			code = toolErr.Code
		}
		return rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcErrorBody{Code: code, Message: err.Error()},
		}
	}
	return rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: value}
}
