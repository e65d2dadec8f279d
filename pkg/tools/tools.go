// Package tools defines the invoker boundary between the chat service and
// tool implementations, whether registered locally or served by an MCP
// server.
package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/verity-ai/chatstream-go/pkg/chat"
)

// ToolSpec describes one callable tool in vendor-neutral form. Schema holds
// the JSON Schema object for the tool's arguments; the payload builders
// translate it into each vendor's tool declaration shape.
type ToolSpec struct {
	Name        string
	Description string
	Schema      json.RawMessage
}

// Invoker lists and executes tools.
type Invoker interface {
	ListTools(ctx context.Context) ([]ToolSpec, error)
	CallTool(ctx context.Context, name string, args json.RawMessage) (*chat.ToolResult, error)
}

// SanitizeResult returns a wire-safe copy of a tool result. MIME describes
// the content for client-side rendering only and must never reach a vendor
// payload; the copy drops it. Content is forced to valid UTF-8 so it can be
// embedded in a JSON body.
func SanitizeResult(r *chat.ToolResult) *chat.ToolResult {
	if r == nil {
		return nil
	}
	return &chat.ToolResult{
		CallID:  r.CallID,
		Name:    r.Name,
		Content: strings.ToValidUTF8(r.Content, "�"),
	}
}
