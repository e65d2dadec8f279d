package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/verity-ai/chatstream-go/pkg/chat"
)

// MCPInvoker serves tools from one MCP server reached over a stdio command
// transport. Tool specs are fetched once at connect time.
type MCPInvoker struct {
	session *mcp.ClientSession
	specs   []ToolSpec
}

// NewMCPInvoker launches the server command, connects, and lists its tools.
func NewMCPInvoker(ctx context.Context, command string, args ...string) (*MCPInvoker, error) {
	impl := &mcp.Implementation{Name: "chatstream", Version: "0.1.0"}
	client := mcp.NewClient(impl, nil)

	transport := &mcp.CommandTransport{Command: exec.Command(command, args...)}
	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("connect to mcp server: %w", err)
	}

	var specs []ToolSpec
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			session.Close()
			return nil, fmt.Errorf("list mcp tools: %w", err)
		}
		specs = append(specs, ToolSpec{
			Name:        tool.Name,
			Description: tool.Description,
			Schema:      marshalSchema(tool.InputSchema),
		})
	}

	return &MCPInvoker{session: session, specs: specs}, nil
}

// marshalSchema renders the SDK's loosely typed input schema as raw JSON,
// defaulting to an empty object schema when the server sent none.
func marshalSchema(schema any) json.RawMessage {
	if schema == nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	data, err := json.Marshal(schema)
	if err != nil || string(data) == "null" {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}

// ListTools returns the specs collected at connect time.
func (m *MCPInvoker) ListTools(ctx context.Context) ([]ToolSpec, error) {
	out := make([]ToolSpec, len(m.specs))
	copy(out, m.specs)
	return out, nil
}

// CallTool invokes a server tool and flattens its content blocks to text.
func (m *MCPInvoker) CallTool(ctx context.Context, name string, args json.RawMessage) (*chat.ToolResult, error) {
	var params map[string]any
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("tool %s: invalid arguments: %w", name, err)
		}
	}
	result, err := m.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: params})
	if err != nil {
		return nil, fmt.Errorf("call tool %s: %w", name, err)
	}
	content := flattenContent(result.Content)
	if result.IsError {
		if content == "" {
			content = "tool returned an error"
		}
		return nil, fmt.Errorf("tool %s: %s", name, content)
	}
	return &chat.ToolResult{Name: name, Content: content}, nil
}

// Close shuts the session down, terminating the server process.
func (m *MCPInvoker) Close() error {
	if m.session == nil {
		return nil
	}
	return m.session.Close()
}

// flattenContent joins content blocks into plain text. Binary blocks
// contribute a bare placeholder; their media type stays on the client side of
// the boundary.
func flattenContent(blocks []mcp.Content) string {
	var parts []string
	for _, block := range blocks {
		switch c := block.(type) {
		case *mcp.TextContent:
			parts = append(parts, c.Text)
		case *mcp.ImageContent:
			parts = append(parts, "[image]")
		case *mcp.AudioContent:
			parts = append(parts, "[audio]")
		default:
			if data, err := json.Marshal(block); err == nil {
				parts = append(parts, string(data))
			}
		}
	}
	return strings.Join(parts, "\n")
}
