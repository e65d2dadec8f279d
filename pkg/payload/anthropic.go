package payload

import (
	"encoding/json"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/tools"
)

// anthropicDefaultMaxTokens backstops the required max_tokens field when
// neither the settings nor the descriptor supply a value.
const anthropicDefaultMaxTokens = 4096

// AnthropicRequest is a Messages API body.
type AnthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Messages    []AnthropicMessage `json:"messages"`
	Temperature *float64           `json:"temperature,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
	Tools       []AnthropicTool    `json:"tools,omitempty"`
}

type AnthropicMessage struct {
	Role    string           `json:"role"`
	Content []AnthropicBlock `json:"content"`
}

// AnthropicBlock is one content block; Type selects which fields apply.
type AnthropicBlock struct {
	Type      string                `json:"type"`
	Text      string                `json:"text,omitempty"`
	Source    *AnthropicImageSource `json:"source,omitempty"`
	ID        string                `json:"id,omitempty"`
	Name      string                `json:"name,omitempty"`
	Input     json.RawMessage       `json:"input,omitempty"`
	ToolUseID string                `json:"tool_use_id,omitempty"`
	Content   string                `json:"content,omitempty"`
}

type AnthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type,omitempty"`
	Data      string `json:"data,omitempty"`
	URL       string `json:"url,omitempty"`
}

type AnthropicTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// BuildAnthropic renders the context as a Messages API request. The system
// prompt rides the top-level field, the history is bridged into strict
// user/assistant alternation, and max_tokens is always set because the API
// requires it.
func BuildAnthropic(cc *chat.ChatContext, specs []tools.ToolSpec) (*AnthropicRequest, error) {
	if err := checkVision(cc); err != nil {
		return nil, err
	}
	if err := checkTools(cc, specs); err != nil {
		return nil, err
	}
	maxTokens := anthropicDefaultMaxTokens
	if cc.MaxTokens != nil {
		maxTokens = *cc.MaxTokens
	} else if cc.Provider.MaxTokens.Default > 0 {
		maxTokens = cc.Provider.MaxTokens.Default
	}
	req := &AnthropicRequest{
		Model:       cc.Model.ID,
		MaxTokens:   maxTokens,
		System:      cc.SystemPrompt,
		Temperature: cc.Temperature,
		Stream:      cc.Stream,
	}
	for _, m := range bridgeAlternation(cc.History) {
		req.Messages = append(req.Messages, anthropicMessage(m))
	}
	for _, s := range specs {
		schema := s.Schema
		if len(schema) == 0 {
			schema = json.RawMessage(`{"type":"object"}`)
		}
		req.Tools = append(req.Tools, AnthropicTool{
			Name:        s.Name,
			Description: s.Description,
			InputSchema: schema,
		})
	}
	return req, nil
}

func anthropicMessage(m chat.Message) AnthropicMessage {
	if m.Role == chat.RoleTool && m.ToolResult != nil {
		return AnthropicMessage{
			Role: "user",
			Content: []AnthropicBlock{{
				Type:      "tool_result",
				ToolUseID: m.ToolResult.CallID,
				Content:   m.ToolResult.Content,
			}},
		}
	}
	role := "user"
	if m.Role == chat.RoleAssistant {
		role = "assistant"
	}
	var blocks []AnthropicBlock
	if len(m.Parts) > 0 {
		blocks = anthropicBlocks(m.Parts)
	} else if m.Content != "" {
		blocks = []AnthropicBlock{{Type: "text", Text: m.Content}}
	}
	for _, call := range m.ToolCalls {
		blocks = append(blocks, AnthropicBlock{
			Type:  "tool_use",
			ID:    call.ID,
			Name:  call.Name,
			Input: rawArgs(call.Arguments),
		})
	}
	// The API rejects empty content arrays.
	if len(blocks) == 0 {
		blocks = []AnthropicBlock{{Type: "text", Text: bridgeFiller}}
	}
	return AnthropicMessage{Role: role, Content: blocks}
}

func anthropicBlocks(parts []chat.ContentPart) []AnthropicBlock {
	out := make([]AnthropicBlock, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case chat.PartImage:
			source := &AnthropicImageSource{Type: "url", URL: p.URL}
			if p.Inline() {
				source = &AnthropicImageSource{
					Type:      "base64",
					MediaType: partMIME(p),
					Data:      partBase64(p),
				}
			}
			out = append(out, AnthropicBlock{Type: "image", Source: source})
		case chat.PartFile:
			out = append(out, AnthropicBlock{Type: "text", Text: fileText(p)})
		default:
			if p.Text != "" {
				out = append(out, AnthropicBlock{Type: "text", Text: p.Text})
			}
		}
	}
	return out
}
