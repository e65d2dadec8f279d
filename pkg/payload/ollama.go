package payload

import (
	"encoding/json"
	"fmt"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/tools"
)

// OllamaRequest is an /api/chat body. Stream is encoded unconditionally
// because the server defaults to streaming when the field is absent.
type OllamaRequest struct {
	Model    string          `json:"model"`
	Messages []OllamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  *OllamaOptions  `json:"options,omitempty"`
	Tools    []OpenAITool    `json:"tools,omitempty"`
}

type OllamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Images    []string         `json:"images,omitempty"`
	ToolCalls []OllamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type OllamaToolCall struct {
	Function OllamaToolFunction `json:"function"`
}

// OllamaToolFunction carries object-valued arguments, unlike the OpenAI wire
// shape it otherwise mirrors.
type OllamaToolFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

type OllamaOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  *int     `json:"num_predict,omitempty"`
}

// BuildOllama renders the context as a local /api/chat request. Images must
// be inline; the server cannot fetch URLs.
func BuildOllama(cc *chat.ChatContext, specs []tools.ToolSpec) (*OllamaRequest, error) {
	if err := checkVision(cc); err != nil {
		return nil, err
	}
	if err := checkTools(cc, specs); err != nil {
		return nil, err
	}
	req := &OllamaRequest{
		Model:  cc.Model.ID,
		Stream: cc.Stream,
	}
	if cc.Temperature != nil || cc.MaxTokens != nil {
		req.Options = &OllamaOptions{
			Temperature: cc.Temperature,
			NumPredict:  cc.MaxTokens,
		}
	}
	if cc.SystemPrompt != "" {
		req.Messages = append(req.Messages, OllamaMessage{Role: "system", Content: cc.SystemPrompt})
	}
	for _, m := range cc.History {
		msg, err := ollamaMessage(m)
		if err != nil {
			return nil, err
		}
		req.Messages = append(req.Messages, msg)
	}
	for _, s := range specs {
		req.Tools = append(req.Tools, OpenAITool{
			Type: "function",
			Function: OpenAIToolDef{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Schema,
			},
		})
	}
	return req, nil
}

func ollamaMessage(m chat.Message) (OllamaMessage, error) {
	if m.Role == chat.RoleTool && m.ToolResult != nil {
		return OllamaMessage{
			Role:     "tool",
			ToolName: m.ToolResult.Name,
			Content:  m.ToolResult.Content,
		}, nil
	}
	out := OllamaMessage{Role: string(m.Role), Content: m.Text()}
	for _, p := range m.Parts {
		if p.Kind != chat.PartImage {
			continue
		}
		if !p.Inline() {
			return OllamaMessage{}, fmt.Errorf("ollama requires inline image data, got url %q", p.URL)
		}
		out.Images = append(out.Images, partBase64(p))
	}
	for _, call := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, OllamaToolCall{
			Function: OllamaToolFunction{
				Name:      call.Name,
				Arguments: rawArgs(call.Arguments),
			},
		})
	}
	return out, nil
}
