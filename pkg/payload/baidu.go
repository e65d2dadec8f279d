package payload

import (
	"encoding/json"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/tools"
)

// BaiduRequest is an ERNIE chat body. The model is addressed by the endpoint
// slug in the URL, not by a body field.
type BaiduRequest struct {
	Messages        []BaiduMessage  `json:"messages"`
	Temperature     *float64        `json:"temperature,omitempty"`
	MaxOutputTokens *int            `json:"max_output_tokens,omitempty"`
	System          string          `json:"system,omitempty"`
	Stream          bool            `json:"stream,omitempty"`
	Functions       []BaiduFunction `json:"functions,omitempty"`
}

type BaiduMessage struct {
	Role         string             `json:"role"`
	Content      string             `json:"content"`
	Name         string             `json:"name,omitempty"`
	FunctionCall *BaiduFunctionCall `json:"function_call,omitempty"`
}

// BaiduFunctionCall carries arguments as stringified JSON, matching the wire
// format ERNIE produces.
type BaiduFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type BaiduFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// BuildBaidu renders the context as an ERNIE request. The dialect is
// text-only; the history is bridged into strict alternation, with function
// results riding the function role on the user side.
func BuildBaidu(cc *chat.ChatContext, specs []tools.ToolSpec) (*BaiduRequest, error) {
	if err := checkVision(cc); err != nil {
		return nil, err
	}
	if err := checkTools(cc, specs); err != nil {
		return nil, err
	}
	req := &BaiduRequest{
		Temperature:     cc.Temperature,
		MaxOutputTokens: cc.MaxTokens,
		System:          cc.SystemPrompt,
		Stream:          cc.Stream,
	}
	for _, m := range bridgeAlternation(cc.History) {
		req.Messages = append(req.Messages, baiduMessage(m))
	}
	for _, s := range specs {
		req.Functions = append(req.Functions, BaiduFunction{
			Name:        s.Name,
			Description: s.Description,
			Parameters:  s.Schema,
		})
	}
	return req, nil
}

func baiduMessage(m chat.Message) BaiduMessage {
	if m.Role == chat.RoleTool && m.ToolResult != nil {
		return BaiduMessage{
			Role:    "function",
			Name:    m.ToolResult.Name,
			Content: m.ToolResult.Content,
		}
	}
	role := "user"
	if m.Role == chat.RoleAssistant {
		role = "assistant"
	}
	out := BaiduMessage{Role: role, Content: m.Text()}
	if len(m.ToolCalls) > 0 {
		call := m.ToolCalls[0]
		out.FunctionCall = &BaiduFunctionCall{
			Name:      call.Name,
			Arguments: string(rawArgs(call.Arguments)),
		}
	}
	return out
}
