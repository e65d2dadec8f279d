package payload

import (
	"bytes"
	"encoding/json"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/tools"
)

// OpenAIRequest is a chat completions body. The same shape serves OpenAI,
// Azure, Grok, Perplexity, Mistral, Zhipu, and OpenRouter.
type OpenAIRequest struct {
	Model         string               `json:"model"`
	Messages      []OpenAIMessage      `json:"messages"`
	Temperature   *float64             `json:"temperature,omitempty"`
	MaxTokens     *int                 `json:"max_tokens,omitempty"`
	Stream        bool                 `json:"stream,omitempty"`
	StreamOptions *OpenAIStreamOptions `json:"stream_options,omitempty"`
	Tools         []OpenAITool         `json:"tools,omitempty"`
}

// OpenAIStreamOptions requests the trailing usage chunk on streamed
// completions.
type OpenAIStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type OpenAIMessage struct {
	Role       string           `json:"role"`
	Content    OpenAIContent    `json:"content"`
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

// OpenAIContent is either a plain string or an array of typed parts; vendors
// accept and produce both encodings interchangeably.
type OpenAIContent struct {
	Text  string
	Parts []OpenAIContentPart
}

func (c OpenAIContent) MarshalJSON() ([]byte, error) {
	if len(c.Parts) > 0 {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

func (c *OpenAIContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = OpenAIContent{}
		return nil
	}
	if data[0] == '[' {
		return json.Unmarshal(data, &c.Parts)
	}
	return json.Unmarshal(data, &c.Text)
}

type OpenAIContentPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *OpenAIImageURL `json:"image_url,omitempty"`
}

type OpenAIImageURL struct {
	URL string `json:"url"`
}

type OpenAIToolCall struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Function OpenAIFunction `json:"function"`
}

type OpenAIFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type OpenAITool struct {
	Type     string        `json:"type"`
	Function OpenAIToolDef `json:"function"`
}

type OpenAIToolDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// BuildOpenAI renders the context as a chat completions request. The system
// prompt leads the message list; streamed requests ask for the trailing usage
// chunk.
func BuildOpenAI(cc *chat.ChatContext, specs []tools.ToolSpec) (*OpenAIRequest, error) {
	if err := checkVision(cc); err != nil {
		return nil, err
	}
	if err := checkTools(cc, specs); err != nil {
		return nil, err
	}
	req := &OpenAIRequest{
		Model:       cc.Model.ID,
		Temperature: cc.Temperature,
		MaxTokens:   cc.MaxTokens,
		Stream:      cc.Stream,
	}
	if cc.Stream {
		req.StreamOptions = &OpenAIStreamOptions{IncludeUsage: true}
	}
	if cc.SystemPrompt != "" {
		req.Messages = append(req.Messages, OpenAIMessage{
			Role:    "system",
			Content: OpenAIContent{Text: cc.SystemPrompt},
		})
	}
	for _, m := range cc.History {
		req.Messages = append(req.Messages, openAIMessage(m))
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

func openAIMessage(m chat.Message) OpenAIMessage {
	if m.Role == chat.RoleTool && m.ToolResult != nil {
		return OpenAIMessage{
			Role:       "tool",
			ToolCallID: m.ToolResult.CallID,
			Content:    OpenAIContent{Text: m.ToolResult.Content},
		}
	}
	out := OpenAIMessage{Role: string(m.Role), Content: OpenAIContent{Text: m.Content}}
	for _, call := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, OpenAIToolCall{
			ID:   call.ID,
			Type: "function",
			Function: OpenAIFunction{
				Name:      call.Name,
				Arguments: call.Arguments,
			},
		})
	}
	if len(m.Parts) > 0 {
		out.Content = OpenAIContent{Parts: openAIParts(m.Parts)}
	}
	return out
}

func openAIParts(parts []chat.ContentPart) []OpenAIContentPart {
	out := make([]OpenAIContentPart, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case chat.PartImage:
			url := p.URL
			if p.Inline() {
				url = dataURI(p)
			}
			out = append(out, OpenAIContentPart{Type: "image_url", ImageURL: &OpenAIImageURL{URL: url}})
		case chat.PartFile:
			out = append(out, OpenAIContentPart{Type: "text", Text: fileText(p)})
		default:
			out = append(out, OpenAIContentPart{Type: "text", Text: p.Text})
		}
	}
	return out
}
