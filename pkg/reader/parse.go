package reader

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/provider"
)

// ParseComplete decodes a non-streaming response body into the same
// ReadResult shape a streamed read produces.
func ParseComplete(family provider.Family, data []byte) (chat.ReadResult, error) {
	switch family {
	case provider.FamilyOpenAI:
		return parseOpenAIComplete(data)
	case provider.FamilyAnthropic:
		return parseAnthropicComplete(data)
	case provider.FamilyGoogle:
		return parseGoogleComplete(data)
	case provider.FamilyBaidu:
		return parseBaiduComplete(data)
	case provider.FamilyOllama:
		return parseOllamaComplete(data)
	default:
		return chat.ReadResult{}, fmt.Errorf("unknown provider family %q", family)
	}
}

type openAIResponse struct {
	ID      string                 `json:"id"`
	Choices []openAIResponseChoice `json:"choices"`
	Usage   *openAIUsage           `json:"usage"`
	Error   *wireError             `json:"error"`
}

type openAIResponseChoice struct {
	Message      openAIResponseMessage `json:"message"`
	FinishReason string                `json:"finish_reason"`
}

type openAIResponseMessage struct {
	Role             string                   `json:"role"`
	Content          messageText              `json:"content"`
	ReasoningContent string                   `json:"reasoning_content"`
	ToolCalls        []openAIResponseToolCall `json:"tool_calls"`
}

type openAIResponseToolCall struct {
	ID       string              `json:"id"`
	Type     string              `json:"type"`
	Function openAIFunctionDelta `json:"function"`
}

// messageText accepts either a plain string or an array of typed parts,
// which OpenAI-compatible vendors use interchangeably.
type messageText string

func (t *messageText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = messageText(s)
		return nil
	}
	if data[0] == '[' {
		var parts []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		var b strings.Builder
		for _, p := range parts {
			if p.Type == "text" {
				b.WriteString(p.Text)
			}
		}
		*t = messageText(b.String())
		return nil
	}
	return fmt.Errorf("unsupported content payload: %s", string(data))
}

func parseOpenAIComplete(data []byte) (chat.ReadResult, error) {
	var resp openAIResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return chat.ReadResult{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return chat.ReadResult{}, resp.Error.wrap()
	}
	res := chat.ReadResult{Chunks: 1}
	if resp.Usage != nil {
		res.Usage.InputTokens = resp.Usage.PromptTokens
		res.Usage.OutputTokens = resp.Usage.CompletionTokens
	}
	if len(resp.Choices) == 0 {
		return res, nil
	}
	choice := resp.Choices[0]
	res.Content = string(choice.Message.Content)
	res.Reasoning = choice.Message.ReasoningContent
	res.FinishReason = choice.FinishReason
	for _, call := range choice.Message.ToolCalls {
		if call.Function.Name == "" {
			continue
		}
		res.Tool = &chat.ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		}
		break
	}
	return res, nil
}

type anthropicResponse struct {
	Type       string                   `json:"type"`
	Role       string                   `json:"role"`
	Content    []anthropicResponseBlock `json:"content"`
	StopReason string                   `json:"stop_reason"`
	Usage      anthropicUsage           `json:"usage"`
	Error      *wireError               `json:"error"`
}

type anthropicResponseBlock struct {
	Type     string          `json:"type"`
	Text     string          `json:"text"`
	Thinking string          `json:"thinking"`
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Input    json.RawMessage `json:"input"`
}

func parseAnthropicComplete(data []byte) (chat.ReadResult, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return chat.ReadResult{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Type == "error" && resp.Error != nil {
		return chat.ReadResult{}, resp.Error.wrap()
	}
	res := chat.ReadResult{
		FinishReason: resp.StopReason,
		Chunks:       1,
	}
	res.Usage.InputTokens = resp.Usage.InputTokens
	res.Usage.OutputTokens = resp.Usage.OutputTokens
	var content, reasoning strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content.WriteString(block.Text)
		case "thinking":
			reasoning.WriteString(block.Thinking)
		case "tool_use":
			if res.Tool == nil && block.Name != "" {
				res.Tool = &chat.ToolCall{
					ID:        block.ID,
					Name:      block.Name,
					Arguments: string(block.Input),
				}
			}
		}
	}
	res.Content = content.String()
	res.Reasoning = reasoning.String()
	return res, nil
}

func parseGoogleComplete(data []byte) (chat.ReadResult, error) {
	var resp googleResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return chat.ReadResult{}, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return chat.ReadResult{}, fmt.Errorf("%w: %s: %s", chat.ErrVendorError, resp.Error.Status, resp.Error.Message)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return chat.ReadResult{}, fmt.Errorf("%w: prompt blocked: %s", chat.ErrVendorError, resp.PromptFeedback.BlockReason)
	}
	res := chat.ReadResult{Chunks: 1}
	if resp.UsageMetadata != nil {
		res.Usage.InputTokens = resp.UsageMetadata.PromptTokenCount
		res.Usage.OutputTokens = resp.UsageMetadata.CandidatesTokenCount
	}
	if len(resp.Candidates) == 0 {
		return res, nil
	}
	cand := resp.Candidates[0]
	res.FinishReason = cand.FinishReason
	var content, reasoning strings.Builder
	for _, part := range cand.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			if res.Tool == nil {
				res.Tool = &chat.ToolCall{
					Name:      part.FunctionCall.Name,
					Arguments: string(part.FunctionCall.Args),
				}
			}
		case part.Thought:
			reasoning.WriteString(part.Text)
		default:
			content.WriteString(part.Text)
		}
	}
	res.Content = content.String()
	res.Reasoning = reasoning.String()
	return res, nil
}

func parseBaiduComplete(data []byte) (chat.ReadResult, error) {
	var chunk baiduChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return chat.ReadResult{}, fmt.Errorf("decode response: %w", err)
	}
	if chunk.ErrorCode != 0 {
		return chat.ReadResult{}, fmt.Errorf("%w: ernie error %d: %s", chat.ErrVendorError, chunk.ErrorCode, chunk.ErrorMsg)
	}
	res := chat.ReadResult{
		Content:      chunk.Result,
		FinishReason: chunk.FinishReason,
		Chunks:       1,
	}
	if fc := chunk.FunctionCall; fc != nil && fc.Name != "" {
		res.Reasoning = fc.Thoughts
		res.Tool = &chat.ToolCall{Name: fc.Name, Arguments: fc.Arguments}
	}
	if chunk.Usage != nil {
		res.Usage.InputTokens = chunk.Usage.PromptTokens
		res.Usage.OutputTokens = chunk.Usage.CompletionTokens
	}
	return res, nil
}

func parseOllamaComplete(data []byte) (chat.ReadResult, error) {
	var chunk ollamaChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		return chat.ReadResult{}, fmt.Errorf("decode response: %w", err)
	}
	if chunk.Error != "" {
		return chat.ReadResult{}, fmt.Errorf("%w: %s", chat.ErrVendorError, chunk.Error)
	}
	res := chat.ReadResult{
		FinishReason: chunk.DoneReason,
		Chunks:       1,
	}
	res.Usage.InputTokens = chunk.PromptEvalCount
	res.Usage.OutputTokens = chunk.EvalCount
	if msg := chunk.Message; msg != nil {
		res.Content = msg.Content
		res.Reasoning = msg.Thinking
		for _, call := range msg.ToolCalls {
			if call.Function.Name == "" {
				continue
			}
			res.Tool = &chat.ToolCall{
				Name:      call.Function.Name,
				Arguments: string(call.Function.Arguments),
			}
			break
		}
	}
	return res, nil
}
