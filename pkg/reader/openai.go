package reader

import (
	"encoding/json"
	"fmt"

	"github.com/verity-ai/chatstream-go/pkg/chat"
)

// openAIStreamChunk is one SSE data payload from an OpenAI-compatible
// endpoint. The same shape serves OpenAI, Azure, Grok, Perplexity, Mistral,
// Zhipu, and OpenRouter.
type openAIStreamChunk struct {
	ID      string               `json:"id"`
	Choices []openAIStreamChoice `json:"choices"`
	Usage   *openAIUsage         `json:"usage"`
	Error   *wireError           `json:"error"`
}

type openAIStreamChoice struct {
	Index        int         `json:"index"`
	Delta        openAIDelta `json:"delta"`
	FinishReason string      `json:"finish_reason"`
}

type openAIDelta struct {
	Role             string                `json:"role"`
	Content          string                `json:"content"`
	ReasoningContent string                `json:"reasoning_content"`
	ToolCalls        []openAIToolCallDelta `json:"tool_calls"`
}

type openAIToolCallDelta struct {
	Index    int                  `json:"index"`
	ID       string               `json:"id"`
	Type     string               `json:"type"`
	Function *openAIFunctionDelta `json:"function"`
}

type openAIFunctionDelta struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// wireError is the error body vendors embed in otherwise healthy streams.
type wireError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func (e *wireError) wrap() error {
	if e.Type != "" {
		return fmt.Errorf("%w: %s: %s", chat.ErrVendorError, e.Type, e.Message)
	}
	return fmt.Errorf("%w: %s", chat.ErrVendorError, e.Message)
}

// openAIDecoder handles the chat.completion.chunk dialect. Token usage
// arrives as cumulative totals in a trailing chunk, so reports replace.
// finish_reason is recorded but consumption continues until [DONE] or stream
// close, because the usage chunk trails the finish chunk.
type openAIDecoder struct{}

func (openAIDecoder) decode(e *Engine, unit []byte, cb Callbacks) error {
	if string(unit) == doneSentinel {
		e.finished = true
		return nil
	}
	var chunk openAIStreamChunk
	if err := json.Unmarshal(unit, &chunk); err != nil {
		e.skip(unit, err)
		return nil
	}
	if chunk.Error != nil && chunk.Error.Message != "" {
		return chunk.Error.wrap()
	}
	if chunk.Usage != nil {
		e.replaceUsage(chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens)
	}
	for _, choice := range chunk.Choices {
		if choice.Delta.ReasoningContent != "" {
			e.reasoning.WriteString(choice.Delta.ReasoningContent)
			cb.reasoning(choice.Delta.ReasoningContent)
		}
		if choice.Delta.Content != "" {
			e.content.WriteString(choice.Delta.Content)
			cb.progress(choice.Delta.Content)
		}
		for _, call := range choice.Delta.ToolCalls {
			if call.Index < 0 {
				continue
			}
			b := e.builder(call.Index)
			var name, args string
			if call.Function != nil {
				name = call.Function.Name
				args = call.Function.Arguments
			}
			b.merge(call.ID, name, args)
			b.announce(cb)
		}
		if choice.FinishReason != "" {
			e.finish = choice.FinishReason
		}
	}
	return nil
}
