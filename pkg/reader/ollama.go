package reader

import (
	"encoding/json"
	"fmt"

	"github.com/verity-ai/chatstream-go/pkg/chat"
)

// ollamaChunk is one NDJSON line from the /api/chat endpoint.
type ollamaChunk struct {
	Model           string         `json:"model"`
	Message         *ollamaMessage `json:"message"`
	Done            bool           `json:"done"`
	DoneReason      string         `json:"done_reason"`
	PromptEvalCount int            `json:"prompt_eval_count"`
	EvalCount       int            `json:"eval_count"`
	Error           string         `json:"error"`
}

type ollamaMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	Thinking  string           `json:"thinking"`
	ToolCalls []ollamaToolCall `json:"tool_calls"`
}

type ollamaToolCall struct {
	Function ollamaFunction `json:"function"`
}

type ollamaFunction struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ollamaDecoder handles the local NDJSON dialect. Tool calls are atomic with
// object-valued arguments. Token counts arrive once on the final done line,
// so reports replace.
type ollamaDecoder struct{}

func (ollamaDecoder) decode(e *Engine, unit []byte, cb Callbacks) error {
	var chunk ollamaChunk
	if err := json.Unmarshal(unit, &chunk); err != nil {
		e.skip(unit, err)
		return nil
	}
	if chunk.Error != "" {
		return fmt.Errorf("%w: %s", chat.ErrVendorError, chunk.Error)
	}
	if msg := chunk.Message; msg != nil {
		if msg.Thinking != "" {
			e.reasoning.WriteString(msg.Thinking)
			cb.reasoning(msg.Thinking)
		}
		if msg.Content != "" {
			e.content.WriteString(msg.Content)
			cb.progress(msg.Content)
		}
		for _, call := range msg.ToolCalls {
			if call.Function.Name == "" {
				continue
			}
			b := e.builder(e.nextIndex())
			b.merge("", call.Function.Name, string(call.Function.Arguments))
			b.announce(cb)
		}
	}
	if chunk.Done {
		e.replaceUsage(chunk.PromptEvalCount, chunk.EvalCount)
		if chunk.DoneReason != "" {
			e.finish = chunk.DoneReason
		}
		e.finished = true
	}
	return nil
}
