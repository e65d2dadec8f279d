package reader

import (
	"encoding/json"
	"fmt"

	"github.com/verity-ai/chatstream-go/pkg/chat"
)

// baiduChunk is one ERNIE stream frame. The same shape serves non-streaming
// responses, where result carries the full completion and is_end is true.
type baiduChunk struct {
	ID           string             `json:"id"`
	Result       string             `json:"result"`
	IsEnd        bool               `json:"is_end"`
	FinishReason string             `json:"finish_reason"`
	FunctionCall *baiduFunctionCall `json:"function_call"`
	Usage        *baiduUsage        `json:"usage"`
	ErrorCode    int                `json:"error_code"`
	ErrorMsg     string             `json:"error_msg"`
}

type baiduFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
	Thoughts  string `json:"thoughts"`
}

type baiduUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// baiduDecoder handles ERNIE frames. Errors arrive as error_code inside an
// HTTP 200 body. Function calls are atomic, with the model's rationale in
// thoughts. Usage totals are cumulative, so reports replace; is_end is the
// terminal signal.
type baiduDecoder struct{}

func (baiduDecoder) decode(e *Engine, unit []byte, cb Callbacks) error {
	var chunk baiduChunk
	if err := json.Unmarshal(unit, &chunk); err != nil {
		e.skip(unit, err)
		return nil
	}
	if chunk.ErrorCode != 0 {
		return fmt.Errorf("%w: ernie error %d: %s", chat.ErrVendorError, chunk.ErrorCode, chunk.ErrorMsg)
	}
	if chunk.Result != "" {
		e.content.WriteString(chunk.Result)
		cb.progress(chunk.Result)
	}
	if fc := chunk.FunctionCall; fc != nil && fc.Name != "" {
		if fc.Thoughts != "" {
			e.reasoning.WriteString(fc.Thoughts)
			cb.reasoning(fc.Thoughts)
		}
		b := e.builder(e.nextIndex())
		b.merge("", fc.Name, fc.Arguments)
		b.announce(cb)
	}
	if chunk.Usage != nil {
		e.replaceUsage(chunk.Usage.PromptTokens, chunk.Usage.CompletionTokens)
	}
	if chunk.FinishReason != "" {
		e.finish = chunk.FinishReason
	}
	if chunk.IsEnd {
		e.finished = true
	}
	return nil
}
