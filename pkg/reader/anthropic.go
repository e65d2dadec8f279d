package reader

import (
	"encoding/json"
)

// anthropicEvent covers every SSE event the Messages API streams. The event
// name is repeated in the payload's type field, so SSE event lines are not
// needed for dispatch.
type anthropicEvent struct {
	Type         string                 `json:"type"`
	Index        int                    `json:"index"`
	Message      *anthropicMessageInfo  `json:"message"`
	ContentBlock *anthropicContentBlock `json:"content_block"`
	Delta        *anthropicEventDelta   `json:"delta"`
	Usage        *anthropicUsage        `json:"usage"`
	Error        *wireError             `json:"error"`
}

type anthropicMessageInfo struct {
	Role  string         `json:"role"`
	Usage anthropicUsage `json:"usage"`
}

type anthropicContentBlock struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
}

type anthropicEventDelta struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	PartialJSON string `json:"partial_json"`
	Thinking    string `json:"thinking"`
	StopReason  string `json:"stop_reason"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// anthropicDecoder dispatches Messages API events. Input tokens arrive once
// in message_start and output tokens as a cumulative total in message_delta,
// so both replace. Tool-use block names arrive whole in content_block_start;
// only the argument JSON streams afterwards.
type anthropicDecoder struct{}

func (anthropicDecoder) decode(e *Engine, unit []byte, cb Callbacks) error {
	var ev anthropicEvent
	if err := json.Unmarshal(unit, &ev); err != nil {
		e.skip(unit, err)
		return nil
	}
	switch ev.Type {
	case "message_start":
		if ev.Message != nil {
			e.replaceUsage(ev.Message.Usage.InputTokens, ev.Message.Usage.OutputTokens)
		}
	case "content_block_start":
		if ev.ContentBlock != nil && ev.ContentBlock.Type == "tool_use" {
			b := e.builder(ev.Index)
			b.merge(ev.ContentBlock.ID, ev.ContentBlock.Name, "")
			b.announce(cb)
		}
	case "content_block_delta":
		if ev.Delta == nil {
			return nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			if ev.Delta.Text != "" {
				e.content.WriteString(ev.Delta.Text)
				cb.progress(ev.Delta.Text)
			}
		case "input_json_delta":
			if ev.Delta.PartialJSON != "" {
				e.builder(ev.Index).merge("", "", ev.Delta.PartialJSON)
			}
		case "thinking_delta":
			if ev.Delta.Thinking != "" {
				e.reasoning.WriteString(ev.Delta.Thinking)
				cb.reasoning(ev.Delta.Thinking)
			}
		}
	case "message_delta":
		if ev.Delta != nil && ev.Delta.StopReason != "" {
			e.finish = ev.Delta.StopReason
		}
		if ev.Usage != nil {
			e.replaceUsage(ev.Usage.InputTokens, ev.Usage.OutputTokens)
		}
	case "message_stop":
		e.finished = true
	case "error":
		if ev.Error != nil {
			return ev.Error.wrap()
		}
	case "ping", "content_block_stop":
		// Nothing to do.
	}
	return nil
}
