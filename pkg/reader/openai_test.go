package reader

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/provider"
)

func TestOpenAIStreamHello(t *testing.T) {
	t.Parallel()

	stream := sse(
		`{"choices":[{"delta":{"role":"assistant","content":"Hel"},"finish_reason":null}]}`,
		`{"choices":[{"delta":{"content":"lo"},"finish_reason":"stop"}]}`,
		`[DONE]`,
	)

	res, rec, err := readAll(t, provider.FamilyOpenAI, [][]byte{stream})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := []string{"progress:Hel", "progress:lo"}
	if len(rec.events) != 2 || rec.events[0] != want[0] || rec.events[1] != want[1] {
		t.Fatalf("events: %v", rec.events)
	}
	if res.Content != "Hello" {
		t.Fatalf("content: %q", res.Content)
	}
	if res.FinishReason != "stop" {
		t.Fatalf("finish reason: %q", res.FinishReason)
	}
}

func splitN(s string, n int) []string {
	if n <= 1 {
		return []string{s}
	}
	if n > len(s) {
		n = len(s)
	}
	parts := make([]string, 0, n)
	base, rem := len(s)/n, len(s)%n
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		parts = append(parts, s[start:start+size])
		start += size
	}
	return parts
}

func toolCallFrames(name, args string, n int) []string {
	parts := splitN(args, n)
	frames := make([]string, 0, len(parts)+1)
	for i, p := range parts {
		enc, _ := json.Marshal(p)
		if i == 0 {
			frames = append(frames, fmt.Sprintf(
				`{"choices":[{"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_1","type":"function","function":{"name":%q,"arguments":%s}}]},"finish_reason":null}]}`,
				name, enc))
			continue
		}
		frames = append(frames, fmt.Sprintf(
			`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":%s}}]},"finish_reason":null}]}`,
			enc))
	}
	frames = append(frames, `{"choices":[{"delta":{},"finish_reason":"tool_calls"}]}`)
	return frames
}

func TestOpenAIToolArgsSplitAcrossChunks(t *testing.T) {
	t.Parallel()

	const args = `{"city":"Boston","units":"metric"}`
	for _, n := range []int{1, 2, 5, 20} {
		t.Run(fmt.Sprintf("chunks=%d", n), func(t *testing.T) {
			t.Parallel()

			frames := toolCallFrames("lookup_weather", args, n)
			frames = append(frames, `[DONE]`)
			res, rec, err := readAll(t, provider.FamilyOpenAI, [][]byte{sse(frames...)})
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if len(rec.events) != 1 || rec.events[0] != "tool:lookup_weather" {
				t.Fatalf("events: %v", rec.events)
			}
			if res.Tool == nil || res.Tool.Name != "lookup_weather" {
				t.Fatalf("tool: %+v", res.Tool)
			}
			if res.Tool.Arguments != args {
				t.Fatalf("arguments reconstruction: %q", res.Tool.Arguments)
			}
			if res.Tool.ID != "call_1" {
				t.Fatalf("tool id: %q", res.Tool.ID)
			}
			if res.FinishReason != "tool_calls" {
				t.Fatalf("finish reason: %q", res.FinishReason)
			}
		})
	}
}

func TestOpenAIEmbeddedErrorStopsStream(t *testing.T) {
	t.Parallel()

	stream := sse(
		`{"choices":[{"delta":{"content":"Hel"},"finish_reason":null}]}`,
		`{"error":{"message":"rate limited","type":"rate_limit_error","code":"rate_limit"}}`,
		`{"choices":[{"delta":{"content":" never delivered"},"finish_reason":"stop"}]}`,
		`[DONE]`,
	)

	res, rec, err := readAll(t, provider.FamilyOpenAI, [][]byte{stream})
	if !errors.Is(err, chat.ErrVendorError) {
		t.Fatalf("expected vendor error, got %v", err)
	}
	if len(rec.errs) != 1 {
		t.Fatalf("OnError fired %d times", len(rec.errs))
	}
	if got := rec.events[len(rec.events)-1]; got != "error" {
		t.Fatalf("events after error: %v", rec.events)
	}
	if res.Content != "Hel" {
		t.Fatalf("partial content: %q", res.Content)
	}
}

func TestOpenAIMalformedFrameSkipped(t *testing.T) {
	t.Parallel()

	stream := sse(
		`{"choices":[{"delta":{"content":"keep"},"finish_reason":null}]}`,
		`{"choices":[{"delta":`,
		`{"choices":[{"delta":{"content":" going"},"finish_reason":"stop"}]}`,
		`[DONE]`,
	)

	res, _, err := readAll(t, provider.FamilyOpenAI, [][]byte{stream})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if res.Content != "keep going" {
		t.Fatalf("content: %q", res.Content)
	}
	if res.Chunks != 4 {
		t.Fatalf("chunks: %d", res.Chunks)
	}
}

func TestOpenAIUsageTrailsFinishReason(t *testing.T) {
	t.Parallel()

	stream := sse(
		`{"choices":[{"delta":{"content":"done"},"finish_reason":"stop"}]}`,
		`{"choices":[],"usage":{"prompt_tokens":42,"completion_tokens":7,"total_tokens":49}}`,
		`[DONE]`,
	)

	res, _, err := readAll(t, provider.FamilyOpenAI, [][]byte{stream})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if res.Usage.InputTokens != 42 || res.Usage.OutputTokens != 7 {
		t.Fatalf("usage: %+v", res.Usage)
	}
}

func TestOpenAIReasoningDeltas(t *testing.T) {
	t.Parallel()

	stream := sse(
		`{"choices":[{"delta":{"reasoning_content":"thinking "},"finish_reason":null}]}`,
		`{"choices":[{"delta":{"reasoning_content":"hard"},"finish_reason":null}]}`,
		`{"choices":[{"delta":{"content":"42"},"finish_reason":"stop"}]}`,
		`[DONE]`,
	)

	res, rec, err := readAll(t, provider.FamilyOpenAI, [][]byte{stream})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if res.Reasoning != "thinking hard" {
		t.Fatalf("reasoning: %q", res.Reasoning)
	}
	if res.Content != "42" {
		t.Fatalf("content: %q", res.Content)
	}
	want := []string{"reasoning:thinking ", "reasoning:hard", "progress:42"}
	for i, ev := range want {
		if rec.events[i] != ev {
			t.Fatalf("events: %v", rec.events)
		}
	}
}
