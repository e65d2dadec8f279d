package reader

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/provider"
)

func ndjson(lines ...string) []byte {
	return []byte(strings.Join(lines, "\n") + "\n")
}

func TestOllamaTextStream(t *testing.T) {
	t.Parallel()

	stream := ndjson(
		`{"model":"llama3.2","message":{"role":"assistant","content":"Hel"},"done":false}`,
		`{"model":"llama3.2","message":{"role":"assistant","content":"lo"},"done":false}`,
		`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":4,"eval_count":2}`,
	)

	res, rec, err := readAll(t, provider.FamilyOllama, [][]byte{stream})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Content != "Hello" {
		t.Fatalf("content: %q", res.Content)
	}
	if res.Usage.InputTokens != 4 || res.Usage.OutputTokens != 2 {
		t.Fatalf("usage: %+v", res.Usage)
	}
	if res.FinishReason != "stop" {
		t.Fatalf("finish reason: %q", res.FinishReason)
	}
	want := []string{"progress:Hel", "progress:lo"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events: %v", rec.events)
	}
}

func TestOllamaToolCallAtomic(t *testing.T) {
	t.Parallel()

	stream := ndjson(
		`{"model":"llama3.2","message":{"role":"assistant","content":"","tool_calls":[{"function":{"name":"get_weather","arguments":{"city":"Oslo"}}}]},"done":false}`,
		`{"model":"llama3.2","message":{"role":"assistant","content":""},"done":true,"done_reason":"stop","prompt_eval_count":22,"eval_count":14}`,
	)

	res, rec, err := readAll(t, provider.FamilyOllama, [][]byte{stream})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Tool == nil {
		t.Fatal("tool call missing from result")
	}
	if res.Tool.Name != "get_weather" {
		t.Fatalf("tool name: %q", res.Tool.Name)
	}
	if res.Tool.Arguments != `{"city":"Oslo"}` {
		t.Fatalf("arguments: %q", res.Tool.Arguments)
	}
	if !reflect.DeepEqual(rec.events, []string{"tool:get_weather"}) {
		t.Fatalf("events: %v", rec.events)
	}
}

func TestOllamaThinking(t *testing.T) {
	t.Parallel()

	stream := ndjson(
		`{"model":"deepseek-r1","message":{"role":"assistant","content":"","thinking":"Two plus two."},"done":false}`,
		`{"model":"deepseek-r1","message":{"role":"assistant","content":"Four."},"done":true,"done_reason":"stop","prompt_eval_count":7,"eval_count":9}`,
	)

	res, rec, err := readAll(t, provider.FamilyOllama, [][]byte{stream})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Reasoning != "Two plus two." {
		t.Fatalf("reasoning: %q", res.Reasoning)
	}
	if res.Content != "Four." {
		t.Fatalf("content: %q", res.Content)
	}
	want := []string{"reasoning:Two plus two.", "progress:Four."}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events: %v", rec.events)
	}
}

func TestOllamaErrorLineFatal(t *testing.T) {
	t.Parallel()

	stream := ndjson(
		`{"model":"llama3.2","message":{"role":"assistant","content":"a"},"done":false}`,
		`{"error":"model \"missing\" not found"}`,
	)

	res, rec, err := readAll(t, provider.FamilyOllama, [][]byte{stream})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, chat.ErrVendorError) {
		t.Fatalf("error class: %v", err)
	}
	if len(rec.errs) != 1 {
		t.Fatalf("OnError fired %d times", len(rec.errs))
	}
	if res.Content != "a" {
		t.Fatalf("partial content: %q", res.Content)
	}
	want := []string{"progress:a", "error"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events: %v", rec.events)
	}
}
