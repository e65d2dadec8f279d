package reader

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/provider"
)

func TestBaiduTextStream(t *testing.T) {
	t.Parallel()

	stream := sse(
		`{"id":"as-1","result":"你好","is_end":false}`,
		`{"id":"as-1","result":"，世界","is_end":false}`,
		`{"id":"as-1","result":"","is_end":true,"finish_reason":"normal","usage":{"prompt_tokens":3,"completion_tokens":5,"total_tokens":8}}`,
	)

	res, rec, err := readAll(t, provider.FamilyBaidu, [][]byte{stream})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Content != "你好，世界" {
		t.Fatalf("content: %q", res.Content)
	}
	if res.Usage.InputTokens != 3 || res.Usage.OutputTokens != 5 {
		t.Fatalf("usage: %+v", res.Usage)
	}
	if res.FinishReason != "normal" {
		t.Fatalf("finish reason: %q", res.FinishReason)
	}
	want := []string{"progress:你好", "progress:，世界"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events: %v", rec.events)
	}
}

func TestBaiduFunctionCallAtomic(t *testing.T) {
	t.Parallel()

	stream := sse(
		`{"id":"as-2","result":"","is_end":true,"finish_reason":"function_call","function_call":{"name":"get_weather","arguments":"{\"city\":\"Beijing\"}","thoughts":"User wants weather."},"usage":{"prompt_tokens":18,"completion_tokens":9,"total_tokens":27}}`,
	)

	res, rec, err := readAll(t, provider.FamilyBaidu, [][]byte{stream})
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if res.Tool == nil {
		t.Fatal("tool call missing from result")
	}
	if res.Tool.Name != "get_weather" {
		t.Fatalf("tool name: %q", res.Tool.Name)
	}
	if res.Tool.Arguments != `{"city":"Beijing"}` {
		t.Fatalf("arguments: %q", res.Tool.Arguments)
	}
	if res.Reasoning != "User wants weather." {
		t.Fatalf("reasoning: %q", res.Reasoning)
	}
	want := []string{"reasoning:User wants weather.", "tool:get_weather"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events: %v", rec.events)
	}
}

func TestBaiduErrorCodeFatal(t *testing.T) {
	t.Parallel()

	stream := sse(
		`{"id":"as-3","result":"part","is_end":false}`,
		`{"error_code":18,"error_msg":"Open api qps request limit reached"}`,
	)

	res, rec, err := readAll(t, provider.FamilyBaidu, [][]byte{stream})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, chat.ErrVendorError) {
		t.Fatalf("error class: %v", err)
	}
	if !strings.Contains(err.Error(), "ernie error 18") {
		t.Fatalf("error detail: %v", err)
	}
	if len(rec.errs) != 1 {
		t.Fatalf("OnError fired %d times", len(rec.errs))
	}
	if res.Content != "part" {
		t.Fatalf("partial content: %q", res.Content)
	}
	want := []string{"progress:part", "error"}
	if !reflect.DeepEqual(rec.events, want) {
		t.Fatalf("events: %v", rec.events)
	}
}
