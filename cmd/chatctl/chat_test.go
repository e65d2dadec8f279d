package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
)

func TestChatCommandStreamsReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"role\":\"assistant\",\"content\":\"Hel\"},\"finish_reason\":null}]}\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"},\"finish_reason\":\"stop\"}]}\n\n")
		io.WriteString(w, "data: {\"choices\":[],\"usage\":{\"prompt_tokens\":9,\"completion_tokens\":12,\"total_tokens\":21}}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	defer server.Close()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeSettings(t, cfgPath, "openai", server.URL)

	var out, errBuf bytes.Buffer
	err := chatCommand(context.Background(), []string{"say", "hello"}, cfgPath, ioStreams{out: &out, err: &errBuf})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if out.String() != "Hello\n" {
		t.Fatalf("stdout = %q", out.String())
	}
	if !strings.Contains(errBuf.String(), "openai/gpt-4o-mini: 9 in, 12 out tokens, finish=stop") {
		t.Fatalf("summary = %q", errBuf.String())
	}
}

func TestChatCommandRequiresPrompt(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	err := chatCommand(context.Background(), nil, cfgPath, ioStreams{out: io.Discard, err: io.Discard})
	if err == nil || !strings.Contains(err.Error(), "prompt") {
		t.Fatalf("err = %v", err)
	}
}

func TestChatCommandFlagOverrides(t *testing.T) {
	var mu = make(chan []byte, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		mu <- body
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"choices":[{"message":{"role":"assistant","content":"ok"},"finish_reason":"stop"}],"usage":{"prompt_tokens":2,"completion_tokens":1,"total_tokens":3}}`)
	}))
	defer server.Close()

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	writeSettings(t, cfgPath, "openai", server.URL)

	var out bytes.Buffer
	args := []string{"-model", "gpt-4o", "-no-stream", "-system", "You are terse.", "ping"}
	if err := chatCommand(context.Background(), args, cfgPath, ioStreams{out: &out, err: io.Discard}); err != nil {
		t.Fatalf("chat: %v", err)
	}
	body := string(<-mu)
	if !strings.Contains(body, `"model":"gpt-4o"`) {
		t.Fatalf("model override missing: %s", body)
	}
	if !strings.Contains(body, "You are terse.") {
		t.Fatalf("system override missing: %s", body)
	}
	if strings.Contains(body, `"stream":true`) {
		t.Fatalf("no-stream ignored: %s", body)
	}
	if !strings.Contains(out.String(), "ok") {
		t.Fatalf("stdout = %q", out.String())
	}
}

func TestRunCLIUnknownCommand(t *testing.T) {
	err := runCLI(context.Background(), []string{"frobnicate"}, ioStreams{out: io.Discard, err: io.Discard})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Fatalf("err = %v", err)
	}
}
