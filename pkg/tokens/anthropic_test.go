package tokens

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/verity-ai/chatstream-go/pkg/chat"
)

type countRequest struct {
	Model  string `json:"model"`
	System []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func TestAnthropicCounterExactCount(t *testing.T) {
	t.Parallel()

	var captured countRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/messages/count_tokens"), "path %s", r.URL.Path)
		require.Equal(t, "ant-key", r.Header.Get("x-api-key"))
		defer r.Body.Close()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"input_tokens":42}`)
	}))
	defer server.Close()

	counter := NewAnthropicCounter("ant-key", server.URL)
	got, err := counter.Estimate(context.Background(), "claude-sonnet-4-5-20250929", []chat.Message{
		{Role: chat.RoleSystem, Content: "Be terse."},
		{Role: chat.RoleUser, Content: "hello"},
	})
	require.NoError(t, err)
	require.Equal(t, 42, got)

	require.Equal(t, "claude-sonnet-4-5-20250929", captured.Model)
	require.Len(t, captured.System, 1)
	require.Equal(t, "Be terse.", captured.System[0].Text)
	require.Len(t, captured.Messages, 1)
	require.Equal(t, "user", captured.Messages[0].Role)
}

func TestAnthropicCounterFallsBackOnError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"bad model"}}`)
	}))
	defer server.Close()

	msgs := []chat.Message{{Role: chat.RoleUser, Content: "hello world!"}}
	counter := NewAnthropicCounter("ant-key", server.URL)
	got, err := counter.Estimate(context.Background(), "not-a-model", msgs)
	require.NoError(t, err, "fallback should swallow the API error")

	want, _ := Heuristic{}.Estimate(context.Background(), "not-a-model", msgs)
	require.Equal(t, want, got)
}

func TestCountParamsShape(t *testing.T) {
	t.Parallel()

	params := countParams("claude-sonnet-4-5-20250929", []chat.Message{
		{Role: chat.RoleSystem, Content: "sys"},
		{Role: chat.RoleAssistant, Content: "Checking.", ToolCalls: []chat.ToolCall{
			{ID: "toolu_1", Name: "get_weather", Arguments: `{"city":"Oslo"}`},
		}},
		{Role: chat.RoleTool, ToolResult: &chat.ToolResult{CallID: "toolu_1", Content: "rain"}},
	})

	require.Len(t, params.System.OfTextBlockArray, 1)
	require.Equal(t, "sys", params.System.OfTextBlockArray[0].Text)
	// Leading assistant turn forces a user placeholder in front.
	require.Len(t, params.Messages, 3)
	require.EqualValues(t, "user", params.Messages[0].Role)
	require.EqualValues(t, "assistant", params.Messages[1].Role)

	assistant := params.Messages[1].Content[0].OfText
	require.NotNil(t, assistant)
	require.Contains(t, assistant.Text, "get_weather")
	result := params.Messages[2].Content[0].OfText
	require.NotNil(t, result)
	require.Equal(t, "rain", result.Text)
}

func TestCountTextBlankBecomesPlaceholder(t *testing.T) {
	t.Parallel()

	require.Equal(t, ".", countText(chat.Message{Role: chat.RoleUser}))
}
