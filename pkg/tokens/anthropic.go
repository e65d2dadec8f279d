package tokens

import (
	"context"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/verity-ai/chatstream-go/pkg/chat"
)

// AnthropicCounter asks the Anthropic count-tokens endpoint for exact input
// sizes. Any API failure falls back to the rune heuristic so Estimate never
// blocks a send.
type AnthropicCounter struct {
	client   *anthropicsdk.Client
	fallback Heuristic
}

// NewAnthropicCounter builds a counter for the given credential. A non-empty
// baseURL overrides the default API host.
func NewAnthropicCounter(apiKey, baseURL string) *AnthropicCounter {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropicsdk.NewClient(opts...)
	return &AnthropicCounter{client: &client}
}

func (c *AnthropicCounter) Estimate(ctx context.Context, model string, msgs []chat.Message) (int, error) {
	count, err := c.client.Messages.CountTokens(ctx, countParams(model, msgs))
	if err != nil {
		return c.fallback.Estimate(ctx, model, msgs)
	}
	return int(count.InputTokens), nil
}

// countParams converts canonical messages into count-tokens params. System
// turns become top-level system blocks, tool traffic is flattened to text,
// and the first turn is forced to the user role the endpoint demands.
func countParams(model string, msgs []chat.Message) anthropicsdk.MessageCountTokensParams {
	var system []anthropicsdk.TextBlockParam
	params := make([]anthropicsdk.MessageParam, 0, len(msgs))

	for _, m := range msgs {
		if m.Role == chat.RoleSystem {
			if text := m.Text(); text != "" {
				system = append(system, anthropicsdk.TextBlockParam{Text: text})
			}
			continue
		}
		params = append(params, anthropicsdk.MessageParam{
			Role:    countRole(m.Role),
			Content: []anthropicsdk.ContentBlockParamUnion{anthropicsdk.NewTextBlock(countText(m))},
		})
	}

	if len(params) == 0 || params[0].Role != anthropicsdk.MessageParamRoleUser {
		lead := anthropicsdk.MessageParam{
			Role:    anthropicsdk.MessageParamRoleUser,
			Content: []anthropicsdk.ContentBlockParamUnion{anthropicsdk.NewTextBlock(".")},
		}
		params = append([]anthropicsdk.MessageParam{lead}, params...)
	}

	out := anthropicsdk.MessageCountTokensParams{
		Model:    anthropicsdk.Model(model),
		Messages: params,
	}
	if len(system) > 0 {
		out.System = anthropicsdk.MessageCountTokensParamsSystemUnion{OfTextBlockArray: system}
	}
	return out
}

func countRole(role chat.Role) anthropicsdk.MessageParamRole {
	if role == chat.RoleAssistant {
		return anthropicsdk.MessageParamRoleAssistant
	}
	return anthropicsdk.MessageParamRoleUser
}

// countText flattens one message to plain text. The endpoint rejects empty
// content, so blank turns become a single period.
func countText(m chat.Message) string {
	text := m.Text()
	for _, call := range m.ToolCalls {
		if text != "" {
			text += "\n"
		}
		text += call.Name + " " + call.Arguments
	}
	if m.ToolResult != nil {
		if text != "" {
			text += "\n"
		}
		text += m.ToolResult.Content
	}
	if text == "" {
		return "."
	}
	return text
}
