// Package tokens approximates prompt sizes before a request is sent. Vendors
// report exact usage in-stream; estimators only fill the gap when a stream
// ends without numbers or a count is needed up front.
package tokens

import (
	"context"
	"unicode/utf8"

	"github.com/verity-ai/chatstream-go/pkg/chat"
)

// Estimator approximates the input token count of a prompt for one model.
type Estimator interface {
	Estimate(ctx context.Context, model string, msgs []chat.Message) (int, error)
}

const (
	// runesPerToken matches the usual density of BPE vocabularies on
	// mixed prose.
	runesPerToken = 4
	// perMessageOverhead covers role markers and message framing.
	perMessageOverhead = 4
)

// Heuristic estimates from rune counts alone. It needs no network and
// never fails.
type Heuristic struct{}

func (Heuristic) Estimate(_ context.Context, _ string, msgs []chat.Message) (int, error) {
	total := 0
	for _, m := range msgs {
		total += perMessageOverhead
		total += runeTokens(m.Text())
		for _, call := range m.ToolCalls {
			total += runeTokens(call.Name) + runeTokens(call.Arguments)
		}
		if m.ToolResult != nil {
			total += runeTokens(m.ToolResult.Content)
		}
	}
	return total, nil
}

func runeTokens(s string) int {
	if s == "" {
		return 0
	}
	n := utf8.RuneCountInString(s) / runesPerToken
	if n == 0 {
		n = 1
	}
	return n
}
