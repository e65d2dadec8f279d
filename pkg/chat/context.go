package chat

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/verity-ai/chatstream-go/pkg/config"
	"github.com/verity-ai/chatstream-go/pkg/provider"
)

// ChatContext is everything one exchange needs: the resolved provider and
// model, clamped sampling parameters, the windowed history, and the behavior
// flags. Resolution is pure given settings and a catalog; no network happens
// here.
type ChatContext struct {
	Provider      *provider.Descriptor
	Model         provider.ModelInfo
	Temperature   *float64
	MaxTokens     *int
	SystemPrompt  string
	History       []Message
	HistoryWindow int
	Stream        bool
	ToolUse       bool
	ToolLoopLimit int
	RequestID     string
}

// ResolveContext builds a ChatContext from saved settings. The saved model
// falls back to the provider default when it is not in the catalog; sampling
// parameters are clamped into the provider's ranges; history is windowed to
// the configured size.
func ResolveContext(st *config.Settings, cat *provider.Catalog, history []Message) (*ChatContext, error) {
	if st == nil {
		st = config.Default()
	}
	desc, err := cat.Get(st.Provider)
	if err != nil {
		return nil, err
	}
	if override := st.BaseURL(desc.ID); override != "" {
		desc = desc.Clone()
		desc.BaseURL = strings.TrimSuffix(override, "/")
	}
	if desc.BaseURL == "" {
		return nil, fmt.Errorf("provider %s requires a base_urls override", desc.ID)
	}

	model, fellBack := desc.ResolveModel(st.Model)
	if fellBack && st.Model != "" {
		slog.Warn("saved model not in provider catalog, using default",
			"provider", desc.ID, "saved", st.Model, "model", model.ID)
	}

	cc := &ChatContext{
		Provider:      desc,
		Model:         model,
		SystemPrompt:  st.SystemPrompt,
		History:       WindowHistory(history, st.HistoryWindow),
		HistoryWindow: st.HistoryWindow,
		Stream:        st.StreamEnabled(),
		ToolUse:       st.ToolUseEnabled(),
		ToolLoopLimit: st.ToolLoopLimit,
		RequestID:     uuid.NewString(),
	}
	if st.Temperature != nil {
		t := desc.Temperature.Clamp(*st.Temperature)
		cc.Temperature = &t
	}
	if st.MaxTokens != nil {
		n := desc.MaxTokens.Clamp(*st.MaxTokens)
		cc.MaxTokens = &n
	}
	return cc, nil
}

// WindowHistory returns at most the last n non-system messages. A tool
// result whose paired assistant tool call fell outside the window is dropped
// with it, so the window never starts mid-exchange.
func WindowHistory(msgs []Message, n int) []Message {
	if n <= 0 || len(msgs) == 0 {
		return nil
	}
	filtered := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleSystem {
			continue
		}
		filtered = append(filtered, m)
	}
	if len(filtered) > n {
		filtered = filtered[len(filtered)-n:]
	}
	for len(filtered) > 0 && filtered[0].Role == RoleTool {
		filtered = filtered[1:]
	}
	if len(filtered) == 0 {
		return nil
	}
	out := make([]Message, len(filtered))
	copy(out, filtered)
	return out
}
