// Package chat defines the canonical conversation types shared by every
// provider family, and resolves user settings into a ready-to-send ChatContext.
package chat

import "strings"

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartKind discriminates multimodal content parts.
type PartKind string

const (
	PartText  PartKind = "text"
	PartImage PartKind = "image"
	PartFile  PartKind = "file"
)

// ContentPart is one block of a multimodal message. Exactly one payload
// variant is set: Text for text parts, Data (with MIME) for inline binary,
// or URL for remote references.
type ContentPart struct {
	Kind PartKind
	Text string
	MIME string
	Data []byte
	URL  string
}

// Inline reports whether the part carries raw bytes rather than a URL.
func (p ContentPart) Inline() bool {
	return len(p.Data) > 0
}

// ToolCall is a model-issued request to invoke a named tool. Arguments holds
// the raw JSON argument text exactly as the vendor produced it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// ToolResult carries the outcome of a tool invocation back toward the model.
// MIME describes the content for client-side rendering only and is stripped
// before the result is embedded in any wire payload.
type ToolResult struct {
	CallID  string
	Name    string
	Content string
	MIME    string
}

// Message is one turn of a conversation in canonical form.
type Message struct {
	Role       Role
	Content    string
	Parts      []ContentPart
	ToolCalls  []ToolCall
	ToolResult *ToolResult
}

// Text returns the plain-text view of the message: Content when set,
// otherwise the concatenated text parts.
func (m Message) Text() string {
	if m.Content != "" {
		return m.Content
	}
	var b strings.Builder
	for _, p := range m.Parts {
		if p.Kind == PartText {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// HasMedia reports whether the message carries non-text parts.
func (m Message) HasMedia() bool {
	for _, p := range m.Parts {
		if p.Kind != PartText {
			return true
		}
	}
	return false
}

// Usage counts tokens consumed by an exchange. Estimated marks counts that
// were produced locally because the vendor reported none.
type Usage struct {
	InputTokens  int
	OutputTokens int
	Estimated    bool
}

// Add folds another usage sample into the receiver.
func (u *Usage) Add(other Usage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Estimated = u.Estimated || other.Estimated
}

// Empty reports whether no tokens were recorded.
func (u Usage) Empty() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0
}

// ReadResult is the final state of one streamed model turn. Content and
// Reasoning hold the accumulated deltas, Tool the first complete tool call if
// the model requested one, and Chunks the number of wire units consumed.
type ReadResult struct {
	Content      string
	Reasoning    string
	Tool         *ToolCall
	FinishReason string
	Usage        Usage
	Chunks       int
}

// Exchange is the outcome of a full send, covering every tool-loop round.
type Exchange struct {
	RequestID    string
	Content      string
	Reasoning    string
	UsedTools    []string
	Usage        Usage
	FinishReason string
	Rounds       int
}
