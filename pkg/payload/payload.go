// Package payload builds vendor request bodies from a resolved ChatContext.
// Builders are pure: the same context and tool list always produce the same
// request value, nothing in the context is mutated, and optional fields are
// omitted rather than sent as null.
package payload

import (
	"encoding/base64"
	"encoding/json"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/tools"
)

// bridgeFiller is the text of synthesized turns inserted for vendors that
// enforce strict user/assistant alternation.
const bridgeFiller = "."

// userSide reports which side of the alternation a role occupies. Tool
// results ride a user-side turn on every alternation-constrained vendor.
func userSide(role chat.Role) bool {
	return role != chat.RoleAssistant
}

// bridgeAlternation inserts filler turns so the sequence starts user-side and
// strictly alternates. Adjacent different-side messages are never separated,
// which keeps tool results immediately after the tool call they answer.
func bridgeAlternation(msgs []chat.Message) []chat.Message {
	if len(msgs) == 0 {
		return nil
	}
	out := make([]chat.Message, 0, len(msgs)+2)
	if !userSide(msgs[0].Role) {
		out = append(out, chat.Message{Role: chat.RoleUser, Content: bridgeFiller})
	}
	for _, m := range msgs {
		if len(out) > 0 && userSide(out[len(out)-1].Role) == userSide(m.Role) {
			filler := chat.Message{Role: chat.RoleAssistant, Content: bridgeFiller}
			if !userSide(m.Role) {
				filler.Role = chat.RoleUser
			}
			out = append(out, filler)
		}
		out = append(out, m)
	}
	return out
}

// checkVision fails fast when the history carries image parts the resolved
// model cannot accept.
func checkVision(cc *chat.ChatContext) error {
	for _, m := range cc.History {
		for _, p := range m.Parts {
			if p.Kind == chat.PartImage && !cc.Provider.SupportsVision(cc.Model) {
				return chat.NewCapabilityError(cc.Provider.ID, "vision")
			}
		}
	}
	return nil
}

// checkTools fails fast when tools are requested on a model without tool
// support.
func checkTools(cc *chat.ChatContext, specs []tools.ToolSpec) error {
	if len(specs) == 0 {
		return nil
	}
	if !cc.Provider.SupportsTools(cc.Model) {
		return chat.NewCapabilityError(cc.Provider.ID, "tools")
	}
	return nil
}

// partBase64 encodes inline part bytes for vendors that take bare base64.
func partBase64(p chat.ContentPart) string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// partMIME returns the part's media type, defaulting for inline images that
// arrived untagged.
func partMIME(p chat.ContentPart) string {
	if p.MIME != "" {
		return p.MIME
	}
	return "image/png"
}

// dataURI encodes an inline part as a data: URI for the OpenAI image_url
// shape.
func dataURI(p chat.ContentPart) string {
	return "data:" + partMIME(p) + ";base64," + partBase64(p)
}

// fileText returns the textual view of a file part. Clients extract text
// before attaching; raw bytes are used as-is when they did not.
func fileText(p chat.ContentPart) string {
	if p.Text != "" {
		return p.Text
	}
	return string(p.Data)
}

// rawArgs normalizes tool-call argument text into a valid JSON value for
// vendors with object-typed argument fields.
func rawArgs(args string) json.RawMessage {
	if args == "" {
		return json.RawMessage("{}")
	}
	return json.RawMessage(args)
}
