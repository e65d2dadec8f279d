package reader

import (
	"encoding/json"
	"fmt"

	"github.com/verity-ai/chatstream-go/pkg/chat"
)

// googleResponse is one element of the streamGenerateContent array, and also
// the whole generateContent body in the non-streaming case.
type googleResponse struct {
	Candidates     []googleCandidate     `json:"candidates"`
	UsageMetadata  *googleUsage          `json:"usageMetadata"`
	PromptFeedback *googlePromptFeedback `json:"promptFeedback"`
	Error          *googleError          `json:"error"`
}

type googleCandidate struct {
	Content      googleContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type googleContent struct {
	Role  string       `json:"role"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text         string              `json:"text"`
	Thought      bool                `json:"thought"`
	FunctionCall *googleFunctionCall `json:"functionCall"`
}

type googleFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args"`
}

type googleUsage struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type googlePromptFeedback struct {
	BlockReason string `json:"blockReason"`
}

type googleError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// googleDecoder handles Gemini responses. Function calls are atomic: name
// and args arrive together in a single part. usageMetadata repeats cumulative
// totals on each element, so reports replace. The stream ends when the array
// closes; finishReason rides the last element.
type googleDecoder struct{}

func (googleDecoder) decode(e *Engine, unit []byte, cb Callbacks) error {
	var resp googleResponse
	if err := json.Unmarshal(unit, &resp); err != nil {
		e.skip(unit, err)
		return nil
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return fmt.Errorf("%w: %s: %s", chat.ErrVendorError, resp.Error.Status, resp.Error.Message)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return fmt.Errorf("%w: prompt blocked: %s", chat.ErrVendorError, resp.PromptFeedback.BlockReason)
	}
	if resp.UsageMetadata != nil {
		e.replaceUsage(resp.UsageMetadata.PromptTokenCount, resp.UsageMetadata.CandidatesTokenCount)
	}
	if len(resp.Candidates) == 0 {
		return nil
	}
	cand := resp.Candidates[0]
	for _, part := range cand.Content.Parts {
		switch {
		case part.FunctionCall != nil:
			b := e.builder(e.nextIndex())
			b.merge("", part.FunctionCall.Name, string(part.FunctionCall.Args))
			b.announce(cb)
		case part.Thought && part.Text != "":
			e.reasoning.WriteString(part.Text)
			cb.reasoning(part.Text)
		case part.Text != "":
			e.content.WriteString(part.Text)
			cb.progress(part.Text)
		}
	}
	if cand.FinishReason != "" {
		e.finish = cand.FinishReason
	}
	return nil
}
