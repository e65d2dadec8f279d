package payload

import (
	"encoding/json"
	"fmt"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/tools"
)

// GoogleRequest is a generateContent / streamGenerateContent body.
type GoogleRequest struct {
	SystemInstruction *GoogleContent          `json:"systemInstruction,omitempty"`
	Contents          []GoogleContent         `json:"contents"`
	Tools             []GoogleTool            `json:"tools,omitempty"`
	GenerationConfig  *GoogleGenerationConfig `json:"generationConfig,omitempty"`
}

type GoogleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GooglePart `json:"parts"`
}

type GooglePart struct {
	Text             string                  `json:"text,omitempty"`
	InlineData       *GoogleInlineData       `json:"inlineData,omitempty"`
	FileData         *GoogleFileData         `json:"fileData,omitempty"`
	FunctionCall     *GoogleFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *GoogleFunctionResponse `json:"functionResponse,omitempty"`
}

type GoogleInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type GoogleFileData struct {
	MIMEType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type GoogleFunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

type GoogleFunctionResponse struct {
	Name     string          `json:"name"`
	Response json.RawMessage `json:"response"`
}

type GoogleTool struct {
	FunctionDeclarations []GoogleFunctionDeclaration `json:"functionDeclarations"`
}

type GoogleFunctionDeclaration struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type GoogleGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens *int     `json:"maxOutputTokens,omitempty"`
}

// googleToolResponse wraps tool output for the functionResponse part, which
// requires an object-valued response.
type googleToolResponse struct {
	Result string `json:"result"`
}

// BuildGoogle renders the context as a Gemini request. Roles map to
// user/model, the history is bridged into strict alternation, and all
// function declarations share one tools entry.
func BuildGoogle(cc *chat.ChatContext, specs []tools.ToolSpec) (*GoogleRequest, error) {
	if err := checkVision(cc); err != nil {
		return nil, err
	}
	if err := checkTools(cc, specs); err != nil {
		return nil, err
	}
	req := &GoogleRequest{}
	if cc.SystemPrompt != "" {
		req.SystemInstruction = &GoogleContent{Parts: []GooglePart{{Text: cc.SystemPrompt}}}
	}
	for _, m := range bridgeAlternation(cc.History) {
		content, err := googleContent(m)
		if err != nil {
			return nil, err
		}
		req.Contents = append(req.Contents, content)
	}
	if len(specs) > 0 {
		decls := make([]GoogleFunctionDeclaration, 0, len(specs))
		for _, s := range specs {
			decls = append(decls, GoogleFunctionDeclaration{
				Name:        s.Name,
				Description: s.Description,
				Parameters:  s.Schema,
			})
		}
		req.Tools = []GoogleTool{{FunctionDeclarations: decls}}
	}
	if cc.Temperature != nil || cc.MaxTokens != nil {
		req.GenerationConfig = &GoogleGenerationConfig{
			Temperature:     cc.Temperature,
			MaxOutputTokens: cc.MaxTokens,
		}
	}
	return req, nil
}

func googleContent(m chat.Message) (GoogleContent, error) {
	if m.Role == chat.RoleTool && m.ToolResult != nil {
		response, err := json.Marshal(googleToolResponse{Result: m.ToolResult.Content})
		if err != nil {
			return GoogleContent{}, fmt.Errorf("encode tool response: %w", err)
		}
		return GoogleContent{
			Role: "user",
			Parts: []GooglePart{{
				FunctionResponse: &GoogleFunctionResponse{
					Name:     m.ToolResult.Name,
					Response: response,
				},
			}},
		}, nil
	}
	role := "user"
	if m.Role == chat.RoleAssistant {
		role = "model"
	}
	var parts []GooglePart
	if len(m.Parts) > 0 {
		parts = googleParts(m.Parts)
	} else if m.Content != "" {
		parts = []GooglePart{{Text: m.Content}}
	}
	for _, call := range m.ToolCalls {
		parts = append(parts, GooglePart{
			FunctionCall: &GoogleFunctionCall{
				Name: call.Name,
				Args: rawArgs(call.Arguments),
			},
		})
	}
	if len(parts) == 0 {
		parts = []GooglePart{{Text: bridgeFiller}}
	}
	return GoogleContent{Role: role, Parts: parts}, nil
}

func googleParts(parts []chat.ContentPart) []GooglePart {
	out := make([]GooglePart, 0, len(parts))
	for _, p := range parts {
		switch p.Kind {
		case chat.PartImage:
			if p.Inline() {
				out = append(out, GooglePart{InlineData: &GoogleInlineData{
					MIMEType: partMIME(p),
					Data:     partBase64(p),
				}})
			} else {
				out = append(out, GooglePart{FileData: &GoogleFileData{
					MIMEType: p.MIME,
					FileURI:  p.URL,
				}})
			}
		case chat.PartFile:
			out = append(out, GooglePart{Text: fileText(p)})
		default:
			if p.Text != "" {
				out = append(out, GooglePart{Text: p.Text})
			}
		}
	}
	return out
}
