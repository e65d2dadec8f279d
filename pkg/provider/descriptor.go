// Package provider holds the static descriptors for every supported LLM
// vendor: endpoints, auth schemes, parameter ranges, model catalogs, and
// capability flags. Descriptors are data; family-specific behavior lives in
// the payload and reader packages.
package provider

import (
	"fmt"
	"net/url"
	"strings"
)

// Family selects the wire dialect a provider speaks.
type Family string

const (
	FamilyOpenAI    Family = "openai"
	FamilyAnthropic Family = "anthropic"
	FamilyGoogle    Family = "google"
	FamilyBaidu     Family = "baidu"
	FamilyOllama    Family = "ollama"
)

// AuthScheme selects how a credential is attached to requests.
type AuthScheme string

const (
	AuthBearer  AuthScheme = "bearer"
	AuthXAPIKey AuthScheme = "x-api-key"
	AuthAPIKey  AuthScheme = "api-key"
	AuthQuery   AuthScheme = "query"
	AuthNone    AuthScheme = "none"
)

// FloatRange bounds a float parameter and carries its vendor default.
type FloatRange struct {
	Min     float64
	Max     float64
	Default float64
}

// Clamp forces v into the range.
func (r FloatRange) Clamp(v float64) float64 {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// IntRange bounds an integer parameter and carries its vendor default.
type IntRange struct {
	Min     int
	Max     int
	Default int
}

// Clamp forces v into the range.
func (r IntRange) Clamp(v int) int {
	if v < r.Min {
		return r.Min
	}
	if v > r.Max {
		return r.Max
	}
	return v
}

// Capabilities flags what a provider's API can accept.
type Capabilities struct {
	Vision   bool
	Tools    bool
	JSONMode bool
}

// ModelInfo describes one model in a provider catalog. Endpoint overrides the
// path segment for vendors that address models by slug (Baidu) or deployment
// name (Azure); empty means the model ID is used. Vision and Tools override
// the descriptor-level capabilities when set.
type ModelInfo struct {
	ID            string
	Label         string
	Endpoint      string
	ContextWindow int
	Vision        *bool
	Tools         *bool
}

func (m ModelInfo) endpointName() string {
	if m.Endpoint != "" {
		return m.Endpoint
	}
	return m.ID
}

// Descriptor is the static configuration for one provider.
type Descriptor struct {
	ID           string
	Label        string
	Family       Family
	BaseURL      string
	AuthScheme   AuthScheme
	QueryParam   string
	ExtraHeaders map[string]string
	APIVersion   string
	Deployments  bool

	Models       []ModelInfo
	DefaultModel string

	Temperature  FloatRange
	MaxTokens    IntRange
	Capabilities Capabilities
}

// ResolveModel returns the catalog entry for the saved model ID, falling back
// to the provider default when the saved ID is unknown or empty. The bool
// reports whether a fallback happened.
func (d *Descriptor) ResolveModel(saved string) (ModelInfo, bool) {
	saved = strings.TrimSpace(saved)
	if saved != "" {
		for _, m := range d.Models {
			if m.ID == saved {
				return m, false
			}
		}
	}
	for _, m := range d.Models {
		if m.ID == d.DefaultModel {
			return m, true
		}
	}
	return ModelInfo{ID: d.DefaultModel}, true
}

// SupportsVision reports whether image input is accepted for the model.
func (d *Descriptor) SupportsVision(m ModelInfo) bool {
	if m.Vision != nil {
		return *m.Vision
	}
	return d.Capabilities.Vision
}

// SupportsTools reports whether tool definitions are accepted for the model.
func (d *Descriptor) SupportsTools(m ModelInfo) bool {
	if m.Tools != nil {
		return *m.Tools
	}
	return d.Capabilities.Tools
}

// Endpoint builds the chat endpoint URL for the model. Credentials are not
// part of the URL; transport.ApplyAuth attaches them.
func (d *Descriptor) Endpoint(m ModelInfo, stream bool) (string, error) {
	base := strings.TrimSuffix(d.BaseURL, "/")
	if base == "" {
		return "", fmt.Errorf("provider %s has no base url configured", d.ID)
	}
	switch d.Family {
	case FamilyOpenAI:
		if d.Deployments {
			u := fmt.Sprintf("%s/openai/deployments/%s/chat/completions", base, url.PathEscape(m.endpointName()))
			if d.APIVersion != "" {
				u += "?api-version=" + url.QueryEscape(d.APIVersion)
			}
			return u, nil
		}
		return base + "/chat/completions", nil
	case FamilyAnthropic:
		return base + "/v1/messages", nil
	case FamilyGoogle:
		method := "generateContent"
		if stream {
			method = "streamGenerateContent"
		}
		return fmt.Sprintf("%s/v1beta/models/%s:%s", base, url.PathEscape(m.ID), method), nil
	case FamilyBaidu:
		return fmt.Sprintf("%s/rpc/2.0/ai_custom/v1/wenxinworkshop/chat/%s", base, url.PathEscape(m.endpointName())), nil
	case FamilyOllama:
		return base + "/api/chat", nil
	default:
		return "", fmt.Errorf("unknown provider family %q", d.Family)
	}
}

// Clone returns a deep copy so per-run overrides never mutate the catalog.
func (d *Descriptor) Clone() *Descriptor {
	out := *d
	if d.ExtraHeaders != nil {
		out.ExtraHeaders = make(map[string]string, len(d.ExtraHeaders))
		for k, v := range d.ExtraHeaders {
			out.ExtraHeaders[k] = v
		}
	}
	out.Models = make([]ModelInfo, len(d.Models))
	copy(out.Models, d.Models)
	return &out
}
