package provider

import (
	"fmt"
	"sort"
)

// Catalog indexes provider descriptors by ID.
type Catalog struct {
	byID map[string]*Descriptor
}

// NewCatalog builds a catalog from the given descriptors.
func NewCatalog(descriptors ...*Descriptor) *Catalog {
	c := &Catalog{byID: make(map[string]*Descriptor, len(descriptors))}
	for _, d := range descriptors {
		c.byID[d.ID] = d
	}
	return c
}

// Get looks up a descriptor by ID.
func (c *Catalog) Get(id string) (*Descriptor, error) {
	d, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q", id)
	}
	return d, nil
}

// IDs lists registered provider IDs in sorted order.
func (c *Catalog) IDs() []string {
	ids := make([]string, 0, len(c.byID))
	for id := range c.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Builtin returns the descriptor catalog for every supported vendor.
func Builtin() *Catalog {
	return NewCatalog(
		&Descriptor{
			ID:         "openai",
			Label:      "OpenAI",
			Family:     FamilyOpenAI,
			BaseURL:    "https://api.openai.com/v1",
			AuthScheme: AuthBearer,
			Models: []ModelInfo{
				{ID: "gpt-4o", Label: "GPT-4o", ContextWindow: 128000},
				{ID: "gpt-4o-mini", Label: "GPT-4o mini", ContextWindow: 128000},
				{ID: "gpt-4.1", Label: "GPT-4.1", ContextWindow: 1047576},
				{ID: "gpt-4.1-mini", Label: "GPT-4.1 mini", ContextWindow: 1047576},
				{ID: "o3-mini", Label: "o3-mini", ContextWindow: 200000, Vision: boolFlag(false)},
			},
			DefaultModel: "gpt-4o-mini",
			Temperature:  FloatRange{Min: 0, Max: 2, Default: 1},
			MaxTokens:    IntRange{Min: 1, Max: 16384, Default: 4096},
			Capabilities: Capabilities{Vision: true, Tools: true, JSONMode: true},
		},
		&Descriptor{
			ID:          "azure",
			Label:       "Azure OpenAI",
			Family:      FamilyOpenAI,
			AuthScheme:  AuthAPIKey,
			APIVersion:  "2024-10-21",
			Deployments: true,
			Models: []ModelInfo{
				{ID: "gpt-4o", Label: "GPT-4o", ContextWindow: 128000},
				{ID: "gpt-4o-mini", Label: "GPT-4o mini", ContextWindow: 128000},
			},
			DefaultModel: "gpt-4o-mini",
			Temperature:  FloatRange{Min: 0, Max: 2, Default: 1},
			MaxTokens:    IntRange{Min: 1, Max: 16384, Default: 4096},
			Capabilities: Capabilities{Vision: true, Tools: true, JSONMode: true},
		},
		&Descriptor{
			ID:           "anthropic",
			Label:        "Anthropic",
			Family:       FamilyAnthropic,
			BaseURL:      "https://api.anthropic.com",
			AuthScheme:   AuthXAPIKey,
			ExtraHeaders: map[string]string{"anthropic-version": "2023-06-01"},
			Models: []ModelInfo{
				{ID: "claude-sonnet-4-5-20250929", Label: "Claude Sonnet 4.5", ContextWindow: 200000},
				{ID: "claude-3-5-haiku-20241022", Label: "Claude Haiku 3.5", ContextWindow: 200000},
				{ID: "claude-3-opus-20240229", Label: "Claude Opus 3", ContextWindow: 200000},
			},
			DefaultModel: "claude-sonnet-4-5-20250929",
			Temperature:  FloatRange{Min: 0, Max: 1, Default: 1},
			MaxTokens:    IntRange{Min: 1, Max: 64000, Default: 4096},
			Capabilities: Capabilities{Vision: true, Tools: true},
		},
		&Descriptor{
			ID:         "google",
			Label:      "Google Gemini",
			Family:     FamilyGoogle,
			BaseURL:    "https://generativelanguage.googleapis.com",
			AuthScheme: AuthQuery,
			QueryParam: "key",
			Models: []ModelInfo{
				{ID: "gemini-2.0-flash", Label: "Gemini 2.0 Flash", ContextWindow: 1048576},
				{ID: "gemini-1.5-pro", Label: "Gemini 1.5 Pro", ContextWindow: 2097152},
				{ID: "gemini-1.5-flash", Label: "Gemini 1.5 Flash", ContextWindow: 1048576},
			},
			DefaultModel: "gemini-2.0-flash",
			Temperature:  FloatRange{Min: 0, Max: 2, Default: 1},
			MaxTokens:    IntRange{Min: 1, Max: 65536, Default: 8192},
			Capabilities: Capabilities{Vision: true, Tools: true, JSONMode: true},
		},
		&Descriptor{
			ID:         "baidu",
			Label:      "Baidu ERNIE",
			Family:     FamilyBaidu,
			BaseURL:    "https://aip.baidubce.com",
			AuthScheme: AuthQuery,
			QueryParam: "access_token",
			Models: []ModelInfo{
				{ID: "ernie-4.0-8k", Label: "ERNIE 4.0", Endpoint: "completions_pro", ContextWindow: 8192},
				{ID: "ernie-3.5-8k", Label: "ERNIE 3.5", Endpoint: "completions", ContextWindow: 8192},
				{ID: "ernie-speed-8k", Label: "ERNIE Speed", Endpoint: "ernie_speed", ContextWindow: 8192, Tools: boolFlag(false)},
			},
			DefaultModel: "ernie-3.5-8k",
			Temperature:  FloatRange{Min: 0.01, Max: 1, Default: 0.8},
			MaxTokens:    IntRange{Min: 2, Max: 4096, Default: 2048},
			Capabilities: Capabilities{Tools: true},
		},
		&Descriptor{
			ID:         "grok",
			Label:      "xAI Grok",
			Family:     FamilyOpenAI,
			BaseURL:    "https://api.x.ai/v1",
			AuthScheme: AuthBearer,
			Models: []ModelInfo{
				{ID: "grok-3", Label: "Grok 3", ContextWindow: 131072},
				{ID: "grok-3-mini", Label: "Grok 3 mini", ContextWindow: 131072},
			},
			DefaultModel: "grok-3-mini",
			Temperature:  FloatRange{Min: 0, Max: 2, Default: 1},
			MaxTokens:    IntRange{Min: 1, Max: 16384, Default: 4096},
			Capabilities: Capabilities{Vision: true, Tools: true, JSONMode: true},
		},
		&Descriptor{
			ID:         "perplexity",
			Label:      "Perplexity",
			Family:     FamilyOpenAI,
			BaseURL:    "https://api.perplexity.ai",
			AuthScheme: AuthBearer,
			Models: []ModelInfo{
				{ID: "sonar", Label: "Sonar", ContextWindow: 127072},
				{ID: "sonar-pro", Label: "Sonar Pro", ContextWindow: 200000},
			},
			DefaultModel: "sonar",
			Temperature:  FloatRange{Min: 0, Max: 2, Default: 0.2},
			MaxTokens:    IntRange{Min: 1, Max: 8192, Default: 4096},
			Capabilities: Capabilities{},
		},
		&Descriptor{
			ID:         "mistral",
			Label:      "Mistral",
			Family:     FamilyOpenAI,
			BaseURL:    "https://api.mistral.ai/v1",
			AuthScheme: AuthBearer,
			Models: []ModelInfo{
				{ID: "mistral-large-latest", Label: "Mistral Large", ContextWindow: 131072},
				{ID: "mistral-small-latest", Label: "Mistral Small", ContextWindow: 32768},
			},
			DefaultModel: "mistral-small-latest",
			Temperature:  FloatRange{Min: 0, Max: 1.5, Default: 0.7},
			MaxTokens:    IntRange{Min: 1, Max: 16384, Default: 4096},
			Capabilities: Capabilities{Tools: true, JSONMode: true},
		},
		&Descriptor{
			ID:         "zhipu",
			Label:      "Zhipu GLM",
			Family:     FamilyOpenAI,
			BaseURL:    "https://open.bigmodel.cn/api/paas/v4",
			AuthScheme: AuthBearer,
			Models: []ModelInfo{
				{ID: "glm-4-plus", Label: "GLM-4 Plus", ContextWindow: 128000},
				{ID: "glm-4-flash", Label: "GLM-4 Flash", ContextWindow: 128000},
			},
			DefaultModel: "glm-4-flash",
			Temperature:  FloatRange{Min: 0.01, Max: 0.99, Default: 0.75},
			MaxTokens:    IntRange{Min: 1, Max: 8192, Default: 4096},
			Capabilities: Capabilities{Tools: true, JSONMode: true},
		},
		&Descriptor{
			ID:         "openrouter",
			Label:      "OpenRouter",
			Family:     FamilyOpenAI,
			BaseURL:    "https://openrouter.ai/api/v1",
			AuthScheme: AuthBearer,
			Models: []ModelInfo{
				{ID: "openai/gpt-4o", Label: "GPT-4o", ContextWindow: 128000},
				{ID: "anthropic/claude-sonnet-4.5", Label: "Claude Sonnet 4.5", ContextWindow: 200000},
				{ID: "google/gemini-2.0-flash-001", Label: "Gemini 2.0 Flash", ContextWindow: 1048576},
			},
			DefaultModel: "openai/gpt-4o",
			Temperature:  FloatRange{Min: 0, Max: 2, Default: 1},
			MaxTokens:    IntRange{Min: 1, Max: 16384, Default: 4096},
			Capabilities: Capabilities{Vision: true, Tools: true, JSONMode: true},
		},
		&Descriptor{
			ID:         "ollama",
			Label:      "Ollama",
			Family:     FamilyOllama,
			BaseURL:    "http://localhost:11434",
			AuthScheme: AuthNone,
			Models: []ModelInfo{
				{ID: "llama3.1", Label: "Llama 3.1", ContextWindow: 131072},
				{ID: "qwen2.5", Label: "Qwen 2.5", ContextWindow: 32768},
				{ID: "mistral", Label: "Mistral 7B", ContextWindow: 32768},
			},
			DefaultModel: "llama3.1",
			Temperature:  FloatRange{Min: 0, Max: 2, Default: 0.8},
			MaxTokens:    IntRange{Min: 1, Max: 8192, Default: 2048},
			Capabilities: Capabilities{Tools: true, JSONMode: true},
		},
	)
}

func boolFlag(v bool) *bool {
	return &v
}
