// Package config loads and watches the client settings file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

const (
	appDirName      = "chatstream"
	settingsName    = "config.yaml"
	defaultHistory  = 20
	defaultToolLoop = 6
)

// Settings is the persisted client configuration. Pointer fields distinguish
// "unset, use the provider default" from an explicit zero.
type Settings struct {
	Provider      string   `json:"provider" yaml:"provider"`
	Model         string   `json:"model" yaml:"model"`
	Temperature   *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	MaxTokens     *int     `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
	SystemPrompt  string   `json:"system_prompt,omitempty" yaml:"system_prompt,omitempty"`
	HistoryWindow int      `json:"history_window" yaml:"history_window"`
	Stream        *bool    `json:"stream,omitempty" yaml:"stream,omitempty"`
	ToolUse       *bool    `json:"tool_use,omitempty" yaml:"tool_use,omitempty"`
	ToolLoopLimit int      `json:"tool_loop_limit" yaml:"tool_loop_limit"`

	Credentials map[string]string `json:"credentials,omitempty" yaml:"credentials,omitempty"`
	BaseURLs    map[string]string `json:"base_urls,omitempty" yaml:"base_urls,omitempty"`

	Telemetry TelemetrySettings `json:"telemetry,omitempty" yaml:"telemetry,omitempty"`
}

// TelemetrySettings configures the optional OTLP trace exporter.
type TelemetrySettings struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	Insecure    bool    `json:"insecure,omitempty" yaml:"insecure,omitempty"`
	SampleRatio float64 `json:"sample_ratio,omitempty" yaml:"sample_ratio,omitempty"`
}

// Default returns settings with every defaulted field populated.
func Default() *Settings {
	s := &Settings{}
	s.applyDefaults()
	return s
}

func (s *Settings) applyDefaults() {
	if strings.TrimSpace(s.Provider) == "" {
		s.Provider = "openai"
	}
	if s.HistoryWindow <= 0 {
		s.HistoryWindow = defaultHistory
	}
	if s.ToolLoopLimit <= 0 {
		s.ToolLoopLimit = defaultToolLoop
	}
}

// Normalize trims whitespace from identifiers and credential values.
func (s *Settings) Normalize() {
	if s == nil {
		return
	}
	s.Provider = strings.TrimSpace(s.Provider)
	s.Model = strings.TrimSpace(s.Model)
	for k, v := range s.Credentials {
		s.Credentials[k] = strings.TrimSpace(v)
	}
	for k, v := range s.BaseURLs {
		s.BaseURLs[k] = strings.TrimSpace(v)
	}
}

// StreamEnabled reports the streaming flag, defaulting to on.
func (s *Settings) StreamEnabled() bool {
	if s.Stream == nil {
		return true
	}
	return *s.Stream
}

// ToolUseEnabled reports the tool-use flag, defaulting to off.
func (s *Settings) ToolUseEnabled() bool {
	if s.ToolUse == nil {
		return false
	}
	return *s.ToolUse
}

// credentialEnvVars maps provider IDs to their conventional environment
// variables, checked after the CHATSTREAM_<ID>_API_KEY override.
var credentialEnvVars = map[string][]string{
	"openai":     {"OPENAI_API_KEY"},
	"azure":      {"AZURE_OPENAI_API_KEY"},
	"anthropic":  {"ANTHROPIC_API_KEY"},
	"google":     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	"baidu":      {"QIANFAN_ACCESS_TOKEN"},
	"grok":       {"XAI_API_KEY"},
	"perplexity": {"PERPLEXITY_API_KEY"},
	"mistral":    {"MISTRAL_API_KEY"},
	"zhipu":      {"ZHIPU_API_KEY"},
	"openrouter": {"OPENROUTER_API_KEY"},
}

// Credential resolves the API credential for a provider: the settings file
// first, then CHATSTREAM_<ID>_API_KEY, then the provider's conventional
// environment variables. Empty means no credential is configured.
func (s *Settings) Credential(providerID string) string {
	if v := strings.TrimSpace(s.Credentials[providerID]); v != "" {
		return v
	}
	envID := strings.ToUpper(strings.ReplaceAll(providerID, "-", "_"))
	if v := strings.TrimSpace(os.Getenv("CHATSTREAM_" + envID + "_API_KEY")); v != "" {
		return v
	}
	for _, name := range credentialEnvVars[providerID] {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// BaseURL returns the configured override for a provider, or empty.
func (s *Settings) BaseURL(providerID string) string {
	return strings.TrimSpace(s.BaseURLs[providerID])
}

// DefaultPath returns the settings location under the user config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, appDirName, settingsName), nil
}

// Loader loads and caches settings, keeping the last good state across
// failed reloads.
type Loader struct {
	path string

	mu   sync.Mutex
	last atomic.Pointer[Settings]
}

// NewLoader wires a loader for the given settings path. An empty path uses
// DefaultPath.
func NewLoader(path string) (*Loader, error) {
	if strings.TrimSpace(path) == "" {
		def, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = def
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve settings path: %w", err)
	}
	return &Loader{path: abs}, nil
}

// Path returns the absolute settings path.
func (l *Loader) Path() string {
	return l.path
}

// Last returns the most recent valid settings.
func (l *Loader) Last() (*Settings, bool) {
	s := l.last.Load()
	if s == nil {
		return nil, false
	}
	return s, true
}

// Load reads and decodes the settings file. A missing file yields defaults.
func (l *Loader) Load() (*Settings, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, err := l.loadOnce()
	if err != nil {
		return nil, err
	}
	l.last.Store(s)
	return s, nil
}

// Reload refreshes settings, keeping the last good state on error.
func (l *Loader) Reload() (*Settings, error) {
	prev, _ := l.Last()
	s, err := l.Load()
	if err != nil {
		if prev != nil {
			return prev, fmt.Errorf("reload failed, keeping last good settings: %w", err)
		}
		return nil, err
	}
	return s, nil
}

func (l *Loader) loadOnce() (*Settings, error) {
	raw, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	s, err := Parse(raw)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Parse decodes yaml or json settings and applies defaults.
func Parse(raw []byte) (*Settings, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return Default(), nil
	}
	s := &Settings{}
	if err := decodeMixedYAMLJSON(raw, s); err != nil {
		return nil, err
	}
	s.Normalize()
	s.applyDefaults()
	return s, nil
}

// Save writes settings as yaml, creating parent directories as needed.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func decodeMixedYAMLJSON(data []byte, out any) error {
	if err := yaml.Unmarshal(data, out); err == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err == nil {
		return nil
	}
	return errors.New("settings decode failed: unsupported format")
}
