package telemetry

import (
	"fmt"
	"regexp"

	"go.opentelemetry.io/otel/attribute"
)

const defaultMask = "***"

// defaultPatterns catch credential-looking values regardless of user
// configuration.
var defaultPatterns = []string{
	`sk-[A-Za-z0-9_-]{8,}`,
	`(?i)bearer\s+[A-Za-z0-9._~+/-]+=*`,
	`(?i)(api[_-]?key|access[_-]?token|secret|password)\s*[=:]\s*\S+`,
}

// FilterConfig customizes credential masking. Patterns extend the built-in
// credential patterns; Mask replaces every match.
type FilterConfig struct {
	Mask     string
	Patterns []string
}

type filter struct {
	replacement string
	patterns    []*regexp.Regexp
}

func newFilter(cfg FilterConfig) (*filter, error) {
	replacement := cfg.Mask
	if replacement == "" {
		replacement = defaultMask
	}

	raw := append(append([]string{}, defaultPatterns...), cfg.Patterns...)
	patterns := make([]*regexp.Regexp, 0, len(raw))
	for _, p := range raw {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile filter pattern %q: %w", p, err)
		}
		patterns = append(patterns, re)
	}

	return &filter{replacement: replacement, patterns: patterns}, nil
}

func (f *filter) mask(s string) string {
	if f == nil || s == "" {
		return s
	}
	for _, re := range f.patterns {
		s = re.ReplaceAllString(s, f.replacement)
	}
	return s
}

func (f *filter) sanitize(attrs []attribute.KeyValue) []attribute.KeyValue {
	if f == nil || len(attrs) == 0 {
		return attrs
	}
	out := make([]attribute.KeyValue, len(attrs))
	for i, kv := range attrs {
		switch kv.Value.Type() {
		case attribute.STRING:
			out[i] = attribute.String(string(kv.Key), f.mask(kv.Value.AsString()))
		case attribute.STRINGSLICE:
			vals := kv.Value.AsStringSlice()
			masked := make([]string, len(vals))
			for j, v := range vals {
				masked[j] = f.mask(v)
			}
			out[i] = attribute.StringSlice(string(kv.Key), masked)
		default:
			out[i] = kv
		}
	}
	return out
}
