package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/verity-ai/chatstream-go/pkg/chat"
)

// Func is a locally registered tool implementation. It receives the raw JSON
// argument text the model produced and returns the result text.
type Func func(ctx context.Context, args json.RawMessage) (string, error)

// Registry is an in-memory Invoker over locally registered Go functions.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	specs []ToolSpec
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds a tool. Names must be unique.
func (r *Registry) Register(spec ToolSpec, fn Func) error {
	if fn == nil {
		return errors.New("tool function is nil")
	}
	if spec.Name == "" {
		return errors.New("tool name is empty")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.funcs[spec.Name]; ok {
		return fmt.Errorf("tool %q already registered", spec.Name)
	}
	r.funcs[spec.Name] = fn
	r.specs = append(r.specs, spec)
	return nil
}

// ListTools returns the registered specs in registration order.
func (r *Registry) ListTools(ctx context.Context) ([]ToolSpec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ToolSpec, len(r.specs))
	copy(out, r.specs)
	return out, nil
}

// CallTool executes a registered tool by name.
func (r *Registry) CallTool(ctx context.Context, name string, args json.RawMessage) (*chat.ToolResult, error) {
	r.mu.RLock()
	fn, ok := r.funcs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("tool %q not found", name)
	}
	out, err := fn(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return &chat.ToolResult{Name: name, Content: out}, nil
}
