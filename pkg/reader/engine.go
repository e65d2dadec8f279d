package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/provider"
)

// Callbacks receive incremental events while a stream is consumed. Every
// field is optional. OnProgress and OnReasoning fire once per decoded delta,
// never batched. OnToolCall fires once per tool call, as soon as its name is
// known. OnError fires at most once, for vendor error objects embedded in the
// stream; no progress follows it.
type Callbacks struct {
	OnProgress  func(delta string)
	OnReasoning func(delta string)
	OnToolCall  func(name string)
	OnError     func(err error)
}

func (cb Callbacks) progress(delta string) {
	if cb.OnProgress != nil {
		cb.OnProgress(delta)
	}
}

func (cb Callbacks) reasoning(delta string) {
	if cb.OnReasoning != nil {
		cb.OnReasoning(delta)
	}
}

func (cb Callbacks) toolCall(name string) {
	if cb.OnToolCall != nil {
		cb.OnToolCall(name)
	}
}

func (cb Callbacks) fail(err error) {
	if cb.OnError != nil {
		cb.OnError(err)
	}
}

// decoder interprets one framed wire unit, updating engine state and firing
// callbacks. A non-nil error is fatal and aborts the read; recoverable parse
// problems are logged and skipped inside the decoder instead.
type decoder interface {
	decode(e *Engine, unit []byte, cb Callbacks) error
}

// Engine consumes one model turn from a vendor stream. It is single-use:
// create a new Engine per read.
type Engine struct {
	family provider.Family
	logger *slog.Logger
	dec    decoder

	content   strings.Builder
	reasoning strings.Builder
	builders  map[int]*toolCallBuilder
	finish    string
	usage     chat.Usage
	chunks    int
	finished  bool
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New builds an Engine for the given provider family.
func New(family provider.Family, opts ...Option) (*Engine, error) {
	e := &Engine{
		family:   family,
		logger:   slog.Default(),
		builders: map[int]*toolCallBuilder{},
	}
	switch family {
	case provider.FamilyOpenAI:
		e.dec = openAIDecoder{}
	case provider.FamilyAnthropic:
		e.dec = anthropicDecoder{}
	case provider.FamilyGoogle:
		e.dec = googleDecoder{}
	case provider.FamilyBaidu:
		e.dec = baiduDecoder{}
	case provider.FamilyOllama:
		e.dec = ollamaDecoder{}
	default:
		return nil, fmt.Errorf("unknown provider family %q", family)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Read consumes the stream until its terminal signal, cancellation, or a
// fatal error, dispatching callbacks as units decode. It always returns the
// accumulated ReadResult, on every exit path: a cancelled or failed read
// yields the partial result alongside the error.
func (e *Engine) Read(ctx context.Context, body io.Reader, cb Callbacks) (res chat.ReadResult, err error) {
	framer := e.newFramer(body)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reader panic: %v", r)
		}
		res = e.finalize()
	}()

	for !e.finished {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}
		unit, ferr := framer.Next()
		if ferr != nil {
			if errors.Is(ferr, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			return res, fmt.Errorf("read stream: %w", ferr)
		}
		if len(unit) == 0 {
			continue
		}
		e.chunks++
		if derr := e.dec.decode(e, unit, cb); derr != nil {
			cb.fail(derr)
			return res, derr
		}
	}
	return res, nil
}

func (e *Engine) newFramer(body io.Reader) Framer {
	switch e.family {
	case provider.FamilyGoogle:
		return newJSONArrayFramer(body)
	case provider.FamilyOllama:
		return newNDJSONFramer(body)
	default:
		return newSSEFramer(body)
	}
}

// finalize assembles the ReadResult from accumulated state. Called exactly
// once per read, unconditionally.
func (e *Engine) finalize() chat.ReadResult {
	res := chat.ReadResult{
		Content:      e.content.String(),
		Reasoning:    e.reasoning.String(),
		FinishReason: e.finish,
		Usage:        e.usage,
		Chunks:       e.chunks,
	}
	if calls := e.ToolCalls(); len(calls) > 0 {
		res.Tool = &calls[0]
	}
	return res
}

// ToolCalls returns every named tool call accumulated so far, ordered by
// wire index. Builders that never learned a name are dropped.
func (e *Engine) ToolCalls() []chat.ToolCall {
	if len(e.builders) == 0 {
		return nil
	}
	indices := make([]int, 0, len(e.builders))
	for idx := range e.builders {
		indices = append(indices, idx)
	}
	sort.Ints(indices)
	calls := make([]chat.ToolCall, 0, len(indices))
	for _, idx := range indices {
		b := e.builders[idx]
		if b == nil || strings.TrimSpace(b.name) == "" {
			continue
		}
		calls = append(calls, chat.ToolCall{
			ID:        b.id,
			Name:      b.name,
			Arguments: b.args.String(),
		})
	}
	return calls
}

// builder returns the accumulator for a wire index, creating it on first use.
func (e *Engine) builder(index int) *toolCallBuilder {
	b := e.builders[index]
	if b == nil {
		b = &toolCallBuilder{}
		e.builders[index] = b
	}
	return b
}

// nextIndex keys tool calls for vendors that deliver them atomically without
// an explicit index.
func (e *Engine) nextIndex() int {
	return len(e.builders)
}

// skip records a malformed unit and moves on. Vendors interleave keep-alives
// and occasionally truncated frames; one bad unit must not kill the stream.
func (e *Engine) skip(unit []byte, err error) {
	e.logger.Warn("skipping malformed stream unit",
		"family", string(e.family), "error", err, "unit", preview(unit))
}

// replaceUsage applies a vendor usage report. Every supported vendor reports
// cumulative totals at its reporting points, so reports replace rather than
// add.
func (e *Engine) replaceUsage(input, output int) {
	if input > 0 {
		e.usage.InputTokens = input
	}
	if output > 0 {
		e.usage.OutputTokens = output
	}
}

// toolCallBuilder accumulates one tool call across deltas. OpenAI-family
// streams split the name and argument text over many chunks; other vendors
// deliver both at once.
type toolCallBuilder struct {
	id        string
	name      string
	args      strings.Builder
	announced bool
}

func (b *toolCallBuilder) merge(id, name, args string) {
	if id != "" {
		b.id = id
	}
	if name != "" {
		b.name = name
	}
	if args != "" {
		b.args.WriteString(args)
	}
}

// announce fires OnToolCall the first time the builder has a name.
func (b *toolCallBuilder) announce(cb Callbacks) {
	if b.announced || b.name == "" {
		return
	}
	b.announced = true
	cb.toolCall(b.name)
}

const previewLimit = 80

func preview(b []byte) string {
	s := string(b)
	if len(s) <= previewLimit {
		return s
	}
	cut := previewLimit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
