// Package service orchestrates one chat exchange end to end: credential
// check, payload build, transport, stream reading, and the tool-use loop.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/verity-ai/chatstream-go/pkg/chat"
	"github.com/verity-ai/chatstream-go/pkg/config"
	"github.com/verity-ai/chatstream-go/pkg/payload"
	"github.com/verity-ai/chatstream-go/pkg/provider"
	"github.com/verity-ai/chatstream-go/pkg/reader"
	"github.com/verity-ai/chatstream-go/pkg/telemetry"
	"github.com/verity-ai/chatstream-go/pkg/tokens"
	"github.com/verity-ai/chatstream-go/pkg/tools"
	"github.com/verity-ai/chatstream-go/pkg/transport"
)

const defaultToolLoopLimit = 6

// ErrToolLoopExceeded reports that the model kept requesting tools past the
// configured cap.
var ErrToolLoopExceeded = errors.New("tool loop limit exceeded")

// Service sends chat exchanges for any provider family.
type Service struct {
	settings  *config.Settings
	client    *transport.Client
	invoker   tools.Invoker
	estimator tokens.Estimator
	logger    *slog.Logger
}

// Option configures the service.
type Option func(*Service)

// WithTransport substitutes the HTTP client.
func WithTransport(c *transport.Client) Option {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

// WithInvoker wires the tool executor. Without one, tool use is off even
// when the context asks for it.
func WithInvoker(inv tools.Invoker) Option {
	return func(s *Service) {
		s.invoker = inv
	}
}

// WithEstimator overrides the token estimator used when a vendor reports
// no usage.
func WithEstimator(est tokens.Estimator) Option {
	return func(s *Service) {
		if est != nil {
			s.estimator = est
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New builds a Service over the given settings.
func New(st *config.Settings, opts ...Option) *Service {
	if st == nil {
		st = config.Default()
	}
	s := &Service{
		settings:  st,
		client:    transport.New(),
		estimator: tokens.Heuristic{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendMessage runs one conversational turn: it appends userMsg to the
// context history, invokes the model, executes any requested tools up to
// the loop cap, and returns the folded exchange. Callbacks fire during
// streaming reads and once with the complete values on blocking reads.
func (s *Service) SendMessage(ctx context.Context, cc *chat.ChatContext, userMsg chat.Message, cb reader.Callbacks) (_ *chat.Exchange, err error) {
	if cc == nil || cc.Provider == nil {
		return nil, errors.New("chat context is nil")
	}

	ctx, span := telemetry.StartSpan(ctx, "service.send",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("llm.provider", cc.Provider.ID),
			attribute.String("llm.model", cc.Model.ID),
			attribute.Bool("llm.stream", cc.Stream),
		)...),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	credential := s.settings.Credential(cc.Provider.ID)
	if credential == "" && cc.Provider.AuthScheme != provider.AuthNone {
		return nil, chat.ErrAuthMissing
	}

	specs, err := s.toolSpecs(ctx, cc)
	if err != nil {
		return nil, err
	}

	history := append(make([]chat.Message, 0, len(cc.History)+1), cc.History...)
	history = append(history, userMsg)

	limit := cc.ToolLoopLimit
	if limit <= 0 {
		limit = defaultToolLoopLimit
	}

	ex := &chat.Exchange{RequestID: cc.RequestID}
	seen := make(map[string]struct{})
	toolCalls := 0

	for round := 1; ; round++ {
		res, err := s.invokeModel(ctx, cc, history, specs, credential, round, cb)
		ex.Rounds = round
		ex.Content = appendText(ex.Content, res.Content)
		ex.Reasoning = appendText(ex.Reasoning, res.Reasoning)
		ex.Usage.Add(res.Usage)
		if err != nil {
			return nil, err
		}
		ex.FinishReason = res.FinishReason

		s.logger.Debug("model round complete",
			"request_id", cc.RequestID,
			"round", round,
			"finish", res.FinishReason,
			"tool_requested", res.Tool != nil)

		if res.Tool == nil || !cc.ToolUse || s.invoker == nil {
			break
		}
		if toolCalls >= limit {
			return nil, fmt.Errorf("%w after %d tool calls", ErrToolLoopExceeded, limit)
		}
		toolCalls++

		if _, ok := seen[res.Tool.Name]; !ok {
			seen[res.Tool.Name] = struct{}{}
			ex.UsedTools = append(ex.UsedTools, res.Tool.Name)
		}

		history = append(history,
			chat.Message{Role: chat.RoleAssistant, Content: res.Content, ToolCalls: []chat.ToolCall{*res.Tool}},
			s.runTool(ctx, res.Tool),
		)
	}

	s.fillUsage(ctx, cc, history, ex)
	return ex, nil
}

// invokeModel performs one request/response round against the vendor.
func (s *Service) invokeModel(ctx context.Context, cc *chat.ChatContext, history []chat.Message, specs []tools.ToolSpec, credential string, round int, cb reader.Callbacks) (_ chat.ReadResult, err error) {
	ctx, span := telemetry.StartSpan(ctx, "service.request",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.provider", cc.Provider.ID),
			attribute.String("llm.model", cc.Model.ID),
			attribute.Bool("llm.stream", cc.Stream),
			attribute.Int("llm.round", round),
		),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	body, err := s.buildPayload(cc, history, specs)
	if err != nil {
		return chat.ReadResult{}, err
	}
	endpoint, header, err := prepareRequest(cc, credential)
	if err != nil {
		return chat.ReadResult{}, err
	}

	if cc.Stream {
		return s.readStream(ctx, cc, endpoint, header, body, cb)
	}
	return s.readComplete(ctx, cc, endpoint, header, body, cb)
}

func (s *Service) readStream(ctx context.Context, cc *chat.ChatContext, endpoint string, header http.Header, body any, cb reader.Callbacks) (chat.ReadResult, error) {
	stream, err := s.client.Stream(ctx, transport.Request{URL: endpoint, Header: header, Body: body})
	if err != nil {
		return chat.ReadResult{}, err
	}
	defer stream.Close()

	eng, err := reader.New(cc.Provider.Family, reader.WithLogger(s.logger))
	if err != nil {
		return chat.ReadResult{}, err
	}

	rctx, rspan := telemetry.StartSpan(ctx, "reader.consume")
	res, err := eng.Read(rctx, stream, cb)
	telemetry.EndSpan(rspan, err)
	return res, err
}

func (s *Service) readComplete(ctx context.Context, cc *chat.ChatContext, endpoint string, header http.Header, body any, cb reader.Callbacks) (chat.ReadResult, error) {
	resp, err := s.client.Post(ctx, endpoint, header, body)
	if err != nil {
		return chat.ReadResult{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return chat.ReadResult{}, fmt.Errorf("read response: %w", err)
	}

	res, err := reader.ParseComplete(cc.Provider.Family, data)
	if err != nil {
		if errors.Is(err, chat.ErrVendorError) && cb.OnError != nil {
			cb.OnError(err)
		}
		return res, err
	}

	// Blocking reads still drive the callbacks, once with complete values.
	if res.Content != "" && cb.OnProgress != nil {
		cb.OnProgress(res.Content)
	}
	if res.Reasoning != "" && cb.OnReasoning != nil {
		cb.OnReasoning(res.Reasoning)
	}
	if res.Tool != nil && cb.OnToolCall != nil {
		cb.OnToolCall(res.Tool.Name)
	}
	return res, nil
}

// runTool executes one model-requested tool call. Failures are not fatal:
// the error is embedded as the tool result so the model can recover, and
// the loop cap bounds retries.
func (s *Service) runTool(ctx context.Context, call *chat.ToolCall) chat.Message {
	ctx, span := telemetry.StartSpan(ctx, "service.tool",
		trace.WithAttributes(attribute.String("tool.name", call.Name)),
	)

	args := strings.TrimSpace(call.Arguments)
	if args == "" {
		args = "{}"
	}

	result, err := s.invoker.CallTool(ctx, call.Name, json.RawMessage(args))
	telemetry.EndSpan(span, err)
	if err != nil {
		s.logger.Warn("tool call failed", "tool", call.Name, "error", err)
		body, _ := json.Marshal(struct {
			Error string `json:"error"`
		}{Error: err.Error()})
		result = &chat.ToolResult{Name: call.Name, Content: string(body)}
	}

	sanitized := tools.SanitizeResult(result)
	if sanitized == nil {
		sanitized = &chat.ToolResult{Name: call.Name}
	}
	sanitized.CallID = call.ID
	if sanitized.Name == "" {
		sanitized.Name = call.Name
	}
	return chat.Message{Role: chat.RoleTool, ToolResult: sanitized}
}

func (s *Service) toolSpecs(ctx context.Context, cc *chat.ChatContext) ([]tools.ToolSpec, error) {
	if !cc.ToolUse || s.invoker == nil {
		return nil, nil
	}
	specs, err := s.invoker.ListTools(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tools: %w", err)
	}
	return specs, nil
}

// buildPayload renders the working history into the family's wire shape.
// The context is copied so builders see the per-round history without the
// caller's context ever being mutated.
func (s *Service) buildPayload(cc *chat.ChatContext, history []chat.Message, specs []tools.ToolSpec) (any, error) {
	work := *cc
	work.History = history

	switch cc.Provider.Family {
	case provider.FamilyOpenAI:
		return payload.BuildOpenAI(&work, specs)
	case provider.FamilyAnthropic:
		return payload.BuildAnthropic(&work, specs)
	case provider.FamilyGoogle:
		return payload.BuildGoogle(&work, specs)
	case provider.FamilyBaidu:
		return payload.BuildBaidu(&work, specs)
	case provider.FamilyOllama:
		return payload.BuildOllama(&work, specs)
	default:
		return nil, fmt.Errorf("unknown provider family %q", cc.Provider.Family)
	}
}

// prepareRequest resolves the endpoint URL and attaches auth material.
func prepareRequest(cc *chat.ChatContext, credential string) (string, http.Header, error) {
	endpoint, err := cc.Provider.Endpoint(cc.Model, cc.Stream)
	if err != nil {
		return "", nil, err
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", nil, fmt.Errorf("parse endpoint: %w", err)
	}

	header := make(http.Header)
	for k, v := range cc.Provider.ExtraHeaders {
		header.Set(k, v)
	}
	q := u.Query()
	transport.ApplyAuth(header, q, cc.Provider.AuthScheme, cc.Provider.QueryParam, credential)
	u.RawQuery = q.Encode()

	return u.String(), header, nil
}

// fillUsage estimates token counts when the vendor reported none at all.
func (s *Service) fillUsage(ctx context.Context, cc *chat.ChatContext, history []chat.Message, ex *chat.Exchange) {
	if !ex.Usage.Empty() {
		return
	}

	prompt := history
	if cc.SystemPrompt != "" {
		prompt = append([]chat.Message{{Role: chat.RoleSystem, Content: cc.SystemPrompt}}, history...)
	}
	if in, err := s.estimator.Estimate(ctx, cc.Model.ID, prompt); err == nil {
		ex.Usage.InputTokens = in
	}
	reply := chat.Message{Role: chat.RoleAssistant, Content: ex.Content}
	if out, err := s.estimator.Estimate(ctx, cc.Model.ID, []chat.Message{reply}); err == nil {
		ex.Usage.OutputTokens = out
	}
	ex.Usage.Estimated = true
}

func appendText(dst, add string) string {
	if add == "" {
		return dst
	}
	if dst == "" {
		return add
	}
	return dst + "\n" + add
}
