// Package transport provides the shared HTTP client used for every vendor
// call: connection pooling, HTTP/2, credential attachment, and vendor error
// envelope decoding. It never interprets response bodies beyond error
// envelopes; the reader package owns stream consumption.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http2"

	"github.com/verity-ai/chatstream-go/pkg/provider"
)

const (
	defaultDialTimeout   = 10 * time.Second
	defaultTLSTimeout    = 10 * time.Second
	defaultHeaderTimeout = 60 * time.Second
	defaultIdleTimeout   = 90 * time.Second
	defaultUserAgent     = "chatstream/0.1.0"

	// maxErrorBodyBytes caps how much of a failed response is read back.
	maxErrorBodyBytes = 64 * 1024
)

type config struct {
	dialTimeout   time.Duration
	tlsTimeout    time.Duration
	headerTimeout time.Duration
	userAgent     string
	httpClient    *http.Client
}

// Option configures the transport client.
type Option func(*config)

// WithDialTimeout bounds TCP connection establishment.
func WithDialTimeout(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.dialTimeout = d
		}
	}
}

// WithTLSTimeout bounds the TLS handshake.
func WithTLSTimeout(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.tlsTimeout = d
		}
	}
}

// WithHeaderTimeout bounds the wait for response headers. Response bodies
// are never subject to this timeout, so streams can stay open indefinitely.
func WithHeaderTimeout(d time.Duration) Option {
	return func(cfg *config) {
		if d > 0 {
			cfg.headerTimeout = d
		}
	}
}

// WithUserAgent overrides the User-Agent header sent on every request.
func WithUserAgent(ua string) Option {
	return func(cfg *config) {
		if ua != "" {
			cfg.userAgent = ua
		}
	}
}

// WithHTTPClient substitutes the underlying HTTP client (tests, proxies).
func WithHTTPClient(hc *http.Client) Option {
	return func(cfg *config) {
		if hc != nil {
			cfg.httpClient = hc
		}
	}
}

// Client issues vendor API requests over a shared connection pool. It
// carries no overall request timeout; streaming responses stay open until
// the stream ends or ctx is cancelled, and blocking calls are bounded by
// their caller's ctx.
type Client struct {
	http      *http.Client
	userAgent string
}

// New builds a Client with HTTP/2 enabled and pooling shared across all
// providers.
func New(opts ...Option) *Client {
	cfg := config{
		dialTimeout:   defaultDialTimeout,
		tlsTimeout:    defaultTLSTimeout,
		headerTimeout: defaultHeaderTimeout,
		userAgent:     defaultUserAgent,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.httpClient != nil {
		return &Client{http: cfg.httpClient, userAgent: cfg.userAgent}
	}

	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.dialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   cfg.tlsTimeout,
		ResponseHeaderTimeout: cfg.headerTimeout,
		IdleConnTimeout:       defaultIdleTimeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   8,
		ExpectContinueTimeout: time.Second,
	}
	// Fresh transport; ConfigureTransport only fails on one already set up.
	_ = http2.ConfigureTransport(tr)

	return &Client{
		http:      &http.Client{Transport: tr},
		userAgent: cfg.userAgent,
	}
}

// Request describes one outbound vendor call.
type Request struct {
	URL    string
	Header http.Header
	Body   any
}

// Post JSON-encodes body and issues the request. Non-2xx responses are
// drained into an *APIError and their bodies closed; on success the caller
// owns resp.Body.
func (c *Client) Post(ctx context.Context, rawURL string, header http.Header, body any) (*http.Response, error) {
	resp, err := c.do(ctx, rawURL, header, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, ReadAPIError(resp)
	}
	return resp, nil
}

// Stream issues the request and hands back the unread body for the stream
// reader to consume. Non-2xx responses are drained into an *APIError and
// their bodies closed.
func (c *Client) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	resp, err := c.do(ctx, req.URL, req.Header, req.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, ReadAPIError(resp)
	}
	return resp.Body, nil
}

func (c *Client) do(ctx context.Context, rawURL string, header http.Header, body any) (*http.Response, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	for key, values := range header {
		for _, v := range values {
			if v == "" {
				continue
			}
			req.Header.Add(key, v)
		}
	}

	return c.http.Do(req)
}

// ApplyAuth attaches the credential the way the provider's scheme demands.
// Query-token vendors receive it through q; everything else through h.
// Empty credentials are left off entirely.
func ApplyAuth(h http.Header, q url.Values, scheme provider.AuthScheme, queryParam, credential string) {
	if credential == "" {
		return
	}
	switch scheme {
	case provider.AuthBearer:
		h.Set("Authorization", "Bearer "+credential)
	case provider.AuthXAPIKey:
		h.Set("x-api-key", credential)
	case provider.AuthAPIKey:
		h.Set("api-key", credential)
	case provider.AuthQuery:
		if queryParam == "" {
			queryParam = "access_token"
		}
		q.Set(queryParam, credential)
	}
}

// APIError surfaces HTTP metadata along with the vendor's error details.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "api error (%d", e.StatusCode)
	if e.Type != "" {
		b.WriteString(", ")
		b.WriteString(e.Type)
	}
	b.WriteString(")")
	if e.Code != "" {
		b.WriteString(" code=")
		b.WriteString(e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// ReadAPIError decodes a non-2xx response into an *APIError. It understands
// the nested {"error":{...}} envelope (OpenAI, Anthropic, Google), the flat
// error_code/error_msg pair (Baidu), and a bare {"error":"text"} string
// (Ollama), falling back to the raw body text. It always returns non-nil.
// The caller still owns resp.Body.
func ReadAPIError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	}
	if apiErr := parseErrorBody(resp.StatusCode, body); apiErr != nil {
		return apiErr
	}
	return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
}

func parseErrorBody(status int, body []byte) *APIError {
	var env struct {
		Error     json.RawMessage `json:"error"`
		ErrorCode json.RawMessage `json:"error_code"`
		ErrorMsg  string          `json:"error_msg"`
	}
	if err := json.Unmarshal(body, &env); err != nil {
		return nil
	}

	if env.ErrorMsg != "" {
		return &APIError{StatusCode: status, Code: rawScalar(env.ErrorCode), Message: env.ErrorMsg}
	}
	if len(env.Error) == 0 {
		return nil
	}

	var plain string
	if err := json.Unmarshal(env.Error, &plain); err == nil {
		if plain == "" {
			return nil
		}
		return &APIError{StatusCode: status, Message: plain}
	}

	var detail struct {
		Message string          `json:"message"`
		Type    string          `json:"type"`
		Status  string          `json:"status"`
		Code    json.RawMessage `json:"code"`
	}
	if err := json.Unmarshal(env.Error, &detail); err != nil {
		return nil
	}
	if detail.Message == "" {
		return nil
	}
	typ := detail.Type
	if typ == "" {
		typ = detail.Status
	}
	return &APIError{StatusCode: status, Type: typ, Code: rawScalar(detail.Code), Message: detail.Message}
}

// rawScalar renders a JSON code field that vendors ship as either a string
// or a number.
func rawScalar(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
