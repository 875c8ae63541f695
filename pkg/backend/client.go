// Package backend is the typed client of the storefront REST backend.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/example/shopdash/pkg/config"
	"github.com/example/shopdash/pkg/metrics"
)

// Client issues requests to the backend. It never retries; callers decide
// what a failure means for the user.
type Client struct {
	baseURL    string
	resolver   Resolver
	httpClient *http.Client
	tokens     TokenSource
	logger     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithResolver makes the client look up its base URL on every request,
// falling back to the configured one when the lookup fails.
func WithResolver(r Resolver) Option {
	return func(c *Client) { c.resolver = r }
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func New(cfg config.BackendConfig, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithTokens returns a copy of c authenticating with ts. The copy shares the
// underlying HTTP client.
func (c *Client) WithTokens(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	form   *multipartForm
}

type multipartForm struct {
	fields   map[string]string
	file     io.Reader
	fileName string
}

type serverMessage struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) base(ctx context.Context) string {
	if c.resolver == nil {
		return c.baseURL
	}
	u, err := c.resolver.BaseURL(ctx)
	if err != nil || u == "" {
		c.logger.Debug("Using configured backend address", zap.String("address", c.baseURL), zap.Error(err))
		return c.baseURL
	}
	return strings.TrimRight(u, "/")
}

func (c *Client) newHTTPRequest(ctx context.Context, r request) (*http.Request, error) {
	target := c.base(ctx) + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	var body io.Reader
	contentType := ""
	switch {
	case r.form != nil:
		buf, ct, err := r.form.encode()
		if err != nil {
			return nil, err
		}
		body, contentType = buf, ct
	case r.body != nil:
		data, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		body, contentType = bytes.NewReader(data), "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, &Error{Kind: KindUnauthorized, Err: err}
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, r request, out any) (err error) {
	start := time.Now()
	defer func() {
		metrics.BackendRequests.WithLabelValues(r.method, outcome(err)).Inc()
		c.logger.Debug("Backend request",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.Duration("latency", time.Since(start)),
			zap.Error(err))
	}()

	req, err := c.newHTTPRequest(ctx, r)
	if err != nil {
		if _, ok := As(err); ok {
			return err
		}
		return &Error{Kind: KindNetwork, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(ctxErr, context.Canceled) {
			return &Error{Kind: KindCanceled, Err: ctxErr}
		}
		return &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return &Error{Kind: KindCanceled, Err: ctx.Err()}
		}
		return &Error{Kind: KindNetwork, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindDecode, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func statusError(status int, body []byte) *Error {
	var msg serverMessage
	_ = json.Unmarshal(body, &msg)
	text := msg.Message
	if text == "" {
		text = msg.Error
	}

	switch {
	case status == http.StatusUnauthorized:
		return &Error{Kind: KindUnauthorized, Status: status, Message: text}
	case status >= http.StatusInternalServerError:
		// server detail is not shown to users
		return &Error{Kind: KindServer, Status: status, Err: errors.New(text)}
	default:
		return &Error{Kind: KindClient, Status: status, Message: text}
	}
}

func outcome(err error) string {
	if be, ok := As(err); ok {
		return string(be.Kind)
	}
	return metrics.Outcome(err)
}

func (f *multipartForm) encode() (io.Reader, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range f.fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}
	if f.file != nil {
		part, err := w.CreateFormFile("image", f.fileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.Copy(part, f.file); err != nil {
			return nil, "", fmt.Errorf("read upload: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}
