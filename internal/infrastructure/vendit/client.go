package vendit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/optiply/target-vendit/internal/domain/prepurchase"
	"github.com/optiply/target-vendit/internal/infrastructure/telemetry"
)

// maxResponseSize is the maximum allowed response size from the Vendit API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// maxErrorBodyLen bounds the response text carried in a failure
const maxErrorBodyLen = 512

// StatusCategory classifies an HTTP status code
type StatusCategory int

const (
	CategorySuccess StatusCategory = iota + 1
	CategoryUnauthorized
	CategoryClientError
	CategoryServerError
)

// String returns the category name
func (c StatusCategory) String() string {
	switch c {
	case CategorySuccess:
		return "success"
	case CategoryUnauthorized:
		return "unauthorized"
	case CategoryClientError:
		return "client_error"
	case CategoryServerError:
		return "server_error"
	default:
		return "unknown"
	}
}

// Categorize maps a status code to its category
func Categorize(status int) StatusCategory {
	switch {
	case status >= 200 && status < 300:
		return CategorySuccess
	case status == http.StatusUnauthorized:
		return CategoryUnauthorized
	case status >= 500:
		return CategoryServerError
	default:
		return CategoryClientError
	}
}

// Response is the outcome of one API request
type Response struct {
	StatusCode int
	Category   StatusCategory
	// Raw is the response body, truncated at 10MB
	Raw []byte
}

// OK reports whether the request succeeded
func (r *Response) OK() bool {
	return r.Category == CategorySuccess
}

// Decode decodes a JSON object body. An empty body decodes to nil.
func (r *Response) Decode() (map[string]any, error) {
	if len(bytes.TrimSpace(r.Raw)) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(r.Raw))
	dec.UseNumber()
	var body map[string]any
	if err := dec.Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", prepurchase.ErrInvalidResponse, err)
	}
	return body, nil
}

// Text returns the body as trimmed text, truncated for error messages
func (r *Response) Text() string {
	s := strings.TrimSpace(string(r.Raw))
	if len(s) > maxErrorBodyLen {
		s = s[:maxErrorBodyLen] + "..."
	}
	return s
}

// Client sends authenticated requests to the Vendit API
type Client struct {
	config     *Config
	auth       *Authenticator
	httpClient *http.Client
	logger     *zap.Logger
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithLogger sets the client logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient replaces the HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient creates a client for the account of auth
func NewClient(auth *Authenticator, opts ...ClientOption) *Client {
	c := &Client{
		config: auth.config,
		auth:   auth,
		httpClient: &http.Client{
			Timeout: time.Duration(auth.config.TimeoutSeconds) * time.Second,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends payload as JSON to endpoint, relative to the API base.
// A 401 invalidates the token and the request is retried once.
// The error is non-nil only when no response was obtained.
func (c *Client) Do(ctx context.Context, method, endpoint string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("vendit: failed to encode request: %w", err)
	}

	ctx, span := telemetry.StartSpan(ctx, "vendit."+strings.ToLower(method),
		telemetry.WithSpanKind(trace.SpanKindClient),
		telemetry.WithAttribute("http.method", method),
		telemetry.WithAttribute("http.route", endpoint),
	)
	defer span.End()

	resp, err := c.send(ctx, method, endpoint, body)
	if err == nil && resp.Category == CategoryUnauthorized {
		c.logger.Warn("Token rejected, retrying with a fresh token", zap.String("endpoint", endpoint))
		c.auth.Invalidate(ctx)
		resp, err = c.send(ctx, method, endpoint, body)
	}
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrStatusCode, resp.StatusCode)
	if resp.OK() {
		telemetry.SetOK(span)
	}
	return resp, nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, body []byte) (*Response, error) {
	headers, err := c.auth.Headers(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.APIURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("vendit: failed to create request: %w", err)
	}
	req.Header = headers

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", prepurchase.ErrSubmissionFailed, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("vendit: failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Category:   Categorize(resp.StatusCode),
		Raw:        raw,
	}, nil
}

// Import submits payload to the pre-purchase-order import endpoint
func (c *Client) Import(ctx context.Context, payload prepurchase.Payload) (prepurchase.ImportResponse, error) {
	resp, err := c.Do(ctx, http.MethodPut, ImportEndpoint, payload)
	if err != nil {
		return prepurchase.ImportResponse{}, err
	}

	if !resp.OK() {
		msg := fmt.Sprintf("HTTP %d", resp.StatusCode)
		if text := resp.Text(); text != "" {
			msg += ": " + text
		}
		c.logger.Error("Import rejected",
			zap.Int("status_code", resp.StatusCode),
			zap.String("category", resp.Category.String()),
			zap.Int("items", payload.Len()),
		)
		return prepurchase.ImportResponse{StatusCode: resp.StatusCode}, fmt.Errorf("%w: %s", prepurchase.ErrSubmissionFailed, msg)
	}

	body, err := resp.Decode()
	if err != nil {
		return prepurchase.ImportResponse{StatusCode: resp.StatusCode}, err
	}

	c.logger.Info("Imported pre-purchase orders", zap.Int("items", payload.Len()), zap.Int("status_code", resp.StatusCode))
	return prepurchase.ImportResponse{StatusCode: resp.StatusCode, Body: body}, nil
}

// Ensure Client implements prepurchase.Importer
var _ prepurchase.Importer = (*Client)(nil)
