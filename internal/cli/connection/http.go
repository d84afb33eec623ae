package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yndnr/fwt-go/internal/infra/buildinfo"
	"github.com/yndnr/fwt-go/internal/server/httpserver/handler"
	"github.com/yndnr/fwt-go/internal/server/localserver"
)

// DefaultTimeout bounds each request.
const DefaultTimeout = 30 * time.Second

// APIError is an error envelope returned by the server.
type APIError struct {
	Status    int
	Code      string
	Message   string
	Details   string
	RequestID string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	return msg
}

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL string
	socket  string
	client  *http.Client
	apiKey  string
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTLSConfig sets the TLS configuration for https servers.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *HTTPClient) {
		c.client.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: cfg,
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// unixScheme selects the server's local management socket.
const unixScheme = "unix://"

// NewHTTPClient creates a new HTTP client. A server without a scheme is
// taken as http. A server of the form unix:///path dials the local socket
// and ignores TLS options.
func NewHTTPClient(server, apiKey string, opts ...Option) *HTTPClient {
	if socket, ok := strings.CutPrefix(server, unixScheme); ok {
		c := &HTTPClient{
			baseURL: "http://unix",
			apiKey:  apiKey,
			socket:  socket,
			client:  &http.Client{Timeout: DefaultTimeout},
		}
		for _, opt := range opts {
			opt(c)
		}
		c.client.Transport = &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socket)
			},
		}
		return c
	}

	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	c := &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Socket returns the local socket path, or "" for a network server.
func (c *HTTPClient) Socket() string {
	return c.socket
}

// Health calls GET /health.
func (c *HTTPClient) Health(ctx context.Context) (*handler.HealthResponse, error) {
	var out handler.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Issue calls POST /v1/authorities/{name}/tokens.
func (c *HTTPClient) Issue(ctx context.Context, authority string, req *handler.IssueTokenRequest) (*handler.IssueTokenResponse, error) {
	var out handler.IssueTokenResponse
	if err := c.do(ctx, http.MethodPost, "/v1/authorities/"+url.PathEscape(authority)+"/tokens", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Validate calls POST /v1/authorities/{name}/tokens/validate. A rejected
// token is not an error; check Valid.
func (c *HTTPClient) Validate(ctx context.Context, authority, token string) (*handler.ValidateTokenResponse, error) {
	var out handler.ValidateTokenResponse
	path := "/v1/authorities/" + url.PathEscape(authority) + "/tokens/validate"
	if err := c.do(ctx, http.MethodPost, path, &handler.ValidateTokenRequest{Token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Revoke calls POST /v1/revocations.
func (c *HTTPClient) Revoke(ctx context.Context, req *handler.RevokeRequest) (*handler.RevokeResponse, error) {
	var out handler.RevokeResponse
	if err := c.do(ctx, http.MethodPost, "/v1/revocations", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status calls GET /local/status. Only the local socket serves it.
func (c *HTTPClient) Status(ctx context.Context) (*localserver.StatusResponse, error) {
	var out localserver.StatusResponse
	if err := c.do(ctx, http.MethodGet, "/local/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetLogLevel calls PUT /local/log-level. Only the local socket serves it.
func (c *HTTPClient) SetLogLevel(ctx context.Context, level string) (*localserver.LogLevelResponse, error) {
	var out localserver.LogLevelResponse
	if err := c.do(ctx, http.MethodPut, "/local/log-level", &localserver.LogLevelRequest{Level: level}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do sends a request and decodes the envelope's data into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.addHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	return ParseResponse(resp, out)
}

// addHeaders adds authentication and common headers.
func (c *HTTPClient) addHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("User-Agent", "fwt-cli/"+buildinfo.Get().Version)
}

// ParseResponse decodes an envelope from resp. The data field goes into
// target, and an error envelope is returned as *APIError.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	var env struct {
		RequestID string             `json:"request_id"`
		Data      json.RawMessage    `json:"data"`
		Error     *handler.ErrorBody `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4<<20)).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return &APIError{Status: resp.StatusCode, Code: "HTTP-" + fmt.Sprint(resp.StatusCode), Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("parse response: %w", err)
	}

	if env.Error != nil {
		return &APIError{
			Status:    resp.StatusCode,
			Code:      env.Error.Code,
			Message:   env.Error.Message,
			Details:   env.Error.Details,
			RequestID: env.RequestID,
		}
	}
	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Code: "HTTP-" + fmt.Sprint(resp.StatusCode), Message: http.StatusText(resp.StatusCode), RequestID: env.RequestID}
	}

	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return fmt.Errorf("parse response: %w", err)
		}
	}
	return nil
}
