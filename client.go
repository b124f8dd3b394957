package codapmeta

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

const (
	headerAcceptVersion       = "Accept-Version"
	headerAPIVersion          = "api-version"
	headerToolManifestVersion = "tool-manifest-version"
	headerSupportedVersions   = "supported-versions"
)

// Client fetches session metadata from a CODAP MCP relay. A client is
// immutable after construction and safe for concurrent use.
type Client struct {
	baseURL    string
	sessionID  string
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// Option adjusts client construction.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout sets the per-request timeout. The underlying HTTP client is
// cloned so a caller-supplied client is never mutated.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout <= 0 {
			return
		}
		clone := *c.httpClient
		clone.Timeout = timeout
		c.httpClient = &clone
	}
}

// WithUserAgent overrides the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		if strings.TrimSpace(userAgent) != "" {
			c.userAgent = userAgent
		}
	}
}

// WithLogger sets the logger for per-request diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a metadata client for one relay session. Trailing slashes on
// baseURL are trimmed so the request path never doubles them.
func New(baseURL, sessionID string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		sessionID:  strings.TrimSpace(sessionID),
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  defaultUserAgent,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the normalized relay base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SessionID returns the session this client addresses.
func (c *Client) SessionID() string {
	return c.sessionID
}

// CloseIdleConnections releases idle connections held by the underlying
// transport. Useful for one-shot callers that want a clean teardown.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// GetToolManifest performs one GET against the session metadata endpoint
// and returns the decoded manifest. apiVersion pins Accept-Version; the
// empty string means "server default" and keeps the header off the wire
// entirely. Every failure is a *ClientError; there are no retries.
func (c *Client) GetToolManifest(ctx context.Context, apiVersion string) (*ToolManifest, error) {
	req, err := c.buildRequest(ctx, apiVersion)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, newClientError(KindTransport, ErrorCodeTransportFailure,
			fmt.Sprintf("Network error: %v", err), 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newClientError(KindTransport, ErrorCodeTransportFailure,
			fmt.Sprintf("Network error: %v", err), 0, err)
	}

	duration := time.Since(start)
	advisory := advisoryFrom(resp.Header)
	c.logger.Debug("metadata response",
		"url", req.URL.String(),
		"status", resp.StatusCode,
		"api_version", advisory.APIVersion,
		"manifest_version", advisory.ToolManifestVersion,
		"supported_versions", advisory.SupportedVersions,
	)

	exchange := Exchange{
		Method:           http.MethodGet,
		URL:              req.URL.String(),
		StatusCode:       resp.StatusCode,
		Duration:         duration,
		RequestedVersion: apiVersion,
		Advisory:         advisory,
	}

	if resp.StatusCode != http.StatusOK {
		clientErr := classify(resp.StatusCode, body)
		exchange.Err = clientErr
		emitExchange(exchange)
		return nil, clientErr
	}

	manifest, decodeErr := decodeManifest(body)
	if decodeErr != nil {
		exchange.Err = decodeErr
		emitExchange(exchange)
		return nil, decodeErr
	}

	emitExchange(exchange)
	return manifest, nil
}

// buildRequest constructs the metadata GET for this client's session.
func (c *Client) buildRequest(ctx context.Context, apiVersion string) (*http.Request, error) {
	endpoint := fmt.Sprintf("%s/api/sessions/%s/metadata", c.baseURL, c.sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, newClientError(KindTransport, ErrorCodeTransportFailure,
			fmt.Sprintf("build metadata request: %v", err), 0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if apiVersion != "" {
		req.Header.Set(headerAcceptVersion, apiVersion)
	}
	return req, nil
}

func advisoryFrom(header http.Header) AdvisoryHeaders {
	return AdvisoryHeaders{
		APIVersion:          header.Get(headerAPIVersion),
		ToolManifestVersion: header.Get(headerToolManifestVersion),
		SupportedVersions:   header.Get(headerSupportedVersions),
	}
}
