package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/recipesync/internal/common"
	"github.com/dmitrijs2005/recipesync/internal/syncproto"
)

const (
	backendHealthPath = "/health"
	healthPath        = "/api/sync/health"
	syncPath          = "/api/sync"
	tokenPath         = "/api/auth/token"
)

// maxErrorBody caps how much of a failed reply is read into an error.
const maxErrorBody = 4 << 10

type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu          sync.RWMutex
	accessToken string
}

// NewHTTPClient returns a client for the server at baseURL. requestTimeout
// bounds a whole exchange, connectTimeout only the TCP dial.
func NewHTTPClient(baseURL string, requestTimeout, connectTimeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid server url %q: scheme must be http or https", baseURL)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext

	return &HTTPClient{
		baseURL: strings.TrimRight(u.String(), "/"),
		http:    &http.Client{Timeout: requestTimeout, Transport: transport},
	}, nil
}

func (c *HTTPClient) SetAccessToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = token
}

func (c *HTTPClient) token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Health reports the state of the sync endpoint.
func (c *HTTPClient) Health(ctx context.Context) (*syncproto.HealthResponse, error) {
	return c.health(ctx, healthPath)
}

func (c *HTTPClient) health(ctx context.Context, path string) (*syncproto.HealthResponse, error) {
	var resp syncproto.HealthResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping asks the backend probe first and the sync endpoint second. Both have
// to report UP.
func (c *HTTPClient) Ping(ctx context.Context) error {
	for _, path := range []string{backendHealthPath, healthPath} {
		h, err := c.health(ctx, path)
		if err != nil {
			return err
		}
		if h.Status != "UP" {
			return fmt.Errorf("%w: %s status %q", ErrUnavailable, path, h.Status)
		}
	}
	return nil
}

func (c *HTTPClient) Sync(ctx context.Context, req syncproto.SyncRequest) (*syncproto.SyncResponse, error) {
	var resp syncproto.SyncResponse
	if err := c.do(ctx, http.MethodPost, syncPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) Token(ctx context.Context, req syncproto.TokenRequest) (*syncproto.TokenResponse, error) {
	var resp syncproto.TokenResponse
	if err := c.do(ctx, http.MethodPost, tokenPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t := c.token(); t != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+t)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return c.mapError(ctx, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}

// mapError converts transport failures into ErrUnavailable. Cancellation by
// the caller is returned as is.
func (c *HTTPClient) mapError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var ne net.Error
	var ue *url.Error
	if errors.As(err, &ne) || errors.As(err, &ue) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

func statusError(resp *http.Response) error {
	msg := resp.Status
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var er syncproto.ErrorResponse
	if json.Unmarshal(raw, &er) == nil && er.Error != "" {
		msg = er.Error
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, msg)
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", ErrUnavailable, msg)
	default:
		return fmt.Errorf("server rejected request (%d): %s", resp.StatusCode, msg)
	}
}
