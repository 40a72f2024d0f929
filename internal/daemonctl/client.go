// Package daemonctl talks to a running poolpack daemon over its HTTP API.
package daemonctl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"poolpack/internal/api"
	"poolpack/internal/config"
	"poolpack/internal/progress"
)

// ErrUnreachable wraps connection failures so callers can suggest starting
// the daemon.
var ErrUnreachable = errors.New("daemon unreachable")

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("daemon returned %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

// Client calls the daemon API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New derives the daemon address and bearer token from cfg.
func New(cfg *config.Config) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	base, err := BaseURL(cfg.Paths.APIBind)
	if err != nil {
		return nil, err
	}
	return NewClient(base, cfg.Paths.APIToken, nil), nil
}

// NewClient builds a client for baseURL. A nil httpClient uses a default
// without an overall timeout so batch streams can run long.
func NewClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(token),
		http:    httpClient,
	}
}

// BaseURL turns an api_bind value into a dialable http URL. Wildcard hosts
// map to loopback.
func BaseURL(bind string) (string, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return "", errors.New("paths.api_bind is empty; the daemon API is disabled")
	}
	host, port, err := net.SplitHostPort(bind)
	if err != nil {
		return "", fmt.Errorf("parse api_bind %q: %w", bind, err)
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port), nil
}

// Status fetches /api/status.
func (c *Client) Status(ctx context.Context) (*api.StatusResponse, error) {
	var out api.StatusResponse
	if err := c.getJSON(ctx, "/api/status", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Artifacts fetches the live artifact listing.
func (c *Client) Artifacts(ctx context.Context) ([]api.ArtifactSummary, error) {
	var out api.ArtifactListResponse
	if err := c.getJSON(ctx, "/api/artifacts", &out); err != nil {
		return nil, err
	}
	return out.Artifacts, nil
}

// Batch submits a build and calls onEvent for every streamed event. It
// returns the terminal event; an error event is also returned as an error.
func (c *Client) Batch(ctx context.Context, req api.BatchRequest, consumerID string, onEvent func(progress.Event)) (progress.Event, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return progress.Event{}, fmt.Errorf("encode batch request: %w", err)
	}
	httpReq, err := c.newRequest(ctx, http.MethodPost, "/batch", bytes.NewReader(body))
	if err != nil {
		return progress.Event{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if consumerID = strings.TrimSpace(consumerID); consumerID != "" {
		httpReq.Header.Set(api.ConsumerHeader, consumerID)
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return progress.Event{}, err
	}
	defer resp.Body.Close()

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var ev progress.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return progress.Event{}, fmt.Errorf("decode progress event: %w", err)
		}
		if onEvent != nil {
			onEvent(ev)
		}
		if ev.Terminal() {
			if ev.Type == progress.TypeError {
				return ev, fmt.Errorf("batch failed: %s", ev.Message)
			}
			return ev, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return progress.Event{}, fmt.Errorf("read progress stream: %w", err)
	}
	return progress.Event{}, errors.New("progress stream ended without a terminal event")
}

// Download streams the archive at retrievePath (as returned in a complete
// event) into w and returns the number of bytes copied.
func (c *Client) Download(ctx context.Context, retrievePath string, w io.Writer) (int64, error) {
	httpReq, err := c.newRequest(ctx, http.MethodGet, retrievePath, nil)
	if err != nil {
		return 0, err
	}
	resp, err := c.do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download archive: %w", err)
	}
	return n, nil
}

// ProcessInfo reports whether the daemon API is reachable and its PID.
func (c *Client) ProcessInfo(ctx context.Context) (bool, int, error) {
	status, err := c.Status(ctx)
	if err != nil {
		if errors.Is(err, ErrUnreachable) {
			return false, 0, nil
		}
		return true, 0, err
	}
	return status.Running, status.PID, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	httpReq, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	reqCtx, cancel := context.WithTimeout(httpReq.Context(), 30*time.Second)
	defer cancel()
	resp, err := c.do(httpReq.WithContext(reqCtx))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = c.baseURL + path
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

// do sends req and converts transport failures and non-2xx responses into
// errors. On success the caller owns resp.Body.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w at %s: %w", ErrUnreachable, c.baseURL, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	apiErr := &APIError{Status: resp.StatusCode}
	var payload api.ErrorResponse
	if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 64*1024)); readErr == nil {
		if json.Unmarshal(data, &payload) == nil {
			apiErr.Message = payload.Error
		} else {
			apiErr.Message = strings.TrimSpace(string(data))
		}
	}
	return nil, apiErr
}
