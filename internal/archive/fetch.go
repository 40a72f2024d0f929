package archive

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"poolpack/internal/services"
)

// Payload is the content of one fetched resource. Exactly one of Body and
// Data is set: Body for streaming sources, Data for inline sources that
// arrive fully materialized.
type Payload struct {
	Body        io.ReadCloser
	Data        []byte
	Size        int64
	ContentType string
}

// Streaming reports whether the payload must be copied from Body.
func (p *Payload) Streaming() bool {
	return p.Body != nil
}

// Close releases the payload.
func (p *Payload) Close() error {
	p.Data = nil
	if p.Body != nil {
		return p.Body.Close()
	}
	return nil
}

// Fetcher opens the bytes behind a resource URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Payload, error)
}

// FetchOptions configures URLFetcher.
type FetchOptions struct {
	// Timeout bounds the wait for response headers and every gap between
	// body reads. A transfer that keeps making progress is never cut off.
	Timeout      time.Duration
	UserAgent    string
	MaxIdleConns int
	// AllowFiles enables file:// URLs.
	AllowFiles bool
}

// URLFetcher fetches http(s), file and data URLs.
type URLFetcher struct {
	client     *http.Client
	idle       time.Duration
	userAgent  string
	allowFiles bool
}

// NewURLFetcher builds a fetcher with its own pooled HTTP client.
func NewURLFetcher(opts FetchOptions) *URLFetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.MaxIdleConns > 0 {
		transport.MaxIdleConns = opts.MaxIdleConns
		transport.MaxIdleConnsPerHost = opts.MaxIdleConns
	}
	if opts.Timeout > 0 {
		transport.ResponseHeaderTimeout = opts.Timeout
	}
	return &URLFetcher{
		client:     &http.Client{Transport: transport},
		idle:       opts.Timeout,
		userAgent:  strings.TrimSpace(opts.UserAgent),
		allowFiles: opts.AllowFiles,
	}
}

func (f *URLFetcher) Fetch(ctx context.Context, rawURL string) (*Payload, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fetchError("parse url", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return f.fetchHTTP(ctx, u)
	case "file":
		if !f.allowFiles {
			return nil, fetchError("file urls are disabled", nil)
		}
		return fetchFile(u)
	case "data":
		return decodeDataURL(rawURL)
	default:
		return nil, fetchError(fmt.Sprintf("unsupported url scheme %q", u.Scheme), nil)
	}
}

func (f *URLFetcher) fetchHTTP(ctx context.Context, u *url.URL) (*Payload, error) {
	ctx, cancel := context.WithCancel(ctx)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		cancel()
		return nil, fetchError("build request", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		cancel()
		return nil, fetchError("request failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		cancel()
		return nil, fetchError(fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}
	return &Payload{
		Body:        newIdleBody(resp.Body, f.idle, cancel),
		Size:        resp.ContentLength,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// idleBody cancels its request when no bytes arrive for the idle timeout.
// Each successful read pushes the deadline out again.
type idleBody struct {
	body    io.ReadCloser
	timeout time.Duration
	timer   *time.Timer
	stalled atomic.Bool
	cancel  context.CancelFunc
}

func newIdleBody(body io.ReadCloser, timeout time.Duration, cancel context.CancelFunc) *idleBody {
	b := &idleBody{body: body, timeout: timeout, cancel: cancel}
	if timeout > 0 {
		b.timer = time.AfterFunc(timeout, func() {
			b.stalled.Store(true)
			cancel()
		})
	}
	return b
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.body.Read(p)
	if err != nil && !errors.Is(err, io.EOF) && b.stalled.Load() {
		return n, fetchError(fmt.Sprintf("no data received for %s", b.timeout), err)
	}
	if n > 0 && b.timer != nil {
		b.timer.Reset(b.timeout)
	}
	return n, err
}

func (b *idleBody) Close() error {
	if b.timer != nil {
		b.timer.Stop()
	}
	err := b.body.Close()
	b.cancel()
	return err
}

func fetchFile(u *url.URL) (*Payload, error) {
	path := u.Path
	if path == "" {
		path = u.Opaque
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fetchError("open file", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fetchError("stat file", err)
	}
	if info.IsDir() {
		_ = file.Close()
		return nil, fetchError("path is a directory", nil)
	}
	return &Payload{Body: file, Size: info.Size()}, nil
}

// decodeDataURL parses data:[<mediatype>][;base64],<data>.
func decodeDataURL(raw string) (*Payload, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(raw), "data:")
	if !ok {
		return nil, fetchError("not a data url", nil)
	}
	meta, body, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, fetchError("data url missing comma", nil)
	}
	contentType := meta
	isBase64 := false
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		isBase64 = true
		contentType = meta[:len(meta)-len(";base64")]
	}
	var data []byte
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			decoded, err = base64.RawStdEncoding.DecodeString(body)
		}
		if err != nil {
			return nil, fetchError("decode data url", err)
		}
		data = decoded
	} else {
		unescaped, err := url.PathUnescape(body)
		if err != nil {
			return nil, fetchError("unescape data url", err)
		}
		data = []byte(unescaped)
	}
	if contentType == "" {
		contentType = "text/plain;charset=US-ASCII"
	}
	return &Payload{Data: data, Size: int64(len(data)), ContentType: contentType}, nil
}

func fetchError(message string, err error) error {
	return services.Wrap(services.ErrResourceFetch, "archive", "fetch", message, err)
}

// IsFetchError reports whether err is a recoverable per-item fetch failure.
func IsFetchError(err error) bool {
	return errors.Is(err, services.ErrResourceFetch)
}
