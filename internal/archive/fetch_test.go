package archive

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestURLFetcherHTTP(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, "payload")
	}))
	defer srv.Close()

	f := NewURLFetcher(FetchOptions{Timeout: time.Second, UserAgent: "poolpack/test", MaxIdleConns: 2})
	p, err := f.Fetch(context.Background(), srv.URL+"/ok")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer p.Close()
	if !p.Streaming() {
		t.Fatal("http payload should stream")
	}
	data, _ := io.ReadAll(p.Body)
	if string(data) != "payload" {
		t.Fatalf("body = %q", data)
	}
	if gotUA != "poolpack/test" {
		t.Fatalf("user agent = %q", gotUA)
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/bad"); !IsFetchError(err) {
		t.Fatalf("non-2xx err = %v, want fetch error", err)
	}
}

func TestURLFetcherTimeoutResetsOnEachRead(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for i := 0; i < 8; i++ {
			_, _ = fmt.Fprint(w, i)
			flusher.Flush()
			time.Sleep(60 * time.Millisecond)
		}
	}))
	defer srv.Close()

	f := NewURLFetcher(FetchOptions{Timeout: 250 * time.Millisecond})
	p, err := f.Fetch(context.Background(), srv.URL+"/trickle")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer p.Close()
	data, err := io.ReadAll(p.Body)
	if err != nil {
		t.Fatalf("read trickled body: %v", err)
	}
	if string(data) != "01234567" {
		t.Fatalf("body = %q", data)
	}
}

func TestURLFetcherStalledBodyIsFetchError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "10")
		_, _ = io.WriteString(w, "12345")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewURLFetcher(FetchOptions{Timeout: 150 * time.Millisecond})
	p, err := f.Fetch(context.Background(), srv.URL+"/stall")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer p.Close()
	data, err := io.ReadAll(p.Body)
	if !IsFetchError(err) {
		t.Fatalf("stalled read err = %v, want fetch error", err)
	}
	if string(data) != "12345" {
		t.Fatalf("partial body = %q", data)
	}
}

func TestURLFetcherFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.wav")
	if err := os.WriteFile(path, []byte("wave"), 0o644); err != nil {
		t.Fatal(err)
	}

	disabled := NewURLFetcher(FetchOptions{})
	if _, err := disabled.Fetch(context.Background(), "file://"+path); !IsFetchError(err) {
		t.Fatalf("disabled file err = %v", err)
	}

	f := NewURLFetcher(FetchOptions{AllowFiles: true})
	p, err := f.Fetch(context.Background(), "file://"+path)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	defer p.Close()
	if p.Size != 4 {
		t.Fatalf("size = %d", p.Size)
	}
	if _, err := f.Fetch(context.Background(), "file://"+filepath.Join(dir, "missing")); !IsFetchError(err) {
		t.Fatalf("missing file err = %v", err)
	}
	if _, err := f.Fetch(context.Background(), "file://"+dir); !IsFetchError(err) {
		t.Fatalf("directory err = %v", err)
	}
}

func TestDecodeDataURL(t *testing.T) {
	tests := []struct {
		raw      string
		want     string
		wantType string
	}{
		{"data:text/plain;base64,aGVsbG8=", "hello", "text/plain"},
		{"data:;base64,aGVsbG8", "hello", "text/plain;charset=US-ASCII"},
		{"data:,hello%20world", "hello world", "text/plain;charset=US-ASCII"},
	}
	for _, tt := range tests {
		p, err := decodeDataURL(tt.raw)
		if err != nil {
			t.Fatalf("decodeDataURL(%q): %v", tt.raw, err)
		}
		if p.Streaming() {
			t.Fatal("data payload should not stream")
		}
		if string(p.Data) != tt.want || p.ContentType != tt.wantType {
			t.Fatalf("decodeDataURL(%q) = %q (%s)", tt.raw, p.Data, p.ContentType)
		}
	}
	for _, bad := range []string{"data:text/plain", "data:;base64,@@@", "http://x"} {
		if _, err := decodeDataURL(bad); !IsFetchError(err) {
			t.Fatalf("decodeDataURL(%q) err = %v", bad, err)
		}
	}
}

func TestURLFetcherUnsupportedScheme(t *testing.T) {
	f := NewURLFetcher(FetchOptions{})
	if _, err := f.Fetch(context.Background(), "ftp://example.com/x"); !IsFetchError(err) {
		t.Fatalf("err = %v", err)
	}
}
