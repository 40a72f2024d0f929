package daemonctl

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"poolpack/internal/api"
	"poolpack/internal/catalog"
	"poolpack/internal/daemon"
	"poolpack/internal/logging"
	"poolpack/internal/progress"
	"poolpack/internal/testsupport"
)

func newDaemonServer(t *testing.T, opts ...testsupport.ConfigOption) *httptest.Server {
	t.Helper()
	cfg := testsupport.NewConfig(t, append([]testsupport.ConfigOption{testsupport.WithoutListener()}, opts...)...)
	d, err := daemon.New(cfg, logging.NewNop(), daemon.Deps{Resolver: catalog.NewMemory(testsupport.SampleResources()...)})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	srv := httptest.NewServer(d.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestBaseURL(t *testing.T) {
	cases := map[string]string{
		"127.0.0.1:7490": "http://127.0.0.1:7490",
		":7490":          "http://127.0.0.1:7490",
		"0.0.0.0:80":     "http://127.0.0.1:80",
		"[::]:9000":      "http://127.0.0.1:9000",
		"pool.lan:7490":  "http://pool.lan:7490",
	}
	for bind, want := range cases {
		got, err := BaseURL(bind)
		if err != nil {
			t.Fatalf("BaseURL(%q): %v", bind, err)
		}
		if got != want {
			t.Fatalf("BaseURL(%q) = %q, want %q", bind, got, want)
		}
	}
	if _, err := BaseURL(""); err == nil {
		t.Fatal("expected empty bind to fail")
	}
	if _, err := BaseURL("no-port"); err == nil {
		t.Fatal("expected bind without port to fail")
	}
}

func TestClientBatchAndDownload(t *testing.T) {
	srv := newDaemonServer(t)
	client := NewClient(srv.URL, "", srv.Client())
	ctx := context.Background()

	var seen []progress.Type
	final, err := client.Batch(ctx, api.BatchRequest{ResourceIDs: api.ResourceIDs{"1", "2"}, Filename: "set"}, "acct-1",
		func(ev progress.Event) { seen = append(seen, ev.Type) })
	if err != nil {
		t.Fatalf("Batch: %v", err)
	}
	if final.Type != progress.TypeComplete || final.Filename != "set.zip" {
		t.Fatalf("unexpected final event %+v", final)
	}
	if len(seen) != 5 || seen[0] != progress.TypeStart {
		t.Fatalf("unexpected event sequence %v", seen)
	}

	var buf bytes.Buffer
	n, err := client.Download(ctx, final.URL, &buf)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if n == 0 || int64(buf.Len()) != n || !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Fatalf("unexpected archive download (%d bytes)", n)
	}

	list, err := client.Artifacts(ctx)
	if err != nil {
		t.Fatalf("Artifacts: %v", err)
	}
	if len(list) != 1 || list[0].Filename != "set.zip" {
		t.Fatalf("unexpected artifacts %+v", list)
	}
}

func TestClientBatchValidationError(t *testing.T) {
	srv := newDaemonServer(t)
	client := NewClient(srv.URL, "", srv.Client())

	_, err := client.Batch(context.Background(), api.BatchRequest{}, "", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message == "" {
		t.Fatalf("unexpected api error %+v", apiErr)
	}
}

func TestClientSendsBearerToken(t *testing.T) {
	srv := newDaemonServer(t, testsupport.WithAPIToken("tok"))

	if _, err := NewClient(srv.URL, "", srv.Client()).Status(context.Background()); err == nil {
		t.Fatal("expected unauthorized without token")
	}
	status, err := NewClient(srv.URL, "tok", srv.Client()).Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status.TTLSeconds == 0 || len(status.Checks) == 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestClientUnreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := listener.Addr().String()
	listener.Close()

	client := NewClient("http://"+addr, "", nil)
	if _, err := client.Status(context.Background()); !errors.Is(err, ErrUnreachable) {
		t.Fatalf("expected ErrUnreachable, got %v", err)
	}
	running, pid, err := client.ProcessInfo(context.Background())
	if err != nil || running || pid != 0 {
		t.Fatalf("expected not running, got running=%v pid=%d err=%v", running, pid, err)
	}
}
