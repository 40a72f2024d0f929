package daemon_test

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"poolpack/internal/catalog"
	"poolpack/internal/config"
	"poolpack/internal/daemon"
	"poolpack/internal/logging"
	"poolpack/internal/testsupport"
)

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	d, err := daemon.New(cfg, logging.NewNop(), daemon.Deps{Resolver: catalog.NewMemory()})
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		d.Close()
	})
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected daemon to report running")
	}
	if status.LockFilePath != filepath.Join(cfg.Paths.ArtifactDir, daemon.LockFileName) {
		t.Fatalf("unexpected lock path %q", status.LockFilePath)
	}
	if status.StartedAt.IsZero() {
		t.Fatal("expected start time")
	}

	addr := d.Addr()
	if addr == "" {
		t.Fatal("expected api server to be listening")
	}
	res, err := http.Get("http://" + addr + "/api/status")
	if err != nil {
		t.Fatalf("status request: %v", err)
	}
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if res.StatusCode != http.StatusOK || !strings.Contains(string(body), `"running":true`) {
		t.Fatalf("unexpected status response %d: %s", res.StatusCode, body)
	}

	// Second start should fail
	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	d.Stop()
	time.Sleep(50 * time.Millisecond)
	status = d.Status(ctx)
	if status.Running {
		t.Fatal("expected daemon to be stopped")
	}
	if d.Addr() != "" {
		t.Fatal("expected api server to be closed")
	}
}

func TestDaemonRestartResumesReaper(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	d := newDaemon(t, cfg)
	ctx := context.Background()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	d.Stop()
	if d.Status(ctx).Reaping {
		t.Fatal("reaper still running after Stop")
	}
	if err := d.Start(ctx); err != nil {
		t.Fatalf("restart: %v", err)
	}
	defer d.Stop()
	status := d.Status(ctx)
	if !status.Running || !status.Reaping {
		t.Fatalf("status after restart = running %v reaping %v", status.Running, status.Reaping)
	}
}

func TestDaemonLockPreventsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first := newDaemon(t, cfg)
	second := newDaemon(t, cfg)

	ctx := context.Background()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		t.Fatal("expected second daemon on the same artifact dir to fail")
	}
	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
}

func TestDaemonStartRemovesOrphans(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.ArtifactDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	orphans := []string{"stale.zip", "crashed.zip.part"}
	for _, name := range orphans {
		testsupport.WriteFile(t, filepath.Join(cfg.Paths.ArtifactDir, name), 128)
	}
	keep := filepath.Join(cfg.Paths.ArtifactDir, "notes.txt")
	testsupport.WriteFile(t, keep, 16)

	d := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for _, name := range orphans {
		if _, err := os.Stat(filepath.Join(cfg.Paths.ArtifactDir, name)); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed, stat err=%v", name, err)
		}
	}
	if _, err := os.Stat(keep); err != nil {
		t.Fatalf("expected unrelated file to survive: %v", err)
	}
}

func TestDaemonOrphanSweepDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Artifacts.OrphanSweep = false
	if err := os.MkdirAll(cfg.Paths.ArtifactDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stale := filepath.Join(cfg.Paths.ArtifactDir, "stale.zip")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatalf("write orphan: %v", err)
	}

	d := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Fatalf("expected orphan to survive when sweep disabled: %v", err)
	}
}

func TestNewRequiresResolver(t *testing.T) {
	if _, err := daemon.New(testsupport.NewConfig(t), logging.NewNop(), daemon.Deps{}); err == nil {
		t.Fatal("expected error without resolver")
	}
}
