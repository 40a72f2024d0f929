package preflight

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"poolpack/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()
	if r := CheckFreeSpace("space", dir, 1); !r.Passed {
		t.Fatalf("expected pass, got: %s", r.Detail)
	}
	r := CheckFreeSpace("space", dir, ^uint64(0))
	if r.Passed || !strings.Contains(r.Detail, "required") {
		t.Fatalf("expected failure with requirement, got %+v", r)
	}
	if r := CheckFreeSpace("space", filepath.Join(dir, "nope"), 1); r.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestCheckSigningSecret(t *testing.T) {
	if r := CheckSigningSecret(""); r.Passed {
		t.Fatal("expected failure for empty secret")
	}
	if r := CheckSigningSecret("short"); r.Passed {
		t.Fatal("expected failure for short secret")
	}
	if r := CheckSigningSecret("0123456789abcdef"); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
}

func TestCheckRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	if r := CheckRedis(context.Background(), "redis://"+mr.Addr()); !r.Passed {
		t.Fatalf("expected pass, got %s", r.Detail)
	}
	if r := CheckRedis(context.Background(), ""); r.Passed {
		t.Fatal("expected failure for missing url")
	}
	if r := CheckRedis(context.Background(), "::bad"); r.Passed {
		t.Fatal("expected failure for invalid url")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	results := RunAll(context.Background(), nil)
	if results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_MinimalConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.ArtifactDir = t.TempDir()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Archive.MinFreeMB = 0
	cfg.Signing.Secret = "0123456789abcdef-secret"

	results := RunAll(context.Background(), &cfg)
	// artifact dir + free space + data dir + secret
	if len(results) != 4 {
		t.Fatalf("expected 4 results, got %d", len(results))
	}
	if !AllPassed(results) {
		for _, r := range results {
			if !r.Passed {
				t.Errorf("check %q failed: %s", r.Name, r.Detail)
			}
		}
	}
}

func TestRunAll_IncludesRedisWhenSelected(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := config.Default()
	cfg.Paths.ArtifactDir = t.TempDir()
	cfg.Archive.MinFreeMB = 0
	cfg.Ledger.Backend = "redis"
	cfg.Ledger.RedisURL = "redis://" + mr.Addr()

	results := RunAll(context.Background(), &cfg)
	found := false
	for _, r := range results {
		if r.Name == "Data directory" {
			t.Fatal("data directory should not be checked for redis backend")
		}
		if r.Name == "Redis ledger" {
			found = true
			if !r.Passed {
				t.Errorf("Redis check failed: %s", r.Detail)
			}
		}
	}
	if !found {
		t.Fatal("expected Redis check in results")
	}
	if AllPassed(results) {
		t.Fatal("missing signing secret should fail")
	}
}
