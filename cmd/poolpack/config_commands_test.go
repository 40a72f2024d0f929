package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestConfigInitGeneratesSecretAndValidates(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("POOLPACK_SIGNING_SECRET", "")
	target := filepath.Join(t.TempDir(), "poolpack", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target, "--generate-secret"}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration to "+target)
	requireContains(t, out, "Generated a random signing.secret")

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	if strings.Contains(string(data), `secret = ""`) {
		t.Fatalf("secret was not filled:\n%s", data)
	}

	out, _, err = runCLI(t, []string{"config", "validate"}, target)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Config path: "+target)
	requireContains(t, out, "Ledger backend: sqlite")
	requireContains(t, out, "Configuration valid")
}

func TestConfigInitRefusesOverwrite(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err != nil {
		t.Fatalf("first init: %v", err)
	}
	_, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("overwrite init: %v", err)
	}
}

func TestConfigValidateRejectsMissingSecret(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("POOLPACK_SIGNING_SECRET", "")
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err != nil {
		t.Fatalf("init: %v", err)
	}
	_, _, err := runCLI(t, []string{"config", "validate"}, target)
	if err == nil || !strings.Contains(err.Error(), "signing.secret is required") {
		t.Fatalf("expected missing secret error, got %v", err)
	}
}
