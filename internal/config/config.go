package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	ArtifactDir string `toml:"artifact_dir"`
	DataDir     string `toml:"data_dir"`
	LogDir      string `toml:"log_dir"`
	APIBind     string `toml:"api_bind"`
	APIToken    string `toml:"api_token"`
}

// Artifacts controls how long finished archives stay retrievable.
type Artifacts struct {
	TTLSeconds           int  `toml:"ttl_seconds"`
	SweepIntervalSeconds int  `toml:"sweep_interval_seconds"`
	OrphanSweep          bool `toml:"orphan_sweep"`
}

// Signing holds the capability token secret.
type Signing struct {
	Secret string `toml:"secret"`
}

// Archive contains settings for the streaming archive builder.
type Archive struct {
	DefaultFilename  string `toml:"default_filename"`
	DefaultExtension string `toml:"default_extension"`
	Compression      string `toml:"compression"`
	Level            int    `toml:"level"`
	MinFreeMB        int    `toml:"min_free_mb"`
	MaxItems         int    `toml:"max_items"`
}

// Fetch configures outbound resource downloads.
type Fetch struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
	MaxIdleConns   int    `toml:"max_idle_conns"`
	AllowFiles     bool   `toml:"allow_files"`
}

// Ledger selects where delivery records are written.
type Ledger struct {
	Backend     string `toml:"backend"`
	RedisURL    string `toml:"redis_url"`
	RedisStream string `toml:"redis_stream"`
}

// Metrics configures the Prometheus endpoint.
type Metrics struct {
	Enabled   bool   `toml:"enabled"`
	Namespace string `toml:"namespace"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for poolpack.
//
// Configuration sections by subsystem:
//   - Paths: artifact, data, and log directories plus the API bind address
//   - Artifacts: retention TTL and reaper cadence
//   - Signing: HMAC secret for retrieval tokens
//   - Archive: naming, compression, and batch limits
//   - Fetch: outbound HTTP client settings
//   - Ledger: usage ledger backend
//   - Metrics: Prometheus exposition
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths     `toml:"paths"`
	Artifacts Artifacts `toml:"artifacts"`
	Signing   Signing   `toml:"signing"`
	Archive   Archive   `toml:"archive"`
	Fetch     Fetch     `toml:"fetch"`
	Ledger    Ledger    `toml:"ledger"`
	Metrics   Metrics   `toml:"metrics"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/poolpack/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("poolpack.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.ArtifactDir, c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ArtifactTTL returns the maximum age of a retrievable artifact.
func (c *Config) ArtifactTTL() time.Duration {
	return time.Duration(c.Artifacts.TTLSeconds) * time.Second
}

// SweepInterval returns the cadence of the artifact reaper.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Artifacts.SweepIntervalSeconds) * time.Second
}

// FetchTimeout returns the per-resource download timeout.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// DatabasePath returns the SQLite file backing the catalog and usage ledger.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "poolpack.db")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
