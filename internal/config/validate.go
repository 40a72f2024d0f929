package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSigning(); err != nil {
		return err
	}
	if err := c.validateArtifacts(); err != nil {
		return err
	}
	if err := c.validateArchive(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSigning() error {
	if c.Signing.Secret == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/poolpack/config.toml"
		}
		return fmt.Errorf("signing.secret is required. Set POOLPACK_SIGNING_SECRET env var or edit %s (create with 'poolpack config init')", defaultPath)
	}
	if len(c.Signing.Secret) < minSigningSecretBytes {
		return fmt.Errorf("signing.secret must be at least %d bytes", minSigningSecretBytes)
	}
	return nil
}

func (c *Config) validateArtifacts() error {
	if c.Artifacts.TTLSeconds <= 0 {
		return errors.New("artifacts.ttl_seconds must be positive")
	}
	if c.Artifacts.SweepIntervalSeconds <= 0 {
		return errors.New("artifacts.sweep_interval_seconds must be positive")
	}
	if c.Artifacts.SweepIntervalSeconds > c.Artifacts.TTLSeconds {
		return errors.New("artifacts.sweep_interval_seconds must not exceed artifacts.ttl_seconds")
	}
	return nil
}

func (c *Config) validateArchive() error {
	switch c.Archive.Compression {
	case "deflate", "store":
	default:
		return fmt.Errorf("archive.compression: unsupported value %q (want deflate or store)", c.Archive.Compression)
	}
	if c.Archive.Level < -1 || c.Archive.Level > 9 {
		return errors.New("archive.level must be between -1 and 9")
	}
	if c.Archive.MinFreeMB < 0 {
		return errors.New("archive.min_free_mb must be >= 0")
	}
	if strings.ContainsAny(c.Archive.DefaultFilename, `\/:*?"<>|`) {
		return errors.New("archive.default_filename must not contain path separators or reserved characters")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.TimeoutSeconds <= 0 {
		return errors.New("fetch.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateLedger() error {
	switch c.Ledger.Backend {
	case "sqlite", "none":
		return nil
	case "redis":
		if c.Ledger.RedisURL == "" {
			return errors.New("ledger.redis_url must be set when ledger.backend is redis (or set POOLPACK_REDIS_URL)")
		}
		return nil
	default:
		return fmt.Errorf("ledger.backend: unsupported value %q (want sqlite, redis, or none)", c.Ledger.Backend)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be >= 0")
	}
	return nil
}
