package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSigning()
	c.normalizeArchive()
	c.normalizeFetch()
	c.normalizeLedger()
	c.normalizeMetrics()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.ArtifactDir) == "" {
		c.Paths.ArtifactDir = defaultArtifactDir
	}
	if c.Paths.ArtifactDir, err = expandPath(c.Paths.ArtifactDir); err != nil {
		return fmt.Errorf("paths.artifact_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	if value, ok := os.LookupEnv("POOLPACK_API_TOKEN"); ok && strings.TrimSpace(value) != "" {
		c.Paths.APIToken = value
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeSigning() {
	if value, ok := os.LookupEnv("POOLPACK_SIGNING_SECRET"); ok && strings.TrimSpace(value) != "" {
		c.Signing.Secret = value
	}
	c.Signing.Secret = strings.TrimSpace(c.Signing.Secret)
}

func (c *Config) normalizeArchive() {
	c.Archive.DefaultFilename = strings.TrimSpace(c.Archive.DefaultFilename)
	c.Archive.DefaultFilename = strings.TrimSuffix(c.Archive.DefaultFilename, ".zip")
	if c.Archive.DefaultFilename == "" {
		c.Archive.DefaultFilename = defaultArchiveFilename
	}
	c.Archive.DefaultExtension = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(c.Archive.DefaultExtension)), ".")
	if c.Archive.DefaultExtension == "" {
		c.Archive.DefaultExtension = defaultArchiveExtension
	}
	c.Archive.Compression = strings.ToLower(strings.TrimSpace(c.Archive.Compression))
	if c.Archive.Compression == "" {
		c.Archive.Compression = defaultCompression
	}
	if c.Archive.MaxItems <= 0 {
		c.Archive.MaxItems = defaultMaxItems
	}
}

func (c *Config) normalizeFetch() {
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultFetchUserAgent
	}
	if c.Fetch.MaxIdleConns <= 0 {
		c.Fetch.MaxIdleConns = defaultFetchMaxIdleConns
	}
}

func (c *Config) normalizeLedger() {
	c.Ledger.Backend = strings.ToLower(strings.TrimSpace(c.Ledger.Backend))
	if c.Ledger.Backend == "" {
		c.Ledger.Backend = defaultLedgerBackend
	}
	if value, ok := os.LookupEnv("POOLPACK_REDIS_URL"); ok && strings.TrimSpace(value) != "" {
		c.Ledger.RedisURL = value
	}
	c.Ledger.RedisURL = strings.TrimSpace(c.Ledger.RedisURL)
	c.Ledger.RedisStream = strings.TrimSpace(c.Ledger.RedisStream)
	if c.Ledger.RedisStream == "" {
		c.Ledger.RedisStream = defaultRedisStream
	}
}

func (c *Config) normalizeMetrics() {
	c.Metrics.Namespace = strings.TrimSpace(c.Metrics.Namespace)
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = defaultMetricsNamespace
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
