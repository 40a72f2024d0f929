package config

const (
	defaultArtifactDir          = "~/.local/share/poolpack/artifacts"
	defaultDataDir              = "~/.local/share/poolpack"
	defaultLogDir               = "~/.local/share/poolpack/logs"
	defaultAPIBind              = "127.0.0.1:7490"
	defaultTTLSeconds           = 30 * 60
	defaultSweepIntervalSeconds = 5 * 60
	defaultArchiveFilename      = "poolpack"
	defaultArchiveExtension     = "bin"
	defaultCompression          = "deflate"
	defaultCompressionLevel     = -1
	defaultMinFreeMB            = 64
	defaultMaxItems             = 500
	defaultFetchTimeoutSeconds  = 120
	defaultFetchUserAgent       = "poolpack/dev"
	defaultFetchMaxIdleConns    = 16
	defaultLedgerBackend        = "sqlite"
	defaultRedisStream          = "poolpack:usage"
	defaultMetricsNamespace     = "poolpack"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultLogRetentionDays     = 30
	minSigningSecretBytes       = 16
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			ArtifactDir: defaultArtifactDir,
			DataDir:     defaultDataDir,
			LogDir:      defaultLogDir,
			APIBind:     defaultAPIBind,
		},
		Artifacts: Artifacts{
			TTLSeconds:           defaultTTLSeconds,
			SweepIntervalSeconds: defaultSweepIntervalSeconds,
			OrphanSweep:          true,
		},
		Archive: Archive{
			DefaultFilename:  defaultArchiveFilename,
			DefaultExtension: defaultArchiveExtension,
			Compression:      defaultCompression,
			Level:            defaultCompressionLevel,
			MinFreeMB:        defaultMinFreeMB,
			MaxItems:         defaultMaxItems,
		},
		Fetch: Fetch{
			TimeoutSeconds: defaultFetchTimeoutSeconds,
			UserAgent:      defaultFetchUserAgent,
			MaxIdleConns:   defaultFetchMaxIdleConns,
		},
		Ledger: Ledger{
			Backend:     defaultLedgerBackend,
			RedisStream: defaultRedisStream,
		},
		Metrics: Metrics{
			Enabled:   true,
			Namespace: defaultMetricsNamespace,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
