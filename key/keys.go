// Package key defines the canonical set of configuration identifiers used for centralized settings management.
package key

// DefinedFieldsCount represents the total cardinality of the application configuration schema.
const DefinedFieldsCount = 19

// Playback session - these keys shape the orchestrator's timing and quality behaviour.
const (
	PlayerDefaultQuality         = "player.default_quality"
	PlayerSettleDelayMs          = "player.settle_delay_ms"
	PlayerAdvanceDelayMs         = "player.advance_delay_ms"
	PlayerMaxConsecutiveFailures = "player.max_consecutive_failures"
	PlayerMpvPath                = "player.mpv_path"
	PlayerLoop                   = "player.loop"
)

// Stream resolution - these keys bound the retry protocol around extraction.
const (
	ResolverMaxRetries   = "resolver.max_retries"
	ResolverRetryDelayMs = "resolver.retry_delay_ms"
	ResolverWorkers      = "resolver.workers"
)

// Resolution cache.
const (
	CacheCapacity = "cache.capacity"
)

// Extraction collaborator.
const (
	ExtractorTimeoutSeconds = "extractor.timeout_s"
	ExtractorTLSFingerprint = "extractor.tls_fingerprint"
)

// History Tracking - these keys configure the persistence of watch positions.
const (
	HistorySaveOnPlay = "history.save_on_play"
)

// Iconography - these keys manage the visual rendering of UI symbols.
const (
	IconsVariant = "icons.variant"
)

// Logging Infrastructure - these keys manage the application's internal diagnostics.
const (
	LogsWrite = "logs.write"
	LogsLevel = "logs.level"
	LogsJson  = "logs.json"
)

// CLI Execution Environment.
const (
	CliColored      = "cli.colored"
	CliVersionCheck = "cli.version_check"
)
