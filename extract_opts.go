package ustar

import "log/slog"

// extractConfig holds configuration for Extract.
type extractConfig struct {
	compression Compression
	logger      *slog.Logger
	chown       bool
}

// log returns the logger, falling back to a discard logger if nil.
func (cfg *extractConfig) log() *slog.Logger {
	if cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return cfg.logger
}

// ExtractOption configures Extract.
type ExtractOption func(*extractConfig)

// ExtractWithCompression declares the outer transform of the input
// stream. The default is CompressionNone.
func ExtractWithCompression(c Compression) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.compression = c
	}
}

// ExtractWithLogger sets the logger for extraction diagnostics.
func ExtractWithLogger(logger *slog.Logger) ExtractOption {
	return func(cfg *extractConfig) {
		cfg.logger = logger
	}
}

// ExtractWithOwnership restores uid/gid from entry metadata. Failures
// (typically EPERM for unprivileged callers) are logged and skipped.
func ExtractWithOwnership() ExtractOption {
	return func(cfg *extractConfig) {
		cfg.chown = true
	}
}
