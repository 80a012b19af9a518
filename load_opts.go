package ustar

import "log/slog"

// loadConfig holds configuration for Load.
type loadConfig struct {
	compression Compression
	logger      *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (cfg *loadConfig) log() *slog.Logger {
	if cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return cfg.logger
}

// LoadOption configures Load.
type LoadOption func(*loadConfig)

// LoadWithCompression declares the outer transform of the input
// stream. The default is CompressionNone.
func LoadWithCompression(c Compression) LoadOption {
	return func(cfg *loadConfig) {
		cfg.compression = c
	}
}

// LoadWithLogger sets the logger for load diagnostics.
func LoadWithLogger(logger *slog.Logger) LoadOption {
	return func(cfg *loadConfig) {
		cfg.logger = logger
	}
}
