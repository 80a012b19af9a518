package ustar

import (
	"log/slog"

	"github.com/opencontainers/go-digest"
)

// packConfig holds configuration for Pack and PackTo.
type packConfig struct {
	compression Compression
	digester    digest.Digester
	logger      *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (cfg *packConfig) log() *slog.Logger {
	if cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return cfg.logger
}

// PackOption configures Pack and PackTo.
type PackOption func(*packConfig)

// PackWithCompression sets the outer transform PackTo applies to the
// serialized archive. Pack itself ignores it; compression happens at
// stream time.
func PackWithCompression(c Compression) PackOption {
	return func(cfg *packConfig) {
		cfg.compression = c
	}
}

// PackWithDigester tees the bytes PackTo writes through dgst.
func PackWithDigester(dgst digest.Digester) PackOption {
	return func(cfg *packConfig) {
		cfg.digester = dgst
	}
}

// PackWithLogger sets the logger for pack diagnostics.
func PackWithLogger(logger *slog.Logger) PackOption {
	return func(cfg *packConfig) {
		cfg.logger = logger
	}
}
