package ustar

import "github.com/opencontainers/go-digest"

// streamConfig holds configuration for Stream.
type streamConfig struct {
	compression Compression
	digester    digest.Digester
}

// StreamOption configures archive serialization.
type StreamOption func(*streamConfig)

// StreamWithCompression wraps the serialized archive in the given
// compression transform. The default is CompressionNone.
func StreamWithCompression(c Compression) StreamOption {
	return func(cfg *streamConfig) {
		cfg.compression = c
	}
}

// StreamWithDigester tees the bytes written to the destination through
// dgst, yielding a content digest of the produced stream. The digest
// covers the compressed bytes when compression is enabled.
func StreamWithDigester(dgst digest.Digester) StreamOption {
	return func(cfg *streamConfig) {
		cfg.digester = dgst
	}
}
