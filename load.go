package ustar

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/meigma/ustar/internal/header"
	"github.com/meigma/ustar/internal/parse"
)

// Load reads an entire archive into a new container. Entry bodies are
// buffered in memory; use Extract to unpack without whole-entry
// buffering.
//
// Load fails with ErrCorruptedArchive when the stream is truncated or
// carries data after the end-of-archive marker. A stream that ends
// cleanly on a block boundary without the marker is accepted.
func Load(ctx context.Context, r io.Reader, opts ...LoadOption) (*Archive, error) {
	var cfg loadConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	src, err := cfg.compression.decompressReader(r)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	a := New()
	p := parse.New(&materializeSink{a: a, logger: cfg.log()})
	if err := feedAll(ctx, src, p); err != nil {
		return nil, err
	}
	return a, nil
}

// feedAll pulls chunks from r into the parser until end of input, then
// closes the parser. Cancellation is checked before every read, so an
// aborted context stops the pull loop.
func feedAll(ctx context.Context, r io.Reader, p *parse.Parser) error {
	buf := make([]byte, copyBufSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			if ferr := p.Feed(buf[:n]); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return p.Close()
		}
		if err != nil {
			return fmt.Errorf("read archive: %w", err)
		}
	}
}

// materializeSink buffers entry bodies in memory and places entries
// into the container as they complete. A path that appears twice keeps
// its first position with the later metadata and body, matching tar's
// last-one-wins semantics.
type materializeSink struct {
	a      *Archive
	logger *slog.Logger
}

func (s *materializeSink) Directory(hdr header.Fields, raw []byte) error {
	s.put(&record{meta: entryFromFields(hdr), raw: raw})
	return nil
}

func (s *materializeSink) File(hdr header.Fields, raw []byte) (io.WriteCloser, error) {
	return &bufferCommitter{
		sink: s,
		rec:  &record{meta: entryFromFields(hdr), raw: raw},
	}, nil
}

func (s *materializeSink) put(rec *record) {
	s.logger.Debug("materialized entry", "path", rec.meta.Path, "kind", rec.meta.Kind.String(), "size", rec.meta.Size)
	if prev, ok := s.a.byPath[rec.meta.Path]; ok {
		*prev = *rec
		return
	}
	s.a.entries = append(s.a.entries, rec)
	s.a.byPath[rec.meta.Path] = rec
}

// bufferCommitter accumulates one entry body and commits the entry to
// the container on Close.
type bufferCommitter struct {
	sink *materializeSink
	rec  *record
	buf  bytes.Buffer
}

func (c *bufferCommitter) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *bufferCommitter) Close() error {
	c.rec.body = bodySource{data: c.buf.Bytes()}
	c.sink.put(c.rec)
	return nil
}
