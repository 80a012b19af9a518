package ustar

import (
	"context"
	"fmt"
	"io"

	"github.com/meigma/ustar/internal/file"
	"github.com/meigma/ustar/internal/header"
)

// copyBufSize is the scratch buffer used when moving entry bodies.
const copyBufSize = 32 * 1024

// zeroBlock is shared zero fill for padding and the archive marker.
var zeroBlock [header.BlockSize]byte

// Stream serializes the archive to w: per entry a header record, the
// body, and zero padding to the next block boundary, terminated by a
// 1024-byte zero marker. It returns the number of bytes written to w.
//
// Stream consumes the entry bodies and is therefore one-shot; a second
// call fails with ErrAlreadyStreamed. Optional compression wraps the
// tar bytes as an outer transform, and an optional digester observes
// exactly the bytes written to w.
func (a *Archive) Stream(ctx context.Context, w io.Writer, opts ...StreamOption) (int64, error) {
	var cfg streamConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if a.streamed {
		return 0, ErrAlreadyStreamed
	}
	a.streamed = true

	cw := &file.CountingWriter{W: w}
	out := io.Writer(cw)
	if cfg.digester != nil {
		out = io.MultiWriter(cw, cfg.digester.Hash())
	}
	dst, err := cfg.compression.compressWriter(out)
	if err != nil {
		return 0, err
	}

	if err := a.writeEntries(ctx, dst); err != nil {
		dst.Close() //nolint:errcheck // already failing
		return cw.N, err
	}
	if err := dst.Close(); err != nil {
		return cw.N, fmt.Errorf("close compressor: %w", err)
	}
	return cw.N, nil
}

// writeEntries emits every entry followed by the end-of-archive marker.
func (a *Archive) writeEntries(ctx context.Context, dst io.Writer) error {
	buf := make([]byte, copyBufSize)
	for _, rec := range a.entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeRecord(ctx, dst, rec, buf); err != nil {
			return fmt.Errorf("entry %q: %w", rec.meta.Path, err)
		}
	}
	for range 2 {
		if _, err := dst.Write(zeroBlock[:]); err != nil {
			return err
		}
	}
	return nil
}

// writeRecord emits one entry: header, body, padding.
func writeRecord(ctx context.Context, dst io.Writer, rec *record, buf []byte) error {
	block := rec.raw
	if block == nil {
		fields, err := fieldsFromEntry(rec.meta)
		if err != nil {
			return err
		}
		if block, err = header.Encode(fields); err != nil {
			return err
		}
	}
	if _, err := dst.Write(block); err != nil {
		return err
	}
	if rec.meta.Size == 0 {
		return nil
	}

	body := io.LimitReader(rec.body.reader(), rec.meta.Size)
	n, err := file.CopyWithContext(ctx, dst, body, buf)
	// The limit reader can satisfy the declared size without ever
	// surfacing EOF to the source, so release it explicitly.
	if cerr := rec.body.close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	if n != rec.meta.Size {
		return fmt.Errorf("body has %d bytes, header declares %d", n, rec.meta.Size)
	}
	if pad := padding(rec.meta.Size); pad > 0 {
		if _, err := dst.Write(zeroBlock[:pad]); err != nil {
			return err
		}
	}
	return nil
}
