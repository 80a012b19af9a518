package ustar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/meigma/ustar/internal/header"
	"github.com/meigma/ustar/internal/parse"
	"github.com/meigma/ustar/internal/platform"
)

// Extract unpacks an archive stream under dir, creating it if needed.
// Entry bodies are written to their destination files as input chunks
// arrive, so memory use is independent of entry size.
//
// All paths are resolved inside an os.Root: entries that would escape
// dir fail the extraction. File mode and modification time are
// restored; ownership is applied where the platform allows and logged
// at debug level otherwise. Directory modification times are applied
// after all children are written. Device and fifo entries are skipped
// with a warning.
func Extract(ctx context.Context, r io.Reader, dir string, opts ...ExtractOption) error {
	var cfg extractConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.log()

	src, err := cfg.compression.decompressReader(r)
	if err != nil {
		return err
	}
	defer src.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return err
	}
	defer root.Close()

	sink := &extractSink{root: root, logger: logger, chown: cfg.chown}
	if err := feedAll(ctx, src, parse.New(sink)); err != nil {
		return err
	}
	sink.restoreDirTimes()
	return nil
}

// dirTime records a deferred directory timestamp.
type dirTime struct {
	path    string
	modTime time.Time
}

// extractSink writes entries beneath an os.Root as the parser emits
// them.
type extractSink struct {
	root   *os.Root
	logger *slog.Logger
	chown  bool
	dirs   []dirTime
}

func (s *extractSink) Directory(hdr header.Fields, _ []byte) error {
	e := entryFromFields(hdr)
	p, err := normalizeEntryPath(e.Path)
	if err != nil {
		return fmt.Errorf("entry %q: %w", e.Path, err)
	}
	if err := s.root.MkdirAll(p, e.Mode.Perm()); err != nil {
		return err
	}
	if err := s.root.Chmod(p, e.Mode); err != nil {
		return err
	}
	s.applyOwner(p, e, false)
	s.dirs = append(s.dirs, dirTime{path: p, modTime: e.ModTime})
	s.logger.Debug("created directory", "path", p)
	return nil
}

func (s *extractSink) File(hdr header.Fields, _ []byte) (io.WriteCloser, error) {
	e := entryFromFields(hdr)
	p, err := normalizeEntryPath(e.Path)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", e.Path, err)
	}
	if parent := path.Dir(p); parent != "." {
		if err := s.root.MkdirAll(parent, 0o755); err != nil {
			return nil, err
		}
	}

	switch e.Kind {
	case KindSymlink:
		if err := s.root.Symlink(e.Linkname, p); err != nil {
			return nil, err
		}
		s.applyOwner(p, e, true)
		s.logger.Debug("created symlink", "path", p, "target", e.Linkname)
		return discardCloser{}, nil

	case KindHardlink:
		target, err := normalizeEntryPath(e.Linkname)
		if err != nil {
			return nil, fmt.Errorf("entry %q: link target: %w", e.Path, err)
		}
		if err := s.root.Link(target, p); err != nil {
			return nil, err
		}
		s.logger.Debug("created hardlink", "path", p, "target", target)
		return discardCloser{}, nil

	case KindCharDevice, KindBlockDevice, KindFIFO:
		s.logger.Warn("skipping special entry", "path", p, "kind", e.Kind.String())
		return discardCloser{}, nil

	default:
		f, err := s.root.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, e.Mode.Perm())
		if err != nil {
			return nil, err
		}
		return &fileCommitter{sink: s, f: f, path: p, entry: e}, nil
	}
}

// applyOwner restores uid/gid best-effort: extraction by unprivileged
// users must not fail on EPERM.
func (s *extractSink) applyOwner(p string, e Entry, symlink bool) {
	if !s.chown {
		return
	}
	if err := platform.Chown(s.root, p, e.UID, e.GID, symlink); err != nil {
		s.logger.Debug("chown failed", "path", p, "uid", e.UID, "gid", e.GID, "error", err)
	}
}

// restoreDirTimes applies directory timestamps deepest-first, after
// all children have been written.
func (s *extractSink) restoreDirTimes() {
	for i := len(s.dirs) - 1; i >= 0; i-- {
		d := s.dirs[i]
		if err := s.root.Chtimes(d.path, time.Time{}, d.modTime); err != nil {
			s.logger.Debug("restore directory mtime failed", "path", d.path, "error", err)
		}
	}
}

// fileCommitter streams one entry body into its destination file and
// finalizes metadata on Close.
type fileCommitter struct {
	sink  *extractSink
	f     *os.File
	path  string
	entry Entry
}

func (c *fileCommitter) Write(p []byte) (int, error) {
	return c.f.Write(p)
}

func (c *fileCommitter) Close() error {
	if err := c.f.Close(); err != nil {
		return err
	}
	if err := c.sink.root.Chmod(c.path, c.entry.Mode); err != nil {
		return err
	}
	c.sink.applyOwner(c.path, c.entry, false)
	if err := c.sink.root.Chtimes(c.path, time.Time{}, c.entry.ModTime); err != nil {
		return err
	}
	c.sink.logger.Debug("extracted file", "path", c.path, "size", c.entry.Size)
	return nil
}

// discardCloser swallows bodies of entries that have none to write.
type discardCloser struct{}

func (discardCloser) Write(p []byte) (int, error) { return len(p), nil }
func (discardCloser) Close() error                { return nil }
