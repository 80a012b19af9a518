package ustar

import (
	"context"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/meigma/ustar/internal/platform"
)

// Pack builds an archive container from the contents of dir.
//
// Pack walks dir recursively. Directories are appended explicitly, so
// empty directories survive the round trip. Symbolic links are stored
// as symlink entries, never followed. Regular file bodies are not read
// at pack time: each entry holds a lazily opened reader, consumed when
// the archive is streamed, so a stream that shrinks or grows between
// walk and serialization fails the Stream call rather than corrupting
// the output.
//
// The context can be used for cancellation of long-running packs.
func Pack(ctx context.Context, dir string, opts ...PackOption) (*Archive, error) {
	var cfg packConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	logger := cfg.log()

	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, err
	}
	defer root.Close()

	a := New()
	err = fs.WalkDir(root.FS(), ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if p == "." {
			return nil
		}
		return appendDirEntry(a, root, p, d, logger)
	})
	if err != nil {
		return nil, err
	}

	logger.Info("packed directory", "dir", dir, "entries", a.Len(), "size", a.Size())
	return a, nil
}

// PackTo builds an archive from dir and streams it to w, returning the
// number of bytes written.
func PackTo(ctx context.Context, dir string, w io.Writer, opts ...PackOption) (int64, error) {
	var cfg packConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	a, err := Pack(ctx, dir, opts...)
	if err != nil {
		return 0, err
	}
	streamOpts := []StreamOption{StreamWithCompression(cfg.compression)}
	if cfg.digester != nil {
		streamOpts = append(streamOpts, StreamWithDigester(cfg.digester))
	}
	return a.Stream(ctx, w, streamOpts...)
}

// appendDirEntry converts one walked filesystem object into an archive
// entry.
func appendDirEntry(a *Archive, root *os.Root, p string, d fs.DirEntry, logger *slog.Logger) error {
	info, err := d.Info()
	if err != nil {
		return err
	}
	uid, gid := platform.FileOwner(info)
	opts := []EntryOption{
		WithMode(info.Mode().Perm()),
		WithModTime(info.ModTime()),
		WithOwner(uid, ""),
		WithGroup(gid, ""),
	}

	switch {
	case d.IsDir():
		logger.Debug("appending directory", "path", p)
		return a.AppendDir(p, opts...)

	case d.Type()&fs.ModeSymlink != 0:
		target, err := root.Readlink(p)
		if err != nil {
			return err
		}
		logger.Debug("appending symlink", "path", p, "target", target)
		opts = append(opts, WithKind(KindSymlink), WithLinkname(target))
		return a.AppendBytes(p, nil, opts...)

	case d.Type().IsRegular():
		logger.Debug("appending file", "path", p, "size", info.Size())
		opts = append(opts, WithSize(info.Size()))
		return a.Append(p, &lazyFile{path: filepath.Join(root.Name(), filepath.FromSlash(p))}, opts...)

	default:
		// Sockets, devices, and fifos are not packed.
		logger.Debug("skipping special file", "path", p, "mode", info.Mode().String())
		return nil
	}
}

// lazyFile opens its file on first read and closes it at EOF or on
// Close, whichever comes first, so a packed archive holds no open
// descriptors until it is streamed, and at most one while it streams.
type lazyFile struct {
	path string
	f    *os.File
	done bool
}

func (l *lazyFile) Read(p []byte) (int, error) {
	if l.done {
		return 0, io.EOF
	}
	if l.f == nil {
		f, err := os.Open(l.path)
		if err != nil {
			return 0, err
		}
		l.f = f
	}
	n, err := l.f.Read(p)
	if err == io.EOF {
		if cerr := l.Close(); cerr != nil {
			return n, cerr
		}
	}
	return n, err
}

func (l *lazyFile) Close() error {
	l.done = true
	if l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	return f.Close()
}
