package ustar

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/meigma/ustar/internal/file"
	"github.com/meigma/ustar/internal/header"
)

// Archive is an ordered, mutable collection of tar entries.
//
// Entries keep insertion order, which is the order they serialize in.
// An Archive is not safe for concurrent mutation; see the package
// documentation.
type Archive struct {
	entries  []*record
	byPath   map[string]*record
	streamed bool
}

// record is one container slot: entry metadata, the raw header record
// when the entry came from parsed bytes, and the body source.
type record struct {
	meta Entry
	raw  []byte
	body bodySource
}

// bodySource holds an entry body either as an in-memory buffer or as a
// single-consumption reader of known length.
type bodySource struct {
	data []byte
	r    io.Reader
}

// reader returns the body for serialization, consuming a reader-backed
// source.
func (b *bodySource) reader() io.Reader {
	if b.data != nil {
		return bytes.NewReader(b.data)
	}
	if b.r != nil {
		return b.r
	}
	return bytes.NewReader(nil)
}

// close releases a reader-backed source that holds a resource, such
// as a lazily opened file. In-memory sources have nothing to release.
func (b *bodySource) close() error {
	if c, ok := b.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// fork returns an independent readable copy of the body. For a
// reader-backed source the underlying stream is split through a
// fan-out tee so the original remains serializable.
func (b *bodySource) fork() io.Reader {
	if b.data != nil {
		return bytes.NewReader(b.data)
	}
	if b.r != nil {
		primary, copy := file.NewTee(b.r)
		b.r = primary
		return copy
	}
	return bytes.NewReader(nil)
}

// New returns an empty archive container.
func New() *Archive {
	return &Archive{byPath: make(map[string]*record)}
}

// normalizeEntryPath converts a user-provided path to the archive's
// canonical '/'-separated relative form. Leading and trailing slashes
// are stripped and consecutive slashes collapse; "." and ".." elements
// are rejected.
func normalizeEntryPath(p string) (string, error) {
	p = strings.Trim(p, "/")
	if p == "" {
		return "", ErrInvalidPath
	}
	parts := make([]string, 0, strings.Count(p, "/")+1)
	for part := range strings.SplitSeq(p, "/") {
		switch part {
		case "":
			continue
		case ".", "..":
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		default:
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "", ErrInvalidPath
	}
	return strings.Join(parts, "/"), nil
}

// sizedReader matchers for inferring a body length without consuming
// the reader. bytes.Reader and strings.Reader satisfy both.
type lenReader interface{ Len() int }
type sizeReader interface{ Size() int64 }

// inferSize resolves the body length of a reader-backed entry.
func inferSize(r io.Reader, cfg *entryConfig) (int64, error) {
	if cfg.hasSize {
		if cfg.size < 0 {
			return 0, fmt.Errorf("%w: negative size %d", ErrUnknownSize, cfg.size)
		}
		return cfg.size, nil
	}
	switch v := r.(type) {
	case lenReader:
		return int64(v.Len()), nil
	case sizeReader:
		return v.Size(), nil
	}
	return 0, ErrUnknownSize
}

// buildEntry assembles entry metadata from options and defaults.
func buildEntry(path string, size int64, cfg *entryConfig) Entry {
	e := Entry{
		Path:     path,
		Kind:     cfg.kind,
		Size:     size,
		Mode:     cfg.mode,
		ModTime:  cfg.modTime,
		UID:      cfg.uid,
		GID:      cfg.gid,
		Owner:    cfg.owner,
		Group:    cfg.group,
		Linkname: cfg.linkname,
	}
	if e.ModTime.IsZero() {
		e.ModTime = time.Now()
	}
	if !cfg.hasMode {
		if e.Kind == KindDir {
			e.Mode = 0o755
		} else {
			e.Mode = 0o644
		}
	}
	if e.Kind == KindDir {
		e.Size = 0
	}
	return e
}

// Append adds a reader-backed entry. The body length must be inferable
// from the reader (anything with a Len or Size method, such as
// bytes.Reader or strings.Reader) or declared via WithSize; otherwise
// Append fails with ErrUnknownSize. The reader is consumed when the
// archive is streamed, not at append time.
//
// Missing ancestor directories are inserted automatically, each before
// its descendant. Appending a path that already exists fails with
// ErrEntryExists.
func (a *Archive) Append(path string, body io.Reader, opts ...EntryOption) error {
	cfg := applyEntryOpts(opts)
	size := int64(0)
	if body != nil && cfg.kind != KindDir {
		var err error
		if size, err = inferSize(body, &cfg); err != nil {
			return err
		}
	}
	e := buildEntry("", size, &cfg)
	src := bodySource{r: body}
	if body == nil || e.Kind == KindDir {
		src = bodySource{}
	}
	return a.insert(path, e, src, nil)
}

// AppendBytes adds an entry whose body is the given byte slice. The
// slice is not copied; callers must not mutate it afterwards.
func (a *Archive) AppendBytes(path string, data []byte, opts ...EntryOption) error {
	cfg := applyEntryOpts(opts)
	e := buildEntry("", int64(len(data)), &cfg)
	if data == nil {
		data = []byte{}
	}
	src := bodySource{data: data}
	if e.Kind == KindDir {
		src = bodySource{}
	}
	return a.insert(path, e, src, nil)
}

// AppendString adds an entry whose body is the given string.
func (a *Archive) AppendString(path, data string, opts ...EntryOption) error {
	return a.AppendBytes(path, []byte(data), opts...)
}

// AppendDir adds an explicit directory entry.
func (a *Archive) AppendDir(path string, opts ...EntryOption) error {
	cfg := applyEntryOpts(opts)
	cfg.kind = KindDir
	e := buildEntry("", 0, &cfg)
	return a.insert(path, e, bodySource{}, nil)
}

func applyEntryOpts(opts []EntryOption) entryConfig {
	var cfg entryConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// insert validates the path, creates missing ancestors, and places the
// entry at the end of the container.
func (a *Archive) insert(path string, e Entry, body bodySource, raw []byte) error {
	p, err := normalizeEntryPath(path)
	if err != nil {
		return err
	}
	if _, _, err := header.SplitName(p); err != nil {
		return err
	}
	if _, ok := a.byPath[p]; ok {
		return fmt.Errorf("%w: %q", ErrEntryExists, p)
	}
	if err := a.insertAncestors(p, e.ModTime); err != nil {
		return err
	}
	e.Path = p
	rec := &record{meta: e, raw: raw, body: body}
	a.entries = append(a.entries, rec)
	a.byPath[p] = rec
	return nil
}

// insertAncestors synthesizes one directory entry per missing ancestor
// of p, shallowest first, so every entry's parents precede it.
func (a *Archive) insertAncestors(p string, modTime time.Time) error {
	for i, r := range p {
		if r != '/' {
			continue
		}
		dir := p[:i]
		if existing, ok := a.byPath[dir]; ok {
			if !existing.meta.IsDir() {
				return fmt.Errorf("%w: ancestor %q is not a directory", ErrEntryExists, dir)
			}
			continue
		}
		if _, _, err := header.SplitName(dir); err != nil {
			return err
		}
		rec := &record{meta: Entry{
			Path:    dir,
			Kind:    KindDir,
			Mode:    0o755,
			ModTime: modTime,
		}}
		a.entries = append(a.entries, rec)
		a.byPath[dir] = rec
	}
	return nil
}

// Retrieve returns the entry at path together with a readable copy of
// its body. The copy is fanned out from the entry's own body stream,
// so reading it leaves the archive serializable. The second return
// value is false when the path is absent.
func (a *Archive) Retrieve(path string) (*EntryReader, bool) {
	p, err := normalizeEntryPath(path)
	if err != nil {
		return nil, false
	}
	rec, ok := a.byPath[p]
	if !ok {
		return nil, false
	}
	return &EntryReader{Entry: rec.meta, Header: rec.raw, body: rec.body.fork()}, true
}

// Remove deletes the entry at path. It reports whether an entry was
// found and removed. Descendants of a removed directory are kept.
func (a *Archive) Remove(path string) bool {
	p, err := normalizeEntryPath(path)
	if err != nil {
		return false
	}
	rec, ok := a.byPath[p]
	if !ok {
		return false
	}
	delete(a.byPath, p)
	for i, r := range a.entries {
		if r == rec {
			a.entries = append(a.entries[:i], a.entries[i+1:]...)
			break
		}
	}
	return true
}

// Replace swaps the body and metadata of an existing entry, keeping
// its position. It returns false, without error, when the path is
// absent or when the replacement would change the entry between
// directory and non-directory kinds. Size inference follows the same
// rules as Append; pass a nil body for directories and link entries.
func (a *Archive) Replace(path string, body io.Reader, opts ...EntryOption) (bool, error) {
	p, err := normalizeEntryPath(path)
	if err != nil {
		return false, err
	}
	rec, ok := a.byPath[p]
	if !ok {
		return false, nil
	}

	cfg := applyEntryOpts(opts)
	size := int64(0)
	if body != nil && cfg.kind != KindDir {
		if size, err = inferSize(body, &cfg); err != nil {
			return false, err
		}
	}
	e := buildEntry("", size, &cfg)
	e.Path = p
	if rec.meta.IsDir() != e.IsDir() {
		return false, nil
	}

	src := bodySource{r: body}
	if body == nil || e.Kind == KindDir {
		src = bodySource{}
	}
	rec.meta = e
	rec.body = src
	rec.raw = nil
	return true, nil
}

// ReplaceBytes is Replace with an in-memory body.
func (a *Archive) ReplaceBytes(path string, data []byte, opts ...EntryOption) (bool, error) {
	if data == nil {
		data = []byte{}
	}
	return a.Replace(path, bytes.NewReader(data), opts...)
}

// Entries returns a lazy, restartable sequence of entry metadata in
// insertion order.
func (a *Archive) Entries() iter.Seq[Entry] {
	return func(yield func(Entry) bool) {
		for _, rec := range a.entries {
			if !yield(rec.meta) {
				return
			}
		}
	}
}

// Len returns the number of entries.
func (a *Archive) Len() int {
	return len(a.entries)
}

// Size returns the exact serialized size of the archive before any
// compression: one header block plus the padded body per entry, plus
// the 1024-byte end-of-archive marker.
func (a *Archive) Size() int64 {
	var n int64
	for _, rec := range a.entries {
		n += header.BlockSize + rec.meta.Size + padding(rec.meta.Size)
	}
	return n + 2*header.BlockSize
}

// padding returns the zero fill required after a body of the given
// size to reach the next block boundary.
func padding(size int64) int64 {
	return (header.BlockSize - size%header.BlockSize) % header.BlockSize
}
