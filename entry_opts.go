package ustar

import (
	"io/fs"
	"time"
)

// entryConfig holds per-entry metadata for Append and Replace.
// Zero values fall back to inferred defaults: mode 0o644 (0o755 for
// directories), modification time of now, kind file.
type entryConfig struct {
	size     int64
	hasSize  bool
	mode     fs.FileMode
	hasMode  bool
	modTime  time.Time
	uid      int
	gid      int
	owner    string
	group    string
	kind     Kind
	linkname string
}

// EntryOption configures the metadata of an appended or replaced entry.
type EntryOption func(*entryConfig)

// WithSize declares the body length of a reader-backed entry. It is
// required when the reader's length cannot be inferred.
func WithSize(n int64) EntryOption {
	return func(cfg *entryConfig) {
		cfg.size = n
		cfg.hasSize = true
	}
}

// WithMode sets the entry's permission bits.
func WithMode(mode fs.FileMode) EntryOption {
	return func(cfg *entryConfig) {
		cfg.mode = mode
		cfg.hasMode = true
	}
}

// WithModTime sets the entry's modification time. Tar stores seconds;
// sub-second precision is dropped at serialization.
func WithModTime(t time.Time) EntryOption {
	return func(cfg *entryConfig) {
		cfg.modTime = t
	}
}

// WithOwner sets the numeric and symbolic owner.
func WithOwner(uid int, name string) EntryOption {
	return func(cfg *entryConfig) {
		cfg.uid = uid
		cfg.owner = name
	}
}

// WithGroup sets the numeric and symbolic group.
func WithGroup(gid int, name string) EntryOption {
	return func(cfg *entryConfig) {
		cfg.gid = gid
		cfg.group = name
	}
}

// WithKind sets the entry kind. Append defaults to KindFile.
func WithKind(k Kind) EntryOption {
	return func(cfg *entryConfig) {
		cfg.kind = k
	}
}

// WithLinkname sets the target of a symlink or hardlink entry.
func WithLinkname(target string) EntryOption {
	return func(cfg *entryConfig) {
		cfg.linkname = target
	}
}
