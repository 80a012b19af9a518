package ustar

import (
	"io"
	"io/fs"
	"path"
	"time"

	"github.com/meigma/ustar/internal/header"
)

// Kind identifies the filesystem object an entry represents.
type Kind uint8

const (
	KindFile Kind = iota
	KindHardlink
	KindSymlink
	KindCharDevice
	KindBlockDevice
	KindDir
	KindFIFO
	KindContiguous
)

func (k Kind) String() string {
	switch k {
	case KindFile:
		return "file"
	case KindHardlink:
		return "link"
	case KindSymlink:
		return "symlink"
	case KindCharDevice:
		return "character-device"
	case KindBlockDevice:
		return "block-device"
	case KindDir:
		return "directory"
	case KindFIFO:
		return "fifo"
	case KindContiguous:
		return "contiguous-file"
	default:
		return "unknown"
	}
}

// typeflag returns the USTar typeflag byte for the kind.
func (k Kind) typeflag() byte {
	switch k {
	case KindHardlink:
		return header.TypeHardlink
	case KindSymlink:
		return header.TypeSymlink
	case KindCharDevice:
		return header.TypeCharDevice
	case KindBlockDevice:
		return header.TypeBlockDev
	case KindDir:
		return header.TypeDir
	case KindFIFO:
		return header.TypeFIFO
	case KindContiguous:
		return header.TypeContiguous
	default:
		return header.TypeFile
	}
}

// kindFromTypeflag maps a header typeflag to a Kind. Typeflags outside
// the USTar set decode as regular files, matching the common reader
// behavior for unknown entry types.
func kindFromTypeflag(b byte) Kind {
	switch b {
	case header.TypeHardlink:
		return KindHardlink
	case header.TypeSymlink:
		return KindSymlink
	case header.TypeCharDevice:
		return KindCharDevice
	case header.TypeBlockDev:
		return KindBlockDevice
	case header.TypeDir:
		return KindDir
	case header.TypeFIFO:
		return KindFIFO
	case header.TypeContiguous:
		return KindContiguous
	default:
		return KindFile
	}
}

// Entry is the metadata of one archive member.
type Entry struct {
	// Path is the archive-relative path, always '/'-separated.
	Path string

	// Kind is the filesystem object type.
	Kind Kind

	// Size is the body length in bytes; zero for directories.
	Size int64

	// Mode holds the permission and setuid/setgid/sticky bits.
	Mode fs.FileMode

	// ModTime is the modification time at second resolution.
	ModTime time.Time

	// UID and GID are the numeric owner and group.
	UID int
	GID int

	// Owner and Group are the symbolic owner and group; may be empty.
	Owner string
	Group string

	// Linkname is the target of symlink and hardlink entries.
	Linkname string
}

// Name returns the entry's leaf display name.
func (e Entry) Name() string {
	return path.Base(e.Path)
}

// IsDir reports whether the entry is a directory.
func (e Entry) IsDir() bool {
	return e.Kind == KindDir
}

// EntryReader couples an Entry with a readable copy of its body.
// Reading it does not consume the archive's own body stream. Header
// holds the entry's raw 512-byte record when the entry was parsed from
// bytes; it is nil for entries appended in memory.
type EntryReader struct {
	Entry
	Header []byte

	body io.Reader
}

// Read implements io.Reader over the entry body. Entries without a
// body (directories, symlinks) read as empty.
func (er *EntryReader) Read(p []byte) (int, error) {
	if er.body == nil {
		return 0, io.EOF
	}
	return er.body.Read(p)
}

// modeFromTar converts the octal tar mode field to an fs.FileMode.
func modeFromTar(m int64) fs.FileMode {
	mode := fs.FileMode(m) & fs.ModePerm
	if m&0o4000 != 0 {
		mode |= fs.ModeSetuid
	}
	if m&0o2000 != 0 {
		mode |= fs.ModeSetgid
	}
	if m&0o1000 != 0 {
		mode |= fs.ModeSticky
	}
	return mode
}

// modeToTar converts an fs.FileMode back to the tar mode field.
func modeToTar(mode fs.FileMode) int64 {
	m := int64(mode & fs.ModePerm)
	if mode&fs.ModeSetuid != 0 {
		m |= 0o4000
	}
	if mode&fs.ModeSetgid != 0 {
		m |= 0o2000
	}
	if mode&fs.ModeSticky != 0 {
		m |= 0o1000
	}
	return m
}

// entryFromFields builds an Entry from decoded header fields.
func entryFromFields(f header.Fields) Entry {
	kind := kindFromTypeflag(f.Typeflag)
	size := f.Size
	if kind == KindDir {
		size = 0
	}
	return Entry{
		Path:     f.Path(),
		Kind:     kind,
		Size:     size,
		Mode:     modeFromTar(f.Mode),
		ModTime:  f.ModTime,
		UID:      int(f.UID),
		GID:      int(f.GID),
		Owner:    f.UName,
		Group:    f.GName,
		Linkname: f.Linkname,
	}
}

// fieldsFromEntry builds header fields for serialization, splitting
// the path into the prefix and name fields.
func fieldsFromEntry(e Entry) (header.Fields, error) {
	prefix, name, err := header.SplitName(e.Path)
	if err != nil {
		return header.Fields{}, err
	}
	return header.Fields{
		Name:     name,
		Prefix:   prefix,
		Mode:     modeToTar(e.Mode),
		UID:      int64(e.UID),
		GID:      int64(e.GID),
		Size:     e.Size,
		ModTime:  e.ModTime,
		Typeflag: e.Kind.typeflag(),
		Linkname: e.Linkname,
		UName:    e.Owner,
		GName:    e.Group,
	}, nil
}
