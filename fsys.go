package ustar

import (
	"io"
	"io/fs"
	"slices"
	"strings"
	"time"
)

// FS returns a read-only fs.FS view of the archive.
//
// The view implements fs.StatFS, fs.ReadDirFS, and fs.ReadFileFS.
// Directory listings come from the archive tree, so parents missing
// from the entry list appear as synthetic directories. File reads use
// fanned-out body copies and leave the archive serializable, the same
// guarantee as Retrieve.
//
// The view reflects the archive at call time of each operation; it is
// not a snapshot.
func (a *Archive) FS() fs.FS {
	return &archiveFS{a: a}
}

type archiveFS struct {
	a *Archive
}

// Interface compliance.
var (
	_ fs.FS         = (*archiveFS)(nil)
	_ fs.StatFS     = (*archiveFS)(nil)
	_ fs.ReadDirFS  = (*archiveFS)(nil)
	_ fs.ReadFileFS = (*archiveFS)(nil)
)

// node resolves name to a tree node. The root is addressed as ".".
func (afs *archiveFS) node(name string) (*TreeNode, bool) {
	node := afs.a.Tree()
	if name == "." {
		return node, true
	}
	rest := name
	for rest != "" {
		seg := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			seg, rest = rest[:i], rest[i+1:]
		} else {
			rest = ""
		}
		var next *TreeNode
		for _, child := range node.Children {
			if child.Entry.Name() == seg {
				next = child
				break
			}
		}
		if next == nil {
			return nil, false
		}
		node = next
	}
	return node, true
}

// Open implements fs.FS.
func (afs *archiveFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	node, ok := afs.node(name)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	if node.IsDir() {
		return &archiveDir{info: entryInfo{node.Entry}, entries: dirEntries(node.Children)}, nil
	}
	er, ok := afs.a.Retrieve(node.Entry.Path)
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return &archiveFile{info: entryInfo{er.Entry}, body: er}, nil
}

// Stat implements fs.StatFS.
func (afs *archiveFS) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	node, ok := afs.node(name)
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return entryInfo{node.Entry}, nil
}

// ReadDir implements fs.ReadDirFS.
func (afs *archiveFS) ReadDir(name string) ([]fs.DirEntry, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	node, ok := afs.node(name)
	if !ok {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrNotExist}
	}
	if !node.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: fs.ErrInvalid}
	}
	return dirEntries(node.Children), nil
}

// ReadFile implements fs.ReadFileFS.
func (afs *archiveFS) ReadFile(name string) ([]byte, error) {
	f, err := afs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// dirEntries converts tree children to fs.DirEntry values sorted by
// name, as the fs.ReadDirFS contract requires. The directories-first
// ordering is a Tree-only guarantee.
func dirEntries(children []*TreeNode) []fs.DirEntry {
	entries := make([]fs.DirEntry, len(children))
	for i, child := range children {
		entries[i] = fs.FileInfoToDirEntry(entryInfo{child.Entry})
	}
	slices.SortFunc(entries, func(a, b fs.DirEntry) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return entries
}

// entryInfo adapts an Entry to fs.FileInfo.
type entryInfo struct {
	e Entry
}

func (i entryInfo) Name() string { return i.e.Name() }
func (i entryInfo) Size() int64  { return i.e.Size }

func (i entryInfo) Mode() fs.FileMode {
	mode := i.e.Mode
	switch i.e.Kind {
	case KindDir:
		mode |= fs.ModeDir
	case KindSymlink:
		mode |= fs.ModeSymlink
	case KindHardlink:
		// Hardlinks stat as regular files.
	case KindCharDevice:
		mode |= fs.ModeDevice | fs.ModeCharDevice
	case KindBlockDevice:
		mode |= fs.ModeDevice
	case KindFIFO:
		mode |= fs.ModeNamedPipe
	}
	return mode
}

func (i entryInfo) ModTime() time.Time { return i.e.ModTime }
func (i entryInfo) IsDir() bool        { return i.e.IsDir() }
func (i entryInfo) Sys() any           { return i.e }

// archiveFile is an open regular file.
type archiveFile struct {
	info entryInfo
	body io.Reader
}

func (f *archiveFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *archiveFile) Read(p []byte) (int, error) { return f.body.Read(p) }
func (f *archiveFile) Close() error               { return nil }

// archiveDir is an open directory handle over a pre-sorted listing.
type archiveDir struct {
	info    entryInfo
	entries []fs.DirEntry
	offset  int
}

// Interface compliance.
var _ fs.ReadDirFile = (*archiveDir)(nil)

func (d *archiveDir) Stat() (fs.FileInfo, error) { return d.info, nil }
func (d *archiveDir) Close() error               { return nil }

func (d *archiveDir) Read([]byte) (int, error) {
	return 0, &fs.PathError{Op: "read", Path: d.info.Name(), Err: fs.ErrInvalid}
}

func (d *archiveDir) ReadDir(n int) ([]fs.DirEntry, error) {
	rest := d.entries[d.offset:]
	if n <= 0 {
		d.offset = len(d.entries)
		return rest, nil
	}
	if len(rest) == 0 {
		return nil, io.EOF
	}
	if n > len(rest) {
		n = len(rest)
	}
	d.offset += n
	return rest[:n], nil
}
