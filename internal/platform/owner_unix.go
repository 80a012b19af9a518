//go:build unix

package platform

import (
	"io/fs"
	"os"
	"syscall"
)

// FileOwner extracts UID and GID from file info on Unix systems.
func FileOwner(info fs.FileInfo) (uid, gid int) {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return int(stat.Uid), int(stat.Gid)
	}
	return 0, 0
}

// Chown applies ownership to a path inside root. Symlinks are changed
// without being followed.
func Chown(root *os.Root, name string, uid, gid int, symlink bool) error {
	if symlink {
		return root.Lchown(name, uid, gid)
	}
	return root.Chown(name, uid, gid)
}
