//go:build !unix

package platform

import (
	"io/fs"
	"os"
)

// FileOwner returns zero UID/GID on non-Unix systems.
func FileOwner(info fs.FileInfo) (uid, gid int) {
	return 0, 0
}

// Chown is a no-op on non-Unix systems.
func Chown(root *os.Root, name string, uid, gid int, symlink bool) error {
	return nil
}
