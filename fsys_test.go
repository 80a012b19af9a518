package ustar

import (
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSConformance(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AppendString("hello.txt", "Hello, World!"))
	require.NoError(t, a.AppendString("docs/guide/intro.md", "# intro"))
	require.NoError(t, a.AppendDir("empty"))

	err := fstest.TestFS(a.FS(), "hello.txt", "docs/guide/intro.md", "empty")
	assert.NoError(t, err)
}

func TestFSReadFile(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AppendString("docs/readme.md", "# readme"))

	data, err := fs.ReadFile(a.FS(), "docs/readme.md")
	require.NoError(t, err)
	assert.Equal(t, "# readme", string(data))

	// Reading through the FS must not consume the entry body.
	data, err = fs.ReadFile(a.FS(), "docs/readme.md")
	require.NoError(t, err)
	assert.Equal(t, "# readme", string(data))
}

func TestFSStatAndReadDir(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AppendString("dir/file.txt", "data"))

	info, err := fs.Stat(a.FS(), "dir")
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	entries, err := fs.ReadDir(a.FS(), "dir")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "file.txt", entries[0].Name())
	assert.False(t, entries[0].IsDir())

	_, err = fs.Stat(a.FS(), "missing")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
