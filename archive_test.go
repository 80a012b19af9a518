package ustar

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func entryPaths(a *Archive) []string {
	var paths []string
	for e := range a.Entries() {
		paths = append(paths, e.Path)
	}
	return paths
}

func TestAppendCreatesAncestors(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AppendString("a/b/c.txt", "content"))

	assert.Equal(t, []string{"a", "a/b", "a/b/c.txt"}, entryPaths(a))

	dir, ok := a.Retrieve("a/b")
	require.True(t, ok)
	assert.Equal(t, KindDir, dir.Kind)
	assert.EqualValues(t, 0o755, dir.Mode)

	// A sibling under the same directory must not duplicate ancestors.
	require.NoError(t, a.AppendString("a/b/d.txt", "more"))
	assert.Equal(t, []string{"a", "a/b", "a/b/c.txt", "a/b/d.txt"}, entryPaths(a))
}

func TestAppendDefaults(t *testing.T) {
	t.Parallel()

	before := time.Now().Add(-time.Second)
	a := New()
	require.NoError(t, a.AppendString("hello.txt", "hi"))
	require.NoError(t, a.AppendDir("docs"))

	f, ok := a.Retrieve("hello.txt")
	require.True(t, ok)
	assert.Equal(t, KindFile, f.Kind)
	assert.EqualValues(t, 0o644, f.Mode)
	assert.EqualValues(t, 2, f.Size)
	assert.False(t, f.ModTime.Before(before))

	d, ok := a.Retrieve("docs")
	require.True(t, ok)
	assert.Equal(t, KindDir, d.Kind)
	assert.EqualValues(t, 0o755, d.Mode)
	assert.Zero(t, d.Size)
}

func TestAppendDuplicateFails(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AppendString("x.txt", "one"))
	assert.ErrorIs(t, a.AppendString("x.txt", "two"), ErrEntryExists)
}

func TestAppendUnderNonDirectoryFails(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AppendString("a", "a file, not a directory"))
	assert.ErrorIs(t, a.AppendString("a/b", "nested"), ErrEntryExists)
	assert.Equal(t, []string{"a"}, entryPaths(a))
}

func TestAppendInvalidPath(t *testing.T) {
	t.Parallel()

	a := New()
	assert.ErrorIs(t, a.AppendString("", "x"), ErrInvalidPath)
	assert.ErrorIs(t, a.AppendString("///", "x"), ErrInvalidPath)
	assert.ErrorIs(t, a.AppendString("a/../b", "x"), ErrInvalidPath)
}

func TestAppendPathNormalization(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AppendString("/etc//nginx/nginx.conf/", "conf"))
	assert.Equal(t, []string{"etc", "etc/nginx", "etc/nginx/nginx.conf"}, entryPaths(a))
}

func TestAppendTooLongPath(t *testing.T) {
	t.Parallel()

	a := New()
	err := a.AppendString(strings.Repeat("a", 200), "x")
	assert.ErrorIs(t, err, ErrNameTooLong)
	assert.Zero(t, a.Len())
}

func TestAppendReaderSizeInference(t *testing.T) {
	t.Parallel()

	a := New()

	// bytes.Buffer exposes Len, so the size is inferred.
	require.NoError(t, a.Append("buf.txt", bytes.NewBufferString("hello")))
	e, ok := a.Retrieve("buf.txt")
	require.True(t, ok)
	assert.EqualValues(t, 5, e.Size)

	// An opaque reader needs WithSize.
	err := a.Append("raw.txt", io.MultiReader(strings.NewReader("x")))
	assert.ErrorIs(t, err, ErrUnknownSize)

	require.NoError(t, a.Append("sized.txt", io.MultiReader(strings.NewReader("abc")), WithSize(3)))
}

func TestRetrieveAbsent(t *testing.T) {
	t.Parallel()

	a := New()
	_, ok := a.Retrieve("nope.txt")
	assert.False(t, ok)
}

func TestRetrieveDoesNotConsumeBody(t *testing.T) {
	t.Parallel()

	a := New()
	// bytes.Buffer is genuinely single-consumption.
	require.NoError(t, a.Append("f.txt", bytes.NewBufferString("precious bytes")))

	er, ok := a.Retrieve("f.txt")
	require.True(t, ok)
	got, err := io.ReadAll(er)
	require.NoError(t, err)
	assert.Equal(t, "precious bytes", string(got))

	// A second copy still reads the full body.
	er2, ok := a.Retrieve("f.txt")
	require.True(t, ok)
	got, err = io.ReadAll(er2)
	require.NoError(t, err)
	assert.Equal(t, "precious bytes", string(got))

	// And serialization still carries the body bytes.
	var out bytes.Buffer
	_, err = a.Stream(context.Background(), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "precious bytes")
}

func TestRemove(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AppendString("a.txt", "a"))
	require.NoError(t, a.AppendString("b.txt", "b"))

	assert.True(t, a.Remove("a.txt"))
	assert.False(t, a.Remove("a.txt"))
	assert.Equal(t, []string{"b.txt"}, entryPaths(a))
}

func TestReplace(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AppendString("a.txt", "old"))
	require.NoError(t, a.AppendString("b.txt", "keep"))
	require.NoError(t, a.AppendDir("dir"))

	ok, err := a.Replace("a.txt", strings.NewReader("newer"))
	require.NoError(t, err)
	assert.True(t, ok)

	e, found := a.Retrieve("a.txt")
	require.True(t, found)
	assert.EqualValues(t, 5, e.Size)
	got, err := io.ReadAll(e)
	require.NoError(t, err)
	assert.Equal(t, "newer", string(got))

	// Replacement keeps the entry's position.
	assert.Equal(t, []string{"a.txt", "b.txt", "dir"}, entryPaths(a))

	// Absent paths report false, not an error.
	ok, err = a.Replace("missing.txt", strings.NewReader("x"))
	require.NoError(t, err)
	assert.False(t, ok)

	// Kind flips between directory and non-directory are rejected.
	ok, err = a.Replace("dir", strings.NewReader("x"))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = a.Replace("a.txt", nil, WithKind(KindDir))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEntriesIsRestartable(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AppendString("one", "1"))
	require.NoError(t, a.AppendString("two", "2"))

	seq := a.Entries()
	first := 0
	for range seq {
		first++
		break // early exit must not exhaust the sequence
	}
	second := 0
	for range seq {
		second++
	}
	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestSizeAccountsHeadersPaddingAndMarker(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AppendString("hello.txt", "Hello, World!"))
	// 512 header + 13 body + 499 padding + 1024 marker.
	assert.EqualValues(t, 2048, a.Size())

	require.NoError(t, a.AppendDir("docs"))
	assert.EqualValues(t, 2048+512, a.Size())

	require.NoError(t, a.AppendString("docs/block.bin", strings.Repeat("x", 512)))
	assert.EqualValues(t, 2048+512+1024, a.Size())
}
