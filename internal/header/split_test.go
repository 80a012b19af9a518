package header

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitNameShortPath(t *testing.T) {
	t.Parallel()

	prefix, name, err := SplitName("etc/nginx/nginx.conf")
	require.NoError(t, err)
	assert.Empty(t, prefix)
	assert.Equal(t, "etc/nginx/nginx.conf", name)
}

func TestSplitNameExactly100Bytes(t *testing.T) {
	t.Parallel()

	p := strings.Repeat("a", 100)
	prefix, name, err := SplitName(p)
	require.NoError(t, err)
	assert.Empty(t, prefix)
	assert.Equal(t, p, name)
}

func TestSplitNameLongPath(t *testing.T) {
	t.Parallel()

	// 200-byte path with its last separator at offset 140.
	p := strings.Repeat("a", 140) + "/" + strings.Repeat("b", 59)
	require.Len(t, p, 200)

	prefix, name, err := SplitName(p)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", 140), prefix)
	assert.Equal(t, strings.Repeat("b", 59), name)
	assert.LessOrEqual(t, len(prefix), 155)
	assert.LessOrEqual(t, len(name), 100)
}

func TestSplitNamePicksRightmostSeparator(t *testing.T) {
	t.Parallel()

	p := "aa/" + strings.Repeat("b", 100) + "/" + strings.Repeat("c", 50)
	prefix, name, err := SplitName(p)
	require.NoError(t, err)
	assert.Equal(t, "aa/"+strings.Repeat("b", 100), prefix)
	assert.Equal(t, strings.Repeat("c", 50), name)
}

func TestSplitNameNoSeparator(t *testing.T) {
	t.Parallel()

	_, _, err := SplitName(strings.Repeat("a", 200))
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestSplitNameSeparatorBeyondPrefixLimit(t *testing.T) {
	t.Parallel()

	// The only separator sits past offset 155, so no split fits.
	p := strings.Repeat("a", 180) + "/" + strings.Repeat("b", 10)
	_, _, err := SplitName(p)
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestSplitNameNameSideTooLong(t *testing.T) {
	t.Parallel()

	// Splitting at the lone separator leaves a 150-byte name.
	p := strings.Repeat("a", 10) + "/" + strings.Repeat("b", 150)
	_, _, err := SplitName(p)
	assert.ErrorIs(t, err, ErrNameTooLong)
}

func TestSplitNamePrefixAtLimit(t *testing.T) {
	t.Parallel()

	p := strings.Repeat("a", 155) + "/" + strings.Repeat("b", 100)
	prefix, name, err := SplitName(p)
	require.NoError(t, err)
	assert.Len(t, prefix, 155)
	assert.Len(t, name, 100)
}
