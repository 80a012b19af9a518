package ustar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func childNames(n *TreeNode) []string {
	names := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		names = append(names, c.Entry.Name())
	}
	return names
}

func TestTreeOrdersDirsFirstThenAlphabetical(t *testing.T) {
	t.Parallel()

	a := New()
	require.NoError(t, a.AppendString("zz.txt", "z"))
	require.NoError(t, a.AppendString("beta/b.txt", "b"))
	require.NoError(t, a.AppendString("alpha/a.txt", "a"))
	require.NoError(t, a.AppendString("aa.txt", "a"))

	root := a.Tree()
	assert.Empty(t, root.Entry.Path)
	assert.True(t, root.IsDir())
	assert.Equal(t, []string{"alpha", "beta", "aa.txt", "zz.txt"}, childNames(root))

	var alpha *TreeNode
	for _, c := range root.Children {
		if c.Entry.Name() == "alpha" {
			alpha = c
		}
	}
	require.NotNil(t, alpha)
	assert.Equal(t, []string{"a.txt"}, childNames(alpha))
}

func TestTreeSynthesizesMissingParents(t *testing.T) {
	t.Parallel()

	// A foreign archive may omit directory entries; build one by hand.
	a := New()
	rec := &record{meta: Entry{Path: "deep/nested/file.txt", Kind: KindFile, Size: 1}}
	a.entries = append(a.entries, rec)
	a.byPath[rec.meta.Path] = rec

	root := a.Tree()
	require.Len(t, root.Children, 1)
	deep := root.Children[0]
	assert.Equal(t, "deep", deep.Entry.Name())
	assert.True(t, deep.IsDir())
	require.Len(t, deep.Children, 1)
	assert.Equal(t, "nested", deep.Children[0].Entry.Name())
}
