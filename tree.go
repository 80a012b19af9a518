package ustar

import (
	"slices"
	"strings"
)

// TreeNode is one node of a hierarchical archive view. The root node
// is synthetic, with an empty path and directory kind; children at
// every level are ordered directories first, then alphabetically by
// name.
type TreeNode struct {
	Entry    Entry
	Children []*TreeNode
}

// IsDir reports whether the node is a directory, including synthetic
// directories that have no explicit archive entry.
func (n *TreeNode) IsDir() bool {
	return n.Entry.IsDir()
}

// Tree builds the hierarchical view of the archive. Parents missing
// from the entry list (possible for archives parsed from foreign
// producers) appear as synthetic directory nodes.
func (a *Archive) Tree() *TreeNode {
	root := &TreeNode{Entry: Entry{Kind: KindDir}}
	nodes := map[string]*TreeNode{"": root}

	for _, rec := range a.entries {
		node := &TreeNode{Entry: rec.meta}
		if prev, ok := nodes[rec.meta.Path]; ok {
			prev.Entry = rec.meta
			continue
		}
		nodes[rec.meta.Path] = node
		parent := parentOf(nodes, rec.meta.Path)
		parent.Children = append(parent.Children, node)
	}

	sortTree(root)
	return root
}

// parentOf finds or synthesizes the parent node of path.
func parentOf(nodes map[string]*TreeNode, path string) *TreeNode {
	dir := ""
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		dir = path[:i]
	}
	if node, ok := nodes[dir]; ok {
		return node
	}
	node := &TreeNode{Entry: Entry{Path: dir, Kind: KindDir}}
	nodes[dir] = node
	parent := parentOf(nodes, dir)
	parent.Children = append(parent.Children, node)
	return node
}

// sortTree orders children directories-first, then by name.
func sortTree(n *TreeNode) {
	slices.SortStableFunc(n.Children, func(a, b *TreeNode) int {
		if a.IsDir() != b.IsDir() {
			if a.IsDir() {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Entry.Name(), b.Entry.Name())
	})
	for _, child := range n.Children {
		sortTree(child)
	}
}
