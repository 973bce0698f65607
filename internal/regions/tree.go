package regions

import "sort"

// Node is one region of the in-memory tree.
type Node struct {
	Name     string
	Children []*Node
}

// Tree is the region hierarchy rooted at a single region.
type Tree struct {
	Root  *Node
	index map[string]*Node
}

// BuildTree assembles the hierarchy from flat parent links. Exactly one region
// may have an empty parent. Children keep the order of the input slice.
func BuildTree(regions []Region) (*Tree, error) {
	byParent := make(map[string][]Region)
	for _, r := range regions {
		byParent[r.Parent] = append(byParent[r.Parent], r)
	}
	roots := byParent[""]
	switch {
	case len(roots) == 0:
		return nil, ErrRootNotFound
	case len(roots) > 1:
		return nil, ErrMultipleRoots
	}

	t := &Tree{index: make(map[string]*Node, len(regions))}
	t.Root = t.attach(roots[0].Name, byParent)
	return t, nil
}

func (t *Tree) attach(name string, byParent map[string][]Region) *Node {
	node := &Node{Name: name}
	t.index[name] = node
	for _, child := range byParent[name] {
		if _, seen := t.index[child.Name]; seen {
			continue
		}
		node.Children = append(node.Children, t.attach(child.Name, byParent))
	}
	return node
}

// LevelOrder returns the region names grouped by depth, root first.
func (t *Tree) LevelOrder() [][]string {
	if t == nil || t.Root == nil {
		return nil
	}
	var levels [][]string
	current := []*Node{t.Root}
	for len(current) > 0 {
		var next []*Node
		level := make([]string, 0, len(current))
		for _, n := range current {
			level = append(level, n.Name)
			next = append(next, n.Children...)
		}
		levels = append(levels, level)
		current = next
	}
	return levels
}

// BottomUp lists every region with the deepest level first, so each region
// follows all of its descendants.
func (t *Tree) BottomUp() []string {
	levels := t.LevelOrder()
	var out []string
	for i := len(levels) - 1; i >= 0; i-- {
		out = append(out, levels[i]...)
	}
	return out
}

// Has reports whether name is part of the tree.
func (t *Tree) Has(name string) bool {
	if t == nil {
		return false
	}
	_, ok := t.index[name]
	return ok
}

// Subtree returns name and all of its descendants in sorted order.
func (t *Tree) Subtree(name string) ([]string, error) {
	if t == nil {
		return nil, ErrRootNotFound
	}
	start, ok := t.index[name]
	if !ok {
		return nil, ErrNotFound
	}
	var out []string
	stack := []*Node{start}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, n.Name)
		stack = append(stack, n.Children...)
	}
	sort.Strings(out)
	return out, nil
}

// Children returns the direct child names of a region.
func (t *Tree) Children(name string) []string {
	if t == nil {
		return nil
	}
	n, ok := t.index[name]
	if !ok {
		return nil
	}
	names := make([]string, len(n.Children))
	for i, c := range n.Children {
		names[i] = c.Name
	}
	return names
}
