// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import "strings"

// nodeID addresses a node in the group tree arena.
type nodeID int32

const (
	rootNode nodeID = 0
	noNode   nodeID = -1
)

// groupNode is a group (pass < 0) or a pass leaf. Links are arena indices,
// so growing the arena never invalidates them.
type groupNode struct {
	name        string
	parent      nodeID
	firstChild  nodeID
	lastChild   nodeID
	nextSibling nodeID
	pass        int32
}

// groupTree is the per-frame hierarchy of pass groups. Node 0 is the root:
// it has no parent and no pass.
type groupTree struct {
	nodes   []groupNode
	current nodeID
	depth   int
}

func newGroupTree() groupTree {
	t := groupTree{}
	t.reset()
	return t
}

func (t *groupTree) reset() {
	clear(t.nodes)
	t.nodes = append(t.nodes[:0], groupNode{
		parent:      noNode,
		firstChild:  noNode,
		lastChild:   noNode,
		nextSibling: noNode,
		pass:        -1,
	})
	t.current = rootNode
	t.depth = 0
}

func (t *groupTree) appendChild(parent nodeID, name string, pass int32) nodeID {
	id := nodeID(len(t.nodes)) //nolint:gosec // G115: node count is bounded by registrations per frame
	t.nodes = append(t.nodes, groupNode{
		name:        name,
		parent:      parent,
		firstChild:  noNode,
		lastChild:   noNode,
		nextSibling: noNode,
		pass:        pass,
	})
	p := &t.nodes[parent]
	if p.lastChild == noNode {
		p.firstChild = id
	} else {
		t.nodes[p.lastChild].nextSibling = id
	}
	p.lastChild = id
	return id
}

// push makes a group named name current. If the current node's most recent
// child is already a group of that name, it is reopened; otherwise a new
// group is appended.
func (t *groupTree) push(name string) nodeID {
	last := t.nodes[t.current].lastChild
	if last != noNode && t.nodes[last].pass < 0 && t.nodes[last].name == name {
		t.current = last
	} else {
		t.current = t.appendChild(t.current, name, -1)
	}
	t.depth++
	return t.current
}

// pop returns to the parent group.
func (t *groupTree) pop() error {
	if t.current == rootNode {
		return ErrUnbalancedGroups
	}
	t.current = t.nodes[t.current].parent
	t.depth--
	return nil
}

// addPass appends a leaf for pass under the current group.
func (t *groupTree) addPass(name string, pass int32) nodeID {
	return t.appendChild(t.current, name, pass)
}

// walk visits nodes depth-first in preorder, children in insertion order.
// The root is not visited.
func (t *groupTree) walk(fn func(id nodeID, depth int)) {
	t.walkChildren(rootNode, 0, fn)
}

func (t *groupTree) walkChildren(parent nodeID, depth int, fn func(id nodeID, depth int)) {
	for c := t.nodes[parent].firstChild; c != noNode; c = t.nodes[c].nextSibling {
		fn(c, depth)
		t.walkChildren(c, depth+1, fn)
	}
}

// passOrder appends the pass indices in execution order to dst.
func (t *groupTree) passOrder(dst []int32) []int32 {
	t.walk(func(id nodeID, _ int) {
		if p := t.nodes[id].pass; p >= 0 {
			dst = append(dst, p)
		}
	})
	return dst
}

// path returns the slash-separated names of the groups enclosing id.
func (t *groupTree) path(id nodeID) string {
	var names []string
	for n := t.nodes[id].parent; n != noNode && n != rootNode; n = t.nodes[n].parent {
		names = append(names, t.nodes[n].name)
	}
	if len(names) == 0 {
		return ""
	}
	var b strings.Builder
	for i := len(names) - 1; i >= 0; i-- {
		b.WriteString(names[i])
		if i > 0 {
			b.WriteString(scopeSeparator)
		}
	}
	return b.String()
}
