// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package trie implements the character trie that backs the inverted index:
// terms are stored as paths of code units from a root node, each terminal
// node carrying the postings for the term it spells.
//
// Nodes live in a single arena (Trie.nodes) addressed by int32 index rather
// than as a graph of pointers, so the whole structure serializes and clones
// as a flat slice. Children of a node are kept sorted ascending by code unit
// and searched with binary search, per the reference layout described for
// this engine's term index.
package trie

import "sort"

// Removable is the constraint a posting's document-details type must
// satisfy so the trie can decide, during Vacuum, whether a posting still
// belongs to a live document.
type Removable interface {
	IsRemoved() bool
}

// Posting links one stored term to one document, carrying the number of
// times the term occurred in each of the document's fields.
type Posting[D Removable] struct {
	Details  D
	TermFreq []int
}

// Node is one position in the trie: the code unit that labels the edge from
// its parent, its sorted children, and (if this node terminates a stored
// term) its postings.
//
// A *Node returned by FindNode or InsertPath is a view into the trie's
// internal arena. It stays valid until the next call that mutates the trie
// (InsertPath, AttachPosting's append target growing, or Vacuum); callers
// must not retain it across such calls.
type Node[D Removable] struct {
	codeUnit rune
	children []int32
	postings []*Posting[D]
}

// CodeUnit returns the code unit labeling the edge into this node from its
// parent. The root's code unit is the sentinel value 0.
func (n *Node[D]) CodeUnit() rune { return n.codeUnit }

// Postings returns the node's current posting list. The slice is shared
// with the trie's internal storage; callers must not retain it past the
// next mutating call.
func (n *Node[D]) Postings() []*Posting[D] { return n.postings }

// CompactLive evicts, in place, any posting whose Details reports
// IsRemoved, and returns the resulting live posting slice. This is the
// query engine's opportunistic cleanup: it unlinks removed postings as
// they are encountered during a query rather than waiting for the next
// Vacuum. Conforming callers may instead only skip removed postings
// without calling this; both behaviors satisfy the engine's contract.
func (n *Node[D]) CompactLive() []*Posting[D] {
	if len(n.postings) == 0 {
		return n.postings
	}
	kept := n.postings[:0]
	for _, p := range n.postings {
		if !p.Details.IsRemoved() {
			kept = append(kept, p)
		}
	}
	n.postings = kept
	return n.postings
}

// Trie is an arena of Node values addressed by int32 index. Index 0 is
// always the root, which holds no postings and is never pruned.
type Trie[D Removable] struct {
	nodes []Node[D]
}

// New returns an empty trie containing only the root node.
func New[D Removable]() *Trie[D] {
	t := &Trie[D]{nodes: make([]Node[D], 1)}
	return t
}

// childIndex returns the arena index of parent's child labeled by codeUnit,
// using binary search over parent's sorted children slice.
func (t *Trie[D]) childIndex(parent int32, codeUnit rune) (int32, bool) {
	children := t.nodes[parent].children
	i := sort.Search(len(children), func(i int) bool {
		return t.nodes[children[i]].codeUnit >= codeUnit
	})
	if i < len(children) && t.nodes[children[i]].codeUnit == codeUnit {
		return children[i], true
	}
	return 0, false
}

// linkChild inserts child into parent's children slice at the position that
// keeps it sorted ascending by code unit.
func (t *Trie[D]) linkChild(parent, child int32) {
	children := t.nodes[parent].children
	codeUnit := t.nodes[child].codeUnit
	i := sort.Search(len(children), func(i int) bool {
		return t.nodes[children[i]].codeUnit >= codeUnit
	})
	children = append(children, 0)
	copy(children[i+1:], children[i:])
	children[i] = child
	t.nodes[parent].children = children
}

// newNode appends a fresh node labeled codeUnit to the arena and returns its
// index.
func (t *Trie[D]) newNode(codeUnit rune) int32 {
	t.nodes = append(t.nodes, Node[D]{codeUnit: codeUnit})
	return int32(len(t.nodes) - 1)
}

// FindNode descends from the root following the code units of term. It
// returns the terminal node and true if the full path exists, or nil and
// false otherwise. FindNode("") always returns the root.
func (t *Trie[D]) FindNode(term string) (*Node[D], bool) {
	cur := int32(0)
	for _, r := range term {
		next, ok := t.childIndex(cur, r)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return &t.nodes[cur], true
}

// InsertPath walks the trie from the root, creating any missing nodes along
// term's code units, and returns the (possibly newly created) terminal
// node. Inserting a term whose prefix already terminates another stored
// term creates a new terminal deeper on the same path without disturbing
// the shorter term's postings; inserting a term that is itself a prefix of
// an already-stored longer term attaches postings to the existing interior
// node for the shorter path.
func (t *Trie[D]) InsertPath(term string) *Node[D] {
	cur := int32(0)
	for _, r := range term {
		next, ok := t.childIndex(cur, r)
		if !ok {
			next = t.newNode(r)
			t.linkChild(cur, next)
		}
		cur = next
	}
	return &t.nodes[cur]
}

// AttachPosting appends p to node's posting list. Posting order within a
// node is unspecified; the operation is O(1) amortized.
func (t *Trie[D]) AttachPosting(node *Node[D], p *Posting[D]) {
	node.postings = append(node.postings, p)
}

// Expand returns every stored term having term as a prefix, term itself
// included if it is stored, in depth-first order over the trie at and below
// term's node. It returns nil if term's path does not exist in the trie.
func (t *Trie[D]) Expand(term string) []string {
	start := int32(0)
	for _, r := range term {
		next, ok := t.childIndex(start, r)
		if !ok {
			return nil
		}
		start = next
	}

	var out []string
	buf := []rune(term)

	var walk func(idx int32)
	walk = func(idx int32) {
		n := &t.nodes[idx]
		if len(n.postings) > 0 {
			out = append(out, string(buf))
		}
		for _, c := range n.children {
			buf = append(buf, t.nodes[c].codeUnit)
			walk(c)
			buf = buf[:len(buf)-1]
		}
	}
	walk(start)
	return out
}

// Walk calls fn once for every node in the trie that carries postings, in
// depth-first order, passing the term that node's path spells and its
// current posting slice. The slice passed to fn is shared with the trie's
// internal storage; fn must not retain it past the call.
func (t *Trie[D]) Walk(fn func(term string, postings []*Posting[D])) {
	var buf []rune

	var walk func(idx int32)
	walk = func(idx int32) {
		n := &t.nodes[idx]
		if len(n.postings) > 0 {
			fn(string(buf), n.postings)
		}
		for _, c := range n.children {
			buf = append(buf, t.nodes[c].codeUnit)
			walk(c)
			buf = buf[:len(buf)-1]
		}
	}
	walk(0)
}

// Vacuum runs a post-order pruning pass: at every node, postings whose
// details report IsRemoved are evicted, children are recursed into first,
// and any child whose subtree ends up with zero postings and zero children
// is unlinked from its parent. The root is never pruned.
func (t *Trie[D]) Vacuum() {
	t.vacuumNode(0)
}

// vacuumNode prunes the subtree rooted at idx and reports whether it
// survived (non-empty, or the root, which always survives).
func (t *Trie[D]) vacuumNode(idx int32) bool {
	n := &t.nodes[idx]

	if len(n.postings) > 0 {
		kept := n.postings[:0]
		for _, p := range n.postings {
			if !p.Details.IsRemoved() {
				kept = append(kept, p)
			}
		}
		n.postings = kept
	}

	liveChildren := n.children[:0]
	for _, c := range n.children {
		if t.vacuumNode(c) {
			liveChildren = append(liveChildren, c)
		}
	}
	n.children = liveChildren

	return idx == 0 || len(n.postings) > 0 || len(n.children) > 0
}
