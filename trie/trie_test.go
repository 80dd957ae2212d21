// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package trie

import (
	"reflect"
	"sort"
	"testing"
)

type fakeDetails struct {
	removed bool
}

func (d *fakeDetails) IsRemoved() bool { return d.removed }

func TestFindNodeEmptyTerm(t *testing.T) {
	tr := New[*fakeDetails]()
	node, ok := tr.FindNode("")
	if !ok {
		t.Fatal("FindNode(\"\") should always succeed")
	}
	if node.CodeUnit() != 0 {
		t.Fatalf("root code unit = %v, want sentinel 0", node.CodeUnit())
	}
}

func TestInsertPathAndFindNode(t *testing.T) {
	tr := New[*fakeDetails]()
	node := tr.InsertPath("cat")
	tr.AttachPosting(node, &Posting[*fakeDetails]{Details: &fakeDetails{}})

	found, ok := tr.FindNode("cat")
	if !ok || len(found.Postings()) != 1 {
		t.Fatalf("FindNode(cat) = %v, %v; want a node with 1 posting", found, ok)
	}

	ca, ok := tr.FindNode("ca")
	if !ok || len(ca.Postings()) != 0 {
		t.Fatal("FindNode(ca) should exist as an interior node with no postings")
	}

	if _, ok := tr.FindNode("dog"); ok {
		t.Fatal("FindNode(dog) should fail: no such path was ever inserted")
	}
}

// Expand returns every stored term sharing the given prefix, not just the
// immediate children, and returns nil for a prefix nothing was stored under.
func TestExpand(t *testing.T) {
	tr := New[*fakeDetails]()
	for _, term := range []string{"abc", "abcde", "ab", "de"} {
		node := tr.InsertPath(term)
		tr.AttachPosting(node, &Posting[*fakeDetails]{Details: &fakeDetails{}})
	}

	assertSet(t, tr.Expand("a"), []string{"ab", "abc", "abcde"})
	assertSet(t, tr.Expand("abc"), []string{"abc", "abcde"})
	assertSet(t, tr.Expand("de"), []string{"de"})

	if got := tr.Expand("zzz"); got != nil {
		t.Fatalf("Expand on missing prefix = %v, want nil", got)
	}
}

// Inserting "term1" then "term11" leaves "term" as a postings-free interior
// node, "term1" with a posting and a child, and "term11" with a posting and
// no children.
func TestInsertPrefixChain(t *testing.T) {
	tr := New[*fakeDetails]()
	n1 := tr.InsertPath("term1")
	tr.AttachPosting(n1, &Posting[*fakeDetails]{Details: &fakeDetails{}})
	n11 := tr.InsertPath("term11")
	tr.AttachPosting(n11, &Posting[*fakeDetails]{Details: &fakeDetails{}})

	term, ok := tr.FindNode("term")
	if !ok || len(term.Postings()) != 0 {
		t.Fatalf("findNode(term) = %v postings, want 0 postings", len(term.Postings()))
	}

	term1, ok := tr.FindNode("term1")
	if !ok || len(term1.Postings()) != 1 {
		t.Fatalf("findNode(term1) should have exactly 1 posting")
	}
	if len(term1.children) != 1 {
		t.Fatalf("findNode(term1) should have 1 child, got %d", len(term1.children))
	}

	term11, ok := tr.FindNode("term11")
	if !ok || len(term11.Postings()) != 1 {
		t.Fatalf("findNode(term11) should have exactly 1 posting")
	}
	if len(term11.children) != 0 {
		t.Fatalf("findNode(term11) should have no children, got %d", len(term11.children))
	}
}

func TestVacuumPrunesRemovedAndEmptySubtrees(t *testing.T) {
	tr := New[*fakeDetails]()
	d1 := &fakeDetails{}
	d2 := &fakeDetails{}

	for term, d := range map[string]*fakeDetails{"abc": d1, "abd": d2} {
		node := tr.InsertPath(term)
		tr.AttachPosting(node, &Posting[*fakeDetails]{Details: d})
	}

	d1.removed = true
	tr.Vacuum()

	if _, ok := tr.FindNode("abc"); ok {
		t.Fatal("abc should have been pruned after vacuum")
	}
	if node, ok := tr.FindNode("abd"); !ok || len(node.Postings()) != 1 {
		t.Fatal("abd should survive vacuum with its posting intact")
	}
	if _, ok := tr.FindNode("ab"); !ok {
		t.Fatal("ab should survive as a shared-prefix interior node of abd")
	}
}

func TestVacuumNeverPrunesRoot(t *testing.T) {
	tr := New[*fakeDetails]()
	tr.Vacuum()
	if _, ok := tr.FindNode(""); !ok {
		t.Fatal("root must survive vacuum even when empty")
	}
}

func TestCompactLiveUnlinksRemovedInPlace(t *testing.T) {
	tr := New[*fakeDetails]()
	node := tr.InsertPath("x")
	live := &fakeDetails{}
	removed := &fakeDetails{removed: true}
	tr.AttachPosting(node, &Posting[*fakeDetails]{Details: removed})
	tr.AttachPosting(node, &Posting[*fakeDetails]{Details: live})

	kept := node.CompactLive()
	if len(kept) != 1 || kept[0].Details != live {
		t.Fatalf("CompactLive = %v, want only the live posting", kept)
	}
	if len(node.Postings()) != 1 {
		t.Fatal("CompactLive must mutate the node in place")
	}
}

func TestWalkVisitsEveryTermWithPostings(t *testing.T) {
	tr := New[*fakeDetails]()
	for _, term := range []string{"abc", "abcde", "ab", "de"} {
		node := tr.InsertPath(term)
		tr.AttachPosting(node, &Posting[*fakeDetails]{Details: &fakeDetails{}})
	}

	var visited []string
	counts := make(map[string]int)
	tr.Walk(func(term string, postings []*Posting[*fakeDetails]) {
		visited = append(visited, term)
		counts[term] = len(postings)
	})

	assertSet(t, visited, []string{"ab", "abc", "abcde", "de"})
	for term, n := range counts {
		if n != 1 {
			t.Fatalf("Walk reported %d postings for %q, want 1", n, term)
		}
	}
}

func assertSet(t *testing.T, got []string, want []string) {
	t.Helper()
	g := append([]string(nil), got...)
	w := append([]string(nil), want...)
	sort.Strings(g)
	sort.Strings(w)
	if !reflect.DeepEqual(g, w) {
		t.Fatalf("got %v, want %v", g, w)
	}
}
