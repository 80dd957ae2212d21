// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package index

import (
	"fmt"

	"github.com/rivertext/fts/bm25"
	"github.com/rivertext/fts/docreg"
	"github.com/rivertext/fts/trie"
)

// SnapshotField captures one field's name, boost, and running length
// statistics. Accessors are not part of the snapshot: they are Go closures
// and must be re-supplied via Options when restoring.
type SnapshotField struct {
	Name   string  `yaml:"name"`
	Boost  float64 `yaml:"boost"`
	SumLen int     `yaml:"sum_len"`
	AvgLen float64 `yaml:"avg_len"`
}

// SnapshotDoc captures one document's details. ID is a snapshot-local
// identifier used to link postings back to the document that owns them; it
// has no meaning outside the snapshot. A document can appear here with
// Removed set to true if it was logically removed but not yet vacuumed at
// the time of the snapshot — its postings may still appear under
// SnapshotTerm entries.
type SnapshotDoc struct {
	ID           int   `yaml:"id"`
	Key          any   `yaml:"key"`
	Removed      bool  `yaml:"removed"`
	FieldLengths []int `yaml:"field_lengths"`
}

// SnapshotPosting links one stored term to the document named by DetailsID.
type SnapshotPosting struct {
	DetailsID int   `yaml:"details_id"`
	TermFreq  []int `yaml:"term_freq"`
}

// SnapshotTerm is one stored term and its posting list.
type SnapshotTerm struct {
	Term     string            `yaml:"term"`
	Postings []SnapshotPosting `yaml:"postings"`
}

// Snapshot is the complete persisted state of an Index: the document
// registry, the full trie including postings for documents removed but not
// yet vacuumed, field descriptors, and BM25 constants. It does not capture
// the tokenizer, filter, or field accessors — those are Go values supplied
// fresh via Options whenever a Snapshot is restored.
type Snapshot struct {
	Fields []SnapshotField `yaml:"fields"`
	Docs   []SnapshotDoc   `yaml:"docs"`
	Terms  []SnapshotTerm  `yaml:"terms"`
	K1     float64         `yaml:"k1"`
	B      float64         `yaml:"b"`
}

// Snapshot captures ix's complete persisted state.
func (ix *Index) Snapshot() Snapshot {
	ids := make(map[*docreg.Details]int)
	var docs []SnapshotDoc

	idOf := func(d *docreg.Details) int {
		if id, ok := ids[d]; ok {
			return id
		}
		id := len(docs)
		ids[d] = id
		docs = append(docs, SnapshotDoc{
			ID:           id,
			Key:          d.Key,
			Removed:      d.IsRemoved(),
			FieldLengths: append([]int(nil), d.FieldLengths...),
		})
		return id
	}

	for _, d := range ix.registry.All() {
		idOf(d)
	}

	var terms []SnapshotTerm
	ix.trie.Walk(func(term string, postings []*trie.Posting[*docreg.Details]) {
		st := SnapshotTerm{Term: term}
		for _, p := range postings {
			st.Postings = append(st.Postings, SnapshotPosting{
				DetailsID: idOf(p.Details),
				TermFreq:  append([]int(nil), p.TermFreq...),
			})
		}
		terms = append(terms, st)
	})

	fields := make([]SnapshotField, len(ix.fields))
	for i, f := range ix.fields {
		stats := ix.registry.FieldStats(i)
		fields[i] = SnapshotField{Name: f.Name, Boost: f.Boost, SumLen: stats.SumLen, AvgLen: stats.AvgLen}
	}

	return Snapshot{Fields: fields, Docs: docs, Terms: terms, K1: ix.scorer.K1, B: ix.scorer.B}
}

// RestoreFromSnapshot builds a new Index from opts (which must supply the
// same tokenizer, filter, and field accessors the original index used) and
// repopulates it directly from snap's trie and registry contents, bypassing
// Insert entirely since the original documents are not available to
// re-tokenize.
func RestoreFromSnapshot(opts Options, snap Snapshot) (*Index, error) {
	ix, err := New(opts)
	if err != nil {
		return nil, err
	}
	if len(snap.Fields) != len(ix.fields) {
		return nil, fmt.Errorf("%w: snapshot has %d, options have %d", ErrFieldCountMismatch, len(snap.Fields), len(ix.fields))
	}
	if snap.K1 != 0 || snap.B != 0 {
		ix.scorer = bm25.NewScorer(snap.K1, snap.B)
	}

	stats := make([]docreg.FieldStats, len(snap.Fields))
	liveDocs := make(map[any]*docreg.Details)
	byID := make(map[int]*docreg.Details, len(snap.Docs))
	for i, f := range snap.Fields {
		stats[i] = docreg.FieldStats{SumLen: f.SumLen, AvgLen: f.AvgLen}
	}
	for _, d := range snap.Docs {
		details := &docreg.Details{
			Key:          d.Key,
			Removed:      d.Removed,
			FieldLengths: append([]int(nil), d.FieldLengths...),
		}
		byID[d.ID] = details
		if !d.Removed {
			liveDocs[d.Key] = details
		}
	}
	ix.registry.RestoreDocs(liveDocs, stats)

	for _, t := range snap.Terms {
		node := ix.trie.InsertPath(t.Term)
		for _, p := range t.Postings {
			details, ok := byID[p.DetailsID]
			if !ok {
				continue
			}
			ix.trie.AttachPosting(node, &trie.Posting[*docreg.Details]{
				Details:  details,
				TermFreq: append([]int(nil), p.TermFreq...),
			})
		}
	}

	return ix, nil
}
