// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package index implements the engine's pure core: a document index over a
// character trie, scored with BM25. It has no logging, tracing, or metrics
// of its own — package search wraps an Index with that ambient behavior.
package index

import (
	"errors"
	"fmt"

	"github.com/rivertext/fts/bm25"
	"github.com/rivertext/fts/docreg"
	"github.com/rivertext/fts/query"
	"github.com/rivertext/fts/textproc"
	"github.com/rivertext/fts/trie"
)

var (
	// ErrNoFields is returned by New when Options declares zero fields.
	ErrNoFields = errors.New("index: at least one field is required")
	// ErrAccessorMissing is returned by New when a field has no Accessor.
	ErrAccessorMissing = errors.New("index: field accessor is required")
	// ErrDuplicateKey is returned by Insert when key already names a live
	// document. Re-inserting under the same key requires Remove first.
	ErrDuplicateKey = errors.New("index: key already live")
	// ErrFieldCountMismatch is returned when restoring a Snapshot whose
	// field count does not match the Options it is being restored with.
	ErrFieldCountMismatch = errors.New("index: snapshot field count does not match options")
)

// Accessor extracts one field's raw text from a document. It returns false
// if the field is absent on this document.
type Accessor func(doc any) (string, bool)

// Field describes one searchable field: its name (for diagnostics and
// serialization), its multiplicative BM25 boost, and how to pull its text
// out of a document passed to Insert.
type Field struct {
	Name     string
	Boost    float64
	Accessor Accessor
}

// Options configures a new Index.
type Options struct {
	Fields    []Field
	Tokenizer textproc.Tokenizer
	Filter    textproc.Filter
	BM25      bm25.Scorer
}

// Index is a dynamic, in-memory full-text index. It is not safe for
// concurrent use; callers that need concurrency must serialize access
// themselves. Package search adds logging and tracing but no locking.
type Index struct {
	fields    []Field
	tokenizer textproc.Tokenizer
	filter    textproc.Filter
	scorer    bm25.Scorer
	trie      *trie.Trie[*docreg.Details]
	registry  *docreg.Registry
}

// New constructs an empty Index. Fields must declare at least one entry,
// each with a non-nil Accessor; Tokenizer, Filter, and BM25 fall back to
// textproc's defaults and bm25.Default respectively when left zero.
func New(opts Options) (*Index, error) {
	if len(opts.Fields) == 0 {
		return nil, ErrNoFields
	}
	fields := make([]Field, len(opts.Fields))
	copy(fields, opts.Fields)
	for i, f := range fields {
		if f.Accessor == nil {
			return nil, fmt.Errorf("%w: field %q", ErrAccessorMissing, f.Name)
		}
		if f.Boost == 0 {
			fields[i].Boost = 1.0
		}
	}

	tokenizer := opts.Tokenizer
	if tokenizer == nil {
		tokenizer = textproc.DefaultTokenizer
	}
	filter := opts.Filter
	if filter == nil {
		filter = textproc.DefaultFilter
	}
	scorer := opts.BM25
	if scorer == (bm25.Scorer{}) {
		scorer = bm25.Default()
	}

	return &Index{
		fields:    fields,
		tokenizer: tokenizer,
		filter:    filter,
		scorer:    scorer,
		trie:      trie.New[*docreg.Details](),
		registry:  docreg.New(len(fields)),
	}, nil
}

// Insert indexes doc under key. It returns ErrDuplicateKey if key already
// names a live document — callers must Remove the existing document first.
//
// For each field, in order: the field's accessor is invoked; if it reports
// absence, that field contributes length 0 and its running statistics are
// left untouched. Otherwise the field's text is tokenized and filtered, the
// field's running length statistics are updated with the resulting term
// count (even if that count is zero), and each surviving term's per-field
// frequency is accumulated. Once every field has been processed, the
// document is registered as live and each distinct term's posting is
// attached to its trie node.
func (ix *Index) Insert(key any, doc any) error {
	if ix.registry.IsLive(key) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, key)
	}

	fieldLengths := make([]int, len(ix.fields))
	termFreq := make(map[string][]int)

	for i, f := range ix.fields {
		text, ok := f.Accessor(doc)
		if !ok {
			continue
		}

		filteredCount := 0
		for _, tok := range ix.tokenizer(text) {
			term := ix.filter(tok)
			if term == "" {
				continue
			}
			filteredCount++
			tf, ok := termFreq[term]
			if !ok {
				tf = make([]int, len(ix.fields))
				termFreq[term] = tf
			}
			tf[i]++
		}

		ix.registry.AccountField(i, filteredCount)
		fieldLengths[i] = filteredCount
	}

	details := &docreg.Details{Key: key, FieldLengths: fieldLengths}
	ix.registry.Register(details)

	for term, tf := range termFreq {
		node := ix.trie.InsertPath(term)
		ix.trie.AttachPosting(node, &trie.Posting[*docreg.Details]{Details: details, TermFreq: tf})
	}
	return nil
}

// Remove logically removes the live document under key, rolling back its
// contribution to every field's running statistics immediately. Its
// postings remain in the trie, marked removed, until the next Vacuum or
// until a Query that reaches them unlinks them. It reports whether key
// named a live document.
func (ix *Index) Remove(key any) bool {
	_, ok := ix.registry.MarkRemoved(key)
	return ok
}

// Vacuum evicts every removed posting from the trie and prunes any subtree
// left with no postings and no children.
func (ix *Index) Vacuum() {
	ix.trie.Vacuum()
}

// Query evaluates text against the index and returns matching documents'
// keys ranked by descending BM25 score.
func (ix *Index) Query(text string) []query.Result {
	return ix.querySource().Query(text)
}

// Expand returns every stored term having term (after filtering) as a
// prefix, term itself included if stored.
func (ix *Index) Expand(term string) []string {
	return ix.trie.Expand(ix.filter(term))
}

// LiveCount returns the number of currently-live documents.
func (ix *Index) LiveCount() int { return ix.registry.LiveCount() }

func (ix *Index) querySource() *query.Source {
	boosts := make([]float64, len(ix.fields))
	for i, f := range ix.fields {
		boosts[i] = f.Boost
	}
	return &query.Source{
		Trie:        ix.trie,
		Registry:    ix.registry,
		Scorer:      ix.scorer,
		FieldBoosts: boosts,
		Tokenizer:   ix.tokenizer,
		Filter:      ix.filter,
	}
}
