// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package docreg maintains the document registry (key -> document details)
// and the per-field running length statistics used by the BM25 ranker. It
// has no knowledge of terms or postings; the indexer package couples it to
// the trie.
package docreg

// Details records, for one live or formerly-live document, the key it was
// inserted under, whether it has been logically removed, and how many
// filtered, non-empty tokens each field contributed at insertion time.
//
// Details is shared by every posting belonging to this document's terms:
// postings hold a pointer to the same Details value, which is why removal
// is observed everywhere without having to touch the trie.
type Details struct {
	Key          any
	Removed      bool
	FieldLengths []int
}

// IsRemoved reports whether the document has been logically removed. It
// satisfies trie.Removable.
func (d *Details) IsRemoved() bool { return d.Removed }

// FieldStats holds the running sum and average of field lengths across all
// currently-live documents for one field.
type FieldStats struct {
	SumLen int
	AvgLen float64
}

// Registry maps document keys to Details and maintains FieldStats per
// field. It is not safe for concurrent use; the engine this package backs
// is designed for single-threaded cooperative use.
type Registry struct {
	byKey      map[any]*Details
	liveCount  int
	fieldStats []FieldStats
}

// New returns an empty registry sized for numFields fields.
func New(numFields int) *Registry {
	return &Registry{
		byKey:      make(map[any]*Details),
		fieldStats: make([]FieldStats, numFields),
	}
}

// LiveCount returns the number of currently-live (not removed) documents.
func (r *Registry) LiveCount() int { return r.liveCount }

// FieldStats returns the running statistics for field i.
func (r *Registry) FieldStats(i int) FieldStats { return r.fieldStats[i] }

// NumFields returns the number of fields this registry tracks statistics for.
func (r *Registry) NumFields() int { return len(r.fieldStats) }

// Get returns the live Details for key, if any.
func (r *Registry) Get(key any) (*Details, bool) {
	d, ok := r.byKey[key]
	return d, ok
}

// IsLive reports whether key currently names a live document.
func (r *Registry) IsLive(key any) bool {
	_, ok := r.byKey[key]
	return ok
}

// AccountField folds count filtered terms for field i into that field's
// running statistics, anticipating the document about to be registered: the
// new average divides by the live count as it will be *after* registration
// completes. Called once per present field during indexing, before
// Register.
func (r *Registry) AccountField(field, count int) {
	r.fieldStats[field].SumLen += count
	r.fieldStats[field].AvgLen = safeAvg(r.fieldStats[field].SumLen, r.liveCount+1)
}

// Register records details as a live document and increments the live
// document count. The caller must have already folded each field's length
// into the running statistics via AccountField.
func (r *Registry) Register(details *Details) {
	r.byKey[details.Key] = details
	r.liveCount++
}

// MarkRemoved logically removes key: its Details.Removed flag is set, it is
// excised from the live key map, the live document count is decremented,
// and every field with a positive recorded length has its running
// statistics rolled back. Removing a key that is not live is a no-op and
// returns (nil, false).
func (r *Registry) MarkRemoved(key any) (*Details, bool) {
	d, ok := r.byKey[key]
	if !ok {
		return nil, false
	}

	d.Removed = true
	delete(r.byKey, key)
	r.liveCount--

	for i, l := range d.FieldLengths {
		if l > 0 {
			r.fieldStats[i].SumLen -= l
			r.fieldStats[i].AvgLen = safeAvg(r.fieldStats[i].SumLen, r.liveCount)
		}
	}

	return d, true
}

// All returns every currently-live Details, in unspecified order.
func (r *Registry) All() []*Details {
	out := make([]*Details, 0, len(r.byKey))
	for _, d := range r.byKey {
		out = append(out, d)
	}
	return out
}

// RestoreDocs replaces the registry's live document set and field
// statistics wholesale, used when rebuilding a registry from a previously
// captured snapshot rather than through Register/MarkRemoved. docs must map
// each live document's key to its Details; liveCount is derived from its
// length, and stats is copied into the registry's per-field statistics.
func (r *Registry) RestoreDocs(docs map[any]*Details, stats []FieldStats) {
	r.byKey = docs
	r.liveCount = len(docs)
	copy(r.fieldStats, stats)
}

// safeAvg divides sum by denom, treating a non-positive denominator as
// yielding zero rather than dividing by zero or going negative.
func safeAvg(sum, denom int) float64 {
	if denom <= 0 {
		return 0
	}
	return float64(sum) / float64(denom)
}
