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
	"testing"

	"github.com/stretchr/testify/require"
)

func buildSampleIndex(t *testing.T) *Index {
	t.Helper()
	ix := newTwoFieldIndex(t)
	mustInsert(t, ix, "a", doc{title: "a", body: "Lorem ipsum dolor"})
	mustInsert(t, ix, "b", doc{title: "b", body: "Lorem ipsum"})
	mustInsert(t, ix, "c", doc{title: "c", body: "sit amet"})
	mustInsert(t, ix, "d", doc{title: "d", body: "will be removed"})
	ix.Remove("d")
	return ix
}

func freshOptions() Options {
	return Options{
		Fields: []Field{
			{Name: "title", Accessor: titleAccessor},
			{Name: "body", Accessor: bodyAccessor},
		},
	}
}

func TestSnapshotRoundTripPreservesQueryResults(t *testing.T) {
	original := buildSampleIndex(t)

	snap := original.Snapshot()
	restored, err := RestoreFromSnapshot(freshOptions(), snap)
	require.NoError(t, err)

	for _, q := range []string{"lorem", "a", "b", "removed", "sit amet"} {
		require.Equal(t, original.Query(q), restored.Query(q), "query %q diverged after round-trip", q)
	}
	require.Equal(t, original.LiveCount(), restored.LiveCount())
}

func TestSnapshotPreservesRemovedButNotVacuumedPostings(t *testing.T) {
	original := buildSampleIndex(t)
	snap := original.Snapshot()

	var found bool
	for _, term := range snap.Terms {
		if term.Term == "removed" {
			found = true
		}
	}
	require.True(t, found, "snapshot should still carry the removed document's un-vacuumed postings")

	restored, err := RestoreFromSnapshot(freshOptions(), snap)
	require.NoError(t, err)
	require.Empty(t, restored.Query("removed"), "a removed document must not surface in restored query results")

	restored.Vacuum()
	require.Empty(t, restored.Expand("removed"), "vacuuming the restored index should prune the dead branch")
}

func TestRestoreFieldCountMismatch(t *testing.T) {
	original := buildSampleIndex(t)
	snap := original.Snapshot()

	_, err := RestoreFromSnapshot(Options{
		Fields: []Field{{Name: "body", Accessor: bodyAccessor}},
	}, snap)
	require.ErrorIs(t, err, ErrFieldCountMismatch)
}
