// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package textproc

import (
	"reflect"
	"testing"
)

func TestDefaultTokenizerSplitsOnWhitespaceRuns(t *testing.T) {
	got := DefaultTokenizer("  Lorem\tipsum\n\ndolor  ")
	want := []string{"Lorem", "ipsum", "dolor"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("DefaultTokenizer = %v, want %v", got, want)
	}
}

func TestDefaultFilterLowercasesAndTrims(t *testing.T) {
	cases := map[string]string{
		"Cats!":  "cats",
		"--abc--": "abc",
		"___":     "___",
		"Dog_Food": "dog_food",
	}
	for in, want := range cases {
		if got := DefaultFilter(in); got != want {
			t.Errorf("DefaultFilter(%q) = %q, want %q", in, got, want)
		}
	}
}
