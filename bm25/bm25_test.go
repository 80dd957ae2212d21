// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package bm25

import (
	"math"
	"testing"
)

func TestDefault(t *testing.T) {
	s := Default()
	if s.K1 != DefaultK1 || s.B != DefaultB {
		t.Fatalf("Default() = %+v, want k1=%v b=%v", s, DefaultK1, DefaultB)
	}
}

func TestIDFDecreasesAsDocumentFrequencyGrows(t *testing.T) {
	s := Default()
	rare := s.IDF(1000, 1)
	common := s.IDF(1000, 500)
	if !(rare > common) {
		t.Fatalf("IDF(1000,1)=%v should exceed IDF(1000,500)=%v", rare, common)
	}
}

func TestIDFFormula(t *testing.T) {
	s := Default()
	got := s.IDF(10, 2)
	want := math.Log(1 + (float64(10-2)+0.5)/(2+0.5))
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("IDF(10,2) = %v, want %v", got, want)
	}
}

func TestExpansionBoostExactMatchIsOne(t *testing.T) {
	if got := ExpansionBoost("cat", "cat"); got != 1 {
		t.Fatalf("ExpansionBoost(cat,cat) = %v, want 1", got)
	}
}

func TestExpansionBoostDecaysWithLength(t *testing.T) {
	short := ExpansionBoost("cat", "cats")
	long := ExpansionBoost("cat", "catastrophe")
	if !(short > long) {
		t.Fatalf("expansion boost should decay with extra length: short=%v long=%v", short, long)
	}
	if short >= 1 {
		t.Fatalf("a non-exact expansion must score below the exact-match boost of 1, got %v", short)
	}
}

func TestFieldScoreZeroTermFrequencyYieldsZero(t *testing.T) {
	s := Default()
	if got := s.FieldScore(0, 10, 10, 2.0, 1.0, 1.0); got != 0 {
		t.Fatalf("FieldScore with tfRaw=0 = %v, want 0", got)
	}
}

func TestFieldScoreHigherBoostScalesLinearly(t *testing.T) {
	s := Default()
	base := s.FieldScore(3, 10, 10, 2.0, 1.0, 1.0)
	boosted := s.FieldScore(3, 10, 10, 2.0, 2.0, 1.0)
	if math.Abs(boosted-2*base) > 1e-9 {
		t.Fatalf("doubling fieldBoost should double the score: base=%v boosted=%v", base, boosted)
	}
}
