// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package bm25 implements the Okapi BM25 scoring rules used by the query
// engine: inverse document frequency, the per-field term-frequency
// saturation curve, and the prefix-expansion boost.
//
// The formula here is the classic Robertson/Sparck-Jones smoothing
// (log(1 + (N-df+0.5)/(df+0.5))), not the Lucene-style add-one smoothing.
package bm25

import "math"

// Default tuning constants, matching Robertson et al.'s recommended
// defaults.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// Scorer holds the two BM25 tuning constants.
//
//   - K1 controls term-frequency saturation; higher values saturate more
//     slowly. Typical range [1.2, 2.0].
//   - B controls document-length normalization; 0 disables it, 1 is full
//     normalization. 0.75 is the conventional default.
type Scorer struct {
	K1 float64
	B  float64
}

// NewScorer returns a Scorer configured with k1 and b.
func NewScorer(k1, b float64) Scorer {
	return Scorer{K1: k1, B: b}
}

// Default returns a Scorer using DefaultK1 and DefaultB.
func Default() Scorer {
	return Scorer{K1: DefaultK1, B: DefaultB}
}

// IDF computes the inverse document frequency for a term with document
// frequency df out of N live documents.
func (s Scorer) IDF(n, df int) float64 {
	return math.Log(1 + (float64(n-df)+0.5)/(float64(df)+0.5))
}

// ExpansionBoost returns the weight applied when expansion is a
// prefix-expansion of queryTerm. It is 1 when expansion equals queryTerm
// exactly, and decays as the expansion grows longer than the query term.
func ExpansionBoost(queryTerm, expansion string) float64 {
	if queryTerm == expansion {
		return 1
	}
	extra := len([]rune(expansion)) - len([]rune(queryTerm))
	return math.Log(1 + 1/(1+float64(extra)))
}

// FieldScore computes one posting's BM25 contribution from a single field:
// tfRaw is the raw term frequency in that field, fieldLen is the document's
// length in that field, avgFieldLen is the field's running average length
// across live documents, idf is the term's inverse document frequency,
// fieldBoost is the field's configured multiplicative weight, and
// expansionBoost is the weight from ExpansionBoost.
func (s Scorer) FieldScore(tfRaw int, fieldLen int, avgFieldLen, idf, fieldBoost, expansionBoost float64) float64 {
	tfRawF := float64(tfRaw)
	tf := (tfRawF * (s.K1 + 1)) / (s.K1*((1-s.B)+s.B*(float64(fieldLen)/avgFieldLen)) + tfRawF)
	return tf * idf * fieldBoost * expansionBoost
}
