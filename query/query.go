// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package query implements the search engine's query evaluation: tokenize
// and filter the query text into query terms, expand each term against the
// trie, score every matching posting with BM25, and combine per-document
// scores across terms.
package query

import (
	"sort"

	"github.com/rivertext/fts/bm25"
	"github.com/rivertext/fts/docreg"
	"github.com/rivertext/fts/textproc"
	"github.com/rivertext/fts/trie"
)

// Result is one ranked document from a query.
type Result struct {
	Key   any
	Score float64
}

// Source is everything the engine needs to evaluate a query. It holds no
// state of its own beyond configuration; all mutable state lives in the
// trie and registry it is pointed at.
type Source struct {
	Trie        *trie.Trie[*docreg.Details]
	Registry    *docreg.Registry
	Scorer      bm25.Scorer
	FieldBoosts []float64
	Tokenizer   textproc.Tokenizer
	Filter      textproc.Filter
}

// Query tokenizes and filters text into query terms, then scores and ranks
// every document reachable via prefix expansion of those terms. Results are
// sorted by descending score; ties are left in an unspecified relative
// order.
//
// Per query term, distinct expansions of that SAME term combine by taking
// the maximum score for any document matched by more than one expansion
// (the document does not get credit twice for "cat" and "cats" both
// matching a query term "cat"). Across DISTINCT query terms, contributions
// sum (a document matching both "red" and "car" scores higher than one
// matching only "red").
func (s *Source) Query(text string) []Result {
	terms := s.queryTerms(text)
	if len(terms) == 0 {
		return nil
	}

	scores := make(map[any]float64)
	for _, qterm := range terms {
		matchedThisTerm := make(map[any]bool)

		for _, expansion := range s.Trie.Expand(qterm) {
			node, ok := s.Trie.FindNode(expansion)
			if !ok {
				continue
			}
			live := node.CompactLive()
			df := len(live)
			if df == 0 {
				continue
			}

			idf := s.Scorer.IDF(s.Registry.LiveCount(), df)
			expansionBoost := bm25.ExpansionBoost(qterm, expansion)

			for _, p := range live {
				score := s.scorePosting(p, idf, expansionBoost)
				if score <= 0 {
					continue
				}
				key := p.Details.Key
				if matchedThisTerm[key] {
					if score > scores[key] {
						scores[key] = score
					}
					continue
				}
				matchedThisTerm[key] = true
				scores[key] += score
			}
		}
	}

	if len(scores) == 0 {
		return nil
	}
	results := make([]Result, 0, len(scores))
	for key, score := range scores {
		results = append(results, Result{Key: key, Score: score})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

func (s *Source) queryTerms(text string) []string {
	tokens := s.Tokenizer(text)
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		term := s.Filter(tok)
		if term == "" {
			continue
		}
		terms = append(terms, term)
	}
	return terms
}

func (s *Source) scorePosting(p *trie.Posting[*docreg.Details], idf, expansionBoost float64) float64 {
	var total float64
	for i, tfRaw := range p.TermFreq {
		if tfRaw <= 0 {
			continue
		}
		fieldBoost := 1.0
		if i < len(s.FieldBoosts) {
			fieldBoost = s.FieldBoosts[i]
		}
		avgLen := s.Registry.FieldStats(i).AvgLen
		fieldLen := 0
		if i < len(p.Details.FieldLengths) {
			fieldLen = p.Details.FieldLengths[i]
		}
		total += s.Scorer.FieldScore(tfRaw, fieldLen, avgLen, idf, fieldBoost, expansionBoost)
	}
	return total
}
