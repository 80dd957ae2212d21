// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package textproc supplies the default tokenizer and term filter used when
// an index is not configured with custom ones, plus the function types both
// the indexer and query engine accept so neither package has to import the
// other just to share a type.
package textproc

import (
	"strings"
	"unicode"
)

// Tokenizer splits a field's raw text into candidate tokens.
type Tokenizer func(text string) []string

// Filter normalizes one token into a stored/query term, or returns "" to
// drop the token entirely.
type Filter func(token string) string

// DefaultTokenizer splits on runs of Unicode whitespace, discarding the
// whitespace itself. It is strings.Fields under another name, matching this
// engine's baseline tokenization rule exactly.
func DefaultTokenizer(text string) []string {
	return strings.Fields(text)
}

// DefaultFilter lowercases a token and trims any leading or trailing run of
// non-word runes (a word rune is a letter, digit, or underscore). A token
// made up entirely of non-word runes filters down to "".
func DefaultFilter(token string) string {
	runes := []rune(strings.ToLower(token))

	start := 0
	for start < len(runes) && !isWordRune(runes[start]) {
		start++
	}
	end := len(runes)
	for end > start && !isWordRune(runes[end-1]) {
		end--
	}
	return string(runes[start:end])
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
