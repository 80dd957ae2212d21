// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads and validates the declarative parts of an index's
// configuration — field names and boosts, the named tokenizer/filter
// presets, and BM25 tuning constants — from YAML. Field accessors are Go
// closures and cannot be expressed in the document; ToIndexOptions binds a
// loaded config to a caller-supplied accessor map to produce a full
// index.Options.
package config

import (
	"fmt"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/rivertext/fts/bm25"
	"github.com/rivertext/fts/index"
	"github.com/rivertext/fts/textproc"
)

// Preset names recognized by ToIndexOptions.
const (
	TokenizerWhitespace = "whitespace"
	FilterLowerTrim     = "lower_trim"
)

// FieldSpec declares one searchable field's name and BM25 boost.
type FieldSpec struct {
	Name  string  `yaml:"name"`
	Boost float64 `yaml:"boost"`
}

// Options is the declarative configuration for an Index.
type Options struct {
	Fields    []FieldSpec `yaml:"fields"`
	Tokenizer string      `yaml:"tokenizer"`
	Filter    string      `yaml:"filter"`
	K1        float64     `yaml:"k1"`
	B         float64     `yaml:"b"`
}

// Load parses data as YAML into an Options, fills in defaults for any
// zero-valued tuning fields, and validates the result.
func Load(data []byte) (*Options, error) {
	opts := &Options{}
	if err := yaml.Unmarshal(data, opts); err != nil {
		return nil, fmt.Errorf("config: parsing options: %w", err)
	}

	applyDefaults(opts)

	if err := validate(opts); err != nil {
		return nil, err
	}

	slog.Info("config: loaded index options",
		"fields", len(opts.Fields),
		"tokenizer", opts.Tokenizer,
		"filter", opts.Filter,
		"k1", opts.K1,
		"b", opts.B,
	)
	return opts, nil
}

func applyDefaults(opts *Options) {
	if opts.Tokenizer == "" {
		opts.Tokenizer = TokenizerWhitespace
	}
	if opts.Filter == "" {
		opts.Filter = FilterLowerTrim
	}
	if opts.K1 == 0 {
		opts.K1 = bm25.DefaultK1
	}
	if opts.B == 0 {
		opts.B = bm25.DefaultB
	}
	for i, f := range opts.Fields {
		if f.Boost == 0 {
			opts.Fields[i].Boost = 1.0
		}
	}
}

func validate(opts *Options) error {
	if len(opts.Fields) == 0 {
		return fmt.Errorf("config: at least one field is required")
	}
	seen := make(map[string]bool, len(opts.Fields))
	for _, f := range opts.Fields {
		if f.Name == "" {
			return fmt.Errorf("config: field name must not be empty")
		}
		if seen[f.Name] {
			return fmt.Errorf("config: duplicate field name %q", f.Name)
		}
		seen[f.Name] = true
		if f.Boost < 0 {
			return fmt.Errorf("config: field %q has negative boost %v", f.Name, f.Boost)
		}
	}
	if opts.K1 < 0 {
		return fmt.Errorf("config: k1 must be non-negative, got %v", opts.K1)
	}
	if opts.B < 0 || opts.B > 1 {
		return fmt.Errorf("config: b must be in [0, 1], got %v", opts.B)
	}
	if _, ok := tokenizers[opts.Tokenizer]; !ok {
		return fmt.Errorf("config: unknown tokenizer preset %q", opts.Tokenizer)
	}
	if _, ok := filters[opts.Filter]; !ok {
		return fmt.Errorf("config: unknown filter preset %q", opts.Filter)
	}
	return nil
}

var tokenizers = map[string]textproc.Tokenizer{
	TokenizerWhitespace: textproc.DefaultTokenizer,
}

var filters = map[string]textproc.Filter{
	FilterLowerTrim: textproc.DefaultFilter,
}

// ToIndexOptions binds opts to accessors — a map from field name to the Go
// closure that extracts that field's text from a document — producing a
// ready-to-use index.Options. It returns an error if any declared field
// lacks a corresponding accessor.
func ToIndexOptions(opts *Options, accessors map[string]index.Accessor) (index.Options, error) {
	fields := make([]index.Field, len(opts.Fields))
	for i, f := range opts.Fields {
		acc, ok := accessors[f.Name]
		if !ok {
			return index.Options{}, fmt.Errorf("config: no accessor supplied for field %q", f.Name)
		}
		fields[i] = index.Field{Name: f.Name, Boost: f.Boost, Accessor: acc}
	}
	return index.Options{
		Fields:    fields,
		Tokenizer: tokenizers[opts.Tokenizer],
		Filter:    filters[opts.Filter],
		BM25:      bm25.NewScorer(opts.K1, opts.B),
	}, nil
}
