// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package codec serializes and deserializes an Index's persisted state
// (index.Snapshot) as YAML, the same format package config uses for its
// options documents.
package codec

import (
	"io"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rivertext/fts/index"
)

// Encode writes snap to w as YAML.
func Encode(w io.Writer, snap index.Snapshot) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	if err := enc.Encode(snap); err != nil {
		return errors.Wrap(err, "codec: encoding snapshot")
	}
	return nil
}

// Decode reads a YAML-encoded Snapshot from r.
func Decode(r io.Reader) (index.Snapshot, error) {
	var snap index.Snapshot
	if err := yaml.NewDecoder(r).Decode(&snap); err != nil {
		return index.Snapshot{}, errors.Wrap(err, "codec: decoding snapshot")
	}
	return snap, nil
}

// Save is a convenience wrapper that encodes ix's current Snapshot to w.
func Save(w io.Writer, ix *index.Index) error {
	return Encode(w, ix.Snapshot())
}

// Load reads a Snapshot from r and restores it into a new Index built with
// opts, which must supply the same tokenizer, filter, and field accessors
// the original index was configured with.
func Load(r io.Reader, opts index.Options) (*index.Index, error) {
	snap, err := Decode(r)
	if err != nil {
		return nil, err
	}
	return index.RestoreFromSnapshot(opts, snap)
}
