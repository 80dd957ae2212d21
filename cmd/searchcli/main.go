// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command searchcli is a command-line client for the in-memory full-text
// search engine: bulk-load documents, run ad-hoc queries, vacuum a stale
// index, and inspect prefix expansions, persisting state to a snapshot file
// between invocations.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rivertext/fts/codec"
	"github.com/rivertext/fts/config"
	"github.com/rivertext/fts/index"
	"github.com/rivertext/fts/search"
)

var (
	configPath   string
	snapshotPath string
)

func main() {
	root := &cobra.Command{
		Use:   "searchcli",
		Short: "Client for the in-memory full-text search engine.",
	}
	root.PersistentFlags().StringVar(&configPath, "config", "fts.yaml", "path to the index field/BM25 configuration")
	root.PersistentFlags().StringVar(&snapshotPath, "snapshot", "fts.snapshot.yaml", "path to the index snapshot file")

	root.AddCommand(newInsertCmd(), newSearchCmd(), newVacuumCmd(), newExpandCmd())

	if err := root.Execute(); err != nil {
		slog.Error("searchcli: command failed", "error", err)
		os.Exit(1)
	}
}

// mapAccessor extracts field as a string from a document represented as
// map[string]any, the shape every JSON-lines document is decoded into.
func mapAccessor(field string) index.Accessor {
	return func(doc any) (string, bool) {
		m, ok := doc.(map[string]any)
		if !ok {
			return "", false
		}
		v, ok := m[field]
		if !ok {
			return "", false
		}
		s, ok := v.(string)
		return s, ok
	}
}

func loadOptions() (*config.Options, index.Options, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, index.Options{}, fmt.Errorf("searchcli: reading config %s: %w", configPath, err)
	}
	cfg, err := config.Load(data)
	if err != nil {
		return nil, index.Options{}, err
	}
	accessors := make(map[string]index.Accessor, len(cfg.Fields))
	for _, f := range cfg.Fields {
		accessors[f.Name] = mapAccessor(f.Name)
	}
	opts, err := config.ToIndexOptions(cfg, accessors)
	if err != nil {
		return nil, index.Options{}, err
	}
	return cfg, opts, nil
}

// openIndex loads the snapshot at snapshotPath if it exists, or builds a
// fresh empty index otherwise.
func openIndex() (*index.Index, index.Options, error) {
	_, opts, err := loadOptions()
	if err != nil {
		return nil, index.Options{}, err
	}

	f, err := os.Open(snapshotPath)
	if os.IsNotExist(err) {
		ix, err := index.New(opts)
		return ix, opts, err
	}
	if err != nil {
		return nil, index.Options{}, fmt.Errorf("searchcli: opening snapshot %s: %w", snapshotPath, err)
	}
	defer f.Close()

	ix, err := codec.Load(f, opts)
	return ix, opts, err
}

func saveIndex(ix *index.Index) error {
	f, err := os.Create(snapshotPath)
	if err != nil {
		return fmt.Errorf("searchcli: creating snapshot %s: %w", snapshotPath, err)
	}
	defer f.Close()
	return codec.Save(f, ix)
}

func newInsertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert [files...]",
		Short: "Bulk-load JSON-lines documents from one or more files.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, _, err := openIndex()
			if err != nil {
				return err
			}

			// Read and parse every file concurrently; applying to the
			// index itself stays single-threaded, per the engine's
			// cooperative concurrency model.
			g, _ := errgroup.WithContext(context.Background())
			perFile := make([][]parsedDoc, len(args))
			for i, path := range args {
				i, path := i, path
				g.Go(func() error {
					docs, err := parseJSONLines(path)
					if err != nil {
						return err
					}
					perFile[i] = docs
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			sidx := search.New(ix)
			ctx := context.Background()
			inserted := 0
			for _, docs := range perFile {
				for _, d := range docs {
					if err := sidx.Insert(ctx, d.key, d.fields); err != nil {
						slog.Warn("searchcli: skipping document", "key", d.key, "error", err)
						continue
					}
					inserted++
				}
			}

			slog.Info("searchcli: insert complete", "documents", inserted)
			return saveIndex(ix)
		},
	}
}

type parsedDoc struct {
	key    string
	fields map[string]any
}

func parseJSONLines(path string) ([]parsedDoc, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("searchcli: opening %s: %w", path, err)
	}
	defer f.Close()

	var docs []parsedDoc
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var fields map[string]any
		if err := json.Unmarshal(line, &fields); err != nil {
			return nil, fmt.Errorf("searchcli: parsing %s: %w", path, err)
		}
		key, _ := fields["id"].(string)
		if key == "" {
			key = uuid.New().String()
		}
		docs = append(docs, parsedDoc{key: key, fields: fields})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("searchcli: scanning %s: %w", path, err)
	}
	return docs, nil
}

func newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [query text]",
		Short: "Run a query against the index and print ranked results.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, _, err := openIndex()
			if err != nil {
				return err
			}
			sidx := search.New(ix)
			results := sidx.Query(context.Background(), joinArgs(args))
			for _, r := range results {
				fmt.Fprintf(cmd.OutOrStdout(), "%-8.4f  %v\n", r.Score, r.Key)
			}
			return nil
		},
	}
}

func newVacuumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Evict removed postings and prune empty trie subtrees.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, _, err := openIndex()
			if err != nil {
				return err
			}
			search.New(ix).Vacuum(context.Background())
			return saveIndex(ix)
		},
	}
}

func newExpandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "expand [term]",
		Short: "List every stored term with the given prefix.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ix, _, err := openIndex()
			if err != nil {
				return err
			}
			for _, term := range search.New(ix).Expand(context.Background(), args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), term)
			}
			return nil
		},
	}
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}
