// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package search

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/rivertext/fts/index"
)

func newTestIndex(t *testing.T) *index.Index {
	t.Helper()
	ix, err := index.New(index.Options{
		Fields: []index.Field{{
			Name: "body",
			Accessor: func(d any) (string, bool) {
				s, ok := d.(string)
				return s, ok
			},
		}},
	})
	if err != nil {
		t.Fatalf("index.New() error: %v", err)
	}
	return ix
}

func TestOperationsProduceSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ix := New(newTestIndex(t), WithTracerProvider(tp))
	ctx := context.Background()

	if err := ix.Insert(ctx, "a", "hello world"); err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	ix.Query(ctx, "hello")
	ix.Expand(ctx, "hel")
	ix.Remove(ctx, "a")
	ix.Vacuum(ctx)

	spans := recorder.Ended()
	if len(spans) != 5 {
		t.Fatalf("got %d ended spans, want 5 (insert, query, expand, remove, vacuum)", len(spans))
	}

	names := make(map[string]bool, len(spans))
	for _, s := range spans {
		names[s.Name()] = true
	}
	for _, want := range []string{"index.insert", "index.query", "index.expand", "index.remove", "index.vacuum"} {
		if !names[want] {
			t.Errorf("missing expected span %q among %v", want, names)
		}
	}
}

func TestDuplicateInsertRecordsErrorOnSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	ix := New(newTestIndex(t), WithTracerProvider(tp))
	ctx := context.Background()

	if err := ix.Insert(ctx, "a", "hello"); err != nil {
		t.Fatalf("first insert should succeed: %v", err)
	}
	if err := ix.Insert(ctx, "a", "hello again"); err == nil {
		t.Fatal("second insert under the same key should fail")
	}

	spans := recorder.Ended()
	var sawError bool
	for _, s := range spans {
		if s.Name() == "index.insert" && s.Status().Code.String() == "Error" {
			sawError = true
		}
	}
	if !sawError {
		t.Fatal("the failing insert's span should carry an error status")
	}
}
