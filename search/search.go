// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package search wraps index.Index with the ambient concerns a production
// deployment needs but the core index stays silent about: OpenTelemetry
// tracing, Prometheus metrics, and structured logging around every public
// operation.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/rivertext/fts/index"
	"github.com/rivertext/fts/query"
)

const tracerName = "github.com/rivertext/fts/search"

var (
	opTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fts_index_operations_total",
		Help: "Total index operations, partitioned by operation and outcome.",
	}, []string{"operation", "outcome"})

	opDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fts_index_operation_duration_seconds",
		Help:    "Index operation latency in seconds, partitioned by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// Index wraps a *index.Index, adding tracing, metrics, and logging around
// Insert, Remove, Vacuum, Query, and Expand. It is not safe for concurrent
// use, same as the index.Index it wraps.
type Index struct {
	core   *index.Index
	tracer trace.Tracer
	logger *slog.Logger
}

// Option configures an Index constructed by New.
type Option func(*Index)

// WithLogger overrides the default slog.Default() logger.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Index) { ix.logger = logger }
}

// WithTracerProvider overrides the default global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(ix *Index) { ix.tracer = tp.Tracer(tracerName) }
}

// New wraps core with ambient observability.
func New(core *index.Index, opts ...Option) *Index {
	ix := &Index{
		core:   core,
		tracer: otel.Tracer(tracerName),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Core returns the wrapped, unobserved index.Index.
func (ix *Index) Core() *index.Index { return ix.core }

// Insert indexes doc under key, tracing and recording metrics for the call.
func (ix *Index) Insert(ctx context.Context, key any, doc any) error {
	ctx, span := ix.tracer.Start(ctx, "index.insert", trace.WithAttributes(
		attribute.String("fts.key", fmt.Sprint(key)),
	))
	defer span.End()

	start := time.Now()
	err := ix.core.Insert(key, doc)
	ix.finish(ctx, span, "insert", start, err)
	return err
}

// Remove logically removes the live document under key.
func (ix *Index) Remove(ctx context.Context, key any) bool {
	ctx, span := ix.tracer.Start(ctx, "index.remove", trace.WithAttributes(
		attribute.String("fts.key", fmt.Sprint(key)),
	))
	defer span.End()

	start := time.Now()
	removed := ix.core.Remove(key)
	span.SetAttributes(attribute.Bool("fts.removed", removed))
	ix.finish(ctx, span, "remove", start, nil)
	return removed
}

// Vacuum evicts removed postings and prunes empty subtrees.
func (ix *Index) Vacuum(ctx context.Context) {
	ctx, span := ix.tracer.Start(ctx, "index.vacuum")
	defer span.End()

	start := time.Now()
	ix.core.Vacuum()
	ix.finish(ctx, span, "vacuum", start, nil)
}

// Query evaluates text and returns ranked results.
func (ix *Index) Query(ctx context.Context, text string) []query.Result {
	ctx, span := ix.tracer.Start(ctx, "index.query", trace.WithAttributes(
		attribute.String("fts.query", text),
	))
	defer span.End()

	start := time.Now()
	results := ix.core.Query(text)
	span.SetAttributes(attribute.Int("fts.result_count", len(results)))
	ix.finish(ctx, span, "query", start, nil)
	return results
}

// Expand returns every stored term with term as a prefix.
func (ix *Index) Expand(ctx context.Context, term string) []string {
	ctx, span := ix.tracer.Start(ctx, "index.expand", trace.WithAttributes(
		attribute.String("fts.term", term),
	))
	defer span.End()

	start := time.Now()
	expansions := ix.core.Expand(term)
	span.SetAttributes(attribute.Int("fts.expansion_count", len(expansions)))
	ix.finish(ctx, span, "expand", start, nil)
	return expansions
}

func (ix *Index) finish(ctx context.Context, span trace.Span, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		ix.logger.ErrorContext(ctx, "fts: operation failed", "operation", op, "error", err)
	}
	opTotal.WithLabelValues(op, outcome).Inc()
	opDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
