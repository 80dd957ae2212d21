// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command searchd runs the full-text search engine as an HTTP service:
// insert, remove, query, expand, and vacuum endpoints backed by a single
// in-process index, with named snapshots persisted in an embedded Badger
// store.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rivertext/fts/codec"
	"github.com/rivertext/fts/config"
	"github.com/rivertext/fts/index"
	"github.com/rivertext/fts/search"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	configPath := flag.String("config", "fts.yaml", "path to the index field/BM25 configuration")
	badgerDir := flag.String("badger-dir", "fts-snapshots", "directory for the Badger snapshot store")
	flag.Parse()

	data, err := os.ReadFile(*configPath)
	if err != nil {
		slog.Error("searchd: reading config", "path", *configPath, "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load(data)
	if err != nil {
		slog.Error("searchd: loading config", "error", err)
		os.Exit(1)
	}

	accessors := make(map[string]index.Accessor, len(cfg.Fields))
	for _, f := range cfg.Fields {
		accessors[f.Name] = jsonFieldAccessor(f.Name)
	}
	ixOpts, err := config.ToIndexOptions(cfg, accessors)
	if err != nil {
		slog.Error("searchd: binding accessors", "error", err)
		os.Exit(1)
	}

	core, err := index.New(ixOpts)
	if err != nil {
		slog.Error("searchd: building index", "error", err)
		os.Exit(1)
	}

	db, err := badger.Open(badger.DefaultOptions(*badgerDir))
	if err != nil {
		slog.Error("searchd: opening badger store", "dir", *badgerDir, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv := &server{
		idx:   search.New(core),
		opts:  ixOpts,
		db:    db,
		mu:    sync.Mutex{},
		log:   slog.Default(),
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), otelgin.Middleware("searchd"))
	srv.registerRoutes(engine)

	httpSrv := &http.Server{Addr: *addr, Handler: engine}

	go func() {
		slog.Info("searchd: listening", "addr", *addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("searchd: serve error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)
}

// server owns the single in-process Index and the Badger store named
// snapshots persist to. Every request is serialized through mu, since the
// underlying index.Index is not safe for concurrent use.
type server struct {
	idx  *search.Index
	opts index.Options
	db   *badger.DB
	mu   sync.Mutex
	log  *slog.Logger
}

// jsonFieldAccessor extracts field from a document represented as the
// map[string]any produced by decoding a request body's JSON.
func jsonFieldAccessor(field string) index.Accessor {
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

func (s *server) registerRoutes(r *gin.Engine) {
	r.GET("/healthz", s.handleHealth)
	r.POST("/documents/:key", s.handleInsert)
	r.DELETE("/documents/:key", s.handleRemove)
	r.POST("/vacuum", s.handleVacuum)
	r.GET("/search", s.handleSearch)
	r.GET("/expand", s.handleExpand)
	r.POST("/snapshots/:name", s.handleSnapshotSave)
	r.POST("/snapshots/:name/load", s.handleSnapshotLoad)
}

func (s *server) handleHealth(c *gin.Context) {
	s.mu.Lock()
	live := s.idx.Core().LiveCount()
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "live_documents": live})
}

func (s *server) handleInsert(c *gin.Context) {
	var fields map[string]any
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	key := c.Param("key")

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.idx.Insert(c.Request.Context(), key, fields); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"key": key})
}

func (s *server) handleRemove(c *gin.Context) {
	key := c.Param("key")

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.idx.Remove(c.Request.Context(), key) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no live document for key"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) handleVacuum(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idx.Vacuum(c.Request.Context())
	c.Status(http.StatusNoContent)
}

func (s *server) handleSearch(c *gin.Context) {
	q := c.Query("q")

	s.mu.Lock()
	results := s.idx.Query(c.Request.Context(), q)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *server) handleExpand(c *gin.Context) {
	term := c.Query("term")

	s.mu.Lock()
	expansions := s.idx.Expand(c.Request.Context(), term)
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"expansions": expansions})
}

func (s *server) handleSnapshotSave(c *gin.Context) {
	name := c.Param("name")

	s.mu.Lock()
	snap := s.idx.Core().Snapshot()
	s.mu.Unlock()

	data, err := yamlMarshalSnapshot(snap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(name), data)
	}); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *server) handleSnapshotLoad(c *gin.Context) {
	name := c.Param("name")

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(name))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			data = append([]byte(nil), val...)
			return nil
		})
	})
	if err == badger.ErrKeyNotFound {
		c.JSON(http.StatusNotFound, gin.H{"error": "no snapshot with that name"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	snap, err := unmarshalSnapshot(data)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	restored, err := index.RestoreFromSnapshot(s.opts, snap)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.idx = search.New(restored)
	s.mu.Unlock()

	c.Status(http.StatusNoContent)
}

func yamlMarshalSnapshot(snap index.Snapshot) ([]byte, error) {
	var buf byteBuffer
	if err := codec.Encode(&buf, snap); err != nil {
		return nil, err
	}
	return buf.b, nil
}

func unmarshalSnapshot(data []byte) (index.Snapshot, error) {
	return codec.Decode(&byteBuffer{b: data})
}

// byteBuffer is a minimal io.Writer/io.Reader over an in-memory slice, used
// so the Badger-backed snapshot store can share codec.Encode/Decode with
// the file-backed path cmd/searchcli uses.
type byteBuffer struct {
	b   []byte
	pos int
}

func (b *byteBuffer) Write(p []byte) (int, error) {
	b.b = append(b.b, p...)
	return len(p), nil
}

func (b *byteBuffer) Read(p []byte) (int, error) {
	if b.pos >= len(b.b) {
		return 0, io.EOF
	}
	n := copy(p, b.b[b.pos:])
	b.pos += n
	return n, nil
}
