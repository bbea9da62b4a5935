// Package memory is the in-memory document store used by tests.
// Semantics mirror the postgres implementation, including atomic
// batches: a failing staged write leaves the store untouched.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/costaverde/billing-backend/internal/store"
)

type DocStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

func NewDocStore() *DocStore {
	return &DocStore{docs: make(map[string][]byte)}
}

func (s *DocStore) GetDoc(_ context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.docs[path]
	if !ok {
		return nil, store.ErrDocNotFound
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (s *DocStore) SetDoc(_ context.Context, path string, data any) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[path] = body
	return nil
}

func (s *DocStore) UpdateDoc(_ context.Context, path string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mergeLocked(path, fields)
}

func (s *DocStore) mergeLocked(path string, fields map[string]any) error {
	existing, ok := s.docs[path]
	if !ok {
		return fmt.Errorf("%s: %w", path, store.ErrDocNotFound)
	}
	var doc map[string]any
	if err := json.Unmarshal(existing, &doc); err != nil {
		return err
	}
	for k, v := range fields {
		doc[k] = v
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	s.docs[path] = body
	return nil
}

func (s *DocStore) DeleteDoc(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, path)
	return nil
}

func (s *DocStore) ListDocs(_ context.Context, collectionPath string) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	prefix := collectionPath + "/"
	var docs []store.Document
	for path, data := range s.docs {
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if strings.Contains(path[len(prefix):], "/") {
			continue // nested sub-collection, not a direct child
		}
		out := make([]byte, len(data))
		copy(out, data)
		docs = append(docs, store.Document{Path: path, Data: out})
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

func (s *DocStore) Batch() store.Batch {
	return &batch{store: s}
}

type batchOp struct {
	kind   string
	path   string
	data   any
	fields map[string]any
}

type batch struct {
	store *DocStore
	ops   []batchOp
}

func (b *batch) Set(path string, data any) {
	b.ops = append(b.ops, batchOp{kind: "set", path: path, data: data})
}

func (b *batch) Update(path string, fields map[string]any) {
	b.ops = append(b.ops, batchOp{kind: "update", path: path, fields: fields})
}

func (b *batch) Delete(path string) {
	b.ops = append(b.ops, batchOp{kind: "delete", path: path})
}

func (b *batch) Len() int { return len(b.ops) }

// Commit applies every staged write under one lock, against a copy, and
// swaps the copy in only when all writes succeed.
func (b *batch) Commit(_ context.Context) error {
	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	staged := make(map[string][]byte, len(b.store.docs))
	for k, v := range b.store.docs {
		staged[k] = v
	}
	shadow := &DocStore{docs: staged}

	for _, op := range b.ops {
		switch op.kind {
		case "set":
			body, err := json.Marshal(op.data)
			if err != nil {
				return err
			}
			shadow.docs[op.path] = body
		case "update":
			if err := shadow.mergeLocked(op.path, op.fields); err != nil {
				return err
			}
		case "delete":
			delete(shadow.docs, op.path)
		}
	}

	b.store.docs = shadow.docs
	return nil
}
