package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Memory implements DocumentStore backed by process memory. Used by
// tests and for running the API without a database.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]json.RawMessage
}

func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]json.RawMessage)}
}

func (s *Memory) List(_ context.Context, collection string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := s.collections[collection]
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	items := make([]Document, 0, len(ids))
	for _, id := range ids {
		items = append(items, Document{ID: id, Data: cloneRaw(docs[id])})
	}
	return items, nil
}

func (s *Memory) Get(_ context.Context, collection, id string) (json.RawMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneRaw(data), nil
}

func (s *Memory) Set(_ context.Context, collection, id string, data json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[string]json.RawMessage)
		s.collections[collection] = docs
	}
	docs[id] = cloneRaw(data)
	return nil
}

func (s *Memory) UpdateField(_ context.Context, collection, id, field string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	data, ok := docs[id]
	if !ok {
		return ErrNotFound
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	doc[field] = cloneRaw(value)
	updated, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode %s/%s: %w", collection, id, err)
	}
	docs[id] = updated
	return nil
}

func (s *Memory) Delete(_ context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collections[collection]
	if _, ok := docs[id]; !ok {
		return ErrNotFound
	}
	delete(docs, id)
	return nil
}

func (s *Memory) SetOrderBatch(ctx context.Context, collection string, items []OrderUpdate) error {
	for _, item := range items {
		value, err := json.Marshal(item.SortOrder)
		if err != nil {
			return fmt.Errorf("encode sortOrder for %s/%s: %w", collection, item.ID, err)
		}
		if err := s.UpdateField(ctx, collection, item.ID, "sortOrder", value); err != nil {
			return err
		}
	}
	return nil
}

func (s *Memory) Ping(context.Context) error {
	return nil
}

func cloneRaw(data json.RawMessage) json.RawMessage {
	if data == nil {
		return nil
	}
	out := make(json.RawMessage, len(data))
	copy(out, data)
	return out
}
