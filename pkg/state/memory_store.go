package state

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and single-process servers. It
// uses Ref.Identifier() as its key.
type MemoryStore struct {
	Now func() time.Time

	mu      sync.RWMutex
	records map[string]memoryRecord
}

type memoryRecord struct {
	blob string
	meta Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (string, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return "", Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return "", Meta{}, false, nil
	}
	return record.blob, cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, blob string, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}
	stamped, err := stamp(meta, blob, s.now())
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	if s.records == nil {
		s.records = map[string]memoryRecord{}
	}
	s.records[key] = memoryRecord{blob: blob, meta: stamped}
	s.mu.Unlock()
	return cloneMeta(stamped), nil
}

func (s *MemoryStore) Delete(_ context.Context, ref Ref) error {
	key, err := ref.Identifier()
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}
