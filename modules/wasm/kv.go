package wasm

import (
	"errors"
	"sync"
)

// DefaultKVMaxEntries bounds the shared store when wasm_kv_max_entries is
// not set.
const DefaultKVMaxEntries = 1024

var ErrKVFull = errors.New("key-value store is full")

// kvStore is shared by every guest instance of one configuration. It is the
// only state that outlives a request.
type kvStore struct {
	mu         sync.RWMutex
	data       map[string][]byte
	maxEntries int
}

func newKVStore(maxEntries int) *kvStore {
	return &kvStore{data: make(map[string][]byte), maxEntries: maxEntries}
}

func (s *kvStore) get(key string) ([]byte, bool) {
	s.mu.RLock()
	v, ok := s.data[key]
	s.mu.RUnlock()
	return v, ok
}

func (s *kvStore) set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; !exists && len(s.data) >= s.maxEntries {
		return ErrKVFull
	}
	s.data[key] = append([]byte(nil), value...)
	return nil
}

func (s *kvStore) delete(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
}

func (s *kvStore) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
