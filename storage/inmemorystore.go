package storage

import (
	"fmt"
	"sync"
)

// InMemoryStore is a Store implementation powered by a map, to be used for
// testing.
type InMemoryStore struct {
	sync.Mutex
	m map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		m: make(map[string][]byte),
	}
}

func (s *InMemoryStore) Put(key string, value []byte) (err error) {
	s.Lock()
	s.m[key] = dup(value)
	s.Unlock()
	return nil
}

func (s *InMemoryStore) Get(key string) (value []byte, err error) {
	s.Lock()
	value, ok := s.m[key]
	s.Unlock()
	if !ok {
		return nil, fmt.Errorf("%.40q: %w", key, ErrNotFound)
	}
	if value == nil {
		return []byte{}, nil
	}
	return dup(value), nil
}

func (s *InMemoryStore) Move(from, to string) error {
	s.Lock()
	defer s.Unlock()
	value, ok := s.m[from]
	if !ok {
		return fmt.Errorf("%.40q: %w", from, ErrNotFound)
	}
	s.m[to] = value
	delete(s.m, from)
	return nil
}

// Keys returns the keys currently in the store, in no particular order.
func (s *InMemoryStore) Keys() []string {
	s.Lock()
	defer s.Unlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys
}
