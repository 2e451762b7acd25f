package session

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// DefaultKey is the storage key used when none is configured.
const DefaultKey = "sessionguard-auth-token"

// ErrEmptyKey is returned for a blank storage key.
var ErrEmptyKey = errors.New("session store key must not be empty")

// Store persists one session record per key.
//
// Load returns (nil, nil) when no record exists. Delete of a missing key is
// not an error.
type Store interface {
	Load(ctx context.Context, key string) (*Record, error)
	Save(ctx context.Context, key string, rec *Record) error
	Delete(ctx context.Context, key string) error
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return nil
}

// MemoryStore keeps encoded records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string][]byte
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, key string) (*Record, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	return Decode(data)
}

func (s *MemoryStore) Save(_ context.Context, key string, rec *Record) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := Encode(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.records[key] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}
