// Package tokenstore persists the bearer token between runs so a session
// survives a restart. Only the opaque token and the username are stored.
package tokenstore

import (
	"context"
	"sync"
)

// Record is what a Store keeps.
type Record struct {
	Token    string
	Username string
}

// Store is durable token storage. Load returns a zero Record and false
// when nothing is stored.
type Store interface {
	Load(ctx context.Context) (Record, bool, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the record in process memory. It is used when no
// database path is configured and in tests.
type MemoryStore struct {
	mu  sync.Mutex
	rec *Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(context.Context) (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return Record{}, false, nil
	}
	return *m.rec, true, nil
}

func (m *MemoryStore) Save(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = &rec
	return nil
}

func (m *MemoryStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}
