package ledger

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// MemStore keeps entries in a map. Used by tests and ephemeral nodes.
type MemStore struct {
	mu      sync.RWMutex
	entries map[common.Hash]Entry
}

func NewMemStore() *MemStore {
	return &MemStore{entries: make(map[common.Hash]Entry)}
}

func (m *MemStore) Load(hash common.Hash) (Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[hash]
	return e, ok, nil
}

func (m *MemStore) Write(entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		m.entries[e.Hash] = e
	}
	return nil
}

// Len returns the number of stored entries
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
