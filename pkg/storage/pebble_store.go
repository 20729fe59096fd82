package storage

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperswap/pkg/ledger"
)

const schemaVersion byte = 1

// FillStore persists the fill ledger in Pebble
type FillStore struct {
	db *pebble.DB
}

// NewFillStore opens (or creates) a Pebble database at path
func NewFillStore(path string) (*FillStore, error) {
	opts := &pebble.Options{
		Cache:        pebble.NewCache(64 << 20), // 64MB cache
		MemTableSize: 32 << 20,                  // 32MB memtable
		MaxOpenFiles: 1000,
		BytesPerSync: 512 << 10, // 512KB
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", path, err)
	}

	s := &FillStore{db: db}
	if err := s.checkSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *FillStore) Close() error { return s.db.Close() }

func (s *FillStore) checkSchema() error {
	val, closer, err := s.db.Get([]byte(keySchema))
	if errors.Is(err, pebble.ErrNotFound) {
		return s.db.Set([]byte(keySchema), []byte{schemaVersion}, pebble.Sync)
	}
	if err != nil {
		return fmt.Errorf("failed to read schema: %w", err)
	}
	defer closer.Close()
	if len(val) != 1 || val[0] != schemaVersion {
		return fmt.Errorf("unsupported schema version %x", val)
	}
	return nil
}

// Load reads one fill record
func (s *FillStore) Load(hash common.Hash) (ledger.Entry, bool, error) {
	val, closer, err := s.db.Get(fillKey(hash))
	if errors.Is(err, pebble.ErrNotFound) {
		return ledger.Entry{}, false, nil
	}
	if err != nil {
		return ledger.Entry{}, false, fmt.Errorf("failed to get fill: %w", err)
	}
	defer closer.Close()

	e := ledger.Entry{Hash: hash}
	if err := decodeFill(val, &e); err != nil {
		return ledger.Entry{}, false, fmt.Errorf("fill %s: %w", hash.Hex(), err)
	}
	return e, true, nil
}

// Write commits all entries in one synced batch
func (s *FillStore) Write(entries []ledger.Entry) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, e := range entries {
		if err := batch.Set(fillKey(e.Hash), encodeFill(e), nil); err != nil {
			return fmt.Errorf("failed to stage fill: %w", err)
		}
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit fills: %w", err)
	}
	return nil
}

// Count returns the number of stored fill records
func (s *FillStore) Count() (int, error) {
	prefix := fillPrefix()
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	n := 0
	for iter.First(); iter.Valid(); iter.Next() {
		n++
	}
	return n, nil
}

var _ ledger.Store = (*FillStore)(nil)
