// Package ledger tracks per-order fills.
//
// An entry records how much of an order's take asset has been received, or
// that the order was cancelled. Entries only move forward: fills grow,
// cancellation is final, nothing is deleted. Externally a cancelled order
// reads as the maximum uint256, indistinguishable from "fully filled".
package ledger

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperswap/pkg/errs"
	"github.com/uhyunpark/hyperswap/pkg/numeric"
)

// Status is the tagged state of an order's fill
type Status uint8

const (
	Unfilled Status = iota
	Partial
	Full
	Cancelled
)

func (s Status) String() string {
	switch s {
	case Unfilled:
		return "unfilled"
	case Partial:
		return "partial"
	case Full:
		return "full"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Entry is the stored record for one order hash
type Entry struct {
	Hash      common.Hash
	Filled    *uint256.Int
	Cancelled bool
}

// Store persists entries. Write must be all-or-nothing.
type Store interface {
	Load(hash common.Hash) (Entry, bool, error)
	Write(entries []Entry) error
}

// Ledger caches entries in memory on top of a Store
type Ledger struct {
	mu    sync.RWMutex
	store Store
	cache map[common.Hash]Entry
}

// New creates a ledger backed by store
func New(store Store) *Ledger {
	return &Ledger{
		store: store,
		cache: make(map[common.Hash]Entry),
	}
}

// Entry returns the record for hash; absent orders are unfilled
func (l *Ledger) Entry(hash common.Hash) (Entry, error) {
	l.mu.RLock()
	e, ok := l.cache[hash]
	l.mu.RUnlock()
	if ok {
		return e, nil
	}

	e, found, err := l.store.Load(hash)
	if err != nil {
		return Entry{}, fmt.Errorf("load fill %s: %w", hash.Hex(), err)
	}
	if !found {
		e = Entry{Hash: hash, Filled: new(uint256.Int)}
	}

	l.mu.Lock()
	if cached, ok := l.cache[hash]; ok {
		e = cached
	} else {
		l.cache[hash] = e
	}
	l.mu.Unlock()
	return e, nil
}

// State classifies hash against the order's take value
func (l *Ledger) State(hash common.Hash, take *uint256.Int) (Status, *uint256.Int, error) {
	e, err := l.Entry(hash)
	if err != nil {
		return Unfilled, nil, err
	}
	switch {
	case e.Cancelled:
		return Cancelled, numeric.Max(), nil
	case e.Filled.IsZero():
		return Unfilled, e.Filled, nil
	case !e.Filled.Lt(take):
		return Full, e.Filled, nil
	default:
		return Partial, e.Filled, nil
	}
}

// Fill returns the externally visible fill: cancelled orders read as max uint256
func (l *Ledger) Fill(hash common.Hash) (*uint256.Int, error) {
	e, err := l.Entry(hash)
	if err != nil {
		return nil, err
	}
	if e.Cancelled {
		return numeric.Max(), nil
	}
	return e.Filled.Clone(), nil
}

// Fills is Fill for many hashes
func (l *Ledger) Fills(hashes []common.Hash) ([]*uint256.Int, error) {
	out := make([]*uint256.Int, len(hashes))
	for i, h := range hashes {
		f, err := l.Fill(h)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// FillUpdate moves an order's fill to a new total
func FillUpdate(hash common.Hash, filled *uint256.Int) Entry {
	return Entry{Hash: hash, Filled: filled}
}

// CancelUpdate marks an order cancelled
func CancelUpdate(hash common.Hash) Entry {
	return Entry{Hash: hash, Filled: new(uint256.Int), Cancelled: true}
}

// Apply writes updates atomically after checking they only move forward.
// The returned undo restores the previous entries; it exists so a failed
// settlement can roll back fills it already recorded.
func (l *Ledger) Apply(updates []Entry) (undo func() error, err error) {
	prior := make([]Entry, 0, len(updates))
	next := make([]Entry, 0, len(updates))
	staged := make(map[common.Hash]Entry, len(updates))

	for _, u := range updates {
		cur, ok := staged[u.Hash]
		if !ok {
			cur, err = l.Entry(u.Hash)
			if err != nil {
				return nil, err
			}
			prior = append(prior, cur)
		}
		if cur.Cancelled {
			return nil, fmt.Errorf("%s: %w", u.Hash.Hex(), errs.ErrOrderCancelled)
		}
		if !u.Cancelled && u.Filled.Lt(cur.Filled) {
			return nil, fmt.Errorf("fill of %s would decrease from %s to %s", u.Hash.Hex(), cur.Filled, u.Filled)
		}
		staged[u.Hash] = u
		next = append(next, u)
	}

	if err := l.write(next); err != nil {
		return nil, err
	}
	return func() error { return l.write(prior) }, nil
}

func (l *Ledger) write(entries []Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.store.Write(entries); err != nil {
		return fmt.Errorf("write fills: %w", err)
	}
	for _, e := range entries {
		l.cache[e.Hash] = e
	}
	return nil
}
