// Package transfer describes value movements and the executor that performs them.
package transfer

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperswap/pkg/asset"
)

// Kind tags why a sub-transfer happened
type Kind uint8

const (
	Payout Kind = iota
	Protocol
	Royalty
	Origin
)

func (k Kind) String() string {
	switch k {
	case Payout:
		return "payout"
	case Protocol:
		return "protocol"
	case Royalty:
		return "royalty"
	case Origin:
		return "origin"
	default:
		return "unknown"
	}
}

// Direction tags which order's side a transfer lands on.
// ToMaker is the left order's side, ToTaker the right order's.
type Direction uint8

const (
	ToMaker Direction = iota
	ToTaker
)

func (d Direction) String() string {
	if d == ToMaker {
		return "to_maker"
	}
	return "to_taker"
}

// Record is one planned or executed sub-transfer
type Record struct {
	AssetType asset.Type
	Value     *uint256.Int
	From      common.Address
	To        common.Address
	Direction Direction
	Kind      Kind
	// Unwrapped means From pays in wrapped native and To receives native
	// (AssetType is then ETH).
	Unwrapped bool
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s %s %s->%s", r.Kind, r.Value, r.AssetType, r.From.Hex(), r.To.Hex())
}

// Executor moves value. Snapshot/RevertToSnapshot bracket a settlement so a
// failed transfer leaves no partial movement behind.
//
// An implementation that calls back into the exchange must pass on the ctx it
// received. The exchange detects re-entry through that ctx and rejects it; a
// call made with a fresh context blocks on the exchange lock instead.
type Executor interface {
	Transfer(ctx context.Context, t asset.Type, from, to common.Address, value *uint256.Int) error
	// Unwrap burns value of the wrapped token held by from and credits to
	// with the same amount of native currency.
	Unwrap(ctx context.Context, wrapped common.Address, from, to common.Address, value *uint256.Int) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// Execute performs records in order, stopping at the first failure
func Execute(ctx context.Context, ex Executor, records []Record, wrapped common.Address) error {
	for i, r := range records {
		var err error
		if r.Unwrapped {
			err = ex.Unwrap(ctx, wrapped, r.From, r.To, r.Value)
		} else {
			err = ex.Transfer(ctx, r.AssetType, r.From, r.To, r.Value)
		}
		if err != nil {
			return fmt.Errorf("transfer %d (%s): %w", i, r, err)
		}
	}
	return nil
}
