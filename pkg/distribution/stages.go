// Package distribution turns a matched amount into the ordered list of
// sub-transfers that settle it.
//
// The fee-carrying leg runs a waterfall over a running remainder:
//
//	protocol fee -> royalties -> origin fees -> payouts
//
// Each stage sees the original amount and what is left, and returns its
// transfers plus the new remainder. The payout stage always drains the
// remainder, so a leg's transfers sum to exactly its value.
package distribution

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperswap/pkg/asset"
	"github.com/uhyunpark/hyperswap/pkg/errs"
	"github.com/uhyunpark/hyperswap/pkg/numeric"
	"github.com/uhyunpark/hyperswap/pkg/order"
	"github.com/uhyunpark/hyperswap/pkg/transfer"
)

// MaxRoyaltyBps caps the summed royalties of one token
const MaxRoyaltyBps = 5000

// Leg is one direction of value in a match
type Leg struct {
	Asset     asset.Type
	Value     *uint256.Int
	From      common.Address
	Direction transfer.Direction
}

func (l Leg) record(kind transfer.Kind, to common.Address, amount *uint256.Int) transfer.Record {
	return transfer.Record{
		AssetType: l.Asset,
		Value:     amount,
		From:      l.From,
		To:        to,
		Direction: l.Direction,
		Kind:      kind,
	}
}

// Stage deducts its share of a leg from the running remainder
type Stage func(original, remaining *uint256.Int) ([]transfer.Record, *uint256.Int, error)

// Run applies stages in order to original
func Run(original *uint256.Int, stages ...Stage) ([]transfer.Record, error) {
	var out []transfer.Record
	remaining := original.Clone()
	for _, stage := range stages {
		records, next, err := stage(original, remaining)
		if err != nil {
			return nil, err
		}
		out = append(out, records...)
		remaining = next
	}
	return out, nil
}

func deduct(remaining, amount *uint256.Int) (*uint256.Int, error) {
	next, underflow := new(uint256.Int).SubOverflow(remaining, amount)
	if underflow {
		return nil, fmt.Errorf("%s of %s left: %w", amount, remaining, errs.ErrFeesExceedAmount)
	}
	return next, nil
}

// ProtocolFee pays floor(original * bps / 10000) to receiver. A wrapped
// native fee arrives as native currency.
func ProtocolFee(leg Leg, bps uint64, receiver common.Address) Stage {
	return func(original, remaining *uint256.Int) ([]transfer.Record, *uint256.Int, error) {
		fee, err := numeric.ScaleByBps(original, bps)
		if err != nil {
			return nil, nil, err
		}
		if fee.IsZero() {
			return nil, remaining, nil
		}
		next, err := deduct(remaining, fee)
		if err != nil {
			return nil, nil, err
		}
		r := leg.record(transfer.Protocol, receiver, fee)
		if leg.Asset.Class == asset.WETH {
			r.AssetType = asset.Native()
			r.Unwrapped = true
		}
		return []transfer.Record{r}, next, nil
	}
}

// Royalties pays each registered recipient its share of the original amount
func Royalties(leg Leg, parts []order.Part) Stage {
	return func(original, remaining *uint256.Int) ([]transfer.Record, *uint256.Int, error) {
		if total := order.TotalBps(parts); total > MaxRoyaltyBps {
			return nil, nil, fmt.Errorf("%d bps: %w", total, errs.ErrRoyaltyTooHigh)
		}
		return splitOriginal(leg, transfer.Royalty, parts, original, remaining)
	}
}

// OriginFees pays each order-declared fee recipient its share of the original amount
func OriginFees(leg Leg, parts []order.Part) Stage {
	return func(original, remaining *uint256.Int) ([]transfer.Record, *uint256.Int, error) {
		return splitOriginal(leg, transfer.Origin, parts, original, remaining)
	}
}

func splitOriginal(leg Leg, kind transfer.Kind, parts []order.Part, original, remaining *uint256.Int) ([]transfer.Record, *uint256.Int, error) {
	var out []transfer.Record
	for _, p := range parts {
		amount, err := numeric.ScaleByBps(original, p.Bps)
		if err != nil {
			return nil, nil, err
		}
		if amount.IsZero() {
			continue
		}
		if remaining, err = deduct(remaining, amount); err != nil {
			return nil, nil, err
		}
		out = append(out, leg.record(kind, p.Account, amount))
	}
	return out, remaining, nil
}

func checkPayouts(parts []order.Part) error {
	if total := order.TotalBps(parts); total != numeric.BpsBase {
		return fmt.Errorf("%d bps: %w", total, errs.ErrPayoutMismatch)
	}
	return nil
}

// Payouts splits the remainder among parts, which must sum to 10000 bps.
// The last recipient takes whatever rounding left over.
func Payouts(leg Leg, parts []order.Part) Stage {
	return func(_, remaining *uint256.Int) ([]transfer.Record, *uint256.Int, error) {
		if err := checkPayouts(parts); err != nil {
			return nil, nil, err
		}
		var out []transfer.Record
		rest := remaining.Clone()
		for i, p := range parts {
			amount := rest
			if i < len(parts)-1 {
				var err error
				if amount, err = numeric.ScaleByBps(remaining, p.Bps); err != nil {
					return nil, nil, err
				}
				if rest, err = deduct(rest, amount); err != nil {
					return nil, nil, err
				}
			}
			if !amount.IsZero() {
				out = append(out, leg.record(transfer.Payout, p.Account, amount))
			}
		}
		return out, new(uint256.Int), nil
	}
}

// UnitPayout hands an indivisible unit to the last recipient with a
// non-zero share; the others get nothing.
func UnitPayout(leg Leg, parts []order.Part) Stage {
	return func(_, remaining *uint256.Int) ([]transfer.Record, *uint256.Int, error) {
		if err := checkPayouts(parts); err != nil {
			return nil, nil, err
		}
		var winner common.Address
		for _, p := range parts {
			if p.Bps > 0 {
				winner = p.Account
			}
		}
		if remaining.IsZero() {
			return nil, remaining, nil
		}
		return []transfer.Record{leg.record(transfer.Payout, winner, remaining.Clone())}, new(uint256.Int), nil
	}
}
