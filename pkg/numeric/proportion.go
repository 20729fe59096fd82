// Package numeric holds the scaled-integer math used by fill computation and
// fee distribution. All results are floored; callers that cannot accept a
// fractional result ask for exact division and get errs.ErrRounding instead.
package numeric

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperswap/pkg/errs"
)

// BpsBase is 100% in basis points
const BpsBase = 10000

var bpsBase = uint256.NewInt(BpsBase)

// ScaleByBps returns floor(value * bps / 10000).
func ScaleByBps(value *uint256.Int, bps uint64) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulDivOverflow(value, uint256.NewInt(bps), bpsBase)
	if overflow {
		return nil, fmt.Errorf("scale %s by %d bps: %w", value, bps, errs.ErrOverflow)
	}
	return out, nil
}

// Proportion returns floor(value * numerator / denominator). With exact set, a
// non-zero remainder is an error: a non-fungible unit count must never be
// derived from a price ratio by truncation.
func Proportion(numerator, denominator, value *uint256.Int, exact bool) (*uint256.Int, error) {
	if denominator.IsZero() {
		return nil, errs.ErrDivisionByZero
	}
	if exact {
		rem := new(uint256.Int).MulMod(value, numerator, denominator)
		if !rem.IsZero() {
			return nil, fmt.Errorf("%s * %s / %s: %w", value, numerator, denominator, errs.ErrRounding)
		}
	}
	out, overflow := new(uint256.Int).MulDivOverflow(value, numerator, denominator)
	if overflow {
		return nil, fmt.Errorf("%s * %s / %s: %w", value, numerator, denominator, errs.ErrOverflow)
	}
	return out, nil
}

// MulCmp compares a*b with c*d without truncating either product.
// Returns -1, 0 or +1 like big.Int.Cmp.
func MulCmp(a, b, c, d *uint256.Int) int {
	left := new(big.Int).Mul(a.ToBig(), b.ToBig())
	right := new(big.Int).Mul(c.ToBig(), d.ToBig())
	return left.Cmp(right)
}

// Sub returns a - b, failing instead of wrapping.
func Sub(a, b *uint256.Int) (*uint256.Int, error) {
	out, underflow := new(uint256.Int).SubOverflow(a, b)
	if underflow {
		return nil, fmt.Errorf("%s - %s: %w", a, b, errs.ErrOverflow)
	}
	return out, nil
}

// Add returns a + b, failing instead of wrapping.
func Add(a, b *uint256.Int) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).AddOverflow(a, b)
	if overflow {
		return nil, fmt.Errorf("%s + %s: %w", a, b, errs.ErrOverflow)
	}
	return out, nil
}

// Max is 2^256-1, the cancelled-order sentinel on the external query surface.
func Max() *uint256.Int {
	return new(uint256.Int).SetAllOne()
}
