// Package fill computes how much of two crossing orders one match consumes.
//
// Fills are tracked in take-asset units: an order's fill is the amount of
// its take asset it has received so far. The side that is fully consumed by
// the match sets the price, so the partially filled side always gets at least
// the price it asked for.
package fill

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperswap/pkg/errs"
	"github.com/uhyunpark/hyperswap/pkg/numeric"
	"github.com/uhyunpark/hyperswap/pkg/order"
)

// Result is what each maker gives in this match.
// LeftValue is in the left order's make asset, RightValue in the right's.
type Result struct {
	LeftValue  *uint256.Int
	RightValue *uint256.Int
	RightBinds bool // the right order is fully consumed
	LeftBinds  bool // the left order is fully consumed
}

// Remaining returns the unfilled take amount and the make amount still on offer
func Remaining(o *order.Order, filled *uint256.Int) (take, offered *uint256.Int, err error) {
	take, err = numeric.Sub(o.TakeAsset.Value, filled)
	if err != nil {
		return nil, nil, fmt.Errorf("fill %s above take %s: %w", filled, o.TakeAsset.Value, errs.ErrUnfillable)
	}
	if take.IsZero() {
		return nil, nil, errs.ErrUnfillable
	}
	offered, err = numeric.Proportion(o.MakeAsset.Value, o.TakeAsset.Value, take, false)
	if err != nil {
		return nil, nil, err
	}
	return take, offered, nil
}

// Compute matches left against right given their existing fills
func Compute(left, right *order.Order, leftFill, rightFill *uint256.Int) (Result, error) {
	for _, o := range []*order.Order{left, right} {
		if o.MakeAsset.Value.IsZero() || o.TakeAsset.Value.IsZero() {
			return Result{}, fmt.Errorf("zero-valued order: %w", errs.ErrUnfillable)
		}
	}

	leftTake, leftMake, err := Remaining(left, leftFill)
	if err != nil {
		return Result{}, fmt.Errorf("left: %w", err)
	}
	rightTake, rightMake, err := Remaining(right, rightFill)
	if err != nil {
		return Result{}, fmt.Errorf("right: %w", err)
	}

	// left.make/left.take >= right.take/right.make
	if numeric.MulCmp(left.MakeAsset.Value, right.MakeAsset.Value, left.TakeAsset.Value, right.TakeAsset.Value) < 0 {
		return Result{}, errs.ErrPriceMismatch
	}

	// Does what right still wants fit in what left still offers?
	// rightTake <= leftTake * left.make / left.take, without dividing.
	var res Result
	if numeric.MulCmp(rightTake, left.TakeAsset.Value, leftTake, left.MakeAsset.Value) <= 0 {
		res, err = fillRight(right, rightTake)
	} else {
		res, err = fillLeft(left, leftTake)
	}
	if err != nil {
		return Result{}, err
	}

	if err := checkUnits(left, res.LeftValue, leftMake); err != nil {
		return Result{}, fmt.Errorf("left: %w", err)
	}
	if err := checkUnits(right, res.RightValue, rightMake); err != nil {
		return Result{}, fmt.Errorf("right: %w", err)
	}

	// Flooring must never push either side below its own price.
	if numeric.MulCmp(res.RightValue, left.MakeAsset.Value, res.LeftValue, left.TakeAsset.Value) < 0 {
		return Result{}, fmt.Errorf("left receives below its price: %w", errs.ErrRounding)
	}
	if numeric.MulCmp(res.LeftValue, right.MakeAsset.Value, res.RightValue, right.TakeAsset.Value) < 0 {
		return Result{}, fmt.Errorf("right receives below its price: %w", errs.ErrRounding)
	}

	newLeft, newRight, err := NewFills(leftFill, rightFill, res)
	if err != nil {
		return Result{}, err
	}
	res.LeftBinds = newLeft.Eq(left.TakeAsset.Value)
	res.RightBinds = newRight.Eq(right.TakeAsset.Value)
	return res, nil
}

// fillRight consumes the right order completely at the right order's price
func fillRight(right *order.Order, rightTake *uint256.Int) (Result, error) {
	give, err := numeric.Proportion(right.MakeAsset.Value, right.TakeAsset.Value, rightTake,
		right.MakeAsset.Type.Class.NonFungible())
	if err != nil {
		return Result{}, fmt.Errorf("right price: %w", err)
	}
	return Result{LeftValue: rightTake, RightValue: give}, nil
}

// fillLeft consumes the left order completely at the left order's price
func fillLeft(left *order.Order, leftTake *uint256.Int) (Result, error) {
	give, err := numeric.Proportion(left.MakeAsset.Value, left.TakeAsset.Value, leftTake,
		left.MakeAsset.Type.Class.NonFungible())
	if err != nil {
		return Result{}, fmt.Errorf("left price: %w", err)
	}
	return Result{LeftValue: give, RightValue: leftTake}, nil
}

// checkUnits rejects zero deltas, deltas above what the order still offers
// and more than one non-fungible unit
func checkUnits(o *order.Order, give, remaining *uint256.Int) error {
	if give.IsZero() {
		return errs.ErrInsufficientFill
	}
	if give.Gt(remaining) {
		return fmt.Errorf("gives %s of %s remaining: %w", give, remaining, errs.ErrRounding)
	}
	if o.MakeAsset.Type.Class.NonFungible() && !give.Eq(uint256.NewInt(1)) {
		return fmt.Errorf("%s non-fungible units: %w", give, errs.ErrRounding)
	}
	return nil
}

// NewFills returns the updated take-side fills after res
func NewFills(leftFill, rightFill *uint256.Int, res Result) (left, right *uint256.Int, err error) {
	left, err = numeric.Add(leftFill, res.RightValue)
	if err != nil {
		return nil, nil, err
	}
	right, err = numeric.Add(rightFill, res.LeftValue)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}
