package distribution

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperswap/pkg/asset"
	"github.com/uhyunpark/hyperswap/pkg/order"
	"github.com/uhyunpark/hyperswap/pkg/royalty"
	"github.com/uhyunpark/hyperswap/pkg/transfer"
)

// FeeSide names the leg that carries protocol fee, royalties and origin
// fees: FeeLeft is the left order's make asset, FeeRight the right's.
type FeeSide uint8

const (
	FeeNone FeeSide = iota
	FeeLeft
	FeeRight
)

func (s FeeSide) String() string {
	switch s {
	case FeeLeft:
		return "left"
	case FeeRight:
		return "right"
	default:
		return "none"
	}
}

// ChooseFeeSide picks the leg whose class ranks highest. Ties go to the
// left; two non-fungible legs carry no fees.
func ChooseFeeSide(leftMake, rightMake asset.Class) FeeSide {
	l, r := leftMake.Rank(), rightMake.Rank()
	switch {
	case l == r && leftMake.NonFungible():
		return FeeNone
	case l >= r:
		return FeeLeft
	default:
		return FeeRight
	}
}

// Side is one order as seen by the planner
type Side struct {
	Order *order.Order
	Data  order.Data
	// Value is the amount of Order.MakeAsset this side gives in the match
	Value *uint256.Int
	// Payer funds the side's transfers: the maker, or the exchange when the
	// side pays with attached native currency
	Payer common.Address
}

// Fees are the administrator-set parameters of the protocol fee
type Fees struct {
	ProtocolFeeBps uint64
	Receiver       common.Address
}

// Plan is the complete, ordered settlement of a match
type Plan struct {
	FeeSide   FeeSide
	Transfers []transfer.Record
}

// Planner builds plans, consulting the royalty registry for the fee leg
type Planner struct {
	royalties royalty.Registry
}

func NewPlanner(royalties royalty.Registry) *Planner {
	return &Planner{royalties: royalties}
}

// Plan computes every sub-transfer of a match. Nothing is executed; any
// error here aborts the match before value moves.
func (p *Planner) Plan(ctx context.Context, left, right Side, fees Fees) (Plan, error) {
	// left's make asset lands on the right order's side and vice versa
	leftLeg := Leg{Asset: left.Order.MakeAsset.Type, Value: left.Value, From: left.Payer, Direction: transfer.ToTaker}
	rightLeg := Leg{Asset: right.Order.MakeAsset.Type, Value: right.Value, From: right.Payer, Direction: transfer.ToMaker}

	side := ChooseFeeSide(leftLeg.Asset.Class, rightLeg.Asset.Class)
	plan := Plan{FeeSide: side}

	var (
		feeLeg, otherLeg         Leg
		feePayouts, otherPayouts []order.Part
	)
	switch side {
	case FeeLeft:
		feeLeg, otherLeg = leftLeg, rightLeg
		feePayouts, otherPayouts = right.Data.Payouts, left.Data.Payouts
	case FeeRight:
		feeLeg, otherLeg = rightLeg, leftLeg
		feePayouts, otherPayouts = left.Data.Payouts, right.Data.Payouts
	default:
		a, err := Run(leftLeg.Value, payoutStage(leftLeg, right.Data.Payouts))
		if err != nil {
			return Plan{}, err
		}
		b, err := Run(rightLeg.Value, payoutStage(rightLeg, left.Data.Payouts))
		if err != nil {
			return Plan{}, err
		}
		plan.Transfers = append(a, b...)
		return plan, nil
	}

	royalties, err := p.lookupRoyalties(ctx, otherLeg.Asset)
	if err != nil {
		return Plan{}, err
	}

	feeTransfers, err := Run(feeLeg.Value,
		ProtocolFee(feeLeg, fees.ProtocolFeeBps, fees.Receiver),
		Royalties(feeLeg, royalties),
		OriginFees(feeLeg, left.Data.OriginFees),
		OriginFees(feeLeg, right.Data.OriginFees),
		Payouts(feeLeg, feePayouts),
	)
	if err != nil {
		return Plan{}, fmt.Errorf("%s leg: %w", side, err)
	}

	otherTransfers, err := Run(otherLeg.Value, payoutStage(otherLeg, otherPayouts))
	if err != nil {
		return Plan{}, err
	}

	plan.Transfers = append(otherTransfers, feeTransfers...)
	return plan, nil
}

func payoutStage(leg Leg, parts []order.Part) Stage {
	if leg.Asset.Class.NonFungible() {
		return UnitPayout(leg, parts)
	}
	return Payouts(leg, parts)
}

// lookupRoyalties returns the royalties owed on the traded token, if the
// counter asset is one
func (p *Planner) lookupRoyalties(ctx context.Context, counter asset.Type) ([]order.Part, error) {
	if !counter.Class.NonFungible() || p.royalties == nil {
		return nil, nil
	}
	contract, tokenID, err := counter.Token()
	if err != nil {
		return nil, err
	}
	parts, err := p.royalties.Royalties(ctx, contract, tokenID)
	if err != nil {
		return nil, fmt.Errorf("royalties for %s: %w", counter, err)
	}
	return parts, nil
}
