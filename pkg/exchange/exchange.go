// Package exchange settles pairs of orders atomically.
//
// A match runs, in order: timing and taker checks, maker authorization and
// match allowances, asset compatibility, fill computation against the
// ledger, native value accounting, the distribution plan, the ledger write,
// and finally the transfers. Everything up to the ledger write is pure; the
// ledger is written before the first external call, and a failure after that
// point reverts both the ledger and the executor.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/uhyunpark/hyperswap/pkg/asset"
	"github.com/uhyunpark/hyperswap/pkg/auth"
	"github.com/uhyunpark/hyperswap/pkg/distribution"
	"github.com/uhyunpark/hyperswap/pkg/errs"
	"github.com/uhyunpark/hyperswap/pkg/fill"
	"github.com/uhyunpark/hyperswap/pkg/ledger"
	"github.com/uhyunpark/hyperswap/pkg/metrics"
	"github.com/uhyunpark/hyperswap/pkg/numeric"
	"github.com/uhyunpark/hyperswap/pkg/order"
	"github.com/uhyunpark/hyperswap/pkg/royalty"
	"github.com/uhyunpark/hyperswap/pkg/transfer"
	"github.com/uhyunpark/hyperswap/pkg/util"
)

// SignedOrder is one side of a match request
type SignedOrder struct {
	Order              *order.Order
	Signature          []byte
	AllowanceExpiry    uint64
	AllowanceSignature []byte
}

// MatchRequest asks to settle Left against Right on behalf of Caller.
// Value is the native currency attached to the call.
type MatchRequest struct {
	Caller common.Address
	Value  *uint256.Int
	Left   SignedOrder
	Right  SignedOrder
}

// MatchResult describes a settled match
type MatchResult struct {
	LeftHash     common.Hash
	RightHash    common.Hash
	LeftValue    *uint256.Int
	RightValue   *uint256.Int
	NewLeftFill  *uint256.Int
	NewRightFill *uint256.Int
	FeeSide      distribution.FeeSide
	Transfers    []transfer.Record
	Refund       *uint256.Int
}

// Exchange is the settlement engine. All state-changing calls are serialized
// on mu. cfgMu additionally guards settings and sinks so they can be read
// while a settlement is in flight.
type Exchange struct {
	mu       sync.Mutex
	cfgMu    sync.RWMutex
	address  common.Address
	settings Settings
	sinks    []EventSink

	hasher   *order.Hasher
	verifier *auth.Verifier
	ledger   *ledger.Ledger
	planner  *distribution.Planner
	executor transfer.Executor

	Clock   util.Clock
	Metrics *metrics.Collector
	Logger  *zap.SugaredLogger
}

// New creates an exchange. address is the exchange's own account: attached
// native value is held there between deposit and distribution.
func New(
	address common.Address,
	settings Settings,
	hasher *order.Hasher,
	resolver auth.Resolver,
	fills *ledger.Ledger,
	royalties royalty.Registry,
	executor transfer.Executor,
) (*Exchange, error) {
	if err := settings.validate(); err != nil {
		return nil, err
	}
	return &Exchange{
		address:  address,
		settings: settings,
		hasher:   hasher,
		verifier: auth.NewVerifier(hasher, resolver),
		ledger:   fills,
		planner:  distribution.NewPlanner(royalties),
		executor: executor,
		Clock:    util.RealClock{},
		Logger:   zap.NewNop().Sugar(),
	}, nil
}

// Address is the exchange's own account
func (e *Exchange) Address() common.Address { return e.address }

// Hasher exposes the domain the exchange hashes orders under
func (e *Exchange) Hasher() *order.Hasher { return e.hasher }

type inCallKey struct{}

// enter marks ctx as inside an exchange call, rejecting ctx that already is
func enter(ctx context.Context) (context.Context, error) {
	if ctx.Value(inCallKey{}) != nil {
		return nil, errs.ErrReentrant
	}
	return context.WithValue(ctx, inCallKey{}, true), nil
}

// Match settles req atomically: on error nothing has changed. Sinks see the
// match after the exchange lock is released.
func (e *Exchange) Match(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	ctx, err := enter(ctx)
	if err != nil {
		return nil, err
	}

	res, err := e.matchLocked(ctx, req)
	if err != nil {
		return nil, err
	}

	ev := MatchEvent{
		LeftHash:     res.LeftHash,
		RightHash:    res.RightHash,
		LeftMaker:    req.Left.Order.Maker,
		RightMaker:   req.Right.Order.Maker,
		NewLeftFill:  res.NewLeftFill,
		NewRightFill: res.NewRightFill,
	}
	for _, s := range e.eventSinks() {
		s.OnMatch(ev, res.Transfers)
	}
	return res, nil
}

func (e *Exchange) matchLocked(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	res, err := e.match(ctx, req)
	e.recordMatch(start, err)
	if err != nil {
		e.Logger.Infow("match_rejected", "caller", req.Caller.Hex(), "category", errs.CategoryOf(err).String(), "err", err)
		return nil, err
	}

	e.Logger.Infow("match_settled",
		"left", res.LeftHash.Hex(),
		"right", res.RightHash.Hex(),
		"left_value", res.LeftValue.String(),
		"right_value", res.RightValue.String(),
		"fee_side", res.FeeSide.String(),
		"transfers", len(res.Transfers),
		"refund", res.Refund.String())
	return res, nil
}

func (e *Exchange) recordMatch(start time.Time, err error) {
	if e.Metrics == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = errs.CategoryOf(err).String()
	}
	e.Metrics.RecordMatch(result, time.Since(start))
}

func (e *Exchange) match(ctx context.Context, req MatchRequest) (*MatchResult, error) {
	left, right := req.Left.Order, req.Right.Order
	if left == nil || right == nil {
		return nil, fmt.Errorf("missing order: %w", errs.ErrMalformedData)
	}
	attached := req.Value
	if attached == nil {
		attached = new(uint256.Int)
	}
	now := util.Unix(e.Clock)
	s := e.settings

	// (a) timing, taker and salt
	if err := left.Validate(now, right.Maker); err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	if err := right.Validate(now, left.Maker); err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}
	if err := left.ValidateSalt(req.Caller); err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	if err := right.ValidateSalt(req.Caller); err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}

	leftHash, rightHash := e.hasher.Hash(left), e.hasher.Hash(right)

	// (b) authorization, except for the caller's own order
	if err := e.authorize(ctx, req.Caller, req.Left, leftHash, now); err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	if err := e.authorize(ctx, req.Caller, req.Right, rightHash, now); err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}

	leftData, err := left.ParseData()
	if err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	rightData, err := right.ParseData()
	if err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}

	// (d) asset compatibility
	if err := checkAssets(left, right, req.Caller, s.WrappedNative); err != nil {
		return nil, err
	}

	// (c) fill computation
	leftFill, err := e.currentFill(left, leftHash)
	if err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	rightFill, err := e.currentFill(right, rightHash)
	if err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}
	res, err := fill.Compute(left, right, leftFill, rightFill)
	if err != nil {
		return nil, err
	}
	newLeftFill, newRightFill, err := fill.NewFills(leftFill, rightFill, res)
	if err != nil {
		return nil, err
	}

	// (e) native value: the caller's native leg is paid from the attached value
	leftSide := distribution.Side{Order: left, Data: leftData, Value: res.LeftValue, Payer: left.Maker}
	rightSide := distribution.Side{Order: right, Data: rightData, Value: res.RightValue, Payer: right.Maker}
	required := new(uint256.Int)
	for _, side := range []*distribution.Side{&leftSide, &rightSide} {
		if side.Order.MakeAsset.Type.Class != asset.ETH {
			continue
		}
		if required, err = numeric.Add(required, side.Value); err != nil {
			return nil, err
		}
		side.Payer = e.address
	}
	if attached.Lt(required) {
		return nil, fmt.Errorf("attached %s, need %s: %w", attached, required, errs.ErrInsufficientValue)
	}
	refund := new(uint256.Int).Sub(attached, required)

	// (f) distribution plan
	plan, err := e.planner.Plan(ctx, leftSide, rightSide, distribution.Fees{
		ProtocolFeeBps: s.ProtocolFeeBps,
		Receiver:       s.FeeReceiver,
	})
	if err != nil {
		return nil, err
	}

	// (g) ledger before any transfer
	var updates []ledger.Entry
	if !left.SelfSubmitted() {
		updates = append(updates, ledger.FillUpdate(leftHash, newLeftFill))
	}
	if !right.SelfSubmitted() {
		updates = append(updates, ledger.FillUpdate(rightHash, newRightFill))
	}
	undo, err := e.ledger.Apply(updates)
	if err != nil {
		return nil, err
	}

	// (h) transfers
	snapshot := e.executor.Snapshot()
	if err := e.settle(ctx, req.Caller, attached, refund, plan.Transfers); err != nil {
		e.executor.RevertToSnapshot(snapshot)
		if uerr := undo(); uerr != nil {
			e.Logger.Errorw("ledger_rollback_failed", "left", leftHash.Hex(), "right", rightHash.Hex(), "err", uerr)
			err = errors.Join(err, uerr)
		}
		if e.Metrics != nil {
			e.Metrics.RecordRollback()
		}
		return nil, err
	}
	if e.Metrics != nil {
		for _, t := range plan.Transfers {
			e.Metrics.RecordTransfer(t.Kind.String(), t.AssetType.Class.String())
		}
	}

	return &MatchResult{
		LeftHash:     leftHash,
		RightHash:    rightHash,
		LeftValue:    res.LeftValue,
		RightValue:   res.RightValue,
		NewLeftFill:  newLeftFill,
		NewRightFill: newRightFill,
		FeeSide:      plan.FeeSide,
		Transfers:    plan.Transfers,
		Refund:       refund,
	}, nil
}

// settle moves the attached value in, executes the plan and refunds the excess
func (e *Exchange) settle(ctx context.Context, caller common.Address, attached, refund *uint256.Int, records []transfer.Record) error {
	native := asset.Native()
	if !attached.IsZero() {
		if err := e.executor.Transfer(ctx, native, caller, e.address, attached); err != nil {
			return fmt.Errorf("deposit attached value: %w", err)
		}
	}
	if err := transfer.Execute(ctx, e.executor, records, e.settings.WrappedNative); err != nil {
		return err
	}
	if !refund.IsZero() {
		if err := e.executor.Transfer(ctx, native, e.address, caller, refund); err != nil {
			return fmt.Errorf("refund: %w", err)
		}
	}
	return nil
}

// authorize checks the maker signature and match allowance of an order the
// caller did not make
func (e *Exchange) authorize(ctx context.Context, caller common.Address, so SignedOrder, hash common.Hash, now uint64) error {
	o := so.Order
	if o.Maker == caller {
		return nil
	}
	if err := e.verifier.VerifyOrder(ctx, o, hash, so.Signature); err != nil {
		return err
	}
	if caller == e.settings.AllowanceAuthority {
		return nil
	}
	return e.verifier.VerifyAllowance(hash, so.AllowanceExpiry, so.AllowanceSignature, e.settings.AllowanceAuthority, now)
}

// currentFill reads the order's fill; zero-salt orders have no record
func (e *Exchange) currentFill(o *order.Order, hash common.Hash) (*uint256.Int, error) {
	if o.SelfSubmitted() {
		return new(uint256.Int), nil
	}
	status, filled, err := e.ledger.State(hash, o.TakeAsset.Value)
	if err != nil {
		return nil, err
	}
	if status == ledger.Cancelled {
		return nil, fmt.Errorf("%s: %w", hash.Hex(), errs.ErrOrderCancelled)
	}
	return filled, nil
}

// checkAssets enforces that the two orders trade the same pair of supported
// assets and that at most one non-fungible unit moves
func checkAssets(left, right *order.Order, caller, wrapped common.Address) error {
	if !left.TakeAsset.Type.Equal(right.MakeAsset.Type) {
		return fmt.Errorf("left takes %s, right makes %s: %w", left.TakeAsset.Type, right.MakeAsset.Type, errs.ErrAssetMismatch)
	}
	if !right.TakeAsset.Type.Equal(left.MakeAsset.Type) {
		return fmt.Errorf("right takes %s, left makes %s: %w", right.TakeAsset.Type, left.MakeAsset.Type, errs.ErrAssetMismatch)
	}

	for _, a := range []asset.Asset{left.MakeAsset, left.TakeAsset, right.MakeAsset, right.TakeAsset} {
		if err := checkAsset(a, wrapped); err != nil {
			return err
		}
	}

	if left.MakeAsset.Type.Class.NonFungible() && right.MakeAsset.Type.Class.NonFungible() {
		return errs.ErrMultipleNonFungible
	}

	for _, o := range []*order.Order{left, right} {
		if o.MakeAsset.Type.Class == asset.ETH && o.Maker != caller {
			return fmt.Errorf("maker %s: %w", o.Maker.Hex(), errs.ErrNativeNotCaller)
		}
	}
	return nil
}

func checkAsset(a asset.Asset, wrapped common.Address) error {
	t := a.Type
	if a.Value == nil {
		return fmt.Errorf("%s without value: %w", t, errs.ErrMalformedData)
	}
	switch t.Class {
	case asset.ETH:
		if len(t.Data) != 0 {
			return fmt.Errorf("ETH with data: %w", errs.ErrDisallowedAsset)
		}
	case asset.WETH:
		contract, err := t.Contract()
		if err != nil {
			return err
		}
		if contract != wrapped {
			return fmt.Errorf("wrapped native %s, configured %s: %w", contract.Hex(), wrapped.Hex(), errs.ErrDisallowedAsset)
		}
	case asset.ERC20:
		if _, err := t.Contract(); err != nil {
			return err
		}
	case asset.ERC721:
		if _, _, err := t.Token(); err != nil {
			return err
		}
		if !a.Value.Eq(uint256.NewInt(1)) {
			return fmt.Errorf("%s value %s: %w", t, a.Value, errs.ErrNonFungibleValue)
		}
	default:
		return fmt.Errorf("class %s: %w", t.Class, errs.ErrDisallowedAsset)
	}
	return nil
}

// GetFill returns the order's fill; cancelled orders read as max uint256
func (e *Exchange) GetFill(hash common.Hash) (*uint256.Int, error) {
	return e.ledger.Fill(hash)
}

func (e *Exchange) GetFills(hashes []common.Hash) ([]*uint256.Int, error) {
	return e.ledger.Fills(hashes)
}
