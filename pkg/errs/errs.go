// Package errs defines the settlement error taxonomy.
//
// Every violated constraint has its own sentinel so callers can tell a stale
// allowance (resubmit with a fresh one) from a bad signature (re-sign) or a
// cancelled order (abandon). Sentinels are wrapped with fmt.Errorf("...: %w")
// as they travel up, so use errors.Is for a specific failure and CategoryOf
// for the class.
package errs

import "errors"

// Category groups errors by what the caller can do about them
type Category uint8

const (
	CategoryUnknown Category = iota
	Validation
	Authorization
	Arithmetic
	Compatibility
	Economic
	Transfer
)

func (c Category) String() string {
	switch c {
	case Validation:
		return "validation"
	case Authorization:
		return "authorization"
	case Arithmetic:
		return "arithmetic"
	case Compatibility:
		return "compatibility"
	case Economic:
		return "economic"
	case Transfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// Error is a categorized sentinel. Compare with errors.Is.
type Error struct {
	Category Category
	Code     string
	Msg      string
}

func (e *Error) Error() string { return e.Msg }

func newError(c Category, code, msg string) *Error {
	return &Error{Category: c, Code: code, Msg: msg}
}

// CategoryOf returns the category of the first *Error in err's chain.
func CategoryOf(err error) Category {
	var e *Error
	if errors.As(err, &e) {
		return e.Category
	}
	return CategoryUnknown
}

// CodeOf returns the stable code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Validation
var (
	ErrOrderExpired    = newError(Validation, "order_expired", "order expired")
	ErrOrderNotStarted = newError(Validation, "order_not_started", "order not started")
	ErrTakerMismatch   = newError(Validation, "taker_mismatch", "counter-party is not the order's taker")
	ErrZeroSaltNotSelf = newError(Validation, "zero_salt_not_self", "zero-salt order must be submitted by its maker")
	ErrZeroSaltCancel  = newError(Validation, "zero_salt_cancel", "zero-salt order cannot be cancelled")
	ErrOrderCancelled  = newError(Validation, "order_cancelled", "order is cancelled")
	ErrNotMaker        = newError(Validation, "not_maker", "only the maker may cancel")
	ErrUnknownDataType = newError(Validation, "unknown_data_type", "unknown order data type")
	ErrMalformedData   = newError(Validation, "malformed_data", "malformed order data")
)

// Authorization
var (
	ErrBadSignature          = newError(Authorization, "bad_signature", "order signature invalid")
	ErrBadDelegatedSignature = newError(Authorization, "bad_delegated_signature", "delegated signature rejected")
	ErrMissingAllowance      = newError(Authorization, "missing_allowance", "match allowance missing")
	ErrAllowanceExpired      = newError(Authorization, "allowance_expired", "match allowance expired")
	ErrBadAllowanceSignature = newError(Authorization, "bad_allowance_signature", "match allowance signature invalid")
	ErrNotOwner              = newError(Authorization, "not_owner", "caller is not the exchange owner")
	ErrReentrant             = newError(Authorization, "reentrant", "re-entrant call")
)

// Arithmetic
var (
	ErrDivisionByZero = newError(Arithmetic, "division_by_zero", "division by zero")
	ErrRounding       = newError(Arithmetic, "rounding_error", "rounding error on indivisible quantity")
	ErrOverflow       = newError(Arithmetic, "overflow", "arithmetic overflow")
)

// Compatibility
var (
	ErrAssetMismatch       = newError(Compatibility, "asset_mismatch", "asset types do not match")
	ErrNonFungibleValue    = newError(Compatibility, "non_fungible_value", "non-fungible asset value must be 1")
	ErrMultipleNonFungible = newError(Compatibility, "multiple_non_fungible", "at most one non-fungible unit per match")
	ErrDisallowedAsset     = newError(Compatibility, "disallowed_asset", "asset class not allowed")
	ErrNativeNotCaller     = newError(Compatibility, "native_not_caller", "native currency can only be offered by the caller")
)

// Economic
var (
	ErrUnfillable        = newError(Economic, "unfillable", "order has no remaining capacity")
	ErrInsufficientFill  = newError(Economic, "insufficient_fill", "match would transfer nothing")
	ErrPriceMismatch     = newError(Economic, "price_mismatch", "order prices do not cross")
	ErrRoyaltyTooHigh    = newError(Economic, "royalty_too_high", "royalties exceed 50%")
	ErrPayoutMismatch    = newError(Economic, "payout_mismatch", "payouts must sum to 10000 bps")
	ErrFeesExceedAmount  = newError(Economic, "fees_exceed_amount", "fees exceed matched amount")
	ErrInsufficientValue = newError(Economic, "insufficient_value", "attached native value too low")
	ErrFeeTooHigh        = newError(Economic, "fee_too_high", "protocol fee above 10000 bps")
)

// Transfer
var (
	ErrTransferFailed      = newError(Transfer, "transfer_failed", "asset transfer failed")
	ErrInsufficientBalance = newError(Transfer, "insufficient_balance", "insufficient balance")
	ErrNotTokenOwner       = newError(Transfer, "not_token_owner", "sender does not own token")
)
