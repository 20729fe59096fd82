package order

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperswap/pkg/asset"
	"github.com/uhyunpark/hyperswap/pkg/errs"
)

// AnyTaker is the zero address: the order can be matched by anyone
var AnyTaker = common.Address{}

// Order is an immutable intent to trade MakeAsset for TakeAsset.
// Orders are built and signed off-chain; the engine only reads them.
type Order struct {
	Maker     common.Address
	MakeAsset asset.Asset
	Taker     common.Address // AnyTaker = open to everyone
	TakeAsset asset.Asset
	Salt      *uint256.Int // 0 = submitted by the maker itself, no signature, no fill record
	Start     uint64       // unix seconds, 0 = no lower bound
	End       uint64       // unix seconds, 0 = no upper bound
	DataType  DataType
	Data      []byte
}

// SelfSubmitted reports whether the order relies on its maker being the caller
func (o *Order) SelfSubmitted() bool {
	return o.Salt == nil || o.Salt.IsZero()
}

// Validate checks the validity window and taker restriction.
// now is unix seconds; counterparty is the maker of the opposing order.
func (o *Order) Validate(now uint64, counterparty common.Address) error {
	if o.End != 0 && o.End <= now {
		return fmt.Errorf("end %d <= now %d: %w", o.End, now, errs.ErrOrderExpired)
	}
	if o.Start != 0 && o.Start > now {
		return fmt.Errorf("start %d > now %d: %w", o.Start, now, errs.ErrOrderNotStarted)
	}
	if o.Taker != AnyTaker && o.Taker != counterparty {
		return fmt.Errorf("taker %s, counter-party %s: %w", o.Taker.Hex(), counterparty.Hex(), errs.ErrTakerMismatch)
	}
	return nil
}

// ValidateSalt rejects zero-salt orders not submitted by their own maker
func (o *Order) ValidateSalt(caller common.Address) error {
	if o.SelfSubmitted() && o.Maker != caller {
		return fmt.Errorf("maker %s, caller %s: %w", o.Maker.Hex(), caller.Hex(), errs.ErrZeroSaltNotSelf)
	}
	return nil
}

// ParseData decodes the extension payload. Orders without a data type pay
// everything to the maker and declare no origin fees.
func (o *Order) ParseData() (Data, error) {
	switch o.DataType {
	case DataTypeNone:
		if len(o.Data) != 0 {
			return Data{}, fmt.Errorf("payload without data type: %w", errs.ErrMalformedData)
		}
		return Data{Payouts: []Part{{Account: o.Maker, Bps: 10000}}}, nil
	case DataTypeV1:
		d, err := DecodeDataV1(o.Data)
		if err != nil {
			return Data{}, err
		}
		if len(d.Payouts) == 0 {
			d.Payouts = []Part{{Account: o.Maker, Bps: 10000}}
		}
		return d, nil
	default:
		return Data{}, fmt.Errorf("data type 0x%x: %w", o.DataType[:], errs.ErrUnknownDataType)
	}
}
