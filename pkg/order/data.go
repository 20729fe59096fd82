package order

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperswap/pkg/asset"
	"github.com/uhyunpark/hyperswap/pkg/errs"
)

// DataType tags the encoding of Order.Data
type DataType [4]byte

var (
	DataTypeNone = DataType{}
	DataTypeV1   = DataType(asset.ClassID("V1"))
)

// Part is one (recipient, basis points) entry
type Part struct {
	Account common.Address `json:"account"`
	Bps     uint64         `json:"bps"`
}

// Data is the decoded extension payload
type Data struct {
	Payouts    []Part `json:"payouts"`
	OriginFees []Part `json:"originFees"`
}

type abiPart struct {
	Account common.Address
	Value   *big.Int
}

type abiDataV1 struct {
	Payouts    []abiPart
	OriginFees []abiPart
}

var dataV1Args = func() abi.Arguments {
	partsTy, err := abi.NewType("tuple[]", "", []abi.ArgumentMarshaling{
		{Name: "account", Type: "address"},
		{Name: "value", Type: "uint96"},
	})
	if err != nil {
		panic(err)
	}
	return abi.Arguments{
		{Name: "payouts", Type: partsTy},
		{Name: "originFees", Type: partsTy},
	}
}()

var maxUint96 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 96), big.NewInt(1))

// EncodeDataV1 ABI-encodes (Part[] payouts, Part[] originFees)
func EncodeDataV1(d Data) ([]byte, error) {
	out, err := dataV1Args.Pack(toABIParts(d.Payouts), toABIParts(d.OriginFees))
	if err != nil {
		return nil, fmt.Errorf("encode order data: %w", err)
	}
	return out, nil
}

// DecodeDataV1 is the inverse of EncodeDataV1
func DecodeDataV1(raw []byte) (Data, error) {
	values, err := dataV1Args.Unpack(raw)
	if err != nil {
		return Data{}, fmt.Errorf("%v: %w", err, errs.ErrMalformedData)
	}
	var decoded abiDataV1
	if err := dataV1Args.Copy(&decoded, values); err != nil {
		return Data{}, fmt.Errorf("%v: %w", err, errs.ErrMalformedData)
	}
	payouts, err := fromABIParts(decoded.Payouts)
	if err != nil {
		return Data{}, err
	}
	fees, err := fromABIParts(decoded.OriginFees)
	if err != nil {
		return Data{}, err
	}
	return Data{Payouts: payouts, OriginFees: fees}, nil
}

func toABIParts(parts []Part) []abiPart {
	out := make([]abiPart, len(parts))
	for i, p := range parts {
		out[i] = abiPart{Account: p.Account, Value: new(big.Int).SetUint64(p.Bps)}
	}
	return out
}

func fromABIParts(parts []abiPart) ([]Part, error) {
	out := make([]Part, 0, len(parts))
	for _, p := range parts {
		if p.Value == nil || p.Value.Sign() < 0 || p.Value.Cmp(maxUint96) > 0 || !p.Value.IsUint64() {
			return nil, fmt.Errorf("part value %v: %w", p.Value, errs.ErrMalformedData)
		}
		out = append(out, Part{Account: p.Account, Bps: p.Value.Uint64()})
	}
	return out, nil
}

// TotalBps sums the basis points of parts, saturating at MaxUint64
func TotalBps(parts []Part) uint64 {
	var total uint64
	for _, p := range parts {
		if total+p.Bps < total {
			return math.MaxUint64
		}
		total += p.Bps
	}
	return total
}
