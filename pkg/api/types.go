package api

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperswap/pkg/asset"
	"github.com/uhyunpark/hyperswap/pkg/exchange"
	"github.com/uhyunpark/hyperswap/pkg/order"
	"github.com/uhyunpark/hyperswap/pkg/transfer"
)

// API request and response types for REST endpoints and WebSocket messages.
// Amounts are decimal strings (0x-prefixed hex is accepted on input),
// addresses and byte strings are 0x-prefixed hex.

// ==============================
// Order Types
// ==============================

// AssetJSON is an asset type plus amount
type AssetJSON struct {
	Class    string `json:"class"`              // "ETH", "WETH", "ERC20", "ERC721"
	Contract string `json:"contract,omitempty"` // token contract; empty for ETH
	TokenID  string `json:"tokenId,omitempty"`  // ERC721 only
	Value    string `json:"value"`
}

// PartJSON is one (account, bps) share
type PartJSON struct {
	Account string `json:"account"`
	Bps     uint64 `json:"bps"`
}

// OrderJSON is the wire form of an order. Payouts or origin fees select the
// V1 data encoding; with neither the order carries no data.
type OrderJSON struct {
	Maker      string     `json:"maker"`
	MakeAsset  AssetJSON  `json:"makeAsset"`
	Taker      string     `json:"taker,omitempty"`
	TakeAsset  AssetJSON  `json:"takeAsset"`
	Salt       string     `json:"salt"`
	Start      uint64     `json:"start,omitempty"`
	End        uint64     `json:"end,omitempty"`
	Payouts    []PartJSON `json:"payouts,omitempty"`
	OriginFees []PartJSON `json:"originFees,omitempty"`
}

// SignedOrderJSON is one side of a match
type SignedOrderJSON struct {
	Order              OrderJSON `json:"order"`
	Signature          string    `json:"signature,omitempty"`
	AllowanceExpiry    uint64    `json:"allowanceExpiry,omitempty"`
	AllowanceSignature string    `json:"allowanceSignature,omitempty"`
}

// ==============================
// REST Request Types
// ==============================

// MatchRequest is the payload for POST /api/v1/match
type MatchRequest struct {
	Left  SignedOrderJSON `json:"left"`
	Right SignedOrderJSON `json:"right"`
	Value string          `json:"value,omitempty"` // native currency attached by the relayer
}

// CancelRequest is the payload for POST /api/v1/orders/cancel and
// /orders/batch-cancel. Signature is the maker's EIP-712 CancelOrders
// signature over the hashes of Orders, in order.
type CancelRequest struct {
	Maker     string      `json:"maker"`
	Orders    []OrderJSON `json:"orders"`
	Signature string      `json:"signature"`
}

// FillsRequest is the payload for POST /api/v1/fills
type FillsRequest struct {
	Hashes []string `json:"hashes"`
}

// HashRequest is the payload for POST /api/v1/orders/hash. A non-zero
// AllowanceExpiry also returns the match allowance digest.
type HashRequest struct {
	Order           OrderJSON `json:"order"`
	AllowanceExpiry uint64    `json:"allowanceExpiry,omitempty"`
}

// ==============================
// REST Response Types
// ==============================

// TransferJSON is one executed transfer
type TransferJSON struct {
	Asset     AssetJSON `json:"asset"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	Direction string    `json:"direction"`
	Kind      string    `json:"kind"`
	Unwrapped bool      `json:"unwrapped,omitempty"`
}

// MatchResponse describes a settled match
type MatchResponse struct {
	LeftHash     string         `json:"leftHash"`
	RightHash    string         `json:"rightHash"`
	LeftValue    string         `json:"leftValue"`
	RightValue   string         `json:"rightValue"`
	NewLeftFill  string         `json:"newLeftFill"`
	NewRightFill string         `json:"newRightFill"`
	FeeSide      string         `json:"feeSide"`
	Transfers    []TransferJSON `json:"transfers"`
	Refund       string         `json:"refund"`
}

// CancelResponse lists the cancelled order hashes
type CancelResponse struct {
	Status string   `json:"status"`
	Hashes []string `json:"hashes"`
}

// FillInfo is an order's fill; cancelled orders read as max uint256
type FillInfo struct {
	Hash string `json:"hash"`
	Fill string `json:"fill"`
}

// HashResponse carries the order digest used for signing and fill lookup
type HashResponse struct {
	Hash          string `json:"hash"`
	AllowanceHash string `json:"allowanceHash,omitempty"`
}

// DomainInfo is the EIP-712 domain orders are signed under
type DomainInfo struct {
	Name              string `json:"name"`
	Version           string `json:"version"`
	ChainID           string `json:"chainId"`
	VerifyingContract string `json:"verifyingContract"`
}

// ConfigInfo is the exchange's public configuration
type ConfigInfo struct {
	Domain             DomainInfo `json:"domain"`
	Exchange           string     `json:"exchange"`
	Relayer            string     `json:"relayer"`
	ProtocolFeeBps     uint64     `json:"protocolFeeBps"`
	FeeReceiver        string     `json:"feeReceiver"`
	AllowanceAuthority string     `json:"allowanceAuthority"`
	WrappedNative      string     `json:"wrappedNative"`
}

// ErrorResponse is returned for all errors
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code,omitempty"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message"`
}

// ==============================
// WebSocket Message Types
// ==============================

// WSSubscribeRequest is sent by client to subscribe to channels
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // e.g., ["matches", "cancels", "maker:0x..."]
}

// WSAck confirms a subscription change
type WSAck struct {
	Type     string   `json:"type"` // "subscribed" or "unsubscribed"
	Channels []string `json:"channels"`
}

// MatchUpdate is broadcast for every settled match
type MatchUpdate struct {
	Type         string         `json:"type"` // "match"
	LeftHash     string         `json:"leftHash"`
	RightHash    string         `json:"rightHash"`
	LeftMaker    string         `json:"leftMaker"`
	RightMaker   string         `json:"rightMaker"`
	NewLeftFill  string         `json:"newLeftFill"`
	NewRightFill string         `json:"newRightFill"`
	Transfers    []TransferJSON `json:"transfers"`
}

// CancelUpdate is broadcast for every cancelled order
type CancelUpdate struct {
	Type  string `json:"type"` // "cancel"
	Hash  string `json:"hash"`
	Maker string `json:"maker"`
}

// ==============================
// Conversions
// ==============================

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: invalid address %q", field, s)
	}
	return common.HexToAddress(s), nil
}

func parseOptionalAddress(field, s string) (common.Address, error) {
	if s == "" {
		return common.Address{}, nil
	}
	return parseAddress(field, s)
}

func parseAmount(field, s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	var (
		v   *uint256.Int
		err error
	)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err = uint256.FromHex(s)
	} else {
		v, err = uint256.FromDecimal(s)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: invalid amount %q: %v", field, s, err)
	}
	return v, nil
}

func parseBytes(field, s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	b, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("%s: %v", field, err)
	}
	return b, nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid order hash %q", s)
	}
	return common.BytesToHash(b), nil
}

// ToAsset converts the wire form into an asset
func (a AssetJSON) ToAsset() (asset.Asset, error) { return a.toAsset("asset") }

func (a AssetJSON) toAsset(field string) (asset.Asset, error) {
	value, err := parseAmount(field+".value", a.Value)
	if err != nil {
		return asset.Asset{}, err
	}
	var t asset.Type
	switch strings.ToUpper(a.Class) {
	case "ETH":
		t = asset.Native()
	case "WETH", "ERC20":
		contract, err := parseAddress(field+".contract", a.Contract)
		if err != nil {
			return asset.Asset{}, err
		}
		if strings.ToUpper(a.Class) == "WETH" {
			t = asset.Wrapped(contract)
		} else {
			t = asset.Fungible(contract)
		}
	case "ERC721":
		contract, err := parseAddress(field+".contract", a.Contract)
		if err != nil {
			return asset.Asset{}, err
		}
		id, ok := new(big.Int).SetString(a.TokenID, 0)
		if !ok || id.Sign() < 0 {
			return asset.Asset{}, fmt.Errorf("%s.tokenId: invalid token id %q", field, a.TokenID)
		}
		t = asset.NonFungible(contract, id)
	default:
		return asset.Asset{}, fmt.Errorf("%s.class: unknown asset class %q", field, a.Class)
	}
	return asset.New(t, value), nil
}

func assetJSON(t asset.Type, value *uint256.Int) AssetJSON {
	out := AssetJSON{Class: t.Class.String(), Value: value.Dec()}
	switch t.Class {
	case asset.WETH, asset.ERC20:
		if c, err := t.Contract(); err == nil {
			out.Contract = c.Hex()
		}
	case asset.ERC721:
		if c, id, err := t.Token(); err == nil {
			out.Contract = c.Hex()
			out.TokenID = id.String()
		}
	}
	return out
}

func parseParts(field string, in []PartJSON) ([]order.Part, error) {
	out := make([]order.Part, len(in))
	for i, p := range in {
		acct, err := parseAddress(fmt.Sprintf("%s[%d].account", field, i), p.Account)
		if err != nil {
			return nil, err
		}
		out[i] = order.Part{Account: acct, Bps: p.Bps}
	}
	return out, nil
}

// ToOrder converts the wire form into an order
func (o OrderJSON) ToOrder() (*order.Order, error) {
	maker, err := parseAddress("maker", o.Maker)
	if err != nil {
		return nil, err
	}
	taker, err := parseOptionalAddress("taker", o.Taker)
	if err != nil {
		return nil, err
	}
	makeAsset, err := o.MakeAsset.toAsset("makeAsset")
	if err != nil {
		return nil, err
	}
	takeAsset, err := o.TakeAsset.toAsset("takeAsset")
	if err != nil {
		return nil, err
	}
	salt, err := parseAmount("salt", o.Salt)
	if err != nil {
		return nil, err
	}

	out := &order.Order{
		Maker:     maker,
		MakeAsset: makeAsset,
		Taker:     taker,
		TakeAsset: takeAsset,
		Salt:      salt,
		Start:     o.Start,
		End:       o.End,
	}
	if len(o.Payouts) > 0 || len(o.OriginFees) > 0 {
		payouts, err := parseParts("payouts", o.Payouts)
		if err != nil {
			return nil, err
		}
		fees, err := parseParts("originFees", o.OriginFees)
		if err != nil {
			return nil, err
		}
		data, err := order.EncodeDataV1(order.Data{Payouts: payouts, OriginFees: fees})
		if err != nil {
			return nil, err
		}
		out.DataType = order.DataTypeV1
		out.Data = data
	}
	return out, nil
}

// OrderToJSON is the inverse of ToOrder for orders using no data or V1 data
func OrderToJSON(o *order.Order) (OrderJSON, error) {
	out := OrderJSON{
		Maker:     o.Maker.Hex(),
		MakeAsset: assetJSON(o.MakeAsset.Type, o.MakeAsset.Value),
		TakeAsset: assetJSON(o.TakeAsset.Type, o.TakeAsset.Value),
		Salt:      "0",
		Start:     o.Start,
		End:       o.End,
	}
	if o.Taker != order.AnyTaker {
		out.Taker = o.Taker.Hex()
	}
	if o.Salt != nil {
		out.Salt = o.Salt.Dec()
	}
	if o.DataType == order.DataTypeV1 {
		d, err := order.DecodeDataV1(o.Data)
		if err != nil {
			return OrderJSON{}, err
		}
		out.Payouts = partsJSON(d.Payouts)
		out.OriginFees = partsJSON(d.OriginFees)
	}
	return out, nil
}

func partsJSON(parts []order.Part) []PartJSON {
	if len(parts) == 0 {
		return nil
	}
	out := make([]PartJSON, len(parts))
	for i, p := range parts {
		out[i] = PartJSON{Account: p.Account.Hex(), Bps: p.Bps}
	}
	return out
}

func (s SignedOrderJSON) toSignedOrder(field string) (exchange.SignedOrder, error) {
	o, err := s.Order.ToOrder()
	if err != nil {
		return exchange.SignedOrder{}, fmt.Errorf("%s.%v", field, err)
	}
	sig, err := parseBytes(field+".signature", s.Signature)
	if err != nil {
		return exchange.SignedOrder{}, err
	}
	allowance, err := parseBytes(field+".allowanceSignature", s.AllowanceSignature)
	if err != nil {
		return exchange.SignedOrder{}, err
	}
	return exchange.SignedOrder{
		Order:              o,
		Signature:          sig,
		AllowanceExpiry:    s.AllowanceExpiry,
		AllowanceSignature: allowance,
	}, nil
}

func transfersJSON(records []transfer.Record) []TransferJSON {
	out := make([]TransferJSON, len(records))
	for i, r := range records {
		out[i] = TransferJSON{
			Asset:     assetJSON(r.AssetType, r.Value),
			From:      r.From.Hex(),
			To:        r.To.Hex(),
			Direction: r.Direction.String(),
			Kind:      r.Kind.String(),
			Unwrapped: r.Unwrapped,
		}
	}
	return out
}

func matchResponse(res *exchange.MatchResult) MatchResponse {
	return MatchResponse{
		LeftHash:     res.LeftHash.Hex(),
		RightHash:    res.RightHash.Hex(),
		LeftValue:    res.LeftValue.Dec(),
		RightValue:   res.RightValue.Dec(),
		NewLeftFill:  res.NewLeftFill.Dec(),
		NewRightFill: res.NewRightFill.Dec(),
		FeeSide:      res.FeeSide.String(),
		Transfers:    transfersJSON(res.Transfers),
		Refund:       res.Refund.Dec(),
	}
}
