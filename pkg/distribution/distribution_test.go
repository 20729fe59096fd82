package distribution

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/hyperswap/pkg/asset"
	"github.com/uhyunpark/hyperswap/pkg/errs"
	"github.com/uhyunpark/hyperswap/pkg/order"
	"github.com/uhyunpark/hyperswap/pkg/royalty"
	"github.com/uhyunpark/hyperswap/pkg/transfer"
)

const ether = 1_000_000_000_000_000_000

var (
	seller   = common.HexToAddress("0x5e11e7")
	buyer    = common.HexToAddress("0xb0e7")
	receiver = common.HexToAddress("0xfee")
	artist   = common.HexToAddress("0xa7")
	origin1  = common.HexToAddress("0x01")
	origin2  = common.HexToAddress("0x02")

	wethC  = common.HexToAddress("0xeeee")
	nftC   = common.HexToAddress("0x721")
	tokenC = common.HexToAddress("0x20")
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func sale(price uint64) (Side, Side) {
	nft := asset.NonFungible(nftC, big.NewInt(1))
	weth := asset.Wrapped(wethC)
	sell := &order.Order{
		Maker:     seller,
		MakeAsset: asset.New(nft, u(1)),
		TakeAsset: asset.New(weth, u(price)),
		Salt:      u(1),
	}
	buy := &order.Order{
		Maker:     buyer,
		MakeAsset: asset.New(weth, u(price)),
		TakeAsset: asset.New(nft, u(1)),
		Salt:      u(2),
	}
	left := Side{Order: sell, Data: order.Data{Payouts: []order.Part{{Account: seller, Bps: 10000}}}, Value: u(1), Payer: seller}
	right := Side{Order: buy, Data: order.Data{Payouts: []order.Part{{Account: buyer, Bps: 10000}}}, Value: u(price), Payer: buyer}
	return left, right
}

func find(t *testing.T, records []transfer.Record, kind transfer.Kind, to common.Address) transfer.Record {
	t.Helper()
	for _, r := range records {
		if r.Kind == kind && r.To == to {
			return r
		}
	}
	t.Fatalf("no %s transfer to %s", kind, to.Hex())
	return transfer.Record{}
}

func TestPlan_NFTSaleWithProtocolFee(t *testing.T) {
	left, right := sale(ether)
	plan, err := NewPlanner(royalty.NewMemoryRegistry()).Plan(context.Background(), left, right, Fees{ProtocolFeeBps: 100, Receiver: receiver})
	require.NoError(t, err)
	require.Equal(t, FeeRight, plan.FeeSide)
	require.Len(t, plan.Transfers, 3)

	unit := find(t, plan.Transfers, transfer.Payout, buyer)
	require.Equal(t, asset.ERC721, unit.AssetType.Class)
	require.Equal(t, seller, unit.From)
	require.Equal(t, transfer.ToTaker, unit.Direction)

	fee := find(t, plan.Transfers, transfer.Protocol, receiver)
	require.True(t, fee.Unwrapped)
	require.Equal(t, asset.ETH, fee.AssetType.Class)
	require.Equal(t, uint64(ether/100), fee.Value.Uint64())

	proceeds := find(t, plan.Transfers, transfer.Payout, seller)
	require.Equal(t, asset.WETH, proceeds.AssetType.Class)
	require.Equal(t, uint64(ether*99/100), proceeds.Value.Uint64())
	require.Equal(t, transfer.ToMaker, proceeds.Direction)
}

func TestPlan_OriginFees(t *testing.T) {
	left, right := sale(ether)
	right.Data.OriginFees = []order.Part{{Account: origin1, Bps: 100}, {Account: origin2, Bps: 50}}

	plan, err := NewPlanner(nil).Plan(context.Background(), left, right, Fees{ProtocolFeeBps: 100, Receiver: receiver})
	require.NoError(t, err)

	require.Equal(t, uint64(ether/100), find(t, plan.Transfers, transfer.Origin, origin1).Value.Uint64())
	require.Equal(t, uint64(ether/200), find(t, plan.Transfers, transfer.Origin, origin2).Value.Uint64())
	require.Equal(t, uint64(ether/100), find(t, plan.Transfers, transfer.Protocol, receiver).Value.Uint64())
	require.Equal(t, uint64(ether*975/1000), find(t, plan.Transfers, transfer.Payout, seller).Value.Uint64())
}

func TestPlan_Royalties(t *testing.T) {
	left, right := sale(ether)
	reg := royalty.NewMemoryRegistry()
	reg.SetToken(nftC, big.NewInt(1), []order.Part{{Account: artist, Bps: 1000}})

	plan, err := NewPlanner(reg).Plan(context.Background(), left, right, Fees{ProtocolFeeBps: 100, Receiver: receiver})
	require.NoError(t, err)
	require.Equal(t, uint64(ether/10), find(t, plan.Transfers, transfer.Royalty, artist).Value.Uint64())
	require.Equal(t, uint64(ether*89/100), find(t, plan.Transfers, transfer.Payout, seller).Value.Uint64())

	reg.SetToken(nftC, big.NewInt(1), []order.Part{{Account: artist, Bps: 3000}, {Account: origin1, Bps: 2001}})
	_, err = NewPlanner(reg).Plan(context.Background(), left, right, Fees{})
	require.ErrorIs(t, err, errs.ErrRoyaltyTooHigh)
	require.Equal(t, errs.Economic, errs.CategoryOf(err))
}

func TestPlan_PayoutMismatch(t *testing.T) {
	tests := []struct {
		name    string
		payouts []order.Part
	}{
		{"under", []order.Part{{Account: seller, Bps: 9999}}},
		{"over", []order.Part{{Account: seller, Bps: 5000}, {Account: origin1, Bps: 5001}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			left, right := sale(ether)
			left.Data.Payouts = tt.payouts
			_, err := NewPlanner(nil).Plan(context.Background(), left, right, Fees{})
			require.ErrorIs(t, err, errs.ErrPayoutMismatch)
		})
	}
}

func TestPlan_FeesExceedAmount(t *testing.T) {
	left, right := sale(1000)
	left.Data.OriginFees = []order.Part{{Account: origin1, Bps: 2000}}
	_, err := NewPlanner(nil).Plan(context.Background(), left, right, Fees{ProtocolFeeBps: 9000, Receiver: receiver})
	require.ErrorIs(t, err, errs.ErrFeesExceedAmount)
}

func TestPlan_LegSumsToValue(t *testing.T) {
	tests := []struct {
		price   uint64
		feeBps  uint64
		royalty uint64
		origins []uint64
		payouts []uint64
	}{
		{1, 100, 0, nil, []uint64{10000}},
		{7, 250, 333, []uint64{1}, []uint64{3333, 3333, 3334}},
		{101, 0, 5000, []uint64{10, 20}, []uint64{1, 9999}},
		{ether + 13, 123, 777, []uint64{55, 66}, []uint64{2500, 2500, 5000}},
		{999_999, 10000, 0, nil, []uint64{10000}},
	}
	for _, tt := range tests {
		left, right := sale(tt.price)
		reg := royalty.NewMemoryRegistry()
		if tt.royalty > 0 {
			reg.SetCollection(nftC, []order.Part{{Account: artist, Bps: tt.royalty}})
		}
		for i, bps := range tt.origins {
			right.Data.OriginFees = append(right.Data.OriginFees, order.Part{Account: common.BigToAddress(big.NewInt(int64(100 + i))), Bps: bps})
		}
		left.Data.Payouts = nil
		for i, bps := range tt.payouts {
			left.Data.Payouts = append(left.Data.Payouts, order.Part{Account: common.BigToAddress(big.NewInt(int64(200 + i))), Bps: bps})
		}

		plan, err := NewPlanner(reg).Plan(context.Background(), left, right, Fees{ProtocolFeeBps: tt.feeBps, Receiver: receiver})
		require.NoError(t, err)

		sum := new(uint256.Int)
		for _, r := range plan.Transfers {
			require.False(t, r.Value.IsZero(), "zero transfers are omitted")
			if r.AssetType.Class == asset.ERC721 {
				continue
			}
			sum.Add(sum, r.Value)
		}
		require.Equal(t, tt.price, sum.Uint64(), "price %d", tt.price)
	}
}

func TestPayouts_LastTakesRemainder(t *testing.T) {
	leg := Leg{Asset: asset.Fungible(tokenC), Value: u(101), From: buyer}
	parts := []order.Part{{Account: origin1, Bps: 3333}, {Account: origin2, Bps: 3333}, {Account: seller, Bps: 3334}}

	records, err := Run(u(101), Payouts(leg, parts))
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, uint64(33), records[0].Value.Uint64())
	require.Equal(t, uint64(33), records[1].Value.Uint64())
	require.Equal(t, uint64(35), records[2].Value.Uint64())
}

func TestUnitPayout(t *testing.T) {
	leg := Leg{Asset: asset.NonFungible(nftC, big.NewInt(1)), Value: u(1), From: seller}
	tests := []struct {
		name  string
		parts []order.Part
		want  common.Address
	}{
		{"single", []order.Part{{Account: buyer, Bps: 10000}}, buyer},
		{"last of two", []order.Part{{Account: origin1, Bps: 5000}, {Account: origin2, Bps: 5000}}, origin2},
		{"zero share skipped", []order.Part{{Account: origin1, Bps: 10000}, {Account: origin2, Bps: 0}}, origin1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := Run(u(1), UnitPayout(leg, tt.parts))
			require.NoError(t, err)
			require.Len(t, records, 1)
			require.Equal(t, tt.want, records[0].To)
		})
	}
}

func TestChooseFeeSide(t *testing.T) {
	tests := []struct {
		left, right asset.Class
		want        FeeSide
	}{
		{asset.ERC721, asset.WETH, FeeRight},
		{asset.ETH, asset.ERC721, FeeLeft},
		{asset.ERC20, asset.ETH, FeeRight},
		{asset.ERC20, asset.ERC20, FeeLeft},
		{asset.WETH, asset.ETH, FeeLeft},
		{asset.ERC721, asset.ERC721, FeeNone},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ChooseFeeSide(tt.left, tt.right), "%s vs %s", tt.left, tt.right)
	}
}

func TestProtocolFee_NativeStaysNative(t *testing.T) {
	leg := Leg{Asset: asset.Native(), Value: u(1000), From: buyer}
	records, err := Run(u(1000), ProtocolFee(leg, 100, receiver), Payouts(leg, []order.Part{{Account: seller, Bps: 10000}}))
	require.NoError(t, err)
	require.False(t, records[0].Unwrapped)
	require.Equal(t, uint64(10), records[0].Value.Uint64())
	require.Equal(t, uint64(990), records[1].Value.Uint64())
}
