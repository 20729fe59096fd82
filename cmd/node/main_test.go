package main

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/hyperswap/params"
	"github.com/uhyunpark/hyperswap/pkg/asset"
	"github.com/uhyunpark/hyperswap/pkg/transfer"
)

func TestSeedVault(t *testing.T) {
	alice := common.HexToAddress("0xa1")
	weth := common.HexToAddress("0xeeee")
	nft := common.HexToAddress("0x721")

	v := transfer.NewVault()
	require.NoError(t, seedVault(v, []params.Allocation{
		{Account: alice.Hex(), Class: "ETH", Value: "5"},
		{Account: alice.Hex(), Class: "WETH", Contract: weth.Hex(), Value: "0x10"},
		{Account: alice.Hex(), Class: "ERC721", Contract: nft.Hex(), TokenID: "9"},
	}))

	require.Equal(t, uint64(5), v.BalanceOf(asset.Native(), alice).Uint64())
	require.Equal(t, uint64(16), v.BalanceOf(asset.Wrapped(weth), alice).Uint64())
	require.Equal(t, alice, v.OwnerOf(nft, big.NewInt(9)))

	require.Error(t, seedVault(v, []params.Allocation{{Account: "bob", Class: "ETH", Value: "1"}}))
	require.Error(t, seedVault(v, []params.Allocation{{Account: alice.Hex(), Class: "DOGE", Value: "1"}}))
}
