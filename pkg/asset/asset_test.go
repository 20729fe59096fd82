package asset

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/hyperswap/pkg/errs"
)

var (
	tokenAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	wethAddr  = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func TestClassID_MatchesKeccakPrefix(t *testing.T) {
	want := crypto.Keccak256([]byte("ERC721"))[:4]
	require.Equal(t, want, ERC721[:])
	require.NotEqual(t, ETH, WETH)
}

func TestClassProperties(t *testing.T) {
	require.True(t, ERC721.NonFungible())
	require.False(t, ERC20.NonFungible())
	require.True(t, ETH.Known())
	require.False(t, ClassID("ERC1155").Known())
	require.Greater(t, ETH.Rank(), ERC20.Rank())
	require.Equal(t, WETH.Rank(), ETH.Rank())
	require.Greater(t, ERC20.Rank(), ERC721.Rank())
}

func TestTypeData_RoundTrip(t *testing.T) {
	f := Fungible(tokenAddr)
	c, err := f.Contract()
	require.NoError(t, err)
	require.Equal(t, tokenAddr, c)

	nft := NonFungible(tokenAddr, big.NewInt(42))
	c, id, err := nft.Token()
	require.NoError(t, err)
	require.Equal(t, tokenAddr, c)
	require.Equal(t, int64(42), id.Int64())

	c, err = nft.Contract()
	require.NoError(t, err)
	require.Equal(t, tokenAddr, c)
}

func TestTypeData_Malformed(t *testing.T) {
	_, err := Type{Class: ERC20, Data: []byte{1, 2}}.Contract()
	require.ErrorIs(t, err, errs.ErrDisallowedAsset)

	_, err = Native().Contract()
	require.ErrorIs(t, err, errs.ErrDisallowedAsset)

	_, _, err = Fungible(tokenAddr).Token()
	require.ErrorIs(t, err, errs.ErrDisallowedAsset)
}

func TestTypeEqualAndKey(t *testing.T) {
	require.True(t, Wrapped(wethAddr).Equal(Wrapped(wethAddr)))
	require.False(t, Wrapped(wethAddr).Equal(Fungible(wethAddr)))
	require.NotEqual(t, Wrapped(wethAddr).Key(), Fungible(wethAddr).Key())
	require.NotEqual(t,
		NonFungible(tokenAddr, big.NewInt(1)).Key(),
		NonFungible(tokenAddr, big.NewInt(2)).Key())
}

func TestHash_DependsOnEveryField(t *testing.T) {
	base := New(Fungible(tokenAddr), uint256.NewInt(100))
	h := Hash(base)

	require.NotEqual(t, h, Hash(New(Fungible(tokenAddr), uint256.NewInt(101))))
	require.NotEqual(t, h, Hash(New(Fungible(wethAddr), uint256.NewInt(100))))
	require.NotEqual(t, h, Hash(New(Wrapped(tokenAddr), uint256.NewInt(100))))
	require.Equal(t, h, Hash(New(Fungible(tokenAddr), uint256.NewInt(100))))
}
