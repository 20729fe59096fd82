package royalty

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/hyperswap/pkg/order"
)

var (
	collection = common.HexToAddress("0xc0")
	artist     = common.HexToAddress("0xa1")
	gallery    = common.HexToAddress("0xa2")
)

func TestMemoryRegistry(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	parts, err := r.Royalties(ctx, collection, big.NewInt(1))
	require.NoError(t, err)
	require.Empty(t, parts)

	r.SetCollection(collection, []order.Part{{Account: artist, Bps: 500}})
	r.SetToken(collection, big.NewInt(7), []order.Part{{Account: artist, Bps: 300}, {Account: gallery, Bps: 200}})

	parts, err = r.Royalties(ctx, collection, big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, []order.Part{{Account: artist, Bps: 500}}, parts)

	parts, err = r.Royalties(ctx, collection, big.NewInt(7))
	require.NoError(t, err)
	require.Len(t, parts, 2)
	require.Equal(t, gallery, parts[1].Account)

	// callers cannot mutate stored entries
	parts[0].Bps = 9999
	again, _ := r.Royalties(ctx, collection, big.NewInt(7))
	require.Equal(t, uint64(300), again[0].Bps)
}

type fakeCaller struct {
	result []byte
	err    error
}

func (f fakeCaller) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return f.result, f.err
}

func TestChainRegistry(t *testing.T) {
	ctx := context.Background()
	out, err := erc2981.Methods["royaltyInfo"].Outputs.Pack(artist, big.NewInt(250))
	require.NoError(t, err)

	parts, err := NewChainRegistry(fakeCaller{result: out}).Royalties(ctx, collection, big.NewInt(3))
	require.NoError(t, err)
	require.Equal(t, []order.Part{{Account: artist, Bps: 250}}, parts)

	parts, err = NewChainRegistry(fakeCaller{err: errors.New("execution reverted")}).Royalties(ctx, collection, big.NewInt(3))
	require.NoError(t, err)
	require.Empty(t, parts)

	zero, err := erc2981.Methods["royaltyInfo"].Outputs.Pack(artist, big.NewInt(0))
	require.NoError(t, err)
	parts, err = NewChainRegistry(fakeCaller{result: zero}).Royalties(ctx, collection, big.NewInt(3))
	require.NoError(t, err)
	require.Empty(t, parts)
}
