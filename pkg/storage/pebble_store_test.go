package storage

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/hyperswap/pkg/ledger"
	"github.com/uhyunpark/hyperswap/pkg/numeric"
)

func TestFillStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	a, b := common.HexToHash("0xaa"), common.HexToHash("0xbb")

	store, err := NewFillStore(dir)
	require.NoError(t, err)

	l := ledger.New(store)
	_, err = l.Apply([]ledger.Entry{
		ledger.FillUpdate(a, uint256.NewInt(42)),
		ledger.CancelUpdate(b),
	})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewFillStore(dir)
	require.NoError(t, err)
	defer store.Close()

	n, err := store.Count()
	require.NoError(t, err)
	require.Equal(t, 2, n)

	l = ledger.New(store)
	fa, err := l.Fill(a)
	require.NoError(t, err)
	require.Equal(t, uint64(42), fa.Uint64())

	fb, err := l.Fill(b)
	require.NoError(t, err)
	require.True(t, fb.Eq(numeric.Max()))
}

func TestFillStore_Missing(t *testing.T) {
	store, err := NewFillStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	_, found, err := store.Load(common.HexToHash("0x01"))
	require.NoError(t, err)
	require.False(t, found)
}

func TestCodec(t *testing.T) {
	in := ledger.Entry{Filled: uint256.NewInt(7), Cancelled: true}
	var out ledger.Entry
	require.NoError(t, decodeFill(encodeFill(in), &out))
	require.True(t, out.Cancelled)
	require.Equal(t, uint64(7), out.Filled.Uint64())

	require.Error(t, decodeFill([]byte{0x00}, &out))
	bad := encodeFill(in)
	bad[0] = 0x09
	require.Error(t, decodeFill(bad, &out))
}
