package numeric

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/uhyunpark/hyperswap/pkg/errs"
)

func u(v uint64) *uint256.Int { return uint256.NewInt(v) }

func TestScaleByBps(t *testing.T) {
	tests := []struct {
		name  string
		value uint64
		bps   uint64
		want  uint64
	}{
		{"one percent", 100_000, 100, 1_000},
		{"floors", 999, 100, 9},
		{"zero bps", 12345, 0, 0},
		{"full", 777, 10000, 777},
		{"single unit below full", 1, 9999, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScaleByBps(u(tt.value), tt.bps)
			require.NoError(t, err)
			require.Equal(t, tt.want, got.Uint64())
		})
	}
}

func TestScaleByBps_Overflow(t *testing.T) {
	_, err := ScaleByBps(Max(), 20000)
	require.ErrorIs(t, err, errs.ErrOverflow)
}

func TestScaleByBps_LargeValueNoIntermediateOverflow(t *testing.T) {
	// value*bps overflows 256 bits but the quotient fits
	got, err := ScaleByBps(Max(), 10000)
	require.NoError(t, err)
	require.True(t, got.Eq(Max()))
}

func TestProportion(t *testing.T) {
	got, err := Proportion(u(3), u(4), u(100), false)
	require.NoError(t, err)
	require.Equal(t, uint64(75), got.Uint64())

	got, err = Proportion(u(1), u(3), u(100), false)
	require.NoError(t, err)
	require.Equal(t, uint64(33), got.Uint64())
}

func TestProportion_DivisionByZero(t *testing.T) {
	_, err := Proportion(u(1), u(0), u(100), false)
	require.True(t, errors.Is(err, errs.ErrDivisionByZero))
	require.Equal(t, errs.Arithmetic, errs.CategoryOf(err))
}

func TestProportion_ExactRounding(t *testing.T) {
	_, err := Proportion(u(1), u(3), u(100), true)
	require.ErrorIs(t, err, errs.ErrRounding)

	got, err := Proportion(u(1), u(4), u(100), true)
	require.NoError(t, err)
	require.Equal(t, uint64(25), got.Uint64())
}

func TestMulCmp(t *testing.T) {
	require.Equal(t, -1, MulCmp(u(2), u(3), u(1), u(7)))
	require.Equal(t, 0, MulCmp(u(2), u(3), u(1), u(6)))
	require.Equal(t, 1, MulCmp(u(2), u(3), u(1), u(5)))
	// products beyond 256 bits still compare exactly
	require.Equal(t, 1, MulCmp(Max(), Max(), Max(), u(2)))
}

func TestSubAdd(t *testing.T) {
	_, err := Sub(u(1), u(2))
	require.ErrorIs(t, err, errs.ErrOverflow)

	_, err = Add(Max(), u(1))
	require.ErrorIs(t, err, errs.ErrOverflow)

	got, err := Sub(u(5), u(2))
	require.NoError(t, err)
	require.Equal(t, uint64(3), got.Uint64())
}
