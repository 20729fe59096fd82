package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToBaseUnits(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int
		want     string
		wantErr  bool
	}{
		{"1", 18, "1000000000000000000", false},
		{"1.5", 6, "1500000", false},
		{"0.000001", 6, "1", false},
		{"42", 0, "42", false},
		{"0.0000001", 6, "", true},
		{"-1", 18, "", true},
		{"abc", 18, "", true},
		{"1e80", 0, "", true},
	}
	for _, tt := range tests {
		got, err := toBaseUnits(tt.amount, tt.decimals)
		if tt.wantErr {
			require.Error(t, err, tt.amount)
			continue
		}
		require.NoError(t, err, tt.amount)
		require.Equal(t, tt.want, got)
	}
}

func TestSideAsset(t *testing.T) {
	s := side{class: "erc721", contract: "0x0000000000000000000000000000000000000721", tokenID: "3", amount: "7"}
	a, err := s.asset()
	require.NoError(t, err)
	require.Equal(t, "ERC721", a.Class)
	require.Equal(t, "1", a.Value)

	s = side{class: "WETH", contract: "0x000000000000000000000000000000000000eeee", amount: "0.25", decimals: 18}
	a, err = s.asset()
	require.NoError(t, err)
	require.Equal(t, "250000000000000000", a.Value)
}
