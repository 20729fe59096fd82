package crypto

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
)

// EIP712Domain represents the domain separator for EIP-712 typed data
// This prevents replay attacks across different chains/contracts
type EIP712Domain struct {
	Name              string         // Protocol name (e.g., "Exchange")
	Version           string         // Protocol version (e.g., "2")
	ChainID           *big.Int       // Chain ID (1337 for local, 1 for mainnet)
	VerifyingContract common.Address // Exchange contract identity
}

// DefaultDomain returns the local development domain
func DefaultDomain() EIP712Domain {
	return EIP712Domain{
		Name:              "Exchange",
		Version:           "2",
		ChainID:           big.NewInt(1337),
		VerifyingContract: common.Address{},
	}
}

var domainTypes = []apitypes.Type{
	{Name: "name", Type: "string"},
	{Name: "version", Type: "string"},
	{Name: "chainId", Type: "uint256"},
	{Name: "verifyingContract", Type: "address"},
}

// Separator computes hashStruct(EIP712Domain)
func (d EIP712Domain) Separator() (common.Hash, error) {
	typedData := apitypes.TypedData{
		Types: apitypes.Types{"EIP712Domain": domainTypes},
		Domain: apitypes.TypedDataDomain{
			Name:              d.Name,
			Version:           d.Version,
			ChainId:           (*math.HexOrDecimal256)(d.ChainID),
			VerifyingContract: d.VerifyingContract.Hex(),
		},
	}
	sep, err := typedData.HashStruct("EIP712Domain", typedData.Domain.Map())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to hash domain: %w", err)
	}
	return common.BytesToHash(sep), nil
}

// TypedDataHasher turns struct hashes into signable digests for one domain.
// The separator is computed once.
type TypedDataHasher struct {
	domain    EIP712Domain
	separator common.Hash
}

// NewTypedDataHasher binds a hasher to domain
func NewTypedDataHasher(domain EIP712Domain) (*TypedDataHasher, error) {
	sep, err := domain.Separator()
	if err != nil {
		return nil, err
	}
	return &TypedDataHasher{domain: domain, separator: sep}, nil
}

// Domain returns the bound domain
func (h *TypedDataHasher) Domain() EIP712Domain { return h.domain }

// Separator returns the bound domain separator
func (h *TypedDataHasher) Separator() common.Hash { return h.separator }

// Digest returns keccak256("\x19\x01" || domainSeparator || structHash)
func (h *TypedDataHasher) Digest(structHash common.Hash) common.Hash {
	return crypto.Keccak256Hash([]byte{0x19, 0x01}, h.separator.Bytes(), structHash.Bytes())
}
