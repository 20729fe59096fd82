package asset

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"github.com/uhyunpark/hyperswap/pkg/errs"
)

// Class is the 4-byte asset kind discriminant: bytes4(keccak256(name))
type Class [4]byte

// ClassID derives a class discriminant from its name
func ClassID(name string) Class {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	var c Class
	copy(c[:], h.Sum(nil)[:4])
	return c
}

var (
	ETH    = ClassID("ETH")    // native currency, no data
	WETH   = ClassID("WETH")   // wrapped native, data = abi(address)
	ERC20  = ClassID("ERC20")  // fungible token, data = abi(address)
	ERC721 = ClassID("ERC721") // non-fungible token, data = abi(address, uint256)
)

func (c Class) String() string {
	switch c {
	case ETH:
		return "ETH"
	case WETH:
		return "WETH"
	case ERC20:
		return "ERC20"
	case ERC721:
		return "ERC721"
	default:
		return "0x" + hex.EncodeToString(c[:])
	}
}

// Known reports whether the engine can settle this class
func (c Class) Known() bool {
	return c == ETH || c == WETH || c == ERC20 || c == ERC721
}

// NonFungible reports whether values of this class are indivisible units
func (c Class) NonFungible() bool { return c == ERC721 }

// Rank orders classes for choosing which leg carries fees.
// Native and wrapped native pay fees first, then fungible tokens.
func (c Class) Rank() int {
	switch c {
	case ETH, WETH:
		return 3
	case ERC20:
		return 2
	case ERC721:
		return 1
	default:
		return 0
	}
}

// Type identifies an asset: its class plus class-specific data
type Type struct {
	Class Class
	Data  []byte
}

// Asset is an amount of a Type. Non-fungible values are 1.
type Asset struct {
	Type  Type
	Value *uint256.Int
}

var (
	addressTy, _ = abi.NewType("address", "", nil)
	uint256Ty, _ = abi.NewType("uint256", "", nil)

	contractArgs = abi.Arguments{{Type: addressTy}}
	tokenArgs    = abi.Arguments{{Type: addressTy}, {Type: uint256Ty}}
)

// Native returns the native currency type
func Native() Type { return Type{Class: ETH} }

// Wrapped returns the wrapped-native type for the given contract
func Wrapped(contract common.Address) Type {
	return Type{Class: WETH, Data: mustPack(contractArgs, contract)}
}

// Fungible returns an ERC20 type
func Fungible(contract common.Address) Type {
	return Type{Class: ERC20, Data: mustPack(contractArgs, contract)}
}

// NonFungible returns an ERC721 type for one token id
func NonFungible(contract common.Address, tokenID *big.Int) Type {
	return Type{Class: ERC721, Data: mustPack(tokenArgs, contract, tokenID)}
}

func mustPack(args abi.Arguments, values ...interface{}) []byte {
	out, err := args.Pack(values...)
	if err != nil {
		panic(fmt.Errorf("pack asset data: %w", err))
	}
	return out
}

// Contract decodes the token contract from WETH/ERC20/ERC721 data
func (t Type) Contract() (common.Address, error) {
	switch t.Class {
	case WETH, ERC20:
		vals, err := contractArgs.Unpack(t.Data)
		if err != nil {
			return common.Address{}, fmt.Errorf("%s data: %w", t.Class, errs.ErrDisallowedAsset)
		}
		return vals[0].(common.Address), nil
	case ERC721:
		contract, _, err := t.Token()
		return contract, err
	default:
		return common.Address{}, fmt.Errorf("%s has no contract: %w", t.Class, errs.ErrDisallowedAsset)
	}
}

// Token decodes (contract, tokenId) from ERC721 data
func (t Type) Token() (common.Address, *big.Int, error) {
	if t.Class != ERC721 {
		return common.Address{}, nil, fmt.Errorf("%s is not a token type: %w", t.Class, errs.ErrDisallowedAsset)
	}
	vals, err := tokenArgs.Unpack(t.Data)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%s data: %w", t.Class, errs.ErrDisallowedAsset)
	}
	return vals[0].(common.Address), vals[1].(*big.Int), nil
}

// Equal compares class and data byte-for-byte
func (t Type) Equal(o Type) bool {
	return t.Class == o.Class && bytes.Equal(t.Data, o.Data)
}

// Key is a map key unique per Type
func (t Type) Key() string {
	return hex.EncodeToString(t.Class[:]) + ":" + hex.EncodeToString(t.Data)
}

func (t Type) String() string {
	switch t.Class {
	case ETH:
		return "ETH"
	case WETH, ERC20:
		if c, err := t.Contract(); err == nil {
			return fmt.Sprintf("%s(%s)", t.Class, c.Hex())
		}
	case ERC721:
		if c, id, err := t.Token(); err == nil {
			return fmt.Sprintf("ERC721(%s#%s)", c.Hex(), id)
		}
	}
	return fmt.Sprintf("%s(0x%x)", t.Class, t.Data)
}

// New is shorthand for an Asset
func New(t Type, value *uint256.Int) Asset {
	return Asset{Type: t, Value: value}
}
