package asset

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// EIP-712 type strings. Referencing types embed these after their own definition.
const (
	AssetTypeTypeString = "AssetType(bytes4 assetClass,bytes data)"
	AssetTypeString     = "Asset(AssetType assetType,uint256 value)"
)

var (
	AssetTypeTypeHash = crypto.Keccak256Hash([]byte(AssetTypeTypeString))
	AssetTypeHash     = crypto.Keccak256Hash([]byte(AssetTypeString + AssetTypeTypeString))
)

// HashType is hashStruct(AssetType)
func HashType(t Type) common.Hash {
	return crypto.Keccak256Hash(
		AssetTypeTypeHash.Bytes(),
		common.RightPadBytes(t.Class[:], 32),
		crypto.Keccak256(t.Data),
	)
}

// Hash is hashStruct(Asset)
func Hash(a Asset) common.Hash {
	value := a.Value
	if value == nil {
		value = new(uint256.Int)
	}
	word := value.Bytes32()
	typeHash := HashType(a.Type)
	return crypto.Keccak256Hash(
		AssetTypeHash.Bytes(),
		typeHash.Bytes(),
		word[:],
	)
}
