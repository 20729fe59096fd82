package order

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperswap/pkg/asset"
	hcrypto "github.com/uhyunpark/hyperswap/pkg/crypto"
)

const (
	OrderTypeString = "Order(address maker,Asset makeAsset,address taker,Asset takeAsset,uint256 salt,uint256 start,uint256 end,bytes4 dataType,bytes data)"

	MatchAllowanceTypeString = "MatchAllowance(bytes32 orderHash,uint256 expirationTime)"

	CancelOrdersTypeString = "CancelOrders(address maker,bytes32[] orderHashes)"
)

var (
	OrderTypeHash          = crypto.Keccak256Hash([]byte(OrderTypeString + asset.AssetTypeString + asset.AssetTypeTypeString))
	MatchAllowanceTypeHash = crypto.Keccak256Hash([]byte(MatchAllowanceTypeString))
	CancelOrdersTypeHash   = crypto.Keccak256Hash([]byte(CancelOrdersTypeString))
)

// MatchAllowance is a short-lived permission, signed by the allowance
// authority, to match the order with hash OrderHash.
type MatchAllowance struct {
	OrderHash      common.Hash
	ExpirationTime uint64 // unix seconds, inclusive
}

// CancelOrders is a maker-signed request to cancel a set of orders
type CancelOrders struct {
	Maker       common.Address
	OrderHashes []common.Hash
}

// Hasher produces domain-separated digests. The order digest doubles as the
// fill ledger key.
type Hasher struct {
	td *hcrypto.TypedDataHasher
}

// NewHasher binds a Hasher to domain
func NewHasher(domain hcrypto.EIP712Domain) (*Hasher, error) {
	td, err := hcrypto.NewTypedDataHasher(domain)
	if err != nil {
		return nil, err
	}
	return &Hasher{td: td}, nil
}

// Domain returns the EIP-712 domain the hasher is bound to
func (h *Hasher) Domain() hcrypto.EIP712Domain { return h.td.Domain() }

// StructHash is hashStruct(Order)
func StructHash(o *Order) common.Hash {
	makeHash := asset.Hash(o.MakeAsset)
	takeHash := asset.Hash(o.TakeAsset)
	return crypto.Keccak256Hash(
		OrderTypeHash.Bytes(),
		common.LeftPadBytes(o.Maker.Bytes(), 32),
		makeHash.Bytes(),
		common.LeftPadBytes(o.Taker.Bytes(), 32),
		takeHash.Bytes(),
		word(o.Salt),
		word(uint256.NewInt(o.Start)),
		word(uint256.NewInt(o.End)),
		common.RightPadBytes(o.DataType[:], 32),
		crypto.Keccak256(o.Data),
	)
}

// Hash is the signable digest of o
func (h *Hasher) Hash(o *Order) common.Hash {
	return h.td.Digest(StructHash(o))
}

// AllowanceHash is the signable digest of a
func (h *Hasher) AllowanceHash(a MatchAllowance) common.Hash {
	return h.td.Digest(crypto.Keccak256Hash(
		MatchAllowanceTypeHash.Bytes(),
		a.OrderHash.Bytes(),
		word(uint256.NewInt(a.ExpirationTime)),
	))
}

// CancelHash is the signable digest of c
func (h *Hasher) CancelHash(c CancelOrders) common.Hash {
	packed := make([]byte, 0, 32*len(c.OrderHashes))
	for _, oh := range c.OrderHashes {
		packed = append(packed, oh.Bytes()...)
	}
	return h.td.Digest(crypto.Keccak256Hash(
		CancelOrdersTypeHash.Bytes(),
		common.LeftPadBytes(c.Maker.Bytes(), 32),
		crypto.Keccak256(packed),
	))
}

func word(v *uint256.Int) []byte {
	if v == nil {
		v = new(uint256.Int)
	}
	b := v.Bytes32()
	return b[:]
}
