// Package royalty looks up creator royalties for non-fungible tokens.
package royalty

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperswap/pkg/order"
)

// Registry returns the ordered royalty recipients for a token.
// Implementations that call back into the exchange must pass on ctx, or
// the call blocks on the exchange lock instead of failing as re-entrant.
type Registry interface {
	Royalties(ctx context.Context, contract common.Address, tokenID *big.Int) ([]order.Part, error)
}

type tokenKey struct {
	contract common.Address
	id       string
}

// MemoryRegistry keeps royalties in process. Token entries override
// collection entries.
type MemoryRegistry struct {
	mu          sync.RWMutex
	tokens      map[tokenKey][]order.Part
	collections map[common.Address][]order.Part
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		tokens:      make(map[tokenKey][]order.Part),
		collections: make(map[common.Address][]order.Part),
	}
}

func (r *MemoryRegistry) SetToken(contract common.Address, tokenID *big.Int, parts []order.Part) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[tokenKey{contract, tokenID.String()}] = clone(parts)
}

func (r *MemoryRegistry) SetCollection(contract common.Address, parts []order.Part) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[contract] = clone(parts)
}

func (r *MemoryRegistry) Royalties(_ context.Context, contract common.Address, tokenID *big.Int) ([]order.Part, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if parts, ok := r.tokens[tokenKey{contract, tokenID.String()}]; ok {
		return clone(parts), nil
	}
	return clone(r.collections[contract]), nil
}

func clone(parts []order.Part) []order.Part {
	if len(parts) == 0 {
		return nil
	}
	return append([]order.Part(nil), parts...)
}

const erc2981ABI = `[{"type":"function","name":"royaltyInfo","stateMutability":"view",
"inputs":[{"name":"tokenId","type":"uint256"},{"name":"salePrice","type":"uint256"}],
"outputs":[{"name":"receiver","type":"address"},{"name":"royaltyAmount","type":"uint256"}]}]`

var erc2981 = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc2981ABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// ContractCaller is the slice of ethclient.Client the chain registry needs
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainRegistry reads ERC-2981 royaltyInfo from the token contract, quoting a
// sale price of 10000 so the returned amount is already in basis points.
// Contracts without the interface have no royalties.
type ChainRegistry struct {
	client ContractCaller
}

func NewChainRegistry(client ContractCaller) *ChainRegistry {
	return &ChainRegistry{client: client}
}

var bpsQuote = big.NewInt(10000)

func (r *ChainRegistry) Royalties(ctx context.Context, contract common.Address, tokenID *big.Int) ([]order.Part, error) {
	callData, err := erc2981.Pack("royaltyInfo", tokenID, bpsQuote)
	if err != nil {
		return nil, fmt.Errorf("pack royaltyInfo: %w", err)
	}

	result, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: callData}, nil)
	if err != nil || len(result) == 0 {
		return nil, nil
	}

	values, err := erc2981.Unpack("royaltyInfo", result)
	if err != nil {
		return nil, fmt.Errorf("unpack royaltyInfo from %s: %w", contract.Hex(), err)
	}
	receiver, _ := values[0].(common.Address)
	amount, _ := values[1].(*big.Int)
	if amount == nil || amount.Sign() == 0 || receiver == (common.Address{}) {
		return nil, nil
	}
	if !amount.IsUint64() {
		return nil, fmt.Errorf("royalty from %s out of range: %s", contract.Hex(), amount)
	}
	return []order.Part{{Account: receiver, Bps: amount.Uint64()}}, nil
}

var (
	_ Registry = (*MemoryRegistry)(nil)
	_ Registry = (*ChainRegistry)(nil)
)
