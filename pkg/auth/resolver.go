package auth

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ContractResolver tells contract accounts from key-holding ones
type ContractResolver interface {
	IsContract(ctx context.Context, account common.Address) (bool, error)
}

// ValidatorFunc is an in-process isValidSignature
type ValidatorFunc func(hash common.Hash, sig []byte) bool

// StaticResolver is an in-process registry of contract accounts and their validation logic
type StaticResolver struct {
	mu        sync.RWMutex
	contracts map[common.Address]ValidatorFunc
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{contracts: make(map[common.Address]ValidatorFunc)}
}

// Register marks account as a contract validated by fn
func (r *StaticResolver) Register(account common.Address, fn ValidatorFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[account] = fn
}

func (r *StaticResolver) IsContract(_ context.Context, account common.Address) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.contracts[account]
	return ok, nil
}

func (r *StaticResolver) IsValidSignature(_ context.Context, account common.Address, hash common.Hash, sig []byte) (bool, error) {
	r.mu.RLock()
	fn, ok := r.contracts[account]
	r.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("no validator for %s", account.Hex())
	}
	return fn(hash, sig), nil
}

// ERC1271MagicValue is returned by isValidSignature on success
var ERC1271MagicValue = [4]byte{0x16, 0x26, 0xba, 0x7e}

const erc1271ABI = `[{"type":"function","name":"isValidSignature","stateMutability":"view",
"inputs":[{"name":"hash","type":"bytes32"},{"name":"signature","type":"bytes"}],
"outputs":[{"name":"magicValue","type":"bytes4"}]}]`

var erc1271 = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc1271ABI))
	if err != nil {
		panic(err)
	}
	return parsed
}()

// ChainCaller is the slice of ethclient.Client the chain resolver needs
type ChainCaller interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainResolver resolves accounts against a live chain: an account with code
// is a contract, and its isValidSignature decides delegated signatures.
type ChainResolver struct {
	client ChainCaller
}

func NewChainResolver(client ChainCaller) *ChainResolver {
	return &ChainResolver{client: client}
}

func (r *ChainResolver) IsContract(ctx context.Context, account common.Address) (bool, error) {
	code, err := r.client.CodeAt(ctx, account, nil)
	if err != nil {
		return false, fmt.Errorf("code at %s: %w", account.Hex(), err)
	}
	return len(code) > 0, nil
}

func (r *ChainResolver) IsValidSignature(ctx context.Context, account common.Address, hash common.Hash, sig []byte) (bool, error) {
	callData, err := erc1271.Pack("isValidSignature", [32]byte(hash), sig)
	if err != nil {
		return false, fmt.Errorf("pack isValidSignature: %w", err)
	}

	result, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &account, Data: callData}, nil)
	if err != nil {
		// a reverting validator means "not valid"
		return false, nil
	}

	values, err := erc1271.Unpack("isValidSignature", result)
	if err != nil || len(values) != 1 {
		return false, nil
	}
	magic, ok := values[0].([4]byte)
	return ok && magic == ERC1271MagicValue, nil
}

var (
	_ ContractResolver   = (*StaticResolver)(nil)
	_ SignatureValidator = (*StaticResolver)(nil)
	_ ContractResolver   = (*ChainResolver)(nil)
	_ SignatureValidator = (*ChainResolver)(nil)
)
