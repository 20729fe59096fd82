package transfer

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperswap/pkg/asset"
	"github.com/uhyunpark/hyperswap/pkg/errs"
)

type balanceKey struct {
	class    asset.Class
	contract common.Address
	account  common.Address
}

type tokenKey struct {
	contract common.Address
	id       string
}

// journalEntry restores one piece of state
type journalEntry func(v *Vault)

type revision struct {
	id           int
	journalIndex int
}

// Vault is an in-memory balance book implementing Executor. Every mutation
// is journaled so snapshots can be reverted.
type Vault struct {
	mu       sync.Mutex
	balances map[balanceKey]*uint256.Int
	owners   map[tokenKey]common.Address

	journal        []journalEntry
	validRevisions []revision
	nextRevisionID int
}

func NewVault() *Vault {
	return &Vault{
		balances: make(map[balanceKey]*uint256.Int),
		owners:   make(map[tokenKey]common.Address),
	}
}

func keyFor(t asset.Type, account common.Address) (balanceKey, error) {
	switch t.Class {
	case asset.ETH:
		return balanceKey{class: asset.ETH, account: account}, nil
	case asset.WETH, asset.ERC20:
		contract, err := t.Contract()
		if err != nil {
			return balanceKey{}, err
		}
		return balanceKey{class: t.Class, contract: contract, account: account}, nil
	default:
		return balanceKey{}, fmt.Errorf("%s has no balance: %w", t.Class, errs.ErrDisallowedAsset)
	}
}

// Deposit credits value out of thin air; used to seed balances
func (v *Vault) Deposit(t asset.Type, to common.Address, value *uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	k, err := keyFor(t, to)
	if err != nil {
		return err
	}
	v.credit(k, value)
	return nil
}

// Mint assigns a non-fungible token to owner
func (v *Vault) Mint(contract common.Address, tokenID *big.Int, owner common.Address) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.setOwner(tokenKey{contract, tokenID.String()}, owner)
}

// BalanceOf returns account's balance of a fungible type
func (v *Vault) BalanceOf(t asset.Type, account common.Address) *uint256.Int {
	v.mu.Lock()
	defer v.mu.Unlock()
	k, err := keyFor(t, account)
	if err != nil {
		return new(uint256.Int)
	}
	return v.balance(k).Clone()
}

// OwnerOf returns the holder of a non-fungible token
func (v *Vault) OwnerOf(contract common.Address, tokenID *big.Int) common.Address {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.owners[tokenKey{contract, tokenID.String()}]
}

func (v *Vault) Transfer(_ context.Context, t asset.Type, from, to common.Address, value *uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if t.Class == asset.ERC721 {
		return v.moveToken(t, from, to, value)
	}
	src, err := keyFor(t, from)
	if err != nil {
		return err
	}
	dst, _ := keyFor(t, to)
	if err := v.debit(src, value); err != nil {
		return fmt.Errorf("%s from %s: %w", t, from.Hex(), err)
	}
	v.credit(dst, value)
	return nil
}

func (v *Vault) Unwrap(_ context.Context, wrapped common.Address, from, to common.Address, value *uint256.Int) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	src := balanceKey{class: asset.WETH, contract: wrapped, account: from}
	if err := v.debit(src, value); err != nil {
		return fmt.Errorf("unwrap from %s: %w", from.Hex(), err)
	}
	v.credit(balanceKey{class: asset.ETH, account: to}, value)
	return nil
}

func (v *Vault) moveToken(t asset.Type, from, to common.Address, value *uint256.Int) error {
	if !value.Eq(uint256.NewInt(1)) {
		return fmt.Errorf("%s value %s: %w", t, value, errs.ErrNonFungibleValue)
	}
	contract, id, err := t.Token()
	if err != nil {
		return err
	}
	k := tokenKey{contract, id.String()}
	if v.owners[k] != from {
		return fmt.Errorf("%s held by %s, not %s: %w", t, v.owners[k].Hex(), from.Hex(), errs.ErrNotTokenOwner)
	}
	v.setOwner(k, to)
	return nil
}

// Snapshot returns an id for the current state
func (v *Vault) Snapshot() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	id := v.nextRevisionID
	v.nextRevisionID++
	v.validRevisions = append(v.validRevisions, revision{id, len(v.journal)})
	return id
}

// RevertToSnapshot undoes every change made since the snapshot was taken
func (v *Vault) RevertToSnapshot(id int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	idx := -1
	for i, r := range v.validRevisions {
		if r.id == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		panic(fmt.Errorf("revision id %v cannot be reverted", id))
	}
	snapshot := v.validRevisions[idx].journalIndex

	for i := len(v.journal) - 1; i >= snapshot; i-- {
		v.journal[i](v)
	}
	v.journal = v.journal[:snapshot]
	v.validRevisions = v.validRevisions[:idx]
}

func (v *Vault) balance(k balanceKey) *uint256.Int {
	if b, ok := v.balances[k]; ok {
		return b
	}
	return new(uint256.Int)
}

func (v *Vault) setBalance(k balanceKey, amount *uint256.Int) {
	prev, existed := v.balances[k]
	v.journal = append(v.journal, func(v *Vault) {
		if existed {
			v.balances[k] = prev
		} else {
			delete(v.balances, k)
		}
	})
	v.balances[k] = amount
}

func (v *Vault) credit(k balanceKey, value *uint256.Int) {
	v.setBalance(k, new(uint256.Int).Add(v.balance(k), value))
}

func (v *Vault) debit(k balanceKey, value *uint256.Int) error {
	next, underflow := new(uint256.Int).SubOverflow(v.balance(k), value)
	if underflow {
		return fmt.Errorf("have %s, need %s: %w", v.balance(k), value, errs.ErrInsufficientBalance)
	}
	v.setBalance(k, next)
	return nil
}

func (v *Vault) setOwner(k tokenKey, owner common.Address) {
	prev, existed := v.owners[k]
	v.journal = append(v.journal, func(v *Vault) {
		if existed {
			v.owners[k] = prev
		} else {
			delete(v.owners, k)
		}
	})
	v.owners[k] = owner
}

var _ Executor = (*Vault)(nil)
