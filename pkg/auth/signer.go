// Package auth checks that an order was authorized by its maker and that a
// match allowance from the allowance authority accompanies it.
package auth

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	hcrypto "github.com/uhyunpark/hyperswap/pkg/crypto"
	"github.com/uhyunpark/hyperswap/pkg/errs"
)

// Signer authorizes digests on behalf of one account
type Signer interface {
	Verify(ctx context.Context, hash common.Hash, sig []byte) error
}

// SignatureValidator answers isValidSignature for a contract account.
// Implementations that call back into the exchange must pass on ctx, or
// the call blocks on the exchange lock instead of failing as re-entrant.
type SignatureValidator interface {
	IsValidSignature(ctx context.Context, account common.Address, hash common.Hash, sig []byte) (bool, error)
}

// DirectKeySigner is an externally owned account: the signature must recover to it
type DirectKeySigner struct {
	Account common.Address
}

func (s DirectKeySigner) Verify(_ context.Context, hash common.Hash, sig []byte) error {
	recovered, err := hcrypto.RecoverAddress(hash, sig)
	if err != nil {
		return fmt.Errorf("%v: %w", err, errs.ErrBadSignature)
	}
	if recovered != s.Account {
		return fmt.Errorf("recovered %s, want %s: %w", recovered.Hex(), s.Account.Hex(), errs.ErrBadSignature)
	}
	return nil
}

// DelegatedContractSigner is a contract account that validates signatures itself
type DelegatedContractSigner struct {
	Account   common.Address
	Validator SignatureValidator
}

func (s DelegatedContractSigner) Verify(ctx context.Context, hash common.Hash, sig []byte) error {
	ok, err := s.Validator.IsValidSignature(ctx, s.Account, hash, sig)
	if err != nil {
		return fmt.Errorf("validator %s: %v: %w", s.Account.Hex(), err, errs.ErrBadDelegatedSignature)
	}
	if !ok {
		return fmt.Errorf("validator %s rejected: %w", s.Account.Hex(), errs.ErrBadDelegatedSignature)
	}
	return nil
}

var (
	_ Signer = DirectKeySigner{}
	_ Signer = DelegatedContractSigner{}
)
