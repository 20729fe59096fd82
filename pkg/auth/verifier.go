package auth

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	hcrypto "github.com/uhyunpark/hyperswap/pkg/crypto"
	"github.com/uhyunpark/hyperswap/pkg/errs"
	"github.com/uhyunpark/hyperswap/pkg/order"
)

// Resolver both classifies accounts and validates contract signatures
type Resolver interface {
	ContractResolver
	SignatureValidator
}

// Verifier handles maker signature and match allowance verification
type Verifier struct {
	hasher   *order.Hasher
	resolver Resolver
}

// NewVerifier creates a verifier over hasher's domain
func NewVerifier(hasher *order.Hasher, resolver Resolver) *Verifier {
	return &Verifier{hasher: hasher, resolver: resolver}
}

// SignerFor picks the signer variant for account
func (v *Verifier) SignerFor(ctx context.Context, account common.Address) (Signer, error) {
	isContract, err := v.resolver.IsContract(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", account.Hex(), err)
	}
	if isContract {
		return DelegatedContractSigner{Account: account, Validator: v.resolver}, nil
	}
	return DirectKeySigner{Account: account}, nil
}

// VerifyOrder checks the maker's authorization of the order digest hash
func (v *Verifier) VerifyOrder(ctx context.Context, o *order.Order, hash common.Hash, sig []byte) error {
	signer, err := v.SignerFor(ctx, o.Maker)
	if err != nil {
		return err
	}
	return signer.Verify(ctx, hash, sig)
}

// VerifyAllowance checks that authority allowed matching orderHash until expiry.
// now is unix seconds; the allowance is valid while expiry >= now.
func (v *Verifier) VerifyAllowance(orderHash common.Hash, expiry uint64, sig []byte, authority common.Address, now uint64) error {
	if len(sig) == 0 {
		return fmt.Errorf("order %s: %w", orderHash.Hex(), errs.ErrMissingAllowance)
	}
	if expiry < now {
		return fmt.Errorf("expired at %d, now %d: %w", expiry, now, errs.ErrAllowanceExpired)
	}
	digest := v.hasher.AllowanceHash(order.MatchAllowance{OrderHash: orderHash, ExpirationTime: expiry})
	if !hcrypto.VerifySignature(authority, digest, sig) {
		return fmt.Errorf("order %s: %w", orderHash.Hex(), errs.ErrBadAllowanceSignature)
	}
	return nil
}

// VerifyCancel checks a maker-signed cancellation request
func (v *Verifier) VerifyCancel(ctx context.Context, c order.CancelOrders, sig []byte) error {
	signer, err := v.SignerFor(ctx, c.Maker)
	if err != nil {
		return err
	}
	return signer.Verify(ctx, v.hasher.CancelHash(c), sig)
}
