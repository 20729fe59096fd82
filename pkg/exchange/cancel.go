package exchange

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperswap/pkg/errs"
	"github.com/uhyunpark/hyperswap/pkg/ledger"
	"github.com/uhyunpark/hyperswap/pkg/order"
)

// Cancel blocks every future match of o. Only the maker may cancel, and
// zero-salt orders have nothing to cancel.
func (e *Exchange) Cancel(ctx context.Context, caller common.Address, o *order.Order) (common.Hash, error) {
	hashes, err := e.BatchCancel(ctx, caller, []*order.Order{o})
	if err != nil {
		return common.Hash{}, err
	}
	return hashes[0], nil
}

// BatchCancel cancels all orders or none
func (e *Exchange) BatchCancel(ctx context.Context, caller common.Address, orders []*order.Order) ([]common.Hash, error) {
	if _, err := enter(ctx); err != nil {
		return nil, err
	}

	hashes, err := e.cancelLocked(caller, orders)
	if err != nil {
		return nil, err
	}

	sinks := e.eventSinks()
	for _, h := range hashes {
		for _, s := range sinks {
			s.OnCancel(CancelEvent{Hash: h, Maker: caller})
		}
	}
	return hashes, nil
}

func (e *Exchange) cancelLocked(caller common.Address, orders []*order.Order) ([]common.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	hashes, err := e.cancel(caller, orders)
	if e.Metrics != nil {
		if err != nil {
			e.Metrics.RecordCancel(errs.CategoryOf(err).String(), len(orders))
		} else {
			e.Metrics.RecordCancel("ok", len(orders))
		}
	}
	if err != nil {
		e.Logger.Infow("cancel_rejected", "caller", caller.Hex(), "orders", len(orders), "err", err)
		return nil, err
	}
	for _, h := range hashes {
		e.Logger.Infow("order_cancelled", "hash", h.Hex(), "maker", caller.Hex())
	}
	return hashes, nil
}

func (e *Exchange) cancel(caller common.Address, orders []*order.Order) ([]common.Hash, error) {
	hashes := make([]common.Hash, len(orders))
	var updates []ledger.Entry
	seen := make(map[common.Hash]bool, len(orders))

	for i, o := range orders {
		if o == nil {
			return nil, fmt.Errorf("order %d missing: %w", i, errs.ErrMalformedData)
		}
		if o.Maker != caller {
			return nil, fmt.Errorf("order %d maker %s, caller %s: %w", i, o.Maker.Hex(), caller.Hex(), errs.ErrNotMaker)
		}
		if o.SelfSubmitted() {
			return nil, fmt.Errorf("order %d: %w", i, errs.ErrZeroSaltCancel)
		}
		h := e.hasher.Hash(o)
		hashes[i] = h
		if seen[h] {
			continue
		}
		seen[h] = true

		entry, err := e.ledger.Entry(h)
		if err != nil {
			return nil, err
		}
		// already cancelled: nothing to write
		if !entry.Cancelled {
			updates = append(updates, ledger.CancelUpdate(h))
		}
	}

	if len(updates) > 0 {
		if _, err := e.ledger.Apply(updates); err != nil {
			return nil, err
		}
	}
	return hashes, nil
}

// CancelSigned cancels orders on behalf of a maker who signed a
// CancelOrders request over their hashes
func (e *Exchange) CancelSigned(ctx context.Context, maker common.Address, orders []*order.Order, sig []byte) ([]common.Hash, error) {
	req := order.CancelOrders{Maker: maker, OrderHashes: make([]common.Hash, len(orders))}
	for i, o := range orders {
		if o == nil {
			return nil, fmt.Errorf("order %d missing: %w", i, errs.ErrMalformedData)
		}
		req.OrderHashes[i] = e.hasher.Hash(o)
	}
	if err := e.verifier.VerifyCancel(ctx, req, sig); err != nil {
		return nil, err
	}
	return e.BatchCancel(ctx, maker, orders)
}
