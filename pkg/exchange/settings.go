package exchange

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/hyperswap/pkg/errs"
	"github.com/uhyunpark/hyperswap/pkg/numeric"
)

// Settings are the administrator-set parameters of the exchange
type Settings struct {
	ProtocolFeeBps     uint64
	FeeReceiver        common.Address
	AllowanceAuthority common.Address
	WrappedNative      common.Address
	// Owner may change the fee and authority settings
	Owner common.Address
}

func (s Settings) validate() error {
	if s.ProtocolFeeBps > numeric.BpsBase {
		return fmt.Errorf("%d bps: %w", s.ProtocolFeeBps, errs.ErrFeeTooHigh)
	}
	return nil
}

// Settings returns a copy of the current settings. It does not wait for an
// in-flight settlement.
func (e *Exchange) Settings() Settings {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.settings
}

func (e *Exchange) updateSettings(caller common.Address, name string, apply func(*Settings)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if caller != e.settings.Owner {
		return fmt.Errorf("%s by %s: %w", name, caller.Hex(), errs.ErrNotOwner)
	}
	next := e.settings
	apply(&next)
	if err := next.validate(); err != nil {
		return err
	}
	e.cfgMu.Lock()
	e.settings = next
	e.cfgMu.Unlock()
	e.Logger.Infow("settings_updated", "setting", name, "by", caller.Hex())
	return nil
}

// SetProtocolFee changes the protocol fee; at most 10000 bps
func (e *Exchange) SetProtocolFee(caller common.Address, bps uint64) error {
	return e.updateSettings(caller, "protocol_fee", func(s *Settings) { s.ProtocolFeeBps = bps })
}

func (e *Exchange) SetFeeReceiver(caller, receiver common.Address) error {
	return e.updateSettings(caller, "fee_receiver", func(s *Settings) { s.FeeReceiver = receiver })
}

func (e *Exchange) SetAllowanceAuthority(caller, authority common.Address) error {
	return e.updateSettings(caller, "allowance_authority", func(s *Settings) { s.AllowanceAuthority = authority })
}
