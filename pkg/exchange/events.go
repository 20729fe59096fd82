package exchange

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperswap/pkg/transfer"
)

// MatchEvent is emitted once per settled match
type MatchEvent struct {
	LeftHash     common.Hash
	RightHash    common.Hash
	LeftMaker    common.Address
	RightMaker   common.Address
	NewLeftFill  *uint256.Int
	NewRightFill *uint256.Int
}

// CancelEvent is emitted per cancelled order hash
type CancelEvent struct {
	Hash  common.Hash
	Maker common.Address
}

// EventSink receives events after the operation that produced them has
// fully succeeded and the exchange lock has been released. Sinks may read
// settings or start new exchange calls.
type EventSink interface {
	OnMatch(ev MatchEvent, transfers []transfer.Record)
	OnCancel(ev CancelEvent)
}

// SinkFuncs adapts plain functions to EventSink; nil fields are skipped
type SinkFuncs struct {
	Match  func(MatchEvent, []transfer.Record)
	Cancel func(CancelEvent)
}

func (s SinkFuncs) OnMatch(ev MatchEvent, transfers []transfer.Record) {
	if s.Match != nil {
		s.Match(ev, transfers)
	}
}

func (s SinkFuncs) OnCancel(ev CancelEvent) {
	if s.Cancel != nil {
		s.Cancel(ev)
	}
}

// AddSink registers a sink for subsequent events
func (e *Exchange) AddSink(s EventSink) {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()
	e.sinks = append(e.sinks, s)
}

func (e *Exchange) eventSinks() []EventSink {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return append([]EventSink(nil), e.sinks...)
}
