package storage

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/uhyunpark/hyperswap/pkg/ledger"
)

const (
	flagFilled    byte = 0x00
	flagCancelled byte = 0x01

	fillRecordLen = 33
)

func encodeFill(e ledger.Entry) []byte {
	out := make([]byte, fillRecordLen)
	if e.Cancelled {
		out[0] = flagCancelled
	}
	if e.Filled != nil {
		amount := e.Filled.Bytes32()
		copy(out[1:], amount[:])
	}
	return out
}

func decodeFill(b []byte, e *ledger.Entry) error {
	if len(b) != fillRecordLen {
		return fmt.Errorf("fill record length %d, want %d", len(b), fillRecordLen)
	}
	switch b[0] {
	case flagFilled:
	case flagCancelled:
		e.Cancelled = true
	default:
		return fmt.Errorf("unknown fill flag 0x%02x", b[0])
	}
	e.Filled = new(uint256.Int).SetBytes32(b[1:])
	return nil
}
