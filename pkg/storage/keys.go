package storage

import (
	"github.com/ethereum/go-ethereum/common"
)

// Key schema for Pebble storage
//
//   fill:<32-byte order hash> → fill record (flag byte || 32-byte amount)
//   meta:schema               → schema version
//
// Prefixes keep room for other record kinds in the same database.

const (
	prefixFill = "fill:"
	keySchema  = "meta:schema"
)

// fillKey returns the key for an order's fill record
func fillKey(h common.Hash) []byte {
	return append([]byte(prefixFill), h[:]...)
}

// fillPrefix returns the prefix shared by all fill records
func fillPrefix() []byte {
	return []byte(prefixFill)
}

// keyUpperBound returns the exclusive upper bound for a prefix scan
func keyUpperBound(prefix []byte) []byte {
	bound := make([]byte, len(prefix))
	copy(bound, prefix)
	bound[len(bound)-1]++
	return bound
}
