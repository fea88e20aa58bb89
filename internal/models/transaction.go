package models

import (
	"math/big"
	"time"
)

// TransactionEvent is the normalized representation of a pending or confirmed
// transaction. Immutable once created; every detector consumes this shape.
type TransactionEvent struct {
	Hash        string
	Network     NetworkName
	From        string
	To          string // empty for contract creation
	Value       *big.Int
	GasPrice    *big.Int
	GasLimit    uint64
	Nonce       uint64
	Input       []byte
	Pending     bool
	BlockNumber uint64 // zero until confirmed
	ObservedAt  time.Time
	ExplorerURL string
}

// Confirmed reports whether the event has been observed in a mined block.
func (e TransactionEvent) Confirmed() bool {
	return e.BlockNumber > 0
}

// GasPriceWei returns the gas price, treating nil as zero.
func (e TransactionEvent) GasPriceWei() *big.Int {
	if e.GasPrice == nil {
		return new(big.Int)
	}
	return e.GasPrice
}

// ValueWei returns the transferred value, treating nil as zero.
func (e TransactionEvent) ValueWei() *big.Int {
	if e.Value == nil {
		return new(big.Int)
	}
	return e.Value
}
