package detectors

import (
	"math/big"
	"time"

	"chain-sentinel/internal/models"
)

// makeEvent builds a pending transaction event for detector tests.
func makeEvent(hash, from, to string, gasPrice int64, observedAt time.Time) models.TransactionEvent {
	return models.TransactionEvent{
		Hash:       hash,
		Network:    models.Ethereum,
		From:       from,
		To:         to,
		Value:      big.NewInt(0),
		GasPrice:   big.NewInt(gasPrice),
		Pending:    true,
		ObservedAt: observedAt,
	}
}

// makeConfirmed builds a confirmed transaction event in a given block.
func makeConfirmed(hash, from, to string, block uint64, observedAt time.Time) models.TransactionEvent {
	ev := makeEvent(hash, from, to, 100, observedAt)
	ev.Pending = false
	ev.BlockNumber = block
	return ev
}

func containsHash(hashes []string, hash string) bool {
	for _, h := range hashes {
		if h == hash {
			return true
		}
	}
	return false
}
