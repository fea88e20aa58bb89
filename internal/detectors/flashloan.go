package detectors

import (
	"fmt"
	"strconv"

	"chain-sentinel/internal/dedup"
	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/models"

	"github.com/rs/zerolog"
)

var _ interfaces.Detector = (*FlashLoanDetector)(nil)

// FlashLoanDetector consumes confirmed events. A transaction to a known
// lending protocol followed in the same mined block by at least one more
// transaction from the same sender produces exactly one finding per
// (sender, block) pair.
type FlashLoanDetector struct {
	lending    addressSet
	confidence float64
	fired      *dedup.SeenSet
	logger     zerolog.Logger
}

func NewFlashLoanDetector(lendingProtocols []string, confidence float64, logger zerolog.Logger) *FlashLoanDetector {
	return &FlashLoanDetector{
		lending:    newAddressSet(lendingProtocols),
		confidence: confidence,
		fired:      dedup.NewSeenSet(4096),
		logger:     logger,
	}
}

func (d *FlashLoanDetector) Name() string { return "flash-loan" }

func (d *FlashLoanDetector) Category() models.ThreatCategory { return models.CategoryFlashLoan }

func (d *FlashLoanDetector) Detect(window []models.TransactionEvent, ev models.TransactionEvent) []models.ThreatFinding {
	if !ev.Confirmed() {
		return nil
	}

	// Collect this sender's activity in the same block: a lending call plus
	// any follow-up transactions.
	var lendingTx *models.TransactionEvent
	hashes := make([]string, 0, 4)
	for i := range window {
		tx := window[i]
		if tx.Hash == ev.Hash || tx.From != ev.From || tx.BlockNumber != ev.BlockNumber || !tx.Confirmed() {
			continue
		}
		if lendingTx == nil && d.lending.contains(tx.To) {
			lendingTx = &window[i]
			continue
		}
		hashes = append(hashes, tx.Hash)
	}
	if lendingTx == nil {
		// Either no lending call from this sender yet, or ev is the lending
		// call itself; follow-up transactions trigger detection.
		return nil
	}
	if ev.Hash != lendingTx.Hash {
		hashes = append(hashes, ev.Hash)
	}
	if len(hashes) == 0 {
		return nil
	}

	key := ev.From + "@" + strconv.FormatUint(ev.BlockNumber, 10)
	if d.fired.SeenOrAdd(key) {
		return nil
	}

	finding := newFinding(models.CategoryFlashLoan, models.SeverityHigh, ev.Network, d.confidence,
		fmt.Sprintf("Flash-loan pattern by %s in block %d via %s", ev.From, ev.BlockNumber, lendingTx.To))
	finding.TxHashes = append([]string{lendingTx.Hash}, hashes...)
	finding.Addresses = []string{ev.From, lendingTx.To}
	finding.Metadata["sender"] = ev.From
	finding.Metadata["lending_protocol"] = lendingTx.To
	finding.Metadata["block_number"] = strconv.FormatUint(ev.BlockNumber, 10)

	d.logger.Debug().
		Str("sender", ev.From).
		Uint64("block", ev.BlockNumber).
		Int("followUps", len(hashes)).
		Msg("Flash-loan pattern matched")

	return []models.ThreatFinding{finding}
}
