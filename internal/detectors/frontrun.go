package detectors

import (
	"fmt"
	"math/big"

	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/models"

	"github.com/rs/zerolog"
)

var _ interfaces.Detector = (*FrontRunDetector)(nil)

// FrontRunDetector flags a new transaction when an earlier buffered
// transaction targets the same recipient from a different sender at a
// strictly higher gas price, with the delta above the configured threshold.
// The new transaction is the prospective victim.
type FrontRunDetector struct {
	minGasDelta *big.Int
	confidence  float64
	logger      zerolog.Logger
}

func NewFrontRunDetector(minGasDelta *big.Int, confidence float64, logger zerolog.Logger) *FrontRunDetector {
	return &FrontRunDetector{
		minGasDelta: minGasDelta,
		confidence:  confidence,
		logger:      logger,
	}
}

func (d *FrontRunDetector) Name() string { return "front-running" }

func (d *FrontRunDetector) Category() models.ThreatCategory { return models.CategoryFrontRunning }

func (d *FrontRunDetector) Detect(window []models.TransactionEvent, ev models.TransactionEvent) []models.ThreatFinding {
	if ev.To == "" {
		return nil
	}

	var findings []models.ThreatFinding
	for _, tx := range window {
		if tx.Hash == ev.Hash || tx.To != ev.To || tx.From == ev.From {
			continue
		}
		// A poll snapshot stamps one observation time on the whole batch, so
		// batch-mates tie; window position already reflects arrival order.
		// Skip only entries observed strictly later than the new transaction.
		if tx.ObservedAt.After(ev.ObservedAt) {
			continue
		}
		if tx.GasPriceWei().Cmp(ev.GasPriceWei()) <= 0 {
			continue
		}

		delta := new(big.Int).Sub(tx.GasPriceWei(), ev.GasPriceWei())
		if delta.Cmp(d.minGasDelta) < 0 {
			continue
		}

		finding := newFinding(models.CategoryFrontRunning, models.SeverityHigh, ev.Network, d.confidence,
			fmt.Sprintf("Potential front-running of %s by %s (gas delta %s wei)", ev.Hash, tx.From, delta.String()))
		finding.TxHashes = []string{tx.Hash, ev.Hash}
		finding.Addresses = []string{tx.From, ev.From, ev.To}
		finding.Metadata["front_runner"] = tx.From
		finding.Metadata["victim"] = ev.From
		finding.Metadata["gas_delta_wei"] = delta.String()

		d.logger.Debug().
			Str("victim", ev.Hash).
			Str("frontRunner", tx.Hash).
			Msg("Front-running pattern matched")

		findings = append(findings, finding)
	}

	return findings
}
