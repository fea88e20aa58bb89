package detectors

import (
	"fmt"
	"math/big"
	"time"

	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/models"

	"github.com/rs/zerolog"
)

var _ interfaces.Detector = (*ArbitrageDetector)(nil)

// ArbitrageDetector flags two transactions from one sender touching two
// distinct known exchange routers within a short window at similar gas
// prices. Restricted to the configured router allow-list.
type ArbitrageDetector struct {
	routers    addressSet
	window     time.Duration
	gasBandPct float64
	confidence float64
	logger     zerolog.Logger
}

func NewArbitrageDetector(routers []string, window time.Duration, gasBandPct, confidence float64, logger zerolog.Logger) *ArbitrageDetector {
	return &ArbitrageDetector{
		routers:    newAddressSet(routers),
		window:     window,
		gasBandPct: gasBandPct,
		confidence: confidence,
		logger:     logger,
	}
}

func (d *ArbitrageDetector) Name() string { return "arbitrage" }

func (d *ArbitrageDetector) Category() models.ThreatCategory { return models.CategoryArbitrage }

func (d *ArbitrageDetector) Detect(window []models.TransactionEvent, ev models.TransactionEvent) []models.ThreatFinding {
	if !d.routers.contains(ev.To) {
		return nil
	}

	var findings []models.ThreatFinding
	for _, tx := range window {
		if tx.Hash == ev.Hash || tx.From != ev.From {
			continue
		}
		if !d.routers.contains(tx.To) || tx.To == ev.To {
			continue
		}
		if ev.ObservedAt.Sub(tx.ObservedAt) > d.window {
			continue
		}
		if !gasPricesSimilar(tx.GasPriceWei(), ev.GasPriceWei(), d.gasBandPct) {
			continue
		}

		finding := newFinding(models.CategoryArbitrage, models.SeverityMedium, ev.Network, d.confidence,
			fmt.Sprintf("Possible arbitrage by %s across routers %s and %s", ev.From, tx.To, ev.To))
		finding.TxHashes = []string{tx.Hash, ev.Hash}
		finding.Addresses = []string{ev.From, tx.To, ev.To}
		finding.Metadata["sender"] = ev.From
		finding.Metadata["router_a"] = tx.To
		finding.Metadata["router_b"] = ev.To

		d.logger.Debug().
			Str("sender", ev.From).
			Str("txA", tx.Hash).
			Str("txB", ev.Hash).
			Msg("Arbitrage pattern matched")

		findings = append(findings, finding)
	}

	return findings
}

// gasPricesSimilar reports whether two gas prices are within bandPct percent
// of the larger one.
func gasPricesSimilar(a, b *big.Int, bandPct float64) bool {
	if a.Sign() == 0 && b.Sign() == 0 {
		return true
	}

	max := a
	if b.Cmp(a) > 0 {
		max = b
	}

	diff := new(big.Int).Sub(a, b)
	diff.Abs(diff)

	// diff*100 <= max*bandPct
	lhs := new(big.Float).SetInt(new(big.Int).Mul(diff, big.NewInt(100)))
	rhs := new(big.Float).Mul(new(big.Float).SetInt(max), big.NewFloat(bandPct))
	return lhs.Cmp(rhs) <= 0
}
