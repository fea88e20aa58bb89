package detectors

import (
	"fmt"

	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/models"

	"github.com/rs/zerolog"
)

var _ interfaces.Detector = (*SandwichDetector)(nil)

// SandwichDetector looks for a (front, victim, back) triple targeting one
// recipient: front and back share a sender distinct from the victim's, and
// both price above the victim's gas price.
type SandwichDetector struct {
	confidence float64
	logger     zerolog.Logger
}

func NewSandwichDetector(confidence float64, logger zerolog.Logger) *SandwichDetector {
	return &SandwichDetector{confidence: confidence, logger: logger}
}

func (d *SandwichDetector) Name() string { return "sandwich" }

func (d *SandwichDetector) Category() models.ThreatCategory { return models.CategorySandwich }

func (d *SandwichDetector) Detect(window []models.TransactionEvent, ev models.TransactionEvent) []models.ThreatFinding {
	if ev.To == "" {
		return nil
	}

	// Same-recipient transactions in arrival order, the triggering event
	// last. Only triples completed by it are reported, so a sandwich already
	// in the window is not re-reported on later events.
	group := make([]models.TransactionEvent, 0, 8)
	for _, tx := range window {
		if tx.To != ev.To || tx.Hash == ev.Hash {
			continue
		}
		group = append(group, tx)
	}
	group = append(group, ev)
	if len(group) < 3 {
		return nil
	}
	back := ev

	var findings []models.ThreatFinding
	for i := 0; i < len(group)-1; i++ {
		for j := i + 1; j < len(group)-1; j++ {
			front, victim := group[i], group[j]
			if front.From != back.From || victim.From == front.From {
				continue
			}
			if front.GasPriceWei().Cmp(victim.GasPriceWei()) <= 0 {
				continue
			}
			if back.GasPriceWei().Cmp(victim.GasPriceWei()) <= 0 {
				continue
			}

			finding := newFinding(models.CategorySandwich, models.SeverityHigh, victim.Network, d.confidence,
				fmt.Sprintf("Sandwich attack on %s by %s targeting %s", victim.Hash, front.From, ev.To))
			finding.TxHashes = []string{front.Hash, victim.Hash, back.Hash}
			finding.Addresses = []string{front.From, victim.From, ev.To}
			finding.Metadata["attacker"] = front.From
			finding.Metadata["victim"] = victim.From
			finding.Metadata["recipient"] = ev.To

			d.logger.Debug().
				Str("front", front.Hash).
				Str("victim", victim.Hash).
				Str("back", back.Hash).
				Msg("Sandwich pattern matched")

			findings = append(findings, finding)
		}
	}

	return findings
}
