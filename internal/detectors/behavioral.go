package detectors

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"sync"
	"time"

	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/models"

	"github.com/rs/zerolog"
)

var _ interfaces.Detector = (*BehavioralDetector)(nil)

// BehavioralDetector keeps per-address rolling counters and flags anomalous
// wallets independent of any single transaction: rapid transfer bursts and
// high-value movements. The counters are owned exclusively by this detector.
type BehavioralDetector struct {
	reader        interfaces.ChainReader
	rapidCount    int
	rapidWindow   time.Duration
	highValue     *big.Int
	confidence    float64
	lookupTimeout time.Duration
	logger        zerolog.Logger

	mu       sync.Mutex
	activity map[string][]transfer
	flagged  map[string]time.Time
}

// transfer is one counted sighting in an address's rolling activity window.
type transfer struct {
	hash string
	at   time.Time
}

func NewBehavioralDetector(reader interfaces.ChainReader, rapidCount int, rapidWindow time.Duration, highValue *big.Int, confidence float64, logger zerolog.Logger) *BehavioralDetector {
	return &BehavioralDetector{
		reader:        reader,
		rapidCount:    rapidCount,
		rapidWindow:   rapidWindow,
		highValue:     highValue,
		confidence:    confidence,
		lookupTimeout: 10 * time.Second,
		logger:        logger,
		activity:      make(map[string][]transfer),
		flagged:       make(map[string]time.Time),
	}
}

func (d *BehavioralDetector) Name() string { return "behavioral" }

func (d *BehavioralDetector) Category() models.ThreatCategory { return models.CategoryBehavioral }

func (d *BehavioralDetector) Detect(window []models.TransactionEvent, ev models.TransactionEvent) []models.ThreatFinding {
	if ev.From == "" {
		return nil
	}

	var findings []models.ThreatFinding

	if count, burst := d.recordActivity(ev.From, ev.Hash, ev.ObservedAt); burst {
		finding := newFinding(models.CategoryBehavioral, models.SeverityMedium, ev.Network, d.confidence,
			fmt.Sprintf("Rapid transfer burst from %s: %d transactions within %s", ev.From, count, d.rapidWindow))
		finding.TxHashes = []string{ev.Hash}
		finding.Addresses = []string{ev.From}
		finding.Metadata["address"] = ev.From
		finding.Metadata["tx_count"] = strconv.Itoa(count)
		findings = append(findings, finding)
	}

	if d.highValue != nil && d.highValue.Sign() > 0 && ev.ValueWei().Cmp(d.highValue) >= 0 {
		finding := newFinding(models.CategoryBehavioral, models.SeverityHigh, ev.Network, d.confidence,
			fmt.Sprintf("High-value transfer of %s wei from %s", ev.ValueWei().String(), ev.From))
		finding.TxHashes = []string{ev.Hash}
		finding.Addresses = []string{ev.From}
		finding.Metadata["address"] = ev.From
		finding.Metadata["value_wei"] = ev.ValueWei().String()
		d.enrichBalance(&finding, ev)
		findings = append(findings, finding)
	}

	return findings
}

// recordActivity records a transfer sighting, prunes the rolling window and
// reports whether the burst threshold was crossed. A hash already in the
// window is not counted again, so the block monitor's confirmed re-emission
// of a pending transaction leaves the count unchanged. Once flagged, an
// address is not re-flagged until a full window has elapsed.
func (d *BehavioralDetector) recordActivity(address, hash string, at time.Time) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	cutoff := at.Add(-d.rapidWindow)
	recent := d.activity[address][:0]
	resighted := false
	for _, tr := range d.activity[address] {
		if !tr.at.After(cutoff) {
			continue
		}
		if tr.hash == hash {
			resighted = true
		}
		recent = append(recent, tr)
	}
	if !resighted {
		recent = append(recent, transfer{hash: hash, at: at})
	}
	d.activity[address] = recent

	if resighted || len(recent) < d.rapidCount {
		return len(recent), false
	}
	if last, ok := d.flagged[address]; ok && at.Sub(last) < d.rapidWindow {
		return len(recent), false
	}
	d.flagged[address] = at
	return len(recent), true
}

// enrichBalance annotates a high-value finding with the sender's current
// balance, best-effort.
func (d *BehavioralDetector) enrichBalance(finding *models.ThreatFinding, ev models.TransactionEvent) {
	if d.reader == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.lookupTimeout)
	defer cancel()

	balance, err := d.reader.GetBalance(ctx, ev.Network, ev.From)
	if err != nil {
		d.logger.Debug().Err(err).Str("address", ev.From).Msg("Balance lookup failed")
		return
	}
	finding.Metadata["balance_wei"] = balance.String()
}
