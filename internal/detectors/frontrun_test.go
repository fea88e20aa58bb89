package detectors

import (
	"math/big"
	"testing"
	"time"

	"chain-sentinel/internal/models"

	"github.com/rs/zerolog"
)

func TestFrontRunDetectorFlagsVictim(t *testing.T) {
	logger := zerolog.New(nil)
	detector := NewFrontRunDetector(big.NewInt(10), 0.85, logger)

	base := time.Now()
	x1 := makeEvent("0xaa", "0xattacker", "0xrouter", 100, base)
	x2 := makeEvent("0xbb", "0xattacker", "0xrouter", 100, base)
	victim := makeEvent("0xcc", "0xvictim", "0xrouter", 50, base.Add(time.Second))

	findings := detector.Detect([]models.TransactionEvent{x1, x2}, victim)

	// One finding per higher-gas transaction targeting the same recipient.
	if len(findings) != 2 {
		t.Fatalf("expected 2 findings, got %d", len(findings))
	}
	for _, f := range findings {
		if !containsHash(f.TxHashes, "0xcc") {
			t.Errorf("finding must reference the victim hash: %v", f.TxHashes)
		}
		if f.Confidence != 0.85 {
			t.Errorf("expected confidence 0.85, got %f", f.Confidence)
		}
	}
}

func TestFrontRunDetectorComparesSameTickArrivals(t *testing.T) {
	logger := zerolog.New(nil)
	detector := NewFrontRunDetector(big.NewInt(10), 0.85, logger)

	// Polling stamps one observation time on the whole pending snapshot, so a
	// front-runner and its victim usually tie; buffered order decides who
	// came first.
	tick := time.Now()
	front := makeEvent("0xaa", "0xattacker", "0xrouter", 200, tick)
	victim := makeEvent("0xcc", "0xvictim", "0xrouter", 100, tick)

	findings := detector.Detect([]models.TransactionEvent{front}, victim)
	if len(findings) != 1 {
		t.Fatalf("expected 1 finding for a same-tick pair, got %d", len(findings))
	}
	if findings[0].Metadata["front_runner"] != "0xattacker" {
		t.Errorf("expected front-runner metadata, got %v", findings[0].Metadata)
	}
}

func TestFrontRunDetectorGasDeltaThreshold(t *testing.T) {
	logger := zerolog.New(nil)
	detector := NewFrontRunDetector(big.NewInt(100), 0.85, logger)

	base := time.Now()
	front := makeEvent("0xaa", "0xattacker", "0xrouter", 120, base)
	victim := makeEvent("0xcc", "0xvictim", "0xrouter", 50, base.Add(time.Second))

	// Delta of 70 is below the configured threshold of 100.
	if findings := detector.Detect([]models.TransactionEvent{front}, victim); len(findings) != 0 {
		t.Fatalf("expected no findings below gas-delta threshold, got %d", len(findings))
	}
}

func TestFrontRunDetectorIgnoresSameSenderAndLaterArrivals(t *testing.T) {
	logger := zerolog.New(nil)
	detector := NewFrontRunDetector(big.NewInt(10), 0.85, logger)

	base := time.Now()

	// Same sender resubmitting at higher gas is not front-running.
	own := makeEvent("0xaa", "0xvictim", "0xrouter", 100, base)
	victim := makeEvent("0xcc", "0xvictim", "0xrouter", 50, base.Add(time.Second))
	if findings := detector.Detect([]models.TransactionEvent{own}, victim); len(findings) != 0 {
		t.Fatalf("expected no findings for same sender, got %d", len(findings))
	}

	// A buffered transaction that arrived after the new one cannot front-run it.
	late := makeEvent("0xaa", "0xattacker", "0xrouter", 100, base.Add(time.Minute))
	if findings := detector.Detect([]models.TransactionEvent{late}, victim); len(findings) != 0 {
		t.Fatalf("expected no findings for later arrival, got %d", len(findings))
	}
}
