package detectors

import (
	"testing"
	"time"

	"chain-sentinel/internal/models"

	"github.com/rs/zerolog"
)

func TestSandwichDetectorFindsTriple(t *testing.T) {
	logger := zerolog.New(nil)
	detector := NewSandwichDetector(0.9, logger)

	base := time.Now()
	front := makeEvent("0xfront", "0xattacker", "0xpool", 200, base)
	victim := makeEvent("0xvictim", "0xtrader", "0xpool", 100, base.Add(time.Second))
	back := makeEvent("0xback", "0xattacker", "0xpool", 150, base.Add(2*time.Second))

	findings := detector.Detect([]models.TransactionEvent{front, victim}, back)

	if len(findings) != 1 {
		t.Fatalf("expected exactly 1 finding, got %d", len(findings))
	}

	f := findings[0]
	if f.Category != models.CategorySandwich {
		t.Errorf("expected sandwich category, got %s", f.Category)
	}
	if f.Confidence != 0.9 {
		t.Errorf("expected confidence 0.9, got %f", f.Confidence)
	}
	for _, hash := range []string{"0xfront", "0xvictim", "0xback"} {
		if !containsHash(f.TxHashes, hash) {
			t.Errorf("finding missing hash %s: %v", hash, f.TxHashes)
		}
	}
}

func TestSandwichDetectorNoFalsePositive(t *testing.T) {
	logger := zerolog.New(nil)
	detector := NewSandwichDetector(0.9, logger)

	base := time.Now()

	// A single high-gas transaction alone must not be flagged.
	lone := makeEvent("0xlone", "0xwhale", "0xpool", 500, base)
	if findings := detector.Detect(nil, lone); len(findings) != 0 {
		t.Fatalf("expected no findings for lone transaction, got %d", len(findings))
	}

	// Front and back with different senders are not a sandwich.
	front := makeEvent("0xfront", "0xalice", "0xpool", 200, base)
	victim := makeEvent("0xvictim", "0xtrader", "0xpool", 100, base.Add(time.Second))
	back := makeEvent("0xback", "0xbob", "0xpool", 150, base.Add(2*time.Second))
	if findings := detector.Detect([]models.TransactionEvent{front, victim}, back); len(findings) != 0 {
		t.Fatalf("expected no findings for mismatched senders, got %d", len(findings))
	}

	// Back not pricing above the victim is not a sandwich.
	cheapBack := makeEvent("0xback", "0xalice", "0xpool", 100, base.Add(2*time.Second))
	if findings := detector.Detect([]models.TransactionEvent{front, victim}, cheapBack); len(findings) != 0 {
		t.Fatalf("expected no findings for cheap back-run, got %d", len(findings))
	}
}
