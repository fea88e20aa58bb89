package detectors

import (
	"testing"
	"time"

	"chain-sentinel/internal/models"

	"github.com/rs/zerolog"
)

const aaveV3 = "0x87870bca3f3fd6335c3f4ce8392d69350b4fa4e2"

func TestFlashLoanDetectorFiresOncePerSenderBlock(t *testing.T) {
	logger := zerolog.New(nil)
	detector := NewFlashLoanDetector([]string{aaveV3}, 0.88, logger)

	base := time.Now()
	lending := makeConfirmed("0xloan", "0xborrower", aaveV3, 42, base)
	follow1 := makeConfirmed("0xf1", "0xborrower", "0xdex1", 42, base)
	follow2 := makeConfirmed("0xf2", "0xborrower", "0xdex2", 42, base)

	// The lending call alone does not fire.
	if findings := detector.Detect([]models.TransactionEvent{lending}, lending); len(findings) != 0 {
		t.Fatalf("expected no findings for lending call alone, got %d", len(findings))
	}

	// First follow-up in the same block fires exactly once.
	findings := detector.Detect([]models.TransactionEvent{lending, follow1}, follow1)
	if len(findings) != 1 {
		t.Fatalf("expected exactly 1 finding, got %d", len(findings))
	}
	f := findings[0]
	if f.Category != models.CategoryFlashLoan {
		t.Errorf("expected flash_loan category, got %s", f.Category)
	}
	if !containsHash(f.TxHashes, "0xloan") || !containsHash(f.TxHashes, "0xf1") {
		t.Errorf("finding must reference lending and follow-up hashes: %v", f.TxHashes)
	}

	// A second follow-up for the same sender and block is suppressed.
	if findings := detector.Detect([]models.TransactionEvent{lending, follow1, follow2}, follow2); len(findings) != 0 {
		t.Fatalf("expected dedupe to suppress repeat finding, got %d", len(findings))
	}

	// A new block from the same sender fires again.
	lending2 := makeConfirmed("0xloan2", "0xborrower", aaveV3, 43, base.Add(12*time.Second))
	follow3 := makeConfirmed("0xf3", "0xborrower", "0xdex1", 43, base.Add(12*time.Second))
	if findings := detector.Detect([]models.TransactionEvent{lending2, follow3}, follow3); len(findings) != 1 {
		t.Fatalf("expected new block to fire again, got %d findings", len(findings))
	}
}

func TestFlashLoanDetectorIgnoresPendingAndOtherSenders(t *testing.T) {
	logger := zerolog.New(nil)
	detector := NewFlashLoanDetector([]string{aaveV3}, 0.88, logger)

	base := time.Now()
	lending := makeConfirmed("0xloan", "0xborrower", aaveV3, 42, base)

	// Pending events never match.
	pending := makeEvent("0xpend", "0xborrower", "0xdex1", 100, base)
	if findings := detector.Detect([]models.TransactionEvent{lending, pending}, pending); len(findings) != 0 {
		t.Fatalf("expected no findings for pending event, got %d", len(findings))
	}

	// Another sender's transaction in the same block never matches.
	other := makeConfirmed("0xother", "0xstranger", "0xdex1", 42, base)
	if findings := detector.Detect([]models.TransactionEvent{lending, other}, other); len(findings) != 0 {
		t.Fatalf("expected no findings for unrelated sender, got %d", len(findings))
	}
}
