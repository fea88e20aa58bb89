package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ThreatCategory identifies which detector produced a finding.
type ThreatCategory string

const (
	CategoryFrontRunning ThreatCategory = "front_running"
	CategorySandwich     ThreatCategory = "sandwich"
	CategoryArbitrage    ThreatCategory = "arbitrage"
	CategoryFlashLoan    ThreatCategory = "flash_loan"
	CategoryContract     ThreatCategory = "contract_vulnerability"
	CategoryBehavioral   ThreatCategory = "behavioral"
)

func (c ThreatCategory) String() string {
	return string(c)
}

// Severity is the discrete threat tier shared by findings and risk scores.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) String() string {
	return string(s)
}

var severityRank = map[Severity]int{
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordinal of a severity; unknown severities rank lowest.
func (s Severity) Rank() int {
	return severityRank[s]
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() >= other.Rank()
}

// ThreatFinding is the output of one detector pass. Immutable; findings
// always reference at least one observed transaction hash.
type ThreatFinding struct {
	ID          string
	Category    ThreatCategory
	Severity    Severity
	Network     NetworkName
	TxHashes    []string
	Addresses   []string
	Confidence  float64
	Description string
	Metadata    map[string]string
	DetectedAt  time.Time
}

// RiskScore is a bounded score with its thresholded tier.
type RiskScore struct {
	Value      float64
	Tier       Severity
	Factors    map[string]float64
	ComputedAt time.Time
}

// NewID returns a random hex identifier with a short type prefix.
func NewID(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}
