// Package detectors implements the streaming pattern detectors. Each detector
// consumes the per-network recent-transaction window plus the triggering
// event and emits zero or more findings; none mutate shared state beyond
// their own lookup tables and counters.
package detectors

import (
	"strings"
	"time"

	"chain-sentinel/internal/models"
)

// addressSet is a lowercase allow-list lookup.
type addressSet map[string]struct{}

func newAddressSet(addrs []string) addressSet {
	set := make(addressSet, len(addrs))
	for _, a := range addrs {
		set[strings.ToLower(a)] = struct{}{}
	}
	return set
}

func (s addressSet) contains(addr string) bool {
	_, ok := s[strings.ToLower(addr)]
	return ok
}

func newFinding(category models.ThreatCategory, severity models.Severity, network models.NetworkName, confidence float64, description string) models.ThreatFinding {
	return models.ThreatFinding{
		ID:          models.NewID("tf"),
		Category:    category,
		Severity:    severity,
		Network:     network,
		Confidence:  confidence,
		Description: description,
		Metadata:    make(map[string]string),
		DetectedAt:  time.Now(),
	}
}
