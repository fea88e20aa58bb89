package pipeline

import (
	"errors"
	"strings"
	"sync"
	"time"

	"chain-sentinel/internal/config"
	"chain-sentinel/internal/database"
	"chain-sentinel/internal/models"
	"chain-sentinel/internal/pool"
	"chain-sentinel/internal/risk"
	"chain-sentinel/internal/validation"
)

func newDefaultScorer(cfg *config.Config) Scorer {
	return risk.NewScorer(cfg.Risk.HighGasThreshold, cfg.Detectors.ExchangeRouters, cfg.Detectors.LendingProtocols, cfg.Risk.SampleWindow)
}

// Status is the health/status surface of the whole pipeline.
type Status struct {
	ActiveNetworks   int                 `json:"active_networks"`
	TotalNetworks    int                 `json:"total_networks"`
	PendingTracked   uint64              `json:"pending_transactions_tracked"`
	SuspiciousCount  uint64              `json:"suspicious_transaction_count"`
	WorstRecentTier  models.Severity     `json:"worst_recent_tier"`
	Degraded         bool                `json:"degraded"`
	ConnectionStats  []pool.NetworkStats `json:"connection_stats"`
	DroppedEvents    uint64              `json:"dropped_events"`
	ObservedAt       time.Time           `json:"observed_at"`
	WorstTierMinutes int                 `json:"worst_tier_window_minutes"`
}

const worstTierWindow = 15 * time.Minute

func (pl *Pipeline) recordScore(ev models.TransactionEvent, score models.RiskScore, findings []models.ThreatFinding) {
	pl.statusMu.Lock()
	defer pl.statusMu.Unlock()

	if ev.Pending {
		pl.pendingTracked++
	}
	if len(findings) > 0 {
		pl.suspicious++
	}
	pl.scores.put(ev.Hash, score)
}

// RiskScoreForTransaction returns the most recent score computed for a
// transaction hash.
func (pl *Pipeline) RiskScoreForTransaction(hash string) (models.RiskScore, bool) {
	pl.statusMu.Lock()
	defer pl.statusMu.Unlock()
	return pl.scores.get(strings.ToLower(hash))
}

// RiskScoreForAddress derives an address score from the retained findings
// that involve it: the highest confidence among them, tiered by the worst
// severity observed.
func (pl *Pipeline) RiskScoreForAddress(address string) (models.RiskScore, error) {
	if err := validation.ValidateAddress(address); err != nil {
		return models.RiskScore{}, err
	}
	address = strings.ToLower(address)

	worst := models.SeverityLow
	maxConfidence := 0.0
	involved := false
	for _, f := range pl.dispatcher.RecentFindings(time.Time{}, "", "") {
		for _, addr := range f.Addresses {
			if strings.ToLower(addr) != address {
				continue
			}
			involved = true
			if f.Severity.Rank() > worst.Rank() {
				worst = f.Severity
			}
			if f.Confidence > maxConfidence {
				maxConfidence = f.Confidence
			}
		}
	}

	score := models.RiskScore{
		Value:      0,
		Tier:       models.SeverityLow,
		Factors:    map[string]float64{},
		ComputedAt: time.Now(),
	}
	if involved {
		score.Value = maxConfidence
		score.Tier = worst
		score.Factors["max_finding_confidence"] = maxConfidence
	}
	return score, nil
}

// RecentFindings lists retained findings from the last given number of
// hours, optionally filtered by network and category. hours <= 0 means no
// time bound.
func (pl *Pipeline) RecentFindings(hours int, network models.NetworkName, category models.ThreatCategory) []models.ThreatFinding {
	var since time.Time
	if hours > 0 {
		since = time.Now().Add(-time.Duration(hours) * time.Hour)
	}
	return pl.dispatcher.RecentFindings(since, network, category)
}

// PersistedFindings reads findings from the audit trail, which reaches back
// further than the bounded in-memory history.
func (pl *Pipeline) PersistedFindings(since time.Time, limit int) ([]database.Finding, error) {
	if !pl.persist {
		return nil, errors.New("database persistence disabled")
	}
	return database.GetRecentFindings(since, limit)
}

// RecentDeliveries lists the retained alert delivery records.
func (pl *Pipeline) RecentDeliveries() []models.AlertDelivery {
	return pl.dispatcher.RecentDeliveries()
}

// ConnectionStats returns per-network endpoint statistics.
func (pl *Pipeline) ConnectionStats() []pool.NetworkStats {
	return pl.pool.AllStats()
}

// Status reports the overall pipeline state. Queries stay best-effort when
// networks are unhealthy; the Degraded flag marks that condition explicitly.
func (pl *Pipeline) Status() Status {
	stats := pl.pool.AllStats()

	active := 0
	degraded := false
	for _, s := range stats {
		if s.HealthyEndpoints > 0 {
			active++
		} else {
			degraded = true
		}
	}

	var dropped uint64
	for _, rt := range pl.runtimes {
		dropped += rt.stream.Dropped()
	}

	worst := models.SeverityLow
	for _, f := range pl.dispatcher.RecentFindings(time.Now().Add(-worstTierWindow), "", "") {
		if f.Severity.Rank() > worst.Rank() {
			worst = f.Severity
		}
	}

	pl.statusMu.Lock()
	pending := pl.pendingTracked
	suspicious := pl.suspicious
	pl.statusMu.Unlock()

	return Status{
		ActiveNetworks:   active,
		TotalNetworks:    len(stats),
		PendingTracked:   pending,
		SuspiciousCount:  suspicious,
		WorstRecentTier:  worst,
		Degraded:         degraded,
		ConnectionStats:  stats,
		DroppedEvents:    dropped,
		ObservedAt:       time.Now(),
		WorstTierMinutes: int(worstTierWindow / time.Minute),
	}
}

// scoreCache is a bounded hash -> score map with FIFO eviction.
type scoreCache struct {
	mu    sync.Mutex
	m     map[string]models.RiskScore
	order []string
	cap   int
}

func newScoreCache(capacity int) *scoreCache {
	return &scoreCache{
		m:   make(map[string]models.RiskScore, capacity),
		cap: capacity,
	}
}

func (c *scoreCache) put(hash string, score models.RiskScore) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.m[hash]; !ok {
		c.order = append(c.order, hash)
		for len(c.order) > c.cap {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.m, oldest)
		}
	}
	c.m[hash] = score
}

func (c *scoreCache) get(hash string) (models.RiskScore, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	score, ok := c.m[hash]
	return score, ok
}
