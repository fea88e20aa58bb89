package risk

import (
	"math/big"
	"strings"
	"sync"
	"time"

	"chain-sentinel/internal/models"
)

// Feature weights of the fixed-weight scoring scheme. Deterministic and
// explainable; a learned model can later replace it behind the same Score
// contract.
const (
	weightGasPercentile   = 0.3
	weightValuePercentile = 0.2
	weightCalldata        = 0.2
	weightMEVSurface      = 0.3

	mevRouterBonus  = 0.5
	mevHighGasBonus = 0.3
	mevLendingBonus = 0.4

	// Calldata length at which the complexity feature saturates.
	calldataSaturation = 1024
)

// Tier thresholds.
const (
	tierCritical = 0.8
	tierHigh     = 0.6
	tierMedium   = 0.4
)

// Scorer computes bounded risk scores from transaction features. Gas-price
// and value percentiles are taken against a rolling per-network sample
// window.
type Scorer struct {
	highGas      *big.Int
	routers      map[string]struct{}
	lending      map[string]struct{}
	sampleWindow int

	mu           sync.Mutex
	gasSamples   map[models.NetworkName]*sampleRing
	valueSamples map[models.NetworkName]*sampleRing
}

// NewScorer creates a scorer. Router and lending allow-lists feed the MEV
// surface sub-score.
func NewScorer(highGas *big.Int, routers, lending []string, sampleWindow int) *Scorer {
	if sampleWindow <= 0 {
		sampleWindow = 500
	}
	return &Scorer{
		highGas:      highGas,
		routers:      toSet(routers),
		lending:      toSet(lending),
		sampleWindow: sampleWindow,
		gasSamples:   make(map[models.NetworkName]*sampleRing),
		valueSamples: make(map[models.NetworkName]*sampleRing),
	}
}

// Score computes the weighted feature sum for one event, clamped to [0,1].
// Detector findings are annotated in the factor map for explainability; the
// numeric score is a function of the four transaction features alone.
func (s *Scorer) Score(ev models.TransactionEvent, findings []models.ThreatFinding) models.RiskScore {
	gas := bigToFloat(ev.GasPriceWei())
	value := bigToFloat(ev.ValueWei())

	s.mu.Lock()
	gasPct := s.ring(s.gasSamples, ev.Network).percentile(gas)
	valuePct := s.ring(s.valueSamples, ev.Network).percentile(value)
	s.ring(s.gasSamples, ev.Network).add(gas)
	s.ring(s.valueSamples, ev.Network).add(value)
	s.mu.Unlock()

	calldata := float64(len(ev.Input)) / calldataSaturation
	if calldata > 1 {
		calldata = 1
	}

	mev := s.mevSurface(ev)

	score := weightGasPercentile*gasPct +
		weightValuePercentile*valuePct +
		weightCalldata*calldata +
		weightMEVSurface*mev
	score = clamp01(score)

	factors := map[string]float64{
		"gas_percentile":   gasPct,
		"value_percentile": valuePct,
		"calldata":         calldata,
		"mev_surface":      mev,
	}
	if len(findings) > 0 {
		maxConfidence := 0.0
		for _, f := range findings {
			if f.Confidence > maxConfidence {
				maxConfidence = f.Confidence
			}
		}
		factors["max_finding_confidence"] = maxConfidence
	}

	return models.RiskScore{
		Value:      score,
		Tier:       Tier(score),
		Factors:    factors,
		ComputedAt: time.Now(),
	}
}

// mevSurface sub-scores how attractive the transaction is as an MEV target,
// capped at 1.
func (s *Scorer) mevSurface(ev models.TransactionEvent) float64 {
	surface := 0.0
	to := strings.ToLower(ev.To)
	if _, ok := s.routers[to]; ok {
		surface += mevRouterBonus
	}
	if s.highGas != nil && ev.GasPriceWei().Cmp(s.highGas) > 0 {
		surface += mevHighGasBonus
	}
	if _, ok := s.lending[to]; ok {
		surface += mevLendingBonus
	}
	if surface > 1 {
		surface = 1
	}
	return surface
}

// Tier maps a score onto the discrete severity bands.
func Tier(score float64) models.Severity {
	switch {
	case score >= tierCritical:
		return models.SeverityCritical
	case score >= tierHigh:
		return models.SeverityHigh
	case score >= tierMedium:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

func (s *Scorer) ring(m map[models.NetworkName]*sampleRing, network models.NetworkName) *sampleRing {
	r, ok := m[network]
	if !ok {
		r = newSampleRing(s.sampleWindow)
		m[network] = r
	}
	return r
}

func toSet(addrs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		set[strings.ToLower(a)] = struct{}{}
	}
	return set
}

func bigToFloat(v *big.Int) float64 {
	f, _ := new(big.Float).SetInt(v).Float64()
	return f
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// sampleRing is a fixed-size rolling sample of observed feature values.
type sampleRing struct {
	buf  []float64
	next int
	size int
}

func newSampleRing(capacity int) *sampleRing {
	return &sampleRing{buf: make([]float64, capacity)}
}

func (r *sampleRing) add(v float64) {
	r.buf[r.next] = v
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// percentile returns the fraction of retained samples at or below v. With no
// samples yet it returns a neutral 0.5.
func (r *sampleRing) percentile(v float64) float64 {
	if r.size == 0 {
		return 0.5
	}
	below := 0
	for i := 0; i < r.size; i++ {
		if r.buf[i] <= v {
			below++
		}
	}
	return float64(below) / float64(r.size)
}
