package pool

import (
	"context"
	"sort"
	"sync"
	"time"

	"chain-sentinel/internal/config"
	"chain-sentinel/internal/models"
	"chain-sentinel/internal/rpc"

	"github.com/rs/zerolog"
)

// Endpoint is one RPC URL for one network together with its health
// bookkeeping. Endpoints live for the process lifetime; they are marked
// unhealthy, never removed.
type Endpoint struct {
	URL          string
	Network      models.NetworkName
	Client       *rpc.Client
	Status       models.EndpointStatus
	RequestCount uint64
	ErrorCount   uint64
	LastSuccess  time.Time
}

// NetworkStats is the per-network connection statistics surface.
type NetworkStats struct {
	Network          models.NetworkName `json:"network"`
	TotalEndpoints   int                `json:"total_endpoints"`
	HealthyEndpoints int                `json:"healthy_endpoints"`
	RequestCount     uint64             `json:"request_count"`
	ErrorCount       uint64             `json:"error_count"`
	Degraded         bool               `json:"degraded"`
}

// Pool manages the redundant endpoint set per network. Health state is
// written only by the health-check loop; request call sites record
// success/failure counts.
type Pool struct {
	mu            sync.RWMutex
	endpoints     map[models.NetworkName][]*Endpoint
	maxErrors     uint64
	checkInterval time.Duration
	logger        zerolog.Logger

	degradedLogged map[models.NetworkName]bool
}

// New builds a pool from the configured networks. A network with endpoints
// that all fail later is kept and skipped, never fatal.
func New(networks map[models.NetworkName]config.NetworkConfig, httpTimeout, checkInterval time.Duration, maxErrors int, logger zerolog.Logger) *Pool {
	p := &Pool{
		endpoints:      make(map[models.NetworkName][]*Endpoint),
		maxErrors:      uint64(maxErrors),
		checkInterval:  checkInterval,
		logger:         logger,
		degradedLogged: make(map[models.NetworkName]bool),
	}

	for network, cfg := range networks {
		for _, url := range cfg.RPCEndpoints {
			client := rpc.NewClient(url, cfg.APIKey, cfg.RateLimit, httpTimeout, &p.logger)
			p.endpoints[network] = append(p.endpoints[network], &Endpoint{
				URL:     url,
				Network: network,
				Client:  client,
				Status:  models.StatusDisconnected,
			})
		}
		logger.Info().
			Str("network", network.String()).
			Int("endpoints", len(cfg.RPCEndpoints)).
			Msg("Registered network endpoints")
	}

	return p
}

// Start runs the health-check loop until ctx is cancelled. One immediate
// pass marks initially reachable endpoints connected.
func (p *Pool) Start(ctx context.Context) {
	go func() {
		p.checkAll(ctx)

		ticker := time.NewTicker(p.checkInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.logger.Info().Msg("Connection pool health checker shutting down")
				return
			case <-ticker.C:
				p.checkAll(ctx)
			}
		}
	}()
}

func (p *Pool) checkAll(ctx context.Context) {
	p.mu.RLock()
	all := make([]*Endpoint, 0)
	for _, eps := range p.endpoints {
		all = append(all, eps...)
	}
	p.mu.RUnlock()

	for _, ep := range all {
		height, err := ep.Client.BlockNumber(ctx)

		p.mu.Lock()
		if err != nil {
			ep.Status = models.StatusError
			ep.ErrorCount++
			p.mu.Unlock()
			p.logger.Debug().
				Err(err).
				Str("network", ep.Network.String()).
				Str("endpoint", ep.URL).
				Msg("Endpoint health check failed")
			continue
		}
		ep.Status = models.StatusConnected
		ep.ErrorCount = 0
		ep.LastSuccess = time.Now()
		p.degradedLogged[ep.Network] = false
		p.mu.Unlock()

		p.logger.Debug().
			Str("network", ep.Network.String()).
			Str("endpoint", ep.URL).
			Uint64("height", height).
			Msg("Endpoint healthy")
	}
}

// GetBestEndpoint returns the preferred endpoint for a network. Healthy
// endpoints are ranked by ascending error count, then descending request
// count. With no healthy endpoint the first configured one is returned as a
// degraded fallback; ok is false only for unknown networks.
func (p *Pool) GetBestEndpoint(network models.NetworkName) (*Endpoint, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	eps := p.endpoints[network]
	if len(eps) == 0 {
		return nil, false
	}

	healthy := make([]*Endpoint, 0, len(eps))
	for _, ep := range eps {
		if ep.Status == models.StatusConnected && ep.ErrorCount < p.maxErrors {
			healthy = append(healthy, ep)
		}
	}

	if len(healthy) == 0 {
		if !p.degradedLogged[network] {
			p.logger.Warn().
				Str("network", network.String()).
				Str("endpoint", eps[0].URL).
				Msg("No healthy endpoint, falling back to first configured")
			p.degradedLogged[network] = true
		}
		return eps[0], true
	}

	sort.SliceStable(healthy, func(i, j int) bool {
		if healthy[i].ErrorCount != healthy[j].ErrorCount {
			return healthy[i].ErrorCount < healthy[j].ErrorCount
		}
		return healthy[i].RequestCount > healthy[j].RequestCount
	})

	return healthy[0], true
}

// Degraded reports whether a network currently has no healthy endpoint.
func (p *Pool) Degraded(network models.NetworkName) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, ep := range p.endpoints[network] {
		if ep.Status == models.StatusConnected && ep.ErrorCount < p.maxErrors {
			return false
		}
	}
	return true
}

// Networks lists the configured network names.
func (p *Pool) Networks() []models.NetworkName {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]models.NetworkName, 0, len(p.endpoints))
	for network := range p.endpoints {
		names = append(names, network)
	}
	return names
}

// Stats returns connection statistics for one network.
func (p *Pool) Stats(network models.NetworkName) NetworkStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := NetworkStats{Network: network}
	for _, ep := range p.endpoints[network] {
		stats.TotalEndpoints++
		stats.RequestCount += ep.RequestCount
		stats.ErrorCount += ep.ErrorCount
		if ep.Status == models.StatusConnected && ep.ErrorCount < p.maxErrors {
			stats.HealthyEndpoints++
		}
	}
	stats.Degraded = stats.HealthyEndpoints == 0
	return stats
}

// AllStats returns connection statistics for every configured network.
func (p *Pool) AllStats() []NetworkStats {
	out := make([]NetworkStats, 0)
	for _, network := range p.Networks() {
		out = append(out, p.Stats(network))
	}
	return out
}

func (p *Pool) recordSuccess(ep *Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ep.RequestCount++
	ep.LastSuccess = time.Now()
}

func (p *Pool) recordFailure(ep *Endpoint) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ep.RequestCount++
	ep.ErrorCount++
}

// Close releases every endpoint's HTTP client.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, eps := range p.endpoints {
		for _, ep := range eps {
			ep.Client.Close()
		}
	}
}
