// Package pipeline assembles the detection pipeline: connection pool,
// ingestion monitors, detectors, risk scorer and alert dispatcher, owned by
// one explicitly constructed object rather than process-global state.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"chain-sentinel/internal/alerts"
	"chain-sentinel/internal/buffer"
	"chain-sentinel/internal/config"
	"chain-sentinel/internal/database"
	"chain-sentinel/internal/detectors"
	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/metrics"
	"chain-sentinel/internal/models"
	"chain-sentinel/internal/monitors"
	"chain-sentinel/internal/pool"
	"chain-sentinel/internal/stream"
	"chain-sentinel/internal/validation"

	"github.com/rs/zerolog"
)

// networkRuntime bundles the per-network pipeline state. The ring buffer is
// written only by this network's monitors and read by detectors triggered
// from this network's stream; there is no cross-network buffer access.
type networkRuntime struct {
	network  models.NetworkName
	ring     *buffer.Ring
	stream   *stream.Stream
	monitors []interfaces.Monitor
}

// Pipeline owns every component of the threat-detection flow.
type Pipeline struct {
	cfg        *config.Config
	pool       *pool.Pool
	runtimes   map[models.NetworkName]*networkRuntime
	detectors  []interfaces.Detector
	scorer     Scorer
	dispatcher *alerts.Dispatcher
	emitter    interfaces.FindingEmitter
	metrics    *metrics.PipelineMetrics
	logger     zerolog.Logger
	persist    bool

	observerMu sync.Mutex
	observers  []interfaces.ThreatObserver

	statusMu       sync.Mutex
	pendingTracked uint64
	suspicious     uint64
	scores         *scoreCache

	wg sync.WaitGroup
}

// Scorer is the risk-scoring contract the pipeline depends on; the
// fixed-weight scorer satisfies it and a learned model may replace it.
type Scorer interface {
	Score(ev models.TransactionEvent, findings []models.ThreatFinding) models.RiskScore
}

// New constructs a pipeline from configuration. Allow-list validation errors
// are configuration errors and therefore fatal.
func New(cfg *config.Config, emitter interfaces.FindingEmitter, m *metrics.PipelineMetrics, logger zerolog.Logger) (*Pipeline, error) {
	if len(cfg.Networks) == 0 {
		return nil, fmt.Errorf("no networks configured")
	}
	if err := validation.ValidateAddressList(cfg.Detectors.ExchangeRouters); err != nil {
		return nil, fmt.Errorf("exchange router allow-list: %w", err)
	}
	if err := validation.ValidateAddressList(cfg.Detectors.LendingProtocols); err != nil {
		return nil, fmt.Errorf("lending protocol allow-list: %w", err)
	}

	p := pool.New(cfg.Networks, cfg.HTTP.Timeout, cfg.Monitor.HealthCheckInterval, cfg.Monitor.MaxEndpointErrors, logger)

	pl := &Pipeline{
		cfg:        cfg,
		pool:       p,
		runtimes:   make(map[models.NetworkName]*networkRuntime),
		dispatcher: alerts.NewDispatcher(logger, m),
		emitter:    emitter,
		metrics:    m,
		logger:     logger,
		persist:    cfg.Database.Enabled,
		scores:     newScoreCache(1000),
	}

	pl.detectors = []interfaces.Detector{
		detectors.NewFrontRunDetector(cfg.Detectors.FrontRunMinGasDelta, cfg.Detectors.FrontRunConfidence, logger),
		detectors.NewSandwichDetector(cfg.Detectors.SandwichConfidence, logger),
		detectors.NewArbitrageDetector(cfg.Detectors.ExchangeRouters, cfg.Detectors.ArbitrageWindow, cfg.Detectors.ArbitrageGasBandPct, cfg.Detectors.ArbitrageConfidence, logger),
		detectors.NewFlashLoanDetector(cfg.Detectors.LendingProtocols, cfg.Detectors.FlashLoanConfidence, logger),
		detectors.NewContractDetector(p, nil, cfg.HTTP.Timeout, logger),
		detectors.NewBehavioralDetector(p, cfg.Detectors.RapidTransferCount, cfg.Detectors.RapidTransferWindow, cfg.Detectors.HighValueThreshold, cfg.Detectors.BehavioralConfidence, logger),
	}
	pl.scorer = newDefaultScorer(cfg)

	for network, netCfg := range cfg.Networks {
		ring := buffer.NewRing(cfg.Monitor.RingCapacity)
		st := stream.New(cfg.Monitor.StreamBuffer)
		rt := &networkRuntime{network: network, ring: ring, stream: st}

		mempoolBase := monitors.NewBaseMonitor(network, p, ring, st, cfg.Monitor.SeenCapacity, m, netCfg.ExplorerBaseURL, logger)
		rt.monitors = append(rt.monitors, monitors.NewMempoolMonitor(mempoolBase, cfg.Monitor.PollInterval))

		if netCfg.PushEndpoint != "" {
			pushBase := monitors.NewBaseMonitor(network, p, ring, st, cfg.Monitor.SeenCapacity, m, netCfg.ExplorerBaseURL, logger)
			// Poll and push both ingest pending transactions; sharing one
			// seen set keeps a hash unique per network no matter which
			// strategy saw it first. The block monitor keeps its own set so
			// confirmations still re-emit.
			pushBase.Seen = mempoolBase.Seen
			rt.monitors = append(rt.monitors, monitors.NewPushMonitor(pushBase, netCfg.PushEndpoint, cfg.Monitor.ReconnectBaseDelay, cfg.Monitor.ReconnectMaxAttempts))
		}

		blockBase := monitors.NewBaseMonitor(network, p, ring, st, cfg.Monitor.SeenCapacity, m, netCfg.ExplorerBaseURL, logger)
		rt.monitors = append(rt.monitors, monitors.NewBlockMonitor(blockBase, cfg.Monitor.BlockPollInterval))

		pl.runtimes[network] = rt
	}

	pl.registerChannels()

	return pl, nil
}

// registerChannels installs every channel the configuration carries
// credentials for.
func (pl *Pipeline) registerChannels() {
	timeout := pl.cfg.HTTP.Timeout
	ch := pl.cfg.Channels

	if ch.SMTP.Host != "" {
		pl.dispatcher.RegisterChannel(alerts.NewEmailChannel(ch.SMTP))
	}
	if ch.SMS.ProviderURL != "" {
		pl.dispatcher.RegisterChannel(alerts.NewSMSChannel(ch.SMS, timeout))
	}
	for i, url := range ch.Webhook.URLs {
		name := "webhook"
		if i > 0 {
			name = fmt.Sprintf("webhook-%d", i+1)
		}
		pl.dispatcher.RegisterChannel(alerts.NewWebhookChannel(name, url, timeout))
	}
	if ch.Webhook.SlackURL != "" {
		pl.dispatcher.RegisterChannel(alerts.NewSlackChannel(ch.Webhook.SlackURL, timeout))
	}
	if ch.Webhook.DiscordURL != "" {
		pl.dispatcher.RegisterChannel(alerts.NewDiscordChannel(ch.Webhook.DiscordURL, timeout))
	}
}

// Start launches the health checker, every monitor and one detection
// consumer per network.
func (pl *Pipeline) Start(ctx context.Context) error {
	pl.pool.Start(ctx)

	for _, rt := range pl.runtimes {
		for _, mon := range rt.monitors {
			if err := mon.Start(ctx); err != nil {
				// A single failing monitor never takes down its siblings.
				pl.logger.Error().
					Err(err).
					Str("network", mon.Network().String()).
					Str("strategy", mon.Strategy()).
					Msg("Failed to start monitor")
			}
		}

		pl.wg.Add(1)
		go pl.consume(ctx, rt)
	}

	pl.logger.Info().
		Int("networks", len(pl.runtimes)).
		Int("detectors", len(pl.detectors)).
		Msg("Detection pipeline started")
	return nil
}

// consume is the single consumer of one network's event stream. Detectors
// run synchronously here; each pass is a bounded window scan.
func (pl *Pipeline) consume(ctx context.Context, rt *networkRuntime) {
	defer pl.wg.Done()

	for {
		select {
		case <-ctx.Done():
			pl.logger.Info().Str("network", rt.network.String()).Msg("Detection consumer shutting down")
			return
		case ev := <-rt.stream.Events():
			pl.process(rt, ev)
		}
	}
}

func (pl *Pipeline) process(rt *networkRuntime, ev models.TransactionEvent) {
	window := rt.ring.Snapshot()

	var findings []models.ThreatFinding
	for _, det := range pl.detectors {
		found := det.Detect(window, ev)
		findings = append(findings, found...)
	}

	score := pl.scorer.Score(ev, findings)
	pl.recordScore(ev, score, findings)

	for _, finding := range findings {
		pl.handleFinding(finding)
	}

	if pl.metrics != nil {
		pl.metrics.HealthyEndpoints.WithLabelValues(rt.network.String()).
			Set(float64(pl.pool.Stats(rt.network).HealthyEndpoints))
	}
}

func (pl *Pipeline) handleFinding(finding models.ThreatFinding) {
	if pl.metrics != nil {
		pl.metrics.FindingsEmitted.WithLabelValues(finding.Category.String(), finding.Severity.String()).Inc()
	}

	pl.notifyObservers(finding)
	deliveries := pl.dispatcher.Dispatch(finding)

	if pl.emitter != nil {
		if err := pl.emitter.EmitFinding(finding); err != nil {
			pl.logger.Warn().Err(err).Str("finding", finding.ID).Msg("Finding emission failed")
		}
	}
	if pl.persist {
		if err := database.SaveFinding(finding); err != nil {
			pl.logger.Warn().Err(err).Str("finding", finding.ID).Msg("Finding persistence failed")
		}
		for _, delivery := range deliveries {
			if err := database.SaveDelivery(delivery); err != nil {
				pl.logger.Warn().Err(err).Str("alert", delivery.AlertID).Msg("Delivery persistence failed")
			}
		}
	}
}

// RegisterObserver adds a synchronous observer for every new finding.
func (pl *Pipeline) RegisterObserver(obs interfaces.ThreatObserver) {
	pl.observerMu.Lock()
	defer pl.observerMu.Unlock()
	pl.observers = append(pl.observers, obs)
}

// UnregisterObserver removes a previously registered observer.
func (pl *Pipeline) UnregisterObserver(obs interfaces.ThreatObserver) {
	pl.observerMu.Lock()
	defer pl.observerMu.Unlock()
	for i, existing := range pl.observers {
		if existing == obs {
			pl.observers = append(pl.observers[:i], pl.observers[i+1:]...)
			return
		}
	}
}

func (pl *Pipeline) notifyObservers(finding models.ThreatFinding) {
	pl.observerMu.Lock()
	observers := make([]interfaces.ThreatObserver, len(pl.observers))
	copy(observers, pl.observers)
	pl.observerMu.Unlock()

	for _, obs := range observers {
		obs.OnThreatFinding(finding)
	}
}

// AddRule validates and installs an alert rule. A rule referencing an
// unconfigured network is rejected.
func (pl *Pipeline) AddRule(rule models.AlertRule) error {
	if rule.Network != "" {
		if _, ok := pl.cfg.Networks[rule.Network]; !ok {
			return fmt.Errorf("alert rule %s: unknown network %q", rule.ID, rule.Network)
		}
	}
	return pl.dispatcher.AddRule(rule)
}

// RemoveRule deletes an alert rule by id.
func (pl *Pipeline) RemoveRule(id string) error {
	return pl.dispatcher.RemoveRule(id)
}

// SetRuleEnabled toggles an alert rule by id.
func (pl *Pipeline) SetRuleEnabled(id string, enabled bool) error {
	return pl.dispatcher.SetRuleEnabled(id, enabled)
}

// Rules returns a copy of the current rule table.
func (pl *Pipeline) Rules() []models.AlertRule {
	return pl.dispatcher.Rules()
}

// Wait blocks until every detection consumer has exited. Used to give
// in-flight deliveries a grace period on shutdown.
func (pl *Pipeline) Wait(grace time.Duration) {
	done := make(chan struct{})
	go func() {
		pl.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(grace):
		pl.logger.Warn().Msg("Shutdown grace period expired with consumers still running")
	}
}

// Close releases pooled connections.
func (pl *Pipeline) Close() {
	pl.pool.Close()
}
