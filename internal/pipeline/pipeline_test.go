package pipeline

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"chain-sentinel/internal/config"
	"chain-sentinel/internal/models"
	"chain-sentinel/internal/monitors"

	"github.com/rs/zerolog"
)

const routerA = "0x7a250d5630b4cf539739df2c5dacb4c659f2488d"

// newRPCServer answers any JSON-RPC method with a benign result so the
// pipeline's chain lookups (bytecode, balance) resolve to empty values.
func newRPCServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     interface{} `json:"id"`
			Method string      `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)

		result := "0x1"
		if req.Method == "eth_getCode" {
			result = "0x"
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}))
}

func testConfig(rpcURL string) *config.Config {
	return &config.Config{
		LogLevel: "disabled",
		HTTP:     config.HTTPConfig{Timeout: 5 * time.Second},
		Monitor: config.MonitorConfig{
			PollInterval:        time.Second,
			BlockPollInterval:   time.Second,
			HealthCheckInterval: time.Minute,
			RingCapacity:        100,
			SeenCapacity:        1000,
			StreamBuffer:        64,
			MaxEndpointErrors:   5,
		},
		Detectors: config.DetectorConfig{
			FrontRunMinGasDelta: big.NewInt(1),
			FrontRunConfidence:  0.85,
			SandwichConfidence:  0.9,
			ArbitrageConfidence: 0.75,
			ArbitrageWindow:     30 * time.Second,
			ArbitrageGasBandPct: 10,
			FlashLoanConfidence: 0.88,
			ExchangeRouters:     []string{routerA},
			RapidTransferCount:  100,
			RapidTransferWindow: time.Minute,
		},
		Risk: config.RiskConfig{
			HighGasThreshold: big.NewInt(100_000_000_000),
			SampleWindow:     100,
		},
		Networks: map[models.NetworkName]config.NetworkConfig{
			models.Ethereum: {RPCEndpoints: []string{rpcURL}, RateLimit: 1000},
		},
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	findings []models.ThreatFinding
}

func (o *recordingObserver) OnThreatFinding(f models.ThreatFinding) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.findings = append(o.findings, f)
}

func (o *recordingObserver) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.findings)
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	server := newRPCServer(t)
	t.Cleanup(server.Close)

	pl, err := New(testConfig(server.URL), nil, nil, zerolog.New(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(pl.Close)
	return pl
}

// ingest mimics a monitor: append to the window buffer, then run detection.
func ingest(pl *Pipeline, ev models.TransactionEvent) {
	rt := pl.runtimes[ev.Network]
	rt.ring.Append(ev)
	pl.process(rt, ev)
}

func pendingTx(hash, from, to string, gasPrice int64, at time.Time) models.TransactionEvent {
	return models.TransactionEvent{
		Hash:       hash,
		Network:    models.Ethereum,
		From:       from,
		To:         to,
		Value:      big.NewInt(0),
		GasPrice:   big.NewInt(gasPrice),
		Pending:    true,
		ObservedAt: at,
	}
}

func TestNewValidatesConfiguration(t *testing.T) {
	server := newRPCServer(t)
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Networks = nil
	if _, err := New(cfg, nil, nil, zerolog.New(nil)); err == nil {
		t.Error("expected error for zero networks")
	}

	cfg = testConfig(server.URL)
	cfg.Detectors.ExchangeRouters = []string{"not-an-address"}
	if _, err := New(cfg, nil, nil, zerolog.New(nil)); err == nil {
		t.Error("expected error for malformed router allow-list")
	}
}

func TestDetectionFlowEndToEnd(t *testing.T) {
	pl := newTestPipeline(t)

	obs := &recordingObserver{}
	pl.RegisterObserver(obs)

	base := time.Now()
	front := pendingTx("0xfront", "0xattacker", "0xpool", 200, base)
	victim := pendingTx("0xvictim", "0xtrader", "0xpool", 100, base.Add(time.Second))
	back := pendingTx("0xback", "0xattacker", "0xpool", 150, base.Add(2*time.Second))

	ingest(pl, front)
	ingest(pl, victim)
	ingest(pl, back)

	// The victim triggers front-running against the earlier high-gas
	// transaction; the back-run completes the sandwich.
	if obs.count() < 2 {
		t.Fatalf("expected front-running and sandwich findings, got %d", obs.count())
	}

	categories := map[models.ThreatCategory]bool{}
	for _, f := range obs.findings {
		categories[f.Category] = true
	}
	if !categories[models.CategoryFrontRunning] || !categories[models.CategorySandwich] {
		t.Errorf("missing expected categories: %v", categories)
	}

	// Every processed transaction has a retrievable score.
	for _, hash := range []string{"0xfront", "0xvictim", "0xback"} {
		score, ok := pl.RiskScoreForTransaction(hash)
		if !ok {
			t.Errorf("no score for %s", hash)
			continue
		}
		if score.Value < 0 || score.Value > 1 {
			t.Errorf("score for %s out of bounds: %f", hash, score.Value)
		}
	}

	status := pl.Status()
	if status.PendingTracked != 3 {
		t.Errorf("expected 3 pending tracked, got %d", status.PendingTracked)
	}
	if status.SuspiciousCount == 0 {
		t.Error("expected suspicious transactions counted")
	}
	if status.TotalNetworks != 1 {
		t.Errorf("expected 1 configured network, got %d", status.TotalNetworks)
	}

	// An address with no retained findings scores low.
	score, err := pl.RiskScoreForAddress("0x00000000000000000000000000000000000000aa")
	if err != nil {
		t.Fatalf("RiskScoreForAddress: %v", err)
	}
	if score.Tier != models.SeverityLow {
		t.Errorf("uninvolved address must score low, got %s", score.Tier)
	}
	if _, err := pl.RiskScoreForAddress("bogus"); err == nil {
		t.Error("expected validation error for malformed address")
	}

	pl.UnregisterObserver(obs)
	before := obs.count()
	ingest(pl, pendingTx("0xlate", "0xsomeone", "0xpool", 90, base.Add(3*time.Second)))
	if obs.count() != before {
		t.Error("unregistered observer must not receive findings")
	}
}

func TestPendingStrategiesShareSeenSet(t *testing.T) {
	server := newRPCServer(t)
	defer server.Close()

	cfg := testConfig(server.URL)
	net := cfg.Networks[models.Ethereum]
	net.PushEndpoint = "ws://127.0.0.1:0"
	cfg.Networks[models.Ethereum] = net

	pl, err := New(cfg, nil, nil, zerolog.New(nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer pl.Close()

	rt := pl.runtimes[models.Ethereum]
	var mempool *monitors.MempoolMonitor
	var push *monitors.PushMonitor
	var block *monitors.BlockMonitor
	for _, mon := range rt.monitors {
		switch m := mon.(type) {
		case *monitors.MempoolMonitor:
			mempool = m
		case *monitors.PushMonitor:
			push = m
		case *monitors.BlockMonitor:
			block = m
		}
	}
	if mempool == nil || push == nil || block == nil {
		t.Fatalf("expected poll, push and block monitors, got %d", len(rt.monitors))
	}

	// A pending hash must stay unique per network no matter which strategy
	// ingested it first.
	if mempool.Seen != push.Seen {
		t.Error("poll and push monitors must share one seen set")
	}
	// Confirmation re-emission relies on the block monitor's own set.
	if block.Seen == mempool.Seen {
		t.Error("block monitor must keep a separate seen set")
	}
}

func TestAddRuleRejectsUnknownNetwork(t *testing.T) {
	pl := newTestPipeline(t)

	rule := models.AlertRule{
		ID:       "polygon-only",
		Network:  models.Polygon,
		Channels: []string{"webhook"},
		Enabled:  true,
	}
	if err := pl.AddRule(rule); err == nil {
		t.Error("expected error for rule on unconfigured network")
	}
}

func TestRecentFindingsQuery(t *testing.T) {
	pl := newTestPipeline(t)

	base := time.Now()
	ingest(pl, pendingTx("0xfront", "0xattacker", "0xpool", 200, base))
	ingest(pl, pendingTx("0xvictim", "0xtrader", "0xpool", 100, base.Add(time.Second)))

	found := pl.RecentFindings(1, models.Ethereum, models.CategoryFrontRunning)
	if len(found) == 0 {
		t.Fatal("expected retained front-running finding")
	}
	if got := pl.RecentFindings(1, models.Polygon, ""); len(got) != 0 {
		t.Errorf("expected no findings for polygon, got %d", len(got))
	}
}
