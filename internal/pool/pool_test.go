package pool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"chain-sentinel/internal/config"
	"chain-sentinel/internal/models"

	"github.com/rs/zerolog"
)

// newRPCServer serves eth_blockNumber and fails with HTTP 503 while the flag
// is set, so tests can take an endpoint down and bring it back.
func newRPCServer(t *testing.T, failing *atomic.Bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing != nil && failing.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x10"}`))
	}))
}

func newTestPool(t *testing.T, urls ...string) *Pool {
	t.Helper()
	networks := map[models.NetworkName]config.NetworkConfig{
		models.Ethereum: {RPCEndpoints: urls, RateLimit: 100},
	}
	return New(networks, 5*time.Second, time.Minute, 5, zerolog.New(nil))
}

func TestHealthCheckMarksEndpoints(t *testing.T) {
	var down atomic.Bool
	healthy := newRPCServer(t, nil)
	defer healthy.Close()
	flaky := newRPCServer(t, &down)
	defer flaky.Close()
	down.Store(true)

	p := newTestPool(t, healthy.URL, flaky.URL)
	defer p.Close()

	p.checkAll(context.Background())

	ep, ok := p.GetBestEndpoint(models.Ethereum)
	if !ok {
		t.Fatal("expected an endpoint for a configured network")
	}
	if ep.URL != healthy.URL {
		t.Fatalf("expected the healthy endpoint to be preferred, got %s", ep.URL)
	}

	stats := p.Stats(models.Ethereum)
	if stats.TotalEndpoints != 2 || stats.HealthyEndpoints != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if stats.Degraded {
		t.Error("network with one healthy endpoint must not be degraded")
	}
}

func TestDegradedFallbackAndRecovery(t *testing.T) {
	var down atomic.Bool
	server := newRPCServer(t, &down)
	defer server.Close()
	down.Store(true)

	p := newTestPool(t, server.URL)
	defer p.Close()

	p.checkAll(context.Background())

	// Every endpoint unhealthy: the first configured one is still returned so
	// callers can keep trying, and the network reports degraded.
	ep, ok := p.GetBestEndpoint(models.Ethereum)
	if !ok || ep == nil {
		t.Fatal("expected degraded fallback endpoint")
	}
	if ep.URL != server.URL {
		t.Fatalf("expected first configured endpoint, got %s", ep.URL)
	}
	if !p.Degraded(models.Ethereum) {
		t.Error("expected network to report degraded")
	}

	// A successful health check restores normal operation.
	down.Store(false)
	p.checkAll(context.Background())

	if p.Degraded(models.Ethereum) {
		t.Error("expected recovery after successful health check")
	}
	ep, _ = p.GetBestEndpoint(models.Ethereum)
	if ep.Status != models.StatusConnected {
		t.Errorf("expected connected endpoint after recovery, got %s", ep.Status)
	}
	if ep.ErrorCount != 0 {
		t.Errorf("expected error count reset on recovery, got %d", ep.ErrorCount)
	}
}

func TestGetBestEndpointRanking(t *testing.T) {
	a := newRPCServer(t, nil)
	defer a.Close()
	b := newRPCServer(t, nil)
	defer b.Close()

	p := newTestPool(t, a.URL, b.URL)
	defer p.Close()

	p.checkAll(context.Background())

	eps := p.endpoints[models.Ethereum]
	p.recordFailure(eps[0])
	p.recordSuccess(eps[1])

	ep, ok := p.GetBestEndpoint(models.Ethereum)
	if !ok {
		t.Fatal("expected an endpoint")
	}
	if ep.URL != b.URL {
		t.Fatalf("expected lower-error endpoint to rank first, got %s", ep.URL)
	}
}

func TestGetBestEndpointUnknownNetwork(t *testing.T) {
	server := newRPCServer(t, nil)
	defer server.Close()

	p := newTestPool(t, server.URL)
	defer p.Close()

	if _, ok := p.GetBestEndpoint(models.Polygon); ok {
		t.Error("expected ok=false for a network with no endpoints")
	}
}
