package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"chain-sentinel/internal/pipeline"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var isReady int32

// SetReady flips the readiness gate once the pipeline has started.
func SetReady(ready bool) {
	if ready {
		atomic.StoreInt32(&isReady, 1)
	} else {
		atomic.StoreInt32(&isReady, 0)
	}
}

func LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// ReadinessHandler reports ready once the pipeline runs with at least one
// active network. Degraded networks do not fail readiness; they are flagged
// in the status payload instead.
func ReadinessHandler(pl *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		if atomic.LoadInt32(&isReady) == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("Not Ready"))
			return
		}

		status := pl.Status()
		w.Header().Set("Content-Type", "application/json")
		if status.ActiveNetworks == 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}
		_ = json.NewEncoder(w).Encode(status)
	}
}

// StatusHandler exposes the full pipeline status surface.
func StatusHandler(pl *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(pl.Status())
	}
}

// NewServer wires the health, status and metrics endpoints.
func NewServer(addr string, pl *pipeline.Pipeline, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", LivenessHandler)
	mux.Handle("/readyz", ReadinessHandler(pl))
	mux.Handle("/status", StatusHandler(pl))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	return &http.Server{
		Addr:    addr,
		Handler: mux,
	}
}
