package monitors

import (
	"time"

	"chain-sentinel/internal/buffer"
	"chain-sentinel/internal/dedup"
	"chain-sentinel/internal/metrics"
	"chain-sentinel/internal/models"
	"chain-sentinel/internal/pool"
	"chain-sentinel/internal/stream"

	"github.com/rs/zerolog"
)

// BaseMonitor carries the fields shared by every ingestion worker. The ring
// buffer and event stream are shared per network; the seen-hash set is shared
// by monitors covering the same transaction phase, so the pending-strategy
// monitors hold one set between them and the block monitor holds another.
type BaseMonitor struct {
	NetworkName     models.NetworkName
	Pool            *pool.Pool
	Ring            *buffer.Ring
	Stream          *stream.Stream
	Seen            *dedup.SeenSet
	Metrics         *metrics.PipelineMetrics
	Logger          zerolog.Logger
	ExplorerBaseURL string

	RetryDelay time.Duration
}

// NewBaseMonitor assembles the shared monitor plumbing.
func NewBaseMonitor(network models.NetworkName, p *pool.Pool, ring *buffer.Ring, st *stream.Stream, seenCapacity int, m *metrics.PipelineMetrics, explorerBaseURL string, logger zerolog.Logger) *BaseMonitor {
	return &BaseMonitor{
		NetworkName:     network,
		Pool:            p,
		Ring:            ring,
		Stream:          st,
		Seen:            dedup.NewSeenSet(seenCapacity),
		Metrics:         m,
		Logger:          logger,
		ExplorerBaseURL: explorerBaseURL,
		RetryDelay:      time.Second,
	}
}

func (b *BaseMonitor) Network() models.NetworkName {
	return b.NetworkName
}

// emit publishes a normalized event unless its hash was already seen by this
// monitor. Malformed events are counted and skipped, never fatal.
func (b *BaseMonitor) emit(ev models.TransactionEvent, strategy string) {
	if ev.Hash == "" || ev.From == "" {
		if b.Metrics != nil {
			b.Metrics.EventsMalformed.WithLabelValues(b.NetworkName.String()).Inc()
		}
		b.Logger.Debug().Str("strategy", strategy).Msg("Skipping malformed transaction payload")
		return
	}

	if b.Seen.SeenOrAdd(ev.Hash) {
		return
	}

	b.Ring.Append(ev)
	dropped := b.Stream.Publish(ev)

	if b.Metrics != nil {
		b.Metrics.EventsIngested.WithLabelValues(b.NetworkName.String(), strategy).Inc()
		if dropped > 0 {
			b.Metrics.EventsDropped.WithLabelValues(b.NetworkName.String()).Add(float64(dropped))
		}
	}
}
