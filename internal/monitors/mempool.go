package monitors

import (
	"context"
	"time"

	"chain-sentinel/internal/interfaces"
)

var _ interfaces.Monitor = (*MempoolMonitor)(nil)

// MempoolMonitor is the polling ingestion strategy: on each tick it fetches
// the node's pending-block snapshot and emits every not-yet-seen transaction.
type MempoolMonitor struct {
	*BaseMonitor
	pollInterval time.Duration

	consecutiveFailures int
}

func NewMempoolMonitor(base *BaseMonitor, pollInterval time.Duration) *MempoolMonitor {
	return &MempoolMonitor{
		BaseMonitor:  base,
		pollInterval: pollInterval,
	}
}

func (m *MempoolMonitor) Strategy() string { return "poll" }

// Start runs the poll loop until ctx is cancelled.
func (m *MempoolMonitor) Start(ctx context.Context) error {
	m.Logger.Info().
		Str("network", m.NetworkName.String()).
		Dur("interval", m.pollInterval).
		Msg("Starting mempool polling")

	go m.loop(ctx)
	return nil
}

func (m *MempoolMonitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Logger.Info().Str("network", m.NetworkName.String()).Msg("Mempool monitor shutting down")
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

func (m *MempoolMonitor) poll(ctx context.Context) {
	block, err := m.Pool.GetPendingBlock(ctx, m.NetworkName)
	if err != nil {
		m.consecutiveFailures++
		// Warn once when the network goes dark, not on every tick.
		if m.consecutiveFailures == 3 {
			m.Logger.Warn().
				Err(err).
				Str("network", m.NetworkName.String()).
				Msg("Mempool polling failing repeatedly, continuing degraded")
		} else {
			m.Logger.Debug().Err(err).Str("network", m.NetworkName.String()).Msg("Mempool poll failed")
		}
		return
	}

	if m.consecutiveFailures >= 3 {
		m.Logger.Info().Str("network", m.NetworkName.String()).Msg("Mempool polling recovered")
	}
	m.consecutiveFailures = 0

	observedAt := time.Now()
	for _, tx := range block.Transactions {
		m.emit(tx.ToEvent(m.NetworkName, true, observedAt, m.ExplorerBaseURL), m.Strategy())
	}
}
