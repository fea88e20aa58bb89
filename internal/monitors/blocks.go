package monitors

import (
	"context"
	"time"

	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/rpc"
)

var _ interfaces.Monitor = (*BlockMonitor)(nil)

// BlockMonitor emits confirmed-transaction events: it polls the latest block
// number and iterates any gap since the last processed height. Detectors
// needing settlement data (flash-loan, arbitrage) consume these events.
type BlockMonitor struct {
	*BaseMonitor
	pollInterval time.Duration
	lastHeight   uint64
}

func NewBlockMonitor(base *BaseMonitor, pollInterval time.Duration) *BlockMonitor {
	return &BlockMonitor{
		BaseMonitor:  base,
		pollInterval: pollInterval,
	}
}

func (m *BlockMonitor) Strategy() string { return "blocks" }

// Start initializes the starting height from the current head and runs the
// poll loop. A failed head fetch is retried on the first tick instead.
func (m *BlockMonitor) Start(ctx context.Context) error {
	head, err := m.Pool.GetBlockNumber(ctx, m.NetworkName)
	if err != nil {
		m.Logger.Warn().
			Err(err).
			Str("network", m.NetworkName.String()).
			Msg("Could not fetch initial block head, starting lazily")
	} else {
		m.lastHeight = head
		m.Logger.Info().
			Str("network", m.NetworkName.String()).
			Uint64("blockNumber", head).
			Msg("Starting block monitoring from current head")
	}

	go m.loop(ctx)
	return nil
}

func (m *BlockMonitor) loop(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Logger.Info().Str("network", m.NetworkName.String()).Msg("Block monitor shutting down")
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *BlockMonitor) tick(ctx context.Context) {
	head, err := m.Pool.GetBlockNumber(ctx, m.NetworkName)
	if err != nil {
		m.Logger.Debug().Err(err).Str("network", m.NetworkName.String()).Msg("Failed to get current block head")
		return
	}

	if m.lastHeight == 0 {
		m.lastHeight = head
		return
	}

	for number := m.lastHeight + 1; number <= head; number++ {
		if ctx.Err() != nil {
			return
		}
		block, err := m.Pool.GetBlock(ctx, m.NetworkName, number, true)
		if err != nil {
			m.Logger.Debug().
				Err(err).
				Str("network", m.NetworkName.String()).
				Uint64("blockNumber", number).
				Msg("Failed to fetch block")
			return
		}
		m.processBlock(block, number)
		m.lastHeight = number
	}
}

func (m *BlockMonitor) processBlock(block *rpc.Block, number uint64) {
	m.Logger.Debug().
		Str("network", m.NetworkName.String()).
		Uint64("blockNumber", number).
		Int("transactionCount", len(block.Transactions)).
		Msg("Processing confirmed block")

	observedAt := time.Now()
	for _, tx := range block.Transactions {
		ev := tx.ToEvent(m.NetworkName, false, observedAt, m.ExplorerBaseURL)
		if ev.BlockNumber == 0 {
			ev.BlockNumber = number
		}
		m.emit(ev, m.Strategy())
	}
}
