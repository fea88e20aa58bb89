package monitors

import (
	"context"
	"time"

	"chain-sentinel/internal/interfaces"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient/gethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

var _ interfaces.Monitor = (*PushMonitor)(nil)

// PushMonitor is the streaming ingestion strategy: it holds a websocket
// subscription for pending-transaction hashes and resolves each hash to a
// full transaction through the connection pool. Connection loss is retried
// with exponential backoff; after the attempt budget is exhausted the
// network keeps running in degraded no-mempool mode.
type PushMonitor struct {
	*BaseMonitor
	wsEndpoint  string
	baseDelay   time.Duration
	maxAttempts int
}

func NewPushMonitor(base *BaseMonitor, wsEndpoint string, baseDelay time.Duration, maxAttempts int) *PushMonitor {
	return &PushMonitor{
		BaseMonitor: base,
		wsEndpoint:  wsEndpoint,
		baseDelay:   baseDelay,
		maxAttempts: maxAttempts,
	}
}

func (m *PushMonitor) Strategy() string { return "push" }

// Start runs the subscription loop until ctx is cancelled or the reconnect
// budget is spent.
func (m *PushMonitor) Start(ctx context.Context) error {
	m.Logger.Info().
		Str("network", m.NetworkName.String()).
		Str("endpoint", m.wsEndpoint).
		Msg("Starting push subscription")

	go m.loop(ctx)
	return nil
}

func (m *PushMonitor) loop(ctx context.Context) {
	attempt := 0
	for {
		if ctx.Err() != nil {
			return
		}

		err := m.subscribe(ctx)
		if err == nil || ctx.Err() != nil {
			m.Logger.Info().Str("network", m.NetworkName.String()).Msg("Push monitor shutting down")
			return
		}

		attempt++
		if attempt >= m.maxAttempts {
			m.Logger.Warn().
				Err(err).
				Str("network", m.NetworkName.String()).
				Int("attempts", attempt).
				Msg("Push subscription failed persistently, continuing without mempool feed")
			return
		}

		delay := m.baseDelay * time.Duration(1<<uint(attempt-1))
		m.Logger.Debug().
			Err(err).
			Str("network", m.NetworkName.String()).
			Dur("backoff", delay).
			Msg("Push subscription lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// subscribe dials the websocket endpoint and consumes pending-transaction
// hashes until the subscription errors or ctx is cancelled.
func (m *PushMonitor) subscribe(ctx context.Context) error {
	client, err := rpc.DialContext(ctx, m.wsEndpoint)
	if err != nil {
		return err
	}
	defer client.Close()

	hashes := make(chan common.Hash, 256)
	sub, err := gethclient.New(client).SubscribePendingTransactions(ctx, hashes)
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-sub.Err():
			return err
		case hash := <-hashes:
			m.resolve(ctx, hash.Hex())
		}
	}
}

// resolve fetches the full transaction for a pushed hash and emits it. A
// hash that cannot be resolved (already mined or evicted) is skipped.
func (m *PushMonitor) resolve(ctx context.Context, hash string) {
	tx, err := m.Pool.GetTransaction(ctx, m.NetworkName, hash)
	if err != nil {
		m.Logger.Debug().
			Err(err).
			Str("network", m.NetworkName.String()).
			Str("txHash", hash).
			Msg("Could not resolve pushed transaction")
		return
	}
	m.emit(tx.ToEvent(m.NetworkName, true, time.Now(), m.ExplorerBaseURL), m.Strategy())
}
