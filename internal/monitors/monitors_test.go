package monitors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"chain-sentinel/internal/buffer"
	"chain-sentinel/internal/config"
	"chain-sentinel/internal/models"
	"chain-sentinel/internal/pool"
	"chain-sentinel/internal/stream"

	"github.com/rs/zerolog"
)

// mockNode is a minimal JSON-RPC node for monitor tests. Block contents and
// the head height can be changed between polls.
type mockNode struct {
	mu      sync.Mutex
	head    uint64
	pending []map[string]string
	blocks  map[uint64][]map[string]string
}

func (n *mockNode) setHead(head uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.head = head
}

func (n *mockNode) setPending(txs []map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = txs
}

func (n *mockNode) setBlock(number uint64, txs []map[string]string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.blocks == nil {
		n.blocks = make(map[uint64][]map[string]string)
	}
	n.blocks[number] = txs
}

func (n *mockNode) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     interface{}       `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		n.mu.Lock()
		defer n.mu.Unlock()

		var result interface{}
		switch req.Method {
		case "eth_blockNumber":
			result = fmt.Sprintf("0x%x", n.head)
		case "eth_getBlockByNumber":
			var tag string
			_ = json.Unmarshal(req.Params[0], &tag)
			if tag == "pending" {
				result = map[string]interface{}{
					"number":       nil,
					"transactions": n.pending,
				}
			} else {
				var number uint64
				_, _ = fmt.Sscanf(tag, "0x%x", &number)
				result = map[string]interface{}{
					"number":       tag,
					"transactions": n.blocks[number],
				}
			}
		default:
			result = nil
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  result,
		})
	}
}

func providerTx(hash, from, to string) map[string]string {
	return map[string]string{
		"hash":     hash,
		"from":     from,
		"to":       to,
		"value":    "0x0",
		"gas":      "0x5208",
		"gasPrice": "0x3b9aca00",
		"nonce":    "0x1",
	}
}

func newTestBase(t *testing.T, url string) (*BaseMonitor, *stream.Stream) {
	t.Helper()
	networks := map[models.NetworkName]config.NetworkConfig{
		models.Ethereum: {RPCEndpoints: []string{url}, RateLimit: 1000},
	}
	p := pool.New(networks, 5*time.Second, time.Minute, 5, zerolog.New(nil))
	t.Cleanup(p.Close)

	st := stream.New(64)
	base := NewBaseMonitor(models.Ethereum, p, buffer.NewRing(100), st, 1000, nil, "https://etherscan.io/tx", zerolog.New(nil))
	return base, st
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func drain(st *stream.Stream) []models.TransactionEvent {
	var out []models.TransactionEvent
	for {
		select {
		case ev := <-st.Events():
			out = append(out, ev)
		default:
			return out
		}
	}
}

func TestMempoolPollDedupesAcrossPolls(t *testing.T) {
	node := &mockNode{}
	server := httptest.NewServer(node.handler())
	defer server.Close()

	node.setPending([]map[string]string{
		providerTx("0xAA01", "0xsender1", "0xdest"),
		providerTx("0xAA02", "0xsender2", "0xdest"),
	})

	base, st := newTestBase(t, server.URL)
	m := NewMempoolMonitor(base, time.Second)

	ctx := testContext(t)
	m.poll(ctx)
	m.poll(ctx)

	events := drain(st)
	if len(events) != 2 {
		t.Fatalf("expected 2 unique events after duplicate polls, got %d", len(events))
	}
	for _, ev := range events {
		if !ev.Pending {
			t.Errorf("mempool event %s must be pending", ev.Hash)
		}
		if ev.Hash != "0xaa01" && ev.Hash != "0xaa02" {
			t.Errorf("expected lowercase hash, got %s", ev.Hash)
		}
		if ev.ExplorerURL == "" {
			t.Errorf("expected explorer URL on event %s", ev.Hash)
		}
	}

	// A new transaction in a later poll still comes through.
	node.setPending([]map[string]string{
		providerTx("0xAA01", "0xsender1", "0xdest"),
		providerTx("0xAA03", "0xsender3", "0xdest"),
	})
	m.poll(ctx)

	events = drain(st)
	if len(events) != 1 || events[0].Hash != "0xaa03" {
		t.Fatalf("expected only the new transaction, got %v", events)
	}
}

func TestMempoolPollSkipsMalformed(t *testing.T) {
	node := &mockNode{}
	server := httptest.NewServer(node.handler())
	defer server.Close()

	node.setPending([]map[string]string{
		{"hash": "0xaa01"}, // missing sender
		providerTx("0xaa02", "0xsender", "0xdest"),
	})

	base, st := newTestBase(t, server.URL)
	m := NewMempoolMonitor(base, time.Second)
	m.poll(testContext(t))

	events := drain(st)
	if len(events) != 1 || events[0].Hash != "0xaa02" {
		t.Fatalf("expected only the well-formed transaction, got %v", events)
	}
}

func TestBlockMonitorWalksTheGap(t *testing.T) {
	node := &mockNode{}
	server := httptest.NewServer(node.handler())
	defer server.Close()

	node.setHead(10)
	node.setBlock(11, []map[string]string{providerTx("0xbb01", "0xsender1", "0xdest")})
	node.setBlock(12, []map[string]string{
		providerTx("0xbb02", "0xsender2", "0xdest"),
		providerTx("0xbb03", "0xsender3", "0xdest"),
	})

	base, st := newTestBase(t, server.URL)
	m := NewBlockMonitor(base, time.Second)
	ctx := testContext(t)

	// Initialize from head 10, then advance to 12 and tick once: both missed
	// blocks are processed in order.
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	node.setHead(12)
	m.tick(ctx)

	events := drain(st)
	if len(events) != 3 {
		t.Fatalf("expected 3 confirmed events, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Pending {
			t.Errorf("block event %s must not be pending", ev.Hash)
		}
		if ev.BlockNumber == 0 {
			t.Errorf("block event %s missing block number", ev.Hash)
		}
	}
	if events[0].Hash != "0xbb01" {
		t.Errorf("expected blocks processed in order, first event %s", events[0].Hash)
	}

	// Nothing new at the same head.
	m.tick(ctx)
	if events := drain(st); len(events) != 0 {
		t.Fatalf("expected no events without new blocks, got %d", len(events))
	}
}
