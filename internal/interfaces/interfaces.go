package interfaces

import (
	"context"
	"math/big"

	"chain-sentinel/internal/models"
)

// Monitor is a background ingestion worker bound to one network.
type Monitor interface {
	// Start launches the worker; it stops at the next suspension point
	// after ctx is cancelled.
	Start(ctx context.Context) error

	Network() models.NetworkName

	// Strategy names the ingestion strategy (poll, push, blocks).
	Strategy() string
}

// Detector consumes the recent-transaction window plus the triggering event
// and emits zero or more findings. Implementations are stateless per call
// apart from their own lookup tables and counters.
type Detector interface {
	Name() string
	Category() models.ThreatCategory
	Detect(window []models.TransactionEvent, ev models.TransactionEvent) []models.ThreatFinding
}

// FindingEmitter fans a threat finding out to an external system.
type FindingEmitter interface {
	EmitFinding(finding models.ThreatFinding) error
}

// Channel delivers one alert through one notification transport.
type Channel interface {
	Name() string
	Send(alert models.Alert) models.AlertDelivery
}

// ThreatObserver is invoked synchronously for every new finding.
type ThreatObserver interface {
	OnThreatFinding(finding models.ThreatFinding)
}

// ChainReader is the subset of connection-pool reads detectors depend on.
type ChainReader interface {
	GetCode(ctx context.Context, network models.NetworkName, address string) ([]byte, error)
	GetBalance(ctx context.Context, network models.NetworkName, address string) (*big.Int, error)
}
