package detectors

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/models"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/rs/zerolog"
)

var _ interfaces.Detector = (*ContractDetector)(nil)

// Signature is one entry of the malicious-bytecode table.
type Signature struct {
	Name        string
	Pattern     []byte
	Severity    models.Severity
	Confidence  float64
	Description string
}

// DefaultSignatures is the built-in table of known malicious byte patterns.
// Callers may supply their own table instead.
var DefaultSignatures = []Signature{
	{
		Name:        "honeypot-transfer-gate",
		Pattern:     mustHex("0x60606040526000357c01"),
		Severity:    models.SeverityCritical,
		Confidence:  0.95,
		Description: "Transfer gating consistent with known honeypot contracts",
	},
	{
		Name:        "hidden-selfdestruct",
		Pattern:     mustHex("0x33ff"),
		Severity:    models.SeverityCritical,
		Confidence:  0.9,
		Description: "Caller-conditional selfdestruct, common in rug-pull contracts",
	},
	{
		Name:        "owner-only-withdraw",
		Pattern:     mustHex("0x8da5cb5b14610000"),
		Severity:    models.SeverityHigh,
		Confidence:  0.8,
		Description: "Owner-gated withdrawal path without timelock",
	},
}

func mustHex(s string) []byte {
	b, err := hexutil.Decode(s)
	if err != nil {
		panic(err)
	}
	return b
}

// ContractDetector fetches recipient bytecode through the connection pool and
// matches it against the signature table. Bytecode is cached per network and
// address; EOAs are cached as empty so they are only looked up once.
type ContractDetector struct {
	reader     interfaces.ChainReader
	signatures []Signature
	timeout    time.Duration
	logger     zerolog.Logger

	mu    sync.Mutex
	cache map[string][]byte
}

func NewContractDetector(reader interfaces.ChainReader, signatures []Signature, timeout time.Duration, logger zerolog.Logger) *ContractDetector {
	if signatures == nil {
		signatures = DefaultSignatures
	}
	return &ContractDetector{
		reader:     reader,
		signatures: signatures,
		timeout:    timeout,
		logger:     logger,
		cache:      make(map[string][]byte),
	}
}

func (d *ContractDetector) Name() string { return "contract-heuristics" }

func (d *ContractDetector) Category() models.ThreatCategory { return models.CategoryContract }

func (d *ContractDetector) Detect(window []models.TransactionEvent, ev models.TransactionEvent) []models.ThreatFinding {
	if ev.To == "" {
		return nil
	}

	code, err := d.codeFor(ev.Network, ev.To)
	if err != nil {
		d.logger.Debug().
			Err(err).
			Str("address", ev.To).
			Msg("Bytecode fetch failed, skipping contract analysis")
		return nil
	}
	if len(code) == 0 {
		return nil
	}

	var findings []models.ThreatFinding
	for _, sig := range d.signatures {
		if !bytes.Contains(code, sig.Pattern) {
			continue
		}

		finding := newFinding(models.CategoryContract, sig.Severity, ev.Network, sig.Confidence,
			fmt.Sprintf("Contract %s matches signature %q: %s", ev.To, sig.Name, sig.Description))
		finding.TxHashes = []string{ev.Hash}
		finding.Addresses = []string{ev.To}
		finding.Metadata["signature"] = sig.Name
		finding.Metadata["contract"] = ev.To

		d.logger.Debug().
			Str("contract", ev.To).
			Str("signature", sig.Name).
			Msg("Malicious bytecode signature matched")

		findings = append(findings, finding)
	}

	return findings
}

func (d *ContractDetector) codeFor(network models.NetworkName, address string) ([]byte, error) {
	// The same address can hold different code on different chains.
	key := network.String() + ":" + address

	d.mu.Lock()
	code, ok := d.cache[key]
	d.mu.Unlock()
	if ok {
		return code, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	code, err := d.reader.GetCode(ctx, network, address)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	d.cache[key] = code
	d.mu.Unlock()
	return code, nil
}
