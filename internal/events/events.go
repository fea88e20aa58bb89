package events

import (
	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/logger"
	"chain-sentinel/internal/models"
)

// LogEmitter wraps another emitter and logs every finding before forwarding.
// With a nil wrapped emitter it acts as the default stdout sink.
type LogEmitter struct {
	WrappedEmitter interfaces.FindingEmitter
}

var _ interfaces.FindingEmitter = (*LogEmitter)(nil)

// EmitFinding logs the finding and forwards to the wrapped emitter.
func (l *LogEmitter) EmitFinding(finding models.ThreatFinding) error {
	logger.GetLogger().Info().
		Str("finding", finding.ID).
		Str("category", finding.Category.String()).
		Str("severity", finding.Severity.String()).
		Str("network", finding.Network.String()).
		Float64("confidence", finding.Confidence).
		Strs("txHashes", finding.TxHashes).
		Msg("Threat finding")

	if l.WrappedEmitter != nil {
		return l.WrappedEmitter.EmitFinding(finding)
	}
	return nil
}
