package alerts

import (
	"fmt"
	"strings"
	"time"

	"chain-sentinel/internal/models"
)

// buildAlert renders a matched rule and its source into a deliverable alert.
// The formatting switch is exhaustive over the alert source union.
func buildAlert(rule models.AlertRule, source models.AlertSource, now time.Time) models.Alert {
	var title, message string

	switch src := source.(type) {
	case models.ThreatDetection:
		f := src.Finding
		title = fmt.Sprintf("[%s] %s threat on %s", strings.ToUpper(f.Severity.String()), f.Category, f.Network)
		message = fmt.Sprintf("%s\nConfidence: %.2f\nTransactions: %s\nAddresses: %s",
			f.Description, f.Confidence, strings.Join(f.TxHashes, ", "), strings.Join(f.Addresses, ", "))
	case models.VulnerabilityReport:
		title = fmt.Sprintf("[%s] Vulnerable contract %s on %s", strings.ToUpper(src.Severity.String()), src.Address, src.Network)
		message = fmt.Sprintf("Signature %q matched: %s", src.Signature, src.Detail)
	case models.MempoolEvent:
		title = fmt.Sprintf("[%s] High-risk pending transaction on %s", strings.ToUpper(src.Score.Tier.String()), src.Event.Network)
		message = fmt.Sprintf("Transaction %s scored %.2f (%s tier)", src.Event.Hash, src.Score.Value, src.Score.Tier)
	default:
		title = "Alert"
		message = "Unrecognized alert source"
	}

	return models.Alert{
		ID:        models.NewID("al"),
		RuleID:    rule.ID,
		Title:     title,
		Message:   message,
		Priority:  rule.Priority,
		Source:    source,
		CreatedAt: now,
	}
}

// webhookPayload is the outbound JSON shape, one object per delivery attempt.
type webhookPayload struct {
	AlertID   string                 `json:"alert_id"`
	RuleID    string                 `json:"rule_id"`
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Priority  int                    `json:"priority"`
	Timestamp int64                  `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
}

const (
	serviceName    = "chain-sentinel"
	serviceVersion = "1.0.0"
)

func newWebhookPayload(alert models.Alert) webhookPayload {
	data := make(map[string]interface{})

	switch src := alert.Source.(type) {
	case models.ThreatDetection:
		f := src.Finding
		data["finding_id"] = f.ID
		data["category"] = f.Category.String()
		data["severity"] = f.Severity.String()
		data["network"] = f.Network.String()
		data["tx_hashes"] = f.TxHashes
		data["addresses"] = f.Addresses
		data["confidence"] = f.Confidence
		data["metadata"] = f.Metadata
	case models.VulnerabilityReport:
		data["address"] = src.Address
		data["network"] = src.Network.String()
		data["signature"] = src.Signature
		data["severity"] = src.Severity.String()
	case models.MempoolEvent:
		data["tx_hash"] = src.Event.Hash
		data["network"] = src.Event.Network.String()
		data["score"] = src.Score.Value
		data["tier"] = src.Score.Tier.String()
	}

	return webhookPayload{
		AlertID:   alert.ID,
		RuleID:    alert.RuleID,
		Title:     alert.Title,
		Message:   alert.Message,
		Priority:  alert.Priority,
		Timestamp: alert.CreatedAt.Unix(),
		Data:      data,
		Service:   serviceName,
		Version:   serviceVersion,
	}
}
