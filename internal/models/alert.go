package models

import "time"

// AlertSource is the tagged union carried by an Alert. The dispatcher's
// message formatting switches exhaustively over the concrete types.
type AlertSource interface {
	alertSource()
}

// ThreatDetection wraps a detector finding.
type ThreatDetection struct {
	Finding ThreatFinding
}

// VulnerabilityReport wraps a static contract-analysis hit.
type VulnerabilityReport struct {
	Address   string
	Network   NetworkName
	Signature string
	Severity  Severity
	Detail    string
}

// MempoolEvent wraps a scored pending transaction.
type MempoolEvent struct {
	Event TransactionEvent
	Score RiskScore
}

func (ThreatDetection) alertSource()     {}
func (VulnerabilityReport) alertSource() {}
func (MempoolEvent) alertSource()        {}

// AlertRule decides whether a finding produces an alert and where it goes.
// LastTriggered is written only by the dispatcher.
type AlertRule struct {
	ID            string
	Name          string
	Category      ThreatCategory // empty matches any category
	MinSeverity   Severity
	Network       NetworkName // empty matches any network
	Channels      []string
	Priority      int
	Enabled       bool
	Cooldown      time.Duration
	LastTriggered time.Time
}

// Alert is a rule match rendered for delivery.
type Alert struct {
	ID        string
	RuleID    string
	Title     string
	Message   string
	Priority  int
	Source    AlertSource
	CreatedAt time.Time
}

// DeliveryStatus is the terminal state of one delivery attempt.
type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliveryPending DeliveryStatus = "pending"
)

// AlertDelivery is the append-only audit record of one attempt to push one
// alert through one channel.
type AlertDelivery struct {
	AlertID   string
	RuleID    string
	Channel   string
	Status    DeliveryStatus
	Error     string
	Response  map[string]string
	Timestamp time.Time
}
