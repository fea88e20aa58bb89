package alerts

import (
	"fmt"
	"sync"
	"time"

	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/metrics"
	"chain-sentinel/internal/models"

	"github.com/rs/zerolog"
)

const historyLimit = 1000

// Dispatcher matches threat findings against the rule table and pushes alerts
// through the configured channels. The rule table is written only here; one
// alert's channel deliveries run sequentially with failures isolated per
// channel.
type Dispatcher struct {
	mu         sync.Mutex
	rules      []*models.AlertRule
	channels   map[string]interfaces.Channel
	findings   []models.ThreatFinding
	deliveries []models.AlertDelivery

	logger  zerolog.Logger
	metrics *metrics.PipelineMetrics
	now     func() time.Time
}

// NewDispatcher creates a dispatcher. metrics may be nil.
func NewDispatcher(logger zerolog.Logger, m *metrics.PipelineMetrics) *Dispatcher {
	return &Dispatcher{
		channels: make(map[string]interfaces.Channel),
		logger:   logger,
		metrics:  m,
		now:      time.Now,
	}
}

// RegisterChannel makes a notification channel available to rules.
func (d *Dispatcher) RegisterChannel(ch interfaces.Channel) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.channels[ch.Name()] = ch
}

// AddRule validates and installs an alert rule. Invalid rules are rejected
// with a descriptive error, never silently ignored.
func (d *Dispatcher) AddRule(rule models.AlertRule) error {
	if rule.ID == "" {
		return fmt.Errorf("alert rule must have an id")
	}
	if rule.Cooldown < 0 {
		return fmt.Errorf("alert rule %s: cooldown must not be negative", rule.ID)
	}
	if rule.MinSeverity != "" && rule.MinSeverity.Rank() == 0 {
		return fmt.Errorf("alert rule %s: unknown severity %q", rule.ID, rule.MinSeverity)
	}
	if len(rule.Channels) == 0 {
		return fmt.Errorf("alert rule %s: at least one channel required", rule.ID)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, name := range rule.Channels {
		if _, ok := d.channels[name]; !ok {
			return fmt.Errorf("alert rule %s: unknown channel %q", rule.ID, name)
		}
	}
	for _, existing := range d.rules {
		if existing.ID == rule.ID {
			return fmt.Errorf("alert rule %s already registered", rule.ID)
		}
	}

	d.rules = append(d.rules, &rule)
	d.logger.Info().
		Str("rule", rule.ID).
		Str("name", rule.Name).
		Msg("Alert rule registered")
	return nil
}

// RemoveRule deletes a rule by id.
func (d *Dispatcher) RemoveRule(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, rule := range d.rules {
		if rule.ID == id {
			d.rules = append(d.rules[:i], d.rules[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("alert rule %s not found", id)
}

// SetRuleEnabled toggles a rule by id.
func (d *Dispatcher) SetRuleEnabled(id string, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, rule := range d.rules {
		if rule.ID == id {
			rule.Enabled = enabled
			return nil
		}
	}
	return fmt.Errorf("alert rule %s not found", id)
}

// Rules returns a copy of the rule table.
func (d *Dispatcher) Rules() []models.AlertRule {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]models.AlertRule, len(d.rules))
	for i, rule := range d.rules {
		out[i] = *rule
	}
	return out
}

// Dispatch records a finding and, if an enabled rule matches outside its
// cooldown window, constructs an alert and attempts one delivery per
// configured channel. The first matching rule wins.
func (d *Dispatcher) Dispatch(finding models.ThreatFinding) []models.AlertDelivery {
	d.mu.Lock()
	d.findings = appendBounded(d.findings, finding, historyLimit)

	var matched *models.AlertRule
	now := d.now()
	for _, rule := range d.rules {
		if !rule.Enabled {
			continue
		}
		if rule.Category != "" && rule.Category != finding.Category {
			continue
		}
		if rule.Network != "" && rule.Network != finding.Network {
			continue
		}
		if rule.MinSeverity != "" && !finding.Severity.AtLeast(rule.MinSeverity) {
			continue
		}
		if !rule.LastTriggered.IsZero() && now.Sub(rule.LastTriggered) < rule.Cooldown {
			continue
		}
		rule.LastTriggered = now
		matched = rule
		break
	}

	if matched == nil {
		d.mu.Unlock()
		return nil
	}

	alert := buildAlert(*matched, models.ThreatDetection{Finding: finding}, now)
	channels := make([]interfaces.Channel, 0, len(matched.Channels))
	for _, name := range matched.Channels {
		if ch, ok := d.channels[name]; ok {
			channels = append(channels, ch)
		}
	}
	d.mu.Unlock()

	if d.metrics != nil {
		d.metrics.AlertsDispatched.WithLabelValues(matched.ID).Inc()
	}
	d.logger.Info().
		Str("rule", matched.ID).
		Str("finding", finding.ID).
		Str("category", finding.Category.String()).
		Msg("Alert rule matched")

	deliveries := make([]models.AlertDelivery, 0, len(channels))
	for _, ch := range channels {
		delivery := ch.Send(alert)
		delivery.AlertID = alert.ID
		delivery.RuleID = matched.ID
		if delivery.Status == models.DeliveryFailed {
			d.logger.Warn().
				Str("channel", ch.Name()).
				Str("alert", alert.ID).
				Str("error", delivery.Error).
				Msg("Alert delivery failed")
		}
		if d.metrics != nil {
			d.metrics.Deliveries.WithLabelValues(ch.Name(), string(delivery.Status)).Inc()
		}
		deliveries = append(deliveries, delivery)
	}

	d.mu.Lock()
	for _, delivery := range deliveries {
		d.deliveries = appendBounded(d.deliveries, delivery, historyLimit)
	}
	d.mu.Unlock()

	return deliveries
}

// RecentFindings returns retained findings newer than since, optionally
// filtered by network and category. Zero values match everything.
func (d *Dispatcher) RecentFindings(since time.Time, network models.NetworkName, category models.ThreatCategory) []models.ThreatFinding {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]models.ThreatFinding, 0)
	for _, f := range d.findings {
		if !since.IsZero() && f.DetectedAt.Before(since) {
			continue
		}
		if network != "" && f.Network != network {
			continue
		}
		if category != "" && f.Category != category {
			continue
		}
		out = append(out, f)
	}
	return out
}

// RecentDeliveries returns the retained delivery audit records.
func (d *Dispatcher) RecentDeliveries() []models.AlertDelivery {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]models.AlertDelivery, len(d.deliveries))
	copy(out, d.deliveries)
	return out
}

func appendBounded[T any](s []T, v T, limit int) []T {
	s = append(s, v)
	if len(s) > limit {
		s = s[len(s)-limit:]
	}
	return s
}
