package database

import (
	"encoding/json"
	"strings"
	"time"

	"chain-sentinel/internal/models"
)

// Finding is the persisted shape of a threat finding.
type Finding struct {
	ID          string    `json:"id"`
	Category    string    `json:"category"`
	Severity    string    `json:"severity"`
	Network     string    `json:"network"`
	TxHashes    string    `json:"tx_hashes"`
	Addresses   string    `json:"addresses"`
	Confidence  float64   `json:"confidence"`
	Description string    `json:"description"`
	Metadata    []byte    `json:"metadata"`
	DetectedAt  time.Time `json:"detected_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// SaveFinding persists a threat finding to the audit trail.
func SaveFinding(f models.ThreatFinding) error {
	metadata, err := json.Marshal(f.Metadata)
	if err != nil {
		return err
	}

	_, err = DB.Exec(`
		INSERT INTO threat_findings (id, category, severity, network, tx_hashes, addresses, confidence, description, metadata, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, f.ID, f.Category.String(), f.Severity.String(), f.Network.String(),
		strings.Join(f.TxHashes, ","), strings.Join(f.Addresses, ","),
		f.Confidence, f.Description, metadata, f.DetectedAt)
	return err
}

// SaveDelivery persists one alert delivery attempt.
func SaveDelivery(d models.AlertDelivery) error {
	response, err := json.Marshal(d.Response)
	if err != nil {
		return err
	}

	_, err = DB.Exec(`
		INSERT INTO alert_deliveries (alert_id, rule_id, channel, status, error, response, attempted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, d.AlertID, d.RuleID, d.Channel, string(d.Status), d.Error, response, d.Timestamp)
	return err
}

// GetRecentFindings retrieves persisted findings newer than since.
func GetRecentFindings(since time.Time, limit int) ([]Finding, error) {
	rows, err := DB.Query(`
		SELECT id, category, severity, network, tx_hashes, addresses, confidence, description, metadata, detected_at, created_at
		FROM threat_findings
		WHERE detected_at >= $1
		ORDER BY detected_at DESC
		LIMIT $2
	`, since, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var findings []Finding
	for rows.Next() {
		var f Finding
		err := rows.Scan(&f.ID, &f.Category, &f.Severity, &f.Network, &f.TxHashes, &f.Addresses,
			&f.Confidence, &f.Description, &f.Metadata, &f.DetectedAt, &f.CreatedAt)
		if err != nil {
			return nil, err
		}
		findings = append(findings, f)
	}
	return findings, rows.Err()
}
