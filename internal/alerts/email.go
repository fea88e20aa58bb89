package alerts

import (
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"chain-sentinel/internal/config"
	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/models"
)

// EmailChannel delivers alerts over SMTP. Authentication failures are
// recorded as failed deliveries; they never block other channels.
type EmailChannel struct {
	cfg  config.SMTPConfig
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

var _ interfaces.Channel = (*EmailChannel)(nil)

func NewEmailChannel(cfg config.SMTPConfig) *EmailChannel {
	return &EmailChannel{cfg: cfg, send: smtp.SendMail}
}

func (c *EmailChannel) Name() string { return "email" }

func (c *EmailChannel) Send(alert models.Alert) models.AlertDelivery {
	if c.cfg.Host == "" || len(c.cfg.To) == 0 {
		return failedDelivery("email", fmt.Errorf("email channel not configured"))
	}

	msg := strings.Join([]string{
		"From: " + c.cfg.From,
		"To: " + strings.Join(c.cfg.To, ", "),
		"Subject: " + alert.Title,
		"",
		alert.Message,
	}, "\r\n")

	addr := fmt.Sprintf("%s:%d", c.cfg.Host, c.cfg.Port)
	var auth smtp.Auth
	if c.cfg.Username != "" {
		auth = smtp.PlainAuth("", c.cfg.Username, c.cfg.Password, c.cfg.Host)
	}

	if err := c.send(addr, auth, c.cfg.From, c.cfg.To, []byte(msg)); err != nil {
		return failedDelivery("email", err)
	}

	return models.AlertDelivery{
		Channel:   "email",
		Status:    models.DeliverySent,
		Response:  map[string]string{"recipients": strings.Join(c.cfg.To, ",")},
		Timestamp: time.Now(),
	}
}
