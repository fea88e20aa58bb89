package alerts

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"chain-sentinel/internal/config"
	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/models"
)

// SMSChannel delivers alerts through a generic HTTP SMS provider. The message
// body is truncated to a single-segment length.
type SMSChannel struct {
	cfg    config.SMSConfig
	client *http.Client
}

var _ interfaces.Channel = (*SMSChannel)(nil)

const smsMaxLength = 160

func NewSMSChannel(cfg config.SMSConfig, timeout time.Duration) *SMSChannel {
	return &SMSChannel{cfg: cfg, client: &http.Client{Timeout: timeout}}
}

func (c *SMSChannel) Name() string { return "sms" }

func (c *SMSChannel) Send(alert models.Alert) models.AlertDelivery {
	if c.cfg.ProviderURL == "" || len(c.cfg.To) == 0 {
		return failedDelivery("sms", fmt.Errorf("sms channel not configured"))
	}

	body := alert.Title
	if len(body) > smsMaxLength {
		body = body[:smsMaxLength]
	}

	sent := 0
	var lastErr error
	for _, recipient := range c.cfg.To {
		form := url.Values{
			"from": {c.cfg.From},
			"to":   {recipient},
			"body": {body},
		}
		req, err := http.NewRequest(http.MethodPost, c.cfg.ProviderURL, strings.NewReader(form.Encode()))
		if err != nil {
			lastErr = err
			continue
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		_ = resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			continue
		}
		sent++
	}

	if sent == 0 && lastErr != nil {
		return failedDelivery("sms", lastErr)
	}

	return models.AlertDelivery{
		Channel:   "sms",
		Status:    models.DeliverySent,
		Response:  map[string]string{"recipients": strconv.Itoa(sent)},
		Timestamp: time.Now(),
	}
}
