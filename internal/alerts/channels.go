package alerts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/models"
)

// WebhookChannel POSTs the standard alert payload to a fixed URL.
type WebhookChannel struct {
	name   string
	url    string
	client *http.Client
}

var _ interfaces.Channel = (*WebhookChannel)(nil)

func NewWebhookChannel(name, url string, timeout time.Duration) *WebhookChannel {
	return &WebhookChannel{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *WebhookChannel) Name() string { return c.name }

func (c *WebhookChannel) Send(alert models.Alert) models.AlertDelivery {
	payload, err := json.Marshal(newWebhookPayload(alert))
	if err != nil {
		return failedDelivery(c.name, fmt.Errorf("marshal payload: %w", err))
	}
	return postJSON(c.client, c.name, c.url, payload)
}

// SlackChannel posts alerts to a Slack incoming webhook.
type SlackChannel struct {
	url    string
	client *http.Client
}

var _ interfaces.Channel = (*SlackChannel)(nil)

func NewSlackChannel(url string, timeout time.Duration) *SlackChannel {
	return &SlackChannel{url: url, client: &http.Client{Timeout: timeout}}
}

func (c *SlackChannel) Name() string { return "slack" }

func (c *SlackChannel) Send(alert models.Alert) models.AlertDelivery {
	body := map[string]string{
		"text": fmt.Sprintf("*%s*\n%s", alert.Title, alert.Message),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return failedDelivery("slack", err)
	}
	return postJSON(c.client, "slack", c.url, payload)
}

// DiscordChannel posts alerts to a Discord webhook.
type DiscordChannel struct {
	url    string
	client *http.Client
}

var _ interfaces.Channel = (*DiscordChannel)(nil)

func NewDiscordChannel(url string, timeout time.Duration) *DiscordChannel {
	return &DiscordChannel{url: url, client: &http.Client{Timeout: timeout}}
}

func (c *DiscordChannel) Name() string { return "discord" }

func (c *DiscordChannel) Send(alert models.Alert) models.AlertDelivery {
	body := map[string]string{
		"content": fmt.Sprintf("**%s**\n%s", alert.Title, alert.Message),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return failedDelivery("discord", err)
	}
	return postJSON(c.client, "discord", c.url, payload)
}

func postJSON(client *http.Client, channel, url string, payload []byte) models.AlertDelivery {
	resp, err := client.Post(url, "application/json", bytes.NewReader(payload))
	if err != nil {
		return failedDelivery(channel, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failedDelivery(channel, fmt.Errorf("HTTP %d", resp.StatusCode))
	}

	return models.AlertDelivery{
		Channel:   channel,
		Status:    models.DeliverySent,
		Response:  map[string]string{"status_code": strconv.Itoa(resp.StatusCode)},
		Timestamp: time.Now(),
	}
}

func failedDelivery(channel string, err error) models.AlertDelivery {
	return models.AlertDelivery{
		Channel:   channel,
		Status:    models.DeliveryFailed,
		Error:     err.Error(),
		Timestamp: time.Now(),
	}
}
