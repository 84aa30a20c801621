// Package mattermost provides an incoming-webhook client for posting analytics digests.
package mattermost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/aimd54/engagement-engine/internal/config"
	"github.com/aimd54/engagement-engine/internal/service/analytics"
	"github.com/aimd54/engagement-engine/pkg/logger"
)

const digestTopPages = 5

// Client handles Mattermost webhook notifications.
type Client struct {
	webhookURL string
	channel    string
	enabled    bool
	httpClient *http.Client
	log        *logger.Logger
}

// NewClient creates a new Mattermost client.
func NewClient(cfg *config.MattermostConfig, log *logger.Logger) *Client {
	return &Client{
		webhookURL: cfg.WebhookURL,
		channel:    cfg.Channel,
		enabled:    cfg.Enabled,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// Enabled reports whether messages are actually sent.
func (c *Client) Enabled() bool {
	return c.enabled
}

// Message represents a Mattermost message payload.
type Message struct {
	Channel     string       `json:"channel,omitempty"`
	Username    string       `json:"username,omitempty"`
	Text        string       `json:"text,omitempty"`
	IconURL     string       `json:"icon_url,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment represents a message attachment.
type Attachment struct {
	Fallback string  `json:"fallback,omitempty"`
	Color    string  `json:"color,omitempty"`
	Pretext  string  `json:"pretext,omitempty"`
	Title    string  `json:"title,omitempty"`
	Text     string  `json:"text,omitempty"`
	Fields   []Field `json:"fields,omitempty"`
	Footer   string  `json:"footer,omitempty"`
}

// Field represents a message field.
type Field struct {
	Short bool   `json:"short"`
	Title string `json:"title"`
	Value string `json:"value"`
}

// SendMessage posts a message to the webhook. A disabled client does nothing.
func (c *Client) SendMessage(ctx context.Context, msg *Message) error {
	if !c.enabled {
		c.log.Debug().Msg("Mattermost is disabled, skipping message")
		return nil
	}

	if msg.Channel == "" {
		msg.Channel = c.channel
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message to Mattermost: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("mattermost returned status %d", resp.StatusCode)
	}

	c.log.Debug().
		Str("channel", msg.Channel).
		Msg("Sent message to Mattermost")

	return nil
}

// SendDailyDigest posts a summary of an analytics report.
func (c *Client) SendDailyDigest(ctx context.Context, r analytics.Report) error {
	if !c.enabled {
		return nil
	}

	text := fmt.Sprintf("### 📊 Site Analytics Digest (%s)", r.Period)
	if r.PageViews == 0 {
		text += "\n\n_No page views recorded in this period._"
	}

	fields := []Field{
		{Short: true, Title: "Unique Visitors", Value: strconv.Itoa(r.UniqueVisitors)},
		{Short: true, Title: "Page Views", Value: strconv.Itoa(r.PageViews)},
		{Short: true, Title: "Sessions", Value: strconv.Itoa(r.Sessions)},
		{Short: true, Title: "Avg Session", Value: fmt.Sprintf("%.0fs", r.AvgSessionDuration)},
		{Short: true, Title: "Bounce Rate", Value: fmt.Sprintf("%.1f%%", r.BounceRate)},
		{Short: true, Title: "Conversion Rate", Value: fmt.Sprintf("%.1f%%", r.ConversionRate)},
	}

	if len(r.TopPages) > 0 {
		var b strings.Builder
		for i, p := range r.TopPages {
			if i == digestTopPages {
				break
			}
			fmt.Fprintf(&b, "%d. `%s` (%d)\n", i+1, p.Page, p.Views)
		}
		fields = append(fields, Field{Title: "Top Pages", Value: strings.TrimSuffix(b.String(), "\n")})
	}

	if len(r.TrafficSources) > 0 {
		parts := make([]string, 0, len(r.TrafficSources))
		for _, s := range r.TrafficSources {
			parts = append(parts, fmt.Sprintf("%s %.1f%%", s.Source, s.Percentage))
		}
		fields = append(fields, Field{Title: "Traffic Sources", Value: strings.Join(parts, " · ")})
	}

	return c.SendMessage(ctx, &Message{
		Username: "Engagement Bot",
		Text:     text,
		Attachments: []Attachment{{
			Fallback: fmt.Sprintf("%d visitors, %d page views", r.UniqueVisitors, r.PageViews),
			Color:    "#2f81f7",
			Fields:   fields,
			Footer:   "Generated " + r.GeneratedAt.UTC().Format(time.RFC1123),
		}},
	})
}
