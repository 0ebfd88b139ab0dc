package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/notify"
)

type payload struct {
	Content string `json:"content"`
}

const (
	// discordMaxMessageLength is the character limit of a Discord message.
	discordMaxMessageLength = 2000
	discordMessageFormat    = "[%s] from *%s*:\n> %s\n"
)

// Notifier posts security alerts to a Discord webhook. Send never blocks
// on the network: the post runs in its own goroutine, and alerts above
// the rate limit are dropped.
type Notifier struct {
	webhookURL  string
	sendTimeout time.Duration
	logger      *slog.Logger
	httpClient  *http.Client
	limiter     *rate.Limiter
}

func New(cfg config.Discord, logger *slog.Logger) (*Notifier, error) {
	if cfg.WebhookURL == "" {
		return nil, fmt.Errorf("discord: WebhookURL is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("discord: logger is required")
	}

	every := cfg.RateLimit.Duration
	if every <= 0 {
		every = 2 * time.Second
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	timeout := cfg.SendTimeout.Duration
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Notifier{
		webhookURL:  cfg.WebhookURL,
		sendTimeout: timeout,
		logger:      logger,
		httpClient:  &http.Client{},
		limiter:     rate.NewLimiter(rate.Every(every), burst),
	}, nil
}

// formatMessage renders the notification as markdown. Fields are sorted
// by key; empty keys and nil or empty values are left out.
func (dn *Notifier) formatMessage(n notify.Notification) string {
	content := fmt.Sprintf(discordMessageFormat, n.Type.String(), n.Source, n.Message)

	keys := make([]string, 0, len(n.Fields))
	for k := range n.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var fields []string
	for _, k := range keys {
		v := n.Fields[k]
		if k == "" || v == nil {
			continue
		}
		if s := fmt.Sprintf("%v", v); s != "" {
			fields = append(fields, fmt.Sprintf("> %s: `%s`\n", k, s))
		}
	}
	if len(fields) > 0 {
		content += "\n**Fields**:\n" + strings.Join(fields, "")
	}

	if len(content) > discordMaxMessageLength {
		return content[:discordMaxMessageLength-3] + "..."
	}
	return content
}

// Send takes a rate limit token and posts n in the background. Delivery
// failures are logged, never returned.
func (dn *Notifier) Send(_ context.Context, n notify.Notification) error {
	if !dn.limiter.Allow() {
		dn.logger.Warn("discord: rate limit reached, dropping notification",
			"source", n.Source, "message", n.Message)
		return nil
	}

	body, err := json.Marshal(payload{Content: dn.formatMessage(n)})
	if err != nil {
		return fmt.Errorf("discord: marshal payload: %w", err)
	}

	// the request context may end before the post does
	go dn.post(body, n)
	return nil
}

func (dn *Notifier) post(body []byte, n notify.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), dn.sendTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dn.webhookURL, bytes.NewReader(body))
	if err != nil {
		dn.logger.Error("discord: failed to create request", "source", n.Source, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := dn.httpClient.Do(req)
	if err != nil {
		dn.logger.Error("discord: failed to send", "source", n.Source, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		dn.logger.Error("discord: non-2xx status", "status_code", resp.StatusCode, "source", n.Source)
		if resp.StatusCode == http.StatusTooManyRequests {
			dn.logger.Warn("discord: webhook rate limited, lower notify.discord.burst")
		}
		return
	}

	dn.logger.Debug("discord: notification sent", "source", n.Source, "message", n.Message)
}
