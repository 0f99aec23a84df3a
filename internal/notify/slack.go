package notify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultSlackURL is the Slack Web API root
const DefaultSlackURL = "https://slack.com/api"

// SlackConfig selects between a bot token (chat.postMessage) and an
// incoming webhook. The token wins when both are set.
type SlackConfig struct {
	Token      string        `yaml:"token" mapstructure:"token"`
	Channel    string        `yaml:"channel" mapstructure:"channel"`
	WebhookURL string        `yaml:"webhook_url" mapstructure:"webhook_url"`
	Username   string        `yaml:"username" mapstructure:"username"`
	IconEmoji  string        `yaml:"icon_emoji" mapstructure:"icon_emoji"`
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RetryCount int           `yaml:"retry_count" mapstructure:"retry_count"`
}

// Enabled reports whether either delivery method is configured
func (c SlackConfig) Enabled() bool {
	return c.Token != "" || c.WebhookURL != ""
}

// Slack posts messages through the Slack API
type Slack struct {
	http *resty.Client
	cfg  SlackConfig
}

type postMessageRequest struct {
	Channel   string `json:"channel,omitempty"`
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// NewSlack creates a Slack sender
func NewSlack(cfg SlackConfig) (*Slack, error) {
	if !cfg.Enabled() {
		return nil, errors.New("slack token or webhook_url is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultSlackURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Username == "" {
		cfg.Username = "pybot"
	}
	if cfg.IconEmoji == "" {
		cfg.IconEmoji = ":robot_face:"
	}

	rc := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.RetryCount).
		SetHeader("Content-Type", "application/json; charset=utf-8")
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}

	return &Slack{http: rc, cfg: cfg}, nil
}

// Send posts text to channel. An empty channel falls back to the
// configured default.
func (s *Slack) Send(ctx context.Context, channel, text string) error {
	if channel == "" {
		channel = s.cfg.Channel
	}

	if s.cfg.Token == "" {
		return s.sendWebhook(ctx, text)
	}
	if channel == "" {
		return errors.New("slack channel is required")
	}

	var out slackResponse
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(postMessageRequest{
			Channel:   channel,
			Text:      text,
			Username:  s.cfg.Username,
			IconEmoji: s.cfg.IconEmoji,
		}).
		SetResult(&out).
		Post(strings.TrimRight(s.cfg.BaseURL, "/") + "/chat.postMessage")
	if err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("post message: unexpected status %d", resp.StatusCode())
	}
	if !out.OK {
		return fmt.Errorf("post message: slack error %q", out.Error)
	}
	return nil
}

func (s *Slack) sendWebhook(ctx context.Context, text string) error {
	resp, err := s.http.R().
		SetContext(ctx).
		SetBody(postMessageRequest{Text: text, Username: s.cfg.Username, IconEmoji: s.cfg.IconEmoji}).
		Post(s.cfg.WebhookURL)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("post webhook: unexpected status %d: %s", resp.StatusCode(), strings.TrimSpace(resp.String()))
	}
	return nil
}

// Writer prints messages, one per line. Used for dry runs and when no
// Slack credentials are configured.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	logger *slog.Logger
}

// NewWriter creates a sender that writes to w
func NewWriter(w io.Writer, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{w: w, logger: logger}
}

// Send writes "[channel] text"
func (s *Writer) Send(_ context.Context, channel, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefix := ""
	if channel != "" {
		prefix = "[" + channel + "] "
	}
	if _, err := fmt.Fprintln(s.w, prefix+text); err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	s.logger.Debug("notification written", "channel", channel)
	return nil
}
