// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"strings"
	"sync"
	"time"

	"snowcap.dev/snowcap/internal/logging"
)

// Level constants for a Notification's severity.
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Notification is one run-outcome event: a completed synthesis or
// optimize run, or a search that was canceled or errored.
type Notification struct {
	Title     string                 `json:"title"`
	Message   string                 `json:"message"`
	Level     string                 `json:"level"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Dispatcher fans a Notification out to every enabled, level-matching
// channel in its Config, deduplicating repeats of the same title on the
// same channel within a short window.
type Dispatcher struct {
	config *Config
	logger *logging.Logger
	mu     sync.RWMutex

	lastSent map[string]time.Time

	httpClient *http.Client

	// emailSender is injectable so tests don't dial a real SMTP server.
	emailSender func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewDispatcher builds a Dispatcher. A nil logger defaults to
// logging.Nop().
func NewDispatcher(cfg *Config, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Dispatcher{
		config:   cfg,
		logger:   logger.With("component", "notification"),
		lastSent: make(map[string]time.Time),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		emailSender: smtp.SendMail,
	}
}

// UpdateConfig swaps this Dispatcher's Config, e.g. after a config
// reload.
func (d *Dispatcher) UpdateConfig(cfg *Config) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config = cfg
}

// Send dispatches a notification to every enabled and level-matching
// channel, concurrently, and waits for all of them to finish or fail.
func (d *Dispatcher) Send(n Notification) {
	d.mu.RLock()
	cfg := d.config
	d.mu.RUnlock()

	if cfg == nil || !cfg.Enabled {
		return
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	var wg sync.WaitGroup

	for _, ch := range cfg.Channels {
		if !ch.Enabled {
			continue
		}

		if !shouldSend(n.Level, ch.Level) {
			continue
		}

		if d.isRateLimited(ch.Name, n.Title) {
			d.logger.Debug("notification rate limited", "channel", ch.Name, "title", n.Title)
			continue
		}

		wg.Add(1)
		go func(channel Channel) {
			defer wg.Done()
			if err := d.sendToChannel(channel, n); err != nil {
				d.logger.Error("failed to send notification",
					"channel", channel.Name,
					"type", channel.Type,
					"error", err)
			}
		}(ch)
	}

	wg.Wait()
}

// isRateLimited reports whether a notification with this title was
// already sent on this channel within the last minute.
func (d *Dispatcher) isRateLimited(channelName, title string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := channelName + ":" + title
	last, ok := d.lastSent[key]
	now := time.Now()

	if ok && now.Sub(last) < 60*time.Second {
		return true
	}

	d.lastSent[key] = now

	if len(d.lastSent) > 1000 {
		d.lastSent = make(map[string]time.Time)
		d.lastSent[key] = now
	}

	return false
}

// SendSimple is a helper for a plain title/message/level notification.
func (d *Dispatcher) SendSimple(title, message, level string) {
	d.Send(Notification{
		Title:   title,
		Message: message,
		Level:   level,
	})
}

// shouldSend reports whether msgLevel meets chanLevel's minimum
// severity. An unset chanLevel accepts everything.
func shouldSend(msgLevel, chanLevel string) bool {
	if chanLevel == "" {
		return true
	}

	levels := map[string]int{
		LevelInfo:     1,
		LevelWarning:  2,
		LevelCritical: 3,
	}

	m := levels[strings.ToLower(msgLevel)]
	c := levels[strings.ToLower(chanLevel)]

	return m >= c
}

func (d *Dispatcher) sendToChannel(ch Channel, n Notification) error {
	switch strings.ToLower(ch.Type) {
	case "webhook", "slack", "discord":
		return d.sendWebhook(ch, n)
	case "ntfy":
		return d.sendNtfy(ch, n)
	case "pushover":
		return d.sendPushover(ch, n)
	case "email":
		return d.sendEmail(ch, n)
	default:
		return fmt.Errorf("unknown channel type: %s", ch.Type)
	}
}

func (d *Dispatcher) sendWebhook(ch Channel, n Notification) error {
	if ch.WebhookURL == "" {
		return fmt.Errorf("missing webhook_url")
	}

	payload := map[string]interface{}{
		"text": fmt.Sprintf("*%s*\n%s\n_Level: %s_", n.Title, n.Message, n.Level),
	}
	if ch.Type == "discord" {
		payload = map[string]interface{}{
			"content": fmt.Sprintf("**%s**\n%s", n.Title, n.Message),
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, ch.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook failed with status: %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) sendNtfy(ch Channel, n Notification) error {
	url := ch.Server
	if url == "" {
		url = "https://ntfy.sh"
	}
	if ch.Topic == "" {
		return fmt.Errorf("missing topic for ntfy")
	}

	if !strings.HasSuffix(url, "/") {
		url += "/"
	}
	url += ch.Topic

	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(n.Message))
	if err != nil {
		return err
	}
	req.Header.Set("Title", n.Title)

	switch n.Level {
	case LevelCritical:
		req.Header.Set("Priority", "high")
		req.Header.Set("Tags", "rotating_light")
	case LevelWarning:
		req.Header.Set("Priority", "default")
		req.Header.Set("Tags", "warning")
	case LevelInfo:
		req.Header.Set("Priority", "low")
		req.Header.Set("Tags", "information_source")
	}

	for k, v := range ch.Headers {
		req.Header.Set(k, v)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("ntfy failed with status: %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) sendPushover(ch Channel, n Notification) error {
	if ch.APIToken == "" || ch.UserKey == "" {
		return fmt.Errorf("missing api_token or user_key")
	}

	const url = "https://api.pushover.net/1/messages.json"

	payload := map[string]interface{}{
		"token":     string(ch.APIToken),
		"user":      string(ch.UserKey),
		"message":   n.Message,
		"title":     n.Title,
		"timestamp": n.Timestamp.Unix(),
	}
	if ch.Sound != "" {
		payload["sound"] = ch.Sound
	}
	if n.Level == LevelCritical {
		payload["priority"] = 1
	} else if ch.Priority != 0 {
		payload["priority"] = ch.Priority
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("pushover failed with status: %d", resp.StatusCode)
	}
	return nil
}

func (d *Dispatcher) sendEmail(ch Channel, n Notification) error {
	if ch.SMTPHost == "" || len(ch.To) == 0 {
		return fmt.Errorf("missing smtp_host or recipients")
	}

	port := ch.SMTPPort
	if port == 0 {
		port = 587
	}
	addr := fmt.Sprintf("%s:%d", ch.SMTPHost, port)

	var auth smtp.Auth
	if ch.SMTPUser != "" {
		auth = smtp.PlainAuth("", ch.SMTPUser, string(ch.SMTPPassword), ch.SMTPHost)
	}

	from := ch.From
	if from == "" {
		from = "snowcapd@localhost"
	}

	headers := map[string]string{
		"From":         from,
		"To":           strings.Join(ch.To, ","),
		"Subject":      fmt.Sprintf("[%s] %s", n.Level, n.Title),
		"MIME-Version": "1.0",
		"Content-Type": `text/plain; charset="utf-8"`,
	}

	var headerStr strings.Builder
	for k, v := range headers {
		fmt.Fprintf(&headerStr, "%s: %s\r\n", k, v)
	}
	msg := []byte(headerStr.String() + "\r\n" + n.Message + "\r\n")

	if d.emailSender != nil {
		return d.emailSender(addr, auth, from, ch.To, msg)
	}
	return smtp.SendMail(addr, auth, from, ch.To, msg)
}
