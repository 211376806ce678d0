// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package notification dispatches run-outcome alerts (satisfied,
// no_solution, canceled, error) from a long-running snowcapd serve
// instance to external channels: webhook/Slack/Discord, ntfy, Pushover,
// or email.
package notification

// SecureString hides its value in JSON output and logs. Used for
// passwords and API tokens in a Channel.
type SecureString string

func (s SecureString) String() string {
	if s == "" {
		return ""
	}
	return "(hidden)"
}

func (s SecureString) GoString() string {
	return "(hidden)"
}

// MarshalJSON masks the value in API responses.
func (s SecureString) MarshalJSON() ([]byte, error) {
	if s == "" {
		return []byte(`""`), nil
	}
	return []byte(`"(hidden)"`), nil
}

// Config configures the notification system: whether it's enabled at
// all, and the destination channels a run outcome fans out to.
type Config struct {
	Enabled  bool      `hcl:"enabled,optional" json:"enabled"`
	Channels []Channel `hcl:"channel,block" json:"channels,omitempty"`
}

// Channel defines a single notification destination.
type Channel struct {
	Name    string `hcl:"name,label" json:"name"`
	Type    string `hcl:"type" json:"type"` // email, pushover, slack, discord, ntfy, webhook
	Level   string `hcl:"level,optional" json:"level,omitempty"`
	Enabled bool   `hcl:"enabled,optional" json:"enabled"`

	// Email settings
	SMTPHost     string       `hcl:"smtp_host,optional" json:"-"`
	SMTPPort     int          `hcl:"smtp_port,optional" json:"-"`
	SMTPUser     string       `hcl:"smtp_user,optional" json:"-"`
	SMTPPassword SecureString `hcl:"smtp_password,optional" json:"-"`
	From         string       `hcl:"from,optional" json:"-"`
	To           []string     `hcl:"to,optional" json:"-"`

	// Webhook/Slack/Discord settings
	WebhookURL string `hcl:"webhook_url,optional" json:"-"`

	// Pushover settings
	APIToken SecureString `hcl:"api_token,optional" json:"-"`
	UserKey  SecureString `hcl:"user_key,optional" json:"-"`
	Priority int          `hcl:"priority,optional" json:"-"`
	Sound    string       `hcl:"sound,optional" json:"-"`

	// ntfy settings
	Server string `hcl:"server,optional" json:"-"`
	Topic  string `hcl:"topic,optional" json:"-"`

	// Password is accepted but not sent by any channel type; Headers are
	// added to ntfy requests only.
	Password SecureString      `hcl:"password,optional" json:"-"`
	Headers  map[string]string `hcl:"headers,optional" json:"-"`
}
