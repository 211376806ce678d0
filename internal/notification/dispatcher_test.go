// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package notification

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"snowcap.dev/snowcap/internal/logging"
)

func TestDispatcherWebhookSendsOnRunCompletion(t *testing.T) {
	called := atomic.Int32{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)

		if _, ok := body["text"]; !ok {
			if _, ok := body["content"]; !ok {
				t.Errorf("expected 'text' or 'content' field in payload, got %v", body)
			}
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := &Config{
		Enabled: true,
		Channels: []Channel{
			{
				Name:       "test-webhook",
				Type:       "webhook",
				Enabled:    true,
				WebhookURL: ts.URL,
			},
		},
	}

	d := NewDispatcher(cfg, logging.New(logging.DefaultConfig()))
	d.SendSimple("run abc123 satisfied", "ordering found in 12 iterations", LevelInfo)

	if called.Load() != 1 {
		t.Errorf("expected webhook to be called once, got %d", called.Load())
	}
}

func TestDispatcherRateLimitsDuplicateTitleOnSameChannel(t *testing.T) {
	called := atomic.Int32{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := &Config{
		Enabled: true,
		Channels: []Channel{
			{
				Name:       "test-webhook-rl",
				Type:       "webhook",
				Enabled:    true,
				WebhookURL: ts.URL,
			},
		},
	}

	d := NewDispatcher(cfg, logging.New(logging.DefaultConfig()))

	d.SendSimple("run xyz no_solution", "budget exhausted", LevelWarning)
	d.SendSimple("run xyz no_solution", "budget exhausted", LevelWarning)

	if called.Load() != 1 {
		t.Fatalf("expected webhook to be called once (rate limited), got %d", called.Load())
	}
}

func TestDispatcherSkipsDisabledConfig(t *testing.T) {
	called := atomic.Int32{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := &Config{
		Enabled: false,
		Channels: []Channel{
			{Name: "disabled-overall", Type: "webhook", Enabled: true, WebhookURL: ts.URL},
		},
	}

	d := NewDispatcher(cfg, nil)
	d.SendSimple("should not send", "body", LevelCritical)

	if called.Load() != 0 {
		t.Fatalf("expected no webhook call when Config.Enabled is false, got %d", called.Load())
	}
}

func TestDispatcherSkipsLevelBelowChannelThreshold(t *testing.T) {
	called := atomic.Int32{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	cfg := &Config{
		Enabled: true,
		Channels: []Channel{
			{Name: "critical-only", Type: "webhook", Enabled: true, WebhookURL: ts.URL, Level: LevelCritical},
		},
	}

	d := NewDispatcher(cfg, nil)
	d.SendSimple("info notice", "body", LevelInfo)

	if called.Load() != 0 {
		t.Fatalf("expected info-level notification to be filtered by a critical-only channel, got %d calls", called.Load())
	}
}
