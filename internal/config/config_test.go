package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AI_SERVICE_URL", "https://ai.example.com/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.AI.BaseURL != "https://ai.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.AI.BaseURL)
	}
	if cfg.Clerk.WebhookTolerance != 300*time.Second {
		t.Errorf("expected 300s webhook tolerance, got %v", cfg.Clerk.WebhookTolerance)
	}
	if cfg.Policy.MaxFollowUps != 5 {
		t.Errorf("expected 5 follow-ups, got %d", cfg.Policy.MaxFollowUps)
	}
	if cfg.Policy.AssessmentProgressTTL != 24*time.Hour {
		t.Errorf("expected 24h progress ttl, got %v", cfg.Policy.AssessmentProgressTTL)
	}
}

func TestLoadRequiresAIURLWhenEnabled(t *testing.T) {
	t.Setenv("AI_SERVICE_URL", "")
	t.Setenv("AI_ENABLED", "true")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "AI_SERVICE_URL") {
		t.Fatalf("expected AI_SERVICE_URL error, got %v", err)
	}
}

func TestLoadAllowsMissingAIURLWhenDisabled(t *testing.T) {
	t.Setenv("AI_SERVICE_URL", "")
	t.Setenv("AI_ENABLED", "off")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.AI.Enabled {
		t.Fatal("expected AI to be disabled")
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"90s", 90 * time.Second},
		{"300", 300 * time.Second},
		{"garbage", time.Minute},
	}
	for _, tt := range tests {
		t.Setenv("TEST_DURATION", tt.value)
		if got := getEnvDuration("TEST_DURATION", time.Minute); got != tt.want {
			t.Errorf("getEnvDuration(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestAllowedOrigins(t *testing.T) {
	dev := &Config{FrontendURL: "http://localhost:5173"}
	if got := dev.AllowedOrigins(); len(got) != 1 || got[0] != "*" {
		t.Errorf("expected wildcard in development, got %v", got)
	}

	prod := &Config{FrontendURL: "https://app.readmaster.io"}
	if got := prod.AllowedOrigins(); len(got) != 1 || got[0] != "https://app.readmaster.io" {
		t.Errorf("expected frontend origin, got %v", got)
	}
}
