package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("WHATSAPP_VERIFY_TOKEN", "verify-secret")
	t.Setenv("WHATSAPP_ACCESS_TOKEN", "wa-token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "12345")
	t.Setenv("GROQ_API_KEY", "gsk_test")
	t.Setenv("GEMINI_API_KEY", "gm_test")
	t.Setenv("TEMPLATE_SHEET_ID", "tmpl-1")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DedupTTL != 24*time.Hour {
		t.Errorf("DedupTTL = %v, want 24h", cfg.DedupTTL)
	}
	if cfg.Workers != 5 {
		t.Errorf("Workers = %d, want 5", cfg.Workers)
	}
	if cfg.SerializeSenders {
		t.Error("SerializeSenders should default to false")
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("GROQ_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail when GROQ_API_KEY is missing")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("DEDUP_TTL", "1h")
	t.Setenv("QUEUE_BUFFER", "10")
	t.Setenv("WORKERS", "2")
	t.Setenv("SERIALIZE_SENDERS", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.DedupTTL != time.Hour {
		t.Errorf("DedupTTL = %v, want 1h", cfg.DedupTTL)
	}
	if cfg.QueueBuffer != 10 {
		t.Errorf("QueueBuffer = %d, want 10", cfg.QueueBuffer)
	}
	if cfg.Workers != 2 {
		t.Errorf("Workers = %d, want 2", cfg.Workers)
	}
	if !cfg.SerializeSenders {
		t.Error("SerializeSenders should be true")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("DEDUP_TTL", "soon")

	if _, err := Load(); err == nil {
		t.Error("Load() should fail on an unparseable DEDUP_TTL")
	}
}
