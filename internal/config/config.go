package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the service.
// Values are read from the environment; a .env file in the working
// directory is loaded first if present.
type Config struct {
	// Port is the HTTP listen port for the webhook server.
	Port string

	// VerifyToken is the secret expected in the webhook verify handshake.
	VerifyToken string

	// WhatsAppToken is the Graph API bearer token for media fetch and replies.
	WhatsAppToken string

	// WhatsAppPhoneNumberID is the sending phone number id for outbound replies.
	WhatsAppPhoneNumberID string

	// GroqAPIKey authenticates transcription calls.
	GroqAPIKey string

	// GeminiAPIKey authenticates intent classification calls.
	GeminiAPIKey string

	// TemplateSheetID is the spreadsheet cloned for each new user during onboarding.
	TemplateSheetID string

	// DirectoryDBPath is the sqlite file backing the phone-to-ledger directory.
	DirectoryDBPath string

	// DedupTTL bounds how long a message id is remembered by the dedup gate.
	// Zero means ids are never evicted.
	DedupTTL time.Duration

	// QueueBuffer is the capacity of the in-memory event queue.
	QueueBuffer int

	// Workers is the number of concurrent event workers.
	Workers int

	// SerializeSenders enables per-ledger serialization of ledger operations.
	SerializeSenders bool
}

// Load reads configuration from the environment.
// Required keys produce an error when missing; optional keys fall back
// to defaults.
func Load() (*Config, error) {
	// Best-effort: absent .env is fine, real deployments use the environment.
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		DirectoryDBPath:  getEnv("DIRECTORY_DB_PATH", "spendtrace.db"),
		DedupTTL:         24 * time.Hour,
		QueueBuffer:      100,
		Workers:          5,
		SerializeSenders: false,
	}

	required := map[string]*string{
		"WHATSAPP_VERIFY_TOKEN":    &cfg.VerifyToken,
		"WHATSAPP_ACCESS_TOKEN":    &cfg.WhatsAppToken,
		"WHATSAPP_PHONE_NUMBER_ID": &cfg.WhatsAppPhoneNumberID,
		"GROQ_API_KEY":             &cfg.GroqAPIKey,
		"GEMINI_API_KEY":           &cfg.GeminiAPIKey,
		"TEMPLATE_SHEET_ID":        &cfg.TemplateSheetID,
	}
	for key, dst := range required {
		v := os.Getenv(key)
		if v == "" {
			return nil, fmt.Errorf("config: %s is not set", key)
		}
		*dst = v
	}

	if v := os.Getenv("DEDUP_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid DEDUP_TTL %q: %w", v, err)
		}
		cfg.DedupTTL = ttl
	}

	if v := os.Getenv("QUEUE_BUFFER"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: invalid QUEUE_BUFFER %q", v)
		}
		cfg.QueueBuffer = n
	}

	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: invalid WORKERS %q", v)
		}
		cfg.Workers = n
	}

	if v := os.Getenv("SERIALIZE_SENDERS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid SERIALIZE_SENDERS %q", v)
		}
		cfg.SerializeSenders = b
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
