// Package config builds the immutable process configuration from defaults,
// an optional .env file, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dexos/dex/pkg/models"
)

// DefaultDataDirName is the per-user state directory created under the
// working directory unless DEX_DATA_DIR overrides it.
const DefaultDataDirName = ".agentic_os"

// LLMConfig selects and tunes the planner model backend.
type LLMConfig struct {
	Provider    string
	ModelName   string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Configured reports whether a model backend can be constructed.
func (c LLMConfig) Configured() bool {
	return c.Provider != "" && c.APIKey != ""
}

// AgentConfig tunes pipeline behavior.
type AgentConfig struct {
	PlanningDepth          int
	VerificationEnabled    bool
	SelfCorrectionAttempts int
	RequestTimeout         time.Duration
}

// NotifyConfig holds notification transport credentials. Channels with
// missing fields report IsConfigured() == false and are skipped.
type NotifyConfig struct {
	EmailFrom    string
	SMTPServer   string
	SMTPPort     int
	SMTPPassword string

	TwilioAccountSID   string
	TwilioAuthToken    string
	TwilioFromWhatsApp string
	UserWhatsAppNumber string

	WebhookURL string
}

// DiscordConfig configures the chat-bot surface.
type DiscordConfig struct {
	BotToken  string
	ChannelID string
}

// Config is the single immutable configuration struct assembled at process
// start. Components receive it (or a sub-struct) read-only.
type Config struct {
	DataDir               string
	TimeZone              string
	RiskMode              models.RiskMode
	DisableSemanticMemory bool

	LogLevel  string
	LogFormat string

	HTTPAddr string

	LLM     LLMConfig
	Agent   AgentConfig
	Notify  NotifyConfig
	Discord DiscordConfig
}

// Load assembles configuration: defaults, then a .env file in the working
// directory if present, then real environment variables (which win).
func Load() (*Config, error) {
	// Real env wins over .env contents.
	_ = godotenv.Load()

	cfg := &Config{
		DataDir:               envStr("DEX_DATA_DIR", filepath.Join(".", DefaultDataDirName)),
		TimeZone:              envStr("DEX_TIME_ZONE", "UTC"),
		RiskMode:              models.RiskMode(envStr("DEX_RISK_MODE", string(models.RiskModeBalanced))),
		DisableSemanticMemory: envBool("DISABLE_SEMANTIC_MEMORY", false),

		LogLevel:  envStr("DEX_LOG_LEVEL", "info"),
		LogFormat: envStr("DEX_LOG_FORMAT", "json"),

		HTTPAddr: envStr("DEX_HTTP_ADDR", "127.0.0.1:8000"),

		LLM: LLMConfig{
			Provider:    envStr("LLM_PROVIDER", ""),
			ModelName:   envStr("LLM_MODEL_NAME", ""),
			APIKey:      envStr("LLM_API_KEY", ""),
			BaseURL:     envStr("LLM_BASE_URL", ""),
			Temperature: envFloat("LLM_TEMPERATURE", 0.7),
			MaxTokens:   envInt("LLM_MAX_TOKENS", 2048),
			Timeout:     envSeconds("LLM_TIMEOUT", 120),
		},
		Agent: AgentConfig{
			PlanningDepth:          envInt("AGENT_PLANNING_DEPTH", 5),
			VerificationEnabled:    envBool("AGENT_VERIFICATION_ENABLED", true),
			SelfCorrectionAttempts: envInt("AGENT_SELF_CORRECTION_ATTEMPTS", 3),
			RequestTimeout:         envSeconds("AGENT_REQUEST_TIMEOUT", 300),
		},
		Notify: NotifyConfig{
			EmailFrom:          envStr("NOTIFY_EMAIL_FROM", ""),
			SMTPServer:         envStr("NOTIFY_SMTP_SERVER", ""),
			SMTPPort:           envInt("NOTIFY_SMTP_PORT", 587),
			SMTPPassword:       envStr("NOTIFY_SMTP_PASSWORD", ""),
			TwilioAccountSID:   envStr("NOTIFY_TWILIO_ACCOUNT_SID", ""),
			TwilioAuthToken:    envStr("NOTIFY_TWILIO_AUTH_TOKEN", ""),
			TwilioFromWhatsApp: envStr("NOTIFY_TWILIO_FROM_WHATSAPP", ""),
			UserWhatsAppNumber: envStr("NOTIFY_USER_WHATSAPP_NUMBER", ""),
			WebhookURL:         envStr("NOTIFY_WEBHOOK_URL", ""),
		},
		Discord: DiscordConfig{
			BotToken:  envStr("DISCORD_BOT_TOKEN", ""),
			ChannelID: envStr("DISCORD_CHANNEL_ID", ""),
		},
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// Validate returns human-readable problems with the configuration. An empty
// slice means the configuration is usable.
func (c *Config) Validate() []string {
	var problems []string
	if !c.RiskMode.Valid() {
		problems = append(problems, fmt.Sprintf("DEX_RISK_MODE %q is not one of strict, balanced, permissive", c.RiskMode))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		problems = append(problems, fmt.Sprintf("LLM_TEMPERATURE %v out of range [0, 2]", c.LLM.Temperature))
	}
	if c.Agent.SelfCorrectionAttempts < 0 {
		problems = append(problems, "AGENT_SELF_CORRECTION_ATTEMPTS must be >= 0")
	}
	if c.Agent.RequestTimeout <= 0 {
		problems = append(problems, "AGENT_REQUEST_TIMEOUT must be positive")
	}
	if _, err := c.Location(); err != nil {
		problems = append(problems, fmt.Sprintf("DEX_TIME_ZONE %q: %v", c.TimeZone, err))
	}
	return problems
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.TimeZone)
}

// EnsureDataDir creates the data directory tree (notes subdirectory
// included) and returns the resolved root.
func (c *Config) EnsureDataDir() (string, error) {
	if err := os.MkdirAll(filepath.Join(c.DataDir, "notes"), 0o755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return c.DataDir, nil
}

// RemindersPath is the canonical reminders file location.
func (c *Config) RemindersPath() string {
	return filepath.Join(c.DataDir, "reminders.json")
}

// NotesDir is the canonical notes directory.
func (c *Config) NotesDir() string {
	return filepath.Join(c.DataDir, "notes")
}

// MemoryDBPath is the canonical memory database location.
func (c *Config) MemoryDBPath() string {
	return filepath.Join(c.DataDir, "memory.db")
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return fallback
}

// envSeconds reads an integer number of seconds.
func envSeconds(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Second
}
