package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where sprachsense stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string

	// AI Configuration
	AIEnabled     bool    // SPRACHSENSE_AI_ENABLED
	AIBaseURL     string  // SPRACHSENSE_AI_BASE_URL (default: https://api.openai.com/v1)
	AIAPIKey      string  // SPRACHSENSE_AI_API_KEY
	AIChatModel   string  // SPRACHSENSE_AI_CHAT_MODEL (default: gpt-4o-mini)
	AITemperature float32 // SPRACHSENSE_AI_TEMPERATURE (default: 0.3)
	AITimeout     time.Duration

	// Evaluation pipeline configuration
	EvalCacheTTL    time.Duration // SPRACHSENSE_EVAL_CACHE_TTL (default: 30m)
	EvalRevealDelay time.Duration // SPRACHSENSE_EVAL_REVEAL_DELAY (default: 400ms)
	EvalMaxInFlight int64         // SPRACHSENSE_EVAL_MAX_IN_FLIGHT (default: 8)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIAPIKey != ""
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// FromEnv loads configuration from SPRACHSENSE_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("SPRACHSENSE_AI_ENABLED") == "true"
	p.AIBaseURL = getEnvOrDefault("SPRACHSENSE_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIAPIKey = os.Getenv("SPRACHSENSE_AI_API_KEY")
	p.AIChatModel = getEnvOrDefault("SPRACHSENSE_AI_CHAT_MODEL", "gpt-4o-mini")
	if v := os.Getenv("SPRACHSENSE_AI_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 32); err == nil {
			p.AITemperature = float32(f)
		}
	}
	if p.AITemperature == 0 {
		p.AITemperature = 0.3
	}
	p.AITimeout = getDurationEnv("SPRACHSENSE_AI_TIMEOUT", 30*time.Second)

	p.EvalCacheTTL = getDurationEnv("SPRACHSENSE_EVAL_CACHE_TTL", 30*time.Minute)
	p.EvalRevealDelay = getDurationEnv("SPRACHSENSE_EVAL_REVEAL_DELAY", 400*time.Millisecond)
	if v := os.Getenv("SPRACHSENSE_EVAL_MAX_IN_FLIGHT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			p.EvalMaxInFlight = n
		}
	}
	if p.EvalMaxInFlight == 0 {
		p.EvalMaxInFlight = 8
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q: only 'sqlite' and 'postgres' are supported", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		p.Data = "/var/opt/sprachsense"
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return errors.Wrap(err, "failed to check data dir")
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("sprachsense_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	return nil
}
