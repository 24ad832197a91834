package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Trading
	Symbols        string  // comma-separated A-share codes, e.g. "000001,600519"
	InitialCapital float64 // yuan
	RiskPerTrade   float64 // fraction of cash per entry
	Strategy       string  // "ma_cross" or "macd"
	PollInterval   time.Duration
	History        int // rolling closes fed to the strategy in live mode

	// Broker
	AccountID  string
	BrokerURL  string // empty → paper broker
	APIKey     string
	TOTPSecret string

	// Quote feed
	QuoteWSURL string // empty → HTTP polling

	// Infrastructure
	RedisAddr     string
	RedisPassword string
	SQLitePath    string
	JournalPath   string
	MetricsAddr   string
	APIAddr       string // empty → status API disabled
	AlertWebhook  string // empty → alerts go to the process log
}

// Load reads configuration from environment variables with sensible defaults.
// Remote-broker credentials are required only when BROKER_URL is set.
func Load() *Config {
	cfg := &Config{
		Symbols:        getEnv("SYMBOLS", "000001"),
		InitialCapital: getFloat("INITIAL_CAPITAL", 1000000),
		RiskPerTrade:   getFloat("RISK_PER_TRADE", 0.02),
		Strategy:       getEnv("STRATEGY", "ma_cross"),
		PollInterval:   getDuration("POLL_INTERVAL", 3*time.Second),
		History:        getInt("HISTORY", 60),

		AccountID:  getEnv("ACCOUNT_ID", "paper"),
		BrokerURL:  getEnv("BROKER_URL", ""),
		QuoteWSURL: getEnv("QUOTE_WS_URL", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/bars.db"),
		JournalPath:   getEnv("JOURNAL_PATH", "data/journal.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),
		APIAddr:       getEnv("API_ADDR", ":9091"),
		AlertWebhook:  getEnv("ALERT_WEBHOOK_URL", ""),
	}

	if cfg.BrokerURL != "" {
		cfg.APIKey = mustEnv("BROKER_API_KEY")
		cfg.TOTPSecret = mustEnv("BROKER_TOTP_SECRET")
	}
	return cfg
}

// ParseSymbols splits the Symbols list, dropping empty entries.
func (c *Config) ParseSymbols() []string {
	parts := strings.Split(c.Symbols, ",")
	symbols := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		symbols = append(symbols, p)
	}
	return symbols
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return f
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %v", key, v, fallback)
		return fallback
	}
	return d
}
