package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPort          = "3000"
	DefaultAdminPassword = "change-me"
	DefaultDataDir       = "data"
	DefaultSessionTTL    = 24 * time.Hour
)

type Config struct {
	Port          string
	AdminPassword string
	DataDir       string
	SessionSecret string
	SessionTTL    time.Duration
	LogLevel      string
	MetricsToken  string

	// GeneratedSecret is set when SESSION_SECRET was empty and a random one was used.
	GeneratedSecret bool
}

// Load reads the process configuration. A .env file in the working
// directory is applied first; real environment variables win over it.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Port:          envDefault("PORT", DefaultPort),
		AdminPassword: envDefault("ADMIN_PASSWORD", DefaultAdminPassword),
		DataDir:       envDefault("DATA_DIR", DefaultDataDir),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		LogLevel:      envDefault("LOG_LEVEL", "info"),
		MetricsToken:  os.Getenv("METRICS_TOKEN"),
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		return cfg, fmt.Errorf("PORT must be numeric: %q", cfg.Port)
	}

	ttl, err := envDefaultDuration("SESSION_TTL", DefaultSessionTTL)
	if err != nil {
		return cfg, err
	}
	if ttl <= 0 {
		return cfg, fmt.Errorf("SESSION_TTL must be positive, got %s", ttl)
	}
	cfg.SessionTTL = ttl

	if cfg.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return cfg, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.SessionSecret = secret
		cfg.GeneratedSecret = true
	}
	return cfg, nil
}

// Addr is the listen address for net/http.
func (c Config) Addr() string {
	return ":" + c.Port
}

func envDefault(key, val string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return val
}

func envDefaultDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
