package configs

import (
	"fmt"
	"os"
	"time"

	"github.com/gatherly/gatherly/internal/infrastructure/env"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	HTTP        HTTPConfig        `koanf:"http"`
	Auth        AuthConfig        `koanf:"auth"`
	Chat        ChatConfig        `koanf:"chat"`
	Database    DatabaseConfig    `koanf:"database"`
	RateLimiter RateLimiterConfig `koanf:"rateLimiter"`
}

type HTTPConfig struct {
	Host           string        `koanf:"host"`
	Port           uint16        `koanf:"port"`
	FrontendOrigin string        `koanf:"frontend_origin"`
	ReadTimeout    time.Duration `koanf:"read_timeout"`
	WriteTimeout   time.Duration `koanf:"write_timeout"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

type ChatConfig struct {
	PingInterval time.Duration `koanf:"ping_interval"`
	// Connections silent for longer than StaleTimeout are swept.
	StaleTimeout     time.Duration `koanf:"stale_timeout"`
	MaxContentLength int           `koanf:"max_content_length"`
	SendBuffer       int           `koanf:"send_buffer"`
}

type DatabaseConfig struct {
	// DSN of the hosted Postgres. Empty selects the in-memory store.
	DSN      string `koanf:"dsn"`
	Capacity uint   `koanf:"capacity"`
}

type RateLimiterConfig struct {
	RequestsPerTimeFrame int           `koanf:"requestsPerTimeFrame"`
	TimeFrame            time.Duration `koanf:"timeFrame"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is required (set JWT_SECRET)")
	}

	return &cfg, nil
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "http.host", "0.0.0.0")
	setDefault(k, "http.port", 8080)
	setDefault(k, "http.frontend_origin", "http://localhost:3000")
	setDefault(k, "http.read_timeout", 10*time.Second)
	setDefault(k, "http.write_timeout", 30*time.Second)

	setDefault(k, "auth.token_ttl", 24*time.Hour)

	setDefault(k, "chat.ping_interval", 25*time.Second)
	setDefault(k, "chat.stale_timeout", 75*time.Second)
	setDefault(k, "chat.max_content_length", 1000)
	setDefault(k, "chat.send_buffer", 64)

	setDefault(k, "database.capacity", 500)

	setDefault(k, "rateLimiter.requestsPerTimeFrame", 100)
	setDefault(k, "rateLimiter.timeFrame", time.Minute)
}

func applyEnvOverrides(k *koanf.Koanf) {
	if host := env.GetString("HTTP_HOST", ""); host != "" {
		k.Set("http.host", host)
	}
	if port := env.GetInt("PORT", 0); port > 0 {
		k.Set("http.port", port)
	}
	if origin := env.GetString("FRONTEND_ORIGIN", ""); origin != "" {
		k.Set("http.frontend_origin", origin)
	}

	if secret := env.GetString("JWT_SECRET", ""); secret != "" {
		k.Set("auth.jwt_secret", secret)
	}
	if ttl := env.GetDuration("JWT_TOKEN_TTL", 0); ttl > 0 {
		k.Set("auth.token_ttl", ttl)
	}

	if dsn := env.GetString("DATABASE_URL", ""); dsn != "" {
		k.Set("database.dsn", dsn)
	}

	if interval := env.GetDuration("CHAT_PING_INTERVAL", 0); interval > 0 {
		k.Set("chat.ping_interval", interval)
	}
	if timeout := env.GetDuration("CHAT_STALE_TIMEOUT", 0); timeout > 0 {
		k.Set("chat.stale_timeout", timeout)
	}
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value interface{}) {
	if !k.Exists(key) {
		k.Set(key, value)
	}
}
