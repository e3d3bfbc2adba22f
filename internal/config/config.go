// Package config reads the server configuration from the environment. A
// .env file in the working directory is loaded first when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	WebSocket WebSocketConfig
	Realtime  RealtimeConfig
	Logging   LoggingConfig
	App       AppConfig
	Seed      SeedConfig
}

type ServerConfig struct {
	Port               string
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
}

// DatabaseConfig sizes the pgx pool. MaxIdleConns becomes the pool's
// minimum connection count.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

// RateLimitConfig holds the per-IP limits. The Auth pair applies to the
// login endpoint and to comment creation per user.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	AuthRPS           float64
	AuthBurst         int
}

// WebSocketConfig tunes the /comments gateway.
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	MaxMessageSize  int64
	WriteWait       time.Duration
	PingInterval    time.Duration
	PongWait        time.Duration
	WelcomeMessage  string
}

// RealtimeConfig bounds each comment fan-out.
type RealtimeConfig struct {
	BroadcastTimeout time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// SeedConfig describes the administrator created on first start.
type SeedConfig struct {
	Enabled       bool
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

const defaultSeedPassword = "Admin12345"

// Load builds the configuration from the environment and validates it.
// Malformed values are reported rather than replaced by defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	env := &envReader{lookup: os.LookupEnv}
	cfg := &Config{
		Server: ServerConfig{
			Port:               env.str("SERVER_PORT", ":8080"),
			ReadTimeout:        env.duration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:       env.duration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:        env.duration("SERVER_IDLE_TIMEOUT", time.Minute),
			ShutdownTimeout:    env.duration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			CORSAllowedOrigins: env.list("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			URL:             env.str("DATABASE_URL", ""),
			MaxOpenConns:    env.integer("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    env.integer("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: env.duration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: env.duration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:         env.str("JWT_SECRET", ""),
			AccessTokenTTL: env.duration("JWT_ACCESS_TOKEN_TTL", 8*time.Hour),
		},
		RateLimit: RateLimitConfig{
			Enabled:           env.boolean("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: env.number("RATE_LIMIT_RPS", 10),
			BurstSize:         env.integer("RATE_LIMIT_BURST", 20),
			AuthRPS:           env.number("RATE_LIMIT_AUTH_RPS", 1),
			AuthBurst:         env.integer("RATE_LIMIT_AUTH_BURST", 5),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  env.list("WS_ALLOWED_ORIGINS", nil),
			ReadBufferSize:  env.integer("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: env.integer("WS_WRITE_BUFFER_SIZE", 1024),
			SendBufferSize:  env.integer("WS_SEND_BUFFER_SIZE", 256),
			MaxMessageSize:  int64(env.integer("WS_MAX_MESSAGE_SIZE", 4096)),
			WriteWait:       env.duration("WS_WRITE_WAIT", 10*time.Second),
			PingInterval:    env.duration("WS_PING_INTERVAL", 54*time.Second),
			PongWait:        env.duration("WS_PONG_WAIT", time.Minute),
			WelcomeMessage:  env.str("WS_WELCOME_MESSAGE", "Connected to comments stream"),
		},
		Realtime: RealtimeConfig{
			BroadcastTimeout: env.duration("REALTIME_BROADCAST_TIMEOUT", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  env.str("LOG_LEVEL", "info"),
			Format: env.str("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        env.str("APP_NAME", "avisos"),
			Version:     env.str("APP_VERSION", "dev"),
			Environment: env.str("APP_ENV", "development"),
		},
		Seed: SeedConfig{
			Enabled:       env.boolean("SEED_ADMIN_ENABLED", true),
			AdminName:     env.str("SEED_ADMIN_NAME", "Administrador"),
			AdminEmail:    env.str("SEED_ADMIN_EMAIL", "admin@avisos.local"),
			AdminPassword: env.str("SEED_ADMIN_PASSWORD", defaultSeedPassword),
		},
	}

	problems := append(env.problems, cfg.check()...)
	if len(problems) > 0 {
		return nil, errors.New("configuration errors:\n  - " + strings.Join(problems, "\n  - "))
	}
	return cfg, nil
}

// Validate reports every inconsistency in c at once.
func (c *Config) Validate() error {
	if problems := c.check(); len(problems) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(problems, "\n  - "))
	}
	return nil
}

func (c *Config) check() []string {
	var p []string
	add := func(cond bool, msg string) {
		if cond {
			p = append(p, msg)
		}
	}

	add(c.Database.URL == "", "DATABASE_URL is required")
	add(c.JWT.Secret == "", "JWT_SECRET is required")

	if c.IsProduction() {
		add(len(c.JWT.Secret) < 32, "JWT_SECRET must be at least 32 characters in production")
		add(len(c.WebSocket.AllowedOrigins) == 0, "WS_ALLOWED_ORIGINS must be set in production")
		add(c.Seed.Enabled && c.Seed.AdminPassword == defaultSeedPassword, "SEED_ADMIN_PASSWORD must be changed in production")
	}

	add(c.WebSocket.PingInterval >= c.WebSocket.PongWait, "WS_PING_INTERVAL must be shorter than WS_PONG_WAIT")
	add(c.WebSocket.SendBufferSize <= 0, "WS_SEND_BUFFER_SIZE must be positive")
	add(c.Realtime.BroadcastTimeout <= 0, "REALTIME_BROADCAST_TIMEOUT must be positive")
	add(c.Seed.Enabled && (c.Seed.AdminEmail == "" || c.Seed.AdminPassword == ""),
		"SEED_ADMIN_EMAIL and SEED_ADMIN_PASSWORD are required when seeding is enabled")
	add(c.Database.MaxIdleConns > c.Database.MaxOpenConns, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	return p
}

func (c *Config) IsDevelopment() bool { return c.App.Environment == "development" }

func (c *Config) IsProduction() bool { return c.App.Environment == "production" }

// String renders c for logging with the secrets removed.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, DB: %s, JWT: [REDACTED], RateLimit: %v, Seed: %s, Environment: %s}",
		c.Server.Port,
		redactURL(c.Database.URL),
		c.RateLimit.Enabled,
		c.Seed.AdminEmail,
		c.App.Environment,
	)
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "[REDACTED]"
	}
	return u.Redacted()
}

// envReader looks variables up and records the ones it cannot parse.
type envReader struct {
	lookup   func(string) (string, bool)
	problems []string
}

func (e *envReader) raw(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) invalid(key, want, got string) {
	e.problems = append(e.problems, fmt.Sprintf("%s must be %s, got %q", key, want, got))
}

func (e *envReader) str(key, def string) string {
	if v, ok := e.raw(key); ok {
		return v
	}
	return def
}

func (e *envReader) integer(key string, def int) int {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.invalid(key, "an integer", v)
		return def
	}
	return n
}

func (e *envReader) number(key string, def float64) float64 {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.invalid(key, "a number", v)
		return def
	}
	return f
}

func (e *envReader) boolean(key string, def bool) bool {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.invalid(key, "a boolean", v)
		return def
	}
	return b
}

func (e *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.invalid(key, "a duration", v)
		return def
	}
	return d
}

// list splits a comma separated value, dropping empty items.
func (e *envReader) list(key string, def []string) []string {
	v, ok := e.raw(key)
	if !ok {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
