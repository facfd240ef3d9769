// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, the store, floor rules (capacity, service window, dining durations,
// seating policy), rate limiting, messaging, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "hoststand")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DBConfig selects the gorm dialector and its DSN.
type DBConfig struct {
	Driver string // sqlite|postgres|mysql
	DSN    string // file path for sqlite
}

// FloorConfig holds the restaurant rules the services apply.
type FloorConfig struct {
	Capacity         int           // total seats; 0 means sum of active tables
	OpenTime         string        // HH:MM
	CloseTime        string        // HH:MM
	Timezone         string        // IANA name or "Local"
	DiningDuration   time.Duration // average stay in fixed mode
	DurationMode     string        // fixed|party
	SlotStep         time.Duration // spacing of suggested times
	SuggestionLimit  int
	SeatingPolicy    string        // strict|best-effort
	NoShowGrace      time.Duration // lateness before a reservation is a no-show
	NoShowSweepEvery time.Duration // 0 disables the sweeper
}

// Location resolves Timezone, falling back to time.Local.
func (f FloorConfig) Location() *time.Location {
	if f.Timezone == "" || strings.EqualFold(f.Timezone, "local") {
		return time.Local
	}
	if loc, err := time.LoadLocation(f.Timezone); err == nil {
		return loc
	}
	return time.Local
}

// RedisConfig enables the shared rate limiter when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AMQPConfig enables floor event publishing when URL is set.
type AMQPConfig struct {
	URL   string
	Queue string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Store
	DB DBConfig

	// Floor rules
	Floor FloorConfig

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)
	Redis     RedisConfig

	// Messaging
	AMQP AMQPConfig

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Store
		DB: DBConfig{
			Driver: strings.ToLower(getenv("DB_DRIVER", "sqlite")),
			DSN:    getenv("DB_DSN", getenv("DB_PATH", "hoststand.db")),
		},

		// Floor rules
		Floor: FloorConfig{
			Capacity:         getint("RESTAURANT_CAPACITY", 0),
			OpenTime:         getenv("OPEN_TIME", "17:00"),
			CloseTime:        getenv("CLOSE_TIME", "22:00"),
			Timezone:         getenv("TIMEZONE", "Local"),
			DiningDuration:   getdur("DINING_DURATION", 90*time.Minute),
			DurationMode:     strings.ToLower(getenv("DINING_DURATION_MODE", "fixed")),
			SlotStep:         getdur("SLOT_STEP", 30*time.Minute),
			SuggestionLimit:  getint("SUGGESTION_LIMIT", 3),
			SeatingPolicy:    strings.ToLower(getenv("SEATING_POLICY", "strict")),
			NoShowGrace:      getdur("NO_SHOW_GRACE", 20*time.Minute),
			NoShowSweepEvery: getdur("NO_SHOW_SWEEP_INTERVAL", 5*time.Minute),
		},

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),
		Redis: RedisConfig{
			Addr:     getenv("REDIS_ADDR", ""),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       getint("REDIS_DB", 0),
		},

		// Messaging
		AMQP: AMQPConfig{
			URL:   getenv("AMQP_URL", ""),
			Queue: getenv("AMQP_QUEUE", "floor.events"),
		},

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "hoststand"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}
	switch cfg.DB.Driver {
	case "sqlite3":
		cfg.DB.Driver = "sqlite"
	case "postgresql", "pg":
		cfg.DB.Driver = "postgres"
	}
	if cfg.Floor.SeatingPolicy == "best_effort" || cfg.Floor.SeatingPolicy == "besteffort" {
		cfg.Floor.SeatingPolicy = "best-effort"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	switch cfg.DB.Driver {
	case "sqlite", "postgres", "mysql":
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, postgres, mysql")
	}
	if strings.TrimSpace(cfg.DB.DSN) == "" {
		return cfg, errors.New("DB_DSN must not be empty")
	}
	if err := validateFloor(cfg.Floor); err != nil {
		return cfg, err
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Redis.DB < 0 {
		return cfg, errors.New("REDIS_DB must be >= 0")
	}
	if cfg.AMQP.URL != "" && strings.TrimSpace(cfg.AMQP.Queue) == "" {
		return cfg, errors.New("AMQP_QUEUE must not be empty when AMQP_URL is set")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func validateFloor(f FloorConfig) error {
	if f.Capacity < 0 {
		return errors.New("RESTAURANT_CAPACITY must be >= 0")
	}
	open, err := time.Parse("15:04", f.OpenTime)
	if err != nil {
		return errors.New("OPEN_TIME must be HH:MM")
	}
	closing, err := time.Parse("15:04", f.CloseTime)
	if err != nil {
		return errors.New("CLOSE_TIME must be HH:MM")
	}
	if !closing.After(open) {
		return errors.New("CLOSE_TIME must be after OPEN_TIME")
	}
	if !strings.EqualFold(f.Timezone, "local") && f.Timezone != "" {
		if _, err := time.LoadLocation(f.Timezone); err != nil {
			return errors.New("TIMEZONE must be an IANA zone name or Local")
		}
	}
	if f.DiningDuration <= 0 {
		return errors.New("DINING_DURATION must be > 0")
	}
	switch f.DurationMode {
	case "fixed", "party":
	default:
		return errors.New("DINING_DURATION_MODE must be one of: fixed, party")
	}
	if f.SlotStep < time.Minute {
		return errors.New("SLOT_STEP must be at least 1m")
	}
	if f.SuggestionLimit < 1 {
		return errors.New("SUGGESTION_LIMIT must be >= 1")
	}
	switch f.SeatingPolicy {
	case "strict", "best-effort":
	default:
		return errors.New("SEATING_POLICY must be one of: strict, best-effort")
	}
	if f.NoShowGrace <= 0 {
		return errors.New("NO_SHOW_GRACE must be > 0")
	}
	if f.NoShowSweepEvery < 0 {
		return errors.New("NO_SHOW_SWEEP_INTERVAL must be >= 0")
	}
	return nil
}

// ---- helpers (no external deps) ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
