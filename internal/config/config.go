// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, database connection, upstream API endpoints, side-state storage,
// rate limiting, and observability settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Supported side-state backends.
const (
	ArtifactsFile  = "file"
	ArtifactsMinio = "minio"
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
	ServiceName string  // OTEL_SERVICE_NAME
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DatabaseConfig selects the SQL backend and its connection parameters.
// Path is used by sqlite only; the network fields by mysql and postgres.
type DatabaseConfig struct {
	Driver   string // DB_DRIVER: sqlite|mysql|postgres
	Path     string // DB_PATH
	Host     string // DB_HOST
	Port     int    // DB_PORT
	User     string // DB_USER
	Password string // DB_PASSWORD
	Name     string // DB_NAME
}

// DSN renders the driver-specific connection string.
func (d DatabaseConfig) DSN() string {
	switch d.Driver {
	case DriverMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			d.User, d.Password, d.Host, d.Port, d.Name)
	case DriverPostgres:
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
			d.Host, d.User, d.Password, d.Name, d.Port)
	default:
		return d.Path
	}
}

// UpstreamConfig holds the two public data sources used by refresh.
type UpstreamConfig struct {
	CountriesURL string        // COUNTRIES_API_URL
	RatesURL     string        // RATES_API_URL
	Timeout      time.Duration // UPSTREAM_TIMEOUT, applied per call
}

// MinioConfig holds the S3-compatible bucket used when ARTIFACT_BACKEND=minio.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	Prefix    string
	Timeout   time.Duration
}

// ArtifactsConfig selects where the refresh timestamp and summary image live.
type ArtifactsConfig struct {
	Backend  string // file|minio
	CacheDir string // CACHE_DIR (file backend)
	Minio    MinioConfig
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // must exceed two upstream timeouts
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	Database  DatabaseConfig
	Upstream  UpstreamConfig
	Artifacts ArtifactsConfig

	// Rate limiting
	RateRPS      float64 // tokens per second (>= 0)
	RateBurst    int     // bucket size (>= 1)
	RefreshRPS   float64 // tighter bucket for POST /countries/refresh
	RefreshBurst int

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a refresh Idempotency-Key is replayable

	// Observability
	OTEL OTELConfig
}

// Default upstream endpoints.
const (
	DefaultCountriesURL = "https://restcountries.com/v3.1/all?fields=name,capital,region,population,flags,currencies"
	DefaultRatesURL     = "https://open.er-api.com/v6/latest/USD"
)

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
		WriteTimeout:      getdur("WRITE_TIMEOUT", 60*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/")),

		Database: DatabaseConfig{
			Driver:   strings.ToLower(getenv("DB_DRIVER", DriverSQLite)),
			Path:     getenv("DB_PATH", "countries.db"),
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getint("DB_PORT", 0),
			User:     getenv("DB_USER", ""),
			Password: getenv("DB_PASSWORD", ""),
			Name:     getenv("DB_NAME", "countries"),
		},

		Upstream: UpstreamConfig{
			CountriesURL: getenv("COUNTRIES_API_URL", DefaultCountriesURL),
			RatesURL:     getenv("RATES_API_URL", DefaultRatesURL),
			Timeout:      getdur("UPSTREAM_TIMEOUT", 20*time.Second),
		},

		Artifacts: ArtifactsConfig{
			Backend:  strings.ToLower(getenv("ARTIFACT_BACKEND", ArtifactsFile)),
			CacheDir: getenv("CACHE_DIR", "cache"),
			Minio: MinioConfig{
				Endpoint:  getenv("MINIO_ENDPOINT", "localhost:9000"),
				AccessKey: getenv("MINIO_ACCESS_KEY", "minioadmin"),
				SecretKey: getenv("MINIO_SECRET_KEY", "minioadmin"),
				UseSSL:    getbool("MINIO_USE_SSL", false),
				Bucket:    getenv("MINIO_BUCKET", "country-cache"),
				Region:    getenv("MINIO_REGION", ""),
				Prefix:    getenv("MINIO_PREFIX", ""),
				Timeout:   getdur("MINIO_TIMEOUT", 30*time.Second),
			},
		},

		// Rate limiting
		RateRPS:      getfloat("RATE_RPS", 5.0),
		RateBurst:    getint("RATE_BURST", 10),
		RefreshRPS:   getfloat("REFRESH_RPS", 0.2),
		RefreshBurst: getint("REFRESH_BURST", 1),

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
			ServiceName: getenv("OTEL_SERVICE_NAME", "country-currency-api"),
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
	if cfg.Database.Driver == "postgresql" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Database.Port == 0 {
		switch cfg.Database.Driver {
		case DriverMySQL:
			cfg.Database.Port = 3306
		case DriverPostgres:
			cfg.Database.Port = 5432
		}
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
	switch cfg.Database.Driver {
	case DriverSQLite:
		if strings.TrimSpace(cfg.Database.Path) == "" {
			return cfg, errors.New("DB_PATH must not be empty")
		}
	case DriverMySQL, DriverPostgres:
		if strings.TrimSpace(cfg.Database.Host) == "" || strings.TrimSpace(cfg.Database.Name) == "" {
			return cfg, errors.New("DB_HOST and DB_NAME must not be empty")
		}
	default:
		return cfg, errors.New("DB_DRIVER must be one of: sqlite, mysql, postgres")
	}
	if strings.TrimSpace(cfg.Upstream.CountriesURL) == "" || strings.TrimSpace(cfg.Upstream.RatesURL) == "" {
		return cfg, errors.New("COUNTRIES_API_URL and RATES_API_URL must not be empty")
	}
	if cfg.Upstream.Timeout <= 0 {
		return cfg, errors.New("UPSTREAM_TIMEOUT must be > 0")
	}
	switch cfg.Artifacts.Backend {
	case ArtifactsFile:
		if strings.TrimSpace(cfg.Artifacts.CacheDir) == "" {
			return cfg, errors.New("CACHE_DIR must not be empty")
		}
	case ArtifactsMinio:
		if strings.TrimSpace(cfg.Artifacts.Minio.Bucket) == "" {
			return cfg, errors.New("MINIO_BUCKET must not be empty")
		}
	default:
		return cfg, errors.New("ARTIFACT_BACKEND must be one of: file, minio")
	}
	if cfg.RateRPS < 0 || cfg.RefreshRPS < 0 {
		return cfg, errors.New("RATE_RPS and REFRESH_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 || cfg.RefreshBurst < 1 {
		return cfg, errors.New("RATE_BURST and REFRESH_BURST must be >= 1")
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
