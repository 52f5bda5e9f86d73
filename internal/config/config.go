package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/utafrali/catalogimporter/internal/importer"
	pkgconfig "github.com/utafrali/catalogimporter/pkg/config"
)

// Store kinds.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Picture storage kinds.
const (
	PictureStorageLocal  = "local"
	PictureStorageMemory = "memory"
)

// Config holds all configuration for the catalog importer.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort        int           `env:"IMPORTER_HTTP_PORT" envDefault:"8014"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	MaxUploadMB     int64         `env:"IMPORTER_MAX_UPLOAD_MB" envDefault:"64"`

	// Entity store: postgres or memory.
	Store string `env:"IMPORTER_STORE" envDefault:"postgres"`

	// PostgreSQL
	PostgresHost  string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort  int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser  string `env:"POSTGRES_USER" envDefault:"catalog"`
	PostgresPass  string `env:"POSTGRES_PASSWORD" envDefault:"catalog_secret"`
	PostgresDB    string `env:"CATALOG_DB_NAME" envDefault:"catalog"`
	PostgresSSL   string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Mounted secret; wins over POSTGRES_PASSWORD when set.
	PostgresPassFile string `env:"POSTGRES_PASSWORD_FILE,file"`

	// Database pool
	DBMaxConns            int32 `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int32 `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int   `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int   `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"30"`
	SlowQueryThresholdMs  int   `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Redis (progress and abort flags). Empty host disables sharing.
	RedisHost     string        `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort     int           `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass     string        `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB       int           `env:"REDIS_DB" envDefault:"0"`
	RedisPoolSize int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	ProgressTTL   time.Duration `env:"IMPORT_PROGRESS_TTL" envDefault:"24h"`

	// Kafka. No brokers disables change notifications.
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// Import defaults
	BatchSize          int    `env:"IMPORT_BATCH_SIZE" envDefault:"100"`
	Culture            string `env:"IMPORT_CULTURE" envDefault:"en-US"`
	ParallelDependents bool   `env:"IMPORT_PARALLEL_DEPENDENTS" envDefault:"false"`
	MaxConcurrent      int    `env:"IMPORT_MAX_CONCURRENT" envDefault:"2"`
	WorkDir            string `env:"IMPORT_WORK_DIR" envDefault:""`

	// Slugs
	ReservedSlugs []string `env:"SEO_RESERVED_SLUGS" envDefault:"admin,cart,checkout,login,logout,register,search" envSeparator:","`
	SlugMaxLength int      `env:"SEO_SLUG_MAX_LENGTH" envDefault:"400"`

	// Pictures
	PictureStorage   string `env:"PICTURE_STORAGE" envDefault:"local"`
	PictureDir       string `env:"PICTURE_DIR" envDefault:"./data/pictures"`
	PictureBaseURL   string `env:"PICTURE_BASE_URL" envDefault:"/pictures"`
	PictureSourceDir string `env:"PICTURE_SOURCE_DIR" envDefault:"."`
	RemotePictures   bool   `env:"PICTURE_REMOTE_ENABLED" envDefault:"true"`

	// Circuit breaker for remote picture downloads
	CBMaxRequests  uint32  `env:"CB_MAX_REQUESTS" envDefault:"1"`
	CBInterval     int     `env:"CB_INTERVAL_SECONDS" envDefault:"60"`
	CBTimeout      int     `env:"CB_TIMEOUT_SECONDS" envDefault:"30"`
	CBFailureRatio float64 `env:"CB_FAILURE_RATIO" envDefault:"0.6"`
	CBMinRequests  uint32  `env:"CB_MIN_REQUESTS" envDefault:"5"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Profiling. Empty disables /debug/pprof.
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load importer config: %w", err)
	}
	if secret := strings.TrimSpace(cfg.PostgresPassFile); secret != "" {
		cfg.PostgresPass = secret
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if c.Store != StorePostgres && c.Store != StoreMemory {
		return fmt.Errorf("IMPORTER_STORE must be %q or %q, got %q", StorePostgres, StoreMemory, c.Store)
	}
	if c.Store == StorePostgres && (c.PostgresPort < 1 || c.PostgresPort > 65535) {
		return fmt.Errorf("invalid PostgreSQL port: %d", c.PostgresPort)
	}
	if c.PictureStorage != PictureStorageLocal && c.PictureStorage != PictureStorageMemory {
		return fmt.Errorf("PICTURE_STORAGE must be %q or %q, got %q", PictureStorageLocal, PictureStorageMemory, c.PictureStorage)
	}
	if c.BatchSize < 1 || c.BatchSize > importer.MaxBatchSize {
		return fmt.Errorf("IMPORT_BATCH_SIZE must be between 1 and %d, got %d", importer.MaxBatchSize, c.BatchSize)
	}
	if _, err := language.Parse(c.Culture); err != nil {
		return fmt.Errorf("invalid IMPORT_CULTURE %q: %w", c.Culture, err)
	}
	if c.MaxConcurrent < 1 {
		return fmt.Errorf("IMPORT_MAX_CONCURRENT must be positive, got %d", c.MaxConcurrent)
	}
	if c.MaxUploadMB < 1 {
		return fmt.Errorf("IMPORTER_MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	if c.CBFailureRatio <= 0 || c.CBFailureRatio > 1 {
		return fmt.Errorf("CB_FAILURE_RATIO must be in (0, 1], got %v", c.CBFailureRatio)
	}
	if c.OTELSampleRate < 0 || c.OTELSampleRate > 1 {
		return fmt.Errorf("OTEL_SAMPLE_RATE must be between 0.0 and 1.0, got %v", c.OTELSampleRate)
	}
	return nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
