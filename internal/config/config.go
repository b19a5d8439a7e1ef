package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	NodeID      int64

	LogLevel  string
	LogFormat string
	LogFile   string

	OTLPEndpoint         string
	OtelEnabled          bool
	OtelProtocol         string
	OtelSamplingRatio    float64
	OtelMetricIntervalMS int

	DBType             string
	DBHost             string
	DBPort             string
	DBName             string
	DBUser             string
	DBPassword         string
	DBSSLMode          string
	DBSQLitePath       string
	DBMaxIdleConn      int
	DBMaxOpenConn      int
	DBConnMaxLifetime  int
	DBConnMaxIdleTime  int
	DBTxTimeoutSeconds int
	DBSlowQueryMS      int
	DBLogLevel         string

	Redis       RedisConfig
	Scheduler   SchedulerConfig
	Notify      NotifyConfig
	RateLimit   RateLimitConfig
	Bootstrap   BootstrapConfig
	MetricsPush MetricsPushConfig

	AutoMigrate bool

	SLAConfigPath   string
	DefaultCurrency string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type SchedulerConfig struct {
	Enabled            bool
	RunIntervalSeconds int
	BatchSize          int
}

type RateLimitConfig struct {
	Enabled    bool
	WriteRate  float64
	WriteBurst int
}

// MetricsPushConfig targets a Pushgateway or remote_write endpoint for
// one-shot commands.
type MetricsPushConfig struct {
	Exporter  string
	Endpoint  string
	AuthToken string
}

type BootstrapConfig struct {
	SeedDefaults bool
	Department   string
	AdminEmail   string
}

type NotifyConfig struct {
	Stream         string
	TimeoutSeconds int
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "repairdesk"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),
		NodeID:      int64(getenvInt("SNOWFLAKE_NODE_ID", 1)),

		LogLevel:  strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getenv("LOG_FORMAT", "json")),
		LogFile:   strings.TrimSpace(getenv("LOG_FILE", "")),

		OTLPEndpoint:         getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
		OtelEnabled:          getenvBool("OTEL_ENABLED", false),
		OtelProtocol:         strings.ToLower(getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "http"))),
		OtelSamplingRatio:    getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		OtelMetricIntervalMS: getenvInt("OTEL_METRIC_EXPORT_INTERVAL", 10000),

		DBType:             getenv("DATABASE_TYPE", "postgres"),
		DBHost:             getenv("DATABASE_HOST", "localhost"),
		DBPort:             getenv("DATABASE_PORT", "5432"),
		DBName:             getenv("DATABASE_NAME", "repairdesk"),
		DBUser:             getenv("DATABASE_USER", "postgres"),
		DBPassword:         getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:          getenv("DATABASE_SSLMODE", "disable"),
		DBSQLitePath:       getenv("DATABASE_SQLITE_PATH", "repairdesk.db"),
		DBMaxIdleConn:      getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:      getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime:  getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime:  getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBTxTimeoutSeconds: getenvInt("DATABASE_TX_TIMEOUT", 10),
		DBSlowQueryMS:      getenvInt("DATABASE_SLOW_QUERY_MS", 200),
		DBLogLevel:         strings.ToLower(getenv("DATABASE_LOG_LEVEL", "warn")),

		Redis: RedisConfig{
			Enabled:  getenvBool("REDIS_ENABLED", false),
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "localhost:6379")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		Scheduler: SchedulerConfig{
			Enabled:            getenvBool("SCHEDULER_ENABLED", true),
			RunIntervalSeconds: getenvInt("SCHEDULER_RUN_INTERVAL", 60),
			BatchSize:          getenvInt("SCHEDULER_BATCH_SIZE", 200),
		},
		Notify: NotifyConfig{
			Stream:         getenv("NOTIFY_STREAM", "repairdesk:notifications"),
			TimeoutSeconds: getenvInt("NOTIFY_TIMEOUT", 5),
		},
		RateLimit: RateLimitConfig{
			Enabled:    getenvBool("RATE_LIMIT_ENABLED", false),
			WriteRate:  getenvFloat("RATE_LIMIT_WRITE_RATE", 5),
			WriteBurst: getenvInt("RATE_LIMIT_WRITE_BURST", 20),
		},
		Bootstrap: BootstrapConfig{
			SeedDefaults: getenvBool("BOOTSTRAP_SEED_DEFAULTS", false),
			Department:   strings.TrimSpace(getenv("BOOTSTRAP_DEPARTMENT", "")),
			AdminEmail:   strings.TrimSpace(getenv("BOOTSTRAP_ADMIN_EMAIL", "")),
		},
		MetricsPush: MetricsPushConfig{
			Exporter:  strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", "")),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("METRICS_PUSH_TOKEN", "")),
		},
		AutoMigrate:     getenvBool("AUTO_MIGRATE", true),
		SLAConfigPath:   strings.TrimSpace(getenv("SLA_CONFIG_PATH", "")),
		DefaultCurrency: strings.ToUpper(strings.TrimSpace(getenv("DEFAULT_CURRENCY", "USD"))),
	}
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
