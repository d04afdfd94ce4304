package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	StrategyDeterministic = "deterministic"
	StrategyOracle        = "oracle"

	CatalogDriverPostgres = "postgres"
	CatalogDriverMongo    = "mongo"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	Mongo         MongoConfig
	CORS          CORSConfig
	Log           LogConfig
	Scheduler     SchedulerConfig
	Oracle        OracleConfig
	Catalog       CatalogConfig
	Notifications NotificationsConfig
	Export        ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// MongoConfig points the catalog at the document store used by the catalog CRUD layer.
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SchedulerConfig governs timetable generation and optimization.
type SchedulerConfig struct {
	Enabled               bool
	Strategy              string
	WeeksPerTerm          int
	DefaultWeeklySessions int
	LockTTL               time.Duration
	OptimizerMaxAttempts  int
}

// OracleConfig configures the external generation oracle.
type OracleConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Enabled reports whether an oracle client can be constructed.
func (o OracleConfig) Enabled() bool {
	return strings.TrimSpace(o.APIKey) != ""
}

// CatalogConfig selects the catalog backend and its read-through cache TTL.
type CatalogConfig struct {
	Driver   string
	CacheTTL time.Duration
}

// NotificationsConfig tunes the asynchronous notification dispatcher.
type NotificationsConfig struct {
	Workers    int
	Retries    int
	BufferSize int
}

// ExportConfig controls stored exports behind signed download links.
type ExportConfig struct {
	Dir           string
	SigningSecret string
	LinkTTL       time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_REDIS"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Mongo = MongoConfig{
		URI:            v.GetString("MONGO_URI"),
		Database:       v.GetString("MONGO_DATABASE"),
		ConnectTimeout: parseDuration(v.GetString("MONGO_CONNECT_TIMEOUT"), 20*time.Second),
		MaxPoolSize:    uint64(v.GetInt("MONGO_MAX_POOL_SIZE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	strategy := strings.ToLower(strings.TrimSpace(v.GetString("SCHEDULER_STRATEGY")))
	if strategy != StrategyOracle {
		strategy = StrategyDeterministic
	}
	cfg.Scheduler = SchedulerConfig{
		Enabled:               v.GetBool("ENABLE_SCHEDULER"),
		Strategy:              strategy,
		WeeksPerTerm:          positiveOr(v.GetInt("SCHEDULER_WEEKS_PER_TERM"), 13),
		DefaultWeeklySessions: positiveOr(v.GetInt("SCHEDULER_DEFAULT_WEEKLY_SESSIONS"), 3),
		LockTTL:               parseDuration(v.GetString("SCHEDULER_LOCK_TTL"), 2*time.Minute),
		OptimizerMaxAttempts:  positiveOr(v.GetInt("OPTIMIZER_MAX_ATTEMPTS"), 500),
	}

	cfg.Oracle = OracleConfig{
		APIKey:  v.GetString("ORACLE_API_KEY"),
		Model:   v.GetString("ORACLE_MODEL"),
		Timeout: parseDuration(v.GetString("ORACLE_TIMEOUT"), 30*time.Second),
	}

	driver := strings.ToLower(strings.TrimSpace(v.GetString("CATALOG_DRIVER")))
	if driver != CatalogDriverMongo {
		driver = CatalogDriverPostgres
	}
	cfg.Catalog = CatalogConfig{
		Driver:   driver,
		CacheTTL: parseDuration(v.GetString("CATALOG_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:    positiveOr(v.GetInt("NOTIFICATIONS_WORKERS"), 1),
		Retries:    positiveOr(v.GetInt("NOTIFICATIONS_RETRIES"), 3),
		BufferSize: positiveOr(v.GetInt("NOTIFICATIONS_BUFFER_SIZE"), 64),
	}

	cfg.Export = ExportConfig{
		Dir:           v.GetString("EXPORT_DIR"),
		SigningSecret: v.GetString("EXPORT_SIGNING_SECRET"),
		LinkTTL:       parseDuration(v.GetString("EXPORT_LINK_TTL"), 24*time.Hour),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "timetable")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("ENABLE_REDIS", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "timetable")
	v.SetDefault("MONGO_CONNECT_TIMEOUT", "20s")
	v.SetDefault("MONGO_MAX_POOL_SIZE", 20)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENABLE_SCHEDULER", true)
	v.SetDefault("SCHEDULER_STRATEGY", StrategyDeterministic)
	v.SetDefault("SCHEDULER_WEEKS_PER_TERM", 13)
	v.SetDefault("SCHEDULER_DEFAULT_WEEKLY_SESSIONS", 3)
	v.SetDefault("SCHEDULER_LOCK_TTL", "2m")
	v.SetDefault("OPTIMIZER_MAX_ATTEMPTS", 500)

	v.SetDefault("ORACLE_API_KEY", "")
	v.SetDefault("ORACLE_MODEL", "gemini-2.0-flash")
	v.SetDefault("ORACLE_TIMEOUT", "30s")

	v.SetDefault("CATALOG_DRIVER", CatalogDriverPostgres)
	v.SetDefault("CATALOG_CACHE_TTL", "5m")

	v.SetDefault("NOTIFICATIONS_WORKERS", 1)
	v.SetDefault("NOTIFICATIONS_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_BUFFER_SIZE", 64)

	v.SetDefault("EXPORT_DIR", "./exports")
	v.SetDefault("EXPORT_SIGNING_SECRET", "")
	v.SetDefault("EXPORT_LINK_TTL", "24h")
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
