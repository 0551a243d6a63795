package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/blastheart1/signed-contract-parser-sub003/pkg/platform/textutil"
)

// Server captures process level configuration. Everything comes from the
// environment; a .env file in the working directory is loaded first if present.
type Server struct {
	Addr           string
	Environment    string
	LogLevel       string
	RequestTimeout time.Duration

	DatabaseURL string
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	Auth        AuthConfig
	Addendum    AddendumConfig

	ExcelTemplatePath string
}

// DatabaseConfig tunes the *sql.DB pool.
type DatabaseConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig configures the optional Redis cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the change-feed publisher. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers      []string
	ChangeTopic  string
	PollInterval time.Duration
	BatchSize    int
}

// AuthConfig configures session tokens.
type AuthConfig struct {
	JWTSigningKey          string
	Issuer                 string
	SessionTTL             time.Duration
	SecureCookies          bool
	BootstrapAdminPassword string
	MaxLoginFailures       int
	LockoutDuration        time.Duration
}

// AddendumConfig configures addendum retrieval.
type AddendumConfig struct {
	Hosts        []string
	Timeout      time.Duration
	CacheTTL     time.Duration
	MaxBodyBytes int64
	Concurrency  int
}

// IsProduction reports whether the service runs with production defaults.
func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	_ = godotenv.Load()

	env := getString("ENVIRONMENT", "development")
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Development default; production deployments must override it.
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:        getString("CONTRACTS_ADDR", ":8080"),
		Environment: env,
		LogLevel:    getString("LOG_LEVEL", "info"),
		// Imports that fetch addenda need the longest budget.
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 60*time.Second),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Database: DatabaseConfig{
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:      textutil.SplitList(os.Getenv("KAFKA_BROKERS")),
			ChangeTopic:  getString("KAFKA_CHANGE_TOPIC", "contracts.change-history"),
			PollInterval: getDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize:    getInt("OUTBOX_BATCH_SIZE", 100),
		},
		Auth: AuthConfig{
			JWTSigningKey:          jwtSigningKey,
			Issuer:                 getString("JWT_ISSUER", "signed-contracts"),
			SessionTTL:             getDuration("SESSION_TTL", 12*time.Hour),
			SecureCookies:          env == "production",
			BootstrapAdminPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
			MaxLoginFailures:       getInt("AUTH_MAX_LOGIN_FAILURES", 5),
			LockoutDuration:        getDuration("AUTH_LOCKOUT_DURATION", 15*time.Minute),
		},
		Addendum: AddendumConfig{
			Hosts:        textutil.SplitList(getString("ADDENDUM_HOSTS", "l1.prodbx.com")),
			Timeout:      getDuration("ADDENDUM_TIMEOUT", 15*time.Second),
			CacheTTL:     getDuration("ADDENDUM_CACHE_TTL", time.Hour),
			MaxBodyBytes: int64(getInt("ADDENDUM_MAX_BYTES", 5<<20)),
			Concurrency:  getInt("ADDENDUM_CONCURRENCY", 4),
		},
		ExcelTemplatePath: os.Getenv("EXCEL_TEMPLATE_PATH"),
	}
}

func getString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}

func getDuration(key string, def time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || v <= 0 {
		return def
	}
	return v
}
