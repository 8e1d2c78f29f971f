package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DBSQL      = "sql"
	DBMongo    = "mongo"
	DBDynamoDB = "dynamodb"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Database selection: "sql", "mongo" or "dynamodb"
	DBType string

	// SQL settings (when DBType = "sql")
	SQLDriver       string // sqlite, mysql, postgres
	DatabaseDSN     string
	SQLMaxOpenConns int
	SQLDebug        bool

	// MongoDB settings (when DBType = "mongo")
	MongoURI string
	MongoDB  string

	// AWS settings, shared by DynamoDB and S3
	AWSRegion          string
	DynamoDBEndpoint   string // Optional: for local development
	DynamoTablePrefix  string
	AWSAccessKeyID     string // Optional: for local development
	AWSSecretAccessKey string // Optional: for local development

	// Document storage; an empty bucket disables proof uploads
	S3Bucket       string
	S3Endpoint     string
	S3UsePathStyle bool

	// Activity events; empty brokers disables publishing
	KafkaBrokers []string
	KafkaTopic   string

	// Idempotency keys; empty address disables the middleware
	RedisAddr         string
	RedisPassword     string
	IdempotencyTTLSec int

	// Timeouts
	HTTPReadTimeoutSec     int
	HTTPWriteTimeoutSec    int
	HTTPIdleTimeoutSec     int
	HTTPRequestTimeoutSec  int
	MongoConnectTimeoutSec int
	DBOpTimeoutMs          int

	// Expiry sweep; lazy expiry on read works without it
	ExpirySweepEnabled     bool
	ExpirySweepIntervalSec int

	// Security settings
	JWTSecret      string
	JWTIssuer      string
	JWTTTLMinutes  int
	AllowedOrigins []string // CORS allowed origins
	RateLimitRPM   int      // Rate limit requests per minute
}

func Load() (*Config, error) {
	_ = godotenv.Load(".env")
	cfg := &Config{}

	cfg.Port = getEnv("PORT", "8080")
	cfg.Env = getEnv("ENV", "dev")
	cfg.LogLevel = getEnv("LOG_LEVEL", "")
	cfg.DBType = getEnv("DB_TYPE", DBSQL)

	cfg.SQLDriver = getEnv("SQL_DRIVER", "sqlite")
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", "file:brokerage.db?_pragma=busy_timeout(5000)")
	cfg.SQLMaxOpenConns = getEnvAsInt("SQL_MAX_OPEN_CONNS", 10)
	cfg.SQLDebug = getEnvAsBool("SQL_DEBUG", false)

	// MongoDB settings (check both MONGODB_URI and MONGO_URI for compatibility)
	cfg.MongoURI = getEnv("MONGODB_URI", getEnv("MONGO_URI", ""))
	cfg.MongoDB = getEnv("MONGO_DB", "go_brokerage")

	cfg.AWSRegion = getEnv("AWS_REGION", "eu-central-1")
	cfg.DynamoDBEndpoint = getEnv("DYNAMODB_ENDPOINT", "") // Empty means use AWS
	cfg.DynamoTablePrefix = getEnv("DYNAMODB_TABLE_PREFIX", "brokerage_")
	cfg.AWSAccessKeyID = getEnv("AWS_ACCESS_KEY_ID", "")
	cfg.AWSSecretAccessKey = getEnv("AWS_SECRET_ACCESS_KEY", "")

	cfg.S3Bucket = getEnv("S3_BUCKET", "")
	cfg.S3Endpoint = getEnv("S3_ENDPOINT", "")
	cfg.S3UsePathStyle = getEnvAsBool("S3_USE_PATH_STYLE", cfg.S3Endpoint != "")

	cfg.KafkaBrokers = getEnvAsSlice("KAFKA_BROKERS", nil)
	cfg.KafkaTopic = getEnv("KAFKA_ACTIVITY_TOPIC", "brokerage.activity")

	cfg.RedisAddr = getEnv("REDIS_ADDR", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.IdempotencyTTLSec = getEnvAsInt("IDEMPOTENCY_TTL_SEC", 24*60*60)

	cfg.HTTPReadTimeoutSec = getEnvAsInt("HTTP_READ_TIMEOUT_SEC", 10)
	cfg.HTTPWriteTimeoutSec = getEnvAsInt("HTTP_WRITE_TIMEOUT_SEC", 30)
	cfg.HTTPIdleTimeoutSec = getEnvAsInt("HTTP_IDLE_TIMEOUT_SEC", 120)
	cfg.HTTPRequestTimeoutSec = getEnvAsInt("HTTP_REQUEST_TIMEOUT_SEC", 30)
	cfg.MongoConnectTimeoutSec = getEnvAsInt("MONGO_CONNECT_TIMEOUT_SEC", 5)
	cfg.DBOpTimeoutMs = getEnvAsInt("DB_OP_TIMEOUT_MS", 2000)

	cfg.ExpirySweepEnabled = getEnvAsBool("EXPIRY_SWEEP_ENABLED", false)
	cfg.ExpirySweepIntervalSec = getEnvAsInt("EXPIRY_SWEEP_INTERVAL_SEC", 300)

	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.JWTIssuer = getEnv("JWT_ISSUER", "go-brokerage")
	cfg.JWTTTLMinutes = getEnvAsInt("JWT_TTL_MINUTES", 60)
	cfg.AllowedOrigins = getEnvAsSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"})
	cfg.RateLimitRPM = getEnvAsInt("RATE_LIMIT_RPM", 100)

	// Validate required fields based on DB type
	switch cfg.DBType {
	case DBSQL:
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required when DB_TYPE=sql")
		}
	case DBMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("MONGO_URI is required when DB_TYPE=mongo")
		}
	case DBDynamoDB:
	default:
		return nil, fmt.Errorf("unknown DB_TYPE %q", cfg.DBType)
	}

	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_ACTIVITY_TOPIC is required when KAFKA_BROKERS is set")
	}

	if cfg.ExpirySweepEnabled && cfg.ExpirySweepIntervalSec <= 0 {
		return nil, fmt.Errorf("EXPIRY_SWEEP_INTERVAL_SEC must be positive when EXPIRY_SWEEP_ENABLED is set")
	}

	// In production, JWT_SECRET must be explicitly set
	if cfg.Env == "prod" && cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required in production environment")
	}

	// Default signing secret for development only
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-only-jwt-secret-change-me"
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func getEnv(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if val, err := strconv.Atoi(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	valStr := os.Getenv(key)
	if val, err := strconv.ParseBool(valStr); err == nil {
		return val
	}
	return defaultVal
}

func getEnvAsSlice(key string, defaultVal []string) []string {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	var result []string
	for _, s := range strings.Split(valStr, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			result = append(result, s)
		}
	}
	if len(result) == 0 {
		return defaultVal
	}
	return result
}
