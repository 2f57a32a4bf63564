package config

import (
	"encoding/json"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nft-voting-api/internal/domain"
)

// FallbackJWTSecret is used when JWT_SECRET is unset. Startup logs a warning
// whenever it is in effect.
const FallbackJWTSecret = "fallback-secret-key"

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string
	AppEnv         string
	LogLevel       string
	AllowedOrigins []string // CORS allowed origins

	JWTSecret string
	JWTExpiry time.Duration
	CodeTTL   time.Duration

	CodeStore string // memory | redis | dynamo
	DataStore string // memory | dynamo | sqlite | redis

	RedisAddr     string
	RedisPassword string
	SQLitePath    string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	ExportBucket       string
	VoteEventsTopicARN string

	Mailer       string // log | smtp
	SMTPHost     string
	SMTPPort     int
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	Oracle OracleConfig

	AdminEmails      []string
	DemoMode         bool
	DemoEmailMarkers []string
	VotingOptions    []domain.VotingOption

	RateLimitRPS      float64
	RateLimitBurst    int
	TrustProxyHeaders bool // key the limiter on X-Forwarded-For; only behind a proxy that sets it
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users string
	Votes string
	Codes string
}

// OracleConfig holds the NFT ownership data source settings.
type OracleConfig struct {
	BlockfrostAPIKey  string
	BlockfrostBaseURL string
	KoiosBaseURL      string
	KoiosAPIKey       string
	NMKRAPIKey        string
	NMKRBaseURL       string
	PolicyID          string
	Timeout           time.Duration
	RetryMax          int
}

// Load reads all configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		AppPort:        getEnv("APP_PORT", "3000"),
		AppEnv:         getEnv("APP_ENV", "development"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", "*"),

		JWTSecret: getEnv("JWT_SECRET", FallbackJWTSecret),
		JWTExpiry: getEnvDuration("JWT_EXPIRY", 24*time.Hour),
		CodeTTL:   getEnvDuration("CODE_TTL", 10*time.Minute),

		CodeStore: getEnv("CODE_STORE", "memory"),
		DataStore: getEnv("DATA_STORE", "memory"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "voting.db"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users: getEnv("DYNAMO_TABLE_USERS", "users"),
			Votes: getEnv("DYNAMO_TABLE_VOTES", "votes"),
			Codes: getEnv("DYNAMO_TABLE_CODES", "verification_codes"),
		},

		ExportBucket:       getEnv("EXPORT_BUCKET", ""),
		VoteEventsTopicARN: getEnv("VOTE_EVENTS_TOPIC_ARN", ""),

		Mailer:       getEnv("MAILER", "log"),
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		Oracle: OracleConfig{
			BlockfrostAPIKey:  getEnv("BLOCKFROST_API_KEY", ""),
			BlockfrostBaseURL: getEnv("BLOCKFROST_BASE_URL", "https://cardano-mainnet.blockfrost.io/api/v0"),
			KoiosBaseURL:      getEnv("KOIOS_BASE_URL", "https://api.koios.rest/api/v1"),
			KoiosAPIKey:       getEnv("KOIOS_API_KEY", ""),
			NMKRAPIKey:        getEnv("NMKR_API_KEY", ""),
			NMKRBaseURL:       getEnv("NMKR_API_BASE_URL", "https://studio-api.nmkr.io/v2"),
			PolicyID:          getEnv("TARGET_POLICY_ID", ""),
			Timeout:           getEnvDuration("ORACLE_TIMEOUT", 8*time.Second),
			RetryMax:          getEnvInt("ORACLE_RETRY_MAX", 1),
		},

		AdminEmails:      getEnvList("ADMIN_EMAILS", ""),
		DemoMode:         getEnvBool("DEMO_MODE", false),
		DemoEmailMarkers: getEnvList("DEMO_EMAIL_MARKERS", "demo,test"),
		VotingOptions:    getEnvOptions("VOTING_OPTIONS"),

		RateLimitRPS:      getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:    getEnvInt("RATE_LIMIT_BURST", 10),
		TrustProxyHeaders: getEnvBool("TRUST_PROXY_HEADERS", false),
	}
	if cfg.IsProduction() && cfg.DemoMode {
		slog.Error("DEMO_MODE is not allowed in production; disabling")
		cfg.DemoMode = false
	}
	return cfg
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return c.AppEnv == "production" }

// UsesFallbackSecret reports whether tokens are signed with the built-in secret.
func (c *Config) UsesFallbackSecret() bool { return c.JWTSecret == FallbackJWTSecret }

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, trimming blanks.
func getEnvList(key, fallback string) []string {
	var out []string
	for _, s := range strings.Split(getEnv(key, fallback), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func getEnvOptions(key string) []domain.VotingOption {
	v := os.Getenv(key)
	if v == "" {
		return domain.DefaultVotingOptions()
	}
	var opts []domain.VotingOption
	if err := json.Unmarshal([]byte(v), &opts); err != nil || len(opts) == 0 {
		slog.Warn("invalid VOTING_OPTIONS, using defaults", "err", err)
		return domain.DefaultVotingOptions()
	}
	return opts
}
