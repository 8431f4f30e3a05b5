package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment names accepted by LoadConfig. The development environment is
// the only one in which the OTP dev-mode response (raw code in the issue
// response, no SMS dispatch) is reachable.
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Config holds all configuration values
type Config struct {
	// Server configuration
	Port        int    `json:"port"`
	Environment string `json:"environment"`

	// CORS allow-list; requests from origins outside this list are not
	// echoed back in Access-Control-Allow-Origin.
	AllowedOrigins []string `json:"allowed_origins"`

	// MongoDB configuration
	MongoURI      string `json:"mongo_uri"`
	MongoDatabase string `json:"mongo_database"`

	// Redis configuration
	RedisURI      string `json:"redis_uri"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	// Collection names
	PendingCodeCollection   string `json:"mongo_pending_code_collection"`
	PhoneIdentityCollection string `json:"mongo_phone_identity_collection"`
	CredentialCollection    string `json:"mongo_credential_collection"`
	AuditLogCollection      string `json:"mongo_audit_log_collection"`

	// OTP configuration
	OTPHashSecret    string        `json:"-"`
	OTPCodeTTL       time.Duration `json:"otp_code_ttl"`
	OTPIssueCooldown time.Duration `json:"otp_issue_cooldown"`

	// PIN lockout configuration
	PINMaxAttempts     int           `json:"pin_max_attempts"`
	PINLockoutDuration time.Duration `json:"pin_lockout_duration"`

	// SMS provider configuration
	SMSTimeout      time.Duration `json:"sms_timeout"`
	MnotifyAPIKey   string        `json:"-"`
	MnotifySenderID string        `json:"mnotify_sender_id"`
	TermiiAPIKey    string        `json:"-"`
	TermiiSenderID  string        `json:"termii_sender_id"`

	// Backend auth primitive (password-based session issuer)
	AuthBaseURL    string `json:"auth_base_url"`
	AuthServiceKey string `json:"-"`
	AuthJWTSecret  string `json:"-"`

	// Tracing configuration
	TracingEnabled  bool   `json:"tracing_enabled"`
	TracingEndpoint string `json:"tracing_endpoint"`
}

// IsDevelopment reports whether the dev-mode OTP bypass may be used.
func (c *Config) IsDevelopment() bool {
	return c.Environment == EnvDevelopment
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	environment := getEnvOrDefault("ENVIRONMENT", EnvProduction)
	switch environment {
	case EnvDevelopment, EnvStaging, EnvProduction:
	default:
		return nil, fmt.Errorf("invalid ENVIRONMENT %q: must be one of development, staging, production", environment)
	}

	otpHashSecret := os.Getenv("OTP_HASH_SECRET")
	if otpHashSecret == "" {
		return nil, fmt.Errorf("OTP_HASH_SECRET environment variable is required")
	}

	authJWTSecret := os.Getenv("AUTH_JWT_SECRET")
	if authJWTSecret == "" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET environment variable is required")
	}

	otpCodeTTL, err := time.ParseDuration(getEnvOrDefault("OTP_CODE_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_CODE_TTL: %w", err)
	}

	otpIssueCooldown, err := time.ParseDuration(getEnvOrDefault("OTP_ISSUE_COOLDOWN", "60s"))
	if err != nil {
		return nil, fmt.Errorf("invalid OTP_ISSUE_COOLDOWN: %w", err)
	}

	pinMaxAttempts, err := strconv.Atoi(getEnvOrDefault("PIN_MAX_ATTEMPTS", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid PIN_MAX_ATTEMPTS: %w", err)
	}

	pinLockoutDuration, err := time.ParseDuration(getEnvOrDefault("PIN_LOCKOUT_DURATION", "15m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PIN_LOCKOUT_DURATION: %w", err)
	}

	smsTimeout, err := time.ParseDuration(getEnvOrDefault("SMS_TIMEOUT", "15s"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMS_TIMEOUT: %w", err)
	}

	return &Config{
		// Server configuration
		Port:        port,
		Environment: environment,

		AllowedOrigins: splitAndTrim(getEnvOrDefault("ALLOWED_ORIGINS", "")),

		// MongoDB configuration
		MongoURI:      getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGODB_DATABASE", "pos_auth"),

		// Redis configuration
		RedisURI:      getEnvOrDefault("REDIS_URI", "localhost:6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		// Collection names
		PendingCodeCollection:   getEnvOrDefault("MONGODB_PENDING_CODE_COLLECTION", "pending_codes"),
		PhoneIdentityCollection: getEnvOrDefault("MONGODB_PHONE_IDENTITY_COLLECTION", "phone_identities"),
		CredentialCollection:    getEnvOrDefault("MONGODB_CREDENTIAL_COLLECTION", "user_credentials"),
		AuditLogCollection:      getEnvOrDefault("MONGODB_AUDIT_LOG_COLLECTION", "auth_audit_logs"),

		// OTP configuration
		OTPHashSecret:    otpHashSecret,
		OTPCodeTTL:       otpCodeTTL,
		OTPIssueCooldown: otpIssueCooldown,

		// PIN lockout configuration
		PINMaxAttempts:     pinMaxAttempts,
		PINLockoutDuration: pinLockoutDuration,

		// SMS provider configuration
		SMSTimeout:      smsTimeout,
		MnotifyAPIKey:   getEnvOrDefault("MNOTIFY_API_KEY", ""),
		MnotifySenderID: getEnvOrDefault("MNOTIFY_SENDER_ID", "TendaPOS"),
		TermiiAPIKey:    getEnvOrDefault("TERMII_API_KEY", ""),
		TermiiSenderID:  getEnvOrDefault("TERMII_SENDER_ID", "TendaPOS"),

		// Backend auth primitive
		AuthBaseURL:    getEnvOrDefault("AUTH_BASE_URL", "http://localhost:9999"),
		AuthServiceKey: getEnvOrDefault("AUTH_SERVICE_KEY", ""),
		AuthJWTSecret:  authJWTSecret,

		// Tracing configuration
		TracingEnabled:  getEnvOrDefault("TRACING_ENABLED", "false") == "true",
		TracingEndpoint: getEnvOrDefault("TRACING_ENDPOINT", "localhost:4317"),
	}, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// splitAndTrim splits a comma-separated list, dropping empty entries
func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
