package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort   string
	AppEnv    string
	LogLevel  string
	LogFormat string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string
	// AttachmentURLTTL bounds the lifetime of presigned download links.
	AttachmentURLTTL time.Duration
	// DynamoBootstrap creates missing tables at startup (local development).
	DynamoBootstrap bool

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration
	OTPTTL            time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string

	SNSRegion  string
	SNSEnabled bool

	AllowedOrigins []string // CORS allowed origins
	AuthRateLimit  float64  // requests per second per IP on /auth endpoints
	AuthRateBurst  int
	// TrustedProxies are CIDRs whose X-Forwarded-For headers the rate limiter believes.
	TrustedProxies []string

	AdminEmail string
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users       string
	UserEmails  string
	Tasks       string
	Departments string
	Attachments string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:   getEnv("APP_PORT", "3000"),
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:       getEnv("DYNAMO_TABLE_USERS", "users"),
			UserEmails:  getEnv("DYNAMO_TABLE_USER_EMAILS", "user_emails"),
			Tasks:       getEnv("DYNAMO_TABLE_TASKS", "tasks"),
			Departments: getEnv("DYNAMO_TABLE_DEPARTMENTS", "departments"),
			Attachments: getEnv("DYNAMO_TABLE_ATTACHMENTS", "task_attachments"),
		},
		S3BucketName:     getEnv("S3_BUCKET_NAME", "taskboard-attachments"),
		AttachmentURLTTL: getEnvDuration("ATTACHMENT_URL_TTL", 15*time.Minute),
		DynamoBootstrap:  getEnvBool("DYNAMO_BOOTSTRAP", false),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         getEnvDuration("JWT_EXPIRY", time.Hour),
		OTPTTL:            getEnvDuration("OTP_TTL", 10*time.Minute),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		SNSRegion:  getEnv("SNS_REGION", "us-east-1"),
		SNSEnabled: getEnvBool("SNS_ENABLED", false),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
		AuthRateLimit:  getEnvFloat("AUTH_RATE_LIMIT", 5),
		AuthRateBurst:  getEnvInt("AUTH_RATE_BURST", 10),
		TrustedProxies: getEnvList("TRUSTED_PROXIES"),

		AdminEmail: getEnv("ADMIN_EMAIL", ""),
	}
}

// IsDevelopment reports whether the app runs in a local development environment.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvList splits a comma-separated variable, dropping blank entries.
func getEnvList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
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

// getEnvDuration accepts Go duration strings ("1h", "10m") or plain integer minutes.
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if minutes, err := strconv.Atoi(v); err == nil {
		return time.Duration(minutes) * time.Minute
	}
	return fallback
}
