package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort int
	AgencyName string
	LogLevel   string
	LogFormat  string

	// DocumentRenderer selects the PDF capability: "pdf" or "none".
	DocumentRenderer string

	Database DatabaseConfig
	Auth     AuthConfig
	Admin    AdminConfig
	MQ       MQConfig
	Storage  StorageConfig
	Mail     MailConfig
	Relay    RelayConfig
}

type DatabaseConfig struct {
	// URL, when set, takes precedence over the individual fields.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type AuthConfig struct {
	JWTSecret          string
	TokenTTL           time.Duration
	AcceptLegacyTokens bool
}

// AdminConfig holds the account created by the seed step.
type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

type MQConfig struct {
	// Backend is one of "none", "memory", "rabbitmq" or "pubsub".
	Backend           string
	NotificationTopic string
	// RetryDelay is how long a message whose handler failed waits before it
	// is delivered again.
	RetryDelay time.Duration
	// MaxDeliveries bounds redelivery; a message that fails this many times
	// is moved to the topic's dead-letter destination.
	MaxDeliveries int
	RabbitMQ          RabbitMQConfig
	PubSub            PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type StorageConfig struct {
	// Backend is one of "none", "memory", "minio" or "gcs".
	Backend string
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type MailConfig struct {
	// Transport is "log" or "smtp".
	Transport string
	From      string
	SMTP      SMTPConfig
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
}

type RelayConfig struct {
	Interval  time.Duration
	BatchSize int
	// MaxAttempts is the number of failed dispatches after which an entry is
	// marked undeliverable.
	MaxAttempts int
	// RetryBackoff is the delay after the first failure. It doubles per
	// attempt up to MaxBackoff.
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

func LoadConfig() Config {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		URL:      getEnv("DATABASE_URL", ""),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "careers"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "careers_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	return Config{
		ServerPort:       getEnvInt("SERVER_PORT", 8080),
		AgencyName:       getEnv("AGENCY_NAME", "New Daybreak Home Support"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		DocumentRenderer: strings.ToLower(getEnv("DOCUMENT_RENDERER", "pdf")),
		Database:         dbConfig,
		Auth: AuthConfig{
			JWTSecret:          strings.TrimSpace(getEnv("JWT_SECRET", "")),
			TokenTTL:           getEnvDuration("JWT_TTL", 24*time.Hour),
			AcceptLegacyTokens: getEnvBool("AUTH_ACCEPT_LEGACY_TOKENS", false),
		},
		Admin: AdminConfig{
			Name:     getEnv("ADMIN_NAME", "Admin"),
			Email:    getEnv("ADMIN_EMAIL", "admin@newdaybreakhomesupport.com"),
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		MQ: MQConfig{
			Backend:           strings.ToLower(getEnv("MQ_BACKEND", "none")),
			NotificationTopic: getEnv("MQ_NOTIFICATION_TOPIC", "applicant-notifications"),
			RetryDelay:        getEnvDuration("MQ_RETRY_DELAY", 30*time.Second),
			MaxDeliveries:     getEnvInt("MQ_MAX_DELIVERIES", 10),
			RabbitMQ: RabbitMQConfig{
				URL:             getEnv("RABBITMQ_URL", ""),
				QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
				QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
				PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 10),
			},
			PubSub: PubSubConfig{
				ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
				CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
				SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
			},
		},
		Storage: StorageConfig{
			Backend: strings.ToLower(getEnv("STORAGE_BACKEND", "none")),
			Minio: MinioConfig{
				Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
				AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
				SecretKey: getEnv("MINIO_SECRET_KEY", ""),
				Bucket:    getEnv("MINIO_BUCKET", "careers"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			GCS: GCSConfig{
				Bucket:          getEnv("GCS_BUCKET", ""),
				ProjectID:       getEnv("GCS_PROJECT_ID", ""),
				CredentialsFile: getEnv("GCS_CREDENTIALS_FILE", ""),
			},
		},
		Mail: MailConfig{
			Transport: strings.ToLower(getEnv("MAIL_TRANSPORT", "log")),
			From:      getEnv("MAIL_FROM", "careers@newdaybreakhomesupport.com"),
			SMTP: SMTPConfig{
				Host:     getEnv("SMTP_HOST", "localhost"),
				Port:     getEnvInt("SMTP_PORT", 587),
				Username: getEnv("SMTP_USERNAME", ""),
				Password: getEnv("SMTP_PASSWORD", ""),
			},
		},
		Relay: RelayConfig{
			Interval:     getEnvDuration("RELAY_INTERVAL", 10*time.Second),
			BatchSize:    getEnvInt("RELAY_BATCH_SIZE", 50),
			MaxAttempts:  getEnvInt("RELAY_MAX_ATTEMPTS", 8),
			RetryBackoff: getEnvDuration("RELAY_RETRY_BACKOFF", 30*time.Second),
			MaxBackoff:   getEnvDuration("RELAY_MAX_BACKOFF", time.Hour),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		fmt.Sscanf(valueStr, "%d", &value)
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil || value <= 0 {
			return defaultValue
		}
		return value
	}
	return defaultValue
}
