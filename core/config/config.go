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
	OTel      OTelConfig
	Pipeline  PipelineConfig
	OpenAI    OpenAIConfig
	Discord   DiscordConfig
	Alert     AlertConfig
	Storage   StorageConfig
	GitLab    GitLabConfig
	Limits    LimitsConfig
	Timeouts  TimeoutsConfig
	Env       string
	Port      string
	IntakeKey string
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	Environment    string
	SampleRatio    float64 // 1 samples every submission run
}

type PipelineConfig struct {
	RedisURL        string
	RedisStream     string
	RedisGroup      string
	RedisDLQStream  string
	RedisConsumer   string
	DedupeTTL       time.Duration
	TraceHeaderName string
	ReclaimMinIdle  time.Duration
	ReclaimInterval time.Duration
	MaxDeliveries   int64
}

type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	MaxAttempts int
}

type DiscordConfig struct {
	WebhookURL        string
	Username          string
	AvatarURL         string
	ComponentsEnabled bool
}

type AlertConfig struct {
	Recipient   string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
	FromAddress string
	FromName    string
}

type StorageConfig struct {
	Region               string
	Bucket               string
	Endpoint             string // Optional: S3-compatible endpoint (minio, localstack)
	ViewURLTemplate      string // {id} is replaced by the object key
	DownloadURLTemplate  string
	ThumbnailURLTemplate string
}

type GitLabConfig struct {
	BaseURL   string
	Token     string
	ProjectID string
}

type LimitsConfig struct {
	MaxFileBytes      int64
	AllowedExtensions []string
	MaxTitleLength    int
	AttachmentWorkers int
}

type TimeoutsConfig struct {
	AI      time.Duration
	Webhook time.Duration
	Storage time.Duration
	Alert   time.Duration
	Issue   time.Duration
	Run     time.Duration
}

type ServiceType string

const (
	ServiceTypeServer ServiceType = "server"
	ServiceTypeWorker ServiceType = "worker"
)

// Load loads configuration from environment variables.
// In development, it loads from service-specific .env files:
//   - .env.server for the intake API
//   - .env.worker for the pipeline worker
//
// Falls back to .env if service-specific file doesn't exist.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("INTAKE_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:       getEnv("INTAKE_ENV", "development"),
		Port:      getEnv("PORT", "8080"),
		IntakeKey: getEnv("INTAKE_API_KEY", ""),
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "intake-"+string(serviceType)),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			Environment:    getEnv("INTAKE_ENV", "development"),
			SampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),
		},
		Pipeline: PipelineConfig{
			RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
			RedisStream:     getEnv("REDIS_STREAM", "intake_submissions"),
			RedisGroup:      getEnv("REDIS_CONSUMER_GROUP", "intake_group"),
			RedisDLQStream:  getEnv("REDIS_DLQ_STREAM", "intake_submissions_dlq"),
			RedisConsumer:   getEnv("REDIS_CONSUMER_NAME", "intake-worker"),
			DedupeTTL:       getEnvDuration("DEDUPE_TTL", 24*time.Hour),
			TraceHeaderName: getEnv("TRACE_HEADER_NAME", "X-Trace-Id"),
			ReclaimMinIdle:  getEnvDuration("RECLAIM_MIN_IDLE", 5*time.Minute),
			ReclaimInterval: getEnvDuration("RECLAIM_INTERVAL", time.Minute),
			MaxDeliveries:   getEnvInt64("MAX_DELIVERIES", 3),
		},
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 1000),
			Temperature: getEnvFloat("OPENAI_TEMPERATURE", 0.3),
			MaxAttempts: getEnvInt("OPENAI_MAX_ATTEMPTS", 1),
		},
		Discord: DiscordConfig{
			WebhookURL:        getEnv("DISCORD_WEBHOOK_URL", ""),
			Username:          getEnv("DISCORD_USERNAME", "客戶回報系統"),
			AvatarURL:         getEnv("DISCORD_AVATAR_URL", ""),
			ComponentsEnabled: getEnvBool("DISCORD_COMPONENTS_ENABLED", false),
		},
		Alert: AlertConfig{
			Recipient:   getEnv("ALERT_RECIPIENT", ""),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USERNAME", ""),
			SMTPPass:    getEnv("SMTP_PASSWORD", ""),
			FromAddress: getEnv("SMTP_FROM_ADDRESS", "intake@localhost"),
			FromName:    getEnv("SMTP_FROM_NAME", "Intake Pipeline"),
		},
		Storage: StorageConfig{
			Region:               getEnv("STORAGE_REGION", "us-east-1"),
			Bucket:               getEnv("STORAGE_BUCKET", ""),
			Endpoint:             getEnv("STORAGE_ENDPOINT", ""),
			ViewURLTemplate:      getEnv("FILE_VIEW_URL_TEMPLATE", ""),
			DownloadURLTemplate:  getEnv("FILE_DOWNLOAD_URL_TEMPLATE", ""),
			ThumbnailURLTemplate: getEnv("FILE_THUMBNAIL_URL_TEMPLATE", ""),
		},
		GitLab: GitLabConfig{
			BaseURL:   getEnv("GITLAB_BASE_URL", ""),
			Token:     getEnv("GITLAB_TOKEN", ""),
			ProjectID: getEnv("GITLAB_PROJECT_ID", ""),
		},
		Limits: LimitsConfig{
			MaxFileBytes:      getEnvInt64("MAX_FILE_BYTES", 10*1024*1024),
			AllowedExtensions: getEnvList("ALLOWED_FILE_EXTENSIONS", []string{"jpg", "jpeg", "png", "gif", "webp"}),
			MaxTitleLength:    getEnvInt("MAX_TITLE_LENGTH", 100),
			AttachmentWorkers: getEnvInt("ATTACHMENT_WORKERS", 4),
		},
		Timeouts: TimeoutsConfig{
			AI:      getEnvDuration("AI_TIMEOUT", 30*time.Second),
			Webhook: getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second),
			Storage: getEnvDuration("STORAGE_TIMEOUT", 15*time.Second),
			Alert:   getEnvDuration("ALERT_TIMEOUT", 15*time.Second),
			Issue:   getEnvDuration("ISSUE_TIMEOUT", 15*time.Second),
			Run:     getEnvDuration("RUN_TIMEOUT", 2*time.Minute),
		},
	}

	cfg.Storage.applyDefaultTemplates()

	if serviceType == ServiceTypeWorker {
		if cfg.Discord.WebhookURL == "" {
			return Config{}, fmt.Errorf("DISCORD_WEBHOOK_URL is required")
		}
		if cfg.Alert.Recipient == "" {
			return Config{}, fmt.Errorf("ALERT_RECIPIENT is required")
		}
	}

	if cfg.Limits.MaxFileBytes <= 0 {
		return Config{}, fmt.Errorf("MAX_FILE_BYTES must be positive")
	}
	if cfg.Limits.MaxTitleLength <= 0 {
		return Config{}, fmt.Errorf("MAX_TITLE_LENGTH must be positive")
	}

	return cfg, nil
}

// applyDefaultTemplates derives public object URLs from the bucket when no
// explicit templates are configured.
func (c *StorageConfig) applyDefaultTemplates() {
	base := strings.TrimSuffix(c.Endpoint, "/") + "/" + c.Bucket
	if c.Endpoint == "" {
		base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", c.Bucket, c.Region)
	}
	if c.ViewURLTemplate == "" {
		c.ViewURLTemplate = base + "/{id}"
	}
	if c.DownloadURLTemplate == "" {
		c.DownloadURLTemplate = base + "/{id}?response-content-disposition=attachment"
	}
	if c.ThumbnailURLTemplate == "" {
		c.ThumbnailURLTemplate = base + "/{id}"
	}
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func (c OpenAIConfig) Enabled() bool {
	return c.APIKey != ""
}

func (c AlertConfig) SMTPEnabled() bool {
	return c.SMTPHost != ""
}

func (c StorageConfig) Enabled() bool {
	return c.Bucket != ""
}

func (c GitLabConfig) Enabled() bool {
	return c.Token != "" && c.ProjectID != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList reads a comma separated list, lower-cased and without leading dots.
func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(part)), ".")
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
