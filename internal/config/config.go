package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port      int    `env:"PEAR_PORT" validate:"min=1,max=65535"`
	LogLevel  string `env:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFormat string `env:"PEAR_LOG_FORMAT" validate:"omitempty,oneof=json text"`

	DatabaseURL    string `env:"DATABASE_URL" validate:"required"`
	OrganizationID string `env:"PEAR_ORGANIZATION_ID"`

	GeminiAPIKey string        `env:"GOOGLE_AI_API_KEY"`
	GeminiModel  string        `env:"PEAR_GEMINI_MODEL" validate:"required"`
	OpenAIAPIKey string        `env:"OPENAI_API_KEY"`
	OpenAIModel  string        `env:"PEAR_OPENAI_MODEL" validate:"required"`
	LLMTimeout   time.Duration `env:"PEAR_LLM_TIMEOUT" validate:"min=0"`

	NatsURL   string `env:"NATS_URL"`
	NatsToken string `env:"NATS_TOKEN"`

	SlackBotToken string `env:"SLACK_BOT_TOKEN"`
	SlackChannel  string `env:"SLACK_CHANNEL" validate:"required_with=SlackBotToken"`

	Source    string `env:"PEAR_SOURCE" validate:"oneof=local minio drive"`
	SourceDir string `env:"PEAR_SOURCE_DIR" validate:"required_if=Source local"`

	MinIOEndpoint  string `env:"MINIO_ENDPOINT" validate:"required_if=Source minio"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY" validate:"required_if=Source minio"`
	MinIOSecretKey string `env:"MINIO_SECRET_KEY" validate:"required_if=Source minio"`
	MinIOBucket    string `env:"MINIO_BUCKET" validate:"required_if=Source minio"`
	MinIOPrefix    string `env:"MINIO_PREFIX"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL"`

	GoogleCredentialsFile string `env:"GOOGLE_CREDENTIALS_FILE" validate:"required_if=Source drive"`
	DriveFolderID         string `env:"GOOGLE_DRIVE_FOLDER_ID" validate:"required_if=Source drive"`
	DaysBack              int    `env:"PEAR_DAYS_BACK" validate:"min=0"`

	DomainsFile string `env:"PEAR_DOMAINS_FILE"`
	StateFile   string `env:"PEAR_STATE_FILE" validate:"required"`
	LockFile    string `env:"PEAR_LOCK_FILE" validate:"required"`
	DomainTx    bool   `env:"PEAR_DOMAIN_TX"`
}

// Load reads the environment, after merging an optional .env file from the
// working directory. Variables already set win over the file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:      envInt("PEAR_PORT", 8760),
		LogLevel:  strings.ToLower(envStr("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(envStr("PEAR_LOG_FORMAT", "")),

		DatabaseURL:    envStr("DATABASE_URL", "sqlite://pear.db"),
		OrganizationID: envStr("PEAR_ORGANIZATION_ID", ""),

		GeminiAPIKey: envStr("GOOGLE_AI_API_KEY", ""),
		GeminiModel:  envStr("PEAR_GEMINI_MODEL", "gemini-2.5-pro"),
		OpenAIAPIKey: envStr("OPENAI_API_KEY", ""),
		OpenAIModel:  envStr("PEAR_OPENAI_MODEL", "gpt-4o"),
		LLMTimeout:   envDuration("PEAR_LLM_TIMEOUT", 0),

		NatsURL:   envStr("NATS_URL", ""),
		NatsToken: envStr("NATS_TOKEN", ""),

		SlackBotToken: envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel:  envStr("SLACK_CHANNEL", ""),

		Source:    strings.ToLower(envStr("PEAR_SOURCE", "local")),
		SourceDir: envStr("PEAR_SOURCE_DIR", "./transcripts"),

		MinIOEndpoint:  envStr("MINIO_ENDPOINT", ""),
		MinIOAccessKey: envStr("MINIO_ACCESS_KEY", ""),
		MinIOSecretKey: envStr("MINIO_SECRET_KEY", ""),
		MinIOBucket:    envStr("MINIO_BUCKET", ""),
		MinIOPrefix:    envStr("MINIO_PREFIX", ""),
		MinIOUseSSL:    envBool("MINIO_USE_SSL", false),

		GoogleCredentialsFile: envStr("GOOGLE_CREDENTIALS_FILE", ""),
		DriveFolderID:         envStr("GOOGLE_DRIVE_FOLDER_ID", ""),
		DaysBack:              envInt("PEAR_DAYS_BACK", 0),

		DomainsFile: envStr("PEAR_DOMAINS_FILE", ""),
		StateFile:   envStr("PEAR_STATE_FILE", "~/.pear/run-state.json"),
		LockFile:    envStr("PEAR_LOCK_FILE", "~/.pear/run.lock"),
		DomainTx:    envBool("PEAR_DOMAIN_TX", false),
	}
}

// Validate checks required and enumerated values. Errors name the
// environment variable at fault.
func (c Config) Validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("env")
	})

	err := v.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return fe.Field() + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s fails %s=%s", fe.Field(), fe.Tag(), fe.Param())
	}
}

// Since is the cutoff for source listings, zero when DaysBack is unset.
func (c Config) Since(now time.Time) time.Time {
	if c.DaysBack <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -c.DaysBack)
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
