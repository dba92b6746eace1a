package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Extraction modes accepted in EXTRACTION_MODE.
const (
	ExtractionStructured = "structured"
	ExtractionTemplate   = "template"
)

// Config is built once at process start and handed to each component's constructor.
type Config struct {
	Mail     MailConfig
	Model    ModelConfig
	Sheet    SheetConfig
	Storage  StorageConfig
	Server   ServerConfig
	Logger   LoggerConfig
	Services ServiceAccountConfig
}

// MailConfig holds the allow-listed sender and the reply-from address.
type MailConfig struct {
	SendingEmail   string
	ReceivingEmail string
}

// ModelConfig selects the Gemini backend. An API key picks the Gemini API,
// otherwise Vertex AI is used with Project and Region.
type ModelConfig struct {
	APIKey         string
	Project        string
	Region         string
	Name           string
	ExtractionMode string
}

// UseVertex reports whether the Vertex AI backend should be used.
func (m ModelConfig) UseVertex() bool {
	return m.APIKey == "" && m.Project != ""
}

type SheetConfig struct {
	SpreadsheetID string
	Title         string
	Timezone      string
}

// ServiceAccountConfig is the credential pair used for Sheets and Gmail.
type ServiceAccountConfig struct {
	ClientEmail string
	PrivateKey  string
}

type StorageConfig struct {
	ObjectKeyPrefix string
}

type ServerConfig struct {
	Port string
}

type LoggerConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then the process environment, and
// validates the result.
func Load() (*Config, error) {
	cfg := LoadEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadEnv is Load without validation, for tools that need only part of the settings.
func LoadEnv() *Config {
	// .env is optional; deployed services get their environment directly.
	for _, envFile := range []string{".env", "../.env", "../../.env"} {
		if err := godotenv.Load(envFile); err == nil {
			break
		}
	}
	return FromEnv()
}

// FromEnv maps environment variables onto a Config without validating it.
func FromEnv() *Config {
	return &Config{
		Mail: MailConfig{
			SendingEmail:   strings.TrimSpace(os.Getenv("SENDING_EMAIL")),
			ReceivingEmail: strings.TrimSpace(os.Getenv("RECEIVING_EMAIL")),
		},
		Model: ModelConfig{
			APIKey:         os.Getenv("GEMINI_API_KEY"),
			Project:        os.Getenv("GOOGLE_CLOUD_PROJECT"),
			Region:         getEnv("GOOGLE_CLOUD_REGION", "us-central1"),
			Name:           getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			ExtractionMode: strings.ToLower(getEnv("EXTRACTION_MODE", ExtractionStructured)),
		},
		Sheet: SheetConfig{
			SpreadsheetID: os.Getenv("SHEET_ID"),
			Title:         getEnv("SHEET_TITLE", "Expenses"),
			Timezone:      getEnv("LEDGER_TIMEZONE", "America/Los_Angeles"),
		},
		Services: ServiceAccountConfig{
			ClientEmail: os.Getenv("GOOGLE_SERVICE_CLIENT_EMAIL"),
			PrivateKey:  normalizePrivateKey(os.Getenv("GOOGLE_SERVICE_PRIVATE_KEY")),
		},
		Storage: StorageConfig{
			ObjectKeyPrefix: os.Getenv("OBJECT_KEY_PREFIX"),
		},
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Validate reports every missing or invalid setting in a single error.
func (c *Config) Validate() error {
	var problems []string

	required := []struct {
		key, value string
	}{
		{"SENDING_EMAIL", c.Mail.SendingEmail},
		{"RECEIVING_EMAIL", c.Mail.ReceivingEmail},
		{"SHEET_ID", c.Sheet.SpreadsheetID},
		{"GOOGLE_SERVICE_CLIENT_EMAIL", c.Services.ClientEmail},
		{"GOOGLE_SERVICE_PRIVATE_KEY", c.Services.PrivateKey},
	}
	for _, r := range required {
		if r.value == "" {
			problems = append(problems, r.key+" is required")
		}
	}

	if c.Model.APIKey == "" && c.Model.Project == "" {
		problems = append(problems, "one of GEMINI_API_KEY or GOOGLE_CLOUD_PROJECT is required")
	}

	switch c.Model.ExtractionMode {
	case ExtractionStructured, ExtractionTemplate:
	default:
		problems = append(problems, fmt.Sprintf("EXTRACTION_MODE %q must be %q or %q",
			c.Model.ExtractionMode, ExtractionStructured, ExtractionTemplate))
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// normalizePrivateKey turns escaped newlines from single-line env values into real ones.
func normalizePrivateKey(key string) string {
	return strings.ReplaceAll(key, `\n`, "\n")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
