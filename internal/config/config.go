package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/email-crm-sync/")
	v.AddConfigPath("$HOME/.email-crm-sync")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("EMAIL_CRM_SYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// LLM provider defaults
	v.SetDefault("llm.provider", "openai")

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 800)
	v.SetDefault("openai.temperature", 0.1)
	v.SetDefault("openai.max_body_size", 8192)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 800)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.max_body_size", 8192)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 800)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.max_body_size", 8192)

	// Zoho CRM defaults
	v.SetDefault("zoho.access_token", "")
	v.SetDefault("zoho.data_center", "eu")
	v.SetDefault("zoho.module", "Developments")
	v.SetDefault("zoho.timeout", "30s")
	v.SetDefault("zoho.module_cache_ttl_hours", 24)
	v.SetDefault("zoho.field_cache_ttl_hours", 12)
	v.SetDefault("zoho.fallback_record_id", "")

	// Search defaults
	v.SetDefault("search.max_results_per_term", 5)
	v.SetDefault("search.generic_domains", []string{
		"gmail.com", "googlemail.com", "hotmail.com", "outlook.com",
		"yahoo.com", "yahoo.co.uk", "icloud.com", "aol.com",
	})

	// IMAP mailbox defaults
	v.SetDefault("imap.server", "")
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("imap.folder", "INBOX")
	v.SetDefault("imap.processed_flag", "CRMProcessed")
	v.SetDefault("imap.tls", true)

	// Processed-message tracker defaults
	v.SetDefault("tracker.type", "sqlite")
	v.SetDefault("tracker.sqlite_path", "/data/processed_messages.db")
	v.SetDefault("tracker.mysql_dsn", "user:password@tcp(localhost:3306)/email_crm_sync")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
