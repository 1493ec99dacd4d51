package config

import "time"

// LLMConfig represents the configuration for the extraction provider
type LLMConfig struct {
	Provider string
}

// OpenAIConfig represents the configuration for OpenAI extraction
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini extraction
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	MaxBodySize int
}

// BedrockConfig represents the configuration for Amazon Bedrock extraction
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	MaxBodySize int
}

// ZohoConfig represents the configuration for the Zoho CRM record store
type ZohoConfig struct {
	AccessToken       string
	DataCenter        string
	Module            string
	Timeout           time.Duration
	ModuleCacheTTLHrs int
	FieldCacheTTLHrs  int
	FallbackRecordID  string
	MaxResultsPerTerm int
}

// IMAPConfig represents the configuration for the IMAP mailbox
type IMAPConfig struct {
	Server        string
	Username      string
	Password      string
	Folder        string
	ProcessedFlag string
	TLS           bool
}

// GetLLM returns the extraction provider configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider: c.GetString("llm.provider"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetZoho returns the Zoho CRM configuration
func (c *Config) GetZoho() (ZohoConfig, error) {
	timeout, err := c.GetDuration("zoho.timeout")
	if err != nil {
		return ZohoConfig{}, err
	}
	return ZohoConfig{
		AccessToken:       c.GetString("zoho.access_token"),
		DataCenter:        c.GetString("zoho.data_center"),
		Module:            c.GetString("zoho.module"),
		Timeout:           timeout,
		ModuleCacheTTLHrs: c.GetInt("zoho.module_cache_ttl_hours"),
		FieldCacheTTLHrs:  c.GetInt("zoho.field_cache_ttl_hours"),
		FallbackRecordID:  c.GetString("zoho.fallback_record_id"),
		MaxResultsPerTerm: c.GetInt("search.max_results_per_term"),
	}, nil
}

// GetIMAP returns the IMAP mailbox configuration
func (c *Config) GetIMAP() IMAPConfig {
	return IMAPConfig{
		Server:        c.GetString("imap.server"),
		Username:      c.GetString("imap.username"),
		Password:      c.GetString("imap.password"),
		Folder:        c.GetString("imap.folder"),
		ProcessedFlag: c.GetString("imap.processed_flag"),
		TLS:           c.GetBool("imap.tls"),
	}
}
