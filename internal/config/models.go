package config

// LLMConfig represents the provider chain configuration
type LLMConfig struct {
	Providers   []string
	MaxBodySize int
	MaxTokens   int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// ScannerConfig represents the defaults applied to new scan sessions
type ScannerConfig struct {
	Query                string
	MaxResults           int
	MaxConsecutiveErrors int
}

// GetLLM returns the provider chain configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Providers:   c.GetStringSlice("llm.providers"),
		MaxBodySize: c.GetInt("llm.max_body_size"),
		MaxTokens:   c.GetInt("llm.max_tokens"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetScanner returns the scanner configuration
func (c *Config) GetScanner() ScannerConfig {
	return ScannerConfig{
		Query:                c.GetString("scanner.query"),
		MaxResults:           c.GetInt("scanner.max_results"),
		MaxConsecutiveErrors: c.GetInt("scanner.max_consecutive_errors"),
	}
}
