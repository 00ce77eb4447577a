package config

// Config holds deedflow configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Server   ServerConfig   `mapstructure:"server" yaml:"server"`
	OpenAI   OpenAIConfig   `mapstructure:"openai" yaml:"openai"`
	OCR      OCRConfig      `mapstructure:"ocr" yaml:"ocr"`
	Mongo    MongoConfig    `mapstructure:"mongo" yaml:"mongo"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Stream   StreamConfig   `mapstructure:"stream" yaml:"stream"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// OpenAIConfig configures the translation provider.
type OpenAIConfig struct {
	APIKey    string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	Model     string `mapstructure:"model" yaml:"model"`
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"` // requests per minute
}

// OCRConfig configures Tesseract text extraction.
type OCRConfig struct {
	Language string `mapstructure:"language" yaml:"language"` // Tesseract language code
	DPI      int    `mapstructure:"dpi" yaml:"dpi"`           // PDF render resolution
}

// MongoConfig holds MongoDB container configuration. When URI is set, the
// server connects to it directly and does not manage a container.
type MongoConfig struct {
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	Image         string `mapstructure:"image" yaml:"image"`
	Port          string `mapstructure:"port" yaml:"port"`
	Database      string `mapstructure:"database" yaml:"database"`
	URI           string `mapstructure:"uri" yaml:"uri"`
}

// PipelineConfig tunes processing concurrency and retries.
type PipelineConfig struct {
	PageWorkers   int `mapstructure:"page_workers" yaml:"page_workers"`     // concurrent model calls per document
	RetryAttempts int `mapstructure:"retry_attempts" yaml:"retry_attempts"` // per-call attempt budget
}

// StreamConfig tunes progress streaming.
type StreamConfig struct {
	KeepAliveSeconds int `mapstructure:"keepalive_seconds" yaml:"keepalive_seconds"`
	Buffer           int `mapstructure:"buffer" yaml:"buffer"` // per-subscriber event buffer
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8000,
		},
		OpenAI: OpenAIConfig{
			APIKey:    "${OPENAI_API_KEY}",
			Model:     "gpt-4o-mini",
			RateLimit: 60,
		},
		OCR: OCRConfig{
			Language: "tam",
			DPI:      300,
		},
		Mongo: MongoConfig{
			ContainerName: "deedflow-mongo",
			Image:         "mongo:7",
			Port:          "27017",
			Database:      "deedflow",
		},
		Pipeline: PipelineConfig{
			PageWorkers:   4,
			RetryAttempts: 3,
		},
		Stream: StreamConfig{
			KeepAliveSeconds: 60,
			Buffer:           16,
		},
	}
}

// ResolveAPIKey returns the OpenAI API key with ${ENV_VAR} references
// expanded.
func (c *Config) ResolveAPIKey() string {
	return ResolveEnvVars(c.OpenAI.APIKey)
}
