// internal/common/config/config.go
package config

// Config is the main application configuration struct.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	AWS      AWSConfig      `mapstructure:"aws"`
	Cache    CacheConfig    `mapstructure:"cache"`
	APIs     APIsConfig     `mapstructure:"apis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// ServerConfig holds HTTP listener settings for the API server.
type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig points at the volatile cache backend. An empty address means
// the process runs on the in-memory fallback from the start.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AWSConfig holds the durable store, queue, and notification settings.
type AWSConfig struct {
	Region string `mapstructure:"region"`

	DynamoDB struct {
		Table string `mapstructure:"table"`
	} `mapstructure:"dynamodb"`

	SQS struct {
		QueueURL        string `mapstructure:"queue_url"`
		WaitTimeSeconds int    `mapstructure:"wait_time_seconds"`
		MaxMessages     int    `mapstructure:"max_messages"`
	} `mapstructure:"sqs"`

	SNS struct {
		Enabled  bool   `mapstructure:"enabled"`
		TopicARN string `mapstructure:"topic_arn"`
	} `mapstructure:"sns"`
}

// CacheConfig controls the result-caching retrieval layer.
type CacheConfig struct {
	TTLSeconds int `mapstructure:"ttl_seconds"`
}

// APIsConfig holds settings for the external analysis API that backs the
// text-analysis tools and the guardrails.
type APIsConfig struct {
	Analysis AnalysisAPIConfig `mapstructure:"analysis"`
}

type AnalysisAPIConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}
