package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Line         LineConfig         `mapstructure:"line"`
	AI           AIConfig           `mapstructure:"ai"`
	Conversation ConversationConfig `mapstructure:"conversation"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Search       SearchConfig       `mapstructure:"search"`
	TTS          TTSConfig          `mapstructure:"tts"`
	Image        ImageConfig        `mapstructure:"image"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Profile      ProfileConfig      `mapstructure:"profile"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Monitoring   MonitoringConfig   `mapstructure:"monitoring"`
	I18n         I18nConfig         `mapstructure:"i18n"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
	// TestWebhook exposes an unvalidated /webhook/test route for local use.
	TestWebhook  bool          `mapstructure:"test_webhook"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type LineConfig struct {
	ChannelSecret string `mapstructure:"channel_secret"`
	ChannelToken  string `mapstructure:"channel_token"`
}

type AIConfig struct {
	BaseURL      string  `mapstructure:"base_url"`
	APIKey       string  `mapstructure:"api_key"`
	Model        string  `mapstructure:"model"`
	Temperature  float64 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	SystemPrompt string  `mapstructure:"system_prompt"`
	// RequestsPerSecond paces outbound provider calls. Zero disables pacing.
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type ConversationConfig struct {
	MaxHistory int `mapstructure:"max_history"`
}

type RateLimitConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Backend     string        `mapstructure:"backend"` // memory or redis
	MaxRequests int           `mapstructure:"max_requests"`
	Window      time.Duration `mapstructure:"window"`
}

type SearchConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	EngineID       string        `mapstructure:"engine_id"`
	BaseURL        string        `mapstructure:"base_url"`
	DefaultResults int           `mapstructure:"default_results"`
	MaxResults     int           `mapstructure:"max_results"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type TTSConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	BaseURL      string        `mapstructure:"base_url"`
	DefaultVoice string        `mapstructure:"default_voice"`
	EstimatedWPM int           `mapstructure:"estimated_wpm"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type ImageConfig struct {
	BaseURL     string        `mapstructure:"base_url"`
	FallbackURL string        `mapstructure:"fallback_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	GCS   GCSConfig   `mapstructure:"gcs"`
	Redis RedisConfig `mapstructure:"redis"`
}

type GCSConfig struct {
	Bucket          string `mapstructure:"bucket"`
	CredentialsJSON string `mapstructure:"credentials_json"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ProfileConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type LoggingConfig struct {
	Level  string     `mapstructure:"level"`
	Format string     `mapstructure:"format"`
	Output string     `mapstructure:"output"`
	File   FileConfig `mapstructure:"file"`
}

type FileConfig struct {
	Path       string `mapstructure:"path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
}

type MonitoringConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

type I18nConfig struct {
	DefaultLanguage string   `mapstructure:"default_language"`
	Directory       string   `mapstructure:"directory"`
	Languages       []string `mapstructure:"languages"`
}

// LoadConfig loads configuration from file and environment variables
func LoadConfig(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	setDefaults()

	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("line.channel_secret", "LINE_CHANNEL_SECRET")
	viper.BindEnv("line.channel_token", "LINE_CHANNEL_ACCESS_TOKEN")
	viper.BindEnv("ai.api_key", "GROQ_API_KEY")
	viper.BindEnv("ai.model", "GROQ_MODEL")
	viper.BindEnv("search.api_key", "GOOGLE_API_KEY")
	viper.BindEnv("search.engine_id", "GOOGLE_CX")
	viper.BindEnv("tts.api_key", "SPEECHIFY_API_KEY")
	viper.BindEnv("storage.gcs.bucket", "GCS_BUCKET_NAME")
	viper.BindEnv("storage.gcs.credentials_json", "GCS_CREDENTIALS")
	viper.BindEnv("storage.redis.addr", "REDIS_ADDR")
	viper.BindEnv("storage.redis.password", "REDIS_PASSWORD")
	viper.BindEnv("storage.redis.db", "REDIS_DB")

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 3000)
	viper.SetDefault("server.read_timeout", 10*time.Second)
	viper.SetDefault("server.write_timeout", 60*time.Second)

	viper.SetDefault("ai.base_url", "https://api.groq.com/openai/v1")
	viper.SetDefault("ai.model", "openai/gpt-oss-120b")
	viper.SetDefault("ai.temperature", 0.7)
	viper.SetDefault("ai.max_tokens", 500)
	viper.SetDefault("ai.system_prompt", "You are a helpful assistant. Keep responses concise and friendly.")
	viper.SetDefault("ai.timeout", 30*time.Second)

	viper.SetDefault("conversation.max_history", 20)

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.backend", "memory")
	viper.SetDefault("rate_limit.max_requests", 6)
	viper.SetDefault("rate_limit.window", time.Minute)

	viper.SetDefault("search.base_url", "https://www.googleapis.com/customsearch/v1")
	viper.SetDefault("search.default_results", 3)
	viper.SetDefault("search.max_results", 10)
	viper.SetDefault("search.timeout", 10*time.Second)

	viper.SetDefault("tts.base_url", "https://api.sws.speechify.com")
	viper.SetDefault("tts.default_voice", "henry")
	viper.SetDefault("tts.estimated_wpm", 150)
	viper.SetDefault("tts.timeout", 30*time.Second)

	viper.SetDefault("image.base_url", "https://image.pollinations.ai")
	viper.SetDefault("image.fallback_url", "https://upload.wikimedia.org/wikipedia/commons/3/3b/Windows_9X_BSOD.png")
	viper.SetDefault("image.timeout", 30*time.Second)

	viper.SetDefault("profile.cache_ttl", time.Hour)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output", "stdout")

	viper.SetDefault("i18n.default_language", "en")
	viper.SetDefault("i18n.directory", "configs/i18n")
	viper.SetDefault("i18n.languages", []string{"en", "zh-TW"})
}

func validateConfig(cfg *Config) error {
	if cfg.Line.ChannelSecret == "" {
		return fmt.Errorf("line channel secret is required")
	}
	if cfg.Line.ChannelToken == "" {
		return fmt.Errorf("line channel access token is required")
	}
	if cfg.RateLimit.Backend != "memory" && cfg.RateLimit.Backend != "redis" {
		return fmt.Errorf("unsupported rate limit backend: %s", cfg.RateLimit.Backend)
	}
	if cfg.RateLimit.Backend == "redis" && cfg.Storage.Redis.Addr == "" {
		return fmt.Errorf("redis addr is required for redis rate limit backend")
	}
	// The audio duration estimate divides by this.
	if cfg.TTS.EstimatedWPM <= 0 {
		return fmt.Errorf("tts estimated wpm must be positive")
	}
	return nil
}
