package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	OpenAI    OpenAIConfig
	Language  LanguageConfig
	Search    SearchConfig
	Sentiment SentimentConfig
	RAG       RAGConfig
	SQLite    SQLiteConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

// OpenAIConfig points at an Azure OpenAI deployment used for routing,
// summaries and answer synthesis.
type OpenAIConfig struct {
	Endpoint   string
	APIKey     string
	Deployment string
	APIVersion string
	MaxTokens  int
	TimeoutSec int
}

// LanguageConfig points at the hosted sentiment analysis service.
type LanguageConfig struct {
	Endpoint   string
	APIKey     string
	APIVersion string
	TimeoutSec int
}

// SearchConfig points at the hosted document index.
type SearchConfig struct {
	Endpoint      string
	APIKey        string
	Index         string
	APIVersion    string
	QueryLanguage string
	TimeoutSec    int
}

type SentimentConfig struct {
	Provider         string
	NegativeKeywords []string
}

type RAGConfig struct {
	TopPerColumn      int
	ColumnSampleLimit int
	CacheTTLMin       int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/surveysense")

	viper.SetEnvPrefix("SURVEYSENSE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 60)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("openai.deployment", "gpt-4o-mini")
	viper.SetDefault("openai.apiVersion", "2024-12-01-preview")
	viper.SetDefault("openai.maxTokens", 1024)
	viper.SetDefault("openai.timeoutSec", 60)

	viper.SetDefault("language.apiVersion", "2023-04-01")
	viper.SetDefault("language.timeoutSec", 15)

	viper.SetDefault("search.index", "survey-responses")
	viper.SetDefault("search.apiVersion", "2024-05-01-preview")
	viper.SetDefault("search.queryLanguage", "ko-kr")
	viper.SetDefault("search.timeoutSec", 15)

	viper.SetDefault("sentiment.provider", "language")
	viper.SetDefault("sentiment.negativeKeywords", []string{
		"불편", "어려웠", "부족", "싫다", "문제", "힘들었", "지저분",
	})

	viper.SetDefault("rag.topPerColumn", 5)
	viper.SetDefault("rag.columnSampleLimit", 200)
	viper.SetDefault("rag.cacheTTLMin", 30)

	viper.SetDefault("sqlite.path", "./data/surveysense.db")

	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("ratelimit.maxRequestsPerMinute", 30)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
