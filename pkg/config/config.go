package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Corpus    CorpusConfig
	LLM       LLMConfig
	Embedding EmbeddingConfig
	Retrieval RetrievalConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type CorpusConfig struct {
	PrimaryBaseURL  string
	FallbackBaseURL string
	Versions        []string
	MaxChunkFiles   int
	ChunksPerFile   int
	TimeoutSec      int
}

type LLMConfig struct {
	APIKey      string
	Model       string
	VisionModel string
	Temperature float32
	MaxTokens   int
	PaceMS      int
}

type EmbeddingConfig struct {
	APIKey     string
	Model      string
	Dimensions int
}

type RetrievalConfig struct {
	Profile string
	TopK    int
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
	viper.AddConfigPath("/etc/quizzy")

	viper.SetEnvPrefix("QUIZZY")
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

	// Provider keys come from the environment, never from the config file.
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.LLM.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		config.Embedding.APIKey = key
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 120)
	viper.SetDefault("server.bodyLimit", 10485760)

	viper.SetDefault("corpus.primaryBaseURL", "https://quizzy-app.netlify.app/data/processed")
	viper.SetDefault("corpus.fallbackBaseURL", "https://raw.githubusercontent.com/quizzy-app/corpus/main/data/processed")
	viper.SetDefault("corpus.versions", []string{"v4", "v3", "v2"})
	viper.SetDefault("corpus.maxChunkFiles", 10)
	viper.SetDefault("corpus.chunksPerFile", 100)
	viper.SetDefault("corpus.timeoutSec", 20)

	viper.SetDefault("llm.model", "claude-3-5-sonnet-20241022")
	viper.SetDefault("llm.visionModel", "claude-3-5-sonnet-20241022")
	viper.SetDefault("llm.temperature", 0.2)
	viper.SetDefault("llm.maxTokens", 4096)
	viper.SetDefault("llm.paceMS", 1500)

	viper.SetDefault("embedding.model", "text-embedding-3-small")
	viper.SetDefault("embedding.dimensions", 512)

	viper.SetDefault("retrieval.profile", "permissive")
	viper.SetDefault("retrieval.topK", 3)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
