// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like DB_PASSWORD
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay
	envConfigFile := fmt.Sprintf("config.%s", env)
	viper.SetConfigName(envConfigFile)
	_ = viper.MergeInConfig() // ignore error if not found

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Load .env from the usual locations so the server can run from any directory.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val := v.Get(key)

		if strVal, ok := val.(string); ok {
			if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
				expanded := os.ExpandEnv(strVal)
				if expanded != strVal && expanded != "" {
					v.Set(key, expanded)
				}
			}
		}
	}
}

// Direct override if config values are still empty after expansion
func overrideEmptyConfig(cfg *Config) {
	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
	if cfg.APIs.Embedding.BaseURL == "" {
		if val := os.Getenv("EMBEDDING_BASE_URL"); val != "" {
			cfg.APIs.Embedding.BaseURL = val
		}
	}
	if cfg.APIs.Generation.BaseURL == "" {
		if val := os.Getenv("GENERATION_BASE_URL"); val != "" {
			cfg.APIs.Generation.BaseURL = val
		}
	}
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	expandEnvVars(viper.GetViper())

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 60000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "assistant-knowledge"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// AI service defaults
	if cfg.APIs.Embedding.Timeout == 0 {
		cfg.APIs.Embedding.Timeout = 3000
	}
	if cfg.APIs.Embedding.MaxRetries == 0 {
		cfg.APIs.Embedding.MaxRetries = 1
	}
	if cfg.APIs.Embedding.Model == "" {
		cfg.APIs.Embedding.Model = "nomic-embed-text"
	}
	if cfg.APIs.Generation.Timeout == 0 {
		cfg.APIs.Generation.Timeout = 20000
	}
	if cfg.APIs.Generation.MaxRetries == 0 {
		cfg.APIs.Generation.MaxRetries = 1
	}
	if cfg.APIs.Generation.MaxTokens == 0 {
		cfg.APIs.Generation.MaxTokens = 350
	}
	if cfg.APIs.Generation.Temperature == 0 {
		cfg.APIs.Generation.Temperature = 0.2
	}
	if cfg.APIs.Generation.ContextSize == 0 {
		cfg.APIs.Generation.ContextSize = 2048
	}

	// Pipeline defaults
	if cfg.Assistant.TopK == 0 {
		cfg.Assistant.TopK = 4
	}
	if cfg.Assistant.SnippetBudget == 0 {
		cfg.Assistant.SnippetBudget = 1500
	}
	if cfg.Assistant.SnapshotBudget == 0 {
		cfg.Assistant.SnapshotBudget = 2000
	}
	if cfg.Assistant.AnswerCap == 0 {
		cfg.Assistant.AnswerCap = 1200
	}
	if cfg.Assistant.ResponseCacheTTL == 0 {
		cfg.Assistant.ResponseCacheTTL = 600000
	}
	if cfg.Assistant.ContextCacheTTL == 0 {
		cfg.Assistant.ContextCacheTTL = 60000
	}
	if cfg.Assistant.EmbedCacheTTL == 0 {
		cfg.Assistant.EmbedCacheTTL = 600000
	}
	if cfg.Assistant.SearchCacheTTL == 0 {
		cfg.Assistant.SearchCacheTTL = 300000
	}
	if cfg.Assistant.ResponseCacheSize == 0 {
		cfg.Assistant.ResponseCacheSize = 200
	}
	if cfg.Assistant.ContextCacheSize == 0 {
		cfg.Assistant.ContextCacheSize = 50
	}
	if cfg.Assistant.EmbedCacheSize == 0 {
		cfg.Assistant.EmbedCacheSize = 100
	}
	if cfg.Assistant.SearchCacheSize == 0 {
		cfg.Assistant.SearchCacheSize = 100
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	if len(cfg.Database.Elasticsearch.Addresses) == 0 && cfg.Database.Elasticsearch.URL == "" {
		return fmt.Errorf("database.elasticsearch.addresses or url is required")
	}

	if cfg.APIs.Embedding.BaseURL == "" {
		return fmt.Errorf("apis.embedding.base_url is required")
	}
	if cfg.APIs.Generation.BaseURL == "" {
		return fmt.Errorf("apis.generation.base_url is required")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}
