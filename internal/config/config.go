// Package config loads service configuration from an optional YAML file
// with environment variable overrides. Connection parameters for the
// external vector service and the embedding/LLM gateway are resolved once
// at process start.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
	Qdrant     QdrantConfig     `yaml:"qdrant"`
	APIM       APIMConfig       `yaml:"apim"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	LLM        LLMConfig        `yaml:"llm"`
	Search     SearchConfig     `yaml:"search"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level    string `yaml:"level"`
	FilePath string `yaml:"file_path"`
}

// QdrantConfig configures the external vector-search service. A cloud URL
// takes precedence over host/port; with InMemory set and no URL, the
// service runs on the in-process fallback store only.
type QdrantConfig struct {
	URL            string `yaml:"url"`
	APIKey         string `yaml:"api_key"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Collection     string `yaml:"collection"`
	InMemory       bool   `yaml:"in_memory"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// UseCloud reports whether a Qdrant cloud URL is configured.
func (q QdrantConfig) UseCloud() bool {
	return strings.TrimSpace(q.URL) != ""
}

// External reports whether any external vector service should be used.
func (q QdrantConfig) External() bool {
	return q.UseCloud() || !q.InMemory
}

// BaseURL returns the HTTP base URL of the configured Qdrant instance.
func (q QdrantConfig) BaseURL() string {
	if q.UseCloud() {
		return strings.TrimRight(q.URL, "/")
	}
	return fmt.Sprintf("http://%s:%d", q.Host, q.Port)
}

// APIMConfig configures the Azure API Management gateway shared by the
// OpenAI embedding and chat deployments.
type APIMConfig struct {
	BaseURL         string `yaml:"base_url"`
	SubscriptionKey string `yaml:"subscription_key"`
}

// Configured reports whether the gateway credentials are present.
func (a APIMConfig) Configured() bool {
	return a.BaseURL != "" && a.SubscriptionKey != ""
}

// EmbeddingsConfig configures embedding providers.
type EmbeddingsConfig struct {
	DefaultModel   string `yaml:"default_model"`
	DeploymentName string `yaml:"deployment_name"`
	NvidiaAPIKey   string `yaml:"nvidia_api_key"`
	NvidiaBaseURL  string `yaml:"nvidia_base_url"`
	CacheSize      int    `yaml:"cache_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// LLMConfig configures answer generation.
type LLMConfig struct {
	Model          string  `yaml:"model"`
	APIVersion     string  `yaml:"api_version"`
	Temperature    float64 `yaml:"temperature"`
	MaxTokens      int     `yaml:"max_tokens"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// SearchConfig configures retrieval defaults.
type SearchConfig struct {
	// DefaultTopK is the result count when the caller does not specify one.
	DefaultTopK int `yaml:"default_top_k"`
	// RRFK is the reciprocal-rank-fusion smoothing constant.
	RRFK int `yaml:"rrf_k"`
}

// Default returns the configuration defaults.
func Default() *Config {
	return &Config{
		Server:  ServerConfig{Addr: "0.0.0.0:8000"},
		Logging: LoggingConfig{Level: "info"},
		Qdrant: QdrantConfig{
			Host:           "localhost",
			Port:           6333,
			Collection:     "rag_demo",
			InMemory:       true,
			TimeoutSeconds: 10,
		},
		Embeddings: EmbeddingsConfig{
			DefaultModel:   "azure-openai",
			DeploymentName: "embedding",
			NvidiaBaseURL:  "https://integrate.api.nvidia.com/v1",
			CacheSize:      1000,
			TimeoutSeconds: 120,
		},
		LLM: LLMConfig{
			Model:          "gpt-4.1",
			APIVersion:     "2025-01-01-preview",
			Temperature:    0.3,
			MaxTokens:      2000,
			TimeoutSeconds: 120,
		},
		Search: SearchConfig{
			DefaultTopK: 5,
			RRFK:        60,
		},
	}
}

// Load reads configuration from the given YAML file (missing file is not
// an error), applies environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides configuration from environment variables. The
// variable names match the original deployment environment.
func (c *Config) applyEnv() {
	setString(&c.Server.Addr, "ARIS_ADDR")
	setString(&c.Logging.Level, "ARIS_LOG_LEVEL")
	setString(&c.Logging.FilePath, "ARIS_LOG_FILE")

	setString(&c.Qdrant.URL, "QDRANT_URL")
	setString(&c.Qdrant.APIKey, "QDRANT_API_KEY")
	setString(&c.Qdrant.Host, "QDRANT_HOST")
	setInt(&c.Qdrant.Port, "QDRANT_PORT")
	setString(&c.Qdrant.Collection, "QDRANT_COLLECTION")
	setBool(&c.Qdrant.InMemory, "QDRANT_IN_MEMORY")

	setString(&c.APIM.BaseURL, "APIM_BASE_URL")
	setString(&c.APIM.SubscriptionKey, "APIM_SUBSCRIPTION_KEY")
	setString(&c.Embeddings.DeploymentName, "OPENAI_EMBEDDING_MODEL")
	setString(&c.Embeddings.NvidiaAPIKey, "NVIDIA_API_KEY")
	setString(&c.Embeddings.NvidiaBaseURL, "NVIDIA_EMBED_BASE_URL")

	setString(&c.LLM.Model, "AZURE_OPENAI_CHAT_MODEL")
	setString(&c.LLM.APIVersion, "AZURE_OPENAI_API_VERSION")
}

// Validate checks for values that would misbehave at runtime.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Qdrant.Collection == "" {
		return fmt.Errorf("qdrant.collection must not be empty")
	}
	if c.Qdrant.Port <= 0 || c.Qdrant.Port > 65535 {
		return fmt.Errorf("qdrant.port out of range: %d", c.Qdrant.Port)
	}
	if c.Search.DefaultTopK <= 0 {
		return fmt.Errorf("search.default_top_k must be positive")
	}
	if c.Search.RRFK <= 0 {
		return fmt.Errorf("search.rrf_k must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes":
			*dst = true
		case "0", "false", "no":
			*dst = false
		}
	}
}
