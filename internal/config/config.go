package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/catalogqa/internal/domain/search/filter"
	"github.com/kailas-cloud/catalogqa/internal/usecase/classify"
)

// Index backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds the catalogqa configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Completion CompletionConfig `yaml:"completion"`
	Index      IndexConfig      `yaml:"index"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Cache      CacheConfig      `yaml:"cache"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // streamed answers need headroom
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// EmbeddingConfig holds the OpenAI-compatible embedding provider settings.
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	// QueryInstruction is prepended to query text for instruction-tuned models.
	QueryInstruction string `yaml:"query_instruction"`
}

// CompletionConfig holds the OpenAI-compatible chat completion settings.
type CompletionConfig struct {
	Provider           string  `yaml:"provider"`
	APIKey             string  `yaml:"api_key"`
	BaseURL            string  `yaml:"base_url"`
	Model              string  `yaml:"model"`
	MaxTokens          int     `yaml:"max_tokens"`
	Temperature        float32 `yaml:"temperature"`
	SystemPrompt       string  `yaml:"system_prompt"`
	ConversationPrompt string  `yaml:"conversation_prompt"`
}

// IndexConfig selects and configures the vector index backend.
type IndexConfig struct {
	Backend          string   `yaml:"backend"` // memory, redis (default: memory)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	Name             string   `yaml:"name"`
	KeyPrefix        string   `yaml:"key_prefix"`
}

// CatalogConfig points at the preloaded catalog file.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// RetrievalConfig holds per-query defaults and answer texts.
type RetrievalConfig struct {
	TopK              int     `yaml:"top_k"`
	MinScore          float64 `yaml:"min_score"`
	SemanticThreshold float64 `yaml:"semantic_threshold"`
	PassageBudget     int     `yaml:"passage_budget"`
	NoResultsMessage  string  `yaml:"no_results_message"`
}

// ClassifierConfig holds extra keyword routes merged over the built-in ones.
type ClassifierConfig struct {
	Routes []RouteConfig `yaml:"routes"`
}

// RouteConfig is one keyword route. Filter uses the same shape as the
// filter override accepted over HTTP.
type RouteConfig struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Filter   any      `yaml:"filter"`
}

// CacheConfig holds cache capacities and TTLs.
type CacheConfig struct {
	ClassificationSize int `yaml:"classification_size"`
	FilterSize         int `yaml:"filter_size"`
	EmbeddingSize      int `yaml:"embedding_size"`
	SemanticSize       int `yaml:"semantic_size"`
	RetrievalSize      int `yaml:"retrieval_size"`
	RetrievalTTLSec    int `yaml:"retrieval_ttl_sec"`
	ResponseSize       int `yaml:"response_size"`
	ResponseTTLSec     int `yaml:"response_ttl_sec"`
	// PersistEmbeddings keeps query embeddings in Redis (redis backend only).
	PersistEmbeddings    bool `yaml:"persist_embeddings"`
	EmbeddingStoreTTLSec int  `yaml:"embedding_store_ttl_sec"`
}

// RetrievalTTL returns the retrieval cache TTL as a duration.
func (c CacheConfig) RetrievalTTL() time.Duration {
	return time.Duration(c.RetrievalTTLSec) * time.Second
}

// EmbeddingStoreTTL returns the persistent embedding cache TTL as a duration.
func (c CacheConfig) EmbeddingStoreTTL() time.Duration {
	return time.Duration(c.EmbeddingStoreTTLSec) * time.Second
}

// ResponseTTL returns the response cache TTL as a duration.
func (c CacheConfig) ResponseTTL() time.Duration {
	return time.Duration(c.ResponseTTLSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a YAML configuration document.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = 384
	}
	if c.Completion.Provider == "" {
		c.Completion.Provider = c.Embedding.Provider
	}
	if c.Completion.APIKey == "" {
		c.Completion.APIKey = c.Embedding.APIKey
	}
	if c.Completion.BaseURL == "" {
		c.Completion.BaseURL = c.Embedding.BaseURL
	}
	if c.Completion.MaxTokens <= 0 {
		c.Completion.MaxTokens = 300
	}
	if c.Index.Backend == "" {
		c.Index.Backend = BackendMemory
	}
	if c.Index.ReadinessTimeout <= 0 {
		c.Index.ReadinessTimeout = 10
	}
	if c.Index.Name == "" {
		c.Index.Name = "catalogqa:idx"
	}
	if c.Index.KeyPrefix == "" {
		c.Index.KeyPrefix = "catalogqa:doc:"
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 3
	}
	if c.Retrieval.MinScore == 0 {
		c.Retrieval.MinScore = 0.45
	}
	if c.Retrieval.SemanticThreshold <= 0 {
		c.Retrieval.SemanticThreshold = 0.82
	}
	if c.Retrieval.PassageBudget <= 0 {
		c.Retrieval.PassageBudget = 1200
	}
	c.Cache.applyDefaults()
}

func (c *CacheConfig) applyDefaults() {
	if c.ClassificationSize <= 0 {
		c.ClassificationSize = 100
	}
	if c.FilterSize <= 0 {
		c.FilterSize = 100
	}
	if c.EmbeddingSize <= 0 {
		c.EmbeddingSize = 256
	}
	if c.SemanticSize <= 0 {
		c.SemanticSize = 256
	}
	if c.RetrievalSize <= 0 {
		c.RetrievalSize = 1000
	}
	if c.RetrievalTTLSec <= 0 {
		c.RetrievalTTLSec = 300
	}
	if c.ResponseSize <= 0 {
		c.ResponseSize = 500
	}
	if c.ResponseTTLSec <= 0 {
		c.ResponseTTLSec = 300
	}
	if c.EmbeddingStoreTTLSec <= 0 {
		c.EmbeddingStoreTTLSec = 86400
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Completion.Model == "" {
		return fmt.Errorf("completion.model is required")
	}
	if c.Catalog.Path == "" {
		return fmt.Errorf("catalog.path is required")
	}
	switch c.Index.Backend {
	case BackendMemory:
	case BackendRedis:
		if len(c.Index.Addrs) == 0 {
			return fmt.Errorf("index.addrs is required for the redis backend")
		}
	default:
		return fmt.Errorf("index.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Index.Backend)
	}
	if c.Retrieval.MinScore < -1 || c.Retrieval.MinScore > 1 {
		return fmt.Errorf("retrieval.min_score must be within [-1, 1], got %v", c.Retrieval.MinScore)
	}
	if c.Retrieval.SemanticThreshold > 1 {
		return fmt.Errorf("retrieval.semantic_threshold must be at most 1, got %v", c.Retrieval.SemanticThreshold)
	}
	if _, err := c.Classifier.RouteDefs(); err != nil {
		return err
	}
	return nil
}

// RouteDefs converts the configured routes into classifier definitions.
func (c ClassifierConfig) RouteDefs() ([]classify.RouteDef, error) {
	defs := make([]classify.RouteDef, 0, len(c.Routes))
	for i, r := range c.Routes {
		if r.Name == "" {
			return nil, fmt.Errorf("classifier.routes[%d].name is required", i)
		}
		if len(r.Keywords) == 0 {
			return nil, fmt.Errorf("classifier.routes[%d] (%s): keywords are required", i, r.Name)
		}
		f, err := filter.FromValue(r.Filter)
		if err != nil {
			return nil, fmt.Errorf("classifier.routes[%d] (%s): %w", i, r.Name, err)
		}
		defs = append(defs, classify.RouteDef{Name: r.Name, Keywords: r.Keywords, Filter: f})
	}
	return defs, nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
