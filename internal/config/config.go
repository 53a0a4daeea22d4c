package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every generated environment variable name,
// e.g. BOTCREW_SERVER_PORT for server.port.
const EnvPrefix = "BOTCREW"

// Config contains all configuration for the BotCrew service and CLI
type Config struct {
	Server     ServerConfig    `json:"server" mapstructure:"server"`
	LLM        LLMConfig       `json:"llm" mapstructure:"llm"`
	Crew       CrewConfig      `json:"crew" mapstructure:"crew"`
	Vector     VectorConfig    `json:"vector" mapstructure:"vector"`
	Embeddings EmbedderConfig  `json:"embeddings" mapstructure:"embeddings"`
	Memory     MemoryConfig    `json:"memory" mapstructure:"memory"`
	Search     SearchConfig    `json:"search" mapstructure:"search"`
	Ingest     IngestConfig    `json:"ingest" mapstructure:"ingest"`
	Transport  TransportConfig `json:"transport" mapstructure:"transport"`
	Log        LogConfig       `json:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Host            string        `json:"host" mapstructure:"host"`
	Port            int           `json:"port" mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `json:"read_timeout" mapstructure:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `json:"write_timeout" mapstructure:"write_timeout" validate:"min=0"`
	QueryTimeout    time.Duration `json:"query_timeout" mapstructure:"query_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" mapstructure:"shutdown_timeout" validate:"min=0"`
	CORSOrigins     []string      `json:"cors_origins" mapstructure:"cors_origins"`
}

// LLMConfig configures the chat model used by every agent
type LLMConfig struct {
	Provider    string        `json:"provider" mapstructure:"provider" validate:"required,oneof=gemini openai anthropic ollama"`
	Model       string        `json:"model" mapstructure:"model" validate:"required"`
	BaseURL     string        `json:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	APIKey      string        `json:"api_key,omitempty" mapstructure:"api_key"`
	Temperature float32       `json:"temperature" mapstructure:"temperature" validate:"min=0,max=2"`
	MaxTokens   int           `json:"max_tokens" mapstructure:"max_tokens" validate:"min=0,max=200000"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout" validate:"min=0"`
}

// CrewConfig points at the agent and task definitions
type CrewConfig struct {
	AgentsFile    string `json:"agents_file" mapstructure:"agents_file" validate:"required"`
	TasksFile     string `json:"tasks_file" mapstructure:"tasks_file" validate:"required"`
	MaxIterations int    `json:"max_iterations" mapstructure:"max_iterations" validate:"min=1,max=100"`
	Verbose       bool   `json:"verbose" mapstructure:"verbose"`
}

// VectorConfig configures the document index
type VectorConfig struct {
	Provider   string `json:"provider" mapstructure:"provider" validate:"required,oneof=pinecone milvus local"`
	APIKey     string `json:"api_key,omitempty" mapstructure:"api_key"`
	IndexName  string `json:"index_name" mapstructure:"index_name" validate:"required"`
	Namespace  string `json:"namespace" mapstructure:"namespace"`
	Cloud      string `json:"cloud" mapstructure:"cloud"`
	Region     string `json:"region" mapstructure:"region"`
	EmbedModel string `json:"embed_model" mapstructure:"embed_model"`
	TextField  string `json:"text_field" mapstructure:"text_field" validate:"required"`
	TopK       int    `json:"top_k" mapstructure:"top_k" validate:"min=1,max=100"`

	// Milvus
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port" validate:"omitempty,min=1,max=65535"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password,omitempty" mapstructure:"password"`

	// Local chromem store; empty keeps everything in memory.
	LocalPath string `json:"local_path" mapstructure:"local_path"`
}

// EmbedderConfig configures embeddings for stores that do not embed server-side
type EmbedderConfig struct {
	Provider  string `json:"provider" mapstructure:"provider" validate:"required,oneof=openai ollama gemini"`
	Model     string `json:"model" mapstructure:"model" validate:"required"`
	BaseURL   string `json:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	APIKey    string `json:"api_key,omitempty" mapstructure:"api_key"`
	Dimension int    `json:"dimension" mapstructure:"dimension" validate:"min=0,max=8192"`
	BatchSize int    `json:"batch_size" mapstructure:"batch_size" validate:"min=1,max=2048"`
}

// MemoryConfig configures long-term conversational memory
type MemoryConfig struct {
	Provider      string `json:"provider" mapstructure:"provider" validate:"required,oneof=mem0 local"`
	APIKey        string `json:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL       string `json:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	DefaultUserID string `json:"default_user_id" mapstructure:"default_user_id" validate:"required"`
	SearchLimit   int    `json:"search_limit" mapstructure:"search_limit" validate:"min=1,max=100"`
	LocalPath     string `json:"local_path" mapstructure:"local_path"`
}

// SearchConfig configures web search
type SearchConfig struct {
	Provider   string        `json:"provider" mapstructure:"provider" validate:"required,oneof=serper"`
	APIKey     string        `json:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string        `json:"base_url" mapstructure:"base_url" validate:"omitempty,url"`
	NumResults int           `json:"num_results" mapstructure:"num_results" validate:"min=1,max=100"`
	Country    string        `json:"country" mapstructure:"country"`
	Locale     string        `json:"locale" mapstructure:"locale"`
	CacheTTL   time.Duration `json:"cache_ttl" mapstructure:"cache_ttl" validate:"min=0"`
}

// IngestConfig configures the document chunk-and-upsert pipeline
type IngestConfig struct {
	ChunkSize      int    `json:"chunk_size" mapstructure:"chunk_size" validate:"min=50,max=50000"`
	BatchSize      int    `json:"batch_size" mapstructure:"batch_size" validate:"min=1,max=1000"`
	MaxConcurrency int    `json:"max_concurrency" mapstructure:"max_concurrency" validate:"min=1,max=64"`
	IDPrefix       string `json:"id_prefix" mapstructure:"id_prefix" validate:"required"`
}

// TransportConfig tunes outbound REST calls (memory service, web search)
type TransportConfig struct {
	Timeout         time.Duration `json:"timeout" mapstructure:"timeout" validate:"min=0"`
	RetryMax        int           `json:"retry_max" mapstructure:"retry_max" validate:"min=0,max=10"`
	RetryBackoff    time.Duration `json:"retry_backoff" mapstructure:"retry_backoff" validate:"min=0"`
	RateLimit       float64       `json:"rate_limit" mapstructure:"rate_limit" validate:"min=0"`
	Burst           int           `json:"burst" mapstructure:"burst" validate:"min=0"`
	BreakerFailures int           `json:"breaker_failures" mapstructure:"breaker_failures" validate:"min=0"`
	BreakerTimeout  time.Duration `json:"breaker_timeout" mapstructure:"breaker_timeout" validate:"min=0"`
}

// LogConfig configures the process logger
type LogConfig struct {
	Level  string `json:"level" mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `json:"format" mapstructure:"format" validate:"required,oneof=console json"`
	File   string `json:"file" mapstructure:"file"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8000,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    5 * time.Minute,
			QueryTimeout:    4 * time.Minute,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Model:       "gemini-2.0-flash",
			Temperature: 0.7,
			MaxTokens:   4096,
			Timeout:     2 * time.Minute,
		},
		Crew: CrewConfig{
			AgentsFile:    "config/agents.yaml",
			TasksFile:     "config/tasks.yaml",
			MaxIterations: 15,
			Verbose:       true,
		},
		Vector: VectorConfig{
			Provider:   "pinecone",
			IndexName:  "kartavyaai",
			Namespace:  "__default__",
			Cloud:      "aws",
			Region:     "us-east-1",
			EmbedModel: "llama-text-embed-v2",
			TextField:  "chunk_text",
			TopK:       2,
			Host:       "localhost",
			Port:       19530,
		},
		Embeddings: EmbedderConfig{
			Provider:  "gemini",
			Model:     "text-embedding-004",
			BatchSize: 64,
		},
		Memory: MemoryConfig{
			Provider:      "mem0",
			BaseURL:       "https://api.mem0.ai",
			DefaultUserID: "Sarthak",
			SearchLimit:   10,
		},
		Search: SearchConfig{
			Provider:   "serper",
			BaseURL:    "https://google.serper.dev",
			NumResults: 10,
			CacheTTL:   10 * time.Minute,
		},
		Ingest: IngestConfig{
			ChunkSize:      500,
			BatchSize:      96,
			MaxConcurrency: 4,
			IDPrefix:       "chunk",
		},
		Transport: TransportConfig{
			Timeout:         30 * time.Second,
			RetryMax:        0,
			RetryBackoff:    time.Second,
			RateLimit:       5,
			Burst:           10,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// legacyEnv maps config keys to the environment variable names used by the
// deployment scripts. They are consulted after the BOTCREW_ prefixed names.
var legacyEnv = map[string][]string{
	"server.port":        {"PORT"},
	"llm.api_key":        {"GEMINI_API_KEY"},
	"vector.api_key":     {"PINECONE_API_KEY"},
	"vector.region":      {"PINECONE_ENV"},
	"vector.index_name":  {"INDEX_NAME"},
	"search.api_key":     {"SERPER_API_KEY"},
	"memory.api_key":     {"MEMORY_API_KEY"},
	"embeddings.api_key": {"EMBEDDINGS_API_KEY", "GEMINI_API_KEY"},
}

// secretKeys are the omitempty fields. They are bound explicitly since the
// marshalled defaults leave them out.
var secretKeys = []string{
	"llm.api_key",
	"vector.api_key",
	"vector.password",
	"embeddings.api_key",
	"memory.api_key",
	"search.api_key",
}

// Load builds the configuration from defaults, an optional JSON/YAML file,
// a .env file in the working directory and the process environment, in
// increasing order of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", path)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	keys, err := configKeys(DefaultConfig())
	if err != nil {
		return nil, err
	}
	for _, key := range keys {
		envs := []string{EnvName(key)}
		envs = append(envs, legacyEnv[key]...)
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// EnvName returns the prefixed environment variable for a dotted config key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// configKeys flattens the JSON shape of cfg into dotted viper keys.
func configKeys(cfg *Config) ([]string, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, fmt.Errorf("failed to unmarshal defaults: %w", err)
	}

	var keys []string
	var walk func(prefix string, node map[string]interface{})
	walk = func(prefix string, node map[string]interface{}) {
		for k, val := range node {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if child, ok := val.(map[string]interface{}); ok {
				walk(key, child)
				continue
			}
			keys = append(keys, key)
		}
	}
	walk("", tree)

	// omitempty secrets do not appear in the defaults
	keys = append(keys, secretKeys...)
	for key := range legacyEnv {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return dedupe(keys), nil
}

func dedupe(sorted []string) []string {
	out := sorted[:0]
	for i, k := range sorted {
		if i > 0 && sorted[i-1] == k {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validate := validator.New()

	if c.Vector.Provider == "milvus" && c.Vector.Host == "" {
		return fmt.Errorf("vector.host is required for milvus")
	}

	return validate.Struct(c)
}

// Addr returns the listen address of the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// SaveToFile saves the configuration to a file
func (c *Config) SaveToFile(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Redacted returns a copy of the config with every secret masked
func (c *Config) Redacted() Config {
	configCopy := *c
	configCopy.LLM.APIKey = mask(configCopy.LLM.APIKey)
	configCopy.Vector.APIKey = mask(configCopy.Vector.APIKey)
	configCopy.Vector.Password = mask(configCopy.Vector.Password)
	configCopy.Embeddings.APIKey = mask(configCopy.Embeddings.APIKey)
	configCopy.Memory.APIKey = mask(configCopy.Memory.APIKey)
	configCopy.Search.APIKey = mask(configCopy.Search.APIKey)
	return configCopy
}

// String returns a string representation of the config (with sensitive data masked)
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c.Redacted(), "", "  ")
	return string(data)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return strings.Repeat("*", len(s))
}
