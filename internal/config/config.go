// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package config

import (
	"errors"
	"math"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/akcio-dev/akcio/internal/embedding"
	"github.com/akcio-dev/akcio/internal/secrets"
	"github.com/akcio-dev/akcio/internal/store"
	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// EnvPrefix prefixes environment overrides, e.g. AKCIO_RETRIEVAL_TOP_K.
const EnvPrefix = "AKCIO"

// Config is the top-level Akcio configuration.
type Config struct {
	DataDir   string                    `mapstructure:"data_dir" yaml:"data_dir"`
	Server    ServerConfig              `mapstructure:"server" yaml:"server"`
	Logging   LoggingConfig             `mapstructure:"logging" yaml:"logging"`
	Embedding EmbeddingConfig           `mapstructure:"embedding" yaml:"embedding"`
	Store     StoreConfig               `mapstructure:"store" yaml:"store"`
	Memory    MemoryConfig              `mapstructure:"memory" yaml:"memory"`
	Retrieval RetrievalConfig           `mapstructure:"retrieval" yaml:"retrieval"`
	Ingest    IngestConfig              `mapstructure:"ingest" yaml:"ingest"`
	Prompt    PromptConfig              `mapstructure:"prompt" yaml:"prompt"`
	Providers map[string]ProviderConfig `mapstructure:"providers" yaml:"providers,omitempty"`
	Models    ModelsConfig              `mapstructure:"models" yaml:"models"`
}

type ServerConfig struct {
	Listen      string          `mapstructure:"listen" yaml:"listen"`
	CORSOrigins []string        `mapstructure:"cors_origins" yaml:"cors_origins"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// RateLimitConfig is the per-IP request budget. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// EmbeddingConfig selects the embedder. Dimensions also fixes the width of
// every vector collection.
type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Model      string `mapstructure:"model" yaml:"model,omitempty"`
	Dimensions int    `mapstructure:"dimensions" yaml:"dimensions"`
	Normalize  bool   `mapstructure:"normalize" yaml:"normalize"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

type StoreConfig struct {
	Vector VectorStoreConfig `mapstructure:"vector" yaml:"vector"`
	Scalar ScalarStoreConfig `mapstructure:"scalar" yaml:"scalar"`
}

type VectorStoreConfig struct {
	Backend     string         `mapstructure:"backend" yaml:"backend"`
	Metric      string         `mapstructure:"metric" yaml:"metric"`
	IndexType   string         `mapstructure:"index_type" yaml:"index_type"`
	IndexParams map[string]any `mapstructure:"index_params" yaml:"index_params"`
	Qdrant      QdrantConfig   `mapstructure:"qdrant" yaml:"qdrant"`
}

type QdrantConfig struct {
	Host   string `mapstructure:"host" yaml:"host"`
	Port   int    `mapstructure:"port" yaml:"port"`
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	UseTLS bool   `mapstructure:"use_tls" yaml:"use_tls"`
}

// ScalarStoreConfig turns on the keyword index kept alongside each collection.
type ScalarStoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Backend string `mapstructure:"backend" yaml:"backend"`
}

// MemoryConfig selects where conversation turns are kept. DSN is only read by
// the postgres backend.
type MemoryConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	DSN     string `mapstructure:"dsn" yaml:"dsn,omitempty"`
}

type RetrievalConfig struct {
	TopK      int     `mapstructure:"top_k" yaml:"top_k"`
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
}

type IngestConfig struct {
	ChunkSize    int           `mapstructure:"chunk_size" yaml:"chunk_size"`
	BatchSize    int           `mapstructure:"batch_size" yaml:"batch_size"`
	FetchTimeout time.Duration `mapstructure:"fetch_timeout" yaml:"fetch_timeout"`
}

type PromptConfig struct {
	MaxHistoryTokens int `mapstructure:"max_history_tokens" yaml:"max_history_tokens"`
	MaxContextChunks int `mapstructure:"max_context_chunks" yaml:"max_context_chunks"`
}

// ProviderConfig holds credentials and endpoint for an LLM provider.
type ProviderConfig struct {
	APIKey  string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL string `mapstructure:"base_url" yaml:"base_url,omitempty"`
}

// ModelsConfig selects the chat model as "provider/model", with failover
// candidates tried in order.
type ModelsConfig struct {
	Default     string   `mapstructure:"default" yaml:"default"`
	Failover    []string `mapstructure:"failover" yaml:"failover,omitempty"`
	Temperature float64  `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens   int      `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "~/.akcio")
	v.SetDefault("server.listen", "127.0.0.1:18790")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.rate_limit.requests_per_second", 0.0)
	v.SetDefault("server.rate_limit.burst", 20)
	v.SetDefault("logging.level", "info")

	v.SetDefault("embedding.provider", "hash")
	v.SetDefault("embedding.dimensions", 768)
	v.SetDefault("embedding.normalize", true)

	v.SetDefault("store.vector.backend", "sqlite")
	v.SetDefault("store.vector.metric", "ip")
	v.SetDefault("store.vector.index_type", "IVF_FLAT")
	v.SetDefault("store.vector.index_params", map[string]any{"nlist": 1024})
	v.SetDefault("store.vector.qdrant.host", "localhost")
	v.SetDefault("store.vector.qdrant.port", 6334)
	v.SetDefault("store.scalar.enabled", false)
	v.SetDefault("store.scalar.backend", "sqlite")

	v.SetDefault("memory.backend", "sqlite")

	v.SetDefault("retrieval.top_k", 10)
	v.SetDefault("retrieval.threshold", 0.6)

	v.SetDefault("ingest.chunk_size", 300)
	v.SetDefault("ingest.batch_size", 64)
	v.SetDefault("ingest.fetch_timeout", 30*time.Second)

	v.SetDefault("prompt.max_history_tokens", 1024)
	v.SetDefault("prompt.max_context_chunks", 5)

	v.SetDefault("models.default", "openai/gpt-3.5-turbo")
	v.SetDefault("models.temperature", 0.8)
	v.SetDefault("models.max_tokens", 1024)
}

// NewViper returns a viper instance with defaults and AKCIO_ env overrides.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from path (defaults only when empty) with
// environment overrides. Credential values written as keyring references are
// resolved through keys; a nil keys leaves them untouched.
func Load(path string, keys secrets.Store) (*Config, error) {
	v := NewViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, akcioerr.Errorf(akcioerr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
		WarnInsecurePermissions(path)
	}
	if keys != nil {
		if err := secrets.ResolveViper(v, keys); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, akcioerr.Errorf(akcioerr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	cfg.DataDir = expandHome(cfg.DataDir)

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, akcioerr.Errorf(akcioerr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

// Default returns the configuration used when no file or environment
// override is present.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(err)
	}
	return &cfg
}

// StorageConfig maps the store sections onto the backend factory config.
func (c *Config) StorageConfig() *store.StorageConfig {
	return &store.StorageConfig{
		DataDir:       c.DataDir,
		VectorBackend: c.Store.Vector.Backend,
		ScalarBackend: c.Store.Scalar.Backend,
		TurnBackend:   c.Memory.Backend,
		Qdrant: store.QdrantConfig{
			Host:   c.Store.Vector.Qdrant.Host,
			Port:   c.Store.Vector.Qdrant.Port,
			APIKey: c.Store.Vector.Qdrant.APIKey,
			UseTLS: c.Store.Vector.Qdrant.UseTLS,
		},
		PostgresDSN: c.Memory.DSN,
	}
}

// CollectionSpec is the schema every new project collection is created with.
func (c *Config) CollectionSpec() (store.CollectionSpec, error) {
	metric, err := store.ParseMetric(c.Store.Vector.Metric)
	if err != nil {
		return store.CollectionSpec{}, err
	}
	spec := store.CollectionSpec{
		Dimensions:  c.Embedding.Dimensions,
		Metric:      metric,
		IndexType:   c.Store.Vector.IndexType,
		IndexParams: c.Store.Vector.IndexParams,
	}
	return spec, spec.Validate()
}

func (c *Config) EmbeddingConfig() embedding.Config {
	return embedding.Config{
		Provider:   c.Embedding.Provider,
		Model:      c.Embedding.Model,
		Dimensions: c.Embedding.Dimensions,
		Normalize:  c.Embedding.Normalize,
		APIKey:     c.Embedding.APIKey,
		BaseURL:    c.Embedding.BaseURL,
	}
}

// Validate checks the configuration for logical errors, collecting every
// issue rather than stopping at the first one.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateServer()...)
	errs = append(errs, c.validateEmbedding()...)
	errs = append(errs, c.validateStore()...)
	errs = append(errs, c.validatePipelines()...)
	errs = append(errs, c.validateModels()...)

	if !oneOf(c.Logging.Level, "debug", "info", "warn", "error") {
		errs = append(errs, invalid("logging.level must be one of [debug, info, warn, error], got %q", c.Logging.Level))
	}
	if c.DataDir == "" {
		errs = append(errs, invalid("data_dir must not be empty"))
	}

	return errs
}

func (c *Config) validateServer() []error {
	var errs []error
	rl := c.Server.RateLimit
	if rl.RequestsPerSecond < 0 {
		errs = append(errs, invalid("server.rate_limit.requests_per_second must not be negative, got %g", rl.RequestsPerSecond))
	}
	if rl.RequestsPerSecond > 0 && rl.Burst <= 0 {
		errs = append(errs, invalid("server.rate_limit.burst must be positive when a rate is set, got %d", rl.Burst))
	}
	return append(errs, c.validateListen()...)
}

func (c *Config) validateListen() []error {
	if c.Server.Listen == "" {
		return []error{invalid("server.listen must not be empty")}
	}
	_, portStr, err := net.SplitHostPort(c.Server.Listen)
	if err != nil {
		return []error{invalid("server.listen must be a valid host:port address, got %q: %w", c.Server.Listen, err)}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return []error{invalid("server.listen port must be a number, got %q", portStr)}
	}
	if port < 1 || port > 65535 {
		return []error{invalid("server.listen port must be between 1 and 65535, got %d", port)}
	}
	return nil
}

func (c *Config) validateEmbedding() []error {
	var errs []error
	if !oneOf(c.Embedding.Provider, "hash", "openai", "google") {
		errs = append(errs, invalid("embedding.provider must be one of [hash, openai, google], got %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions <= 0 {
		errs = append(errs, invalid("embedding.dimensions must be greater than 0, got %d", c.Embedding.Dimensions))
	}
	return errs
}

func (c *Config) validateStore() []error {
	var errs []error

	if !oneOf(c.Store.Vector.Backend, "sqlite", "qdrant") {
		errs = append(errs, invalid("store.vector.backend must be one of [sqlite, qdrant], got %q", c.Store.Vector.Backend))
	}
	if _, err := store.ParseMetric(c.Store.Vector.Metric); err != nil {
		errs = append(errs, invalid("store.vector.metric must be one of [ip, cosine, l2], got %q", c.Store.Vector.Metric))
	}
	if c.Store.Vector.IndexType == "" {
		errs = append(errs, invalid("store.vector.index_type must not be empty"))
	}
	if c.Store.Scalar.Enabled && c.Store.Scalar.Backend != "sqlite" {
		errs = append(errs, invalid("store.scalar.backend must be one of [sqlite], got %q", c.Store.Scalar.Backend))
	}

	if !oneOf(c.Memory.Backend, "sqlite", "postgres", "bolt") {
		errs = append(errs, invalid("memory.backend must be one of [sqlite, postgres, bolt], got %q", c.Memory.Backend))
	} else if c.Memory.Backend == "postgres" && c.Memory.DSN == "" {
		errs = append(errs, invalid("memory.dsn is required when memory.backend is postgres"))
	}

	return errs
}

func (c *Config) validatePipelines() []error {
	var errs []error
	if c.Retrieval.TopK <= 0 {
		errs = append(errs, invalid("retrieval.top_k must be greater than 0, got %d", c.Retrieval.TopK))
	}
	if math.IsNaN(c.Retrieval.Threshold) || math.IsInf(c.Retrieval.Threshold, 0) {
		errs = append(errs, invalid("retrieval.threshold must be a finite number"))
	}
	if c.Ingest.ChunkSize <= 0 {
		errs = append(errs, invalid("ingest.chunk_size must be greater than 0, got %d", c.Ingest.ChunkSize))
	}
	if c.Ingest.BatchSize <= 0 {
		errs = append(errs, invalid("ingest.batch_size must be greater than 0, got %d", c.Ingest.BatchSize))
	}
	if c.Ingest.FetchTimeout < 0 {
		errs = append(errs, invalid("ingest.fetch_timeout must not be negative, got %s", c.Ingest.FetchTimeout))
	}
	if c.Prompt.MaxHistoryTokens < 0 {
		errs = append(errs, invalid("prompt.max_history_tokens must not be negative, got %d", c.Prompt.MaxHistoryTokens))
	}
	if c.Prompt.MaxContextChunks < 0 {
		errs = append(errs, invalid("prompt.max_context_chunks must not be negative, got %d", c.Prompt.MaxContextChunks))
	}
	return errs
}

func (c *Config) validateModels() []error {
	var errs []error

	refs := append([]string{c.Models.Default}, c.Models.Failover...)
	for i, ref := range refs {
		key := "models.default"
		if i > 0 {
			key = "models.failover[" + strconv.Itoa(i-1) + "]"
		}
		if ref == "" {
			errs = append(errs, invalid("%s must not be empty", key))
			continue
		}
		name, model, ok := strings.Cut(ref, "/")
		if !ok || name == "" || model == "" {
			errs = append(errs, invalid("%s must be in \"provider/model\" format, got %q", key, ref))
			continue
		}
		// A nil map means no providers section at all, which is valid on a
		// fresh install.
		if c.Providers != nil {
			if _, ok := c.Providers[name]; !ok {
				errs = append(errs, invalid("%s %q references provider %q which is not configured", key, ref, name))
			}
		}
	}

	if c.Models.Temperature < 0 || c.Models.Temperature > 2 {
		errs = append(errs, invalid("models.temperature must be between 0 and 2, got %g", c.Models.Temperature))
	}
	if c.Models.MaxTokens <= 0 {
		errs = append(errs, invalid("models.max_tokens must be greater than 0, got %d", c.Models.MaxTokens))
	}
	return errs
}

func invalid(format string, args ...any) error {
	return akcioerr.Errorf(akcioerr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

func oneOf(v string, allowed ...string) bool {
	return slices.Contains(allowed, v)
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
