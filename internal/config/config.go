// Package config assembles gateway settings from built-in defaults, a TOML
// file, an optional .env file and environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

// Driver names.
const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"

	VectorQdrant = "qdrant"
	VectorMemory = "memory"

	EmbeddingOpenAI  = "openai"
	EmbeddingHashing = "hashing"
)

// Config holds all configuration for the gateway.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Chat      ChatConfig      `toml:"chat"`
	Chunking  ChunkingConfig  `toml:"chunking"`
	Retrieval RetrievalConfig `toml:"retrieval"`
	OpenAI    OpenAIConfig    `toml:"openai"`
	Embedding EmbeddingConfig `toml:"embedding"`
	Vector    VectorConfig    `toml:"vector"`
	Storage   StorageConfig   `toml:"storage"`
	Files     FilesConfig     `toml:"files"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Log       LogConfig       `toml:"log"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr                   string `toml:"addr"`
	MaxUploadBytes         int64  `toml:"max_upload_bytes"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"`
	Metrics                bool   `toml:"metrics"`
}

// ShutdownTimeout returns the graceful shutdown window.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// ChatConfig configures model routing and prompting.
type ChatConfig struct {
	Model        string `toml:"model"`
	ModelPrefix  string `toml:"model_prefix"`
	SystemPrompt string `toml:"system_prompt"`
}

// ChunkingConfig configures the text splitter.
type ChunkingConfig struct {
	Size    int `toml:"size"`
	Overlap int `toml:"overlap"`
}

// RetrievalConfig configures similarity search.
type RetrievalConfig struct {
	TopK     int     `toml:"top_k"`
	MinScore float64 `toml:"min_score"`
}

// OpenAIConfig is shared by the embedding and chat adapters.
type OpenAIConfig struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the request timeout.
func (c OpenAIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// EmbeddingConfig selects the embedding provider.
type EmbeddingConfig struct {
	Provider   string `toml:"provider"`
	Model      string `toml:"model"`
	Dimensions int    `toml:"dimensions"`

	// RequestsPerSecond paces upstream embedding calls. Zero disables pacing.
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// VectorConfig selects the vector index.
type VectorConfig struct {
	Driver string       `toml:"driver"`
	Qdrant QdrantConfig `toml:"qdrant"`
}

// QdrantConfig configures the Qdrant REST client.
type QdrantConfig struct {
	URL              string `toml:"url"`
	Host             string `toml:"host"`
	Port             int    `toml:"port"`
	APIKey           string `toml:"api_key"`
	CollectionPrefix string `toml:"collection_prefix"`
}

// StorageConfig selects the metadata store.
type StorageConfig struct {
	Driver   string         `toml:"driver"`
	DataDir  string         `toml:"data_dir"`
	Postgres PostgresConfig `toml:"postgres"`
}

// PostgresConfig configures the PostgreSQL connection.
type PostgresConfig struct {
	DSN      string `toml:"dsn"`
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Database string `toml:"database"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// FilesConfig configures the raw upload archive.
type FilesConfig struct {
	// RawDir receives a copy of every upload. Empty means <data_dir>/raw.
	RawDir string `toml:"raw_dir"`

	// Archive disables the copy when false.
	Archive bool `toml:"archive"`
}

// RateLimitConfig configures the per-client HTTP limiter. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:                   ":8000",
			MaxUploadBytes:         50 << 20,
			ShutdownTimeoutSeconds: 10,
			Metrics:                true,
		},
		Chat: ChatConfig{
			Model:       "gpt-4o-mini",
			ModelPrefix: "loom",
		},
		Chunking:  ChunkingConfig{Size: 1500, Overlap: 200},
		Retrieval: RetrievalConfig{TopK: 6, MinScore: 0.0},
		OpenAI:    OpenAIConfig{TimeoutSeconds: 60},
		Embedding: EmbeddingConfig{
			Provider:   EmbeddingOpenAI,
			Model:      "text-embedding-3-large",
			Dimensions: 256,
		},
		Vector: VectorConfig{
			Driver: VectorQdrant,
			Qdrant: QdrantConfig{Host: "localhost", Port: 6333, CollectionPrefix: "course_"},
		},
		Storage: StorageConfig{
			Driver:   StorageSQLite,
			Postgres: PostgresConfig{Host: "localhost", Port: 5432, Database: "loom", User: "loom"},
		},
		Files: FilesConfig{Archive: true},
		Log:   LogConfig{Level: "info"},
	}
}

// Load builds the configuration. path names a TOML file; when empty,
// ./loom.toml is used if present. A missing file is not an error for the
// default path, but is for an explicit one. A .env file in the working
// directory is loaded into the environment without overriding set variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = "loom.toml"
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg.applyEnv()
	cfg.resolvePaths()

	return cfg, cfg.Validate()
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays environment variables.
func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("LOOM_ADDR", c.Server.Addr)

	c.Chat.Model = getEnv("LOOM_CHAT_MODEL", c.Chat.Model)
	c.Chat.ModelPrefix = getEnv("LOOM_MODEL_PREFIX", c.Chat.ModelPrefix)

	c.Chunking.Size = getEnvInt("CHUNK_SIZE_CHARS", c.Chunking.Size)
	c.Chunking.Overlap = getEnvInt("CHUNK_OVERLAP_CHARS", c.Chunking.Overlap)

	c.Retrieval.TopK = getEnvInt("TOP_K", c.Retrieval.TopK)
	c.Retrieval.MinScore = getEnvFloat("MIN_SCORE", c.Retrieval.MinScore)

	c.OpenAI.APIKey = getEnv("OPENAI_API_KEY", c.OpenAI.APIKey)
	c.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", c.OpenAI.BaseURL)

	c.Embedding.Provider = getEnv("LOOM_EMBED_PROVIDER", c.Embedding.Provider)
	c.Embedding.Model = getEnv("LOOM_EMBED_MODEL", c.Embedding.Model)

	c.Vector.Driver = getEnv("LOOM_VECTOR_DRIVER", c.Vector.Driver)
	c.Vector.Qdrant.Host = getEnv("QDRANT_HOST", c.Vector.Qdrant.Host)
	c.Vector.Qdrant.Port = getEnvInt("QDRANT_PORT", c.Vector.Qdrant.Port)
	c.Vector.Qdrant.APIKey = getEnv("QDRANT_API_KEY", c.Vector.Qdrant.APIKey)
	c.Vector.Qdrant.CollectionPrefix = getEnv("QDRANT_COLLECTION_PREFIX", c.Vector.Qdrant.CollectionPrefix)

	c.Storage.Driver = getEnv("LOOM_STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.DataDir = getEnv("DATA_DIR", c.Storage.DataDir)
	c.Storage.Postgres.Host = getEnv("POSTGRES_HOST", c.Storage.Postgres.Host)
	c.Storage.Postgres.Port = getEnvInt("POSTGRES_PORT", c.Storage.Postgres.Port)
	c.Storage.Postgres.Database = getEnv("POSTGRES_DB", c.Storage.Postgres.Database)
	c.Storage.Postgres.User = getEnv("POSTGRES_USER", c.Storage.Postgres.User)
	c.Storage.Postgres.Password = getEnv("POSTGRES_PASSWORD", c.Storage.Postgres.Password)

	c.Files.RawDir = getEnv("RAW_DIR", c.Files.RawDir)

	c.Log.Level = getEnv("LOOM_LOG_LEVEL", c.Log.Level)
}

// resolvePaths fills in directories derived from the data directory.
func (c *Config) resolvePaths() {
	if c.Storage.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.Storage.DataDir = filepath.Join(home, ".loom", "data")
		}
	}
	if c.Files.RawDir == "" && c.Storage.DataDir != "" {
		c.Files.RawDir = filepath.Join(c.Storage.DataDir, "raw")
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be positive, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, %d), got %d", c.Chunking.Size, c.Chunking.Overlap)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if strings.TrimSpace(c.Chat.Model) == "" {
		return errors.New("chat.model is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("server.max_upload_bytes must be positive, got %d", c.Server.MaxUploadBytes)
	}

	switch c.Storage.Driver {
	case StorageSQLite, StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}
	switch c.Vector.Driver {
	case VectorQdrant, VectorMemory:
	default:
		return fmt.Errorf("unknown vector.driver %q", c.Vector.Driver)
	}
	switch c.Embedding.Provider {
	case EmbeddingOpenAI:
		if c.OpenAI.APIKey == "" {
			return errors.New("OPENAI_API_KEY is required for the openai embedding provider")
		}
	case EmbeddingHashing:
		if c.Embedding.Dimensions <= 0 {
			return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
		}
	default:
		return fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider)
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.Embedding.RequestsPerSecond < 0 {
		return errors.New("requests_per_second must not be negative")
	}
	return nil
}

// WriteDefault writes the default configuration as TOML to path with
// owner-only permissions. An existing file is not overwritten.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	data, err := toml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encoding defaults: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
