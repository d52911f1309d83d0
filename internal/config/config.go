// Package config provides configuration loading and structs for ragstore.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/ragstore/pkg/utils"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Store     StoreConfig     `yaml:"store"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Search    SearchConfig    `yaml:"search"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds on-disk locations.
type StorageConfig struct {
	// SnapshotPath is where the vector store is saved and loaded. For the l2 store the
	// ".meta" and ".contents" sidecars sit next to it.
	SnapshotPath string `yaml:"snapshot_path"`
	// CatalogPath is the SQLite database recording ingested files.
	CatalogPath string `yaml:"catalog_path"`
}

// EmbeddingConfig selects and configures the embedding provider.
type EmbeddingConfig struct {
	// Provider is "onnx", "openai", or "placeholder".
	Provider   string `yaml:"provider"`
	ModelPath  string `yaml:"model_path"`
	ModelsDir  string `yaml:"models_dir"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
	// AllowPlaceholder falls back to the placeholder provider (with a warning) when the
	// configured provider cannot start. Chunks it embeds are tagged "text-placeholder".
	AllowPlaceholder bool         `yaml:"allow_placeholder"`
	OpenAI           OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig configures the OpenAI-compatible provider.
type OpenAIConfig struct {
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`
}

// APIKey reads the key from the configured environment variable.
func (o OpenAIConfig) APIKey() string {
	return os.Getenv(o.APIKeyEnv)
}

// StoreConfig selects the vector store backend.
type StoreConfig struct {
	// Type is "cosine" or "l2".
	Type string `yaml:"type"`
	// L2Backend is "auto", "native", or "faiss".
	L2Backend string `yaml:"l2_backend"`
}

// ChunkingConfig holds chunk size and overlap, in characters.
type ChunkingConfig struct {
	Size    int  `yaml:"size"`
	Overlap *int `yaml:"overlap"`
}

// OverlapOrDefault returns the configured overlap; defaults to DefaultChunkOverlap when unset.
func (c *ChunkingConfig) OverlapOrDefault() int {
	if c.Overlap != nil {
		return *c.Overlap
	}
	return DefaultChunkOverlap
}

// SearchConfig holds top-k limits.
type SearchConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// WatchConfig holds directory watch settings.
type WatchConfig struct {
	Directories []string `yaml:"directories"`
	Extensions  []string `yaml:"extensions"`
	Recursive   *bool    `yaml:"recursive"`
}

// RecursiveOrDefault returns whether to watch recursively; defaults to true when unset.
func (w *WatchConfig) RecursiveOrDefault() bool {
	if w.Recursive != nil {
		return *w.Recursive
	}
	return true
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	ExpandPaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns a config with defaults applied and paths expanded relative to configDir.
func Default(configDir string) *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	ExpandPaths(cfg, configDir)
	return cfg
}

// ExpandPaths makes every configured path absolute.
func ExpandPaths(cfg *Config, configDir string) {
	cfg.Storage.SnapshotPath = expandPath(cfg.Storage.SnapshotPath, configDir)
	cfg.Storage.CatalogPath = expandPath(cfg.Storage.CatalogPath, configDir)
	cfg.Embedding.ModelsDir = expandPath(cfg.Embedding.ModelsDir, configDir)
	if cfg.Embedding.ModelPath != "" && !strings.HasPrefix(cfg.Embedding.ModelPath, "./") {
		cfg.Embedding.ModelPath = utils.ModelPath(cfg.Embedding.ModelsDir, cfg.Embedding.ModelPath)
	} else {
		cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	}
	for i := range cfg.Watch.Directories {
		cfg.Watch.Directories[i] = expandPath(cfg.Watch.Directories[i], configDir)
	}
}

// Save writes the config to path. Used for persisting watch directory add/remove.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty stays empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, strings.TrimPrefix(path, "~/"))
	}
	return path
}
