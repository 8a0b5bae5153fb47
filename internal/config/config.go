// Package config provides configuration loading and structs for the Local-RAG server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	LLM       LLMConfig       `yaml:"llm"`
	Chat      ChatConfig      `yaml:"chat"`
	Watch     WatchConfig     `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds data directories and index locations.
type StorageConfig struct {
	DocumentsDir   string `yaml:"documents_dir"`
	ProcessedDir   string `yaml:"processed_dir"`
	SummariesDir   string `yaml:"summaries_dir"`
	VectorBackend  string `yaml:"vector_backend"` // memory, bolt, or chroma
	BoltPath       string `yaml:"bolt_path"`
	ChromaURL      string `yaml:"chroma_url"`
	Collection     string `yaml:"collection"`
	BleveIndexPath string `yaml:"bleve_index_path"`
	ChatDBPath     string `yaml:"chat_db_path"`
}

// EmbeddingConfig holds Ollama embedding settings.
type EmbeddingConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Model      string        `yaml:"model"`
	Dimensions int           `yaml:"dimensions"`
	CacheSize  int           `yaml:"cache_size"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ChunkingConfig holds text chunking settings, in tokens.
type ChunkingConfig struct {
	TargetTokens  int `yaml:"target_tokens"`
	OverlapTokens int `yaml:"overlap_tokens"`
	MinTokens     int `yaml:"min_tokens"`
	BatchSize     int `yaml:"batch_size"`
}

// RetrievalConfig holds query-time settings. Threshold is the minimum
// similarity a chunk must reach to be returned; leaving it unset selects a
// small default floor, a negative value disables filtering entirely.
type RetrievalConfig struct {
	TopK      int     `yaml:"top_k"`
	Threshold float64 `yaml:"threshold"`
	Rerank    bool    `yaml:"rerank"`
}

// LLMConfig holds answer generation settings.
type LLMConfig struct {
	Enabled     bool    `yaml:"enabled"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	// Condense summarizes extracted text through the LLM before chunking.
	Condense bool `yaml:"condense"`
}

// ChatConfig holds chat session settings.
type ChatConfig struct {
	Enabled       bool `yaml:"enabled"`
	RetentionDays int  `yaml:"retention_days"`
}

// WatchConfig holds documents directory watch settings.
type WatchConfig struct {
	Enabled bool `yaml:"enabled"`
	// DebounceMillis delays ingest after a file event so partially
	// written files settle first.
	DebounceMillis int `yaml:"debounce_millis"`
}

// Load reads and parses the config file at path, expands paths, applies
// environment overrides, and fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)
	expandPaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns a config without reading a file, for CLI use when no
// config file exists. Paths are resolved relative to baseDir.
func Default(baseDir string) *Config {
	cfg := &Config{}
	ApplyEnv(cfg)
	ApplyDefaults(cfg)
	expandPaths(cfg, baseDir)
	return cfg
}

// Save writes the config to path.
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

// ApplyEnv overrides service endpoints from the environment, so a .env
// file can point at non-default Ollama, Chroma, or LLM servers.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}
	if v := os.Getenv("CHROMA_URL"); v != "" {
		cfg.Storage.ChromaURL = v
	}
	if v := os.Getenv("VECTOR_BACKEND"); v != "" {
		cfg.Storage.VectorBackend = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
}

func expandPaths(cfg *Config, baseDir string) {
	cfg.Storage.DocumentsDir = expandPath(cfg.Storage.DocumentsDir, baseDir)
	cfg.Storage.ProcessedDir = expandPath(cfg.Storage.ProcessedDir, baseDir)
	cfg.Storage.SummariesDir = expandPath(cfg.Storage.SummariesDir, baseDir)
	cfg.Storage.BoltPath = expandPath(cfg.Storage.BoltPath, baseDir)
	cfg.Storage.BleveIndexPath = expandPath(cfg.Storage.BleveIndexPath, baseDir)
	cfg.Storage.ChatDBPath = expandPath(cfg.Storage.ChatDBPath, baseDir)
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to baseDir; other relative paths are relative to the home
// directory.
func expandPath(path string, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(baseDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
