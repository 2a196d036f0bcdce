package file

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// Ensure ConfigStore implements the interface.
var _ driven.ConfigStore = (*ConfigStore)(nil)

// FileName is the settings file inside the config directory.
const FileName = "config.toml"

// ConfigStore is a file-based implementation of driven.ConfigStore using TOML.
// Configuration is stored in a TOML file within the sercha-rag config directory.
type ConfigStore struct {
	mu       sync.Mutex
	filePath string
}

// fileConfig is the on-disk layout of the settings.
type fileConfig struct {
	Chunker   chunkerSection   `toml:"chunker"`
	Embedding embeddingSection `toml:"embedding"`
	Store     storeSection     `toml:"store"`
	Search    searchSection    `toml:"search"`
}

type chunkerSection struct {
	MaxTokens int `toml:"max_tokens"`
}

type embeddingSection struct {
	Provider          string  `toml:"provider"`
	Model             string  `toml:"model"`
	BaseURL           string  `toml:"base_url,omitempty"`
	APIKey            string  `toml:"api_key,omitempty"`
	Dimensions        int     `toml:"dimensions"`
	BatchSize         int     `toml:"batch_size"`
	CacheSize         int     `toml:"cache_size"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
}

type storeSection struct {
	DataDir       string `toml:"data_dir,omitempty"`
	ReembedPolicy string `toml:"reembed_policy"`
	Concurrency   int    `toml:"concurrency"`
}

type searchSection struct {
	DefaultLimit     int     `toml:"default_limit"`
	DefaultThreshold float64 `toml:"default_threshold"`
	Index            string  `toml:"index"`
}

// NewConfigStore creates a new TOML-based config store.
// If configDir is empty, defaults to ~/.sercha-rag/config.toml.
func NewConfigStore(configDir string) (*ConfigStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".sercha-rag")
	}

	// Ensure directory exists
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &ConfigStore{
		filePath: filepath.Join(configDir, FileName),
	}, nil
}

// Load reads settings from the TOML file. Keys absent from the file keep
// their defaults; a missing file yields the defaults.
func (s *ConfigStore) Load() (domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := toFile(domain.DefaultSettings())

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// No config file yet - that's fine, use defaults
			return fromFile(cfg), nil
		}
		return domain.Settings{}, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return domain.Settings{}, fmt.Errorf("%w: parsing %s: %w", domain.ErrInvalidInput, s.filePath, err)
	}

	settings := fromFile(cfg)
	if err := settings.Validate(); err != nil {
		return domain.Settings{}, fmt.Errorf("%s: %w", s.filePath, err)
	}
	return settings, nil
}

// Save validates settings and writes them to the TOML file.
func (s *ConfigStore) Save(settings domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(toFile(settings))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Write with restricted permissions
	return os.WriteFile(s.filePath, data, 0600)
}

// Path returns the configuration file path.
func (s *ConfigStore) Path() string {
	return s.filePath
}

func toFile(s domain.Settings) fileConfig {
	return fileConfig{
		Chunker: chunkerSection{MaxTokens: s.Chunker.MaxTokens},
		Embedding: embeddingSection{
			Provider:          string(s.Embedding.Provider),
			Model:             s.Embedding.Model,
			BaseURL:           s.Embedding.BaseURL,
			APIKey:            s.Embedding.APIKey,
			Dimensions:        s.Embedding.Dimensions,
			BatchSize:         s.Embedding.BatchSize,
			CacheSize:         s.Embedding.CacheSize,
			RequestsPerSecond: s.Embedding.RequestsPerSecond,
			TimeoutSeconds:    s.Embedding.TimeoutSeconds,
		},
		Store: storeSection{
			DataDir:       s.Store.DataDir,
			ReembedPolicy: string(s.Store.ReembedPolicy),
			Concurrency:   s.Store.Concurrency,
		},
		Search: searchSection{
			DefaultLimit:     s.Search.DefaultLimit,
			DefaultThreshold: s.Search.DefaultThreshold,
			Index:            string(s.Search.Index),
		},
	}
}

func fromFile(c fileConfig) domain.Settings {
	return domain.Settings{
		Chunker: domain.ChunkerSettings{MaxTokens: c.Chunker.MaxTokens},
		Embedding: domain.EmbeddingSettings{
			Provider:          domain.AIProvider(c.Embedding.Provider),
			Model:             c.Embedding.Model,
			BaseURL:           c.Embedding.BaseURL,
			APIKey:            c.Embedding.APIKey,
			Dimensions:        c.Embedding.Dimensions,
			BatchSize:         c.Embedding.BatchSize,
			CacheSize:         c.Embedding.CacheSize,
			RequestsPerSecond: c.Embedding.RequestsPerSecond,
			TimeoutSeconds:    c.Embedding.TimeoutSeconds,
		},
		Store: domain.StoreSettings{
			DataDir:       c.Store.DataDir,
			ReembedPolicy: domain.ReembedPolicy(c.Store.ReembedPolicy),
			Concurrency:   c.Store.Concurrency,
		},
		Search: domain.SearchSettings{
			DefaultLimit:     c.Search.DefaultLimit,
			DefaultThreshold: c.Search.DefaultThreshold,
			Index:            domain.IndexKind(c.Search.Index),
		},
	}
}
