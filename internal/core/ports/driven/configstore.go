package driven

import "github.com/custodia-labs/sercha-rag/internal/core/domain"

// ConfigStore provides access to persisted settings.
// Implementations handle persistence (e.g., TOML files).
type ConfigStore interface {
	// Load reads settings from storage. Missing keys keep their defaults.
	Load() (domain.Settings, error)

	// Save persists settings to storage.
	Save(settings domain.Settings) error

	// Path returns the configuration file path.
	Path() string
}
