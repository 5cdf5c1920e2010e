package driving

import "github.com/custodia-labs/groundwork/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with defaults applied.
	Get() (*domain.AppSettings, error)

	// Set validates and stores a single setting by key.
	Set(key, value string) error

	// Keys lists the recognised setting keys in display order.
	Keys() []string

	// Value returns the effective value of a setting key as text.
	Value(key string) (string, error)

	// Validate checks the current settings for consistency.
	Validate() error

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
