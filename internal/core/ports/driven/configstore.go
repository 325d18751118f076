package driven

import "time"

// ConfigStore provides access to application configuration.
// Keys use dot notation ("embedding.provider"). Implementations handle
// persistence (e.g., TOML files) and type conversion.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// GetString retrieves a string configuration value.
	// Returns empty string if key doesn't exist or isn't a string.
	GetString(key string) string

	// GetInt retrieves an integer configuration value.
	// Numeric strings are parsed. Returns 0 if missing or not numeric.
	GetInt(key string) int

	// GetFloat retrieves a floating point configuration value.
	// Integers and numeric strings are converted. Returns 0 if missing.
	GetFloat(key string) float64

	// GetBool retrieves a boolean configuration value.
	// Returns false if key doesn't exist or isn't a boolean.
	GetBool(key string) bool

	// GetDuration parses a duration string such as "5m".
	// Returns 0 if missing or malformed.
	GetDuration(key string) time.Duration

	// Keys returns every key, sorted.
	Keys() []string

	// Set stores a configuration value.
	// The value is persisted immediately.
	Set(key string, value any) error

	// Save persists the current configuration to storage.
	Save() error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path.
	Path() string
}
