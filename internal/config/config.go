package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/placesearch/pkg/place"
)

// Project config file names, in lookup order.
const (
	ProjectConfigFile    = ".placesearch.yaml"
	ProjectConfigFileAlt = ".placesearch.yml"
)

// Transports accepted by the serve command.
const (
	TransportHTTP  = "http"
	TransportStdio = "stdio"
)

// Config represents the complete placesearch configuration.
type Config struct {
	Version   int             `yaml:"version" json:"version"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Providers ProvidersConfig `yaml:"providers" json:"providers"`
	Storage   StorageConfig   `yaml:"storage" json:"storage"`
	Server    ServerConfig    `yaml:"server" json:"server"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// SearchConfig configures the fan-out orchestrator.
type SearchConfig struct {
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	MaxLimit     int `yaml:"max_limit" json:"max_limit"`

	// ProviderTimeout bounds each provider call independently.
	ProviderTimeout time.Duration `yaml:"provider_timeout" json:"provider_timeout"`

	// Priority orders sources for merging. Earlier sources win duplicates.
	Priority []string `yaml:"priority" json:"priority"`

	// DedupToleranceMeters is how close two same-named places must be to
	// count as one.
	DedupToleranceMeters float64 `yaml:"dedup_tolerance_meters" json:"dedup_tolerance_meters"`

	StorageTimeout      time.Duration `yaml:"storage_timeout" json:"storage_timeout"`
	CircuitMaxFailures  int           `yaml:"circuit_max_failures" json:"circuit_max_failures"`
	CircuitResetTimeout time.Duration `yaml:"circuit_reset_timeout" json:"circuit_reset_timeout"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	Capacity int           `yaml:"capacity" json:"capacity"`
	TTL      time.Duration `yaml:"ttl" json:"ttl"`

	// SweepInterval is how often the server evicts expired entries.
	// Zero disables the sweeper.
	SweepInterval time.Duration `yaml:"sweep_interval" json:"sweep_interval"`
}

// ProvidersConfig configures each place provider.
type ProvidersConfig struct {
	Whoosh       WhooshConfig       `yaml:"whoosh" json:"whoosh"`
	Mapbox       MapboxConfig       `yaml:"mapbox" json:"mapbox"`
	GooglePlaces GooglePlacesConfig `yaml:"google_places" json:"google_places"`
}

// WhooshConfig configures the local index provider.
type WhooshConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	IndexPath string `yaml:"index_path" json:"index_path"`
}

// MapboxConfig configures the Mapbox provider.
type MapboxConfig struct {
	Enabled     bool    `yaml:"enabled" json:"enabled"`
	AccessToken string  `yaml:"access_token" json:"access_token"`
	BaseURL     string  `yaml:"base_url" json:"base_url"`
	Country     string  `yaml:"country" json:"country"`
	Language    string  `yaml:"language" json:"language"`
	RateLimit   float64 `yaml:"rate_limit" json:"rate_limit"`
}

// GooglePlacesConfig configures the Google Places provider.
type GooglePlacesConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	APIKey       string  `yaml:"api_key" json:"api_key"`
	BaseURL      string  `yaml:"base_url" json:"base_url"`
	Language     string  `yaml:"language" json:"language"`
	RadiusMeters int     `yaml:"radius_meters" json:"radius_meters"`
	RateLimit    float64 `yaml:"rate_limit" json:"rate_limit"`
}

// StorageConfig configures the place storage sink.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// ServerConfig configures the serve command.
type ServerConfig struct {
	Transport   string   `yaml:"transport" json:"transport"`
	Addr        string   `yaml:"addr" json:"addr"`
	CORSOrigins []string `yaml:"cors_origins" json:"cors_origins"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Search: SearchConfig{
			DefaultLimit:         10,
			MaxLimit:             50,
			ProviderTimeout:      3 * time.Second,
			Priority:             []string{string(place.SourceGooglePlaces), string(place.SourceMapbox), string(place.SourceWhoosh)},
			DedupToleranceMeters: 10,
			StorageTimeout:       10 * time.Second,
			CircuitMaxFailures:   5,
			CircuitResetTimeout:  30 * time.Second,
		},
		Cache: CacheConfig{
			Capacity:      1000,
			TTL:           time.Hour,
			SweepInterval: time.Minute,
		},
		Providers: ProvidersConfig{
			Whoosh: WhooshConfig{
				Enabled:   true,
				IndexPath: filepath.Join(DataDir(), "index"),
			},
			Mapbox: MapboxConfig{
				Enabled:   true,
				Country:   "US",
				Language:  "en",
				RateLimit: 10,
			},
			GooglePlaces: GooglePlacesConfig{
				Enabled:      true,
				Language:     "en",
				RadiusMeters: 5000,
				RateLimit:    10,
			},
		},
		Storage: StorageConfig{
			Enabled: false,
			Path:    filepath.Join(DataDir(), "places.db"),
		},
		Server: ServerConfig{
			Transport:   TransportHTTP,
			Addr:        "127.0.0.1:8080",
			CORSOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DataDir returns the directory for the local index, database and logs.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".placesearch")
	}
	return filepath.Join(home, ".placesearch")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/placesearch/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/placesearch/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "placesearch", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "placesearch", "config.yaml")
	}
	return filepath.Join(home, ".config", "placesearch", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for the given working directory.
// It applies configuration in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/placesearch/config.yaml)
//  3. Project config (.placesearch.yaml in dir)
//  4. Environment variables (PLACESEARCH_*, MAPBOX_ACCESS_TOKEN,
//     GOOGLE_PLACES_API_KEY), after loading dir/.env
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := GetUserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	if err := LoadDotEnv(dir); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// LoadFile loads a single YAML file over the defaults, without the user
// config, environment overrides or validation.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ProjectConfigPath returns the project config file in dir, or "" if
// there is none.
func ProjectConfigPath(dir string) string {
	for _, name := range []string{ProjectConfigFile, ProjectConfigFileAlt} {
		if path := filepath.Join(dir, name); fileExists(path) {
			return path
		}
	}
	return ""
}

// LoadDotEnv loads dir/.env into the process environment. Variables that
// are already set win. A missing file is not an error.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if !fileExists(path) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// loadFromFile loads the project config from dir, if present.
func (c *Config) loadFromFile(dir string) error {
	if path := ProjectConfigPath(dir); path != "" {
		return c.loadYAML(path)
	}
	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// envOverride applies one environment variable.
type envOverride struct {
	name  string
	apply func(c *Config, v string) error
}

var envOverrides = []envOverride{
	{"MAPBOX_ACCESS_TOKEN", func(c *Config, v string) error {
		c.Providers.Mapbox.AccessToken = v
		return nil
	}},
	{"GOOGLE_PLACES_API_KEY", func(c *Config, v string) error {
		c.Providers.GooglePlaces.APIKey = v
		return nil
	}},
	{"PLACESEARCH_LOG_LEVEL", func(c *Config, v string) error {
		c.Logging.Level = v
		return nil
	}},
	{"PLACESEARCH_TRANSPORT", func(c *Config, v string) error {
		c.Server.Transport = v
		return nil
	}},
	{"PLACESEARCH_ADDR", func(c *Config, v string) error {
		c.Server.Addr = v
		return nil
	}},
	{"PLACESEARCH_INDEX_PATH", func(c *Config, v string) error {
		c.Providers.Whoosh.IndexPath = v
		return nil
	}},
	{"PLACESEARCH_STORAGE_PATH", func(c *Config, v string) error {
		c.Storage.Path = v
		return nil
	}},
	{"PLACESEARCH_STORAGE_ENABLED", func(c *Config, v string) (err error) {
		c.Storage.Enabled, err = strconv.ParseBool(v)
		return err
	}},
	{"PLACESEARCH_DEFAULT_LIMIT", func(c *Config, v string) (err error) {
		c.Search.DefaultLimit, err = strconv.Atoi(v)
		return err
	}},
	{"PLACESEARCH_PROVIDER_TIMEOUT", func(c *Config, v string) (err error) {
		c.Search.ProviderTimeout, err = time.ParseDuration(v)
		return err
	}},
	{"PLACESEARCH_CACHE_TTL", func(c *Config, v string) (err error) {
		c.Cache.TTL, err = time.ParseDuration(v)
		return err
	}},
	{"PLACESEARCH_CACHE_CAPACITY", func(c *Config, v string) (err error) {
		c.Cache.Capacity, err = strconv.Atoi(v)
		return err
	}},
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	for _, o := range envOverrides {
		v := strings.TrimSpace(os.Getenv(o.name))
		if v == "" {
			continue
		}
		if err := o.apply(c, v); err != nil {
			return fmt.Errorf("invalid %s=%q: %w", o.name, v, err)
		}
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Search),
		validation.Field(&c.Cache),
		validation.Field(&c.Server),
		validation.Field(&c.Logging),
	)
}

// Validate checks search settings.
func (s SearchConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.DefaultLimit, validation.Required, validation.Min(1), validation.Max(s.MaxLimit)),
		validation.Field(&s.MaxLimit, validation.Required, validation.Min(1)),
		validation.Field(&s.ProviderTimeout, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&s.Priority, validation.Each(validation.By(knownSource))),
		validation.Field(&s.DedupToleranceMeters, validation.Min(0.0)),
		validation.Field(&s.StorageTimeout, validation.Min(time.Duration(0))),
		validation.Field(&s.CircuitMaxFailures, validation.Min(0)),
		validation.Field(&s.CircuitResetTimeout, validation.Min(time.Duration(0))),
	)
}

// Validate checks cache settings.
func (c CacheConfig) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Capacity, validation.Required, validation.Min(1)),
		validation.Field(&c.TTL, validation.Required, validation.Min(time.Second)),
		validation.Field(&c.SweepInterval, validation.Min(time.Duration(0))),
	)
}

// Validate checks server settings.
func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Transport, validation.Required, validation.In(TransportHTTP, TransportStdio)),
		validation.Field(&s.Addr, validation.When(s.Transport == TransportHTTP, validation.Required)),
	)
}

// Validate checks logging settings.
func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.Required, validation.In("debug", "info", "warn", "error")),
	)
}

func knownSource(value interface{}) error {
	s, _ := value.(string)
	if _, err := place.ParseSource(s); err != nil {
		return err
	}
	return nil
}

// PrioritySources parses Search.Priority. Call after Validate.
func (c *Config) PrioritySources() []place.Source {
	sources := make([]place.Source, 0, len(c.Search.Priority))
	for _, s := range c.Search.Priority {
		if src, err := place.ParseSource(s); err == nil {
			sources = append(sources, src)
		}
	}
	return sources
}

// Redacted returns a copy with secrets masked, for display.
func (c *Config) Redacted() *Config {
	out := *c
	out.Search.Priority = append([]string(nil), c.Search.Priority...)
	out.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	out.Providers.Mapbox.AccessToken = mask(c.Providers.Mapbox.AccessToken)
	out.Providers.GooglePlaces.APIKey = mask(c.Providers.GooglePlaces.APIKey)
	return &out
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 8 {
		return "****"
	}
	return secret[:4] + "****"
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
