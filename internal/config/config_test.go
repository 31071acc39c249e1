package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/placesearch/pkg/place"
)

// isolate points user config at an empty directory and clears overrides.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	for _, o := range envOverrides {
		t.Setenv(o.name, "")
	}
}

// unset removes name for the duration of the test.
func unset(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestNewConfig_DefaultsAreValid(t *testing.T) {
	cfg := NewConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 3*time.Second, cfg.Search.ProviderTimeout)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 1000, cfg.Cache.Capacity)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, []place.Source{place.SourceGooglePlaces, place.SourceMapbox, place.SourceWhoosh},
		cfg.PrioritySources())
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig().Search, cfg.Search)
}

func TestLoad_ProjectConfigOverridesUserConfig(t *testing.T) {
	// Given: user config and project config that disagree
	isolate(t)
	writeFile(t, GetUserConfigPath(), `
search:
  default_limit: 7
  provider_timeout: 2s
cache:
  ttl: 30m
`)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigFile), `
search:
  default_limit: 5
providers:
  mapbox:
    enabled: false
`)

	// When: loading
	cfg, err := Load(dir)
	require.NoError(t, err)

	// Then: project wins, user fills the rest, defaults remain elsewhere
	assert.Equal(t, 5, cfg.Search.DefaultLimit)
	assert.Equal(t, 2*time.Second, cfg.Search.ProviderTimeout)
	assert.Equal(t, 30*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.Providers.Mapbox.Enabled)
	assert.True(t, cfg.Providers.GooglePlaces.Enabled)
	assert.Equal(t, 50, cfg.Search.MaxLimit)
}

func TestLoad_YmlFallback(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigFileAlt), "search:\n  default_limit: 3\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Search.DefaultLimit)
}

func TestLoad_EnvOverridesFiles(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigFile), "cache:\n  ttl: 10m\n")
	t.Setenv("PLACESEARCH_CACHE_TTL", "90s")
	t.Setenv("PLACESEARCH_STORAGE_ENABLED", "true")
	t.Setenv("MAPBOX_ACCESS_TOKEN", "pk.env")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
	assert.True(t, cfg.Storage.Enabled)
	assert.Equal(t, "pk.env", cfg.Providers.Mapbox.AccessToken)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	isolate(t)
	t.Setenv("PLACESEARCH_PROVIDER_TIMEOUT", "soon")

	_, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLACESEARCH_PROVIDER_TIMEOUT")
}

func TestLoad_DotEnvProvidesKeys(t *testing.T) {
	// Given: a .env file and no key in the environment
	isolate(t)
	unset(t, "GOOGLE_PLACES_API_KEY")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "GOOGLE_PLACES_API_KEY=from-dotenv\n")

	// When: loading
	cfg, err := Load(dir)

	// Then: the key is picked up
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Providers.GooglePlaces.APIKey)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("GOOGLE_PLACES_API_KEY", "from-env")
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "GOOGLE_PLACES_API_KEY=from-dotenv\n")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Providers.GooglePlaces.APIKey)
}

func TestLoad_MalformedYAML(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ProjectConfigFile), "search: [unclosed\n")

	_, err := Load(dir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"default above max", func(c *Config) { c.Search.DefaultLimit = 100 }},
		{"zero timeout", func(c *Config) { c.Search.ProviderTimeout = 0 }},
		{"unknown priority source", func(c *Config) { c.Search.Priority = []string{"yelp"} }},
		{"negative tolerance", func(c *Config) { c.Search.DedupToleranceMeters = -1 }},
		{"zero cache capacity", func(c *Config) { c.Cache.Capacity = 0 }},
		{"sub-second ttl", func(c *Config) { c.Cache.TTL = time.Millisecond }},
		{"unknown transport", func(c *Config) { c.Server.Transport = "sse" }},
		{"http without addr", func(c *Config) { c.Server.Addr = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_StdioNeedsNoAddr(t *testing.T) {
	cfg := NewConfig()
	cfg.Server.Transport = TransportStdio
	cfg.Server.Addr = ""

	assert.NoError(t, cfg.Validate())
}

func TestRedacted_MasksSecrets(t *testing.T) {
	cfg := NewConfig()
	cfg.Providers.Mapbox.AccessToken = "pk.eyJ1IjoiYWJjIn0"
	cfg.Providers.GooglePlaces.APIKey = "short"

	r := cfg.Redacted()

	assert.Equal(t, "pk.e****", r.Providers.Mapbox.AccessToken)
	assert.Equal(t, "****", r.Providers.GooglePlaces.APIKey)
	assert.Equal(t, "pk.eyJ1IjoiYWJjIn0", cfg.Providers.Mapbox.AccessToken)
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	cfg := NewConfig()
	cfg.Search.DefaultLimit = 4
	cfg.Cache.TTL = 15 * time.Minute

	require.NoError(t, cfg.WriteYAML(filepath.Join(dir, ProjectConfigFile)))
	loaded, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, 4, loaded.Search.DefaultLimit)
	assert.Equal(t, 15*time.Minute, loaded.Cache.TTL)
}

func TestGetUserConfigPath_XDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	assert.Equal(t, "/tmp/xdg/placesearch/config.yaml", GetUserConfigPath())
	assert.Equal(t, "/tmp/xdg/placesearch", GetUserConfigDir())
}

func TestLoadFile_OnlyThatFile(t *testing.T) {
	// Given: a user config and a separate file
	isolate(t)
	writeFile(t, GetUserConfigPath(), "search:\n  default_limit: 7\n")
	path := filepath.Join(t.TempDir(), "other.yaml")
	writeFile(t, path, "cache:\n  capacity: 12\n")

	// When: loading just the file
	cfg, err := LoadFile(path)

	// Then: the file applies over defaults and the user config is ignored
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Cache.Capacity)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
}

func TestProjectConfigPath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", ProjectConfigPath(dir))

	writeFile(t, filepath.Join(dir, ProjectConfigFileAlt), "version: 1\n")
	assert.Equal(t, filepath.Join(dir, ProjectConfigFileAlt), ProjectConfigPath(dir))

	writeFile(t, filepath.Join(dir, ProjectConfigFile), "version: 1\n")
	assert.Equal(t, filepath.Join(dir, ProjectConfigFile), ProjectConfigPath(dir))
}
