package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/placesearch/configs"
	"github.com/Aman-CERP/placesearch/internal/config"
)

func TestConfigInit_CreatesUserConfig(t *testing.T) {
	// Given: no user config
	env := newTestEnv(t)
	path := config.GetUserConfigPath()
	require.NoFileExists(t, path)

	// When: running config init
	out, err := env.run(t, "config", "init")

	// Then: the template is written privately
	require.NoError(t, err)
	assert.Contains(t, out, "Created configuration")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, configs.UserConfigTemplate, string(data))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigInit_ExistingWithoutForce(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.run(t, "config", "init")
	require.NoError(t, err)

	out, err := env.run(t, "config", "init")

	require.NoError(t, err)
	assert.Contains(t, out, "Configuration already exists")
	assert.Contains(t, out, "--force")
}

func TestConfigInit_ForceBacksUpAndKeepsValues(t *testing.T) {
	// Given: a user config with a custom value
	env := newTestEnv(t)
	path := config.GetUserConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("search:\n  default_limit: 4\n"), 0600))

	// When: forcing init
	out, err := env.run(t, "config", "init", "--force")

	// Then: a backup exists and the value survives the rewrite
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration rewritten")

	backups, err := config.ListBackups(path)
	require.NoError(t, err)
	require.Len(t, backups, 1)

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Search.DefaultLimit)
	assert.Equal(t, 1000, cfg.Cache.Capacity)
}

func TestConfigInit_Project(t *testing.T) {
	newTestEnv(t)
	dir := t.TempDir()

	_, err := execute(t, "--dir", dir, "config", "init", "--project")

	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, config.ProjectConfigFile))
	assert.NoFileExists(t, config.GetUserConfigPath())
}

func TestConfigShow_JSONMasksSecrets(t *testing.T) {
	// Given: a Mapbox token in the environment
	env := newTestEnv(t)
	t.Setenv("MAPBOX_ACCESS_TOKEN", "pk.secretvalue")

	// When: showing merged config as JSON
	out, err := env.run(t, "config", "show", "--json")
	require.NoError(t, err)

	// Then: project values appear and the token is masked
	var cfg config.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "pk.s****", cfg.Providers.Mapbox.AccessToken)
	assert.Equal(t, env.indexPath, cfg.Providers.Whoosh.IndexPath)
	assert.NotContains(t, out, "secretvalue")
}

func TestConfigShow_Sources(t *testing.T) {
	env := newTestEnv(t)

	t.Run("defaults", func(t *testing.T) {
		out, err := env.run(t, "config", "show", "--source", "defaults")

		require.NoError(t, err)
		assert.Contains(t, out, "defaults (hardcoded)")
		assert.Contains(t, out, "default_limit: 10")
	})

	t.Run("project", func(t *testing.T) {
		out, err := env.run(t, "config", "show", "--source", "project")

		require.NoError(t, err)
		assert.Contains(t, out, "project (")
		assert.Contains(t, out, "index_path: "+env.indexPath)
	})

	t.Run("user missing", func(t *testing.T) {
		out, err := env.run(t, "config", "show", "--source", "user")

		require.NoError(t, err)
		assert.Contains(t, out, "No user configuration file found")
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := env.run(t, "config", "show", "--source", "remote")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid source")
	})
}

func TestConfigPath(t *testing.T) {
	env := newTestEnv(t)

	out, err := env.run(t, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, config.GetUserConfigPath(), strings.TrimSpace(out))
}
