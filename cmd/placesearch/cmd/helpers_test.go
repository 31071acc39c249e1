package cmd

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// testEnv is an isolated home, user config and project directory.
type testEnv struct {
	dir       string
	indexPath string
	dbPath    string
}

// newTestEnv isolates HOME and XDG_CONFIG_HOME, clears provider keys and
// writes a project config with only the local index enabled.
func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
	for _, name := range []string{
		"MAPBOX_ACCESS_TOKEN", "GOOGLE_PLACES_API_KEY",
		"PLACESEARCH_INDEX_PATH", "PLACESEARCH_STORAGE_PATH", "PLACESEARCH_STORAGE_ENABLED",
		"PLACESEARCH_LOG_LEVEL", "PLACESEARCH_TRANSPORT", "PLACESEARCH_ADDR",
	} {
		t.Setenv(name, "")
	}

	env := testEnv{
		dir:       t.TempDir(),
		indexPath: filepath.Join(home, "index"),
		dbPath:    filepath.Join(home, "places.db"),
	}
	env.writeProjectConfig(t, `
providers:
  whoosh:
    enabled: true
    index_path: `+env.indexPath+`
  mapbox:
    enabled: false
  google_places:
    enabled: false
storage:
  path: `+env.dbPath+`
`)
	return env
}

func (e testEnv) writeProjectConfig(t *testing.T, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, ".placesearch.yaml"), []byte(content), 0644))
}

func (e testEnv) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(e.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// run executes the root command with --dir pointing at the environment.
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return execute(t, append([]string{"--dir", e.dir}, args...)...)
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	buf := &bytes.Buffer{}
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

const seedYAML = `
- id: fairmount
  name: Fairmount Bagel
  address: 74 Av. Fairmount O, Montreal
  latitude: 45.5229
  longitude: -73.5946
  category: bakery
- id: stviateur
  name: St-Viateur Bagel
  address: 263 Rue Saint-Viateur O, Montreal
  latitude: 45.5226
  longitude: -73.6024
- name: Jean-Talon Market
  address: 7070 Av. Henri-Julien, Montreal
`

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
