// # internal/core/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	content := `
[workspace]
roots = ["./project"]
source_roots = ["", "src/", "src"]

[exclude]
dirs = [".git"]
files = ["*_pb2.py"]

[analysis]
workers = 3

[rename]
check_conflicts = false

[watch]
debounce = "1s"

[log]
level = "DEBUG"
file = "logs/pyrefactor.log"
`
	path := filepath.Join(t.TempDir(), "pyrefactor.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, []string{"project"}, cfg.Workspace.Roots)
	assert.Equal(t, []string{"", "src"}, cfg.Workspace.SourceRoots)
	assert.Equal(t, []string{".git"}, cfg.Exclude.Dirs)
	assert.Equal(t, 3, cfg.Analysis.Workers)
	assert.False(t, cfg.ConflictChecks())
	assert.Equal(t, time.Second, cfg.Watch.Debounce)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "logs/pyrefactor.log", cfg.Log.File)
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, []string{"."}, cfg.Workspace.Roots)
	assert.Equal(t, []string{""}, cfg.Workspace.SourceRoots)
	assert.Contains(t, cfg.Exclude.Dirs, "__pycache__")
	assert.Equal(t, runtime.NumCPU(), cfg.Analysis.Workers)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	assert.True(t, cfg.ConflictChecks())
	assert.Equal(t, 5*time.Second, cfg.DB.BusyTimeout)
	require.NoError(t, ValidateAfterLoad(cfg))
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad version", content: "version = 3"},
		{name: "bad level", content: "[log]\nlevel = \"loud\""},
		{name: "bad glob", content: "[exclude]\nfiles = [\"[\"]"},
		{name: "escaping source root", content: "[workspace]\nsource_roots = [\"../lib\"]"},
		{name: "too many workers", content: "[analysis]\nworkers = 1000"},
		{name: "tiny file limit", content: "[analysis]\nmax_file_size = 10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content)
			assert.Error(t, err)
		})
	}
}
