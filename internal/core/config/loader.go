package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and validates a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(data))
}

// LoadOrDefault loads path when it exists and falls back to defaults otherwise.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		path = DefaultFile
	}
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func Parse(data string) (*Config, error) {
	var cfg Config
	if _, err := toml.Decode(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalizeWorkspace(&cfg)
	normalizeLog(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validateWorkspace(&cfg); err != nil {
		return nil, err
	}
	if err := validateExclude(&cfg); err != nil {
		return nil, err
	}
	if err := validateAnalysis(&cfg); err != nil {
		return nil, err
	}
	if err := validateWatch(&cfg); err != nil {
		return nil, err
	}
	if err := validateLog(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	normalizeWorkspace(cfg)
	normalizeLog(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if len(cfg.Workspace.Roots) == 0 {
		cfg.Workspace.Roots = []string{"."}
	}
	if len(cfg.Workspace.SourceRoots) == 0 {
		cfg.Workspace.SourceRoots = []string{""}
	}
	if cfg.Exclude.Dirs == nil {
		cfg.Exclude.Dirs = []string{".git", "__pycache__", ".venv", "venv", ".tox", "node_modules"}
	}

	if cfg.Analysis.Workers <= 0 {
		cfg.Analysis.Workers = runtime.NumCPU()
	}
	if cfg.Analysis.MaxFileSize <= 0 {
		cfg.Analysis.MaxFileSize = 4 << 20
	}
	if cfg.Analysis.CacheEntries <= 0 {
		cfg.Analysis.CacheEntries = 2048
	}

	// Default debounce if not set.
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
	if cfg.Watch.RebuildRate <= 0 {
		cfg.Watch.RebuildRate = 1
	}
	if cfg.Watch.RebuildBurst <= 0 {
		cfg.Watch.RebuildBurst = 1
	}

	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.MaxSizeMB <= 0 {
		cfg.Log.MaxSizeMB = 50
	}
	if cfg.Log.MaxBackups <= 0 {
		cfg.Log.MaxBackups = 3
	}
	if cfg.Log.MaxAgeDays <= 0 {
		cfg.Log.MaxAgeDays = 28
	}

	if strings.TrimSpace(cfg.Tracing.ServiceName) == "" {
		cfg.Tracing.ServiceName = "pyrefactor"
	}
	if cfg.DB.BusyTimeout <= 0 {
		cfg.DB.BusyTimeout = 5 * time.Second
	}
}

func normalizeWorkspace(cfg *Config) {
	for i, root := range cfg.Workspace.Roots {
		cfg.Workspace.Roots[i] = filepath.Clean(strings.TrimSpace(root))
	}
	seen := make(map[string]bool, len(cfg.Workspace.SourceRoots))
	roots := cfg.Workspace.SourceRoots[:0]
	for _, root := range cfg.Workspace.SourceRoots {
		root = strings.Trim(filepath.ToSlash(strings.TrimSpace(root)), "/")
		if root == "." {
			root = ""
		}
		if seen[root] {
			continue
		}
		seen[root] = true
		roots = append(roots, root)
	}
	cfg.Workspace.SourceRoots = roots
}

func normalizeLog(cfg *Config) {
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
}

// ValidateAfterLoad re-runs validation on a config built in code.
func ValidateAfterLoad(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	for _, validate := range []func(*Config) error{
		validateVersion, validateWorkspace, validateExclude, validateAnalysis, validateWatch, validateLog,
	} {
		if err := validate(cfg); err != nil {
			return err
		}
	}
	return nil
}
