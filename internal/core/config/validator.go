package config

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validateWorkspace(cfg *Config) error {
	for i, root := range cfg.Workspace.Roots {
		if strings.TrimSpace(root) == "" {
			return fmt.Errorf("workspace.roots[%d] must not be empty", i)
		}
	}
	for i, root := range cfg.Workspace.SourceRoots {
		if strings.HasPrefix(root, "..") {
			return fmt.Errorf("workspace.source_roots[%d] %q escapes the workspace", i, root)
		}
	}
	return nil
}

func validateExclude(cfg *Config) error {
	for _, pattern := range cfg.Exclude.Files {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("exclude.files pattern %q: %w", pattern, err)
		}
	}
	for _, dir := range cfg.Exclude.Dirs {
		if strings.TrimSpace(dir) == "" {
			return fmt.Errorf("exclude.dirs must not contain empty entries")
		}
	}
	return nil
}

func validateAnalysis(cfg *Config) error {
	if cfg.Analysis.Workers > 256 {
		return fmt.Errorf("analysis.workers must be <= 256, got %d", cfg.Analysis.Workers)
	}
	if cfg.Analysis.MaxFileSize < 1024 {
		return fmt.Errorf("analysis.max_file_size must be >= 1024 bytes, got %d", cfg.Analysis.MaxFileSize)
	}
	return nil
}

func validateWatch(cfg *Config) error {
	if cfg.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must be >= 0")
	}
	if cfg.Watch.RebuildBurst < 1 {
		return fmt.Errorf("watch.rebuild_burst must be >= 1")
	}
	return nil
}

func validateLog(cfg *Config) error {
	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error; got %q", cfg.Log.Level)
	}
}
