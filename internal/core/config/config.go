package config

import (
	"time"
)

const DefaultFile = "pyrefactor.toml"

type Config struct {
	Version   int       `toml:"version"`
	Workspace Workspace `toml:"workspace"`
	Exclude   Exclude   `toml:"exclude"`
	Analysis  Analysis  `toml:"analysis"`
	Rename    Rename    `toml:"rename"`
	Watch     Watch     `toml:"watch"`
	Log       Log       `toml:"log"`
	Metrics   Metrics   `toml:"metrics"`
	Tracing   Tracing   `toml:"tracing"`
	DB        Database  `toml:"db"`
}

// Workspace lists the directories scanned for .py files. SourceRoots are
// prefixes (relative to each root) that import paths are resolved against,
// tried in order; "" is the workspace root itself.
type Workspace struct {
	Roots       []string `toml:"roots"`
	SourceRoots []string `toml:"source_roots"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Analysis struct {
	Workers      int   `toml:"workers"`
	MaxFileSize  int64 `toml:"max_file_size"`
	CacheEntries int   `toml:"cache_entries"`
}

type Rename struct {
	CheckConflicts *bool `toml:"check_conflicts"`
}

type Watch struct {
	Debounce     time.Duration `toml:"debounce"`
	RebuildRate  float64       `toml:"rebuild_rate"`
	RebuildBurst int           `toml:"rebuild_burst"`
}

type Log struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days"`
	Compress   bool   `toml:"compress"`
}

type Metrics struct {
	Address string `toml:"address"`
}

type Tracing struct {
	OTLPEndpoint string `toml:"otlp_endpoint"`
	Insecure     bool   `toml:"insecure"`
	ServiceName  string `toml:"service_name"`
}

type Database struct {
	Path        string        `toml:"path"`
	BusyTimeout time.Duration `toml:"busy_timeout"`
}

// ConflictChecks reports whether rename refuses names already bound in the
// target's scope.
func (c *Config) ConflictChecks() bool {
	return c.Rename.CheckConflicts == nil || *c.Rename.CheckConflicts
}
