// Package config provides configuration management for the sqllineage CLI.
//
// Values are layered with koanf, lowest to highest precedence: built-in
// defaults, sqllineage.yaml, SQLLINEAGE_ environment variables and
// explicitly set command-line flags.
package config

import (
	"github.com/shaweiguo/datahub/pkg/normalize"
)

// Config holds all CLI configuration options.
type Config struct {
	Strategy  string          `koanf:"strategy"`
	Output    string          `koanf:"output"`
	Verbose   bool            `koanf:"verbose"`
	LogLevel  string          `koanf:"log_level"`
	DBMS      string          `koanf:"dbms"`
	Normalize NormalizeConfig `koanf:"normalize"`
	Cache     CacheConfig     `koanf:"cache"`
	Batch     BatchConfig     `koanf:"batch"`

	// ConfigFile is the file the configuration was read from, if any.
	ConfigFile string `koanf:"-"`
}

// NormalizeConfig overrides individual normalization passes. Unset fields
// keep the strategy's defaults.
type NormalizeConfig struct {
	Truncate        *bool    `koanf:"truncate"`
	TruncateMarkers []string `koanf:"truncate_markers"`
	ReservedWords   *bool    `koanf:"reserved_words"`
	StripDirectives *bool    `koanf:"strip_directives"`
	Templates       *bool    `koanf:"templates"`
}

// IsZero reports whether no pass is overridden.
func (n NormalizeConfig) IsZero() bool {
	return n.Truncate == nil && len(n.TruncateMarkers) == 0 && n.ReservedWords == nil &&
		n.StripDirectives == nil && n.Templates == nil
}

// Apply returns base with the configured overrides applied.
func (n NormalizeConfig) Apply(base normalize.Options) normalize.Options {
	if n.Truncate != nil {
		base.Truncate = *n.Truncate
	}
	if len(n.TruncateMarkers) > 0 {
		base.TruncateMarkers = append([]string(nil), n.TruncateMarkers...)
	}
	if n.ReservedWords != nil {
		base.ReservedWords = *n.ReservedWords
	}
	if n.StripDirectives != nil {
		base.StripDirectives = *n.StripDirectives
	}
	if n.Templates != nil {
		base.Templates = *n.Templates
	}
	return base
}

// CacheConfig controls the extraction result cache.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
}

// BatchConfig controls the batch command.
type BatchConfig struct {
	// Concurrency bounds parallel extractions; 0 means one per CPU.
	Concurrency int `koanf:"concurrency"`
}

// Default configuration values.
const (
	DefaultStrategy  = "graph"
	DefaultOutput    = "auto" // Auto-detect: TTY=text, non-TTY=markdown
	DefaultLogLevel  = "warn"
	DefaultCachePath = ".sqllineage/cache.db"

	// EnvPrefix prefixes environment variables. A double underscore
	// separates nested keys: SQLLINEAGE_CACHE__PATH sets cache.path.
	EnvPrefix = "SQLLINEAGE_"
)

// configFileNames are searched for, in order, when no file is given.
var configFileNames = []string{"sqllineage.yaml", "sqllineage.yml"}
