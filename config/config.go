// Package config loads githook's `.githookrc` settings file, grounded
// field-for-field on `original_source/githook-cli/src/config.rs`'s
// `Config` struct, using `github.com/spf13/viper` in place of the
// original's `toml`/`serde` combination the way
// Sumatoshi-tech-codefang's `internal/config/loader.go` builds a
// `viper.Viper`, registers defaults, and unmarshals into a struct.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/viper"
)

// configType matches the original's TOML format (spec.md calls it out as
// ".githookrc (TOML format)").
const configType = "toml"

// envPrefix namespaces environment-variable overrides, following the
// codefang loader's SetEnvPrefix/SetEnvKeyReplacer pattern.
const envPrefix = "GITHOOK"

// candidatePaths mirrors config.rs's Config::load() search order: the
// first of these that exists on disk is read.
var candidatePaths = []string{
	".githookrc",
	".githookrc.toml",
	filepath.Join(".config", "githookrc"),
}

// Config is githook's `.githookrc` shape, field-for-field from
// config.rs's `Config` struct.
type Config struct {
	Colored     bool              `mapstructure:"colored"`
	Verbose     bool              `mapstructure:"verbose"`
	Cache       bool              `mapstructure:"cache"`
	OnlyGroups  []string          `mapstructure:"only_groups"`
	SkipGroups  []string          `mapstructure:"skip_groups"`
	SearchPaths []string          `mapstructure:"search_paths"`
	Env         map[string]string `mapstructure:"env"`
	TimeoutSecs int               `mapstructure:"timeout"`
}

func defaultSearchPaths() []string {
	return []string{".githook", ".git/hooks", "."}
}

// Load searches candidatePaths in order and reads the first one found, or
// falls back to defaults if none exist — config.rs's "no config found,
// use defaults" behavior.
func Load() (*Config, error) {
	for _, candidate := range candidatePaths {
		if _, err := os.Stat(candidate); err == nil {
			return LoadFrom(candidate)
		}
	}
	return LoadFrom("")
}

// LoadFrom reads configuration from path (empty meaning "no file, use
// defaults + env"), then layers GITHOOK_-prefixed environment overrides
// on top, the same precedence codefang's LoadConfig documents.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType(configType)
	applyDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func applyDefaults(v *viper.Viper) {
	v.SetDefault("colored", true)
	v.SetDefault("verbose", false)
	v.SetDefault("cache", true)
	v.SetDefault("only_groups", []string{})
	v.SetDefault("skip_groups", []string{})
	v.SetDefault("search_paths", defaultSearchPaths())
	v.SetDefault("env", map[string]string{})
	v.SetDefault("timeout", 300)
}

// MergeCLIArgs overlays CLI flags onto a loaded Config, mirroring
// config.rs's merge_cli_args: a nil cache leaves the config's value
// untouched, and comma-separated group lists are split and trimmed.
func (c *Config) MergeCLIArgs(cache *bool, verbose bool, onlyGroups, skipGroups string) {
	if cache != nil {
		c.Cache = *cache
	}
	if verbose {
		c.Verbose = true
	}
	if onlyGroups != "" {
		c.OnlyGroups = splitTrimmed(onlyGroups)
	}
	if skipGroups != "" {
		c.SkipGroups = splitTrimmed(skipGroups)
	}
}

func splitTrimmed(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ResolveScript searches SearchPaths (relative to repoRoot) for name,
// expanding each entry as a doublestar glob, and returns the first match.
func (c *Config) ResolveScript(repoRoot, name string) (string, error) {
	for _, dir := range c.SearchPaths {
		root := filepath.Join(repoRoot, dir)
		matches, err := doublestar.Glob(os.DirFS(root), name)
		if err != nil {
			return "", fmt.Errorf("expanding search path %q: %w", dir, err)
		}
		if len(matches) > 0 {
			return filepath.Join(root, matches[0]), nil
		}
	}
	return "", fmt.Errorf("%s not found in search paths %v", name, c.SearchPaths)
}
