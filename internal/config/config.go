// Package config loads the caseval configuration file: detection and
// committee tuning, the judge panel, the model endpoint, and server options.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/shahbajlive/caseval/internal/committee"
	"github.com/shahbajlive/caseval/internal/dedupe"
	"github.com/shahbajlive/caseval/internal/judge"
)

// FileName is the default configuration file name, looked up in the working
// directory and then under the user config directory.
const FileName = "caseval.toml"

// ServerConfig controls the REST server.
type ServerConfig struct {
	// Addr is the listen address. Default: ":8787"
	Addr string `toml:"addr"`

	// HistoryPath is the sqlite database for evaluation history. Empty
	// disables persistence.
	HistoryPath string `toml:"history_path"`
}

// Config is the full application configuration.
type Config struct {
	Dedupe    dedupe.Config    `toml:"dedupe"`
	Committee committee.Config `toml:"committee"`
	Judge     judge.Config     `toml:"judge"`
	Panel     committee.Panel  `toml:"panel"`
	Server    ServerConfig     `toml:"server"`

	// JudgeTimeoutSeconds overrides the per-call judge timeout when positive.
	// TOML carries it as plain seconds.
	JudgeTimeoutSeconds int `toml:"judge_timeout_seconds"`

	// CacheTTLSeconds enables the judge response cache when positive.
	// Zero (the default) disables caching entirely.
	CacheTTLSeconds int `toml:"cache_ttl_seconds"`
}

// Default returns the built-in configuration: no judges, no endpoint, cache
// off, detection and committee at their package defaults.
func Default() Config {
	return Config{
		Dedupe:    dedupe.DefaultConfig(),
		Committee: committee.DefaultConfig(),
		Judge:     judge.DefaultConfig(),
		Server:    ServerConfig{Addr: ":8787"},
	}
}

// Validate checks the composed configuration. The judge endpoint is only
// required when a panel is configured.
func (c Config) Validate() error {
	if err := c.Dedupe.Validate(); err != nil {
		return fmt.Errorf("dedupe: %w", err)
	}
	if err := c.Committee.Validate(); err != nil {
		return fmt.Errorf("committee: %w", err)
	}
	if len(c.Panel.Judges) > 0 {
		if err := c.Judge.Validate(); err != nil {
			return fmt.Errorf("judge: %w", err)
		}
		seen := make(map[string]bool, len(c.Panel.Judges))
		for _, j := range c.Panel.Judges {
			if j.ID == "" {
				return fmt.Errorf("panel: judge with empty id")
			}
			if seen[j.ID] {
				return fmt.Errorf("panel: duplicate judge id %q", j.ID)
			}
			seen[j.ID] = true
		}
	}
	if c.CacheTTLSeconds < 0 {
		return fmt.Errorf("cache_ttl_seconds must be >= 0, got %d", c.CacheTTLSeconds)
	}
	return nil
}

// Load reads configuration from an explicit path, or when path is empty from
// the default locations. A missing default file yields Default().
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = findDefault()
		if path == "" {
			return cfg, nil
		}
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if cfg.JudgeTimeoutSeconds > 0 {
		cfg.Committee.JudgeTimeout = time.Duration(cfg.JudgeTimeoutSeconds) * time.Second
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func findDefault() string {
	if _, err := os.Stat(FileName); err == nil {
		return FileName
	}
	if dir, err := os.UserConfigDir(); err == nil {
		candidate := filepath.Join(dir, "caseval", FileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}
