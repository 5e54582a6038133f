package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds the TOML-driven connection and command configuration.
type Config struct {
	Connection ConnectionConfig `toml:"connection"`
	Dump       DumpConfig       `toml:"dump"`
	Apply      ApplyConfig      `toml:"apply"`

	// configDir is the directory containing the TOML file, used to resolve relative paths.
	configDir string
}

// ConnectionConfig identifies the database engine and connection string.
type ConnectionConfig struct {
	Engine  string `toml:"engine"` // "mysql", "postgres" or "sqlite"
	DSN     string `toml:"dsn"`
	Charset string `toml:"charset"` // character set for MySQL connection (default: "utf8mb4")
}

type DumpConfig struct {
	Tables    []string `toml:"tables"`     // empty = every base table
	Format    string   `toml:"format"`     // sql|toml
	OutputDir string   `toml:"output_dir"` // empty = stdout
}

type ApplyConfig struct {
	Transactional      bool `toml:"transactional"` // postgres only
	DisableForeignKeys bool `toml:"disable_foreign_keys"`
}

// loadConfig reads a TOML config file and returns a Config with defaults applied.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Config{
		Dump:  DumpConfig{Format: "sql"},
		Apply: ApplyConfig{Transactional: true},
	}
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.configDir = filepath.Dir(absPath)

	cfg.Connection.Engine = strings.ToLower(strings.TrimSpace(cfg.Connection.Engine))
	if cfg.Connection.Engine == "" {
		return nil, fmt.Errorf("connection.engine is required")
	}
	d, err := newDialect(cfg.Connection.Engine)
	if err != nil {
		return nil, err
	}
	cfg.Connection.Engine = d.Name()

	if strings.TrimSpace(cfg.Connection.DSN) == "" {
		return nil, fmt.Errorf("connection.dsn is required")
	}
	if cfg.Connection.Engine == "sqlite" {
		if cfg.Connection.Charset != "" {
			return nil, fmt.Errorf("connection.charset is a MySQL-only option")
		}
		cfg.Connection.DSN = cfg.resolvePath(cfg.Connection.DSN)
	}
	if cfg.Connection.Engine == "mysql" && cfg.Connection.Charset == "" {
		cfg.Connection.Charset = "utf8mb4"
	}

	if cfg.Dump.Format == "" {
		cfg.Dump.Format = "sql"
	}
	switch cfg.Dump.Format {
	case "sql", "toml":
	default:
		return nil, fmt.Errorf("dump.format must be one of: sql, toml")
	}
	if cfg.Dump.OutputDir != "" {
		cfg.Dump.OutputDir = cfg.resolvePath(cfg.Dump.OutputDir)
	}

	return &cfg, nil
}

// resolvePath returns p unchanged if absolute (or a sqlite URI / :memory:),
// otherwise joins it with the config directory.
func (c *Config) resolvePath(p string) string {
	if filepath.IsAbs(p) || strings.HasPrefix(p, "file:") || p == ":memory:" || c.configDir == "" {
		return p
	}
	return filepath.Join(c.configDir, p)
}
