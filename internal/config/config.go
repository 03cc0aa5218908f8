// Package config loads okrplanner settings from the workspace config file,
// a .env file and OKRPLANNER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"okrplanner/internal/workspace"
)

// EnvPrefix prefixes every environment override, e.g. OKRPLANNER_ORACLE_PROVIDER.
const EnvPrefix = "OKRPLANNER"

// Config is the complete okrplanner configuration.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Audit         AuditConfig         `mapstructure:"audit"`
	Oracle        OracleConfig        `mapstructure:"oracle"`
	Planner       PlannerConfig       `mapstructure:"planner"`
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

// DatabaseConfig locates the plan database. Relative paths resolve from the workspace root.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AuditConfig locates the audit log database.
type AuditConfig struct {
	Path string `mapstructure:"path"`
}

// OracleConfig selects the language-model oracle.
type OracleConfig struct {
	// Provider is one of none, mock, openai, codex.
	Provider string        `mapstructure:"provider"`
	Model    string        `mapstructure:"model"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	// Review enables the secondary review pass.
	Review   bool   `mapstructure:"review"`
	MockFile string `mapstructure:"mock_file"`
	// MockAnalysisFile answers conversation analysis for the mock provider.
	MockAnalysisFile string `mapstructure:"mock_analysis_file"`
}

// PlannerConfig tunes the generation pipeline.
type PlannerConfig struct {
	LockTTL time.Duration `mapstructure:"lock_ttl"`
}

// ServerConfig controls `okrplanner serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NotificationsConfig toggles desktop notifications.
type NotificationsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Database: DatabaseConfig{Path: "data/okrplanner.sqlite"},
		Audit:    AuditConfig{Path: "audit/audit.sqlite"},
		Oracle: OracleConfig{
			Provider: "none",
			Timeout:  90 * time.Second,
		},
		Planner: PlannerConfig{LockTTL: 10 * time.Minute},
		Server:  ServerConfig{Addr: "127.0.0.1:8080"},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("audit.path", d.Audit.Path)
	v.SetDefault("oracle.provider", d.Oracle.Provider)
	v.SetDefault("oracle.model", d.Oracle.Model)
	v.SetDefault("oracle.base_url", d.Oracle.BaseURL)
	v.SetDefault("oracle.api_key", d.Oracle.APIKey)
	v.SetDefault("oracle.timeout", d.Oracle.Timeout)
	v.SetDefault("oracle.review", d.Oracle.Review)
	v.SetDefault("oracle.mock_file", d.Oracle.MockFile)
	v.SetDefault("oracle.mock_analysis_file", d.Oracle.MockAnalysisFile)
	v.SetDefault("planner.lock_ttl", d.Planner.LockTTL)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("notifications.enabled", d.Notifications.Enabled)
}

// Load reads configuration for a workspace. The workspace .env file is loaded
// first without overriding variables already set in the process environment.
func Load(ws *workspace.Workspace) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if ws != nil {
		if err := godotenv.Load(ws.EnvPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", ws.EnvPath, err)
		}
		v.SetConfigFile(ws.ConfigPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read %s: %w", ws.ConfigPath, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// OPENAI_API_KEY is honoured when no okrplanner-specific key is set.
	if err := v.BindEnv("oracle.api_key", EnvPrefix+"_ORACLE_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, fmt.Errorf("bind oracle api key: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	if ws != nil {
		if err := cfg.resolvePaths(ws); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

func (c *Config) resolvePaths(ws *workspace.Workspace) error {
	for _, p := range []*string{&c.Database.Path, &c.Audit.Path, &c.Oracle.MockFile, &c.Oracle.MockAnalysisFile} {
		resolved, err := ws.ResolvePath(*p)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", *p, err)
		}
		*p = resolved
	}
	return nil
}
