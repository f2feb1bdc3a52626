// Package config loads postgen settings. Precedence: defaults < config file
// (JSON, or YAML by extension) < .env < environment variables.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/vasilisp/postgen/internal/api"
	"github.com/vasilisp/postgen/internal/coordinator"
	"github.com/vasilisp/postgen/internal/util"
	"gopkg.in/yaml.v3"
)

const (
	StoreSupabase = "supabase"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
)

type Config struct {
	Port              int    `json:"port,omitempty" yaml:"port"`
	CoordinatorURL    string `json:"coordinatorUrl,omitempty" yaml:"coordinator_url"`
	ConversationTitle string `json:"conversationTitle,omitempty" yaml:"conversation_title"`
	Store             string `json:"store,omitempty" yaml:"store"`
	SupabaseURL       string `json:"supabaseUrl,omitempty" yaml:"supabase_url"`
	SupabaseKey       string `json:"supabaseKey,omitempty" yaml:"supabase_key"`
	PostgresDSN       string `json:"postgresDsn,omitempty" yaml:"postgres_dsn"`
	SQLitePath        string `json:"sqlitePath,omitempty" yaml:"sqlite_path"`
	LogLevel          string `json:"logLevel,omitempty" yaml:"log_level"`
}

func Defaults() Config {
	return Config{
		Port:              8080,
		CoordinatorURL:    coordinator.DefaultBaseURL,
		ConversationTitle: api.DefaultConversationTitle,
		Store:             StoreSupabase,
		SQLitePath:        "~/.local/share/postgen/postgen.db",
		LogLevel:          "info",
	}
}

// DefaultPath is ~/.config/postgen.json unless POSTGEN_CONFIG says otherwise.
func DefaultPath() string {
	if path := os.Getenv("POSTGEN_CONFIG"); path != "" {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "postgen.json"
	}
	return filepath.Join(homeDir, ".config", "postgen.json")
}

// Load reads the config from DefaultPath.
func Load() (*Config, error) {
	return LoadFrom(DefaultPath())
}

// LoadFrom reads the config file at path, which may be missing, then applies
// .env and the environment.
func LoadFrom(path string) (*Config, error) {
	config := Defaults()

	if err := loadFile(&config, path); err != nil {
		return nil, err
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	loadEnv(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

func loadFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("no config file", "path", path)
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func loadEnv(config *Config) {
	if v := os.Getenv("POSTGEN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Port = port
		} else {
			slog.Warn("ignoring POSTGEN_PORT", "value", v, "error", err)
		}
	}
	setString(&config.CoordinatorURL, "COORDINATOR_URL")
	setString(&config.ConversationTitle, "POSTGEN_CONVERSATION_TITLE")
	setString(&config.Store, "POSTGEN_STORE")
	setString(&config.SupabaseURL, "SUPABASE_URL")
	// the service role key wins over the anon key when both are present
	setString(&config.SupabaseKey, "SUPABASE_ANON_KEY")
	setString(&config.SupabaseKey, "SUPABASE_SERVICE_ROLE_KEY")
	setString(&config.PostgresDSN, "DATABASE_URL")
	setString(&config.SQLitePath, "POSTGEN_SQLITE_PATH")
	setString(&config.LogLevel, "POSTGEN_LOG_LEVEL")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func validate(config *Config) error {
	if config.Port <= 0 || config.Port > 65535 {
		return fmt.Errorf("port out of range: %d", config.Port)
	}
	if config.CoordinatorURL == "" {
		return errors.New("coordinator URL is required")
	}
	if config.ConversationTitle == "" {
		config.ConversationTitle = api.DefaultConversationTitle
	}
	if _, err := config.SlogLevel(); err != nil {
		return err
	}

	switch config.Store {
	case StoreSupabase:
		if config.SupabaseURL == "" || config.SupabaseKey == "" {
			return errors.New("missing SUPABASE_URL or SUPABASE_SERVICE_ROLE_KEY/SUPABASE_ANON_KEY")
		}
	case StorePostgres:
		if config.PostgresDSN == "" {
			return errors.New("missing DATABASE_URL for the postgres store")
		}
	case StoreSQLite:
		path, err := util.ExpandHome(config.SQLitePath)
		if err != nil {
			return err
		}
		if path == "" {
			return errors.New("sqlite path is required")
		}
		config.SQLitePath = path
	default:
		return fmt.Errorf("unknown store %q", config.Store)
	}

	return nil
}

// SlogLevel parses LogLevel.
func (c *Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}
