package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

var envKeys = []string{
	"POSTGEN_PORT", "COORDINATOR_URL", "POSTGEN_CONVERSATION_TITLE", "POSTGEN_STORE",
	"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_SERVICE_ROLE_KEY", "DATABASE_URL",
	"POSTGEN_SQLITE_PATH", "POSTGEN_LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestMissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("POSTGEN_STORE", "sqlite")
	t.Setenv("POSTGEN_SQLITE_PATH", "/tmp/postgen-test.db")

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 8080 {
		t.Errorf("expected default port, got %d", cfg.Port)
	}
	if cfg.CoordinatorURL != "http://127.0.0.1:8000" {
		t.Errorf("unexpected coordinator URL %q", cfg.CoordinatorURL)
	}
	if cfg.ConversationTitle != "Generated Post" {
		t.Errorf("unexpected title %q", cfg.ConversationTitle)
	}
}

func TestJSONFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "postgen.json", `{
		"port": 9090,
		"coordinatorUrl": "http://coordinator:8000",
		"supabaseUrl": "https://example.supabase.co",
		"supabaseKey": "file-key"
	}`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 9090 || cfg.CoordinatorURL != "http://coordinator:8000" || cfg.SupabaseKey != "file-key" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Store != StoreSupabase {
		t.Errorf("expected default store, got %q", cfg.Store)
	}
}

func TestYAMLFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "postgen.yaml", "store: postgres\npostgres_dsn: postgres://localhost/postgen\nlog_level: debug\n")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Store != StorePostgres || cfg.PostgresDSN != "postgres://localhost/postgen" {
		t.Errorf("unexpected config %+v", cfg)
	}
	level, err := cfg.SlogLevel()
	if err != nil || level != slog.LevelDebug {
		t.Errorf("unexpected level %v, %v", level, err)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "postgen.json", `{"port": 9090, "supabaseUrl": "https://file.supabase.co", "supabaseKey": "file-key"}`)
	t.Setenv("POSTGEN_PORT", "7070")
	t.Setenv("SUPABASE_URL", "https://env.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 7070 || cfg.SupabaseURL != "https://env.supabase.co" {
		t.Errorf("env did not override: %+v", cfg)
	}
	if cfg.SupabaseKey != "service" {
		t.Errorf("service role key should win, got %q", cfg.SupabaseKey)
	}
}

func TestValidation(t *testing.T) {
	cases := map[string]string{
		"missing supabase": `{}`,
		"unknown store":    `{"store": "mongo"}`,
		"bad port":         `{"port": 70000, "store": "sqlite"}`,
		"bad level":        `{"store": "sqlite", "logLevel": "loud"}`,
		"postgres dsn":     `{"store": "postgres"}`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			if _, err := LoadFrom(writeFile(t, "postgen.json", content)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMalformedFile(t *testing.T) {
	clearEnv(t)
	_, err := LoadFrom(writeFile(t, "postgen.json", `{"port": `))
	if err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("unexpected error %v", err)
	}
}

func TestSQLitePathExpanded(t *testing.T) {
	clearEnv(t)
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	cfg, err := LoadFrom(writeFile(t, "postgen.json", `{"store": "sqlite"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := filepath.Join(home, ".local/share/postgen/postgen.db"); cfg.SQLitePath != want {
		t.Errorf("got %q, want %q", cfg.SQLitePath, want)
	}
}
