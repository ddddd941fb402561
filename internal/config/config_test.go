package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("AURA_CONFIG_FILE", "")
	t.Setenv("STORAGE_DRIVER", "")
	t.Setenv("STORAGE_DSN", "")
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("AI_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("AI_TIMEOUT", "")
	t.Setenv("PORT", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":5001" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Storage.Driver != DriverSQLite || cfg.Storage.DSN != "aura.db" {
		t.Fatalf("unexpected storage config: %+v", cfg.Storage)
	}
	if cfg.AI.Provider != ProviderGemini || cfg.AI.Timeout != 20*time.Second || cfg.AI.HistoryLimit != 10 {
		t.Fatalf("unexpected ai config: %+v", cfg.AI)
	}
	if cfg.AI.Enabled() {
		t.Fatal("gemini without key must not be enabled")
	}
}

func TestLoadRequiresJWTSecret(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error without JWT_SECRET")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"port":    {"PORT", "80 80"},
		"driver":  {"STORAGE_DRIVER", "cassandra"},
		"timeout": {"AI_TIMEOUT", "soon"},
		"ai":      {"AI_PROVIDER", "hal9000"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			t.Setenv(kv[0], kv[1])
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", kv[0], kv[1])
			}
		})
	}
}

func TestLoadPostgresNeedsDSN(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORAGE_DRIVER", "postgres")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for postgres without STORAGE_DSN")
	}
}

func TestLoadReadsProviderSpecificKeyAndFile(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	path := filepath.Join(t.TempDir(), "aura.toml")
	content := "[ai]\nsystem_prompt = \"be kind\"\nfallbacks = [\"one\", \"two\"]\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AURA_CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if !cfg.AI.Enabled() || cfg.AI.APIKey != "g-key" {
		t.Fatalf("expected gemini to be enabled with key, got %+v", cfg.AI)
	}
	if cfg.AI.SystemPrompt != "be kind" || len(cfg.AI.Fallbacks) != 2 {
		t.Fatalf("file settings not applied: %+v", cfg.AI)
	}
}
