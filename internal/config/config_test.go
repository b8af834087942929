package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.LLM.Model == "" {
		t.Error("Expected a default model name")
	}
	if cfg.Itinerary.LockTTL != 10*time.Minute {
		t.Errorf("Expected lock ttl 10m, got %v", cfg.Itinerary.LockTTL)
	}
	if cfg.LLM.APIKey != "" {
		t.Errorf("Expected empty api key, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SERVER_PORT", "9191")
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("DB_NAME", "shop_test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("Expected port 9191, got %d", cfg.Server.Port)
	}
	if cfg.LLM.APIKey != "test-key" {
		t.Errorf("Expected api key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.Database.DBName != "shop_test" {
		t.Errorf("Expected db name from env, got %q", cfg.Database.DBName)
	}
}
