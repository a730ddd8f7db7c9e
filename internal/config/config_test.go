package config

import (
	"os"
	"path/filepath"
	"testing"
)

func tempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.json")
}

func TestLoadWritesDefaults(t *testing.T) {
	path := tempConfigPath(t)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("expected default model gpt-4o, got %q", cfg.LLM.Model)
	}
	if cfg.LLM.Temperature != 0.2 {
		t.Errorf("expected default temperature 0.2, got %v", cfg.LLM.Temperature)
	}
	if cfg.MaxConcurrent != 4 {
		t.Errorf("expected default max_concurrent 4, got %d", cfg.MaxConcurrent)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected defaults written to disk: %v", err)
	}
}

func TestSaveReloadRoundTrip(t *testing.T) {
	path := tempConfigPath(t)

	original := defaults()
	original.DataDir = "/tmp/agentdeck-test"
	original.LogLevel = "debug"
	original.HTTP.Listen = ":9999"
	original.LLM.APIKey = "sk-test-round-trip"
	original.LLM.Model = "gpt-4"

	if err := Save(path, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.DataDir != original.DataDir {
		t.Errorf("data_dir: got %q, want %q", loaded.DataDir, original.DataDir)
	}
	if loaded.HTTP.Listen != original.HTTP.Listen {
		t.Errorf("http.listen: got %q, want %q", loaded.HTTP.Listen, original.HTTP.Listen)
	}
	if loaded.LLM.APIKey != original.LLM.APIKey {
		t.Errorf("llm.api_key: got %q, want %q", loaded.LLM.APIKey, original.LLM.APIKey)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "log_level: warn\nllm:\n  model: gpt-4\n  api_key: sk-yaml\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("got log_level %q", cfg.LogLevel)
	}
	if cfg.LLM.Model != "gpt-4" {
		t.Errorf("got model %q", cfg.LLM.Model)
	}
	if cfg.LLM.APIKey != "sk-yaml" {
		t.Errorf("got api_key %q", cfg.LLM.APIKey)
	}
	// Untouched fields keep defaults
	if cfg.MaxConcurrent != 4 {
		t.Errorf("got max_concurrent %d", cfg.MaxConcurrent)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := tempConfigPath(t)
	t.Setenv("OPENAI_API_KEY", "sk-from-env")
	t.Setenv("OPENAI_BASE_URL", "https://env.example/v1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.APIKey != "sk-from-env" {
		t.Errorf("got api_key %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.BaseURL != "https://env.example/v1" {
		t.Errorf("got base_url %q", cfg.LLM.BaseURL)
	}
}

func TestGetSetValue(t *testing.T) {
	path := tempConfigPath(t)
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("OPENAI_BASE_URL", "")

	if _, err := Load(path); err != nil {
		t.Fatal(err)
	}

	if err := SetValue(path, "llm.model", "gpt-4-turbo"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}
	if err := SetValue(path, "max_concurrent", "8"); err != nil {
		t.Fatalf("SetValue failed: %v", err)
	}

	val, err := GetValue(path, "llm.model")
	if err != nil {
		t.Fatalf("GetValue failed: %v", err)
	}
	if val != "gpt-4-turbo" {
		t.Errorf("got %q", val)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.MaxConcurrent != 8 {
		t.Errorf("got max_concurrent %d", cfg.MaxConcurrent)
	}
}

func TestSetValueUnknownKey(t *testing.T) {
	path := tempConfigPath(t)
	if _, err := Load(path); err != nil {
		t.Fatal(err)
	}
	if err := SetValue(path, "nope.bad", "x"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestGetValueMasksSecret(t *testing.T) {
	path := tempConfigPath(t)
	t.Setenv("OPENAI_API_KEY", "")

	cfg := defaults()
	cfg.LLM.APIKey = "sk-secret-1234"
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	val, err := GetValue(path, "llm.api_key")
	if err != nil {
		t.Fatal(err)
	}
	if val != "***1234" {
		t.Errorf("expected masked value, got %q", val)
	}
}
