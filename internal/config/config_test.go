package config

import (
	"os"
	"testing"
	"time"
)

const sampleConfig = `
backend:
  base_url: https://health.example.com/api/
  timeout: 5s
assistant:
  provider: openai
  base_url: https://llm.example.com/v1
  api_key: dummy
  model: gpt-4o
server:
  host: 0.0.0.0
  port: "8081"
localstore:
  path: /tmp/ha.db
log:
  level: debug
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	tmp, err := os.CreateTemp(t.TempDir(), "cfg-*.yaml")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	if _, err := tmp.WriteString(body); err != nil {
		t.Fatalf("write: %v", err)
	}
	tmp.Close()
	return tmp.Name()
}

// TestLoad_File verifies that Load correctly unmarshals every section.
func TestLoad_File(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.BaseURL != "https://health.example.com/api" {
		t.Fatalf("trailing slash not trimmed: %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 5*time.Second {
		t.Fatalf("unexpected timeout: %s", cfg.Backend.Timeout)
	}
	if cfg.Assistant.Provider != ProviderOpenAI {
		t.Fatalf("expected provider openai, got %s", cfg.Assistant.Provider)
	}
	if cfg.Assistant.Model != "gpt-4o" {
		t.Fatalf("unexpected model: %s", cfg.Assistant.Model)
	}
	if cfg.Server.Port != "8081" {
		t.Fatalf("unexpected port: %s", cfg.Server.Port)
	}
	if cfg.LocalStore.Path != "/tmp/ha.db" {
		t.Fatalf("unexpected localstore path: %s", cfg.LocalStore.Path)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("unexpected log level: %s", cfg.Log.Level)
	}
}

// TestLoad_Defaults verifies the defaults apply to an empty file.
func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, "{}\n"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://localhost:8080/api" {
		t.Fatalf("unexpected default base url: %s", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Fatalf("unexpected default timeout: %s", cfg.Backend.Timeout)
	}
	if cfg.Assistant.Provider != ProviderBackend {
		t.Fatalf("unexpected default provider: %s", cfg.Assistant.Provider)
	}
}

// TestLoad_EnvOverride verifies HEALTHASSIST_* variables win over the file.
func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CONFIG_PATH", writeConfig(t, sampleConfig))
	t.Setenv("HEALTHASSIST_BACKEND_BASE_URL", "http://override:9000/api")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Backend.BaseURL != "http://override:9000/api" {
		t.Fatalf("env override ignored: %s", cfg.Backend.BaseURL)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "/nonexistent/config.yaml")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}
