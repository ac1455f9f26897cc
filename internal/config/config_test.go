package config

import (
	"os"
	"path/filepath"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DATA_DIR", "SQLITE_PATH", "DEMO_URL", "LOG_LEVEL", "PORT"} {
		os.Unsetenv(k)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() on missing file returned error: %v", err)
	}

	want := Default()
	if cfg.Storage.DataDir != want.Storage.DataDir {
		t.Errorf("DataDir = %q, want default %q", cfg.Storage.DataDir, want.Storage.DataDir)
	}
	if cfg.Server.Port != want.Server.Port {
		t.Errorf("Port = %d, want default %d", cfg.Server.Port, want.Server.Port)
	}
	if cfg.View.PageSize != 50 {
		t.Errorf("PageSize = %d, want 50", cfg.View.PageSize)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("logging defaults = %s/%s, want info/json", cfg.Logging.Level, cfg.Logging.Format)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)

	yamlContent := []byte(`
storage:
  data_dir: "/var/lib/optionsradar"
  sqlite_path: "/var/lib/optionsradar/state.db"
server:
  host: "0.0.0.0"
  port: 9000
demo:
  url: "https://example.com/demo.json"
  timeout_secs: 5
view:
  page_size: 25
logging:
  level: "debug"
  format: "text"
`)

	path := filepath.Join(t.TempDir(), "optionsradar.yaml")
	if err := os.WriteFile(path, yamlContent, 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Storage.DataDir != "/var/lib/optionsradar" {
		t.Errorf("DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 9000 {
		t.Errorf("server = %s:%d, want 0.0.0.0:9000", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Demo.URL != "https://example.com/demo.json" || cfg.Demo.TimeoutSecs != 5 {
		t.Errorf("demo = %+v", cfg.Demo)
	}
	if cfg.View.PageSize != 25 {
		t.Errorf("PageSize = %d, want 25", cfg.View.PageSize)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "text" {
		t.Errorf("logging = %+v", cfg.Logging)
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "optionsradar.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9001\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Port != 9001 {
		t.Errorf("Port = %d, want 9001", cfg.Server.Port)
	}
	if cfg.Storage.SQLitePath != Default().Storage.SQLitePath {
		t.Errorf("SQLitePath = %q, want default", cfg.Storage.SQLitePath)
	}
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "/env/data")
	t.Setenv("DEMO_URL", "https://env.example.com/d.json")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("PORT", "8181")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Storage.DataDir != "/env/data" {
		t.Errorf("DataDir = %q, want /env/data", cfg.Storage.DataDir)
	}
	if cfg.Demo.URL != "https://env.example.com/d.json" {
		t.Errorf("Demo.URL = %q", cfg.Demo.URL)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Server.Port != 8181 {
		t.Errorf("Port = %d, want 8181", cfg.Server.Port)
	}
}

func TestEnvPortIgnoredWhenInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.Server.Port != Default().Server.Port {
		t.Errorf("Port = %d, want default %d", cfg.Server.Port, Default().Server.Port)
	}
}
