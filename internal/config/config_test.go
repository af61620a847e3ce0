package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var allKeys = []string{
	"CONFIG_FILE", "PORT", "DATABASE_URL", "DOCUMENT_PATH", "DEFAULT_EXPANDED_GROUPS",
	"CORS_ORIGINS", "WORKER_COUNT", "MAX_QUEUE_SIZE", "MAX_UPLOAD_BYTES", "JOB_TTL",
	"API_URL", "REQUEST_TIMEOUT", "SEARCH_DEBOUNCE", "STATUS_TTL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8000" || cfg.DatabaseURL != "" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if strings.Join(cfg.DefaultExpandedGroups, ",") != "Aneesh,Sampath,Nathaniel,Venkatesh,Rohit" {
		t.Errorf("unexpected default groups %v", cfg.DefaultExpandedGroups)
	}
	if cfg.SearchDebounce != 300*time.Millisecond || cfg.RequestTimeout != 10*time.Second {
		t.Errorf("unexpected client timings %v / %v", cfg.SearchDebounce, cfg.RequestTimeout)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "orgmark.yaml")
	data := `
port: "9000"
document_path: /srv/org.pdf
default_expanded_groups: [Ann, Zed]
worker_count: 2
search_debounce: 50ms
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("WORKER_COUNT", "8")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9000" || cfg.DocumentPath != "/srv/org.pdf" {
		t.Errorf("expected file values, got %+v", cfg)
	}
	if cfg.WorkerCount != 8 {
		t.Errorf("expected env to override file, got %d", cfg.WorkerCount)
	}
	if strings.Join(cfg.DefaultExpandedGroups, ",") != "Ann,Zed" {
		t.Errorf("unexpected groups %v", cfg.DefaultExpandedGroups)
	}
	if strings.Join(cfg.CORSOrigins, ",") != "http://a.test,http://b.test" {
		t.Errorf("unexpected origins %v", cfg.CORSOrigins)
	}
	if cfg.SearchDebounce != 50*time.Millisecond {
		t.Errorf("unexpected debounce %v", cfg.SearchDebounce)
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("job_ttl: forever\n"), 0o644)
	t.Setenv("CONFIG_FILE", path)
	if _, err := Load(); err == nil {
		t.Error("expected error for unparseable duration")
	}

	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEnvList_Dash(t *testing.T) {
	t.Setenv("DEFAULT_EXPANDED_GROUPS", "-")
	if got := envList("DEFAULT_EXPANDED_GROUPS", []string{"x"}); got == nil || len(got) != 0 {
		t.Errorf("expected empty list, got %v", got)
	}
}

func TestValidate(t *testing.T) {
	cfg := defaults()
	cfg.Port = "http"
	if err := cfg.Validate(); err == nil {
		t.Error("expected non-numeric port to fail")
	}

	cfg = defaults()
	cfg.APIURL = "localhost"
	if err := cfg.ValidateClient(); err == nil {
		t.Error("expected relative API URL to fail")
	}
}
