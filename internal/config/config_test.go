package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"SELECTION_MODE", "APY_THRESHOLD", "TARGET_POOL_ID", "TARGET_CHAIN", "DATA_DIR",
	"DEFILLAMA_API_URL", "FETCH_TIMEOUT", "POLL_INTERVAL", "LOCK_TTL", "STRICT_EXIT",
	"LOG_LEVEL", "LOG_FILE", "PORT", "FRONTEND_ORIGIN", "DATABASE_URL", "REDIS_URL",
	"REDIS_PASSWORD", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID",
	"INFISICAL_CLIENT_ID", "INFISICAL_CLIENT_SECRET", "POOLS_CONFIG",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestEnvOr(t *testing.T) {
	// Unset key returns fallback
	os.Unsetenv("TEST_ENVOR_KEY")
	if got := envOr("TEST_ENVOR_KEY", "default"); got != "default" {
		t.Errorf("envOr unset key = %q, want %q", got, "default")
	}

	// Set key returns value
	t.Setenv("TEST_ENVOR_KEY", "custom")
	if got := envOr("TEST_ENVOR_KEY", "default"); got != "custom" {
		t.Errorf("envOr set key = %q, want %q", got, "custom")
	}

	// Empty string returns fallback
	t.Setenv("TEST_ENVOR_KEY", "")
	if got := envOr("TEST_ENVOR_KEY", "fallback"); got != "fallback" {
		t.Errorf("envOr empty key = %q, want %q", got, "fallback")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != ModeAllowList {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeAllowList)
	}
	if cfg.Threshold != 5.0 {
		t.Errorf("Threshold = %v, want 5.0", cfg.Threshold)
	}
	if len(cfg.AllowList) != len(DefaultAllowList) {
		t.Errorf("len(AllowList) = %d, want %d", len(cfg.AllowList), len(DefaultAllowList))
	}
	if cfg.APIURL != "https://yields.llama.fi/pools" {
		t.Errorf("APIURL = %q", cfg.APIURL)
	}
	if cfg.FetchTimeout != 15*time.Second {
		t.Errorf("FetchTimeout = %v, want 15s", cfg.FetchTimeout)
	}
	if cfg.StrictExit {
		t.Error("StrictExit should default to false")
	}
	if got, want := cfg.LogPath(), filepath.Join("data", "logs", "apy_log_aave-all.csv"); got != want {
		t.Errorf("LogPath = %q, want %q", got, want)
	}
	if got, want := cfg.SnapshotPath(), filepath.Join("data", "exports", "apy_snapshot_aave-all.json"); got != want {
		t.Errorf("SnapshotPath = %q, want %q", got, want)
	}
	if cfg.TelegramEnabled() {
		t.Error("TelegramEnabled should be false without token and chat id")
	}
}

func TestLoadThresholdDefaultsPerMode(t *testing.T) {
	tests := []struct {
		mode string
		want float64
	}{
		{"allowlist", 5.0},
		{"single", 4.0},
		{"predicate", 4.0},
		{"PREDICATE", 4.0},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			clearEnv(t)
			cfg, err := Load("", tt.mode)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.Threshold != tt.want {
				t.Errorf("Threshold = %v, want %v", cfg.Threshold, tt.want)
			}
		})
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SELECTION_MODE", "single")
	t.Setenv("APY_THRESHOLD", "3.25")
	t.Setenv("TARGET_POOL_ID", "abc-123")
	t.Setenv("TARGET_CHAIN", "Base")
	t.Setenv("DATA_DIR", "/tmp/apy")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("STRICT_EXIT", "true")
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001")

	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != ModeSingle {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModeSingle)
	}
	if cfg.Threshold != 3.25 {
		t.Errorf("Threshold = %v, want 3.25", cfg.Threshold)
	}
	if cfg.TargetPoolID != "abc-123" || cfg.TargetChain != "Base" {
		t.Errorf("target = %q/%q, want abc-123/Base", cfg.TargetPoolID, cfg.TargetChain)
	}
	if cfg.FetchTimeout != 5*time.Second {
		t.Errorf("FetchTimeout = %v, want 5s", cfg.FetchTimeout)
	}
	if !cfg.StrictExit {
		t.Error("StrictExit = false, want true")
	}
	if got, want := cfg.LogPath(), filepath.Join("/tmp/apy", "logs", "apy_log_single-abc-123.csv"); got != want {
		t.Errorf("LogPath = %q, want %q", got, want)
	}
	if !cfg.TelegramEnabled() || cfg.TelegramChatID != -1001 {
		t.Errorf("telegram = %v/%d, want enabled/-1001", cfg.TelegramEnabled(), cfg.TelegramChatID)
	}
}

func TestLoadModeArgumentOverridesEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("SELECTION_MODE", "single")

	cfg, err := Load("", "predicate")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModePredicate {
		t.Errorf("Mode = %q, want %q", cfg.Mode, ModePredicate)
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "pools.yaml")
	data := `
mode: predicate
threshold: 7.5
predicate:
  project: compound
  assets: [" usdc ", "", "weth"]
allow_list:
  - pool-a
data_dir: /srv/apy
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Mode != ModePredicate {
		t.Errorf("Mode = %q, want predicate", cfg.Mode)
	}
	if cfg.Threshold != 7.5 {
		t.Errorf("Threshold = %v, want 7.5", cfg.Threshold)
	}
	if cfg.ProjectFilter != "compound" {
		t.Errorf("ProjectFilter = %q, want compound", cfg.ProjectFilter)
	}
	if len(cfg.Assets) != 2 || cfg.Assets[0] != "usdc" || cfg.Assets[1] != "weth" {
		t.Errorf("Assets = %v, want [usdc weth]", cfg.Assets)
	}
	if len(cfg.AllowList) != 1 || cfg.AllowList[0] != "pool-a" {
		t.Errorf("AllowList = %v, want [pool-a]", cfg.AllowList)
	}
	if cfg.DataDir != "/srv/apy" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}

	// POOLS_CONFIG is used when no path is passed.
	t.Setenv("POOLS_CONFIG", path)
	cfg, err = Load("", "")
	if err != nil {
		t.Fatalf("Load via POOLS_CONFIG: %v", err)
	}
	if cfg.ProjectFilter != "compound" {
		t.Errorf("POOLS_CONFIG ProjectFilter = %q, want compound", cfg.ProjectFilter)
	}

	// Env threshold wins over the file.
	t.Setenv("APY_THRESHOLD", "1")
	cfg, err = Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Threshold != 1 {
		t.Errorf("Threshold = %v, want 1", cfg.Threshold)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		mode string
		file string
	}{
		{name: "bad threshold", env: map[string]string{"APY_THRESHOLD": "high"}},
		{name: "bad timeout", env: map[string]string{"FETCH_TIMEOUT": "soon"}},
		{name: "zero lock ttl", env: map[string]string{"LOCK_TTL": "0s"}},
		{name: "negative lock ttl", env: map[string]string{"LOCK_TTL": "-1s"}},
		{name: "bad strict", env: map[string]string{"STRICT_EXIT": "maybe"}},
		{name: "bad chat id", env: map[string]string{"TELEGRAM_CHAT_ID": "chat"}},
		{name: "unknown mode", mode: "random"},
		{name: "missing file", file: filepath.Join(os.TempDir(), "does-not-exist", "pools.yaml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := Load(tt.file, tt.mode); err == nil {
				t.Error("Load error = nil, want error")
			}
		})
	}
}

func TestSanitize(t *testing.T) {
	if got := sanitize("747c1d2a-c668/4682 b9f9"); got != "747c1d2a-c668_4682_b9f9" {
		t.Errorf("sanitize = %q", got)
	}
}
