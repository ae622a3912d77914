package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func clearLivecupEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LIVECUP_INSTANCE", "LIVECUP_LISTEN_ADDR", "LIVECUP_HUB_URL", "LIVECUP_ROOM",
		"LIVECUP_IDENTITY", "LIVECUP_DATA_TOPIC", "LIVECUP_ALLOWED_ORIGINS",
		"LIVECUP_METRICS", "LIVECUP_LEDGER_DB", "LIVECUP_LOG_DIR", HomeEnv,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearLivecupEnv(t)
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadFiles()
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:7880" || cfg.Room != "cafe" || !cfg.MetricsEnabled {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.LedgerDB != ForInstance("default").LedgerDB {
		t.Fatalf("unexpected ledger path %s", cfg.LedgerDB)
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	clearLivecupEnv(t)
	t.Setenv("LIVECUP_ROOM", "kiosk")
	t.Setenv("LIVECUP_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("LIVECUP_LEDGER_DB", "~/orders.db")
	t.Setenv("LIVECUP_METRICS", "false")

	cfg, err := LoadFiles()
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	home, _ := os.UserHomeDir()
	if cfg.Room != "kiosk" || cfg.MetricsEnabled || cfg.LedgerDB != filepath.Join(home, "orders.db") {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if want := []string{"https://a.example", "https://b.example"}; !reflect.DeepEqual(cfg.AllowedOrigins, want) {
		t.Fatalf("origins = %v, want %v", cfg.AllowedOrigins, want)
	}
}

func TestLoadDotenvPrecedence(t *testing.T) {
	clearLivecupEnv(t)
	dir := t.TempDir()
	local := filepath.Join(dir, ".env.local")
	shared := filepath.Join(dir, ".env")
	if err := os.WriteFile(local, []byte("LIVECUP_ROOM=local-room\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(shared, []byte("LIVECUP_ROOM=shared-room\nLIVECUP_DATA_TOPIC=orders\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Unsetenv("LIVECUP_ROOM")
		os.Unsetenv("LIVECUP_DATA_TOPIC")
	})

	cfg, err := LoadFiles(local, shared, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if cfg.Room != "local-room" || cfg.DataTopic != "orders" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearLivecupEnv(t)
	t.Setenv("LIVECUP_METRICS", "maybe")

	if _, err := LoadFiles(); err == nil {
		t.Fatal("expected parse error for invalid bool")
	}
}
