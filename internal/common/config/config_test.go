package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("AWS_XRAY_SDK_DISABLED", "")
	t.Setenv("REFEREAT_ENABLE_TRACING", "")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if !cfg.IsLocal() {
		t.Errorf("Env = %q, want LOCAL", cfg.Env)
	}
	if cfg.DB.Host != "localhost" || cfg.DB.Port != 5432 {
		t.Errorf("DB = %+v, want localhost:5432", cfg.DB)
	}
	if cfg.Ledger.MaxTxAttempts != 3 {
		t.Errorf("MaxTxAttempts = %d, want 3", cfg.Ledger.MaxTxAttempts)
	}
	if cfg.Auth.JWTSecret == "" {
		t.Error("local environment should fall back to a local JWT secret")
	}
	if cfg.EnableTracing {
		t.Error("tracing should be disabled by default")
	}
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "refereat.toml")
	content := `
env = "staging"
public_base_url = "https://refereat.example/"

[http]
addr = ":9000"
shutdown_timeout = "3s"

[db]
host = "db.internal"
port = 6543

[auth]
jwt_secret = "file-secret"

[ledger]
max_tx_attempts = 5
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("ENV", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_PORT", "7000")
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("HTTP_SHUTDOWN_TIMEOUT", "")
	t.Setenv("PUBLIC_BASE_URL", "")
	t.Setenv("LEDGER_MAX_TX_ATTEMPTS", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("AWS_XRAY_SDK_DISABLED", "")
	t.Setenv("REFEREAT_ENABLE_TRACING", "1")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Env != "staging" {
		t.Errorf("Env = %q, want staging", cfg.Env)
	}
	if cfg.PublicBaseURL != "https://refereat.example" {
		t.Errorf("PublicBaseURL = %q", cfg.PublicBaseURL)
	}
	if cfg.HTTP.Addr != ":9000" || cfg.HTTP.ShutdownTimeout != 3*time.Second {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}
	if cfg.DB.Host != "db.internal" {
		t.Errorf("DB.Host = %q, want db.internal", cfg.DB.Host)
	}
	if cfg.DB.Port != 7000 {
		t.Errorf("DB.Port = %d, want env override 7000", cfg.DB.Port)
	}
	if cfg.Auth.JWTSecret != "file-secret" {
		t.Errorf("JWTSecret = %q", cfg.Auth.JWTSecret)
	}
	if cfg.Ledger.MaxTxAttempts != 5 {
		t.Errorf("MaxTxAttempts = %d, want 5", cfg.Ledger.MaxTxAttempts)
	}
	if len(cfg.HTTP.CORSAllowedOrigins) != 2 || cfg.HTTP.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CORSAllowedOrigins = %v", cfg.HTTP.CORSAllowedOrigins)
	}
	if !cfg.EnableTracing {
		t.Error("REFEREAT_ENABLE_TRACING=1 should enable tracing")
	}
}

func TestLoadConfig_RequiresSecretOutsideLocal(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("AWS_XRAY_SDK_DISABLED", "")

	if _, err := LoadConfig(""); err == nil {
		t.Error("LoadConfig() should fail without JWT_SECRET in production")
	}
}

func TestLoadConfig_TracingDisabledBySDKFlag(t *testing.T) {
	t.Setenv("JWT_SECRET", "x")
	t.Setenv("AWS_XRAY_SDK_DISABLED", "true")
	t.Setenv("REFEREAT_ENABLE_TRACING", "true")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.EnableTracing {
		t.Error("AWS_XRAY_SDK_DISABLED=true must win over REFEREAT_ENABLE_TRACING")
	}
}
