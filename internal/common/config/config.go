package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/refereat/refereat-server/internal/common/database"
)

type HTTPConfig struct {
	Addr               string        `toml:"addr"`
	ShutdownTimeout    time.Duration `toml:"shutdown_timeout"`
	CORSAllowedOrigins []string      `toml:"cors_allowed_origins"`
}

type AuthConfig struct {
	JWTSecret string        `toml:"jwt_secret"`
	AccessTTL time.Duration `toml:"access_ttl"`
}

type GeminiConfig struct {
	APIKey   string        `toml:"api_key"`
	Model    string        `toml:"model"`
	Endpoint string        `toml:"endpoint"`
	Timeout  time.Duration `toml:"timeout"`
}

type SMTPConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	Sender   string `toml:"sender"`
}

type Config struct {
	Env           string          `toml:"env"`
	LogLevel      string          `toml:"log_level"`
	PublicBaseURL string          `toml:"public_base_url"`
	HTTP          HTTPConfig      `toml:"http"`
	DB            database.Config `toml:"db"`
	Auth          AuthConfig      `toml:"auth"`
	Gemini        GeminiConfig    `toml:"gemini"`
	SMTP          SMTPConfig      `toml:"smtp"`
	SFN           struct {
		StateMachineARN string `toml:"state_machine_arn"`
	} `toml:"sfn"`
	Ledger struct {
		MaxTxAttempts int `toml:"max_tx_attempts"`
	} `toml:"ledger"`
	EnableTracing bool `toml:"-"`
}

// IsLocal はローカル実行かどうかを返します
func (c *Config) IsLocal() bool {
	return strings.EqualFold(c.Env, "LOCAL")
}

func defaults() *Config {
	cfg := &Config{
		Env:           "LOCAL",
		LogLevel:      "info",
		PublicBaseURL: "http://localhost:3000",
		HTTP: HTTPConfig{
			Addr:               ":8080",
			ShutdownTimeout:    10 * time.Second,
			CORSAllowedOrigins: []string{"*"},
		},
		DB: database.Config{
			Host:     "localhost",
			Port:     5432,
			UserName: "refereat",
			Password: "password",
			DBName:   "refereat",
		},
		Auth: AuthConfig{
			AccessTTL: 24 * time.Hour,
		},
		Gemini: GeminiConfig{
			Model:    "gemini-1.5-pro",
			// 空の場合はSDKの既定エンドポイントを使います
			Endpoint: "",
			Timeout:  30 * time.Second,
		},
		SMTP: SMTPConfig{
			Port:   587,
			Sender: "ReferEat <onboarding@refereat.app>",
		},
	}
	cfg.Ledger.MaxTxAttempts = 3
	return cfg
}

// LoadConfig は設定を読み込みます
// 優先順位は 環境変数 > TOMLファイル > デフォルト値 です
// pathが空の場合はTOMLファイルを読みません
func LoadConfig(path string) (*Config, error) {
	// .envは存在する場合のみ読み込む
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	cfg := defaults()
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
		}
	}

	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.PublicBaseURL = strings.TrimRight(getEnvOrDefault("PUBLIC_BASE_URL", cfg.PublicBaseURL), "/")

	cfg.HTTP.Addr = getEnvOrDefault("HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.ShutdownTimeout = getEnvAsDurationOrDefault("HTTP_SHUTDOWN_TIMEOUT", cfg.HTTP.ShutdownTimeout)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		cfg.HTTP.CORSAllowedOrigins = splitList(origins)
	}

	cfg.DB.Host = getEnvOrDefault("DB_HOST", cfg.DB.Host)
	cfg.DB.Port = getEnvAsIntOrDefault("DB_PORT", cfg.DB.Port)
	cfg.DB.UserName = getEnvOrDefault("DB_USERNAME", cfg.DB.UserName)
	cfg.DB.Password = getEnvOrDefault("DB_PASSWORD", cfg.DB.Password)
	cfg.DB.DBName = getEnvOrDefault("DB_NAME", cfg.DB.DBName)
	cfg.DB.SSLMode = getEnvOrDefault("DB_SSL_MODE", cfg.DB.SSLMode)

	cfg.Auth.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.Auth.JWTSecret)
	cfg.Auth.AccessTTL = getEnvAsDurationOrDefault("JWT_ACCESS_TTL", cfg.Auth.AccessTTL)

	cfg.Gemini.APIKey = getEnvOrDefault("GEMINI_API_KEY", cfg.Gemini.APIKey)
	cfg.Gemini.Model = getEnvOrDefault("GEMINI_MODEL", cfg.Gemini.Model)
	cfg.Gemini.Endpoint = getEnvOrDefault("GEMINI_ENDPOINT", cfg.Gemini.Endpoint)
	cfg.Gemini.Timeout = getEnvAsDurationOrDefault("AI_TIMEOUT", cfg.Gemini.Timeout)

	cfg.SMTP.Host = getEnvOrDefault("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = getEnvAsIntOrDefault("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.User = getEnvOrDefault("SMTP_USER", cfg.SMTP.User)
	cfg.SMTP.Password = getEnvOrDefault("SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.SMTP.Sender = getEnvOrDefault("SMTP_SENDER", cfg.SMTP.Sender)

	cfg.SFN.StateMachineARN = getEnvOrDefault("SFN_STATE_MACHINE_ARN", cfg.SFN.StateMachineARN)
	cfg.Ledger.MaxTxAttempts = getEnvAsIntOrDefault("LEDGER_MAX_TX_ATTEMPTS", cfg.Ledger.MaxTxAttempts)

	// 環境変数[REFEREAT_ENABLE_TRACING]を見てトレースを有効にする。対応しているTracingはAWS_XRAYのみ。
	// 環境変数[AWS_XRAY_SDK_DISABLED]がtrueの場合は必ずトレースを無効にする。
	enableKey := os.Getenv("REFEREAT_ENABLE_TRACING")
	if !sdkDisabled() && (strings.ToLower(enableKey) == "true" || enableKey == "1") {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "FALSE")
		cfg.EnableTracing = true
	} else {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "TRUE")
		cfg.EnableTracing = false
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		if !c.IsLocal() {
			return errors.New("JWT_SECRET is required outside the LOCAL environment")
		}
		log.Printf("JWT_SECRET is not set, using an insecure local secret")
		c.Auth.JWTSecret = "refereat-local-secret"
	}
	if c.Ledger.MaxTxAttempts < 1 {
		return fmt.Errorf("LEDGER_MAX_TX_ATTEMPTS must be at least 1, got %d", c.Ledger.MaxTxAttempts)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Printf("Environment variable %s is not an integer, using default value", key)
	}
	return defaultValue
}

func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("Environment variable %s is not a duration, using default value", key)
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Check if SDK is disabled
func sdkDisabled() bool {
	disableKey := os.Getenv("AWS_XRAY_SDK_DISABLED")
	return strings.ToLower(disableKey) == "true"
}
