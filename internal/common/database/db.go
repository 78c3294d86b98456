package database

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type DB struct {
	*sqlx.DB
}

type Config struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	UserName string `toml:"username"`
	Password string `toml:"password"`
	DBName   string `toml:"name"`
	SSLMode  string `toml:"ssl_mode"`
}

// DSN はlib/pq形式の接続文字列を返します
// SSLModeが未指定の場合、localhostのDBではSSLを無効化し、それ以外では必須にします
func (cfg Config) DSN() string {
	sslModeValue := cfg.SSLMode
	if sslModeValue == "" {
		if cfg.Host == "localhost" || cfg.Host == "127.0.0.1" {
			sslModeValue = "disable"
		} else {
			sslModeValue = "require"
		}
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host,
		cfg.Port,
		cfg.UserName,
		cfg.Password,
		cfg.DBName,
		sslModeValue,
	)
}

// NewDB はX-Ray対応のコネクションプールを作成します
func NewDB(ctx context.Context, cfg Config) (*DB, error) {
	// X-Ray対応のSQLコンテキストを作成
	db, err := xray.SQLContext("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database with X-Ray: %w", err)
	}

	// コネクションプールの設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	// 接続テスト
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{sqlx.NewDb(db, "postgres")}, nil
}
