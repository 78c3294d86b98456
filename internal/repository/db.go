package repository

import (
	"context"
	"database/sql"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// DefaultMaxTxAttempts はシリアライズ失敗時のトランザクション試行回数の既定値です
const DefaultMaxTxAttempts = 3

// DB はX-Rayのサブセグメントを付与するsqlx.DBのラッパーです
type DB struct {
	*sqlx.DB
	maxTxAttempts int
	logger        *zap.Logger
}

// NewDB は接続済みのsqlx.DBからDBを作成します
// loggerがnilの場合はログを出力しません
func NewDB(conn *sqlx.DB, maxTxAttempts int, logger *zap.Logger) *DB {
	if maxTxAttempts < 1 {
		maxTxAttempts = DefaultMaxTxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DB{DB: conn, maxTxAttempts: maxTxAttempts, logger: logger}
}

// Close closes the database connection
func (db *DB) Close() error {
	_, seg := xray.BeginSegment(context.Background(), "DB.Close")
	defer seg.Close(nil)

	return db.DB.Close()
}

// QueryxContext wraps sqlx.DB.QueryxContext with X-Ray tracing
func (db *DB) QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Queryx")
	if seg == nil {
		return db.DB.QueryxContext(ctx, query, args...)
	}
	defer seg.Close(nil)

	// クエリをメタデータとして追加
	if err := seg.AddMetadata("query", query); err != nil {
		db.logger.Debug("failed to add query metadata", zap.Error(err))
	}

	rows, err := db.DB.QueryxContext(ctx, query, args...)
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	return rows, nil
}

// GetContext wraps sqlx.DB.GetContext with X-Ray tracing
func (db *DB) GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Get")
	if seg == nil {
		return db.DB.GetContext(ctx, dest, query, args...)
	}
	defer seg.Close(nil)

	if err := seg.AddMetadata("query", query); err != nil {
		db.logger.Debug("failed to add query metadata", zap.Error(err))
	}

	// 該当行なしはエラーとしてトレースしない
	if err := db.DB.GetContext(ctx, dest, query, args...); err != nil {
		if err != sql.ErrNoRows {
			seg.Close(err)
		}
		return err
	}
	return nil
}

// SelectContext wraps sqlx.DB.SelectContext with X-Ray tracing
func (db *DB) SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Select")
	if seg == nil {
		return db.DB.SelectContext(ctx, dest, query, args...)
	}
	defer seg.Close(nil)

	if err := seg.AddMetadata("query", query); err != nil {
		db.logger.Debug("failed to add query metadata", zap.Error(err))
	}

	if err := db.DB.SelectContext(ctx, dest, query, args...); err != nil {
		seg.Close(err)
		return err
	}
	return nil
}

// ExecContext wraps sqlx.DB.ExecContext with X-Ray tracing
func (db *DB) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.Exec")
	if seg == nil {
		return db.DB.ExecContext(ctx, query, args...)
	}
	defer seg.Close(nil)

	// クエリをメタデータとして追加
	if err := seg.AddMetadata("query", query); err != nil {
		db.logger.Debug("failed to add query metadata", zap.Error(err))
	}

	result, err := db.DB.ExecContext(ctx, query, args...)
	if err != nil {
		seg.Close(err)
		return nil, err
	}

	return result, nil
}
