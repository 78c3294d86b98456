package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/refereat/refereat-server/internal/monitoring"
	"go.uber.org/zap"
)

// Transactor はSERIALIZABLEトランザクション内で処理を実行します
type Transactor interface {
	RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

const (
	pqSerializationFailure = "40001"
	pqDeadlockDetected     = "40P01"
)

var txRetryBackoff = 20 * time.Millisecond

// RunInTx はfnを1つのSERIALIZABLEトランザクションで実行します
// fnがエラーを返した場合はロールバックします
// シリアライズ失敗とデッドロックは最大maxTxAttempts回まで再試行し、
// 上限に達した場合はmodel.ErrTxConflictを返します
// fnは再試行で複数回呼ばれるため、トランザクション外の状態を変更してはいけません
func (db *DB) RunInTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	ctx, seg := xray.BeginSubsegment(ctx, "DB.RunInTx")
	defer seg.Close(nil)

	var lastErr error
	for attempt := 1; attempt <= db.maxTxAttempts; attempt++ {
		err := db.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !isRetryable(err) {
			return err
		}

		lastErr = err
		monitoring.TxRetriesTotal.Inc()
		db.logger.Warn("transaction failed with a retryable error",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", db.maxTxAttempts),
			zap.Error(err),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * txRetryBackoff):
		}
	}

	seg.Close(lastErr)
	return fmt.Errorf("%w: %v", model.ErrTxConflict, lastErr)
}

func (db *DB) runOnce(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	tx, err := db.DB.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// エラーが発生した場合のみロールバックを実行
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				db.logger.Error("rollback failed", zap.Error(rbErr), zap.NamedError("original_error", err))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// isRetryable はPostgreSQLのシリアライズ失敗またはデッドロックかを判定します
func isRetryable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pqSerializationFailure || pqErr.Code == pqDeadlockDetected
	}
	return false
}
