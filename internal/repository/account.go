package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/refereat/refereat-server/internal/model"
)

const pqUniqueViolation = "23505"

type AccountRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, account *model.Account) error
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
}

type AccountRepositoryImpl struct {
	db *DB
}

func NewAccountRepository(db *DB) *AccountRepositoryImpl {
	return &AccountRepositoryImpl{db: db}
}

// Create はアカウントを作成します
// メールアドレスが登録済みの場合はErrEmailTakenを返します
func (r *AccountRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, account *model.Account) error {
	ctx, seg := xray.BeginSubsegment(ctx, "AccountRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO accounts (
			id,
			email,
			password_hash,
			role,
			profile_id,
			created_at
		) VALUES (
			:id,
			:email,
			:password_hash,
			:role,
			:profile_id,
			:created_at
		)
	`
	if _, err := tx.NamedExecContext(ctx, query, account); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return model.ErrEmailTaken
		}
		seg.Close(err)
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByEmail はメールアドレスでアカウントを取得します
// 大文字小文字は区別しません
func (r *AccountRepositoryImpl) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "AccountRepository.GetByEmail")
	defer seg.Close(nil)

	query := `
		SELECT
			id,
			email,
			password_hash,
			role,
			profile_id,
			created_at
		FROM accounts
		WHERE LOWER(email) = LOWER($1)
	`

	var account model.Account
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}
