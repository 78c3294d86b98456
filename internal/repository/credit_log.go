package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/shopspring/decimal"
)

// CreditLogRepository はクレジット台帳の永続化を担当します
// 台帳は追記のみで、更新・削除のメソッドは持ちません
type CreditLogRepository interface {
	Append(ctx context.Context, tx *sqlx.Tx, entry *model.CreditLogEntry) error
	ListByInfluencer(ctx context.Context, influencerID uuid.UUID) ([]model.CreditLogEntry, error)
	Totals(ctx context.Context, influencerID uuid.UUID) (model.LedgerTotals, error)
}

type CreditLogRepositoryImpl struct {
	db *DB
}

func NewCreditLogRepository(db *DB) *CreditLogRepositoryImpl {
	return &CreditLogRepositoryImpl{db: db}
}

// Append は台帳に1行追記します
func (r *CreditLogRepositoryImpl) Append(ctx context.Context, tx *sqlx.Tx, entry *model.CreditLogEntry) error {
	ctx, seg := xray.BeginSubsegment(ctx, "CreditLogRepository.Append")
	defer seg.Close(nil)

	query := `
		INSERT INTO credit_logs (
			id,
			influencer_id,
			restaurant_id,
			booking_id,
			amount,
			type,
			description,
			created_at
		) VALUES (
			:id,
			:influencer_id,
			:restaurant_id,
			:booking_id,
			:amount,
			:type,
			:description,
			:created_at
		)
	`
	if _, err := tx.NamedExecContext(ctx, query, entry); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to append credit log: %w", err)
	}
	return nil
}

// ListByInfluencer はインフルエンサーの台帳を新しい順に返します
func (r *CreditLogRepositoryImpl) ListByInfluencer(ctx context.Context, influencerID uuid.UUID) ([]model.CreditLogEntry, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "CreditLogRepository.ListByInfluencer")
	defer seg.Close(nil)

	query := `
		SELECT
			id,
			influencer_id,
			restaurant_id,
			booking_id,
			amount,
			type,
			description,
			created_at
		FROM credit_logs
		WHERE influencer_id = $1
		ORDER BY created_at DESC
	`

	entries := []model.CreditLogEntry{}
	if err := r.db.SelectContext(ctx, &entries, query, influencerID); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list credit logs for influencer %s: %w", influencerID, err)
	}
	return entries, nil
}

// Totals は台帳を種別ごとに合計します
func (r *CreditLogRepositoryImpl) Totals(ctx context.Context, influencerID uuid.UUID) (model.LedgerTotals, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "CreditLogRepository.Totals")
	defer seg.Close(nil)

	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE type = 'earned'), 0) AS earned,
			COALESCE(SUM(amount) FILTER (WHERE type = 'redeemed'), 0) AS redeemed
		FROM credit_logs
		WHERE influencer_id = $1
	`

	var totals struct {
		Earned   decimal.Decimal `db:"earned"`
		Redeemed decimal.Decimal `db:"redeemed"`
	}
	if err := r.db.GetContext(ctx, &totals, query, influencerID); err != nil {
		seg.Close(err)
		return model.LedgerTotals{}, fmt.Errorf("failed to total credit logs for influencer %s: %w", influencerID, err)
	}
	return model.LedgerTotals{Earned: totals.Earned, Redeemed: totals.Redeemed}, nil
}
