package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/refereat/refereat-server/internal/model"
)

type ReferralRepository interface {
	Create(ctx context.Context, referral *model.ReferralBooking) error
	FindPendingByGuestName(ctx context.Context, guestName string) (*model.ReferralBooking, error)
	MarkMatched(ctx context.Context, tx *sqlx.Tx, referralID, influencerID, bookingID uuid.UUID) error
}

type ReferralRepositoryImpl struct {
	db *DB
}

func NewReferralRepository(db *DB) *ReferralRepositoryImpl {
	return &ReferralRepositoryImpl{db: db}
}

// Create は紹介予約を作成します
func (r *ReferralRepositoryImpl) Create(ctx context.Context, referral *model.ReferralBooking) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ReferralRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO referral_bookings (
			id,
			influencer_id,
			guest_name,
			date,
			guests,
			phone,
			status,
			matched_booking_id,
			created_at
		) VALUES (
			:id,
			:influencer_id,
			:guest_name,
			:date,
			:guests,
			:phone,
			:status,
			:matched_booking_id,
			:created_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, referral); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to create referral booking: %w", err)
	}
	return nil
}

// FindPendingByGuestName はゲスト名が完全一致するpending_visitの紹介予約を1件返します
// 大文字小文字は区別し、複数該当した場合にどれを返すかは規定しません
func (r *ReferralRepositoryImpl) FindPendingByGuestName(ctx context.Context, guestName string) (*model.ReferralBooking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReferralRepository.FindPendingByGuestName")
	defer seg.Close(nil)

	query := `
		SELECT
			id,
			influencer_id,
			guest_name,
			date,
			guests,
			phone,
			status,
			matched_booking_id,
			created_at
		FROM referral_bookings
		WHERE guest_name = $1
		AND status = 'pending_visit'
		LIMIT 1
	`

	var referral model.ReferralBooking
	if err := r.db.GetContext(ctx, &referral, query, guestName); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrReferralNotFound
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to find referral booking: %w", err)
	}
	return &referral, nil
}

// MarkMatched は紹介予約をmatchedに遷移させ、確定した予約を紐づけます
// pending_visitでない場合はErrReferralConsumed、
// 存在しないか別のインフルエンサーの紹介の場合はErrReferralNotFoundを返します
func (r *ReferralRepositoryImpl) MarkMatched(ctx context.Context, tx *sqlx.Tx, referralID, influencerID, bookingID uuid.UUID) error {
	ctx, seg := xray.BeginSubsegment(ctx, "ReferralRepository.MarkMatched")
	defer seg.Close(nil)

	query := `
		UPDATE referral_bookings
		SET status = 'matched',
			matched_booking_id = $1
		WHERE id = $2
		AND influencer_id = $3
		AND status = 'pending_visit'
	`
	result, err := tx.ExecContext(ctx, query, bookingID, referralID, influencerID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to mark referral booking matched: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	// 更新できなかった理由を判定
	var exists bool
	err = tx.GetContext(ctx, &exists, `
		SELECT EXISTS (
			SELECT 1
			FROM referral_bookings
			WHERE id = $1
			AND influencer_id = $2
		)
	`, referralID, influencerID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to check referral booking: %w", err)
	}
	if exists {
		return model.ErrReferralConsumed
	}
	return model.ErrReferralNotFound
}
