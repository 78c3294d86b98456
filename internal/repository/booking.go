package repository

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/refereat/refereat-server/internal/model"
)

type BookingRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, booking *model.Booking) error
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, limit int) ([]model.Booking, error)
}

type BookingRepositoryImpl struct {
	db *DB
}

func NewBookingRepository(db *DB) *BookingRepositoryImpl {
	return &BookingRepositoryImpl{db: db}
}

const bookingColumns = `
	id,
	restaurant_id,
	influencer_id,
	guest_name,
	booking_date,
	covers,
	total_spend,
	status,
	proof_image_url,
	referral_booking_id,
	created_at`

// Create は予約を作成します
func (r *BookingRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, booking *model.Booking) error {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO bookings (` + bookingColumns + `
		) VALUES (
			:id,
			:restaurant_id,
			:influencer_id,
			:guest_name,
			:booking_date,
			:covers,
			:total_spend,
			:status,
			:proof_image_url,
			:referral_booking_id,
			:created_at
		)
	`
	if _, err := tx.NamedExecContext(ctx, query, booking); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

// ListByRestaurant はレストランの予約を新しい順に最大limit件返します
func (r *BookingRepositoryImpl) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID, limit int) ([]model.Booking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "BookingRepository.ListByRestaurant")
	defer seg.Close(nil)

	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE restaurant_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	bookings := []model.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, restaurantID, limit); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list bookings for restaurant %s: %w", restaurantID, err)
	}
	return bookings, nil
}
