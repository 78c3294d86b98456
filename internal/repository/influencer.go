package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/shopspring/decimal"
)

type InfluencerRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, influencer *model.Influencer) error
	Get(ctx context.Context, id uuid.UUID) (*model.Influencer, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Influencer, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.Influencer, error)
	UpdateWallet(ctx context.Context, tx *sqlx.Tx, influencer *model.Influencer) error
	UpdateSettings(ctx context.Context, tx *sqlx.Tx, influencer *model.Influencer) error
}

type InfluencerRepositoryImpl struct {
	db *DB
}

func NewInfluencerRepository(db *DB) *InfluencerRepositoryImpl {
	return &InfluencerRepositoryImpl{db: db}
}

// influencerRow はinfluencersテーブルの1行です
// ウォレットは列に展開して保存します
type influencerRow struct {
	ID                   uuid.UUID           `db:"id"`
	Name                 string              `db:"name"`
	Email                string              `db:"email"`
	ProfilePicture       string              `db:"profile_picture"`
	RestaurantID         uuid.NullUUID       `db:"restaurant_id"`
	InstagramHandle      string              `db:"instagram_handle"`
	TiktokHandle         string              `db:"tiktok_handle"`
	CommissionPercentage decimal.NullDecimal `db:"commission_percentage"`
	BlackoutDates        pq.StringArray      `db:"blackout_dates"`
	TotalBookings        int64               `db:"total_bookings"`
	TotalSpendGenerated  decimal.Decimal     `db:"total_spend_generated"`
	TotalCreditsEarned   decimal.Decimal     `db:"total_credits_earned"`
	WalletAvailable      decimal.Decimal     `db:"wallet_available"`
	WalletPending        decimal.Decimal     `db:"wallet_pending"`
	WalletRedeemed       decimal.Decimal     `db:"wallet_redeemed"`
	CreatedAt            time.Time           `db:"created_at"`
}

func newInfluencerRow(i *model.Influencer) influencerRow {
	dates := i.BlackoutDates
	if dates == nil {
		dates = []string{}
	}
	return influencerRow{
		ID:                   i.ID,
		Name:                 i.Name,
		Email:                i.Email,
		ProfilePicture:       i.ProfilePicture,
		RestaurantID:         i.RestaurantID,
		InstagramHandle:      i.InstagramHandle,
		TiktokHandle:         i.TiktokHandle,
		CommissionPercentage: i.CommissionPercentage,
		BlackoutDates:        pq.StringArray(dates),
		TotalBookings:        i.TotalBookings,
		TotalSpendGenerated:  i.TotalSpendGenerated,
		TotalCreditsEarned:   i.TotalCreditsEarned,
		WalletAvailable:      i.WalletBalance.Available,
		WalletPending:        i.WalletBalance.Pending,
		WalletRedeemed:       i.WalletBalance.Redeemed,
		CreatedAt:            i.CreatedAt,
	}
}

func (row influencerRow) toModel() model.Influencer {
	dates := []string(row.BlackoutDates)
	if dates == nil {
		dates = []string{}
	}
	return model.Influencer{
		ID:                   row.ID,
		Name:                 row.Name,
		Email:                row.Email,
		ProfilePicture:       row.ProfilePicture,
		RestaurantID:         row.RestaurantID,
		InstagramHandle:      row.InstagramHandle,
		TiktokHandle:         row.TiktokHandle,
		CommissionPercentage: row.CommissionPercentage,
		BlackoutDates:        dates,
		TotalBookings:        row.TotalBookings,
		TotalSpendGenerated:  row.TotalSpendGenerated,
		TotalCreditsEarned:   row.TotalCreditsEarned,
		WalletBalance: model.WalletBalance{
			Available: row.WalletAvailable,
			Pending:   row.WalletPending,
			Redeemed:  row.WalletRedeemed,
		},
		CreatedAt: row.CreatedAt,
	}
}

const influencerColumns = `
	id,
	name,
	email,
	profile_picture,
	restaurant_id,
	instagram_handle,
	tiktok_handle,
	commission_percentage,
	blackout_dates,
	total_bookings,
	total_spend_generated,
	total_credits_earned,
	wallet_available,
	wallet_pending,
	wallet_redeemed,
	created_at`

// Create はインフルエンサーを作成します
func (r *InfluencerRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, influencer *model.Influencer) error {
	ctx, seg := xray.BeginSubsegment(ctx, "InfluencerRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO influencers (` + influencerColumns + `
		) VALUES (
			:id,
			:name,
			:email,
			:profile_picture,
			:restaurant_id,
			:instagram_handle,
			:tiktok_handle,
			:commission_percentage,
			:blackout_dates,
			:total_bookings,
			:total_spend_generated,
			:total_credits_earned,
			:wallet_available,
			:wallet_pending,
			:wallet_redeemed,
			:created_at
		)
	`
	if _, err := tx.NamedExecContext(ctx, query, newInfluencerRow(influencer)); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to create influencer: %w", err)
	}
	return nil
}

// Get はIDでインフルエンサーを取得します
func (r *InfluencerRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*model.Influencer, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InfluencerRepository.Get")
	defer seg.Close(nil)

	query := `SELECT ` + influencerColumns + ` FROM influencers WHERE id = $1`

	var row influencerRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrInfluencerNotFound
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get influencer %s: %w", id, err)
	}
	inf := row.toModel()
	return &inf, nil
}

// GetForUpdate はインフルエンサーの行をロックして取得します
// ウォレットを変更する処理は必ずこのメソッドで読み込みます
func (r *InfluencerRepositoryImpl) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Influencer, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InfluencerRepository.GetForUpdate")
	defer seg.Close(nil)

	query := `SELECT ` + influencerColumns + ` FROM influencers WHERE id = $1 FOR UPDATE`

	var row influencerRow
	if err := tx.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrInfluencerNotFound
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to lock influencer %s: %w", id, err)
	}
	inf := row.toModel()
	return &inf, nil
}

// ListByRestaurant はレストランに所属するインフルエンサーを作成日の新しい順に返します
func (r *InfluencerRepositoryImpl) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.Influencer, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InfluencerRepository.ListByRestaurant")
	defer seg.Close(nil)

	query := `
		SELECT ` + influencerColumns + `
		FROM influencers
		WHERE restaurant_id = $1
		ORDER BY created_at DESC
	`

	var rows []influencerRow
	if err := r.db.SelectContext(ctx, &rows, query, restaurantID); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list influencers for restaurant %s: %w", restaurantID, err)
	}

	influencers := make([]model.Influencer, 0, len(rows))
	for _, row := range rows {
		influencers = append(influencers, row.toModel())
	}
	return influencers, nil
}

// UpdateWallet はウォレットと集計値を書き込みます
func (r *InfluencerRepositoryImpl) UpdateWallet(ctx context.Context, tx *sqlx.Tx, influencer *model.Influencer) error {
	ctx, seg := xray.BeginSubsegment(ctx, "InfluencerRepository.UpdateWallet")
	defer seg.Close(nil)

	query := `
		UPDATE influencers
		SET wallet_available = :wallet_available,
			wallet_pending = :wallet_pending,
			wallet_redeemed = :wallet_redeemed,
			total_bookings = :total_bookings,
			total_spend_generated = :total_spend_generated,
			total_credits_earned = :total_credits_earned
		WHERE id = :id
	`
	result, err := tx.NamedExecContext(ctx, query, newInfluencerRow(influencer))
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to update influencer wallet: %w", err)
	}
	return expectOneRow(result, model.ErrInfluencerNotFound)
}

// UpdateSettings は手数料率の個別設定とブラックアウト日を書き込みます
func (r *InfluencerRepositoryImpl) UpdateSettings(ctx context.Context, tx *sqlx.Tx, influencer *model.Influencer) error {
	ctx, seg := xray.BeginSubsegment(ctx, "InfluencerRepository.UpdateSettings")
	defer seg.Close(nil)

	query := `
		UPDATE influencers
		SET commission_percentage = :commission_percentage,
			blackout_dates = :blackout_dates
		WHERE id = :id
	`
	result, err := tx.NamedExecContext(ctx, query, newInfluencerRow(influencer))
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to update influencer settings: %w", err)
	}
	return expectOneRow(result, model.ErrInfluencerNotFound)
}
