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
	"github.com/shopspring/decimal"
)

type RestaurantRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, restaurant *model.Restaurant) error
	Get(ctx context.Context, id uuid.UUID) (*model.Restaurant, error)
	UpdateDefaultCommission(ctx context.Context, id uuid.UUID, rate decimal.NullDecimal) error
}

type RestaurantRepositoryImpl struct {
	db *DB
}

func NewRestaurantRepository(db *DB) *RestaurantRepositoryImpl {
	return &RestaurantRepositoryImpl{db: db}
}

const restaurantColumns = `
	id,
	name,
	email,
	address,
	logo,
	default_commission_percentage,
	created_at`

// 売上と利用の累計はレストラン行に持たず、予約と台帳から集計します
// 共有のレストラン行を更新しないため、アンバサダーごとのトランザクションは互いに競合しません
const restaurantTotals = `
	COALESCE((
		SELECT SUM(b.total_spend) FROM bookings b WHERE b.restaurant_id = r.id
	), 0) AS total_revenue_generated,
	COALESCE((
		SELECT SUM(c.amount) FROM credit_logs c WHERE c.restaurant_id = r.id AND c.type = 'redeemed'
	), 0) AS total_credits_spent`

// Create はレストランを作成します
func (r *RestaurantRepositoryImpl) Create(ctx context.Context, tx *sqlx.Tx, restaurant *model.Restaurant) error {
	ctx, seg := xray.BeginSubsegment(ctx, "RestaurantRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO restaurants (` + restaurantColumns + `
		) VALUES (
			:id,
			:name,
			:email,
			:address,
			:logo,
			:default_commission_percentage,
			:created_at
		)
	`
	if _, err := tx.NamedExecContext(ctx, query, restaurant); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to create restaurant: %w", err)
	}
	return nil
}

// Get はIDでレストランを取得します
func (r *RestaurantRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*model.Restaurant, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "RestaurantRepository.Get")
	defer seg.Close(nil)

	query := `
		SELECT
			r.id,
			r.name,
			r.email,
			r.address,
			r.logo,
			r.default_commission_percentage,
			r.created_at,` + restaurantTotals + `
		FROM restaurants r
		WHERE r.id = $1
	`

	var restaurant model.Restaurant
	if err := r.db.GetContext(ctx, &restaurant, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrRestaurantNotFound
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get restaurant %s: %w", id, err)
	}
	return &restaurant, nil
}

// UpdateDefaultCommission はレストランのデフォルト手数料率を更新します
func (r *RestaurantRepositoryImpl) UpdateDefaultCommission(ctx context.Context, id uuid.UUID, rate decimal.NullDecimal) error {
	ctx, seg := xray.BeginSubsegment(ctx, "RestaurantRepository.UpdateDefaultCommission")
	defer seg.Close(nil)

	query := `UPDATE restaurants SET default_commission_percentage = $1 WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, rate, id)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to update default commission: %w", err)
	}
	return expectOneRow(result, model.ErrRestaurantNotFound)
}

// expectOneRow は更新対象が存在しない場合にnotFoundを返します
func expectOneRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}
