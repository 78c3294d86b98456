package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Restaurant はアンバサダープログラムを運営するレストランを表す構造体です
// TotalRevenueGeneratedとTotalCreditsSpentは予約と台帳から読み出し時に集計されます
type Restaurant struct {
	ID                          uuid.UUID           `db:"id" json:"id"`
	Name                        string              `db:"name" json:"name"`
	Email                       string              `db:"email" json:"email"`
	Address                     string              `db:"address" json:"address,omitempty"`
	Logo                        string              `db:"logo" json:"logo,omitempty"`
	DefaultCommissionPercentage decimal.NullDecimal `db:"default_commission_percentage" json:"defaultCommissionPercentage"`
	TotalRevenueGenerated       decimal.Decimal     `db:"total_revenue_generated" json:"totalRevenueGenerated"`
	TotalCreditsSpent           decimal.Decimal     `db:"total_credits_spent" json:"totalCreditsSpent"`
	CreatedAt                   time.Time           `db:"created_at" json:"createdAt"`
}

// NewRestaurant は集計値をゼロで初期化したレストランを作成します
func NewRestaurant(name, email, address string, defaultCommission decimal.NullDecimal) Restaurant {
	return Restaurant{
		ID:                          uuid.New(),
		Name:                        name,
		Email:                       email,
		Address:                     address,
		DefaultCommissionPercentage: defaultCommission,
		TotalRevenueGenerated:       decimal.Zero,
		TotalCreditsSpent:           decimal.Zero,
		CreatedAt:                   time.Now().UTC(),
	}
}
