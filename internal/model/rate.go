package model

import "github.com/shopspring/decimal"

// DefaultCommissionPercentage はインフルエンサーにもレストランにも設定がない場合の手数料率(%)です
const DefaultCommissionPercentage = 10

var (
	minCommission = decimal.Zero
	maxCommission = decimal.NewFromInt(100)
)

// ResolveCommissionRate は予約に適用する手数料率(%)を決定します
// 1. インフルエンサー個別の設定(0を含む)
// 2. レストランのデフォルト設定(0以下は未設定扱い)
// 3. DefaultCommissionPercentage
// restaurantはnilでも構いません
func ResolveCommissionRate(influencer *Influencer, restaurant *Restaurant) decimal.Decimal {
	rate := decimal.NewFromInt(DefaultCommissionPercentage)
	if restaurant != nil && restaurant.DefaultCommissionPercentage.Valid &&
		restaurant.DefaultCommissionPercentage.Decimal.IsPositive() {
		rate = restaurant.DefaultCommissionPercentage.Decimal
	}
	if influencer != nil && influencer.CommissionPercentage.Valid {
		rate = influencer.CommissionPercentage.Decimal
	}
	return clampCommission(rate)
}

// ValidateCommission は手数料率が0から100の範囲にあるかを検証します
func ValidateCommission(rate decimal.Decimal) error {
	if rate.LessThan(minCommission) || rate.GreaterThan(maxCommission) {
		return ErrInvalidCommission
	}
	return nil
}

func clampCommission(rate decimal.Decimal) decimal.Decimal {
	if rate.LessThan(minCommission) {
		return minCommission
	}
	if rate.GreaterThan(maxCommission) {
		return maxCommission
	}
	return rate
}
