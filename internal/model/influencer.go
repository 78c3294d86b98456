package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletBalance はインフルエンサーのウォレット残高です
// Availableは常に0以上、Redeemedは単調増加します
type WalletBalance struct {
	Available decimal.Decimal `json:"available"`
	Pending   decimal.Decimal `json:"pending"`
	Redeemed  decimal.Decimal `json:"redeemed"`
}

// Influencer はレストランのアンバサダーとして紹介リンクを共有するインフルエンサーです
type Influencer struct {
	ID                   uuid.UUID           `json:"id"`
	Name                 string              `json:"name"`
	Email                string              `json:"email,omitempty"`
	ProfilePicture       string              `json:"profilePicture,omitempty"`
	RestaurantID         uuid.NullUUID       `json:"restaurantId"`
	InstagramHandle      string              `json:"instagramHandle,omitempty"`
	TiktokHandle         string              `json:"tiktokHandle,omitempty"`
	CommissionPercentage decimal.NullDecimal `json:"commissionPercentage"`
	BlackoutDates        []string            `json:"blackoutDates"`

	TotalBookings       int64           `json:"totalBookings"`
	TotalSpendGenerated decimal.Decimal `json:"totalSpendGenerated"`
	TotalCreditsEarned  decimal.Decimal `json:"totalCreditsEarned"`

	WalletBalance WalletBalance `json:"walletBalance"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// InfluencerProfile はアンバサダー作成時の入力です
type InfluencerProfile struct {
	Name            string `json:"name" validate:"required"`
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	InstagramHandle string `json:"instagramHandle,omitempty"`
	TiktokHandle    string `json:"tiktokHandle,omitempty"`
}

// NewInfluencer はウォレットと集計値をゼロで初期化したインフルエンサーを作成します
// restaurantIDがuuid.Nilの場合は未所属として扱います
func NewInfluencer(profile InfluencerProfile, restaurantID uuid.UUID) Influencer {
	inf := Influencer{
		ID:                  uuid.New(),
		Name:                profile.Name,
		Email:               profile.Email,
		InstagramHandle:     profile.InstagramHandle,
		TiktokHandle:        profile.TiktokHandle,
		BlackoutDates:       []string{},
		TotalSpendGenerated: decimal.Zero,
		TotalCreditsEarned:  decimal.Zero,
		WalletBalance: WalletBalance{
			Available: decimal.Zero,
			Pending:   decimal.Zero,
			Redeemed:  decimal.Zero,
		},
		CreatedAt: time.Now().UTC(),
	}
	if restaurantID != uuid.Nil {
		inf.RestaurantID = uuid.NullUUID{UUID: restaurantID, Valid: true}
	}
	return inf
}

// BelongsTo はインフルエンサーが指定レストランに所属しているかを返します
func (i *Influencer) BelongsTo(restaurantID uuid.UUID) bool {
	return i.RestaurantID.Valid && i.RestaurantID.UUID == restaurantID
}

// AmbassadorSettings はレストランが設定するアンバサダー個別の設定です
// nilのフィールドは変更しません
type AmbassadorSettings struct {
	CommissionPercentage *decimal.Decimal `json:"commissionPercentage,omitempty"`
	BlackoutDates        []string         `json:"blackoutDates,omitempty"`
}

// Validate は設定値の範囲と日付形式を検証します
func (s AmbassadorSettings) Validate() error {
	if s.CommissionPercentage != nil {
		if err := ValidateCommission(*s.CommissionPercentage); err != nil {
			return err
		}
	}
	for _, d := range s.BlackoutDates {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return ErrInvalidBlackoutDate
		}
	}
	return nil
}
