package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditLogType はクレジット台帳の種別です
type CreditLogType string

const (
	CreditLogEarned   CreditLogType = "earned"
	CreditLogRedeemed CreditLogType = "redeemed"
)

// RedemptionBookingRef は利用(償還)ログに記録する予約参照です
// 償還は特定の予約に紐づかないため固定値を使います
const RedemptionBookingRef = "redemption"

// RedemptionDescription は償還ログの説明文です
const RedemptionDescription = "Credits redeemed at restaurant"

// CreditLogEntry は残高を変更したイベント1件を記録する追記専用の台帳行です
type CreditLogEntry struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	InfluencerID uuid.UUID       `db:"influencer_id" json:"influencerId"`
	RestaurantID uuid.UUID       `db:"restaurant_id" json:"restaurantId"`
	BookingID    string          `db:"booking_id" json:"bookingId"`
	Amount       decimal.Decimal `db:"amount" json:"amount"`
	Type         CreditLogType   `db:"type" json:"type"`
	Description  string          `db:"description" json:"description"`
	CreatedAt    time.Time       `db:"created_at" json:"createdAt"`
}

// NewEarnedEntry は予約に対する付与ログを作成します
func NewEarnedEntry(restaurantID, influencerID, bookingID uuid.UUID, credit, rate, spend decimal.Decimal) CreditLogEntry {
	return CreditLogEntry{
		ID:           uuid.New(),
		InfluencerID: influencerID,
		RestaurantID: restaurantID,
		BookingID:    bookingID.String(),
		Amount:       credit,
		Type:         CreditLogEarned,
		Description:  AccrualDescription(rate, spend),
		CreatedAt:    time.Now().UTC(),
	}
}

// NewRedeemedEntry は償還ログを作成します
// restaurantIDは償還を受け付けたレストランで、利用累計の集計に使います
func NewRedeemedEntry(restaurantID, influencerID uuid.UUID, amount decimal.Decimal) CreditLogEntry {
	return CreditLogEntry{
		ID:           uuid.New(),
		InfluencerID: influencerID,
		RestaurantID: restaurantID,
		BookingID:    RedemptionBookingRef,
		Amount:       amount,
		Type:         CreditLogRedeemed,
		Description:  RedemptionDescription,
		CreatedAt:    time.Now().UTC(),
	}
}
