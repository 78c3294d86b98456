package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus は予約のライフサイクル状態です
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusRedeemed  BookingStatus = "redeemed"
)

// Booking は検証済みでクレジット付与対象となる来店です
type Booking struct {
	ID                uuid.UUID       `db:"id" json:"id"`
	RestaurantID      uuid.UUID       `db:"restaurant_id" json:"restaurantId"`
	InfluencerID      uuid.UUID       `db:"influencer_id" json:"influencerId"`
	GuestName         string          `db:"guest_name" json:"guestName"`
	BookingDate       time.Time       `db:"booking_date" json:"bookingDate"`
	Covers            int             `db:"covers" json:"covers"`
	TotalSpend        decimal.Decimal `db:"total_spend" json:"totalSpend"`
	Status            BookingStatus   `db:"status" json:"status"`
	ProofImageURL     string          `db:"proof_image_url" json:"proofImageUrl,omitempty"`
	ReferralBookingID uuid.NullUUID   `db:"referral_booking_id" json:"referralBookingId"`
	CreatedAt         time.Time       `db:"created_at" json:"createdAt"`
}

// VerifiedBookingInput はレストランが確認した予約の入力です
type VerifiedBookingInput struct {
	InfluencerID      uuid.UUID        `json:"influencerId" validate:"required"`
	GuestName         string           `json:"guestName" validate:"required"`
	BookingDate       time.Time        `json:"bookingDate" validate:"required"`
	Covers            int              `json:"covers" validate:"gte=0"`
	TotalSpend        *decimal.Decimal `json:"totalSpend,omitempty"`
	ProofImageURL     string           `json:"proofImageUrl,omitempty"`
	ReferralBookingID *uuid.UUID       `json:"referralBookingId,omitempty"`
}

// Spend は利用金額を返します。未入力の場合は0です
func (in VerifiedBookingInput) Spend() decimal.Decimal {
	if in.TotalSpend == nil {
		return decimal.Zero
	}
	return *in.TotalSpend
}

// NewConfirmedBooking は検証済み予約をconfirmed状態で作成します
func NewConfirmedBooking(restaurantID uuid.UUID, in VerifiedBookingInput) Booking {
	b := Booking{
		ID:            uuid.New(),
		RestaurantID:  restaurantID,
		InfluencerID:  in.InfluencerID,
		GuestName:     in.GuestName,
		BookingDate:   in.BookingDate,
		Covers:        in.Covers,
		TotalSpend:    in.Spend(),
		Status:        BookingStatusConfirmed,
		ProofImageURL: in.ProofImageURL,
		CreatedAt:     time.Now().UTC(),
	}
	if in.ReferralBookingID != nil {
		b.ReferralBookingID = uuid.NullUUID{UUID: *in.ReferralBookingID, Valid: true}
	}
	return b
}
