package model

import (
	"time"

	"github.com/google/uuid"
)

// ReferralStatus は紹介予約リクエストの状態です
type ReferralStatus string

const (
	ReferralStatusPendingVisit ReferralStatus = "pending_visit"
	ReferralStatusMatched      ReferralStatus = "matched"
)

// ReferralBooking はインフルエンサーのリンクから公開フォームで送信された予約リクエストです
// 来店の意図を表すだけで、クレジットは発生しません
type ReferralBooking struct {
	ID               uuid.UUID      `db:"id" json:"id"`
	InfluencerID     uuid.UUID      `db:"influencer_id" json:"influencerId"`
	GuestName        string         `db:"guest_name" json:"guestName"`
	Date             string         `db:"date" json:"date"`
	Guests           int            `db:"guests" json:"guests"`
	Phone            string         `db:"phone" json:"phone"`
	Status           ReferralStatus `db:"status" json:"status"`
	MatchedBookingID uuid.NullUUID  `db:"matched_booking_id" json:"matchedBookingId"`
	CreatedAt        time.Time      `db:"created_at" json:"createdAt"`
}

// ReferralRequest は公開予約フォームの入力です
type ReferralRequest struct {
	GuestName string `json:"guestName" validate:"required"`
	Date      string `json:"date" validate:"required"`
	Guests    int    `json:"guests" validate:"required"`
	Phone     string `json:"phone" validate:"required"`
}

// NewReferralBooking はpending_visit状態の紹介予約を作成します
func NewReferralBooking(influencerID uuid.UUID, req ReferralRequest) ReferralBooking {
	return ReferralBooking{
		ID:           uuid.New(),
		InfluencerID: influencerID,
		GuestName:    req.GuestName,
		Date:         req.Date,
		Guests:       req.Guests,
		Phone:        req.Phone,
		Status:       ReferralStatusPendingVisit,
		CreatedAt:    time.Now().UTC(),
	}
}
