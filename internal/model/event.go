package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType は台帳イベントの種類を表します
type EventType string

const (
	// EventTypeCreditEarned はクレジット付与時のイベントです
	EventTypeCreditEarned EventType = "credit_earned"
	// EventTypeCreditRedeemed はクレジット利用時のイベントです
	EventTypeCreditRedeemed EventType = "credit_redeemed"
	// EventTypeInvitationAccepted は招待承諾時のイベントです
	EventTypeInvitationAccepted EventType = "invitation_accepted"
)

// Event はトランザクション確定後にワークフローへ渡すイベントIFです
type Event struct {
	Type      EventType      `json:"type"`
	CreatedAt time.Time      `json:"createdAt"`
	Data      map[string]any `json:"data"`
}

// NewCreditEarnedEvent は予約確定によるクレジット付与からイベントを作成します
func NewCreditEarnedEvent(booking Booking, credit, rate decimal.Decimal) Event {
	return Event{
		Type:      EventTypeCreditEarned,
		CreatedAt: time.Now().UTC(),
		Data: map[string]any{
			"influencerId": booking.InfluencerID.String(),
			"restaurantId": booking.RestaurantID.String(),
			"bookingId":    booking.ID.String(),
			"amount":       credit.String(),
			"rate":         rate.String(),
			"totalSpend":   booking.TotalSpend.String(),
		},
	}
}

// NewCreditRedeemedEvent はクレジット利用からイベントを作成します
func NewCreditRedeemedEvent(influencerID uuid.UUID, amount decimal.Decimal, available decimal.Decimal) Event {
	return Event{
		Type:      EventTypeCreditRedeemed,
		CreatedAt: time.Now().UTC(),
		Data: map[string]any{
			"influencerId": influencerID.String(),
			"amount":       amount.String(),
			"available":    available.String(),
		},
	}
}

// NewInvitationAcceptedEvent は招待承諾からイベントを作成します
func NewInvitationAcceptedEvent(inv Invitation) Event {
	data := map[string]any{
		"invitationId": inv.ID.String(),
		"restaurantId": inv.RestaurantID.String(),
		"email":        inv.Email,
	}
	if inv.AcceptedBy.Valid {
		data["influencerId"] = inv.AcceptedBy.UUID.String()
	}
	return Event{
		Type:      EventTypeInvitationAccepted,
		CreatedAt: time.Now().UTC(),
		Data:      data,
	}
}
