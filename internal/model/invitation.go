package model

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus は招待の状態です
// pending -> accepted の一方向のみ遷移します
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "pending"
	InvitationStatusAccepted InvitationStatus = "accepted"
)

// Invitation はレストランからメールアドレス宛てのアンバサダー招待です
type Invitation struct {
	ID           uuid.UUID        `db:"id" json:"id"`
	RestaurantID uuid.UUID        `db:"restaurant_id" json:"restaurantId"`
	Email        string           `db:"email" json:"email"`
	Status       InvitationStatus `db:"status" json:"status"`
	AcceptedBy   uuid.NullUUID    `db:"accepted_by" json:"acceptedBy"`
	AcceptedAt   *time.Time       `db:"accepted_at" json:"acceptedAt,omitempty"`
	CreatedAt    time.Time        `db:"created_at" json:"createdAt"`
}

// NewInvitation はpending状態の招待を作成します
func NewInvitation(restaurantID uuid.UUID, email string) Invitation {
	return Invitation{
		ID:           uuid.New(),
		RestaurantID: restaurantID,
		Email:        email,
		Status:       InvitationStatusPending,
		CreatedAt:    time.Now().UTC(),
	}
}

// Accept は招待を承諾済みにします
// 承諾済みの招待に対してはErrInvitationAcceptedを返します
func (i *Invitation) Accept(influencerID uuid.UUID, at time.Time) error {
	if i.Status == InvitationStatusAccepted {
		return ErrInvitationAccepted
	}
	i.Status = InvitationStatusAccepted
	i.AcceptedBy = uuid.NullUUID{UUID: influencerID, Valid: true}
	i.AcceptedAt = &at
	return nil
}
