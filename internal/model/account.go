package model

import (
	"time"

	"github.com/google/uuid"
)

// Role はアカウントの種別です
type Role string

const (
	RoleRestaurant Role = "restaurant"
	RoleInfluencer Role = "influencer"
)

// Account はログイン用のアカウントです
// ProfileIDはRoleに応じてレストランまたはインフルエンサーのIDを指します
type Account struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	ProfileID    uuid.UUID `db:"profile_id" json:"profileId"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// NewAccount はアカウントを作成します
func NewAccount(email, passwordHash string, role Role, profileID uuid.UUID) Account {
	return Account{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		ProfileID:    profileID,
		CreatedAt:    time.Now().UTC(),
	}
}
