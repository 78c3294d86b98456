package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Migrations はスキーマ作成のSQLを返します
// 各文は冪等で、何度実行しても結果は変わりません
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS restaurants (
			id                            UUID PRIMARY KEY,
			name                          TEXT NOT NULL,
			email                         TEXT NOT NULL,
			address                       TEXT NOT NULL DEFAULT '',
			logo                          TEXT NOT NULL DEFAULT '',
			default_commission_percentage NUMERIC(5,2),
			created_at                    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		`CREATE TABLE IF NOT EXISTS influencers (
			id                    UUID PRIMARY KEY,
			name                  TEXT NOT NULL,
			email                 TEXT NOT NULL DEFAULT '',
			profile_picture       TEXT NOT NULL DEFAULT '',
			restaurant_id         UUID REFERENCES restaurants(id),
			instagram_handle      TEXT NOT NULL DEFAULT '',
			tiktok_handle         TEXT NOT NULL DEFAULT '',
			commission_percentage NUMERIC(5,2),
			blackout_dates        TEXT[] NOT NULL DEFAULT '{}',
			total_bookings        BIGINT NOT NULL DEFAULT 0,
			total_spend_generated NUMERIC(14,2) NOT NULL DEFAULT 0,
			total_credits_earned  NUMERIC(14,4) NOT NULL DEFAULT 0,
			wallet_available      NUMERIC(14,4) NOT NULL DEFAULT 0 CHECK (wallet_available >= 0),
			wallet_pending        NUMERIC(14,4) NOT NULL DEFAULT 0,
			wallet_redeemed       NUMERIC(14,4) NOT NULL DEFAULT 0,
			created_at            TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_influencers_restaurant ON influencers(restaurant_id)`,

		`CREATE TABLE IF NOT EXISTS referral_bookings (
			id                 UUID PRIMARY KEY,
			influencer_id      UUID NOT NULL REFERENCES influencers(id),
			guest_name         TEXT NOT NULL,
			date               TEXT NOT NULL,
			guests             INTEGER NOT NULL,
			phone              TEXT NOT NULL,
			status             TEXT NOT NULL DEFAULT 'pending_visit',
			matched_booking_id UUID,
			created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_referral_bookings_guest ON referral_bookings(guest_name, status)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id                  UUID PRIMARY KEY,
			restaurant_id       UUID NOT NULL REFERENCES restaurants(id),
			influencer_id       UUID NOT NULL REFERENCES influencers(id),
			guest_name          TEXT NOT NULL,
			booking_date        TIMESTAMPTZ NOT NULL,
			covers              INTEGER NOT NULL DEFAULT 0,
			total_spend         NUMERIC(14,2) NOT NULL DEFAULT 0,
			status              TEXT NOT NULL,
			proof_image_url     TEXT NOT NULL DEFAULT '',
			referral_booking_id UUID REFERENCES referral_bookings(id),
			created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_restaurant ON bookings(restaurant_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_influencer ON bookings(influencer_id)`,

		`CREATE TABLE IF NOT EXISTS credit_logs (
			id            UUID PRIMARY KEY,
			influencer_id UUID NOT NULL REFERENCES influencers(id),
			restaurant_id UUID NOT NULL REFERENCES restaurants(id),
			booking_id    TEXT NOT NULL,
			amount        NUMERIC(14,4) NOT NULL CHECK (amount > 0),
			type          TEXT NOT NULL CHECK (type IN ('earned', 'redeemed')),
			description   TEXT NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_credit_logs_influencer ON credit_logs(influencer_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_credit_logs_restaurant ON credit_logs(restaurant_id, type)`,

		`CREATE TABLE IF NOT EXISTS invitations (
			id            UUID PRIMARY KEY,
			restaurant_id UUID NOT NULL REFERENCES restaurants(id),
			email         TEXT NOT NULL,
			status        TEXT NOT NULL DEFAULT 'pending',
			accepted_by   UUID REFERENCES influencers(id),
			accepted_at   TIMESTAMPTZ,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_invitations_restaurant ON invitations(restaurant_id, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_invitations_accepted_by ON invitations(accepted_by)`,

		`CREATE TABLE IF NOT EXISTS accounts (
			id            UUID PRIMARY KEY,
			email         TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			role          TEXT NOT NULL CHECK (role IN ('restaurant', 'influencer')),
			profile_id    UUID NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_accounts_email ON accounts(LOWER(email))`,
	}
}

// Migrate はスキーマを作成します
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range Migrations() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply migration %d: %w", i, err)
		}
	}
	return nil
}
