package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/shopspring/decimal"
	"go.uber.org/zap/zaptest"
)

func newTestReferralService(t *testing.T, env *testEnv) *ReferralService {
	return NewReferralService(env.influencers, env.restaurants, env.invitations, env.referrals, zaptest.NewLogger(t))
}

func TestReferralService_Submit(t *testing.T) {
	env := newTestEnv()
	restaurant := env.seedRestaurant(t, decimal.NullDecimal{})
	inf := env.seedInfluencer(t, restaurant.ID, 0)
	svc := newTestReferralService(t, env)

	req := model.ReferralRequest{GuestName: "Mario Rossi", Date: "2026-05-01", Guests: 4, Phone: "555-0100"}
	tests := []struct {
		name         string
		influencerID uuid.UUID
		wantErr      error
	}{
		{name: "紹介予約を作成", influencerID: inf.ID},
		{name: "存在しないインフルエンサー", influencerID: uuid.New(), wantErr: model.ErrInfluencerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			referral, err := svc.Submit(context.Background(), tt.influencerID, req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Submit() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && referral.Status != model.ReferralStatusPendingVisit {
				t.Errorf("status = %s, want pending_visit", referral.Status)
			}
		})
	}
	if len(env.store.referrals) != 1 {
		t.Errorf("referrals = %d, want 1", len(env.store.referrals))
	}
}

func TestReferralService_FindReferral(t *testing.T) {
	env := newTestEnv()
	infID := uuid.New()
	env.store.referrals = append(env.store.referrals,
		model.NewReferralBooking(infID, model.ReferralRequest{GuestName: "Mario Rossi", Date: "2026-05-01", Guests: 2, Phone: "1"}),
	)
	svc := newTestReferralService(t, env)

	tests := []struct {
		name      string
		guestName string
		wantErr   error
	}{
		{name: "完全一致", guestName: "Mario Rossi"},
		{name: "大文字小文字は区別する", guestName: "mario rossi", wantErr: model.ErrReferralNotFound},
		{name: "空のゲスト名", guestName: "", wantErr: model.ErrReferralNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			referral, err := svc.FindReferral(context.Background(), tt.guestName)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("FindReferral() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && referral.InfluencerID != infID {
				t.Errorf("influencerId = %s, want %s", referral.InfluencerID, infID)
			}
		})
	}
}

func TestReferralService_ReferralPage(t *testing.T) {
	env := newTestEnv()
	restaurant := env.seedRestaurant(t, decimal.NullDecimal{})
	bound := env.seedInfluencer(t, restaurant.ID, 0)

	// restaurantIdを持たないインフルエンサーは承諾済みの招待から解決する
	legacy := env.seedInfluencer(t, uuid.Nil, 0)
	inv := model.NewInvitation(restaurant.ID, "legacy@example.com")
	if err := inv.Accept(legacy.ID, time.Now()); err != nil {
		t.Fatal(err)
	}
	env.store.invitations[inv.ID] = inv

	orphan := env.seedInfluencer(t, uuid.Nil, 0)
	svc := newTestReferralService(t, env)

	tests := []struct {
		name           string
		influencerID   uuid.UUID
		wantRestaurant bool
		wantErr        error
	}{
		{name: "所属レストランあり", influencerID: bound.ID, wantRestaurant: true},
		{name: "招待からレストランを解決", influencerID: legacy.ID, wantRestaurant: true},
		{name: "レストラン不明", influencerID: orphan.ID},
		{name: "存在しないインフルエンサー", influencerID: uuid.New(), wantErr: model.ErrInfluencerNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.ReferralPage(context.Background(), tt.influencerID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ReferralPage() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if page.Influencer.ID != tt.influencerID {
				t.Errorf("influencer = %+v", page.Influencer)
			}
			if (page.Restaurant != nil) != tt.wantRestaurant {
				t.Fatalf("restaurant = %+v, want present=%v", page.Restaurant, tt.wantRestaurant)
			}
			if tt.wantRestaurant && page.Restaurant.ID != restaurant.ID {
				t.Errorf("restaurant id = %s, want %s", page.Restaurant.ID, restaurant.ID)
			}
		})
	}
}
