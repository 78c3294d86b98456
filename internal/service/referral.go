package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/refereat/refereat-server/internal/repository"
	"go.uber.org/zap"
)

// ReferralService は紹介リンク経由の予約リクエストと紹介ページを担当します
type ReferralService struct {
	influencerRepo repository.InfluencerRepository
	restaurantRepo repository.RestaurantRepository
	invitationRepo repository.InvitationRepository
	referralRepo   repository.ReferralRepository
	logger         *zap.Logger
}

func NewReferralService(
	influencerRepo repository.InfluencerRepository,
	restaurantRepo repository.RestaurantRepository,
	invitationRepo repository.InvitationRepository,
	referralRepo repository.ReferralRepository,
	logger *zap.Logger,
) *ReferralService {
	return &ReferralService{
		influencerRepo: influencerRepo,
		restaurantRepo: restaurantRepo,
		invitationRepo: invitationRepo,
		referralRepo:   referralRepo,
		logger:         logger,
	}
}

// PublicInfluencer は紹介ページに公開するインフルエンサー情報です
type PublicInfluencer struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	ProfilePicture  string    `json:"profilePicture,omitempty"`
	InstagramHandle string    `json:"instagramHandle,omitempty"`
	TiktokHandle    string    `json:"tiktokHandle,omitempty"`
	BlackoutDates   []string  `json:"blackoutDates"`
}

// PublicRestaurant は紹介ページに公開するレストラン情報です
type PublicRestaurant struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address,omitempty"`
	Logo    string    `json:"logo,omitempty"`
}

// ReferralPage は紹介ページの表示データです
// 所属レストランが特定できない場合Restaurantはnilです
type ReferralPage struct {
	Influencer PublicInfluencer  `json:"influencer"`
	Restaurant *PublicRestaurant `json:"restaurant"`
}

// ReferralPage はインフルエンサーの紹介ページのデータを返します
// restaurantIdを持たない古いインフルエンサーは、承諾済みの招待からレストランを解決します
func (s *ReferralService) ReferralPage(ctx context.Context, influencerID uuid.UUID) (*ReferralPage, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReferralService.ReferralPage")
	defer seg.Close(nil)

	inf, err := s.influencerRepo.Get(ctx, influencerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get influencer: %w", err)
	}

	page := &ReferralPage{
		Influencer: PublicInfluencer{
			ID:              inf.ID,
			Name:            inf.Name,
			ProfilePicture:  inf.ProfilePicture,
			InstagramHandle: inf.InstagramHandle,
			TiktokHandle:    inf.TiktokHandle,
			BlackoutDates:   inf.BlackoutDates,
		},
	}

	restaurantID, err := affiliatedRestaurant(ctx, s.invitationRepo, inf)
	if err != nil {
		return nil, err
	}
	if !restaurantID.Valid {
		return page, nil
	}

	restaurant, err := s.restaurantRepo.Get(ctx, restaurantID.UUID)
	if errors.Is(err, model.ErrRestaurantNotFound) {
		s.logger.Warn("influencer references a missing restaurant",
			zap.String("influencer_id", influencerID.String()),
			zap.String("restaurant_id", restaurantID.UUID.String()),
		)
		return page, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}
	page.Restaurant = &PublicRestaurant{
		ID:      restaurant.ID,
		Name:    restaurant.Name,
		Address: restaurant.Address,
		Logo:    restaurant.Logo,
	}
	return page, nil
}

// Submit は公開フォームからの予約リクエストをpending_visitとして保存します
func (s *ReferralService) Submit(ctx context.Context, influencerID uuid.UUID, req model.ReferralRequest) (*model.ReferralBooking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReferralService.Submit")
	defer seg.Close(nil)

	if _, err := s.influencerRepo.Get(ctx, influencerID); err != nil {
		return nil, fmt.Errorf("failed to get influencer: %w", err)
	}

	referral := model.NewReferralBooking(influencerID, req)
	if err := s.referralRepo.Create(ctx, &referral); err != nil {
		return nil, fmt.Errorf("failed to submit referral booking: %w", err)
	}

	s.logger.Info("referral booking submitted",
		zap.String("referral_id", referral.ID.String()),
		zap.String("influencer_id", influencerID.String()),
	)
	return &referral, nil
}

// FindReferral はゲスト名が完全一致するpending_visitの紹介予約を返します
// 照合結果は参考情報で、クレジットの付与は行いません
func (s *ReferralService) FindReferral(ctx context.Context, guestName string) (*model.ReferralBooking, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "ReferralService.FindReferral")
	defer seg.Close(nil)

	if guestName == "" {
		return nil, model.ErrReferralNotFound
	}
	referral, err := s.referralRepo.FindPendingByGuestName(ctx, guestName)
	if err != nil {
		return nil, fmt.Errorf("failed to find referral: %w", err)
	}
	return referral, nil
}
