package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/refereat/refereat-server/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultBookingListLimit は予約一覧の既定の取得件数です
const DefaultBookingListLimit = 50

// RestaurantService はレストランのダッシュボード操作を担当します
type RestaurantService struct {
	tx             repository.Transactor
	restaurantRepo repository.RestaurantRepository
	influencerRepo repository.InfluencerRepository
	bookingRepo    repository.BookingRepository
	invitationRepo repository.InvitationRepository
	logger         *zap.Logger
}

func NewRestaurantService(
	tx repository.Transactor,
	restaurantRepo repository.RestaurantRepository,
	influencerRepo repository.InfluencerRepository,
	bookingRepo repository.BookingRepository,
	invitationRepo repository.InvitationRepository,
	logger *zap.Logger,
) *RestaurantService {
	return &RestaurantService{
		tx:             tx,
		restaurantRepo: restaurantRepo,
		influencerRepo: influencerRepo,
		bookingRepo:    bookingRepo,
		invitationRepo: invitationRepo,
		logger:         logger,
	}
}

// RestaurantStats はダッシュボードに表示する集計値です
type RestaurantStats struct {
	Restaurant        model.Restaurant `json:"restaurant"`
	AmbassadorCount   int              `json:"ambassadorCount"`
	TotalBookings     int64            `json:"totalBookings"`
	OutstandingCredit decimal.Decimal  `json:"outstandingCredit"`
}

// Stats はレストランと所属アンバサダーの集計値を返します
func (s *RestaurantService) Stats(ctx context.Context, restaurantID uuid.UUID) (*RestaurantStats, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "RestaurantService.Stats")
	defer seg.Close(nil)

	restaurant, err := s.restaurantRepo.Get(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}
	ambassadors, err := s.influencerRepo.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ambassadors: %w", err)
	}

	stats := &RestaurantStats{
		Restaurant:        *restaurant,
		AmbassadorCount:   len(ambassadors),
		OutstandingCredit: decimal.Zero,
	}
	for _, a := range ambassadors {
		stats.TotalBookings += a.TotalBookings
		stats.OutstandingCredit = stats.OutstandingCredit.Add(a.WalletBalance.Available)
	}
	return stats, nil
}

// UpdateDefaultCommission はレストランのデフォルト手数料率を更新します
// nilを渡すと未設定に戻します
func (s *RestaurantService) UpdateDefaultCommission(ctx context.Context, restaurantID uuid.UUID, rate *decimal.Decimal) error {
	ctx, seg := xray.BeginSubsegment(ctx, "RestaurantService.UpdateDefaultCommission")
	defer seg.Close(nil)

	var value decimal.NullDecimal
	if rate != nil {
		if err := model.ValidateCommission(*rate); err != nil {
			return err
		}
		value = decimal.NewNullDecimal(*rate)
	}
	if err := s.restaurantRepo.UpdateDefaultCommission(ctx, restaurantID, value); err != nil {
		return fmt.Errorf("failed to update default commission: %w", err)
	}
	return nil
}

// AddAmbassador はレストランに所属するアンバサダーを作成します
func (s *RestaurantService) AddAmbassador(ctx context.Context, restaurantID uuid.UUID, profile model.InfluencerProfile) (*model.Influencer, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "RestaurantService.AddAmbassador")
	defer seg.Close(nil)

	inf := model.NewInfluencer(profile, restaurantID)
	err := s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		return s.influencerRepo.Create(ctx, tx, &inf)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to add ambassador: %w", err)
	}

	s.logger.Info("ambassador added",
		zap.String("restaurant_id", restaurantID.String()),
		zap.String("influencer_id", inf.ID.String()),
	)
	return &inf, nil
}

// ListAmbassadors はレストランに所属するアンバサダーを返します
func (s *RestaurantService) ListAmbassadors(ctx context.Context, restaurantID uuid.UUID) ([]model.Influencer, error) {
	ambassadors, err := s.influencerRepo.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ambassadors: %w", err)
	}
	return ambassadors, nil
}

// UpdateAmbassador はアンバサダー個別の手数料率とブラックアウト日を更新します
func (s *RestaurantService) UpdateAmbassador(ctx context.Context, restaurantID, influencerID uuid.UUID, settings model.AmbassadorSettings) (*model.Influencer, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "RestaurantService.UpdateAmbassador")
	defer seg.Close(nil)

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	var updated *model.Influencer
	err := s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		inf, err := s.influencerRepo.GetForUpdate(ctx, tx, influencerID)
		if err != nil {
			return err
		}
		if err := checkAffiliation(ctx, s.invitationRepo, inf, restaurantID); err != nil {
			return err
		}

		if settings.CommissionPercentage != nil {
			inf.CommissionPercentage = decimal.NewNullDecimal(*settings.CommissionPercentage)
		}
		if settings.BlackoutDates != nil {
			inf.BlackoutDates = settings.BlackoutDates
		}
		if err := s.influencerRepo.UpdateSettings(ctx, tx, inf); err != nil {
			return err
		}
		updated = inf
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update ambassador: %w", err)
	}
	return updated, nil
}

// ListBookings はレストランの確定済み予約を新しい順に返します
func (s *RestaurantService) ListBookings(ctx context.Context, restaurantID uuid.UUID, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = DefaultBookingListLimit
	}
	bookings, err := s.bookingRepo.ListByRestaurant(ctx, restaurantID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}
