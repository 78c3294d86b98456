package service

import (
	"context"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/refereat/refereat-server/internal/monitoring"
	"github.com/refereat/refereat-server/internal/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LedgerService はクレジットの付与・利用と台帳を担当します
// ウォレットを変更する操作はすべて1つのトランザクションで、インフルエンサーの行をロックして行います
// レストラン行は更新しないため、別のインフルエンサーの操作どうしは競合しません
type LedgerService struct {
	tx             repository.Transactor
	influencerRepo repository.InfluencerRepository
	restaurantRepo repository.RestaurantRepository
	bookingRepo    repository.BookingRepository
	creditLogRepo  repository.CreditLogRepository
	referralRepo   repository.ReferralRepository
	invitationRepo repository.InvitationRepository
	publisher      EventPublisher
	logger         *zap.Logger
}

type LedgerServiceDeps struct {
	Tx             repository.Transactor
	InfluencerRepo repository.InfluencerRepository
	RestaurantRepo repository.RestaurantRepository
	BookingRepo    repository.BookingRepository
	CreditLogRepo  repository.CreditLogRepository
	ReferralRepo   repository.ReferralRepository
	InvitationRepo repository.InvitationRepository
	Publisher      EventPublisher
	Logger         *zap.Logger
}

// NewLedgerService は新しいLedgerServiceを作成します
func NewLedgerService(deps LedgerServiceDeps) *LedgerService {
	return &LedgerService{
		tx:             deps.Tx,
		influencerRepo: deps.InfluencerRepo,
		restaurantRepo: deps.RestaurantRepo,
		bookingRepo:    deps.BookingRepo,
		creditLogRepo:  deps.CreditLogRepo,
		referralRepo:   deps.ReferralRepo,
		invitationRepo: deps.InvitationRepo,
		publisher:      deps.Publisher,
		logger:         deps.Logger,
	}
}

// AccrualResult は予約確定の結果です
type AccrualResult struct {
	Booking    model.Booking    `json:"booking"`
	Credit     decimal.Decimal  `json:"credit"`
	Rate       decimal.Decimal  `json:"rate"`
	Influencer model.Influencer `json:"influencer"`
}

// RecordVerifiedBooking は検証済みの予約を確定し、インフルエンサーにクレジットを付与します
// 予約の作成、ウォレット・集計値の更新、台帳への追記、紹介予約の消費を
// 1つのトランザクションで行います。レストランの売上累計は予約から集計されます
func (s *LedgerService) RecordVerifiedBooking(ctx context.Context, restaurantID uuid.UUID, in model.VerifiedBookingInput) (result *AccrualResult, err error) {
	ctx, seg := xray.BeginSubsegment(ctx, "LedgerService.RecordVerifiedBooking")
	defer seg.Close(nil)
	defer func() { monitoring.ObserveLedger("accrual", err) }()

	if err := model.ValidateSpend(in.Spend()); err != nil {
		return nil, err
	}

	restaurant, err := s.restaurantRepo.Get(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}

	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		inf, err := s.influencerRepo.GetForUpdate(ctx, tx, in.InfluencerID)
		if err != nil {
			return err
		}
		if err := checkAffiliation(ctx, s.invitationRepo, inf, restaurantID); err != nil {
			return err
		}

		rate := model.ResolveCommissionRate(inf, restaurant)
		spend := in.Spend()
		credit := model.ComputeCredit(spend, rate)

		booking := model.NewConfirmedBooking(restaurantID, in)
		if err := s.bookingRepo.Create(ctx, tx, &booking); err != nil {
			return err
		}

		inf.ApplyAccrual(spend, credit)
		if err := s.influencerRepo.UpdateWallet(ctx, tx, inf); err != nil {
			return err
		}

		// 0円の付与は台帳に残さない
		if credit.IsPositive() {
			entry := model.NewEarnedEntry(restaurantID, inf.ID, booking.ID, credit, rate, spend)
			if err := s.creditLogRepo.Append(ctx, tx, &entry); err != nil {
				return err
			}
		}

		if booking.ReferralBookingID.Valid {
			if err := s.referralRepo.MarkMatched(ctx, tx, booking.ReferralBookingID.UUID, inf.ID, booking.ID); err != nil {
				return err
			}
		}

		result = &AccrualResult{Booking: booking, Credit: credit, Rate: rate, Influencer: *inf}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record booking: %w", err)
	}

	monitoring.CreditsEarnedTotal.Add(result.Credit.InexactFloat64())
	s.logger.Info("booking recorded",
		zap.String("booking_id", result.Booking.ID.String()),
		zap.String("influencer_id", result.Influencer.ID.String()),
		zap.String("credit", result.Credit.String()),
		zap.String("rate", result.Rate.String()),
	)
	if result.Credit.IsPositive() {
		publishEvent(ctx, s.publisher, s.logger, model.NewCreditEarnedEvent(result.Booking, result.Credit, result.Rate))
	}
	return result, nil
}

// Redeem はインフルエンサーのクレジットを利用します
// 残高不足の場合は何も書き込まずにmodel.ErrInsufficientFundsを返します
func (s *LedgerService) Redeem(ctx context.Context, restaurantID, influencerID uuid.UUID, amount decimal.Decimal) (inf *model.Influencer, err error) {
	ctx, seg := xray.BeginSubsegment(ctx, "LedgerService.Redeem")
	defer seg.Close(nil)
	defer func() { monitoring.ObserveLedger("redemption", err) }()

	if err := model.ValidateAmount(amount); err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		locked, err := s.influencerRepo.GetForUpdate(ctx, tx, influencerID)
		if err != nil {
			return err
		}
		if err := checkAffiliation(ctx, s.invitationRepo, locked, restaurantID); err != nil {
			return err
		}

		if err := locked.ApplyRedemption(amount); err != nil {
			return err
		}
		if err := s.influencerRepo.UpdateWallet(ctx, tx, locked); err != nil {
			return err
		}

		entry := model.NewRedeemedEntry(restaurantID, locked.ID, amount)
		if err := s.creditLogRepo.Append(ctx, tx, &entry); err != nil {
			return err
		}

		inf = locked
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to redeem credits: %w", err)
	}

	monitoring.CreditsRedeemedTotal.Add(amount.InexactFloat64())
	s.logger.Info("credits redeemed",
		zap.String("influencer_id", inf.ID.String()),
		zap.String("amount", amount.String()),
		zap.String("available", inf.WalletBalance.Available.String()),
	)
	publishEvent(ctx, s.publisher, s.logger, model.NewCreditRedeemedEvent(inf.ID, amount, inf.WalletBalance.Available))
	return inf, nil
}

// History はインフルエンサーの台帳を新しい順に返します
func (s *LedgerService) History(ctx context.Context, influencerID uuid.UUID) ([]model.CreditLogEntry, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "LedgerService.History")
	defer seg.Close(nil)

	entries, err := s.creditLogRepo.ListByInfluencer(ctx, influencerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get credit history: %w", err)
	}
	return entries, nil
}

// Reconcile は台帳の合計とウォレットのキャッシュ値を突き合わせます
func (s *LedgerService) Reconcile(ctx context.Context, restaurantID, influencerID uuid.UUID) (*model.ReconciliationReport, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "LedgerService.Reconcile")
	defer seg.Close(nil)

	inf, err := s.influencerRepo.Get(ctx, influencerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get influencer: %w", err)
	}
	if err := checkAffiliation(ctx, s.invitationRepo, inf, restaurantID); err != nil {
		return nil, err
	}

	totals, err := s.creditLogRepo.Totals(ctx, influencerID)
	if err != nil {
		return nil, fmt.Errorf("failed to total credit logs: %w", err)
	}

	report := model.Reconcile(inf, totals)
	if !report.Consistent {
		s.logger.Warn("wallet drift detected",
			zap.String("influencer_id", influencerID.String()),
			zap.String("earned_logged", report.EarnedLogged.String()),
			zap.String("wallet_earned", report.WalletEarned.String()),
			zap.String("redeemed_logged", report.RedeemedLogged.String()),
			zap.String("wallet_redeemed", report.WalletRedeemed.String()),
		)
	}
	return &report, nil
}
