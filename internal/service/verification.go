package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/refereat/refereat-server/internal/common/utils"
	"github.com/refereat/refereat-server/internal/integration/gemini"
	"github.com/refereat/refereat-server/internal/model"
	"go.uber.org/zap"
)

const defaultExtractionTimeout = 30 * time.Second

// ErrNoVerificationInput は画像もテキストも指定されていない場合のエラーです
var ErrNoVerificationInput = errors.New("either an image file or text is required")

// BookingExtractor は予約の証跡から予約情報を抽出します
type BookingExtractor interface {
	ExtractBooking(ctx context.Context, in gemini.Input) (*model.BookingExtraction, error)
}

// ReferralFinder はゲスト名から紹介予約を探します
type ReferralFinder interface {
	FindReferral(ctx context.Context, guestName string) (*model.ReferralBooking, error)
}

// VerificationService は予約証跡の解析と紹介予約の照合を担当します
// 解析結果は提案のみで、何も書き込みません
type VerificationService struct {
	extractor BookingExtractor
	referrals ReferralFinder
	timeout   time.Duration
	logger    *zap.Logger
}

func NewVerificationService(extractor BookingExtractor, referrals ReferralFinder, timeout time.Duration, logger *zap.Logger) *VerificationService {
	if timeout <= 0 {
		timeout = defaultExtractionTimeout
	}
	return &VerificationService{
		extractor: extractor,
		referrals: referrals,
		timeout:   timeout,
		logger:    logger,
	}
}

// SuggestedReferral は抽出したゲスト名に一致した紹介予約です
type SuggestedReferral struct {
	ReferralBookingID uuid.UUID `json:"referralBookingId"`
	InfluencerID      uuid.UUID `json:"influencerId"`
	Date              string    `json:"date"`
	Guests            int       `json:"guests"`
}

// VerificationResult は解析結果です。一致する紹介予約がない場合Suggestionはnilです
type VerificationResult struct {
	Extraction model.BookingExtraction `json:"extraction"`
	Suggestion *SuggestedReferral      `json:"suggestedReferral"`
}

// Analyze は証跡から予約情報を抽出し、ゲスト名で紹介予約を照合します
func (s *VerificationService) Analyze(ctx context.Context, in gemini.Input) (*VerificationResult, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "VerificationService.Analyze")
	defer seg.Close(nil)

	if len(in.Image) == 0 && in.Text == "" {
		return nil, ErrNoVerificationInput
	}

	var extraction *model.BookingExtraction
	err := utils.RunWithTimeout(ctx, s.timeout, func(ctx context.Context) error {
		var err error
		extraction, err = s.extractor.ExtractBooking(ctx, in)
		return err
	})
	if err != nil {
		s.logger.Warn("booking extraction failed", zap.Error(err))
		if errors.Is(err, model.ErrExtractionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", model.ErrExtractionFailed, err)
	}

	result := &VerificationResult{Extraction: *extraction}
	referral, err := s.referrals.FindReferral(ctx, extraction.GuestName)
	switch {
	case errors.Is(err, model.ErrReferralNotFound):
	case err != nil:
		return nil, err
	default:
		result.Suggestion = &SuggestedReferral{
			ReferralBookingID: referral.ID,
			InfluencerID:      referral.InfluencerID,
			Date:              referral.Date,
			Guests:            referral.Guests,
		}
	}
	return result, nil
}
