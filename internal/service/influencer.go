package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/refereat/refereat-server/internal/repository"
)

// InfluencerService はインフルエンサー本人向けの参照を担当します
type InfluencerService struct {
	influencerRepo repository.InfluencerRepository
	baseURL        string
}

func NewInfluencerService(influencerRepo repository.InfluencerRepository, baseURL string) *InfluencerService {
	return &InfluencerService{influencerRepo: influencerRepo, baseURL: baseURL}
}

func (s *InfluencerService) Profile(ctx context.Context, influencerID uuid.UUID) (*model.Influencer, error) {
	inf, err := s.influencerRepo.Get(ctx, influencerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get influencer: %w", err)
	}
	return inf, nil
}

// Link は共有用の紹介リンクを返します
func (s *InfluencerService) Link(influencerID uuid.UUID) string {
	return fmt.Sprintf("%s/r/%s", s.baseURL, influencerID)
}
