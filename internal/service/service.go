package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/refereat/refereat-server/internal/monitoring"
	"github.com/refereat/refereat-server/internal/repository"
	"go.uber.org/zap"
)

// EventPublisher は台帳イベントを下流のワークフローへ発行します
type EventPublisher interface {
	Publish(ctx context.Context, event model.Event) error
}

// publishEvent はコミット済みの操作のイベントを発行します
// 発行の失敗はログとメトリクスに残し、呼び出し元には返しません
func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, event model.Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, event); err != nil {
		monitoring.EventPublishFailuresTotal.WithLabelValues(string(event.Type)).Inc()
		logger.Warn("failed to publish event",
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}

// affiliatedRestaurant はインフルエンサーの所属レストランを解決します
// restaurantIdを持たないインフルエンサーは、承諾済みの招待のレストランに所属するとみなします
// どちらもない場合はValid=falseを返します
func affiliatedRestaurant(ctx context.Context, invitations repository.InvitationRepository, inf *model.Influencer) (uuid.NullUUID, error) {
	if inf.RestaurantID.Valid {
		return inf.RestaurantID, nil
	}
	inv, err := invitations.FindAcceptedBy(ctx, inf.ID)
	if errors.Is(err, model.ErrInvitationNotFound) {
		return uuid.NullUUID{}, nil
	}
	if err != nil {
		return uuid.NullUUID{}, fmt.Errorf("failed to resolve restaurant from invitation: %w", err)
	}
	return uuid.NullUUID{UUID: inv.RestaurantID, Valid: true}, nil
}

// checkAffiliation はインフルエンサーが指定レストランのアンバサダーでなければmodel.ErrForbiddenを返します
func checkAffiliation(ctx context.Context, invitations repository.InvitationRepository, inf *model.Influencer, restaurantID uuid.UUID) error {
	affiliated, err := affiliatedRestaurant(ctx, invitations, inf)
	if err != nil {
		return err
	}
	if !affiliated.Valid || affiliated.UUID != restaurantID {
		return model.ErrForbidden
	}
	return nil
}
