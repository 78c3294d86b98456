package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/refereat/refereat-server/internal/auth"
	"github.com/refereat/refereat-server/internal/integration/mail"
	"github.com/refereat/refereat-server/internal/model"
	"github.com/refereat/refereat-server/internal/repository"
	"go.uber.org/zap"
)

// InvitationMailer は招待メールを送信します
type InvitationMailer interface {
	SendInvitation(ctx context.Context, email mail.InvitationEmail) error
}

// InvitationService はアンバサダー招待のライフサイクルを担当します
type InvitationService struct {
	tx             repository.Transactor
	invitationRepo repository.InvitationRepository
	restaurantRepo repository.RestaurantRepository
	influencerRepo repository.InfluencerRepository
	accountRepo    repository.AccountRepository
	mailer         InvitationMailer
	publisher      EventPublisher
	baseURL        string
	logger         *zap.Logger
}

type InvitationServiceDeps struct {
	Tx             repository.Transactor
	InvitationRepo repository.InvitationRepository
	RestaurantRepo repository.RestaurantRepository
	InfluencerRepo repository.InfluencerRepository
	AccountRepo    repository.AccountRepository
	Mailer         InvitationMailer
	Publisher      EventPublisher
	BaseURL        string
	Logger         *zap.Logger
}

func NewInvitationService(deps InvitationServiceDeps) *InvitationService {
	return &InvitationService{
		tx:             deps.Tx,
		invitationRepo: deps.InvitationRepo,
		restaurantRepo: deps.RestaurantRepo,
		influencerRepo: deps.InfluencerRepo,
		accountRepo:    deps.AccountRepo,
		mailer:         deps.Mailer,
		publisher:      deps.Publisher,
		baseURL:        deps.BaseURL,
		logger:         deps.Logger,
	}
}

// InviteLink は招待承諾ページのURLを返します
func (s *InvitationService) InviteLink(id uuid.UUID) string {
	return fmt.Sprintf("%s/invite/%s", s.baseURL, id)
}

// Send は招待を作成してメールを送信します
// メール送信に失敗した場合も招待はpendingのまま残り、作成済みの招待とmodel.ErrInviteEmailFailedを返します
func (s *InvitationService) Send(ctx context.Context, restaurantID uuid.UUID, email string) (*model.Invitation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InvitationService.Send")
	defer seg.Close(nil)

	restaurant, err := s.restaurantRepo.Get(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}

	inv := model.NewInvitation(restaurantID, email)
	if err := s.invitationRepo.Create(ctx, &inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	err = s.mailer.SendInvitation(ctx, mail.InvitationEmail{
		To:             email,
		Link:           s.InviteLink(inv.ID),
		RestaurantName: restaurant.Name,
	})
	if err != nil {
		s.logger.Error("failed to send invitation email",
			zap.String("invitation_id", inv.ID.String()),
			zap.Error(err),
		)
		return &inv, fmt.Errorf("%w: %v", model.ErrInviteEmailFailed, err)
	}

	s.logger.Info("invitation sent",
		zap.String("invitation_id", inv.ID.String()),
		zap.String("restaurant_id", restaurantID.String()),
	)
	return &inv, nil
}

// List はレストランの招待を新しい順に返します
func (s *InvitationService) List(ctx context.Context, restaurantID uuid.UUID) ([]model.Invitation, error) {
	invitations, err := s.invitationRepo.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invitations, nil
}

// InvitationView は招待承諾ページの表示データです
type InvitationView struct {
	model.Invitation
	RestaurantName string `json:"restaurantName"`
}

// Get は招待と招待元のレストラン名を返します
func (s *InvitationService) Get(ctx context.Context, id uuid.UUID) (*InvitationView, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InvitationService.Get")
	defer seg.Close(nil)

	inv, err := s.invitationRepo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}

	view := &InvitationView{Invitation: *inv}
	restaurant, err := s.restaurantRepo.Get(ctx, inv.RestaurantID)
	switch {
	case errors.Is(err, model.ErrRestaurantNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	default:
		view.RestaurantName = restaurant.Name
	}
	return view, nil
}

// AcceptInput は招待承諾時の入力です
type AcceptInput struct {
	Name            string `json:"name" validate:"required"`
	Password        string `json:"password" validate:"required"`
	InstagramHandle string `json:"instagramHandle,omitempty"`
	TiktokHandle    string `json:"tiktokHandle,omitempty"`
}

// AcceptResult は招待承諾で作成されたインフルエンサーとアカウントです
type AcceptResult struct {
	Influencer model.Influencer `json:"influencer"`
	Account    model.Account    `json:"account"`
}

// Accept は招待を承諾し、インフルエンサーとそのアカウントを作成します
// 招待のロック、作成、承諾済みへの遷移は1つのトランザクションで行い、
// 承諾済みの招待に対してはmodel.ErrInvitationAcceptedを返して何も作成しません
func (s *InvitationService) Accept(ctx context.Context, id uuid.UUID, in AcceptInput) (*AcceptResult, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InvitationService.Accept")
	defer seg.Close(nil)

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	var (
		result   *AcceptResult
		accepted model.Invitation
	)
	err = s.tx.RunInTx(ctx, func(tx *sqlx.Tx) error {
		inv, err := s.invitationRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}

		inf := model.NewInfluencer(model.InfluencerProfile{
			Name:            in.Name,
			Email:           inv.Email,
			InstagramHandle: in.InstagramHandle,
			TiktokHandle:    in.TiktokHandle,
		}, inv.RestaurantID)
		if err := inv.Accept(inf.ID, time.Now().UTC()); err != nil {
			return err
		}

		if err := s.influencerRepo.Create(ctx, tx, &inf); err != nil {
			return err
		}
		account := model.NewAccount(inv.Email, hash, model.RoleInfluencer, inf.ID)
		if err := s.accountRepo.Create(ctx, tx, &account); err != nil {
			return err
		}
		if err := s.invitationRepo.MarkAccepted(ctx, tx, inv); err != nil {
			return err
		}

		result = &AcceptResult{Influencer: inf, Account: account}
		accepted = *inv
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}

	s.logger.Info("invitation accepted",
		zap.String("invitation_id", id.String()),
		zap.String("influencer_id", result.Influencer.ID.String()),
	)
	publishEvent(ctx, s.publisher, s.logger, model.NewInvitationAcceptedEvent(accepted))
	return result, nil
}
