package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/refereat/refereat-server/internal/model"
)

type InvitationRepository interface {
	Create(ctx context.Context, invitation *model.Invitation) error
	Get(ctx context.Context, id uuid.UUID) (*model.Invitation, error)
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Invitation, error)
	ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.Invitation, error)
	MarkAccepted(ctx context.Context, tx *sqlx.Tx, invitation *model.Invitation) error
	FindAcceptedBy(ctx context.Context, influencerID uuid.UUID) (*model.Invitation, error)
}

type InvitationRepositoryImpl struct {
	db *DB
}

func NewInvitationRepository(db *DB) *InvitationRepositoryImpl {
	return &InvitationRepositoryImpl{db: db}
}

const invitationColumns = `
	id,
	restaurant_id,
	email,
	status,
	accepted_by,
	accepted_at,
	created_at`

// Create は招待を作成します
func (r *InvitationRepositoryImpl) Create(ctx context.Context, invitation *model.Invitation) error {
	ctx, seg := xray.BeginSubsegment(ctx, "InvitationRepository.Create")
	defer seg.Close(nil)

	query := `
		INSERT INTO invitations (` + invitationColumns + `
		) VALUES (
			:id,
			:restaurant_id,
			:email,
			:status,
			:accepted_by,
			:accepted_at,
			:created_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, invitation); err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// Get はIDで招待を取得します
func (r *InvitationRepositoryImpl) Get(ctx context.Context, id uuid.UUID) (*model.Invitation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InvitationRepository.Get")
	defer seg.Close(nil)

	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`

	var invitation model.Invitation
	if err := r.db.GetContext(ctx, &invitation, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrInvitationNotFound
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to get invitation %s: %w", id, err)
	}
	return &invitation, nil
}

// GetForUpdate は招待の行をロックして取得します
func (r *InvitationRepositoryImpl) GetForUpdate(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (*model.Invitation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InvitationRepository.GetForUpdate")
	defer seg.Close(nil)

	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1 FOR UPDATE`

	var invitation model.Invitation
	if err := tx.GetContext(ctx, &invitation, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrInvitationNotFound
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to lock invitation %s: %w", id, err)
	}
	return &invitation, nil
}

// ListByRestaurant はレストランの招待を新しい順に返します
func (r *InvitationRepositoryImpl) ListByRestaurant(ctx context.Context, restaurantID uuid.UUID) ([]model.Invitation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InvitationRepository.ListByRestaurant")
	defer seg.Close(nil)

	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE restaurant_id = $1
		ORDER BY created_at DESC
	`

	invitations := []model.Invitation{}
	if err := r.db.SelectContext(ctx, &invitations, query, restaurantID); err != nil {
		seg.Close(err)
		return nil, fmt.Errorf("failed to list invitations for restaurant %s: %w", restaurantID, err)
	}
	return invitations, nil
}

// MarkAccepted は招待を承諾済みにします
// pendingでない招待は更新せずErrInvitationAcceptedを返します
func (r *InvitationRepositoryImpl) MarkAccepted(ctx context.Context, tx *sqlx.Tx, invitation *model.Invitation) error {
	ctx, seg := xray.BeginSubsegment(ctx, "InvitationRepository.MarkAccepted")
	defer seg.Close(nil)

	query := `
		UPDATE invitations
		SET status = 'accepted',
			accepted_by = $1,
			accepted_at = $2
		WHERE id = $3
		AND status = 'pending'
	`
	result, err := tx.ExecContext(ctx, query, invitation.AcceptedBy, invitation.AcceptedAt, invitation.ID)
	if err != nil {
		seg.Close(err)
		return fmt.Errorf("failed to mark invitation accepted: %w", err)
	}
	return expectOneRow(result, model.ErrInvitationAccepted)
}

// FindAcceptedBy はインフルエンサーが承諾した招待を返します
func (r *InvitationRepositoryImpl) FindAcceptedBy(ctx context.Context, influencerID uuid.UUID) (*model.Invitation, error) {
	ctx, seg := xray.BeginSubsegment(ctx, "InvitationRepository.FindAcceptedBy")
	defer seg.Close(nil)

	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE accepted_by = $1
		AND status = 'accepted'
		ORDER BY accepted_at DESC
		LIMIT 1
	`

	var invitation model.Invitation
	if err := r.db.GetContext(ctx, &invitation, query, influencerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrInvitationNotFound
		}
		seg.Close(err)
		return nil, fmt.Errorf("failed to find invitation accepted by %s: %w", influencerID, err)
	}
	return &invitation, nil
}
