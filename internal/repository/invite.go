// internal/repository/invite.go
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/casedesk/casedesk/internal/domain"
	"github.com/casedesk/casedesk/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InviteRepositoryIface interface {
	Create(ctx context.Context, invite *model.Invite) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.Invite, error)
	FindPendingByOrg(ctx context.Context, orgID uuid.UUID) ([]model.Invite, error)
	Consume(ctx context.Context, invite *model.Invite, membership *model.Membership) error
}

type InviteRepository struct {
	db *gorm.DB
}

func NewInviteRepository(db *gorm.DB) *InviteRepository {
	return &InviteRepository{db: db}
}

func (r *InviteRepository) Create(ctx context.Context, invite *model.Invite) error {
	if err := r.db.WithContext(ctx).Create(invite).Error; err != nil {
		return fmt.Errorf("creating invite: %w", err)
	}
	return nil
}

func (r *InviteRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.Invite, error) {
	var invite model.Invite
	if err := r.db.WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrInviteNotFound
		}
		return nil, fmt.Errorf("finding invite: %w", err)
	}
	return &invite, nil
}

func (r *InviteRepository) FindPendingByOrg(ctx context.Context, orgID uuid.UUID) ([]model.Invite, error) {
	var invites []model.Invite
	if err := r.db.WithContext(ctx).
		Where("organization_id = ? AND accepted_at IS NULL AND expires_at > ?", orgID, time.Now().UTC()).
		Order("created_at DESC").
		Find(&invites).Error; err != nil {
		return nil, fmt.Errorf("finding pending invites: %w", err)
	}
	return invites, nil
}

// Consume creates the membership and stamps the invite's acceptance in one
// transaction. The unique (user_id, organization_id) index on memberships
// guarantees that two concurrent acceptances of the same invite produce at
// most one membership; the loser gets domain.ErrAlreadyMember.
func (r *InviteRepository) Consume(ctx context.Context, invite *model.Invite, membership *model.Membership) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(membership).Error; err != nil {
			return err
		}

		now := time.Now().UTC()
		result := tx.Model(&model.Invite{}).
			Where("id = ? AND accepted_at IS NULL", invite.ID).
			Update("accepted_at", now)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.ErrInviteConsumed
		}
		invite.AcceptedAt = &now

		return nil
	})

	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyMember
		}
		if errors.Is(err, domain.ErrInviteConsumed) {
			return err
		}
		return fmt.Errorf("consuming invite: %w", err)
	}

	return nil
}
