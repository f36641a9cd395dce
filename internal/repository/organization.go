// internal/repository/organization.go
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/casedesk/casedesk/internal/domain"
	"github.com/casedesk/casedesk/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrganizationRepositoryIface interface {
	Create(ctx context.Context, org *model.Organization) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]model.Organization, error)
	CreateMembership(ctx context.Context, membership *model.Membership) error
	FindActiveMembership(ctx context.Context, userID, orgID uuid.UUID) (*model.Membership, error)
	FindActiveMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]model.Membership, error)
	FindMembers(ctx context.Context, orgID uuid.UUID) ([]model.Membership, error)
}

type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) Create(ctx context.Context, org *model.Organization) error {
	if err := r.db.WithContext(ctx).Create(org).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrSlugAlreadyExists
		}
		return fmt.Errorf("creating organization: %w", err)
	}
	return nil
}

func (r *OrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	var org model.Organization
	if err := r.db.WithContext(ctx).First(&org, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("finding organization: %w", err)
	}
	return &org, nil
}

// FindByUser returns every organization the user holds an active membership
// in, earliest membership first.
func (r *OrganizationRepository) FindByUser(ctx context.Context, userID uuid.UUID) ([]model.Organization, error) {
	var orgs []model.Organization
	if err := r.db.WithContext(ctx).
		Joins("JOIN memberships ON organizations.id = memberships.organization_id").
		Where("memberships.user_id = ? AND memberships.status = ?", userID, model.MembershipActive).
		Order("memberships.created_at ASC").
		Find(&orgs).Error; err != nil {
		return nil, fmt.Errorf("finding user organizations: %w", err)
	}
	return orgs, nil
}

func (r *OrganizationRepository) CreateMembership(ctx context.Context, membership *model.Membership) error {
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyMember
		}
		return fmt.Errorf("creating membership: %w", err)
	}
	return nil
}

func (r *OrganizationRepository) FindActiveMembership(ctx context.Context, userID, orgID uuid.UUID) (*model.Membership, error) {
	var membership model.Membership
	if err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("user_id = ? AND organization_id = ? AND status = ?", userID, orgID, model.MembershipActive).
		First(&membership).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMembershipNotFound
		}
		return nil, fmt.Errorf("finding membership: %w", err)
	}
	return &membership, nil
}

// FindActiveMembershipsByUser returns the user's active memberships with
// their organizations, ordered by membership creation time so "first
// membership" is deterministic.
func (r *OrganizationRepository) FindActiveMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]model.Membership, error) {
	var memberships []model.Membership
	if err := r.db.WithContext(ctx).
		Preload("Organization").
		Where("user_id = ? AND status = ?", userID, model.MembershipActive).
		Order("created_at ASC").
		Find(&memberships).Error; err != nil {
		return nil, fmt.Errorf("finding user memberships: %w", err)
	}
	return memberships, nil
}

func (r *OrganizationRepository) FindMembers(ctx context.Context, orgID uuid.UUID) ([]model.Membership, error) {
	var members []model.Membership
	if err := r.db.WithContext(ctx).
		Preload("User").
		Where("organization_id = ? AND status = ?", orgID, model.MembershipActive).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("finding organization members: %w", err)
	}
	return members, nil
}
