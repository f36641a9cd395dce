// internal/service/invite.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/casedesk/casedesk/internal/auth"
	"github.com/casedesk/casedesk/internal/config"
	"github.com/casedesk/casedesk/internal/domain"
	"github.com/casedesk/casedesk/internal/email"
	"github.com/casedesk/casedesk/internal/email/mailer"
	"github.com/casedesk/casedesk/internal/model"
	"github.com/casedesk/casedesk/internal/repository"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultInviteTTL is how long an invite stays acceptable.
const DefaultInviteTTL = 7 * 24 * time.Hour

type InviteService struct {
	repo         repository.InviteRepositoryIface
	userRepo     repository.UserRepositoryIface
	orgRepo      repository.OrganizationRepositoryIface
	emailService *email.Service
	config       *config.Config
	validate     *validator.Validate
}

func NewInviteService(
	repo repository.InviteRepositoryIface,
	userRepo repository.UserRepositoryIface,
	orgRepo repository.OrganizationRepositoryIface,
	emailService *email.Service,
	config *config.Config,
) *InviteService {
	return &InviteService{
		repo:         repo,
		userRepo:     userRepo,
		orgRepo:      orgRepo,
		emailService: emailService,
		config:       config,
		validate:     validator.New(),
	}
}

type CreateInviteInput struct {
	Email string     `json:"email" validate:"required,email"`
	Role  model.Role `json:"role" validate:"required,oneof=admin lawyer assistant"`
}

type CreateInviteOutput struct {
	Invite    *model.Invite `json:"invite"`
	InviteURL string        `json:"invite_url"`
}

// CreateInvite issues a single-use invite for email to join orgID with the
// given role. The plaintext token leaves the process only inside the invite
// URL; the store keeps its hash.
func (s *InviteService) CreateInvite(ctx context.Context, orgID, inviterID uuid.UUID, input CreateInviteInput) (*CreateInviteOutput, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// An existing user who already holds a membership cannot be invited again.
	existingUser, err := s.userRepo.FindByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if existingUser != nil {
		if _, err := s.orgRepo.FindActiveMembership(ctx, existingUser.ID, orgID); err == nil {
			return nil, domain.ErrAlreadyMember
		} else if !errors.Is(err, domain.ErrMembershipNotFound) {
			return nil, err
		}
	}

	plainToken, err := auth.NewInviteToken()
	if err != nil {
		return nil, err
	}

	invite := &model.Invite{
		OrganizationID:  orgID,
		Email:           input.Email,
		Role:            input.Role,
		TokenHash:       auth.HashInviteToken(plainToken),
		InvitedByUserID: inviterID,
		ExpiresAt:       time.Now().UTC().Add(DefaultInviteTTL),
	}

	if err := s.repo.Create(ctx, invite); err != nil {
		return nil, err
	}

	inviteURL := fmt.Sprintf("%s/invite?token=%s", s.config.BaseURL, plainToken)

	if s.emailService != nil {
		org, err := s.orgRepo.FindByID(ctx, orgID)
		if err != nil {
			return nil, err
		}
		inviter, err := s.userRepo.FindByID(ctx, inviterID)
		if err != nil {
			return nil, err
		}
		if err := mailer.SendInviteEmail(
			s.emailService,
			invite.Email,
			org.Name,
			inviter.Name,
			string(invite.Role),
			inviteURL,
			invite.ExpiresAt,
		); err != nil {
			slog.ErrorContext(ctx, "Failed to send invite email", "error", err, "email", invite.Email)
		}
	}

	return &CreateInviteOutput{
		Invite:    invite,
		InviteURL: inviteURL,
	}, nil
}

// ListPending returns the organization's unexpired, unaccepted invites.
func (s *InviteService) ListPending(ctx context.Context, orgID uuid.UUID) ([]model.Invite, error) {
	return s.repo.FindPendingByOrg(ctx, orgID)
}
