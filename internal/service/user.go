// internal/service/user.go
package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
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

type UserService struct {
	repo           repository.UserRepositoryIface
	orgRepo        repository.OrganizationRepositoryIface
	inviteRepo     repository.InviteRepositoryIface
	passwordHasher *auth.PasswordHasher
	tokenManager   *auth.TokenManager
	emailService   *email.Service
	config         *config.Config
	validate       *validator.Validate
}

func NewUserService(
	repo repository.UserRepositoryIface,
	orgRepo repository.OrganizationRepositoryIface,
	inviteRepo repository.InviteRepositoryIface,
	passwordHasher *auth.PasswordHasher,
	tokenManager *auth.TokenManager,
	emailService *email.Service,
	config *config.Config,
) *UserService {
	return &UserService{
		repo:           repo,
		orgRepo:        orgRepo,
		inviteRepo:     inviteRepo,
		passwordHasher: passwordHasher,
		tokenManager:   tokenManager,
		emailService:   emailService,
		config:         config,
		validate:       validator.New(),
	}
}

type SignupInput struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8"`
	Name        string `json:"name"`
	InviteToken string `json:"inviteToken"`
}

type SignupOutput struct {
	User       *model.User       `json:"user"`
	Token      string            `json:"token"`
	Membership *model.Membership `json:"membership"`
}

// Signup registers a new user. With an invite token the user joins the
// inviting organization with the invite's role; otherwise a fresh
// organization is created with the user as its owner.
func (s *UserService) Signup(ctx context.Context, input SignupInput) (*SignupOutput, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	// Check if user exists
	existingUser, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}
	if existingUser != nil {
		return nil, domain.ErrEmailAlreadyExists
	}

	// Validate the invite before touching the users table. A rejected invite
	// must leave no partial state: the email stays free to retry with a
	// corrected token, or without one.
	var invite *model.Invite
	if input.InviteToken != "" {
		invite, err = s.validInvite(ctx, input.Email, input.InviteToken)
		if err != nil {
			return nil, err
		}
	}

	hashedPassword, err := s.passwordHasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = strings.SplitN(input.Email, "@", 2)[0]
	}

	user := &model.User{
		Email:        input.Email,
		Name:         name,
		PasswordHash: hashedPassword,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	var membership *model.Membership
	if invite != nil {
		membership = &model.Membership{
			OrganizationID: invite.OrganizationID,
			UserID:         user.ID,
			Role:           invite.Role,
			Status:         model.MembershipActive,
		}
		err = s.inviteRepo.Consume(ctx, invite, membership)
	} else {
		membership, err = s.createOwnerOrganization(ctx, user)
	}
	if err != nil {
		return nil, err
	}

	token, err := s.tokenManager.Generate(user.ID, user.Email, &membership.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	return &SignupOutput{
		User:       user,
		Token:      token,
		Membership: membership,
	}, nil
}

// validInvite loads the invite for plainToken and checks it is addressed to
// email, still unaccepted and unexpired. Consumption happens later, once the
// user row exists; the membership unique index settles any race between the
// check and the consume.
func (s *UserService) validInvite(ctx context.Context, email, plainToken string) (*model.Invite, error) {
	invite, err := s.inviteRepo.FindByTokenHash(ctx, auth.HashInviteToken(plainToken))
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(invite.Email, email) {
		return nil, domain.ErrInviteEmail
	}
	if invite.AcceptedAt != nil {
		return nil, domain.ErrInviteConsumed
	}
	if !time.Now().Before(invite.ExpiresAt) {
		return nil, domain.ErrInviteExpired
	}

	return invite, nil
}

// createOwnerOrganization sets up the default organization for a user who
// registered without an invite.
func (s *UserService) createOwnerOrganization(ctx context.Context, user *model.User) (*model.Membership, error) {
	org := &model.Organization{
		Name:        user.Name,
		Slug:        slugify(user.Name) + "-" + randomSuffix(),
		CreatedByID: user.ID,
	}

	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("creating organization: %w", err)
	}

	membership := &model.Membership{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           model.RoleOwner,
		Status:         model.MembershipActive,
	}

	if err := s.orgRepo.CreateMembership(ctx, membership); err != nil {
		return nil, fmt.Errorf("creating membership: %w", err)
	}
	membership.Organization = org

	if s.emailService != nil {
		if err := mailer.SendWelcomeEmail(s.emailService, user.Email, user.Name, org.Name, s.config.BaseURL); err != nil {
			slog.ErrorContext(ctx, "Failed to send welcome email", "error", err, "email", user.Email)
		}
	}

	return membership, nil
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginOutput struct {
	User        *model.User        `json:"user"`
	Token       string             `json:"token"`
	Memberships []model.Membership `json:"memberships"`
}

// Login verifies credentials and issues a session token scoped to the
// caller's earliest active membership. A missing user and a wrong password
// are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.passwordHasher.Verify(input.Password, user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	memberships, err := s.orgRepo.FindActiveMembershipsByUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("finding memberships: %w", err)
	}

	var orgID *uuid.UUID
	if len(memberships) > 0 {
		orgID = &memberships[0].OrganizationID
	}

	token, err := s.tokenManager.Generate(user.ID, user.Email, orgID)
	if err != nil {
		return nil, fmt.Errorf("generating token: %w", err)
	}

	return &LoginOutput{
		User:        user,
		Token:       token,
		Memberships: memberships,
	}, nil
}

// slugify lowercases and strips name down to a URL-safe slug.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "org"
	}
	return slug
}

// randomSuffix disambiguates generated slugs.
func randomSuffix() string {
	b := make([]byte, 3)
	if _, err := rand.Read(b); err != nil {
		panic(err) // This should never happen
	}
	return hex.EncodeToString(b)
}
