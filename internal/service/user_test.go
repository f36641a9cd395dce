package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/casedesk/casedesk/internal/auth"
	"github.com/casedesk/casedesk/internal/config"
	"github.com/casedesk/casedesk/internal/domain"
	"github.com/casedesk/casedesk/internal/mocks"
	"github.com/casedesk/casedesk/internal/model"
	"github.com/casedesk/casedesk/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newUserService(t *testing.T, userRepo *mocks.MockUserRepositoryIface, orgRepo *mocks.MockOrganizationRepositoryIface, inviteRepo *mocks.MockInviteRepositoryIface) (*service.UserService, *auth.TokenManager) {
	t.Helper()
	tm, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)

	cfg := &config.Config{BaseURL: "https://app.example.com"}
	return service.NewUserService(userRepo, orgRepo, inviteRepo, auth.NewPasswordHasher(), tm, nil, cfg), tm
}

func TestSignupWithoutInvite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userRepo := mocks.NewMockUserRepositoryIface(ctrl)
	orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
	inviteRepo := mocks.NewMockInviteRepositoryIface(ctrl)
	svc, tm := newUserService(t, userRepo, orgRepo, inviteRepo)

	userID := uuid.New()
	orgID := uuid.New()

	gomock.InOrder(
		userRepo.EXPECT().
			FindByEmail(gomock.Any(), "alice@example.com").
			Return(nil, domain.ErrUserNotFound),

		userRepo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, u *model.User) error {
				assert.NotEmpty(t, u.PasswordHash)
				assert.NotEqual(t, "str0ngpassword", u.PasswordHash)
				u.ID = userID
				return nil
			}),

		orgRepo.EXPECT().
			Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, org *model.Organization) error {
				assert.Equal(t, "Alice Avukat", org.Name)
				assert.Contains(t, org.Slug, "alice-avukat-")
				assert.Equal(t, userID, org.CreatedByID)
				org.ID = orgID
				return nil
			}),

		orgRepo.EXPECT().
			CreateMembership(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, m *model.Membership) error {
				assert.Equal(t, orgID, m.OrganizationID)
				assert.Equal(t, userID, m.UserID)
				assert.Equal(t, model.RoleOwner, m.Role)
				assert.Equal(t, model.MembershipActive, m.Status)
				return nil
			}),
	)

	out, err := svc.Signup(context.Background(), service.SignupInput{
		Email:    "alice@example.com",
		Password: "str0ngpassword",
		Name:     "Alice Avukat",
	})
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, userID, out.User.ID)
	require.NotNil(t, out.Membership)
	assert.Equal(t, model.RoleOwner, out.Membership.Role)

	claims, err := tm.Validate(out.Token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, orgID.String(), claims.OrgID)
}

func TestSignupNameDefaultsFromEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userRepo := mocks.NewMockUserRepositoryIface(ctrl)
	orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
	inviteRepo := mocks.NewMockInviteRepositoryIface(ctrl)
	svc, _ := newUserService(t, userRepo, orgRepo, inviteRepo)

	userRepo.EXPECT().FindByEmail(gomock.Any(), "bob@example.com").Return(nil, domain.ErrUserNotFound)
	userRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, u *model.User) error {
			assert.Equal(t, "bob", u.Name)
			u.ID = uuid.New()
			return nil
		})
	orgRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, org *model.Organization) error {
			org.ID = uuid.New()
			return nil
		})
	orgRepo.EXPECT().CreateMembership(gomock.Any(), gomock.Any()).Return(nil)

	_, err := svc.Signup(context.Background(), service.SignupInput{
		Email:    "bob@example.com",
		Password: "str0ngpassword",
	})
	require.NoError(t, err)
}

func TestSignupDuplicateEmail(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userRepo := mocks.NewMockUserRepositoryIface(ctrl)
	orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
	inviteRepo := mocks.NewMockInviteRepositoryIface(ctrl)
	svc, _ := newUserService(t, userRepo, orgRepo, inviteRepo)

	userRepo.EXPECT().
		FindByEmail(gomock.Any(), "alice@example.com").
		Return(&model.User{ID: uuid.New(), Email: "alice@example.com"}, nil)

	_, err := svc.Signup(context.Background(), service.SignupInput{
		Email:    "alice@example.com",
		Password: "str0ngpassword",
	})
	assert.ErrorIs(t, err, domain.ErrEmailAlreadyExists)
}

func TestSignupValidation(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc, _ := newUserService(t,
		mocks.NewMockUserRepositoryIface(ctrl),
		mocks.NewMockOrganizationRepositoryIface(ctrl),
		mocks.NewMockInviteRepositoryIface(ctrl),
	)

	t.Run("short password", func(t *testing.T) {
		_, err := svc.Signup(context.Background(), service.SignupInput{
			Email:    "alice@example.com",
			Password: "short",
		})
		assert.Error(t, err)
	})

	t.Run("bad email", func(t *testing.T) {
		_, err := svc.Signup(context.Background(), service.SignupInput{
			Email:    "not-an-email",
			Password: "str0ngpassword",
		})
		assert.Error(t, err)
	})
}

func TestSignupWithInvite(t *testing.T) {
	plainToken, err := auth.NewInviteToken()
	require.NoError(t, err)

	orgID := uuid.New()
	inviterID := uuid.New()

	freshInvite := func() *model.Invite {
		return &model.Invite{
			ID:              uuid.New(),
			OrganizationID:  orgID,
			Email:           "Bob@Example.com",
			Role:            model.RoleLawyer,
			TokenHash:       auth.HashInviteToken(plainToken),
			InvitedByUserID: inviterID,
			ExpiresAt:       time.Now().Add(24 * time.Hour),
		}
	}

	signup := func(t *testing.T, invite *model.Invite, findErr, consumeErr error) (*service.SignupOutput, error) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		userRepo := mocks.NewMockUserRepositoryIface(ctrl)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		inviteRepo := mocks.NewMockInviteRepositoryIface(ctrl)
		svc, _ := newUserService(t, userRepo, orgRepo, inviteRepo)

		userRepo.EXPECT().FindByEmail(gomock.Any(), "bob@example.com").Return(nil, domain.ErrUserNotFound)
		inviteRepo.EXPECT().FindByTokenHash(gomock.Any(), auth.HashInviteToken(plainToken)).Return(invite, findErr)

		// Only a valid invite may reach the users table: Create is expected
		// solely on that path, so any write on a rejection fails the test.
		valid := findErr == nil && invite != nil &&
			strings.EqualFold(invite.Email, "bob@example.com") &&
			invite.AcceptedAt == nil && time.Now().Before(invite.ExpiresAt)
		if valid {
			gomock.InOrder(
				userRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, u *model.User) error {
						u.ID = uuid.New()
						return nil
					}),
				inviteRepo.EXPECT().Consume(gomock.Any(), invite, gomock.Any()).Return(consumeErr),
			)
		}

		return svc.Signup(context.Background(), service.SignupInput{
			Email:       "bob@example.com",
			Password:    "str0ngpassword",
			Name:        "Bob",
			InviteToken: plainToken,
		})
	}

	t.Run("joins the inviting org with exactly the invited role", func(t *testing.T) {
		out, err := signup(t, freshInvite(), nil, nil)
		require.NoError(t, err)
		require.NotNil(t, out.Membership)
		assert.Equal(t, orgID, out.Membership.OrganizationID)
		assert.Equal(t, model.RoleLawyer, out.Membership.Role)
		assert.Equal(t, model.MembershipActive, out.Membership.Status)
	})

	t.Run("email comparison is case insensitive", func(t *testing.T) {
		// The invite above was issued to Bob@Example.com; bob@example.com gets in.
		out, err := signup(t, freshInvite(), nil, nil)
		require.NoError(t, err)
		assert.NotNil(t, out.Membership)
	})

	t.Run("expired invite is rejected", func(t *testing.T) {
		invite := freshInvite()
		invite.ExpiresAt = time.Now().Add(-time.Hour)
		_, err := signup(t, invite, nil, nil)
		assert.ErrorIs(t, err, domain.ErrInviteExpired)
	})

	t.Run("already accepted invite is rejected", func(t *testing.T) {
		invite := freshInvite()
		accepted := time.Now().Add(-time.Hour)
		invite.AcceptedAt = &accepted
		_, err := signup(t, invite, nil, nil)
		assert.ErrorIs(t, err, domain.ErrInviteConsumed)
	})

	t.Run("invite for a different email is rejected", func(t *testing.T) {
		invite := freshInvite()
		invite.Email = "carol@example.com"
		_, err := signup(t, invite, nil, nil)
		assert.ErrorIs(t, err, domain.ErrInviteEmail)
	})

	t.Run("unknown token is rejected", func(t *testing.T) {
		_, err := signup(t, nil, domain.ErrInviteNotFound, nil)
		assert.ErrorIs(t, err, domain.ErrInviteNotFound)
	})

	t.Run("rejected invite leaves the email free to register again", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		userRepo := mocks.NewMockUserRepositoryIface(ctrl)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		inviteRepo := mocks.NewMockInviteRepositoryIface(ctrl)
		svc, _ := newUserService(t, userRepo, orgRepo, inviteRepo)

		// First attempt with an expired invite: no user row is written.
		expired := freshInvite()
		expired.ExpiresAt = time.Now().Add(-time.Hour)
		userRepo.EXPECT().FindByEmail(gomock.Any(), "bob@example.com").Return(nil, domain.ErrUserNotFound)
		inviteRepo.EXPECT().FindByTokenHash(gomock.Any(), auth.HashInviteToken(plainToken)).Return(expired, nil)

		_, err := svc.Signup(context.Background(), service.SignupInput{
			Email:       "bob@example.com",
			Password:    "str0ngpassword",
			InviteToken: plainToken,
		})
		require.ErrorIs(t, err, domain.ErrInviteExpired)

		// Retry without a token succeeds with a fresh owner organization.
		userRepo.EXPECT().FindByEmail(gomock.Any(), "bob@example.com").Return(nil, domain.ErrUserNotFound)
		userRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, u *model.User) error {
				u.ID = uuid.New()
				return nil
			})
		orgRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, org *model.Organization) error {
				org.ID = uuid.New()
				return nil
			})
		orgRepo.EXPECT().CreateMembership(gomock.Any(), gomock.Any()).Return(nil)

		out, err := svc.Signup(context.Background(), service.SignupInput{
			Email:    "bob@example.com",
			Password: "str0ngpassword",
		})
		require.NoError(t, err)
		assert.Equal(t, model.RoleOwner, out.Membership.Role)
	})

	t.Run("concurrent acceptance loses to the store constraint", func(t *testing.T) {
		_, err := signup(t, freshInvite(), nil, domain.ErrInviteConsumed)
		assert.ErrorIs(t, err, domain.ErrInviteConsumed)
	})
}

func TestLogin(t *testing.T) {
	hasher := auth.NewPasswordHasher()
	hashed, err := hasher.Hash("correct_password")
	require.NoError(t, err)

	userID := uuid.New()
	alice := &model.User{ID: userID, Email: "alice@example.com", Name: "Alice", PasswordHash: hashed}

	firstOrg := uuid.New()
	secondOrg := uuid.New()
	memberships := []model.Membership{
		{UserID: userID, OrganizationID: firstOrg, Role: model.RoleOwner, Status: model.MembershipActive},
		{UserID: userID, OrganizationID: secondOrg, Role: model.RoleLawyer, Status: model.MembershipActive},
	}

	t.Run("successful login scopes token to earliest membership", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		userRepo := mocks.NewMockUserRepositoryIface(ctrl)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		svc, tm := newUserService(t, userRepo, orgRepo, mocks.NewMockInviteRepositoryIface(ctrl))

		userRepo.EXPECT().FindByEmail(gomock.Any(), "alice@example.com").Return(alice, nil)
		orgRepo.EXPECT().FindActiveMembershipsByUser(gomock.Any(), userID).Return(memberships, nil)

		out, err := svc.Login(context.Background(), service.LoginInput{
			Email:    "alice@example.com",
			Password: "correct_password",
		})
		require.NoError(t, err)
		assert.Len(t, out.Memberships, 2)

		claims, err := tm.Validate(out.Token)
		require.NoError(t, err)
		assert.Equal(t, firstOrg.String(), claims.OrgID)
	})

	t.Run("wrong password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		userRepo := mocks.NewMockUserRepositoryIface(ctrl)
		svc, _ := newUserService(t, userRepo, mocks.NewMockOrganizationRepositoryIface(ctrl), mocks.NewMockInviteRepositoryIface(ctrl))

		userRepo.EXPECT().FindByEmail(gomock.Any(), "alice@example.com").Return(alice, nil)

		_, err := svc.Login(context.Background(), service.LoginInput{
			Email:    "alice@example.com",
			Password: "wrong_password",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("unknown email yields the same error as wrong password", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		userRepo := mocks.NewMockUserRepositoryIface(ctrl)
		svc, _ := newUserService(t, userRepo, mocks.NewMockOrganizationRepositoryIface(ctrl), mocks.NewMockInviteRepositoryIface(ctrl))

		userRepo.EXPECT().FindByEmail(gomock.Any(), "nobody@example.com").Return(nil, domain.ErrUserNotFound)

		_, err := svc.Login(context.Background(), service.LoginInput{
			Email:    "nobody@example.com",
			Password: "correct_password",
		})
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})

	t.Run("user without memberships still logs in", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		userRepo := mocks.NewMockUserRepositoryIface(ctrl)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		svc, tm := newUserService(t, userRepo, orgRepo, mocks.NewMockInviteRepositoryIface(ctrl))

		userRepo.EXPECT().FindByEmail(gomock.Any(), "alice@example.com").Return(alice, nil)
		orgRepo.EXPECT().FindActiveMembershipsByUser(gomock.Any(), userID).Return(nil, nil)

		out, err := svc.Login(context.Background(), service.LoginInput{
			Email:    "alice@example.com",
			Password: "correct_password",
		})
		require.NoError(t, err)

		claims, err := tm.Validate(out.Token)
		require.NoError(t, err)
		assert.Empty(t, claims.OrgID)
	})
}
