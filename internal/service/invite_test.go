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

func newInviteService(inviteRepo *mocks.MockInviteRepositoryIface, userRepo *mocks.MockUserRepositoryIface, orgRepo *mocks.MockOrganizationRepositoryIface) *service.InviteService {
	cfg := &config.Config{BaseURL: "https://app.example.com"}
	return service.NewInviteService(inviteRepo, userRepo, orgRepo, nil, cfg)
}

func TestCreateInvite(t *testing.T) {
	orgID := uuid.New()
	inviterID := uuid.New()

	t.Run("stores only the token hash and returns the URL with plaintext", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		inviteRepo := mocks.NewMockInviteRepositoryIface(ctrl)
		userRepo := mocks.NewMockUserRepositoryIface(ctrl)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		svc := newInviteService(inviteRepo, userRepo, orgRepo)

		userRepo.EXPECT().FindByEmail(gomock.Any(), "bob@example.com").Return(nil, domain.ErrUserNotFound)

		var stored *model.Invite
		inviteRepo.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, inv *model.Invite) error {
				stored = inv
				return nil
			})

		out, err := svc.CreateInvite(context.Background(), orgID, inviterID, service.CreateInviteInput{
			Email: "bob@example.com",
			Role:  model.RoleLawyer,
		})
		require.NoError(t, err)
		require.NotNil(t, stored)

		assert.Equal(t, orgID, stored.OrganizationID)
		assert.Equal(t, inviterID, stored.InvitedByUserID)
		assert.Equal(t, model.RoleLawyer, stored.Role)
		assert.Nil(t, stored.AcceptedAt)
		assert.WithinDuration(t, time.Now().UTC().Add(service.DefaultInviteTTL), stored.ExpiresAt, time.Minute)

		// The URL carries the plaintext; the stored record carries its hash.
		prefix := "https://app.example.com/invite?token="
		require.True(t, strings.HasPrefix(out.InviteURL, prefix))
		plain := strings.TrimPrefix(out.InviteURL, prefix)
		assert.NotEqual(t, plain, stored.TokenHash)
		assert.Equal(t, auth.HashInviteToken(plain), stored.TokenHash)
	})

	t.Run("owner role cannot be granted by invite", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		svc := newInviteService(
			mocks.NewMockInviteRepositoryIface(ctrl),
			mocks.NewMockUserRepositoryIface(ctrl),
			mocks.NewMockOrganizationRepositoryIface(ctrl),
		)

		_, err := svc.CreateInvite(context.Background(), orgID, inviterID, service.CreateInviteInput{
			Email: "bob@example.com",
			Role:  model.RoleOwner,
		})
		assert.Error(t, err)
	})

	t.Run("existing member cannot be invited again", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		inviteRepo := mocks.NewMockInviteRepositoryIface(ctrl)
		userRepo := mocks.NewMockUserRepositoryIface(ctrl)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		svc := newInviteService(inviteRepo, userRepo, orgRepo)

		existing := &model.User{ID: uuid.New(), Email: "bob@example.com"}
		userRepo.EXPECT().FindByEmail(gomock.Any(), "bob@example.com").Return(existing, nil)
		orgRepo.EXPECT().FindActiveMembership(gomock.Any(), existing.ID, orgID).
			Return(&model.Membership{UserID: existing.ID, OrganizationID: orgID, Role: model.RoleLawyer}, nil)

		_, err := svc.CreateInvite(context.Background(), orgID, inviterID, service.CreateInviteInput{
			Email: "bob@example.com",
			Role:  model.RoleAssistant,
		})
		assert.ErrorIs(t, err, domain.ErrAlreadyMember)
	})

	t.Run("existing user without membership can be invited", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		inviteRepo := mocks.NewMockInviteRepositoryIface(ctrl)
		userRepo := mocks.NewMockUserRepositoryIface(ctrl)
		orgRepo := mocks.NewMockOrganizationRepositoryIface(ctrl)
		svc := newInviteService(inviteRepo, userRepo, orgRepo)

		existing := &model.User{ID: uuid.New(), Email: "bob@example.com"}
		userRepo.EXPECT().FindByEmail(gomock.Any(), "bob@example.com").Return(existing, nil)
		orgRepo.EXPECT().FindActiveMembership(gomock.Any(), existing.ID, orgID).
			Return(nil, domain.ErrMembershipNotFound)
		inviteRepo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		_, err := svc.CreateInvite(context.Background(), orgID, inviterID, service.CreateInviteInput{
			Email: "bob@example.com",
			Role:  model.RoleAssistant,
		})
		assert.NoError(t, err)
	})
}

func TestListPending(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	inviteRepo := mocks.NewMockInviteRepositoryIface(ctrl)
	svc := newInviteService(inviteRepo, mocks.NewMockUserRepositoryIface(ctrl), mocks.NewMockOrganizationRepositoryIface(ctrl))

	orgID := uuid.New()
	pending := []model.Invite{{ID: uuid.New(), OrganizationID: orgID, Email: "bob@example.com", Role: model.RoleLawyer}}
	inviteRepo.EXPECT().FindPendingByOrg(gomock.Any(), orgID).Return(pending, nil)

	got, err := svc.ListPending(context.Background(), orgID)
	require.NoError(t, err)
	assert.Equal(t, pending, got)
}
