package service_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/casedesk/casedesk/internal/mocks"
	"github.com/casedesk/casedesk/internal/model"
	"github.com/casedesk/casedesk/internal/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestAuditRecord(t *testing.T) {
	orgID := uuid.New()
	userID := uuid.New()

	t.Run("captures request metadata", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockAuditLogRepositoryIface(ctrl)
		svc := service.NewAuditService(repo)

		var stored *model.AuditLog
		repo.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, row *model.AuditLog) error {
				stored = row
				return nil
			})

		req := httptest.NewRequest("POST", "/api/auth/login", nil)
		req.RemoteAddr = "203.0.113.7:41234"
		req.Header.Set("User-Agent", "casedesk-test/1.0")

		svc.Record(context.Background(), service.AuditEntry{
			OrgID:        &orgID,
			UserID:       &userID,
			Action:       model.ActionLogin,
			ResourceType: "user",
			ResourceID:   userID.String(),
			Meta:         model.JSONMap{"email": "alice@example.com"},
		}, req)

		assert.NotNil(t, stored)
		assert.Equal(t, model.ActionLogin, stored.Action)
		assert.Equal(t, &orgID, stored.OrganizationID)
		assert.Equal(t, "203.0.113.7:41234", stored.ClientIP)
		assert.Equal(t, "casedesk-test/1.0", stored.UserAgent)
	})

	t.Run("store failure never propagates", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockAuditLogRepositoryIface(ctrl)
		svc := service.NewAuditService(repo)

		repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

		assert.NotPanics(t, func() {
			svc.Record(context.Background(), service.AuditEntry{
				Action:       model.ActionRegister,
				ResourceType: "user",
			}, nil)
		})
	})

	t.Run("org and user are optional", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()

		repo := mocks.NewMockAuditLogRepositoryIface(ctrl)
		svc := service.NewAuditService(repo)

		repo.EXPECT().Create(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, row *model.AuditLog) error {
				assert.Nil(t, row.OrganizationID)
				assert.Nil(t, row.UserID)
				return nil
			})

		svc.Record(context.Background(), service.AuditEntry{
			Action:       model.ActionRegister,
			ResourceType: "user",
		}, nil)
	})
}
