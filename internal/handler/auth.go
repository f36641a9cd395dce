// internal/handler/auth.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/casedesk/casedesk/internal/model"
	"github.com/casedesk/casedesk/internal/service"
	chmw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type AuthHandler struct {
	userService  *service.UserService
	auditService *service.AuditService
}

func NewAuthHandler(userService *service.UserService, auditService *service.AuditService) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		auditService: auditService,
	}
}

type RegisterResponse struct {
	BaseResponse
	User       *model.User       `json:"user"`
	Token      string            `json:"token"`
	Membership *model.Membership `json:"membership,omitempty"`
}

func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var input service.SignupInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	output, err := h.userService.Signup(r.Context(), input)
	if err != nil {
		slog.ErrorContext(r.Context(), "User registration error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		respondWithServiceError(w, r, err)
		return
	}

	h.auditService.Record(r.Context(), service.AuditEntry{
		OrgID:        &output.Membership.OrganizationID,
		UserID:       &output.User.ID,
		Action:       model.ActionRegister,
		ResourceType: "user",
		ResourceID:   output.User.ID.String(),
		Meta:         model.JSONMap{"email": output.User.Email, "role": output.Membership.Role},
	}, r)

	respondWithJSON(w, http.StatusCreated, RegisterResponse{
		BaseResponse: BaseResponse{Ok: true},
		User:         output.User,
		Token:        output.Token,
		Membership:   output.Membership,
	})
}

type LoginResponse struct {
	BaseResponse
	User        *model.User        `json:"user"`
	Token       string             `json:"token"`
	Memberships []model.Membership `json:"memberships"`
}

func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var input service.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	output, err := h.userService.Login(r.Context(), input)
	if err != nil {
		slog.ErrorContext(r.Context(), "User login error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		respondWithServiceError(w, r, err)
		return
	}

	var orgID *uuid.UUID
	if len(output.Memberships) > 0 {
		orgID = &output.Memberships[0].OrganizationID
	}
	h.auditService.Record(r.Context(), service.AuditEntry{
		OrgID:        orgID,
		UserID:       &output.User.ID,
		Action:       model.ActionLogin,
		ResourceType: "user",
		ResourceID:   output.User.ID.String(),
	}, r)

	respondWithJSON(w, http.StatusOK, LoginResponse{
		BaseResponse: BaseResponse{Ok: true},
		User:         output.User,
		Token:        output.Token,
		Memberships:  output.Memberships,
	})
}
