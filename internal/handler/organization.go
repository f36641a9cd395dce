// internal/handler/organization.go
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/casedesk/casedesk/internal/auth"
	"github.com/casedesk/casedesk/internal/model"
	"github.com/casedesk/casedesk/internal/repository"
	"github.com/casedesk/casedesk/internal/service"
	chmw "github.com/go-chi/chi/v5/middleware"
)

type OrganizationHandler struct {
	orgRepo       repository.OrganizationRepositoryIface
	inviteService *service.InviteService
	auditService  *service.AuditService
}

func NewOrganizationHandler(
	orgRepo repository.OrganizationRepositoryIface,
	inviteService *service.InviteService,
	auditService *service.AuditService,
) *OrganizationHandler {
	return &OrganizationHandler{
		orgRepo:       orgRepo,
		inviteService: inviteService,
		auditService:  auditService,
	}
}

type MeResponse struct {
	BaseResponse
	User        *model.User        `json:"user"`
	OrgID       *string            `json:"org_id,omitempty"`
	Role        *model.Role        `json:"role,omitempty"`
	Memberships []model.Membership `json:"memberships"`
}

// MeHandler returns the caller's profile with the org attached to this
// request, if any.
func (h *OrganizationHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "No authenticated identity")
		return
	}
	caller, _ := auth.CallerFromContext(r.Context())

	resp := MeResponse{
		BaseResponse: BaseResponse{Ok: true},
		User:         identity.User,
		Memberships:  identity.Memberships,
	}
	if caller != nil && caller.OrgID != nil {
		orgID := caller.OrgID.String()
		resp.OrgID = &orgID
		resp.Role = caller.Role
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// ListOrgsHandler returns the organizations the caller belongs to.
func (h *OrganizationHandler) ListOrgsHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "No authenticated identity")
		return
	}

	orgs, err := h.orgRepo.FindByUser(r.Context(), caller.UserID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Listing organizations failed", "error", err, "requestID", chmw.GetReqID(r.Context()))
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "organizations": orgs})
}

// ListMembersHandler returns the active members of the attached org.
func (h *OrganizationHandler) ListMembersHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok || caller.OrgID == nil {
		respondWithError(w, http.StatusForbidden, "no organization in scope")
		return
	}

	members, err := h.orgRepo.FindMembers(r.Context(), *caller.OrgID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Listing members failed", "error", err, "requestID", chmw.GetReqID(r.Context()))
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "members": members})
}

type CreateInviteResponse struct {
	BaseResponse
	Invite    *model.Invite `json:"invite"`
	InviteURL string        `json:"invite_url"`
}

// CreateInviteHandler issues an invite for the attached org. Route is gated
// to owner/admin by the router.
func (h *OrganizationHandler) CreateInviteHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok || caller.OrgID == nil {
		respondWithError(w, http.StatusForbidden, "no organization in scope")
		return
	}

	var input service.CreateInviteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	defer r.Body.Close()

	output, err := h.inviteService.CreateInvite(r.Context(), *caller.OrgID, caller.UserID, input)
	if err != nil {
		slog.ErrorContext(r.Context(), "Invite creation error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		respondWithServiceError(w, r, err)
		return
	}

	h.auditService.Record(r.Context(), service.AuditEntry{
		OrgID:        caller.OrgID,
		UserID:       &caller.UserID,
		Action:       model.ActionInviteSent,
		ResourceType: "invite",
		ResourceID:   output.Invite.ID.String(),
		Meta:         model.JSONMap{"email": output.Invite.Email, "role": output.Invite.Role},
	}, r)

	respondWithJSON(w, http.StatusCreated, CreateInviteResponse{
		BaseResponse: BaseResponse{Ok: true},
		Invite:       output.Invite,
		InviteURL:    output.InviteURL,
	})
}

// ListInvitesHandler returns the attached org's pending invites.
func (h *OrganizationHandler) ListInvitesHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := auth.CallerFromContext(r.Context())
	if !ok || caller.OrgID == nil {
		respondWithError(w, http.StatusForbidden, "no organization in scope")
		return
	}

	invites, err := h.inviteService.ListPending(r.Context(), *caller.OrgID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Listing invites failed", "error", err, "requestID", chmw.GetReqID(r.Context()))
		respondWithServiceError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "invites": invites})
}
