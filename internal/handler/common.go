// internal/handler/common.go
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/casedesk/casedesk/internal/domain"
	chmw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
)

type ErrorResponse struct {
	BaseResponse
	Error   string    `json:"error"`
	Details *[]string `json:"details,omitempty"`
}

type BaseResponse struct {
	Ok bool `json:"ok"`
}

// respondWithError sends an error response with a message
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	// Sets content type header
	w.Header().Set("Content-Type", "application/json")

	// Sets the HTTP status code
	w.WriteHeader(code)

	// Encodes the response
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// If encoding fails, logs the error and sends a plain text response
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// respondWithServiceError maps domain errors to the HTTP taxonomy. Anything
// unmapped is logged and hidden behind a generic 500.
func respondWithServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]string, 0, len(validationErrs))
		for _, fieldErr := range validationErrs {
			details = append(details, fmt.Sprintf("%s: failed on %q", fieldErr.Field(), fieldErr.Tag()))
		}
		respondWithJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation failed",
			Details: &details,
		})
		return
	}

	switch {
	case errors.Is(err, domain.ErrEmailAlreadyExists):
		respondWithError(w, http.StatusConflict, "Email already exists")
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondWithError(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, domain.ErrInviteNotFound),
		errors.Is(err, domain.ErrInviteExpired),
		errors.Is(err, domain.ErrInviteConsumed),
		errors.Is(err, domain.ErrInviteEmail):
		respondWithError(w, http.StatusBadRequest, "Invalid or expired invite")
	case errors.Is(err, domain.ErrAlreadyMember):
		respondWithError(w, http.StatusBadRequest, "User is already a member")
	case errors.Is(err, domain.ErrNoOrgAccess):
		respondWithError(w, http.StatusForbidden, "access denied to organization")
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrOrganizationNotFound),
		errors.Is(err, domain.ErrMembershipNotFound):
		respondWithError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, domain.ErrInvalidInput):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Unhandled service error", "error", err, "requestID", chmw.GetReqID(r.Context()))
		respondWithError(w, http.StatusInternalServerError, "Internal server error")
	}
}
