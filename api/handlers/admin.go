package handlers

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/linesmerrill/sentinel-campus-api/api"
	"github.com/linesmerrill/sentinel-campus-api/config"
	"github.com/linesmerrill/sentinel-campus-api/databases"
	"github.com/linesmerrill/sentinel-campus-api/models"
	"github.com/linesmerrill/sentinel-campus-api/triage"
)

// minPasswordLength is the shortest password an admin may sign up with
const minPasswordLength = 6

// Admin handles administrator signup, login and logout
type Admin struct {
	ADB   databases.AdminDatabase
	Guard *api.Guard
}

// isValidEmail checks if an email address is valid
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

// validateSignup checks a signup request before anything is stored
func validateSignup(req models.AdminSignupRequest) error {
	switch {
	case !isValidEmail(strings.TrimSpace(req.Email)):
		return &triage.ValidationError{Field: "email", Reason: "must be a valid email address"}
	case utf8.RuneCountInString(req.Password) < minPasswordLength:
		return &triage.ValidationError{Field: "password", Reason: "must be at least 6 characters"}
	case strings.TrimSpace(req.Name) == "":
		return &triage.ValidationError{Field: "name", Reason: "is required"}
	case !req.Role.Valid():
		return &triage.ValidationError{Field: "role", Reason: "must be one of security, faculty, management"}
	}
	return nil
}

// AdminSignupHandler creates a new administrator and logs them in
func (h Admin) AdminSignupHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AdminSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)

	if err := validateSignup(req); err != nil {
		errorResponse(w, "invalid signup request", err)
		return
	}

	admin, err := h.ADB.Create(r.Context(), req)
	if err != nil {
		errorResponse(w, "failed to create admin", err)
		return
	}
	zap.S().Infow("admin signed up", "adminId", admin.ID, "role", admin.Role)

	h.respondWithToken(w, r, admin, http.StatusCreated)
}

// AdminTokenHandler exchanges basic credentials for a bearer token. The
// guard has already checked the credentials.
func (h Admin) AdminTokenHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.currentAdmin(w, r)
	if !ok {
		return
	}
	h.respondWithToken(w, r, admin, http.StatusOK)
}

// AdminLogoutHandler revokes the bearer token used on the request
func (h Admin) AdminLogoutHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Guard.Revoke(r); err != nil {
		errorResponse(w, "failed to revoke token", err)
		return
	}
	actor, _ := api.ActorFromContext(r.Context())
	zap.S().Infow("admin logged out", "adminId", actor.ID)
	w.WriteHeader(http.StatusNoContent)
}

// AdminMeHandler returns the authenticated administrator
func (h Admin) AdminMeHandler(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.currentAdmin(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, admin)
}

func (h Admin) currentAdmin(w http.ResponseWriter, r *http.Request) (*models.Admin, bool) {
	actor, ok := api.ActorFromContext(r.Context())
	if !ok {
		errorResponse(w, "unauthorized", api.ErrAuthRequired)
		return nil, false
	}
	admin, err := h.ADB.FindByID(r.Context(), actor.ID)
	if err != nil {
		errorResponse(w, "failed to get admin", err)
		return nil, false
	}
	return admin, true
}

func (h Admin) respondWithToken(w http.ResponseWriter, r *http.Request, admin *models.Admin, status int) {
	token, expiresAt, err := h.Guard.IssueToken(r, admin)
	if err != nil {
		errorResponse(w, "failed to issue token", err)
		return
	}
	writeJSON(w, status, models.AdminTokenResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		Admin:     admin,
	})
}
