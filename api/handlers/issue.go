package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/linesmerrill/sentinel-campus-api/analytics"
	"github.com/linesmerrill/sentinel-campus-api/api"
	"github.com/linesmerrill/sentinel-campus-api/config"
	"github.com/linesmerrill/sentinel-campus-api/models"
	"github.com/linesmerrill/sentinel-campus-api/triage"
)

// Issue exported for testing purposes
type Issue struct {
	Service  *triage.Service
	Reporter *analytics.Reporter
}

// SubmitIssueHandler files an anonymous report
func (i Issue) SubmitIssueHandler(w http.ResponseWriter, r *http.Request) {
	var sub models.IssueSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	issue, err := i.Service.Submit(r.Context(), sub)
	if err != nil {
		errorResponse(w, "failed to submit issue", err)
		return
	}
	writeJSON(w, http.StatusCreated, issue)
}

// IssuesHandler returns all issues matching the query filters, newest first
// unless sort=priority is given
func (i Issue) IssuesHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := triage.ListOptions{
		Status:         models.Status(q.Get("status")),
		Priority:       models.Priority(q.Get("priority")),
		Location:       models.Location(q.Get("location")),
		IncidentType:   models.IncidentType(q.Get("incidentType")),
		SortByPriority: strings.EqualFold(q.Get("sort"), "priority"),
	}
	zap.S().Debugw("listing issues", "filters", opts)

	issues, err := i.Service.List(r.Context(), opts)
	if err != nil {
		errorResponse(w, "failed to get issues", err)
		return
	}
	writeJSON(w, http.StatusOK, issues)
}

// IssueByIDHandler returns an issue by ID
func (i Issue) IssueByIDHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["issue_id"]

	issue, err := i.Service.Get(r.Context(), id)
	if err != nil {
		errorResponse(w, "failed to get issue by ID", err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// UpdateIssueHandler changes the status, notes or assignee of an issue
func (i Issue) UpdateIssueHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["issue_id"]

	var update models.IssueUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		config.ErrorStatus("failed to decode request body", http.StatusBadRequest, w, err)
		return
	}

	issue, err := i.Service.Update(r.Context(), id, update)
	if err != nil {
		errorResponse(w, "failed to update issue", err)
		return
	}

	actor, _ := api.ActorFromContext(r.Context())
	zap.S().Infow("issue updated by admin",
		"issueId", id,
		"adminId", actor.ID,
		"status", issue.Status)
	writeJSON(w, http.StatusOK, issue)
}

// AcceptSuggestionsHandler records the suggested actions as the admin notes
// and moves the issue to in_progress
func (i Issue) AcceptSuggestionsHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["issue_id"]

	issue, err := i.Service.AcceptSuggestions(r.Context(), id)
	if err != nil {
		errorResponse(w, "failed to accept suggestions", err)
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

// IssueStatsHandler returns the dashboard counters
func (i Issue) IssueStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := i.Reporter.Stats(r.Context())
	if err != nil {
		errorResponse(w, "failed to get issue stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
