// Package docs Sentinel Campus API.
//
// Documentation of the Sentinel Campus incident reporting API.
//
//     Schemes: https
//     BasePath: /
//     Version: 1.0.0
//
//     Consumes:
//     - application/json
//
//     Produces:
//     - application/json
//
//     Security:
//     - basic
//     - bearer
//
//    SecurityDefinitions:
//    basic:
//      type: basic
//    bearer:
//      type: apiKey
//      name: Authorization
//      in: header
//
// swagger:meta
package docs

import (
	"github.com/linesmerrill/sentinel-campus-api/models"
)

// swagger:route GET /health health healthEndpointID
// Lists the healthchex of the web service api.
// responses:
//   200: healthResponse

// Shows the current health of the api and the store backend in use.
// swagger:response healthResponse
type healthResponseWrapper struct {
	// in:body
	Body models.HealthCheckResponse
}

// swagger:route POST /api/v1/issues issues submitIssue
// Files an anonymous incident report. No authentication required.
// responses:
//   201: issueResponse
//   400: errorResponse
//   429: errorResponse

// swagger:parameters submitIssue
type submitIssueParamsWrapper struct {
	// in:body
	Body models.IssueSubmission
}

// swagger:route GET /api/v1/issues/{issue_id} issues issueByID
// Gets a single issue by ID.
// responses:
//   200: issueResponse
//   404: errorResponse

// swagger:route PATCH /api/v1/issues/{issue_id} issues updateIssue
// Changes the status, notes or assignee of an issue.
// responses:
//   200: issueResponse
//   400: errorResponse
//   404: errorResponse
//   409: errorResponse

// swagger:parameters updateIssue
type updateIssueParamsWrapper struct {
	// in:body
	Body models.IssueUpdate
}

// A single triaged issue
// swagger:response issueResponse
type issueResponseWrapper struct {
	// in:body
	Body models.Issue
}

// swagger:route GET /api/v1/issues issues listIssues
// Lists issues, newest first. Filter with status, priority, location and
// incidentType; sort=priority orders high to low.
// responses:
//   200: issuesResponse

// swagger:response issuesResponse
type issuesResponseWrapper struct {
	// in:body
	Body []models.Issue
}

// swagger:route GET /api/v1/issues/stats issues issueStats
// Gets the dashboard counters.
// responses:
//   200: statsResponse

// swagger:response statsResponse
type statsResponseWrapper struct {
	// in:body
	Body models.DashboardStats
}

// swagger:route GET /api/v1/reports/weekly reports weeklyReport
// Gets the latest weekly report. refresh=true recomputes it.
// responses:
//   200: weeklyReportResponse

// swagger:response weeklyReportResponse
type weeklyReportResponseWrapper struct {
	// in:body
	Body models.WeeklyReport
}

// swagger:route POST /api/v1/auth/signup auth adminSignup
// Creates an administrator and returns a token.
// responses:
//   201: tokenResponse
//   400: errorResponse
//   409: errorResponse

// swagger:parameters adminSignup
type adminSignupParamsWrapper struct {
	// in:body
	Body models.AdminSignupRequest
}

// swagger:route POST /api/v1/auth/token auth adminToken
// Exchanges basic credentials for a bearer token.
// responses:
//   200: tokenResponse
//   401: errorResponse

// swagger:response tokenResponse
type tokenResponseWrapper struct {
	// in:body
	Body models.AdminTokenResponse
}

// swagger:response errorResponse
type errorResponseWrapper struct {
	// in:body
	Body models.ErrorMessageResponse
}
