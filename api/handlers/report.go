package handlers

import (
	"net/http"

	"github.com/linesmerrill/sentinel-campus-api/analytics"
	"github.com/linesmerrill/sentinel-campus-api/models"
)

// Report handles weekly report requests
type Report struct {
	Reporter *analytics.Reporter
}

// WeeklyReportHandler returns the latest weekly report. refresh=true
// recomputes it from the current issues first.
func (re Report) WeeklyReportHandler(w http.ResponseWriter, r *http.Request) {
	var (
		report *models.WeeklyReport
		err    error
	)
	if r.URL.Query().Get("refresh") == "true" {
		report, err = re.Reporter.Refresh(r.Context())
	} else {
		report, err = re.Reporter.Latest(r.Context())
	}
	if err != nil {
		errorResponse(w, "failed to build weekly report", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
