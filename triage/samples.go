package triage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/sentinel-campus-api/models"
)

type sampleReport struct {
	location     models.Location
	incidentType models.IncidentType
	description  string
	age          time.Duration
	status       models.Status
	assignedTo   string
}

// sampleReports populate an empty store for demos
var sampleReports = []sampleReport{
	{
		location:     models.LocationHostel,
		incidentType: models.IncidentMedical,
		description:  "A student collapsed in the hostel corridor near room 204. They appear to be unconscious and not responding. Some students tried to help but the person is still unresponsive. Need immediate medical attention.",
		age:          30 * time.Minute,
		status:       models.StatusPending,
	},
	{
		location:     models.LocationParking,
		incidentType: models.IncidentSuspicious,
		description:  "There is an unknown person who has been wandering around the parking area for the past hour. They seem to be checking car doors and looking into windows. They are wearing a dark hoodie and avoiding the security cameras.",
		age:          2 * time.Hour,
		status:       models.StatusInProgress,
		assignedTo:   "security_team",
	},
	{
		location:     models.LocationLaboratory,
		incidentType: models.IncidentFire,
		description:  "There was a small fire in Chemistry Lab 3 due to an experiment gone wrong. The fire was contained but there is significant smoke and some equipment damage. The lab needs inspection before it can be used again.",
		age:          5 * time.Hour,
		status:       models.StatusInProgress,
	},
	{
		location:     models.LocationCafeteria,
		incidentType: models.IncidentInfrastructure,
		description:  "Several ceiling tiles in the cafeteria are loose and look like they might fall. This has been an issue for a few weeks but it seems to be getting worse. The area near the entrance is particularly affected.",
		age:          24 * time.Hour,
		status:       models.StatusPending,
	},
	{
		location:     models.LocationLibrary,
		incidentType: models.IncidentInfrastructure,
		description:  "Some of the emergency exit lights in the library basement are not working. Noticed this while studying late yesterday. Could be a problem if there is an actual emergency.",
		age:          48 * time.Hour,
		status:       models.StatusResolved,
	},
	{
		location:     models.LocationPlayground,
		incidentType: models.IncidentOther,
		description:  "The water fountain near the basketball court has been leaking for days. There is a small puddle forming which can be slippery. Not urgent but should be fixed soon.",
		age:          72 * time.Hour,
		status:       models.StatusPending,
	},
}

// Seed submits the sample reports when the store is empty. Reports go
// through the classifier like any other submission. It returns the number
// of issues created.
func (s *Service) Seed(ctx context.Context) (int, error) {
	count, err := s.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count issues: %w", err)
	}
	if count > 0 {
		return 0, nil
	}

	now := s.now()
	// oldest first so listings come back newest first
	for i := len(sampleReports) - 1; i >= 0; i-- {
		r := sampleReports[i]
		incidentType := r.incidentType
		at := now.Add(-r.age)

		issue, err := s.Submit(ctx, models.IssueSubmission{
			Location:         r.location,
			IncidentType:     &incidentType,
			Description:      r.description,
			IncidentDateTime: &at,
		})
		if err != nil {
			return 0, fmt.Errorf("seed sample %d: %w", i, err)
		}
		if r.status == models.StatusPending && r.assignedTo == "" {
			continue
		}

		update := models.IssueUpdate{Status: r.status}
		if r.assignedTo != "" {
			assignee := r.assignedTo
			update.AssignedTo = &assignee
		}
		if _, err := s.Update(ctx, issue.ID, update); err != nil {
			return 0, fmt.Errorf("seed sample %d: %w", i, err)
		}
	}

	zap.S().Infow("seeded sample issues", "count", len(sampleReports))
	return len(sampleReports), nil
}
