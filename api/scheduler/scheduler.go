package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/linesmerrill/sentinel-campus-api/models"
)

// ReportRefresher recomputes and stores the weekly report
type ReportRefresher interface {
	Refresh(ctx context.Context) (*models.WeeklyReport, error)
}

// Scheduler handles periodic background jobs for the dashboard. The weekly
// report snapshot is kept per process, so every instance refreshes its own.
type Scheduler struct {
	cron       *cron.Cron
	reports    ReportRefresher
	spec       string
	instanceID string
}

// NewScheduler creates a scheduler that refreshes the weekly report on the
// given cron spec
func NewScheduler(reports ReportRefresher, spec string) *Scheduler {
	// Heroku sets this to "web.1", "web.2", etc.
	instanceID := os.Getenv("DYNO")
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		reports:    reports,
		spec:       spec,
		instanceID: instanceID,
	}
}

// Start registers the jobs and begins the scheduler
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.refreshWeeklyReport); err != nil {
		zap.S().Errorw("failed to register weekly report job", "error", err, "spec", s.spec)
		return fmt.Errorf("weekly report schedule %q: %w", s.spec, err)
	}

	s.cron.Start()
	zap.S().Infow("Report scheduler started", "spec", s.spec, "instance", s.instanceID)
	return nil
}

// Stop gracefully stops the scheduler, waiting for a running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Report scheduler stopped")
}

func (s *Scheduler) refreshWeeklyReport() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := s.reports.Refresh(ctx)
	if err != nil {
		zap.S().Errorw("failed to refresh weekly report", "instance", s.instanceID, "error", err)
		return
	}
	zap.S().Infow("Weekly report job complete",
		"instance", s.instanceID,
		"totalIssues", report.TotalIssues,
		"insights", len(report.Insights))
}
