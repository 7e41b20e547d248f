// Package analytics derives dashboard counters and weekly reports from the
// issue list.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/sentinel-campus-api/models"
	"github.com/linesmerrill/sentinel-campus-api/triage"
)

const (
	// Week is the span covered by a weekly report
	Week = 7 * 24 * time.Hour

	topN = 3
)

// Stats counts issues by priority and status
func Stats(issues []models.Issue) models.DashboardStats {
	var s models.DashboardStats
	for _, issue := range issues {
		s.Total++
		switch issue.Priority {
		case models.PriorityHigh:
			s.High++
		case models.PriorityModerate:
			s.Moderate++
		case models.PriorityLow:
			s.Low++
		}
		switch issue.Status {
		case models.StatusPending:
			s.Pending++
		case models.StatusInProgress:
			s.InProgress++
		case models.StatusResolved:
			s.Resolved++
		}
	}
	return s
}

// BuildWeeklyReport summarises the issues created in the week ending at end
func BuildWeeklyReport(issues []models.Issue, end time.Time) *models.WeeklyReport {
	start := end.Add(-Week)
	report := &models.WeeklyReport{
		WeekStart:   start,
		WeekEnd:     end,
		GeneratedAt: end,
	}

	locations := make(map[models.Location]int)
	types := make(map[models.IncidentType]int)
	highPending := 0
	for _, issue := range issues {
		if issue.CreatedAt.Before(start) || !issue.CreatedAt.Before(end) {
			continue
		}
		report.TotalIssues++
		switch issue.Priority {
		case models.PriorityHigh:
			report.HighPriority++
			if issue.Status == models.StatusPending {
				highPending++
			}
		case models.PriorityModerate:
			report.ModeratePriority++
		case models.PriorityLow:
			report.LowPriority++
		}
		switch issue.Status {
		case models.StatusResolved:
			report.ResolvedCount++
		case models.StatusPending:
			report.PendingCount++
		}

		locations[issue.Location]++
		it := models.IncidentOther
		if issue.IncidentType != nil {
			it = *issue.IncidentType
		}
		types[it]++
	}

	report.TopLocations = topLocations(locations)
	report.TopTypes = topTypes(types)
	report.Insights = insights(report, highPending)
	return report
}

// topLocations ranks by count, breaking ties by display order
func topLocations(counts map[models.Location]int) []models.LocationCount {
	ranked := make([]models.Location, 0, len(counts))
	for _, l := range models.Locations {
		if counts[l] > 0 {
			ranked = append(ranked, l)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	out := make([]models.LocationCount, 0, len(ranked))
	for _, l := range ranked {
		out = append(out, models.LocationCount{Location: triage.LocationLabel(l), Count: counts[l]})
	}
	return out
}

func topTypes(counts map[models.IncidentType]int) []models.TypeCount {
	ranked := make([]models.IncidentType, 0, len(counts))
	for _, t := range models.IncidentTypes {
		if counts[t] > 0 {
			ranked = append(ranked, t)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return counts[ranked[i]] > counts[ranked[j]]
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}

	out := make([]models.TypeCount, 0, len(ranked))
	for _, t := range ranked {
		out = append(out, models.TypeCount{Type: triage.IncidentTypeLabel(t), Count: counts[t]})
	}
	return out
}

func insights(r *models.WeeklyReport, highPending int) []string {
	if r.TotalIssues == 0 {
		return []string{"No incidents were reported this week."}
	}

	var out []string
	if r.HighPriority > 0 {
		line := fmt.Sprintf("%d high-priority %s reported this week.", r.HighPriority, plural(r.HighPriority, "incident", "incidents"))
		if highPending > 0 {
			line += fmt.Sprintf(" %d still %s a response.", highPending, plural(highPending, "awaits", "await"))
		}
		out = append(out, line)
	}
	if len(r.TopLocations) > 0 && r.TopLocations[0].Count > 1 {
		top := r.TopLocations[0]
		out = append(out, fmt.Sprintf("%s accounts for %d%% of reports (%d of %d). Consider increasing patrols there.",
			top.Location, percent(top.Count, r.TotalIssues), top.Count, r.TotalIssues))
	}
	if len(r.TopTypes) > 0 {
		top := r.TopTypes[0]
		out = append(out, fmt.Sprintf("%s was the most reported category with %d %s.",
			top.Type, top.Count, plural(top.Count, "report", "reports")))
	}
	out = append(out, fmt.Sprintf("%d%% of this week's issues are resolved.", percent(r.ResolvedCount, r.TotalIssues)))
	return out
}

func percent(n, total int) int {
	if total == 0 {
		return 0
	}
	return n * 100 / total
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// IssueLister is the slice of the triage service the reporter reads from
type IssueLister interface {
	List(ctx context.Context, opts triage.ListOptions) ([]models.Issue, error)
}

// DefaultMaxAge bounds how long a cached weekly report is served when no
// issue event invalidates it first
const DefaultMaxAge = 5 * time.Minute

// Reporter computes stats on demand and keeps the latest weekly report so
// dashboards do not rescan the store on every request. The cached report is
// dropped on every issue event and rebuilt once it is older than maxAge, so
// changes made through other instances show up too.
type Reporter struct {
	issues IssueLister
	now    func() time.Time
	maxAge time.Duration

	mu      sync.RWMutex
	latest  *models.WeeklyReport
	builtAt time.Time
}

// ReporterOption configures a Reporter
type ReporterOption func(*Reporter)

// WithMaxAge sets how long Latest serves a cached report. Zero or less
// keeps the default.
func WithMaxAge(d time.Duration) ReporterOption {
	return func(r *Reporter) {
		if d > 0 {
			r.maxAge = d
		}
	}
}

// NewReporter creates a reporter over the given issue source
func NewReporter(issues IssueLister, now func() time.Time, opts ...ReporterOption) *Reporter {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	r := &Reporter{issues: issues, now: now, maxAge: DefaultMaxAge}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stats returns the live dashboard counters
func (r *Reporter) Stats(ctx context.Context) (models.DashboardStats, error) {
	issues, err := r.issues.List(ctx, triage.ListOptions{})
	if err != nil {
		return models.DashboardStats{}, err
	}
	return Stats(issues), nil
}

// Refresh recomputes the weekly report ending now and stores it as latest
func (r *Reporter) Refresh(ctx context.Context) (*models.WeeklyReport, error) {
	issues, err := r.issues.List(ctx, triage.ListOptions{})
	if err != nil {
		return nil, err
	}
	now := r.now()
	report := BuildWeeklyReport(issues, now)

	r.mu.Lock()
	r.latest = report
	r.builtAt = now
	r.mu.Unlock()

	zap.S().Infow("weekly report refreshed",
		"weekStart", report.WeekStart,
		"totalIssues", report.TotalIssues)
	return report, nil
}

// Latest returns the cached weekly report while it is fresh, rebuilding it
// otherwise
func (r *Reporter) Latest(ctx context.Context) (*models.WeeklyReport, error) {
	r.mu.RLock()
	latest, builtAt := r.latest, r.builtAt
	r.mu.RUnlock()
	if latest != nil && r.now().Sub(builtAt) < r.maxAge {
		return latest, nil
	}
	return r.Refresh(ctx)
}

// Publish drops the cached report so the next Latest sees the change
func (r *Reporter) Publish(event models.IssueEvent) {
	r.mu.Lock()
	r.latest = nil
	r.mu.Unlock()
}
