package triage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/linesmerrill/sentinel-campus-api/databases"
	"github.com/linesmerrill/sentinel-campus-api/models"
)

const (
	// MaxDescriptionLength is the longest description accepted, in characters
	MaxDescriptionLength = 1000

	dateLayout     = "2006-01-02"
	timeLayout     = "15:04"
	dateTimeLayout = dateLayout + "T" + timeLayout
)

// Publisher receives issue events after they are stored
type Publisher interface {
	Publish(event models.IssueEvent)
}

// ListOptions narrows and orders a listing. Zero values match everything.
type ListOptions struct {
	Status         models.Status
	Priority       models.Priority
	Location       models.Location
	IncidentType   models.IncidentType
	SortByPriority bool
}

// Service is the core boundary between transports and the issue store
type Service struct {
	classifier Classifier
	store      databases.IssueDatabase
	ids        IDGenerator
	publishers []Publisher
	now        func() time.Time
	location   *time.Location
}

// Option configures a Service
type Option func(*Service)

// WithClassifier swaps the rule classifier for another implementation
func WithClassifier(c Classifier) Option {
	return func(s *Service) { s.classifier = c }
}

// WithPublisher registers a sink for issue events
func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.Subscribe(p) }
}

// Subscribe adds a sink for issue events. Call it before serving requests.
func (s *Service) Subscribe(p Publisher) {
	s.publishers = append(s.publishers, p)
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTimezone sets the zone used to read separate date and time fields
func WithTimezone(loc *time.Location) Option {
	return func(s *Service) { s.location = loc }
}

// NewService wires a triage service over the given store
func NewService(store databases.IssueDatabase, ids IDGenerator, opts ...Option) *Service {
	s := &Service{
		classifier: RuleClassifier{},
		store:      store,
		ids:        ids,
		now:        func() time.Time { return time.Now().UTC() },
		location:   time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates and classifies an anonymous report, then stores it as a
// pending issue
func (s *Service) Submit(ctx context.Context, sub models.IssueSubmission) (*models.Issue, error) {
	incidentAt, err := s.validateSubmission(sub)
	if err != nil {
		return nil, err
	}

	c := s.classifier.Classify(sub.Description, sub.Location, sub.IncidentType)
	now := databases.StoreTime(s.now())
	incidentAt = databases.StoreTime(incidentAt)
	issue := &models.Issue{
		ID:               s.ids.NextID(),
		Location:         sub.Location,
		IncidentType:     sub.IncidentType,
		Description:      sub.Description,
		IncidentDateTime: incidentAt,
		CreatedAt:        now,
		Priority:         c.Priority,
		SeverityScore:    c.SeverityScore,
		Summary:          c.Summary,
		SuggestedActions: c.SuggestedActions,
		Status:           models.StatusPending,
		UpdatedAt:        now,
		Version:          1,
	}
	if custom := strings.TrimSpace(sub.CustomLocation); sub.Location == models.LocationOther && custom != "" {
		issue.CustomLocation = &custom
	}

	if err := s.store.Append(ctx, issue); err != nil {
		return nil, fmt.Errorf("store issue: %w", err)
	}
	zap.S().Infow("issue submitted",
		"id", issue.ID,
		"priority", issue.Priority,
		"severity", issue.SeverityScore)

	s.publish(models.IssueCreatedEvent, issue)
	return issue.Clone(), nil
}

func (s *Service) validateSubmission(sub models.IssueSubmission) (time.Time, error) {
	if sub.Location == "" {
		return time.Time{}, invalid("location", "is required")
	}
	if !sub.Location.Valid() {
		return time.Time{}, invalid("location", fmt.Sprintf("unknown location %q", sub.Location))
	}
	if sub.IncidentType != nil && !sub.IncidentType.Valid() {
		return time.Time{}, invalid("incidentType", fmt.Sprintf("unknown incident type %q", *sub.IncidentType))
	}
	if strings.TrimSpace(sub.Description) == "" {
		return time.Time{}, invalid("description", "is required")
	}
	if n := utf8.RuneCountInString(sub.Description); n > MaxDescriptionLength {
		return time.Time{}, invalid("description", fmt.Sprintf("must be at most %d characters, got %d", MaxDescriptionLength, n))
	}
	return s.incidentTime(sub)
}

func (s *Service) incidentTime(sub models.IssueSubmission) (time.Time, error) {
	if sub.IncidentDateTime != nil && !sub.IncidentDateTime.IsZero() {
		return sub.IncidentDateTime.UTC(), nil
	}
	date, clock := strings.TrimSpace(sub.Date), strings.TrimSpace(sub.Time)
	if date == "" {
		return time.Time{}, invalid("date", "is required")
	}
	if clock == "" {
		return time.Time{}, invalid("time", "is required")
	}
	t, err := time.ParseInLocation(dateTimeLayout, date+"T"+clock, s.location)
	if err != nil {
		return time.Time{}, invalid("date", fmt.Sprintf("expected %s and %s", dateLayout, timeLayout))
	}
	return t.UTC(), nil
}

// List returns stored issues, most recent first unless SortByPriority is set.
// The priority sort is stable so equal ranks keep their recency order.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]models.Issue, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	issues, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}

	filtered := issues[:0]
	for _, issue := range issues {
		if opts.matches(issue) {
			filtered = append(filtered, issue)
		}
	}
	if opts.SortByPriority {
		SortByPriority(filtered)
	}
	return filtered, nil
}

// SortByPriority orders issues high, moderate, low without disturbing the
// relative order of issues that share a priority
func SortByPriority(issues []models.Issue) {
	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Priority.Rank() < issues[j].Priority.Rank()
	})
}

func (o ListOptions) validate() error {
	if o.Status != "" && !o.Status.Valid() {
		return invalid("status", fmt.Sprintf("unknown status %q", o.Status))
	}
	if o.Priority != "" && !o.Priority.Valid() {
		return invalid("priority", fmt.Sprintf("unknown priority %q", o.Priority))
	}
	if o.Location != "" && !o.Location.Valid() {
		return invalid("location", fmt.Sprintf("unknown location %q", o.Location))
	}
	if o.IncidentType != "" && !o.IncidentType.Valid() {
		return invalid("incidentType", fmt.Sprintf("unknown incident type %q", o.IncidentType))
	}
	return nil
}

func (o ListOptions) matches(issue models.Issue) bool {
	if o.Status != "" && issue.Status != o.Status {
		return false
	}
	if o.Priority != "" && issue.Priority != o.Priority {
		return false
	}
	if o.Location != "" && issue.Location != o.Location {
		return false
	}
	if o.IncidentType != "" && (issue.IncidentType == nil || *issue.IncidentType != o.IncidentType) {
		return false
	}
	return true
}

// Get returns a single issue
func (s *Service) Get(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get issue: %w", err)
	}
	return issue, nil
}

// Update changes the administrative state of an issue. A failed update
// leaves the issue as it was.
func (s *Service) Update(ctx context.Context, id string, update models.IssueUpdate) (*models.Issue, error) {
	if update.Status == "" {
		return nil, invalid("status", "is required")
	}
	if !update.Status.Valid() {
		return nil, invalid("status", fmt.Sprintf("unknown status %q", update.Status))
	}

	issue, err := s.store.SetStatus(ctx, id, update)
	if err != nil {
		return nil, fmt.Errorf("update issue: %w", err)
	}
	zap.S().Infow("issue updated",
		"id", issue.ID,
		"status", issue.Status,
		"version", issue.Version)

	s.publish(models.IssueUpdatedEvent, issue)
	return issue, nil
}

// AcceptSuggestions moves an issue to in_progress and records the accepted
// suggested actions as its admin notes
func (s *Service) AcceptSuggestions(ctx context.Context, id string) (*models.Issue, error) {
	issue, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("Suggested actions accepted:")
	for i, action := range issue.SuggestedActions {
		fmt.Fprintf(&b, "\n%d. %s", i+1, action)
	}
	notes := b.String()

	return s.Update(ctx, id, models.IssueUpdate{
		Status:          models.StatusInProgress,
		Notes:           &notes,
		ExpectedVersion: &issue.Version,
	})
}

func (s *Service) publish(event string, issue *models.Issue) {
	for _, p := range s.publishers {
		p.Publish(models.IssueEvent{Event: event, Issue: issue.Clone()})
	}
}
