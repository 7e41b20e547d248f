package databases

import (
	"context"
	"fmt"
	"sync"

	"github.com/linesmerrill/sentinel-campus-api/models"
)

type memoryIssueDatabase struct {
	opts IssueDatabaseOptions

	mu    sync.RWMutex
	order []string
	byID  map[string]*models.Issue
}

// NewMemoryIssueDatabase returns an issue store that lives in process memory.
// It is safe for concurrent use and never shares records with callers.
func NewMemoryIssueDatabase(opts IssueDatabaseOptions) IssueDatabase {
	return &memoryIssueDatabase{
		opts: opts,
		byID: make(map[string]*models.Issue),
	}
}

func (d *memoryIssueDatabase) Append(ctx context.Context, issue *models.Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byID[issue.ID]; ok {
		return fmt.Errorf("append %s: %w", issue.ID, ErrDuplicateID)
	}
	d.byID[issue.ID] = issue.Clone()
	d.order = append(d.order, issue.ID)
	return nil
}

func (d *memoryIssueDatabase) SetStatus(ctx context.Context, id string, update models.IssueUpdate) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	current, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	if update.ExpectedVersion != nil && *update.ExpectedVersion != current.Version {
		return nil, fmt.Errorf("issue %s: %w", id, ErrVersionConflict)
	}

	// build the next revision on a copy and swap it in whole
	next := current.Clone()
	now := d.opts.now()
	next.Status = update.Status
	if update.Notes != nil && *update.Notes != "" {
		notes := *update.Notes
		next.AdminNotes = &notes
	}
	if update.AssignedTo != nil {
		if *update.AssignedTo == "" {
			next.AssignedTo = nil
		} else {
			assignee := *update.AssignedTo
			next.AssignedTo = &assignee
		}
	}
	if update.Status == models.StatusResolved {
		resolved := now
		next.ResolvedAt = &resolved
	} else if d.opts.ClearResolvedAtOnReopen {
		next.ResolvedAt = nil
	}
	next.UpdatedAt = now
	next.Version++

	d.byID[id] = next
	return next.Clone(), nil
}

func (d *memoryIssueDatabase) Get(ctx context.Context, id string) (*models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	issue, ok := d.byID[id]
	if !ok {
		return nil, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	return issue.Clone(), nil
}

// List returns every issue, most recently submitted first
func (d *memoryIssueDatabase) List(ctx context.Context) ([]models.Issue, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	issues := make([]models.Issue, 0, len(d.order))
	for i := len(d.order) - 1; i >= 0; i-- {
		issues = append(issues, *d.byID[d.order[i]].Clone())
	}
	return issues, nil
}

func (d *memoryIssueDatabase) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.order), nil
}
