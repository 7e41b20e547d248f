package databases

// go generate: mockery --name IssueDatabase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/linesmerrill/sentinel-campus-api/models"
)

const issueName = "issues"

// IssueDatabase contains the methods to use with the issue store
type IssueDatabase interface {
	Append(ctx context.Context, issue *models.Issue) error
	SetStatus(ctx context.Context, id string, update models.IssueUpdate) (*models.Issue, error)
	Get(ctx context.Context, id string) (*models.Issue, error)
	List(ctx context.Context) ([]models.Issue, error)
	Count(ctx context.Context) (int, error)
}

// IssueDatabaseOptions tunes the behaviour shared by every issue store
type IssueDatabaseOptions struct {
	// QueryTimeout bounds a single store round trip
	QueryTimeout time.Duration
	// RetryAttempts is the number of tries made on transient failures
	RetryAttempts int
	// RetryBackoff is the wait before the first retry, doubled on each retry
	RetryBackoff time.Duration
	// ClearResolvedAtOnReopen drops resolvedAt when a resolved issue moves
	// back to pending or in_progress
	ClearResolvedAtOnReopen bool
	// Now is the clock used to stamp updates
	Now func() time.Time
}

func (o IssueDatabaseOptions) now() time.Time {
	if o.Now != nil {
		return StoreTime(o.Now())
	}
	return StoreTime(time.Now())
}

// StoreTime rounds t down to the millisecond precision of BSON dates, so an
// issue reads back exactly as it was written
func StoreTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

type issueDatabase struct {
	db     DatabaseHelper
	opts   IssueDatabaseOptions
	policy retryPolicy
}

// NewIssueDatabase initializes a mongo backed issue store with the provided db connection
func NewIssueDatabase(db DatabaseHelper, opts IssueDatabaseOptions) IssueDatabase {
	return &issueDatabase{
		db:   db,
		opts: opts,
		policy: retryPolicy{
			attempts: opts.RetryAttempts,
			backoff:  opts.RetryBackoff,
			timeout:  opts.QueryTimeout,
		},
	}
}

func (d *issueDatabase) Append(ctx context.Context, issue *models.Issue) error {
	return d.policy.do(ctx, "issues.append", func(ctx context.Context, attempt int) error {
		_, err := d.db.Collection(issueName).InsertOne(ctx, issue)
		if mongo.IsDuplicateKeyError(err) {
			// an earlier attempt that timed out on the wire may have landed
			if attempt > 0 {
				return nil
			}
			return fmt.Errorf("append %s: %w", issue.ID, ErrDuplicateID)
		}
		return err
	})
}

func (d *issueDatabase) SetStatus(ctx context.Context, id string, update models.IssueUpdate) (*models.Issue, error) {
	filter := bson.M{"_id": id}
	if update.ExpectedVersion != nil {
		filter["version"] = *update.ExpectedVersion
	}

	now := d.opts.now()
	set := bson.M{
		"status":    update.Status,
		"updatedAt": now,
	}
	unset := bson.M{}
	if update.Notes != nil && *update.Notes != "" {
		set["adminNotes"] = *update.Notes
	}
	if update.AssignedTo != nil {
		if *update.AssignedTo == "" {
			unset["assignedTo"] = ""
		} else {
			set["assignedTo"] = *update.AssignedTo
		}
	}
	if update.Status == models.StatusResolved {
		set["resolvedAt"] = now
	} else if d.opts.ClearResolvedAtOnReopen {
		unset["resolvedAt"] = ""
	}

	change := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
	}
	if len(unset) > 0 {
		change["$unset"] = unset
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	issue := &models.Issue{}
	err := d.policy.do(ctx, "issues.set_status", func(ctx context.Context, _ int) error {
		return d.db.Collection(issueName).FindOneAndUpdate(ctx, filter, change, opts).Decode(issue)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, d.missing(ctx, id, update.ExpectedVersion != nil)
	}
	if err != nil {
		return nil, err
	}
	return issue, nil
}

// missing tells an unknown id apart from a stale expected version
func (d *issueDatabase) missing(ctx context.Context, id string, versioned bool) error {
	if !versioned {
		return fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	var count int64
	err := d.policy.do(ctx, "issues.count", func(ctx context.Context, _ int) error {
		var err error
		count, err = d.db.Collection(issueName).CountDocuments(ctx, bson.M{"_id": id})
		return err
	})
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("issue %s: %w", id, ErrVersionConflict)
	}
	return fmt.Errorf("issue %s: %w", id, ErrNotFound)
}

func (d *issueDatabase) Get(ctx context.Context, id string) (*models.Issue, error) {
	issue := &models.Issue{}
	err := d.policy.do(ctx, "issues.get", func(ctx context.Context, _ int) error {
		return d.db.Collection(issueName).FindOne(ctx, bson.M{"_id": id}).Decode(issue)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("issue %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return issue, nil
}

func (d *issueDatabase) List(ctx context.Context) ([]models.Issue, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	var issues []models.Issue
	err := d.policy.do(ctx, "issues.list", func(ctx context.Context, _ int) error {
		issues = nil
		cr, err := d.db.Collection(issueName).Find(ctx, bson.M{}, opts)
		if err != nil {
			return err
		}
		return cr.Decode(&issues)
	})
	if err != nil {
		return nil, err
	}
	if issues == nil {
		issues = []models.Issue{}
	}
	return issues, nil
}

func (d *issueDatabase) Count(ctx context.Context) (int, error) {
	var count int64
	err := d.policy.do(ctx, "issues.count", func(ctx context.Context, _ int) error {
		var err error
		count, err = d.db.Collection(issueName).CountDocuments(ctx, bson.M{})
		return err
	})
	return int(count), err
}
