package databases

// go generate: mockery --name AdminDatabase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"github.com/linesmerrill/sentinel-campus-api/models"
)

const adminCollectionName = "admins"

// AdminDatabase defines the interface for admin user operations
type AdminDatabase interface {
	Create(ctx context.Context, signup models.AdminSignupRequest) (*models.Admin, error)
	FindByEmail(ctx context.Context, email string) (*models.Admin, error)
	FindByID(ctx context.Context, id string) (*models.Admin, error)
}

// CheckAdminPassword compares a plain text password against the stored hash
func CheckAdminPassword(admin *models.Admin, password string) bool {
	if admin == nil {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)) == nil
}

// HashAdminPassword returns the bcrypt hash stored for an admin password
func HashAdminPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func newAdmin(signup models.AdminSignupRequest) (*models.Admin, error) {
	hash, err := HashAdminPassword(signup.Password)
	if err != nil {
		return nil, err
	}
	return &models.Admin{
		ID:           uuid.NewString(),
		Email:        normalizeEmail(signup.Email),
		Name:         strings.TrimSpace(signup.Name),
		Role:         signup.Role,
		Phone:        strings.TrimSpace(signup.Phone),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

type memoryAdminDatabase struct {
	mu      sync.RWMutex
	byEmail map[string]*models.Admin
	byID    map[string]*models.Admin
}

// NewMemoryAdminDatabase returns an admin store held in process memory
func NewMemoryAdminDatabase() AdminDatabase {
	return &memoryAdminDatabase{
		byEmail: make(map[string]*models.Admin),
		byID:    make(map[string]*models.Admin),
	}
}

func (a *memoryAdminDatabase) Create(ctx context.Context, signup models.AdminSignupRequest) (*models.Admin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	admin, err := newAdmin(signup)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.byEmail[admin.Email]; ok {
		return nil, fmt.Errorf("admin %s: %w", admin.Email, ErrDuplicateEmail)
	}
	a.byEmail[admin.Email] = admin
	a.byID[admin.ID] = admin

	created := *admin
	return &created, nil
}

func (a *memoryAdminDatabase) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	admin, ok := a.byEmail[normalizeEmail(email)]
	if !ok {
		return nil, fmt.Errorf("admin %s: %w", email, ErrNotFound)
	}
	found := *admin
	return &found, nil
}

func (a *memoryAdminDatabase) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()

	admin, ok := a.byID[id]
	if !ok {
		return nil, fmt.Errorf("admin %s: %w", id, ErrNotFound)
	}
	found := *admin
	return &found, nil
}

type adminDatabase struct {
	db     DatabaseHelper
	policy retryPolicy
}

// NewAdminDatabase creates a mongo backed admin store
func NewAdminDatabase(db DatabaseHelper, opts IssueDatabaseOptions) AdminDatabase {
	return &adminDatabase{
		db: db,
		policy: retryPolicy{
			attempts: opts.RetryAttempts,
			backoff:  opts.RetryBackoff,
			timeout:  opts.QueryTimeout,
		},
	}
}

func (a *adminDatabase) Create(ctx context.Context, signup models.AdminSignupRequest) (*models.Admin, error) {
	_, err := a.FindByEmail(ctx, signup.Email)
	if err == nil {
		return nil, fmt.Errorf("admin %s: %w", normalizeEmail(signup.Email), ErrDuplicateEmail)
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	admin, err := newAdmin(signup)
	if err != nil {
		return nil, err
	}
	err = a.policy.do(ctx, "admins.create", func(ctx context.Context, attempt int) error {
		_, err := a.db.Collection(adminCollectionName).InsertOne(ctx, admin)
		if mongo.IsDuplicateKeyError(err) {
			if attempt > 0 {
				return nil
			}
			return fmt.Errorf("admin %s: %w", admin.Email, ErrDuplicateEmail)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return admin, nil
}

func (a *adminDatabase) FindByEmail(ctx context.Context, email string) (*models.Admin, error) {
	return a.findOne(ctx, bson.M{"email": normalizeEmail(email)}, email)
}

func (a *adminDatabase) FindByID(ctx context.Context, id string) (*models.Admin, error) {
	return a.findOne(ctx, bson.M{"_id": id}, id)
}

func (a *adminDatabase) findOne(ctx context.Context, filter bson.M, key string) (*models.Admin, error) {
	admin := &models.Admin{}
	err := a.policy.do(ctx, "admins.find", func(ctx context.Context, _ int) error {
		return a.db.Collection(adminCollectionName).FindOne(ctx, filter).Decode(admin)
	})
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("admin %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return admin, nil
}
