package api

import (
	"context"
	"errors"

	"github.com/linesmerrill/sentinel-campus-api/models"
)

var (
	// ErrAuthRequired is returned when a protected route is called without a
	// valid admin identity
	ErrAuthRequired = errors.New("authentication required")
	// ErrRateLimited is returned when a client has used up its submissions
	ErrRateLimited = errors.New("rate limit exceeded")
)

// Actor is the authenticated administrator behind a request
type Actor struct {
	ID    string
	Email string
	Role  models.AdminRole
	// Token is the bearer token the request carried, empty for basic auth
	Token string
}

type actorContextKey struct{}

// WithActor stores the actor on the context
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// ActorFromContext returns the actor stored by the auth middleware
func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(Actor)
	return actor, ok
}
