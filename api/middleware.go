package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shaj13/go-guardian/auth"
	"github.com/shaj13/go-guardian/auth/strategies/basic"
	"github.com/shaj13/go-guardian/auth/strategies/bearer"
	"github.com/shaj13/go-guardian/store"
	"go.uber.org/zap"

	"github.com/linesmerrill/sentinel-campus-api/config"
	"github.com/linesmerrill/sentinel-campus-api/databases"
	"github.com/linesmerrill/sentinel-campus-api/models"
)

const (
	roleExtension  = "role"
	tokenExtension = "jti"
)

type tokenClaims struct {
	Email string           `json:"email"`
	Role  models.AdminRole `json:"role"`
	jwt.RegisteredClaims
}

// Guard authenticates administrators with HTTP basic credentials or a bearer
// token minted at login
type Guard struct {
	admins        databases.AdminDatabase
	secret        []byte
	ttl           time.Duration
	now           func() time.Time
	authenticator auth.Authenticator

	mu      sync.Mutex
	revoked map[string]time.Time
}

// NewGuard sets up the go-guardian strategies. The token cache lives until
// ctx is done.
func NewGuard(ctx context.Context, admins databases.AdminDatabase, secret string, ttl time.Duration) *Guard {
	g := &Guard{
		admins:  admins,
		secret:  []byte(secret),
		ttl:     ttl,
		now:     time.Now,
		revoked: make(map[string]time.Time),
	}

	cache := store.NewFIFO(ctx, ttl)
	basicStrategy := basic.New(g.ValidateAdmin, cache)
	tokenStrategy := bearer.New(g.validateToken, cache)

	g.authenticator = auth.New()
	g.authenticator.EnableStrategy(basic.StrategyKey, basicStrategy)
	g.authenticator.EnableStrategy(bearer.CachedStrategyKey, tokenStrategy)
	return g
}

// Middleware rejects requests without a valid admin identity and stores the
// actor on the request context
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// browsers cannot set headers on websocket handshakes
		if r.Header.Get("Authorization") == "" {
			if token := r.URL.Query().Get("token"); token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}

		info, err := g.authenticator.Authenticate(r)
		if err != nil {
			zap.S().Infow("unauthorized",
				"url", r.URL.Path,
				"error", err)
			config.ErrorStatus("unauthorized", http.StatusUnauthorized, w, ErrAuthRequired)
			return
		}
		zap.S().Debugf("Admin %s Authenticated", info.UserName())

		actor := Actor{
			ID:    info.ID(),
			Email: info.UserName(),
			Token: bearerToken(r),
		}
		if roles := info.Extensions()[roleExtension]; len(roles) > 0 {
			actor.Role = models.AdminRole(roles[0])
		}
		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// ValidateAdmin checks basic credentials against the admin store
func (g *Guard) ValidateAdmin(ctx context.Context, r *http.Request, email, password string) (auth.Info, error) {
	admin, err := g.admins.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("invalid credentials")
	}
	if !databases.CheckAdminPassword(admin, password) {
		return nil, fmt.Errorf("invalid credentials")
	}
	return adminInfo(admin.Email, admin.ID, admin.Role, ""), nil
}

// IssueToken mints a signed token for the admin and registers it with the
// bearer strategy
func (g *Guard) IssueToken(r *http.Request, admin *models.Admin) (string, time.Time, error) {
	now := g.now()
	expiresAt := now.Add(g.ttl)
	jti := uuid.NewString()

	claims := tokenClaims{
		Email: admin.Email,
		Role:  admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   admin.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	tokenStrategy := g.authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Append(tokenStrategy, token, adminInfo(admin.Email, admin.ID, admin.Role, jti), r); err != nil {
		return "", time.Time{}, fmt.Errorf("register token: %w", err)
	}
	return token, expiresAt, nil
}

// Revoke invalidates the bearer token on the request
func (g *Guard) Revoke(r *http.Request) (string, error) {
	token := bearerToken(r)
	if token == "" {
		return "", ErrAuthRequired
	}

	if claims, err := g.parse(token); err == nil {
		g.mu.Lock()
		g.revoked[claims.ID] = claims.ExpiresAt.Time
		g.pruneLocked()
		g.mu.Unlock()
	}

	tokenStrategy := g.authenticator.Strategy(bearer.CachedStrategyKey)
	if err := auth.Revoke(tokenStrategy, token, r); err != nil {
		return "", fmt.Errorf("revoke token: %w", err)
	}
	return token, nil
}

// validateToken accepts tokens that are not cached, for example after the
// cache evicted them, as long as they verify and were not revoked
func (g *Guard) validateToken(ctx context.Context, r *http.Request, token string) (auth.Info, error) {
	claims, err := g.parse(token)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	_, revoked := g.revoked[claims.ID]
	g.mu.Unlock()
	if revoked {
		return nil, errors.New("token revoked")
	}
	return adminInfo(claims.Email, claims.Subject, claims.Role, claims.ID), nil
}

func (g *Guard) parse(token string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return g.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(g.now))
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return claims, nil
}

func (g *Guard) pruneLocked() {
	now := g.now()
	for jti, expiresAt := range g.revoked {
		if expiresAt.Before(now) {
			delete(g.revoked, jti)
		}
	}
}

func adminInfo(email, id string, role models.AdminRole, jti string) auth.Info {
	ext := map[string][]string{roleExtension: {string(role)}}
	if jti != "" {
		ext[tokenExtension] = []string{jti}
	}
	return auth.NewDefaultUser(email, id, nil, ext)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
