package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/linesmerrill/sentinel-campus-api/analytics"
	"github.com/linesmerrill/sentinel-campus-api/api"
	"github.com/linesmerrill/sentinel-campus-api/api/scheduler"
	"github.com/linesmerrill/sentinel-campus-api/config"
	"github.com/linesmerrill/sentinel-campus-api/databases"
	"github.com/linesmerrill/sentinel-campus-api/models"
	"github.com/linesmerrill/sentinel-campus-api/triage"
)

// maxTraces bounds the request traces kept for percentiles
const maxTraces = 1000

// App stores the router and every long lived component, so they can be
// reused across requests and torn down together
type App struct {
	Router *mux.Router
	Config config.Config

	issues    databases.IssueDatabase
	admins    databases.AdminDatabase
	service   *triage.Service
	reporter  *analytics.Reporter
	guard     *api.Guard
	limiter   *api.SubmissionRateLimiter
	metrics   *api.MetricsCollector
	hub       *IssueHub
	scheduler *scheduler.Scheduler

	client databases.ClientHelper
	redis  *redis.Client
	cancel context.CancelFunc
}

// New creates a new mux router and all the routes
func (a *App) New() *mux.Router {
	r := mux.NewRouter()
	r.Use(a.metrics.Middleware, api.TimeoutMiddleware(a.Config.RequestTimeout))

	i := Issue{Service: a.service, Reporter: a.reporter}
	ad := Admin{ADB: a.admins, Guard: a.guard}
	report := Report{Reporter: a.reporter}
	m := MetricsHandler{Collector: a.metrics}
	guard := a.guard.Middleware

	// healthchex
	r.HandleFunc("/health", a.healthCheckHandler).Methods("GET")

	apiCreate := r.PathPrefix("/api/v1").Subrouter()

	submit := http.Handler(http.HandlerFunc(i.SubmitIssueHandler))
	if a.limiter != nil {
		submit = a.limiter.Middleware(submit)
	}
	apiCreate.Handle("/issues", submit).Methods("POST")
	apiCreate.Handle("/issues", guard(http.HandlerFunc(i.IssuesHandler))).Methods("GET")
	// fixed paths must be registered before {issue_id}
	apiCreate.Handle("/issues/stats", guard(http.HandlerFunc(i.IssueStatsHandler))).Methods("GET")
	apiCreate.Handle("/issues/stream", guard(http.HandlerFunc(a.hub.IssueStreamHandler))).Methods("GET")
	apiCreate.Handle("/issues/{issue_id}", guard(http.HandlerFunc(i.IssueByIDHandler))).Methods("GET")
	apiCreate.Handle("/issues/{issue_id}", guard(http.HandlerFunc(i.UpdateIssueHandler))).Methods("PATCH")
	apiCreate.Handle("/issues/{issue_id}/accept-suggestions", guard(http.HandlerFunc(i.AcceptSuggestionsHandler))).Methods("POST")

	apiCreate.Handle("/reports/weekly", guard(http.HandlerFunc(report.WeeklyReportHandler))).Methods("GET")

	apiCreate.Handle("/auth/signup", http.HandlerFunc(ad.AdminSignupHandler)).Methods("POST")
	apiCreate.Handle("/auth/token", guard(http.HandlerFunc(ad.AdminTokenHandler))).Methods("POST")
	apiCreate.Handle("/auth/logout", guard(http.HandlerFunc(ad.AdminLogoutHandler))).Methods("DELETE")
	apiCreate.Handle("/auth/me", guard(http.HandlerFunc(ad.AdminMeHandler))).Methods("GET")

	apiCreate.Handle("/metrics", guard(http.HandlerFunc(m.GetMetricsDashboard))).Methods("GET")

	return r
}

// Initialize is invoked by main to connect the stores and create a router
func (a *App) Initialize() error {
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	storeOpts := databases.IssueDatabaseOptions{
		QueryTimeout:            a.Config.QueryTimeout,
		RetryAttempts:           a.Config.StoreRetryAttempts,
		RetryBackoff:            a.Config.StoreRetryBackoff,
		ClearResolvedAtOnReopen: a.Config.ClearResolvedAtOnReopen,
	}

	switch a.Config.StoreBackend {
	case config.StoreMongo:
		if err := a.connectDatabase(ctx, storeOpts); err != nil {
			return err
		}
	default:
		a.issues = databases.NewMemoryIssueDatabase(storeOpts)
		a.admins = databases.NewMemoryAdminDatabase()
	}

	ids, err := triage.NewSnowflakeIDs(a.Config.SnowflakeNode)
	if err != nil {
		zap.S().With(err).Error("failed to create id generator")
		return err
	}

	a.hub = NewIssueHub()
	a.service = triage.NewService(a.issues, ids, triage.WithPublisher(a.hub))
	a.reporter = analytics.NewReporter(a.service, nil, analytics.WithMaxAge(a.Config.WeeklyReportMaxAge))
	a.service.Subscribe(a.reporter)
	a.guard = api.NewGuard(ctx, a.admins, a.Config.JWTSecret, a.Config.TokenTTL)

	if a.Config.RedisAddress != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     a.Config.RedisAddress,
			Password: a.Config.RedisPassword,
		})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			// the limiter lets submissions through while redis is down
			zap.S().Warnw("failed to reach redis", "address", a.Config.RedisAddress, "error", err)
		} else {
			zap.S().Infow("sentinel-campus-api has connected to redis", "address", a.Config.RedisAddress)
		}
		a.limiter = api.NewSubmissionRateLimiter(a.redis, a.Config.SubmitLimitPerDay)
	}

	a.metrics = api.NewMetricsCollector(maxTraces)
	go a.metrics.Run(ctx)

	if err := a.seed(ctx); err != nil {
		return err
	}

	a.scheduler = scheduler.NewScheduler(a.reporter, a.Config.WeeklyReportCron)
	if err := a.scheduler.Start(); err != nil {
		return err
	}

	// initialize api router
	a.initializeRoutes()
	return nil
}

func (a *App) connectDatabase(ctx context.Context, opts databases.IssueDatabaseOptions) error {
	client, err := databases.NewClient(&a.Config)
	if err != nil {
		// if we fail to create a new database client, then kill the pod
		zap.S().With(err).Error("failed to create new client")
		return err
	}

	connectCtx, cancel := api.WithQueryTimeout(ctx, a.Config.QueryTimeout)
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		// if we fail to connect to the database, then kill the pod
		zap.S().With(err).Error("failed to connect to database")
		return err
	}
	if err := client.Ping(connectCtx); err != nil {
		zap.S().With(err).Error("failed to ping database")
		return err
	}
	zap.S().Info("sentinel-campus-api has connected to the database")

	a.client = client
	db := databases.NewDatabase(&a.Config, client)
	a.issues = databases.NewIssueDatabase(db, opts)
	a.admins = databases.NewAdminDatabase(db, opts)
	return nil
}

// seed creates the configured administrator and the sample issues
func (a *App) seed(ctx context.Context) error {
	if a.Config.AdminEmail != "" && a.Config.AdminPassword != "" {
		_, err := a.admins.FindByEmail(ctx, a.Config.AdminEmail)
		switch {
		case errors.Is(err, databases.ErrNotFound):
			admin, err := a.admins.Create(ctx, models.AdminSignupRequest{
				Email:    a.Config.AdminEmail,
				Password: a.Config.AdminPassword,
				Name:     a.Config.AdminName,
				Role:     a.Config.AdminRole,
			})
			if err != nil {
				return fmt.Errorf("seed admin: %w", err)
			}
			zap.S().Infow("seeded administrator", "adminId", admin.ID, "email", admin.Email)
		case err != nil:
			return fmt.Errorf("seed admin: %w", err)
		}
	}

	if a.Config.SeedSampleIssues {
		n, err := a.service.Seed(ctx)
		if err != nil {
			return err
		}
		zap.S().Infow("seeded sample issues", "count", n)
	}
	return nil
}

// Shutdown stops background work and closes connections
func (a *App) Shutdown(ctx context.Context) error {
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.metrics != nil {
		<-a.metrics.Done()
	}

	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.client != nil {
		errs = append(errs, a.client.Disconnect(ctx))
	}
	return errors.Join(errs...)
}

func (a *App) initializeRoutes() {
	a.Router = a.New()
}

func (a *App) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthCheckResponse{
		Alive: true,
		Store: a.Config.StoreBackend,
	})
}
