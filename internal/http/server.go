// Package http exposes the budgeting engines as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"zerobudget/internal/amqp"
	"zerobudget/internal/auth"
	applog "zerobudget/internal/log"
	"zerobudget/internal/middleware/ratelimit"
	"zerobudget/internal/middleware/security"
	"zerobudget/internal/middleware/trace"
	"zerobudget/internal/services"
	"zerobudget/internal/sheets"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// SyncQueue hands sync requests to the sync worker.
type SyncQueue interface {
	PublishSyncRequest(ctx context.Context, msg *amqp.SyncRequestMessage) error
}

// Syncer runs a transaction sync inline.
type Syncer interface {
	Sync(ctx context.Context, ownerID string, req services.SyncRequest) (*services.SyncResult, error)
}

// Pinger reports storage health for /readyz.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services the API is built on. Queue, Exporter and Store may be nil.
type Deps struct {
	Budget    *services.BudgetService
	Recurring *services.RecurringService
	Rollover  *services.RolloverEngine
	Syncer    Syncer
	Queue     SyncQueue
	Exporter  sheets.PeriodExporter
	Store     Pinger
	Auth      auth.Resolver
	Logger    *applog.Logger

	RateLimitPerMinute int
}

// Server is the API HTTP server.
type Server struct {
	http.Server

	budget    *services.BudgetService
	recurring *services.RecurringService
	rollover  *services.RolloverEngine
	syncer    Syncer
	queue     SyncQueue
	exporter  sheets.PeriodExporter
	store     Pinger

	logger       *applog.Logger
	oplog        *applog.StructuredLogger
	limiter      *ratelimit.Limiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 16,
		},
		budget:    deps.Budget,
		recurring: deps.Recurring,
		rollover:  deps.Rollover,
		syncer:    deps.Syncer,
		queue:     deps.Queue,
		exporter:  deps.Exporter,
		store:     deps.Store,
		logger:    logger,
		oplog:     applog.NewStructuredLogger(logger),
		limiter:   ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
	}

	api := http.NewServeMux()
	s.routes(api)

	clientIP := security.NewClientIP()
	protected := chain(api,
		auth.Middleware(deps.Auth, func(w http.ResponseWriter, r *http.Request, err error) {
			writeError(w, r, err)
		}),
		applog.OwnerMiddleware(auth.OwnerFromContext),
		s.limiter.Middleware(func(r *http.Request) string {
			if owner := auth.OwnerFromContext(r.Context()); owner != "" {
				return "owner:" + owner
			}
			return "ip:" + clientIP.Extract(r)
		}, func(w http.ResponseWriter, r *http.Request) {
			writeErrorCode(w, r, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, retry later")
		}),
	)

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", handleHealth)
	root.HandleFunc("GET /readyz", s.handleReady)
	root.Handle("/api/", protected)

	s.Handler = chain(root,
		trace.NewMiddleware(logger, clientIP.Extract).Middleware,
		applog.Middleware(logger),
		applog.RequestIDMiddleware(trace.RequestIDFromRequest),
		security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware,
	)
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/periods/{year}/{month}", s.handleGetPeriod)
	mux.HandleFunc("PUT /api/periods/{year}/{month}/buffer", s.handleUpdateBuffer)
	mux.HandleFunc("POST /api/periods/{year}/{month}/reset", s.handleResetPeriod)
	mux.HandleFunc("POST /api/periods/{year}/{month}/export", s.handleExportPeriod)
	mux.HandleFunc("POST /api/periods/copy", s.handleCopyPeriod)

	mux.HandleFunc("POST /api/categories", s.handleCreateCategory)
	mux.HandleFunc("PATCH /api/categories/{id}", s.handleUpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	mux.HandleFunc("POST /api/items", s.handleCreateItem)
	mux.HandleFunc("PUT /api/items/order", s.handleReorderItems)
	mux.HandleFunc("PATCH /api/items/{id}", s.handleUpdateItem)
	mux.HandleFunc("DELETE /api/items/{id}", s.handleDeleteItem)

	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /api/transactions/sync", s.handleSyncTransactions)
	mux.HandleFunc("GET /api/transactions/uncategorized", s.handleListUncategorized)
	mux.HandleFunc("PUT /api/transactions/{id}/item", s.handleAssignTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}/splits", s.handleSetSplits)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)
	mux.HandleFunc("POST /api/transactions/{id}/restore", s.handleRestoreTransaction)

	mux.HandleFunc("GET /api/recurring", s.handleListRecurring)
	mux.HandleFunc("POST /api/recurring", s.handleCreateRecurring)
	mux.HandleFunc("GET /api/recurring/{id}", s.handleGetRecurring)
	mux.HandleFunc("PATCH /api/recurring/{id}", s.handleUpdateRecurring)
	mux.HandleFunc("DELETE /api/recurring/{id}", s.handleDeleteRecurring)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	mux.HandleFunc("PATCH /api/accounts/{id}", s.handleUpdateAccount)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, r, http.StatusNotFound, CodeNotFound, "no such endpoint")
	})
}

// chain wraps h so the first middleware is outermost.
func chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Shutdown gracefully shuts down the server and the limiter cleanup goroutine.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed", applog.FieldError, err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
