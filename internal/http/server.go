// Package http exposes the ingestion pipeline and overview aggregates as a
// JSON API. It is presentation glue: all decisions live in ingest, ocr and
// report.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"kharcha/internal/cache"
	"kharcha/internal/core"
	"kharcha/internal/ingest"
	applog "kharcha/internal/log"
)

// Store is the read/write surface the handlers need beyond ingestion.
type Store interface {
	ListTransactions(ctx context.Context) ([]core.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	GetProfile(ctx context.Context) (*core.UserProfile, error)
	SaveProfile(ctx context.Context, profile core.UserProfile) error
}

type Server struct {
	ingester *ingest.Service
	store    Store

	// overviewCache keeps the dashboard cheap under polling; purged on
	// every successful write so totals never lag behind an ingestion.
	overviewCache *cache.LRUCache[overviewResponse]

	now func() time.Time
}

// NewServer wires the handlers and returns a configured *http.Server.
func NewServer(addr string, ingester *ingest.Service, store Store, logger *applog.Logger) *http.Server {
	s := &Server{
		ingester:      ingester,
		store:         store,
		overviewCache: cache.NewLRUCache[overviewResponse](4, 30*time.Second),
		now:           time.Now,
	}

	limiter := newRateLimiter(120)
	handler := applog.RequestMiddleware(logger)(securityHeaders(limiter.middleware(s.routes())))

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("POST /api/transactions/force", s.handleForceCreateTransaction)
	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("POST /api/receipts", s.handleScanReceipt)

	mux.HandleFunc("GET /api/overview", s.handleOverview)

	mux.HandleFunc("GET /api/profile", s.handleGetProfile)
	mux.HandleFunc("PUT /api/profile", s.handleSaveProfile)

	mux.HandleFunc("GET /healthz", s.handleHealth)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
