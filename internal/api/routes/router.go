package routes

import (
	"net/http"

	"github.com/medgrid/bedbridge/backend/internal/api/handlers"
	"github.com/medgrid/bedbridge/backend/internal/api/middleware"
	"github.com/medgrid/bedbridge/backend/internal/infrastructure/observability"
)

// Router holds all route handlers
type Router struct {
	mux *http.ServeMux

	capacityHandler *handlers.CapacityHandler
	transferHandler *handlers.TransferHandler
	ledgerHandler   *handlers.LedgerHandler
	bedHandler      *handlers.BedHandler
	sseHandler      *handlers.SSEHandler

	cacheMiddleware *middleware.CacheMiddleware
	metrics         *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	capacityHandler *handlers.CapacityHandler,
	transferHandler *handlers.TransferHandler,
	ledgerHandler *handlers.LedgerHandler,
	bedHandler *handlers.BedHandler,
	sseHandler *handlers.SSEHandler,
	cacheMiddleware *middleware.CacheMiddleware,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		capacityHandler: capacityHandler,
		transferHandler: transferHandler,
		ledgerHandler:   ledgerHandler,
		bedHandler:      bedHandler,
		sseHandler:      sseHandler,

		cacheMiddleware: cacheMiddleware,
		metrics:         metrics,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes() http.Handler {
	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Capacity endpoints
	r.mux.HandleFunc("GET /api/capacity/{hospitalId}", r.capacityHandler.GetCapacity)

	// Transfer endpoints. The hospital-scoped forms take the hospital
	// from the path; the bare forms fall back to the hospital_id query
	// parameter or the configured default hospital.
	r.mux.HandleFunc("GET /api/transfers/available", r.transferHandler.FindAvailable)
	r.mux.HandleFunc("GET /api/transfers/available/{hospitalId}", r.transferHandler.FindAvailable)
	r.mux.HandleFunc("POST /api/transfers/request", r.transferHandler.CreateRequest)
	r.mux.HandleFunc("POST /api/transfers/request/{hospitalId}", r.transferHandler.CreateRequest)
	r.mux.HandleFunc("GET /api/transfers/requests", r.transferHandler.ListRequests)
	r.mux.HandleFunc("GET /api/transfers/requests/{hospitalId}", r.transferHandler.ListRequests)
	r.mux.HandleFunc("GET /api/transfers/statistics", r.transferHandler.GetStatistics)
	r.mux.HandleFunc("GET /api/transfers/statistics/{hospitalId}", r.transferHandler.GetStatistics)
	r.mux.HandleFunc("GET /api/transfers/{transferId}", r.transferHandler.GetRequest)
	r.mux.HandleFunc("PUT /api/transfers/{transferId}", r.transferHandler.UpdateStatus)

	// Ledger endpoints
	r.mux.HandleFunc("GET /api/ledger/{hospitalId}", r.ledgerHandler.ListEntries)
	r.mux.HandleFunc("GET /api/ledger/{hospitalId}/statistics", r.ledgerHandler.GetStatistics)
	r.mux.HandleFunc("POST /api/ledger/{hospitalId}", r.ledgerHandler.CreateEntry)
	r.mux.HandleFunc("PUT /api/ledger/{hospitalId}/{bedType}", r.ledgerHandler.UpsertEntry)
	r.mux.HandleFunc("POST /api/ledger/{hospitalId}/resync", r.ledgerHandler.Resync)

	// Bed record endpoints
	r.mux.HandleFunc("GET /api/hospitals/{hospitalId}/beds", r.bedHandler.ListBeds)
	r.mux.HandleFunc("POST /api/hospitals/{hospitalId}/beds", r.bedHandler.CreateBed)
	r.mux.HandleFunc("PATCH /api/beds/{id}", r.bedHandler.UpdateBed)
	r.mux.HandleFunc("DELETE /api/beds/{id}", r.bedHandler.DeleteBed)

	// Real-time streams
	if r.sseHandler != nil {
		r.mux.HandleFunc("GET /api/stream/ledger/{hospitalId}", r.sseHandler.StreamHospitalUpdates)
		r.mux.HandleFunc("GET /api/stream/ledger/region", r.sseHandler.StreamRegionalUpdates)
	}

	// Apply middleware in reverse order (last middleware wraps first)
	// CORS must be outermost so cached responses also get CORS headers.
	var handler http.Handler = r.mux
	handler = middleware.LoggingMiddleware(handler)

	if r.cacheMiddleware != nil {
		handler = r.cacheMiddleware.Middleware(handler)
	}

	handler = middleware.ActorMiddleware(handler)
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.CORSMiddleware(handler)

	return handler
}
