package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/medgrid/bedbridge/backend/internal/api/middleware"
	"github.com/medgrid/bedbridge/backend/internal/application/services"
	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
)

// TransferService defines the interface for transfer operations
type TransferService interface {
	FindCandidates(ctx context.Context, originID string, bedType entities.BedType, maxDistanceKm float64) ([]*entities.CandidateHospital, error)
	Create(ctx context.Context, input services.CreateTransferInput) (*entities.TransferRequest, error)
	SetStatus(ctx context.Context, transferID string, input services.StatusUpdateInput) (*entities.TransferRequest, error)
	GetByID(ctx context.Context, transferID string) (*entities.TransferRequest, error)
	List(ctx context.Context, hospitalID string, filter repositories.TransferFilter) ([]*entities.TransferRequest, error)
	Statistics(ctx context.Context, hospitalID string) (*entities.TransferStatistics, error)
}

// HospitalResolver resolves the acting hospital for requests that
// leave it implicit.
type HospitalResolver interface {
	Resolve(ctx context.Context, id string) (*entities.Hospital, error)
}

// TransferHandler handles transfer request HTTP endpoints
type TransferHandler struct {
	service  TransferService
	resolver HospitalResolver
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(service TransferService, resolver HospitalResolver) *TransferHandler {
	return &TransferHandler{
		service:  service,
		resolver: resolver,
	}
}

// resolveHospital picks the acting hospital from the path, the
// hospital_id query parameter, or the configured default, in that order.
func (h *TransferHandler) resolveHospital(r *http.Request) (*entities.Hospital, error) {
	id := r.PathValue("hospitalId")
	if id == "" {
		id = r.URL.Query().Get("hospital_id")
	}
	return h.resolver.Resolve(r.Context(), id)
}

// FindAvailable handles GET /api/transfers/available[/{hospitalId}]
func (h *TransferHandler) FindAvailable(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	bedType := query.Get("bed_type")
	if bedType == "" {
		respondWithError(w, http.StatusBadRequest, "bed_type query parameter is required")
		return
	}

	maxDistance := 0.0
	if raw := query.Get("max_distance_km"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed < 0 {
			respondWithError(w, http.StatusBadRequest, "invalid max_distance_km parameter")
			return
		}
		maxDistance = parsed
	}

	origin, err := h.resolveHospital(r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	candidates, err := h.service.FindCandidates(r.Context(), origin.ID, entities.BedType(bedType), maxDistance)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"hospital_id": origin.ID,
		"bed_type":    bedType,
		"candidates":  candidates,
		"count":       len(candidates),
	})
}

// CreateRequest handles POST /api/transfers/request[/{hospitalId}]
func (h *TransferHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req createTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if id := r.PathValue("hospitalId"); id != "" {
		req.FromHospitalID = id
	}
	if err := req.Validate(); err != nil {
		respondWithAppError(w, err)
		return
	}

	from, err := h.resolver.Resolve(r.Context(), req.FromHospitalID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}
	req.FromHospitalID = from.ID

	transfer, err := h.service.Create(r.Context(), req.toInput(middleware.ActorFromContext(r.Context())))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, transfer)
}

// GetRequest handles GET /api/transfers/{transferId}
func (h *TransferHandler) GetRequest(w http.ResponseWriter, r *http.Request) {
	transferID := r.PathValue("transferId")
	if transferID == "" {
		respondWithError(w, http.StatusBadRequest, "transfer ID is required")
		return
	}

	transfer, err := h.service.GetByID(r.Context(), transferID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, transfer)
}

// ListRequests handles GET /api/transfers/requests[/{hospitalId}]
func (h *TransferHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	hospital, err := h.resolveHospital(r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	filter := repositories.TransferFilter{
		Status:    entities.TransferStatus(query.Get("status")),
		Direction: repositories.TransferDirection(query.Get("direction")),
		Limit:     50,
	}
	if raw := query.Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			filter.Limit = parsed
		}
	}

	transfers, err := h.service.List(r.Context(), hospital.ID, filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"hospital_id": hospital.ID,
		"transfers":   transfers,
		"count":       len(transfers),
	})
}

// UpdateStatus handles PUT /api/transfers/{transferId}
func (h *TransferHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	transferID := r.PathValue("transferId")
	if transferID == "" {
		respondWithError(w, http.StatusBadRequest, "transfer ID is required")
		return
	}

	var req updateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := req.Validate(); err != nil {
		respondWithAppError(w, err)
		return
	}

	transfer, err := h.service.SetStatus(r.Context(), transferID, services.StatusUpdateInput{
		Status:             entities.TransferStatus(req.Status),
		Actor:              middleware.ActorFromContext(r.Context()),
		CancellationReason: req.CancellationReason,
		Notes:              req.Notes,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, transfer)
}

// GetStatistics handles GET /api/transfers/statistics[/{hospitalId}]
func (h *TransferHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	hospital, err := h.resolveHospital(r)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	stats, err := h.service.Statistics(r.Context(), hospital.ID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, stats)
}
