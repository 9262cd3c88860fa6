package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/medgrid/bedbridge/backend/internal/application/services"
	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
)

// BedService defines the interface for bed record operations
type BedService interface {
	Create(ctx context.Context, input services.CreateBedInput) (*entities.Bed, error)
	Update(ctx context.Context, bedID string, input services.UpdateBedInput) (*entities.Bed, error)
	Delete(ctx context.Context, bedID string) error
	List(ctx context.Context, hospitalID string, filter repositories.BedFilter) ([]*entities.Bed, error)
}

// BedHandler handles bed record HTTP endpoints
type BedHandler struct {
	service BedService
}

// NewBedHandler creates a new bed handler
func NewBedHandler(service BedService) *BedHandler {
	return &BedHandler{
		service: service,
	}
}

// ListBeds handles GET /api/hospitals/{hospitalId}/beds
func (h *BedHandler) ListBeds(w http.ResponseWriter, r *http.Request) {
	hospitalID := r.PathValue("hospitalId")
	if hospitalID == "" {
		respondWithError(w, http.StatusBadRequest, "hospital ID is required")
		return
	}

	query := r.URL.Query()
	filter := repositories.BedFilter{
		BedType: entities.BedType(query.Get("bed_type")),
		Status:  entities.BedStatus(query.Get("status")),
		Ward:    query.Get("ward"),
	}

	beds, err := h.service.List(r.Context(), hospitalID, filter)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"hospital_id": hospitalID,
		"beds":        beds,
		"count":       len(beds),
	})
}

// CreateBed handles POST /api/hospitals/{hospitalId}/beds
func (h *BedHandler) CreateBed(w http.ResponseWriter, r *http.Request) {
	hospitalID := r.PathValue("hospitalId")
	if hospitalID == "" {
		respondWithError(w, http.StatusBadRequest, "hospital ID is required")
		return
	}

	var req createBedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := req.Validate(); err != nil {
		respondWithAppError(w, err)
		return
	}

	bed, err := h.service.Create(r.Context(), services.CreateBedInput{
		HospitalID: hospitalID,
		BedNumber:  req.BedNumber,
		BedType:    entities.BedType(req.BedType),
		Status:     entities.BedStatus(req.Status),
		Ward:       req.Ward,
		Floor:      req.Floor,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, bed)
}

// UpdateBed handles PATCH /api/beds/{id}
func (h *BedHandler) UpdateBed(w http.ResponseWriter, r *http.Request) {
	bedID := r.PathValue("id")
	if bedID == "" {
		respondWithError(w, http.StatusBadRequest, "bed ID is required")
		return
	}

	var req updateBedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := req.Validate(); err != nil {
		respondWithAppError(w, err)
		return
	}

	bed, err := h.service.Update(r.Context(), bedID, req.toInput())
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, bed)
}

// DeleteBed handles DELETE /api/beds/{id}
func (h *BedHandler) DeleteBed(w http.ResponseWriter, r *http.Request) {
	bedID := r.PathValue("id")
	if bedID == "" {
		respondWithError(w, http.StatusBadRequest, "bed ID is required")
		return
	}

	if err := h.service.Delete(r.Context(), bedID); err != nil {
		respondWithAppError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
