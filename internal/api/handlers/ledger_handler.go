package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/medgrid/bedbridge/backend/internal/application/services"
	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
)

// LedgerService defines the interface for direct ledger operations
type LedgerService interface {
	ListEntries(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error)
	UpsertEntry(ctx context.Context, hospitalID string, input services.UpsertEntryInput) (*entities.BedLedgerEntry, error)
}

// LedgerSyncService defines the interface for ledger reconciliation
type LedgerSyncService interface {
	Resync(ctx context.Context, hospitalID string, bedType entities.BedType) error
}

// LedgerHandler handles bed ledger HTTP endpoints
type LedgerHandler struct {
	service LedgerService
	syncer  LedgerSyncService
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(service LedgerService, syncer LedgerSyncService) *LedgerHandler {
	return &LedgerHandler{
		service: service,
		syncer:  syncer,
	}
}

// ListEntries handles GET /api/ledger/{hospitalId}
func (h *LedgerHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	hospitalID := r.PathValue("hospitalId")
	if hospitalID == "" {
		respondWithError(w, http.StatusBadRequest, "hospital ID is required")
		return
	}

	entries, err := h.service.ListEntries(r.Context(), hospitalID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"hospital_id": hospitalID,
		"entries":     entries,
		"count":       len(entries),
	})
}

// UpsertEntry handles PUT /api/ledger/{hospitalId}/{bedType}
func (h *LedgerHandler) UpsertEntry(w http.ResponseWriter, r *http.Request) {
	hospitalID := r.PathValue("hospitalId")
	bedType := r.PathValue("bedType")
	if hospitalID == "" || bedType == "" {
		respondWithError(w, http.StatusBadRequest, "hospital ID and bed type are required")
		return
	}

	var req upsertLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	entry, err := h.service.UpsertEntry(r.Context(), hospitalID, services.UpsertEntryInput{
		BedType:      entities.BedType(bedType),
		TotalBeds:    req.TotalBeds,
		OccupiedBeds: req.OccupiedBeds,
		BlockedBeds:  req.BlockedBeds,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, entry)
}

// CreateEntry handles POST /api/ledger/{hospitalId}
func (h *LedgerHandler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	hospitalID := r.PathValue("hospitalId")
	if hospitalID == "" {
		respondWithError(w, http.StatusBadRequest, "hospital ID is required")
		return
	}

	var req createLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	entry, err := h.service.UpsertEntry(r.Context(), hospitalID, services.UpsertEntryInput{
		BedType:      entities.BedType(req.BedType),
		TotalBeds:    req.TotalBeds,
		OccupiedBeds: req.OccupiedBeds,
		BlockedBeds:  req.BlockedBeds,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, entry)
}

// GetStatistics handles GET /api/ledger/{hospitalId}/statistics
func (h *LedgerHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	hospitalID := r.PathValue("hospitalId")
	if hospitalID == "" {
		respondWithError(w, http.StatusBadRequest, "hospital ID is required")
		return
	}

	entries, err := h.service.ListEntries(r.Context(), hospitalID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	utilization := make(map[string]float64, len(entries))
	for _, entry := range entries {
		utilization[string(entry.BedType)] = entry.Utilization()
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"hospital_id": hospitalID,
		"summary":     entities.Summarize(hospitalID, entries),
		"utilization": utilization,
	})
}

// Resync handles POST /api/ledger/{hospitalId}/resync
func (h *LedgerHandler) Resync(w http.ResponseWriter, r *http.Request) {
	hospitalID := r.PathValue("hospitalId")
	if hospitalID == "" {
		respondWithError(w, http.StatusBadRequest, "hospital ID is required")
		return
	}

	bedType := entities.BedType(r.URL.Query().Get("bed_type"))

	if err := h.syncer.Resync(r.Context(), hospitalID, bedType); err != nil {
		respondWithAppError(w, err)
		return
	}

	entries, err := h.service.ListEntries(r.Context(), hospitalID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"hospital_id": hospitalID,
		"entries":     entries,
	})
}
