package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/medgrid/bedbridge/backend/internal/application/services"
	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	apperrors "github.com/medgrid/bedbridge/backend/pkg/errors"
)

// CapacityService defines the interface for capacity queries
type CapacityService interface {
	GetCapacity(ctx context.Context, hospitalID string, bedType entities.BedType) (*services.HospitalCapacity, error)
}

// CapacityHandler handles capacity-related HTTP requests
type CapacityHandler struct {
	service CapacityService
}

// NewCapacityHandler creates a new capacity handler
func NewCapacityHandler(service CapacityService) *CapacityHandler {
	return &CapacityHandler{
		service: service,
	}
}

// GetCapacity handles GET /api/capacity/{hospitalId}
func (h *CapacityHandler) GetCapacity(w http.ResponseWriter, r *http.Request) {
	hospitalID := r.PathValue("hospitalId")
	if hospitalID == "" {
		respondWithError(w, http.StatusBadRequest, "hospital ID is required")
		return
	}

	bedType := entities.BedType(r.URL.Query().Get("bed_type"))

	capacity, err := h.service.GetCapacity(r.Context(), hospitalID, bedType)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, capacity)
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps an application error to its HTTP status and
// serializes the error code, message and any per-field details.
func respondWithAppError(w http.ResponseWriter, err error) {
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	statusCode := http.StatusInternalServerError
	switch appErr.Type {
	case apperrors.ErrorTypeNotFound:
		statusCode = http.StatusNotFound
	case apperrors.ErrorTypeValidation,
		apperrors.ErrorTypeNoCapacity,
		apperrors.ErrorTypeMissingLocation,
		apperrors.ErrorTypeInvalidTransition:
		statusCode = http.StatusBadRequest
	case apperrors.ErrorTypeConflict:
		statusCode = http.StatusConflict
	case apperrors.ErrorTypeUnauthorized:
		statusCode = http.StatusUnauthorized
	}

	payload := map[string]interface{}{
		"code":  appErr.Type,
		"error": appErr.Message,
	}
	if len(appErr.Fields) > 0 {
		payload["fields"] = appErr.Fields
	}
	if statusCode == http.StatusInternalServerError {
		payload["error"] = "internal server error"
	}
	respondWithJSON(w, statusCode, payload)
}
