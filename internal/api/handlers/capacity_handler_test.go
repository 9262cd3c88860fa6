package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/medgrid/bedbridge/backend/internal/api/handlers"
	"github.com/medgrid/bedbridge/backend/internal/application/services"
	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	apperrors "github.com/medgrid/bedbridge/backend/pkg/errors"
)

// MockCapacityService defines the mock service
type MockCapacityService struct {
	mock.Mock
}

func (m *MockCapacityService) GetCapacity(ctx context.Context, hospitalID string, bedType entities.BedType) (*services.HospitalCapacity, error) {
	args := m.Called(ctx, hospitalID, bedType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.HospitalCapacity), args.Error(1)
}

func TestCapacityHandler_GetCapacity(t *testing.T) {
	t.Run("returns the hospital's capacity", func(t *testing.T) {
		mockService := new(MockCapacityService)
		handler := handlers.NewCapacityHandler(mockService)

		mockService.On("GetCapacity", mock.Anything, "lagos", entities.BedType("")).
			Return(&services.HospitalCapacity{
				HospitalID: "lagos",
				IsFull:     false,
				Summary:    &entities.CapacitySummary{TotalBeds: 26, AvailableBeds: 5},
			}, nil)

		req := httptest.NewRequest("GET", "/api/capacity/lagos", nil)
		req.SetPathValue("hospitalId", "lagos")
		w := httptest.NewRecorder()

		handler.GetCapacity(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response services.HospitalCapacity
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "lagos", response.HospitalID)
		assert.False(t, response.IsFull)
		assert.Equal(t, 5, response.Summary.AvailableBeds)
		mockService.AssertExpectations(t)
	})

	t.Run("scopes to a bed type", func(t *testing.T) {
		mockService := new(MockCapacityService)
		handler := handlers.NewCapacityHandler(mockService)

		mockService.On("GetCapacity", mock.Anything, "lagos", entities.BedTypeICU).
			Return(&services.HospitalCapacity{HospitalID: "lagos"}, nil)

		req := httptest.NewRequest("GET", "/api/capacity/lagos?bed_type=icu", nil)
		req.SetPathValue("hospitalId", "lagos")
		w := httptest.NewRecorder()

		handler.GetCapacity(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("unknown hospital is not found", func(t *testing.T) {
		mockService := new(MockCapacityService)
		handler := handlers.NewCapacityHandler(mockService)

		mockService.On("GetCapacity", mock.Anything, "nowhere", entities.BedType("")).
			Return(nil, apperrors.NewNotFoundError("hospital nowhere not found"))

		req := httptest.NewRequest("GET", "/api/capacity/nowhere", nil)
		req.SetPathValue("hospitalId", "nowhere")
		w := httptest.NewRecorder()

		handler.GetCapacity(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("masks internal failures", func(t *testing.T) {
		mockService := new(MockCapacityService)
		handler := handlers.NewCapacityHandler(mockService)

		mockService.On("GetCapacity", mock.Anything, "lagos", entities.BedType("")).
			Return(nil, apperrors.NewInternalError("query failed", assert.AnError))

		req := httptest.NewRequest("GET", "/api/capacity/lagos", nil)
		req.SetPathValue("hospitalId", "lagos")
		w := httptest.NewRecorder()

		handler.GetCapacity(w, req)

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "internal server error", response["error"])
		assert.NotContains(t, w.Body.String(), "query failed")
	})
}
