package services

import (
	"context"
	"sync"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
)

// HospitalResolver resolves the hospital acting on its own behalf when
// a request names none, from a configured hospital code. Resolution is
// lazy and cached for the life of the process; lookup failures are not
// cached so a hospital seeded after startup is still found.
type HospitalResolver struct {
	hospitalRepo repositories.HospitalRepository
	defaultCode  string

	mu      sync.Mutex
	resolved *entities.Hospital
}

// NewHospitalResolver creates a resolver for the given default code.
func NewHospitalResolver(hospitalRepo repositories.HospitalRepository, defaultCode string) *HospitalResolver {
	return &HospitalResolver{
		hospitalRepo: hospitalRepo,
		defaultCode:  defaultCode,
	}
}

// Default returns the configured default hospital.
func (r *HospitalResolver) Default(ctx context.Context) (*entities.Hospital, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != nil {
		return r.resolved, nil
	}

	hospital, err := r.hospitalRepo.GetByCode(ctx, r.defaultCode)
	if err != nil {
		return nil, err
	}
	r.resolved = hospital
	return hospital, nil
}

// Resolve returns the hospital for the given id, or the default
// hospital when id is empty.
func (r *HospitalResolver) Resolve(ctx context.Context, id string) (*entities.Hospital, error) {
	if id == "" {
		return r.Default(ctx)
	}
	return r.hospitalRepo.GetByID(ctx, id)
}
