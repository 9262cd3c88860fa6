package services

import (
	"context"
	"sync"
	"time"

	"github.com/medgrid/bedbridge/backend/internal/domain/entities"
	"github.com/medgrid/bedbridge/backend/internal/domain/repositories"
)

// Function-field mocks: each test wires only the calls it expects.

type mockHospitalRepo struct {
	GetByIDFunc    func(ctx context.Context, id string) (*entities.Hospital, error)
	GetByCodeFunc  func(ctx context.Context, code string) (*entities.Hospital, error)
	ListActiveFunc func(ctx context.Context) ([]*entities.Hospital, error)
}

func (m *mockHospitalRepo) GetByID(ctx context.Context, id string) (*entities.Hospital, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockHospitalRepo) GetByCode(ctx context.Context, code string) (*entities.Hospital, error) {
	return m.GetByCodeFunc(ctx, code)
}

func (m *mockHospitalRepo) ListActive(ctx context.Context) ([]*entities.Hospital, error) {
	return m.ListActiveFunc(ctx)
}

type mockBedRepo struct {
	CreateFunc         func(ctx context.Context, bed *entities.Bed) error
	GetByIDFunc        func(ctx context.Context, id string) (*entities.Bed, error)
	UpdateFunc         func(ctx context.Context, bed *entities.Bed) error
	DeleteFunc         func(ctx context.Context, id string) error
	ListByHospitalFunc func(ctx context.Context, hospitalID string, filter repositories.BedFilter) ([]*entities.Bed, error)
	CountByTypeFunc    func(ctx context.Context, hospitalID string, bedType entities.BedType) ([]repositories.BedTypeCounts, error)
}

func (m *mockBedRepo) Create(ctx context.Context, bed *entities.Bed) error {
	return m.CreateFunc(ctx, bed)
}

func (m *mockBedRepo) GetByID(ctx context.Context, id string) (*entities.Bed, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockBedRepo) Update(ctx context.Context, bed *entities.Bed) error {
	return m.UpdateFunc(ctx, bed)
}

func (m *mockBedRepo) Delete(ctx context.Context, id string) error {
	return m.DeleteFunc(ctx, id)
}

func (m *mockBedRepo) ListByHospital(ctx context.Context, hospitalID string, filter repositories.BedFilter) ([]*entities.Bed, error) {
	return m.ListByHospitalFunc(ctx, hospitalID, filter)
}

func (m *mockBedRepo) CountByType(ctx context.Context, hospitalID string, bedType entities.BedType) ([]repositories.BedTypeCounts, error) {
	return m.CountByTypeFunc(ctx, hospitalID, bedType)
}

type mockLedgerRepo struct {
	GetEntryFunc            func(ctx context.Context, hospitalID string, bedType entities.BedType) (*entities.BedLedgerEntry, error)
	ListByHospitalFunc      func(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error)
	ListAvailableByTypeFunc func(ctx context.Context, bedType entities.BedType) ([]*entities.BedLedgerEntry, error)
	UpsertFunc              func(ctx context.Context, entry *entities.BedLedgerEntry) error
	SyncCountsFunc          func(ctx context.Context, hospitalID string, counts repositories.BedTypeCounts) error
	DeleteIfUnreservedFunc  func(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error)
	ReserveFunc             func(ctx context.Context, hospitalID string, bedType entities.BedType) error
	ReleaseReservationFunc  func(ctx context.Context, hospitalID string, bedType entities.BedType) error
	ConfirmArrivalFunc      func(ctx context.Context, hospitalID string, bedType entities.BedType) error
	ReleaseOccupiedFunc     func(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error)
}

func (m *mockLedgerRepo) GetEntry(ctx context.Context, hospitalID string, bedType entities.BedType) (*entities.BedLedgerEntry, error) {
	return m.GetEntryFunc(ctx, hospitalID, bedType)
}

func (m *mockLedgerRepo) ListByHospital(ctx context.Context, hospitalID string) ([]*entities.BedLedgerEntry, error) {
	return m.ListByHospitalFunc(ctx, hospitalID)
}

func (m *mockLedgerRepo) ListAvailableByType(ctx context.Context, bedType entities.BedType) ([]*entities.BedLedgerEntry, error) {
	return m.ListAvailableByTypeFunc(ctx, bedType)
}

func (m *mockLedgerRepo) Upsert(ctx context.Context, entry *entities.BedLedgerEntry) error {
	return m.UpsertFunc(ctx, entry)
}

func (m *mockLedgerRepo) SyncCounts(ctx context.Context, hospitalID string, counts repositories.BedTypeCounts) error {
	return m.SyncCountsFunc(ctx, hospitalID, counts)
}

func (m *mockLedgerRepo) DeleteIfUnreserved(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error) {
	return m.DeleteIfUnreservedFunc(ctx, hospitalID, bedType)
}

func (m *mockLedgerRepo) Reserve(ctx context.Context, hospitalID string, bedType entities.BedType) error {
	return m.ReserveFunc(ctx, hospitalID, bedType)
}

func (m *mockLedgerRepo) ReleaseReservation(ctx context.Context, hospitalID string, bedType entities.BedType) error {
	return m.ReleaseReservationFunc(ctx, hospitalID, bedType)
}

func (m *mockLedgerRepo) ConfirmArrival(ctx context.Context, hospitalID string, bedType entities.BedType) error {
	return m.ConfirmArrivalFunc(ctx, hospitalID, bedType)
}

func (m *mockLedgerRepo) ReleaseOccupied(ctx context.Context, hospitalID string, bedType entities.BedType) (bool, error) {
	return m.ReleaseOccupiedFunc(ctx, hospitalID, bedType)
}

type mockTransferRepo struct {
	CreateFunc         func(ctx context.Context, transfer *entities.TransferRequest) error
	GetByIDFunc        func(ctx context.Context, id string) (*entities.TransferRequest, error)
	UpdateStatusFunc   func(ctx context.Context, transfer *entities.TransferRequest, expected entities.TransferStatus) error
	ListByHospitalFunc func(ctx context.Context, hospitalID string, filter repositories.TransferFilter) ([]*entities.TransferRequest, error)
	ListStaleFunc      func(ctx context.Context, status entities.TransferStatus, before time.Time) ([]*entities.TransferRequest, error)
	StatisticsFunc     func(ctx context.Context, hospitalID string) (*entities.TransferStatistics, error)
}

func (m *mockTransferRepo) Create(ctx context.Context, transfer *entities.TransferRequest) error {
	return m.CreateFunc(ctx, transfer)
}

func (m *mockTransferRepo) GetByID(ctx context.Context, id string) (*entities.TransferRequest, error) {
	return m.GetByIDFunc(ctx, id)
}

func (m *mockTransferRepo) UpdateStatus(ctx context.Context, transfer *entities.TransferRequest, expected entities.TransferStatus) error {
	return m.UpdateStatusFunc(ctx, transfer, expected)
}

func (m *mockTransferRepo) ListByHospital(ctx context.Context, hospitalID string, filter repositories.TransferFilter) ([]*entities.TransferRequest, error) {
	return m.ListByHospitalFunc(ctx, hospitalID, filter)
}

func (m *mockTransferRepo) ListStale(ctx context.Context, status entities.TransferStatus, before time.Time) ([]*entities.TransferRequest, error) {
	return m.ListStaleFunc(ctx, status, before)
}

func (m *mockTransferRepo) Statistics(ctx context.Context, hospitalID string) (*entities.TransferStatistics, error) {
	return m.StatisticsFunc(ctx, hospitalID)
}

// memoryEventBus records published events for assertions.
type memoryEventBus struct {
	mu     sync.Mutex
	events map[string][]*entities.LedgerEvent
}

func newMemoryEventBus() *memoryEventBus {
	return &memoryEventBus{events: make(map[string][]*entities.LedgerEvent)}
}

func (b *memoryEventBus) Publish(ctx context.Context, channel string, event *entities.LedgerEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[channel] = append(b.events[channel], event)
	return nil
}

func (b *memoryEventBus) Subscribe(ctx context.Context, channel string) (<-chan *entities.LedgerEvent, error) {
	ch := make(chan *entities.LedgerEvent)
	close(ch)
	return ch, nil
}

func (b *memoryEventBus) Unsubscribe(ctx context.Context, channel string) error { return nil }

func (b *memoryEventBus) Close() error { return nil }

func (b *memoryEventBus) published(channel string) []*entities.LedgerEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.events[channel]
}
