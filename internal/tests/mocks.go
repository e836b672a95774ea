package tests

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"rental/internal/domain"
	"rental/internal/queue"
	"rental/internal/repository"
	"rental/internal/service"
)

// ──────────────────────────────────────────────
// MOCK RESERVATION REPOSITORY
// ──────────────────────────────────────────────

// MockReservationRepository is a mock implementation of ReservationRepository.
// Like the real store, Create enforces the no-overlap constraint over
// non-cancelled reservations and reports collisions as ErrConflict.
type MockReservationRepository struct {
	mu           sync.RWMutex
	reservations map[int64]*domain.Reservation
	nextID       int64

	// Counters for verification
	CreateCallCount       int32
	UpdateStatusCallCount int32

	// Error injection
	CreateError       error
	GetByIDError      error
	UpdateStatusError error
}

// NewMockReservationRepository creates a new mock reservation repository.
func NewMockReservationRepository() *MockReservationRepository {
	return &MockReservationRepository{
		reservations: make(map[int64]*domain.Reservation),
	}
}

// AddReservation seeds a reservation, assigning an ID if unset.
func (m *MockReservationRepository) AddReservation(res *domain.Reservation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if res.ID == 0 {
		m.nextID++
		res.ID = m.nextID
	} else if res.ID > m.nextID {
		m.nextID = res.ID
	}
	m.reservations[res.ID] = res
}

func (m *MockReservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	// Constraint check mirroring reservations_no_overlap.
	for _, existing := range m.reservations {
		if existing.VehicleID == res.VehicleID && existing.Active() && existing.Overlaps(res.StartDate, res.EndDate) {
			return repository.ErrConflict
		}
	}

	m.nextID++
	res.ID = m.nextID
	res.CreatedAt = time.Now()
	m.reservations[res.ID] = res
	return nil
}

func (m *MockReservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	if m.GetByIDError != nil {
		return nil, m.GetByIDError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	res, ok := m.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	copy := *res
	return &copy, nil
}

func (m *MockReservationRepository) GetAll(ctx context.Context) ([]*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Reservation, 0, len(m.reservations))
	for _, r := range m.reservations {
		copy := *r
		result = append(result, &copy)
	}
	return result, nil
}

func (m *MockReservationRepository) GetByClientID(ctx context.Context, clientID int64) ([]*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Reservation
	for _, r := range m.reservations {
		if r.ClientID == clientID {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockReservationRepository) FindConflicting(ctx context.Context, vehicleID int64, start, end time.Time) ([]*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []*domain.Reservation
	for _, r := range m.reservations {
		if r.VehicleID == vehicleID && r.Active() && r.Overlaps(start, end) {
			copy := *r
			result = append(result, &copy)
		}
	}
	return result, nil
}

func (m *MockReservationRepository) FindBySessionID(ctx context.Context, sessionID string) (*domain.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reservations {
		if r.PaymentSessionID == sessionID {
			copy := *r
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, id int64, status domain.ReservationStatus) error {
	atomic.AddInt32(&m.UpdateStatusCallCount, 1)
	if m.UpdateStatusError != nil {
		return m.UpdateStatusError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	res.Status = status
	return nil
}

func (m *MockReservationRepository) UpdateSessionID(ctx context.Context, id int64, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	res, ok := m.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	res.PaymentSessionID = sessionID
	return nil
}

func (m *MockReservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[res.ID]; !ok {
		return repository.ErrNotFound
	}
	copy := *res
	m.reservations[res.ID] = &copy
	return nil
}

func (m *MockReservationRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reservations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.reservations, id)
	return nil
}

// GetReservation returns the stored reservation for test assertions.
func (m *MockReservationRepository) GetReservation(id int64) *domain.Reservation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.reservations[id]
}

// CountReservations returns the number of stored reservations.
func (m *MockReservationRepository) CountReservations() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.reservations)
}

// ──────────────────────────────────────────────
// MOCK VEHICLE CATALOG
// ──────────────────────────────────────────────

// MockVehicleCatalog is a mock implementation of VehicleCatalog.
type MockVehicleCatalog struct {
	mu       sync.RWMutex
	vehicles map[int64]*domain.Vehicle

	// Error injection
	ExistsError error
}

// NewMockVehicleCatalog creates a new mock vehicle catalog.
func NewMockVehicleCatalog() *MockVehicleCatalog {
	return &MockVehicleCatalog{
		vehicles: make(map[int64]*domain.Vehicle),
	}
}

// AddVehicle seeds a vehicle into the catalog.
func (m *MockVehicleCatalog) AddVehicle(v *domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[v.ID] = v
}

func (m *MockVehicleCatalog) GetByID(ctx context.Context, id int64) (*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *v
	return &copy, nil
}

func (m *MockVehicleCatalog) Exists(ctx context.Context, id int64) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.vehicles[id]
	return ok, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of the vehicle lock store.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[int64]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[int64]time.Time),
	}
}

func (m *MockLockStore) AcquireVehicleLock(ctx context.Context, vehicleID int64, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	if m.ForceAcquireFailure {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if expiry, exists := m.locks[vehicleID]; exists {
		if time.Now().Before(expiry) {
			return false, nil // Lock still held.
		}
	}

	m.locks[vehicleID] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseVehicleLock(ctx context.Context, vehicleID int64) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, vehicleID)
	return nil
}

// IsLocked checks if a vehicle is locked (for test assertions).
func (m *MockLockStore) IsLocked(vehicleID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks[vehicleID]
	return exists && time.Now().Before(expiry)
}

// ──────────────────────────────────────────────
// MOCK EVENT PUBLISHER
// ──────────────────────────────────────────────

// MockEventPublisher records published reservation events.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []queue.ReservationEvent

	// Error injection
	PublishError error
}

// NewMockEventPublisher creates a new mock event publisher.
func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event queue.ReservationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PublishError != nil {
		return m.PublishError
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns the published events for assertions.
func (m *MockEventPublisher) Events() []queue.ReservationEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]queue.ReservationEvent, len(m.events))
	copy(result, m.events)
	return result
}

// ──────────────────────────────────────────────
// MOCK PAYMENT GATEWAY
// ──────────────────────────────────────────────

// MockPaymentGateway is a controllable checkout provider.
type MockPaymentGateway struct {
	mu sync.Mutex

	// Control behavior
	SessionID   string
	RedirectURL string
	FailError   error

	// Counters
	CreateCallCount int32

	// LastRequest captures the most recent session request for assertions.
	LastRequest service.CheckoutSessionRequest
}

// NewMockPaymentGateway creates a new mock gateway.
func NewMockPaymentGateway(sessionID string) *MockPaymentGateway {
	return &MockPaymentGateway{
		SessionID:   sessionID,
		RedirectURL: "https://checkout.example.com/pay/" + sessionID,
	}
}

func (m *MockPaymentGateway) CreateCheckoutSession(ctx context.Context, req service.CheckoutSessionRequest) (*service.CheckoutSession, error) {
	atomic.AddInt32(&m.CreateCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRequest = req
	if m.FailError != nil {
		return nil, m.FailError
	}
	return &service.CheckoutSession{
		ID:          m.SessionID,
		RedirectURL: m.RedirectURL,
	}, nil
}
