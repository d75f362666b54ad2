package tests

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"freight/internal/domain"
	"freight/internal/gateway"
	"freight/internal/repository"
)

// ──────────────────────────────────────────────
// MOCK CARGO REPOSITORY
// ──────────────────────────────────────────────

// MockCargoRepository is a mock implementation of CargoRepository. The
// conditional operations compare-and-swap under the mutex, so they
// behave like the SQL conditional writes they stand in for.
type MockCargoRepository struct {
	mu     sync.RWMutex
	cargos map[string]*domain.CargoRequest

	// Counters for verification
	CreateCallCount         int32
	UpdateIfStatusCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockCargoRepository creates a new mock cargo repository.
func NewMockCargoRepository() *MockCargoRepository {
	return &MockCargoRepository{
		cargos: make(map[string]*domain.CargoRequest),
	}
}

// AddCargo seeds a cargo request.
func (m *MockCargoRepository) AddCargo(cargo *domain.CargoRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cargos[cargo.ID] = cargo
}

func (m *MockCargoRepository) Create(ctx context.Context, cargo *domain.CargoRequest) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	c := *cargo
	m.cargos[cargo.ID] = &c
	return nil
}

func (m *MockCargoRepository) GetByID(ctx context.Context, id string) (*domain.CargoRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cargo, ok := m.cargos[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	// Return a copy to avoid mutation issues.
	c := *cargo
	return &c, nil
}

func (m *MockCargoRepository) GetAll(ctx context.Context, status domain.CargoStatus, ownerID string) ([]*domain.CargoRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.CargoRequest, 0, len(m.cargos))
	for _, cargo := range m.cargos {
		if status != "" && cargo.Status != status {
			continue
		}
		if ownerID != "" && cargo.OwnerID != ownerID {
			continue
		}
		c := *cargo
		result = append(result, &c)
	}
	return result, nil
}

func (m *MockCargoRepository) UpdateIfStatus(ctx context.Context, cargo *domain.CargoRequest, expected domain.CargoStatus) error {
	atomic.AddInt32(&m.UpdateIfStatusCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.cargos[cargo.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != expected {
		return repository.ErrStatusConflict
	}
	c := *cargo
	m.cargos[cargo.ID] = &c
	return nil
}

func (m *MockCargoRepository) DeleteIfStatus(ctx context.Context, id string, expected domain.CargoStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.cargos[id]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != expected {
		return repository.ErrStatusConflict
	}
	delete(m.cargos, id)
	return nil
}

// GetCargo returns the stored cargo request for test assertions.
func (m *MockCargoRepository) GetCargo(id string) *domain.CargoRequest {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cargos[id]
}

// ──────────────────────────────────────────────
// MOCK DRIVER REPOSITORY
// ──────────────────────────────────────────────

// MockDriverRepository is a mock implementation of DriverRepository.
type MockDriverRepository struct {
	mu      sync.RWMutex
	drivers map[string]*domain.Driver

	// Counters for verification
	CreateCallCount         int32
	UpdateStatusIfCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockDriverRepository creates a new mock driver repository.
func NewMockDriverRepository() *MockDriverRepository {
	return &MockDriverRepository{
		drivers: make(map[string]*domain.Driver),
	}
}

// AddDriver seeds a driver.
func (m *MockDriverRepository) AddDriver(driver *domain.Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[driver.ID] = driver
}

func (m *MockDriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d := *driver
	m.drivers[driver.ID] = &d
	return nil
}

func (m *MockDriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	driver, ok := m.drivers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	d := *driver
	return &d, nil
}

func (m *MockDriverRepository) GetByUserID(ctx context.Context, userID string) (*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, driver := range m.drivers {
		if driver.UserID == userID {
			d := *driver
			return &d, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockDriverRepository) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Driver, 0, len(m.drivers))
	for _, driver := range m.drivers {
		d := *driver
		result = append(result, &d)
	}
	return result, nil
}

func (m *MockDriverRepository) UpdateStatusIf(ctx context.Context, id string, expected, next domain.DriverStatus, reason string) error {
	atomic.AddInt32(&m.UpdateStatusIfCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	driver, ok := m.drivers[id]
	if !ok {
		return repository.ErrNotFound
	}
	if driver.Status != expected {
		return repository.ErrStatusConflict
	}
	driver.Status = next
	driver.StatusReason = reason
	driver.StatusChangedAt = time.Now()
	return nil
}

// GetDriver returns the stored driver for test assertions.
func (m *MockDriverRepository) GetDriver(id string) *domain.Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.drivers[id]
}

// ──────────────────────────────────────────────
// MOCK TRIP REPOSITORY
// ──────────────────────────────────────────────

// MockTripRepository is a mock implementation of TripRepository.
type MockTripRepository struct {
	mu    sync.RWMutex
	trips map[string]*domain.Trip

	// Drivers mirrors the FK the SQL conditional insert checks: when
	// set, CreateIfDriverFree requires the persisted driver to be
	// Active, like the real statement does.
	Drivers *MockDriverRepository

	// Counters for verification
	CreateCallCount         int32
	UpdateIfStatusCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockTripRepository creates a new mock trip repository.
func NewMockTripRepository() *MockTripRepository {
	return &MockTripRepository{
		trips: make(map[string]*domain.Trip),
	}
}

// AddTrip seeds a trip.
func (m *MockTripRepository) AddTrip(trip *domain.Trip) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trips[trip.ID] = trip
}

func (m *MockTripRepository) CreateIfDriverFree(ctx context.Context, trip *domain.Trip) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Drivers != nil {
		driver := m.Drivers.GetDriver(trip.DriverID)
		if driver == nil || driver.Status != domain.DriverStatusActive {
			return repository.ErrDriverNotActive
		}
	}
	for _, t := range m.trips {
		if t.DriverID == trip.DriverID && !domain.TripTerminal(t.Status) {
			return repository.ErrActiveExists
		}
	}
	t := *trip
	m.trips[trip.ID] = &t
	return nil
}

func (m *MockTripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	trip, ok := m.trips[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	t := *trip
	return &t, nil
}

func (m *MockTripRepository) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Trip, 0, len(m.trips))
	for _, trip := range m.trips {
		t := *trip
		result = append(result, &t)
	}
	return result, nil
}

func (m *MockTripRepository) GetActiveByDriverID(ctx context.Context, driverID string) (*domain.Trip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, trip := range m.trips {
		if trip.DriverID == driverID && !domain.TripTerminal(trip.Status) {
			t := *trip
			return &t, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockTripRepository) UpdateIfStatus(ctx context.Context, trip *domain.Trip, expected domain.TripStatus) error {
	atomic.AddInt32(&m.UpdateIfStatusCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.trips[trip.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != expected {
		return repository.ErrStatusConflict
	}
	t := *trip
	m.trips[trip.ID] = &t
	return nil
}

// GetTrip returns the stored trip for test assertions.
func (m *MockTripRepository) GetTrip(id string) *domain.Trip {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trips[id]
}

// CountTrips returns the number of stored trips.
func (m *MockTripRepository) CountTrips() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trips)
}

// ──────────────────────────────────────────────
// MOCK VEHICLE REPOSITORY
// ──────────────────────────────────────────────

// MockVehicleRepository is a mock implementation of VehicleRepository.
type MockVehicleRepository struct {
	mu       sync.RWMutex
	vehicles map[string]*domain.Vehicle
}

// NewMockVehicleRepository creates a new mock vehicle repository.
func NewMockVehicleRepository() *MockVehicleRepository {
	return &MockVehicleRepository{
		vehicles: make(map[string]*domain.Vehicle),
	}
}

// AddVehicle seeds a vehicle.
func (m *MockVehicleRepository) AddVehicle(vehicle *domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vehicles[vehicle.ID] = vehicle
}

func (m *MockVehicleRepository) Create(ctx context.Context, vehicle *domain.Vehicle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := *vehicle
	m.vehicles[vehicle.ID] = &v
	return nil
}

func (m *MockVehicleRepository) GetByID(ctx context.Context, id string) (*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	vehicle, ok := m.vehicles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	v := *vehicle
	return &v, nil
}

func (m *MockVehicleRepository) GetByPlate(ctx context.Context, plate string) (*domain.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, vehicle := range m.vehicles {
		if vehicle.Plate == plate {
			v := *vehicle
			return &v, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ──────────────────────────────────────────────
// MOCK PAYMENT REPOSITORY
// ──────────────────────────────────────────────

// MockPaymentRepository is a mock implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[string]*domain.Payment
	history  []*domain.PaymentHistory

	// Counters for verification
	CreateCallCount         int32
	UpdateIfStatusCallCount int32

	// Error injection
	CreateError error
	UpdateError error
}

// NewMockPaymentRepository creates a new mock payment repository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[string]*domain.Payment),
	}
}

// AddPayment seeds a payment.
func (m *MockPaymentRepository) AddPayment(payment *domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[payment.ID] = payment
}

func (m *MockPaymentRepository) CreateIfNoActive(ctx context.Context, payment *domain.Payment) error {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.TripID == payment.TripID && domain.PaymentActive(p.Status) {
			return repository.ErrActiveExists
		}
	}
	p := *payment
	m.payments[payment.ID] = &p
	return nil
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	payment, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p := *payment
	return &p, nil
}

func (m *MockPaymentRepository) GetByToken(ctx context.Context, token string) (*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, payment := range m.payments {
		if payment.GatewayToken == token {
			p := *payment
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *MockPaymentRepository) GetByTripID(ctx context.Context, tripID string) ([]*domain.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.Payment, 0)
	for _, payment := range m.payments {
		if payment.TripID == tripID {
			p := *payment
			result = append(result, &p)
		}
	}
	return result, nil
}

func (m *MockPaymentRepository) UpdateIfStatus(ctx context.Context, payment *domain.Payment, expected domain.PaymentStatus) error {
	atomic.AddInt32(&m.UpdateIfStatusCallCount, 1)
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.payments[payment.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if stored.Status != expected {
		return repository.ErrStatusConflict
	}
	p := *payment
	m.payments[payment.ID] = &p
	return nil
}

func (m *MockPaymentRepository) AppendHistory(ctx context.Context, entry *domain.PaymentHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := *entry
	m.history = append(m.history, &e)
	return nil
}

func (m *MockPaymentRepository) GetHistory(ctx context.Context, paymentID string) ([]*domain.PaymentHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.PaymentHistory, 0)
	for _, entry := range m.history {
		if entry.PaymentID == paymentID {
			e := *entry
			result = append(result, &e)
		}
	}
	return result, nil
}

// GetPayment returns the stored payment for test assertions.
func (m *MockPaymentRepository) GetPayment(id string) *domain.Payment {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payments[id]
}

// ActiveCountForTrip counts non-terminal payments for a trip.
func (m *MockPaymentRepository) ActiveCountForTrip(tripID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, payment := range m.payments {
		if payment.TripID == tripID && domain.PaymentActive(payment.Status) {
			count++
		}
	}
	return count
}

// ──────────────────────────────────────────────
// MOCK NOTIFICATION REPOSITORY
// ──────────────────────────────────────────────

// MockNotificationRepository is a mock implementation of NotificationRepository.
type MockNotificationRepository struct {
	mu      sync.RWMutex
	entries []*domain.NotificationHistory
}

// NewMockNotificationRepository creates a new mock notification repository.
func NewMockNotificationRepository() *MockNotificationRepository {
	return &MockNotificationRepository{}
}

func (m *MockNotificationRepository) Append(ctx context.Context, entry *domain.NotificationHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := *entry
	m.entries = append(m.entries, &e)
	return nil
}

func (m *MockNotificationRepository) GetByRecipient(ctx context.Context, recipientID string, limit int) ([]*domain.NotificationHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]*domain.NotificationHistory, 0)
	for _, entry := range m.entries {
		if entry.RecipientID == recipientID {
			e := *entry
			result = append(result, &e)
		}
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is an in-memory stand-in for the redis lock store. It
// keeps the owner-token semantics: release only clears the lock when
// the token still owns it.
type MockLockStore struct {
	mu     sync.Mutex
	locks  map[string]string
	nextID int32
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{locks: make(map[string]string)}
}

func (m *MockLockStore) AcquirePaymentLock(ctx context.Context, paymentID string, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[paymentID] != "" {
		return "", nil
	}
	token := "lock-" + strconv.Itoa(int(atomic.AddInt32(&m.nextID, 1)))
	m.locks[paymentID] = token
	return token, nil
}

func (m *MockLockStore) ReleasePaymentLock(ctx context.Context, paymentID, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[paymentID] == token {
		delete(m.locks, paymentID)
	}
	return nil
}

// ──────────────────────────────────────────────
// MOCK TRACKING STORE
// ──────────────────────────────────────────────

// MockTrackingStore is an in-memory stand-in for the redis tracking sink.
type MockTrackingStore struct {
	mu     sync.Mutex
	points map[string][]*domain.TrackingPoint
}

// NewMockTrackingStore creates a new mock tracking store.
func NewMockTrackingStore() *MockTrackingStore {
	return &MockTrackingStore{points: make(map[string][]*domain.TrackingPoint)}
}

func (m *MockTrackingStore) Append(ctx context.Context, point *domain.TrackingPoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := *point
	m.points[point.TripID] = append(m.points[point.TripID], &p)
	return nil
}

func (m *MockTrackingStore) GetByTrip(ctx context.Context, tripID string) ([]*domain.TrackingPoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.points[tripID], nil
}

// ──────────────────────────────────────────────
// MOCK GATEWAY ADAPTER
// ──────────────────────────────────────────────

// MockGateway is a mock payment gateway adapter.
type MockGateway struct {
	GatewayName domain.PaymentGateway

	// Counters for verification
	CreateCallCount int32
	VerifyCallCount int32
	RefundCallCount int32

	// Error injection
	CreateError error
	VerifyError error
	RefundError error
	StatusError error

	// Canned answers
	VerifySuccess bool
	RefundSuccess bool
	StatusAnswer  domain.PaymentStatus

	// RefundDelay widens the provider-call window for race tests.
	RefundDelay time.Duration
}

// NewMockGateway creates a mock adapter that succeeds at everything.
func NewMockGateway(name domain.PaymentGateway) *MockGateway {
	return &MockGateway{
		GatewayName:   name,
		VerifySuccess: true,
		RefundSuccess: true,
		StatusAnswer:  domain.PaymentStatusPending,
	}
}

func (m *MockGateway) Name() domain.PaymentGateway { return m.GatewayName }

func (m *MockGateway) CreatePayment(ctx context.Context, req gateway.CreateRequest) (*gateway.CreateResult, error) {
	atomic.AddInt32(&m.CreateCallCount, 1)
	if m.CreateError != nil {
		return nil, m.CreateError
	}
	return &gateway.CreateResult{
		Token:       "authority-" + strconv.Itoa(int(atomic.LoadInt32(&m.CreateCallCount))),
		RedirectURL: "https://pay.example/" + string(m.GatewayName),
	}, nil
}

func (m *MockGateway) VerifyPayment(ctx context.Context, authority string, amount int64) (*gateway.VerifyResult, error) {
	atomic.AddInt32(&m.VerifyCallCount, 1)
	if m.VerifyError != nil {
		return nil, m.VerifyError
	}
	return &gateway.VerifyResult{
		Success:     m.VerifySuccess,
		ReferenceID: "ref-" + authority,
	}, nil
}

func (m *MockGateway) RefundPayment(ctx context.Context, referenceID string, amount int64) (*gateway.RefundResult, error) {
	atomic.AddInt32(&m.RefundCallCount, 1)
	if m.RefundDelay > 0 {
		time.Sleep(m.RefundDelay)
	}
	if m.RefundError != nil {
		return nil, m.RefundError
	}
	return &gateway.RefundResult{
		Success:  m.RefundSuccess,
		RefundID: "refund-" + referenceID,
	}, nil
}

func (m *MockGateway) GetStatus(ctx context.Context, authority string) (domain.PaymentStatus, error) {
	if m.StatusError != nil {
		return "", m.StatusError
	}
	return m.StatusAnswer, nil
}
