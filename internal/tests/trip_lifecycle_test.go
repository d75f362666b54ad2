package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"freight/internal/domain"
	"freight/internal/gateway"
	"freight/internal/repository"
	"freight/internal/service"
)

// ──────────────────────────────────────────────
// TRIP LIFECYCLE
// ──────────────────────────────────────────────

type tripFixture struct {
	cargoRepo   *MockCargoRepository
	driverRepo  *MockDriverRepository
	vehicleRepo *MockVehicleRepository
	tripRepo    *MockTripRepository
	paymentRepo *MockPaymentRepository
	gateway     *MockGateway
	tracking    *MockTrackingStore
	tripService *service.TripService
	paymentSvc  *service.PaymentService
}

func newTripFixture() *tripFixture {
	f := &tripFixture{
		cargoRepo:   NewMockCargoRepository(),
		driverRepo:  NewMockDriverRepository(),
		vehicleRepo: NewMockVehicleRepository(),
		tripRepo:    NewMockTripRepository(),
		paymentRepo: NewMockPaymentRepository(),
		gateway:     NewMockGateway(domain.GatewayZarinpal),
		tracking:    NewMockTrackingStore(),
	}
	f.tripRepo.Drivers = f.driverRepo

	registry := gateway.NewRegistry()
	registry.Register(f.gateway)

	notifier := service.NewNotifier(NewMockNotificationRepository(), nil)
	f.paymentSvc = service.NewPaymentService(
		f.paymentRepo, f.tripRepo, f.cargoRepo, registry,
		NewMockLockStore(), notifier, nil,
		service.PaymentConfig{DefaultGateway: domain.GatewayZarinpal, Currency: "IRR"},
	)
	f.tripService = service.NewTripService(
		nil, f.tripRepo, f.cargoRepo, f.driverRepo, f.vehicleRepo,
		f.paymentSvc, f.tracking, notifier, nil,
	)
	return f
}

func (f *tripFixture) seedAcceptedCargo(id string, price int64) {
	f.cargoRepo.AddCargo(&domain.CargoRequest{
		ID:         id,
		OwnerID:    "owner-1",
		Status:     domain.CargoStatusAccepted,
		AcceptedBy: "driver-user-1",
		Price:      price,
	})
}

func (f *tripFixture) seedDriver(id string, status domain.DriverStatus) {
	f.driverRepo.AddDriver(&domain.Driver{
		ID:     id,
		UserID: "driver-user-1",
		Status: status,
	})
}

func (f *tripFixture) seedVehicle(id string) {
	f.vehicleRepo.AddVehicle(&domain.Vehicle{ID: id, Plate: "12A345-67"})
}

func TestTrip_FullLifecycle_WithSettlement(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedCargo("cargo-1", 42000000)
	f.seedDriver("driver-1", domain.DriverStatusActive)
	f.seedVehicle("vehicle-1")

	ctx := context.Background()
	driver := domain.Actor{UserID: "driver-user-1", Roles: []domain.Role{domain.RoleDriver}}

	trip, err := f.tripService.Create(ctx, driver, service.CreateTripRequest{
		CargoRequestID:      "cargo-1",
		DriverID:            "driver-1",
		VehicleID:           "vehicle-1",
		EstimatedDistanceKm: 450,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if trip.Status != domain.TripStatusScheduled {
		t.Fatalf("status = %s, want SCHEDULED", trip.Status)
	}
	if trip.AgreedPrice != 42000000 {
		t.Errorf("agreed price = %d, want the cargo's price", trip.AgreedPrice)
	}

	if _, err := f.tripService.Start(ctx, driver, trip.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := f.tripService.AddTrackingPoint(ctx, driver, trip.ID, 35.6892, 51.389); err != nil {
		t.Fatalf("tracking point: %v", err)
	}
	points, err := f.tripService.GetTrackingPoints(ctx, trip.ID)
	if err != nil || len(points) != 1 {
		t.Fatalf("tracking points = %d (%v), want 1", len(points), err)
	}

	completed, settlement, err := f.tripService.Complete(ctx, driver, trip.ID, service.TripActuals{
		DistanceKm:  470,
		DurationMin: 380,
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != domain.TripStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", completed.Status)
	}
	if completed.ActualDistanceKm != 470 {
		t.Errorf("actual distance = %v, want 470", completed.ActualDistanceKm)
	}

	if !settlement.Initiated {
		t.Fatalf("settlement not initiated: %s", settlement.Error)
	}
	payment := f.paymentRepo.GetPayment(settlement.PaymentID)
	if payment == nil {
		t.Fatal("settlement payment not persisted")
	}
	if payment.Amount != 42000000 {
		t.Errorf("settlement amount = %d, want the agreed price", payment.Amount)
	}
	if payment.Status != domain.PaymentStatusPending {
		t.Errorf("settlement payment status = %s, want PENDING", payment.Status)
	}
	if f.gateway.CreateCallCount != 1 {
		t.Errorf("gateway CreatePayment calls = %d, want 1", f.gateway.CreateCallCount)
	}
}

func TestTrip_CreateRequiresAcceptedCargo(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.cargoRepo.AddCargo(&domain.CargoRequest{ID: "cargo-1", OwnerID: "owner-1", Status: domain.CargoStatusPending})
	f.seedDriver("driver-1", domain.DriverStatusActive)
	f.seedVehicle("vehicle-1")

	admin := domain.Actor{UserID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}
	_, err := f.tripService.Create(context.Background(), admin, service.CreateTripRequest{
		CargoRequestID: "cargo-1",
		DriverID:       "driver-1",
		VehicleID:      "vehicle-1",
	})
	if !errors.Is(err, service.ErrPreconditionFailed) {
		t.Errorf("error = %v, want ErrPreconditionFailed", err)
	}
}

func TestTrip_CreateRequiresActiveDriver(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedCargo("cargo-1", 1000000)
	f.seedDriver("driver-1", domain.DriverStatusSuspended)
	f.seedVehicle("vehicle-1")

	admin := domain.Actor{UserID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}
	_, err := f.tripService.Create(context.Background(), admin, service.CreateTripRequest{
		CargoRequestID: "cargo-1",
		DriverID:       "driver-1",
		VehicleID:      "vehicle-1",
	})
	if !errors.Is(err, service.ErrPreconditionFailed) {
		t.Errorf("error = %v, want ErrPreconditionFailed", err)
	}
}

func TestTrip_DriverSingleActiveTrip(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedCargo("cargo-1", 1000000)
	f.seedAcceptedCargo("cargo-2", 2000000)
	f.seedDriver("driver-1", domain.DriverStatusActive)
	f.seedVehicle("vehicle-1")

	ctx := context.Background()
	admin := domain.Actor{UserID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}

	if _, err := f.tripService.Create(ctx, admin, service.CreateTripRequest{
		CargoRequestID: "cargo-1",
		DriverID:       "driver-1",
		VehicleID:      "vehicle-1",
	}); err != nil {
		t.Fatalf("first trip: %v", err)
	}

	_, err := f.tripService.Create(ctx, admin, service.CreateTripRequest{
		CargoRequestID: "cargo-2",
		DriverID:       "driver-1",
		VehicleID:      "vehicle-1",
	})
	if !errors.Is(err, service.ErrPreconditionFailed) {
		t.Errorf("second trip: error = %v, want ErrPreconditionFailed", err)
	}
	if f.tripRepo.CountTrips() != 1 {
		t.Errorf("trips = %d, want 1", f.tripRepo.CountTrips())
	}
}

func TestTrip_GetActiveForDriver(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedCargo("cargo-1", 1000000)
	f.seedDriver("driver-1", domain.DriverStatusActive)
	f.seedVehicle("vehicle-1")

	ctx := context.Background()
	admin := domain.Actor{UserID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}

	if _, err := f.tripService.GetActiveForDriver(ctx, "driver-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("before scheduling: error = %v, want ErrNotFound", err)
	}

	created, err := f.tripService.Create(ctx, admin, service.CreateTripRequest{
		CargoRequestID: "cargo-1",
		DriverID:       "driver-1",
		VehicleID:      "vehicle-1",
	})
	if err != nil {
		t.Fatalf("create trip: %v", err)
	}

	active, err := f.tripService.GetActiveForDriver(ctx, "driver-1")
	if err != nil {
		t.Fatalf("active trip: %v", err)
	}
	if active.ID != created.ID {
		t.Errorf("active trip = %s, want %s", active.ID, created.ID)
	}

	if _, err := f.tripService.Cancel(ctx, admin, created.ID, "owner withdrew"); err != nil {
		t.Fatalf("cancel trip: %v", err)
	}
	if _, err := f.tripService.GetActiveForDriver(ctx, "driver-1"); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("after cancel: error = %v, want ErrNotFound", err)
	}
}

func TestTrip_SuspendedDriverBlocksNewTrip(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedCargo("cargo-1", 1000000)
	f.seedDriver("driver-1", domain.DriverStatusActive)
	f.seedVehicle("vehicle-1")

	ctx := context.Background()
	admin := domain.Actor{UserID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}

	// Suspend the driver, then attempt to schedule.
	notifier := service.NewNotifier(nil, nil)
	driverSvc := service.NewDriverService(f.driverRepo, nil, notifier, nil)
	if _, err := driverSvc.UpdateStatus(ctx, admin, service.UpdateStatusRequest{
		DriverID: "driver-1",
		Status:   domain.DriverStatusSuspended,
		Reason:   "complaint",
	}); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	if _, err := f.tripService.Create(ctx, admin, service.CreateTripRequest{
		CargoRequestID: "cargo-1",
		DriverID:       "driver-1",
		VehicleID:      "vehicle-1",
	}); !errors.Is(err, service.ErrPreconditionFailed) {
		t.Errorf("error = %v, want ErrPreconditionFailed", err)
	}
}

// suspendAfterReadDriverRepo answers the status read with Active and
// immediately persists a suspension, so the caller's precondition is
// stale by the time it inserts.
type suspendAfterReadDriverRepo struct {
	*MockDriverRepository
}

func (r *suspendAfterReadDriverRepo) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	driver, err := r.MockDriverRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	suspended := *driver
	suspended.Status = domain.DriverStatusSuspended
	r.MockDriverRepository.AddDriver(&suspended)

	return driver, nil
}

func TestTrip_SuspensionAfterPrecheckBlocksInsert(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedCargo("cargo-1", 1000000)
	f.seedDriver("driver-1", domain.DriverStatusActive)
	f.seedVehicle("vehicle-1")

	racing := &suspendAfterReadDriverRepo{MockDriverRepository: f.driverRepo}
	notifier := service.NewNotifier(NewMockNotificationRepository(), nil)
	tripSvc := service.NewTripService(
		nil, f.tripRepo, f.cargoRepo, racing, f.vehicleRepo,
		f.paymentSvc, f.tracking, notifier, nil,
	)

	admin := domain.Actor{UserID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}
	_, err := tripSvc.Create(context.Background(), admin, service.CreateTripRequest{
		CargoRequestID: "cargo-1",
		DriverID:       "driver-1",
		VehicleID:      "vehicle-1",
	})
	if !errors.Is(err, service.ErrPreconditionFailed) {
		t.Errorf("error = %v, want ErrPreconditionFailed", err)
	}
	if f.tripRepo.CountTrips() != 0 {
		t.Error("a trip was scheduled for a driver whose persisted status is suspended")
	}
}

func TestTrip_StartOnlyFromScheduled(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedDriver("driver-1", domain.DriverStatusActive)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:       "trip-1",
		DriverID: "driver-1",
		Status:   domain.TripStatusCompleted,
	})

	driver := domain.Actor{UserID: "driver-user-1"}
	if _, err := f.tripService.Start(context.Background(), driver, "trip-1"); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState", err)
	}
}

func TestTrip_CancelCheckedAgainstLatestStatus(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedCargo("cargo-1", 1000000)
	f.seedDriver("driver-1", domain.DriverStatusActive)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:             "trip-1",
		CargoRequestID: "cargo-1",
		DriverID:       "driver-1",
		Status:         domain.TripStatusCompleted,
		CompletedAt:    time.Now(),
	})

	driver := domain.Actor{UserID: "driver-user-1"}
	if _, err := f.tripService.Cancel(context.Background(), driver, "trip-1", "late"); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("cancel completed trip: error = %v, want ErrInvalidState", err)
	}
}

func TestTrip_TrackingPointOnlyWhileInProgress(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedDriver("driver-1", domain.DriverStatusActive)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:       "trip-1",
		DriverID: "driver-1",
		Status:   domain.TripStatusScheduled,
	})

	driver := domain.Actor{UserID: "driver-user-1"}
	if err := f.tripService.AddTrackingPoint(context.Background(), driver, "trip-1", 35.7, 51.4); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("error = %v, want ErrInvalidState", err)
	}
}

func TestTrip_SettlementFailureLeavesTripCompleted(t *testing.T) {
	t.Parallel()

	f := newTripFixture()
	f.seedAcceptedCargo("cargo-1", 1000000)
	f.seedDriver("driver-1", domain.DriverStatusActive)
	f.tripRepo.AddTrip(&domain.Trip{
		ID:             "trip-1",
		CargoRequestID: "cargo-1",
		DriverID:       "driver-1",
		AgreedPrice:    1000000,
		Status:         domain.TripStatusInProgress,
	})
	f.gateway.CreateError = gateway.ErrUnavailable

	driver := domain.Actor{UserID: "driver-user-1"}
	trip, settlement, err := f.tripService.Complete(context.Background(), driver, "trip-1", service.TripActuals{})
	if err != nil {
		t.Fatalf("complete must not fail on settlement error, got %v", err)
	}
	if trip.Status != domain.TripStatusCompleted {
		t.Errorf("trip status = %s, want COMPLETED", trip.Status)
	}
	if settlement.Initiated {
		t.Error("settlement should not report initiated")
	}
	if settlement.Error == "" {
		t.Error("settlement error should be surfaced")
	}
	if stored := f.tripRepo.GetTrip("trip-1"); stored.Status != domain.TripStatusCompleted {
		t.Errorf("persisted trip status = %s, want COMPLETED", stored.Status)
	}
}
