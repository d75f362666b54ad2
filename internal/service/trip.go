package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freight/internal/domain"
	internalRedis "freight/internal/redis"
	"freight/internal/repository"
	"freight/internal/repository/postgres"
)

// TripService owns the trip lifecycle:
// Scheduled -> InProgress -> Completed, with Cancelled reachable from
// both non-terminal states. Creation is the one cross-entity operation
// and runs in a transaction; completion hands off to the payment
// orchestrator without coupling the trip's fate to the settlement's.
type TripService struct {
	db             *sql.DB
	tripRepo       repository.TripRepository
	cargoRepo      repository.CargoRepository
	driverRepo     repository.DriverRepository
	vehicleRepo    repository.VehicleRepository
	paymentService *PaymentService
	trackingStore  internalRedis.TrackingStoreInterface
	notifier       *Notifier
	logger         *zap.Logger
}

// NewTripService creates a new TripService.
func NewTripService(
	db *sql.DB,
	tripRepo repository.TripRepository,
	cargoRepo repository.CargoRepository,
	driverRepo repository.DriverRepository,
	vehicleRepo repository.VehicleRepository,
	paymentService *PaymentService,
	trackingStore internalRedis.TrackingStoreInterface,
	notifier *Notifier,
	logger *zap.Logger,
) *TripService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TripService{
		db:             db,
		tripRepo:       tripRepo,
		cargoRepo:      cargoRepo,
		driverRepo:     driverRepo,
		vehicleRepo:    vehicleRepo,
		paymentService: paymentService,
		trackingStore:  trackingStore,
		notifier:       notifier,
		logger:         logger,
	}
}

// CreateTripRequest contains the parameters for scheduling a trip.
type CreateTripRequest struct {
	CargoRequestID string
	DriverID       string
	VehicleID      string

	EstimatedDistanceKm  float64
	EstimatedDurationMin int
	EstimatedFuelLiters  float64
	EstimatedCost        int64

	ScheduledAt time.Time
}

// Create schedules a trip for an accepted cargo request. The driver
// must be Active and hold no other non-terminal trip; both are enforced
// by the conditional insert itself, never by the reads above it. The
// agreed price is copied from the cargo request and fixed for the life
// of the trip.
func (s *TripService) Create(ctx context.Context, actor domain.Actor, req CreateTripRequest) (*domain.Trip, error) {
	if req.CargoRequestID == "" || req.DriverID == "" || req.VehicleID == "" {
		return nil, fmt.Errorf("%w: cargo request, driver and vehicle are required", ErrValidation)
	}

	cargo, err := s.cargoRepo.GetByID(ctx, req.CargoRequestID)
	if err != nil {
		return nil, err
	}
	if cargo.Status != domain.CargoStatusAccepted {
		return nil, ErrCargoNotAccepted
	}

	driver, err := s.driverRepo.GetByID(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}
	if driver.Status != domain.DriverStatusActive {
		return nil, ErrDriverNotActive
	}

	if !actor.Is(cargo.OwnerID) && !actor.Is(driver.UserID) && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	if _, err := s.vehicleRepo.GetByID(ctx, req.VehicleID); err != nil {
		return nil, err
	}

	scheduledAt := req.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = time.Now()
	}

	trip := &domain.Trip{
		ID:             uuid.New().String(),
		CargoRequestID: cargo.ID,
		VehicleID:      req.VehicleID,
		DriverID:       req.DriverID,
		Status:         domain.TripStatusScheduled,
		AgreedPrice:    cargo.Price,

		EstimatedDistanceKm:  req.EstimatedDistanceKm,
		EstimatedDurationMin: req.EstimatedDurationMin,
		EstimatedFuelLiters:  req.EstimatedFuelLiters,
		EstimatedCost:        req.EstimatedCost,

		ScheduledAt: scheduledAt,
	}

	if err := s.insertTrip(ctx, trip); err != nil {
		if errors.Is(err, repository.ErrActiveExists) {
			return nil, ErrDriverHasActiveTrip
		}
		if errors.Is(err, repository.ErrDriverNotActive) {
			// The driver's status changed between the read above and
			// the insert; the statement's own predicate caught it.
			return nil, ErrDriverNotActive
		}
		return nil, err
	}

	s.notifier.SendAsync(driver.UserID, domain.EventTripScheduled, map[string]any{
		"trip_id":          trip.ID,
		"cargo_request_id": cargo.ID,
		"scheduled_at":     trip.ScheduledAt,
	})

	return trip, nil
}

// insertTrip runs the conditional insert inside a transaction that
// re-checks the cargo request against its latest persisted status.
// Without a DB handle the single-statement insert carries the
// driver-free invariant on its own.
func (s *TripService) insertTrip(ctx context.Context, trip *domain.Trip) error {
	if s.db == nil {
		return s.tripRepo.CreateIfDriverFree(ctx, trip)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	txCargoRepo := postgres.NewCargoRepositoryWithTx(tx)
	txTripRepo := postgres.NewTripRepositoryWithTx(tx)

	var cargo *domain.CargoRequest
	cargo, err = txCargoRepo.GetByID(ctx, trip.CargoRequestID)
	if err != nil {
		return err
	}
	if cargo.Status != domain.CargoStatusAccepted {
		err = ErrCargoNotAccepted
		return err
	}

	if err = txTripRepo.CreateIfDriverFree(ctx, trip); err != nil {
		return err
	}

	err = tx.Commit()
	return err
}

// Get retrieves a trip by ID.
func (s *TripService) Get(ctx context.Context, id string) (*domain.Trip, error) {
	return s.tripRepo.GetByID(ctx, id)
}

// GetAll retrieves recent trips.
func (s *TripService) GetAll(ctx context.Context) ([]*domain.Trip, error) {
	return s.tripRepo.GetAll(ctx)
}

// GetActiveForDriver retrieves the driver's current non-terminal trip.
// Returns repository.ErrNotFound when the driver has no scheduled or
// in-progress trip.
func (s *TripService) GetActiveForDriver(ctx context.Context, driverID string) (*domain.Trip, error) {
	return s.tripRepo.GetActiveByDriverID(ctx, driverID)
}

// Start moves a scheduled trip to InProgress. Only the assigned driver
// or an admin may start it.
func (s *TripService) Start(ctx context.Context, actor domain.Actor, id string) (*domain.Trip, error) {
	trip, _, err := s.getTripForDriver(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if trip.Status != domain.TripStatusScheduled {
		return nil, ErrTripNotScheduled
	}

	trip.Status = domain.TripStatusInProgress
	trip.StartedAt = time.Now()

	if err := s.tripRepo.UpdateIfStatus(ctx, trip, domain.TripStatusScheduled); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrTripNotScheduled
		}
		return nil, err
	}

	s.notifyCargoOwner(ctx, trip, domain.EventTripStarted, map[string]any{
		"trip_id":    trip.ID,
		"started_at": trip.StartedAt,
	})

	return trip, nil
}

// TripActuals are the measured figures recorded at completion.
type TripActuals struct {
	DistanceKm  float64
	DurationMin int
	FuelLiters  float64
	Cost        int64
}

// SettlementResult reports the outcome of the settlement attempt made
// when a trip completes. A failed settlement leaves the trip Completed;
// the payment can be retried explicitly.
type SettlementResult struct {
	Initiated   bool
	PaymentID   string
	RedirectURL string
	Error       string
}

// Complete moves an in-progress trip to Completed, records the actual
// figures and then initiates settlement at the agreed price. The
// settlement outcome is reported alongside the trip and never rolls the
// completion back.
func (s *TripService) Complete(ctx context.Context, actor domain.Actor, id string, actuals TripActuals) (*domain.Trip, *SettlementResult, error) {
	trip, _, err := s.getTripForDriver(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}

	if trip.Status != domain.TripStatusInProgress {
		return nil, nil, ErrTripNotInProgress
	}

	trip.Status = domain.TripStatusCompleted
	trip.ActualDistanceKm = actuals.DistanceKm
	trip.ActualDurationMin = actuals.DurationMin
	trip.ActualFuelLiters = actuals.FuelLiters
	trip.ActualCost = actuals.Cost
	trip.CompletedAt = time.Now()

	if err := s.tripRepo.UpdateIfStatus(ctx, trip, domain.TripStatusInProgress); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, nil, ErrTripNotInProgress
		}
		return nil, nil, err
	}

	settlement := &SettlementResult{}
	payment, err := s.paymentService.InitiateSettlement(ctx, trip)
	if err != nil {
		settlement.Error = err.Error()
		s.logger.Warn("settlement initiation failed",
			zap.String("trip_id", trip.ID),
			zap.Error(err),
		)
	} else {
		settlement.Initiated = true
		settlement.PaymentID = payment.ID
		settlement.RedirectURL = payment.RedirectURL
	}

	s.notifyCargoOwner(ctx, trip, domain.EventTripCompleted, map[string]any{
		"trip_id":      trip.ID,
		"completed_at": trip.CompletedAt,
		"agreed_price": trip.AgreedPrice,
	})

	return trip, settlement, nil
}

// Cancel aborts a trip that has not finished. The check runs against
// the latest persisted status so an already-completed trip can never be
// cancelled.
func (s *TripService) Cancel(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeTripActor(ctx, actor, trip); err != nil {
		return nil, err
	}

	if domain.TripTerminal(trip.Status) {
		return nil, ErrTripNotCancellable
	}

	expected := trip.Status
	trip.Status = domain.TripStatusCancelled
	trip.CancelledAt = time.Now()
	trip.CancelReason = reason

	if err := s.tripRepo.UpdateIfStatus(ctx, trip, expected); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrTripNotCancellable
		}
		return nil, err
	}

	s.notifyCargoOwner(ctx, trip, domain.EventTripCancelled, map[string]any{
		"trip_id": trip.ID,
		"reason":  reason,
	})

	return trip, nil
}

// AddTrackingPoint records a position sample for an in-progress trip.
// The points are opaque to the lifecycle core and go straight to the
// tracking sink.
func (s *TripService) AddTrackingPoint(ctx context.Context, actor domain.Actor, tripID string, lat, lng float64) error {
	trip, _, err := s.getTripForDriver(ctx, actor, tripID)
	if err != nil {
		return err
	}

	if trip.Status != domain.TripStatusInProgress {
		return ErrTripNotInProgress
	}

	if s.trackingStore == nil {
		return nil
	}

	return s.trackingStore.Append(ctx, &domain.TrackingPoint{
		TripID:     trip.ID,
		Lat:        lat,
		Lng:        lng,
		RecordedAt: time.Now(),
	})
}

// GetTrackingPoints returns the recorded points for a trip.
func (s *TripService) GetTrackingPoints(ctx context.Context, tripID string) ([]*domain.TrackingPoint, error) {
	if _, err := s.tripRepo.GetByID(ctx, tripID); err != nil {
		return nil, err
	}
	if s.trackingStore == nil {
		return nil, nil
	}
	return s.trackingStore.GetByTrip(ctx, tripID)
}

// getTripForDriver loads a trip and enforces that the actor is its
// assigned driver or an admin.
func (s *TripService) getTripForDriver(ctx context.Context, actor domain.Actor, id string) (*domain.Trip, *domain.Driver, error) {
	trip, err := s.tripRepo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	driver, err := s.driverRepo.GetByID(ctx, trip.DriverID)
	if err != nil {
		return nil, nil, err
	}

	if !actor.Is(driver.UserID) && !actor.IsAdmin() {
		return nil, nil, ErrNotDriverOrAdmin
	}

	return trip, driver, nil
}

// notifyCargoOwner resolves the trip's cargo owner and dispatches an
// event to them. Best-effort, like all notifications.
func (s *TripService) notifyCargoOwner(ctx context.Context, trip *domain.Trip, event domain.NotificationEvent, payload map[string]any) {
	cargo, err := s.cargoRepo.GetByID(ctx, trip.CargoRequestID)
	if err != nil {
		s.logger.Warn("cargo lookup for notification failed",
			zap.String("trip_id", trip.ID),
			zap.Error(err),
		)
		return
	}
	s.notifier.SendAsync(cargo.OwnerID, event, payload)
}

// authorizeTripActor permits the assigned driver, the cargo owner or an
// admin.
func (s *TripService) authorizeTripActor(ctx context.Context, actor domain.Actor, trip *domain.Trip) error {
	if actor.IsAdmin() {
		return nil
	}

	driver, err := s.driverRepo.GetByID(ctx, trip.DriverID)
	if err == nil && actor.Is(driver.UserID) {
		return nil
	}

	cargo, err := s.cargoRepo.GetByID(ctx, trip.CargoRequestID)
	if err == nil && actor.Is(cargo.OwnerID) {
		return nil
	}

	return ErrForbidden
}
