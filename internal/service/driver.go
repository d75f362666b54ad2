package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freight/internal/domain"
	internalRedis "freight/internal/redis"
	"freight/internal/repository"
)

// DriverService owns driver availability. The legal transitions live in
// a single table in the domain package; this service adds actor checks
// and the conditional persistence that serializes racing updates.
type DriverService struct {
	driverRepo repository.DriverRepository
	cacheStore *internalRedis.CacheStore
	notifier   *Notifier
	logger     *zap.Logger
}

// NewDriverService creates a new DriverService.
func NewDriverService(
	driverRepo repository.DriverRepository,
	cacheStore *internalRedis.CacheStore,
	notifier *Notifier,
	logger *zap.Logger,
) *DriverService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DriverService{
		driverRepo: driverRepo,
		cacheStore: cacheStore,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	Name          string
	Phone         string
	LicenseNumber string
	LicenseExpiry time.Time
}

// Register creates a driver profile for the acting user. New drivers
// start Pending until an admin activates them.
func (s *DriverService) Register(ctx context.Context, actor domain.Actor, req RegisterDriverRequest) (*domain.Driver, error) {
	if req.Name == "" || req.Phone == "" || req.LicenseNumber == "" {
		return nil, fmt.Errorf("%w: name, phone and license number are required", ErrValidation)
	}

	existing, err := s.driverRepo.GetByUserID(ctx, actor.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: user already has a driver profile", ErrValidation)
	}

	now := time.Now()
	driver := &domain.Driver{
		ID:              uuid.New().String(),
		UserID:          actor.UserID,
		Name:            req.Name,
		Phone:           req.Phone,
		LicenseNumber:   req.LicenseNumber,
		LicenseExpiry:   req.LicenseExpiry,
		Status:          domain.DriverStatusPending,
		StatusChangedAt: now,
		CreatedAt:       now,
	}

	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}

	return driver, nil
}

// Get retrieves a driver, preferring the read cache.
func (s *DriverService) Get(ctx context.Context, id string) (*domain.Driver, error) {
	if s.cacheStore != nil {
		cached, err := s.cacheStore.GetDriver(ctx, id)
		if err == nil && cached != nil {
			return &domain.Driver{
				ID:           cached.ID,
				UserID:       cached.UserID,
				Name:         cached.Name,
				Phone:        cached.Phone,
				Status:       domain.DriverStatus(cached.Status),
				StatusReason: cached.StatusReason,
			}, nil
		}
	}

	driver, err := s.driverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetDriver(ctx, &internalRedis.CachedDriver{
			ID:           driver.ID,
			UserID:       driver.UserID,
			Name:         driver.Name,
			Phone:        driver.Phone,
			Status:       string(driver.Status),
			StatusReason: driver.StatusReason,
		})
	}

	return driver, nil
}

// GetAll retrieves all drivers.
func (s *DriverService) GetAll(ctx context.Context) ([]*domain.Driver, error) {
	return s.driverRepo.GetAll(ctx)
}

// UpdateStatusRequest contains the parameters for an availability change.
type UpdateStatusRequest struct {
	DriverID string
	Status   domain.DriverStatus
	Reason   string
}

// UpdateStatus moves a driver through the availability state machine.
// Only the driver themself or an admin may invoke it. A same-status
// update is a no-op that always succeeds.
func (s *DriverService) UpdateStatus(ctx context.Context, actor domain.Actor, req UpdateStatusRequest) (*domain.Driver, error) {
	if !domain.ValidDriverStatus(req.Status) {
		return nil, ErrInvalidDriverStatus
	}

	driver, err := s.driverRepo.GetByID(ctx, req.DriverID)
	if err != nil {
		return nil, err
	}

	if !actor.Is(driver.UserID) && !actor.IsAdmin() {
		return nil, ErrNotDriverOrAdmin
	}

	if !domain.DriverCanTransition(driver.Status, req.Status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, driver.Status, req.Status)
	}

	if driver.Status == req.Status {
		return driver, nil
	}

	if err := s.driverRepo.UpdateStatusIf(ctx, driver.ID, driver.Status, req.Status, req.Reason); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// The persisted status moved underneath us; the table check
			// no longer applies.
			return nil, fmt.Errorf("%w: driver status changed concurrently", ErrInvalidTransition)
		}
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateDriver(ctx, driver.ID)
	}

	s.logger.Info("driver status updated",
		zap.String("driver_id", driver.ID),
		zap.String("from", string(driver.Status)),
		zap.String("to", string(req.Status)),
		zap.String("actor_id", actor.UserID),
	)

	s.notifier.SendAsync(driver.UserID, domain.EventDriverStatus, map[string]any{
		"driver_id": driver.ID,
		"status":    string(req.Status),
		"reason":    req.Reason,
	})

	driver.Status = req.Status
	driver.StatusReason = req.Reason
	driver.StatusChangedAt = time.Now()

	return driver, nil
}
