package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freight/internal/domain"
	"freight/internal/repository"
)

// CargoService owns the cargo request lifecycle:
// Pending -> Accepted | Rejected | Cancelled. All transitions are
// one-way and guarded by conditional writes keyed on the current
// status, so two racing Accept calls resolve to exactly one winner.
type CargoService struct {
	cargoRepo repository.CargoRepository
	notifier  *Notifier
	logger    *zap.Logger
}

// NewCargoService creates a new CargoService.
func NewCargoService(cargoRepo repository.CargoRepository, notifier *Notifier, logger *zap.Logger) *CargoService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CargoService{cargoRepo: cargoRepo, notifier: notifier, logger: logger}
}

// CreateCargoRequest contains the parameters for posting a cargo request.
type CreateCargoRequest struct {
	Title            string
	WeightKg         float64
	PickupLocation   string
	DeliveryLocation string
	PickupAt         time.Time
	DeliverBy        time.Time
	Price            int64
	Notes            string
}

// Create posts a new cargo request owned by the acting user.
func (s *CargoService) Create(ctx context.Context, actor domain.Actor, req CreateCargoRequest) (*domain.CargoRequest, error) {
	if req.Title == "" || req.PickupLocation == "" || req.DeliveryLocation == "" {
		return nil, fmt.Errorf("%w: title and locations are required", ErrValidation)
	}
	if req.Price <= 0 {
		return nil, ErrInvalidAmount
	}
	if req.WeightKg <= 0 {
		return nil, fmt.Errorf("%w: weight must be positive", ErrValidation)
	}

	cargo := &domain.CargoRequest{
		ID:               uuid.New().String(),
		OwnerID:          actor.UserID,
		Title:            req.Title,
		WeightKg:         req.WeightKg,
		PickupLocation:   req.PickupLocation,
		DeliveryLocation: req.DeliveryLocation,
		PickupAt:         req.PickupAt,
		DeliverBy:        req.DeliverBy,
		Price:            req.Price,
		Status:           domain.CargoStatusPending,
		Notes:            req.Notes,
		CreatedAt:        time.Now(),
	}

	if err := s.cargoRepo.Create(ctx, cargo); err != nil {
		return nil, err
	}

	return cargo, nil
}

// Get retrieves a cargo request by ID.
func (s *CargoService) Get(ctx context.Context, id string) (*domain.CargoRequest, error) {
	return s.cargoRepo.GetByID(ctx, id)
}

// List retrieves cargo requests filtered by status and owner.
func (s *CargoService) List(ctx context.Context, status domain.CargoStatus, ownerID string) ([]*domain.CargoRequest, error) {
	return s.cargoRepo.GetAll(ctx, status, ownerID)
}

// Accept marks a pending cargo request as accepted by the acting
// driver. At most one Accept can ever succeed for a given request.
func (s *CargoService) Accept(ctx context.Context, actor domain.Actor, id, notes string) (*domain.CargoRequest, error) {
	cargo, err := s.cargoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cargo.Status != domain.CargoStatusPending {
		return nil, ErrCargoNotPending
	}

	cargo.Status = domain.CargoStatusAccepted
	cargo.AcceptedBy = actor.UserID
	cargo.AcceptedAt = time.Now()
	if notes != "" {
		cargo.Notes = notes
	}

	if err := s.cargoRepo.UpdateIfStatus(ctx, cargo, domain.CargoStatusPending); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Lost the race: someone else transitioned it first.
			return nil, ErrCargoNotPending
		}
		return nil, err
	}

	s.notifier.SendAsync(cargo.OwnerID, domain.EventCargoAccepted, map[string]any{
		"cargo_request_id": cargo.ID,
		"accepted_by":      actor.UserID,
	})

	return cargo, nil
}

// Reject marks a pending cargo request as rejected.
func (s *CargoService) Reject(ctx context.Context, actor domain.Actor, id, reason string) (*domain.CargoRequest, error) {
	cargo, err := s.cargoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if cargo.Status != domain.CargoStatusPending {
		return nil, ErrCargoNotPending
	}

	cargo.Status = domain.CargoStatusRejected
	cargo.RejectedBy = actor.UserID
	cargo.RejectedAt = time.Now()
	cargo.RejectReason = reason

	if err := s.cargoRepo.UpdateIfStatus(ctx, cargo, domain.CargoStatusPending); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrCargoNotPending
		}
		return nil, err
	}

	s.notifier.SendAsync(cargo.OwnerID, domain.EventCargoRejected, map[string]any{
		"cargo_request_id": cargo.ID,
		"rejected_by":      actor.UserID,
		"reason":           reason,
	})

	return cargo, nil
}

// Cancel withdraws a cargo request. Only the owning cargo owner may
// cancel, and only while the request is Pending or Accepted. The check
// runs against the latest persisted status.
func (s *CargoService) Cancel(ctx context.Context, actor domain.Actor, id, reason string) (*domain.CargoRequest, error) {
	cargo, err := s.cargoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !actor.Is(cargo.OwnerID) && !actor.IsAdmin() {
		return nil, ErrNotOwner
	}

	if !domain.CargoCancellable(cargo.Status) {
		return nil, ErrCargoNotCancellable
	}

	expected := cargo.Status
	cargo.Status = domain.CargoStatusCancelled
	cargo.CancelledAt = time.Now()
	cargo.CancelReason = reason

	if err := s.cargoRepo.UpdateIfStatus(ctx, cargo, expected); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrCargoNotCancellable
		}
		return nil, err
	}

	if cargo.AcceptedBy != "" {
		s.notifier.SendAsync(cargo.AcceptedBy, domain.EventCargoCancelled, map[string]any{
			"cargo_request_id": cargo.ID,
			"reason":           reason,
		})
	}

	return cargo, nil
}

// Delete hard-removes a cargo request. Permitted only to the owner and
// only while the request is still Pending, before any trip can
// reference it.
func (s *CargoService) Delete(ctx context.Context, actor domain.Actor, id string) error {
	cargo, err := s.cargoRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if !actor.Is(cargo.OwnerID) && !actor.IsAdmin() {
		return ErrNotOwner
	}

	if err := s.cargoRepo.DeleteIfStatus(ctx, id, domain.CargoStatusPending); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return ErrCargoNotDeletable
		}
		return err
	}

	s.logger.Info("cargo request deleted",
		zap.String("cargo_request_id", id),
		zap.String("actor_id", actor.UserID),
	)

	return nil
}
