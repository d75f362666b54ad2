package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"freight/internal/domain"
	"freight/internal/service"
)

// ──────────────────────────────────────────────
// CARGO REQUEST LIFECYCLE
// ──────────────────────────────────────────────

func newCargoService(cargoRepo *MockCargoRepository) *service.CargoService {
	notifier := service.NewNotifier(NewMockNotificationRepository(), nil)
	return service.NewCargoService(cargoRepo, notifier, nil)
}

func TestCargo_AcceptSucceedsOnlyWhenPending(t *testing.T) {
	t.Parallel()

	startingStatuses := []domain.CargoStatus{
		domain.CargoStatusPending,
		domain.CargoStatusAccepted,
		domain.CargoStatusRejected,
		domain.CargoStatusCancelled,
	}

	for _, status := range startingStatuses {
		cargoRepo := NewMockCargoRepository()
		cargoRepo.AddCargo(&domain.CargoRequest{
			ID:      "cargo-1",
			OwnerID: "owner-1",
			Status:  status,
			Price:   500000,
		})
		svc := newCargoService(cargoRepo)

		driver := domain.Actor{UserID: "driver-user-1", Roles: []domain.Role{domain.RoleDriver}}
		_, err := svc.Accept(context.Background(), driver, "cargo-1", "")

		if status == domain.CargoStatusPending {
			if err != nil {
				t.Errorf("Accept from %s: unexpected error %v", status, err)
			}
			if got := cargoRepo.GetCargo("cargo-1").Status; got != domain.CargoStatusAccepted {
				t.Errorf("Accept from %s: status = %s, want ACCEPTED", status, got)
			}
		} else {
			if !errors.Is(err, service.ErrInvalidState) {
				t.Errorf("Accept from %s: error = %v, want ErrInvalidState", status, err)
			}
		}
	}
}

func TestCargo_RejectSucceedsOnlyWhenPending(t *testing.T) {
	t.Parallel()

	for _, status := range []domain.CargoStatus{
		domain.CargoStatusAccepted,
		domain.CargoStatusRejected,
		domain.CargoStatusCancelled,
	} {
		cargoRepo := NewMockCargoRepository()
		cargoRepo.AddCargo(&domain.CargoRequest{ID: "cargo-1", OwnerID: "owner-1", Status: status})
		svc := newCargoService(cargoRepo)

		driver := domain.Actor{UserID: "driver-user-1"}
		if _, err := svc.Reject(context.Background(), driver, "cargo-1", "too heavy"); !errors.Is(err, service.ErrInvalidState) {
			t.Errorf("Reject from %s: error = %v, want ErrInvalidState", status, err)
		}
	}
}

func TestCargo_ConcurrentAccept_ExactlyOneWinner(t *testing.T) {
	t.Parallel()

	cargoRepo := NewMockCargoRepository()
	cargoRepo.AddCargo(&domain.CargoRequest{
		ID:      "cargo-1",
		OwnerID: "owner-1",
		Status:  domain.CargoStatusPending,
		Price:   1200000,
	})
	svc := newCargoService(cargoRepo)

	const concurrency = 8
	var wg sync.WaitGroup
	errs := make([]error, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			actor := domain.Actor{UserID: "driver-user-1"}
			_, errs[i] = svc.Accept(context.Background(), actor, "cargo-1", "")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else if !errors.Is(err, service.ErrInvalidState) {
			t.Errorf("loser error = %v, want ErrInvalidState", err)
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly 1 successful Accept, got %d", successes)
	}
}

func TestCargo_CancelOwnerOnly(t *testing.T) {
	t.Parallel()

	cargoRepo := NewMockCargoRepository()
	cargoRepo.AddCargo(&domain.CargoRequest{
		ID:      "cargo-1",
		OwnerID: "owner-1",
		Status:  domain.CargoStatusPending,
	})
	svc := newCargoService(cargoRepo)

	stranger := domain.Actor{UserID: "someone-else"}
	if _, err := svc.Cancel(context.Background(), stranger, "cargo-1", "changed my mind"); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("stranger cancel: error = %v, want ErrForbidden", err)
	}

	owner := domain.Actor{UserID: "owner-1"}
	cargo, err := svc.Cancel(context.Background(), owner, "cargo-1", "changed my mind")
	if err != nil {
		t.Fatalf("owner cancel: unexpected error %v", err)
	}
	if cargo.Status != domain.CargoStatusCancelled {
		t.Errorf("status = %s, want CANCELLED", cargo.Status)
	}
	if cargo.CancelReason != "changed my mind" {
		t.Errorf("cancel reason = %q", cargo.CancelReason)
	}
}

func TestCargo_CancelAllowedWhileAccepted_NotAfterTerminal(t *testing.T) {
	t.Parallel()

	cargoRepo := NewMockCargoRepository()
	cargoRepo.AddCargo(&domain.CargoRequest{ID: "cargo-1", OwnerID: "owner-1", Status: domain.CargoStatusAccepted})
	cargoRepo.AddCargo(&domain.CargoRequest{ID: "cargo-2", OwnerID: "owner-1", Status: domain.CargoStatusRejected})
	svc := newCargoService(cargoRepo)

	owner := domain.Actor{UserID: "owner-1"}

	if _, err := svc.Cancel(context.Background(), owner, "cargo-1", ""); err != nil {
		t.Errorf("cancel accepted cargo: unexpected error %v", err)
	}
	if _, err := svc.Cancel(context.Background(), owner, "cargo-2", ""); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("cancel rejected cargo: error = %v, want ErrInvalidState", err)
	}
}

func TestCargo_DeleteOnlyWhilePending(t *testing.T) {
	t.Parallel()

	cargoRepo := NewMockCargoRepository()
	cargoRepo.AddCargo(&domain.CargoRequest{ID: "cargo-1", OwnerID: "owner-1", Status: domain.CargoStatusAccepted})
	cargoRepo.AddCargo(&domain.CargoRequest{ID: "cargo-2", OwnerID: "owner-1", Status: domain.CargoStatusPending})
	svc := newCargoService(cargoRepo)

	owner := domain.Actor{UserID: "owner-1"}

	if err := svc.Delete(context.Background(), owner, "cargo-1"); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("delete accepted cargo: error = %v, want ErrInvalidState", err)
	}
	if err := svc.Delete(context.Background(), owner, "cargo-2"); err != nil {
		t.Errorf("delete pending cargo: unexpected error %v", err)
	}
	if cargoRepo.GetCargo("cargo-2") != nil {
		t.Error("pending cargo should be gone after delete")
	}
}

func TestCargo_CreateValidation(t *testing.T) {
	t.Parallel()

	svc := newCargoService(NewMockCargoRepository())
	owner := domain.Actor{UserID: "owner-1"}

	_, err := svc.Create(context.Background(), owner, service.CreateCargoRequest{
		Title:            "steel coils",
		WeightKg:         8000,
		PickupLocation:   "Tehran",
		DeliveryLocation: "Isfahan",
		Price:            0,
	})
	if !errors.Is(err, service.ErrValidation) {
		t.Errorf("zero price: error = %v, want ErrValidation", err)
	}

	cargo, err := svc.Create(context.Background(), owner, service.CreateCargoRequest{
		Title:            "steel coils",
		WeightKg:         8000,
		PickupLocation:   "Tehran",
		DeliveryLocation: "Isfahan",
		Price:            35000000,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cargo.Status != domain.CargoStatusPending {
		t.Errorf("new cargo status = %s, want PENDING", cargo.Status)
	}
	if cargo.OwnerID != "owner-1" {
		t.Errorf("owner = %s, want owner-1", cargo.OwnerID)
	}
}
