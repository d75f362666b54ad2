package tests

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"freight/internal/domain"
	"freight/internal/gateway"
	"freight/internal/service"
)

// ──────────────────────────────────────────────
// PAYMENT ORCHESTRATION
// ──────────────────────────────────────────────

type paymentFixture struct {
	paymentRepo *MockPaymentRepository
	tripRepo    *MockTripRepository
	cargoRepo   *MockCargoRepository
	gateway     *MockGateway
	svc         *service.PaymentService
}

func newPaymentFixture() *paymentFixture {
	f := &paymentFixture{
		paymentRepo: NewMockPaymentRepository(),
		tripRepo:    NewMockTripRepository(),
		cargoRepo:   NewMockCargoRepository(),
		gateway:     NewMockGateway(domain.GatewayZarinpal),
	}

	registry := gateway.NewRegistry()
	registry.Register(f.gateway)

	notifier := service.NewNotifier(NewMockNotificationRepository(), nil)
	f.svc = service.NewPaymentService(
		f.paymentRepo, f.tripRepo, f.cargoRepo, registry,
		NewMockLockStore(), notifier, nil,
		service.PaymentConfig{DefaultGateway: domain.GatewayZarinpal, Currency: "IRR"},
	)
	return f
}

func (f *paymentFixture) seedTrip(id string, price int64) {
	f.tripRepo.AddTrip(&domain.Trip{
		ID:          id,
		DriverID:    "driver-1",
		AgreedPrice: price,
		Status:      domain.TripStatusCompleted,
	})
}

func TestPayment_CreatePersistsBeforeGatewayCall(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.seedTrip("trip-1", 5000000)
	f.gateway.CreateError = gateway.ErrUnavailable

	payer := domain.Actor{UserID: "owner-1"}
	_, err := f.svc.Create(context.Background(), payer, service.CreatePaymentRequest{
		TripID: "trip-1",
		Amount: 5000000,
	})
	if !errors.Is(err, service.ErrGatewayUnavailable) {
		t.Fatalf("error = %v, want ErrGatewayUnavailable", err)
	}

	// The row must exist in Failed state: durable and reconcilable.
	payments, _ := f.paymentRepo.GetByTripID(context.Background(), "trip-1")
	if len(payments) != 1 {
		t.Fatalf("payments = %d, want 1", len(payments))
	}
	if payments[0].Status != domain.PaymentStatusFailed {
		t.Errorf("status = %s, want FAILED", payments[0].Status)
	}
	if payments[0].FailureReason == "" {
		t.Error("failure reason should carry the gateway message")
	}
}

func TestPayment_CreateRejectsPayerMismatch(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.seedTrip("trip-1", 5000000)

	actor := domain.Actor{UserID: "owner-1"}
	_, err := f.svc.Create(context.Background(), actor, service.CreatePaymentRequest{
		TripID:  "trip-1",
		Amount:  5000000,
		PayerID: "someone-else",
	})
	if !errors.Is(err, service.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
	if f.gateway.CreateCallCount != 0 {
		t.Error("gateway must not be called for a rejected create")
	}
}

func TestPayment_CreateEnforcesAgreedPrice(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.seedTrip("trip-1", 5000000)

	payer := domain.Actor{UserID: "owner-1"}
	_, err := f.svc.Create(context.Background(), payer, service.CreatePaymentRequest{
		TripID: "trip-1",
		Amount: 4999999,
	})
	if !errors.Is(err, service.ErrValidation) {
		t.Errorf("error = %v, want ErrValidation", err)
	}
}

func TestPayment_OneNonTerminalPerTrip(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.seedTrip("trip-1", 5000000)

	payer := domain.Actor{UserID: "owner-1"}
	first, err := f.svc.Create(context.Background(), payer, service.CreatePaymentRequest{
		TripID: "trip-1",
		Amount: 5000000,
	})
	if err != nil {
		t.Fatalf("first create: %v", err)
	}
	if first.Status != domain.PaymentStatusPending {
		t.Fatalf("first payment status = %s, want PENDING", first.Status)
	}

	_, err = f.svc.Create(context.Background(), payer, service.CreatePaymentRequest{
		TripID: "trip-1",
		Amount: 5000000,
	})
	if !errors.Is(err, service.ErrConflictingPayment) {
		t.Errorf("second create: error = %v, want ErrConflictingPayment", err)
	}
	if f.paymentRepo.ActiveCountForTrip("trip-1") != 1 {
		t.Errorf("active payments = %d, want 1", f.paymentRepo.ActiveCountForTrip("trip-1"))
	}
}

func TestPayment_VerifyIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.seedTrip("trip-1", 5000000)

	payer := domain.Actor{UserID: "owner-1"}
	payment, err := f.svc.Create(context.Background(), payer, service.CreatePaymentRequest{
		TripID: "trip-1",
		Amount: 5000000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := f.svc.Verify(context.Background(), payment.GatewayToken, 0)
	if err != nil {
		t.Fatalf("first verify: %v", err)
	}
	if first.Status != domain.PaymentStatusCompleted {
		t.Fatalf("first verify status = %s, want COMPLETED", first.Status)
	}
	if first.ReferenceID == "" {
		t.Fatal("reference id should be set on completion")
	}

	second, err := f.svc.Verify(context.Background(), payment.GatewayToken, 0)
	if err != nil {
		t.Fatalf("second verify: %v", err)
	}
	if second.Status != domain.PaymentStatusCompleted {
		t.Errorf("second verify status = %s, want COMPLETED", second.Status)
	}
	if second.ReferenceID != first.ReferenceID {
		t.Errorf("reference id changed across verifies: %s vs %s", first.ReferenceID, second.ReferenceID)
	}
	if f.gateway.VerifyCallCount != 1 {
		t.Errorf("gateway VerifyPayment calls = %d, want 1", f.gateway.VerifyCallCount)
	}
}

func TestPayment_VerifyRejectsTamperedAmount(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.seedTrip("trip-1", 5000000)

	payer := domain.Actor{UserID: "owner-1"}
	payment, err := f.svc.Create(context.Background(), payer, service.CreatePaymentRequest{
		TripID: "trip-1",
		Amount: 5000000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Verify(context.Background(), payment.GatewayToken, 100); !errors.Is(err, service.ErrValidation) {
		t.Errorf("tampered amount: error = %v, want ErrValidation", err)
	}
	if f.gateway.VerifyCallCount != 0 {
		t.Error("gateway must not be called with a tampered amount")
	}

	// The payment's own stored amount passes.
	if _, err := f.svc.Verify(context.Background(), payment.GatewayToken, 5000000); err != nil {
		t.Errorf("stored amount: unexpected error %v", err)
	}
}

func TestPayment_VerifyDeclineMarksFailed(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.seedTrip("trip-1", 5000000)
	f.gateway.VerifySuccess = false

	payer := domain.Actor{UserID: "owner-1"}
	payment, err := f.svc.Create(context.Background(), payer, service.CreatePaymentRequest{
		TripID: "trip-1",
		Amount: 5000000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	verified, err := f.svc.Verify(context.Background(), payment.GatewayToken, 0)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if verified.Status != domain.PaymentStatusFailed {
		t.Errorf("status = %s, want FAILED", verified.Status)
	}
}

func TestPayment_VerifyUnavailableLeavesRowRetryable(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.seedTrip("trip-1", 5000000)

	payer := domain.Actor{UserID: "owner-1"}
	payment, err := f.svc.Create(context.Background(), payer, service.CreatePaymentRequest{
		TripID: "trip-1",
		Amount: 5000000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f.gateway.VerifyError = gateway.ErrUnavailable
	if _, err := f.svc.Verify(context.Background(), payment.GatewayToken, 0); !errors.Is(err, service.ErrGatewayUnavailable) {
		t.Fatalf("error = %v, want ErrGatewayUnavailable", err)
	}

	// Row stays Pending; a later callback can still settle it.
	if stored := f.paymentRepo.GetPayment(payment.ID); stored.Status != domain.PaymentStatusPending {
		t.Errorf("status = %s, want PENDING", stored.Status)
	}

	f.gateway.VerifyError = nil
	settled, err := f.svc.Verify(context.Background(), payment.GatewayToken, 0)
	if err != nil {
		t.Fatalf("retry verify: %v", err)
	}
	if settled.Status != domain.PaymentStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", settled.Status)
	}
}

func TestPayment_RefundRules(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.paymentRepo.AddPayment(&domain.Payment{
		ID:          "pay-1",
		TripID:      "trip-1",
		Amount:      5000000,
		Gateway:     domain.GatewayZarinpal,
		Status:      domain.PaymentStatusPending,
		PayerID:     "owner-1",
		ReferenceID: "ref-1",
	})

	admin := domain.Actor{UserID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}

	// Not completed yet.
	if _, err := f.svc.Refund(context.Background(), admin, "pay-1", 5000000); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("refund pending: error = %v, want ErrInvalidState", err)
	}

	f.paymentRepo.AddPayment(&domain.Payment{
		ID:          "pay-2",
		TripID:      "trip-2",
		Amount:      5000000,
		Gateway:     domain.GatewayZarinpal,
		Status:      domain.PaymentStatusCompleted,
		PayerID:     "owner-1",
		ReferenceID: "ref-2",
	})

	// Over-refund.
	if _, err := f.svc.Refund(context.Background(), admin, "pay-2", 5000001); !errors.Is(err, service.ErrValidation) {
		t.Errorf("over-refund: error = %v, want ErrValidation", err)
	}

	// Partial refund succeeds.
	refunded, err := f.svc.Refund(context.Background(), admin, "pay-2", 2000000)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Status != domain.PaymentStatusRefunded {
		t.Errorf("status = %s, want REFUNDED", refunded.Status)
	}
	if refunded.RefundedAmount != 2000000 {
		t.Errorf("refunded amount = %d, want 2000000", refunded.RefundedAmount)
	}

	// A refunded payment cannot be refunded again.
	if _, err := f.svc.Refund(context.Background(), admin, "pay-2", 1000000); !errors.Is(err, service.ErrInvalidState) {
		t.Errorf("double refund: error = %v, want ErrInvalidState", err)
	}
}

func TestPayment_RefundTimeoutNotRetried(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.paymentRepo.AddPayment(&domain.Payment{
		ID:          "pay-1",
		TripID:      "trip-1",
		Amount:      5000000,
		Gateway:     domain.GatewayZarinpal,
		Status:      domain.PaymentStatusCompleted,
		PayerID:     "owner-1",
		ReferenceID: "ref-1",
	})
	f.gateway.RefundError = gateway.ErrUnavailable

	admin := domain.Actor{UserID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}
	if _, err := f.svc.Refund(context.Background(), admin, "pay-1", 5000000); !errors.Is(err, service.ErrGatewayUnavailable) {
		t.Fatalf("error = %v, want ErrGatewayUnavailable", err)
	}

	// Exactly one provider call, and the row still Completed so the
	// caller can retry explicitly.
	if f.gateway.RefundCallCount != 1 {
		t.Errorf("RefundPayment calls = %d, want 1", f.gateway.RefundCallCount)
	}
	if stored := f.paymentRepo.GetPayment("pay-1"); stored.Status != domain.PaymentStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", stored.Status)
	}
}

func TestPayment_ConcurrentRefundsReachProviderOnce(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.paymentRepo.AddPayment(&domain.Payment{
		ID:          "pay-1",
		TripID:      "trip-1",
		Amount:      5000000,
		Gateway:     domain.GatewayZarinpal,
		Status:      domain.PaymentStatusCompleted,
		PayerID:     "owner-1",
		ReferenceID: "ref-1",
	})
	// Hold the provider call open so the second request arrives while
	// the first is still in flight.
	f.gateway.RefundDelay = 50 * time.Millisecond

	admin := domain.Actor{UserID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Refund(context.Background(), admin, "pay-1", 5000000)
		}(i)
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, service.ErrInvalidState) {
			t.Errorf("loser error = %v, want ErrInvalidState", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("successful refunds = %d, want exactly 1", succeeded)
	}
	if f.gateway.RefundCallCount != 1 {
		t.Errorf("provider RefundPayment calls = %d, want 1", f.gateway.RefundCallCount)
	}
	if stored := f.paymentRepo.GetPayment("pay-1"); stored.Status != domain.PaymentStatusRefunded {
		t.Errorf("status = %s, want REFUNDED", stored.Status)
	}
}

func TestPayment_RefundPayerOrAdminOnly(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.paymentRepo.AddPayment(&domain.Payment{
		ID:          "pay-1",
		TripID:      "trip-1",
		Amount:      5000000,
		Gateway:     domain.GatewayZarinpal,
		Status:      domain.PaymentStatusCompleted,
		PayerID:     "owner-1",
		ReferenceID: "ref-1",
	})

	stranger := domain.Actor{UserID: "someone-else"}
	if _, err := f.svc.Refund(context.Background(), stranger, "pay-1", 5000000); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}

func TestPayment_HistoryRecordsTransitions(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.seedTrip("trip-1", 5000000)

	payer := domain.Actor{UserID: "owner-1"}
	payment, err := f.svc.Create(context.Background(), payer, service.CreatePaymentRequest{
		TripID: "trip-1",
		Amount: 5000000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Verify(context.Background(), payment.GatewayToken, 0); err != nil {
		t.Fatalf("verify: %v", err)
	}

	history, err := f.svc.GetHistory(context.Background(), payment.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("history entries = %d, want 2", len(history))
	}
	if history[0].ToStatus != domain.PaymentStatusPending {
		t.Errorf("first entry to = %s, want PENDING", history[0].ToStatus)
	}
	if history[1].ToStatus != domain.PaymentStatusCompleted {
		t.Errorf("second entry to = %s, want COMPLETED", history[1].ToStatus)
	}
}

func TestPayment_ReconcileSettlesMissedCallback(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.seedTrip("trip-1", 5000000)

	payer := domain.Actor{UserID: "owner-1"}
	payment, err := f.svc.Create(context.Background(), payer, service.CreatePaymentRequest{
		TripID: "trip-1",
		Amount: 5000000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// The payer paid but the callback never arrived.
	f.gateway.StatusAnswer = domain.PaymentStatusCompleted

	admin := domain.Actor{UserID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}
	result, err := f.svc.Reconcile(context.Background(), admin, payment.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.Payment.Status != domain.PaymentStatusCompleted {
		t.Errorf("status = %s, want COMPLETED", result.Payment.Status)
	}
	if !result.InSync {
		t.Error("expected in-sync after settling")
	}
	if f.gateway.VerifyCallCount != 1 {
		t.Errorf("gateway VerifyPayment calls = %d, want 1", f.gateway.VerifyCallCount)
	}
}

func TestPayment_ReconcileReportsDivergenceWithoutWriting(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.seedTrip("trip-1", 5000000)

	payer := domain.Actor{UserID: "owner-1"}
	payment, err := f.svc.Create(context.Background(), payer, service.CreatePaymentRequest{
		TripID: "trip-1",
		Amount: 5000000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := f.svc.Verify(context.Background(), payment.GatewayToken, 0); err != nil {
		t.Fatalf("verify: %v", err)
	}

	// The provider later claims the transaction was reversed.
	f.gateway.StatusAnswer = domain.PaymentStatusRefunded

	admin := domain.Actor{UserID: "admin-1", Roles: []domain.Role{domain.RoleAdmin}}
	result, err := f.svc.Reconcile(context.Background(), admin, payment.ID)
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if result.InSync {
		t.Error("expected divergence to be reported")
	}
	if result.Payment.Status != domain.PaymentStatusCompleted {
		t.Errorf("local status must stay COMPLETED, got %s", result.Payment.Status)
	}
}

func TestPayment_ReconcileAdminOnly(t *testing.T) {
	t.Parallel()

	f := newPaymentFixture()
	f.seedTrip("trip-1", 5000000)

	payer := domain.Actor{UserID: "owner-1"}
	payment, err := f.svc.Create(context.Background(), payer, service.CreatePaymentRequest{
		TripID: "trip-1",
		Amount: 5000000,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := f.svc.Reconcile(context.Background(), payer, payment.ID); !errors.Is(err, service.ErrForbidden) {
		t.Errorf("error = %v, want ErrForbidden", err)
	}
}
