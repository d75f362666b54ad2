package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"freight/internal/domain"
	"freight/internal/gateway"
	internalRedis "freight/internal/redis"
	"freight/internal/repository"
)

const paymentLockTTL = 30 * time.Second

// PaymentConfig carries the deployment-fixed payment settings.
type PaymentConfig struct {
	DefaultGateway  domain.PaymentGateway
	Currency        string
	CallbackBaseURL string
}

// PaymentService orchestrates settlement against the external payment
// providers. It owns the payment row lifecycle; the adapters own the
// wire protocols. The payment row is always persisted Pending before
// any external call so a crash mid-flight leaves a durable,
// reconcilable record.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	tripRepo    repository.TripRepository
	cargoRepo   repository.CargoRepository
	registry    *gateway.Registry
	lockStore   internalRedis.LockStoreInterface
	notifier    *Notifier
	logger      *zap.Logger
	config      PaymentConfig
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	tripRepo repository.TripRepository,
	cargoRepo repository.CargoRepository,
	registry *gateway.Registry,
	lockStore internalRedis.LockStoreInterface,
	notifier *Notifier,
	logger *zap.Logger,
	config PaymentConfig,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.Currency == "" {
		config.Currency = "IRR"
	}
	return &PaymentService{
		paymentRepo: paymentRepo,
		tripRepo:    tripRepo,
		cargoRepo:   cargoRepo,
		registry:    registry,
		lockStore:   lockStore,
		notifier:    notifier,
		logger:      logger,
		config:      config,
	}
}

// CreatePaymentRequest contains the parameters for opening a payment.
type CreatePaymentRequest struct {
	TripID      string
	Amount      int64
	Gateway     domain.PaymentGateway
	PayerID     string
	PayerPhone  string
	CallbackURL string
	Description string
}

// Create opens a payment session for a trip. The row is inserted
// Pending under the one-non-terminal-payment-per-trip invariant before
// the provider is contacted; a provider failure rolls the row to Failed
// and surfaces the provider's message.
func (s *PaymentService) Create(ctx context.Context, actor domain.Actor, req CreatePaymentRequest) (*domain.Payment, error) {
	payerID := req.PayerID
	if payerID == "" {
		payerID = actor.UserID
	}
	if !actor.Is(payerID) && !actor.IsAdmin() {
		return nil, ErrPayerMismatch
	}

	gw := req.Gateway
	if gw == "" {
		gw = s.config.DefaultGateway
	}
	if !domain.ValidGateway(gw) {
		return nil, ErrInvalidGateway
	}

	if req.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	trip, err := s.tripRepo.GetByID(ctx, req.TripID)
	if err != nil {
		return nil, err
	}
	if req.Amount != trip.AgreedPrice {
		return nil, ErrAmountMismatch
	}

	adapter, err := s.registry.Get(gw)
	if err != nil {
		return nil, ErrInvalidGateway
	}

	now := time.Now()
	payment := &domain.Payment{
		ID:          uuid.New().String(),
		TripID:      trip.ID,
		Amount:      req.Amount,
		Currency:    s.config.Currency,
		Gateway:     gw,
		Status:      domain.PaymentStatusPending,
		PayerID:     payerID,
		PayerPhone:  req.PayerPhone,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.paymentRepo.CreateIfNoActive(ctx, payment); err != nil {
		if errors.Is(err, repository.ErrActiveExists) {
			return nil, ErrConflictingPayment
		}
		return nil, err
	}
	s.appendHistory(ctx, payment.ID, "", domain.PaymentStatusPending, actor.UserID, "payment created")

	callbackURL := req.CallbackURL
	if callbackURL == "" {
		callbackURL = fmt.Sprintf("%s/v1/payments/%s/verify", s.config.CallbackBaseURL, payment.ID)
	}

	result, err := adapter.CreatePayment(ctx, gateway.CreateRequest{
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		Description: payment.Description,
		PayerPhone:  payment.PayerPhone,
		CallbackURL: callbackURL,
	})
	if err != nil {
		s.failPayment(ctx, payment, actor.UserID, err.Error())
		return nil, s.mapGatewayError(err)
	}

	payment.GatewayToken = result.Token
	payment.RedirectURL = result.RedirectURL
	payment.UpdatedAt = time.Now()
	if err := s.paymentRepo.UpdateIfStatus(ctx, payment, domain.PaymentStatusPending); err != nil {
		return nil, err
	}

	s.logger.Info("payment session opened",
		zap.String("payment_id", payment.ID),
		zap.String("trip_id", payment.TripID),
		zap.String("gateway", string(payment.Gateway)),
		zap.Int64("amount", payment.Amount),
	)

	return payment, nil
}

// Verify confirms a payment after the provider redirects the payer
// back. It is idempotent: a Completed payment returns the same result
// without another provider call, and concurrent callbacks serialize on
// a redis lock. The amount sent to the provider is always the one
// stored on the row.
func (s *PaymentService) Verify(ctx context.Context, token string, claimedAmount int64) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if claimedAmount > 0 && claimedAmount != payment.Amount {
		return nil, ErrAmountMismatch
	}

	if payment.Status == domain.PaymentStatusCompleted {
		return payment, nil
	}
	if domain.PaymentTerminal(payment.Status) {
		return payment, nil
	}

	if s.lockStore != nil {
		lockToken, err := s.lockStore.AcquirePaymentLock(ctx, payment.ID, paymentLockTTL)
		if err != nil {
			return nil, err
		}
		if lockToken == "" {
			// Another callback holds the lock; report the current row.
			return payment, nil
		}
		paymentID := payment.ID
		defer func() {
			_ = s.lockStore.ReleasePaymentLock(context.Background(), paymentID, lockToken)
		}()

		// Re-read under the lock: the other callback may have finished.
		payment, err = s.paymentRepo.GetByToken(ctx, token)
		if err != nil {
			return nil, err
		}
		if payment.Status == domain.PaymentStatusCompleted || domain.PaymentTerminal(payment.Status) {
			return payment, nil
		}
	}

	adapter, err := s.registry.Get(payment.Gateway)
	if err != nil {
		return nil, ErrInvalidGateway
	}

	prev := payment.Status
	result, err := adapter.VerifyPayment(ctx, payment.GatewayToken, payment.Amount)
	if err != nil {
		if errors.Is(err, gateway.ErrUnavailable) {
			// Leave the row untouched so the callback can be retried.
			return nil, ErrGatewayUnavailable
		}
		s.failPayment(ctx, payment, "", err.Error())
		return payment, nil
	}

	if !result.Success {
		s.failPayment(ctx, payment, "", "gateway declined verification")
		return payment, nil
	}

	payment.Status = domain.PaymentStatusCompleted
	payment.ReferenceID = result.ReferenceID
	payment.FailureReason = ""
	payment.UpdatedAt = time.Now()

	if err := s.paymentRepo.UpdateIfStatus(ctx, payment, prev); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			// Lost a race with another callback; the row already settled.
			return s.paymentRepo.GetByToken(ctx, token)
		}
		return nil, err
	}
	s.appendHistory(ctx, payment.ID, prev, domain.PaymentStatusCompleted, "", "verified, ref "+result.ReferenceID)

	s.logger.Info("payment verified",
		zap.String("payment_id", payment.ID),
		zap.String("reference_id", result.ReferenceID),
	)

	s.notifier.SendAsync(payment.PayerID, domain.EventPaymentCompleted, map[string]any{
		"payment_id":   payment.ID,
		"trip_id":      payment.TripID,
		"reference_id": result.ReferenceID,
		"amount":       payment.Amount,
	})

	return payment, nil
}

// Refund reverses a completed payment, fully or partially. A provider
// timeout is surfaced to the caller and never retried here: a blind
// retry risks refunding twice.
func (s *PaymentService) Refund(ctx context.Context, actor domain.Actor, paymentID string, amount int64) (*domain.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	if !actor.Is(payment.PayerID) && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	if payment.Status != domain.PaymentStatusCompleted {
		return nil, ErrPaymentNotCompleted
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if amount > payment.Amount {
		return nil, ErrRefundExceedsAmount
	}

	// Serialize on the payment lock before touching the provider: two
	// racing refunds would otherwise both pass the status check and both
	// reach the gateway, and only one row CAS can win afterwards.
	if s.lockStore != nil {
		token, err := s.lockStore.AcquirePaymentLock(ctx, payment.ID, paymentLockTTL)
		if err != nil {
			return nil, err
		}
		if token == "" {
			return nil, ErrPaymentBusy
		}
		defer func() {
			_ = s.lockStore.ReleasePaymentLock(context.Background(), payment.ID, token)
		}()

		// Re-read under the lock; a concurrent refund may have settled.
		payment, err = s.paymentRepo.GetByID(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		if payment.Status != domain.PaymentStatusCompleted {
			return nil, ErrPaymentNotCompleted
		}
	}

	adapter, err := s.registry.Get(payment.Gateway)
	if err != nil {
		return nil, ErrInvalidGateway
	}

	result, err := adapter.RefundPayment(ctx, payment.ReferenceID, amount)
	if err != nil {
		return nil, s.mapGatewayError(err)
	}
	if !result.Success {
		return nil, ErrGatewayRejected
	}

	payment.Status = domain.PaymentStatusRefunded
	payment.RefundedAmount = amount
	payment.UpdatedAt = time.Now()

	if err := s.paymentRepo.UpdateIfStatus(ctx, payment, domain.PaymentStatusCompleted); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return nil, ErrPaymentNotCompleted
		}
		return nil, err
	}
	s.appendHistory(ctx, payment.ID, domain.PaymentStatusCompleted, domain.PaymentStatusRefunded, actor.UserID,
		fmt.Sprintf("refunded %d %s", amount, payment.Currency))

	s.logger.Info("payment refunded",
		zap.String("payment_id", payment.ID),
		zap.Int64("amount", amount),
		zap.String("actor_id", actor.UserID),
	)

	s.notifier.SendAsync(payment.PayerID, domain.EventPaymentRefunded, map[string]any{
		"payment_id": payment.ID,
		"amount":     amount,
	})

	return payment, nil
}

// InitiateSettlement opens a payment for a completed trip against the
// default gateway, charged to the cargo owner at the agreed price.
func (s *PaymentService) InitiateSettlement(ctx context.Context, trip *domain.Trip) (*domain.Payment, error) {
	cargo, err := s.cargoRepo.GetByID(ctx, trip.CargoRequestID)
	if err != nil {
		return nil, err
	}

	owner := domain.Actor{UserID: cargo.OwnerID}
	return s.Create(ctx, owner, CreatePaymentRequest{
		TripID:      trip.ID,
		Amount:      trip.AgreedPrice,
		Gateway:     s.config.DefaultGateway,
		PayerID:     cargo.OwnerID,
		Description: fmt.Sprintf("settlement for trip %s", trip.ID),
	})
}

// ReconcileResult pairs the stored payment with the provider's view of
// the same transaction.
type ReconcileResult struct {
	Payment       *domain.Payment
	GatewayStatus domain.PaymentStatus
	InSync        bool
}

// Reconcile asks the provider for its view of a payment. A row the
// provider reports completed but that never saw its callback is settled
// through the normal verify path; any other divergence is reported
// without touching the row.
func (s *PaymentService) Reconcile(ctx context.Context, actor domain.Actor, paymentID string) (*ReconcileResult, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if payment.GatewayToken == "" {
		// Never reached the provider; nothing to ask.
		return &ReconcileResult{Payment: payment, GatewayStatus: payment.Status, InSync: true}, nil
	}

	adapter, err := s.registry.Get(payment.Gateway)
	if err != nil {
		return nil, ErrInvalidGateway
	}

	gatewayStatus, err := adapter.GetStatus(ctx, payment.GatewayToken)
	if err != nil {
		return nil, s.mapGatewayError(err)
	}

	if gatewayStatus == domain.PaymentStatusCompleted && payment.Status == domain.PaymentStatusPending {
		s.logger.Warn("payment completed at provider but pending locally, settling",
			zap.String("payment_id", payment.ID),
		)
		payment, err = s.Verify(ctx, payment.GatewayToken, 0)
		if err != nil {
			return nil, err
		}
	}

	return &ReconcileResult{
		Payment:       payment,
		GatewayStatus: gatewayStatus,
		InSync:        gatewayStatus == payment.Status,
	}, nil
}

// Get retrieves a payment by ID.
func (s *PaymentService) Get(ctx context.Context, id string) (*domain.Payment, error) {
	return s.paymentRepo.GetByID(ctx, id)
}

// GetByTrip retrieves the payments recorded for a trip.
func (s *PaymentService) GetByTrip(ctx context.Context, tripID string) ([]*domain.Payment, error) {
	return s.paymentRepo.GetByTripID(ctx, tripID)
}

// GetHistory retrieves the audit trail for a payment.
func (s *PaymentService) GetHistory(ctx context.Context, paymentID string) ([]*domain.PaymentHistory, error) {
	return s.paymentRepo.GetHistory(ctx, paymentID)
}

// failPayment rolls a payment to Failed with the provider's message.
// Best-effort: a conflict means another writer already settled the row.
func (s *PaymentService) failPayment(ctx context.Context, payment *domain.Payment, actorID, reason string) {
	prev := payment.Status
	payment.Status = domain.PaymentStatusFailed
	payment.FailureReason = reason
	payment.UpdatedAt = time.Now()

	if err := s.paymentRepo.UpdateIfStatus(ctx, payment, prev); err != nil {
		s.logger.Warn("failed to mark payment failed",
			zap.String("payment_id", payment.ID),
			zap.Error(err),
		)
		return
	}
	s.appendHistory(ctx, payment.ID, prev, domain.PaymentStatusFailed, actorID, reason)

	s.notifier.SendAsync(payment.PayerID, domain.EventPaymentFailed, map[string]any{
		"payment_id": payment.ID,
		"trip_id":    payment.TripID,
		"reason":     reason,
	})
}

func (s *PaymentService) appendHistory(ctx context.Context, paymentID string, from, to domain.PaymentStatus, actorID, note string) {
	entry := &domain.PaymentHistory{
		ID:         uuid.New().String(),
		PaymentID:  paymentID,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actorID,
		Note:       note,
		CreatedAt:  time.Now(),
	}
	if err := s.paymentRepo.AppendHistory(ctx, entry); err != nil {
		s.logger.Warn("payment history append failed",
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
	}
}

func (s *PaymentService) mapGatewayError(err error) error {
	switch {
	case errors.Is(err, gateway.ErrUnavailable):
		return fmt.Errorf("%w: %s", ErrGatewayUnavailable, err.Error())
	case errors.Is(err, gateway.ErrRejected):
		return fmt.Errorf("%w: %s", ErrGatewayRejected, err.Error())
	default:
		return err
	}
}
