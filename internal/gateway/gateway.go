package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"freight/internal/domain"
)

var (
	// ErrUnavailable is returned when the provider times out or answers
	// with a server error.
	ErrUnavailable = errors.New("payment gateway unavailable")

	// ErrRejected is returned when the provider explicitly declines the
	// operation.
	ErrRejected = errors.New("payment gateway rejected the operation")

	// ErrUnknownGateway is returned when no adapter is registered for
	// the requested gateway.
	ErrUnknownGateway = errors.New("unknown payment gateway")
)

// CreateRequest contains the parameters for opening a payment session.
type CreateRequest struct {
	Amount      int64
	Currency    string
	Description string
	PayerPhone  string
	CallbackURL string
}

// CreateResult is the provider's answer to a successful session open.
type CreateResult struct {
	// Token is the authority the provider tracks the session by.
	Token string
	// RedirectURL is where the payer must be sent to pay.
	RedirectURL string
}

// VerifyResult is the provider's answer to a verification call.
type VerifyResult struct {
	Success     bool
	ReferenceID string
	// AlreadyVerified is set when the provider reports the session was
	// settled by an earlier verify call.
	AlreadyVerified bool
}

// RefundResult is the provider's answer to a refund call.
type RefundResult struct {
	Success  bool
	RefundID string
}

// Adapter is the uniform protocol to one external payment provider. It
// carries no business logic; callers own amounts, invariants and
// persistence.
type Adapter interface {
	Name() domain.PaymentGateway
	CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error)
	VerifyPayment(ctx context.Context, authority string, amount int64) (*VerifyResult, error)
	RefundPayment(ctx context.Context, referenceID string, amount int64) (*RefundResult, error)
	GetStatus(ctx context.Context, authority string) (domain.PaymentStatus, error)
}

// Registry holds the configured adapters keyed by gateway name. Adapter
// selection happens here and nowhere else.
type Registry struct {
	mu       sync.RWMutex
	adapters map[domain.PaymentGateway]Adapter
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[domain.PaymentGateway]Adapter)}
}

// Register adds an adapter.
func (r *Registry) Register(a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[a.Name()] = a
}

// Get returns the adapter for the given gateway.
func (r *Registry) Get(name domain.PaymentGateway) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGateway, name)
	}
	return a, nil
}
