package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"freight/internal/domain"
)

// resilient wraps an Adapter with a circuit breaker and a bounded retry
// count for transport-level failures. Provider rejections are never
// retried; only ErrUnavailable is.
type resilient struct {
	inner      Adapter
	maxRetries int
	breaker    *gobreaker.CircuitBreaker[any]
}

// WithResilience decorates an adapter with a per-gateway circuit
// breaker and up to maxRetries retries on unavailability.
func WithResilience(inner Adapter, maxRetries int) Adapter {
	settings := gobreaker.Settings{
		Name:    string(inner.Name()),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			// Only unavailability counts against the breaker; an
			// explicit decline means the provider is healthy.
			return err == nil || !errors.Is(err, ErrUnavailable)
		},
	}

	return &resilient{
		inner:      inner,
		maxRetries: maxRetries,
		breaker:    gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (r *resilient) Name() domain.PaymentGateway { return r.inner.Name() }

func (r *resilient) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	result, err := r.call(ctx, func() (any, error) {
		return r.inner.CreatePayment(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return result.(*CreateResult), nil
}

func (r *resilient) VerifyPayment(ctx context.Context, authority string, amount int64) (*VerifyResult, error) {
	result, err := r.call(ctx, func() (any, error) {
		return r.inner.VerifyPayment(ctx, authority, amount)
	})
	if err != nil {
		return nil, err
	}
	return result.(*VerifyResult), nil
}

// RefundPayment is never retried: a timed-out refund may have gone
// through, and a duplicate would double-credit the payer.
func (r *resilient) RefundPayment(ctx context.Context, referenceID string, amount int64) (*RefundResult, error) {
	result, err := r.breaker.Execute(func() (any, error) {
		return r.inner.RefundPayment(ctx, referenceID, amount)
	})
	if err != nil {
		return nil, breakerErr(err)
	}
	return result.(*RefundResult), nil
}

func (r *resilient) GetStatus(ctx context.Context, authority string) (domain.PaymentStatus, error) {
	result, err := r.call(ctx, func() (any, error) {
		return r.inner.GetStatus(ctx, authority)
	})
	if err != nil {
		return "", err
	}
	return result.(domain.PaymentStatus), nil
}

func (r *resilient) call(ctx context.Context, fn func() (any, error)) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}

		result, err := r.breaker.Execute(fn)
		if err == nil {
			return result, nil
		}

		lastErr = breakerErr(err)
		if !errors.Is(lastErr, ErrUnavailable) {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// breakerErr maps an open-circuit rejection to unavailability so
// callers see one error class for an unreachable provider.
func breakerErr(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%w: circuit open", ErrUnavailable)
	}
	return err
}

// Ensure resilient implements Adapter.
var _ Adapter = (*resilient)(nil)
