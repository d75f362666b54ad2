package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"freight/internal/domain"
)

// NextPay response codes. Token issuance answers -1; all other calls
// answer 0 on success.
const (
	nextpayCodeTokenOK   = -1
	nextpayCodeOK        = 0
	nextpayCodeRefunded  = -90
	nextpayCodeUnsettled = -2
)

// NextPayConfig holds NextPay API credentials and endpoints.
type NextPayConfig struct {
	APIKey  string
	BaseURL string // default https://nextpay.org
	Timeout time.Duration
}

// NextPay is the Adapter for the NextPay payment gateway.
type NextPay struct {
	httpClient *http.Client
	cfg        NextPayConfig
}

// NewNextPay creates a NextPay adapter.
func NewNextPay(cfg NextPayConfig, httpClient *http.Client) *NextPay {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://nextpay.org"
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &NextPay{httpClient: httpClient, cfg: cfg}
}

// Name returns the gateway identifier.
func (n *NextPay) Name() domain.PaymentGateway { return domain.GatewayNextPay }

type nextpayResponse struct {
	Code          int    `json:"code"`
	TransID       string `json:"trans_id"`
	ShaparakRefID string `json:"Shaparak_Ref_Id"`
	RefundID      string `json:"refund_id"`
}

// CreatePayment requests a transaction token and returns the hosted
// payment page URL.
func (n *NextPay) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	payload := map[string]any{
		"api_key":        n.cfg.APIKey,
		"amount":         req.Amount,
		"currency":       req.Currency,
		"order_id":       req.Description,
		"customer_phone": req.PayerPhone,
		"callback_uri":   req.CallbackURL,
	}

	var resp nextpayResponse
	if err := n.post(ctx, "/nx/gateway/token", payload, &resp); err != nil {
		return nil, err
	}

	if resp.Code != nextpayCodeTokenOK {
		return nil, fmt.Errorf("%w: nextpay code %d", ErrRejected, resp.Code)
	}

	return &CreateResult{
		Token:       resp.TransID,
		RedirectURL: n.cfg.BaseURL + "/nx/gateway/payment/" + resp.TransID,
	}, nil
}

// VerifyPayment confirms a transaction after callback.
func (n *NextPay) VerifyPayment(ctx context.Context, authority string, amount int64) (*VerifyResult, error) {
	payload := map[string]any{
		"api_key":  n.cfg.APIKey,
		"amount":   amount,
		"trans_id": authority,
	}

	var resp nextpayResponse
	if err := n.post(ctx, "/nx/gateway/verify", payload, &resp); err != nil {
		return nil, err
	}

	if resp.Code != nextpayCodeOK {
		return &VerifyResult{Success: false}, nil
	}
	return &VerifyResult{Success: true, ReferenceID: resp.ShaparakRefID}, nil
}

// RefundPayment reverses a settled transaction.
func (n *NextPay) RefundPayment(ctx context.Context, referenceID string, amount int64) (*RefundResult, error) {
	payload := map[string]any{
		"api_key":  n.cfg.APIKey,
		"amount":   amount,
		"trans_id": referenceID,
	}

	var resp nextpayResponse
	if err := n.post(ctx, "/nx/gateway/refund", payload, &resp); err != nil {
		return nil, err
	}

	if resp.Code != nextpayCodeOK && resp.Code != nextpayCodeRefunded {
		return &RefundResult{Success: false}, nil
	}
	return &RefundResult{Success: true, RefundID: resp.RefundID}, nil
}

// GetStatus checks the state of a transaction token.
func (n *NextPay) GetStatus(ctx context.Context, authority string) (domain.PaymentStatus, error) {
	payload := map[string]any{
		"api_key":  n.cfg.APIKey,
		"trans_id": authority,
	}

	var resp nextpayResponse
	if err := n.post(ctx, "/nx/gateway/check", payload, &resp); err != nil {
		return "", err
	}

	switch resp.Code {
	case nextpayCodeOK:
		return domain.PaymentStatusCompleted, nil
	case nextpayCodeRefunded:
		return domain.PaymentStatusRefunded, nil
	case nextpayCodeUnsettled:
		return domain.PaymentStatusPending, nil
	default:
		return domain.PaymentStatusFailed, nil
	}
}

func (n *NextPay) post(ctx context.Context, path string, payload any, out *nextpayResponse) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: nextpay status %s", ErrUnavailable, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("nextpay: decode response: %w", err)
	}

	return nil
}

// Ensure NextPay implements Adapter.
var _ Adapter = (*NextPay)(nil)
