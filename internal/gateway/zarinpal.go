package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"freight/internal/domain"
)

const (
	zarinpalCodeOK              = 100
	zarinpalCodeAlreadyVerified = 101
)

// ZarinpalConfig holds Zarinpal API credentials and endpoints.
type ZarinpalConfig struct {
	MerchantID string
	BaseURL    string // API base, default https://payment.zarinpal.com
	PayBaseURL string // redirect base, default https://payment.zarinpal.com/pg/StartPay
	Timeout    time.Duration
}

// Zarinpal is the Adapter for the Zarinpal payment gateway (v4 REST API).
type Zarinpal struct {
	httpClient *http.Client
	cfg        ZarinpalConfig
}

// NewZarinpal creates a Zarinpal adapter.
func NewZarinpal(cfg ZarinpalConfig, httpClient *http.Client) *Zarinpal {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://payment.zarinpal.com"
	}
	if cfg.PayBaseURL == "" {
		cfg.PayBaseURL = cfg.BaseURL + "/pg/StartPay"
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Zarinpal{httpClient: httpClient, cfg: cfg}
}

// Name returns the gateway identifier.
func (z *Zarinpal) Name() domain.PaymentGateway { return domain.GatewayZarinpal }

type zarinpalData struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Authority string `json:"authority"`
	RefID     int64  `json:"ref_id"`
	Status    string `json:"status"`
}

type zarinpalEnvelope struct {
	Data   zarinpalData    `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// CreatePayment opens a payment session and returns the authority plus
// the StartPay redirect URL.
func (z *Zarinpal) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	payload := map[string]any{
		"merchant_id":  z.cfg.MerchantID,
		"amount":       req.Amount,
		"currency":     req.Currency,
		"description":  req.Description,
		"callback_url": req.CallbackURL,
		"metadata":     map[string]string{"mobile": req.PayerPhone},
	}

	var resp zarinpalEnvelope
	if err := z.post(ctx, "/pg/v4/payment/request.json", payload, &resp); err != nil {
		return nil, err
	}

	if resp.Data.Code != zarinpalCodeOK {
		return nil, fmt.Errorf("%w: code %d: %s", ErrRejected, resp.Data.Code, resp.Data.Message)
	}

	return &CreateResult{
		Token:       resp.Data.Authority,
		RedirectURL: z.cfg.PayBaseURL + "/" + resp.Data.Authority,
	}, nil
}

// VerifyPayment confirms a payment after redirect. Zarinpal code 101
// means the authority was already verified.
func (z *Zarinpal) VerifyPayment(ctx context.Context, authority string, amount int64) (*VerifyResult, error) {
	payload := map[string]any{
		"merchant_id": z.cfg.MerchantID,
		"amount":      amount,
		"authority":   authority,
	}

	var resp zarinpalEnvelope
	if err := z.post(ctx, "/pg/v4/payment/verify.json", payload, &resp); err != nil {
		return nil, err
	}

	switch resp.Data.Code {
	case zarinpalCodeOK:
		return &VerifyResult{Success: true, ReferenceID: strconv.FormatInt(resp.Data.RefID, 10)}, nil
	case zarinpalCodeAlreadyVerified:
		return &VerifyResult{Success: true, AlreadyVerified: true, ReferenceID: strconv.FormatInt(resp.Data.RefID, 10)}, nil
	default:
		return &VerifyResult{Success: false}, nil
	}
}

// RefundPayment refunds a settled payment by its reference id.
func (z *Zarinpal) RefundPayment(ctx context.Context, referenceID string, amount int64) (*RefundResult, error) {
	payload := map[string]any{
		"merchant_id": z.cfg.MerchantID,
		"ref_id":      referenceID,
		"amount":      amount,
	}

	var resp zarinpalEnvelope
	if err := z.post(ctx, "/pg/v4/payment/refund.json", payload, &resp); err != nil {
		return nil, err
	}

	if resp.Data.Code != zarinpalCodeOK {
		return &RefundResult{Success: false}, nil
	}
	return &RefundResult{Success: true, RefundID: strconv.FormatInt(resp.Data.RefID, 10)}, nil
}

// GetStatus asks Zarinpal for the session state.
func (z *Zarinpal) GetStatus(ctx context.Context, authority string) (domain.PaymentStatus, error) {
	payload := map[string]any{
		"merchant_id": z.cfg.MerchantID,
		"authority":   authority,
	}

	var resp zarinpalEnvelope
	if err := z.post(ctx, "/pg/v4/payment/inquiry.json", payload, &resp); err != nil {
		return "", err
	}

	switch resp.Data.Status {
	case "PAID", "VERIFIED":
		return domain.PaymentStatusCompleted, nil
	case "IN_BANK":
		return domain.PaymentStatusProcessing, nil
	case "FAILED", "REVERSED":
		return domain.PaymentStatusFailed, nil
	default:
		return domain.PaymentStatusPending, nil
	}
}

func (z *Zarinpal) post(ctx context.Context, path string, payload any, out *zarinpalEnvelope) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, z.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := z.httpClient.Do(httpReq)
	if err != nil {
		// Transport failures and timeouts both mean the provider is
		// unreachable from our side.
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: zarinpal status %s", ErrUnavailable, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("zarinpal: decode response: %w", err)
	}

	return nil
}

// Ensure Zarinpal implements Adapter.
var _ Adapter = (*Zarinpal)(nil)
