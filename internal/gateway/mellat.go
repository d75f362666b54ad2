package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"freight/internal/domain"
)

// Mellat (Behpardakht) answers form-encoded calls with comma-separated
// result codes; "0" is success and the second field carries the RefId.
const mellatCodeOK = "0"

// MellatConfig holds Behpardakht Mellat terminal credentials.
type MellatConfig struct {
	TerminalID string
	Username   string
	Password   string
	BaseURL    string // default https://bpm.shaparak.ir
	PayBaseURL string // default https://bpm.shaparak.ir/pgwchannel/startpay.mellat
	Timeout    time.Duration
}

// Mellat is the Adapter for the Bank Mellat payment gateway.
type Mellat struct {
	httpClient *http.Client
	cfg        MellatConfig
}

// NewMellat creates a Mellat adapter.
func NewMellat(cfg MellatConfig, httpClient *http.Client) *Mellat {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://bpm.shaparak.ir"
	}
	if cfg.PayBaseURL == "" {
		cfg.PayBaseURL = cfg.BaseURL + "/pgwchannel/startpay.mellat"
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Mellat{httpClient: httpClient, cfg: cfg}
}

// Name returns the gateway identifier.
func (m *Mellat) Name() domain.PaymentGateway { return domain.GatewayMellat }

// CreatePayment issues a bpPayRequest and returns the RefId plus the
// gateway start page carrying it.
func (m *Mellat) CreatePayment(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	form := m.baseForm()
	form.Set("amount", strconv.FormatInt(req.Amount, 10))
	form.Set("orderId", strconv.FormatInt(time.Now().UnixNano(), 10))
	form.Set("callBackUrl", req.CallbackURL)
	form.Set("payerId", "0")
	form.Set("additionalData", req.Description)
	form.Set("mobileNo", req.PayerPhone)

	fields, err := m.post(ctx, "/pgwchannel/services/bpPayRequest", form)
	if err != nil {
		return nil, err
	}

	if fields[0] != mellatCodeOK || len(fields) < 2 {
		return nil, fmt.Errorf("%w: mellat code %s", ErrRejected, fields[0])
	}

	refID := fields[1]
	return &CreateResult{
		Token:       refID,
		RedirectURL: m.cfg.PayBaseURL + "?RefId=" + url.QueryEscape(refID),
	}, nil
}

// VerifyPayment issues bpVerifyRequest followed by bpSettleRequest. The
// sale reference returned by the bank becomes the payment reference.
func (m *Mellat) VerifyPayment(ctx context.Context, authority string, amount int64) (*VerifyResult, error) {
	form := m.baseForm()
	form.Set("saleReferenceId", authority)
	form.Set("amount", strconv.FormatInt(amount, 10))

	fields, err := m.post(ctx, "/pgwchannel/services/bpVerifyRequest", form)
	if err != nil {
		return nil, err
	}
	if fields[0] != mellatCodeOK {
		return &VerifyResult{Success: false}, nil
	}

	// Settlement is what actually moves money; verification alone expires.
	settleFields, err := m.post(ctx, "/pgwchannel/services/bpSettleRequest", form)
	if err != nil {
		return nil, err
	}
	if settleFields[0] != mellatCodeOK {
		return &VerifyResult{Success: false}, nil
	}

	return &VerifyResult{Success: true, ReferenceID: authority}, nil
}

// RefundPayment issues bpReversalRequest for a settled sale.
func (m *Mellat) RefundPayment(ctx context.Context, referenceID string, amount int64) (*RefundResult, error) {
	form := m.baseForm()
	form.Set("saleReferenceId", referenceID)
	form.Set("amount", strconv.FormatInt(amount, 10))

	fields, err := m.post(ctx, "/pgwchannel/services/bpReversalRequest", form)
	if err != nil {
		return nil, err
	}

	if fields[0] != mellatCodeOK {
		return &RefundResult{Success: false}, nil
	}
	return &RefundResult{Success: true, RefundID: referenceID}, nil
}

// GetStatus issues bpInquiryRequest for a sale reference.
func (m *Mellat) GetStatus(ctx context.Context, authority string) (domain.PaymentStatus, error) {
	form := m.baseForm()
	form.Set("saleReferenceId", authority)

	fields, err := m.post(ctx, "/pgwchannel/services/bpInquiryRequest", form)
	if err != nil {
		return "", err
	}

	switch fields[0] {
	case mellatCodeOK:
		return domain.PaymentStatusCompleted, nil
	case "43": // already reversed
		return domain.PaymentStatusRefunded, nil
	case "17": // cancelled by payer
		return domain.PaymentStatusFailed, nil
	default:
		return domain.PaymentStatusPending, nil
	}
}

func (m *Mellat) baseForm() url.Values {
	form := url.Values{}
	form.Set("terminalId", m.cfg.TerminalID)
	form.Set("userName", m.cfg.Username)
	form.Set("userPassword", m.cfg.Password)
	form.Set("localDate", time.Now().Format("20060102"))
	form.Set("localTime", time.Now().Format("150405"))
	return form
}

// post sends a form request and splits the comma-coded response. The
// returned slice always has at least one element.
func (m *Mellat) post(ctx context.Context, path string, form url.Values) ([]string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: mellat status %s", ErrUnavailable, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	fields := strings.Split(strings.TrimSpace(string(body)), ",")
	if len(fields) == 0 || fields[0] == "" {
		return nil, fmt.Errorf("%w: mellat empty response", ErrUnavailable)
	}

	return fields, nil
}

// Ensure Mellat implements Adapter.
var _ Adapter = (*Mellat)(nil)
