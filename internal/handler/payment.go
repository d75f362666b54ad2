package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"freight/internal/domain"
	"freight/internal/middleware"
	"freight/internal/service"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentRequest is the HTTP request body for opening a payment.
type CreatePaymentRequest struct {
	TripID      string `json:"trip_id"`
	Amount      int64  `json:"amount"`
	Gateway     string `json:"gateway,omitempty"`
	PayerID     string `json:"payer_id,omitempty"`
	PayerPhone  string `json:"payer_phone,omitempty"`
	CallbackURL string `json:"callback_url,omitempty"`
	Description string `json:"description,omitempty"`
}

// RefundPaymentRequest is the HTTP request body for a refund.
type RefundPaymentRequest struct {
	Amount int64 `json:"amount"`
}

// PaymentResponse is the HTTP representation of a payment.
type PaymentResponse struct {
	ID             string `json:"id"`
	TripID         string `json:"trip_id"`
	Amount         int64  `json:"amount"`
	RefundedAmount int64  `json:"refunded_amount,omitempty"`
	Currency       string `json:"currency"`
	Gateway        string `json:"gateway"`
	Status         string `json:"status"`
	Authority      string `json:"authority,omitempty"`
	ReferenceID    string `json:"reference_id,omitempty"`
	RedirectURL    string `json:"redirect_url,omitempty"`
	PayerID        string `json:"payer_id,omitempty"`
	FailureReason  string `json:"failure_reason,omitempty"`
	CreatedAt      string `json:"created_at,omitempty"`
}

// PaymentHistoryResponse is the HTTP representation of an audit entry.
type PaymentHistoryResponse struct {
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status"`
	ActorID    string `json:"actor_id,omitempty"`
	Note       string `json:"note,omitempty"`
	CreatedAt  string `json:"created_at"`
}

func toPaymentResponse(payment *domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:             payment.ID,
		TripID:         payment.TripID,
		Amount:         payment.Amount,
		RefundedAmount: payment.RefundedAmount,
		Currency:       payment.Currency,
		Gateway:        string(payment.Gateway),
		Status:         string(payment.Status),
		Authority:      payment.GatewayToken,
		ReferenceID:    payment.ReferenceID,
		RedirectURL:    payment.RedirectURL,
		PayerID:        payment.PayerID,
		FailureReason:  payment.FailureReason,
	}
	if !payment.CreatedAt.IsZero() {
		resp.CreatedAt = payment.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

// Create handles POST /v1/payments
func (h *PaymentHandler) Create(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	payment, err := h.paymentService.Create(c.Request.Context(), middleware.ActorFrom(c), service.CreatePaymentRequest{
		TripID:      req.TripID,
		Amount:      req.Amount,
		Gateway:     domain.PaymentGateway(req.Gateway),
		PayerID:     req.PayerID,
		PayerPhone:  req.PayerPhone,
		CallbackURL: req.CallbackURL,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toPaymentResponse(payment))
}

// Get handles GET /v1/payments/:id
func (h *PaymentHandler) Get(c *gin.Context) {
	payment, err := h.paymentService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// Verify handles GET /v1/payments/:id/verify. This is the provider's
// callback target: it answers 200 with the payment's status even when
// the verification is a repeat, so provider retries never see an error.
func (h *PaymentHandler) Verify(c *gin.Context) {
	authority := c.Query("authority")
	if authority == "" {
		// Zarinpal capitalizes its callback parameter.
		authority = c.Query("Authority")
	}
	if authority == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "authority is required"})
		return
	}

	var claimedAmount int64
	if raw := c.Query("amount"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid amount"})
			return
		}
		claimedAmount = parsed
	}

	payment, err := h.paymentService.Verify(c.Request.Context(), authority, claimedAmount)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"status":       string(payment.Status),
		"payment_id":   payment.ID,
		"reference_id": payment.ReferenceID,
	})
}

// Refund handles POST /v1/payments/:id/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	var req RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	payment, err := h.paymentService.Refund(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// Reconcile handles POST /v1/payments/:id/reconcile
func (h *PaymentHandler) Reconcile(c *gin.Context) {
	result, err := h.paymentService.Reconcile(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{
		"payment":        toPaymentResponse(result.Payment),
		"gateway_status": string(result.GatewayStatus),
		"in_sync":        result.InSync,
	})
}

// GetHistory handles GET /v1/payments/:id/history
func (h *PaymentHandler) GetHistory(c *gin.Context) {
	entries, err := h.paymentService.GetHistory(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]PaymentHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		responses = append(responses, PaymentHistoryResponse{
			FromStatus: string(entry.FromStatus),
			ToStatus:   string(entry.ToStatus),
			ActorID:    entry.ActorID,
			Note:       entry.Note,
			CreatedAt:  entry.CreatedAt.Format(time.RFC3339),
		})
	}

	respondJSON(c, http.StatusOK, responses)
}
