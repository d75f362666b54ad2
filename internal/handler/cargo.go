package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"freight/internal/domain"
	"freight/internal/middleware"
	"freight/internal/service"
)

// CargoHandler handles HTTP requests for cargo requests.
type CargoHandler struct {
	cargoService *service.CargoService
}

// NewCargoHandler creates a new CargoHandler.
func NewCargoHandler(cargoService *service.CargoService) *CargoHandler {
	return &CargoHandler{cargoService: cargoService}
}

// CreateCargoRequest is the HTTP request body for posting a cargo request.
type CreateCargoRequest struct {
	Title            string    `json:"title"`
	WeightKg         float64   `json:"weight_kg"`
	PickupLocation   string    `json:"pickup_location"`
	DeliveryLocation string    `json:"delivery_location"`
	PickupAt         time.Time `json:"pickup_at"`
	DeliverBy        time.Time `json:"deliver_by"`
	Price            int64     `json:"price"`
	Notes            string    `json:"notes,omitempty"`
}

// ReasonRequest is the HTTP request body carrying an optional reason.
type ReasonRequest struct {
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// CargoResponse is the HTTP representation of a cargo request.
type CargoResponse struct {
	ID               string `json:"id"`
	OwnerID          string `json:"owner_id"`
	Title            string `json:"title"`
	WeightKg         float64 `json:"weight_kg"`
	PickupLocation   string `json:"pickup_location"`
	DeliveryLocation string `json:"delivery_location"`
	PickupAt         string `json:"pickup_at,omitempty"`
	DeliverBy        string `json:"deliver_by,omitempty"`
	Price            int64  `json:"price"`
	Status           string `json:"status"`
	Notes            string `json:"notes,omitempty"`
	AcceptedBy       string `json:"accepted_by,omitempty"`
	RejectedBy       string `json:"rejected_by,omitempty"`
	RejectReason     string `json:"reject_reason,omitempty"`
	CancelledAt      string `json:"cancelled_at,omitempty"`
	CancelReason     string `json:"cancel_reason,omitempty"`
}

func toCargoResponse(cargo *domain.CargoRequest) CargoResponse {
	resp := CargoResponse{
		ID:               cargo.ID,
		OwnerID:          cargo.OwnerID,
		Title:            cargo.Title,
		WeightKg:         cargo.WeightKg,
		PickupLocation:   cargo.PickupLocation,
		DeliveryLocation: cargo.DeliveryLocation,
		Price:            cargo.Price,
		Status:           string(cargo.Status),
		Notes:            cargo.Notes,
		AcceptedBy:       cargo.AcceptedBy,
		RejectedBy:       cargo.RejectedBy,
		RejectReason:     cargo.RejectReason,
		CancelReason:     cargo.CancelReason,
	}
	if !cargo.PickupAt.IsZero() {
		resp.PickupAt = cargo.PickupAt.Format(time.RFC3339)
	}
	if !cargo.DeliverBy.IsZero() {
		resp.DeliverBy = cargo.DeliverBy.Format(time.RFC3339)
	}
	if !cargo.CancelledAt.IsZero() {
		resp.CancelledAt = cargo.CancelledAt.Format(time.RFC3339)
	}
	return resp
}

// Create handles POST /v1/cargo-requests
func (h *CargoHandler) Create(c *gin.Context) {
	var req CreateCargoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	cargo, err := h.cargoService.Create(c.Request.Context(), middleware.ActorFrom(c), service.CreateCargoRequest{
		Title:            req.Title,
		WeightKg:         req.WeightKg,
		PickupLocation:   req.PickupLocation,
		DeliveryLocation: req.DeliveryLocation,
		PickupAt:         req.PickupAt,
		DeliverBy:        req.DeliverBy,
		Price:            req.Price,
		Notes:            req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toCargoResponse(cargo))
}

// Get handles GET /v1/cargo-requests/:id
func (h *CargoHandler) Get(c *gin.Context) {
	cargo, err := h.cargoService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toCargoResponse(cargo))
}

// GetAll handles GET /v1/cargo-requests
func (h *CargoHandler) GetAll(c *gin.Context) {
	status := domain.CargoStatus(c.Query("status"))
	ownerID := c.Query("owner_id")

	cargos, err := h.cargoService.List(c.Request.Context(), status, ownerID)
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]CargoResponse, 0, len(cargos))
	for _, cargo := range cargos {
		responses = append(responses, toCargoResponse(cargo))
	}

	respondJSON(c, http.StatusOK, responses)
}

// Accept handles POST /v1/cargo-requests/:id/accept
func (h *CargoHandler) Accept(c *gin.Context) {
	var req ReasonRequest
	_ = c.ShouldBindJSON(&req)

	cargo, err := h.cargoService.Accept(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toCargoResponse(cargo))
}

// Reject handles POST /v1/cargo-requests/:id/reject
func (h *CargoHandler) Reject(c *gin.Context) {
	var req ReasonRequest
	_ = c.ShouldBindJSON(&req)

	cargo, err := h.cargoService.Reject(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toCargoResponse(cargo))
}

// Cancel handles POST /v1/cargo-requests/:id/cancel
func (h *CargoHandler) Cancel(c *gin.Context) {
	var req ReasonRequest
	_ = c.ShouldBindJSON(&req)

	cargo, err := h.cargoService.Cancel(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toCargoResponse(cargo))
}

// Delete handles DELETE /v1/cargo-requests/:id
func (h *CargoHandler) Delete(c *gin.Context) {
	if err := h.cargoService.Delete(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
