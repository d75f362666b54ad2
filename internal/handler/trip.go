package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"freight/internal/domain"
	"freight/internal/middleware"
	"freight/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService *service.TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService *service.TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// CreateTripRequest is the HTTP request body for scheduling a trip.
type CreateTripRequest struct {
	CargoRequestID string `json:"cargo_request_id"`
	DriverID       string `json:"driver_id"`
	VehicleID      string `json:"vehicle_id"`

	EstimatedDistanceKm  float64 `json:"estimated_distance_km,omitempty"`
	EstimatedDurationMin int     `json:"estimated_duration_min,omitempty"`
	EstimatedFuelLiters  float64 `json:"estimated_fuel_liters,omitempty"`
	EstimatedCost        int64   `json:"estimated_cost,omitempty"`

	ScheduledAt time.Time `json:"scheduled_at,omitempty"`
}

// CompleteTripRequest is the HTTP request body for completing a trip.
type CompleteTripRequest struct {
	ActualDistanceKm  float64 `json:"actual_distance_km"`
	ActualDurationMin int     `json:"actual_duration_min"`
	ActualFuelLiters  float64 `json:"actual_fuel_liters"`
	ActualCost        int64   `json:"actual_cost"`
}

// TrackingPointRequest is the HTTP request body for a position sample.
type TrackingPointRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// TripResponse is the HTTP representation of a trip.
type TripResponse struct {
	ID             string `json:"id"`
	CargoRequestID string `json:"cargo_request_id"`
	VehicleID      string `json:"vehicle_id"`
	DriverID       string `json:"driver_id"`
	Status         string `json:"status"`
	AgreedPrice    int64  `json:"agreed_price"`

	EstimatedDistanceKm  float64 `json:"estimated_distance_km,omitempty"`
	EstimatedDurationMin int     `json:"estimated_duration_min,omitempty"`
	EstimatedFuelLiters  float64 `json:"estimated_fuel_liters,omitempty"`
	EstimatedCost        int64   `json:"estimated_cost,omitempty"`

	ActualDistanceKm  float64 `json:"actual_distance_km,omitempty"`
	ActualDurationMin int     `json:"actual_duration_min,omitempty"`
	ActualFuelLiters  float64 `json:"actual_fuel_liters,omitempty"`
	ActualCost        int64   `json:"actual_cost,omitempty"`

	ScheduledAt  string `json:"scheduled_at,omitempty"`
	StartedAt    string `json:"started_at,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty"`
	CancelledAt  string `json:"cancelled_at,omitempty"`
	CancelReason string `json:"cancel_reason,omitempty"`
}

// SettlementResponse reports the settlement attempt made at completion.
type SettlementResponse struct {
	Initiated   bool   `json:"initiated"`
	PaymentID   string `json:"payment_id,omitempty"`
	RedirectURL string `json:"redirect_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// CompleteTripResponse is the HTTP response for completing a trip.
type CompleteTripResponse struct {
	Trip       TripResponse       `json:"trip"`
	Settlement SettlementResponse `json:"settlement"`
}

func toTripResponse(trip *domain.Trip) TripResponse {
	resp := TripResponse{
		ID:             trip.ID,
		CargoRequestID: trip.CargoRequestID,
		VehicleID:      trip.VehicleID,
		DriverID:       trip.DriverID,
		Status:         string(trip.Status),
		AgreedPrice:    trip.AgreedPrice,

		EstimatedDistanceKm:  trip.EstimatedDistanceKm,
		EstimatedDurationMin: trip.EstimatedDurationMin,
		EstimatedFuelLiters:  trip.EstimatedFuelLiters,
		EstimatedCost:        trip.EstimatedCost,

		ActualDistanceKm:  trip.ActualDistanceKm,
		ActualDurationMin: trip.ActualDurationMin,
		ActualFuelLiters:  trip.ActualFuelLiters,
		ActualCost:        trip.ActualCost,

		CancelReason: trip.CancelReason,
	}
	if !trip.ScheduledAt.IsZero() {
		resp.ScheduledAt = trip.ScheduledAt.Format(time.RFC3339)
	}
	if !trip.StartedAt.IsZero() {
		resp.StartedAt = trip.StartedAt.Format(time.RFC3339)
	}
	if !trip.CompletedAt.IsZero() {
		resp.CompletedAt = trip.CompletedAt.Format(time.RFC3339)
	}
	if !trip.CancelledAt.IsZero() {
		resp.CancelledAt = trip.CancelledAt.Format(time.RFC3339)
	}
	return resp
}

// Create handles POST /v1/trips
func (h *TripHandler) Create(c *gin.Context) {
	var req CreateTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, err := h.tripService.Create(c.Request.Context(), middleware.ActorFrom(c), service.CreateTripRequest{
		CargoRequestID:       req.CargoRequestID,
		DriverID:             req.DriverID,
		VehicleID:            req.VehicleID,
		EstimatedDistanceKm:  req.EstimatedDistanceKm,
		EstimatedDurationMin: req.EstimatedDurationMin,
		EstimatedFuelLiters:  req.EstimatedFuelLiters,
		EstimatedCost:        req.EstimatedCost,
		ScheduledAt:          req.ScheduledAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTripResponse(trip))
}

// Get handles GET /v1/trips/:id
func (h *TripHandler) Get(c *gin.Context) {
	trip, err := h.tripService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// GetActiveForDriver handles GET /v1/drivers/:id/active-trip
func (h *TripHandler) GetActiveForDriver(c *gin.Context) {
	trip, err := h.tripService.GetActiveForDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// GetAll handles GET /v1/trips
func (h *TripHandler) GetAll(c *gin.Context) {
	trips, err := h.tripService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]TripResponse, 0, len(trips))
	for _, trip := range trips {
		responses = append(responses, toTripResponse(trip))
	}

	respondJSON(c, http.StatusOK, responses)
}

// Start handles POST /v1/trips/:id/start
func (h *TripHandler) Start(c *gin.Context) {
	trip, err := h.tripService.Start(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// Complete handles POST /v1/trips/:id/complete
func (h *TripHandler) Complete(c *gin.Context) {
	var req CompleteTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	trip, settlement, err := h.tripService.Complete(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), service.TripActuals{
		DistanceKm:  req.ActualDistanceKm,
		DurationMin: req.ActualDurationMin,
		FuelLiters:  req.ActualFuelLiters,
		Cost:        req.ActualCost,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, CompleteTripResponse{
		Trip: toTripResponse(trip),
		Settlement: SettlementResponse{
			Initiated:   settlement.Initiated,
			PaymentID:   settlement.PaymentID,
			RedirectURL: settlement.RedirectURL,
			Error:       settlement.Error,
		},
	})
}

// Cancel handles POST /v1/trips/:id/cancel
func (h *TripHandler) Cancel(c *gin.Context) {
	var req ReasonRequest
	_ = c.ShouldBindJSON(&req)

	trip, err := h.tripService.Cancel(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// AddTrackingPoint handles POST /v1/trips/:id/tracking-points
func (h *TripHandler) AddTrackingPoint(c *gin.Context) {
	var req TrackingPointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if err := h.tripService.AddTrackingPoint(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.Lat, req.Lng); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusAccepted)
}

// GetTrackingPoints handles GET /v1/trips/:id/tracking-points
func (h *TripHandler) GetTrackingPoints(c *gin.Context) {
	points, err := h.tripService.GetTrackingPoints(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, points)
}
