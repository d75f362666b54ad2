package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"freight/internal/domain"
	"freight/internal/repository"
	"freight/internal/service"
)

// VehicleHandler handles HTTP requests for vehicles.
type VehicleHandler struct {
	vehicleRepo repository.VehicleRepository
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(vehicleRepo repository.VehicleRepository) *VehicleHandler {
	return &VehicleHandler{vehicleRepo: vehicleRepo}
}

// CreateVehicleRequest is the HTTP request body for registering a vehicle.
type CreateVehicleRequest struct {
	DriverID   string  `json:"driver_id,omitempty"`
	Plate      string  `json:"plate"`
	Model      string  `json:"model,omitempty"`
	CapacityKg float64 `json:"capacity_kg"`
}

// VehicleResponse is the HTTP representation of a vehicle.
type VehicleResponse struct {
	ID         string  `json:"id"`
	DriverID   string  `json:"driver_id,omitempty"`
	Plate      string  `json:"plate"`
	Model      string  `json:"model,omitempty"`
	CapacityKg float64 `json:"capacity_kg"`
}

// Create handles POST /v1/vehicles
func (h *VehicleHandler) Create(c *gin.Context) {
	var req CreateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.Plate == "" {
		respondError(c, service.ErrValidation)
		return
	}

	existing, err := h.vehicleRepo.GetByPlate(c.Request.Context(), req.Plate)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		respondError(c, err)
		return
	}
	if existing != nil {
		respondError(c, fmt.Errorf("%w: plate is already registered", service.ErrValidation))
		return
	}

	vehicle := &domain.Vehicle{
		ID:         uuid.New().String(),
		DriverID:   req.DriverID,
		Plate:      req.Plate,
		Model:      req.Model,
		CapacityKg: req.CapacityKg,
		CreatedAt:  time.Now(),
	}

	if err := h.vehicleRepo.Create(c.Request.Context(), vehicle); err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, VehicleResponse{
		ID:         vehicle.ID,
		DriverID:   vehicle.DriverID,
		Plate:      vehicle.Plate,
		Model:      vehicle.Model,
		CapacityKg: vehicle.CapacityKg,
	})
}

// Get handles GET /v1/vehicles/:id
func (h *VehicleHandler) Get(c *gin.Context) {
	vehicle, err := h.vehicleRepo.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, VehicleResponse{
		ID:         vehicle.ID,
		DriverID:   vehicle.DriverID,
		Plate:      vehicle.Plate,
		Model:      vehicle.Model,
		CapacityKg: vehicle.CapacityKg,
	})
}
