package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"freight/internal/domain"
	"freight/internal/middleware"
	"freight/internal/service"
)

// DriverHandler handles HTTP requests for drivers.
type DriverHandler struct {
	driverService *service.DriverService
}

// NewDriverHandler creates a new DriverHandler.
func NewDriverHandler(driverService *service.DriverService) *DriverHandler {
	return &DriverHandler{driverService: driverService}
}

// RegisterDriverRequest is the HTTP request body for registering a driver.
type RegisterDriverRequest struct {
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	LicenseNumber string    `json:"license_number"`
	LicenseExpiry time.Time `json:"license_expiry"`
}

// UpdateDriverStatusRequest is the HTTP request body for a status change.
type UpdateDriverStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// DriverResponse is the HTTP representation of a driver.
type DriverResponse struct {
	ID              string `json:"id"`
	UserID          string `json:"user_id"`
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	LicenseNumber   string `json:"license_number,omitempty"`
	Status          string `json:"status"`
	StatusReason    string `json:"status_reason,omitempty"`
	StatusChangedAt string `json:"status_changed_at,omitempty"`
}

func toDriverResponse(driver *domain.Driver) DriverResponse {
	resp := DriverResponse{
		ID:            driver.ID,
		UserID:        driver.UserID,
		Name:          driver.Name,
		Phone:         driver.Phone,
		LicenseNumber: driver.LicenseNumber,
		Status:        string(driver.Status),
		StatusReason:  driver.StatusReason,
	}
	if !driver.StatusChangedAt.IsZero() {
		resp.StatusChangedAt = driver.StatusChangedAt.Format(time.RFC3339)
	}
	return resp
}

// Register handles POST /v1/drivers/register
func (h *DriverHandler) Register(c *gin.Context) {
	var req RegisterDriverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverService.Register(c.Request.Context(), middleware.ActorFrom(c), service.RegisterDriverRequest{
		Name:          req.Name,
		Phone:         req.Phone,
		LicenseNumber: req.LicenseNumber,
		LicenseExpiry: req.LicenseExpiry,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toDriverResponse(driver))
}

// Get handles GET /v1/drivers/:id
func (h *DriverHandler) Get(c *gin.Context) {
	driver, err := h.driverService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}

// GetAll handles GET /v1/drivers
func (h *DriverHandler) GetAll(c *gin.Context) {
	drivers, err := h.driverService.GetAll(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	responses := make([]DriverResponse, 0, len(drivers))
	for _, driver := range drivers {
		responses = append(responses, toDriverResponse(driver))
	}

	respondJSON(c, http.StatusOK, responses)
}

// UpdateStatus handles PATCH /v1/drivers/:id/status
func (h *DriverHandler) UpdateStatus(c *gin.Context) {
	var req UpdateDriverStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	driver, err := h.driverService.UpdateStatus(c.Request.Context(), middleware.ActorFrom(c), service.UpdateStatusRequest{
		DriverID: c.Param("id"),
		Status:   domain.DriverStatus(req.Status),
		Reason:   req.Reason,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toDriverResponse(driver))
}
