package handler

import (
	"context"
	"errors"
	"net/http"

	"location-api/internal/geolocation"
	"location-api/internal/models"
	"location-api/internal/service"

	"github.com/gin-gonic/gin"
)

// LocationEngine is the resolution engine as seen by the HTTP surface.
type LocationEngine interface {
	RequestDeviceLocation(ctx context.Context) (*models.Location, error)
	SetLocation(ctx context.Context, loc *models.Location) (*models.Location, error)
	SetPincode(ctx context.Context, pincode string) (*models.Location, error)
	SetPlace(ctx context.Context, placeID string) (*models.Location, error)
	ClearLocation(ctx context.Context) error
}

// Gatekeeper exposes the derived gating state.
type Gatekeeper interface {
	State() service.GateState
	Open() service.GateState
	Close() (service.GateState, error)
	Watch(ctx context.Context) <-chan service.GateState
}

// LocationHandler serves the current location and the selector modal.
type LocationHandler struct {
	engine LocationEngine
	gate   Gatekeeper
}

// NewLocationHandler creates a new location handler
func NewLocationHandler(engine LocationEngine, gate Gatekeeper) *LocationHandler {
	return &LocationHandler{engine: engine, gate: gate}
}

type pincodeRequest struct {
	Pincode string `json:"pincode" binding:"required"`
}

type placeRequest struct {
	PlaceID string `json:"place_id" binding:"required"`
}

// Get handles GET /location
func (h *LocationHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, h.gate.State())
}

// Detect handles POST /location/detect
func (h *LocationHandler) Detect(c *gin.Context) {
	loc, err := h.engine.RequestDeviceLocation(c.Request.Context())
	if err != nil {
		h.fail(c, err, loc)
		return
	}
	c.JSON(http.StatusOK, h.gate.State())
}

// Set handles PUT /location
func (h *LocationHandler) Set(c *gin.Context) {
	var loc models.Location
	if err := c.ShouldBindJSON(&loc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location body"})
		return
	}
	if loc.Coordinates != nil && !loc.Coordinates.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	if _, err := h.engine.SetLocation(c.Request.Context(), &loc); err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, h.gate.State())
}

// Pincode handles POST /location/pincode
func (h *LocationHandler) Pincode(c *gin.Context) {
	var req pincodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required field 'pincode'"})
		return
	}

	if _, err := h.engine.SetPincode(c.Request.Context(), req.Pincode); err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, h.gate.State())
}

// Place handles POST /location/place
func (h *LocationHandler) Place(c *gin.Context) {
	var req placeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required field 'place_id'"})
		return
	}

	if _, err := h.engine.SetPlace(c.Request.Context(), req.PlaceID); err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, h.gate.State())
}

// Clear handles DELETE /location
func (h *LocationHandler) Clear(c *gin.Context) {
	if err := h.engine.ClearLocation(c.Request.Context()); err != nil {
		h.fail(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, h.gate.State())
}

// OpenModal handles POST /location/modal/open
func (h *LocationHandler) OpenModal(c *gin.Context) {
	c.JSON(http.StatusOK, h.gate.Open())
}

// CloseModal handles POST /location/modal/close
func (h *LocationHandler) CloseModal(c *gin.Context) {
	st, err := h.gate.Close()
	if errors.Is(err, service.ErrModalMandatory) {
		c.JSON(http.StatusConflict, gin.H{"error": "a location must be selected first", "state": st})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *LocationHandler) fail(c *gin.Context, err error, partial *models.Location) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrInvalidPincode):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrPincodeNotFound), errors.Is(err, service.ErrPlaceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNotInitialized):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled):
		status = http.StatusRequestTimeout
	case errors.Is(err, geolocation.ErrPermissionDenied),
		errors.Is(err, geolocation.ErrPositionUnavailable),
		errors.Is(err, geolocation.ErrTimeout),
		errors.Is(err, service.ErrLocationUnresolved):
		status = http.StatusConflict
	}

	body := gin.H{"error": service.Message(err)}
	if partial != nil {
		body["location"] = partial
	}
	c.Error(err)
	c.JSON(status, body)
}
