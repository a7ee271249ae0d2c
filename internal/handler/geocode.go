package handler

import (
	"context"
	"iter"
	"net/http"

	"location-api/internal/geocoding"
	"location-api/internal/models"

	"github.com/gin-gonic/gin"
)

// Geocoder is the geocoding gateway as seen by the HTTP surface.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) models.Address
	ForwardGeocode(ctx context.Context, pincode string) (*models.Location, bool)
	Autocomplete(ctx context.Context, query string) iter.Seq[models.Suggestion]
	PlaceDetails(ctx context.Context, placeID string) (*models.Place, bool)
}

// GeocodeHandler serves pincode lookups and place search.
type GeocodeHandler struct {
	geocoder Geocoder
}

// NewGeocodeHandler creates a new geocode handler
func NewGeocodeHandler(g Geocoder) *GeocodeHandler {
	return &GeocodeHandler{geocoder: g}
}

// Pincode handles GET /geocode/pincode/:pincode
func (h *GeocodeHandler) Pincode(c *gin.Context) {
	pincode := c.Param("pincode")
	if !geocoding.ValidPincode(pincode) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pincode must be 6 digits"})
		return
	}

	loc, ok := h.geocoder.ForwardGeocode(c.Request.Context(), pincode)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "pincode not recognized"})
		return
	}
	c.JSON(http.StatusOK, loc)
}

// Autocomplete handles GET /places/autocomplete
func (h *GeocodeHandler) Autocomplete(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameter 'q'"})
		return
	}

	suggestions := []models.Suggestion{}
	for s := range h.geocoder.Autocomplete(c.Request.Context(), query) {
		suggestions = append(suggestions, s)
	}
	c.JSON(http.StatusOK, suggestions)
}

// Place handles GET /places/:id
func (h *GeocodeHandler) Place(c *gin.Context) {
	place, ok := h.geocoder.PlaceDetails(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "place not found"})
		return
	}
	c.JSON(http.StatusOK, place)
}
