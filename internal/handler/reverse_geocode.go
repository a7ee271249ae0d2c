package handler

import (
	"net/http"
	"strconv"

	"location-api/internal/models"

	"github.com/gin-gonic/gin"
)

// ReverseGeocode handles GET /geocode/reverse
func (h *GeocodeHandler) ReverseGeocode(c *gin.Context) {
	latStr := c.Query("lat")
	lngStr := c.Query("lng")

	if latStr == "" || lngStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required query parameters 'lat' and 'lng'"})
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid latitude format"})
		return
	}

	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid longitude format"})
		return
	}

	if !(models.Coordinates{Latitude: lat, Longitude: lng}).Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "coordinates out of range"})
		return
	}

	c.JSON(http.StatusOK, h.geocoder.ReverseGeocode(c.Request.Context(), lat, lng))
}
