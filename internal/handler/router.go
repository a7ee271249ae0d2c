package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Dependencies are the components served over HTTP.
type Dependencies struct {
	Engine   LocationEngine
	Gate     Gatekeeper
	Geocoder Geocoder
	Tokens   TokenStore
	Metrics  http.Handler
}

// NewRouter wires every route.
func NewRouter(d Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}

	loc := NewLocationHandler(d.Engine, d.Gate)
	r.GET("/location", loc.Get)
	r.PUT("/location", loc.Set)
	r.DELETE("/location", loc.Clear)
	r.POST("/location/detect", loc.Detect)
	r.POST("/location/pincode", loc.Pincode)
	r.POST("/location/place", loc.Place)
	r.POST("/location/modal/open", loc.OpenModal)
	r.POST("/location/modal/close", loc.CloseModal)
	r.GET("/location/ws", loc.Stream)

	geo := NewGeocodeHandler(d.Geocoder)
	r.GET("/geocode/pincode/:pincode", geo.Pincode)
	r.GET("/geocode/reverse", geo.ReverseGeocode)
	r.GET("/places/autocomplete", geo.Autocomplete)
	r.GET("/places/:id", geo.Place)

	auth := NewAuthHandler(d.Tokens)
	r.POST("/auth/otp", auth.VerifyOTP)
	r.GET("/auth/token", auth.Status)
	r.DELETE("/auth/token", auth.Logout)

	return r
}
