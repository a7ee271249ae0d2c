package handler

import (
	"context"
	"errors"
	"net/http"

	"location-api/internal/otp"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// TokenStore persists the auth token.
type TokenStore interface {
	Load(ctx context.Context) (string, bool)
	Save(ctx context.Context, token string) error
	Clear(ctx context.Context) error
}

// AuthHandler accepts OTP widget responses.
type AuthHandler struct {
	tokens TokenStore
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(tokens TokenStore) *AuthHandler {
	return &AuthHandler{tokens: tokens}
}

// VerifyOTP handles POST /auth/otp. The body is the widget response as received.
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	raw, err := c.GetRawData()
	if err != nil || len(raw) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing widget response"})
		return
	}

	token, err := otp.Decode(raw)
	switch {
	case errors.Is(err, otp.ErrVerificationFailed):
		log.Info().Err(err).Msg("handler: otp widget reported failure")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "otp verification failed"})
		return
	case errors.Is(err, otp.ErrNoToken):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "no access token in widget response"})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "widget response is not valid JSON"})
		return
	}

	if err := h.tokens.Save(c.Request.Context(), token); err != nil {
		log.Error().Err(err).Msg("handler: save auth token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true})
}

// Status handles GET /auth/token. The token itself is never returned.
func (h *AuthHandler) Status(c *gin.Context) {
	_, ok := h.tokens.Load(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"authenticated": ok})
}

// Logout handles DELETE /auth/token
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.tokens.Clear(c.Request.Context()); err != nil {
		log.Error().Err(err).Msg("handler: clear auth token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}
