package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockTokenStore is a mock implementation of the TokenStore interface
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) Load(ctx context.Context) (string, bool) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1)
}

func (m *MockTokenStore) Save(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}

func (m *MockTokenStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestAuthHandler_VerifyOTP(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		body           string
		token          string
		saveError      error
		expectedStatus int
	}{
		{name: "empty body", expectedStatus: http.StatusBadRequest},
		{name: "invalid json", body: `{"message":`, expectedStatus: http.StatusBadRequest},
		{name: "no token", body: `{"type":"success","code":"200"}`, expectedStatus: http.StatusUnprocessableEntity},
		{name: "widget failure", body: `{"type":"error","message":"Invalid OTP"}`, expectedStatus: http.StatusUnauthorized},
		{name: "widget failure without message", body: `{"type":"error","code":"401"}`, expectedStatus: http.StatusUnauthorized},
		{name: "widget message", body: `{"type":"success","message":"tok-1"}`, token: "tok-1", expectedStatus: http.StatusOK},
		{name: "nested access token", body: `{"data":{"accessToken":"tok-2"}}`, token: "tok-2", expectedStatus: http.StatusOK},
		{name: "bare string", body: `"tok-3"`, token: "tok-3", expectedStatus: http.StatusOK},
		{name: "save fails", body: `{"token":"tok-4"}`, token: "tok-4", saveError: assert.AnError, expectedStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := new(MockTokenStore)
			if tt.token != "" {
				tokens.On("Save", mock.Anything, tt.token).Return(tt.saveError)
			}
			handler := NewAuthHandler(tokens)

			w := serve(handler.VerifyOTP, http.MethodPost, "/auth/otp", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			tokens.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := new(MockTokenStore)
	tokens.On("Clear", mock.Anything).Return(nil)
	handler := NewAuthHandler(tokens)

	w := serve(handler.Logout, http.MethodDelete, "/auth/token", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	tokens.AssertExpectations(t)
}

func TestAuthHandler_Status(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := new(MockTokenStore)
	tokens.On("Load", mock.Anything).Return("secret", true).Once()
	tokens.On("Load", mock.Anything).Return("", false).Once()
	handler := NewAuthHandler(tokens)

	w := serve(handler.Status, http.MethodGet, "/auth/token", "")
	assert.JSONEq(t, `{"authenticated":true}`, w.Body.String())

	w = serve(handler.Status, http.MethodGet, "/auth/token", "")
	assert.JSONEq(t, `{"authenticated":false}`, w.Body.String())
	tokens.AssertExpectations(t)
}
