package handler

import (
	"context"
	"encoding/json"
	"iter"
	"net/http"
	"net/http/httptest"
	"slices"
	"testing"

	"location-api/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockGeocoder is a mock implementation of the Geocoder interface
type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) ReverseGeocode(ctx context.Context, lat, lng float64) models.Address {
	args := m.Called(ctx, lat, lng)
	return args.Get(0).(models.Address)
}

func (m *MockGeocoder) ForwardGeocode(ctx context.Context, pincode string) (*models.Location, bool) {
	args := m.Called(ctx, pincode)
	return args.Get(0).(*models.Location), args.Bool(1)
}

func (m *MockGeocoder) Autocomplete(ctx context.Context, query string) iter.Seq[models.Suggestion] {
	args := m.Called(ctx, query)
	return args.Get(0).(iter.Seq[models.Suggestion])
}

func (m *MockGeocoder) PlaceDetails(ctx context.Context, placeID string) (*models.Place, bool) {
	args := m.Called(ctx, placeID)
	return args.Get(0).(*models.Place), args.Bool(1)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) interface{} {
	t.Helper()
	var body interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestGeocodeHandler_Pincode(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		pincode        string
		mockLocation   *models.Location
		mockFound      bool
		expectCall     bool
		expectedStatus int
		expectedBody   interface{}
	}{
		{
			name:           "malformed pincode",
			pincode:        "12345",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]interface{}{"error": "pincode must be 6 digits"},
		},
		{
			name:    "resolved pincode",
			pincode: "721302",
			mockLocation: &models.Location{
				City:             "Kharagpur",
				State:            "West Bengal",
				Country:          "India",
				FormattedAddress: "Kharagpur, West Bengal 721302, India",
			},
			mockFound:      true,
			expectCall:     true,
			expectedStatus: http.StatusOK,
			expectedBody: map[string]interface{}{
				"city":             "Kharagpur",
				"state":            "West Bengal",
				"country":          "India",
				"formattedAddress": "Kharagpur, West Bengal 721302, India",
			},
		},
		{
			name:           "unknown pincode",
			pincode:        "999999",
			expectCall:     true,
			expectedStatus: http.StatusNotFound,
			expectedBody:   map[string]interface{}{"error": "pincode not recognized"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockGeo := new(MockGeocoder)
			handler := NewGeocodeHandler(mockGeo)
			if tt.expectCall {
				mockGeo.On("ForwardGeocode", mock.Anything, tt.pincode).Return(tt.mockLocation, tt.mockFound)
			}

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/geocode/pincode/"+tt.pincode, nil)
			c.Params = gin.Params{{Key: "pincode", Value: tt.pincode}}

			handler.Pincode(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedBody, decode(t, w))
			mockGeo.AssertExpectations(t)
		})
	}
}

func TestGeocodeHandler_ReverseGeocode(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		query          string
		mockAddress    *models.Address
		expectedStatus int
		expectedBody   interface{}
	}{
		{
			name:           "missing parameters",
			query:          "lat=22.3",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]interface{}{"error": "missing required query parameters 'lat' and 'lng'"},
		},
		{
			name:           "invalid latitude",
			query:          "lat=abc&lng=87.3",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]interface{}{"error": "invalid latitude format"},
		},
		{
			name:           "invalid longitude",
			query:          "lat=22.3&lng=abc",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]interface{}{"error": "invalid longitude format"},
		},
		{
			name:           "out of range",
			query:          "lat=95&lng=87.3",
			expectedStatus: http.StatusBadRequest,
			expectedBody:   map[string]interface{}{"error": "coordinates out of range"},
		},
		{
			name:           "resolved",
			query:          "lat=22.3149&lng=87.3105",
			mockAddress:    &models.Address{City: "Kharagpur", State: "West Bengal", Country: "India"},
			expectedStatus: http.StatusOK,
			expectedBody:   map[string]interface{}{"city": "Kharagpur", "state": "West Bengal", "country": "India"},
		},
		{
			name:           "provider had nothing",
			query:          "lat=0&lng=0",
			mockAddress:    &models.Address{},
			expectedStatus: http.StatusOK,
			expectedBody:   map[string]interface{}{"city": "", "state": "", "country": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockGeo := new(MockGeocoder)
			handler := NewGeocodeHandler(mockGeo)
			if tt.mockAddress != nil {
				mockGeo.On("ReverseGeocode", mock.Anything, mock.Anything, mock.Anything).Return(*tt.mockAddress)
			}

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/geocode/reverse?"+tt.query, nil)

			handler.ReverseGeocode(c)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedBody, decode(t, w))
			mockGeo.AssertExpectations(t)
		})
	}
}

func TestGeocodeHandler_Autocomplete(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("missing query", func(t *testing.T) {
		handler := NewGeocodeHandler(new(MockGeocoder))
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/places/autocomplete", nil)

		handler.Autocomplete(c)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("suggestions", func(t *testing.T) {
		mockGeo := new(MockGeocoder)
		mockGeo.On("Autocomplete", mock.Anything, "khara").Return(slices.Values([]models.Suggestion{
			{Description: "Kharagpur, West Bengal, India", PlaceID: "p1"},
		}))
		handler := NewGeocodeHandler(mockGeo)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/places/autocomplete?q=khara", nil)

		handler.Autocomplete(c)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []interface{}{
			map[string]interface{}{"description": "Kharagpur, West Bengal, India", "place_id": "p1"},
		}, decode(t, w))
	})

	t.Run("no suggestions is an empty list", func(t *testing.T) {
		mockGeo := new(MockGeocoder)
		mockGeo.On("Autocomplete", mock.Anything, "zzz").Return(slices.Values([]models.Suggestion(nil)))
		handler := NewGeocodeHandler(mockGeo)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/places/autocomplete?q=zzz", nil)

		handler.Autocomplete(c)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `[]`, w.Body.String())
	})
}

func TestGeocodeHandler_Place(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mockGeo := new(MockGeocoder)
	mockGeo.On("PlaceDetails", mock.Anything, "p1").Return(&models.Place{PlaceID: "p1", Name: "Kharagpur"}, true)
	mockGeo.On("PlaceDetails", mock.Anything, "nope").Return((*models.Place)(nil), false)
	handler := NewGeocodeHandler(mockGeo)

	for id, status := range map[string]int{"p1": http.StatusOK, "nope": http.StatusNotFound} {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/places/"+id, nil)
		c.Params = gin.Params{{Key: "id", Value: id}}

		handler.Place(c)
		assert.Equal(t, status, w.Code, id)
	}
	mockGeo.AssertExpectations(t)
}

func nilPlace() *models.Place { return nil }
