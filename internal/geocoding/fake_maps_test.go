package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"location-api/internal/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const kharagpurGeocode = `{
  "status": "OK",
  "results": [{
    "address_components": [
      {"long_name": "721301", "short_name": "721301", "types": ["postal_code"]},
      {"long_name": "Kharagpur", "short_name": "Kharagpur", "types": ["locality", "political"]},
      {"long_name": "Paschim Medinipur", "short_name": "Paschim Medinipur", "types": ["administrative_area_level_3", "political"]},
      {"long_name": "West Bengal", "short_name": "WB", "types": ["administrative_area_level_1", "political"]},
      {"long_name": "India", "short_name": "IN", "types": ["country", "political"]}
    ],
    "formatted_address": "Kharagpur, West Bengal 721301, India",
    "geometry": {"location": {"lat": 22.346, "lng": 87.232}},
    "place_id": "ChIJkharagpur"
  }]
}`

const zeroResults = `{"status": "ZERO_RESULTS", "results": []}`

const requestDenied = `{"status": "REQUEST_DENIED", "error_message": "The provided API key is invalid."}`

// fakeMaps serves canned Google Maps web service responses and counts requests per path.
type fakeMaps struct {
	*httptest.Server

	mu     sync.Mutex
	bodies map[string]string
	calls  map[string]int
}

func newFakeMaps(t *testing.T) *fakeMaps {
	t.Helper()
	f := &fakeMaps{bodies: map[string]string{}, calls: map[string]int{}}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[r.URL.Path]++
		body, ok := f.bodies[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.Close)
	return f
}

const (
	geocodePath      = "/maps/api/geocode/json"
	autocompletePath = "/maps/api/place/autocomplete/json"
	detailsPath      = "/maps/api/place/details/json"
)

func (f *fakeMaps) respond(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[path] = body
}

func (f *fakeMaps) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeMaps) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func newTestGateway(t *testing.T, f *fakeMaps, opts ...Option) *Gateway {
	t.Helper()
	loader := NewLoader(ClientLoader("test-key", f.URL, f.Client()), time.Second, nil)
	return NewGateway(loader, opts...)
}

// MockDirectory is a mock implementation of the Directory interface
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) FindByPincode(ctx context.Context, pincode string) (*models.PincodeEntry, error) {
	args := m.Called(ctx, pincode)
	entry, _ := args.Get(0).(*models.PincodeEntry)
	return entry, args.Error(1)
}

func (m *MockDirectory) SearchOffices(ctx context.Context, query string, limit int) ([]models.PincodeEntry, error) {
	args := m.Called(ctx, query, limit)
	entries, _ := args.Get(0).([]models.PincodeEntry)
	return entries, args.Error(1)
}

func (m *MockDirectory) FindNearestPincode(ctx context.Context, lat, lon float64) (*models.PincodeEntry, error) {
	args := m.Called(ctx, lat, lon)
	entry, _ := args.Get(0).(*models.PincodeEntry)
	return entry, args.Error(1)
}

func requireCalls(t *testing.T, f *fakeMaps, path string, want int) {
	t.Helper()
	require.Equal(t, want, f.count(path), "calls to %s", path)
}
