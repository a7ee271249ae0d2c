package geolocation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"location-api/internal/geocoding"
	"location-api/internal/models"

	"github.com/rs/zerolog/log"
	"googlemaps.github.io/maps"
)

// DefaultTimeout bounds a single position request.
const DefaultTimeout = 10 * time.Second

var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrPositionUnavailable = errors.New("location unavailable")
	ErrTimeout             = errors.New("location request timed out")
)

// Options configures a single-shot position request.
type Options struct {
	HighAccuracy bool
	Timeout      time.Duration
}

// Locator is the platform geolocation capability.
type Locator interface {
	Locate(ctx context.Context, opts Options) (models.Coordinates, error)
}

// Func adapts a function to a Locator.
type Func func(ctx context.Context, opts Options) (models.Coordinates, error)

func (f Func) Locate(ctx context.Context, opts Options) (models.Coordinates, error) {
	return f(ctx, opts)
}

// GoogleLocator resolves the caller's position with the Google Geolocation API.
type GoogleLocator struct {
	loader *geocoding.Loader
}

func NewGoogleLocator(loader *geocoding.Loader) *GoogleLocator {
	return &GoogleLocator{loader: loader}
}

func (g *GoogleLocator) Locate(ctx context.Context, opts Options) (models.Coordinates, error) {
	client, err := g.loader.Client(ctx)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: %w", ErrPositionUnavailable, err)
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	res, err := client.Geolocate(ctx, &maps.GeolocationRequest{ConsiderIP: true})
	if err != nil {
		log.Debug().Err(err).Msg("geolocation: geolocate failed")
		return models.Coordinates{}, Classify(err)
	}

	coords := models.Coordinates{Latitude: res.Location.Lat, Longitude: res.Location.Lng}
	if !coords.Valid() {
		return models.Coordinates{}, ErrPositionUnavailable
	}
	return coords, nil
}

// Classify maps a provider or context error onto the geolocation error kinds.
// Errors already classified are returned unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrPermissionDenied), errors.Is(err, ErrPositionUnavailable), errors.Is(err, ErrTimeout):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"denied", "forbidden", "403", "keyinvalid", "accessnotconfigured"} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
		}
	}
	return fmt.Errorf("%w: %w", ErrPositionUnavailable, err)
}
