package geocoding

import (
	"context"
	"iter"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"location-api/internal/models"
	"location-api/internal/observability/metrics"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"googlemaps.github.io/maps"
)

var pincodePattern = regexp.MustCompile(`^[0-9]{6}$`)

// ValidPincode reports whether s is a 6-digit postal code.
func ValidPincode(s string) bool {
	return pincodePattern.MatchString(strings.TrimSpace(s))
}

// Directory is the offline pincode directory used when the provider has no answer.
type Directory interface {
	FindByPincode(ctx context.Context, pincode string) (*models.PincodeEntry, error)
	FindNearestPincode(ctx context.Context, lat, lon float64) (*models.PincodeEntry, error)
	SearchOffices(ctx context.Context, query string, limit int) ([]models.PincodeEntry, error)
}

// DirectoryPlacePrefix marks place ids that refer to a directory pincode.
const DirectoryPlacePrefix = "pincode:"

const directorySuggestions = 5

// Gateway wraps the external geocoding and places provider.
// Every operation degrades to an empty result instead of returning provider errors.
type Gateway struct {
	loader    *Loader
	directory Directory
	metrics   *metrics.GeocodingMetrics
	tracer    trace.Tracer
	country   string
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithDirectory enables the offline pincode directory fallback.
func WithDirectory(d Directory) Option {
	return func(g *Gateway) { g.directory = d }
}

// WithMetrics records provider calls.
func WithMetrics(m *metrics.GeocodingMetrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// NewGateway creates a gateway over loader.
func NewGateway(loader *Loader, opts ...Option) *Gateway {
	g := &Gateway{
		loader:  loader,
		tracer:  otel.Tracer("location-api/geocoding"),
		country: "IN",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// LoaderState exposes the mapping library readiness.
func (g *Gateway) LoaderState() LoadState {
	return g.loader.State()
}

func (g *Gateway) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(outcome string, err error)) {
	ctx, span := g.tracer.Start(ctx, "geocoding."+op, trace.WithAttributes(attrs...))
	start := time.Now()
	return ctx, func(outcome string, err error) {
		g.metrics.ObserveCall(op, outcome, time.Since(start).Seconds())
		span.SetAttributes(attribute.String("outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// ReverseGeocode resolves coordinates to city, state and country.
// Any failure yields an all-empty address.
func (g *Gateway) ReverseGeocode(ctx context.Context, lat, lng float64) models.Address {
	ctx, end := g.begin(ctx, "reverse", attribute.Float64("lat", lat), attribute.Float64("lng", lng))

	addr, err := g.reverse(ctx, lat, lng)
	if err == nil && !addr.IsZero() {
		end("ok", nil)
		return addr
	}

	if g.directory != nil {
		if entry, derr := g.directory.FindNearestPincode(ctx, lat, lng); derr == nil {
			end("fallback", err)
			return models.Address{City: entry.District, State: entry.State, Country: models.DefaultCountry}
		}
	}

	if err != nil {
		log.Debug().Err(err).Float64("lat", lat).Float64("lng", lng).Msg("geocoding: reverse geocode failed")
		end("error", err)
	} else {
		end("empty", nil)
	}
	return models.Address{}
}

func (g *Gateway) reverse(ctx context.Context, lat, lng float64) (models.Address, error) {
	client, err := g.loader.Client(ctx)
	if err != nil {
		return models.Address{}, err
	}
	results, err := client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		return models.Address{}, err
	}
	if len(results) == 0 {
		return models.Address{}, nil
	}
	return extractAddress(results[0].AddressComponents), nil
}

// ForwardGeocode resolves a 6-digit pincode to a location.
// Malformed codes return absent without any provider call.
func (g *Gateway) ForwardGeocode(ctx context.Context, pincode string) (*models.Location, bool) {
	pincode = strings.TrimSpace(pincode)
	if !pincodePattern.MatchString(pincode) {
		return nil, false
	}

	ctx, end := g.begin(ctx, "forward", attribute.String("pincode", pincode))

	loc, err := g.forward(ctx, pincode)
	if err == nil && !loc.IsEmpty() {
		end("ok", nil)
		return loc, true
	}

	if g.directory != nil {
		if entry, derr := g.directory.FindByPincode(ctx, pincode); derr == nil {
			end("fallback", err)
			return entry.Location(), true
		}
	}

	if err != nil {
		log.Debug().Err(err).Str("pincode", pincode).Msg("geocoding: pincode lookup failed")
		end("error", err)
	} else {
		end("empty", nil)
	}
	return nil, false
}

func (g *Gateway) forward(ctx context.Context, pincode string) (*models.Location, error) {
	client, err := g.loader.Client(ctx)
	if err != nil {
		return nil, err
	}
	results, err := client.Geocode(ctx, &maps.GeocodingRequest{
		Address:    pincode + ", " + models.DefaultCountry,
		Components: map[maps.Component]string{maps.ComponentCountry: g.country},
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	first := results[0]
	addr := extractAddress(first.AddressComponents)
	if addr.Country == "" {
		addr.Country = models.DefaultCountry
	}
	return &models.Location{
		Coordinates:      &models.Coordinates{Latitude: first.Geometry.Location.Lat, Longitude: first.Geometry.Location.Lng},
		City:             addr.City,
		State:            addr.State,
		Country:          addr.Country,
		FormattedAddress: first.FormattedAddress,
	}, nil
}

// Autocomplete returns place suggestions for a partial query.
// The sequence is lazy: the provider is queried on first iteration. It is
// single-use; iterating it again yields nothing.
func (g *Gateway) Autocomplete(ctx context.Context, query string) iter.Seq[models.Suggestion] {
	var used atomic.Bool
	return func(yield func(models.Suggestion) bool) {
		if used.Swap(true) {
			return
		}
		query := strings.TrimSpace(query)
		if query == "" {
			return
		}
		for _, s := range g.autocomplete(ctx, query) {
			if !yield(s) {
				return
			}
		}
	}
}

func (g *Gateway) autocomplete(ctx context.Context, query string) []models.Suggestion {
	ctx, end := g.begin(ctx, "autocomplete")

	out, err := g.predict(ctx, query)
	if len(out) > 0 {
		end("ok", nil)
		return out
	}
	if err != nil {
		log.Debug().Err(err).Str("query", query).Msg("geocoding: autocomplete failed")
	}

	if g.directory != nil {
		entries, derr := g.directory.SearchOffices(ctx, query, directorySuggestions)
		if derr == nil && len(entries) > 0 {
			end("fallback", err)
			for _, e := range entries {
				loc := e.Location()
				out = append(out, models.Suggestion{
					Description: loc.FormattedAddress,
					PlaceID:     DirectoryPlacePrefix + e.Pincode,
					MainText:    e.Office,
					Secondary:   loc.Label(),
				})
			}
			return out
		}
	}

	if err != nil {
		end("error", err)
	} else {
		end("empty", nil)
	}
	return nil
}

func (g *Gateway) predict(ctx context.Context, query string) ([]models.Suggestion, error) {
	client, err := g.loader.Client(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := client.PlaceAutocomplete(ctx, &maps.PlaceAutocompleteRequest{
		Input:      query,
		Types:      maps.AutocompletePlaceTypeRegions,
		Components: map[maps.Component][]string{maps.ComponentCountry: {strings.ToLower(g.country)}},
	})
	if err != nil {
		return nil, err
	}

	out := make([]models.Suggestion, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, models.Suggestion{
			Description: p.Description,
			PlaceID:     p.PlaceID,
			MainText:    p.StructuredFormatting.MainText,
			Secondary:   p.StructuredFormatting.SecondaryText,
		})
	}
	return out, nil
}

// PlaceDetails resolves a place identifier from Autocomplete.
func (g *Gateway) PlaceDetails(ctx context.Context, placeID string) (*models.Place, bool) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, false
	}
	ctx, end := g.begin(ctx, "details", attribute.String("place_id", placeID))

	if pincode, ok := strings.CutPrefix(placeID, DirectoryPlacePrefix); ok {
		return g.directoryPlace(ctx, placeID, pincode, end)
	}

	client, err := g.loader.Client(ctx)
	if err != nil {
		end("not_ready", err)
		return nil, false
	}
	res, err := client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
		PlaceID: placeID,
		Fields: []maps.PlaceDetailsFieldMask{
			maps.PlaceDetailsFieldMaskName,
			maps.PlaceDetailsFieldMaskFormattedAddress,
			maps.PlaceDetailsFieldMaskGeometry,
			maps.PlaceDetailsFieldMaskAddressComponent,
		},
	})
	if err != nil {
		log.Debug().Err(err).Str("place_id", placeID).Msg("geocoding: place details failed")
		end("error", err)
		return nil, false
	}

	place := &models.Place{
		PlaceID:          placeID,
		Name:             res.Name,
		FormattedAddress: res.FormattedAddress,
		Coordinates:      models.Coordinates{Latitude: res.Geometry.Location.Lat, Longitude: res.Geometry.Location.Lng},
		Address:          extractAddress(res.AddressComponents),
	}
	if place.Name == "" && place.City == "" && place.State == "" {
		end("empty", nil)
		return nil, false
	}
	end("ok", nil)
	return place, true
}

func (g *Gateway) directoryPlace(ctx context.Context, placeID, pincode string, end func(string, error)) (*models.Place, bool) {
	if g.directory == nil {
		end("empty", nil)
		return nil, false
	}
	entry, err := g.directory.FindByPincode(ctx, pincode)
	if err != nil {
		end("error", err)
		return nil, false
	}
	loc := entry.Location()
	end("fallback", nil)
	return &models.Place{
		PlaceID:          placeID,
		Name:             entry.Office,
		FormattedAddress: loc.FormattedAddress,
		Coordinates:      *loc.Coordinates,
		Address:          models.Address{City: loc.City, State: loc.State, Country: loc.Country},
	}, true
}
