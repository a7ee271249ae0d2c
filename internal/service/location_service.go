package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"location-api/internal/geocoding"
	"location-api/internal/geolocation"
	"location-api/internal/models"
	"location-api/internal/observability/metrics"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

var (
	ErrNotInitialized     = errors.New("service: location not initialized")
	ErrLocationUnresolved = errors.New("service: coordinates did not resolve to a place")
	ErrInvalidPincode     = errors.New("service: pincode must be 6 digits")
	ErrPincodeNotFound    = errors.New("service: pincode not recognized")
	ErrPlaceNotFound      = errors.New("service: place not found")
)

// State is the resolution state of the location engine.
type State int

const (
	Uninitialized State = iota
	Empty
	Resolving
	Resolved
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Empty:
		return "empty"
	case Resolving:
		return "resolving"
	case Resolved:
		return "resolved"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Event is emitted to listeners after each transition.
type Event int

const (
	EventInitialized Event = iota
	EventResolving
	EventResolved
	EventFailed
	EventCleared
	EventReset
)

var eventNames = [...]string{"initialized", "resolving", "resolved", "failed", "cleared", "reset"}

func (e Event) String() string {
	if int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Snapshot is a copy of the engine state.
type Snapshot struct {
	State     State
	Location  *models.Location
	LastError string
}

// Initialized reports whether the startup load has completed.
func (s Snapshot) Initialized() bool {
	return s.State != Uninitialized
}

// Listener observes engine transitions.
type Listener func(Event, Snapshot)

// LocationStore persists the location record.
type LocationStore interface {
	Load(ctx context.Context) (*models.Location, bool)
	Save(ctx context.Context, loc *models.Location) error
	Clear(ctx context.Context) error
}

// Geocoder resolves coordinates, pincodes and places.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) models.Address
	ForwardGeocode(ctx context.Context, pincode string) (*models.Location, bool)
	PlaceDetails(ctx context.Context, placeID string) (*models.Place, bool)
}

// Option configures a LocationService.
type Option func(*LocationService)

// WithTimeout bounds device location requests.
func WithTimeout(d time.Duration) Option {
	return func(s *LocationService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithMetrics records transitions and failures.
func WithMetrics(m *metrics.ResolutionMetrics) Option {
	return func(s *LocationService) { s.metrics = m }
}

type subscription struct {
	id int
	fn Listener
}

// LocationService owns the in-memory location and is the only writer to the store.
type LocationService struct {
	store    LocationStore
	geocoder Geocoder
	locator  geolocation.Locator
	timeout  time.Duration
	metrics  *metrics.ResolutionMetrics
	flight   singleflight.Group

	// commitMu orders transitions: a store write, the state change that
	// follows it and the listener calls all happen under it.
	commitMu   sync.Mutex
	generation uint64

	mu        sync.Mutex
	state     State
	loc       *models.Location
	lastErr   string
	listeners []subscription
	nextID    int
}

// NewLocationService creates an uninitialized engine. Call Init before use.
func NewLocationService(store LocationStore, geocoder Geocoder, locator geolocation.Locator, opts ...Option) *LocationService {
	s := &LocationService{
		store:    store,
		geocoder: geocoder,
		locator:  locator,
		timeout:  geolocation.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Init loads the persisted record once. Later calls return the current snapshot.
func (s *LocationService) Init(ctx context.Context) Snapshot {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()

	if snap := s.Snapshot(); snap.Initialized() {
		return snap
	}

	loc, ok := s.store.Load(ctx)
	snap := s.transition(EventInitialized, func() {
		if ok {
			s.state = Resolved
			s.loc = loc
		} else {
			s.state = Empty
		}
	})
	log.Info().Str("state", snap.State.String()).Msg("service: location initialized")
	return snap
}

// Snapshot returns the current state.
func (s *LocationService) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *LocationService) snapshotLocked() Snapshot {
	return Snapshot{State: s.state, Location: s.loc.Clone(), LastError: s.lastErr}
}

// Subscribe registers fn for every transition and returns a func that removes it.
// Listeners are called synchronously in transition order and must not call
// methods that change the location.
func (s *LocationService) Subscribe(fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription{id: id, fn: fn})
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.listeners {
			if sub.id == id {
				s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
				return
			}
		}
	}
}

// transition applies a state change and notifies listeners. Callers hold commitMu.
func (s *LocationService) transition(ev Event, apply func()) Snapshot {
	s.mu.Lock()
	apply()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.emit(ev, snap)
	return snap
}

func (s *LocationService) emit(ev Event, snap Snapshot) {
	s.metrics.ObserveEvent(ev.String())

	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		listeners[i] = sub.fn
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(ev, snap)
	}
}

// RequestDeviceLocation resolves the device position to a place and persists it.
// Concurrent calls share one platform request. On failure the prior state is
// kept and the error is available through Message. A position that resolves to
// no city or state returns the coordinates-only record with ErrLocationUnresolved;
// it is not persisted.
func (s *LocationService) RequestDeviceLocation(ctx context.Context) (*models.Location, error) {
	if !s.Snapshot().Initialized() {
		return nil, ErrNotInitialized
	}

	ch := s.flight.DoChan("device", func() (any, error) {
		return s.resolve(context.WithoutCancel(ctx), "device", s.fromDevice)
	})

	select {
	case res := <-ch:
		loc, _ := res.Val.(*models.Location)
		return loc.Clone(), res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *LocationService) fromDevice(ctx context.Context) (*models.Location, error) {
	coords, err := s.locate(ctx)
	if err != nil {
		return nil, err
	}

	addr := s.geocoder.ReverseGeocode(ctx, coords.Latitude, coords.Longitude)
	loc := &models.Location{
		Coordinates: &coords,
		City:        addr.City,
		State:       addr.State,
		Country:     addr.Country,
	}
	if loc.IsEmpty() {
		return loc, ErrLocationUnresolved
	}
	return loc, nil
}

// locate enforces the timeout itself, so a locator that never answers still
// yields ErrTimeout.
func (s *LocationService) locate(ctx context.Context) (models.Coordinates, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type result struct {
		coords models.Coordinates
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := s.locator.Locate(ctx, geolocation.Options{HighAccuracy: true, Timeout: s.timeout})
		ch <- result{coords: c, err: err}
	}()

	select {
	case r := <-ch:
		return r.coords, geolocation.Classify(r.err)
	case <-ctx.Done():
		return models.Coordinates{}, geolocation.ErrTimeout
	}
}

// SetPincode resolves a 6-digit pincode and makes it the current location.
func (s *LocationService) SetPincode(ctx context.Context, pincode string) (*models.Location, error) {
	if !s.Snapshot().Initialized() {
		return nil, ErrNotInitialized
	}
	if !geocoding.ValidPincode(pincode) {
		return nil, ErrInvalidPincode
	}
	return s.resolve(ctx, "pincode", func(ctx context.Context) (*models.Location, error) {
		loc, ok := s.geocoder.ForwardGeocode(ctx, pincode)
		if !ok {
			return nil, ErrPincodeNotFound
		}
		return loc, nil
	})
}

// SetPlace resolves an autocomplete place and makes it the current location.
func (s *LocationService) SetPlace(ctx context.Context, placeID string) (*models.Location, error) {
	if !s.Snapshot().Initialized() {
		return nil, ErrNotInitialized
	}
	return s.resolve(ctx, "place", func(ctx context.Context) (*models.Location, error) {
		place, ok := s.geocoder.PlaceDetails(ctx, placeID)
		if !ok {
			return nil, ErrPlaceNotFound
		}
		loc := place.Location()
		if loc.IsEmpty() {
			return nil, ErrPlaceNotFound
		}
		return loc, nil
	})
}

// resolve runs lookup in the Resolving state and commits its result. A
// result that arrives after Reset is discarded.
func (s *LocationService) resolve(ctx context.Context, source string, lookup func(context.Context) (*models.Location, error)) (*models.Location, error) {
	s.commitMu.Lock()
	if !s.Snapshot().Initialized() {
		s.commitMu.Unlock()
		return nil, ErrNotInitialized
	}
	gen := s.generation
	var prior State
	s.transition(EventResolving, func() {
		prior = s.state
		s.state = Resolving
		s.lastErr = ""
	})
	s.commitMu.Unlock()

	loc, err := lookup(ctx)

	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if s.generation != gen {
		log.Debug().Str("source", source).Msg("service: dropping resolution started before reset")
		return nil, fmt.Errorf("%w: reset during %s resolution", ErrNotInitialized, source)
	}
	if err == nil {
		err = s.persistLocked(ctx, loc)
	}
	if err != nil {
		s.failLocked(prior, source, err)
		return loc, err
	}
	return loc.Clone(), nil
}

func (s *LocationService) failLocked(prior State, source string, err error) {
	s.metrics.ObserveFailure(reason(err))
	log.Warn().Err(err).Str("source", source).Msg("service: location resolution failed")
	s.transition(EventFailed, func() {
		if s.state == Resolving {
			s.state = prior
		}
		s.lastErr = Message(err)
	})
}

// persistLocked writes loc and then publishes it. Holding commitMu across
// both keeps storage and the in-memory state in step.
func (s *LocationService) persistLocked(ctx context.Context, loc *models.Location) error {
	if err := s.store.Save(ctx, loc); err != nil {
		return fmt.Errorf("service: persist location: %w", err)
	}
	s.transition(EventResolved, func() {
		s.state = Resolved
		s.loc = loc.Clone()
		s.lastErr = ""
	})
	return nil
}

// SetLocation accepts a manually selected location. An empty record clears
// the current location.
func (s *LocationService) SetLocation(ctx context.Context, loc *models.Location) (*models.Location, error) {
	if loc.IsEmpty() {
		return nil, s.ClearLocation(ctx)
	}

	loc = loc.Clone()
	loc.City = strings.TrimSpace(loc.City)
	loc.State = strings.TrimSpace(loc.State)
	loc.Country = strings.TrimSpace(loc.Country)

	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if !s.Snapshot().Initialized() {
		return nil, ErrNotInitialized
	}
	if err := s.persistLocked(ctx, loc); err != nil {
		return nil, err
	}
	return loc.Clone(), nil
}

// ClearLocation removes the current location. Calling it repeatedly is the
// same as calling it once.
func (s *LocationService) ClearLocation(ctx context.Context) error {
	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	if !s.Snapshot().Initialized() {
		return ErrNotInitialized
	}
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("service: clear location: %w", err)
	}
	s.transition(EventCleared, func() {
		s.state = Empty
		s.loc = nil
		s.lastErr = ""
	})
	return nil
}

// Reset returns the engine to Uninitialized without touching storage.
// Resolutions still in flight are discarded when they finish.
func (s *LocationService) Reset() {
	s.flight.Forget("device")

	s.commitMu.Lock()
	defer s.commitMu.Unlock()
	s.generation++
	s.transition(EventReset, func() {
		s.state = Uninitialized
		s.loc = nil
		s.lastErr = ""
	})
}

// Message converts a resolution error into text suitable for the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, geolocation.ErrPermissionDenied):
		return "Location permission was denied. Enter your pincode or search for your city instead."
	case errors.Is(err, geolocation.ErrTimeout):
		return "Detecting your location timed out. Please try again or enter it manually."
	case errors.Is(err, geolocation.ErrPositionUnavailable):
		return "Your location could not be determined. Please enter it manually."
	case errors.Is(err, ErrLocationUnresolved):
		return "We could not find a city for your current position. Please enter it manually."
	case errors.Is(err, ErrInvalidPincode):
		return "Please enter a valid 6-digit pincode."
	case errors.Is(err, ErrPincodeNotFound):
		return "Pincode not recognized."
	case errors.Is(err, ErrPlaceNotFound):
		return "That place could not be found."
	}
	return "Could not update your location. Please try again."
}

func reason(err error) string {
	switch {
	case errors.Is(err, geolocation.ErrPermissionDenied):
		return "permission_denied"
	case errors.Is(err, geolocation.ErrTimeout):
		return "timeout"
	case errors.Is(err, geolocation.ErrPositionUnavailable):
		return "position_unavailable"
	case errors.Is(err, ErrLocationUnresolved):
		return "unresolved"
	case errors.Is(err, ErrPincodeNotFound):
		return "pincode_not_found"
	case errors.Is(err, ErrPlaceNotFound):
		return "place_not_found"
	}
	return "storage"
}
