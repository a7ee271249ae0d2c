package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"location-api/internal/observability/metrics"

	"github.com/rs/zerolog/log"
	"googlemaps.github.io/maps"
)

// DefaultLoadTimeout bounds how long a load may take before it is marked failed.
const DefaultLoadTimeout = 8 * time.Second

var (
	// ErrNotReady is returned by operations attempted while the mapping library is unavailable.
	ErrNotReady = errors.New("geocoding: mapping library not ready")
	// ErrLoadTimeout marks a load that did not complete within the bound.
	ErrLoadTimeout = errors.New("geocoding: mapping library load timed out")
)

// LoadState is the readiness of the mapping library.
type LoadState int

const (
	NotLoaded LoadState = iota
	Loading
	Ready
	Failed
)

var loadStateNames = []string{"not_loaded", "loading", "ready", "failed"}

func (s LoadState) String() string {
	if int(s) < len(loadStateNames) {
		return loadStateNames[s]
	}
	return fmt.Sprintf("LoadState(%d)", int(s))
}

// LoadFunc produces a ready client.
type LoadFunc func(ctx context.Context) (*maps.Client, error)

// ClientLoader returns a LoadFunc that builds a Google Maps client.
// baseURL and httpClient are optional.
func ClientLoader(apiKey, baseURL string, httpClient *http.Client) LoadFunc {
	return func(ctx context.Context) (*maps.Client, error) {
		if apiKey == "" {
			return nil, errors.New("geocoding: maps API key is not configured")
		}
		opts := []maps.ClientOption{maps.WithAPIKey(apiKey)}
		if baseURL != "" {
			opts = append(opts, maps.WithBaseURL(baseURL))
		}
		if httpClient != nil {
			opts = append(opts, maps.WithHTTPClient(httpClient))
		}
		client, err := maps.NewClient(opts...)
		if err != nil {
			return nil, fmt.Errorf("geocoding: create maps client: %w", err)
		}
		return client, ctx.Err()
	}
}

type loadResult struct {
	client *maps.Client
	err    error
}

// Loader loads the mapping library at most once per lifetime.
// The first caller starts the load, concurrent callers wait for the same
// outcome, and the outcome is kept.
type Loader struct {
	load    LoadFunc
	timeout time.Duration
	metrics *metrics.GeocodingMetrics

	mu     sync.Mutex
	state  LoadState
	client *maps.Client
	err    error
	done   chan struct{}
}

// NewLoader creates a loader. A non-positive timeout uses DefaultLoadTimeout.
func NewLoader(load LoadFunc, timeout time.Duration, m *metrics.GeocodingMetrics) *Loader {
	if timeout <= 0 {
		timeout = DefaultLoadTimeout
	}
	l := &Loader{load: load, timeout: timeout, metrics: m}
	m.SetLoaderState(NotLoaded.String(), loadStateNames)
	return l
}

// State returns the current readiness.
func (l *Loader) State() LoadState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Client waits for the library and returns the client, or the load error.
func (l *Loader) Client(ctx context.Context) (*maps.Client, error) {
	l.mu.Lock()
	switch l.state {
	case Ready:
		c := l.client
		l.mu.Unlock()
		return c, nil
	case Failed:
		err := l.err
		l.mu.Unlock()
		return nil, err
	case NotLoaded:
		l.state = Loading
		l.done = make(chan struct{})
		l.metrics.SetLoaderState(Loading.String(), loadStateNames)
		go l.run()
	}
	done := l.done
	l.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Ready {
		return l.client, nil
	}
	return nil, l.err
}

func (l *Loader) run() {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	results := make(chan loadResult, 1)
	go func() {
		c, err := l.load(ctx)
		results <- loadResult{client: c, err: err}
	}()

	var res loadResult
	select {
	case res = <-results:
	case <-ctx.Done():
		// Re-check once: the load may have finished right at the bound.
		select {
		case res = <-results:
		default:
			res = loadResult{err: ErrLoadTimeout}
		}
	}
	if res.err == nil && res.client == nil {
		res.err = ErrNotReady
	}

	l.mu.Lock()
	if res.err != nil {
		l.state = Failed
		l.err = fmt.Errorf("%w: %w", ErrNotReady, res.err)
		log.Warn().Err(res.err).Msg("geocoding: mapping library failed to load")
	} else {
		l.state = Ready
		l.client = res.client
		log.Debug().Msg("geocoding: mapping library ready")
	}
	l.metrics.SetLoaderState(l.state.String(), loadStateNames)
	close(l.done)
	l.mu.Unlock()
}
