package geocoding

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"location-api/internal/observability/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

func testClient(t *testing.T) *maps.Client {
	t.Helper()
	c, err := maps.NewClient(maps.WithAPIKey("test-key"))
	require.NoError(t, err)
	return c
}

func TestLoader_SingleInFlightLoad(t *testing.T) {
	client := testClient(t)
	release := make(chan struct{})
	var loads atomic.Int32

	loader := NewLoader(func(ctx context.Context) (*maps.Client, error) {
		loads.Add(1)
		<-release
		return client, nil
	}, time.Second, metrics.NewGeocodingMetrics(prometheus.NewRegistry()))

	var wg sync.WaitGroup
	results := make([]*maps.Client, 2)
	errs := make([]error, 2)
	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = loader.Client(context.Background())
		}()
	}

	require.Eventually(t, func() bool { return loader.State() == Loading }, time.Second, time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), loads.Load())
	for i := range 2 {
		assert.NoError(t, errs[i])
		assert.Same(t, client, results[i])
	}
	assert.Equal(t, Ready, loader.State())

	_, err := loader.Client(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int32(1), loads.Load())
}

func TestLoader_FailureIsMemoized(t *testing.T) {
	var loads atomic.Int32
	boom := errors.New("script blocked")
	loader := NewLoader(func(ctx context.Context) (*maps.Client, error) {
		loads.Add(1)
		return nil, boom
	}, time.Second, nil)

	_, err := loader.Client(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
	assert.ErrorIs(t, err, boom)

	_, err = loader.Client(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), loads.Load())
	assert.Equal(t, Failed, loader.State())
}

func TestLoader_BoundedWait(t *testing.T) {
	never := make(chan struct{})
	t.Cleanup(func() { close(never) })

	loader := NewLoader(func(ctx context.Context) (*maps.Client, error) {
		<-never
		return nil, nil
	}, 20*time.Millisecond, nil)

	_, err := loader.Client(context.Background())
	assert.ErrorIs(t, err, ErrLoadTimeout)
	assert.Equal(t, Failed, loader.State())
}

func TestLoader_CallerContextCancelled(t *testing.T) {
	release := make(chan struct{})
	client := testClient(t)
	loader := NewLoader(func(ctx context.Context) (*maps.Client, error) {
		<-release
		return client, nil
	}, time.Second, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := loader.Client(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	got, err := loader.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, client, got)
}

func TestLoader_NilClientIsFailure(t *testing.T) {
	loader := NewLoader(func(ctx context.Context) (*maps.Client, error) {
		return nil, nil
	}, time.Second, nil)

	_, err := loader.Client(context.Background())
	assert.ErrorIs(t, err, ErrNotReady)
}

func TestLoadState_String(t *testing.T) {
	assert.Equal(t, "not_loaded", NotLoaded.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "LoadState(9)", LoadState(9).String())
}
