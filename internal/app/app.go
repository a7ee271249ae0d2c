// Package app builds the location core from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"location-api/internal/config"
	"location-api/internal/geocoding"
	"location-api/internal/geolocation"
	"location-api/internal/observability/metrics"
	"location-api/internal/repository"
	"location-api/internal/service"
	"location-api/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// KeyPrefix namespaces client state in Redis.
const KeyPrefix = "location-api:"

// App holds the constructed components. Close releases connections.
type App struct {
	Engine   *service.LocationService
	Gate     *service.Gate
	Gateway  *geocoding.Gateway
	Loader   *geocoding.Loader
	Tokens   *storage.TokenStore
	Registry *prometheus.Registry

	closers []func()
}

// New connects storage, builds the engine and gate, and initializes the
// engine from the persisted record.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{Registry: prometheus.NewRegistry()}

	kv, directory, err := a.connect(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	geoMetrics := metrics.NewGeocodingMetrics(a.Registry)
	a.Loader = geocoding.NewLoader(
		geocoding.ClientLoader(cfg.MapsAPIKey, cfg.MapsBaseURL, http.DefaultClient),
		cfg.MapsLoadTimeout,
		geoMetrics,
	)

	opts := []geocoding.Option{geocoding.WithMetrics(geoMetrics)}
	if directory != nil {
		opts = append(opts, geocoding.WithDirectory(directory))
	}
	a.Gateway = geocoding.NewGateway(a.Loader, opts...)

	a.Engine = service.NewLocationService(
		storage.NewLocationStore(kv),
		a.Gateway,
		geolocation.NewGoogleLocator(a.Loader),
		service.WithTimeout(cfg.GeolocationTimeout),
		service.WithMetrics(metrics.NewResolutionMetrics(a.Registry)),
	)
	a.Gate = service.NewGate(a.Engine)
	a.Tokens = storage.NewTokenStore(kv)

	a.Engine.Init(ctx)
	return a, nil
}

func (a *App) connect(ctx context.Context, cfg *config.Config) (repository.KeyValue, geocoding.Directory, error) {
	var (
		kv        repository.KeyValue
		directory geocoding.Directory
	)

	if cfg.DBSource != "" {
		pool, err := pgxpool.New(ctx, cfg.DBSource)
		if err != nil {
			return nil, nil, fmt.Errorf("app: cannot connect to db: %w", err)
		}
		a.closers = append(a.closers, pool.Close)

		repo := repository.NewPostgresRepository(pool)
		if err := pool.Ping(ctx); err != nil {
			if cfg.StorageBackend == config.StoragePostgres {
				return nil, nil, fmt.Errorf("app: ping db: %w", err)
			}
			log.Warn().Err(err).Msg("app: pincode directory unavailable")
		} else {
			directory = repo
		}

		if cfg.StorageBackend == config.StoragePostgres {
			if err := repo.EnsureSchema(ctx); err != nil {
				return nil, nil, err
			}
			kv = repo
		}
	}

	switch cfg.StorageBackend {
	case config.StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, func() { client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, nil, fmt.Errorf("app: ping redis: %w", err)
		}
		kv = repository.NewRedisStore(client, KeyPrefix)
	case config.StoragePostgres:
		if kv == nil {
			return nil, nil, errors.New("app: postgres storage requires DB_SOURCE")
		}
	case config.StorageNone:
		log.Warn().Msg("app: no durable storage, location will not survive restarts")
	}

	return kv, directory, nil
}

// Close releases connections in reverse order.
func (a *App) Close() {
	if a.Gate != nil {
		a.Gate.Detach()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
