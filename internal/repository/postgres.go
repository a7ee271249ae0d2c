package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"location-api/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of *pgxpool.Pool used by the repository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// nearestRadiusMeters bounds the nearest-pincode lookup.
const nearestRadiusMeters = 10000

// PostgresRepository stores client state and serves the offline pincode directory.
type PostgresRepository struct {
	db DBTX
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the client storage table.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS client_storage (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("repository: failed to create client_storage: %w", err)
	}
	return nil
}

// Get returns the value stored under key, or ErrNotFound.
func (r *PostgresRepository) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx, `SELECT value FROM client_storage WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("repository: failed to read %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key, replacing any prior value.
func (r *PostgresRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO client_storage (key, value, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`, key, value)
	if err != nil {
		return fmt.Errorf("repository: failed to write %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *PostgresRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM client_storage WHERE key = $1`, key); err != nil {
		return fmt.Errorf("repository: failed to delete %q: %w", key, err)
	}
	return nil
}

const pincodeColumns = `
			id,
			pincode,
			office,
			district,
			state,
			ST_Y(geom::geometry) AS latitude,
			ST_X(geom::geometry) AS longitude`

// FindByPincode returns the first post office registered under a 6-digit pincode.
func (r *PostgresRepository) FindByPincode(ctx context.Context, pincode string) (*models.PincodeEntry, error) {
	sql := `SELECT` + pincodeColumns + `
		FROM pincodes
		WHERE pincode = $1
		ORDER BY office
		LIMIT 1
	`

	entry, err := scanPincode(r.db.QueryRow(ctx, sql, strings.TrimSpace(pincode)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to execute pincode query: %w", err)
	}
	return entry, nil
}

// FindNearestPincode performs a spatial query to find the nearest post office to the given coordinates
func (r *PostgresRepository) FindNearestPincode(ctx context.Context, lat, lon float64) (*models.PincodeEntry, error) {
	sql := `SELECT` + pincodeColumns + `
		FROM pincodes
		WHERE ST_DWithin(geom, ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography, $3)
		ORDER BY geom <-> ST_SetSRID(ST_MakePoint($2, $1), 4326)::geography
		LIMIT 1
	`

	entry, err := scanPincode(r.db.QueryRow(ctx, sql, lat, lon, nearestRadiusMeters))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("repository: failed to execute spatial query: %w", err)
	}
	return entry, nil
}

// SearchOffices performs a prefix search on post office and district names.
func (r *PostgresRepository) SearchOffices(ctx context.Context, query string, limit int) ([]models.PincodeEntry, error) {
	sql := `SELECT` + pincodeColumns + `
		FROM pincodes
		WHERE office ILIKE $1 || '%' OR district ILIKE $1 || '%'
		ORDER BY district, office
		LIMIT $2
	`

	rows, err := r.db.Query(ctx, sql, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to execute search query: %w", err)
	}
	defer rows.Close()

	var entries []models.PincodeEntry
	for rows.Next() {
		entry, err := scanPincode(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan pincode: %w", err)
		}
		entries = append(entries, *entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating rows: %w", err)
	}

	return entries, nil
}

func scanPincode(row pgx.Row) (*models.PincodeEntry, error) {
	var e models.PincodeEntry
	err := row.Scan(
		&e.ID,
		&e.Pincode,
		&e.Office,
		&e.District,
		&e.State,
		&e.Latitude,
		&e.Longitude,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
