package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"location-api/internal/config"
	"location-api/internal/logging"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// PincodeRecord is one post office row of the India Post pincode directory.
type PincodeRecord struct {
	Pincode  string
	Office   string
	District string
	State    string
	Lat      float64
	Lon      float64
}

var requiredColumns = []string{"officename", "pincode", "district", "statename", "latitude", "longitude"}

func main() {
	file := flag.String("file", "", "Path to the pincode directory CSV")
	truncate := flag.Bool("truncate", false, "Remove existing rows before importing")
	flag.Parse()

	logging.Setup("info", true)

	if *file == "" {
		log.Fatal().Msg("--file flag is required")
	}

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open file")
	}
	defer f.Close()

	records, skipped, err := parseCSV(f)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot parse CSV")
	}
	log.Info().Int("records", len(records)).Int("skipped", skipped).Str("file", *file).Msg("parsed pincode directory")

	cfg, err := config.LoadConfig("configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, cfg.DBSource)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to db")
	}
	defer conn.Close(ctx)

	if err := createTableIfNotExists(ctx, conn); err != nil {
		log.Fatal().Err(err).Msg("cannot create table")
	}
	if *truncate {
		if _, err := conn.Exec(ctx, "TRUNCATE pincodes"); err != nil {
			log.Fatal().Err(err).Msg("cannot truncate table")
		}
	}

	n, err := insertRecords(ctx, conn, records)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot insert records")
	}
	log.Info().Int64("rows", n).Msg("import complete")
}

// parseCSV reads the directory by header name. Rows without usable
// coordinates are skipped and counted.
func parseCSV(r io.Reader) ([]PincodeRecord, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, 0, fmt.Errorf("missing column %q", name)
		}
	}

	var (
		records []PincodeRecord
		skipped int
	)
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read line %d: %w", line, err)
		}

		field := func(name string) string {
			if i := col[name]; i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		lat, latErr := strconv.ParseFloat(field("latitude"), 64)
		lon, lonErr := strconv.ParseFloat(field("longitude"), 64)
		pincode := field("pincode")
		if latErr != nil || lonErr != nil || len(pincode) != 6 || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
			skipped++
			continue
		}

		records = append(records, PincodeRecord{
			Pincode:  pincode,
			Office:   field("officename"),
			District: field("district"),
			State:    field("statename"),
			Lat:      lat,
			Lon:      lon,
		})
	}
	return records, skipped, nil
}

func createTableIfNotExists(ctx context.Context, conn *pgx.Conn) error {
	_, err := conn.Exec(ctx, `
	CREATE EXTENSION IF NOT EXISTS postgis;
	CREATE TABLE IF NOT EXISTS pincodes (
		id BIGSERIAL PRIMARY KEY,
		pincode CHAR(6) NOT NULL,
		office VARCHAR(255),
		district VARCHAR(255),
		state VARCHAR(255),
		geom GEOGRAPHY(POINT, 4326)
	);
	CREATE INDEX IF NOT EXISTS pincodes_geom_idx ON pincodes USING GIST (geom);
	CREATE INDEX IF NOT EXISTS pincodes_pincode_idx ON pincodes (pincode);
	`)
	return err
}

func insertRecords(ctx context.Context, conn *pgx.Conn, records []PincodeRecord) (int64, error) {
	return conn.CopyFrom(
		ctx,
		pgx.Identifier{"pincodes"},
		[]string{"pincode", "office", "district", "state", "geom"},
		pgx.CopyFromSlice(len(records), func(i int) ([]any, error) {
			r := records[i]
			geom := fmt.Sprintf("SRID=4326;POINT(%f %f)", r.Lon, r.Lat) // PostGIS order: lon lat
			return []any{r.Pincode, r.Office, r.District, r.State, geom}, nil
		}),
	)
}
