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

	"places-api/internal/config"
	"places-api/internal/database"
	"places-api/internal/models"
	"places-api/internal/repository"

	"github.com/rs/zerolog/log"
)

// Expected CSV header.
var header = []string{"name", "description", "latitude", "longitude"}

func main() {
	file := flag.String("file", "", "Path to the CSV file to import")
	configDir := flag.String("config", "configs", "Directory holding app.env")
	migrate := flag.Bool("migrate", true, "Apply database migrations before importing")
	flag.Parse()

	if *file == "" {
		fmt.Println("Error: --file flag is required")
		os.Exit(1)
	}

	log.Info().Str("file", *file).Msg("starting import")

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot open file")
	}
	defer f.Close()

	places, err := parseCSV(f)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot parse csv")
	}

	log.Info().Int("records", len(places)).Msg("parsed records")

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	if *migrate {
		if err := database.Migrate(cfg.DBSource); err != nil {
			log.Fatal().Err(err).Msg("cannot migrate db")
		}
	}

	ctx := context.Background()
	conn, err := database.NewPool(ctx, cfg.DBSource, cfg.DBMaxConns)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot connect to db")
	}
	defer conn.Close()

	n, err := repository.NewPostgresRepository(conn).CreateMany(ctx, places)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot insert records")
	}

	log.Info().Int("records", n).Msg("import complete")
}

// parseCSV reads name,description,latitude,longitude rows after a header line.
func parseCSV(r io.Reader) ([]models.Place, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(header)
	reader.TrimLeadingSpace = true

	first, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, col := range header {
		if !strings.EqualFold(strings.TrimSpace(first[i]), col) {
			return nil, fmt.Errorf("unexpected header %v, expected %v", first, header)
		}
	}

	var places []models.Place
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		name := strings.TrimSpace(record[0])
		if name == "" {
			return nil, fmt.Errorf("line %d: name is required", line)
		}

		lat, err := strconv.ParseFloat(record[2], 64)
		if err != nil || lat < -90 || lat > 90 {
			return nil, fmt.Errorf("line %d: invalid latitude: %s", line, record[2])
		}

		lon, err := strconv.ParseFloat(record[3], 64)
		if err != nil || lon < -180 || lon > 180 {
			return nil, fmt.Errorf("line %d: invalid longitude: %s", line, record[3])
		}

		places = append(places, models.Place{
			Name:        name,
			Description: record[1],
			Geom:        models.NewPoint(lon, lat),
		})
	}

	return places, nil
}
