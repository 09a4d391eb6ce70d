package cache

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jszwec/csvutil"

	"bustrails.opentransit.org/internal/models"
)

// writeCSV writes the points as delimited text with a header row, the last
// resort of the writer chain. The column set matches the parquet artifact.
func writeCSV(path string, points []models.TracePoint) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating csv artifact: %w", err)
	}

	defer func() {
		if err != nil {
			os.Remove(path) // nolint:errcheck
		}
	}()

	w := csv.NewWriter(f)
	enc := csvutil.NewEncoder(w)

	if err = enc.EncodeHeader(models.TracePoint{}); err != nil {
		f.Close() // nolint:errcheck
		return fmt.Errorf("error writing csv header: %w", err)
	}
	for _, p := range points {
		if err = enc.Encode(p); err != nil {
			f.Close() // nolint:errcheck
			return fmt.Errorf("error writing csv row: %w", err)
		}
	}

	w.Flush()
	if err = w.Error(); err != nil {
		f.Close() // nolint:errcheck
		return fmt.Errorf("error flushing csv artifact: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("error closing csv artifact: %w", err)
	}
	return nil
}

func readCSV(path string) ([]models.TracePoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening csv artifact: %w", err)
	}
	defer f.Close() // nolint:errcheck

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return []models.TracePoint{}, nil
		}
		return nil, fmt.Errorf("error reading csv header: %w", err)
	}

	points := []models.TracePoint{}
	for {
		var p models.TracePoint
		err := dec.Decode(&p)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error decoding csv row: %w", err)
		}
		points = append(points, p)
	}
	return points, nil
}
