package cache

import (
	"fmt"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"bustrails.opentransit.org/internal/models"
)

// writeParquet writes the points as a parquet file with the given codec. A
// partial file from a failed write is removed so a later fallback does not
// leave a corrupt primary artifact behind.
func writeParquet(path string, points []models.TracePoint, codec compress.Codec) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating parquet artifact: %w", err)
	}

	defer func() {
		if err != nil {
			os.Remove(path) // nolint:errcheck
		}
	}()

	w := parquet.NewGenericWriter[models.TracePoint](f, parquet.Compression(codec))
	if len(points) > 0 {
		if _, err = w.Write(points); err != nil {
			f.Close() // nolint:errcheck
			return fmt.Errorf("error writing parquet rows: %w", err)
		}
	}
	if err = w.Close(); err != nil {
		f.Close() // nolint:errcheck
		return fmt.Errorf("error closing parquet writer: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("error closing parquet artifact: %w", err)
	}
	return nil
}

func readParquet(path string) ([]models.TracePoint, error) {
	points, err := parquet.ReadFile[models.TracePoint](path)
	if err != nil {
		return nil, fmt.Errorf("error reading parquet artifact: %w", err)
	}
	return points, nil
}
