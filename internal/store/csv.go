package store

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	apperrors "momentum-options/internal/errors"
	"momentum-options/internal/models"
)

// Accepted date layouts in price files.
var csvDateLayouts = []string{"2006-01-02", "2006/01/02", "02/01/2006", time.RFC3339}

// PriceRow is one line of a price file: "date,adj_close".
type PriceRow struct {
	Date     string  `csv:"date"`
	AdjClose float64 `csv:"adj_close"`
}

// ReadPriceCSV parses a price file into a series sorted oldest first.
// Rows with a non-positive close are rejected.
func ReadPriceCSV(r io.Reader) ([]models.PricePoint, error) {
	var rows []*PriceRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse price csv: %w", err)
	}

	points := make([]models.PricePoint, 0, len(rows))
	for i, row := range rows {
		date, err := parseCSVDate(row.Date)
		if err != nil {
			return nil, apperrors.NewValidationError(fmt.Sprintf("row %d date", i+1), row.Date, "unrecognized date")
		}
		if row.AdjClose <= 0 {
			return nil, apperrors.NewValidationError(fmt.Sprintf("row %d adj_close", i+1), row.AdjClose, "must be positive")
		}
		points = append(points, models.PricePoint{Date: date, AdjClose: row.AdjClose})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return points, nil
}

// WritePriceCSV writes a series in the format ReadPriceCSV accepts.
func WritePriceCSV(w io.Writer, points []models.PricePoint) error {
	rows := make([]*PriceRow, len(points))
	for i, p := range points {
		rows[i] = &PriceRow{Date: p.Date.Format("2006-01-02"), AdjClose: p.AdjClose}
	}
	if err := gocsv.Marshal(rows, w); err != nil {
		return fmt.Errorf("failed to write price csv: %w", err)
	}
	return nil
}

func parseCSVDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range csvDateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return dayUTC(t), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
