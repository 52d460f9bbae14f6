package momentum

import "momentum-options/internal/models"

// MonthlyCloses keeps the last close of every calendar month in a daily
// series ordered oldest first.
func MonthlyCloses(points []models.PricePoint) []float64 {
	var closes []float64
	for i, p := range points {
		last := i == len(points)-1
		if last {
			closes = append(closes, p.AdjClose)
			break
		}
		next := points[i+1].Date
		if next.Year() != p.Date.Year() || next.Month() != p.Date.Month() {
			closes = append(closes, p.AdjClose)
		}
	}
	return closes
}
