// Package store provides persistence for price series and ranking snapshots.
package store

import (
	"context"
	"time"

	"momentum-options/internal/models"
)

// PriceHistory supplies and records adjusted close series.
type PriceHistory interface {
	SavePrices(ctx context.Context, ticker string, points []models.PricePoint) error
	// GetPrices returns the closes of ticker in [from, to], oldest first.
	GetPrices(ctx context.Context, ticker string, from, to time.Time) ([]models.PricePoint, error)
	// LatestPriceDate returns the date of the newest stored close, or the
	// zero time when the ticker has none.
	LatestPriceDate(ctx context.Context, ticker string) (time.Time, error)
}

// HistoryStore persists ranked batches.
type HistoryStore interface {
	// AppendSnapshot assigns an ID and creation time and stores snap.
	AppendSnapshot(ctx context.Context, snap *models.Snapshot) error
	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]models.Snapshot, error)
	GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error)
	LatestSnapshot(ctx context.Context, strategy models.Strategy) (*models.Snapshot, error)
}

// PanelStore keeps the default ticker panel used when a batch command is
// given no tickers.
type PanelStore interface {
	// AddToPanel adds tickers, ignoring ones already present.
	AddToPanel(ctx context.Context, tickers []string) error
	// RemoveFromPanel removes tickers and returns how many were present.
	RemoveFromPanel(ctx context.Context, tickers []string) (int, error)
	// PanelTickers returns the panel in the order tickers were added.
	PanelTickers(ctx context.Context) ([]string, error)
}

// Store is the full persistence surface.
type Store interface {
	PriceHistory
	HistoryStore
	PanelStore
	Tickers(ctx context.Context) ([]string, error)
	Close() error
}

// SnapshotFilter represents filters for listing snapshots.
type SnapshotFilter struct {
	Strategy models.Strategy
	Limit    int
}
