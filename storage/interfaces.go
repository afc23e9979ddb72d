package storage

import (
	"context"

	"deals-dashboard/models"
)

// TableSource is the interface any deals or tiers backend must satisfy.
// Implementations return every cell as a string.
type TableSource interface {
	Load(ctx context.Context) (*models.Table, error)
}

// SummaryWriter is the interface for exporting county summaries.
type SummaryWriter interface {
	WriteSummaries(report *models.SummaryReport) error
	Close() error
}
