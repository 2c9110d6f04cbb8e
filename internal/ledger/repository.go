package ledger

import (
	"context"

	"github.com/fekuna/omnipos-catalog-gate/internal/model"
)

type Repository interface {
	// Runs
	StartRun(ctx context.Context, run *model.Run) error
	FinishRun(ctx context.Context, run *model.Run) error
	RecentRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Per-product outcomes
	RecordOutcome(ctx context.Context, outcome *model.ProductOutcome) error
	Outcomes(ctx context.Context, runID string) ([]model.ProductOutcome, error)

	Close() error
}
