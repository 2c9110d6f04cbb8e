package repository

import (
	"context"

	"github.com/fekuna/omnipos-catalog-gate/internal/model"
)

// Nop discards everything. Used when LEDGER_DRIVER=none.
type Nop struct{}

func (Nop) StartRun(context.Context, *model.Run) error { return nil }
func (Nop) FinishRun(context.Context, *model.Run) error { return nil }
func (Nop) RecentRuns(context.Context, int) ([]model.Run, error) { return nil, nil }
func (Nop) RecordOutcome(context.Context, *model.ProductOutcome) error { return nil }
func (Nop) Outcomes(context.Context, string) ([]model.ProductOutcome, error) { return nil, nil }
func (Nop) Close() error { return nil }
