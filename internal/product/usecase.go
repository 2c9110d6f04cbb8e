package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-gate/internal/model"
	"github.com/fekuna/omnipos-catalog-gate/internal/webhook"
)

type UseCase interface {
	Run(ctx context.Context) (*model.Run, error)
}

// Webhooks are the automation endpoints the runner drives.
type Webhooks interface {
	FieldChanged(ctx context.Context, fc webhook.FieldChange) error
	RecomputeUnitPrice(ctx context.Context, productID string) error
	ConfirmItems(ctx context.Context, p webhook.ConfirmPayload) error
}

type Notifier interface {
	Notify(ctx context.Context, report string, ok bool) error
}
