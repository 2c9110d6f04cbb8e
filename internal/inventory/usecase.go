package inventory

import (
	"context"

	"github.com/fekuna/omnipos-catalog-gate/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-gate/internal/model"
)

type UseCase interface {
	ZeroProductStock(ctx context.Context, p *model.Product) (*dto.ZeroResult, error)
	SyncOrigin(ctx context.Context, p *model.Product) (int, error)
}
