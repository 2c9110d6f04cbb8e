package inventory

import (
	"context"

	"github.com/fekuna/omnipos-catalog-gate/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-gate/internal/model"
)

type Repository interface {
	// Locations
	Locations(ctx context.Context) ([]model.Location, error)

	// Stock
	ZeroOnHand(ctx context.Context, input *dto.ZeroOnHandInput) (int, error)

	// Inventory items
	SetCountryOfOrigin(ctx context.Context, itemID, countryCode string) error
}
