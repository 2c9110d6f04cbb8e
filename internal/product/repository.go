package product

import (
	"context"

	"github.com/fekuna/omnipos-catalog-gate/internal/gql"
	"github.com/fekuna/omnipos-catalog-gate/internal/model"
	"github.com/fekuna/omnipos-catalog-gate/internal/product/dto"
)

type Repository interface {
	// Scan
	FlaggedProducts(ctx context.Context, cursor string) (gql.Page[dto.ProductHeader], error)
	FindByID(ctx context.Context, id string) (*model.Product, error)

	// Cross-product lookups
	FindVariantsBySKU(ctx context.Context, sku string) ([]model.VariantRef, error)
	ProductTaxRate(ctx context.Context, productID string) (string, error)

	// Reference data
	Publications(ctx context.Context) ([]model.Publication, error)
	CatalogPublication(ctx context.Context, catalogTitle string) (string, error)
	Metaobject(ctx context.Context, objectType, handle string) (*model.Metaobject, error)

	// Core mutations
	SetStatus(ctx context.Context, id string, status model.ProductStatus) error
	SetPendingChanges(ctx context.Context, id string, labels []string) error
	SetMainItemConfirmed(ctx context.Context, id string, confirmed bool) error

	// Publishing
	PublishTo(ctx context.Context, id string, publicationIDs []string) error
}
