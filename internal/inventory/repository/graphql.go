package repository

import (
	"context"
	"fmt"

	"github.com/fekuna/omnipos-catalog-gate/internal/gql"
	"github.com/fekuna/omnipos-catalog-gate/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-gate/internal/model"
)

// ZeroChunkSize is the largest batch the on-hand mutation accepts.
const ZeroChunkSize = 200

const locationsQuery = `query Locations($first: Int!, $after: String) {
  locations(first: $first, after: $after) {
    nodes { id name }
    pageInfo { hasNextPage endCursor }
  }
}`

const setOnHandMutation = `mutation ZeroOnHand($input: InventorySetOnHandQuantitiesInput!) {
  inventorySetOnHandQuantities(input: $input) {
    userErrors { field message }
  }
}`

const itemUpdateMutation = `mutation SetOrigin($id: ID!, $input: InventoryItemInput!) {
  inventoryItemUpdate(id: $id, input: $input) {
    inventoryItem { id }
    userErrors { field message }
  }
}`

type GraphQLRepository struct {
	client   gql.Executor
	pageSize int
}

func NewGraphQLRepository(client gql.Executor, pageSize int) *GraphQLRepository {
	if pageSize <= 0 {
		pageSize = 50
	}
	return &GraphQLRepository{client: client, pageSize: pageSize}
}

func (r *GraphQLRepository) Locations(ctx context.Context) ([]model.Location, error) {
	fetch := func(ctx context.Context, cursor string) (gql.Page[model.Location], error) {
		vars := map[string]any{"first": r.pageSize}
		if cursor != "" {
			vars["after"] = cursor
		}
		var out struct {
			Locations gql.Connection[model.Location] `json:"locations"`
		}
		if err := r.client.Do(ctx, locationsQuery, vars, &out); err != nil {
			return gql.Page[model.Location]{}, fmt.Errorf("fetch locations: %w", err)
		}
		return out.Locations.Page(), nil
	}
	return gql.CollectAll(ctx, fetch)
}

type quantityInput struct {
	InventoryItemID string `json:"inventoryItemId"`
	LocationID      string `json:"locationId"`
	Quantity        int    `json:"quantity"`
}

// ZeroOnHand returns the number of pairs written.
func (r *GraphQLRepository) ZeroOnHand(ctx context.Context, input *dto.ZeroOnHandInput) (int, error) {
	var pairs []quantityInput
	for _, item := range input.ItemIDs {
		for _, loc := range input.LocationIDs {
			pairs = append(pairs, quantityInput{InventoryItemID: item, LocationID: loc})
		}
	}

	written := 0
	for start := 0; start < len(pairs); start += ZeroChunkSize {
		end := min(start+ZeroChunkSize, len(pairs))
		vars := map[string]any{
			"input": map[string]any{
				"reason":               "correction",
				"referenceDocumentUri": input.Reference,
				"setQuantities":        pairs[start:end],
			},
		}
		var out struct {
			Result struct {
				UserErrors []gql.UserError `json:"userErrors"`
			} `json:"inventorySetOnHandQuantities"`
		}
		if err := r.client.Do(ctx, setOnHandMutation, vars, &out); err != nil {
			return written, fmt.Errorf("zero on-hand: %w", err)
		}
		if err := gql.CheckUserErrors("inventorySetOnHandQuantities", out.Result.UserErrors); err != nil {
			return written, err
		}
		written = end
	}
	return written, nil
}

func (r *GraphQLRepository) SetCountryOfOrigin(ctx context.Context, itemID, countryCode string) error {
	vars := map[string]any{
		"id":    itemID,
		"input": map[string]any{"countryCodeOfOrigin": countryCode},
	}
	var out struct {
		Result struct {
			UserErrors []gql.UserError `json:"userErrors"`
		} `json:"inventoryItemUpdate"`
	}
	if err := r.client.Do(ctx, itemUpdateMutation, vars, &out); err != nil {
		return fmt.Errorf("update inventory item %s: %w", itemID, err)
	}
	return gql.CheckUserErrors("inventoryItemUpdate", out.Result.UserErrors)
}
