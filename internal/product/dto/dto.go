package dto

import "github.com/fekuna/omnipos-catalog-gate/internal/model"

// ProductHeader is the cheap per-product row returned by the flagged scan.
type ProductHeader struct {
	ID             string
	Title          string
	Status         model.ProductStatus
	PendingChanges []string
}
