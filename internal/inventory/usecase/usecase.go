package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fekuna/omnipos-catalog-gate/internal/inventory"
	"github.com/fekuna/omnipos-catalog-gate/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-gate/internal/logger"
	"github.com/fekuna/omnipos-catalog-gate/internal/model"
	"go.uber.org/zap"
)

type inventoryUseCase struct {
	repo   inventory.Repository
	logger logger.ZapLogger
	now    func() time.Time

	// location ids are loaded once per run and never refreshed
	mu          sync.Mutex
	locationIDs []string
}

func NewInventoryUseCase(repo inventory.Repository, log logger.ZapLogger) inventory.UseCase {
	return &inventoryUseCase{
		repo:   repo,
		logger: log,
		now:    time.Now,
	}
}

func (uc *inventoryUseCase) locations(ctx context.Context) ([]string, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	if uc.locationIDs != nil {
		return uc.locationIDs, nil
	}
	locs, err := uc.repo.Locations(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(locs))
	for _, l := range locs {
		ids = append(ids, l.ID)
	}
	uc.locationIDs = ids
	uc.logger.Debug("stock locations loaded", zap.Int("count", len(ids)))
	return ids, nil
}

func (uc *inventoryUseCase) ZeroProductStock(ctx context.Context, p *model.Product) (*dto.ZeroResult, error) {
	var items []string
	seen := make(map[string]bool)
	for _, v := range p.Variants {
		id := v.InventoryItem.ID
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		items = append(items, id)
	}

	locs, err := uc.locations(ctx)
	if err != nil {
		return nil, fmt.Errorf("zero stock for %s: %w", p.ID, err)
	}
	res := &dto.ZeroResult{Items: len(items), Locations: len(locs), Reference: dto.ReferenceURI(uc.now())}
	if len(items) == 0 || len(locs) == 0 {
		return res, nil
	}

	res.Pairs, err = uc.repo.ZeroOnHand(ctx, &dto.ZeroOnHandInput{
		ItemIDs:     items,
		LocationIDs: locs,
		Reference:   res.Reference,
	})
	if err != nil {
		return res, fmt.Errorf("zero stock for %s: %w", p.ID, err)
	}
	return res, nil
}

// SyncOrigin copies the product's origin code onto inventory items that have none.
func (uc *inventoryUseCase) SyncOrigin(ctx context.Context, p *model.Product) (int, error) {
	code := strings.ToUpper(strings.TrimSpace(p.CountryOfOrigin))
	if len(code) != 2 {
		if code != "" {
			uc.logger.Warn("origin is not an ISO country code, skipping item sync",
				zap.String("product_id", p.ID),
				zap.String("origin", p.CountryOfOrigin),
			)
		}
		return 0, nil
	}

	updated := 0
	seen := make(map[string]bool)
	for i := range p.Variants {
		item := &p.Variants[i].InventoryItem
		if item.ID == "" || seen[item.ID] || strings.TrimSpace(item.CountryOfOrigin) != "" {
			continue
		}
		seen[item.ID] = true
		if err := uc.repo.SetCountryOfOrigin(ctx, item.ID, code); err != nil {
			return updated, fmt.Errorf("sync origin for %s: %w", p.ID, err)
		}
		item.CountryOfOrigin = code
		updated++
	}
	return updated, nil
}
