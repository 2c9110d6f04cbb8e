package usecase

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/fekuna/omnipos-catalog-gate/internal/compliance"
	"github.com/fekuna/omnipos-catalog-gate/internal/model"
	"github.com/fekuna/omnipos-catalog-gate/internal/sku"
	"github.com/fekuna/omnipos-catalog-gate/internal/webhook"
	"github.com/fekuna/omnipos-catalog-gate/internal/workflow"
	"go.uber.org/zap"
)

// Field keys of the unit metaobject.
const (
	unitQuantityField = "quantity"
	unitNameField     = "unit"
)

// execute applies the workflow plan. It returns false when a recoverable action failed;
// core mutation failures are returned as errors.
func (uc *productUseCase) execute(ctx context.Context, p *model.Product, res *sku.Resolution, result *model.ComplianceResult, report *compliance.Report) (bool, error) {
	plan := workflow.Decide(workflow.Input{
		Passed:         result.Passed,
		Status:         p.Status,
		MainItemHolder: result.MainItemHolder,
		MainConfirmed:  p.MainItemConfirmed,
		UnitLinked:     result.UnitLinked,
		Handshake:      uc.tenant.Rules.MainItemHandshake,
	})

	ok := true
	for _, a := range plan.Actions {
		switch a.Kind {
		case workflow.ActionSetStatus:
			if err := uc.repo.SetStatus(ctx, p.ID, a.Status); err != nil {
				return false, fmt.Errorf("set status of %s: %w", p.ID, err)
			}
			p.Status = a.Status
			report.Add("%s", plan.ReportLine())

		case workflow.ActionPublishAll:
			ids, err := uc.publications(ctx)
			if err == nil {
				err = uc.repo.PublishTo(ctx, p.ID, ids)
			}
			if aborts(err) {
				return false, err
			}
			if err != nil {
				ok = false
				report.Fail("Publishing to sales channels failed: %v", err)
				continue
			}
			report.Add("Action: Published to %d sales channel(s).", len(ids))

		case workflow.ActionEnsureRegionalCatalog:
			if uc.tenant.RegionalCatalog == "" {
				continue
			}
			pub, err := uc.regionalPublication(ctx)
			if err == nil {
				err = uc.repo.PublishTo(ctx, p.ID, []string{pub})
			}
			if aborts(err) {
				return false, err
			}
			if err != nil {
				ok = false
				report.Fail("Adding to %s failed: %v", uc.tenant.RegionalCatalog, err)
				continue
			}
			report.Add("Action: Added to %s.", uc.tenant.RegionalCatalog)

		case workflow.ActionConfirmMainItem:
			err := uc.confirmMainItems(ctx, p, res)
			if aborts(err) {
				return false, err
			}
			if err != nil {
				ok = false
				report.Fail("Main item confirmation failed: %v", err)
				continue
			}
			if err := uc.repo.SetMainItemConfirmed(ctx, p.ID, true); err != nil {
				return false, fmt.Errorf("set main item flag of %s: %w", p.ID, err)
			}
			p.MainItemConfirmed = true
			report.Add("Action: Main item confirmed.")

		case workflow.ActionConfirmGroups:
			n, err := uc.confirmGroups(ctx, p, res)
			if aborts(err) {
				return false, err
			}
			if err != nil {
				ok = false
				report.Fail("Item confirmation failed: %v", err)
				continue
			}
			report.Add("Action: Item confirmation sent for %d SKU group(s).", n)

		case workflow.ActionRecomputeUnitPrice:
			if err := uc.webhooks.RecomputeUnitPrice(ctx, p.ID); err != nil {
				ok = false
				report.Fail("Unit price recalculation failed: %v", err)
				continue
			}
			report.Add("Action: Unit price recalculation requested.")
		}
	}
	return ok, nil
}

func (uc *productUseCase) publications(ctx context.Context) ([]string, error) {
	if uc.publicationIDs != nil {
		return uc.publicationIDs, nil
	}
	pubs, err := uc.repo.Publications(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(pubs))
	for _, p := range pubs {
		ids = append(ids, p.ID)
	}
	uc.publicationIDs = ids
	uc.logger.Debug("sales channels loaded", zap.Int("count", len(ids)))
	return ids, nil
}

func (uc *productUseCase) regionalPublication(ctx context.Context) (string, error) {
	if uc.regionalPubID != "" {
		return uc.regionalPubID, nil
	}
	id, err := uc.repo.CatalogPublication(ctx, uc.tenant.RegionalCatalog)
	if err != nil {
		return "", err
	}
	uc.regionalPubID = id
	return id, nil
}

// confirmMainItems sends one main-only payload per main item the product holds.
func (uc *productUseCase) confirmMainItems(ctx context.Context, p *model.Product, res *sku.Resolution) error {
	for _, g := range res.PatternGroups() {
		if g.Main == nil || !g.Main.Local {
			continue
		}
		v := variantByID(p, g.Main.VariantID)
		if v == nil {
			continue
		}
		item, err := uc.item(ctx, p, v)
		if err != nil {
			return err
		}
		payload := uc.payload(p, []webhook.ConfirmItem{item}, []model.ProductVariant{*v}, g.Main.SKU)
		payload.MainOnly = true
		if err := uc.webhooks.ConfirmItems(ctx, payload); err != nil {
			return fmt.Errorf("confirm %s: %w", g.Main.SKU, err)
		}
	}
	return nil
}

// confirmGroups sends one payload per SKU group and returns how many were sent.
func (uc *productUseCase) confirmGroups(ctx context.Context, p *model.Product, res *sku.Resolution) (int, error) {
	sent := 0
	for _, g := range res.Groups {
		items := make([]webhook.ConfirmItem, 0, len(g.Members))
		for i := range g.Members {
			item, err := uc.item(ctx, p, &g.Members[i])
			if err != nil {
				return sent, err
			}
			items = append(items, item)
		}
		mainSKU := g.ExpectedMain
		if g.Main != nil {
			mainSKU = g.Main.SKU
		}
		if err := uc.webhooks.ConfirmItems(ctx, uc.payload(p, items, g.Members, mainSKU)); err != nil {
			return sent, fmt.Errorf("confirm group %s: %w", mainSKU, err)
		}
		sent++
	}
	return sent, nil
}

func (uc *productUseCase) payload(p *model.Product, items []webhook.ConfirmItem, members []model.ProductVariant, mainSKU string) webhook.ConfirmPayload {
	pct, _ := compliance.TaxPercent(p.TaxRate)
	return webhook.ConfirmPayload{
		ProductID:  p.ID,
		Items:      items,
		TaxRate:    p.TaxRate,
		TaxPercent: pct,
		TaxCode:    compliance.TaxCode(uc.tenant.TaxCodes, p.TaxRate),
		HSCode:     hsCode(members),
		MainSKU:    mainSKU,
	}
}

func (uc *productUseCase) item(ctx context.Context, p *model.Product, v *model.ProductVariant) (webhook.ConfirmItem, error) {
	unit, err := uc.unitFor(ctx, p, v)
	if err != nil {
		return webhook.ConfirmItem{}, err
	}
	return webhook.NewItem(strings.TrimSpace(v.SKU), v.ID, v.Title, v.Price, unit), nil
}

// unitFor resolves the quantity/unit of the variant's value for the option linked to the
// variant quantities metafield. Lookups are memoized for the run.
func (uc *productUseCase) unitFor(ctx context.Context, p *model.Product, v *model.ProductVariant) (*webhook.Unit, error) {
	objectType := uc.tenant.UnitMetaobjectType
	if objectType == "" {
		return nil, nil
	}
	for _, opt := range p.Options {
		if !strings.EqualFold(opt.LinkedMetafield, uc.tenant.Metafields.VariantQuantities) {
			continue
		}
		value, ok := v.OptionValue(opt.Name)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		handle := handleize(value)
		mo, err := uc.units.GetOrLoad(ctx, objectType+":"+handle, func(ctx context.Context) (*model.Metaobject, error) {
			return uc.repo.Metaobject(ctx, objectType, handle)
		})
		if err != nil {
			return nil, fmt.Errorf("unit lookup %s: %w", handle, err)
		}
		if mo == nil {
			return nil, nil
		}
		return &webhook.Unit{Quantity: mo.Fields[unitQuantityField], Name: mo.Fields[unitNameField]}, nil
	}
	return nil, nil
}

func variantByID(p *model.Product, id string) *model.ProductVariant {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i]
		}
	}
	return nil
}

func hsCode(members []model.ProductVariant) string {
	for _, m := range members {
		if c := strings.TrimSpace(m.InventoryItem.HarmonizedCode); c != "" {
			return c
		}
	}
	return ""
}

// handleize turns an option value like "500 g" into the metaobject handle "500-g".
func handleize(value string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
