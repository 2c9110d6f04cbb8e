package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-catalog-gate/config"
	"github.com/fekuna/omnipos-catalog-gate/internal/changequeue"
	"github.com/fekuna/omnipos-catalog-gate/internal/compliance"
	"github.com/fekuna/omnipos-catalog-gate/internal/gql"
	"github.com/fekuna/omnipos-catalog-gate/internal/inventory"
	"github.com/fekuna/omnipos-catalog-gate/internal/ledger"
	"github.com/fekuna/omnipos-catalog-gate/internal/logger"
	"github.com/fekuna/omnipos-catalog-gate/internal/model"
	"github.com/fekuna/omnipos-catalog-gate/internal/product"
	"github.com/fekuna/omnipos-catalog-gate/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-gate/internal/sku"
	"github.com/fekuna/omnipos-catalog-gate/internal/webhook"
	"go.uber.org/zap"
)

// Deps wires one run. Cache backs every run-scoped lookup (SKUs, main-item taxes, unit metaobjects).
type Deps struct {
	RunID     string
	Tenant    *config.Tenant
	Repo      product.Repository
	Inventory inventory.UseCase
	Cache     sku.Store
	Webhooks  product.Webhooks
	Notifier  product.Notifier
	Ledger    ledger.Repository
	Budget    func() gql.Budget
	Logger    logger.ZapLogger
}

type productUseCase struct {
	runID     string
	tenant    *config.Tenant
	repo      product.Repository
	inventory inventory.UseCase
	resolver  *sku.Resolver
	evaluator *compliance.Evaluator
	queue     *changequeue.Queue
	units     *sku.Memo[*model.Metaobject]
	webhooks  product.Webhooks
	notifier  product.Notifier
	ledger    ledger.Repository
	budget    func() gql.Budget
	logger    logger.ZapLogger
	now       func() time.Time

	// loaded once per run
	publicationIDs []string
	regionalPubID  string
}

func NewProductUseCase(d Deps) product.UseCase {
	return newProductUseCase(d)
}

func newProductUseCase(d Deps) *productUseCase {
	budget := d.Budget
	if budget == nil {
		budget = func() gql.Budget { return gql.Budget{} }
	}
	return &productUseCase{
		runID:     d.RunID,
		tenant:    d.Tenant,
		repo:      d.Repo,
		inventory: d.Inventory,
		resolver:  sku.NewResolver(d.Repo, d.Cache),
		evaluator: compliance.NewEvaluator(d.Tenant),
		queue:     changequeue.New(d.Tenant.Labels),
		units:     sku.NewMemo[*model.Metaobject](d.Cache, "unit:"),
		webhooks:  d.Webhooks,
		notifier:  d.Notifier,
		ledger:    d.Ledger,
		budget:    budget,
		logger:    d.Logger.With(zap.String("run_id", d.RunID), zap.String("tenant", d.Tenant.ID)),
		now:       time.Now,
	}
}

// Run scans every flagged product page by page, strictly one product at a time.
// A fatal error aborts the whole run; throttle exhaustion only fails the current product.
func (uc *productUseCase) Run(ctx context.Context) (*model.Run, error) {
	run := &model.Run{
		ID:        uc.runID,
		Tenant:    uc.tenant.ID,
		Status:    model.RunRunning,
		StartedAt: uc.now().UTC(),
	}
	if err := uc.ledger.StartRun(ctx, run); err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	uc.logger.Info("run started")

	runErr := gql.Walk(ctx, uc.repo.FlaggedProducts, func(page gql.Page[dto.ProductHeader]) error {
		run.Pages++
		for _, h := range page.Nodes {
			if err := uc.handle(ctx, run, h); err != nil {
				return err
			}
		}
		return nil
	})

	finished := uc.now().UTC()
	run.FinishedAt = &finished
	b := uc.budget()
	run.APICalls = b.Calls
	run.Throttled = b.Throttled
	run.RequestedCost = b.RequestedCost
	run.ActualCost = b.ActualCost
	run.Status = model.RunCompleted
	if runErr != nil {
		run.Status = model.RunAborted
		run.Error = runErr.Error()
	}
	if err := uc.ledger.FinishRun(context.WithoutCancel(ctx), run); err != nil {
		uc.logger.Error("failed to record run", zap.Error(err))
	}

	fields := []zap.Field{
		zap.Int("pages", run.Pages),
		zap.Int("scanned", run.Scanned),
		zap.Int("skipped", run.Skipped),
		zap.Int("checked", run.Checked),
		zap.Int("passed", run.Passed),
		zap.Int("failed", run.Failed),
		zap.Int("errored", run.Errored),
		zap.Int("api_calls", b.Calls),
		zap.Int("throttled", b.Throttled),
		zap.Float64("requested_cost", b.RequestedCost),
		zap.Float64("actual_cost", b.ActualCost),
		zap.Float64("available_cost", b.Last.CurrentlyAvailable),
	}
	if runErr != nil {
		uc.logger.Error("run aborted", append(fields, zap.Error(runErr))...)
		return run, runErr
	}
	uc.logger.Info("run finished", fields...)
	return run, nil
}

// productRun carries one product's state from snapshot to notification.
type productRun struct {
	product      *model.Product
	report       *compliance.Report
	verdict      model.Verdict
	labelsBefore []string
	labelsAfter  []string
}

func (uc *productUseCase) handle(ctx context.Context, run *model.Run, h dto.ProductHeader) error {
	run.Scanned++
	snap := changequeue.NewSnapshot(h.PendingChanges)
	if snap.Empty() {
		run.Skipped++
		return nil
	}

	pr, err := uc.process(ctx, h, snap)
	if err != nil && !errors.Is(err, gql.ErrThrottleExhausted) {
		return err
	}
	if pr.product == nil && err == nil {
		uc.logger.Warn("flagged product disappeared before processing", zap.String("product_id", h.ID))
		run.Skipped++
		return nil
	}

	var failure string
	if err != nil {
		run.Errored++
		failure = err.Error()
		pr.report.Fail("Processing stopped: %v", err)
		uc.logger.Warn("product failed after throttling", zap.String("product_id", h.ID), zap.Error(err))
	}

	switch pr.verdict {
	case model.VerdictPass:
		run.Checked++
		run.Passed++
	case model.VerdictFail:
		run.Checked++
		run.Failed++
	}
	statusAfter := h.Status
	if pr.product != nil {
		statusAfter = pr.product.Status
	}
	if statusAfter != h.Status {
		switch statusAfter {
		case model.StatusActive:
			run.Activated++
		case model.StatusDraft:
			run.Drafted++
		}
	}

	text := pr.report.Text()
	outcome := &model.ProductOutcome{
		RunID:        run.ID,
		ProductID:    h.ID,
		Title:        h.Title,
		StatusBefore: h.Status,
		StatusAfter:  statusAfter,
		Verdict:      pr.verdict,
		LabelsBefore: pr.labelsBefore,
		LabelsAfter:  pr.labelsAfter,
		Report:       text,
		Error:        failure,
		CreatedAt:    uc.now().UTC(),
	}
	if err := uc.ledger.RecordOutcome(ctx, outcome); err != nil {
		uc.logger.Warn("failed to record product outcome", zap.String("product_id", h.ID), zap.Error(err))
	}
	if err := uc.notifier.Notify(ctx, text, pr.report.OK()); err != nil {
		uc.logger.Error("failed to deliver report", zap.String("product_id", h.ID), zap.Error(err))
	}

	uc.logger.Info("product processed",
		zap.String("product_id", h.ID),
		zap.String("verdict", string(pr.verdict)),
		zap.String("status_before", string(h.Status)),
		zap.String("status_after", string(statusAfter)),
		zap.Strings("labels_after", pr.labelsAfter),
	)
	return nil
}

// process runs the simple labels, then the full check when requested, then persists the reduced list.
// The returned productRun is never nil.
func (uc *productUseCase) process(ctx context.Context, h dto.ProductHeader, snap changequeue.Snapshot) (*productRun, error) {
	pr := &productRun{
		labelsBefore: snap.Labels(),
		labelsAfter:  snap.Labels(),
		report:       compliance.NewReport(&model.Product{ID: h.ID, Title: h.Title, Status: h.Status}),
	}

	p, err := uc.repo.FindByID(ctx, h.ID)
	if err != nil {
		return pr, err
	}
	if p == nil {
		return pr, nil
	}
	pr.product = p
	pr.report = compliance.NewReport(p)

	var outcomes changequeue.Outcomes
	uc.forwardChanges(ctx, p, snap, pr.report, &outcomes)

	var checkErr error
	if uc.queue.WantsFullCheck(snap) {
		pr.verdict, checkErr = uc.fullCheck(ctx, p, pr.report, &outcomes)
	}

	// Delivered simple labels are removed even when the full check stopped early.
	reduced := changequeue.Reduce(snap, &outcomes)
	if changequeue.Changed(snap, reduced) {
		if err := uc.repo.SetPendingChanges(context.WithoutCancel(ctx), p.ID, reduced); err != nil {
			if checkErr != nil {
				uc.logger.Warn("failed to persist acknowledged labels",
					zap.String("product_id", p.ID),
					zap.Strings("labels", reduced),
					zap.Error(err),
				)
				return pr, checkErr
			}
			return pr, fmt.Errorf("persist pending changes of %s: %w", p.ID, err)
		}
	}
	pr.labelsAfter = reduced
	return pr, checkErr
}

// forwardChanges sends one field-changed webhook per simple label. Each label is acknowledged on its own success.
func (uc *productUseCase) forwardChanges(ctx context.Context, p *model.Product, snap changequeue.Snapshot, report *compliance.Report, outcomes *changequeue.Outcomes) {
	for _, e := range uc.queue.Simple(snap) {
		fc := webhook.FieldChange{Kind: string(e.Kind), ProductID: p.ID}
		if e.Kind == changequeue.KindTax {
			fc.TaxPercent, _ = compliance.TaxPercent(p.TaxRate)
			fc.TaxCode = compliance.TaxCode(uc.tenant.TaxCodes, p.TaxRate)
		}
		if err := uc.webhooks.FieldChanged(ctx, fc); err != nil {
			uc.logger.Warn("field change webhook failed",
				zap.String("product_id", p.ID),
				zap.String("label", e.Label),
				zap.Error(err),
			)
			report.Fail("Webhook failed for %s: %v", e.Label, err)
			continue
		}
		outcomes.Ack(e.Label)
		report.Add("Webhook sent: %s.", e.Label)
	}
}

func (uc *productUseCase) fullCheck(ctx context.Context, p *model.Product, report *compliance.Report, outcomes *changequeue.Outcomes) (model.Verdict, error) {
	res, err := uc.resolver.Resolve(ctx, p)
	if err != nil {
		return model.VerdictNone, fmt.Errorf("resolve skus of %s: %w", p.ID, err)
	}
	result := uc.evaluator.Evaluate(p, res)
	report.Result = &result
	verdict := model.VerdictFail
	if result.Passed {
		verdict = model.VerdictPass
	}

	clean := true
	if uc.tenant.Rules.ZeroStock() {
		zr, err := uc.inventory.ZeroProductStock(ctx, p)
		switch {
		case aborts(err):
			return verdict, err
		case err != nil:
			clean = false
			report.Fail("Stock reset failed: %v", err)
		case zr.Pairs > 0:
			report.Add("Stock: on-hand set to 0 for %d item(s) across %d location(s).", zr.Items, zr.Locations)
		}
	}
	n, err := uc.inventory.SyncOrigin(ctx, p)
	switch {
	case aborts(err):
		return verdict, err
	case err != nil:
		clean = false
		report.Fail("Country of origin sync failed: %v", err)
	case n > 0:
		report.Add("Country of origin copied to %d inventory item(s).", n)
	}

	ok, err := uc.execute(ctx, p, res, &result, report)
	if err != nil {
		return verdict, err
	}
	if result.Passed && ok && clean {
		outcomes.Ack(uc.queue.FullCheck())
	}
	return verdict, nil
}

// aborts reports whether err must stop the current product instead of becoming a report line.
func aborts(err error) bool {
	return err != nil && (errors.Is(err, gql.ErrThrottleExhausted) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded))
}
