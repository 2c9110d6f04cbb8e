package usecase

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/fekuna/omnipos-catalog-gate/config"
	"github.com/fekuna/omnipos-catalog-gate/internal/gql"
	"github.com/fekuna/omnipos-catalog-gate/internal/inventory/dto"
	"github.com/fekuna/omnipos-catalog-gate/internal/logger"
	"github.com/fekuna/omnipos-catalog-gate/internal/model"
	productdto "github.com/fekuna/omnipos-catalog-gate/internal/product/dto"
	"github.com/fekuna/omnipos-catalog-gate/internal/sku"
	"github.com/fekuna/omnipos-catalog-gate/internal/webhook"
)

type fakeRepo struct {
	pages     [][]productdto.ProductHeader
	products  map[string]*model.Product
	findErr   map[string]error
	statusErr error

	findCalls []string
	statuses  map[string][]model.ProductStatus
	pending   map[string][]string
	published map[string][]string
	confirmed map[string]bool
}

func newFakeRepo(products ...*model.Product) *fakeRepo {
	r := &fakeRepo{
		products:  map[string]*model.Product{},
		findErr:   map[string]error{},
		statuses:  map[string][]model.ProductStatus{},
		pending:   map[string][]string{},
		published: map[string][]string{},
		confirmed: map[string]bool{},
	}
	var page []productdto.ProductHeader
	for _, p := range products {
		r.products[p.ID] = p
		page = append(page, productdto.ProductHeader{ID: p.ID, Title: p.Title, Status: p.Status, PendingChanges: p.PendingChanges})
	}
	r.pages = [][]productdto.ProductHeader{page}
	return r
}

func (r *fakeRepo) FlaggedProducts(_ context.Context, cursor string) (gql.Page[productdto.ProductHeader], error) {
	i := 0
	if cursor != "" {
		fmt.Sscanf(cursor, "%d", &i)
	}
	page := gql.Page[productdto.ProductHeader]{Nodes: r.pages[i]}
	if i+1 < len(r.pages) {
		page.HasNextPage = true
		page.EndCursor = fmt.Sprint(i + 1)
	}
	return page, nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*model.Product, error) {
	r.findCalls = append(r.findCalls, id)
	if err := r.findErr[id]; err != nil {
		return nil, err
	}
	p, ok := r.products[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) FindVariantsBySKU(_ context.Context, s string) ([]model.VariantRef, error) {
	var out []model.VariantRef
	for _, p := range r.products {
		for _, v := range p.Variants {
			if strings.EqualFold(v.SKU, s) {
				out = append(out, model.VariantRef{ID: v.ID, SKU: v.SKU, ProductID: p.ID, ProductTitle: p.Title})
			}
		}
	}
	return out, nil
}

func (r *fakeRepo) ProductTaxRate(_ context.Context, id string) (string, error) {
	if p, ok := r.products[id]; ok {
		return p.TaxRate, nil
	}
	return "", nil
}

func (r *fakeRepo) Publications(context.Context) ([]model.Publication, error) {
	return []model.Publication{{ID: "pub-online", Name: "Online Store"}, {ID: "pub-pos", Name: "Point of Sale"}}, nil
}

func (r *fakeRepo) CatalogPublication(_ context.Context, title string) (string, error) {
	return "pub-" + strings.ToLower(strings.ReplaceAll(title, " ", "-")), nil
}

func (r *fakeRepo) Metaobject(_ context.Context, typ, handle string) (*model.Metaobject, error) {
	if typ == "variant_quantity" && handle == "500-ml" {
		return &model.Metaobject{Type: typ, Handle: handle, Fields: map[string]string{"quantity": "500", "unit": "ml"}}, nil
	}
	return nil, nil
}

func (r *fakeRepo) SetStatus(_ context.Context, id string, s model.ProductStatus) error {
	if r.statusErr != nil {
		return r.statusErr
	}
	r.statuses[id] = append(r.statuses[id], s)
	return nil
}

func (r *fakeRepo) SetPendingChanges(_ context.Context, id string, labels []string) error {
	r.pending[id] = labels
	return nil
}

func (r *fakeRepo) SetMainItemConfirmed(_ context.Context, id string, confirmed bool) error {
	r.confirmed[id] = confirmed
	return nil
}

func (r *fakeRepo) PublishTo(_ context.Context, id string, pubs []string) error {
	r.published[id] = append(r.published[id], pubs...)
	return nil
}

type fakeInventory struct {
	zeroErr error
	zeroed  []string
}

func (f *fakeInventory) ZeroProductStock(_ context.Context, p *model.Product) (*dto.ZeroResult, error) {
	f.zeroed = append(f.zeroed, p.ID)
	if f.zeroErr != nil {
		return nil, f.zeroErr
	}
	return &dto.ZeroResult{Items: len(p.Variants), Locations: 1, Pairs: len(p.Variants)}, nil
}

func (f *fakeInventory) SyncOrigin(context.Context, *model.Product) (int, error) { return 0, nil }

type fakeWebhooks struct {
	fieldErr  error
	fields    []webhook.FieldChange
	unitPrice []string
	confirms  []webhook.ConfirmPayload
}

func (f *fakeWebhooks) FieldChanged(_ context.Context, fc webhook.FieldChange) error {
	if f.fieldErr != nil {
		return f.fieldErr
	}
	f.fields = append(f.fields, fc)
	return nil
}

func (f *fakeWebhooks) RecomputeUnitPrice(_ context.Context, id string) error {
	f.unitPrice = append(f.unitPrice, id)
	return nil
}

func (f *fakeWebhooks) ConfirmItems(_ context.Context, p webhook.ConfirmPayload) error {
	f.confirms = append(f.confirms, p)
	return nil
}

type sent struct {
	text string
	ok   bool
}

type fakeNotifier struct {
	reports []sent
}

func (f *fakeNotifier) Notify(_ context.Context, text string, ok bool) error {
	f.reports = append(f.reports, sent{text, ok})
	return nil
}

type fakeLedger struct {
	started  []*model.Run
	finished []*model.Run
	outcomes []*model.ProductOutcome
}

func (f *fakeLedger) StartRun(_ context.Context, r *model.Run) error {
	f.started = append(f.started, r)
	return nil
}

func (f *fakeLedger) FinishRun(_ context.Context, r *model.Run) error {
	f.finished = append(f.finished, r)
	return nil
}

func (f *fakeLedger) RecentRuns(context.Context, int) ([]model.Run, error) { return nil, nil }

func (f *fakeLedger) RecordOutcome(_ context.Context, o *model.ProductOutcome) error {
	f.outcomes = append(f.outcomes, o)
	return nil
}

func (f *fakeLedger) Outcomes(context.Context, string) ([]model.ProductOutcome, error) {
	return nil, nil
}

func (f *fakeLedger) Close() error { return nil }

type harness struct {
	repo     *fakeRepo
	inv      *fakeInventory
	hooks    *fakeWebhooks
	notifier *fakeNotifier
	ledger   *fakeLedger
	uc       *productUseCase
}

func newHarness(t *testing.T, tenantName string, repo *fakeRepo) *harness {
	t.Helper()
	tenant, err := config.LoadTenant(tenantName, "")
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{
		repo:     repo,
		inv:      &fakeInventory{},
		hooks:    &fakeWebhooks{},
		notifier: &fakeNotifier{},
		ledger:   &fakeLedger{},
	}
	h.uc = newProductUseCase(Deps{
		RunID:     "run-1",
		Tenant:    tenant,
		Repo:      repo,
		Inventory: h.inv,
		Cache:     sku.NewMemoryStore(),
		Webhooks:  h.hooks,
		Notifier:  h.notifier,
		Ledger:    h.ledger,
		Logger:    logger.NewNop(),
	})
	h.uc.now = func() time.Time { return time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC) }
	return h
}

// compliant returns a product that passes every check for the "in" tenant.
func compliant(id string, status model.ProductStatus, labels ...string) *model.Product {
	return &model.Product{
		ID:              id,
		Title:           "Product " + id,
		Status:          status,
		DescriptionHTML: "<p>A perfectly fine description.</p>",
		ImageCount:      1,
		Collections:     []model.Collection{{ID: "c5", Title: "Tax Rate 5%"}},
		TaxRate:         "5%",
		PreOrder:        "false",
		CountryOfOrigin: "IN",
		PendingChanges:  labels,
		Variants: []model.ProductVariant{{
			ID: id + "-v0", Title: "Default", SKU: strings.ToUpper(id) + "-0", Price: "100.00",
			InventoryItem: model.InventoryItem{ID: id + "-i0", HarmonizedCode: "3304"},
		}},
	}
}

func TestTitleAckedAndFailedCheckKeepsCheckLabel(t *testing.T) {
	p := compliant("p1", model.StatusDraft, "Title Updated", "New Product Checks")
	p.ImageCount = 0
	h := newHarness(t, "in", newFakeRepo(p))

	run, err := h.uc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := h.repo.pending["p1"]; !reflect.DeepEqual(got, []string{"New Product Checks"}) {
		t.Fatalf("persisted %v", got)
	}
	if len(h.hooks.fields) != 1 || h.hooks.fields[0].Kind != "title" {
		t.Fatalf("field webhooks %+v", h.hooks.fields)
	}
	if run.Checked != 1 || run.Failed != 1 || run.Passed != 0 {
		t.Fatalf("run %+v", run)
	}
	if len(h.notifier.reports) != 1 || h.notifier.reports[0].ok {
		t.Fatalf("reports %+v", h.notifier.reports)
	}
	if !strings.Contains(h.notifier.reports[0].text, "Product has no images.") {
		t.Fatalf("report:\n%s", h.notifier.reports[0].text)
	}
}

func TestActiveFailingProductIsDrafted(t *testing.T) {
	p := compliant("p1", model.StatusActive, "New Product Checks")
	p.CountryOfOrigin = ""
	h := newHarness(t, "in", newFakeRepo(p))

	run, err := h.uc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := h.repo.statuses["p1"]; !reflect.DeepEqual(got, []model.ProductStatus{model.StatusDraft}) {
		t.Fatalf("status mutations %v", got)
	}
	if !strings.Contains(h.notifier.reports[0].text, "Action: Product has been set to DRAFT from ACTIVE.") {
		t.Fatalf("report:\n%s", h.notifier.reports[0].text)
	}
	if run.Drafted != 1 {
		t.Fatalf("run %+v", run)
	}
	if _, ok := h.repo.pending["p1"]; ok {
		t.Fatal("check label must stay when the verdict fails")
	}
	if len(h.inv.zeroed) != 1 {
		t.Fatal("stock is zeroed regardless of verdict")
	}
}

func TestActivePassingProductIsOnlyRepublished(t *testing.T) {
	p := compliant("p1", model.StatusActive, "New Product Checks")
	h := newHarness(t, "in", newFakeRepo(p))

	if _, err := h.uc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.repo.statuses["p1"]) != 0 {
		t.Fatalf("unexpected status mutation %v", h.repo.statuses["p1"])
	}
	if !reflect.DeepEqual(h.repo.published["p1"], []string{"pub-online", "pub-pos"}) {
		t.Fatalf("published %v", h.repo.published["p1"])
	}
	if got, ok := h.repo.pending["p1"]; !ok || len(got) != 0 {
		t.Fatalf("check label should be removed, got %v", got)
	}
	if !h.notifier.reports[0].ok {
		t.Fatal("expected success routing")
	}
}

func TestDraftPassingProductIsActivated(t *testing.T) {
	p := compliant("p1", model.StatusDraft, "New Product Checks")
	h := newHarness(t, "global", newFakeRepo(p))

	run, err := h.uc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(h.repo.statuses["p1"], []model.ProductStatus{model.StatusActive}) {
		t.Fatalf("status mutations %v", h.repo.statuses["p1"])
	}
	want := []string{"pub-online", "pub-pos", "pub-eu-catalog"}
	if !reflect.DeepEqual(h.repo.published["p1"], want) {
		t.Fatalf("published %v", h.repo.published["p1"])
	}
	// global tenant runs the main-item handshake
	if len(h.hooks.confirms) != 1 || !h.hooks.confirms[0].MainOnly || h.hooks.confirms[0].MainSKU != "P1-0" {
		t.Fatalf("confirms %+v", h.hooks.confirms)
	}
	if !h.repo.confirmed["p1"] {
		t.Fatal("main item flag not persisted")
	}
	if run.Activated != 1 || run.Passed != 1 {
		t.Fatalf("run %+v", run)
	}
	text := h.notifier.reports[0].text
	if !strings.Contains(text, "Action: Product has been set to ACTIVE from DRAFT.") {
		t.Fatalf("report:\n%s", text)
	}
}

func TestCompositeActiveProductConfirmsGroups(t *testing.T) {
	main := compliant("bag", model.StatusActive)
	main.Variants[0].SKU = "BAG-0"

	comp := compliant("combo", model.StatusActive, "New Product Checks")
	comp.Options = []model.ProductOption{{Name: "Pack Size", LinkedMetafield: "custom.variant_quantities"}}
	comp.Variants = []model.ProductVariant{{
		ID: "combo-v1", Title: "500 ml", SKU: "BAG-1", Price: "250.00",
		SelectedOptions: []model.SelectedOption{{Name: "Pack Size", Value: "500 ml"}},
		InventoryItem:   model.InventoryItem{ID: "combo-i1", HarmonizedCode: "3304"},
	}}
	repo := newFakeRepo(comp)
	repo.products["bag"] = main
	h := newHarness(t, "in", repo)

	if _, err := h.uc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.hooks.confirms) != 1 {
		t.Fatalf("confirms %+v", h.hooks.confirms)
	}
	c := h.hooks.confirms[0]
	if c.MainOnly || c.MainSKU != "BAG-0" || c.TaxCode != "GST5" || c.HSCode != "3304" {
		t.Fatalf("payload %+v", c)
	}
	if c.Items[0].UnitPrice != "0.50" || c.Items[0].Unit != "ml" {
		t.Fatalf("item %+v", c.Items[0])
	}
	if !reflect.DeepEqual(h.hooks.unitPrice, []string{"combo"}) {
		t.Fatalf("unit price triggers %v", h.hooks.unitPrice)
	}
}

func TestProductWithoutLabelsIsSkipped(t *testing.T) {
	p := compliant("p1", model.StatusDraft)
	h := newHarness(t, "in", newFakeRepo(p))

	run, err := h.uc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Skipped != 1 || len(h.repo.findCalls) != 0 || len(h.notifier.reports) != 0 {
		t.Fatalf("run %+v finds %v", run, h.repo.findCalls)
	}
}

func TestFailedWebhookKeepsLabel(t *testing.T) {
	p := compliant("p1", model.StatusActive, "Tax Updated")
	h := newHarness(t, "in", newFakeRepo(p))
	h.hooks.fieldErr = &webhook.StatusError{Endpoint: "field-changed", StatusCode: 500}

	if _, err := h.uc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if _, ok := h.repo.pending["p1"]; ok {
		t.Fatal("pending list must not be rewritten")
	}
	r := h.notifier.reports[0]
	if r.ok || !strings.Contains(r.text, "Webhook failed for Tax Updated") {
		t.Fatalf("report %+v", r)
	}
}

func TestTaxWebhookCarriesPercentAndCode(t *testing.T) {
	p := compliant("p1", model.StatusActive, "Tax Updated")
	p.TaxRate = "18%"
	h := newHarness(t, "in", newFakeRepo(p))

	if _, err := h.uc.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	fc := h.hooks.fields[0]
	if fc.Kind != "tax" || fc.TaxPercent != "18" || fc.TaxCode != "GST18" {
		t.Fatalf("field change %+v", fc)
	}
	if got := h.repo.pending["p1"]; len(got) != 0 {
		t.Fatalf("persisted %v", got)
	}
}

func TestThrottleExhaustionFailsOnlyThatProduct(t *testing.T) {
	p1 := compliant("p1", model.StatusDraft, "New Product Checks")
	p2 := compliant("p2", model.StatusDraft, "New Product Checks")
	repo := newFakeRepo(p1, p2)
	repo.findErr["p1"] = fmt.Errorf("fetch product p1: %w", gql.ErrThrottleExhausted)
	h := newHarness(t, "in", repo)

	run, err := h.uc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Errored != 1 || run.Passed != 1 || run.Status != model.RunCompleted {
		t.Fatalf("run %+v", run)
	}
	if len(h.notifier.reports) != 2 || h.notifier.reports[0].ok {
		t.Fatalf("reports %+v", h.notifier.reports)
	}
	if h.ledger.outcomes[0].Error == "" {
		t.Fatal("expected failure recorded in ledger")
	}
}

func TestCoreMutationErrorAbortsRun(t *testing.T) {
	p1 := compliant("p1", model.StatusDraft, "New Product Checks")
	p2 := compliant("p2", model.StatusDraft, "New Product Checks")
	repo := newFakeRepo(p1, p2)
	repo.statusErr = &gql.UserErrors{Action: "productUpdate", Errors: []gql.UserError{{Message: "locked"}}}
	h := newHarness(t, "in", repo)

	run, err := h.uc.Run(context.Background())
	var ue *gql.UserErrors
	if !errors.As(err, &ue) {
		t.Fatalf("expected user errors, got %v", err)
	}
	if run.Status != model.RunAborted || len(repo.findCalls) != 1 {
		t.Fatalf("run %+v finds %v", run, repo.findCalls)
	}
	if len(h.ledger.finished) != 1 || h.ledger.finished[0].Error == "" {
		t.Fatal("aborted run must still be recorded")
	}
}

func TestDeliveredLabelRemovedWhenCheckIsThrottled(t *testing.T) {
	p := compliant("p1", model.StatusDraft, "Title Updated", "New Product Checks")
	h := newHarness(t, "in", newFakeRepo(p))
	h.inv.zeroErr = fmt.Errorf("zero: %w", gql.ErrThrottleExhausted)

	run, err := h.uc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Errored != 1 || len(h.hooks.fields) != 1 {
		t.Fatalf("run %+v webhooks %+v", run, h.hooks.fields)
	}
	if got := h.repo.pending["p1"]; !reflect.DeepEqual(got, []string{"New Product Checks"}) {
		t.Fatalf("persisted %v", got)
	}
	if got := h.ledger.outcomes[0].LabelsAfter; !reflect.DeepEqual([]string(got), []string{"New Product Checks"}) {
		t.Fatalf("ledger labels after %v", got)
	}
}

func TestDeliveredLabelRemovedWhenRunAborts(t *testing.T) {
	p := compliant("p1", model.StatusDraft, "Price Updated", "New Product Checks")
	repo := newFakeRepo(p)
	repo.statusErr = &gql.UserErrors{Action: "productUpdate", Errors: []gql.UserError{{Message: "locked"}}}
	h := newHarness(t, "in", repo)

	if _, err := h.uc.Run(context.Background()); err == nil {
		t.Fatal("expected the run to abort")
	}
	if got := repo.pending["p1"]; !reflect.DeepEqual(got, []string{"New Product Checks"}) {
		t.Fatalf("persisted %v", got)
	}
}

func TestPagesAreWalkedInOrder(t *testing.T) {
	p1 := compliant("p1", model.StatusActive, "Price Updated")
	p2 := compliant("p2", model.StatusActive, "Price Updated")
	repo := newFakeRepo(p1, p2)
	repo.pages = [][]productdto.ProductHeader{repo.pages[0][:1], repo.pages[0][1:]}
	h := newHarness(t, "in", repo)

	run, err := h.uc.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if run.Pages != 2 || !reflect.DeepEqual(repo.findCalls, []string{"p1", "p2"}) {
		t.Fatalf("pages %d finds %v", run.Pages, repo.findCalls)
	}
}

func TestHandleize(t *testing.T) {
	cases := map[string]string{"500 ml": "500-ml", " Pack of 2! ": "pack-of-2", "1.5 L": "1-5-l"}
	for in, want := range cases {
		if got := handleize(in); got != want {
			t.Fatalf("handleize(%q) = %q, want %q", in, got, want)
		}
	}
}
