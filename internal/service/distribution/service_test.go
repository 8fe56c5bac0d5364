package distribution

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/chickflow/internal/domain/models"
	"github.com/mamadbah2/chickflow/internal/repository/sqlite"
	"github.com/mamadbah2/chickflow/internal/repository/sqlite/sqlitetest"
)

var (
	manager  = models.Actor{ID: "mgr-1", Role: models.RoleManager}
	salesRep = models.Actor{ID: "rep-1", Role: models.RoleSalesRep}
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.OutboundMessageRequest
	err  error
}

func (f *fakeNotifier) SendOutbound(_ context.Context, req models.OutboundMessageRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, req)
	return f.err
}

type fakeExporter struct {
	sales []models.Sale
}

func (f *fakeExporter) ExportSale(_ context.Context, sale models.Sale, _ models.ChickRequest) error {
	f.sales = append(f.sales, sale)
	return nil
}

type env struct {
	svc      *Service
	store    *sqlite.Store
	clock    *testClock
	notifier *fakeNotifier
	exporter *fakeExporter
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := sqlitetest.NewStore(t)
	clock := &testClock{now: time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)}
	notifier := &fakeNotifier{}
	exporter := &fakeExporter{}
	svc := NewService(store, models.DefaultUnitPrice, nil,
		WithClock(clock.Now), WithNotifier(notifier), WithSaleExporter(exporter))

	return &env{svc: svc, store: store, clock: clock, notifier: notifier, exporter: exporter}
}

func farmer(id string) models.Actor {
	return models.Actor{ID: id, Role: models.RoleFarmer}
}

func (e *env) addLot(t *testing.T, key models.StockKey, qty int) models.StockLot {
	t.Helper()
	lot, err := e.svc.AddStockLot(context.Background(), manager, models.NewStockLot{ChickType: key, Quantity: qty, AgeInDays: 1})
	if err != nil {
		t.Fatalf("AddStockLot: %v", err)
	}
	e.clock.Advance(time.Minute)
	return lot
}

func (e *env) request(t *testing.T, farmerID string, qty int) models.ChickRequest {
	t.Helper()
	req, err := e.svc.CreateRequest(context.Background(), farmer(farmerID), models.NewChickRequest{
		ChickType:  models.SpeciesBroiler,
		BreedType:  models.BreedLocal,
		Quantity:   qty,
		FarmerTier: models.TierReturning,
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	return req
}

func (e *env) totalStock(t *testing.T, key models.StockKey) int {
	t.Helper()
	total, err := e.store.AvailableQuantity(context.Background(), key)
	if err != nil {
		t.Fatalf("AvailableQuantity: %v", err)
	}
	return total
}

func TestCreateRequestPricesOnce(t *testing.T) {
	e := newEnv(t)

	req := e.request(t, "f1", 40)
	if req.Status != models.StatusPending {
		t.Errorf("expected pending, got %s", req.Status)
	}
	if !req.TotalAmount.Equal(decimal.NewFromInt(40 * 1650)) {
		t.Errorf("expected total 66000, got %s", req.TotalAmount)
	}

	stored, err := e.store.GetRequest(context.Background(), req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if !stored.TotalAmount.Equal(req.TotalAmount) {
		t.Errorf("stored total %s differs from %s", stored.TotalAmount, req.TotalAmount)
	}
}

func TestCreateRequestTierLimitNotPersisted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.svc.CreateRequest(ctx, farmer("f1"), models.NewChickRequest{
		ChickType: models.SpeciesLayer, BreedType: models.BreedExotic, Quantity: 101, FarmerTier: models.TierStarter,
	})
	if !errors.Is(err, models.ErrTierLimit) {
		t.Fatalf("expected ErrTierLimit, got %v", err)
	}

	requests, _ := e.store.ListRequests(ctx, sqlite.RequestFilter{FarmerID: "f1"})
	if len(requests) != 0 {
		t.Fatalf("expected nothing persisted, got %d requests", len(requests))
	}

	// A failed attempt does not start the cooldown.
	if _, err := e.svc.CreateRequest(ctx, farmer("f1"), models.NewChickRequest{
		ChickType: models.SpeciesLayer, BreedType: models.BreedExotic, Quantity: 100, FarmerTier: models.TierStarter,
	}); err != nil {
		t.Fatalf("expected starter request of 100 to succeed, got %v", err)
	}
}

func TestCreateRequestCooldown(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.request(t, "f1", 10)

	e.clock.Advance(models.RequestCooldown - time.Second)
	_, err := e.svc.CreateRequest(ctx, farmer("f1"), models.NewChickRequest{
		ChickType: models.SpeciesBroiler, BreedType: models.BreedLocal, Quantity: 10, FarmerTier: models.TierStarter,
	})
	if !errors.Is(err, models.ErrCooldownActive) {
		t.Fatalf("expected ErrCooldownActive, got %v", err)
	}

	// Another farmer is unaffected.
	e.request(t, "f2", 10)

	e.clock.Advance(time.Second)
	if _, err := e.svc.CreateRequest(ctx, farmer("f1"), models.NewChickRequest{
		ChickType: models.SpeciesBroiler, BreedType: models.BreedLocal, Quantity: 10, FarmerTier: models.TierStarter,
	}); err != nil {
		t.Fatalf("expected request at exactly 120 days to succeed, got %v", err)
	}
}

func TestCreateRequestRequiresFarmer(t *testing.T) {
	e := newEnv(t)

	_, err := e.svc.CreateRequest(context.Background(), manager, models.NewChickRequest{
		ChickType: models.SpeciesBroiler, BreedType: models.BreedLocal, Quantity: 10, FarmerTier: models.TierStarter,
	})
	if !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestApproveRequestDepletesFIFO(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	lot1 := e.addLot(t, models.StockBroilerLocal, 30)
	lot2 := e.addLot(t, models.StockBroilerLocal, 50)
	other := e.addLot(t, models.StockBroilerExotic, 500)
	req := e.request(t, "f1", 40)

	approved, err := e.svc.ApproveRequest(ctx, manager, req.ID)
	if err != nil {
		t.Fatalf("ApproveRequest: %v", err)
	}
	if approved.Status != models.StatusApproved || approved.ApprovedBy != manager.ID || approved.ApprovedAt == nil {
		t.Fatalf("unexpected approved request %+v", approved)
	}
	if approved.RejectedBy != "" || approved.RejectedAt != nil {
		t.Errorf("approval must not touch rejection fields: %+v", approved)
	}

	if _, err := e.store.GetLot(ctx, lot1.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected lot1 deleted, got %v", err)
	}
	remaining, err := e.store.GetLot(ctx, lot2.ID)
	if err != nil {
		t.Fatalf("GetLot lot2: %v", err)
	}
	if remaining.Quantity != 40 {
		t.Errorf("expected lot2 reduced to 40, got %d", remaining.Quantity)
	}
	if got, _ := e.store.GetLot(ctx, other.ID); got.Quantity != 500 {
		t.Errorf("other chick type must be untouched, got %d", got.Quantity)
	}
	if got := e.totalStock(t, models.StockBroilerLocal); got != 40 {
		t.Errorf("expected 40 broiler_local left, got %d", got)
	}
}

func TestApproveRequestInsufficientStock(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addLot(t, models.StockBroilerLocal, 30)
	e.addLot(t, models.StockBroilerExotic, 100)
	req := e.request(t, "f1", 40)

	_, err := e.svc.ApproveRequest(ctx, manager, req.ID)
	var short *models.InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if short.Available != 30 || short.Requested != 40 {
		t.Errorf("unexpected shortfall %+v", short)
	}

	stored, _ := e.store.GetRequest(ctx, req.ID)
	if stored.Status != models.StatusPending || stored.ApprovedAt != nil {
		t.Errorf("request must stay pending, got %+v", stored)
	}
	if got := e.totalStock(t, models.StockBroilerLocal); got != 30 {
		t.Errorf("stock must be unchanged, got %d", got)
	}
	if len(e.notifier.sent) != 0 {
		t.Errorf("no notification expected, got %v", e.notifier.sent)
	}
}

func TestApproveRequestSkipsHeldLots(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	held := e.addLot(t, models.StockBroilerLocal, 100)
	fresh := e.addLot(t, models.StockBroilerLocal, 20)
	if _, err := e.svc.SetLotAvailability(ctx, manager, held.ID, false); err != nil {
		t.Fatalf("SetLotAvailability: %v", err)
	}
	req := e.request(t, "f1", 20)

	if _, err := e.svc.ApproveRequest(ctx, manager, req.ID); err != nil {
		t.Fatalf("ApproveRequest: %v", err)
	}
	if got, _ := e.store.GetLot(ctx, held.ID); got.Quantity != 100 {
		t.Errorf("held lot must be untouched, got %d", got.Quantity)
	}
	if _, err := e.store.GetLot(ctx, fresh.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected fresh lot consumed, got %v", err)
	}
}

func TestApproveRequestTwiceFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addLot(t, models.StockBroilerLocal, 100)
	req := e.request(t, "f1", 40)

	if _, err := e.svc.ApproveRequest(ctx, manager, req.ID); err != nil {
		t.Fatalf("ApproveRequest: %v", err)
	}
	if _, err := e.svc.ApproveRequest(ctx, manager, req.ID); !errors.Is(err, models.ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if got := e.totalStock(t, models.StockBroilerLocal); got != 60 {
		t.Errorf("stock must be drawn once, got %d left", got)
	}
}

func TestApproveRequestRequiresManager(t *testing.T) {
	e := newEnv(t)
	e.addLot(t, models.StockBroilerLocal, 100)
	req := e.request(t, "f1", 40)

	if _, err := e.svc.ApproveRequest(context.Background(), salesRep, req.ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := e.svc.ApproveRequest(context.Background(), manager, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConcurrentApprovalsNeverOverAllocate(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addLot(t, models.StockBroilerLocal, 60)
	e.addLot(t, models.StockBroilerLocal, 40)

	var requests []models.ChickRequest
	for i := 0; i < 5; i++ {
		requests = append(requests, e.request(t, fmt.Sprintf("farmer-%d", i), 30))
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
		short    int
	)
	for _, req := range requests {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := e.svc.ApproveRequest(ctx, manager, id)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				approved++
			case errors.Is(err, models.ErrInsufficientStock):
				short++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(req.ID)
	}
	wg.Wait()

	if approved != 3 || short != 2 {
		t.Fatalf("expected 3 approvals and 2 shortfalls, got %d and %d", approved, short)
	}
	if got := e.totalStock(t, models.StockBroilerLocal); got != 10 {
		t.Fatalf("expected 10 left, got %d", got)
	}
}

func TestRejectRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addLot(t, models.StockBroilerLocal, 100)
	req := e.request(t, "f1", 40)

	rejected, err := e.svc.RejectRequest(ctx, manager, req.ID)
	if err != nil {
		t.Fatalf("RejectRequest: %v", err)
	}
	if rejected.Status != models.StatusRejected || rejected.RejectedBy != manager.ID || rejected.RejectedAt == nil {
		t.Fatalf("unexpected rejected request %+v", rejected)
	}
	if rejected.ApprovedBy != "" || rejected.ApprovedAt != nil {
		t.Errorf("rejection must not stamp approval fields: %+v", rejected)
	}
	if got := e.totalStock(t, models.StockBroilerLocal); got != 100 {
		t.Errorf("rejection must not touch stock, got %d", got)
	}

	if _, err := e.svc.RejectRequest(ctx, manager, req.ID); !errors.Is(err, models.ErrNotPending) {
		t.Fatalf("expected ErrNotPending on second rejection, got %v", err)
	}
	if _, err := e.svc.ApproveRequest(ctx, manager, req.ID); !errors.Is(err, models.ErrNotPending) {
		t.Fatalf("expected ErrNotPending approving a rejected request, got %v", err)
	}
}

func TestRejectApprovedRequestLeavesStateUnchanged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addLot(t, models.StockBroilerLocal, 100)
	req := e.request(t, "f1", 40)
	if _, err := e.svc.ApproveRequest(ctx, manager, req.ID); err != nil {
		t.Fatalf("ApproveRequest: %v", err)
	}

	if _, err := e.svc.RejectRequest(ctx, manager, req.ID); !errors.Is(err, models.ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	stored, _ := e.store.GetRequest(ctx, req.ID)
	if stored.Status != models.StatusApproved || stored.RejectedAt != nil {
		t.Fatalf("approved request changed: %+v", stored)
	}
}

func TestCompleteSale(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addLot(t, models.StockBroilerLocal, 100)
	req := e.request(t, "f1", 40)

	if _, err := e.svc.CompleteSale(ctx, salesRep, req.ID, ""); !errors.Is(err, models.ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved for pending request, got %v", err)
	}

	if _, err := e.svc.ApproveRequest(ctx, manager, req.ID); err != nil {
		t.Fatalf("ApproveRequest: %v", err)
	}

	sale, err := e.svc.CompleteSale(ctx, salesRep, req.ID, "paid cash")
	if err != nil {
		t.Fatalf("CompleteSale: %v", err)
	}
	if !sale.TotalAmount.Equal(req.TotalAmount) || sale.RequestID != req.ID || sale.CompletedBy != salesRep.ID {
		t.Fatalf("unexpected sale %+v", sale)
	}

	stored, _ := e.store.GetRequest(ctx, req.ID)
	if stored.Status != models.StatusSold {
		t.Errorf("expected sold, got %s", stored.Status)
	}

	if _, err := e.svc.CompleteSale(ctx, salesRep, req.ID, ""); !errors.Is(err, models.ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved on second sale, got %v", err)
	}

	sales, err := e.store.ListSales(ctx, "", 0)
	if err != nil {
		t.Fatalf("ListSales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected exactly one sale, got %d", len(sales))
	}
	if len(e.exporter.sales) != 1 {
		t.Errorf("expected one exported sale, got %d", len(e.exporter.sales))
	}
}

func TestListSalesTotalsRevenue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	otherRep := models.Actor{ID: "rep-2", Role: models.RoleSalesRep}

	e.addLot(t, models.StockBroilerLocal, 100)
	first := e.request(t, "f1", 40)
	second := e.request(t, "f2", 10)
	for _, req := range []models.ChickRequest{first, second} {
		if _, err := e.svc.ApproveRequest(ctx, manager, req.ID); err != nil {
			t.Fatalf("ApproveRequest: %v", err)
		}
	}
	if _, err := e.svc.CompleteSale(ctx, salesRep, first.ID, ""); err != nil {
		t.Fatalf("CompleteSale: %v", err)
	}
	if _, err := e.svc.CompleteSale(ctx, otherRep, second.ID, ""); err != nil {
		t.Fatalf("CompleteSale: %v", err)
	}

	own, err := e.svc.ListSales(ctx, salesRep)
	if err != nil {
		t.Fatalf("ListSales: %v", err)
	}
	if own.Count != 1 || !own.TotalRevenue.Equal(decimal.NewFromInt(40*1650)) {
		t.Errorf("unexpected sales rep summary %+v", own)
	}

	all, err := e.svc.ListSales(ctx, manager)
	if err != nil {
		t.Fatalf("ListSales: %v", err)
	}
	if all.Count != 2 || len(all.Sales) != 2 || !all.TotalRevenue.Equal(decimal.NewFromInt(50*1650)) {
		t.Errorf("unexpected manager summary %+v", all)
	}

	if _, err := e.svc.ListSales(ctx, farmer("f1")); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("expected ErrForbidden for farmer, got %v", err)
	}
}

func TestCompleteSaleRejectedRequest(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	req := e.request(t, "f1", 10)

	if _, err := e.svc.RejectRequest(ctx, manager, req.ID); err != nil {
		t.Fatalf("RejectRequest: %v", err)
	}
	if _, err := e.svc.CompleteSale(ctx, salesRep, req.ID, ""); !errors.Is(err, models.ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved, got %v", err)
	}
	if _, err := e.svc.CompleteSale(ctx, manager, req.ID, ""); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for manager, got %v", err)
	}
}

func TestGetRequestStatus(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.addLot(t, models.StockBroilerLocal, 100)
	req := e.request(t, "f1", 40)

	view, err := e.svc.GetRequestStatus(ctx, req.ID, "f1")
	if err != nil {
		t.Fatalf("GetRequestStatus: %v", err)
	}
	if view.Status != models.StatusPending || view.ApprovedAt != nil {
		t.Errorf("unexpected view %+v", view)
	}

	if _, err := e.svc.ApproveRequest(ctx, manager, req.ID); err != nil {
		t.Fatalf("ApproveRequest: %v", err)
	}
	view, _ = e.svc.GetRequestStatus(ctx, req.ID, "f1")
	if view.Status != models.StatusApproved || view.ApprovedAt == nil {
		t.Errorf("expected approval date, got %+v", view)
	}

	if _, err := e.svc.GetRequestStatus(ctx, req.ID, "f2"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another farmer, got %v", err)
	}
	if _, err := e.svc.GetRequestStatus(ctx, "nope", "f1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAddStockLotValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.AddStockLot(ctx, manager, models.NewStockLot{ChickType: models.StockLayerLocal, Quantity: 0}); !errors.Is(err, models.ErrInvalidQuantity) {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := e.svc.AddStockLot(ctx, manager, models.NewStockLot{ChickType: "duck_local", Quantity: 5}); !errors.Is(err, models.ErrInvalidChickType) {
		t.Errorf("expected ErrInvalidChickType, got %v", err)
	}
	if _, err := e.svc.AddStockLot(ctx, farmer("f1"), models.NewStockLot{ChickType: models.StockLayerLocal, Quantity: 5}); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("expected ErrForbidden, got %v", err)
	}

	lot := e.addLot(t, models.StockLayerLocal, 75)
	if !lot.IsAvailable || lot.AddedBy != manager.ID || lot.ID == "" {
		t.Errorf("unexpected lot %+v", lot)
	}

	summary, err := e.svc.ListStock(ctx, manager)
	if err != nil {
		t.Fatalf("ListStock: %v", err)
	}
	if len(summary.Lots) != 1 || len(summary.Totals) != len(models.StockKeys) {
		t.Fatalf("unexpected summary %+v", summary)
	}
	for _, total := range summary.Totals {
		want := 0
		if total.ChickType == models.StockLayerLocal {
			want = 75
		}
		if total.Quantity != want {
			t.Errorf("%s: expected %d, got %d", total.ChickType, want, total.Quantity)
		}
	}
}

func TestAddStockLotNormalizesChickType(t *testing.T) {
	e := newEnv(t)

	lot, err := e.svc.AddStockLot(context.Background(), manager, models.NewStockLot{ChickType: " Broiler_Exotic ", Quantity: 20})
	if err != nil {
		t.Fatalf("AddStockLot: %v", err)
	}
	if lot.ChickType != models.StockBroilerExotic {
		t.Errorf("expected %s, got %q", models.StockBroilerExotic, lot.ChickType)
	}
	if got := e.totalStock(t, models.StockBroilerExotic); got != 20 {
		t.Errorf("expected 20 broiler_exotic on hand, got %d", got)
	}
}

func TestNotificationsReachRegisteredFarmer(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	if _, err := e.svc.RegisterFarmer(ctx, farmer("f1"), models.FarmerProfile{
		FullName: "Aisha Nakato", NIN: "CM123", Phone: "+256 700 111222",
	}); err != nil {
		t.Fatalf("RegisterFarmer: %v", err)
	}

	e.addLot(t, models.StockBroilerLocal, 100)
	req := e.request(t, "f1", 40)
	if _, err := e.svc.ApproveRequest(ctx, manager, req.ID); err != nil {
		t.Fatalf("ApproveRequest: %v", err)
	}
	if _, err := e.svc.CompleteSale(ctx, salesRep, req.ID, ""); err != nil {
		t.Fatalf("CompleteSale: %v", err)
	}

	if len(e.notifier.sent) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(e.notifier.sent))
	}
	for _, msg := range e.notifier.sent {
		if msg.To != "256700111222" {
			t.Errorf("unexpected recipient %q", msg.To)
		}
	}
}

func TestNotificationFailureDoesNotFailApproval(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.notifier.err = errors.New("whatsapp down")

	if _, err := e.svc.RegisterFarmer(ctx, farmer("f1"), models.FarmerProfile{FullName: "A", NIN: "N1", Phone: "256700"}); err != nil {
		t.Fatalf("RegisterFarmer: %v", err)
	}
	e.addLot(t, models.StockBroilerLocal, 100)
	req := e.request(t, "f1", 10)

	if _, err := e.svc.ApproveRequest(ctx, manager, req.ID); err != nil {
		t.Fatalf("expected approval to succeed, got %v", err)
	}
}
