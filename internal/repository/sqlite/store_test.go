package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

var base = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(newTestDB(t), nil)
}

func insertLot(t *testing.T, s *Store, key models.StockKey, qty int, at time.Time) models.StockLot {
	t.Helper()
	lot := models.StockLot{ChickType: key, Quantity: qty, IsAvailable: true, AddedBy: "mgr", CreatedAt: at}
	if err := s.InsertLot(context.Background(), &lot); err != nil {
		t.Fatalf("InsertLot: %v", err)
	}
	return lot
}

func insertRequest(t *testing.T, s *Store, farmerID string, qty int, at time.Time) models.ChickRequest {
	t.Helper()
	req := models.ChickRequest{
		FarmerID:    farmerID,
		ChickType:   models.SpeciesLayer,
		BreedType:   models.BreedExotic,
		Quantity:    qty,
		FarmerTier:  models.TierStarter,
		Status:      models.StatusPending,
		TotalAmount: models.TotalFor(qty, models.DefaultUnitPrice),
		CreatedAt:   at,
	}
	if err := s.InsertRequest(context.Background(), &req); err != nil {
		t.Fatalf("InsertRequest: %v", err)
	}
	return req
}

func TestAvailableLotsFIFOOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	newest := insertLot(t, s, models.StockLayerExotic, 10, base.Add(2*time.Hour))
	tieA := insertLot(t, s, models.StockLayerExotic, 20, base)
	tieB := insertLot(t, s, models.StockLayerExotic, 30, base)
	insertLot(t, s, models.StockLayerLocal, 99, base.Add(-time.Hour))

	held := insertLot(t, s, models.StockLayerExotic, 40, base.Add(-time.Hour))
	if err := s.SetLotAvailability(ctx, held.ID, false); err != nil {
		t.Fatalf("SetLotAvailability: %v", err)
	}

	lots, err := s.AvailableLots(ctx, models.StockLayerExotic)
	if err != nil {
		t.Fatalf("AvailableLots: %v", err)
	}
	want := []string{tieA.ID, tieB.ID, newest.ID}
	if len(lots) != len(want) {
		t.Fatalf("expected %d lots, got %d", len(want), len(lots))
	}
	for i, id := range want {
		if lots[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, lots[i].ID)
		}
	}
	if !lots[0].CreatedAt.Equal(base) {
		t.Errorf("created_at did not round-trip: %v", lots[0].CreatedAt)
	}

	total, err := s.AvailableQuantity(ctx, models.StockLayerExotic)
	if err != nil {
		t.Fatalf("AvailableQuantity: %v", err)
	}
	if total != 60 {
		t.Errorf("expected 60 available, got %d", total)
	}
}

func TestStockTotalsIncludesEmptyKeys(t *testing.T) {
	s := newTestStore(t)
	insertLot(t, s, models.StockBroilerExotic, 15, base)
	insertLot(t, s, models.StockBroilerExotic, 5, base)

	totals, err := s.StockTotals(context.Background())
	if err != nil {
		t.Fatalf("StockTotals: %v", err)
	}
	if len(totals) != len(models.StockKeys) {
		t.Fatalf("expected %d totals, got %d", len(models.StockKeys), len(totals))
	}
	for _, total := range totals {
		switch total.ChickType {
		case models.StockBroilerExotic:
			if total.Quantity != 20 || total.Lots != 2 {
				t.Errorf("unexpected broiler exotic total %+v", total)
			}
		default:
			if total.Quantity != 0 || total.Lots != 0 {
				t.Errorf("expected empty total for %s, got %+v", total.ChickType, total)
			}
		}
		if total.Display == "" {
			t.Errorf("missing display for %s", total.ChickType)
		}
	}
}

func TestGuardedLotUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	lot := insertLot(t, s, models.StockBroilerLocal, 50, base)

	if err := s.UpdateLotQuantity(ctx, lot.ID, 40, 30); !errors.Is(err, ErrLotChanged) {
		t.Fatalf("expected ErrLotChanged for stale quantity, got %v", err)
	}
	if err := s.UpdateLotQuantity(ctx, lot.ID, 50, 60); err == nil {
		t.Fatal("expected growth to be rejected")
	}
	if err := s.UpdateLotQuantity(ctx, lot.ID, 50, 35); err != nil {
		t.Fatalf("UpdateLotQuantity: %v", err)
	}
	if err := s.DeleteLot(ctx, lot.ID, 50); !errors.Is(err, ErrLotChanged) {
		t.Fatalf("expected ErrLotChanged deleting with stale quantity, got %v", err)
	}
	if err := s.DeleteLot(ctx, lot.ID, 35); err != nil {
		t.Fatalf("DeleteLot: %v", err)
	}
	if _, err := s.GetLot(ctx, lot.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWithTxRollsBackOnError(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	first := insertLot(t, s, models.StockBroilerLocal, 30, base)
	second := insertLot(t, s, models.StockBroilerLocal, 50, base.Add(time.Minute))

	err := s.WithTx(ctx, func(q *Queries) error {
		if err := q.DeleteLot(ctx, first.ID, 30); err != nil {
			return err
		}
		return q.UpdateLotQuantity(ctx, second.ID, 45, 40)
	})
	if !errors.Is(err, ErrLotChanged) {
		t.Fatalf("expected ErrLotChanged, got %v", err)
	}

	if got, err := s.GetLot(ctx, first.ID); err != nil || got.Quantity != 30 {
		t.Fatalf("expected first lot restored, got %+v, %v", got, err)
	}
	if got, _ := s.GetLot(ctx, second.ID); got.Quantity != 50 {
		t.Fatalf("expected second lot untouched, got %d", got.Quantity)
	}
}

func TestRequestTransitions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req := insertRequest(t, s, "f1", 40, base)

	if err := s.MarkSold(ctx, req.ID); !errors.Is(err, models.ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved selling a pending request, got %v", err)
	}
	if err := s.MarkApproved(ctx, req.ID, "mgr", base.Add(time.Hour)); err != nil {
		t.Fatalf("MarkApproved: %v", err)
	}
	if err := s.MarkRejected(ctx, req.ID, "mgr", base.Add(time.Hour)); !errors.Is(err, models.ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}
	if err := s.MarkSold(ctx, req.ID); err != nil {
		t.Fatalf("MarkSold: %v", err)
	}

	got, err := s.GetRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if got.Status != models.StatusSold || got.ApprovedBy != "mgr" || got.RejectedAt != nil {
		t.Errorf("unexpected request %+v", got)
	}
	if !got.TotalAmount.Equal(decimal.NewFromInt(66000)) {
		t.Errorf("expected total 66000, got %s", got.TotalAmount)
	}
}

func TestLatestRequestForFarmer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.LatestRequestForFarmer(ctx, "f1"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	insertRequest(t, s, "f1", 10, base)
	latest := insertRequest(t, s, "f1", 20, base.Add(time.Hour))
	insertRequest(t, s, "f2", 30, base.Add(2*time.Hour))

	got, err := s.LatestRequestForFarmer(ctx, "f1")
	if err != nil {
		t.Fatalf("LatestRequestForFarmer: %v", err)
	}
	if got.ID != latest.ID {
		t.Errorf("expected %s, got %s", latest.ID, got.ID)
	}
}

func TestInsertSaleOncePerRequest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	req := insertRequest(t, s, "f1", 40, base)

	sale := models.Sale{RequestID: req.ID, CompletedBy: "rep", TotalAmount: req.TotalAmount, SoldAt: base}
	if err := s.InsertSale(ctx, &sale); err != nil {
		t.Fatalf("InsertSale: %v", err)
	}
	dup := models.Sale{RequestID: req.ID, CompletedBy: "rep", TotalAmount: req.TotalAmount, SoldAt: base}
	if err := s.InsertSale(ctx, &dup); !errors.Is(err, models.ErrNotApproved) {
		t.Fatalf("expected ErrNotApproved for duplicate sale, got %v", err)
	}

	got, err := s.GetSaleByRequest(ctx, req.ID)
	if err != nil {
		t.Fatalf("GetSaleByRequest: %v", err)
	}
	if got.ID != sale.ID || !got.TotalAmount.Equal(req.TotalAmount) {
		t.Errorf("unexpected sale %+v", got)
	}
}

func TestActivity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dayStart := base.Truncate(24 * time.Hour)
	dayEnd := dayStart.Add(24 * time.Hour)

	insertRequest(t, s, "old", 10, dayStart.Add(-time.Hour))
	approved := insertRequest(t, s, "f1", 40, dayStart.Add(time.Hour))
	rejected := insertRequest(t, s, "f2", 10, dayStart.Add(2*time.Hour))
	insertRequest(t, s, "f3", 10, dayStart.Add(3*time.Hour))

	if err := s.MarkApproved(ctx, approved.ID, "mgr", dayStart.Add(4*time.Hour)); err != nil {
		t.Fatalf("MarkApproved: %v", err)
	}
	if err := s.MarkRejected(ctx, rejected.ID, "mgr", dayStart.Add(4*time.Hour)); err != nil {
		t.Fatalf("MarkRejected: %v", err)
	}
	if err := s.MarkSold(ctx, approved.ID); err != nil {
		t.Fatalf("MarkSold: %v", err)
	}
	sale := models.Sale{RequestID: approved.ID, CompletedBy: "rep", TotalAmount: approved.TotalAmount, SoldAt: dayStart.Add(5 * time.Hour)}
	if err := s.InsertSale(ctx, &sale); err != nil {
		t.Fatalf("InsertSale: %v", err)
	}

	a, err := s.Activity(ctx, dayStart, dayEnd)
	if err != nil {
		t.Fatalf("Activity: %v", err)
	}
	if a.RequestsCreated != 3 || a.RequestsApproved != 1 || a.RequestsRejected != 1 || a.PendingBacklog != 2 {
		t.Errorf("unexpected request activity %+v", a)
	}
	if a.SalesCount != 1 || a.ChicksSold != 40 || !a.SalesAmount.Equal(decimal.NewFromInt(66000)) {
		t.Errorf("unexpected sales activity %+v", a)
	}
}

func TestFarmerLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := models.FarmerProfile{UserID: "f1", FullName: "Aisha", NIN: "CM1", Phone: "256700111222", CreatedAt: base, UpdatedAt: base}
	if err := s.UpsertFarmer(ctx, p); err != nil {
		t.Fatalf("UpsertFarmer: %v", err)
	}

	got, err := s.FarmerByPhone(ctx, "+256 700 111 222")
	if err != nil {
		t.Fatalf("FarmerByPhone: %v", err)
	}
	if got.UserID != "f1" {
		t.Errorf("unexpected farmer %+v", got)
	}

	clash := models.FarmerProfile{UserID: "f2", FullName: "Other", NIN: "CM1", Phone: "256700999", CreatedAt: base, UpdatedAt: base}
	err = s.UpsertFarmer(ctx, clash)
	if !errors.Is(err, ErrDuplicateFarmer) || !errors.Is(err, models.ErrInvalidProfile) {
		t.Fatalf("expected duplicate farmer error, got %v", err)
	}
}

func TestUniqueViolationMatchesConstraintCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	lot := insertLot(t, s, models.StockBroilerLocal, 10, base)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stock_lots (id, chick_type, quantity, age_in_days, is_available, added_by, created_at)
		 VALUES (?, 'broiler_local', 5, 0, 1, 'mgr', 0)`, lot.ID)
	if err == nil {
		t.Fatal("expected duplicate lot id to fail")
	}
	if !isUniqueViolation(err) {
		t.Errorf("expected unique violation, got %v", err)
	}

	if isUniqueViolation(errors.New("UNIQUE constraint failed: sales.request_id")) {
		t.Error("plain errors must not match by message")
	}

	orphan := models.Sale{RequestID: "missing", CompletedBy: "rep", TotalAmount: decimal.NewFromInt(1650), SoldAt: base}
	err = s.InsertSale(ctx, &orphan)
	if err == nil {
		t.Fatal("expected foreign key failure for a sale without request")
	}
	if isUniqueViolation(err) || errors.Is(err, models.ErrNotApproved) {
		t.Errorf("foreign key failure must not be reported as duplicate sale: %v", err)
	}
}
