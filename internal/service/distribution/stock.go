package distribution

import (
	"context"

	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

// AddStockLot records a freshly received lot as available stock.
func (s *Service) AddStockLot(ctx context.Context, actor models.Actor, in models.NewStockLot) (models.StockLot, error) {
	if err := actor.Authorize(models.ActionManageStock); err != nil {
		return models.StockLot{}, err
	}
	key, err := models.ParseStockKey(string(in.ChickType))
	if err != nil {
		return models.StockLot{}, err
	}
	in.ChickType = key
	if err := in.Validate(); err != nil {
		return models.StockLot{}, err
	}

	lot := models.StockLot{
		ChickType:   in.ChickType,
		Quantity:    in.Quantity,
		AgeInDays:   in.AgeInDays,
		IsAvailable: true,
		AddedBy:     actor.ID,
		CreatedAt:   s.clock(),
	}
	if err := s.store.InsertLot(ctx, &lot); err != nil {
		return models.StockLot{}, err
	}

	s.logger.Info("stock lot added",
		zap.String("lot_id", lot.ID),
		zap.String("stock_key", string(lot.ChickType)),
		zap.Int("quantity", lot.Quantity),
		zap.Int("age_in_days", lot.AgeInDays),
		zap.String("added_by", lot.AddedBy))

	return lot, nil
}

// SetLotAvailability holds a lot back from allocation or releases it. The lot's
// key lock is taken so an approval in flight sees a consistent set of lots.
func (s *Service) SetLotAvailability(ctx context.Context, actor models.Actor, lotID string, available bool) (models.StockLot, error) {
	if err := actor.Authorize(models.ActionManageStock); err != nil {
		return models.StockLot{}, err
	}

	lot, err := s.store.GetLot(ctx, lotID)
	if err != nil {
		return models.StockLot{}, err
	}

	unlock := s.locks.lock(lot.ChickType)
	defer unlock()

	if err := s.store.SetLotAvailability(ctx, lotID, available); err != nil {
		return models.StockLot{}, err
	}
	lot.IsAvailable = available

	s.logger.Info("stock lot availability changed",
		zap.String("lot_id", lot.ID),
		zap.Bool("available", available),
		zap.String("changed_by", actor.ID))

	return lot, nil
}

// ListStock returns every lot, newest first, with available totals per key.
func (s *Service) ListStock(ctx context.Context, actor models.Actor) (models.StockSummary, error) {
	if err := actor.Authorize(models.ActionManageStock); err != nil {
		return models.StockSummary{}, err
	}

	lots, err := s.store.ListLots(ctx)
	if err != nil {
		return models.StockSummary{}, err
	}
	totals, err := s.store.StockTotals(ctx)
	if err != nil {
		return models.StockSummary{}, err
	}
	return models.StockSummary{Lots: lots, Totals: totals}, nil
}
