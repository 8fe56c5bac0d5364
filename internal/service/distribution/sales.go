package distribution

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/domain/models"
	"github.com/mamadbah2/chickflow/internal/repository/sqlite"
)

// CompleteSale turns an approved request into its sale record and moves the
// request to sold. Any other status fails with ErrNotApproved.
func (s *Service) CompleteSale(ctx context.Context, actor models.Actor, requestID, notes string) (models.Sale, error) {
	if err := actor.Authorize(models.ActionCompleteSale); err != nil {
		return models.Sale{}, err
	}

	var (
		sale models.Sale
		req  models.ChickRequest
	)
	err := s.store.WithTx(ctx, func(q *sqlite.Queries) error {
		var err error
		req, err = q.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.CanTransitionTo(models.StatusSold) {
			return fmt.Errorf("%w: request is %s", models.ErrNotApproved, req.Status)
		}

		if err := q.MarkSold(ctx, req.ID); err != nil {
			return err
		}

		sale = models.Sale{
			RequestID:   req.ID,
			CompletedBy: actor.ID,
			TotalAmount: req.TotalAmount,
			Notes:       strings.TrimSpace(notes),
			SoldAt:      s.clock(),
		}
		if err := q.InsertSale(ctx, &sale); err != nil {
			return err
		}
		req.Status = models.StatusSold
		return nil
	})
	if err != nil {
		return models.Sale{}, err
	}

	s.logger.Info("sale completed",
		zap.String("sale_id", sale.ID),
		zap.String("request_id", sale.RequestID),
		zap.String("completed_by", sale.CompletedBy),
		zap.String("total_amount", sale.TotalAmount.String()))

	s.exportSale(ctx, sale, req)
	s.notify(ctx, req.FarmerID, fmt.Sprintf(
		"Sale completed for %s. Amount: %s. Thank you!", requestLabel(req), formatAmount(sale.TotalAmount)))

	return sale, nil
}

// ListSales returns sales for the sales desk (own sales) or the manager (all
// sales) with their total revenue.
func (s *Service) ListSales(ctx context.Context, actor models.Actor) (models.SalesSummary, error) {
	if err := actor.Authorize(models.ActionListSales); err != nil {
		return models.SalesSummary{}, err
	}

	completedBy := ""
	if actor.Role == models.RoleSalesRep {
		completedBy = actor.ID
	}
	sales, err := s.store.ListSales(ctx, completedBy, 0)
	if err != nil {
		return models.SalesSummary{}, err
	}

	summary := models.SalesSummary{Sales: sales, Count: len(sales), TotalRevenue: decimal.Zero}
	for _, sale := range sales {
		summary.TotalRevenue = summary.TotalRevenue.Add(sale.TotalAmount)
	}
	return summary, nil
}

func (s *Service) exportSale(ctx context.Context, sale models.Sale, req models.ChickRequest) {
	if s.exporter == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	if err := s.exporter.ExportSale(ctx, sale, req); err != nil {
		s.logger.Warn("sale export failed", zap.String("sale_id", sale.ID), zap.Error(err))
	}
}
