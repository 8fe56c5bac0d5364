package sheets

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

const (
	salesDataRange = "Sales!A:H"
	salesIDRange   = "Sales!A:A"
	timeLayout     = "2006-01-02 15:04:05"
)

// SalesExporter mirrors completed sales into the "Sales" tab, one row per sale.
type SalesExporter struct {
	repo   Repository
	logger *zap.Logger
}

// NewSalesExporter wraps a sheet repository.
func NewSalesExporter(repo Repository, logger *zap.Logger) *SalesExporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SalesExporter{repo: repo, logger: logger}
}

// salesHeader labels the columns written by saleRow.
var salesHeader = []interface{}{
	"Sale ID", "Sold At", "Request ID", "Farmer ID", "Chick Type", "Quantity", "Total Amount (UGX)", "Sales Rep",
}

// EnsureHeader writes the column labels when the Sales tab is empty.
func (e *SalesExporter) EnsureHeader(ctx context.Context) error {
	rows, err := e.repo.ReadRange(ctx, salesIDRange)
	if err != nil {
		return fmt.Errorf("load sales tab: %w", err)
	}
	if len(rows) > 0 {
		return nil
	}
	return e.repo.WriteRow(ctx, salesDataRange, salesHeader)
}

// ExportSale appends the sale unless a row with its id already exists.
func (e *SalesExporter) ExportSale(ctx context.Context, sale models.Sale, req models.ChickRequest) error {
	rows, err := e.repo.ReadRange(ctx, salesIDRange)
	if err != nil {
		return fmt.Errorf("load exported sale ids: %w", err)
	}
	for _, row := range rows {
		if len(row) > 0 && fmt.Sprint(row[0]) == sale.ID {
			e.logger.Debug("sale already exported", zap.String("sale_id", sale.ID))
			return nil
		}
	}

	if err := e.repo.WriteRow(ctx, salesDataRange, saleRow(sale, req)); err != nil {
		return fmt.Errorf("export sale %s: %w", sale.ID, err)
	}
	return nil
}

func saleRow(sale models.Sale, req models.ChickRequest) []interface{} {
	return []interface{}{
		sale.ID,
		sale.SoldAt.Format(timeLayout),
		req.ID,
		req.FarmerID,
		req.StockKey().Display(),
		req.Quantity,
		sale.TotalAmount.String(),
		sale.CompletedBy,
	}
}
