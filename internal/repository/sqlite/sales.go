package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

const saleColumns = `id, request_id, completed_by, total_amount, notes, sold_at`

// InsertSale records a completed sale. The UNIQUE request_id constraint makes a
// second sale for the same request fail.
func (q *Queries) InsertSale(ctx context.Context, s *models.Sale) error {
	if s.ID == "" {
		s.ID = q.newID()
	}
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO sales (id, request_id, completed_by, total_amount, notes, sold_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.RequestID, s.CompletedBy, s.TotalAmount.String(), s.Notes, toNanos(s.SoldAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("sale for request %s: %w", s.RequestID, models.ErrNotApproved)
		}
		return fmt.Errorf("inserting sale: %w", err)
	}
	return nil
}

// GetSaleByRequest returns the sale recorded for a request.
func (q *Queries) GetSaleByRequest(ctx context.Context, requestID string) (models.Sale, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+saleColumns+` FROM sales WHERE request_id = ?`, requestID)
	s, err := scanSale(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Sale{}, fmt.Errorf("sale for request %s: %w", requestID, models.ErrNotFound)
	}
	if err != nil {
		return models.Sale{}, fmt.Errorf("getting sale: %w", err)
	}
	return s, nil
}

// ListSales returns sales newest first, optionally only those completed by one sales rep.
func (q *Queries) ListSales(ctx context.Context, completedBy string, limit int) ([]models.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales`
	var args []any
	if completedBy != "" {
		query += ` WHERE completed_by = ?`
		args = append(args, completedBy)
	}
	query += ` ORDER BY sold_at DESC, seq DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	defer rows.Close()

	var sales []models.Sale
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

func scanSale(row rowScanner) (models.Sale, error) {
	var s models.Sale
	var soldAt int64
	if err := row.Scan(&s.ID, &s.RequestID, &s.CompletedBy, &s.TotalAmount, &s.Notes, &soldAt); err != nil {
		return models.Sale{}, err
	}
	s.SoldAt = fromNanos(soldAt)
	return s, nil
}
