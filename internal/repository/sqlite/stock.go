package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

// ErrLotChanged is returned when a lot no longer holds the quantity an
// allocation plan was computed from.
var ErrLotChanged = errors.New("stock lot changed since it was read")

const lotColumns = `id, chick_type, quantity, age_in_days, is_available, added_by, created_at`

// InsertLot adds a lot to the ledger. An empty ID is filled in.
func (q *Queries) InsertLot(ctx context.Context, lot *models.StockLot) error {
	if lot.ID == "" {
		lot.ID = q.newID()
	}
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO stock_lots (id, chick_type, quantity, age_in_days, is_available, added_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		lot.ID, string(lot.ChickType), lot.Quantity, lot.AgeInDays, boolToInt(lot.IsAvailable), lot.AddedBy, toNanos(lot.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting stock lot: %w", err)
	}
	return nil
}

// GetLot returns a lot by ID.
func (q *Queries) GetLot(ctx context.Context, id string) (models.StockLot, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+lotColumns+` FROM stock_lots WHERE id = ?`, id)
	lot, err := scanLot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.StockLot{}, fmt.Errorf("stock lot %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.StockLot{}, fmt.Errorf("getting stock lot: %w", err)
	}
	return lot, nil
}

// ListLots returns every lot, newest first.
func (q *Queries) ListLots(ctx context.Context) ([]models.StockLot, error) {
	rows, err := q.q.QueryContext(ctx, `SELECT `+lotColumns+` FROM stock_lots ORDER BY created_at DESC, seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing stock lots: %w", err)
	}
	defer rows.Close()
	return scanLots(rows)
}

// AvailableLots returns the available lots of a key oldest first, ties broken by insertion order.
func (q *Queries) AvailableLots(ctx context.Context, key models.StockKey) ([]models.StockLot, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+lotColumns+` FROM stock_lots
		 WHERE chick_type = ? AND is_available = 1
		 ORDER BY created_at ASC, seq ASC`, string(key))
	if err != nil {
		return nil, fmt.Errorf("listing available lots: %w", err)
	}
	defer rows.Close()
	return scanLots(rows)
}

// AvailableQuantity sums the available quantity of a key.
func (q *Queries) AvailableQuantity(ctx context.Context, key models.StockKey) (int, error) {
	var total int
	err := q.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(quantity), 0) FROM stock_lots WHERE chick_type = ? AND is_available = 1`,
		string(key),
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("summing available stock: %w", err)
	}
	return total, nil
}

// StockTotals returns available quantity and lot count for every key, including empty ones.
func (q *Queries) StockTotals(ctx context.Context) ([]models.StockTotal, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT chick_type, COALESCE(SUM(quantity), 0), COUNT(*) FROM stock_lots
		 WHERE is_available = 1 GROUP BY chick_type`)
	if err != nil {
		return nil, fmt.Errorf("summing stock totals: %w", err)
	}
	defer rows.Close()

	found := make(map[models.StockKey]models.StockTotal)
	for rows.Next() {
		var key string
		var total models.StockTotal
		if err := rows.Scan(&key, &total.Quantity, &total.Lots); err != nil {
			return nil, fmt.Errorf("scanning stock total: %w", err)
		}
		found[models.StockKey(key)] = total
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	totals := make([]models.StockTotal, 0, len(models.StockKeys))
	for _, key := range models.StockKeys {
		total := found[key]
		total.ChickType = key
		total.Display = key.Display()
		totals = append(totals, total)
	}
	return totals, nil
}

// SetLotAvailability holds a lot back from allocation or releases it again.
func (q *Queries) SetLotAvailability(ctx context.Context, id string, available bool) error {
	res, err := q.q.ExecContext(ctx, `UPDATE stock_lots SET is_available = ? WHERE id = ?`, boolToInt(available), id)
	if err != nil {
		return fmt.Errorf("updating lot availability: %w", err)
	}
	return expectOne(res, fmt.Errorf("stock lot %s: %w", id, models.ErrNotFound))
}

// UpdateLotQuantity reduces a lot from the quantity it was read with to remaining.
func (q *Queries) UpdateLotQuantity(ctx context.Context, id string, before, remaining int) error {
	if remaining <= 0 || remaining > before {
		return fmt.Errorf("invalid lot reduction %d -> %d", before, remaining)
	}
	res, err := q.q.ExecContext(ctx,
		`UPDATE stock_lots SET quantity = ? WHERE id = ? AND quantity = ?`, remaining, id, before)
	if err != nil {
		return fmt.Errorf("reducing stock lot: %w", err)
	}
	return expectOne(res, fmt.Errorf("stock lot %s: %w", id, ErrLotChanged))
}

// DeleteLot removes a lot that still holds the quantity it was read with.
func (q *Queries) DeleteLot(ctx context.Context, id string, before int) error {
	res, err := q.q.ExecContext(ctx, `DELETE FROM stock_lots WHERE id = ? AND quantity = ?`, id, before)
	if err != nil {
		return fmt.Errorf("deleting stock lot: %w", err)
	}
	return expectOne(res, fmt.Errorf("stock lot %s: %w", id, ErrLotChanged))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLot(row rowScanner) (models.StockLot, error) {
	var (
		lot       models.StockLot
		chickType string
		available int
		createdAt int64
	)
	if err := row.Scan(&lot.ID, &chickType, &lot.Quantity, &lot.AgeInDays, &available, &lot.AddedBy, &createdAt); err != nil {
		return models.StockLot{}, err
	}
	lot.ChickType = models.StockKey(chickType)
	lot.IsAvailable = available != 0
	lot.CreatedAt = fromNanos(createdAt)
	return lot, nil
}

func scanLots(rows *sql.Rows) ([]models.StockLot, error) {
	var lots []models.StockLot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stock lot: %w", err)
		}
		lots = append(lots, lot)
	}
	return lots, rows.Err()
}

func expectOne(res sql.Result, notMatched error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return notMatched
	}
	return nil
}
