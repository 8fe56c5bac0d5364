package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

const requestColumns = `id, farmer_id, chick_type, breed_type, quantity_requested, farmer_tier, status,
	total_amount, notes, created_at, approved_by, approved_at, rejected_by, rejected_at`

// RequestFilter narrows ListRequests. Zero values match everything.
type RequestFilter struct {
	FarmerID    string
	Status      models.RequestStatus
	OldestFirst bool
	Limit       int
}

// InsertRequest stores a new pending request. An empty ID is filled in.
func (q *Queries) InsertRequest(ctx context.Context, r *models.ChickRequest) error {
	if r.ID == "" {
		r.ID = q.newID()
	}
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO chick_requests (id, farmer_id, chick_type, breed_type, quantity_requested, farmer_tier,
		                             status, total_amount, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.FarmerID, string(r.ChickType), string(r.BreedType), r.Quantity, string(r.FarmerTier),
		string(r.Status), r.TotalAmount.String(), r.Notes, toNanos(r.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting chick request: %w", err)
	}
	return nil
}

// GetRequest returns a request by ID.
func (q *Queries) GetRequest(ctx context.Context, id string) (models.ChickRequest, error) {
	row := q.q.QueryRowContext(ctx, `SELECT `+requestColumns+` FROM chick_requests WHERE id = ?`, id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChickRequest{}, fmt.Errorf("chick request %s: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return models.ChickRequest{}, fmt.Errorf("getting chick request: %w", err)
	}
	return r, nil
}

// LatestRequestForFarmer returns the farmer's most recently created request.
func (q *Queries) LatestRequestForFarmer(ctx context.Context, farmerID string) (models.ChickRequest, error) {
	row := q.q.QueryRowContext(ctx,
		`SELECT `+requestColumns+` FROM chick_requests
		 WHERE farmer_id = ? ORDER BY created_at DESC, seq DESC LIMIT 1`, farmerID)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.ChickRequest{}, fmt.Errorf("latest request of %s: %w", farmerID, models.ErrNotFound)
	}
	if err != nil {
		return models.ChickRequest{}, fmt.Errorf("getting latest request: %w", err)
	}
	return r, nil
}

// ListRequests returns requests matching the filter, newest first unless OldestFirst is set.
func (q *Queries) ListRequests(ctx context.Context, f RequestFilter) ([]models.ChickRequest, error) {
	var (
		where []string
		args  []any
	)
	if f.FarmerID != "" {
		where = append(where, "farmer_id = ?")
		args = append(args, f.FarmerID)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}

	query := `SELECT ` + requestColumns + ` FROM chick_requests`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	if f.OldestFirst {
		query += ` ORDER BY created_at ASC, seq ASC`
	} else {
		query += ` ORDER BY created_at DESC, seq DESC`
	}
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := q.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing chick requests: %w", err)
	}
	defer rows.Close()

	var requests []models.ChickRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chick request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// RecentDecisions returns the latest approved, rejected or sold requests ordered by decision time.
func (q *Queries) RecentDecisions(ctx context.Context, limit int) ([]models.ChickRequest, error) {
	rows, err := q.q.QueryContext(ctx,
		`SELECT `+requestColumns+` FROM chick_requests
		 WHERE status != 'pending'
		 ORDER BY COALESCE(approved_at, rejected_at) DESC, seq DESC
		 LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing recent decisions: %w", err)
	}
	defer rows.Close()

	var requests []models.ChickRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning chick request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// MarkApproved moves a pending request to approved and stamps the approver.
func (q *Queries) MarkApproved(ctx context.Context, id, approverID string, at time.Time) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE chick_requests SET status = 'approved', approved_by = ?, approved_at = ?
		 WHERE id = ? AND status = 'pending'`, approverID, toNanos(at), id)
	if err != nil {
		return fmt.Errorf("approving chick request: %w", err)
	}
	return expectOne(res, fmt.Errorf("chick request %s: %w", id, models.ErrNotPending))
}

// MarkRejected moves a pending request to rejected and stamps the rejecting manager.
func (q *Queries) MarkRejected(ctx context.Context, id, rejectorID string, at time.Time) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE chick_requests SET status = 'rejected', rejected_by = ?, rejected_at = ?
		 WHERE id = ? AND status = 'pending'`, rejectorID, toNanos(at), id)
	if err != nil {
		return fmt.Errorf("rejecting chick request: %w", err)
	}
	return expectOne(res, fmt.Errorf("chick request %s: %w", id, models.ErrNotPending))
}

// MarkSold moves an approved request to sold.
func (q *Queries) MarkSold(ctx context.Context, id string) error {
	res, err := q.q.ExecContext(ctx,
		`UPDATE chick_requests SET status = 'sold' WHERE id = ? AND status = 'approved'`, id)
	if err != nil {
		return fmt.Errorf("marking chick request sold: %w", err)
	}
	return expectOne(res, fmt.Errorf("chick request %s: %w", id, models.ErrNotApproved))
}

// Activity counts request and sale events in [start, end).
func (q *Queries) Activity(ctx context.Context, start, end time.Time) (models.DailyActivity, error) {
	var a models.DailyActivity
	from, to := toNanos(start), toNanos(end)

	err := q.q.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM chick_requests WHERE created_at >= ? AND created_at < ?),
		    (SELECT COUNT(*) FROM chick_requests WHERE approved_at >= ? AND approved_at < ?),
		    (SELECT COUNT(*) FROM chick_requests WHERE rejected_at >= ? AND rejected_at < ?),
		    (SELECT COUNT(*) FROM chick_requests WHERE status = 'pending')`,
		from, to, from, to, from, to,
	).Scan(&a.RequestsCreated, &a.RequestsApproved, &a.RequestsRejected, &a.PendingBacklog)
	if err != nil {
		return models.DailyActivity{}, fmt.Errorf("counting request activity: %w", err)
	}

	rows, err := q.q.QueryContext(ctx,
		`SELECT s.total_amount, r.quantity_requested FROM sales s
		 JOIN chick_requests r ON r.id = s.request_id
		 WHERE s.sold_at >= ? AND s.sold_at < ?`, from, to)
	if err != nil {
		return models.DailyActivity{}, fmt.Errorf("listing sales activity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sale models.Sale
		var qty int
		if err := rows.Scan(&sale.TotalAmount, &qty); err != nil {
			return models.DailyActivity{}, fmt.Errorf("scanning sales activity: %w", err)
		}
		a.SalesCount++
		a.ChicksSold += qty
		a.SalesAmount = a.SalesAmount.Add(sale.TotalAmount)
	}
	return a, rows.Err()
}

func scanRequest(row rowScanner) (models.ChickRequest, error) {
	var (
		r                      models.ChickRequest
		chickType, breed       string
		tier, status           string
		createdAt              int64
		approvedBy, rejectedBy sql.NullString
		approvedAt, rejectedAt sql.NullInt64
	)
	if err := row.Scan(&r.ID, &r.FarmerID, &chickType, &breed, &r.Quantity, &tier, &status,
		&r.TotalAmount, &r.Notes, &createdAt, &approvedBy, &approvedAt, &rejectedBy, &rejectedAt); err != nil {
		return models.ChickRequest{}, err
	}
	r.ChickType = models.Species(chickType)
	r.BreedType = models.Breed(breed)
	r.FarmerTier = models.Tier(tier)
	r.Status = models.RequestStatus(status)
	r.CreatedAt = fromNanos(createdAt)
	r.ApprovedBy = approvedBy.String
	r.ApprovedAt = timePtr(approvedAt)
	r.RejectedBy = rejectedBy.String
	r.RejectedAt = timePtr(rejectedAt)
	return r, nil
}
