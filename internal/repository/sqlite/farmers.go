package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

// ErrDuplicateFarmer is returned when another farmer already registered the phone or NIN.
var ErrDuplicateFarmer = errors.New("phone or nin already registered")

const farmerColumns = `user_id, full_name, nin_number, phone, recommender_name, recommender_nin, created_at, updated_at`

// UpsertFarmer creates or updates a farmer profile keyed by user id.
func (q *Queries) UpsertFarmer(ctx context.Context, p models.FarmerProfile) error {
	_, err := q.q.ExecContext(ctx,
		`INSERT INTO farmers (user_id, full_name, nin_number, phone, recommender_name, recommender_nin, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		     full_name = excluded.full_name,
		     nin_number = excluded.nin_number,
		     phone = excluded.phone,
		     recommender_name = excluded.recommender_name,
		     recommender_nin = excluded.recommender_nin,
		     updated_at = excluded.updated_at`,
		p.UserID, p.FullName, p.NIN, p.Phone, p.RecommenderName, p.RecommenderNIN, toNanos(p.CreatedAt), toNanos(p.UpdatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %w", models.ErrInvalidProfile, ErrDuplicateFarmer)
		}
		return fmt.Errorf("saving farmer: %w", err)
	}
	return nil
}

// GetFarmer returns a farmer profile by user id.
func (q *Queries) GetFarmer(ctx context.Context, userID string) (models.FarmerProfile, error) {
	return q.farmerWhere(ctx, "user_id = ?", userID)
}

// FarmerByPhone returns the farmer registered with a normalized phone number.
func (q *Queries) FarmerByPhone(ctx context.Context, phone string) (models.FarmerProfile, error) {
	return q.farmerWhere(ctx, "phone = ?", models.NormalizePhone(phone))
}

func (q *Queries) farmerWhere(ctx context.Context, cond string, arg any) (models.FarmerProfile, error) {
	var (
		p                    models.FarmerProfile
		createdAt, updatedAt int64
	)
	err := q.q.QueryRowContext(ctx, `SELECT `+farmerColumns+` FROM farmers WHERE `+cond, arg).
		Scan(&p.UserID, &p.FullName, &p.NIN, &p.Phone, &p.RecommenderName, &p.RecommenderNIN, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.FarmerProfile{}, fmt.Errorf("farmer: %w", models.ErrNotFound)
	}
	if err != nil {
		return models.FarmerProfile{}, fmt.Errorf("getting farmer: %w", err)
	}
	p.CreatedAt = fromNanos(createdAt)
	p.UpdatedAt = fromNanos(updatedAt)
	return p, nil
}
