package distribution

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/domain/models"
	"github.com/mamadbah2/chickflow/internal/repository/sqlite"
)

// RegisterFarmer creates or updates the calling farmer's contact profile.
func (s *Service) RegisterFarmer(ctx context.Context, actor models.Actor, profile models.FarmerProfile) (models.FarmerProfile, error) {
	if err := actor.Authorize(models.ActionRegisterFarmer); err != nil {
		return models.FarmerProfile{}, err
	}

	profile.UserID = actor.ID
	profile.Normalize(s.dialCode)
	if err := profile.Validate(); err != nil {
		return models.FarmerProfile{}, err
	}

	err := s.store.WithTx(ctx, func(q *sqlite.Queries) error {
		now := s.clock()
		existing, err := q.GetFarmer(ctx, actor.ID)
		switch {
		case errors.Is(err, models.ErrNotFound):
			profile.CreatedAt = now
		case err != nil:
			return err
		default:
			profile.CreatedAt = existing.CreatedAt
		}
		profile.UpdatedAt = now
		return q.UpsertFarmer(ctx, profile)
	})
	if err != nil {
		return models.FarmerProfile{}, err
	}

	s.logger.Info("farmer profile saved", zap.String("farmer_id", profile.UserID))
	return profile, nil
}

// FarmerByPhone resolves the farmer behind a WhatsApp sender id.
func (s *Service) FarmerByPhone(ctx context.Context, phone string) (models.FarmerProfile, error) {
	return s.store.FarmerByPhone(ctx, models.InternationalPhone(phone, s.dialCode))
}

// FarmerDashboard summarizes the calling farmer's requests and when they may request again.
func (s *Service) FarmerDashboard(ctx context.Context, actor models.Actor) (models.FarmerDashboard, error) {
	if err := actor.Authorize(models.ActionFarmerDashboard); err != nil {
		return models.FarmerDashboard{}, err
	}

	requests, err := s.store.ListRequests(ctx, sqlite.RequestFilter{FarmerID: actor.ID})
	if err != nil {
		return models.FarmerDashboard{}, err
	}

	dash := models.FarmerDashboard{
		FarmerID:      actor.ID,
		Requests:      requests,
		TotalRequests: len(requests),
		CanRequest:    true,
	}
	for _, r := range requests {
		switch r.Status {
		case models.StatusPending:
			dash.PendingRequests++
		case models.StatusApproved:
			dash.ApprovedRequests++
			dash.TotalChicks += r.Quantity
		case models.StatusRejected:
			dash.RejectedRequests++
		case models.StatusSold:
			dash.CompletedSales++
			dash.TotalChicks += r.Quantity
		}
	}

	if len(requests) > 0 {
		latest := requests[0].CreatedAt
		if models.CooldownActive(latest, s.clock()) {
			next := models.NextRequestAt(latest)
			dash.CanRequest = false
			dash.NextRequestDate = &next
		}
	}

	return dash, nil
}

// ManagerOverview collects the manager desk: pending work oldest first, stock on
// hand and the latest decisions.
func (s *Service) ManagerOverview(ctx context.Context, actor models.Actor) (models.ManagerOverview, error) {
	if err := actor.Authorize(models.ActionOverview); err != nil {
		return models.ManagerOverview{}, err
	}

	pending, err := s.store.ListRequests(ctx, sqlite.RequestFilter{Status: models.StatusPending, OldestFirst: true})
	if err != nil {
		return models.ManagerOverview{}, err
	}
	stock, err := s.store.StockTotals(ctx)
	if err != nil {
		return models.ManagerOverview{}, err
	}
	recent, err := s.store.RecentDecisions(ctx, recentDecisionLimit)
	if err != nil {
		return models.ManagerOverview{}, err
	}

	return models.ManagerOverview{PendingRequests: pending, Stock: stock, RecentDecisions: recent}, nil
}
