package distribution

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/domain/models"
	"github.com/mamadbah2/chickflow/internal/repository/sqlite"
	"github.com/mamadbah2/chickflow/internal/service/allocation"
)

// CreateRequest files a new pending request for the calling farmer. It enforces
// the tier cap and the 120-day cooldown, and prices the request once.
func (s *Service) CreateRequest(ctx context.Context, actor models.Actor, in models.NewChickRequest) (models.ChickRequest, error) {
	if err := actor.Authorize(models.ActionCreateRequest); err != nil {
		return models.ChickRequest{}, err
	}
	in.Notes = strings.TrimSpace(in.Notes)
	if err := in.Validate(); err != nil {
		return models.ChickRequest{}, err
	}

	now := s.clock()
	req := models.ChickRequest{
		FarmerID:    actor.ID,
		ChickType:   in.ChickType,
		BreedType:   in.BreedType,
		Quantity:    in.Quantity,
		FarmerTier:  in.FarmerTier,
		Status:      models.StatusPending,
		TotalAmount: models.TotalFor(in.Quantity, s.unitPrice),
		Notes:       in.Notes,
		CreatedAt:   now,
	}

	err := s.store.WithTx(ctx, func(q *sqlite.Queries) error {
		latest, err := q.LatestRequestForFarmer(ctx, actor.ID)
		switch {
		case errors.Is(err, models.ErrNotFound):
		case err != nil:
			return err
		case models.CooldownActive(latest.CreatedAt, now):
			next := models.NextRequestAt(latest.CreatedAt)
			return fmt.Errorf("%w: one request every 120 days, next request allowed from %s",
				models.ErrCooldownActive, next.Format(dateLayout))
		}
		return q.InsertRequest(ctx, &req)
	})
	if err != nil {
		return models.ChickRequest{}, err
	}

	s.logger.Info("chick request created",
		zap.String("request_id", req.ID),
		zap.String("farmer_id", req.FarmerID),
		zap.String("stock_key", string(req.StockKey())),
		zap.Int("quantity", req.Quantity),
		zap.String("total_amount", req.TotalAmount.String()))

	return req, nil
}

// ApproveRequest approves a pending request and draws its quantity from the
// oldest available lots. The availability check, the status change and every
// lot update commit together, under the stock key's lock.
func (s *Service) ApproveRequest(ctx context.Context, actor models.Actor, requestID string) (models.ChickRequest, error) {
	if err := actor.Authorize(models.ActionApproveRequest); err != nil {
		return models.ChickRequest{}, err
	}

	current, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return models.ChickRequest{}, err
	}
	if !current.Status.CanTransitionTo(models.StatusApproved) {
		return models.ChickRequest{}, fmt.Errorf("%w: request is %s", models.ErrNotPending, current.Status)
	}

	key := current.StockKey()
	unlock := s.locks.lock(key)
	defer unlock()

	var (
		approved models.ChickRequest
		plan     allocation.Plan
	)
	err = s.store.WithTx(ctx, func(q *sqlite.Queries) error {
		req, err := q.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.CanTransitionTo(models.StatusApproved) {
			return fmt.Errorf("%w: request is %s", models.ErrNotPending, req.Status)
		}

		lots, err := q.AvailableLots(ctx, key)
		if err != nil {
			return err
		}
		plan, err = allocation.PlanFIFO(lots, key, req.Quantity)
		if err != nil {
			return err
		}

		now := s.clock()
		if err := q.MarkApproved(ctx, req.ID, actor.ID, now); err != nil {
			return err
		}

		for _, step := range plan.Steps {
			if step.Deletes() {
				err = q.DeleteLot(ctx, step.LotID, step.Before)
			} else {
				err = q.UpdateLotQuantity(ctx, step.LotID, step.Before, step.Remaining)
			}
			if err != nil {
				return err
			}
		}

		req.Status = models.StatusApproved
		req.ApprovedBy = actor.ID
		req.ApprovedAt = &now
		approved = req
		return nil
	})
	if err != nil {
		var short *models.InsufficientStockError
		if errors.As(err, &short) {
			s.logger.Info("approval refused, insufficient stock",
				zap.String("request_id", requestID),
				zap.String("stock_key", string(key)),
				zap.Int("available", short.Available),
				zap.Int("requested", short.Requested))
		}
		return models.ChickRequest{}, err
	}

	s.logger.Info("chick request approved",
		zap.String("request_id", approved.ID),
		zap.String("approved_by", actor.ID),
		zap.String("stock_key", string(key)),
		zap.Int("quantity", approved.Quantity),
		zap.Int("lots_touched", len(plan.Steps)))

	s.notify(ctx, approved.FarmerID, fmt.Sprintf(
		"Your request for %s has been approved. Amount due: %s. Request ID: %s",
		requestLabel(approved), formatAmount(approved.TotalAmount), approved.ID))

	return approved, nil
}

// RejectRequest rejects a pending request. Stock is not touched.
func (s *Service) RejectRequest(ctx context.Context, actor models.Actor, requestID string) (models.ChickRequest, error) {
	if err := actor.Authorize(models.ActionRejectRequest); err != nil {
		return models.ChickRequest{}, err
	}

	var rejected models.ChickRequest
	err := s.store.WithTx(ctx, func(q *sqlite.Queries) error {
		req, err := q.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if !req.Status.CanTransitionTo(models.StatusRejected) {
			return fmt.Errorf("%w: request is %s", models.ErrNotPending, req.Status)
		}

		now := s.clock()
		if err := q.MarkRejected(ctx, req.ID, actor.ID, now); err != nil {
			return err
		}
		req.Status = models.StatusRejected
		req.RejectedBy = actor.ID
		req.RejectedAt = &now
		rejected = req
		return nil
	})
	if err != nil {
		return models.ChickRequest{}, err
	}

	s.logger.Info("chick request rejected",
		zap.String("request_id", rejected.ID),
		zap.String("rejected_by", actor.ID))

	s.notify(ctx, rejected.FarmerID, fmt.Sprintf(
		"Your request for %s was not approved. Request ID: %s", requestLabel(rejected), rejected.ID))

	return rejected, nil
}

// GetRequestStatus returns the status of a request owned by farmerID. Requests
// of other farmers are reported as not found.
func (s *Service) GetRequestStatus(ctx context.Context, requestID, farmerID string) (models.RequestStatusView, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return models.RequestStatusView{}, err
	}
	if req.FarmerID != farmerID {
		return models.RequestStatusView{}, fmt.Errorf("chick request %s: %w", requestID, models.ErrNotFound)
	}
	return req.StatusView(), nil
}

// ListRequests lists requests for the manager and sales desks. Sales reps only
// see requests waiting to be sold.
func (s *Service) ListRequests(ctx context.Context, actor models.Actor, status models.RequestStatus) ([]models.ChickRequest, error) {
	if err := actor.Authorize(models.ActionListRequests); err != nil {
		return nil, err
	}

	filter := sqlite.RequestFilter{Status: status}
	switch actor.Role {
	case models.RoleSalesRep:
		filter.Status = models.StatusApproved
		filter.OldestFirst = true
	case models.RoleManager:
		filter.OldestFirst = status == models.StatusPending
	case models.RoleFarmer:
		return nil, fmt.Errorf("%w: farmers list requests from their dashboard", models.ErrForbidden)
	}

	return s.store.ListRequests(ctx, filter)
}
