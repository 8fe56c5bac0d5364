package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

// Desk is the distribution service surface exposed over HTTP.
type Desk interface {
	RegisterFarmer(ctx context.Context, actor models.Actor, profile models.FarmerProfile) (models.FarmerProfile, error)
	FarmerDashboard(ctx context.Context, actor models.Actor) (models.FarmerDashboard, error)
	CreateRequest(ctx context.Context, actor models.Actor, in models.NewChickRequest) (models.ChickRequest, error)
	GetRequestStatus(ctx context.Context, requestID, farmerID string) (models.RequestStatusView, error)
	ListRequests(ctx context.Context, actor models.Actor, status models.RequestStatus) ([]models.ChickRequest, error)
	ApproveRequest(ctx context.Context, actor models.Actor, requestID string) (models.ChickRequest, error)
	RejectRequest(ctx context.Context, actor models.Actor, requestID string) (models.ChickRequest, error)
	CompleteSale(ctx context.Context, actor models.Actor, requestID, notes string) (models.Sale, error)
	ListSales(ctx context.Context, actor models.Actor) (models.SalesSummary, error)
	AddStockLot(ctx context.Context, actor models.Actor, in models.NewStockLot) (models.StockLot, error)
	SetLotAvailability(ctx context.Context, actor models.Actor, lotID string, available bool) (models.StockLot, error)
	ListStock(ctx context.Context, actor models.Actor) (models.StockSummary, error)
	ManagerOverview(ctx context.Context, actor models.Actor) (models.ManagerOverview, error)
}

// DistributionHandler serves the farmer, manager and sales desks.
type DistributionHandler struct {
	desk   Desk
	logger *zap.Logger
}

// NewDistributionHandler constructs the HTTP handler adapter.
func NewDistributionHandler(desk Desk, logger *zap.Logger) *DistributionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DistributionHandler{desk: desk, logger: logger}
}

// RegisterFarmer saves the caller's farmer profile.
func (h *DistributionHandler) RegisterFarmer(c *gin.Context) {
	var profile models.FarmerProfile
	if err := c.ShouldBindJSON(&profile); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	saved, err := h.desk.RegisterFarmer(c.Request.Context(), actorFrom(c), profile)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// Dashboard returns the caller's request history and eligibility.
func (h *DistributionHandler) Dashboard(c *gin.Context) {
	dash, err := h.desk.FarmerDashboard(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, dash)
}

// CreateRequest files a chick request for the caller.
func (h *DistributionHandler) CreateRequest(c *gin.Context) {
	var in models.NewChickRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	req, err := h.desk.CreateRequest(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, req)
}

// RequestStatus reports the status of one of the caller's requests.
func (h *DistributionHandler) RequestStatus(c *gin.Context) {
	actor := actorFrom(c)
	if err := actor.Authorize(models.ActionRequestStatus); err != nil {
		respondError(c, h.logger, err)
		return
	}

	view, err := h.desk.GetRequestStatus(c.Request.Context(), c.Param("id"), actor.ID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ListRequests lists requests, optionally filtered by ?status=.
func (h *DistributionHandler) ListRequests(c *gin.Context) {
	var status models.RequestStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := models.ParseRequestStatus(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
			return
		}
		status = parsed
	}

	requests, err := h.desk.ListRequests(c.Request.Context(), actorFrom(c), status)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": emptyIfNil(requests)})
}

// ApproveRequest approves a pending request and allocates its stock.
func (h *DistributionHandler) ApproveRequest(c *gin.Context) {
	req, err := h.desk.ApproveRequest(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

// RejectRequest rejects a pending request.
func (h *DistributionHandler) RejectRequest(c *gin.Context) {
	req, err := h.desk.RejectRequest(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

type completeSaleBody struct {
	Notes string `json:"notes"`
}

// CompleteSale records the sale of an approved request. The notes body is optional.
func (h *DistributionHandler) CompleteSale(c *gin.Context) {
	var body completeSaleBody
	if c.Request.Body != nil && c.Request.Body != http.NoBody {
		if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, h.logger, err)
			return
		}
	}

	sale, err := h.desk.CompleteSale(c.Request.Context(), actorFrom(c), c.Param("id"), body.Notes)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sale)
}

// ListSales lists completed sales.
func (h *DistributionHandler) ListSales(c *gin.Context) {
	summary, err := h.desk.ListSales(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	summary.Sales = emptyIfNil(summary.Sales)
	c.JSON(http.StatusOK, summary)
}

// ListStock returns every lot with totals per chick type.
func (h *DistributionHandler) ListStock(c *gin.Context) {
	summary, err := h.desk.ListStock(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	summary.Lots = emptyIfNil(summary.Lots)
	c.JSON(http.StatusOK, summary)
}

// AddStock records a received lot.
func (h *DistributionHandler) AddStock(c *gin.Context) {
	var in models.NewStockLot
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	lot, err := h.desk.AddStockLot(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, lot)
}

type availabilityBody struct {
	IsAvailable *bool `json:"is_available" binding:"required"`
}

// SetAvailability holds a lot back from allocation or releases it.
func (h *DistributionHandler) SetAvailability(c *gin.Context) {
	var body availabilityBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, h.logger, err)
		return
	}

	lot, err := h.desk.SetLotAvailability(c.Request.Context(), actorFrom(c), c.Param("id"), *body.IsAvailable)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, lot)
}

// Overview returns the manager desk.
func (h *DistributionHandler) Overview(c *gin.Context) {
	overview, err := h.desk.ManagerOverview(c.Request.Context(), actorFrom(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	overview.PendingRequests = emptyIfNil(overview.PendingRequests)
	overview.RecentDecisions = emptyIfNil(overview.RecentDecisions)
	c.JSON(http.StatusOK, overview)
}

func emptyIfNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
