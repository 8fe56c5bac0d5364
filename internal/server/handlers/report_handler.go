package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

// ReportBuilder builds daily distribution reports.
type ReportBuilder interface {
	ParseDay(value string) (time.Time, error)
	BuildDailyReport(ctx context.Context, day time.Time) (models.DistributionReport, error)
}

// ReportHandler serves report previews to managers.
type ReportHandler struct {
	reports ReportBuilder
	logger  *zap.Logger
}

// NewReportHandler constructs the HTTP handler adapter.
func NewReportHandler(reports ReportBuilder, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, logger: logger}
}

// Daily builds the report for ?date=YYYY-MM-DD, today by default, without archiving it.
func (h *ReportHandler) Daily(c *gin.Context) {
	if err := actorFrom(c).Authorize(models.ActionDailyReport); err != nil {
		respondError(c, h.logger, err)
		return
	}

	day, err := h.reports.ParseDay(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return
	}

	report, err := h.reports.BuildDailyReport(c.Request.Context(), day)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
