package reporting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/domain/models"
)

const dateLayout = "2006-01-02"

// Ledger is the slice of the distribution ledger the daily report reads.
type Ledger interface {
	Activity(ctx context.Context, start, end time.Time) (models.DailyActivity, error)
	StockTotals(ctx context.Context) ([]models.StockTotal, error)
}

// Archive stores built reports.
type Archive interface {
	SaveDistributionReport(ctx context.Context, report models.DistributionReport) error
}

// Notifier delivers the formatted summary.
type Notifier interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// Service builds the daily distribution summary.
type Service struct {
	ledger    Ledger
	archive   Archive
	notifier  Notifier
	managerID string
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithArchive stores every report built by RunDaily.
func WithArchive(a Archive) Option {
	return func(s *Service) { s.archive = a }
}

// WithManagerNotifier sends every report built by RunDaily to the manager's WhatsApp number.
func WithManagerNotifier(n Notifier, managerID string) Option {
	return func(s *Service) {
		s.notifier = n
		s.managerID = managerID
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a new reporting service instance. Days are cut at midnight in loc.
func NewService(ledger Ledger, loc *time.Location, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Service{ledger: ledger, loc: loc, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location returns the timezone reports are cut in.
func (s *Service) Location() *time.Location {
	return s.loc
}

// ParseDay reads a YYYY-MM-DD date in the report timezone. An empty value means today.
func (s *Service) ParseDay(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return s.now().In(s.loc), nil
	}
	day, err := time.ParseInLocation(dateLayout, value, s.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", value)
	}
	return day, nil
}

// BuildDailyReport aggregates the ledger activity of the calendar day containing
// day. Stock figures are a snapshot taken when the report is built.
func (s *Service) BuildDailyReport(ctx context.Context, day time.Time) (models.DistributionReport, error) {
	local := day.In(s.loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 0, 1)

	activity, err := s.ledger.Activity(ctx, start, end)
	if err != nil {
		return models.DistributionReport{}, fmt.Errorf("load activity: %w", err)
	}
	totals, err := s.ledger.StockTotals(ctx)
	if err != nil {
		return models.DistributionReport{}, fmt.Errorf("load stock totals: %w", err)
	}

	report := models.DistributionReport{
		Date:             start,
		StockByType:      make(map[string]int, len(totals)),
		RequestsCreated:  activity.RequestsCreated,
		RequestsApproved: activity.RequestsApproved,
		RequestsRejected: activity.RequestsRejected,
		PendingBacklog:   activity.PendingBacklog,
		SalesCount:       activity.SalesCount,
		ChicksSold:       activity.ChicksSold,
		SalesAmount:      activity.SalesAmount,
		CreatedAt:        s.now().UTC(),
	}
	for _, t := range totals {
		report.StockByType[string(t.ChickType)] = t.Quantity
		report.LotsOnHand += t.Lots
	}

	return report, nil
}

// FormatReport renders a report as a WhatsApp-friendly text summary.
func FormatReport(r models.DistributionReport) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ChickFlow daily report %s\n\n", r.Date.Format(dateLayout))
	fmt.Fprintf(&b, "Requests: %d new, %d approved, %d rejected\n", r.RequestsCreated, r.RequestsApproved, r.RequestsRejected)
	fmt.Fprintf(&b, "Pending backlog: %d\n", r.PendingBacklog)
	fmt.Fprintf(&b, "Sales: %d (%d chicks, UGX %s)\n\n", r.SalesCount, r.ChicksSold, r.SalesAmount.StringFixed(0))
	fmt.Fprintf(&b, "Stock on hand (%d lots):\n", r.LotsOnHand)
	for _, key := range models.StockKeys {
		fmt.Fprintf(&b, "- %s: %d\n", key.Display(), r.StockByType[string(key)])
	}
	return strings.TrimRight(b.String(), "\n")
}

// RunDaily builds today's report, archives it and sends it to the manager.
// Archive and delivery failures are logged and returned together; one does
// not prevent the other.
func (s *Service) RunDaily(ctx context.Context) (models.DistributionReport, error) {
	report, err := s.BuildDailyReport(ctx, s.now())
	if err != nil {
		return models.DistributionReport{}, err
	}

	var errs []error
	if s.archive != nil {
		if err := s.archive.SaveDistributionReport(ctx, report); err != nil {
			s.logger.Error("failed to archive daily report", zap.Error(err))
			errs = append(errs, fmt.Errorf("archive report: %w", err))
		}
	}
	if s.notifier != nil && s.managerID != "" {
		msg := models.OutboundMessageRequest{To: s.managerID, Message: FormatReport(report)}
		if err := s.notifier.SendOutbound(ctx, msg); err != nil {
			s.logger.Error("failed to send daily report", zap.Error(err))
			errs = append(errs, fmt.Errorf("send report: %w", err))
		}
	}

	s.logger.Info("daily report generated",
		zap.String("date", report.Date.Format(dateLayout)),
		zap.Int("requests_created", report.RequestsCreated),
		zap.Int("sales_count", report.SalesCount),
		zap.Int("pending_backlog", report.PendingBacklog))

	return report, errors.Join(errs...)
}
