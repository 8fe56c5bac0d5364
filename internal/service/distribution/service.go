// Package distribution runs the chick request lifecycle: intake of stock lots,
// farmer requests, approval with FIFO allocation, rejection and sale completion.
package distribution

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/domain/models"
	"github.com/mamadbah2/chickflow/internal/repository/sqlite"
)

const (
	dateLayout          = "2006-01-02"
	sideEffectTimeout   = 10 * time.Second
	recentDecisionLimit = 10
)

// Notifier pushes a WhatsApp message to a farmer.
type Notifier interface {
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// SaleExporter mirrors completed sales into an external ledger.
type SaleExporter interface {
	ExportSale(ctx context.Context, sale models.Sale, req models.ChickRequest) error
}

// Service implements the distribution desk operations.
type Service struct {
	store     *sqlite.Store
	locks     *keyLocks
	unitPrice decimal.Decimal
	notifier  Notifier
	exporter  SaleExporter
	dialCode  string
	logger    *zap.Logger
	now       func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithCountryCode sets the dialling code given to farmer phones registered in local form.
func WithCountryCode(code string) Option {
	return func(s *Service) {
		if code != "" {
			s.dialCode = code
		}
	}
}

// WithNotifier enables farmer notifications on decisions and sales.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithSaleExporter enables mirroring of completed sales.
func WithSaleExporter(e SaleExporter) Option {
	return func(s *Service) { s.exporter = e }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService wires a distribution service over the ledger store.
func NewService(store *sqlite.Store, unitPrice decimal.Decimal, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !unitPrice.IsPositive() {
		unitPrice = models.DefaultUnitPrice
	}
	s := &Service{
		store:     store,
		locks:     newKeyLocks(),
		unitPrice: unitPrice,
		dialCode:  models.DefaultCountryCode,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// notify sends a best-effort message to the farmer. Failures are logged only:
// the ledger change has already been committed.
func (s *Service) notify(ctx context.Context, farmerID, message string) {
	if s.notifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	farmer, err := s.store.GetFarmer(ctx, farmerID)
	if err != nil {
		s.logger.Debug("skip notification, farmer profile unavailable", zap.String("farmer_id", farmerID), zap.Error(err))
		return
	}

	req := models.OutboundMessageRequest{To: farmer.Phone, Message: message}
	if err := s.notifier.SendOutbound(ctx, req); err != nil {
		s.logger.Warn("farmer notification failed", zap.String("farmer_id", farmerID), zap.Error(err))
	}
}

func formatAmount(amount decimal.Decimal) string {
	return "UGX " + amount.StringFixed(0)
}

func requestLabel(r models.ChickRequest) string {
	return fmt.Sprintf("%d %s chicks", r.Quantity, r.StockKey().Display())
}
