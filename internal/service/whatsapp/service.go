package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/chickflow/internal/config"
	"github.com/mamadbah2/chickflow/internal/domain/models"
	client "github.com/mamadbah2/chickflow/pkg/clients/whatsapp"
)

const (
	sendTimeout     = 10 * time.Second
	dateLayout      = "2006-01-02"
	recentListLimit = 5
)

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// FarmerDesk is the read side of the distribution desk that WhatsApp commands query.
type FarmerDesk interface {
	FarmerByPhone(ctx context.Context, phone string) (models.FarmerProfile, error)
	FarmerDashboard(ctx context.Context, actor models.Actor) (models.FarmerDashboard, error)
	GetRequestStatus(ctx context.Context, requestID, farmerID string) (models.RequestStatusView, error)
}

// Sender pushes text messages through the Cloud API.
type Sender struct {
	client      client.Client
	countryCode string
	logger      *zap.Logger
}

// NewSender wraps a WhatsApp client. Recipients written in local form get countryCode.
func NewSender(c client.Client, countryCode string, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{client: c, countryCode: countryCode, logger: logger}
}

// SendOutbound delivers a single text message.
func (s *Sender) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Message) == "" {
		return errors.New("recipient and message are required")
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := s.client.SendTextMessage(ctx, client.SendTextMessageRequest{
		To:         models.InternationalPhone(req.To, s.countryCode),
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	if err != nil {
		return err
	}

	s.logger.Debug("whatsapp message sent", zap.String("to", req.To), zap.String("message_id", resp.MessageID()))
	return nil
}

// MetaWhatsAppService answers farmer commands received through the Cloud API webhook.
type MetaWhatsAppService struct {
	*Sender
	cfg    config.WhatsAppConfig
	desk   FarmerDesk
	seen   *messageLog
	logger *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, sender *Sender, desk FarmerDesk, logger *zap.Logger) *MetaWhatsAppService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetaWhatsAppService{
		Sender: sender,
		cfg:    cfg,
		desk:   desk,
		seen:   newMessageLog(24 * time.Hour),
		logger: logger,
	}
}

const helpText = "Available commands:\n" +
	"status <request id> - status of a request (latest if omitted)\n" +
	"requests - your latest requests\n" +
	"next - when you can place your next request\n" +
	"help - this message"

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if s.cfg.VerifyToken == "" || verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes inbound webhook payloads. Messages Meta delivers
// more than once are answered only the first time.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, status := range change.Value.Statuses {
				s.logger.Debug("delivery status",
					zap.String("message_id", status.ID),
					zap.String("status", status.Status),
					zap.String("recipient", status.RecipientID))
			}

			for _, msg := range change.Value.Messages {
				if !s.seen.markNew(msg.ID) {
					s.logger.Debug("duplicate inbound message ignored", zap.String("message_id", msg.ID))
					continue
				}
				if err := s.handleInboundMessage(ctx, msg); err != nil {
					s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
					if firstErr == nil {
						firstErr = err
					}
				}
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage) error {
	text := extractMessageText(msg)
	if text == "" {
		s.logger.Debug("ignoring message without text", zap.String("type", msg.Type))
		return nil
	}

	cmd := models.ParseCommand(text)
	s.logger.Info("parsed inbound command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)),
		zap.Strings("args", cmd.Args))

	reply, err := s.replyFor(ctx, msg.From, cmd)
	if err != nil {
		return err
	}

	return s.SendOutbound(ctx, models.OutboundMessageRequest{
		To:      msg.From,
		Message: fmt.Sprintf("%s\n%s", reply.Title, reply.Message),
	})
}

func (s *MetaWhatsAppService) replyFor(ctx context.Context, from string, cmd models.Command) (models.AutomationReply, error) {
	if cmd.Type == models.CommandHelp {
		return models.AutomationReply{Title: "ChickFlow", Message: helpText}, nil
	}
	if cmd.Type == models.CommandUnknown {
		return models.AutomationReply{Title: "Unknown command", Message: helpText}, nil
	}

	farmer, err := s.desk.FarmerByPhone(ctx, from)
	if errors.Is(err, models.ErrNotFound) {
		return models.AutomationReply{
			Title:   "Not registered",
			Message: "This number is not linked to a farmer profile. Please register on the ChickFlow portal first.",
		}, nil
	}
	if err != nil {
		return models.AutomationReply{}, fmt.Errorf("looking up farmer: %w", err)
	}
	actor := models.Actor{ID: farmer.UserID, Role: models.RoleFarmer}

	switch cmd.Type {
	case models.CommandStatus:
		return s.statusReply(ctx, actor, cmd.Args)
	case models.CommandRequests:
		return s.requestsReply(ctx, actor)
	case models.CommandNext:
		return s.nextReply(ctx, actor)
	default:
		return models.AutomationReply{Title: "Unknown command", Message: helpText}, nil
	}
}

func (s *MetaWhatsAppService) statusReply(ctx context.Context, actor models.Actor, args []string) (models.AutomationReply, error) {
	var requestID string
	if len(args) > 0 {
		requestID = args[0]
	} else {
		dash, err := s.desk.FarmerDashboard(ctx, actor)
		if err != nil {
			return models.AutomationReply{}, err
		}
		if len(dash.Requests) == 0 {
			return models.AutomationReply{Title: "Request status", Message: "You have no chick requests yet."}, nil
		}
		requestID = dash.Requests[0].ID
	}

	view, err := s.desk.GetRequestStatus(ctx, requestID, actor.ID)
	if errors.Is(err, models.ErrNotFound) {
		return models.AutomationReply{Title: "Request status", Message: fmt.Sprintf("No request %s found on your account.", requestID)}, nil
	}
	if err != nil {
		return models.AutomationReply{}, err
	}

	message := fmt.Sprintf("Request %s: %s", view.ID, view.StatusDisplay)
	switch {
	case view.ApprovedAt != nil:
		message += fmt.Sprintf(" (approved %s)", view.ApprovedAt.Format(dateLayout))
	case view.RejectedAt != nil:
		message += fmt.Sprintf(" (rejected %s)", view.RejectedAt.Format(dateLayout))
	}
	return models.AutomationReply{Title: "Request status", Message: message}, nil
}

func (s *MetaWhatsAppService) requestsReply(ctx context.Context, actor models.Actor) (models.AutomationReply, error) {
	dash, err := s.desk.FarmerDashboard(ctx, actor)
	if err != nil {
		return models.AutomationReply{}, err
	}
	if len(dash.Requests) == 0 {
		return models.AutomationReply{Title: "Your requests", Message: "You have no chick requests yet."}, nil
	}

	var b strings.Builder
	for i, r := range dash.Requests {
		if i == recentListLimit {
			break
		}
		fmt.Fprintf(&b, "%s: %d %s, %s (%s)\n",
			r.CreatedAt.Format(dateLayout), r.Quantity, r.StockKey().Display(), r.Status.Display(), r.ID)
	}
	fmt.Fprintf(&b, "Total chicks received: %d", dash.TotalChicks)
	return models.AutomationReply{Title: "Your requests", Message: b.String()}, nil
}

func (s *MetaWhatsAppService) nextReply(ctx context.Context, actor models.Actor) (models.AutomationReply, error) {
	dash, err := s.desk.FarmerDashboard(ctx, actor)
	if err != nil {
		return models.AutomationReply{}, err
	}
	if dash.CanRequest || dash.NextRequestDate == nil {
		return models.AutomationReply{Title: "Next request", Message: "You can place a new chick request now."}, nil
	}
	return models.AutomationReply{
		Title:   "Next request",
		Message: fmt.Sprintf("Your next request can be placed from %s.", dash.NextRequestDate.Format(dateLayout)),
	}, nil
}

func extractMessageText(msg models.InboundMessage) string {
	if msg.Text != nil {
		return msg.Text.Body
	}

	if msg.Interactive != nil {
		if msg.Interactive.ButtonReply != nil {
			return msg.Interactive.ButtonReply.ID
		}
		if msg.Interactive.ListReply != nil {
			return msg.Interactive.ListReply.ID
		}
	}

	return ""
}
