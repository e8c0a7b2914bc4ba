package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/psoe/internal/config"
	"github.com/mamadbah2/psoe/internal/domain/models"
	"github.com/mamadbah2/psoe/internal/service/allocation"
	"github.com/mamadbah2/psoe/internal/service/commands"
	"github.com/mamadbah2/psoe/internal/service/reorder"
	client "github.com/mamadbah2/psoe/pkg/clients/whatsapp"
)

const (
	sendTimeout     = 10 * time.Second
	signaturePrefix = "sha256="
)

var (
	// ErrNoRecipient is returned by Notify when no report recipient is configured.
	ErrNoRecipient = errors.New("no report recipient configured")
	// ErrInvalidSignature is returned when a webhook body is not signed with the app secret.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrReplyFailed wraps failures to deliver a command reply back to the sender.
	ErrReplyFailed = errors.New("reply could not be delivered")
)

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	VerifySignature(body []byte, signature string) error
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg        config.WhatsAppConfig
	client     client.Client
	dispatcher commands.Dispatcher
	logger     *zap.Logger
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, dispatcher commands.Dispatcher, logger *zap.Logger) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:        cfg,
		client:     client,
		dispatcher: dispatcher,
		logger:     logger,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	return svc
}

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

// VerifySignature checks the X-Hub-Signature-256 value Meta computes over the
// raw body with the app secret. Without a configured secret every body is refused.
func (s *MetaWhatsAppService) VerifySignature(body []byte, signature string) error {
	if s.cfg.AppSecret == "" {
		return fmt.Errorf("%w: app secret not configured", ErrInvalidSignature)
	}
	if !strings.HasPrefix(signature, signaturePrefix) {
		return fmt.Errorf("%w: missing %s prefix", ErrInvalidSignature, signaturePrefix)
	}

	got, err := hex.DecodeString(strings.TrimPrefix(signature, signaturePrefix))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	mac := hmac.New(sha256.New, []byte(s.cfg.AppSecret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// HandleWebhook processes inbound webhook payloads. Every message is answered;
// the first failure is returned after all messages have been tried.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
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
		s.logger.Debug("ignoring message without text", zap.String("type", msg.Type), zap.String("from", msg.From))
		return nil
	}

	if !s.cfg.SenderAllowed(msg.From) {
		s.logger.Warn("ignoring message from unknown sender", zap.String("from", msg.From), zap.String("message_id", msg.ID))
		return nil
	}

	cmd := models.ParseCommand(text)

	s.logger.Info("parsed inbound command",
		zap.String("from", msg.From),
		zap.String("command", string(cmd.Type)),
		zap.Strings("args", cmd.Args))

	reply, err := s.dispatcher.HandleCommand(ctx, cmd, msg.From)
	if err != nil {
		s.logger.Warn("command failed", zap.String("command", string(cmd.Type)), zap.Error(err))
		reply = replyForError(err)
	}

	if err := s.send(ctx, msg.From, reply, false); err != nil {
		return fmt.Errorf("%w: %w", ErrReplyFailed, err)
	}
	return nil
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	return s.send(ctx, req.To, req.Message, req.PreviewURL)
}

// Notify sends text to the configured report recipient.
func (s *MetaWhatsAppService) Notify(ctx context.Context, text string) error {
	if s.cfg.ReportRecipient == "" {
		return ErrNoRecipient
	}
	return s.send(ctx, s.cfg.ReportRecipient, text, false)
}

func (s *MetaWhatsAppService) send(ctx context.Context, to, body string, preview bool) error {
	for _, chunk := range client.SplitBody(body, client.MaxBodyLength) {
		ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
		_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
			To:         to,
			Body:       chunk,
			PreviewURL: preview,
		})
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

func replyForError(err error) string {
	switch {
	case errors.Is(err, commands.ErrUnsupportedCommand):
		return "Unknown command.\n" + commands.HelpText
	case errors.Is(err, commands.ErrInvalidArguments):
		return fmt.Sprintf("Could not read that command: %v.\n%s", err, commands.HelpText)
	case errors.Is(err, allocation.ErrInvalidInput):
		return fmt.Sprintf("Inventory data is invalid, no decisions were made.\n%v", err)
	case reorder.IsStage(err, reorder.StageLoad):
		return "Inventory could not be loaded, please try again later."
	default:
		return "Something went wrong while running the command."
	}
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
