package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/avvvet/theaterbuddy-intent/internal/config"
	apperrors "github.com/avvvet/theaterbuddy-intent/internal/errors"
	"github.com/avvvet/theaterbuddy-intent/internal/models"
	"github.com/avvvet/theaterbuddy-intent/internal/prompts"
)

// IntentProcessor is implemented by handlers.IntentHandler.
type IntentProcessor interface {
	ProcessIntent(ctx context.Context, request *models.IntentRequest) (*models.IntentResponse, error)
}

type NATSTransport struct {
	// ctx bounds every request; cancelling it aborts in-flight model calls.
	ctx       context.Context
	conn      *nats.Conn
	sub       *nats.Subscription
	subject   string
	timeout   time.Duration
	processor IntentProcessor
	logger    *zap.Logger
}

func NewNATSTransport(ctx context.Context, cfg *config.Config, processor IntentProcessor, logger *zap.Logger) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("disconnected from NATS", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("reconnected to NATS", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("connected to NATS server", zap.String("url", cfg.NatsURL))

	t := newTransport(ctx, cfg, processor, logger)
	t.conn = conn
	return t, nil
}

func newTransport(ctx context.Context, cfg *config.Config, processor IntentProcessor, logger *zap.Logger) *NATSTransport {
	return &NATSTransport{
		ctx:       ctx,
		subject:   cfg.NatsRequestSubject,
		timeout:   cfg.LLMTimeout,
		processor: processor,
		logger:    logger,
	}
}

func (nt *NATSTransport) Start() error {
	sub, err := nt.conn.Subscribe(nt.subject, nt.handleIntentRequest)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", nt.subject, err)
	}
	nt.sub = sub

	nt.logger.Info("subscribed to subject", zap.String("subject", nt.subject))
	return nil
}

func (nt *NATSTransport) handleIntentRequest(msg *nats.Msg) {
	if err := msg.Respond(nt.Handle(msg.Data)); err != nil {
		nt.logger.Error("failed to send response", zap.Error(err))
	}
}

// Handle decodes one request, processes it and encodes the response.
// It always yields a response body, even for malformed input.
func (nt *NATSTransport) Handle(data []byte) []byte {
	var request models.IntentRequest
	if err := json.Unmarshal(data, &request); err != nil {
		nt.logger.Warn("error parsing request", zap.Error(err))
		return nt.encode(errorResponse(&request, apperrors.NewParseError("invalid request format")))
	}

	ctx, cancel := context.WithTimeout(nt.ctx, nt.timeout)
	defer cancel()

	response, err := nt.processor.ProcessIntent(ctx, &request)
	if err != nil {
		nt.logger.Error("error processing intent",
			zap.String("session_id", request.SessionID), zap.Error(err))
		if response == nil {
			response = errorResponse(&request, err)
		}
	}

	nt.logger.Debug("response ready",
		zap.String("session_id", response.SessionID), zap.String("status", response.Status))
	return nt.encode(response)
}

func (nt *NATSTransport) encode(response *models.IntentResponse) []byte {
	data, err := json.Marshal(response)
	if err != nil {
		nt.logger.Error("failed to marshal response", zap.Error(err))
		return []byte(`{"status":"ERROR","error_code":"INTERNAL_ERROR"}`)
	}
	return data
}

func errorResponse(request *models.IntentRequest, err error) *models.IntentResponse {
	code := string(apperrors.CodeOf(err))
	message := err.Error()
	return &models.IntentResponse{
		SessionID:    request.SessionID,
		Status:       models.StatusError,
		Parameters:   map[string]any{},
		Reply:        prompts.FallbackMessage,
		ErrorCode:    &code,
		ErrorMessage: &message,
	}
}

func (nt *NATSTransport) Close() error {
	if nt.sub != nil {
		if err := nt.sub.Drain(); err != nil {
			nt.logger.Warn("failed to drain subscription", zap.Error(err))
		}
	}
	if nt.conn != nil {
		nt.conn.Close()
		nt.logger.Info("NATS connection closed")
	}
	return nil
}
