package handlers

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/avvvet/theaterbuddy-intent/internal/errors"
	"github.com/avvvet/theaterbuddy-intent/internal/intents"
	"github.com/avvvet/theaterbuddy-intent/internal/llm"
	"github.com/avvvet/theaterbuddy-intent/internal/memory"
	"github.com/avvvet/theaterbuddy-intent/internal/metrics"
	"github.com/avvvet/theaterbuddy-intent/internal/models"
	"github.com/avvvet/theaterbuddy-intent/internal/prompts"
)

// IntentHandler turns one utterance into a recognized intent and its
// parameters, using the session history as context.
type IntentHandler struct {
	provider llm.LLMProvider
	catalog  *intents.Catalog
	memory   *memory.Manager
	prompt   *prompts.Builder
	logger   *zap.Logger
}

func NewIntentHandler(provider llm.LLMProvider, catalog *intents.Catalog, mem *memory.Manager, logger *zap.Logger) *IntentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntentHandler{
		provider: provider,
		catalog:  catalog,
		memory:   mem,
		prompt:   prompts.NewBuilder(catalog.ToolNames()),
		logger:   logger,
	}
}

// ProcessIntent handles one turn. Failures are reported as an ERROR
// response together with the error; history is only extended on success.
func (h *IntentHandler) ProcessIntent(ctx context.Context, request *models.IntentRequest) (*models.IntentResponse, error) {
	if err := h.validateRequest(request); err != nil {
		return h.fail(request, err)
	}
	log := h.logger.With(zap.String("session_id", request.SessionID))

	if len(request.ConversationHistory) > 0 {
		if err := h.memory.LoadHistory(ctx, request.SessionID, request.ConversationHistory); err != nil {
			return h.fail(request, err)
		}
	}

	history, err := h.memory.GetFormattedHistory(ctx, request.SessionID)
	if err != nil {
		return h.fail(request, err)
	}

	messages, err := h.prompt.Build(history, request.UserMessage)
	if err != nil {
		return h.fail(request, err)
	}

	llmResponse, err := h.provider.Generate(ctx, &llm.LLMRequest{
		Messages: messages,
		Tools:    h.catalog.Tools(),
	})
	if err != nil {
		log.Error("model call failed", zap.Error(err))
		return h.fail(request, err)
	}

	var response *models.IntentResponse
	if llmResponse.HasToolCalls() {
		response, err = h.fromToolCalls(request, llmResponse)
		if err != nil {
			return h.fail(request, err)
		}
	} else {
		response = h.fromText(request, llmResponse)
	}

	trimmed, err := h.memory.AppendTurn(ctx, request.SessionID, request.UserMessage, summarizeTurn(llmResponse))
	if err != nil {
		return h.fail(request, err)
	}
	response.HistoryTrimmed = trimmed

	metrics.IntentsRecognized.WithLabelValues(response.Intent, response.Source).Inc()
	log.Info("intent processed",
		zap.String("intent", response.Intent),
		zap.String("source", response.Source),
		zap.String("status", response.Status),
		zap.Bool("history_trimmed", trimmed))
	return response, nil
}

func (h *IntentHandler) validateRequest(request *models.IntentRequest) error {
	if request.SessionID == "" {
		return apperrors.NewInvalidRequestError("session_id is required")
	}
	if strings.TrimSpace(request.UserMessage) == "" {
		return apperrors.NewInvalidRequestError("user_message is required")
	}
	return nil
}

// fromToolCalls reports every call; the last one is the recognized intent.
func (h *IntentHandler) fromToolCalls(request *models.IntentRequest, resp *llm.LLMResponse) (*models.IntentResponse, error) {
	response := &models.IntentResponse{
		SessionID: request.SessionID,
		Source:    models.SourceTool,
		Status:    models.StatusReady,
	}

	for _, call := range resp.ToolCalls {
		response.ToolCalls = append(response.ToolCalls, models.ToolInvocation{
			Name:       call.Name,
			Parameters: call.Arguments,
		})
	}

	last := resp.ToolCalls[len(resp.ToolCalls)-1]
	response.Intent = last.Name
	response.Parameters = last.Arguments

	validation, err := h.catalog.ValidateArguments(last.Name, last.Arguments)
	if err != nil {
		return nil, err
	}
	if !validation.Valid {
		response.Status = models.StatusNeedsInfo
		response.MissingParameters = validation.Missing
		response.Issues = validation.Issues
	}
	return response, nil
}

func (h *IntentHandler) fromText(request *models.IntentRequest, resp *llm.LLMResponse) *models.IntentResponse {
	intent, matched := h.catalog.MatchSimpleIntent(resp.Content)
	status := models.StatusReady
	if !matched {
		status = models.StatusNeedsInfo
	}
	return &models.IntentResponse{
		SessionID:  request.SessionID,
		Intent:     intent,
		Source:     models.SourceText,
		Status:     status,
		Parameters: map[string]any{},
		Reply:      resp.Content,
	}
}

// summarizeTurn renders the model's answer for the dialogue history.
func summarizeTurn(resp *llm.LLMResponse) string {
	if !resp.HasToolCalls() {
		return resp.Content
	}
	lines := make([]string, 0, len(resp.ToolCalls))
	for _, call := range resp.ToolCalls {
		args, err := json.Marshal(call.Arguments)
		if err != nil {
			args = []byte(call.RawArguments)
		}
		lines = append(lines, "tool_call: "+call.Name+" "+string(args))
	}
	return strings.Join(lines, "\n")
}

func (h *IntentHandler) fail(request *models.IntentRequest, err error) (*models.IntentResponse, error) {
	code := string(apperrors.CodeOf(err))
	message := err.Error()
	metrics.IntentRequestsFailed.WithLabelValues(code).Inc()

	return &models.IntentResponse{
		SessionID:    request.SessionID,
		Status:       models.StatusError,
		Parameters:   map[string]any{},
		Reply:        prompts.FallbackMessage,
		ErrorCode:    &code,
		ErrorMessage: &message,
	}, err
}
