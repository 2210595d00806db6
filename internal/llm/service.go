package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"sburbterm/internal/debug"
	"sburbterm/internal/observability"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-5-2025-08-07"

// ErrNoKey is returned by NewService when no API key is configured.
var ErrNoKey = errors.New("llm: no API key configured")

type contextKey string

const operationTypeKey contextKey = "operation_type"

type Service struct {
	client *openai.Client
	model  string
	debug  *debug.Logger
	tracer trace.Tracer
}

// NewService builds a chat-completions client. Extra request options are
// passed through to the openai client (base URL, retries, http client).
func NewService(apiKey, model string, debug *debug.Logger, opts ...option.RequestOption) (*Service, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoKey
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	client := openai.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)...)
	return &Service{
		client: &client,
		model:  model,
		debug:  debug,
		tracer: otel.Tracer("llm-service"),
	}, nil
}

func (s *Service) Model() string { return s.model }

type TextCompletionRequest struct {
	SystemPrompt    string
	UserPrompt      string
	MaxTokens       int
	Model           string // optional override
	ReasoningEffort string // optional: minimal, low, medium, high
}

// CompleteText runs one system+user exchange and returns the first choice.
func (s *Service) CompleteText(ctx context.Context, req TextCompletionRequest) (string, error) {
	operationType := getOperationType(ctx)
	if operationType == "" {
		operationType = "llm.complete_text"
	}
	model := s.model
	if strings.TrimSpace(req.Model) != "" {
		model = req.Model
	}

	ctx, span := s.tracer.Start(ctx, operationType,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.CreateGenAIAttributes("openai", model, 0, 0)...),
	)
	defer span.End()

	span.SetAttributes(
		attribute.Int("gen_ai.request.max_tokens", req.MaxTokens),
		attribute.String("game.operation_type", operationType),
	)
	if sid := observability.SessionIDFromContext(ctx); sid != "" {
		span.SetAttributes(attribute.String("session.id", sid))
	}
	span.SetAttributes(observability.GameContextAttributes(ctx)...)
	span.AddEvent("gen_ai.user.message", trace.WithAttributes(
		attribute.String("gen_ai.system", "openai"),
		attribute.String("content", req.UserPrompt),
	))

	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserPrompt),
		},
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.ReasoningEffort != "" {
		params.ReasoningEffort = shared.ReasoningEffort(req.ReasoningEffort)
	}

	s.debug.Printf("LLM %s - model %s, max tokens %d, system prompt %d chars", operationType, model, req.MaxTokens, len(req.SystemPrompt))

	start := time.Now()
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		span.SetAttributes(attribute.String("error.type", "llm_completion_error"))
		span.RecordError(err)
		span.SetStatus(codes.Error, "completion failed")
		s.debug.Printf("LLM %s error: %v", operationType, err)
		return "", fmt.Errorf("text completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		err := errors.New("no completion choices returned")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	duration := time.Since(start)

	span.SetAttributes(
		attribute.Int64("gen_ai.usage.input_tokens", resp.Usage.PromptTokens),
		attribute.Int64("gen_ai.usage.output_tokens", resp.Usage.CompletionTokens),
		attribute.Int64("response_time_ms", duration.Milliseconds()),
		attribute.String("gen_ai.response.finish_reason", resp.Choices[0].FinishReason),
	)
	span.AddEvent("gen_ai.choice", trace.WithAttributes(
		attribute.String("gen_ai.system", "openai"),
		attribute.String("content", content),
	))

	s.debug.Printf("LLM %s response: %d chars, tokens %d/%d, %v", operationType,
		len(content), resp.Usage.PromptTokens, resp.Usage.CompletionTokens, duration)
	return content, nil
}

func WithOperationType(ctx context.Context, opType string) context.Context {
	return context.WithValue(ctx, operationTypeKey, opType)
}

func getOperationType(ctx context.Context) string {
	if opType, ok := ctx.Value(operationTypeKey).(string); ok {
		return opType
	}
	return ""
}
