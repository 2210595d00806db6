package observability

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// Config holds the configuration for OpenTelemetry tracing.
type Config struct {
	ServiceName    string `env:"OTEL_SERVICE_NAME" envDefault:"sburbterm"`
	ServiceVersion string `env:"OTEL_SERVICE_VERSION" envDefault:"2.0.1"`
	Environment    string `env:"ENVIRONMENT" envDefault:"development"`
	Enabled        bool   `env:"OTEL_TRACES_ENABLED"`
	// Endpoint is the full OTLP/HTTP traces URL.
	Endpoint  string `env:"OTEL_EXPORTER_OTLP_TRACES_ENDPOINT" envDefault:"http://localhost:4318/v1/traces"`
	PublicKey string `env:"OTEL_BASIC_AUTH_USER"`
	SecretKey string `env:"OTEL_BASIC_AUTH_PASSWORD"`
}

// TracerProvider wraps the OpenTelemetry tracer provider with cleanup.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	enabled  bool
}

// InitTracing installs a global tracer provider exporting over OTLP/HTTP.
// When tracing is disabled the global provider is left as the no-op default.
func InitTracing(ctx context.Context, config Config) (*TracerProvider, error) {
	if !config.Enabled {
		return &TracerProvider{enabled: false}, nil
	}

	exporter, err := createExporter(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := createResource(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(5*time.Second),
			sdktrace.WithMaxExportBatchSize(100),
		),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sessionInjector{}),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)

	return &TracerProvider{
		provider: tp,
		enabled:  true,
	}, nil
}

// GetTracer returns a tracer for the given name.
func (tp *TracerProvider) GetTracer(name string, options ...trace.TracerOption) trace.Tracer {
	if tp == nil || !tp.enabled {
		return noop.NewTracerProvider().Tracer(name, options...)
	}
	return otel.Tracer(name, options...)
}

// Shutdown flushes and stops the exporter.
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp == nil || !tp.enabled || tp.provider == nil {
		return nil
	}
	return tp.provider.Shutdown(ctx)
}

func (tp *TracerProvider) IsEnabled() bool {
	return tp != nil && tp.enabled
}

func createExporter(ctx context.Context, config Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpointURL(strings.TrimSuffix(config.Endpoint, "/")),
		otlptracehttp.WithCompression(otlptracehttp.GzipCompression),
		otlptracehttp.WithTimeout(30 * time.Second),
	}
	if strings.HasPrefix(config.Endpoint, "http://") {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if config.PublicKey != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(config.PublicKey + ":" + config.SecretKey))
		opts = append(opts, otlptracehttp.WithHeaders(map[string]string{
			"Authorization": "Basic " + auth,
		}))
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}
	return exporter, nil
}

func createResource(config Config) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		"",
		semconv.ServiceName(config.ServiceName),
		semconv.ServiceVersion(config.ServiceVersion),
		attribute.String("deployment.environment", config.Environment),
	), nil
}

// GameAttributes describes the player session a span belongs to.
func GameAttributes(sessionID, classpect string, level int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.Int("game.player.level", level)}
	if sessionID != "" {
		attrs = append(attrs, attribute.String("session.id", sessionID))
	}
	if classpect != "" {
		attrs = append(attrs, attribute.String("game.player.classpect", classpect))
	}
	return attrs
}

// CreateGenAIAttributes creates GenAI semantic convention attributes for LLM spans.
func CreateGenAIAttributes(system, model string, inputTokens, outputTokens int) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("gen_ai.operation.name", "chat"),
		attribute.String("gen_ai.system", system),
		attribute.String("gen_ai.request.model", model),
	}
	if inputTokens > 0 {
		attrs = append(attrs, attribute.Int("gen_ai.usage.input_tokens", inputTokens))
	}
	if outputTokens > 0 {
		attrs = append(attrs, attribute.Int("gen_ai.usage.output_tokens", outputTokens))
	}
	return attrs
}

type sessionInjector struct{}

func (sessionInjector) OnStart(ctx context.Context, s sdktrace.ReadWriteSpan) {
	if sid := SessionIDFromContext(ctx); sid != "" {
		s.SetAttributes(attribute.String("session.id", sid))
	}
}

func (sessionInjector) OnEnd(s sdktrace.ReadOnlySpan)        {}
func (sessionInjector) Shutdown(context.Context) error   { return nil }
func (sessionInjector) ForceFlush(context.Context) error { return nil }

type contextKey string

const sessionIDKey contextKey = "session_id"

// WithSessionID tags ctx so every span started from it carries the session.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func SessionIDFromContext(ctx context.Context) string {
	if sessionID, ok := ctx.Value(sessionIDKey).(string); ok {
		return sessionID
	}
	return ""
}

const gameContextKey contextKey = "game_context"

// WithGameContext merges gameCtx into any game context already on ctx.
func WithGameContext(ctx context.Context, gameCtx map[string]any) context.Context {
	existing := GameContextFrom(ctx)
	merged := make(map[string]any, len(existing)+len(gameCtx))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range gameCtx {
		merged[k] = v
	}
	return context.WithValue(ctx, gameContextKey, merged)
}

func GameContextFrom(ctx context.Context) map[string]any {
	if gameCtx, ok := ctx.Value(gameContextKey).(map[string]any); ok {
		return gameCtx
	}
	return nil
}

// GameContextAttributes flattens the game context into "game."-prefixed span
// attributes. Unsupported value types are skipped.
func GameContextAttributes(ctx context.Context) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for k, v := range GameContextFrom(ctx) {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String("game."+k, val))
		case int:
			attrs = append(attrs, attribute.Int("game."+k, val))
		case []string:
			attrs = append(attrs, attribute.StringSlice("game."+k, val))
		}
	}
	return attrs
}
