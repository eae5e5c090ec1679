package adapter

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/muikit/muikit"
	"github.com/muikit/muikit/internal/cast"
)

// JSONOutputInstruction is prepended as a system message when a caller asks for JSON-only output.
const JSONOutputInstruction = "You are a system that must output *only* valid JSON. Do not include any additional text."

// Well-known extra-args keys.
const (
	KeyTemperature     = "temperature"
	KeyMaxTokens       = "max_tokens"
	KeyMaxOutputTokens = "max_output_tokens"
)

// Overrides holds per-call values that take precedence over an adapter's defaults.
// Nil means "use the default".
type Overrides struct {
	Temperature *float64
	MaxTokens   *int
}

// ExtractOverrides reads well-known keys from an extra-args map.
// "temperature" (any numeric), "max_tokens" or "max_output_tokens" (integral numeric;
// "max_tokens" wins when both are set). Values of the wrong type are ignored.
func ExtractOverrides(args map[string]any) Overrides {
	var out Overrides
	if args == nil {
		return out
	}
	if v, ok := args[KeyTemperature]; ok {
		if f, ok := cast.ToFloat64(v); ok {
			out.Temperature = &f
		}
	}
	for _, key := range []string{KeyMaxTokens, KeyMaxOutputTokens} {
		if v, ok := args[key]; ok {
			if n, ok := cast.ToInt(v); ok {
				out.MaxTokens = &n
				break
			}
		}
	}
	return out
}

// TemperatureOr returns the override temperature or def.
func (o Overrides) TemperatureOr(def float64) float64 {
	if o.Temperature != nil {
		return *o.Temperature
	}
	return def
}

// MaxTokensOr returns the override max tokens or def.
func (o Overrides) MaxTokensOr(def int) int {
	if o.MaxTokens != nil {
		return *o.MaxTokens
	}
	return def
}

// RejectTools returns ErrToolsNotSupported when tools is non-empty.
func RejectTools(tools []muikit.ToolDefinition) error {
	if len(tools) > 0 {
		return fmt.Errorf("%w: got %d tool definitions", muikit.ErrToolsNotSupported, len(tools))
	}
	return nil
}

// WithJSONInstruction returns messages with the JSON-output system message in front.
// The input slice is not modified.
func WithJSONInstruction(messages []muikit.Message) []muikit.Message {
	out := make([]muikit.Message, 0, len(messages)+1)
	out = append(out, muikit.NewTextMessage(muikit.RoleSystem, JSONOutputInstruction))
	return append(out, messages...)
}

const tracerName = "github.com/muikit/muikit/adapter"

// RequestIDKey is the span attribute and log key carrying the per-call request id.
const RequestIDKey = "muikit.request_id"

// NewRequestID returns a random id used to correlate the logs and span of one vendor call.
func NewRequestID() string {
	return uuid.NewString()
}

// StartSpan starts a client span for a vendor call using the global tracer provider.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
}

// EndSpan records err on span (if any) and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
