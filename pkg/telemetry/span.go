package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanOptions configures a telemetry span
type SpanOptions struct {
	// Name is the operation name for the span
	Name string

	// Attributes are key-value pairs attached to the span
	Attributes []attribute.KeyValue

	// EndWhenDone controls whether the span should be ended automatically when the function returns
	EndWhenDone bool
}

// RecordSpan creates and executes a telemetry span for an operation.
// The span is automatically ended when the function completes, unless EndWhenDone is false.
// Errors are automatically recorded on the span.
func RecordSpan[T any](
	ctx context.Context,
	tracer trace.Tracer,
	opts SpanOptions,
	fn func(context.Context, trace.Span) (T, error),
) (T, error) {
	ctx, span := tracer.Start(ctx, opts.Name,
		trace.WithAttributes(opts.Attributes...),
	)

	result, err := fn(ctx, span)

	if err != nil {
		RecordErrorOnSpan(span, err)
		span.End()
		var zero T
		return zero, err
	}

	if opts.EndWhenDone {
		span.End()
	}

	return result, nil
}

// RecordErrorOnSpan records an error on a span and sets the span status to error.
func RecordErrorOnSpan(span trace.Span, err error) {
	if err == nil {
		return
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetBaseAttributes returns common attributes for a Feed call's span.
func GetBaseAttributes(
	streamID string,
	bytesFed int,
	frameDepth int,
	settings *Settings,
) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.Int("parser.bytes_fed", bytesFed),
		attribute.Int("parser.frame_depth", frameDepth),
	}

	if streamID != "" {
		attrs = append(attrs, attribute.String("parser.stream_id", streamID))
	}

	if settings != nil {
		for key, value := range settings.Metadata {
			attrs = append(attrs, attribute.KeyValue{
				Key:   attribute.Key("parser.metadata." + key),
				Value: value,
			})
		}
	}

	return attrs
}

// AddDiagnosticAttributes adds recoverable-diagnostic counters to a span,
// one count per diag.Kind label.
func AddDiagnosticAttributes(span trace.Span, countsByKind map[string]int) {
	for kind, count := range countsByKind {
		span.SetAttributes(attribute.Int("parser.diagnostics."+kind, count))
	}
}
