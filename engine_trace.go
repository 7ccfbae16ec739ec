package magicAuth

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func (e *Engine) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "magicAuth."+name, trace.WithAttributes(attrs...))
}

// endSpan records err on span, except for expected client failures which
// only get an outcome attribute.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("magicauth.outcome", string(auditErrorCode(err))))
		if HTTPStatus(err) >= 500 {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
