package otelhelper

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrorKindKey classifies a recorded failure, e.g. "validation" or "conflict".
const ErrorKindKey = "facilitator.error.kind"

// SetError marks span as failed. Nil errors and non-recording spans are
// ignored.
func SetError(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if err == nil || !span.IsRecording() {
		return
	}

	span.RecordError(err, trace.WithAttributes(attrs...))
	span.SetStatus(codes.Error, err.Error())
}

// SetErrorKind is SetError with the failure class attached.
func SetErrorKind(span trace.Span, err error, kind string) {
	SetError(span, err, attribute.String(ErrorKindKey, kind))
}
