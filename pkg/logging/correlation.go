package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// Field names shared by every package.
const (
	FieldComponent = "component"
	FieldService   = "service"
	FieldFetchID   = "fetch_id"
	FieldRequestID = "request_id"
)

type requestIDKey struct{}

// WithRequestID returns ctx carrying the proxy request id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID returns the request id carried by ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromContext returns logger tagged with the request id carried by ctx.
// Without one, logger is returned unchanged.
func FromContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	id := RequestID(ctx)
	if id == "" {
		return logger
	}
	return logger.With().Str(FieldRequestID, id).Logger()
}

// WithFetchID tags logger with the id of one fetch pipeline.
func WithFetchID(logger zerolog.Logger, fetchID string) zerolog.Logger {
	return logger.With().Str(FieldFetchID, fetchID).Logger()
}
