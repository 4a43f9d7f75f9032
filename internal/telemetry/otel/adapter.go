package otel

import (
	"context"
	"time"

	otellog "go.opentelemetry.io/otel/log"
	sdklog "go.opentelemetry.io/otel/sdk/log"

	"factory-data-platform/backend/internal/events"
	eventsdomain "factory-data-platform/backend/internal/events/domain"
)

// NewEventEmitter returns an events.Emitter that records security events as
// OTel log records via the given LoggerProvider. Used when Kafka is not
// configured, so violations still reach the collector. If provider is nil,
// returns a no-op emitter.
func NewEventEmitter(provider *sdklog.LoggerProvider) events.Emitter {
	if provider == nil {
		return noopEmitter{}
	}
	return &otelEmitter{logger: provider.Logger("fdp.security")}
}

type noopEmitter struct{}

func (noopEmitter) Emit(context.Context, *eventsdomain.SecurityEvent) error { return nil }

type otelEmitter struct {
	logger otellog.Logger
}

// Emit converts the security event to an OTel log record and emits it. Best-effort; errors are logged.
func (e *otelEmitter) Emit(ctx context.Context, event *eventsdomain.SecurityEvent) error {
	if event == nil {
		return nil
	}
	rec := otellog.Record{}
	if !event.CreatedAt.IsZero() {
		rec.SetTimestamp(event.CreatedAt)
	} else {
		rec.SetTimestamp(time.Now().UTC())
	}
	if event.Detail != "" {
		rec.SetBody(otellog.StringValue(event.Detail))
	}
	rec.AddAttributes(otellog.String("event_type", string(event.EventType)))
	if event.TenantID != "" {
		rec.AddAttributes(otellog.String("tenant_id", event.TenantID))
	}
	if event.PrincipalID != "" {
		rec.AddAttributes(otellog.String("principal_id", event.PrincipalID))
	}
	if event.TargetType != "" {
		rec.AddAttributes(otellog.String("target_type", event.TargetType))
	}
	if event.TargetID != "" {
		rec.AddAttributes(otellog.String("target_id", event.TargetID))
	}
	if event.Operation != "" {
		rec.AddAttributes(otellog.String("operation", event.Operation))
	}
	e.logger.Emit(ctx, rec)
	return nil
}
