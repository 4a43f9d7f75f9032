package events

import (
	"context"
	"testing"
	"time"

	"factory-data-platform/backend/internal/events/domain"
)

type chanEmitter struct {
	ch chan *domain.SecurityEvent
}

func (e *chanEmitter) Emit(_ context.Context, event *domain.SecurityEvent) error {
	e.ch <- event
	return nil
}

func TestEmitAsync_Delivers(t *testing.T) {
	emitter := &chanEmitter{ch: make(chan *domain.SecurityEvent, 1)}
	event := &domain.SecurityEvent{EventType: domain.EventScopeViolation, PrincipalID: "p1"}

	EmitAsync(emitter, context.Background(), event)

	select {
	case got := <-emitter.ch:
		if got.PrincipalID != "p1" {
			t.Errorf("PrincipalID = %q, want p1", got.PrincipalID)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for emit")
	}
}

func TestEmitAsync_NilSafe(t *testing.T) {
	// Must not panic or spawn goroutines.
	EmitAsync(nil, context.Background(), &domain.SecurityEvent{})
	EmitAsync(&chanEmitter{ch: make(chan *domain.SecurityEvent, 1)}, context.Background(), nil)
}

func TestShutdownDrainCoversEmitTimeout(t *testing.T) {
	if ShutdownDrainDuration < emitTimeout {
		t.Errorf("ShutdownDrainDuration %v < emitTimeout %v", ShutdownDrainDuration, emitTimeout)
	}
}
