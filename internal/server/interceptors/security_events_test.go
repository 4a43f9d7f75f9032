package interceptors

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	eventsdomain "factory-data-platform/backend/internal/events/domain"
	principaldomain "factory-data-platform/backend/internal/principal/domain"
)

type chanEmitter struct {
	ch chan *eventsdomain.SecurityEvent
}

func (e *chanEmitter) Emit(_ context.Context, event *eventsdomain.SecurityEvent) error {
	e.ch <- event
	return nil
}

func deniedHandler(context.Context, interface{}) (interface{}, error) {
	return nil, status.Error(codes.PermissionDenied, "denied")
}

func okHandler(context.Context, interface{}) (interface{}, error) {
	return "ok", nil
}

func TestSecurityEventsUnary_ReportsDenials(t *testing.T) {
	emitter := &chanEmitter{ch: make(chan *eventsdomain.SecurityEvent, 1)}
	interceptor := SecurityEventsUnary(emitter, nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/fdp.Records/Mutate"}

	ctx := WithPrincipal(context.Background(), &principaldomain.Principal{ID: "p1"})
	_, err := interceptor(ctx, nil, info, deniedHandler)
	if status.Code(err) != codes.PermissionDenied {
		t.Fatalf("code = %v, want PermissionDenied", status.Code(err))
	}

	select {
	case event := <-emitter.ch:
		if event.EventType != eventsdomain.EventAccessDenied {
			t.Errorf("EventType = %q, want access_denied", event.EventType)
		}
		if event.PrincipalID != "p1" {
			t.Errorf("PrincipalID = %q, want p1", event.PrincipalID)
		}
		if event.Operation != "/fdp.Records/Mutate" {
			t.Errorf("Operation = %q", event.Operation)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSecurityEventsUnary_IgnoresSuccess(t *testing.T) {
	emitter := &chanEmitter{ch: make(chan *eventsdomain.SecurityEvent, 1)}
	interceptor := SecurityEventsUnary(emitter, nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/fdp.Records/Mutate"}

	resp, err := interceptor(context.Background(), nil, info, okHandler)
	if err != nil || resp != "ok" {
		t.Fatalf("resp = %v err = %v", resp, err)
	}
	select {
	case <-emitter.ch:
		t.Error("no event expected for a successful RPC")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSecurityEventsUnary_SkipsExemptMethods(t *testing.T) {
	emitter := &chanEmitter{ch: make(chan *eventsdomain.SecurityEvent, 1)}
	skip := map[string]bool{"/grpc.health.v1.Health/Check": true}
	interceptor := SecurityEventsUnary(emitter, skip)
	info := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}

	if _, err := interceptor(context.Background(), nil, info, deniedHandler); status.Code(err) != codes.PermissionDenied {
		t.Fatal("handler result should pass through")
	}
	select {
	case <-emitter.ch:
		t.Error("exempt method should not be reported")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSecurityEventsUnary_NilEmitter(t *testing.T) {
	interceptor := SecurityEventsUnary(nil, nil)
	info := &grpc.UnaryServerInfo{FullMethod: "/fdp.Records/Mutate"}
	if _, err := interceptor(context.Background(), nil, info, deniedHandler); status.Code(err) != codes.PermissionDenied {
		t.Error("nil emitter must not change the RPC result")
	}
}
