package interceptors

import (
	"context"
	"net"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"factory-data-platform/backend/internal/events"
	eventsdomain "factory-data-platform/backend/internal/events/domain"
)

// SecurityEventsUnary returns a unary server interceptor that publishes an
// access_denied security event whenever an RPC ends in PermissionDenied.
// Best-effort and asynchronous: emit failures never affect the RPC result.
// skipMethods is the set of full method names to not report (e.g. the health
// check). If emitter is nil, the interceptor no-ops.
func SecurityEventsUnary(emitter events.Emitter, skipMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		if emitter == nil || skipMethods[info.FullMethod] {
			return resp, err
		}
		if status.Code(err) != codes.PermissionDenied {
			return resp, err
		}
		event := &eventsdomain.SecurityEvent{
			EventType: eventsdomain.EventAccessDenied,
			Operation: info.FullMethod,
			Detail:    "client_ip=" + ClientIP(ctx),
			CreatedAt: time.Now().UTC(),
		}
		if p, ok := GetPrincipal(ctx); ok {
			event.PrincipalID = p.ID
		}
		events.EmitAsync(emitter, ctx, event)
		return resp, err
	}
}

// ClientIP returns the client IP from gRPC metadata (x-forwarded-for, x-real-ip) or peer, or "unknown".
func ClientIP(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("x-forwarded-for"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				if i := strings.Index(s, ","); i > 0 {
					s = strings.TrimSpace(s[:i])
				}
				return s
			}
		}
		if vals := md.Get("x-real-ip"); len(vals) > 0 {
			if s := strings.TrimSpace(vals[0]); s != "" {
				return s
			}
		}
	}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		if host, _, err := net.SplitHostPort(p.Addr.String()); err == nil {
			return host
		}
		return p.Addr.String()
	}
	return "unknown"
}
