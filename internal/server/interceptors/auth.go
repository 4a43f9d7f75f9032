package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	principalrepo "factory-data-platform/backend/internal/principal/repository"
	"factory-data-platform/backend/internal/security"
)

const bearerPrefix = "bearer "

// AuthUnary returns a unary server interceptor that validates the Bearer
// access token from gRPC metadata, loads the principal named by the token's
// subject from storage, and sets it in context for protected RPCs. Role and
// tenant assignments always come from the stored principal, never from token
// claims, so revocations apply to requests already holding a valid token.
// publicMethods is the set of full method names that do not require a Bearer
// token (e.g. the health check).
func AuthUnary(tokens *security.TokenValidator, principals principalrepo.Repository, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		token := extractBearer(ctx)
		public := publicMethods[info.FullMethod]

		if token == "" {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		claims, err := tokens.ValidateAccess(token)
		if err != nil {
			if public {
				return handler(ctx, req)
			}
			return nil, status.Error(codes.Unauthenticated, "missing or invalid authorization")
		}

		principal, err := principals.GetByID(ctx, claims.Subject)
		if err != nil {
			return nil, status.Error(codes.Internal, "principal lookup failed")
		}
		if principal == nil {
			return nil, status.Error(codes.Unauthenticated, "unknown principal")
		}

		ctx = WithPrincipal(ctx, principal)
		return handler(ctx, req)
	}
}

// extractBearer returns the Bearer token from ctx metadata, or "" if missing or malformed.
func extractBearer(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	vals := md.Get("authorization")
	if len(vals) == 0 {
		return ""
	}
	v := strings.TrimSpace(vals[0])
	if len(v) < len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(v[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(bearerPrefix):])
}
