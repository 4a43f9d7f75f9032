// Package server assembles the gRPC server: auth and security-event
// interceptors plus the standard health service. RPC handlers bind to the
// mutate service; the health service reports readiness from a database ping
// and a policy engine check.
package server

import (
	"context"
	"log"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"factory-data-platform/backend/internal/events"
	"factory-data-platform/backend/internal/policy/engine"
	principalrepo "factory-data-platform/backend/internal/principal/repository"
	"factory-data-platform/backend/internal/security"
	"factory-data-platform/backend/internal/server/interceptors"
)

// Pinger reports storage liveness (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// healthMethod is exempt from authentication and security-event reporting.
const healthMethod = "/grpc.health.v1.Health/Check"

// Deps holds the server's dependencies.
type Deps struct {
	Tokens     *security.TokenValidator
	Principals principalrepo.Repository
	// Emitter publishes access_denied events; nil disables reporting.
	Emitter events.Emitter
	// DB is pinged for readiness; nil skips the ping.
	DB Pinger
	// Policy is health-checked for readiness; nil skips the check.
	Policy *engine.OPAEvaluator
}

// Server wraps the gRPC server and its health reporter.
type Server struct {
	GRPC   *grpc.Server
	health *health.Server
	deps   Deps
}

// New builds the gRPC server with the interceptor chain and registers the
// health service. Callers register RPC services on s.GRPC before Serve.
func New(deps Deps) *Server {
	exempt := map[string]bool{healthMethod: true}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(
		interceptors.AuthUnary(deps.Tokens, deps.Principals, exempt),
		interceptors.SecurityEventsUnary(deps.Emitter, exempt),
	))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	return &Server{GRPC: grpcServer, health: healthServer, deps: deps}
}

// WatchReadiness re-checks dependencies on the given interval and updates the
// health service until ctx is cancelled. Run it in its own goroutine.
func (s *Server) WatchReadiness(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.updateReadiness(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.updateReadiness(ctx)
		}
	}
}

func (s *Server) updateReadiness(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	status := healthpb.HealthCheckResponse_SERVING
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(checkCtx); err != nil {
			log.Printf("server: db ping failed: %v", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	if s.deps.Policy != nil {
		if err := s.deps.Policy.HealthCheck(checkCtx); err != nil {
			log.Printf("server: policy check failed: %v", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
}

// Shutdown stops accepting RPCs and waits for in-flight handlers, then
// leaves time for async security-event emits to drain.
func (s *Server) Shutdown() {
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	s.GRPC.GracefulStop()
	time.Sleep(events.ShutdownDrainDuration)
}
