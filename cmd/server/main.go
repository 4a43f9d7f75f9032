// server runs the integrity-layer gRPC server.
package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"factory-data-platform/backend/internal/config"
	"factory-data-platform/backend/internal/db"
	"factory-data-platform/backend/internal/events"
	"factory-data-platform/backend/internal/events/producer"
	"factory-data-platform/backend/internal/policy/engine"
	principalrepo "factory-data-platform/backend/internal/principal/repository"
	"factory-data-platform/backend/internal/security"
	"factory-data-platform/backend/internal/server"
	otelsetup "factory-data-platform/backend/internal/telemetry/otel"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "fdp-server", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("otel: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer database.Close()

	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenValidator(publicKey, cfg.JWTIssuer, cfg.JWTAudience)

	deletePolicy, err := engine.NewOPAEvaluator()
	if err != nil {
		log.Fatalf("policy: %v", err)
	}

	var emitter events.Emitter
	if brokers := cfg.SecurityKafkaBrokersList(); len(brokers) > 0 {
		kafkaProducer, err := producer.NewKafkaProducer(brokers, cfg.SecurityKafkaTopic)
		if err != nil {
			log.Fatalf("kafka: %v", err)
		}
		defer kafkaProducer.Close()
		emitter = kafkaProducer
		log.Printf("security events: kafka topic %s", cfg.SecurityKafkaTopic)
	} else {
		emitter = otelsetup.NewEventEmitter(providers.LoggerProvider)
		log.Printf("security events: otel logs (no kafka brokers configured)")
	}

	principals := principalrepo.NewPostgresRepository(database)

	srv := server.New(server.Deps{
		Tokens:     tokens,
		Principals: principals,
		Emitter:    emitter,
		DB:         database,
		Policy:     deletePolicy,
	})
	go srv.WatchReadiness(ctx, 15*time.Second)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	defer lis.Close()

	go func() {
		log.Printf("gRPC server listening on %s", cfg.GRPCAddr)
		if err := srv.GRPC.Serve(lis); err != nil {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down gRPC server...")
	srv.Shutdown()
	log.Println("gRPC server stopped")
}
