// cmd/donations/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"foodshare/internal/audit"
	"foodshare/internal/clients"
	"foodshare/internal/config"
	"foodshare/internal/db"
	"foodshare/internal/donation"
	"foodshare/internal/kafka"
	"foodshare/internal/outbox"
	"foodshare/internal/review"
	"foodshare/internal/stats"
	"foodshare/internal/telemetry"
	"foodshare/pkg/eventstore"
)

func main() {
	rebuild := flag.Bool("rebuild", false, "rebuild the donations read model from the event stream and exit")
	flag.Parse()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "donations", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up telemetry: %v", err)
	}
	defer shutdown(context.Background())

	database, err := db.New(cfg.DSN, cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if *rebuild {
		es := eventstore.NewEventStore(database)
		projector := donation.NewProjector(donation.NewService(es, database, nil, nil, nil), es)
		if err := projector.Rebuild(ctx); err != nil {
			log.Fatalf("Failed to rebuild read model: %v", err)
		}
		return
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers)
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer producer.Close()

	es := eventstore.NewEventStore(database)
	outboxRepo := outbox.NewRepository(database)
	statSink := stats.NewSink(database)

	auditPool := audit.NewWorkerPool(audit.PoolConfig{
		BatchSize:   cfg.AuditBatchSize,
		Timeout:     cfg.AuditFlushTimeout,
		ChannelSize: 1024,
	}, audit.NewDBProcessor(database))
	auditPool.Start(ctx, 2)
	defer auditPool.Shutdown(cancel)

	svc := donation.NewService(es, database, outboxRepo, statSink, auditPool)
	usersClient := clients.NewUsersClient(cfg.UsersURL)
	handler := donation.NewHandler(svc, usersClient, statSink)

	reviewSvc := review.NewService(database, svc)
	reviewHandler := review.NewHandler(reviewSvc, usersClient)

	poller := outbox.NewPoller(outboxRepo, producer, cfg.KafkaTopic, cfg.OutboxPollInterval)
	go poller.Start(ctx)

	sweeper := donation.NewSweeper(svc, cfg.CompletionGrace, cfg.OutboxPollInterval*12)
	go sweeper.Start(ctx)

	routes := handler.Routes()
	routes.Post("/donations/{donationID}/reviews", reviewHandler.HandleCreate)
	routes.Get("/donations/{donationID}/reviews", reviewHandler.HandleList)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", routes)

	fmt.Printf("🚀 Starting Donations Service on port %s\n", cfg.DonationsPort)
	log.Fatal(http.ListenAndServe(cfg.Addr(cfg.DonationsPort), r))
}
