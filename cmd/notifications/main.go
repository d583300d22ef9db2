// cmd/notifications/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"foodshare/internal/config"
	"foodshare/internal/db"
	"foodshare/internal/kafka"
	"foodshare/internal/notification"
	"foodshare/internal/telemetry"
)

func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := telemetry.Setup(ctx, "notifications", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up telemetry: %v", err)
	}
	defer shutdown(context.Background())

	database, err := db.New(cfg.DSN, cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	svc := notification.NewService(database)
	handler := notification.NewHandler(svc)

	go func() {
		err := kafka.StartConsumer(ctx, cfg.KafkaBrokers, cfg.KafkaGroupID, []string{cfg.KafkaTopic}, notification.Consume(svc))
		if err != nil && err != context.Canceled {
			log.Printf("Consumer stopped: %v", err)
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", handler.Routes())

	fmt.Printf("🚀 Starting Notifications Service on port %s\n", cfg.NotificationsPort)
	log.Fatal(http.ListenAndServe(cfg.Addr(cfg.NotificationsPort), r))
}
