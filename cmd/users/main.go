// cmd/users/main.go
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
	"foodshare/internal/telemetry"
	"foodshare/internal/users"
	"foodshare/pkg/eventstore"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	shutdown, err := telemetry.Setup(ctx, "users", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up telemetry: %v", err)
	}
	defer shutdown(context.Background())

	database, err := db.New(cfg.DSN, cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	es := eventstore.NewEventStore(database)
	svc := users.NewService(es, database)
	handler := users.NewHandler(svc)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Mount("/", handler.Routes())

	fmt.Printf("🚀 Starting Users Service on port %s\n", cfg.UsersPort)
	log.Fatal(http.ListenAndServe(cfg.Addr(cfg.UsersPort), r))
}
