// cmd/chaos/main.go
package main

import (
	"context"
	"log"
	"time"

	_ "github.com/lib/pq"

	"foodshare/internal/config"
	"foodshare/internal/db"
	"foodshare/pkg/chaos"
)

func main() {
	cfg := config.Load()

	database, err := db.New(cfg.DSN, cfg.MigrationsDir)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	engine := chaos.NewEngine(database)
	engine.RegisterExperiments()

	gameDay := chaos.GameDay{
		Name:      "FoodShare Resilience Game Day",
		Date:      time.Now(),
		Scenarios: engine.GetExperiments(),
		Participants: []string{
			"platform-team",
			"on-call",
		},
		Runbooks: map[string]string{
			"database-latency-injection":      "docs/runbooks/db-latency.md",
			"concurrent-claim-race-condition": "docs/runbooks/claim-race.md",
			"notification-broker-partition":   "docs/runbooks/kafka-partition.md",
		},
	}

	if err := engine.ExecuteGameDay(context.Background(), gameDay); err != nil {
		log.Fatalf("Game day failed: %v", err)
	}
}
