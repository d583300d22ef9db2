// internal/stats/stats.go
package stats

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("foodshare/stats")

// Sink accumulates named counters. Counters only ever grow; the
// delta for a completed donation carries its quantity.
type Sink struct {
	db *sql.DB
}

func NewSink(db *sql.DB) *Sink {
	return &Sink{db: db}
}

func (s *Sink) Increment(ctx context.Context, name string, delta int64) error {
	ctx, span := tracer.Start(ctx, "Stats.Increment")
	defer span.End()
	span.SetAttributes(attribute.String("stat.name", name), attribute.Int64("stat.delta", delta))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO stats (name, value, updated_at) VALUES ($1, $2, NOW())
		ON CONFLICT (name) DO UPDATE SET value = stats.value + EXCLUDED.value, updated_at = NOW()`,
		name, delta)
	if err != nil {
		return fmt.Errorf("failed to increment stat %s: %w", name, err)
	}
	return nil
}

func (s *Sink) Totals(ctx context.Context) (map[string]int64, error) {
	ctx, span := tracer.Start(ctx, "Stats.Totals")
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `SELECT name, value FROM stats ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var name string
		var value int64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("failed to scan stat row: %w", err)
		}
		totals[name] = value
	}
	return totals, rows.Err()
}
