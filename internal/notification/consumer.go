// internal/notification/consumer.go
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
)

// Consume decodes a Kafka record into a Payload and records it.
// Delivery is at least once, so a redelivered record produces a
// duplicate inbox row rather than a lost notification.
func Consume(svc Service) func(ctx context.Context, value []byte) error {
	return func(ctx context.Context, value []byte) error {
		var payload Payload
		if err := json.Unmarshal(value, &payload); err != nil {
			// A malformed record will never decode; drop it instead of
			// blocking the partition.
			log.Printf("Dropping undecodable notification record: %v", err)
			return nil
		}
		if _, err := svc.Record(ctx, payload); err != nil {
			return fmt.Errorf("failed to record notification: %w", err)
		}
		return nil
	}
}
