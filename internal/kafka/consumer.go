// internal/kafka/consumer.go
package kafka

import (
	"context"
	"log"

	"github.com/IBM/sarama"
)

// MessageHandler processes one consumed record. Returning an error
// leaves the offset unmarked so the record is redelivered.
type MessageHandler func(ctx context.Context, value []byte) error

type consumerGroupHandler struct {
	handle MessageHandler
}

func (consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.handle(session.Context(), msg.Value); err != nil {
			log.Printf("Error handling message topic=%s partition=%d offset=%d: %v", msg.Topic, msg.Partition, msg.Offset, err)
			continue
		}
		session.MarkMessage(msg, "")
	}
	return nil
}

func StartConsumer(ctx context.Context, brokers []string, groupID string, topics []string, handle MessageHandler) error {
	config := sarama.NewConfig()
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	consumerGroup, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return err
	}
	defer func() {
		if err := consumerGroup.Close(); err != nil {
			log.Printf("Error closing consumer group: %v", err)
		}
	}()

	handler := consumerGroupHandler{handle: handle}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			if err := consumerGroup.Consume(ctx, topics, handler); err != nil {
				log.Printf("Error from consumer: %v", err)
			}
		}
	}
}
