// internal/kafka/producer.go
package kafka

import (
	"fmt"
	"log"
	"time"

	"github.com/IBM/sarama"
)

// Producer publishes keyed messages synchronously. Messages sharing a
// key land on the same partition, so notifications for one user are
// consumed in the order they were enqueued.
type Producer struct {
	sp sarama.SyncProducer
}

func NewProducer(brokers []string) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second

	sp, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}
	return &Producer{sp: sp}, nil
}

func (p *Producer) Publish(topic, key string, value []byte) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(value),
	}
	if key != "" {
		msg.Key = sarama.StringEncoder(key)
	}

	partition, offset, err := p.sp.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish to topic %s: %w", topic, err)
	}
	log.Printf("Published to %s partition %d offset %d", topic, partition, offset)
	return nil
}

func (p *Producer) Close() error {
	return p.sp.Close()
}
