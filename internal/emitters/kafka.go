package emitters

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"chain-sentinel/internal/interfaces"
	"chain-sentinel/internal/logger"
	"chain-sentinel/internal/models"

	"github.com/segmentio/kafka-go"
)

// KafkaEmitter publishes threat findings to a Kafka topic, keyed by finding
// ID so replays of one finding land in one partition.
type KafkaEmitter struct {
	writer *kafka.Writer
	mu     sync.Mutex
}

var _ interfaces.FindingEmitter = (*KafkaEmitter)(nil)

// NewKafkaEmitter creates a new KafkaEmitter.
func NewKafkaEmitter(brokerAddress, topic string, batchSize int, batchTimeout time.Duration) *KafkaEmitter {
	return &KafkaEmitter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokerAddress),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchSize:    batchSize,
			BatchTimeout: batchTimeout,
		},
	}
}

func (k *KafkaEmitter) EmitFinding(finding models.ThreatFinding) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	value, err := json.Marshal(finding)
	if err != nil {
		return fmt.Errorf("failed to marshal finding: %w", err)
	}

	err = k.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   []byte(finding.ID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	logger.GetLogger().Info().
		Str("finding", finding.ID).
		Str("category", finding.Category.String()).
		Msg("Emitted finding to Kafka")
	return nil
}

func (k *KafkaEmitter) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}
