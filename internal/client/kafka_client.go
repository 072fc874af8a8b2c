package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"risk-service/internal/config"
	"risk-service/internal/util"
)

// KafkaProducer publishes audit records for recovered conflicts and scoring
// side effects: category mismatches, duplicate-create recoveries, event
// resolutions and score updates.
type KafkaProducer struct {
	Writer *kafka.Writer
	config *config.KafkaConfig
	logger *zap.Logger
}

type auditRecord struct {
	Kind      string                 `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	Fields    map[string]interface{} `json:"fields"`
}

func NewKafkaProducer(cfg *config.Config, logger *zap.Logger) (*KafkaProducer, error) {
	kafkaConfig := cfg.Kafka

	writer := &kafka.Writer{
		Addr:         kafka.TCP(kafkaConfig.Brokers...),
		Topic:        kafkaConfig.AuditTopic,
		Balancer:     &kafka.LeastBytes{},
		MaxAttempts:  3,
		BatchSize:    100,
		BatchBytes:   1048576, // 1MB
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		Completion: func(messages []kafka.Message, err error) {
			if err != nil {
				logger.Error("failed to write kafka messages",
					zap.Error(err),
					zap.Int("message_count", len(messages)),
				)
			}
		},
	}

	util.Info("Kafka audit producer initialized",
		zap.Strings("brokers", kafkaConfig.Brokers),
		zap.String("topic", kafkaConfig.AuditTopic))

	return &KafkaProducer{
		Writer: writer,
		config: &kafkaConfig,
		logger: logger,
	}, nil
}

// PublishAudit writes one audit record to the audit topic, keyed by kind so
// consumers can partition by conflict type.
func (p *KafkaProducer) PublishAudit(ctx context.Context, kind string, fields map[string]interface{}) error {
	payload, err := json.Marshal(auditRecord{
		Kind:      kind,
		Timestamp: time.Now().UTC(),
		Fields:    fields,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	if err := p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(kind),
		Value: payload,
	}); err != nil {
		return fmt.Errorf("failed to publish audit record: %w", err)
	}
	return nil
}

func (p *KafkaProducer) HealthCheck(ctx context.Context) error {
	// A produce to a missing topic surfaces as a connectivity error here;
	// anything else means broker reachability is fine.
	err := p.Writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte("health-check"),
		Value: []byte(`{"kind":"health-check"}`),
	})
	if err != nil && isConnectivityError(err) {
		return fmt.Errorf("kafka health check failed: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.Writer.Close()
}

func isConnectivityError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "i/o timeout") ||
		strings.Contains(msg, "broken pipe")
}
