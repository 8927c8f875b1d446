package publisher

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/pkg/circuitbreaker"
	"slidecraft/backend/go/pkg/logger"
)

// MessageWriter is the part of *kafka.Writer the publishers use.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes JSON messages to one topic.
type KafkaPublisher struct {
	writer MessageWriter
	topic  string
	logger *logger.Logger
}

// NewKafkaPublisher wraps a writer that is already bound to topic.
func NewKafkaPublisher(writer MessageWriter, topic string, logger *logger.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic, logger: logger}
}

// Publish sends value as JSON under key.
func (p *KafkaPublisher) Publish(ctx context.Context, key string, value interface{}) error {
	msgBytes, err := json.Marshal(value)
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to marshal message for Kafka")
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{"topic": p.topic}).Error("Failed to write message to Kafka")
		return err
	}
	return nil
}

// PublishJob hands a generation job to the workers, keyed by job id.
func (p *KafkaPublisher) PublishJob(ctx context.Context, req models.JobRequest) error {
	return p.Publish(ctx, req.JobID, req)
}

// Close closes the underlying Kafka writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Publisher is what DebugSink needs from a KafkaPublisher.
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// DebugSink forwards reconciler debug events to Kafka behind a circuit
// breaker. With no publisher the events are only logged.
type DebugSink struct {
	publisher Publisher
	breaker   circuitbreaker.CircuitBreaker
	logger    *logger.Logger
}

// NewDebugSink builds a sink; publisher and breaker may be nil.
func NewDebugSink(publisher Publisher, breaker circuitbreaker.CircuitBreaker, logger *logger.Logger) *DebugSink {
	return &DebugSink{publisher: publisher, breaker: breaker, logger: logger}
}

func (s *DebugSink) PublishDebug(ctx context.Context, ev models.DebugEvent) error {
	log := s.logger.WithJob(ev.PresentationID)
	if s.publisher == nil {
		log.WithPayload(map[string]interface{}{"raw": ev.Raw, "json": ev.JSON}).Debug("Debug event")
		return nil
	}
	if s.breaker == nil {
		return s.publisher.Publish(ctx, ev.PresentationID, ev)
	}
	err := s.breaker.Execute(func() error {
		return s.publisher.Publish(ctx, ev.PresentationID, ev)
	})
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) {
		log.Debug("Debug event dropped, Kafka circuit is open")
	}
	return err
}
