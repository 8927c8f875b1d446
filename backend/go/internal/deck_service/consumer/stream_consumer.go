package consumer

import (
	"context"
	"time"

	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/pkg/logger"
)

// StreamConsumer follows a job's event stream from the beginning.
type StreamConsumer struct {
	source     Source
	logger     *logger.Logger
	retryDelay time.Duration
}

// NewStreamConsumer creates a new StreamConsumer.
func NewStreamConsumer(source Source, logger *logger.Logger) *StreamConsumer {
	return &StreamConsumer{source: source, logger: logger, retryDelay: time.Second}
}

// Follow calls handle for every entry of the job's stream, oldest first,
// until ctx is done or handle fails. Read errors are logged and retried.
// It returns nil when ctx ends the loop.
func (c *StreamConsumer) Follow(ctx context.Context, jobID string, handle func(Event) error) error {
	log := c.logger.WithJob(jobID)
	lastID := StartID
	for {
		if ctx.Err() != nil {
			return nil
		}
		events, err := c.source.Read(ctx, jobID, lastID)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error reading job event stream")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.retryDelay):
			}
			continue
		}
		for _, ev := range events {
			lastID = ev.ID
			if err := handle(ev); err != nil {
				return err
			}
		}
	}
}
