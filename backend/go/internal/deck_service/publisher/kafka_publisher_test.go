package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slidecraft/backend/go/internal/models"
	"slidecraft/backend/go/pkg/circuitbreaker"
	"slidecraft/backend/go/pkg/logger"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_PublishJob(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, "deck_jobs", logger.Discard())

	req := models.JobRequest{JobID: "job-1", Prompt: "Quarterly review", Audiences: []string{"board"}}
	require.NoError(t, p.PublishJob(context.Background(), req))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "job-1", string(w.msgs[0].Key))

	var got models.JobRequest
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, req.Prompt, got.Prompt)
	assert.Equal(t, req.Audiences, got.Audiences)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := NewKafkaPublisher(&fakeWriter{err: boom}, "t", logger.Discard())
	assert.ErrorIs(t, p.Publish(context.Background(), "k", map[string]string{}), boom)
	assert.Error(t, p.Publish(context.Background(), "k", make(chan int)))
}

func TestDebugSink_BreakerOpens(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	breaker := circuitbreaker.New(circuitbreaker.Settings{FailureThreshold: 2, Timeout: time.Hour})
	sink := NewDebugSink(NewKafkaPublisher(w, "deck_debug_events", logger.Discard()), breaker, logger.Discard())

	ev := models.DebugEvent{PresentationID: "p1", Raw: "hello"}
	assert.Error(t, sink.PublishDebug(context.Background(), ev))
	assert.Error(t, sink.PublishDebug(context.Background(), ev))
	assert.ErrorIs(t, sink.PublishDebug(context.Background(), ev), circuitbreaker.ErrCircuitOpen)
}

func TestDebugSink_Delivers(t *testing.T) {
	w := &fakeWriter{}
	sink := NewDebugSink(NewKafkaPublisher(w, "deck_debug_events", logger.Discard()), nil, logger.Discard())
	require.NoError(t, sink.PublishDebug(context.Background(), models.DebugEvent{PresentationID: "p1", Raw: "x"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "p1", string(w.msgs[0].Key))
}

func TestDebugSink_LogOnly(t *testing.T) {
	sink := NewDebugSink(nil, nil, logger.Discard())
	assert.NoError(t, sink.PublishDebug(context.Background(), models.DebugEvent{PresentationID: "p1"}))
}
