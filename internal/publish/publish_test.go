package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"fxrate/internal/store"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaPublisher_PublishReading(t *testing.T) {
	t.Parallel()

	// Arrange
	w := &recordingWriter{}
	p := NewWithWriter(w)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	r := store.Reading{ID: "r-1", Raw: 291.62, Smoothed: 292.6, SourceLabel: "binance,okx", ObservedAt: at}

	// Act
	err := p.PublishReading(t.Context(), r)

	// Assert
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	require.Equal(t, "binance,okx", string(w.msgs[0].Key))

	var ev ReadingEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	require.Equal(t, "r-1", ev.ID)
	require.Equal(t, 292.6, ev.Smoothed)
	require.True(t, ev.ObservedAt.Equal(at))

	require.NoError(t, p.Close())
	require.True(t, w.closed)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	t.Parallel()

	p := NewWithWriter(&recordingWriter{err: errors.New("leader not available")})
	err := p.PublishReading(t.Context(), store.Reading{ID: "r-2"})
	require.ErrorContains(t, err, "leader not available")
}
