package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockcollector/internal/domain"
)

type captureWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducerPartitionCommitted(t *testing.T) {
	w := &captureWriter{}
	p := &Producer{writer: w, topic: "stock.partitions"}

	committed := time.Date(2024, 1, 3, 6, 30, 0, 0, time.UTC)
	ev := domain.PartitionCommitted{
		Date:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Key:         "raw/stock/localDate=2024-01-02/data",
		Records:     503,
		Sentinels:   2,
		CommittedAt: committed,
	}
	require.NoError(t, p.PartitionCommitted(context.Background(), ev))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "2024-01-02", string(msg.Key))
	assert.True(t, committed.Equal(msg.Time))

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "PARTITION_COMMITTED", got["eventType"])
	assert.Equal(t, "raw/stock/localDate=2024-01-02/data", got["key"])
	assert.Equal(t, float64(503), got["records"])
	assert.Equal(t, float64(2), got["sentinels"])

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerWriteError(t *testing.T) {
	p := &Producer{writer: &captureWriter{err: errors.New("no brokers")}, topic: "t"}
	err := p.PartitionCommitted(context.Background(), domain.PartitionCommitted{Date: time.Now()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
}

func TestNewProducer(t *testing.T) {
	p := NewProducer([]string{"localhost:9092"}, "stock.partitions")
	kw, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "stock.partitions", kw.Topic)
	assert.NoError(t, p.Close())
}
