package kafka

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreschagin/mission-control/internal/domain/entity"
	"github.com/dreschagin/mission-control/pkg/logger"
)

type fakeReader struct {
	mu        sync.Mutex
	messages  []kafka.Message
	committed []int64
	fetchErr  error
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if r.fetchErr != nil {
		err := r.fetchErr
		r.fetchErr = nil
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()

	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

func (r *fakeReader) committedOffsets() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

func testLogger() *logger.Logger {
	return logger.NewWithWriter("error", io.Discard)
}

func TestConsume_DecodesAndCommits(t *testing.T) {
	sentAt := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	reader := &fakeReader{
		fetchErr: errors.New("broker unavailable"),
		messages: []kafka.Message{
			{Offset: 1, Value: []byte(`{"capturedAt":"2026-10-18T08:55:00Z","processHealth":[{"name":"Claims","exceptionRate":0.18}]}`)},
			{Offset: 2, Value: []byte(`not json`)},
			{Offset: 3, Value: []byte(`{}`), Time: sentAt},
		},
	}
	consumer := NewSnapshotConsumerWithReader(reader, time.Millisecond, testLogger())

	var rejected []string
	consumer.OnReject(func(reason string) { rejected = append(rejected, reason) })

	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu        sync.Mutex
		snapshots []*entity.MetricsSnapshot
	)
	handler := func(ctx context.Context, s *entity.MetricsSnapshot) error {
		mu.Lock()
		defer mu.Unlock()
		snapshots = append(snapshots, s)
		if len(snapshots) == 2 {
			cancel()
		}
		return nil
	}

	require.NoError(t, consumer.Consume(ctx, handler))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, snapshots, 2)
	require.Len(t, snapshots[0].ProcessHealth, 1)
	assert.Equal(t, "Claims", snapshots[0].ProcessHealth[0].Name)
	assert.Equal(t, sentAt, snapshots[1].CapturedAt)

	assert.Equal(t, []string{"decode"}, rejected)
	assert.Equal(t, []int64{1, 2}, reader.committedOffsets()[:2])
	assert.Equal(t, ConsumerStats{Consumed: 2, Rejected: 1}, consumer.Stats())
}

func TestConsume_HandlerErrorIsCommitted(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{{Offset: 7, Value: []byte(`{}`)}}}
	consumer := NewSnapshotConsumerWithReader(reader, time.Millisecond, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	err := consumer.Consume(ctx, func(ctx context.Context, s *entity.MetricsSnapshot) error {
		cancel()
		return errors.New("evaluation failed")
	})

	require.NoError(t, err)
	assert.Equal(t, []int64{7}, reader.committedOffsets())
	assert.Equal(t, uint64(1), consumer.Stats().Rejected)
}

func TestClose(t *testing.T) {
	reader := &fakeReader{}
	consumer := NewSnapshotConsumerWithReader(reader, 0, testLogger())

	require.NoError(t, consumer.Close())
	require.NoError(t, consumer.Close())
	assert.True(t, reader.closed)

	err := consumer.Consume(context.Background(), func(ctx context.Context, s *entity.MetricsSnapshot) error { return nil })
	assert.ErrorIs(t, err, ErrConsumerClosed)
}

func TestNewSnapshotConsumer_Validation(t *testing.T) {
	_, err := NewSnapshotConsumer(Config{Topic: "t"}, testLogger())
	assert.Error(t, err)

	_, err = NewSnapshotConsumer(Config{Brokers: []string{"localhost:9092"}}, testLogger())
	assert.Error(t, err)
}
