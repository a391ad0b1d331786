package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type step struct {
	msg kafka.Message
	err error
}

// fakeReader replays the scripted steps, then behaves like an idle topic.
type fakeReader struct {
	mu     sync.Mutex
	steps  []step
	closed atomic.Bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.steps) == 0 {
		f.mu.Unlock()
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	s := f.steps[0]
	f.steps = f.steps[1:]
	f.mu.Unlock()
	return s.msg, s.err
}

func (f *fakeReader) Close() error {
	f.closed.Store(true)
	return nil
}

func newTestConsumer(t *testing.T, reader messageReader, handler HandlerFunc) *Consumer {
	c := newConsumer(reader, handler, 10*time.Millisecond)
	c.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	c.logger = zaptest.NewLogger(t)
	return c
}

func TestConsumer_SurvivesHandlerFailures(t *testing.T) {
	reader := &fakeReader{steps: []step{
		{msg: kafka.Message{Value: []byte("a")}},
		{err: errors.New("broker unavailable")},
		{msg: kafka.Message{Value: []byte("boom")}},
		{msg: kafka.Message{Value: []byte("fail")}},
		{msg: kafka.Message{Value: []byte("b")}},
	}}

	var mu sync.Mutex
	var seen []string
	handler := func(_ context.Context, payload []byte) error {
		mu.Lock()
		seen = append(seen, string(payload))
		mu.Unlock()
		switch string(payload) {
		case "boom":
			panic("handler bug")
		case "fail":
			return errors.New("bad payload")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestConsumer(t, reader, handler).Run(ctx) }()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 4
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	assert.Equal(t, []string{"a", "boom", "fail", "b"}, seen)
	assert.True(t, reader.closed.Load())
}

func TestConsumer_IdlePollsAreNotErrors(t *testing.T) {
	reader := &fakeReader{}
	var calls atomic.Int32
	c := newTestConsumer(t, reader, func(context.Context, []byte) error {
		calls.Add(1)
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.NoError(t, c.Run(ctx))
	assert.Zero(t, calls.Load())
	assert.True(t, reader.closed.Load())
}

func TestFetchBackOff(t *testing.T) {
	b := fetchBackOff()
	var got []time.Duration
	for range 6 {
		got = append(got, b.NextBackOff())
	}
	assert.Equal(t, []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 10 * time.Second, 10 * time.Second,
	}, got)
}
