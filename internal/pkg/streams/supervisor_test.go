package streams

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func blockingWorker(name string, runs *atomic.Int32) Worker {
	return Worker{Name: name, Run: func(ctx context.Context) error {
		runs.Add(1)
		<-ctx.Done()
		return nil
	}}
}

func TestEnsureStarted_Concurrent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var bridgeRuns, consumerRuns atomic.Int32
	s := New(ctx, blockingWorker("bridge", &bridgeRuns), blockingWorker("consumer", &consumerRuns))
	s.logger = zaptest.NewLogger(t)

	const callers = 50
	statuses := make([]Status, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			statuses[i] = s.EnsureStarted()
		}()
	}
	close(start)
	wg.Wait()

	started := 0
	for _, st := range statuses {
		if st == StatusStarted {
			started++
			continue
		}
		assert.Equal(t, StatusAlreadyStarted, st)
	}
	assert.Equal(t, 1, started)
	assert.Equal(t, Started, s.State())

	cancel()
	s.Wait()
	assert.Equal(t, int32(1), bridgeRuns.Load())
	assert.Equal(t, int32(1), consumerRuns.Load())
}

func TestEnsureStarted_WorkerErrorDoesNotRestart(t *testing.T) {
	var runs atomic.Int32
	s := New(context.Background(), Worker{Name: "bridge", Run: func(context.Context) error {
		runs.Add(1)
		return errors.New("broker gone")
	}})
	s.logger = zaptest.NewLogger(t)

	assert.Equal(t, StatusStarted, s.EnsureStarted())
	s.Wait()
	assert.Equal(t, StatusAlreadyStarted, s.EnsureStarted())
	assert.Equal(t, int32(1), runs.Load())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "not_started", NotStarted.String())
	assert.Equal(t, "started", Started.String())
}
