package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSchedule_PanicInOneJobDoesNotStopOthers(t *testing.T) {
	sup, err := New(zap.NewNop())
	assert.NoError(t, err)

	var okRuns int32
	assert.NoError(t, sup.Schedule(Job{
		Tag:      "panicker",
		Interval: 20 * time.Millisecond,
		Fn: func() error {
			panic("boom")
		},
	}))
	assert.NoError(t, sup.Schedule(Job{
		Tag:      "healthy",
		Interval: 20 * time.Millisecond,
		Fn: func() error {
			atomic.AddInt32(&okRuns, 1)
			return nil
		},
	}))

	sup.Start()
	time.Sleep(120 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, sup.Stop(ctx))

	assert.Greater(t, atomic.LoadInt32(&okRuns), int32(0))
}

func TestSchedule_ErrorIsRecoveredAndRateLimited(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sup, err := New(zap.New(core))
	assert.NoError(t, err)

	var runs int32
	assert.NoError(t, sup.Schedule(Job{
		Tag:      "failing",
		Interval: 10 * time.Millisecond,
		Fn: func() error {
			atomic.AddInt32(&runs, 1)
			return assert.AnError
		},
	}))

	sup.Start()
	time.Sleep(80 * time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, sup.Stop(ctx))

	assert.Greater(t, atomic.LoadInt32(&runs), int32(1))
	// Several failures inside one minute produce a single log line.
	assert.Equal(t, 1, logs.FilterMessage("Job failed").Len())
	sup.mu.Lock()
	defer sup.mu.Unlock()
	assert.GreaterOrEqual(t, sup.failureCount["failing"], 1)
}
