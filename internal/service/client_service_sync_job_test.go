package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

type countingEngine struct {
	syncs atomic.Int32
}

func (e *countingEngine) Sync(context.Context) error {
	e.syncs.Add(1)
	return nil
}

func (e *countingEngine) RetryFailed(context.Context) (int64, error) { return 0, nil }

func (e *countingEngine) Snapshot(context.Context) (models.SyncHealthSnapshot, error) {
	return models.SyncHealthSnapshot{}, nil
}

func TestSyncJob_TicksTheEngine(t *testing.T) {
	engine := &countingEngine{}
	job := NewSyncJob(engine)

	job.Start(context.Background(), 10*time.Millisecond)
	defer job.Stop()

	require.Eventually(t, func() bool {
		return engine.syncs.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}

func TestSyncJob_StopHaltsTicks(t *testing.T) {
	engine := &countingEngine{}
	job := NewSyncJob(engine)

	job.Start(context.Background(), 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return engine.syncs.Load() >= 1
	}, time.Second, 5*time.Millisecond)

	job.Stop()
	settled := engine.syncs.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, engine.syncs.Load())
}

func TestSyncJob_StopWithoutStart(t *testing.T) {
	job := NewSyncJob(&countingEngine{})
	job.Stop() // must not panic or block
}

func TestSyncJob_RestartReplacesPreviousRun(t *testing.T) {
	engine := &countingEngine{}
	job := NewSyncJob(engine)

	job.Start(context.Background(), 10*time.Millisecond)
	job.Start(context.Background(), 10*time.Millisecond)
	defer job.Stop()

	require.Eventually(t, func() bool {
		return engine.syncs.Load() >= 2
	}, time.Second, 5*time.Millisecond)
}
