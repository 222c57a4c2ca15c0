package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/adapter"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/config"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/utils"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// appliedRetention is how long applied mutations stay in the local queue
// before a clean drain sweeps them out.
const appliedRetention = 7 * 24 * time.Hour

// ConnectivitySource reports whether the device currently has a confirmed
// network path to the server. Satisfied by *netmon.Monitor.
type ConnectivitySource interface {
	IsOnline() bool
}

type syncEngine struct {
	queue        MutationQueue
	remote       adapter.RemoteStore
	resolver     ConflictResolver
	connectivity ConnectivitySource
	cfg          config.ClientSync
	ids          *utils.UUIDGenerator
	now          func() time.Time

	syncing atomic.Bool

	mu       sync.Mutex
	lastSync time.Time
	history  []models.SyncHistoryEntry

	logger *logger.Logger
}

// NewSyncEngine constructs the [SyncEngine] that drains the mutation queue
// whenever connectivity allows. Conflicts detected during a drain are handed
// to the resolver; the owning mutation is parked until the user decides.
func NewSyncEngine(
	queue MutationQueue,
	remote adapter.RemoteStore,
	resolver ConflictResolver,
	connectivity ConnectivitySource,
	cfg config.ClientSync,
	logger *logger.Logger,
) SyncEngine {
	return &syncEngine{
		queue:        queue,
		remote:       remote,
		resolver:     resolver,
		connectivity: connectivity,
		cfg:          cfg,
		ids:          utils.NewUUIDGenerator(),
		now:          time.Now,
		logger:       logger,
	}
}

// Sync implements [SyncEngine]. Only one drain runs at a time; concurrent
// calls and calls while offline return immediately without error, so every
// trigger source (connectivity restore, ticker, manual retry) can call it
// unconditionally.
func (s *syncEngine) Sync(ctx context.Context) error {
	if !s.connectivity.IsOnline() {
		return nil
	}
	if !s.syncing.CompareAndSwap(false, true) {
		return nil
	}
	defer s.syncing.Store(false)

	log := logger.FromContext(ctx)

	attempted := 0
	clean := true
	for {
		batch, err := s.queue.NextBatch(ctx)
		if err != nil {
			s.recordDrain(attempted, false)
			return fmt.Errorf("pull sync batch: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		attempted += len(batch)
		ok, err := s.drainBatch(ctx, batch)
		if err != nil {
			s.recordDrain(attempted, false)
			return err
		}
		if !ok {
			// transport trouble: retries are scheduled, stop this cycle
			clean = false
			break
		}
	}

	s.recordDrain(attempted, clean)

	if attempted > 0 {
		log.Info().
			Str("func", "*syncEngine.Sync").
			Int("attempted", attempted).
			Bool("clean", clean).
			Msg("drain cycle finished")
	}

	if clean {
		// applied rows are kept around for diagnostics, not forever
		if _, err := s.queue.PurgeApplied(ctx, s.now().Add(-appliedRetention)); err != nil {
			log.Warn().Err(err).Str("func", "*syncEngine.Sync").Msg("purging old applied mutations failed")
		}
	}

	return nil
}

// drainBatch pushes one batch to the server and settles every mutation in
// it. It reports false when the batch never reached the server and a further
// drain right now would be pointless.
func (s *syncEngine) drainBatch(ctx context.Context, batch []models.QueuedMutation) (bool, error) {
	log := logger.FromContext(ctx)

	for _, m := range batch {
		if err := s.queue.MarkInFlight(ctx, m.ID); err != nil {
			return false, fmt.Errorf("mark in flight %s: %w", m.ID, err)
		}
	}

	resp, err := s.remote.ApplyBatch(ctx, models.ApplyRequest{Mutations: batch})
	if err != nil {
		// the whole batch failed in transit; every mutation retries with
		// its own backoff
		log.Warn().Err(err).Str("func", "*syncEngine.drainBatch").Msg("batch apply failed")
		for _, m := range batch {
			if rerr := s.retryOrFail(ctx, m, err.Error()); rerr != nil {
				return false, rerr
			}
		}
		return false, nil
	}

	results := make(map[string]models.ApplyResult, len(resp.Results))
	for _, res := range resp.Results {
		results[res.MutationID] = res
	}

	clean := true
	for _, m := range batch {
		res, found := results[m.ID]
		if !found {
			if err := s.retryOrFail(ctx, m, "no result returned for mutation"); err != nil {
				return false, err
			}
			clean = false
			continue
		}

		switch res.Status {
		case models.ApplyOK:
			if err := s.queue.MarkApplied(ctx, m.ID); err != nil {
				return false, fmt.Errorf("mark applied %s: %w", m.ID, err)
			}

		case models.ApplyConflict:
			if err := s.surfaceConflict(ctx, m, res.Remote); err != nil {
				return false, err
			}
			clean = false

		case models.ApplyError:
			if err := s.queue.MarkFailed(ctx, m.ID, res.Error); err != nil {
				return false, fmt.Errorf("mark failed %s: %w", m.ID, err)
			}
			clean = false

		default:
			if err := s.retryOrFail(ctx, m, fmt.Sprintf("unknown apply status %q", res.Status)); err != nil {
				return false, err
			}
			clean = false
		}
	}

	return clean, nil
}

// surfaceConflict parks the mutation and hands a field-level diff to the
// resolver.
func (s *syncEngine) surfaceConflict(ctx context.Context, m models.QueuedMutation, remote *models.EntityRecord) error {
	log := logger.FromContext(ctx)

	conflict := newDataConflict(s.ids.Generate(), m, remote)

	if err := s.queue.MarkConflicted(ctx, m.ID, "base version is stale"); err != nil {
		return fmt.Errorf("mark conflicted %s: %w", m.ID, err)
	}
	s.resolver.Add(conflict)

	log.Info().
		Str("func", "*syncEngine.surfaceConflict").
		Str("mutation_id", m.ID).
		Str("entity_id", m.EntityID).
		Str("remote_user", conflict.RemoteUser).
		Msg("conflict surfaced")

	return nil
}

// retryOrFail schedules another attempt with exponential backoff, or settles
// the mutation as failed once the attempt ceiling is reached.
func (s *syncEngine) retryOrFail(ctx context.Context, m models.QueuedMutation, reason string) error {
	if m.AttemptCount+1 >= s.cfg.MaxAttempts {
		return s.queue.MarkFailed(ctx, m.ID, reason)
	}
	return s.queue.ScheduleRetry(ctx, m.ID, reason, s.backoffDelay(m.AttemptCount))
}

// backoffDelay returns the delay before attempt number attempts+1: the base
// doubled per prior attempt, bounded by the configured cap.
func (s *syncEngine) backoffDelay(attempts int) time.Duration {
	delay := s.cfg.BackoffBase
	for i := 0; i < attempts; i++ {
		delay *= 2
		if delay >= s.cfg.BackoffCap {
			return s.cfg.BackoffCap
		}
	}
	if delay > s.cfg.BackoffCap {
		return s.cfg.BackoffCap
	}
	return delay
}

// RetryFailed implements [SyncEngine].
func (s *syncEngine) RetryFailed(ctx context.Context) (int64, error) {
	revived, err := s.queue.RetryFailed(ctx)
	if err != nil {
		return 0, fmt.Errorf("retry failed mutations: %w", err)
	}
	if revived == 0 {
		return 0, nil
	}

	return revived, s.Sync(ctx)
}

// Snapshot implements [SyncEngine].
func (s *syncEngine) Snapshot(ctx context.Context) (models.SyncHealthSnapshot, error) {
	stats, err := s.queue.Stats(ctx)
	if err != nil {
		return models.SyncHealthSnapshot{}, err
	}

	s.mu.Lock()
	lastSync := s.lastSync
	history := append([]models.SyncHistoryEntry(nil), s.history...)
	s.mu.Unlock()

	return models.SyncHealthSnapshot{
		PendingCount:    stats.PendingCount,
		FailedCount:     stats.FailedCount,
		ConflictedCount: stats.ConflictedCount,
		AppliedCount:    stats.AppliedCount,
		PendingByType:   stats.PendingByType,
		LastSyncTime:    lastSync,
		IsSyncing:       s.syncing.Load(),
		SyncHistory:     history,
	}, nil
}

// recordDrain pushes a history entry, newest first, bounded by
// [models.SyncHistoryLimit].
func (s *syncEngine) recordDrain(count int, success bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.lastSync = now
	s.history = append([]models.SyncHistoryEntry{{
		Timestamp: now,
		Count:     count,
		Success:   success,
	}}, s.history...)
	if len(s.history) > models.SyncHistoryLimit {
		s.history = s.history[:models.SyncHistoryLimit]
	}
}

// remoteFieldsTouchedBy narrows the remote field set to the keys the local
// delta touches, so the conflict UI shows a focused diff. A delete carries
// no payload; the full remote state is the diff then.
func remoteFieldsTouchedBy(local models.FieldChanges, remote models.FieldChanges) models.FieldChanges {
	if len(local) == 0 {
		return remote
	}

	touched := make(models.FieldChanges, len(local))
	for key := range local {
		if value, ok := remote[key]; ok {
			touched[key] = value
		}
	}
	return touched
}
