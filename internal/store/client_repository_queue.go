package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// queueRepository is the SQLite-backed implementation of [QueueRepository].
// It persists the client's pending mutations in the "mutations" table so the
// queue survives process restarts.
//
// All timestamps are normalised to UTC before they hit the database. SQLite
// compares TIMESTAMP columns lexicographically, so mixed offsets would break
// the backoff eligibility check.
type queueRepository struct {
	logger *logger.Logger
	db     *DB
}

// NewQueueRepository constructs a [QueueRepository] backed by the provided
// database connection and logger.
func NewQueueRepository(db *DB, logger *logger.Logger) QueueRepository {
	logger.Debug().Msg("creating mutation queue repository")
	return &queueRepository{
		db:     db,
		logger: logger,
	}
}

// Insert appends a mutation to the tail of the queue and returns it with the
// database-assigned sequence number filled in.
func (r *queueRepository) Insert(ctx context.Context, mutation models.QueuedMutation) (models.QueuedMutation, error) {
	log := logger.FromContext(ctx)

	payload, err := json.Marshal(mutation.Payload)
	if err != nil {
		log.Err(err).Str("func", "*queueRepository.Insert").Msg("error: marshalling payload")
		return models.QueuedMutation{}, err
	}

	res, err := r.db.ExecContext(ctx, insertMutationQuery,
		mutation.ID,
		string(mutation.EntityType),
		mutation.EntityID,
		string(mutation.Operation),
		string(payload),
		mutation.BaseVersion,
		mutation.LocalTimestamp.UTC(),
		mutation.NextAttemptAt.UTC(),
	)
	if err != nil {
		log.Err(err).Str("func", "*queueRepository.Insert").Msg("error: executing insert")
		return models.QueuedMutation{}, errors.Join(ErrMutationNotSaved, err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		log.Err(err).Str("func", "*queueRepository.Insert").Msg("error: reading assigned seq")
		return models.QueuedMutation{}, errors.Join(ErrMutationNotSaved, err)
	}

	mutation.Seq = seq
	mutation.Status = models.StatusPending
	return mutation, nil
}

// GetByID returns the mutation with the given client-assigned id.
func (r *queueRepository) GetByID(ctx context.Context, mutationID string) (models.QueuedMutation, error) {
	log := logger.FromContext(ctx)

	row := r.db.QueryRowContext(ctx, getMutationByIDQuery, mutationID)
	mutation, err := scanMutation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.QueuedMutation{}, ErrMutationNotFound
		}
		log.Err(err).Str("func", "*queueRepository.GetByID").Msg("error: scanning mutation")
		return models.QueuedMutation{}, err
	}

	return mutation, nil
}

// NextBatch returns up to limit mutations eligible for syncing at the given
// instant, ordered by queue position. Eligibility is resolved entirely in
// SQL: see [nextBatchQuery].
func (r *queueRepository) NextBatch(ctx context.Context, now time.Time, limit int) ([]models.QueuedMutation, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, nextBatchQuery, now.UTC(), limit)
	if err != nil {
		log.Err(err).Str("func", "*queueRepository.NextBatch").Msg("error: executing query")
		return nil, errors.Join(ErrExecutingQuery, err)
	}
	defer rows.Close()

	var batch []models.QueuedMutation
	for rows.Next() {
		mutation, err := scanMutation(rows)
		if err != nil {
			log.Err(err).Str("func", "*queueRepository.NextBatch").Msg("error: scanning row")
			return nil, errors.Join(ErrScanningRow, err)
		}
		batch = append(batch, mutation)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).Str("func", "*queueRepository.NextBatch").Msg("error: iterating rows")
		return nil, errors.Join(ErrScanningRows, err)
	}

	return batch, nil
}

// MarkInFlight moves a pending mutation to in_flight. Returns false when the
// mutation was not in pending state, which callers treat as "someone else
// settled it first".
func (r *queueRepository) MarkInFlight(ctx context.Context, mutationID string) (bool, error) {
	return r.exec(ctx, "MarkInFlight", markInFlightQuery, mutationID)
}

// MarkApplied settles a mutation as successfully synced. Calling it on an
// already settled mutation is a no-op.
func (r *queueRepository) MarkApplied(ctx context.Context, mutationID string) (bool, error) {
	return r.exec(ctx, "MarkApplied", markAppliedQuery, mutationID)
}

// MarkFailed settles a mutation as permanently failed, recording the reason.
// Calling it on an already settled mutation is a no-op.
func (r *queueRepository) MarkFailed(ctx context.Context, mutationID string, reason string) (bool, error) {
	return r.exec(ctx, "MarkFailed", markFailedQuery, reason, mutationID)
}

// MarkConflicted parks a mutation in conflicted state, recording the reason.
// While a conflicted mutation exists for an entity, no further mutations for
// that entity are handed out by [queueRepository.NextBatch].
func (r *queueRepository) MarkConflicted(ctx context.Context, mutationID string, reason string) (bool, error) {
	return r.exec(ctx, "MarkConflicted", markConflictedQuery, reason, mutationID)
}

// ScheduleRetry returns a mutation to pending state with an incremented
// attempt counter and the given earliest next attempt time.
func (r *queueRepository) ScheduleRetry(ctx context.Context, mutationID string, reason string, nextAttemptAt time.Time) (bool, error) {
	return r.exec(ctx, "ScheduleRetry", scheduleRetryQuery, reason, nextAttemptAt.UTC(), mutationID)
}

// DiscardConflicted removes a conflicted mutation from the queue, lifting
// the sync block on its entity. Only conflicted mutations can be discarded;
// any other status reports false.
func (r *queueRepository) DiscardConflicted(ctx context.Context, mutationID string) (bool, error) {
	return r.exec(ctx, "DiscardConflicted", discardConflictedQuery, mutationID)
}

// RetryFailed returns every failed mutation to pending state with a reset
// attempt counter, making them immediately eligible. It reports how many
// mutations were revived.
func (r *queueRepository) RetryFailed(ctx context.Context, now time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, retryFailedQuery, now.UTC())
	if err != nil {
		log.Err(err).Str("func", "*queueRepository.RetryFailed").Msg("error: executing update")
		return 0, errors.Join(ErrExecutingStatement, err)
	}

	return res.RowsAffected()
}

// ListByStatus returns every mutation in the given status, ordered by queue
// position.
func (r *queueRepository) ListByStatus(ctx context.Context, status models.MutationStatus) ([]models.QueuedMutation, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, listMutationsByStatusQuery, string(status))
	if err != nil {
		log.Err(err).Str("func", "*queueRepository.ListByStatus").Msg("error: executing query")
		return nil, errors.Join(ErrExecutingQuery, err)
	}
	defer rows.Close()

	var mutations []models.QueuedMutation
	for rows.Next() {
		mutation, err := scanMutation(rows)
		if err != nil {
			log.Err(err).Str("func", "*queueRepository.ListByStatus").Msg("error: scanning row")
			return nil, errors.Join(ErrScanningRow, err)
		}
		mutations = append(mutations, mutation)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).Str("func", "*queueRepository.ListByStatus").Msg("error: iterating rows")
		return nil, errors.Join(ErrScanningRows, err)
	}

	return mutations, nil
}

// CountsByStatus returns the number of mutations in each status. Statuses
// with no mutations are absent from the map.
func (r *queueRepository) CountsByStatus(ctx context.Context) (map[models.MutationStatus]int, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, countMutationsByStatusQuery)
	if err != nil {
		log.Err(err).Str("func", "*queueRepository.CountsByStatus").Msg("error: executing query")
		return nil, errors.Join(ErrExecutingQuery, err)
	}
	defer rows.Close()

	counts := make(map[models.MutationStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			log.Err(err).Str("func", "*queueRepository.CountsByStatus").Msg("error: scanning row")
			return nil, errors.Join(ErrScanningRow, err)
		}
		counts[models.MutationStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		log.Err(err).Str("func", "*queueRepository.CountsByStatus").Msg("error: iterating rows")
		return nil, errors.Join(ErrScanningRows, err)
	}

	return counts, nil
}

// PendingByType returns the number of pending mutations per entity type.
func (r *queueRepository) PendingByType(ctx context.Context) (map[models.EntityType]int, error) {
	log := logger.FromContext(ctx)

	rows, err := r.db.QueryContext(ctx, countPendingByEntityTypeQuery)
	if err != nil {
		log.Err(err).Str("func", "*queueRepository.PendingByType").Msg("error: executing query")
		return nil, errors.Join(ErrExecutingQuery, err)
	}
	defer rows.Close()

	counts := make(map[models.EntityType]int)
	for rows.Next() {
		var entityType string
		var count int
		if err := rows.Scan(&entityType, &count); err != nil {
			log.Err(err).Str("func", "*queueRepository.PendingByType").Msg("error: scanning row")
			return nil, errors.Join(ErrScanningRow, err)
		}
		counts[models.EntityType(entityType)] = count
	}
	if err := rows.Err(); err != nil {
		log.Err(err).Str("func", "*queueRepository.PendingByType").Msg("error: iterating rows")
		return nil, errors.Join(ErrScanningRows, err)
	}

	return counts, nil
}

// PurgeApplied deletes applied mutations older than the given cutoff and
// reports how many were removed. Applied mutations are kept around for a
// while for diagnostics, not forever.
func (r *queueRepository) PurgeApplied(ctx context.Context, before time.Time) (int64, error) {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, deleteAppliedBeforeQuery, before.UTC())
	if err != nil {
		log.Err(err).Str("func", "*queueRepository.PurgeApplied").Msg("error: executing delete")
		return 0, errors.Join(ErrExecutingStatement, err)
	}

	return res.RowsAffected()
}

// exec runs a single-row status transition and reports whether a row changed.
func (r *queueRepository) exec(ctx context.Context, method string, query string, args ...any) (bool, error) {
	log := logger.FromContext(ctx)

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*queueRepository."+method).Msg("error: executing update")
		return false, errors.Join(ErrExecutingStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		log.Err(err).Str("func", "*queueRepository."+method).Msg("error: reading rows affected")
		return false, err
	}

	return affected > 0, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanMutation(row rowScanner) (models.QueuedMutation, error) {
	var (
		mutation   models.QueuedMutation
		entityType string
		operation  string
		payload    string
		status     string
	)

	err := row.Scan(
		&mutation.Seq,
		&mutation.ID,
		&entityType,
		&mutation.EntityID,
		&operation,
		&payload,
		&mutation.BaseVersion,
		&mutation.LocalTimestamp,
		&status,
		&mutation.AttemptCount,
		&mutation.LastError,
		&mutation.NextAttemptAt,
	)
	if err != nil {
		return models.QueuedMutation{}, err
	}

	mutation.EntityType = models.EntityType(entityType)
	mutation.Operation = models.Operation(operation)
	mutation.Status = models.MutationStatus(status)

	if err := json.Unmarshal([]byte(payload), &mutation.Payload); err != nil {
		return models.QueuedMutation{}, err
	}

	return mutation, nil
}
