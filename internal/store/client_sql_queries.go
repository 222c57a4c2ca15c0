package store

// Queries against the client's local mutation queue (SQLite).
const (
	insertMutationQuery = `
INSERT INTO mutations (id, entity_type, entity_id, operation, payload, base_version, local_ts, status, attempt_count, next_attempt_at)
VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', 0, ?);`

	getMutationByIDQuery = `
SELECT seq, id, entity_type, entity_id, operation, payload, base_version, local_ts, status, attempt_count, last_error, next_attempt_at
FROM mutations
WHERE id = ?;`

	// nextBatchQuery selects the mutations eligible for the next sync pass.
	// A mutation is eligible when it is pending, its backoff window has
	// elapsed, it is the oldest unsettled mutation for its entity, and no
	// mutation for the same entity is parked in conflicted state.
	nextBatchQuery = `
SELECT seq, id, entity_type, entity_id, operation, payload, base_version, local_ts, status, attempt_count, last_error, next_attempt_at
FROM mutations m
WHERE m.status = 'pending'
  AND m.next_attempt_at <= ?
  AND m.seq = (
      SELECT MIN(seq) FROM mutations
      WHERE entity_type = m.entity_type
        AND entity_id = m.entity_id
        AND status IN ('pending', 'in_flight')
  )
  AND NOT EXISTS (
      SELECT 1 FROM mutations
      WHERE entity_type = m.entity_type
        AND entity_id = m.entity_id
        AND status = 'conflicted'
  )
ORDER BY m.seq
LIMIT ?;`

	markInFlightQuery = `
UPDATE mutations
SET status = 'in_flight'
WHERE id = ? AND status = 'pending';`

	markAppliedQuery = `
UPDATE mutations
SET status = 'applied', last_error = NULL
WHERE id = ? AND status IN ('pending', 'in_flight');`

	markFailedQuery = `
UPDATE mutations
SET status = 'failed', last_error = ?
WHERE id = ? AND status IN ('pending', 'in_flight');`

	markConflictedQuery = `
UPDATE mutations
SET status = 'conflicted', last_error = ?
WHERE id = ? AND status IN ('pending', 'in_flight');`

	scheduleRetryQuery = `
UPDATE mutations
SET status = 'pending', attempt_count = attempt_count + 1, last_error = ?, next_attempt_at = ?
WHERE id = ? AND status IN ('pending', 'in_flight');`

	retryFailedQuery = `
UPDATE mutations
SET status = 'pending', attempt_count = 0, last_error = NULL, next_attempt_at = ?
WHERE status = 'failed';`

	resetInFlightMutationsQuery = `
UPDATE mutations
SET status = 'pending'
WHERE status = 'in_flight';`

	listMutationsByStatusQuery = `
SELECT seq, id, entity_type, entity_id, operation, payload, base_version, local_ts, status, attempt_count, last_error, next_attempt_at
FROM mutations
WHERE status = ?
ORDER BY seq;`

	countMutationsByStatusQuery = `
SELECT status, COUNT(*)
FROM mutations
GROUP BY status;`

	countPendingByEntityTypeQuery = `
SELECT entity_type, COUNT(*)
FROM mutations
WHERE status = 'pending'
GROUP BY entity_type;`

	discardConflictedQuery = `
DELETE FROM mutations
WHERE id = ? AND status = 'conflicted';`

	deleteAppliedBeforeQuery = `
DELETE FROM mutations
WHERE status = 'applied' AND local_ts < ?;`
)
