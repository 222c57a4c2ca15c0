package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// recordRepository is the PostgreSQL-backed implementation of
// [RecordRepository]. It owns the optimistic-concurrency scheme: every write
// runs in a transaction that locks the target row, compares the mutation's
// base version against the stored one and either advances the record or
// reports [ErrVersionConflict] together with the current remote state.
type recordRepository struct {
	logger *logger.Logger
	db     *DB
}

// psql builds queries with PostgreSQL-style $N placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var recordColumns = []string{
	"user_id", "entity_type", "entity_id", "fields",
	"version", "deleted", "created_at", "updated_at", "updated_by",
}

// NewRecordRepository constructs a [RecordRepository] backed by the provided
// database connection and logger.
func NewRecordRepository(db *DB, logger *logger.Logger) RecordRepository {
	logger.Debug().Msg("creating record repository")
	return &recordRepository{
		db:     db,
		logger: logger,
	}
}

// Apply executes a single mutation against the caller's record set.
//
// Outcomes:
//   - success → the record as stored after the write.
//   - [ErrVersionConflict] → the mutation's base version is stale; the
//     returned record is the current remote state so the caller can hand
//     the client everything it needs to build a field-level diff.
//   - [ErrRecordAlreadyExists] → create of an entity that already exists;
//     also returns the current remote state.
//   - [ErrRecordNotFound] → update/delete of an entity the server has
//     never seen.
func (r *recordRepository) Apply(ctx context.Context, userID int64, device string, mutation models.QueuedMutation) (models.EntityRecord, error) {
	log := logger.FromContext(ctx)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		log.Err(err).Str("func", "*recordRepository.Apply").Msg("error: beginning transaction")
		return models.EntityRecord{}, errors.Join(ErrBeginningTransaction, err)
	}
	defer tx.Rollback()

	current, err := r.lockRecord(ctx, tx, userID, mutation.EntityType, mutation.EntityID)
	exists := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		log.Err(err).Str("func", "*recordRepository.Apply").Msg("error: locking record row")
		return models.EntityRecord{}, err
	}

	now := time.Now().UTC()

	var applied models.EntityRecord
	switch mutation.Operation {
	case models.OperationCreate:
		if exists {
			return current, ErrRecordAlreadyExists
		}
		applied, err = r.insert(ctx, tx, userID, device, mutation, now)

	case models.OperationUpdate:
		if !exists {
			return models.EntityRecord{}, ErrRecordNotFound
		}
		if current.Version != mutation.BaseVersion {
			return current, ErrVersionConflict
		}
		merged := overlayFields(current.Fields, mutation.Payload)
		applied, err = r.update(ctx, tx, current, merged, current.Deleted, device, now)

	case models.OperationDelete:
		if !exists {
			return models.EntityRecord{}, ErrRecordNotFound
		}
		if current.Version != mutation.BaseVersion {
			return current, ErrVersionConflict
		}
		applied, err = r.update(ctx, tx, current, current.Fields, true, device, now)

	default:
		return models.EntityRecord{}, fmt.Errorf("unknown operation %q", mutation.Operation)
	}
	if err != nil {
		log.Err(err).Str("func", "*recordRepository.Apply").Msg("error: writing record")
		return models.EntityRecord{}, err
	}

	if err := tx.Commit(); err != nil {
		log.Err(err).Str("func", "*recordRepository.Apply").Msg("error: committing transaction")
		return models.EntityRecord{}, errors.Join(ErrCommitingTransaction, err)
	}

	return applied, nil
}

// GetRecord returns one record by its composite key.
func (r *recordRepository) GetRecord(ctx context.Context, userID int64, entityType models.EntityType, entityID string) (models.EntityRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := psql.
		Select(recordColumns...).
		From(models.EntityRecord{}.TableName()).
		Where(sq.Eq{"user_id": userID, "entity_type": string(entityType), "entity_id": entityID}).
		ToSql()
	if err != nil {
		log.Err(err).Str("func", "*recordRepository.GetRecord").Msg("error: building query")
		return models.EntityRecord{}, errors.Join(ErrBuildingSQLQuery, err)
	}

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.EntityRecord{}, ErrRecordNotFound
		}
		log.Err(err).Str("func", "*recordRepository.GetRecord").Msg("error: scanning record")
		return models.EntityRecord{}, err
	}

	return record, nil
}

// ListRecords returns the caller's records, newest first. A zero-value
// filter returns everything the user owns; EntityType and Since narrow the
// result set.
func (r *recordRepository) ListRecords(ctx context.Context, userID int64, filter models.RecordFilter) ([]models.EntityRecord, error) {
	log := logger.FromContext(ctx)

	builder := psql.
		Select(recordColumns...).
		From(models.EntityRecord{}.TableName()).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("updated_at DESC")

	if filter.EntityType != "" {
		builder = builder.Where(sq.Eq{"entity_type": string(filter.EntityType)})
	}
	if !filter.Since.IsZero() {
		builder = builder.Where(sq.GtOrEq{"updated_at": filter.Since.UTC()})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		log.Err(err).Str("func", "*recordRepository.ListRecords").Msg("error: building query")
		return nil, errors.Join(ErrBuildingSQLQuery, err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "*recordRepository.ListRecords").Msg("error: executing query")
		return nil, errors.Join(ErrExecutingQuery, err)
	}
	defer rows.Close()

	var records []models.EntityRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			log.Err(err).Str("func", "*recordRepository.ListRecords").Msg("error: scanning row")
			return nil, errors.Join(ErrScanningRow, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		log.Err(err).Str("func", "*recordRepository.ListRecords").Msg("error: iterating rows")
		return nil, errors.Join(ErrScanningRows, err)
	}

	return records, nil
}

func (r *recordRepository) lockRecord(ctx context.Context, tx *sql.Tx, userID int64, entityType models.EntityType, entityID string) (models.EntityRecord, error) {
	row := tx.QueryRowContext(ctx, selectRecordForUpdate, userID, string(entityType), entityID)
	return scanRecord(row)
}

func (r *recordRepository) insert(ctx context.Context, tx *sql.Tx, userID int64, device string, mutation models.QueuedMutation, now time.Time) (models.EntityRecord, error) {
	fields, err := json.Marshal(mutation.Payload)
	if err != nil {
		return models.EntityRecord{}, err
	}

	row := tx.QueryRowContext(ctx, insertRecord, userID, string(mutation.EntityType), mutation.EntityID, fields, now, device)
	return scanRecord(row)
}

func (r *recordRepository) update(ctx context.Context, tx *sql.Tx, current models.EntityRecord, fields models.FieldChanges, deleted bool, device string, now time.Time) (models.EntityRecord, error) {
	encoded, err := json.Marshal(fields)
	if err != nil {
		return models.EntityRecord{}, err
	}

	row := tx.QueryRowContext(ctx, updateRecord, current.UserID, string(current.EntityType), current.EntityID, encoded, deleted, now, device)
	return scanRecord(row)
}

// overlayFields applies the mutation's field changes on top of the stored
// fields without touching keys the mutation does not mention.
func overlayFields(base models.FieldChanges, changes models.FieldChanges) models.FieldChanges {
	merged := make(models.FieldChanges, len(base)+len(changes))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range changes {
		merged[k] = v
	}
	return merged
}

func scanRecord(row rowScanner) (models.EntityRecord, error) {
	var (
		record     models.EntityRecord
		entityType string
		fields     []byte
	)

	err := row.Scan(
		&record.UserID,
		&entityType,
		&record.EntityID,
		&fields,
		&record.Version,
		&record.Deleted,
		&record.CreatedAt,
		&record.UpdatedAt,
		&record.UpdatedBy,
	)
	if err != nil {
		return models.EntityRecord{}, err
	}

	record.EntityType = models.EntityType(entityType)
	if err := json.Unmarshal(fields, &record.Fields); err != nil {
		return models.EntityRecord{}, err
	}

	return record, nil
}
