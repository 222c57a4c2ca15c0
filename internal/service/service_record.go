package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Presidentty1/nestling-care-log-sub003/internal/logger"
	"github.com/Presidentty1/nestling-care-log-sub003/internal/store"
	"github.com/Presidentty1/nestling-care-log-sub003/models"
)

// recordService is the concrete implementation of [RecordService]. It turns
// repository outcomes into per-mutation apply results so a single stale
// mutation never sinks the rest of its batch.
type recordService struct {
	recordRepository store.RecordRepository

	logger *logger.Logger
}

// NewRecordService constructs a [RecordService] backed by the given record
// repository.
func NewRecordService(recordRepository store.RecordRepository, logger *logger.Logger) RecordService {
	return &recordService{
		recordRepository: recordRepository,
		logger:           logger,
	}
}

// ApplyBatch implements [RecordService]. Mutations are applied one at a
// time, in request order, so the client's FIFO-per-entity guarantee carries
// through to the record store.
//
// Outcome mapping:
//   - repository success → applied result with the new version.
//   - [store.ErrVersionConflict] / [store.ErrRecordAlreadyExists] →
//     conflict result carrying the current remote record.
//   - [store.ErrRecordNotFound] and validation failures → error result.
//   - Any other repository error aborts the batch; the client retries it.
func (s *recordService) ApplyBatch(ctx context.Context, userID int64, device string, req models.ApplyRequest) (models.ApplyResponse, error) {
	log := logger.FromContext(ctx)

	results := make([]models.ApplyResult, 0, len(req.Mutations))
	for _, mutation := range req.Mutations {
		result, err := s.applyOne(ctx, userID, device, mutation)
		if err != nil {
			log.Err(err).
				Str("func", "*recordService.ApplyBatch").
				Str("mutation_id", mutation.ID).
				Msg("batch apply aborted")
			return models.ApplyResponse{}, fmt.Errorf("apply mutation %s: %w", mutation.ID, err)
		}
		results = append(results, result)
	}

	return models.ApplyResponse{Results: results, Length: len(results)}, nil
}

func (s *recordService) applyOne(ctx context.Context, userID int64, device string, mutation models.QueuedMutation) (models.ApplyResult, error) {
	if err := validateApplyMutation(mutation); err != nil {
		return models.ApplyResult{
			MutationID: mutation.ID,
			Status:     models.ApplyError,
			Error:      err.Error(),
		}, nil
	}

	applied, err := s.recordRepository.Apply(ctx, userID, device, mutation)
	switch {
	case err == nil:
		return models.ApplyResult{
			MutationID: mutation.ID,
			Status:     models.ApplyOK,
			NewVersion: applied.Version,
		}, nil

	case errors.Is(err, store.ErrVersionConflict), errors.Is(err, store.ErrRecordAlreadyExists):
		remote := applied
		return models.ApplyResult{
			MutationID: mutation.ID,
			Status:     models.ApplyConflict,
			Remote:     &remote,
		}, nil

	case errors.Is(err, store.ErrRecordNotFound):
		return models.ApplyResult{
			MutationID: mutation.ID,
			Status:     models.ApplyError,
			Error:      "record does not exist",
		}, nil

	default:
		return models.ApplyResult{}, err
	}
}

// GetRecord implements [RecordService].
func (s *recordService) GetRecord(ctx context.Context, userID int64, entityType models.EntityType, entityID string) (models.EntityRecord, error) {
	return s.recordRepository.GetRecord(ctx, userID, entityType, entityID)
}

// ListRecords implements [RecordService].
func (s *recordService) ListRecords(ctx context.Context, userID int64, filter models.RecordFilter) ([]models.EntityRecord, error) {
	return s.recordRepository.ListRecords(ctx, userID, filter)
}

func validateApplyMutation(mutation models.QueuedMutation) error {
	if mutation.ID == "" {
		return fmt.Errorf("%w: missing mutation id", ErrInvalidMutation)
	}
	if mutation.EntityID == "" {
		return fmt.Errorf("%w: missing entity id", ErrInvalidMutation)
	}

	switch mutation.Operation {
	case models.OperationCreate, models.OperationUpdate, models.OperationDelete:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, mutation.Operation)
	}
}
