package service

import (
	"context"
	"errors"

	"arkhiv/internal/record/models"
	id "arkhiv/pkg/domain"
	dErrors "arkhiv/pkg/domain-errors"
	"arkhiv/pkg/platform/sentinel"
)

// RecordStore supplies archival unit read access. Create exists for seeding
// and tests; cataloguing proper happens in the holdings service.
type RecordStore interface {
	Create(ctx context.Context, record *models.Record) error
	FindByID(ctx context.Context, recordID id.RecordID) (*models.Record, error)
}

// Service is the narrow record collaborator consumed by the authorization
// gate and the request handler's referential checks.
type Service struct {
	records RecordStore
}

func New(records RecordStore) *Service {
	return &Service{records: records}
}

// GetRecord loads one archival unit.
//
// Errors: CodeNotFound when the record does not exist; CodeInternal on
// storage failure.
func (s *Service) GetRecord(ctx context.Context, recordID id.RecordID) (*models.Record, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "record id is required")
	}
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}
	return record, nil
}
