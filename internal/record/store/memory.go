package store

import (
	"context"
	"sync"

	"arkhiv/internal/record/models"
	id "arkhiv/pkg/domain"
	"arkhiv/pkg/platform/sentinel"
)

// InMemory implements the record store for development and tests.
type InMemory struct {
	mu      sync.RWMutex
	records map[id.RecordID]*models.Record
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.RecordID]*models.Record)}
}

func (s *InMemory) Create(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[record.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *record
	s.records[record.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, recordID id.RecordID) (*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *record
	return &clone, nil
}

// SetFile attaches or detaches a file. Test and seed helper mirroring what
// the holdings service does on upload.
func (s *InMemory) SetFile(_ context.Context, recordID id.RecordID, fileName, filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.records[recordID]
	if !ok {
		return sentinel.ErrNotFound
	}
	record.FileName = fileName
	record.FilePath = filePath
	return nil
}
