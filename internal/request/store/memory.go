package store

import (
	"context"
	"sort"
	"sync"

	"arkhiv/internal/request/models"
	id "arkhiv/pkg/domain"
	"arkhiv/pkg/platform/sentinel"
)

// InMemory implements the request store for development and tests.
//
// A single mutex serializes Execute calls, which satisfies the per-entity
// atomicity contract trivially: the read-validate-write sequence for any id
// cannot interleave with another writer. Reads return clones so callers can
// never mutate stored state outside Execute.
type InMemory struct {
	mu       sync.RWMutex
	requests map[id.RequestID]*models.Request
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[id.RequestID]*models.Request)}
}

func (s *InMemory) Create(_ context.Context, request *models.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.requests[request.ID]; exists {
		return sentinel.ErrConflict
	}
	s.requests[request.ID] = clone(request)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.RequestID) (*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	request, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(request), nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Request
	for _, r := range s.requests {
		if r.UserID == userID {
			out = append(out, clone(r))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Request, 0, len(s.requests))
	for _, r := range s.requests {
		out = append(out, clone(r))
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *InMemory) ExistsApproved(_ context.Context, recordID id.RecordID, userID id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, r := range s.requests {
		if r.RecordID == recordID && r.UserID == userID && r.Status == models.StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

// Execute runs validate then mutate on the stored entity while holding the
// write lock. The mutation is applied to a working copy and re-checked
// against the entity invariants before it replaces the stored value, so a
// buggy mutate callback cannot persist a half-updated request.
func (s *InMemory) Execute(_ context.Context, requestID id.RequestID,
	validate func(*models.Request) error,
	mutate func(*models.Request)) (*models.Request, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}

	working := clone(stored)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)
	if err := working.Validate(); err != nil {
		return nil, err
	}

	s.requests[requestID] = working
	return clone(working), nil
}

func (s *InMemory) Delete(_ context.Context, requestID id.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[requestID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.requests, requestID)
	return nil
}

func clone(r *models.Request) *models.Request {
	c := *r
	if r.ProcessedAt != nil {
		t := *r.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}

func sortNewestFirst(requests []*models.Request) {
	sort.SliceStable(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
}
