package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"arkhiv/internal/audit"
	auditmemory "arkhiv/internal/audit/store/memory"
	"arkhiv/internal/request/models"
	"arkhiv/internal/request/store"
	id "arkhiv/pkg/domain"
	dErrors "arkhiv/pkg/domain-errors"
	"arkhiv/pkg/requestcontext"
)

type RequestServiceSuite struct {
	suite.Suite
	store      *store.InMemory
	auditStore *auditmemory.InMemoryStore
	service    *Service

	researcher id.Principal
	archivist  id.Principal
	now        time.Time
	ctx        context.Context
}

func TestRequestServiceSuite(t *testing.T) {
	suite.Run(t, new(RequestServiceSuite))
}

func (s *RequestServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.auditStore = auditmemory.NewInMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(s.store,
		WithLogger(logger),
		WithAuditPublisher(audit.NewPublisher(s.auditStore)),
	)

	s.researcher = id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleResearcher}
	s.archivist = id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleArchivist}
	s.now = time.Date(2026, 4, 10, 14, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *RequestServiceSuite) createRequest() *models.Request {
	request, err := s.service.Create(s.ctx, id.RecordID(uuid.New()), s.researcher.ID, models.TypeView)
	s.Require().NoError(err)
	return request
}

func (s *RequestServiceSuite) TestCreate() {
	s.Run("new request starts in the new state with the pinned time", func() {
		request := s.createRequest()
		s.Equal(models.StatusNew, request.Status)
		s.Equal(s.now, request.CreatedAt)
		s.True(request.ProcessedByID.IsNil())
		s.Nil(request.ProcessedAt)
	})

	s.Run("invalid type surfaces as validation error", func() {
		_, err := s.service.Create(s.ctx, id.RecordID(uuid.New()), s.researcher.ID, models.RequestType("copy"))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("creation lands on the audit register", func() {
		s.auditStore.Clear()
		s.createRequest()
		events, err := s.auditStore.ListAll(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.ActionRequestCreated, events[0].Action)
	})
}

func (s *RequestServiceSuite) TestGetVisibility() {
	request := s.createRequest()

	s.Run("owner sees their request", func() {
		got, err := s.service.Get(s.ctx, request.ID, s.researcher)
		s.Require().NoError(err)
		s.Equal(request.ID, got.ID)
	})

	s.Run("another researcher is denied", func() {
		stranger := id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleResearcher}
		_, err := s.service.Get(s.ctx, request.ID, stranger)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("staff see any request", func() {
		got, err := s.service.Get(s.ctx, request.ID, s.archivist)
		s.Require().NoError(err)
		s.Equal(request.ID, got.ID)
	})

	s.Run("unknown id is not found", func() {
		_, err := s.service.Get(s.ctx, id.NewRequestID(), s.archivist)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RequestServiceSuite) TestListVisibility() {
	mine := s.createRequest()
	other, err := s.service.Create(s.ctx, id.RecordID(uuid.New()), id.UserID(uuid.New()), models.TypeScan)
	s.Require().NoError(err)

	s.Run("researcher lists only their own", func() {
		requests, err := s.service.List(s.ctx, s.researcher)
		s.Require().NoError(err)
		s.Require().Len(requests, 1)
		s.Equal(mine.ID, requests[0].ID)
	})

	s.Run("staff list everything", func() {
		requests, err := s.service.List(s.ctx, s.archivist)
		s.Require().NoError(err)
		s.Len(requests, 2)
		_ = other
	})
}

func (s *RequestServiceSuite) TestLifecycle() {
	s.Run("new to in_progress to approved to completed", func() {
		request := s.createRequest()

		inProgress, err := s.service.UpdateStatus(s.ctx, request.ID, models.StatusInProgress, "", s.archivist)
		s.Require().NoError(err)
		s.Equal(models.StatusInProgress, inProgress.Status)
		s.True(inProgress.ProcessedByID.IsNil(), "taking in process is not a decision")

		approved, err := s.service.UpdateStatus(s.ctx, request.ID, models.StatusApproved, "", s.archivist)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, approved.Status)
		s.Equal(s.archivist.ID, approved.ProcessedByID)
		s.Require().NotNil(approved.ProcessedAt)
		s.Equal(s.now, *approved.ProcessedAt)

		completed, err := s.service.UpdateStatus(s.ctx, request.ID, models.StatusCompleted, "", s.archivist)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, completed.Status)
	})

	s.Run("direct approval from new", func() {
		request := s.createRequest()
		approved, err := s.service.UpdateStatus(s.ctx, request.ID, models.StatusApproved, "", s.archivist)
		s.Require().NoError(err)
		s.Equal(models.StatusApproved, approved.Status)
	})

	s.Run("rejection carries the reason", func() {
		request := s.createRequest()
		rejected, err := s.service.UpdateStatus(s.ctx, request.ID, models.StatusRejected, "duplicate of an open request", s.archivist)
		s.Require().NoError(err)
		s.Equal(models.StatusRejected, rejected.Status)
		s.Equal("duplicate of an open request", rejected.RejectionReason)
		s.Equal(s.archivist.ID, rejected.ProcessedByID)
	})

	s.Run("rejection without reason fails validation", func() {
		request := s.createRequest()
		_, err := s.service.UpdateStatus(s.ctx, request.ID, models.StatusRejected, "", s.archivist)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		unchanged, err := s.service.Get(s.ctx, request.ID, s.archivist)
		s.Require().NoError(err)
		s.Equal(models.StatusNew, unchanged.Status)
	})

	s.Run("terminal states accept no transitions", func() {
		request := s.createRequest()
		_, err := s.service.UpdateStatus(s.ctx, request.ID, models.StatusRejected, "out of scope", s.archivist)
		s.Require().NoError(err)

		_, err = s.service.UpdateStatus(s.ctx, request.ID, models.StatusApproved, "", s.archivist)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("completed must come from approved", func() {
		request := s.createRequest()
		_, err := s.service.UpdateStatus(s.ctx, request.ID, models.StatusCompleted, "", s.archivist)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("unknown request is not found", func() {
		_, err := s.service.UpdateStatus(s.ctx, id.NewRequestID(), models.StatusApproved, "", s.archivist)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// TestCompletionKeepsDecisionStamp pins the audit trail semantics: completing
// an approved request must not overwrite who approved it or when.
func (s *RequestServiceSuite) TestCompletionKeepsDecisionStamp() {
	request := s.createRequest()

	_, err := s.service.UpdateStatus(s.ctx, request.ID, models.StatusApproved, "", s.archivist)
	s.Require().NoError(err)

	laterCtx := requestcontext.WithTime(context.Background(), s.now.Add(72*time.Hour))
	admin := id.Principal{ID: id.UserID(uuid.New()), Role: id.RoleAdmin}
	completed, err := s.service.UpdateStatus(laterCtx, request.ID, models.StatusCompleted, "", admin)
	s.Require().NoError(err)

	s.Equal(s.archivist.ID, completed.ProcessedByID)
	s.Require().NotNil(completed.ProcessedAt)
	s.Equal(s.now, *completed.ProcessedAt)
	s.Equal(s.now.Add(72*time.Hour), completed.UpdatedAt)
}

func (s *RequestServiceSuite) TestDelete() {
	request := s.createRequest()

	s.Require().NoError(s.service.Delete(s.ctx, request.ID, s.archivist))

	_, err := s.service.Get(s.ctx, request.ID, s.archivist)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	s.Run("deleting twice is not found", func() {
		err := s.service.Delete(s.ctx, request.ID, s.archivist)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *RequestServiceSuite) TestHasApprovedRequest() {
	recordID := id.RecordID(uuid.New())
	request, err := s.service.Create(s.ctx, recordID, s.researcher.ID, models.TypeView)
	s.Require().NoError(err)

	s.Run("pending request grants nothing", func() {
		ok, err := s.service.HasApprovedRequest(s.ctx, recordID, s.researcher.ID)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("approved request grants access", func() {
		_, err := s.service.UpdateStatus(s.ctx, request.ID, models.StatusApproved, "", s.archivist)
		s.Require().NoError(err)

		ok, err := s.service.HasApprovedRequest(s.ctx, recordID, s.researcher.ID)
		s.Require().NoError(err)
		s.True(ok)
	})

	s.Run("approval does not leak to another user or record", func() {
		ok, err := s.service.HasApprovedRequest(s.ctx, recordID, id.UserID(uuid.New()))
		s.Require().NoError(err)
		s.False(ok)

		ok, err = s.service.HasApprovedRequest(s.ctx, id.RecordID(uuid.New()), s.researcher.ID)
		s.Require().NoError(err)
		s.False(ok)
	})

	s.Run("completion closes the loan", func() {
		_, err := s.service.UpdateStatus(s.ctx, request.ID, models.StatusCompleted, "", s.archivist)
		s.Require().NoError(err)

		ok, err := s.service.HasApprovedRequest(s.ctx, recordID, s.researcher.ID)
		s.Require().NoError(err)
		s.False(ok)
	})
}

func (s *RequestServiceSuite) TestAuditTrail() {
	request := s.createRequest()
	s.auditStore.Clear()

	_, err := s.service.UpdateStatus(s.ctx, request.ID, models.StatusInProgress, "", s.archivist)
	s.Require().NoError(err)
	_, err = s.service.UpdateStatus(s.ctx, request.ID, models.StatusRejected, "unavailable for handling", s.archivist)
	s.Require().NoError(err)

	events, err := s.auditStore.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionRequestInProcess, events[0].Action)
	s.Equal(audit.ActionRequestRejected, events[1].Action)
	s.Equal("unavailable for handling", events[1].Reason)
	s.Equal(s.archivist.ID, events[1].ActorID)
	s.Equal(s.researcher.ID, events[1].SubjectUserID)
}
