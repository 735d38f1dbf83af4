package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"arkhiv/internal/audit"
	requestmetrics "arkhiv/internal/request/metrics"
	"arkhiv/internal/request/models"
	id "arkhiv/pkg/domain"
	dErrors "arkhiv/pkg/domain-errors"
	"arkhiv/pkg/platform/sentinel"
	"arkhiv/pkg/requestcontext"
)

// RequestStore is the durable repository of access requests.
//
// Execute is the only mutation path for existing entities: it loads the
// request, holds the entity lock (mutex or SELECT ... FOR UPDATE) across the
// validate and mutate callbacks, and persists the result atomically. Two
// racing transitions on the same id therefore serialize; the loser
// re-validates against the winner's state and fails cleanly instead of
// clobbering it.
type RequestStore interface {
	Create(ctx context.Context, request *models.Request) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Request, error)
	ListAll(ctx context.Context) ([]*models.Request, error)
	ExistsApproved(ctx context.Context, recordID id.RecordID, userID id.UserID) (bool, error)
	Execute(ctx context.Context, requestID id.RequestID,
		validate func(*models.Request) error,
		mutate func(*models.Request)) (*models.Request, error)
	Delete(ctx context.Context, requestID id.RequestID) error
}

// AuditPublisher records lifecycle events on the access register.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service is the request lifecycle engine. It enforces the state machine and
// field invariants on every creation and transition; who may call which
// operation is the HTTP layer's role guard plus the ownership checks here.
type Service struct {
	requests RequestStore
	logger   *slog.Logger
	metrics  *requestmetrics.Metrics
	auditor  AuditPublisher
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *requestmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

// New constructs a Service.
func New(requests RequestStore, opts ...Option) *Service {
	s := &Service{
		requests: requests,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create registers a new access request in the sole initial state.
// Referential validity of recordID is checked by the handler against the
// record collaborator before this is called.
func (s *Service) Create(ctx context.Context, recordID id.RecordID, userID id.UserID, typ models.RequestType) (*models.Request, error) {
	request, err := models.NewRequest(recordID, userID, typ, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create request")
	}

	if s.metrics != nil {
		s.metrics.IncrementCreated()
	}
	s.emit(ctx, audit.Event{
		ActorID:       userID,
		SubjectUserID: userID,
		Action:        audit.ActionRequestCreated,
		RecordID:      recordID.String(),
		AccessRequest: request.ID.String(),
	})

	return request, nil
}

// Get loads one request. Researchers may only see their own.
func (s *Service) Get(ctx context.Context, requestID id.RequestID, principal id.Principal) (*models.Request, error) {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err)
	}
	if principal.Role == id.RoleResearcher && request.UserID != principal.ID {
		return nil, dErrors.New(dErrors.CodeForbidden, "access denied")
	}
	return request, nil
}

// List returns requests visible to the principal, newest first. Researchers
// see only their own; staff see everything.
func (s *Service) List(ctx context.Context, principal id.Principal) ([]*models.Request, error) {
	var (
		requests []*models.Request
		err      error
	)
	if principal.Role == id.RoleResearcher {
		requests, err = s.requests.ListByUser(ctx, principal.ID)
	} else {
		requests, err = s.requests.ListAll(ctx)
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list requests")
	}
	return requests, nil
}

// UpdateStatus drives one state machine transition.
//
// The read-validate-write sequence runs inside the store's Execute callback
// so concurrent transitions on the same request serialize. The decisive
// transitions (approved, rejected) stamp the acting principal; the completed
// transition leaves the stamp from approval time untouched.
//
// Errors: CodeNotFound, CodeInvalidTransition, CodeValidation.
func (s *Service) UpdateStatus(ctx context.Context, requestID id.RequestID, newStatus models.RequestStatus, rejectionReason string, principal id.Principal) (*models.Request, error) {
	now := requestcontext.Now(ctx)
	if s.metrics != nil {
		defer s.metrics.ObserveTransition(time.Now())
	}

	request, err := s.requests.Execute(ctx, requestID,
		func(r *models.Request) error {
			return r.CanTransition(newStatus, rejectionReason)
		},
		func(r *models.Request) {
			r.ApplyTransition(newStatus, rejectionReason, principal.ID, now)
		},
	)
	if err != nil {
		wrapped := wrapRequestErr(err)
		if s.metrics != nil {
			s.metrics.IncrementTransitionFailure(string(dErrors.CodeOf(wrapped)))
		}
		return nil, wrapped
	}

	if s.metrics != nil {
		s.metrics.IncrementTransition(string(newStatus))
	}
	s.emit(ctx, audit.Event{
		ActorID:       principal.ID,
		SubjectUserID: request.UserID,
		Action:        transitionAction(newStatus),
		RecordID:      request.RecordID.String(),
		AccessRequest: request.ID.String(),
		Reason:        rejectionReason,
	})

	return request, nil
}

// Delete removes a request regardless of state. No cross-entity side
// effects: approvals already acted on remain in the audit register.
func (s *Service) Delete(ctx context.Context, requestID id.RequestID, principal id.Principal) error {
	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return wrapRequestErr(err)
	}
	if err := s.requests.Delete(ctx, requestID); err != nil {
		return wrapRequestErr(err)
	}

	s.emit(ctx, audit.Event{
		ActorID:       principal.ID,
		SubjectUserID: request.UserID,
		Action:        audit.ActionRequestDeleted,
		RecordID:      request.RecordID.String(),
		AccessRequest: request.ID.String(),
	})
	return nil
}

// HasApprovedRequest reports whether the user currently holds an approved
// request for the record. This is the existence query behind the download
// gate; it matches status approved only, since a completed request has closed
// its loan and no longer grants access.
func (s *Service) HasApprovedRequest(ctx context.Context, recordID id.RecordID, userID id.UserID) (bool, error) {
	ok, err := s.requests.ExistsApproved(ctx, recordID, userID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check approvals")
	}
	return ok, nil
}

func transitionAction(status models.RequestStatus) audit.Action {
	switch status {
	case models.StatusInProgress:
		return audit.ActionRequestInProcess
	case models.StatusApproved:
		return audit.ActionRequestApproved
	case models.StatusRejected:
		return audit.ActionRequestRejected
	case models.StatusCompleted:
		return audit.ActionRequestCompleted
	}
	return ""
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.auditor == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.UserAgent = requestcontext.UserAgent(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", event.Action,
			"error", err,
		)
	}
}

// wrapRequestErr translates store sentinels into coded domain errors,
// passing already-coded errors through unchanged.
func wrapRequestErr(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "request not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "request store failure")
}
