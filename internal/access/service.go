package access

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	accessmetrics "arkhiv/internal/access/metrics"
	"arkhiv/internal/audit"
	recordmodels "arkhiv/internal/record/models"
	id "arkhiv/pkg/domain"
	"arkhiv/pkg/requestcontext"
)

// RecordGetter supplies the archival unit under evaluation.
type RecordGetter interface {
	GetRecord(ctx context.Context, recordID id.RecordID) (*recordmodels.Record, error)
}

// ApprovalChecker answers the purpose-built existence query: does the user
// currently hold an approved request for the record?
type ApprovalChecker interface {
	HasApprovedRequest(ctx context.Context, recordID id.RecordID, userID id.UserID) (bool, error)
}

// AuditPublisher records download decisions on the access register.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service runs the authorization gate: it gathers the facts (record, role,
// approval existence) and applies Evaluate. The decision itself stays a pure
// function; this layer owns only I/O, tracing, and the audit trail.
type Service struct {
	records   RecordGetter
	approvals ApprovalChecker
	logger    *slog.Logger
	metrics   *accessmetrics.Metrics
	auditor   AuditPublisher
	tracer    trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *accessmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditor = publisher }
}

// NewService constructs the gate service.
func NewService(records RecordGetter, approvals ApprovalChecker, opts ...Option) *Service {
	s := &Service{
		records:   records,
		approvals: approvals,
		logger:    slog.Default(),
		tracer:    otel.Tracer("arkhiv/access"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AuthorizeDownload decides whether the principal may download the file
// attached to the record, returning the record alongside so the transport
// layer can stream without a second lookup.
//
// Errors are system failures (record missing, store down); a Deny is a
// successful evaluation with a negative answer.
func (s *Service) AuthorizeDownload(ctx context.Context, recordID id.RecordID, principal id.Principal) (Decision, *recordmodels.Record, error) {
	ctx, span := s.tracer.Start(ctx, "access.AuthorizeDownload",
		trace.WithAttributes(
			attribute.String("record.id", recordID.String()),
			attribute.String("principal.role", principal.Role.String()),
		),
	)
	defer span.End()

	start := time.Now()
	if s.metrics != nil {
		defer s.metrics.ObserveEvaluate(start)
	}

	record, hasApproved, err := s.gatherFacts(ctx, recordID, principal)
	if err != nil {
		span.RecordError(err)
		return Decision{}, nil, err
	}

	decision := Evaluate(record.HasFile(), principal.Role, hasApproved)
	span.SetAttributes(
		attribute.String("decision.outcome", decision.Outcome()),
		attribute.String("decision.reason", string(decision.Reason)),
	)

	if s.metrics != nil {
		s.metrics.IncrementDecision(decision.Outcome(), string(decision.Reason))
	}
	s.emit(ctx, principal, record, decision)

	return decision, record, nil
}

// gatherFacts fetches the record and, for researchers, the approval
// existence concurrently with shared context cancellation. Staff never need
// the approval probe, so it is skipped for them.
func (s *Service) gatherFacts(ctx context.Context, recordID id.RecordID, principal id.Principal) (*recordmodels.Record, bool, error) {
	var (
		record      *recordmodels.Record
		hasApproved bool
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := s.records.GetRecord(ctx, recordID)
		if err != nil {
			return err
		}
		record = r
		return nil
	})
	if principal.Role == id.RoleResearcher {
		g.Go(func() error {
			ok, err := s.approvals.HasApprovedRequest(ctx, recordID, principal.ID)
			if err != nil {
				return err
			}
			hasApproved = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}
	return record, hasApproved, nil
}

func (s *Service) emit(ctx context.Context, principal id.Principal, record *recordmodels.Record, decision Decision) {
	if s.auditor == nil {
		return
	}
	action := audit.ActionDownloadAllowed
	if !decision.Allowed {
		action = audit.ActionDownloadDenied
	}
	event := audit.Event{
		ActorID:   principal.ID,
		Action:    action,
		RecordID:  record.ID.String(),
		Decision:  decision.Outcome(),
		Reason:    string(decision.Reason),
		RequestID: requestcontext.RequestID(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
	}
	if err := s.auditor.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "audit emit failed",
			"action", action,
			"error", err,
		)
	}
}
