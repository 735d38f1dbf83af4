package models

import (
	"time"

	id "arkhiv/pkg/domain"
	dErrors "arkhiv/pkg/domain-errors"
)

// RequestType is what the researcher is asking for: reading-room viewing of
// the original, or a digitized scan.
type RequestType string

const (
	TypeView RequestType = "view"
	TypeScan RequestType = "scan"
)

var validTypes = map[RequestType]bool{
	TypeView: true,
	TypeScan: true,
}

// ParseRequestType constructs a RequestType from external input.
func ParseRequestType(s string) (RequestType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "request type is required")
	}
	t := RequestType(s)
	if !validTypes[t] {
		return "", dErrors.New(dErrors.CodeValidation, "request type must be view or scan")
	}
	return t, nil
}

func (t RequestType) IsValid() bool { return validTypes[t] }
func (t RequestType) String() string { return string(t) }

// RequestStatus is the lifecycle state of an access request.
type RequestStatus string

const (
	StatusNew        RequestStatus = "new"
	StatusInProgress RequestStatus = "in_progress"
	StatusApproved   RequestStatus = "approved"
	StatusRejected   RequestStatus = "rejected"
	StatusCompleted  RequestStatus = "completed"
)

var validStatuses = map[RequestStatus]bool{
	StatusNew:        true,
	StatusInProgress: true,
	StatusApproved:   true,
	StatusRejected:   true,
	StatusCompleted:  true,
}

// legalTransitions is the single source of truth for the state machine.
// Rejected and completed have no outgoing edges.
var legalTransitions = map[RequestStatus]map[RequestStatus]bool{
	StatusNew: {
		StatusInProgress: true,
		StatusApproved:   true,
		StatusRejected:   true,
	},
	StatusInProgress: {
		StatusApproved: true,
		StatusRejected: true,
	},
	StatusApproved: {
		StatusCompleted: true,
	},
}

// ParseRequestStatus constructs a RequestStatus from external input.
func ParseRequestStatus(s string) (RequestStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeValidation, "status is required")
	}
	st := RequestStatus(s)
	if !validStatuses[st] {
		return "", dErrors.New(dErrors.CodeValidation, "unknown status")
	}
	return st, nil
}

// CanTransitionTo reports whether the edge from s to next is legal.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return legalTransitions[s][next]
}

// IsTerminal reports whether the status has no outgoing edges.
func (s RequestStatus) IsTerminal() bool {
	return len(legalTransitions[s]) == 0 && validStatuses[s]
}

// IsDecision reports whether the status records an archivist's decision.
// Only decisions stamp ProcessedByID/ProcessedAt.
func (s RequestStatus) IsDecision() bool {
	return s == StatusApproved || s == StatusRejected
}

func (s RequestStatus) String() string { return string(s) }

// Request is one researcher's ask against one archival unit.
//
// Invariants:
//   - UserID and Type are fixed at creation and never change
//   - Status only moves along legalTransitions edges; every request starts new
//   - RejectionReason is non-empty exactly when Status is rejected
//   - ProcessedByID/ProcessedAt are stamped once, by the approve or reject
//     decision, and never overwritten by a later completed transition
//
// Mutate only through CanTransition/ApplyTransition inside the store's
// Execute callback so the read-validate-write sequence holds the entity lock.
type Request struct {
	ID              id.RequestID  `json:"id"`
	RecordID        id.RecordID   `json:"record_id"`
	UserID          id.UserID     `json:"user_id"`
	Type            RequestType   `json:"type"`
	Status          RequestStatus `json:"status"`
	RejectionReason string        `json:"rejection_reason,omitempty"`
	ProcessedByID   id.UserID     `json:"processed_by_id,omitempty"`
	ProcessedAt     *time.Time    `json:"processed_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewRequest constructs a request in the sole initial state. Referential
// validity of recordID and userID is the caller's concern.
func NewRequest(recordID id.RecordID, userID id.UserID, typ RequestType, now time.Time) (*Request, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "record id is required")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if !typ.IsValid() {
		return nil, dErrors.New(dErrors.CodeValidation, "request type must be view or scan")
	}
	return &Request{
		ID:        id.NewRequestID(),
		RecordID:  recordID,
		UserID:    userID,
		Type:      typ,
		Status:    StatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanTransition checks that moving to next with the given rejection reason
// is legal from the current state. Use with ApplyTransition in Execute
// callbacks so validation and mutation happen under the same lock.
//
// Errors: CodeInvalidTransition for an illegal edge, CodeValidation for a
// reject without a reason or a reason on a non-reject.
func (r *Request) CanTransition(next RequestStatus, rejectionReason string) error {
	if !validStatuses[next] {
		return dErrors.New(dErrors.CodeValidation, "unknown status")
	}
	if !r.Status.CanTransitionTo(next) {
		return dErrors.Newf(dErrors.CodeInvalidTransition,
			"cannot transition from %s to %s", r.Status, next)
	}
	if next == StatusRejected && rejectionReason == "" {
		return dErrors.New(dErrors.CodeValidation, "rejection reason required")
	}
	if next != StatusRejected && rejectionReason != "" {
		return dErrors.New(dErrors.CodeValidation, "rejection reason only applies when rejecting")
	}
	return nil
}

// ApplyTransition moves the request to next. The decisive transitions
// (approved, rejected) stamp who processed the request and when; the
// completed transition deliberately leaves those fields as recorded at
// approval time. Call CanTransition first.
func (r *Request) ApplyTransition(next RequestStatus, rejectionReason string, actor id.UserID, now time.Time) {
	r.Status = next
	if next == StatusRejected {
		r.RejectionReason = rejectionReason
	}
	if next.IsDecision() {
		r.ProcessedByID = actor
		processedAt := now
		r.ProcessedAt = &processedAt
	}
	r.UpdatedAt = now
}

// Validate checks the cross-field invariants that must hold after any
// successful update. Stores call it before persisting so a partial write can
// never violate the rejection-reason pairing.
func (r *Request) Validate() error {
	if !validStatuses[r.Status] {
		return dErrors.New(dErrors.CodeInvariantViolation, "unknown status")
	}
	if (r.Status == StatusRejected) != (r.RejectionReason != "") {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"rejection reason must be present exactly when status is rejected")
	}
	if (r.ProcessedAt != nil) != (!r.ProcessedByID.IsNil()) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			"processed_by and processed_at must be set together")
	}
	return nil
}
