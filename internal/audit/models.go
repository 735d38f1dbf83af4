package audit

import (
	"time"

	id "arkhiv/pkg/domain"
)

// Event is emitted from domain logic to capture key actions on the access
// register. Keep it transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	// ActorID is the principal performing the action.
	ActorID id.UserID
	// SubjectUserID is the researcher the action concerns, when different
	// from the actor (an archivist approving a researcher's request).
	SubjectUserID id.UserID
	Action        Action
	RecordID      string
	AccessRequest string
	Decision      string
	Reason        string
	// RequestID is the HTTP correlation ID, UserAgent/ClientIP come from the
	// metadata middleware. Together they reconstruct the register line the
	// paper reading room would have kept.
	RequestID string
	UserAgent string
	ClientIP  string
}

// Action identifies what happened.
type Action string

const (
	ActionRequestCreated   Action = "request_created"
	ActionRequestInProcess Action = "request_taken_in_process"
	ActionRequestApproved  Action = "request_approved"
	ActionRequestRejected  Action = "request_rejected"
	ActionRequestCompleted Action = "request_completed"
	ActionRequestDeleted   Action = "request_deleted"
	ActionDownloadAllowed  Action = "download_allowed"
	ActionDownloadDenied   Action = "download_denied"
)
