package handler

import (
	"arkhiv/internal/request/models"
	id "arkhiv/pkg/domain"
	dErrors "arkhiv/pkg/domain-errors"
)

const maxRejectionReasonLength = 2000

// CreateRequestBody is the POST /requests payload. The requesting user is
// always the authenticated principal; clients cannot file requests on
// another researcher's behalf.
type CreateRequestBody struct {
	RecordID string `json:"record_id"`
	Type     string `json:"type"`
}

// Validate normalizes and checks the payload, returning the parsed fields.
func (b *CreateRequestBody) Validate() (id.RecordID, models.RequestType, error) {
	recordID, err := id.ParseRecordID(b.RecordID)
	if err != nil {
		return id.RecordID{}, "", dErrors.New(dErrors.CodeValidation, "record_id must be a valid UUID")
	}
	typ, err := models.ParseRequestType(b.Type)
	if err != nil {
		return id.RecordID{}, "", err
	}
	return recordID, typ, nil
}

// UpdateRequestBody is the PATCH /requests/{id} payload.
type UpdateRequestBody struct {
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// Validate checks the payload shape. Whether the transition itself is legal
// is the lifecycle engine's call, not the transport's.
func (b *UpdateRequestBody) Validate() (models.RequestStatus, error) {
	status, err := models.ParseRequestStatus(b.Status)
	if err != nil {
		return "", err
	}
	if len(b.RejectionReason) > maxRejectionReasonLength {
		return "", dErrors.New(dErrors.CodeValidation, "rejection reason exceeds max length")
	}
	return status, nil
}
