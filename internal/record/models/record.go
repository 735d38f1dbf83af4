package models

import (
	"time"

	id "arkhiv/pkg/domain"
)

// AccessLevel declares how openly an archival unit may be consulted.
type AccessLevel string

const (
	AccessLevelOpen       AccessLevel = "open"
	AccessLevelRestricted AccessLevel = "restricted"
)

// Record is the read model of an archival unit consumed by the authorization
// gate: identity, declared access level, and whether a digitized file is
// attached. Cataloguing (fonds, inventories, search) lives in the holdings
// service; this service never mutates records beyond attachment bookkeeping.
type Record struct {
	ID          id.RecordID `json:"id"`
	RefCode     string      `json:"ref_code"`
	Title       string      `json:"title"`
	AccessLevel AccessLevel `json:"access_level"`
	FileName    string      `json:"file_name,omitempty"`
	FilePath    string      `json:"-"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// HasFile reports whether a digitized file is attached.
func (r *Record) HasFile() bool {
	return r.FilePath != ""
}
