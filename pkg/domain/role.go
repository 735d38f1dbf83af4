package domain

import dErrors "arkhiv/pkg/domain-errors"

// Role is the closed set of principal roles in the archive.
// Invariant: the value must be one of the supported roles.
//
// Usage: construct via ParseRole at trust boundaries (JWT claims, seeds) to
// enforce the allowlist; direct casting bypasses validation.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleArchivist  Role = "archivist"
	RoleResearcher Role = "researcher"
)

// validRoles is the single source of truth for supported roles.
var validRoles = map[Role]bool{
	RoleAdmin:      true,
	RoleArchivist:  true,
	RoleResearcher: true,
}

// ParseRole constructs a Role from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !r.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	return validRoles[r]
}

// IsStaff reports whether the role belongs to archive staff. Staff manage
// holdings and process requests; their file access is not gated by request
// state.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleArchivist
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Principal is an authenticated actor: a stable identifier plus a role.
// Authentication itself happens outside this service; the JWT middleware
// reconstructs the principal from validated claims.
type Principal struct {
	ID   UserID
	Role Role
}

// IsZero reports whether the principal is absent (unauthenticated context).
func (p Principal) IsZero() bool {
	return p.ID.IsNil() && p.Role == ""
}
