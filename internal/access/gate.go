package access

import id "arkhiv/pkg/domain"

// DenyReason explains a negative authorization decision. Denials are normal
// outcomes, not errors.
type DenyReason string

const (
	// DenyNoFile: the archival unit has no attached digitized file.
	DenyNoFile DenyReason = "no_file"
	// DenyRequiresApprovedRequest: the researcher holds no approved access
	// request for this record.
	DenyRequiresApprovedRequest DenyReason = "requires_approved_request"
	// DenyForbidden: the role is outside the closed set. Unreachable when
	// ParseRole guards the trust boundary.
	DenyForbidden DenyReason = "forbidden"
)

// Decision is the authorization gate's answer for one download attempt.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

func Allow() Decision            { return Decision{Allowed: true} }
func Deny(r DenyReason) Decision { return Decision{Reason: r} }

// Outcome returns a short label for logs and metrics.
func (d Decision) Outcome() string {
	if d.Allowed {
		return "allow"
	}
	return "deny"
}

// Evaluate answers "may this principal download the file attached to this
// record?". Pure function over three facts (file presence, role, approval
// existence): no I/O, no hidden state. It must be re-evaluated on every
// attempt, because files and approvals change and a cached Allow would
// outlive both.
//
// Rule order:
//  1. No attached file: nothing to download, regardless of role.
//  2. Staff (admin, archivist) manage the holdings; request state never
//     gates them.
//  3. Researchers need a currently approved request for the record.
//  4. Anything else is denied outright.
func Evaluate(hasFile bool, role id.Role, hasApprovedRequest bool) Decision {
	if !hasFile {
		return Deny(DenyNoFile)
	}
	if role.IsStaff() {
		return Allow()
	}
	if role == id.RoleResearcher {
		if hasApprovedRequest {
			return Allow()
		}
		return Deny(DenyRequiresApprovedRequest)
	}
	return Deny(DenyForbidden)
}
