package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	id "arkhiv/pkg/domain"
)

// TestEvaluate walks the full decision matrix.
func TestEvaluate(t *testing.T) {
	tests := []struct {
		name        string
		hasFile     bool
		role        id.Role
		hasApproved bool
		want        Decision
	}{
		{
			name: "no file denies admin",
			role: id.RoleAdmin,
			want: Deny(DenyNoFile),
		},
		{
			name: "no file denies archivist",
			role: id.RoleArchivist,
			want: Deny(DenyNoFile),
		},
		{
			name:        "no file denies researcher even with approval",
			role:        id.RoleResearcher,
			hasApproved: true,
			want:        Deny(DenyNoFile),
		},
		{
			name:    "admin downloads without any request",
			hasFile: true,
			role:    id.RoleAdmin,
			want:    Allow(),
		},
		{
			name:    "archivist downloads without any request",
			hasFile: true,
			role:    id.RoleArchivist,
			want:    Allow(),
		},
		{
			name:        "researcher with approved request downloads",
			hasFile:     true,
			role:        id.RoleResearcher,
			hasApproved: true,
			want:        Allow(),
		},
		{
			name:    "researcher without approval is denied",
			hasFile: true,
			role:    id.RoleResearcher,
			want:    Deny(DenyRequiresApprovedRequest),
		},
		{
			name:    "unknown role is denied outright",
			hasFile: true,
			role:    id.Role("visitor"),
			want:    Deny(DenyForbidden),
		},
		{
			name:        "unknown role stays denied despite approval flag",
			hasFile:     true,
			role:        id.Role(""),
			hasApproved: true,
			want:        Deny(DenyForbidden),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.hasFile, tt.role, tt.hasApproved)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecisionOutcome(t *testing.T) {
	assert.Equal(t, "allow", Allow().Outcome())
	assert.Equal(t, "deny", Deny(DenyNoFile).Outcome())
}
