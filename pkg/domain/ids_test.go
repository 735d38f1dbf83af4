package domain

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "arkhiv/pkg/domain-errors"
)

func TestParseIDs(t *testing.T) {
	valid := uuid.NewString()

	t.Run("accepts canonical UUIDs", func(t *testing.T) {
		userID, err := ParseUserID(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, userID.String())

		recordID, err := ParseRecordID(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, recordID.String())

		requestID, err := ParseRequestID(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, requestID.String())
	})

	t.Run("rejects empty, malformed, and nil input", func(t *testing.T) {
		for _, input := range []string{"", "not-a-uuid", uuid.Nil.String()} {
			_, err := ParseUserID(input)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), "input %q", input)
		}
	})
}

func TestIDJSONRepresentation(t *testing.T) {
	requestID := NewRequestID()

	data, err := json.Marshal(requestID)
	require.NoError(t, err)
	assert.Equal(t, `"`+requestID.String()+`"`, string(data))

	var decoded RequestID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, requestID, decoded)
}

func TestRoles(t *testing.T) {
	t.Run("parses the closed role set", func(t *testing.T) {
		for _, name := range []string{"admin", "archivist", "researcher"} {
			role, err := ParseRole(name)
			require.NoError(t, err)
			assert.Equal(t, name, role.String())
		}
		_, err := ParseRole("visitor")
		assert.Error(t, err)
	})

	t.Run("staff covers admin and archivist only", func(t *testing.T) {
		assert.True(t, RoleAdmin.IsStaff())
		assert.True(t, RoleArchivist.IsStaff())
		assert.False(t, RoleResearcher.IsStaff())
		assert.False(t, Role("visitor").IsStaff())
	})
}

func TestPrincipalIsZero(t *testing.T) {
	assert.True(t, Principal{}.IsZero())
	assert.False(t, Principal{ID: UserID(uuid.New()), Role: RoleAdmin}.IsZero())
}
