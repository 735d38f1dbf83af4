package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "arkhiv/pkg/domain-errors"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
		wantDesc   bool
	}{
		{
			name:       "validation maps to 422",
			err:        dErrors.New(dErrors.CodeValidation, "rejection reason required"),
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "validation_error",
			wantDesc:   true,
		},
		{
			name:       "invalid transition maps to 409",
			err:        dErrors.New(dErrors.CodeInvalidTransition, "cannot transition from rejected to approved"),
			wantStatus: http.StatusConflict,
			wantCode:   "invalid_transition",
			wantDesc:   true,
		},
		{
			name:       "not found maps to 404",
			err:        dErrors.New(dErrors.CodeNotFound, "request not found"),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
			wantDesc:   true,
		},
		{
			name:       "forbidden maps to 403",
			err:        dErrors.New(dErrors.CodeForbidden, "access denied"),
			wantStatus: http.StatusForbidden,
			wantCode:   "forbidden",
			wantDesc:   true,
		},
		{
			name:       "rate limited maps to 429",
			err:        dErrors.New(dErrors.CodeRateLimited, "too many requests"),
			wantStatus: http.StatusTooManyRequests,
			wantCode:   "rate_limit_exceeded",
			wantDesc:   true,
		},
		{
			name:       "internal hides the description",
			err:        dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "store failure"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
		{
			name:       "unclassified errors default to internal",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, tt.err)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body["error"])
			if tt.wantDesc {
				assert.NotEmpty(t, body["error_description"])
			} else {
				assert.Empty(t, body["error_description"])
				assert.NotContains(t, rr.Body.String(), "pq:", "internals must not leak")
			}
		})
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteJSON(rr, http.StatusCreated, map[string]string{"status": "new"})

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.JSONEq(t, `{"status":"new"}`, rr.Body.String())
}
