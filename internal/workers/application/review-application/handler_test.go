// internal/workers/application/review-application/handler_test.go
package reviewapplication

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-admissions/internal/common/camunda"
	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers/workertest"
)

func TestExecute(t *testing.T) {
	tests := []struct {
		name    string
		status  models.ApplicationStatus
		actor   models.Actor
		remarks string
		code    apperrors.ErrorCode
	}{
		{"superintendent starts review", models.StatusSubmitted, workertest.Superintendent, "checking documents", ""},
		{"remarks required", models.StatusSubmitted, workertest.Superintendent, "  ", apperrors.ErrCodeMissingField},
		{"trustee not permitted", models.StatusSubmitted, workertest.Trustee, "checking", apperrors.ErrCodeActorNotPermitted},
		{"already forwarded", models.StatusForwarded, workertest.Superintendent, "again", apperrors.ErrCodeInvalidTransition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			machine, store := workertest.Machine(t)
			workertest.Seed(store, "APP-1", tt.status)
			h := NewHandler(LoadConfig(), machine, workertest.Runtime(t))

			out, err := h.Execute(context.Background(), &Input{ApplicationID: "APP-1", Actor: tt.actor, Remarks: tt.remarks})
			if tt.code != "" {
				assert.True(t, apperrors.Is(err, tt.code), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, models.StatusReview, out.Status)
			assert.Equal(t, models.ActionReviewStarted, out.AuditAction)
			assert.NotEmpty(t, out.AuditID)
		})
	}
}

func TestInputSchema_RejectsUnknownRole(t *testing.T) {
	_, err := camunda.Decode[Input](inputSchema, `{"applicationId":"APP-1","remarks":"x","actor":{"id":"u","role":"WARDEN"}}`)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeMissingField))
}
