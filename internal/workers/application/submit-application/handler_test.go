// internal/workers/application/submit-application/handler_test.go
package submitapplication

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-admissions/internal/common/camunda"
	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers/workertest"
)

func createTestInput() *Input {
	return &Input{
		ApplicantName:  "  Ravi Kumar ",
		Vertical:       "boys",
		FatherMobile:   "+91 98765 43210",
		ApplicantEmail: "ravi@example.com",
	}
}

func TestExecute_Success(t *testing.T) {
	machine, store := workertest.Machine(t)
	h := NewHandler(LoadConfig(), machine, workertest.Runtime(t))

	out, err := h.Execute(context.Background(), createTestInput())
	require.NoError(t, err)

	assert.Equal(t, models.StatusSubmitted, out.Status)
	assert.Equal(t, models.ActionSubmitted, out.AuditAction)
	assert.Regexp(t, regexp.MustCompile(`^HST-\d{4}-[0-9A-F]{6}$`), out.TrackingNumber)

	app, err := store.GetApplication(context.Background(), out.ApplicationID)
	require.NoError(t, err)
	assert.Equal(t, "Ravi Kumar", app.ApplicantName)
	assert.Equal(t, models.VerticalBoysHostel, app.Vertical)
	assert.Equal(t, models.PaymentPending, app.PaymentStatus)

	entries, err := store.ListAudit(context.Background(), out.ApplicationID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.RoleApplicant, entries[0].PerformedBy.Role)
}

func TestExecute_RequiresAGuardianMobile(t *testing.T) {
	machine, _ := workertest.Machine(t)
	h := NewHandler(LoadConfig(), machine, workertest.Runtime(t))

	input := createTestInput()
	input.FatherMobile = ""
	_, err := h.Execute(context.Background(), input)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeMissingField))
}

func TestExecute_UnknownVertical(t *testing.T) {
	machine, _ := workertest.Machine(t)
	h := NewHandler(LoadConfig(), machine, workertest.Runtime(t))

	input := createTestInput()
	input.Vertical = "staff quarters"
	_, err := h.Execute(context.Background(), input)
	require.Error(t, err)
	var stdErr *apperrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, "vertical", stdErr.Metadata["field"])
}

func TestInputSchema(t *testing.T) {
	tests := []struct {
		name      string
		variables string
		field     string
	}{
		{"valid", `{"applicantName":"Ravi","vertical":"BOYS_HOSTEL","fatherMobile":"9876543210"}`, ""},
		{"missing name", `{"vertical":"BOYS_HOSTEL"}`, "applicantName"},
		{"flags not strings", `{"applicantName":"Ravi","vertical":"x","flags":[1]}`, "flags.0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := camunda.Decode[Input](inputSchema, tt.variables)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			var stdErr *apperrors.StandardError
			require.ErrorAs(t, err, &stdErr)
			assert.Equal(t, tt.field, stdErr.Metadata["field"])
		})
	}
}
