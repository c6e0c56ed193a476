package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
)

var applicationColumns = []string{
	"id", "tracking_number", "applicant_name", "vertical", "status", "payment_status",
	"father_mobile", "mother_mobile", "applicant_mobile", "applicant_email", "flags",
	"forwarded_by_id", "forwarded_by_name", "forwarded_at", "forward_recommendation", "forward_remarks",
	"requires_interview", "interview_id", "resident_id", "created_at", "updated_at",
}

var interviewColumns = []string{
	"id", "application_id", "scheduled_date", "scheduled_time", "mode", "meeting_link", "location",
	"status", "score", "evaluation", "created_at", "updated_at",
}

var created = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func forwardedRow(id string) *sqlmock.Rows {
	return sqlmock.NewRows(applicationColumns).AddRow(
		id, "HST-2026-ABC123", "Asha Patel", "GIRLS_HOSTEL", "FORWARDED", "PAID",
		"9876543210", nil, nil, nil, "{scholarship,late-fee}",
		"u-sup", "Supt. Rao", created, "RECOMMEND", "strong profile",
		false, "", "", created, created,
	)
}

func TestStore_GetApplication(t *testing.T) {
	db, mock := setupMockDB(t)
	store := New(db)

	mock.ExpectQuery(`FROM applications a .* WHERE a\.id = \$1`).
		WithArgs("APP-1").
		WillReturnRows(forwardedRow("APP-1"))

	app, err := store.GetApplication(context.Background(), "APP-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusForwarded, app.Status)
	assert.Equal(t, models.VerticalGirlsHostel, app.Vertical)
	assert.Equal(t, []string{"scholarship", "late-fee"}, app.Flags)
	assert.Empty(t, app.MotherMobile)
	require.NotNil(t, app.ForwardedBy)
	assert.Equal(t, "u-sup", app.ForwardedBy.ByID)
	assert.Equal(t, models.RecommendationRecommend, app.ForwardedBy.Recommendation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetApplicationErrors(t *testing.T) {
	db, mock := setupMockDB(t)
	store := New(db)

	mock.ExpectQuery(`FROM applications a`).WithArgs("APP-404").WillReturnRows(sqlmock.NewRows(applicationColumns))
	_, err := store.GetApplication(context.Background(), "APP-404")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))

	mock.ExpectQuery(`FROM applications a`).WithArgs("APP-1").WillReturnError(errors.New("connection refused"))
	_, err = store.GetApplication(context.Background(), "APP-1")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUpstreamUnavailable))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetInterviewDecodesEvaluation(t *testing.T) {
	db, mock := setupMockDB(t)
	store := New(db)

	evaluation := `{"academicBackground":{"score":4},"communication":{"score":3},"discipline":{"score":5},` +
		`"motivation":{"score":4},"overallScore":16,"recommendation":"APPROVE"}`
	mock.ExpectQuery(`FROM interviews WHERE application_id = \$1`).
		WithArgs("APP-1").
		WillReturnRows(sqlmock.NewRows(interviewColumns).AddRow(
			"iv-1", "APP-1", "2026-04-10", "11:30", "ONLINE", "https://meet.example.org/x", "",
			"COMPLETED", 16, []byte(evaluation), created, created,
		))

	iv, err := store.GetInterview(context.Background(), "APP-1")
	require.NoError(t, err)
	assert.Equal(t, models.InterviewCompleted, iv.Status)
	require.NotNil(t, iv.Score)
	assert.Equal(t, 16, *iv.Score)
	require.NotNil(t, iv.Evaluation)
	assert.Equal(t, models.EvaluationApprove, iv.Evaluation.Recommendation)
	assert.Equal(t, 5, iv.Evaluation.Discipline.Score)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MutateCommitsStatusAndAuditTogether(t *testing.T) {
	db, mock := setupMockDB(t)
	store := New(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FROM applications a .* WHERE a\.id = \$1 FOR UPDATE OF a`).
		WithArgs("APP-1").
		WillReturnRows(forwardedRow("APP-1"))
	mock.ExpectQuery(`FROM interviews WHERE application_id = \$1`).
		WithArgs("APP-1").
		WillReturnRows(sqlmock.NewRows(interviewColumns))
	mock.ExpectExec(`UPDATE applications SET`).
		WithArgs("APP-1", "PROVISIONALLY_APPROVED", "PAID", sqlmock.AnyArg(),
			"u-sup", "Supt. Rao", created, "RECOMMEND", "strong profile",
			true, "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mu, err := store.Mutate(context.Background(), "APP-1", func(mu *lifecycle.Mutation) error {
		mu.Application.Status = models.StatusProvisionallyApproved
		mu.Application.RequiresInterview = true
		mu.Application.UpdatedAt = time.Now().UTC()
		mu.Record(models.AuditEntry{
			ApplicationID: "APP-1",
			Action:        models.ActionProvisionallyApproved,
			PerformedBy:   models.Actor{ID: "u-tr", Role: models.RoleTrustee},
			Remarks:       "good profile",
			FromStatus:    models.StatusForwarded,
			ToStatus:      models.StatusProvisionallyApproved,
		})
		return nil
	})
	require.NoError(t, err)
	require.Len(t, mu.Entries(), 1)
	assert.NotEmpty(t, mu.Entries()[0].ID)
	assert.False(t, mu.Entries()[0].PerformedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MutateUpsertsChangedInterview(t *testing.T) {
	db, mock := setupMockDB(t)
	store := New(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF a`).WithArgs("APP-1").WillReturnRows(forwardedRow("APP-1"))
	mock.ExpectQuery(`FROM interviews`).WithArgs("APP-1").WillReturnRows(sqlmock.NewRows(interviewColumns))
	mock.ExpectExec(`UPDATE applications SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO interviews .* ON CONFLICT \(application_id\) DO UPDATE`).
		WithArgs("iv-1", "APP-1", "2026-04-10", "11:30", "PHYSICAL", "", "Trust office",
			"SCHEDULED", nil, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := store.Mutate(context.Background(), "APP-1", func(mu *lifecycle.Mutation) error {
		mu.SetInterview(&models.Interview{
			ID: "iv-1", ApplicationID: "APP-1", ScheduledDate: "2026-04-10", ScheduledTime: "11:30",
			Mode: models.ModePhysical, Location: "Trust office", Status: models.InterviewScheduled,
		})
		mu.Application.Status = models.StatusInterviewScheduled
		mu.Record(models.AuditEntry{
			ApplicationID: "APP-1", Action: models.ActionInterviewScheduled,
			PerformedBy: models.Actor{ID: "u-tr", Role: models.RoleTrustee},
		})
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MutateRollsBackOnCallbackError(t *testing.T) {
	db, mock := setupMockDB(t)
	store := New(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF a`).WithArgs("APP-1").WillReturnRows(forwardedRow("APP-1"))
	mock.ExpectQuery(`FROM interviews`).WithArgs("APP-1").WillReturnRows(sqlmock.NewRows(interviewColumns))
	mock.ExpectRollback()

	rejection := apperrors.NewInvalidTransitionError("finalDecide", "FORWARDED", []string{"INTERVIEW_COMPLETED"})
	_, err := store.Mutate(context.Background(), "APP-1", func(*lifecycle.Mutation) error { return rejection })
	assert.Same(t, rejection, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MutateRollsBackWhenAuditFails(t *testing.T) {
	db, mock := setupMockDB(t)
	store := New(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF a`).WithArgs("APP-1").WillReturnRows(forwardedRow("APP-1"))
	mock.ExpectQuery(`FROM interviews`).WithArgs("APP-1").WillReturnRows(sqlmock.NewRows(interviewColumns))
	mock.ExpectExec(`UPDATE applications SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := store.Mutate(context.Background(), "APP-1", func(mu *lifecycle.Mutation) error {
		mu.Application.Status = models.StatusRejected
		mu.Record(models.AuditEntry{
			ApplicationID: "APP-1", Action: models.ActionRejected, Remarks: "incomplete",
			PerformedBy: models.Actor{ID: "u-tr", Role: models.RoleTrustee},
		})
		return nil
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDatabaseOperationFailed))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MutateMissingApplication(t *testing.T) {
	db, mock := setupMockDB(t)
	store := New(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE OF a`).WithArgs("APP-404").WillReturnRows(sqlmock.NewRows(applicationColumns))
	mock.ExpectRollback()

	called := false
	_, err := store.Mutate(context.Background(), "APP-404", func(*lifecycle.Mutation) error {
		called = true
		return nil
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_MutateBeginFailureIsUpstreamUnavailable(t *testing.T) {
	db, mock := setupMockDB(t)
	store := New(db)

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	_, err := store.Mutate(context.Background(), "APP-1", func(*lifecycle.Mutation) error { return nil })
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeUpstreamUnavailable))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_CreateApplicationWritesSubmissionEntry(t *testing.T) {
	db, mock := setupMockDB(t)
	store := New(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO applications`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	app := &models.Application{
		ID: "APP-1", TrackingNumber: "HST-2026-ABC123", ApplicantName: "Asha",
		Vertical: models.VerticalGirlsHostel, Status: models.StatusSubmitted,
		PaymentStatus: models.PaymentPending, FatherMobile: "9876543210",
		CreatedAt: created, UpdatedAt: created,
	}
	entry, err := store.CreateApplication(context.Background(), app, models.AuditEntry{
		ApplicationID: "APP-1", Action: models.ActionSubmitted,
		PerformedBy: models.Actor{ID: "u-app", Role: models.RoleApplicant},
		Remarks:     "application submitted",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LinkResident(t *testing.T) {
	db, mock := setupMockDB(t)
	store := New(db)

	mock.ExpectExec(`UPDATE applications SET resident_id = \$2`).
		WithArgs("APP-1", "stu-9", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, store.LinkResident(context.Background(), "APP-1", "stu-9"))

	mock.ExpectExec(`UPDATE applications SET resident_id`).
		WithArgs("APP-404", "stu-9", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	err := store.LinkResident(context.Background(), "APP-404", "stu-9")
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))

	assert.NoError(t, mock.ExpectationsWereMet())
}
