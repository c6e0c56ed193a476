package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/models"
)

var trustee = models.Actor{ID: "u-7", Name: "Trustee Shah", Role: models.RoleTrustee}

func TestPrepare_RequiresRemarksForDecisions(t *testing.T) {
	_, err := Prepare(models.AuditEntry{
		ApplicationID: "app-1",
		Action:        models.ActionApproved,
		PerformedBy:   trustee,
		Remarks:       "   ",
	}, time.Now())

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeMissingField))
}

func TestPrepare_FillsIDAndTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	entry, err := Prepare(models.AuditEntry{
		ApplicationID: "app-1",
		Action:        models.ActionInterviewStarted,
		PerformedBy:   trustee,
	}, now)

	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, now, entry.PerformedAt)
}

func TestMemoryRecorder_ListIsChronological(t *testing.T) {
	rec := NewMemoryRecorder()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	_, err := rec.Append(ctx, models.AuditEntry{
		ApplicationID: "app-1", Action: models.ActionForwarded, PerformedBy: trustee,
		Remarks: "second", PerformedAt: base.Add(time.Minute),
	})
	require.NoError(t, err)
	_, err = rec.Append(ctx, models.AuditEntry{
		ApplicationID: "app-1", Action: models.ActionSubmitted, PerformedBy: trustee,
		PerformedAt: base,
	})
	require.NoError(t, err)
	_, err = rec.Append(ctx, models.AuditEntry{
		ApplicationID: "app-2", Action: models.ActionSubmitted, PerformedBy: trustee,
	})
	require.NoError(t, err)

	entries, err := rec.ListFor(ctx, "app-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionSubmitted, entries[0].Action)
	assert.Equal(t, models.ActionForwarded, entries[1].Action)
}

func TestMemoryRecorder_ListReturnsCopy(t *testing.T) {
	rec := NewMemoryRecorder()
	ctx := context.Background()
	_, err := rec.Append(ctx, models.AuditEntry{
		ApplicationID: "app-1", Action: models.ActionRejected, PerformedBy: trustee, Remarks: "incomplete documents",
	})
	require.NoError(t, err)

	entries, _ := rec.ListFor(ctx, "app-1")
	entries[0].Remarks = "edited"

	again, _ := rec.ListFor(ctx, "app-1")
	assert.Equal(t, "incomplete documents", again[0].Remarks)
}

func TestMemoryRecorder_Supersede(t *testing.T) {
	rec := NewMemoryRecorder()
	ctx := context.Background()
	first, err := rec.Append(ctx, models.AuditEntry{
		ApplicationID: "app-1", Action: models.ActionMessageSent, PerformedBy: trustee, Remarks: "fees due 5th",
	})
	require.NoError(t, err)

	correction, err := rec.Append(ctx, Supersede(first, trustee, "fees due 15th, not 5th"))
	require.NoError(t, err)
	assert.Equal(t, first.ID, correction.SupersedesID)

	_, err = rec.Append(ctx, models.AuditEntry{
		ApplicationID: "app-2", Action: models.ActionCorrection, PerformedBy: trustee,
		Remarks: "wrong app", SupersedesID: first.ID,
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeNotFound))

	entries, _ := rec.ListFor(ctx, "app-1")
	assert.Len(t, entries, 2)
}

func TestMemoryRecorder_ConcurrentAppends(t *testing.T) {
	rec := NewMemoryRecorder()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = rec.Append(ctx, models.AuditEntry{
				ApplicationID: "app-1", Action: models.ActionMessageSent, PerformedBy: trustee, Remarks: "ping",
			})
		}()
	}
	wg.Wait()

	entries, _ := rec.ListFor(ctx, "app-1")
	assert.Len(t, entries, 50)
}

func TestPostgresRecorder_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs(sqlmock.AnyArg(), "app-1", "FORWARDED", "u-3", "Supt. Rao", "SUPERINTENDENT",
			sqlmock.AnyArg(), "good profile", "", "REVIEW", "FORWARDED").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := NewPostgresRecorder(db)
	entry, err := rec.Append(context.Background(), models.AuditEntry{
		ApplicationID: "app-1",
		Action:        models.ActionForwarded,
		PerformedBy:   models.Actor{ID: "u-3", Name: "Supt. Rao", Role: models.RoleSuperintendent},
		Remarks:       " good profile ",
		FromStatus:    models.StatusReview,
		ToStatus:      models.StatusForwarded,
	})

	require.NoError(t, err)
	assert.Equal(t, "good profile", entry.Remarks)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecorder_AppendFailureIsRetryable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO audit_log`).WillReturnError(errors.New("connection reset"))

	_, err = NewPostgresRecorder(db).Append(context.Background(), models.AuditEntry{
		ApplicationID: "app-1", Action: models.ActionSubmitted, PerformedBy: trustee,
	})

	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrCodeDatabaseOperationFailed))
}

func TestPostgresRecorder_ListFor(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "application_id", "action", "performed_by_id", "performed_by_name",
		"performed_by_role", "performed_at", "remarks", "supersedes_id", "from_status", "to_status",
	}).
		AddRow("e-1", "app-1", "SUBMITTED", "u-1", "Asha", "APPLICANT", at, "", "", "DRAFT", "SUBMITTED").
		AddRow("e-2", "app-1", "REVIEW_STARTED", "u-3", "Supt. Rao", "SUPERINTENDENT", at.Add(time.Hour), "picked up", "", "SUBMITTED", "REVIEW")

	mock.ExpectQuery(`SELECT (.+) FROM audit_log`).WithArgs("app-1").WillReturnRows(rows)

	entries, err := NewPostgresRecorder(db).ListFor(context.Background(), "app-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionReviewStarted, entries[1].Action)
	assert.Equal(t, models.RoleSuperintendent, entries[1].PerformedBy.Role)
	assert.Equal(t, models.StatusReview, entries[1].ToStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}
