// Package postgres is the durable store. Each lifecycle mutation runs in one
// transaction holding a row lock on the application.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/lib/pq"

	"hostel-admissions/internal/audit"
	"hostel-admissions/internal/common/database"
	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var _ lifecycle.Store = (*Store)(nil)

type scanner interface {
	Scan(dest ...interface{}) error
}

const selectApplicationSQL = `
	SELECT a.id, a.tracking_number, a.applicant_name, a.vertical, a.status, a.payment_status,
	       COALESCE(a.father_mobile, ''), COALESCE(a.mother_mobile, ''),
	       COALESCE(a.applicant_mobile, ''), COALESCE(a.applicant_email, ''), a.flags,
	       a.forwarded_by_id, a.forwarded_by_name, a.forwarded_at, a.forward_recommendation, a.forward_remarks,
	       a.requires_interview, COALESCE(i.id, ''), COALESCE(a.resident_id, ''), a.created_at, a.updated_at
	FROM applications a
	LEFT JOIN interviews i ON i.application_id = a.id`

const insertApplicationSQL = `
	INSERT INTO applications (
		id, tracking_number, applicant_name, vertical, status, payment_status,
		father_mobile, mother_mobile, applicant_mobile, applicant_email, flags,
		requires_interview, created_at, updated_at
	) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), $11, $12, $13, $14)`

const updateApplicationSQL = `
	UPDATE applications SET
		status = $2, payment_status = $3, flags = $4,
		forwarded_by_id = $5, forwarded_by_name = $6, forwarded_at = $7,
		forward_recommendation = $8, forward_remarks = $9,
		requires_interview = $10, resident_id = NULLIF($11, ''), updated_at = $12
	WHERE id = $1`

const selectInterviewSQL = `
	SELECT id, application_id, scheduled_date::text, to_char(scheduled_time, 'HH24:MI'), mode,
	       COALESCE(meeting_link, ''), COALESCE(location, ''), status, score, evaluation,
	       created_at, updated_at
	FROM interviews
	WHERE application_id = $1`

const upsertInterviewSQL = `
	INSERT INTO interviews (
		id, application_id, scheduled_date, scheduled_time, mode, meeting_link, location,
		status, score, evaluation, created_at, updated_at
	) VALUES ($1, $2, $3::date, $4::time, $5, NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, $12)
	ON CONFLICT (application_id) DO UPDATE SET
		scheduled_date = EXCLUDED.scheduled_date,
		scheduled_time = EXCLUDED.scheduled_time,
		mode = EXCLUDED.mode,
		meeting_link = EXCLUDED.meeting_link,
		location = EXCLUDED.location,
		status = EXCLUDED.status,
		score = EXCLUDED.score,
		evaluation = EXCLUDED.evaluation,
		updated_at = EXCLUDED.updated_at`

const linkResidentSQL = `UPDATE applications SET resident_id = $2, updated_at = $3 WHERE id = $1`

func scanApplication(row scanner) (*models.Application, error) {
	var (
		app                                models.Application
		vertical, status, payment          string
		flags                              pq.StringArray
		fwdID, fwdName, fwdRec, fwdRemarks sql.NullString
		fwdAt                              sql.NullTime
	)
	err := row.Scan(
		&app.ID, &app.TrackingNumber, &app.ApplicantName, &vertical, &status, &payment,
		&app.FatherMobile, &app.MotherMobile, &app.ApplicantMobile, &app.ApplicantEmail, &flags,
		&fwdID, &fwdName, &fwdAt, &fwdRec, &fwdRemarks,
		&app.RequiresInterview, &app.InterviewID, &app.ResidentID, &app.CreatedAt, &app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	app.Vertical = models.Vertical(vertical)
	app.Status = models.ApplicationStatus(status)
	app.PaymentStatus = models.PaymentStatus(payment)
	if len(flags) > 0 {
		app.Flags = []string(flags)
	}
	if fwdID.Valid {
		app.ForwardedBy = &models.ForwardRecord{
			ByID:           fwdID.String,
			ByName:         fwdName.String,
			At:             fwdAt.Time,
			Recommendation: models.Recommendation(fwdRec.String),
			Remarks:        fwdRemarks.String,
		}
	}
	return &app, nil
}

func scanInterview(row scanner) (*models.Interview, error) {
	var (
		iv           models.Interview
		mode, status string
		score        sql.NullInt64
		evaluation   []byte
	)
	err := row.Scan(
		&iv.ID, &iv.ApplicationID, &iv.ScheduledDate, &iv.ScheduledTime, &mode,
		&iv.MeetingLink, &iv.Location, &status, &score, &evaluation,
		&iv.CreatedAt, &iv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	iv.Mode = models.InterviewMode(mode)
	iv.Status = models.InterviewStatus(status)
	if score.Valid {
		s := int(score.Int64)
		iv.Score = &s
	}
	if len(evaluation) > 0 {
		var ev models.Evaluation
		if err := json.Unmarshal(evaluation, &ev); err != nil {
			return nil, err
		}
		iv.Evaluation = &ev
	}
	return &iv, nil
}

func (s *Store) CreateApplication(ctx context.Context, app *models.Application, entry models.AuditEntry) (models.AuditEntry, error) {
	var stored models.AuditEntry
	err := database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, insertApplicationSQL,
			app.ID, app.TrackingNumber, app.ApplicantName, string(app.Vertical), string(app.Status),
			string(app.PaymentStatus), app.FatherMobile, app.MotherMobile, app.ApplicantMobile,
			app.ApplicantEmail, pq.Array(app.Flags), app.RequiresInterview, app.CreatedAt, app.UpdatedAt,
		)
		if err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return apperrors.NewInvalidFieldError("trackingNumber", "already in use")
			}
			return apperrors.NewDatabaseOperationFailedError("insert application", err)
		}
		stored, err = audit.NewPostgresRecorder(tx).Append(ctx, entry)
		return err
	})
	if err != nil {
		return stored, wrap(err)
	}
	return stored, nil
}

func (s *Store) GetApplication(ctx context.Context, id string) (*models.Application, error) {
	app, err := scanApplication(s.db.QueryRowContext(ctx, selectApplicationSQL+` WHERE a.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("application", id)
	}
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("postgres", err)
	}
	return app, nil
}

func (s *Store) GetInterview(ctx context.Context, applicationID string) (*models.Interview, error) {
	iv, err := scanInterview(s.db.QueryRowContext(ctx, selectInterviewSQL, applicationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError("interview", applicationID)
	}
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("postgres", err)
	}
	return iv, nil
}

// Mutate locks the application row with SELECT ... FOR UPDATE, so a second
// concurrent transition on the same id waits and then sees the new status.
func (s *Store) Mutate(ctx context.Context, id string, fn func(*lifecycle.Mutation) error) (*lifecycle.Mutation, error) {
	var out *lifecycle.Mutation
	err := database.InTx(ctx, s.db, func(tx *sql.Tx) error {
		app, err := scanApplication(tx.QueryRowContext(ctx, selectApplicationSQL+` WHERE a.id = $1 FOR UPDATE OF a`, id))
		if errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewNotFoundError("application", id)
		}
		if err != nil {
			return apperrors.NewUpstreamUnavailableError("postgres", err)
		}

		iv, err := scanInterview(tx.QueryRowContext(ctx, selectInterviewSQL, id))
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return apperrors.NewUpstreamUnavailableError("postgres", err)
		}

		mu := lifecycle.NewMutation(app, iv)
		if err := fn(mu); err != nil {
			return err
		}

		if err := updateApplication(ctx, tx, mu.Application); err != nil {
			return err
		}
		if mu.InterviewChanged() && mu.Interview != nil {
			if err := upsertInterview(ctx, tx, mu.Interview); err != nil {
				return err
			}
		}

		recorder := audit.NewPostgresRecorder(tx)
		entries := make([]models.AuditEntry, 0, len(mu.Entries()))
		for _, e := range mu.Entries() {
			stored, err := recorder.Append(ctx, e)
			if err != nil {
				return err
			}
			entries = append(entries, stored)
		}
		mu.ReplaceEntries(entries)
		out = mu
		return nil
	})
	if err != nil {
		return nil, wrap(err)
	}
	return out, nil
}

func updateApplication(ctx context.Context, tx *sql.Tx, app *models.Application) error {
	var (
		fwdID, fwdName, fwdRec, fwdRemarks sql.NullString
		fwdAt                              sql.NullTime
	)
	if f := app.ForwardedBy; f != nil {
		fwdID = sql.NullString{String: f.ByID, Valid: true}
		fwdName = sql.NullString{String: f.ByName, Valid: true}
		fwdAt = sql.NullTime{Time: f.At, Valid: true}
		fwdRec = sql.NullString{String: string(f.Recommendation), Valid: true}
		fwdRemarks = sql.NullString{String: f.Remarks, Valid: true}
	}
	_, err := tx.ExecContext(ctx, updateApplicationSQL,
		app.ID, string(app.Status), string(app.PaymentStatus), pq.Array(app.Flags),
		fwdID, fwdName, fwdAt, fwdRec, fwdRemarks,
		app.RequiresInterview, app.ResidentID, app.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseOperationFailedError("update application", err)
	}
	return nil
}

func upsertInterview(ctx context.Context, tx *sql.Tx, iv *models.Interview) error {
	var (
		score      sql.NullInt64
		evaluation []byte
	)
	if iv.Score != nil {
		score = sql.NullInt64{Int64: int64(*iv.Score), Valid: true}
	}
	if iv.Evaluation != nil {
		data, err := json.Marshal(iv.Evaluation)
		if err != nil {
			return apperrors.NewDatabaseOperationFailedError("encode evaluation", err)
		}
		evaluation = data
	}
	_, err := tx.ExecContext(ctx, upsertInterviewSQL,
		iv.ID, iv.ApplicationID, iv.ScheduledDate, iv.ScheduledTime, string(iv.Mode),
		iv.MeetingLink, iv.Location, string(iv.Status), score, evaluation,
		iv.CreatedAt, iv.UpdatedAt,
	)
	if err != nil {
		return apperrors.NewDatabaseOperationFailedError("upsert interview", err)
	}
	return nil
}

func (s *Store) LinkResident(ctx context.Context, applicationID, residentID string) error {
	res, err := s.db.ExecContext(ctx, linkResidentSQL, applicationID, residentID, time.Now().UTC())
	if err != nil {
		return apperrors.NewDatabaseOperationFailedError("link resident", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.NewDatabaseOperationFailedError("link resident", err)
	}
	if n == 0 {
		return apperrors.NewNotFoundError("application", applicationID)
	}
	return nil
}

func (s *Store) ListAudit(ctx context.Context, applicationID string) ([]models.AuditEntry, error) {
	return audit.NewPostgresRecorder(s.db).ListFor(ctx, applicationID)
}

// Recorder exposes the audit log for corrections.
func (s *Store) Recorder() audit.Recorder {
	return audit.NewPostgresRecorder(s.db)
}

// wrap marks transaction plumbing failures as an unavailable store; coded
// errors from inside the transaction pass through.
func wrap(err error) error {
	var stdErr *apperrors.StandardError
	if errors.As(err, &stdErr) {
		return err
	}
	return apperrors.NewUpstreamUnavailableError("postgres", err)
}
