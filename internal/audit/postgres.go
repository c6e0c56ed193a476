package audit

import (
	"context"
	"database/sql"
	"time"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/models"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx, so entries can be written
// inside the transition's transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

type PostgresRecorder struct {
	db  DBTX
	now func() time.Time
}

func NewPostgresRecorder(db DBTX) *PostgresRecorder {
	return &PostgresRecorder{db: db, now: time.Now}
}

const insertEntrySQL = `
	INSERT INTO audit_log (
		id, application_id, action, performed_by_id, performed_by_name,
		performed_by_role, performed_at, remarks, supersedes_id, from_status, to_status
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''))`

const listEntriesSQL = `
	SELECT id, application_id, action, performed_by_id, performed_by_name,
	       performed_by_role, performed_at, remarks,
	       COALESCE(supersedes_id, ''), COALESCE(from_status, ''), COALESCE(to_status, '')
	FROM audit_log
	WHERE application_id = $1
	ORDER BY performed_at ASC, id ASC`

func (r *PostgresRecorder) Append(ctx context.Context, entry models.AuditEntry) (models.AuditEntry, error) {
	entry, err := Prepare(entry, r.now())
	if err != nil {
		return entry, err
	}

	_, err = r.db.ExecContext(ctx, insertEntrySQL,
		entry.ID,
		entry.ApplicationID,
		string(entry.Action),
		entry.PerformedBy.ID,
		entry.PerformedBy.Name,
		string(entry.PerformedBy.Role),
		entry.PerformedAt,
		entry.Remarks,
		entry.SupersedesID,
		string(entry.FromStatus),
		string(entry.ToStatus),
	)
	if err != nil {
		return entry, apperrors.NewDatabaseOperationFailedError("append audit entry", err)
	}
	return entry, nil
}

func (r *PostgresRecorder) ListFor(ctx context.Context, applicationID string) ([]models.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, listEntriesSQL, applicationID)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("postgres", err)
	}
	defer rows.Close()

	var entries []models.AuditEntry
	for rows.Next() {
		var (
			e                      models.AuditEntry
			action, role, from, to string
		)
		if err := rows.Scan(
			&e.ID, &e.ApplicationID, &action, &e.PerformedBy.ID, &e.PerformedBy.Name,
			&role, &e.PerformedAt, &e.Remarks, &e.SupersedesID, &from, &to,
		); err != nil {
			return nil, apperrors.NewDatabaseOperationFailedError("scan audit entry", err)
		}
		e.Action = models.AuditAction(action)
		e.PerformedBy.Role = models.Role(role)
		e.FromStatus = models.ApplicationStatus(from)
		e.ToStatus = models.ApplicationStatus(to)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewDatabaseOperationFailedError("list audit entries", err)
	}
	return entries, nil
}
