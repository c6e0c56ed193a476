package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/reconcile"
)

// contactKey mirrors identity.Normalize in SQL: strip whitespace, '+' and
// '-', keep the last ten characters, and yield '' for anything shorter.
func contactKey(column string) string {
	stripped := fmt.Sprintf(`regexp_replace(COALESCE(%s, ''), '[[:space:]+-]', '', 'g')`, column)
	return fmt.Sprintf(`CASE WHEN length(%[1]s) >= 10 THEN right(%[1]s, 10) ELSE '' END`, stripped)
}

var (
	parentsByMobileSQL = `
	SELECT id, role, COALESCE(full_name, ''), COALESCE(mobile, ''), linked_student_ids
	FROM users
	WHERE upper(role) = 'PARENT' AND ` + contactKey("mobile") + ` = $1
	ORDER BY id`

	selectStudentSQL = `
	SELECT id, COALESCE(user_id, ''), COALESCE(application_id, ''), full_name,
	       COALESCE(vertical, ''), COALESCE(status, '')
	FROM students`

	studentsByIDsSQL = selectStudentSQL + `
	WHERE id = ANY($1) OR user_id = ANY($1)
	ORDER BY id`

	studentsByGuardianSQL = selectStudentSQL + `
	WHERE ` + contactKey("father_mobile") + ` = $1
	   OR ` + contactKey("mother_mobile") + ` = $1
	   OR ` + contactKey("guardian_mobile") + ` = $1
	ORDER BY id`

	applicationsByGuardianSQL = selectApplicationSQL + `
	WHERE ` + contactKey("a.father_mobile") + ` = $1
	   OR ` + contactKey("a.mother_mobile") + ` = $1
	ORDER BY a.created_at, a.id`
)

const activeAllocationsSQL = `
	SELECT id, COALESCE(application_id, ''), COALESCE(student_id, ''), room_id, active
	FROM allocations
	WHERE active AND (student_id = ANY($1) OR application_id = ANY($2))`

const roomsByIDsSQL = `SELECT id, number FROM rooms WHERE id = ANY($1)`

var (
	_ reconcile.UserSource        = (*Store)(nil)
	_ reconcile.StudentSource     = (*Store)(nil)
	_ reconcile.ApplicationSource = (*Store)(nil)
	_ reconcile.AllocationSource  = (*Store)(nil)
)

// Sources returns the store as every reconciliation source.
func (s *Store) Sources() reconcile.Sources {
	return reconcile.Sources{Users: s, Students: s, Applications: s, Allocations: s}
}

func (s *Store) ParentsByMobile(ctx context.Context, key string) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, parentsByMobileSQL, key)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("postgres", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var (
			u      models.User
			role   string
			linked pq.StringArray
		)
		if err := rows.Scan(&u.ID, &role, &u.FullName, &u.Mobile, &linked); err != nil {
			return nil, apperrors.NewDatabaseOperationFailedError("scan user", err)
		}
		u.Role = models.Role(role)
		u.LinkedStudentIDs = []string(linked)
		users = append(users, u)
	}
	return users, rowsErr(rows, "list parents")
}

func (s *Store) StudentsByIDs(ctx context.Context, ids []string) ([]models.Student, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.students(ctx, studentsByIDsSQL, pq.Array(ids))
}

func (s *Store) StudentsByGuardianMobile(ctx context.Context, key string) ([]models.Student, error) {
	return s.students(ctx, studentsByGuardianSQL, key)
}

func (s *Store) students(ctx context.Context, query string, arg interface{}) ([]models.Student, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("postgres", err)
	}
	defer rows.Close()

	var out []models.Student
	for rows.Next() {
		var (
			st       models.Student
			vertical string
		)
		if err := rows.Scan(&st.ID, &st.UserID, &st.ApplicationID, &st.FullName, &vertical, &st.Status); err != nil {
			return nil, apperrors.NewDatabaseOperationFailedError("scan student", err)
		}
		st.Vertical = models.Vertical(vertical)
		out = append(out, st)
	}
	return out, rowsErr(rows, "list students")
}

func (s *Store) ApplicationsByGuardianMobile(ctx context.Context, key string) ([]models.Application, error) {
	rows, err := s.db.QueryContext(ctx, applicationsByGuardianSQL, key)
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("postgres", err)
	}
	defer rows.Close()

	var out []models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, apperrors.NewDatabaseOperationFailedError("scan application", err)
		}
		out = append(out, *app)
	}
	return out, rowsErr(rows, "list applications")
}

func (s *Store) ActiveAllocations(ctx context.Context, studentIDs, applicationIDs []string) ([]models.Allocation, error) {
	rows, err := s.db.QueryContext(ctx, activeAllocationsSQL, pq.Array(studentIDs), pq.Array(applicationIDs))
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("postgres", err)
	}
	defer rows.Close()

	var out []models.Allocation
	for rows.Next() {
		var a models.Allocation
		if err := rows.Scan(&a.ID, &a.ApplicationID, &a.StudentID, &a.RoomID, &a.Active); err != nil {
			return nil, apperrors.NewDatabaseOperationFailedError("scan allocation", err)
		}
		out = append(out, a)
	}
	return out, rowsErr(rows, "list allocations")
}

func (s *Store) RoomsByIDs(ctx context.Context, ids []string) ([]models.Room, error) {
	rows, err := s.db.QueryContext(ctx, roomsByIDsSQL, pq.Array(ids))
	if err != nil {
		return nil, apperrors.NewUpstreamUnavailableError("postgres", err)
	}
	defer rows.Close()

	var out []models.Room
	for rows.Next() {
		var r models.Room
		if err := rows.Scan(&r.ID, &r.Number); err != nil {
			return nil, apperrors.NewDatabaseOperationFailedError("scan room", err)
		}
		out = append(out, r)
	}
	return out, rowsErr(rows, "list rooms")
}

func rowsErr(rows *sql.Rows, op string) error {
	if err := rows.Err(); err != nil {
		return apperrors.NewDatabaseOperationFailedError(op, err)
	}
	return nil
}

const createResidentSQL = `
	INSERT INTO students (id, user_id, application_id, full_name, vertical, status,
	                      father_mobile, mother_mobile, guardian_mobile)
	VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''))
	ON CONFLICT (application_id) DO UPDATE SET user_id = COALESCE(students.user_id, EXCLUDED.user_id)
	RETURNING id, COALESCE(user_id, '')`

// CreateResident inserts the resident for an approved application. A second
// call for the same application returns the first record's id.
func (s *Store) CreateResident(ctx context.Context, st models.Student) (models.Student, error) {
	err := s.db.QueryRowContext(ctx, createResidentSQL,
		st.ID, st.UserID, st.ApplicationID, st.FullName, string(st.Vertical), st.Status,
		st.FatherMobile, st.MotherMobile, st.GuardianMobile,
	).Scan(&st.ID, &st.UserID)
	if err != nil {
		return st, apperrors.NewDatabaseOperationFailedError("create resident", err)
	}
	return st, nil
}
