package lifecycle

import (
	"context"

	"hostel-admissions/internal/models"
)

// Store persists applications, their interview and audit entries.
//
// Mutate must run fn as one serializable unit per application: load the
// application and its interview, call fn on copies, and persist the copies
// plus every recorded audit entry only when fn returns nil. Two concurrent
// Mutate calls on the same id must not interleave.
type Store interface {
	CreateApplication(ctx context.Context, app *models.Application, entry models.AuditEntry) (models.AuditEntry, error)
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	GetInterview(ctx context.Context, applicationID string) (*models.Interview, error)
	Mutate(ctx context.Context, id string, fn func(*Mutation) error) (*Mutation, error)
	LinkResident(ctx context.Context, applicationID, residentID string) error
	ListAudit(ctx context.Context, applicationID string) ([]models.AuditEntry, error)
}

// Mutation is the working state handed to a Mutate callback.
type Mutation struct {
	Application *models.Application
	Interview   *models.Interview

	interviewChanged bool
	entries          []models.AuditEntry
}

// NewMutation copies app and interview so the callback never touches stored state.
func NewMutation(app *models.Application, interview *models.Interview) *Mutation {
	return &Mutation{Application: app.Clone(), Interview: interview.Clone()}
}

// SetInterview replaces the working interview and marks it for persistence.
func (m *Mutation) SetInterview(iv *models.Interview) {
	m.Interview = iv
	m.interviewChanged = true
}

func (m *Mutation) InterviewChanged() bool {
	return m.interviewChanged
}

func (m *Mutation) Record(entry models.AuditEntry) {
	m.entries = append(m.entries, entry)
}

func (m *Mutation) Entries() []models.AuditEntry {
	return m.entries
}

// ReplaceEntries lets a store swap in the entries as persisted (ids, timestamps).
func (m *Mutation) ReplaceEntries(entries []models.AuditEntry) {
	m.entries = entries
}
