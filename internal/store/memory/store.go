// Package memory is an in-process store used by tests and local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"hostel-admissions/internal/audit"
	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/identity"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/reconcile"
)

// Store serializes mutations per application with one mutex each, so
// transitions on different applications run in parallel.
type Store struct {
	mu           sync.RWMutex
	applications map[string]*models.Application
	interviews   map[string]*models.Interview // by application id
	users        map[string]models.User
	students     map[string]models.Student
	allocations  map[string]models.Allocation
	rooms        map[string]models.Room

	lockMu sync.Mutex
	locks  map[string]*sync.Mutex

	recorder *audit.MemoryRecorder
	now      func() time.Time
}

func New() *Store {
	return &Store{
		applications: make(map[string]*models.Application),
		interviews:   make(map[string]*models.Interview),
		users:        make(map[string]models.User),
		students:     make(map[string]models.Student),
		allocations:  make(map[string]models.Allocation),
		rooms:        make(map[string]models.Room),
		locks:        make(map[string]*sync.Mutex),
		recorder:     audit.NewMemoryRecorder(),
		now:          time.Now,
	}
}

var _ lifecycle.Store = (*Store)(nil)

func (s *Store) lockFor(id string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func (s *Store) CreateApplication(ctx context.Context, app *models.Application, entry models.AuditEntry) (models.AuditEntry, error) {
	entry, err := audit.Prepare(entry, s.now())
	if err != nil {
		return entry, err
	}

	s.mu.Lock()
	for _, existing := range s.applications {
		if existing.TrackingNumber == app.TrackingNumber {
			s.mu.Unlock()
			return entry, apperrors.NewInvalidFieldError("trackingNumber", "already in use")
		}
	}
	s.applications[app.ID] = app.Clone()
	s.mu.Unlock()

	return s.recorder.Append(ctx, entry)
}

// PutApplication seeds a record as-is, bypassing the lifecycle.
func (s *Store) PutApplication(app *models.Application) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.applications[app.ID] = app.Clone()
}

func (s *Store) PutInterview(iv *models.Interview) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interviews[iv.ApplicationID] = iv.Clone()
}

func (s *Store) GetApplication(_ context.Context, id string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.applications[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("application", id)
	}
	return app.Clone(), nil
}

func (s *Store) GetInterview(_ context.Context, applicationID string) (*models.Interview, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	iv, ok := s.interviews[applicationID]
	if !ok {
		return nil, apperrors.NewNotFoundError("interview", applicationID)
	}
	return iv.Clone(), nil
}

func (s *Store) Mutate(ctx context.Context, id string, fn func(*lifecycle.Mutation) error) (*lifecycle.Mutation, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	s.mu.RLock()
	app, ok := s.applications[id]
	iv := s.interviews[id]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.NewNotFoundError("application", id)
	}

	mu := lifecycle.NewMutation(app, iv)
	if err := fn(mu); err != nil {
		return nil, err
	}

	entries := make([]models.AuditEntry, 0, len(mu.Entries()))
	for _, e := range mu.Entries() {
		prepared, err := audit.Prepare(e, s.now())
		if err != nil {
			return nil, err
		}
		entries = append(entries, prepared)
	}

	s.mu.Lock()
	s.applications[id] = mu.Application.Clone()
	if mu.InterviewChanged() && mu.Interview != nil {
		s.interviews[id] = mu.Interview.Clone()
	}
	s.mu.Unlock()

	for i, e := range entries {
		stored, err := s.recorder.Append(ctx, e)
		if err != nil {
			return nil, err
		}
		entries[i] = stored
	}
	mu.ReplaceEntries(entries)
	return mu, nil
}

func (s *Store) LinkResident(_ context.Context, applicationID, residentID string) error {
	l := s.lockFor(applicationID)
	l.Lock()
	defer l.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.applications[applicationID]
	if !ok {
		return apperrors.NewNotFoundError("application", applicationID)
	}
	app.ResidentID = residentID
	return nil
}

func (s *Store) ListAudit(ctx context.Context, applicationID string) ([]models.AuditEntry, error) {
	return s.recorder.ListFor(ctx, applicationID)
}

// Recorder exposes the audit log for corrections.
func (s *Store) Recorder() audit.Recorder {
	return s.recorder
}

// --- reconciliation sources ---

// Sources returns the store as every reconciliation source.
func (s *Store) Sources() reconcile.Sources {
	return reconcile.Sources{Users: s, Students: s, Applications: s, Allocations: s}
}

func (s *Store) PutUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) PutStudent(st models.Student) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.students[st.ID] = st
}

func (s *Store) PutAllocation(a models.Allocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allocations[a.ID] = a
}

func (s *Store) PutRoom(r models.Room) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[r.ID] = r
}

func (s *Store) ParentsByMobile(_ context.Context, key string) ([]models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.User
	for _, u := range s.users {
		if strings.EqualFold(string(u.Role), string(models.RoleParent)) && identity.MatchAny(key, u.Mobile) {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) StudentsByIDs(_ context.Context, ids []string) ([]models.Student, error) {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Student
	for _, st := range s.students {
		if want[st.ID] || (st.UserID != "" && want[st.UserID]) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) StudentsByGuardianMobile(_ context.Context, key string) ([]models.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Student
	for _, st := range s.students {
		if identity.MatchAny(key, st.GuardianMobiles()...) {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ApplicationsByGuardianMobile(_ context.Context, key string) ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Application
	for _, app := range s.applications {
		if identity.MatchAny(key, app.GuardianMobiles()...) {
			out = append(out, *app.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) ActiveAllocations(_ context.Context, studentIDs, applicationIDs []string) ([]models.Allocation, error) {
	students := toSet(studentIDs)
	apps := toSet(applicationIDs)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Allocation
	for _, a := range s.allocations {
		if !a.Active {
			continue
		}
		if (a.StudentID != "" && students[a.StudentID]) || (a.ApplicationID != "" && apps[a.ApplicationID]) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *Store) RoomsByIDs(_ context.Context, ids []string) ([]models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Room
	for _, id := range ids {
		if r, ok := s.rooms[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

func toSet(ids []string) map[string]bool {
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out
}

// CreateResident stores st unless a resident already exists for the same
// application, in which case the existing record is returned.
func (s *Store) CreateResident(_ context.Context, st models.Student) (models.Student, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ApplicationID != "" {
		for _, existing := range s.students {
			if existing.ApplicationID == st.ApplicationID {
				return existing, nil
			}
		}
	}
	s.students[st.ID] = st
	return st, nil
}
