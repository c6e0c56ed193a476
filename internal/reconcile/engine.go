// Package reconcile merges a guardian's wards from linked accounts,
// applications and resident records into one deduplicated view.
package reconcile

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/common/metrics"
	"hostel-admissions/internal/identity"
	"hostel-admissions/internal/models"
)

// Source names used in degraded lists, metrics and logs.
const (
	SourceLinked       = "linked_accounts"
	SourceApplications = "applications"
	SourceResidents    = "residents"
	SourceAllocations  = "allocations"
)

// GuardianView is the merged result for one guardian contact.
type GuardianView struct {
	Contact  string               `json:"contact"`
	Wards    []models.WardSummary `json:"wards"`
	Degraded []string             `json:"degraded,omitempty"`
}

// Single returns the only ward when exactly one was found.
func (v *GuardianView) Single() (models.WardSummary, bool) {
	if v == nil || len(v.Wards) != 1 {
		return models.WardSummary{}, false
	}
	return v.Wards[0], true
}

// Cache stores complete views by normalized contact.
type Cache interface {
	Get(ctx context.Context, key string) (*GuardianView, bool, error)
	Set(ctx context.Context, key string, view *GuardianView) error
}

type Option func(*Engine)

func WithCache(c Cache) Option {
	return func(e *Engine) { e.cache = c }
}

func WithVerticals(t *models.VerticalTable) Option {
	return func(e *Engine) { e.verticals = t }
}

type Engine struct {
	sources   Sources
	cache     Cache
	verticals *models.VerticalTable
	logger    logger.Logger
}

func NewEngine(sources Sources, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		sources:   sources,
		verticals: models.DefaultVerticals(),
		logger:    log.WithFields(map[string]interface{}{"component": "reconcile"}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// scan holds the raw rows from the three concurrent reads.
type scan struct {
	linkedIDs []string
	linked    []models.Student
	apps      []models.Application
	residents []models.Student

	failed map[string]error
	mu     sync.Mutex
}

func (s *scan) fail(source string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed[source] = err
}

// Reconcile returns every ward reachable from the contact. A source that
// cannot be read is skipped and named in Degraded; only when all three fail
// is UPSTREAM_UNAVAILABLE returned. No wards yields NOT_FOUND.
func (e *Engine) Reconcile(ctx context.Context, contact string) (*GuardianView, error) {
	key := identity.Normalize(contact)
	if key == "" {
		return nil, apperrors.NewMissingFieldError("contact")
	}
	log := e.logger.WithFields(map[string]interface{}{"contactKey": mask(key)})

	if e.cache != nil {
		view, ok, err := e.cache.Get(ctx, key)
		if err != nil {
			log.Warn("Guardian cache read failed", map[string]interface{}{"error": err.Error()})
		} else if ok {
			metrics.Reconciliations.WithLabelValues("cache_hit").Inc()
			return view, nil
		}
	}

	s := e.scanAll(ctx, key)
	if len(s.failed) == 3 {
		errs := make([]error, 0, 3)
		for _, src := range []string{SourceLinked, SourceApplications, SourceResidents} {
			errs = append(errs, fmt.Errorf("%s: %w", src, s.failed[src]))
		}
		metrics.Reconciliations.WithLabelValues("unavailable").Inc()
		log.Error("All reconciliation sources failed", nil)
		return nil, apperrors.NewUpstreamUnavailableError("reconciliation sources", stderrors.Join(errs...))
	}

	rooms := e.roomsFor(ctx, s)

	view := &GuardianView{Contact: key, Wards: e.merge(s, rooms)}
	for _, src := range []string{SourceLinked, SourceApplications, SourceResidents, SourceAllocations} {
		if err, ok := s.failed[src]; ok {
			view.Degraded = append(view.Degraded, src)
			metrics.ReconcileSourceFailures.WithLabelValues(src).Inc()
			log.Warn("Reconciliation source skipped", map[string]interface{}{"source": src, "error": err.Error()})
		}
	}

	if len(view.Wards) == 0 {
		metrics.Reconciliations.WithLabelValues("not_found").Inc()
		return nil, apperrors.NewNotFoundError("guardian records", mask(key))
	}

	outcome := "ok"
	if len(view.Degraded) > 0 {
		outcome = "degraded"
	} else if e.cache != nil {
		if err := e.cache.Set(ctx, key, view); err != nil {
			log.Warn("Guardian cache write failed", map[string]interface{}{"error": err.Error()})
		}
	}
	metrics.Reconciliations.WithLabelValues(outcome).Inc()
	log.Debug("Guardian reconciled", map[string]interface{}{"wards": len(view.Wards), "outcome": outcome})
	return view, nil
}

func (e *Engine) scanAll(ctx context.Context, key string) *scan {
	s := &scan{failed: make(map[string]error)}
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		parents, err := e.sources.Users.ParentsByMobile(ctx, key)
		if err != nil {
			s.fail(SourceLinked, err)
			return
		}
		ids := linkedIDs(parents)
		if len(ids) == 0 {
			return
		}
		students, err := e.sources.Students.StudentsByIDs(ctx, ids)
		if err != nil {
			s.fail(SourceLinked, err)
			return
		}
		s.linkedIDs, s.linked = ids, students
	}()

	go func() {
		defer wg.Done()
		apps, err := e.sources.Applications.ApplicationsByGuardianMobile(ctx, key)
		if err != nil {
			s.fail(SourceApplications, err)
			return
		}
		s.apps = apps
	}()

	go func() {
		defer wg.Done()
		residents, err := e.sources.Students.StudentsByGuardianMobile(ctx, key)
		if err != nil {
			s.fail(SourceResidents, err)
			return
		}
		s.residents = residents
	}()

	wg.Wait()
	return s
}

// placement maps student and application ids to a room display string.
type placement struct {
	byStudent     map[string]string
	byApplication map[string]string
}

func (p placement) student(id string) (string, bool) {
	room, ok := p.byStudent[id]
	return room, ok
}

func (p placement) application(id string) (string, bool) {
	room, ok := p.byApplication[id]
	return room, ok
}

// roomsFor resolves allocation -> room for everything the scans returned.
// Failures leave every ward unallocated and mark allocations degraded.
func (e *Engine) roomsFor(ctx context.Context, s *scan) placement {
	p := placement{byStudent: map[string]string{}, byApplication: map[string]string{}}
	if e.sources.Allocations == nil {
		return p
	}

	var studentIDs, appIDs []string
	for _, st := range s.linked {
		studentIDs = append(studentIDs, st.ID)
	}
	for _, st := range s.residents {
		studentIDs = append(studentIDs, st.ID)
	}
	for _, app := range s.apps {
		appIDs = append(appIDs, app.ID)
	}
	if len(studentIDs) == 0 && len(appIDs) == 0 {
		return p
	}

	allocs, err := e.sources.Allocations.ActiveAllocations(ctx, studentIDs, appIDs)
	if err != nil {
		s.failed[SourceAllocations] = err
		return p
	}
	if len(allocs) == 0 {
		return p
	}
	roomIDs := make([]string, 0, len(allocs))
	for _, a := range allocs {
		roomIDs = append(roomIDs, a.RoomID)
	}
	rooms, err := e.sources.Allocations.RoomsByIDs(ctx, roomIDs)
	if err != nil {
		s.failed[SourceAllocations] = err
		return p
	}
	numbers := make(map[string]string, len(rooms))
	for _, r := range rooms {
		numbers[r.ID] = r.Number
	}

	for _, a := range allocs {
		display := ""
		if n, ok := numbers[a.RoomID]; ok {
			display = "Room " + n
		}
		if a.StudentID != "" {
			p.byStudent[a.StudentID] = display
		}
		if a.ApplicationID != "" {
			p.byApplication[a.ApplicationID] = display
		}
	}
	return p
}

// merge applies the precedence linked accounts, then applications, then
// residents. Ids dedup everything; names additionally suppress applications
// of people already represented by a student record.
func (e *Engine) merge(s *scan, rooms placement) []models.WardSummary {
	seen := make(map[string]bool)
	names := make(map[string]bool)
	wards := make([]models.WardSummary, 0, len(s.linked)+len(s.apps)+len(s.residents))

	mark := func(w models.WardSummary) {
		seen[w.ID] = true
		if w.UserID != "" {
			seen[w.UserID] = true
		}
		names[nameKey(w.Name)] = true
	}
	known := func(st models.Student) bool {
		return seen[st.ID] || (st.UserID != "" && seen[st.UserID])
	}

	byID := make(map[string]models.Student, len(s.linked)*2)
	for _, st := range s.linked {
		byID[st.ID] = st
		if st.UserID != "" {
			byID[st.UserID] = st
		}
	}
	for _, id := range s.linkedIDs {
		st, ok := byID[id]
		if !ok || known(st) {
			continue
		}
		w := e.fromStudent(st, rooms, models.SourceLinkedAccount)
		wards = append(wards, w)
		mark(w)
	}

	for _, st := range s.residents {
		if !known(st) {
			names[nameKey(st.FullName)] = true
		}
	}

	for i := range s.apps {
		app := &s.apps[i]
		if seen[app.ID] || names[nameKey(app.ApplicantName)] || models.RepresentedByResident(app) {
			continue
		}
		w := e.fromApplication(app, rooms)
		wards = append(wards, w)
		seen[w.ID] = true
	}

	for _, st := range s.residents {
		if known(st) {
			continue
		}
		w := e.fromStudent(st, rooms, models.SourceResident)
		wards = append(wards, w)
		mark(w)
	}
	return wards
}

func (e *Engine) fromStudent(st models.Student, rooms placement, src models.WardSource) models.WardSummary {
	room, allocated := rooms.student(st.ID)
	vertical := e.vertical(st.Vertical)
	return models.WardSummary{
		ID:            st.ID,
		UserID:        st.UserID,
		Name:          strings.TrimSpace(st.FullName),
		Vertical:      vertical,
		VerticalLabel: e.verticals.Label(vertical),
		Status:        models.DeriveResidentStatus(st.Status, allocated),
		Room:          room,
		Source:        src,
	}
}

func (e *Engine) fromApplication(app *models.Application, rooms placement) models.WardSummary {
	room, allocated := rooms.application(app.ID)
	vertical := e.vertical(app.Vertical)
	return models.WardSummary{
		ID:             app.ID,
		Name:           strings.TrimSpace(app.ApplicantName),
		Vertical:       vertical,
		VerticalLabel:  e.verticals.Label(vertical),
		TrackingNumber: app.TrackingNumber,
		Status:         models.DeriveApplicationStatus(app.Status, allocated),
		Room:           room,
		Source:         models.SourceApplication,
	}
}

// vertical canonicalizes legacy keys; unknown values pass through.
func (e *Engine) vertical(v models.Vertical) models.Vertical {
	if parsed, ok := e.verticals.Parse(string(v)); ok {
		return parsed
	}
	return v
}

func linkedIDs(parents []models.User) []string {
	var ids []string
	dup := make(map[string]bool)
	for _, p := range parents {
		for _, id := range p.LinkedStudentIDs {
			id = strings.TrimSpace(id)
			if id == "" || dup[id] {
				continue
			}
			dup[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// mask keeps the last four digits for logs.
func mask(key string) string {
	if len(key) <= 4 {
		return key
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}
