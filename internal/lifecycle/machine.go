// Package lifecycle drives an admission application from submission to a
// final decision. Every successful transition is one atomic read-modify-write
// that appends exactly one audit entry.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/common/metrics"
	"hostel-admissions/internal/models"
)

// Event describes a committed transition to post-commit hooks.
type Event struct {
	Operation   string
	Action      models.AuditAction
	Application *models.Application
	Interview   *models.Interview
	Entry       models.AuditEntry
}

// Hook runs after a transition is durable. Errors become outcome warnings.
type Hook interface {
	Name() string
	AfterCommit(ctx context.Context, evt Event) error
}

// AccountMaterializer creates the student account for an approved
// application and returns the resident id it was given.
type AccountMaterializer interface {
	Materialize(ctx context.Context, app *models.Application) (string, error)
}

// Outcome is what every transition returns.
type Outcome struct {
	Application *models.Application `json:"application"`
	Interview   *models.Interview   `json:"interview,omitempty"`
	Audit       models.AuditEntry   `json:"audit"`
	Warnings    []string            `json:"warnings,omitempty"`
}

func (o *Outcome) warn(msg string) {
	o.Warnings = append(o.Warnings, msg)
}

type Machine struct {
	store        Store
	materializer AccountMaterializer
	hooks        []Hook
	verticals    *models.VerticalTable
	validate     *validator.Validate
	logger       logger.Logger
	now          func() time.Time
}

type Option func(*Machine)

func WithMaterializer(am AccountMaterializer) Option {
	return func(m *Machine) { m.materializer = am }
}

func WithHooks(hooks ...Hook) Option {
	return func(m *Machine) { m.hooks = append(m.hooks, hooks...) }
}

func WithVerticals(t *models.VerticalTable) Option {
	return func(m *Machine) { m.verticals = t }
}

func WithClock(now func() time.Time) Option {
	return func(m *Machine) { m.now = now }
}

func NewMachine(store Store, log logger.Logger, opts ...Option) *Machine {
	m := &Machine{
		store:     store,
		verticals: models.DefaultVerticals(),
		validate:  newValidator(),
		logger:    log.WithFields(map[string]interface{}{"component": "lifecycle"}),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// operation is one guarded transition. apply runs inside the store's unit of
// work after the status precondition holds and returns the audit action.
type operation struct {
	name          string
	applicationID string
	actor         models.Actor
	roles         []models.Role
	from          []models.ApplicationStatus
	admits        func(mu *Mutation) bool
	remarks       string
	apply         func(mu *Mutation, now time.Time) (models.AuditAction, error)
	postCommit    func(ctx context.Context, outcome *Outcome)
}

func (m *Machine) run(ctx context.Context, op operation) (*Outcome, error) {
	outcome, err := m.commit(ctx, op)
	if err != nil {
		metrics.LifecycleTransitions.WithLabelValues(op.name, string(apperrors.CodeOf(err))).Inc()
		return nil, err
	}
	metrics.LifecycleTransitions.WithLabelValues(op.name, "ok").Inc()

	if op.postCommit != nil {
		op.postCommit(ctx, outcome)
	}
	m.afterCommit(ctx, op.name, outcome)
	return outcome, nil
}

func (m *Machine) commit(ctx context.Context, op operation) (*Outcome, error) {
	if err := authorize(op.name, op.actor, op.roles); err != nil {
		return nil, err
	}

	mu, err := m.store.Mutate(ctx, op.applicationID, func(mu *Mutation) error {
		app := mu.Application
		if !statusIn(app.Status, op.from) && (op.admits == nil || !op.admits(mu)) {
			return apperrors.NewInvalidTransitionError(op.name, string(app.Status), statusNames(op.from))
		}

		from := app.Status
		now := m.now().UTC()
		action, err := op.apply(mu, now)
		if err != nil {
			return err
		}
		app.UpdatedAt = now

		mu.Record(models.AuditEntry{
			ApplicationID: app.ID,
			Action:        action,
			PerformedBy:   op.actor,
			PerformedAt:   now,
			Remarks:       op.remarks,
			FromStatus:    from,
			ToStatus:      app.Status,
		})
		return nil
	})
	if err != nil {
		return nil, storeError(err)
	}

	entries := mu.Entries()
	if len(entries) != 1 {
		return nil, fmt.Errorf("%s: expected one audit entry, store returned %d", op.name, len(entries))
	}

	outcome := &Outcome{Application: mu.Application, Interview: mu.Interview, Audit: entries[0]}
	m.logger.Info("transition committed", map[string]interface{}{
		"operation":     op.name,
		"applicationId": op.applicationID,
		"action":        string(outcome.Audit.Action),
		"fromStatus":    string(outcome.Audit.FromStatus),
		"toStatus":      string(outcome.Audit.ToStatus),
		"actorRole":     string(op.actor.Role),
	})
	return outcome, nil
}

// afterCommit fans the event out to hooks. Failures never undo the commit.
func (m *Machine) afterCommit(ctx context.Context, op string, outcome *Outcome) {
	evt := Event{
		Operation:   op,
		Action:      outcome.Audit.Action,
		Application: outcome.Application,
		Interview:   outcome.Interview,
		Entry:       outcome.Audit,
	}
	for _, h := range m.hooks {
		if err := h.AfterCommit(ctx, evt); err != nil {
			m.logger.Warn("post-commit hook failed", map[string]interface{}{
				"hook":          h.Name(),
				"applicationId": outcome.Application.ID,
				"action":        string(evt.Action),
				"error":         err,
			})
			metrics.LifecycleWarnings.WithLabelValues(h.Name()).Inc()
			outcome.warn(fmt.Sprintf("%s: %v", h.Name(), err))
		}
	}
}

// storeError keeps coded errors and marks anything else as a storage outage.
func storeError(err error) error {
	if apperrors.CodeOf(err) != apperrors.ErrCodeInternal {
		return err
	}
	return apperrors.NewUpstreamUnavailableError("store", err)
}

func authorize(action string, actor models.Actor, roles []models.Role) error {
	if len(roles) == 0 {
		return nil
	}
	if actor.Role == "" {
		return apperrors.NewMissingFieldError("actor.role")
	}
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return apperrors.NewActorNotPermittedError(action, string(actor.Role))
}

func statusIn(s models.ApplicationStatus, set []models.ApplicationStatus) bool {
	for _, candidate := range set {
		if s == candidate {
			return true
		}
	}
	return false
}

func statusNames(set []models.ApplicationStatus) []string {
	out := make([]string, len(set))
	for i, s := range set {
		out[i] = string(s)
	}
	return out
}
