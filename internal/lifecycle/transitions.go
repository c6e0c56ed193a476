package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/common/metrics"
	"hostel-admissions/internal/models"
)

var (
	superintendentOnly = []models.Role{models.RoleSuperintendent}
	trusteeOnly        = []models.Role{models.RoleTrustee}
	staff              = []models.Role{models.RoleSuperintendent, models.RoleTrustee}
)

var openStatuses = []models.ApplicationStatus{
	models.StatusSubmitted,
	models.StatusReview,
	models.StatusForwarded,
	models.StatusProvisionallyApproved,
	models.StatusInterviewScheduled,
	models.StatusInterviewCompleted,
}

type SubmitRequest struct {
	ApplicantName   string               `json:"applicantName" validate:"required"`
	Vertical        string               `json:"vertical" validate:"required"`
	FatherMobile    string               `json:"fatherMobile" validate:"required_without=MotherMobile"`
	MotherMobile    string               `json:"motherMobile"`
	ApplicantMobile string               `json:"applicantMobile"`
	ApplicantEmail  string               `json:"applicantEmail" validate:"omitempty,email"`
	PaymentStatus   models.PaymentStatus `json:"paymentStatus" validate:"omitempty,oneof=PAID PENDING FAILED"`
	Flags           []string             `json:"flags"`
	Actor           models.Actor         `json:"actor"`
}

// Submit creates the application and moves it straight from DRAFT to SUBMITTED.
func (m *Machine) Submit(ctx context.Context, req SubmitRequest) (*Outcome, error) {
	req.ApplicantName = strings.TrimSpace(req.ApplicantName)
	if err := checkRequest(m.validate, req); err != nil {
		return nil, err
	}
	vertical, ok := m.verticals.Parse(req.Vertical)
	if !ok {
		return nil, apperrors.NewInvalidFieldError("vertical", fmt.Sprintf("unknown vertical %q", req.Vertical))
	}

	now := m.now().UTC()
	app := &models.Application{
		ID:              uuid.New().String(),
		TrackingNumber:  trackingNumber(now),
		ApplicantName:   req.ApplicantName,
		Vertical:        vertical,
		Status:          models.StatusSubmitted,
		PaymentStatus:   req.PaymentStatus,
		FatherMobile:    strings.TrimSpace(req.FatherMobile),
		MotherMobile:    strings.TrimSpace(req.MotherMobile),
		ApplicantMobile: strings.TrimSpace(req.ApplicantMobile),
		ApplicantEmail:  strings.TrimSpace(req.ApplicantEmail),
		Flags:           req.Flags,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if app.PaymentStatus == "" {
		app.PaymentStatus = models.PaymentPending
	}

	actor := req.Actor
	if actor.Role == "" {
		actor = models.Actor{Name: app.ApplicantName, Role: models.RoleApplicant}
	}

	entry, err := m.store.CreateApplication(ctx, app, models.AuditEntry{
		ApplicationID: app.ID,
		Action:        models.ActionSubmitted,
		PerformedBy:   actor,
		PerformedAt:   now,
		Remarks:       "application submitted",
		FromStatus:    models.StatusDraft,
		ToStatus:      models.StatusSubmitted,
	})
	if err != nil {
		err = storeError(err)
		metrics.LifecycleTransitions.WithLabelValues("submit", string(apperrors.CodeOf(err))).Inc()
		return nil, err
	}
	metrics.LifecycleTransitions.WithLabelValues("submit", "ok").Inc()

	outcome := &Outcome{Application: app, Audit: entry}
	m.afterCommit(ctx, "submit", outcome)
	return outcome, nil
}

// trackingNumber is HST-<year>-<6 hex>.
func trackingNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))[:6]
	return fmt.Sprintf("HST-%d-%s", now.Year(), suffix)
}

// StartReview moves a submitted application into the superintendent's review.
func (m *Machine) StartReview(ctx context.Context, applicationID string, actor models.Actor, remarks string) (*Outcome, error) {
	r, err := requireRemarks(remarks)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, operation{
		name:          "startReview",
		applicationID: applicationID,
		actor:         actor,
		roles:         superintendentOnly,
		from:          []models.ApplicationStatus{models.StatusSubmitted},
		remarks:       r,
		apply: func(mu *Mutation, _ time.Time) (models.AuditAction, error) {
			mu.Application.Status = models.StatusReview
			return models.ActionReviewStarted, nil
		},
	})
}

// Forward records the superintendent's recommendation: REVIEW -> FORWARDED.
func (m *Machine) Forward(ctx context.Context, applicationID string, actor models.Actor, rec models.Recommendation, remarks string) (*Outcome, error) {
	r, err := requireRemarks(remarks)
	if err != nil {
		return nil, err
	}
	if rec == "" {
		return nil, apperrors.NewMissingFieldError("recommendation")
	}
	if !rec.Valid() {
		return nil, apperrors.NewInvalidFieldError("recommendation", fmt.Sprintf("unknown recommendation %q", rec))
	}
	return m.run(ctx, operation{
		name:          "forward",
		applicationID: applicationID,
		actor:         actor,
		roles:         superintendentOnly,
		from:          []models.ApplicationStatus{models.StatusReview},
		remarks:       r,
		apply: func(mu *Mutation, now time.Time) (models.AuditAction, error) {
			mu.Application.ForwardedBy = &models.ForwardRecord{
				ByID:           actor.ID,
				ByName:         actor.Name,
				At:             now,
				Recommendation: rec,
				Remarks:        r,
			}
			mu.Application.Status = models.StatusForwarded
			return models.ActionForwarded, nil
		},
	})
}

// ProvisionalDecide is the trustee's first decision on a forwarded application.
// Approval never creates an interview; requiresInterview only decides whether
// one must be completed before the final decision.
func (m *Machine) ProvisionalDecide(ctx context.Context, applicationID string, actor models.Actor, approve, requiresInterview bool, remarks string) (*Outcome, error) {
	r, err := requireRemarks(remarks)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, operation{
		name:          "provisionalDecide",
		applicationID: applicationID,
		actor:         actor,
		roles:         trusteeOnly,
		from:          []models.ApplicationStatus{models.StatusForwarded},
		remarks:       r,
		apply: func(mu *Mutation, _ time.Time) (models.AuditAction, error) {
			if !approve {
				mu.Application.Status = models.StatusRejected
				return models.ActionRejected, nil
			}
			mu.Application.Status = models.StatusProvisionallyApproved
			mu.Application.RequiresInterview = requiresInterview
			return models.ActionProvisionallyApproved, nil
		},
	})
}

// FinalDecide approves or rejects. Approval is legal from INTERVIEW_COMPLETED,
// or from PROVISIONALLY_APPROVED when the interview was waived. Rejection is
// also legal straight from FORWARDED.
func (m *Machine) FinalDecide(ctx context.Context, applicationID string, actor models.Actor, approve bool, remarks string) (*Outcome, error) {
	r, err := requireRemarks(remarks)
	if err != nil {
		return nil, err
	}
	op := operation{
		name:          "finalDecide",
		applicationID: applicationID,
		actor:         actor,
		roles:         trusteeOnly,
		from: []models.ApplicationStatus{
			models.StatusForwarded,
			models.StatusProvisionallyApproved,
			models.StatusInterviewCompleted,
		},
		remarks: r,
		apply: func(mu *Mutation, _ time.Time) (models.AuditAction, error) {
			app := mu.Application
			if !approve {
				app.Status = models.StatusRejected
				return models.ActionRejected, nil
			}
			switch {
			case app.Status == models.StatusForwarded:
				return "", apperrors.NewInvalidTransitionError("finalDecide(approve)", string(app.Status),
					[]string{string(models.StatusProvisionallyApproved), string(models.StatusInterviewCompleted)})
			case app.Status == models.StatusProvisionallyApproved && app.RequiresInterview:
				return "", apperrors.NewInvalidTransitionError("finalDecide(approve)", string(app.Status),
					[]string{string(models.StatusInterviewCompleted)})
			}
			app.Status = models.StatusApproved
			return models.ActionApproved, nil
		},
	}
	if approve {
		op.postCommit = m.materialize
	} else {
		op.admits = interviewLapsed
	}
	return m.run(ctx, op)
}

// interviewLapsed lets a rejection close an application whose interview was
// cancelled or missed without rescheduling it first.
func interviewLapsed(mu *Mutation) bool {
	if mu.Application.Status != models.StatusInterviewScheduled || mu.Interview == nil {
		return false
	}
	return mu.Interview.Status == models.InterviewMissed || mu.Interview.Status == models.InterviewCancelled
}

// materialize creates the student account after APPROVED is durable and links
// the resident id. Failure is reported, never rolled back.
func (m *Machine) materialize(ctx context.Context, outcome *Outcome) {
	if m.materializer == nil {
		return
	}
	app := outcome.Application
	residentID, err := m.materializer.Materialize(ctx, app)
	if err != nil {
		m.logger.Warn("account materialization failed", map[string]interface{}{
			"applicationId": app.ID,
			"error":         err,
		})
		metrics.LifecycleWarnings.WithLabelValues("accounts").Inc()
		outcome.warn(fmt.Sprintf("accounts: %v", err))
		return
	}
	if err := m.store.LinkResident(ctx, app.ID, residentID); err != nil {
		m.logger.Warn("linking resident failed", map[string]interface{}{
			"applicationId": app.ID,
			"residentId":    residentID,
			"error":         err,
		})
		metrics.LifecycleWarnings.WithLabelValues("store").Inc()
		outcome.warn(fmt.Sprintf("store: resident %s created but not linked: %v", residentID, err))
		return
	}
	app.ResidentID = residentID
}

// SendMessage records a message to the applicant without changing status.
func (m *Machine) SendMessage(ctx context.Context, applicationID string, actor models.Actor, remarks string) (*Outcome, error) {
	r, err := requireRemarks(remarks)
	if err != nil {
		return nil, err
	}
	return m.run(ctx, operation{
		name:          "sendMessage",
		applicationID: applicationID,
		actor:         actor,
		roles:         staff,
		from:          openStatuses,
		remarks:       r,
		apply: func(_ *Mutation, _ time.Time) (models.AuditAction, error) {
			return models.ActionMessageSent, nil
		},
	})
}

// ListAudit returns the application's entries in chronological order.
func (m *Machine) ListAudit(ctx context.Context, applicationID string) ([]models.AuditEntry, error) {
	if strings.TrimSpace(applicationID) == "" {
		return nil, apperrors.NewMissingFieldError("applicationId")
	}
	if _, err := m.store.GetApplication(ctx, applicationID); err != nil {
		return nil, storeError(err)
	}
	entries, err := m.store.ListAudit(ctx, applicationID)
	if err != nil {
		return nil, storeError(err)
	}
	return entries, nil
}

// Application returns the current record and its interview, if any.
func (m *Machine) Application(ctx context.Context, applicationID string) (*models.Application, *models.Interview, error) {
	app, err := m.store.GetApplication(ctx, applicationID)
	if err != nil {
		return nil, nil, storeError(err)
	}
	iv, err := m.store.GetInterview(ctx, applicationID)
	if err != nil && !apperrors.Is(err, apperrors.ErrCodeNotFound) {
		return nil, nil, storeError(err)
	}
	return app, iv, nil
}
