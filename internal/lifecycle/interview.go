package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/models"
)

var interviewers = []models.Role{models.RoleTrustee}

// joiners may open an interview session.
var joiners = []models.Role{models.RoleTrustee, models.RoleApplicant, models.RoleStudent}

var interviewPending = []models.ApplicationStatus{models.StatusInterviewScheduled}

type ScheduleRequest struct {
	ApplicationID  string               `json:"applicationId" validate:"required"`
	Date           string               `json:"date" validate:"required,datetime=2006-01-02"`
	Time           string               `json:"time" validate:"required,datetime=15:04"`
	Mode           models.InterviewMode `json:"mode" validate:"required,oneof=ONLINE PHYSICAL"`
	LocationOrLink string               `json:"locationOrLink" validate:"required"`
	Actor          models.Actor         `json:"actor"`
	Remarks        string               `json:"remarks,omitempty"`
}

type CompleteRequest struct {
	ApplicationID string             `json:"applicationId"`
	Evaluation    *models.Evaluation `json:"evaluation"`
	Actor         models.Actor       `json:"actor"`
	Remarks       string             `json:"remarks,omitempty"`
}

func (m *Machine) checkSchedule(req *ScheduleRequest) error {
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)
	req.LocationOrLink = strings.TrimSpace(req.LocationOrLink)
	if err := checkRequest(m.validate, *req); err != nil {
		return err
	}
	if req.Mode == models.ModeOnline {
		if err := m.validate.Var(req.LocationOrLink, "url"); err != nil {
			return apperrors.NewInvalidFieldError("locationOrLink", "online interviews need a meeting link URL")
		}
	}
	return nil
}

// place sets the mode and exactly one of meeting link or location.
func place(iv *models.Interview, req ScheduleRequest) {
	iv.ScheduledDate = req.Date
	iv.ScheduledTime = req.Time
	iv.Mode = req.Mode
	iv.MeetingLink, iv.Location = "", ""
	if req.Mode == models.ModeOnline {
		iv.MeetingLink = req.LocationOrLink
	} else {
		iv.Location = req.LocationOrLink
	}
}

func scheduleRemarks(req ScheduleRequest, verb string) string {
	if r := strings.TrimSpace(req.Remarks); r != "" {
		return r
	}
	return fmt.Sprintf("interview %s for %s %s (%s)", verb, req.Date, req.Time, req.Mode)
}

// ScheduleInterview creates the interview for a provisionally approved
// application and moves it to INTERVIEW_SCHEDULED.
func (m *Machine) ScheduleInterview(ctx context.Context, req ScheduleRequest) (*Outcome, error) {
	if err := m.checkSchedule(&req); err != nil {
		return nil, err
	}
	return m.run(ctx, operation{
		name:          "scheduleInterview",
		applicationID: req.ApplicationID,
		actor:         req.Actor,
		roles:         interviewers,
		from:          []models.ApplicationStatus{models.StatusProvisionallyApproved},
		remarks:       scheduleRemarks(req, "scheduled"),
		apply: func(mu *Mutation, now time.Time) (models.AuditAction, error) {
			iv := mu.Interview
			switch {
			case iv.Open():
				return "", apperrors.NewInvalidTransitionError("scheduleInterview",
					"interview "+string(iv.Status), []string{string(models.InterviewCancelled)})
			case iv == nil:
				iv = &models.Interview{
					ID:            uuid.New().String(),
					ApplicationID: mu.Application.ID,
					CreatedAt:     now,
				}
			}
			place(iv, req)
			iv.Status = models.InterviewScheduled
			iv.UpdatedAt = now
			mu.SetInterview(iv)

			mu.Application.InterviewID = iv.ID
			mu.Application.RequiresInterview = true
			mu.Application.Status = models.StatusInterviewScheduled
			return models.ActionInterviewScheduled, nil
		},
	})
}

// CompleteInterview stores a complete evaluation and moves the application to
// INTERVIEW_COMPLETED. Partial evaluations are rejected before any mutation.
func (m *Machine) CompleteInterview(ctx context.Context, req CompleteRequest) (*Outcome, error) {
	if strings.TrimSpace(req.ApplicationID) == "" {
		return nil, apperrors.NewMissingFieldError("applicationId")
	}
	if err := checkEvaluation(m.validate, req.Evaluation); err != nil {
		return nil, err
	}
	remarks := strings.TrimSpace(req.Remarks)
	if remarks == "" {
		remarks = fmt.Sprintf("interview completed, overall %d/20, recommendation %s",
			req.Evaluation.OverallScore, req.Evaluation.Recommendation)
	}

	return m.run(ctx, operation{
		name:          "completeInterview",
		applicationID: req.ApplicationID,
		actor:         req.Actor,
		roles:         interviewers,
		from:          interviewPending,
		remarks:       remarks,
		apply: func(mu *Mutation, now time.Time) (models.AuditAction, error) {
			iv, err := requireInterview(mu, "completeInterview", models.InterviewScheduled, models.InterviewInProgress)
			if err != nil {
				return "", err
			}
			ev := *req.Evaluation
			score := ev.OverallScore
			iv.Evaluation = &ev
			iv.Score = &score
			iv.Status = models.InterviewCompleted
			iv.UpdatedAt = now
			mu.SetInterview(iv)

			mu.Application.Status = models.StatusInterviewCompleted
			return models.ActionInterviewCompleted, nil
		},
	})
}

// JoinInterview opens a scheduled interview session.
func (m *Machine) JoinInterview(ctx context.Context, applicationID string, actor models.Actor) (*Outcome, error) {
	return m.updateInterview(ctx, "joinInterview", applicationID, actor, joiners, "interview joined",
		models.ActionInterviewStarted, models.InterviewInProgress, nil,
		models.InterviewScheduled)
}

// RescheduleInterview moves the same interview record to a new slot.
func (m *Machine) RescheduleInterview(ctx context.Context, req ScheduleRequest) (*Outcome, error) {
	if err := m.checkSchedule(&req); err != nil {
		return nil, err
	}
	return m.updateInterview(ctx, "rescheduleInterview", req.ApplicationID, req.Actor, interviewers,
		scheduleRemarks(req, "rescheduled"),
		models.ActionInterviewRescheduled, models.InterviewScheduled,
		func(iv *models.Interview) { place(iv, req) },
		models.InterviewScheduled, models.InterviewCancelled, models.InterviewMissed)
}

// CancelInterview cancels a pending interview. The application stays
// INTERVIEW_SCHEDULED until it is rescheduled.
func (m *Machine) CancelInterview(ctx context.Context, applicationID string, actor models.Actor, remarks string) (*Outcome, error) {
	r, err := requireRemarks(remarks)
	if err != nil {
		return nil, err
	}
	return m.updateInterview(ctx, "cancelInterview", applicationID, actor, interviewers, r,
		models.ActionInterviewCancelled, models.InterviewCancelled, nil,
		models.InterviewScheduled, models.InterviewInProgress)
}

func (m *Machine) MarkInterviewMissed(ctx context.Context, applicationID string, actor models.Actor, remarks string) (*Outcome, error) {
	r := strings.TrimSpace(remarks)
	if r == "" {
		r = "applicant did not attend"
	}
	return m.updateInterview(ctx, "markInterviewMissed", applicationID, actor, interviewers, r,
		models.ActionInterviewMissed, models.InterviewMissed, nil,
		models.InterviewScheduled)
}

// updateInterview changes only the interview; the application status stays put.
func (m *Machine) updateInterview(
	ctx context.Context,
	name, applicationID string,
	actor models.Actor,
	roles []models.Role,
	remarks string,
	action models.AuditAction,
	to models.InterviewStatus,
	edit func(*models.Interview),
	from ...models.InterviewStatus,
) (*Outcome, error) {
	if strings.TrimSpace(applicationID) == "" {
		return nil, apperrors.NewMissingFieldError("applicationId")
	}
	return m.run(ctx, operation{
		name:          name,
		applicationID: applicationID,
		actor:         actor,
		roles:         roles,
		from:          interviewPending,
		remarks:       remarks,
		apply: func(mu *Mutation, now time.Time) (models.AuditAction, error) {
			iv, err := requireInterview(mu, name, from...)
			if err != nil {
				return "", err
			}
			if edit != nil {
				edit(iv)
			}
			iv.Status = to
			iv.UpdatedAt = now
			mu.SetInterview(iv)
			return action, nil
		},
	})
}

func requireInterview(mu *Mutation, op string, allowed ...models.InterviewStatus) (*models.Interview, error) {
	iv := mu.Interview
	if iv == nil {
		return nil, apperrors.NewNotFoundError("interview", mu.Application.ID)
	}
	for _, s := range allowed {
		if iv.Status == s {
			return iv, nil
		}
	}
	required := make([]string, len(allowed))
	for i, s := range allowed {
		required[i] = string(s)
	}
	return nil, apperrors.NewInvalidTransitionError(op, "interview "+string(iv.Status), required)
}
