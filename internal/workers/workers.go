// Package workers holds what every admission job worker shares: runtime
// dependencies, the actor schema fragment and the transition output.
package workers

import (
	"hostel-admissions/internal/common/camunda"
	"hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/common/observability"
	"hostel-admissions/internal/common/validation"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
)

// Runtime is handed to every handler constructor.
type Runtime struct {
	Logger        logger.Logger
	Observability *observability.Observability
}

// Spec builds the job plumbing for taskType with a scoped logger.
func (r Runtime) Spec(taskType string, schema *validation.Schema, cfg Config) camunda.JobSpec {
	log := r.Logger.WithFields(map[string]interface{}{"taskType": taskType})
	return camunda.JobSpec{
		TaskType:      taskType,
		Schema:        schema,
		Timeout:       cfg.Timeout,
		Logger:        log,
		ErrorHandler:  errors.NewErrorHandler(log),
		Observability: r.Observability,
	}
}

// ActorSchema is the JSON schema of the acting user, embedded by task schemas.
const ActorSchema = `{
	"type": "object",
	"required": ["id", "role"],
	"properties": {
		"id": {"type": "string", "minLength": 1},
		"name": {"type": "string"},
		"role": {"type": "string", "enum": ["APPLICANT", "STUDENT", "PARENT", "SUPERINTENDENT", "TRUSTEE", "ACCOUNTS", "SYSTEM"]}
	}
}`

// TransitionOutput is completed on the job after a lifecycle operation.
type TransitionOutput struct {
	ApplicationID   string                   `json:"applicationId"`
	TrackingNumber  string                   `json:"trackingNumber"`
	Status          models.ApplicationStatus `json:"status"`
	InterviewStatus models.InterviewStatus   `json:"interviewStatus,omitempty"`
	ResidentID      string                   `json:"residentId,omitempty"`
	AuditID         string                   `json:"auditId"`
	AuditAction     models.AuditAction       `json:"auditAction"`
	Warnings        []string                 `json:"warnings,omitempty"`
}

func FromOutcome(o *lifecycle.Outcome) *TransitionOutput {
	out := &TransitionOutput{
		ApplicationID:  o.Application.ID,
		TrackingNumber: o.Application.TrackingNumber,
		Status:         o.Application.Status,
		ResidentID:     o.Application.ResidentID,
		AuditID:        o.Audit.ID,
		AuditAction:    o.Audit.Action,
		Warnings:       o.Warnings,
	}
	if o.Interview != nil {
		out.InterviewStatus = o.Interview.Status
	}
	return out
}
