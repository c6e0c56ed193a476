// internal/workers/interview/update-interview/handler.go
package updateinterview

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hostel-admissions/internal/common/camunda"
	apperrors "hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
	scheduleinterview "hostel-admissions/internal/workers/interview/schedule-interview"
)

const TaskType = "update-interview"

type Updater interface {
	JoinInterview(ctx context.Context, applicationID string, actor models.Actor) (*lifecycle.Outcome, error)
	RescheduleInterview(ctx context.Context, req lifecycle.ScheduleRequest) (*lifecycle.Outcome, error)
	CancelInterview(ctx context.Context, applicationID string, actor models.Actor, remarks string) (*lifecycle.Outcome, error)
	MarkInterviewMissed(ctx context.Context, applicationID string, actor models.Actor, remarks string) (*lifecycle.Outcome, error)
}

type Handler struct {
	config  *Config
	service Updater
	spec    camunda.JobSpec
}

func NewHandler(config *Config, service Updater, rt workers.Runtime) *Handler {
	return &Handler{
		config:  config,
		service: service,
		spec:    rt.Spec(TaskType, inputSchema, workers.Config{Timeout: config.Timeout}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(client, job, h.spec, h.Execute)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	var (
		outcome *lifecycle.Outcome
		err     error
	)
	switch input.Action {
	case ActionJoin:
		outcome, err = h.service.JoinInterview(ctx, input.ApplicationID, input.Actor)
	case ActionReschedule:
		outcome, err = h.service.RescheduleInterview(ctx, lifecycle.ScheduleRequest{
			ApplicationID:  input.ApplicationID,
			Date:           input.Date,
			Time:           input.Time,
			Mode:           input.Mode,
			LocationOrLink: input.LocationOrLink,
			Actor:          input.Actor,
			Remarks:        input.Remarks,
		})
	case ActionCancel:
		outcome, err = h.service.CancelInterview(ctx, input.ApplicationID, input.Actor, input.Remarks)
	case ActionMissed:
		outcome, err = h.service.MarkInterviewMissed(ctx, input.ApplicationID, input.Actor, input.Remarks)
	default:
		return nil, apperrors.NewInvalidFieldError("action", "must be one of join, reschedule, cancel, missed")
	}
	if err != nil {
		return nil, err
	}
	return scheduleinterview.NewOutput(outcome), nil
}
