// internal/workers/interview/schedule-interview/handler.go
package scheduleinterview

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hostel-admissions/internal/common/camunda"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/workers"
)

const TaskType = "schedule-interview"

type Scheduler interface {
	ScheduleInterview(ctx context.Context, req lifecycle.ScheduleRequest) (*lifecycle.Outcome, error)
}

type Handler struct {
	config  *Config
	service Scheduler
	spec    camunda.JobSpec
}

func NewHandler(config *Config, service Scheduler, rt workers.Runtime) *Handler {
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
	outcome, err := h.service.ScheduleInterview(ctx, *input)
	if err != nil {
		return nil, err
	}
	return NewOutput(outcome), nil
}

// NewOutput adds the slot of the outcome's interview.
func NewOutput(outcome *lifecycle.Outcome) *Output {
	out := &Output{TransitionOutput: *workers.FromOutcome(outcome)}
	if iv := outcome.Interview; iv != nil {
		out.InterviewID = iv.ID
		out.ScheduledDate = iv.ScheduledDate
		out.ScheduledTime = iv.ScheduledTime
		out.Mode = iv.Mode
	}
	return out
}
