// internal/workers/application/send-applicant-message/handler.go
package sendapplicantmessage

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hostel-admissions/internal/common/camunda"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
)

const TaskType = "send-applicant-message"

type Messenger interface {
	SendMessage(ctx context.Context, applicationID string, actor models.Actor, remarks string) (*lifecycle.Outcome, error)
}

type Handler struct {
	config  *Config
	service Messenger
	spec    camunda.JobSpec
}

func NewHandler(config *Config, service Messenger, rt workers.Runtime) *Handler {
	return &Handler{
		config:  config,
		service: service,
		spec:    rt.Spec(TaskType, inputSchema, workers.Config{Timeout: config.Timeout}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(client, job, h.spec, h.Execute)
}

// Execute audits the message. Delivery happens in the notification hook, so a
// failed SMS shows up as a warning and never fails the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	outcome, err := h.service.SendMessage(ctx, input.ApplicationID, input.Actor, input.Message)
	if err != nil {
		return nil, err
	}
	return workers.FromOutcome(outcome), nil
}
