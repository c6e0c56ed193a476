// internal/workers/application/review-application/handler.go
package reviewapplication

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hostel-admissions/internal/common/camunda"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
)

const TaskType = "review-application"

type Reviewer interface {
	StartReview(ctx context.Context, applicationID string, actor models.Actor, remarks string) (*lifecycle.Outcome, error)
}

type Handler struct {
	config  *Config
	service Reviewer
	spec    camunda.JobSpec
}

func NewHandler(config *Config, service Reviewer, rt workers.Runtime) *Handler {
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
	outcome, err := h.service.StartReview(ctx, input.ApplicationID, input.Actor, input.Remarks)
	if err != nil {
		return nil, err
	}
	return workers.FromOutcome(outcome), nil
}
