// internal/workers/application/provisional-decision/handler.go
package provisionaldecision

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hostel-admissions/internal/common/camunda"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
)

const TaskType = "provisional-decision"

type Decider interface {
	ProvisionalDecide(ctx context.Context, applicationID string, actor models.Actor, approve, requiresInterview bool, remarks string) (*lifecycle.Outcome, error)
}

type Handler struct {
	config  *Config
	service Decider
	spec    camunda.JobSpec
}

func NewHandler(config *Config, service Decider, rt workers.Runtime) *Handler {
	return &Handler{
		config:  config,
		service: service,
		spec:    rt.Spec(TaskType, inputSchema, workers.Config{Timeout: config.Timeout}),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(client, job, h.spec, h.Execute)
}

// Execute records the trustee's first decision. The process routes on
// requiresInterview in the output.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	outcome, err := h.service.ProvisionalDecide(ctx, input.ApplicationID, input.Actor, input.Approve, input.RequiresInterview, input.Remarks)
	if err != nil {
		return nil, err
	}
	return &Output{
		TransitionOutput:  *workers.FromOutcome(outcome),
		RequiresInterview: outcome.Application.RequiresInterview,
	}, nil
}
