// internal/workers/application/final-decision/handler.go
package finaldecision

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hostel-admissions/internal/common/camunda"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
)

const TaskType = "final-decision"

type Decider interface {
	FinalDecide(ctx context.Context, applicationID string, actor models.Actor, approve bool, remarks string) (*lifecycle.Outcome, error)
}

type Handler struct {
	config  *Config
	service Decider
	logger  logger.Logger
	spec    camunda.JobSpec
}

func NewHandler(config *Config, service Decider, rt workers.Runtime) *Handler {
	spec := rt.Spec(TaskType, inputSchema, workers.Config{Timeout: config.Timeout})
	return &Handler{
		config:  config,
		service: service,
		logger:  spec.Logger,
		spec:    spec,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(client, job, h.spec, h.Execute)
}

// Execute records the final decision. An approval whose account could not be
// created still completes the job; the warning travels in the output.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	outcome, err := h.service.FinalDecide(ctx, input.ApplicationID, input.Actor, input.Approve, input.Remarks)
	if err != nil {
		return nil, err
	}

	out := &Output{
		TransitionOutput: *workers.FromOutcome(outcome),
		AccountCreated:   outcome.Application.ResidentID != "",
	}
	if input.Approve && !out.AccountCreated {
		h.logger.Warn("application approved without a student account", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"warnings":      outcome.Warnings,
		})
	}
	return out, nil
}
