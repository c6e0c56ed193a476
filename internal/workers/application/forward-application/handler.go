// internal/workers/application/forward-application/handler.go
package forwardapplication

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

const TaskType = "forward-application"

type Forwarder interface {
	Forward(ctx context.Context, applicationID string, actor models.Actor, rec models.Recommendation, remarks string) (*lifecycle.Outcome, error)
}

type Handler struct {
	config  *Config
	service Forwarder
	logger  logger.Logger
	spec    camunda.JobSpec
}

func NewHandler(config *Config, service Forwarder, rt workers.Runtime) *Handler {
	spec := rt.Spec(TaskType, inputSchema, workers.Config{Timeout: config.Timeout})
	return &Handler{config: config, service: service, logger: spec.Logger, spec: spec}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	camunda.Process(client, job, h.spec, h.Execute)
}

// Execute forwards a reviewed application with the superintendent's
// recommendation.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	outcome, err := h.service.Forward(ctx, input.ApplicationID, input.Actor, input.Recommendation, input.Remarks)
	if err != nil {
		return nil, err
	}
	if len(outcome.Warnings) > 0 {
		h.logger.Warn("forwarded with warnings", map[string]interface{}{
			"applicationId": input.ApplicationID,
			"warnings":      outcome.Warnings,
		})
	}
	return &Output{
		TransitionOutput: *workers.FromOutcome(outcome),
		ForwardedBy:      outcome.Application.ForwardedBy,
	}, nil
}
