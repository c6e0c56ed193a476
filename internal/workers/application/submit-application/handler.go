// internal/workers/application/submit-application/handler.go
package submitapplication

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hostel-admissions/internal/common/camunda"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/workers"
)

const TaskType = "submit-application"

type Submitter interface {
	Submit(ctx context.Context, req lifecycle.SubmitRequest) (*lifecycle.Outcome, error)
}

type Handler struct {
	config  *Config
	service Submitter
	logger  logger.Logger
	spec    camunda.JobSpec
}

func NewHandler(config *Config, service Submitter, rt workers.Runtime) *Handler {
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

// Execute creates the application record and returns its tracking number.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	outcome, err := h.service.Submit(ctx, *input)
	if err != nil {
		return nil, err
	}
	h.logger.Info("application submitted", map[string]interface{}{
		"applicationId":  outcome.Application.ID,
		"trackingNumber": outcome.Application.TrackingNumber,
		"vertical":       string(outcome.Application.Vertical),
	})
	return workers.FromOutcome(outcome), nil
}
