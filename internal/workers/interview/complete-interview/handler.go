// internal/workers/interview/complete-interview/handler.go
package completeinterview

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hostel-admissions/internal/common/camunda"
	"hostel-admissions/internal/lifecycle"
	"hostel-admissions/internal/workers"
)

const TaskType = "complete-interview"

type Completer interface {
	CompleteInterview(ctx context.Context, req lifecycle.CompleteRequest) (*lifecycle.Outcome, error)
}

type Handler struct {
	config  *Config
	service Completer
	spec    camunda.JobSpec
}

func NewHandler(config *Config, service Completer, rt workers.Runtime) *Handler {
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
	outcome, err := h.service.CompleteInterview(ctx, *input)
	if err != nil {
		return nil, err
	}
	out := &Output{TransitionOutput: *workers.FromOutcome(outcome)}
	if iv := outcome.Interview; iv != nil && iv.Evaluation != nil {
		out.Score = iv.Evaluation.OverallScore
		out.Recommendation = string(iv.Evaluation.Recommendation)
	}
	return out, nil
}
