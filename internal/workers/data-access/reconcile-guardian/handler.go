// internal/workers/data-access/reconcile-guardian/handler.go
package reconcileguardian

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hostel-admissions/internal/common/camunda"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/reconcile"
	"hostel-admissions/internal/workers"
)

const TaskType = "reconcile-guardian"

type Reconciler interface {
	Reconcile(ctx context.Context, contact string) (*reconcile.GuardianView, error)
}

type Handler struct {
	config  *Config
	service Reconciler
	logger  logger.Logger
	spec    camunda.JobSpec
}

func NewHandler(config *Config, service Reconciler, rt workers.Runtime) *Handler {
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

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	view, err := h.service.Reconcile(ctx, input.Contact)
	if err != nil {
		return nil, err
	}
	if len(view.Degraded) > 0 {
		h.logger.Warn("guardian view is partial", map[string]interface{}{
			"degraded": view.Degraded,
			"wards":    len(view.Wards),
		})
	}

	out := &Output{
		Contact:   view.Contact,
		Wards:     view.Wards,
		WardCount: len(view.Wards),
		Degraded:  view.Degraded,
	}
	if ward, ok := view.Single(); ok {
		out.Ward = &ward
	}
	return out, nil
}
