// internal/workers/data-access/list-audit/handler.go
package listaudit

import (
	"context"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hostel-admissions/internal/common/camunda"
	"hostel-admissions/internal/models"
	"hostel-admissions/internal/workers"
)

const TaskType = "list-audit"

type AuditReader interface {
	ListAudit(ctx context.Context, applicationID string) ([]models.AuditEntry, error)
}

type Handler struct {
	config  *Config
	service AuditReader
	spec    camunda.JobSpec
}

func NewHandler(config *Config, service AuditReader, rt workers.Runtime) *Handler {
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
	entries, err := h.service.ListAudit(ctx, input.ApplicationID)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.AuditEntry{}
	}
	return &Output{ApplicationID: input.ApplicationID, Entries: entries, Count: len(entries)}, nil
}
