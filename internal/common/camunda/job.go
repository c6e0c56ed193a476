// internal/common/camunda/job.go
package camunda

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"hostel-admissions/internal/common/errors"
	"hostel-admissions/internal/common/logger"
	"hostel-admissions/internal/common/metrics"
	"hostel-admissions/internal/common/observability"
	"hostel-admissions/internal/common/validation"
)

// JobSpec is the shared plumbing of one task type.
type JobSpec struct {
	TaskType      string
	Schema        *validation.Schema
	Timeout       time.Duration
	Logger        logger.Logger
	ErrorHandler  *errors.ErrorHandler
	Observability *observability.Observability
}

// Decode validates raw job variables against schema and unmarshals them.
func Decode[I any](schema *validation.Schema, variables string) (*I, error) {
	if schema != nil {
		if err := schema.Check(variables); err != nil {
			return nil, err
		}
	}
	var in I
	if variables == "" {
		return &in, nil
	}
	if err := json.Unmarshal([]byte(variables), &in); err != nil {
		return nil, errors.NewInvalidFieldError("variables", err.Error())
	}
	return &in, nil
}

// Process runs one job: decode, execute under the task timeout, then
// complete the job or hand the error to the ErrorHandler.
func Process[I any, O any](client worker.JobClient, job entities.Job, spec JobSpec, execute func(context.Context, *I) (*O, error)) {
	start := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(spec.TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(spec.TaskType).Dec()

	spec.Logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	out, err := run(ctx, spec.Schema, job.Variables, execute)
	if err != nil {
		code := string(errors.CodeOf(err))
		metrics.WorkerJobsFailed.WithLabelValues(spec.TaskType, code).Inc()
		spec.Observability.RecordJob(ctx, spec.TaskType, code, time.Since(start))
		spec.ErrorHandler.HandleJobError(context.Background(), client, job, err)
		return
	}

	if err := complete(client, job, out); err != nil {
		spec.Logger.Error("failed to complete job", map[string]interface{}{
			"jobKey": job.Key,
			"error":  err,
		})
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(spec.TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(spec.TaskType).Observe(time.Since(start).Seconds())
	spec.Observability.RecordJob(ctx, spec.TaskType, "completed", time.Since(start))
	spec.Logger.Info("job completed", map[string]interface{}{
		"jobKey":      job.Key,
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func run[I any, O any](ctx context.Context, schema *validation.Schema, variables string, execute func(context.Context, *I) (*O, error)) (*O, error) {
	in, err := Decode[I](schema, variables)
	if err != nil {
		return nil, err
	}
	return execute(ctx, in)
}

func complete(client worker.JobClient, job entities.Job, output interface{}) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return err
	}
	return Retry(context.Background(), DefaultRetryConfig, func(ctx context.Context) error {
		sendCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		_, err := cmd.Send(sendCtx)
		return err
	})
}
