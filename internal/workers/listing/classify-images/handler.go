// internal/workers/listing/classify-images/handler.go
package classifyimages

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/common/logger"
	"listing-matcher/internal/common/metrics"
	"listing-matcher/internal/common/validation"
)

const (
	TaskType = "classify-images"
)

type Handler struct {
	config     *Config
	aggregator *Aggregator
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, t Tagger, registry Categorizer, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		aggregator: NewAggregator(t, registry, config, scoped),
		errHandler: errors.NewErrorHandler(scoped),
		logger:     scoped,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.GetKey(),
		"workflowKey": job.GetProcessInstanceKey(),
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.GetVariables()), &input); err != nil {
		h.failJob(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.failJob(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
}

// Execute classifies the batch. Per-image failures are reported in the output, not returned.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if res := validation.ValidateStruct(input); !res.Valid {
		return nil, errors.NewInvalidInputError(strings.Join(res.GetErrorMessages(), "; "))
	}

	output, err := h.aggregator.Aggregate(ctx, input.Images)
	if err != nil {
		return nil, err
	}

	h.logger.Info("images classified", map[string]interface{}{
		"images":         len(input.Images),
		"propertyImages": output.Counts.PropertyImages,
		"logos":          output.Counts.Logos,
		"realtorPhotos":  output.Counts.RealtorPhotos,
		"failed":         len(output.Failures()),
	})
	return output, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().JobKey(job.GetKey()).VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to build complete command", map[string]interface{}{"jobKey": job.GetKey(), "error": err})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.GetKey(), "error": err})
	}
}

func (h *Handler) failJob(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.CodeOf(err))).Inc()
	h.errHandler.HandleJobError(ctx, client, job, err)
}
