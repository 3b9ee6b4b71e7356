// internal/workers/listing/score-templates/handler.go
package scoretemplates

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"listing-matcher/internal/common/catalog"
	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/common/logger"
	"listing-matcher/internal/common/metrics"
)

const (
	TaskType = "score-templates"
)

type Handler struct {
	config     *Config
	store      catalog.Store
	errHandler *errors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, store catalog.Store, log logger.Logger) *Handler {
	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		store:      store,
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

// Execute takes one snapshot of the catalog and selects the best-fitting template.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Counts.PropertyImages < 0 || input.Counts.Logos < 0 || input.Counts.RealtorPhotos < 0 {
		return nil, errors.NewInvalidInputError("category counts must not be negative")
	}

	snapshot, err := h.store.ListTemplates(ctx)
	if err != nil {
		return nil, errors.FromCallError("template-store", err, errors.NewStoreUnavailableError)
	}

	chosen, ranking, err := Select(input.Counts, snapshot)
	if err != nil {
		return nil, err
	}
	metrics.TemplateSelected.WithLabelValues(chosen.ID).Inc()

	top := TopN(ranking, h.config.TopN)
	h.logger.Info("template selected", map[string]interface{}{
		"templateId": chosen.ID,
		"score":      ranking[0].TotalScore,
		"candidates": len(snapshot),
		"ranking":    top,
	})

	return &Output{
		SelectedTemplateID: chosen.ID,
		TemplateName:       chosen.Name,
		OutputFormat:       chosen.OutputFormat,
		Template:           chosen,
		Ranking:            top,
	}, nil
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
