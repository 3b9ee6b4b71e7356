// internal/workers/listing/compose-listing/pipeline.go
package composelisting

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"listing-matcher/internal/common/catalog"
	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/common/logger"
	"listing-matcher/internal/common/metrics"
	"listing-matcher/internal/common/observability"
	"listing-matcher/internal/common/prompts"
	"listing-matcher/internal/common/validation"
	"listing-matcher/internal/models"
	classifyimages "listing-matcher/internal/workers/listing/classify-images"
	extractfields "listing-matcher/internal/workers/listing/extract-fields"
	mergeassignment "listing-matcher/internal/workers/listing/merge-assignment"
	scoretemplates "listing-matcher/internal/workers/listing/score-templates"
)

// Pipeline runs classify, score, extract and merge for one request.
type Pipeline struct {
	aggregator *classifyimages.Aggregator
	store      catalog.Store
	extractor  *extractfields.Extractor
	obs        *observability.Observability
	topN       int
	logger     logger.Logger
}

// Deps are the external capabilities the pipeline is built from.
type Deps struct {
	Tagger    classifyimages.Tagger
	Registry  classifyimages.Categorizer
	Store     catalog.Store
	Generator extractfields.Generator
	Prompts   *prompts.Renderer
	Obs       *observability.Observability
}

func NewPipeline(config *Config, deps Deps, log logger.Logger) *Pipeline {
	return &Pipeline{
		aggregator: classifyimages.NewAggregator(deps.Tagger, deps.Registry, config.Classify, log),
		store:      deps.Store,
		extractor:  extractfields.NewExtractor(deps.Generator, deps.Prompts, config.Extract, log),
		obs:        deps.Obs,
		topN:       config.TopN,
		logger:     log,
	}
}

func (p *Pipeline) Run(ctx context.Context, input *Input) (*Output, error) {
	if res := validation.ValidateStruct(input); !res.Valid {
		return nil, errors.NewInvalidInputError(strings.Join(res.GetErrorMessages(), "; "))
	}

	requestID := input.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := p.logger.WithFields(map[string]interface{}{"requestId": requestID})

	ctx, span := p.obs.StartSpan(ctx, "listing.compose",
		attribute.String("request.id", requestID),
		attribute.Int("images", len(input.Images)),
	)
	defer span.End()

	output, err := p.run(ctx, input, requestID, log)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.CodeOf(err)))
		return nil, err
	}
	span.SetAttributes(attribute.String("template.id", output.SelectedTemplateID))
	return output, nil
}

func (p *Pipeline) run(ctx context.Context, input *Input, requestID string, log logger.Logger) (*Output, error) {
	stageCtx, span := p.obs.StartSpan(ctx, "listing.classify")
	classified, err := p.aggregator.Aggregate(stageCtx, input.Images)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	stageCtx, span = p.obs.StartSpan(ctx, "listing.score")
	chosen, ranking, err := p.selectTemplate(stageCtx, classified.Counts)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}
	log.Info("template selected", map[string]interface{}{
		"templateId": chosen.ID,
		"score":      ranking[0].TotalScore,
		"counts":     classified.Counts,
		"failed":     len(classified.Failures()),
	})

	stageCtx, span = p.obs.StartSpan(ctx, "listing.extract", attribute.String("template.id", chosen.ID))
	extracted, err := p.extractor.Extract(stageCtx, chosen, input.Text, input.PropertyAddress)
	endSpan(span, err)
	if err != nil {
		return nil, err
	}

	merged := mergeassignment.Merge(chosen, extracted.Fields,
		mergeassignment.Images{
			HouseFiles:  classified.HouseFiles,
			LogoFiles:   classified.LogoFiles,
			PersonFiles: classified.PersonFiles,
		},
		mergeassignment.Realtor{
			Name:    input.RealtorName,
			Email:   input.RealtorEmail,
			Address: input.PropertyAddress,
		},
	)

	log.Info("listing composed", map[string]interface{}{
		"templateId":     chosen.ID,
		"keys":           len(merged.Assignment),
		"unassignedKeys": len(merged.UnassignedKeys),
		"unusedFiles":    len(merged.UnusedFiles),
	})

	return &Output{
		Assignment:         merged.Assignment,
		SelectedTemplateID: chosen.ID,
		TemplateName:       chosen.Name,
		OutputFormat:       chosen.OutputFormat,
		Diagnostics: Diagnostics{
			RequestID:       requestID,
			PerImage:        classified.Records,
			Counts:          classified.Counts,
			Ranking:         scoretemplates.TopN(ranking, p.topN),
			TruncationFlags: extracted.TruncationFlags,
			Truncation:      extracted.Truncation,
			UnassignedKeys:  merged.UnassignedKeys,
			UnusedFiles:     merged.UnusedFiles,
		},
	}, nil
}

// selectTemplate scores one catalog snapshot.
func (p *Pipeline) selectTemplate(ctx context.Context, counts models.CategoryCounts) (models.Template, []scoretemplates.ScoreResult, error) {
	snapshot, err := p.store.ListTemplates(ctx)
	if err != nil {
		return models.Template{}, nil, errors.FromCallError("template-store", err, errors.NewStoreUnavailableError)
	}
	chosen, ranking, err := scoretemplates.Select(counts, snapshot)
	if err != nil {
		return models.Template{}, nil, err
	}
	metrics.TemplateSelected.WithLabelValues(chosen.ID).Inc()
	return chosen, ranking, nil
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.CodeOf(err)))
	}
	span.End()
}
