// internal/workers/listing/extract-fields/service.go
package extractfields

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/common/logger"
	"listing-matcher/internal/common/prompts"
	"listing-matcher/internal/models"
)

// Generator is the text generation capability. Replies are raw text; parsing is the caller's job.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Extractor struct {
	generator   Generator
	prompts     *prompts.Renderer
	enforcer    *Enforcer
	concurrency int
	callTimeout time.Duration
	logger      logger.Logger
}

func NewExtractor(gen Generator, renderer *prompts.Renderer, config *Config, log logger.Logger) *Extractor {
	return &Extractor{
		generator:   gen,
		prompts:     renderer,
		enforcer:    NewEnforcer(gen, renderer, config, log),
		concurrency: config.FieldConcurrency,
		callTimeout: config.CallTimeout,
		logger:      log,
	}
}

// AugmentText appends the property address literal to the description.
func AugmentText(text, address string) string {
	if address == "" {
		return text
	}
	return text + "\n\nProperty address: " + address
}

// Extract asks for every text field of t in one request, then brings each
// over-length value within budget. Any generator failure aborts the extraction.
func (e *Extractor) Extract(ctx context.Context, t models.Template, text, address string) (*Output, error) {
	prompt, err := e.prompts.ExtractionPrompt(t, AugmentText(text, address))
	if err != nil {
		return nil, errors.NewGenerationError(t.ID, err)
	}

	raw, err := e.call(ctx, prompt)
	if err != nil {
		return nil, errors.FromCallError("text-generator", err, func(cause error) *errors.StandardError {
			return errors.NewGenerationError(t.ID, cause)
		})
	}

	fields, err := ParseReply(t, raw)
	if err != nil {
		return nil, err
	}

	output := &Output{
		Fields:          fields,
		TruncationFlags: make(map[string]bool, len(fields)),
	}

	var over []string
	for _, name := range t.FieldNames() {
		output.TruncationFlags[name] = false
		if v := fields[name]; v != nil && Length(*v) > t.TextFields[name].ApproxLength {
			over = append(over, name)
		}
	}
	if len(over) == 0 {
		return output, nil
	}

	// Fields shorten independently; rounds within one field stay sequential.
	values := make([]string, len(over))
	reports := make([]TruncationReport, len(over))
	g, gctx := errgroup.WithContext(ctx)
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for i, name := range over {
		g.Go(func() error {
			v, report, err := e.enforcer.Enforce(gctx, t.ID, name, t.TextFields[name], *fields[name])
			if err != nil {
				return err
			}
			values[i] = v
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, name := range over {
		v := values[i]
		output.Fields[name] = &v
		output.TruncationFlags[name] = reports[i].StillOverLimit
	}
	output.Truncation = reports
	return output, nil
}

func (e *Extractor) call(ctx context.Context, prompt string) (string, error) {
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}
	return e.generator.Generate(ctx, prompt)
}
