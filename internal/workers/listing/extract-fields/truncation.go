// internal/workers/listing/extract-fields/truncation.go
package extractfields

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/common/logger"
	"listing-matcher/internal/common/metrics"
	"listing-matcher/internal/common/prompts"
	"listing-matcher/internal/models"
)

// Enforcer shortens over-length values with a bounded number of generator rounds.
// It never cuts text itself: a value still too long after the last round is
// returned unchanged and flagged.
type Enforcer struct {
	generator   Generator
	prompts     *prompts.Renderer
	maxRounds   int
	callTimeout time.Duration
	logger      logger.Logger
}

func NewEnforcer(gen Generator, renderer *prompts.Renderer, config *Config, log logger.Logger) *Enforcer {
	rounds := config.MaxShorteningRounds
	if rounds < 0 {
		rounds = 0
	}
	return &Enforcer{
		generator:   gen,
		prompts:     renderer,
		maxRounds:   rounds,
		callTimeout: config.CallTimeout,
		logger:      log,
	}
}

// Length counts characters as Unicode code points.
func Length(s string) int { return utf8.RuneCountInString(s) }

// Enforce runs the shortening loop for one field. Rounds are strictly sequential.
func (e *Enforcer) Enforce(ctx context.Context, templateID, field string, spec models.TextField, value string) (string, TruncationReport, error) {
	target := spec.ApproxLength
	report := TruncationReport{
		Field:          field,
		Target:         target,
		OriginalLength: Length(value),
	}

	candidate := value
	ceiling := 1 + e.maxRounds
	for attempt := 1; Length(candidate) > target && attempt < ceiling; attempt++ {
		prompt, err := e.prompts.ShortenPrompt(candidate, target, spec.FormatExample)
		if err != nil {
			return "", report, errors.NewGenerationError(templateID, err).With("field", field)
		}

		reply, err := e.call(ctx, prompt)
		if err != nil {
			stdErr := errors.FromCallError("text-generator", err, func(cause error) *errors.StandardError {
				return errors.NewGenerationError(templateID, cause)
			})
			return "", report, stdErr.With("field", field)
		}

		report.Rounds++
		if reply = strings.TrimSpace(reply); reply != "" {
			candidate = reply
		}
	}

	report.FinalLength = Length(candidate)
	report.StillOverLimit = report.FinalLength > target

	if report.Rounds > 0 {
		metrics.ShorteningRounds.Observe(float64(report.Rounds))
	}
	if report.StillOverLimit {
		metrics.FieldsStillOverLimit.Inc()
		e.logger.Warn("field still over limit after shortening", map[string]interface{}{
			"templateId": templateID,
			"field":      field,
			"target":     target,
			"length":     report.FinalLength,
			"rounds":     report.Rounds,
		})
	}
	return candidate, report, nil
}

func (e *Enforcer) call(ctx context.Context, prompt string) (string, error) {
	if e.callTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.callTimeout)
		defer cancel()
	}
	return e.generator.Generate(ctx, prompt)
}
