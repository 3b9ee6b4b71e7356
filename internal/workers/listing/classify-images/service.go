// internal/workers/listing/classify-images/service.go
package classifyimages

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"listing-matcher/internal/common/errors"
	"listing-matcher/internal/common/logger"
	"listing-matcher/internal/common/metrics"
	"listing-matcher/internal/common/tagger"
	"listing-matcher/internal/models"
)

const taggerService = "image-tagger"

// Tagger labels a single image.
type Tagger interface {
	Classify(ctx context.Context, image []byte) (label string, confidence float64, err error)
}

// Categorizer maps a tagger label to its category.
type Categorizer interface {
	Category(label string) models.Category
}

// Aggregator classifies a batch of images and buckets them by category.
type Aggregator struct {
	tagger      Tagger
	registry    Categorizer
	concurrency int
	callTimeout time.Duration
	logger      logger.Logger
}

func NewAggregator(t Tagger, registry Categorizer, config *Config, log logger.Logger) *Aggregator {
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Aggregator{
		tagger:      t,
		registry:    registry,
		concurrency: concurrency,
		callTimeout: config.CallTimeout,
		logger:      log,
	}
}

// Aggregate classifies every image. A failing image is recorded and skipped;
// only cancellation of ctx aborts the batch.
func (a *Aggregator) Aggregate(ctx context.Context, images []ImageInput) (*Output, error) {
	records := make([]models.ClassificationRecord, len(images))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, img := range images {
		g.Go(func() error {
			records[i] = a.classifyOne(ctx, img)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, errors.NewServiceTimeoutError(taggerService, err)
	}

	out := &Output{
		Records:     records,
		HouseFiles:  []string{},
		LogoFiles:   []string{},
		PersonFiles: []string{},
	}
	for _, r := range records {
		if r.Failed() {
			metrics.ImagesClassified.WithLabelValues("failed").Inc()
			continue
		}
		metrics.ImagesClassified.WithLabelValues(r.Category.String()).Inc()

		switch r.Category {
		case models.CategoryHouse:
			out.Counts.PropertyImages++
			out.HouseFiles = append(out.HouseFiles, r.Filename)
		case models.CategoryLogo:
			out.Counts.Logos++
			out.LogoFiles = append(out.LogoFiles, r.Filename)
		case models.CategoryPerson:
			out.Counts.RealtorPhotos++
			out.PersonFiles = append(out.PersonFiles, r.Filename)
		}
	}
	return out, nil
}

func (a *Aggregator) classifyOne(ctx context.Context, img ImageInput) models.ClassificationRecord {
	rec := models.ClassificationRecord{Filename: img.Filename, Category: models.CategoryOther}

	if len(img.Data) == 0 {
		return a.fail(rec, errors.NewClassificationError(img.Filename, fmt.Errorf("empty image")))
	}
	if mime, ok := tagger.Sniff(img.Data); !ok {
		return a.fail(rec, errors.NewClassificationError(img.Filename, fmt.Errorf("undecodable image: detected %s", mime)))
	}

	callCtx := ctx
	if a.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.callTimeout)
		defer cancel()
	}

	label, confidence, err := a.tagger.Classify(callCtx, img.Data)
	if err != nil {
		stdErr := errors.FromCallError(taggerService, err, func(e error) *errors.StandardError {
			return errors.NewClassificationError(img.Filename, e)
		})
		return a.fail(rec, stdErr.With("filename", img.Filename))
	}

	rec.Label = label
	rec.Confidence = confidence
	rec.Category = a.registry.Category(label)
	return rec
}

func (a *Aggregator) fail(rec models.ClassificationRecord, err *errors.StandardError) models.ClassificationRecord {
	a.logger.Warn("image classification failed", map[string]interface{}{
		"filename":  rec.Filename,
		"errorCode": string(err.Code),
		"error":     err.Details,
	})
	rec.Error = fmt.Sprintf("%s: %s", err.Code, err.Details)
	return rec
}
