// internal/common/tagger/tagger.go
package tagger

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	gocache "github.com/patrickmn/go-cache"

	commonhttp "listing-matcher/internal/common/http"
)

// Tagger labels one image.
type Tagger interface {
	Classify(ctx context.Context, image []byte) (label string, confidence float64, err error)
}

// Sniff reports the detected MIME type and whether it is an image.
func Sniff(data []byte) (string, bool) {
	m := mimetype.Detect(data)
	return m.String(), strings.HasPrefix(m.String(), "image/")
}

// HTTPTagger calls a CLIP-style classification sidecar:
// POST {base}/classify {"image": base64, "mime": "...", "labels": [...]} -> {"label": "...", "score": 0.93}
type HTTPTagger struct {
	client  *commonhttp.Client
	baseURL string
	labels  []string
}

func NewHTTPTagger(baseURL string, timeout time.Duration, labels []string) *HTTPTagger {
	return &HTTPTagger{
		client:  commonhttp.NewClient(timeout),
		baseURL: strings.TrimRight(baseURL, "/"),
		labels:  labels,
	}
}

type classifyRequest struct {
	Image  string   `json:"image"`
	Mime   string   `json:"mime"`
	Labels []string `json:"labels"`
}

type classifyResponse struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

func (t *HTTPTagger) Classify(ctx context.Context, image []byte) (string, float64, error) {
	mime, ok := Sniff(image)
	if !ok {
		return "", 0, fmt.Errorf("not an image: detected %s", mime)
	}

	var resp classifyResponse
	err := t.client.PostJSON(ctx, t.baseURL+"/classify", classifyRequest{
		Image:  base64.StdEncoding.EncodeToString(image),
		Mime:   mime,
		Labels: t.labels,
	}, &resp)
	if err != nil {
		return "", 0, err
	}
	if resp.Label == "" {
		return "", 0, fmt.Errorf("tagger returned an empty label")
	}
	return resp.Label, resp.Score, nil
}

type cachedResult struct {
	label      string
	confidence float64
}

// Cached memoises successful classifications by image digest. Failures are not cached.
type Cached struct {
	next  Tagger
	cache *gocache.Cache
}

func NewCached(next Tagger, ttl time.Duration) *Cached {
	return &Cached{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (c *Cached) Classify(ctx context.Context, image []byte) (string, float64, error) {
	sum := sha256.Sum256(image)
	key := hex.EncodeToString(sum[:])

	if v, ok := c.cache.Get(key); ok {
		r := v.(cachedResult)
		return r.label, r.confidence, nil
	}

	label, conf, err := c.next.Classify(ctx, image)
	if err != nil {
		return "", 0, err
	}
	c.cache.Set(key, cachedResult{label: label, confidence: conf}, gocache.DefaultExpiration)
	return label, conf, nil
}
