// internal/common/genai/client.go
package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"google.golang.org/genai"

	"listing-matcher/internal/common/logger"
	"listing-matcher/internal/common/prompts"
)

type Config struct {
	APIKey      string
	Model       string
	VisionModel string
	Temperature float64
}

// Client is a Gemini-backed Text Generator and Image Tagger.
type Client struct {
	client  *genai.Client
	config  Config
	prompts *prompts.Renderer
	labels  []string
	logger  logger.Logger
}

// NewClient connects to the Gemini API. labels is the vocabulary offered to the vision model.
func NewClient(ctx context.Context, cfg Config, renderer *prompts.Renderer, labels []string, log logger.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}
	if cfg.VisionModel == "" {
		cfg.VisionModel = cfg.Model
	}

	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{
		client:  c,
		config:  cfg,
		prompts: renderer,
		labels:  labels,
		logger:  log.WithFields(map[string]interface{}{"component": "genai"}),
	}, nil
}

// Generate sends a single user prompt and returns the raw reply text.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, contents, &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(c.config.Temperature)),
	})
	if err != nil {
		return "", err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("model %s returned no candidates", c.config.Model)
	}

	text := resp.Text()
	c.logger.Debug("generation completed", map[string]interface{}{
		"model":       c.config.Model,
		"promptChars": len(prompt),
		"replyChars":  len(text),
	})
	return text, nil
}

// Classify asks the vision model to pick one vocabulary label for image.
func (c *Client) Classify(ctx context.Context, image []byte) (string, float64, error) {
	mtype := mimetype.Detect(image)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", 0, fmt.Errorf("not an image: detected %s", mtype.String())
	}

	prompt, err := c.prompts.ClassifyPrompt(c.labels)
	if err != nil {
		return "", 0, err
	}

	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(image, mtype.String()),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.config.VisionModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr(float32(0)),
	})
	if err != nil {
		return "", 0, err
	}
	if resp == nil || len(resp.Candidates) == 0 {
		return "", 0, fmt.Errorf("model %s returned no candidates", c.config.VisionModel)
	}

	return ParseClassification(resp.Text())
}

type classificationReply struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence"`
}

// ParseClassification decodes a {"label", "confidence"} reply. Confidence is clamped to [0,1].
func ParseClassification(raw string) (string, float64, error) {
	var reply classificationReply
	if err := json.Unmarshal([]byte(CleanJSONBlock(raw)), &reply); err != nil {
		return "", 0, fmt.Errorf("unparseable classification reply: %w", err)
	}
	label := strings.TrimSpace(reply.Label)
	if label == "" {
		return "", 0, fmt.Errorf("classification reply has no label")
	}

	conf := 0.0
	if reply.Confidence != nil {
		conf = *reply.Confidence
	}
	switch {
	case conf < 0:
		conf = 0
	case conf > 1:
		conf = 1
	}
	return label, conf, nil
}
